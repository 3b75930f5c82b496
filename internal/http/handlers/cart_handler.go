package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"booknook/internal/domain"
	applog "booknook/internal/log"
	"booknook/internal/services"
	"booknook/internal/validate"
)

type CartHandler struct {
	Cart     *services.CartService
	Checkout *services.CheckoutService
	Flash    *Flash
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	u := currentUser(c)
	cv, err := h.Cart.View(c.UserContext(), u.ID)
	if err != nil {
		applog.Error(c, "cart.view.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load your cart"})
	}
	return render(c, "cart", fiber.Map{"Cart": cv})
}

// Add answers the page script with {success, message, count}; plain form posts get a redirect.
func (h *CartHandler) Add(c *fiber.Ctx) error {
	u := currentUser(c)
	bookID, ok := validate.ID(c.FormValue("book_id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "book_id"})
		if isJSON(c) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid book."})
		}
		return c.Status(fiber.StatusBadRequest).SendString("missing book_id")
	}
	qty := 1
	if raw := strings.TrimSpace(c.FormValue("quantity")); raw != "" {
		var err error
		if qty, err = parseQuantity(raw); err != nil {
			if isJSON(c) {
				return jsonFail(c, "cart.add", err)
			}
			return fail(c, h.Flash, "cart.add", err, back(c, "/books"))
		}
	}

	if err := h.Cart.Add(c.UserContext(), u.ID, bookID, qty); err != nil {
		if isJSON(c) {
			return jsonFail(c, "cart.add", err)
		}
		return fail(c, h.Flash, "cart.add", err, back(c, "/books"))
	}
	applog.Audit(c, "cart.add", map[string]any{"book_id": bookID, "qty": qty})

	if isJSON(c) {
		count, err := h.Cart.Count(c.UserContext(), u.ID)
		if err != nil {
			applog.Error(c, "cart.count.fail", err, nil)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Added to cart.", "count": count})
	}
	h.Flash.Success(c, "Added to cart.")
	return c.Redirect(back(c, "/cart"))
}

func (h *CartHandler) Update(c *fiber.Ctx) error {
	u := currentUser(c)
	bookID, ok := validate.ID(c.FormValue("book_id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "book_id"})
		return c.Status(fiber.StatusBadRequest).SendString("missing book_id")
	}
	qty, err := parseQuantity(c.FormValue("quantity"))
	if err != nil {
		return fail(c, h.Flash, "cart.update", err, "/cart")
	}
	if err := h.Cart.UpdateQuantity(c.UserContext(), u.ID, bookID, qty); err != nil {
		return fail(c, h.Flash, "cart.update", err, "/cart")
	}
	applog.Audit(c, "cart.update", map[string]any{"book_id": bookID, "qty": qty})
	return c.Redirect("/cart")
}

// parseQuantity accepts any integer and lets the service decide whether it is in range.
func parseQuantity(s string) (int, error) {
	n, ok := validate.Int(s)
	if !ok {
		return 0, domain.E(domain.ErrInvalidQuantity, "Quantity must be a whole number.")
	}
	return n, nil
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	u := currentUser(c)
	bookID, ok := validate.ID(c.FormValue("book_id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "book_id"})
		return c.Status(fiber.StatusBadRequest).SendString("missing book_id")
	}
	if err := h.Cart.Remove(c.UserContext(), u.ID, bookID); err != nil {
		return fail(c, h.Flash, "cart.remove", err, "/cart")
	}
	applog.Audit(c, "cart.remove", map[string]any{"book_id": bookID})
	h.Flash.Success(c, "Removed from cart.")
	return c.Redirect("/cart")
}

// Review shows the checkout quote: per-line prices and both order-level discounts.
func (h *CartHandler) Review(c *fiber.Ctx) error {
	u := currentUser(c)
	q, err := h.Checkout.Quote(c.UserContext(), u.ID)
	if err != nil {
		return fail(c, h.Flash, "checkout.quote", err, "/cart")
	}
	return render(c, "checkout", fiber.Map{"Quote": q})
}

func (h *CartHandler) Place(c *fiber.Ctx) error {
	u := currentUser(c)
	orders, err := h.Checkout.Checkout(c.UserContext(), u)
	if err != nil {
		applog.Security(c, "checkout.fail", map[string]any{"code": string(domain.CodeOf(err))})
		return fail(c, h.Flash, "checkout", err, "/cart")
	}
	nos := make([]int64, 0, len(orders))
	for _, o := range orders {
		nos = append(nos, o.OrderNo)
	}
	applog.Audit(c, "checkout.place", map[string]any{"order_nos": nos})
	h.Flash.Success(c, "Thank you! Your order is placed. Show the claim code at the counter to pick it up.")
	return c.Redirect("/orders")
}
