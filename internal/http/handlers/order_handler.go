package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"booknook/internal/domain"
	applog "booknook/internal/log"
	"booknook/internal/services"
)

type OrderHandler struct {
	Orders *services.OrderService
	Flash  *Flash
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	u := currentUser(c)
	orders, err := h.Orders.List(c.UserContext(), u.ID)
	if err != nil {
		applog.Error(c, "orders.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load your orders"})
	}
	return render(c, "orders", fiber.Map{"Orders": orders})
}

// orderKey reads the "key" form field. A malformed key is reported like a missing order.
func orderKey(c *fiber.Ctx) (domain.OrderKey, error) {
	key, err := domain.ParseOrderKey(c.FormValue("key"))
	if err != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "key"})
		return domain.OrderKey{}, domain.E(domain.ErrNotFound, "Order not found.")
	}
	return key, nil
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	u := currentUser(c)
	key, err := orderKey(c)
	if err != nil {
		return fail(c, h.Flash, "order.cancel", err, "/orders")
	}
	outcome, err := h.Orders.Cancel(c.UserContext(), u.ID, key)
	if err != nil {
		return fail(c, h.Flash, "order.cancel", err, "/orders")
	}
	applog.Audit(c, "order.cancel", map[string]any{"book_id": key.BookID, "outcome": int(outcome)})
	if outcome == services.CancelOutcomeDeleted {
		h.Flash.Success(c, "The order was already closed, so it has been removed from your list.")
	} else {
		h.Flash.Success(c, "Order cancelled. The copies are back on the shelf.")
	}
	return c.Redirect("/orders")
}

func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	u := currentUser(c)
	key, err := orderKey(c)
	if err != nil {
		return fail(c, h.Flash, "order.delete", err, "/orders")
	}
	if err := h.Orders.Delete(c.UserContext(), u.ID, key); err != nil {
		return fail(c, h.Flash, "order.delete", err, "/orders")
	}
	applog.Audit(c, "order.delete", map[string]any{"book_id": key.BookID})
	h.Flash.Success(c, "Order removed.")
	return c.Redirect("/orders")
}

// formValues returns every value posted under name, for urlencoded and multipart bodies alike.
func formValues(c *fiber.Ctx, name string) []string {
	if form, err := c.MultipartForm(); err == nil && form != nil {
		return form.Value[name]
	}
	var out []string
	for _, v := range c.Context().PostArgs().PeekMulti(name) {
		out = append(out, string(v))
	}
	return out
}

func (h *OrderHandler) CancelMany(c *fiber.Ctx) error {
	u := currentUser(c)
	keys := formValues(c, "keys")
	if len(keys) == 0 {
		h.Flash.Error(c, "Select at least one order.")
		return c.Redirect("/orders")
	}
	n, err := h.Orders.CancelMany(c.UserContext(), u.ID, keys)
	if err != nil {
		return fail(c, h.Flash, "order.cancel_many", err, "/orders")
	}
	applog.Audit(c, "order.cancel_many", map[string]any{"requested": len(keys), "cancelled": n})
	h.Flash.Success(c, fmt.Sprintf("%d of %d selected orders cancelled.", n, len(keys)))
	return c.Redirect("/orders")
}

func (h *OrderHandler) DeleteMany(c *fiber.Ctx) error {
	u := currentUser(c)
	keys := formValues(c, "keys")
	if len(keys) == 0 {
		h.Flash.Error(c, "Select at least one order.")
		return c.Redirect("/orders")
	}
	n, err := h.Orders.DeleteMany(c.UserContext(), u.ID, keys)
	if err != nil {
		return fail(c, h.Flash, "order.delete_many", err, "/orders")
	}
	applog.Audit(c, "order.delete_many", map[string]any{"requested": len(keys), "deleted": n})
	h.Flash.Success(c, fmt.Sprintf("%d of %d selected orders removed.", n, len(keys)))
	return c.Redirect("/orders")
}
