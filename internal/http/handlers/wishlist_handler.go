package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "booknook/internal/log"
	"booknook/internal/services"
	"booknook/internal/validate"
)

type WishlistHandler struct {
	Wish  *services.WishlistService
	Flash *Flash
}

func (h *WishlistHandler) List(c *fiber.Ctx) error {
	u := currentUser(c)
	items, err := h.Wish.List(c.UserContext(), u.ID)
	if err != nil {
		applog.Error(c, "wishlist.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load wishlist"})
	}
	return render(c, "wishlist", fiber.Map{"Items": items})
}

// Toggle answers {success, inWishlist, message}.
func (h *WishlistHandler) Toggle(c *fiber.Ctx) error {
	u := currentUser(c)
	bookID, ok := validate.ID(c.FormValue("book_id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "book_id"})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid book."})
	}
	added, err := h.Wish.Toggle(c.UserContext(), u.ID, bookID)
	if err != nil {
		return jsonFail(c, "wishlist.toggle", err)
	}
	msg := "Removed from your wishlist."
	if added {
		msg = "Added to your wishlist."
	}
	applog.Audit(c, "wishlist.toggle", map[string]any{"book_id": bookID, "added": added})
	return c.JSON(fiber.Map{"success": true, "inWishlist": added, "message": msg})
}

func (h *WishlistHandler) Remove(c *fiber.Ctx) error {
	u := currentUser(c)
	bookID, ok := validate.ID(c.FormValue("book_id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "book_id"})
		return c.Status(fiber.StatusBadRequest).SendString("missing book_id")
	}
	if err := h.Wish.Remove(c.UserContext(), u.ID, bookID); err != nil {
		return fail(c, h.Flash, "wishlist.remove", err, "/wishlist")
	}
	applog.Audit(c, "wishlist.remove", map[string]any{"book_id": bookID})
	return c.Redirect("/wishlist")
}
