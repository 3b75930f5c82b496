package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	applog "booknook/internal/log"
	"booknook/internal/services"
	"booknook/internal/validate"
)

type ReviewHandler struct {
	Reviews *services.ReviewService
	Flash   *Flash
}

func bookURL(id int64) string { return fmt.Sprintf("/books/%d#reviews", id) }

func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	u := currentUser(c)
	bookID, ok := validate.ID(c.Params("id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "book"})
		return notFound(c, "This book is no longer available.")
	}
	var form validate.ReviewForm
	if err := c.BodyParser(&form); err != nil {
		h.Flash.Error(c, "Invalid form submission.")
		return c.Redirect(bookURL(bookID))
	}
	if err := validate.Struct(form); err != nil {
		h.Flash.Error(c, err.Error())
		return c.Redirect(bookURL(bookID))
	}
	r, err := h.Reviews.CreateReview(c.UserContext(), u.ID, bookID, form.Rating, form.Comment)
	if err != nil {
		return fail(c, h.Flash, "review.create", err, bookURL(bookID))
	}
	applog.Audit(c, "review.create", map[string]any{"book_id": bookID, "review_id": r.ID, "rating": r.Rating})
	h.Flash.Success(c, "Thanks for your review!")
	return c.Redirect(bookURL(bookID))
}

func (h *ReviewHandler) Reply(c *fiber.Ctx) error {
	u := currentUser(c)
	bookID, ok := validate.ID(c.Params("id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "book"})
		return notFound(c, "This book is no longer available.")
	}
	var form validate.ReplyForm
	if err := c.BodyParser(&form); err != nil {
		h.Flash.Error(c, "Invalid form submission.")
		return c.Redirect(bookURL(bookID))
	}
	if err := validate.Struct(form); err != nil {
		h.Flash.Error(c, err.Error())
		return c.Redirect(bookURL(bookID))
	}
	r, err := h.Reviews.CreateReply(c.UserContext(), u.ID, bookID, form.ParentID, form.Comment)
	if err != nil {
		return fail(c, h.Flash, "review.reply", err, bookURL(bookID))
	}
	applog.Audit(c, "review.reply", map[string]any{"book_id": bookID, "review_id": r.ID, "parent_id": form.ParentID})
	h.Flash.Success(c, "Reply posted.")
	return c.Redirect(bookURL(bookID))
}
