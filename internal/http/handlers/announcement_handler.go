package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"booknook/internal/domain"
	applog "booknook/internal/log"
	"booknook/internal/services"
	"booknook/internal/validate"
)

type AnnouncementHandler struct {
	Announcements *services.AnnouncementService
	Flash         *Flash
}

// GET /admin/announcements
func (h *AnnouncementHandler) List(c *fiber.Ctx) error {
	items, err := h.Announcements.Unexpired(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.announcements.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load announcements"})
	}
	return render(c, "admin_announcements", fiber.Map{"Items": items, "Form": validate.AnnouncementForm{}})
}

// POST /admin/announcements/broadcast
func (h *AnnouncementHandler) Broadcast(c *fiber.Ctx) error {
	if err := h.Announcements.Broadcast(c.FormValue("message")); err != nil {
		return fail(c, h.Flash, "admin.announcements.broadcast", err, "/admin/announcements")
	}
	applog.Audit(c, "admin.announcements.broadcast", nil)
	h.Flash.Success(c, "Announcement sent to everyone online.")
	return c.Redirect("/admin/announcements")
}

func announcementInput(form validate.AnnouncementForm) (services.AnnouncementInput, error) {
	in := services.AnnouncementInput{Title: form.Title, Message: form.Message}
	if form.StartDate != "" {
		start, err := parseFormTime(form.StartDate)
		if err != nil {
			return in, domain.E(domain.ErrValidationFailed, "Start date is not a valid date.")
		}
		in.Start = start
	}
	end, err := parseFormTime(form.ExpiresAt)
	if err != nil {
		return in, domain.E(domain.ErrValidationFailed, "Expiry date is not a valid date.")
	}
	in.ExpiresAt = end
	return in, nil
}

func (h *AnnouncementHandler) bind(c *fiber.Ctx) (services.AnnouncementInput, error) {
	var form validate.AnnouncementForm
	if err := c.BodyParser(&form); err != nil {
		return services.AnnouncementInput{}, domain.E(domain.ErrValidationFailed, "Invalid form submission.")
	}
	if err := validate.Struct(form); err != nil {
		return services.AnnouncementInput{}, domain.Wrap(domain.ErrValidationFailed, err.Error(), err)
	}
	return announcementInput(form)
}

// POST /admin/announcements
func (h *AnnouncementHandler) Create(c *fiber.Ctx) error {
	in, err := h.bind(c)
	if err != nil {
		return fail(c, h.Flash, "admin.announcements.create", err, "/admin/announcements")
	}
	a, err := h.Announcements.CreateTimed(c.UserContext(), in)
	if err != nil {
		return fail(c, h.Flash, "admin.announcements.create", err, "/admin/announcements")
	}
	applog.Audit(c, "admin.announcements.create", map[string]any{"id": a.ID, "expires_at": domain.FormatTime(a.ExpiresAt)})
	h.Flash.Success(c, "Announcement published.")
	return c.Redirect("/admin/announcements")
}

func announcementParam(c *fiber.Ctx) (int64, bool) {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "announcement"})
	}
	return id, ok
}

func formFromAnnouncement(a domain.Announcement) validate.AnnouncementForm {
	return validate.AnnouncementForm{
		Title:     a.Title,
		Message:   a.Message,
		StartDate: a.StartDate.In(time.Local).Format(dateTimeLayout),
		ExpiresAt: a.ExpiresAt.In(time.Local).Format(dateTimeLayout),
	}
}

// GET /admin/announcements/:id/edit
func (h *AnnouncementHandler) Edit(c *fiber.Ctx) error {
	id, ok := announcementParam(c)
	if !ok {
		return notFound(c, "Announcement not found.")
	}
	a, err := h.Announcements.Get(c.UserContext(), id)
	if domain.Is(err, domain.ErrNotFound) {
		return notFound(c, userMessage(err))
	}
	if err != nil {
		return fail(c, h.Flash, "admin.announcements.edit", err, "/admin/announcements")
	}
	return render(c, "admin_announcement_edit", fiber.Map{"ID": a.ID, "Form": formFromAnnouncement(a)})
}

// POST /admin/announcements/:id
func (h *AnnouncementHandler) Update(c *fiber.Ctx) error {
	id, ok := announcementParam(c)
	if !ok {
		return notFound(c, "Announcement not found.")
	}
	editURL := fmt.Sprintf("/admin/announcements/%d/edit", id)
	in, err := h.bind(c)
	if err != nil {
		return fail(c, h.Flash, "admin.announcements.update", err, editURL)
	}
	if err := h.Announcements.Update(c.UserContext(), id, in); err != nil {
		return fail(c, h.Flash, "admin.announcements.update", err, editURL)
	}
	applog.Audit(c, "admin.announcements.update", map[string]any{"id": id})
	h.Flash.Success(c, "Announcement saved.")
	return c.Redirect("/admin/announcements")
}

// POST /admin/announcements/:id/delete
func (h *AnnouncementHandler) Delete(c *fiber.Ctx) error {
	id, ok := announcementParam(c)
	if !ok {
		return notFound(c, "Announcement not found.")
	}
	if err := h.Announcements.Delete(c.UserContext(), id); err != nil {
		return fail(c, h.Flash, "admin.announcements.delete", err, "/admin/announcements")
	}
	applog.Audit(c, "admin.announcements.delete", map[string]any{"id": id})
	h.Flash.Success(c, "Announcement deleted.")
	return c.Redirect("/admin/announcements")
}
