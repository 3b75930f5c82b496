package handlers

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	applog "booknook/internal/log"
	"booknook/internal/services"
	"booknook/internal/validate"
)

type ProfileHandler struct {
	Profiles *services.ProfileService
	Auth     *services.AuthService
	Flash    *Flash
}

func (h *ProfileHandler) View(c *fiber.Ctx) error {
	u, err := h.Profiles.Get(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return fail(c, h.Flash, "profile.view", err, "/")
	}
	return render(c, "profile", fiber.Map{"Profile": u})
}

// upload returns the named file, or nil when the field was left empty.
func upload(c *fiber.Ctx, field string) *multipart.FileHeader {
	fh, err := c.FormFile(field)
	if err != nil || fh == nil || fh.Size == 0 {
		return nil
	}
	return fh
}

func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	u := currentUser(c)
	var form validate.ProfileForm
	if err := c.BodyParser(&form); err != nil {
		h.Flash.Error(c, "Invalid form submission.")
		return c.Redirect("/account/profile")
	}
	if err := validate.Struct(form); err != nil {
		h.Flash.Error(c, err.Error())
		return c.Redirect("/account/profile")
	}
	if err := h.Profiles.Update(c.UserContext(), u.ID, form.FirstName, form.LastName, upload(c, "profile_image")); err != nil {
		return fail(c, h.Flash, "profile.update", err, "/account/profile")
	}
	applog.Audit(c, "profile.update", nil)
	h.Flash.Success(c, "Profile updated.")
	return c.Redirect("/account/profile")
}

func (h *ProfileHandler) RemoveImage(c *fiber.Ctx) error {
	if err := h.Profiles.RemoveImage(c.UserContext(), currentUser(c).ID); err != nil {
		return fail(c, h.Flash, "profile.image.remove", err, "/account/profile")
	}
	applog.Audit(c, "profile.image.remove", nil)
	return c.Redirect("/account/profile")
}

func (h *ProfileHandler) ChangePassword(c *fiber.Ctx) error {
	u := currentUser(c)
	var form validate.ChangePasswordForm
	if err := c.BodyParser(&form); err != nil {
		h.Flash.Error(c, "Invalid form submission.")
		return c.Redirect("/account/profile")
	}
	if err := validate.Struct(form); err != nil {
		h.Flash.Error(c, err.Error())
		return c.Redirect("/account/profile")
	}
	if err := h.Auth.ChangePassword(c.UserContext(), u.ID, form.Current, form.Password); err != nil {
		applog.Security(c, "auth.password.change.fail", nil)
		return fail(c, h.Flash, "auth.password.change", err, "/account/profile")
	}
	applog.Audit(c, "auth.password.change", nil)
	h.Flash.Success(c, "Password changed.")
	return c.Redirect("/account/profile")
}
