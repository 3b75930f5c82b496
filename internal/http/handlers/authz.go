package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"booknook/internal/domain"
	applog "booknook/internal/log"
	"booknook/internal/services"
)

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

// LoadUser attaches the session's user, with fresh roles, to the request when signed in.
func LoadUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := auth.CurrentUser(c.UserContext(), sid); err == nil && u != nil {
				c.Locals("user", u)
				c.Locals("user_id", u.ID)
			}
		}
		return c.Next()
	}
}

func requireRole(action string, allowed func(*domain.User) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := currentUser(c)
		if u == nil {
			if isJSON(c) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Please sign in."})
			}
			return c.Redirect("/login?next=" + url.QueryEscape(c.OriginalURL()))
		}
		if !allowed(u) {
			applog.Security(c, action, map[string]any{"roles": u.Roles})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Access denied"})
		}
		return c.Next()
	}
}

// RequireUser enforces that a user is signed in; otherwise redirect to login.
func RequireUser() fiber.Handler {
	return requireRole("access.denied.user", func(*domain.User) bool { return true })
}

func RequireAdmin() fiber.Handler {
	return requireRole("access.denied.admin", (*domain.User).IsAdmin)
}

// RequireStaff admits staff and admins.
func RequireStaff() fiber.Handler {
	return requireRole("access.denied.staff", (*domain.User).CanFulfill)
}

func isJSON(c *fiber.Ctx) bool {
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON ||
		c.Is("json")
}
