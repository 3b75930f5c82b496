package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"booknook/internal/domain"
	applog "booknook/internal/log"
	"booknook/internal/services"
	"booknook/internal/validate"
)

type AuthHandler struct {
	Auth         *services.AuthService
	Flash        *Flash
	CookieSecure bool
}

func (h *AuthHandler) ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   h.CookieSecure,
		})
	}
	return sid
}

// safeNext only follows local paths after login.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, "/\\") {
		return next
	}
	return "/"
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": "", "Next": c.Query("next")})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	email := c.FormValue("email")
	pass := c.FormValue("password")
	next := c.FormValue("next")
	loginFailed := func(status int, msg, reason string) error {
		applog.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": reason})
		return c.Status(status).Render("login", fiber.Map{"Err": msg, "Next": next, "CSRFToken": c.Cookies("csrf_")})
	}

	if _, ok := validate.Email(email); !ok {
		return loginFailed(fiber.StatusUnauthorized, "Invalid email or password", "bad_format")
	}
	if pass == "" || len(pass) > 64 {
		return loginFailed(fiber.StatusUnauthorized, "Invalid email or password", "bad_password_format")
	}

	// A fresh session id on every sign-in.
	sid := uuid.NewString()
	u, err := h.Auth.Login(c.UserContext(), sid, email, pass)
	switch {
	case errors.Is(err, services.ErrBadCreds):
		return loginFailed(fiber.StatusUnauthorized, "Invalid email or password", "bad_credentials")
	case domain.Is(err, domain.ErrUnauthorized):
		return loginFailed(fiber.StatusForbidden, userMessage(err), "unconfirmed")
	case err != nil:
		applog.Error(c, "auth.login.error", err, nil)
		return loginFailed(fiber.StatusInternalServerError, "Something went wrong. Please try again.", "error")
	}
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.CookieSecure,
	})

	c.Locals("user_id", u.ID)
	applog.Audit(c, "auth.login.success", map[string]any{"email": u.Email})
	return c.Redirect(safeNext(next))
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := h.ensureSID(c)
	_ = h.Auth.Logout(c.UserContext(), sid)
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.CookieSecure,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	applog.Audit(c, "auth.logout", map[string]any{"sid": sid})
	return c.Redirect("/")
}

func (h *AuthHandler) RegisterForm(c *fiber.Ctx) error {
	return render(c, "register", fiber.Map{})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var form validate.RegisterForm
	if err := c.BodyParser(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render("register", fiber.Map{"Err": "Invalid form submission."})
	}
	form.Email = strings.TrimSpace(form.Email)
	if err := validate.Struct(form); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"form": "register"})
		return c.Status(fiber.StatusBadRequest).Render("register", fiber.Map{
			"Err": err.Error(), "Form": form, "CSRFToken": c.Cookies("csrf_"),
		})
	}

	res, err := h.Auth.Register(c.UserContext(), services.RegisterInput{
		Email: form.Email, FirstName: form.FirstName, LastName: form.LastName, Password: form.Password,
	})
	if err != nil {
		if domain.CodeOf(err) == "" {
			return fail(c, h.Flash, "auth.register", err, "/register")
		}
		return c.Status(statusFor(domain.CodeOf(err))).Render("register", fiber.Map{
			"Err": userMessage(err), "Form": form, "CSRFToken": c.Cookies("csrf_"),
		})
	}
	applog.Audit(c, "auth.register", map[string]any{"user_id": res.User.ID})
	if res.MailErr != nil {
		applog.Error(c, "auth.register.email.fail", res.MailErr, map[string]any{"user_id": res.User.ID})
		h.Flash.Error(c, "Your account was created but we could not send the confirmation email. Use \"Resend confirmation\" to try again.")
		return c.Redirect("/login")
	}
	h.Flash.Success(c, "Account created. Check your email to confirm your address before signing in.")
	return c.Redirect("/login")
}

// ResendConfirmation mails a fresh confirmation link. Unknown or already confirmed addresses get the same answer.
func (h *AuthHandler) ResendConfirmation(c *fiber.Ctx) error {
	email, ok := validate.Email(c.FormValue("email"))
	if ok {
		if err := h.Auth.ResendConfirmation(c.UserContext(), email); err != nil {
			applog.Error(c, "auth.confirm.resend.fail", err, nil)
		}
	}
	h.Flash.Success(c, "If that account is waiting for confirmation, a new link is on its way.")
	return c.Redirect("/login")
}

func (h *AuthHandler) ConfirmEmail(c *fiber.Ctx) error {
	if err := h.Auth.ConfirmEmail(c.UserContext(), c.Query("token")); err != nil {
		applog.Security(c, "auth.confirm.fail", nil)
		return fail(c, h.Flash, "auth.confirm", err, "/login")
	}
	applog.Audit(c, "auth.confirm", nil)
	h.Flash.Success(c, "Thanks, your email is confirmed. You can sign in now.")
	return c.Redirect("/login")
}

func (h *AuthHandler) ForgotForm(c *fiber.Ctx) error {
	return render(c, "forgot_password", fiber.Map{})
}

func (h *AuthHandler) Forgot(c *fiber.Ctx) error {
	email, ok := validate.Email(c.FormValue("email"))
	if ok {
		if err := h.Auth.ForgotPassword(c.UserContext(), email); err != nil {
			applog.Error(c, "auth.forgot.fail", err, nil)
		}
	}
	applog.Audit(c, "auth.forgot", nil)
	h.Flash.Success(c, "If an account exists for that address, a reset link has been sent.")
	return c.Redirect("/login")
}

func (h *AuthHandler) ResetForm(c *fiber.Ctx) error {
	return render(c, "reset_password", fiber.Map{"Token": c.Query("token")})
}

func (h *AuthHandler) Reset(c *fiber.Ctx) error {
	var form validate.ResetPasswordForm
	if err := c.BodyParser(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render("reset_password", fiber.Map{"Err": "Invalid form submission."})
	}
	if err := validate.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render("reset_password", fiber.Map{
			"Err": err.Error(), "Token": form.Token, "CSRFToken": c.Cookies("csrf_"),
		})
	}
	if err := h.Auth.ResetPassword(c.UserContext(), form.Token, form.Password); err != nil {
		applog.Security(c, "auth.reset.fail", nil)
		return fail(c, h.Flash, "auth.reset", err, "/account/forgot")
	}
	applog.Audit(c, "auth.reset", nil)
	h.Flash.Success(c, "Your password has been reset. Please sign in.")
	return c.Redirect("/login")
}
