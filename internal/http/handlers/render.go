package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"booknook/internal/domain"
	applog "booknook/internal/log"
)

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := currentUser(c); u != nil {
		data["User"] = u
	}
	if tok, _ := c.Locals("CSRFToken").(string); tok != "" {
		data["CSRFToken"] = tok
	} else if tok := c.Cookies("csrf_"); tok != "" {
		data["CSRFToken"] = tok
	}
	if msg, ok := c.Locals("flash").(FlashMessage); ok {
		data["Flash"] = msg
	}
	if push, _ := c.Locals("push_url").(string); push != "" {
		data["PushURL"] = push
	}
	return c.Render(tmpl, data)
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": msg})
}

// statusFor maps a domain error code to an HTTP status.
func statusFor(code domain.ErrCode) int {
	switch code {
	case domain.ErrNotFound, domain.ErrInvalidClaimCode:
		return fiber.StatusNotFound
	case domain.ErrForbidden, domain.ErrUserMismatch, domain.ErrNotPurchased:
		return fiber.StatusForbidden
	case domain.ErrValidationFailed, domain.ErrInvalidQuantity, domain.ErrEmptyCart:
		return fiber.StatusBadRequest
	case domain.ErrInsufficientStock, domain.ErrOutOfStock, domain.ErrDuplicateReview, domain.ErrNotCancellable,
		domain.ErrNotDeletable, domain.ErrAlreadyFulfilled, domain.ErrAlreadyCancelled, domain.ErrConflict:
		return fiber.StatusConflict
	case domain.ErrUnauthorized:
		return fiber.StatusUnauthorized
	case domain.ErrConfigurationMissing:
		return fiber.StatusServiceUnavailable
	case domain.ErrDependencyFailure:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// userMessage is the text shown for err; uncoded errors never leak their details.
func userMessage(err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return "Something went wrong. Please try again."
}

// fail handles an error from a form post: business failures become a flash and a redirect,
// anything else is logged and shown as a generic error page.
func fail(c *fiber.Ctx, flash *Flash, action string, err error, back string) error {
	if domain.CodeOf(err) == "" {
		applog.Error(c, action+".fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
			"Message": "Something went wrong. Please try again.",
		})
	}
	applog.Info(c, action+".rejected", map[string]any{"code": string(domain.CodeOf(err))})
	flash.Error(c, userMessage(err))
	return c.Redirect(back)
}

// jsonFail is fail for script endpoints.
func jsonFail(c *fiber.Ctx, action string, err error) error {
	code := domain.CodeOf(err)
	if code == "" {
		applog.Error(c, action+".fail", err, nil)
	}
	return c.Status(statusFor(code)).JSON(fiber.Map{"success": false, "message": userMessage(err)})
}

// back is the Referer when it points into this site, else fallback.
func back(c *fiber.Ctx, fallback string) string {
	ref := c.Get(fiber.HeaderReferer)
	for _, scheme := range []string{"http://", "https://"} {
		if prefix := scheme + c.Hostname(); strings.HasPrefix(ref, prefix+"/") {
			return strings.TrimPrefix(ref, prefix)
		}
	}
	if strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//") {
		return ref
	}
	return fallback
}
