package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/securecookie"
)

const flashCookie = "flash"

// FlashMessage survives exactly one redirect.
type FlashMessage struct {
	Kind string // "success" or "error"
	Text string
}

// Flash signs one-shot messages into a cookie so a redirect target can show them.
type Flash struct {
	codec  *securecookie.SecureCookie
	secure bool
}

func NewFlash(key string, secure bool) (*Flash, error) {
	if len(key) < 32 {
		return nil, errors.New("flash key must be at least 32 bytes")
	}
	codec := securecookie.New([]byte(key), nil)
	codec.MaxAge(300)
	return &Flash{codec: codec, secure: secure}, nil
}

func (f *Flash) set(c *fiber.Ctx, kind, text string) {
	v, err := f.codec.Encode(flashCookie, FlashMessage{Kind: kind, Text: text})
	if err != nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    v,
		Path:     "/",
		HTTPOnly: true,
		Secure:   f.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (f *Flash) Success(c *fiber.Ctx, text string) { f.set(c, "success", text) }

func (f *Flash) Error(c *fiber.Ctx, text string) { f.set(c, "error", text) }

// Middleware moves a pending flash into Locals and expires the cookie.
func (f *Flash) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(flashCookie)
		if raw == "" {
			return c.Next()
		}
		var msg FlashMessage
		if err := f.codec.Decode(flashCookie, raw, &msg); err == nil {
			c.Locals("flash", msg)
		}
		c.Cookie(&fiber.Cookie{
			Name:     flashCookie,
			Value:    "",
			Path:     "/",
			HTTPOnly: true,
			Secure:   f.secure,
			Expires:  time.Now().Add(-time.Hour),
		})
		return c.Next()
	}
}
