package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"booknook/internal/http/handlers"
)

// Internal failures show a friendly page and never leak details.
func TestErrorHandlerFriendlyMessage(t *testing.T) {
	app := fiber.New(fiber.Config{
		Views:        handlers.NewViews(templatesDir, false),
		ErrorHandler: handlers.ErrorHandler,
	})
	app.Use(requestid.New())
	app.Get("/err", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusInternalServerError, "db timeout: secret trace")
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return errFake("sql: connection refused")
	})

	for _, path := range []string{"/err", "/plain"} {
		var body string
		entries := captureLogs(t, func() {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
			if err != nil {
				t.Fatalf("test request failed: %v", err)
			}
			if resp.StatusCode != fiber.StatusInternalServerError {
				t.Fatalf("%s expected 500, got %d", path, resp.StatusCode)
			}
			body = readBody(t, resp)
		})
		if !strings.Contains(body, "Something went wrong") {
			t.Fatalf("friendly message missing; body=%s", body)
		}
		if strings.Contains(body, "secret") || strings.Contains(body, "connection refused") {
			t.Fatalf("internal details leaked to user; body=%s", body)
		}
		if _, ok := findAction(entries, "server.error"); !ok {
			t.Fatalf("%s: server.error not logged", path)
		}
	}
}

type errFake string

func (e errFake) Error() string { return string(e) }

func TestUnknownRouteRendersNotFound(t *testing.T) {
	e := newEnv(t, handlers.AppConfig{})
	resp := e.get("/no/such/page", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp); !strings.Contains(body, "Page not found") {
		t.Fatalf("not found page missing message; body=%s", body)
	}
}
