package log_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "booknook/internal/log"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := applog.L()
	applog.SetOutput(&buf)
	t.Cleanup(func() { applog.Set(old) })
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &m), l)
		out = append(out, m)
	}
	return out
}

func TestActionLinesCarryNoPrematureStatus(t *testing.T) {
	buf := capture(t)
	app := fiber.New()
	app.Get("/lookup", func(c *fiber.Ctx) error {
		c.Locals("user_id", "u-1")
		applog.Security(c, "validation.fail", map[string]any{"field": "claim_code"})
		applog.Error(c, "lookup.fail", errors.New("boom"), nil)
		return c.SendStatus(fiber.StatusBadRequest)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/lookup", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	got := lines(t, buf)
	require.Len(t, got, 2)
	for _, l := range got {
		assert.NotContains(t, l, "status")
		assert.Equal(t, "/lookup", l["path"])
		assert.Equal(t, "u-1", l["user_id"])
	}
	assert.Equal(t, "warn", got[0]["level"])
	assert.Equal(t, "validation.fail", got[0]["action"])
	assert.Equal(t, "error", got[1]["level"])
	assert.Equal(t, "boom", got[1]["err"])
}

func TestAuditLevelAndServiceComponent(t *testing.T) {
	buf := capture(t)
	app := fiber.New()
	app.Post("/x", func(c *fiber.Ctx) error {
		applog.Audit(c, "admin.books.update", map[string]any{"book_id": 7})
		return c.SendStatus(fiber.StatusNoContent)
	})
	_, err := app.Test(httptest.NewRequest("POST", "/x", nil))
	require.NoError(t, err)

	l := applog.Service("books")
	l.Warn().Msg("book.cover.delete_failed")

	got := lines(t, buf)
	require.Len(t, got, 2)
	assert.Equal(t, "audit", got[0]["level"])
	assert.Equal(t, map[string]any{"book_id": float64(7)}, got[0]["fields"])
	assert.Equal(t, "books", got[1]["component"])
	assert.Equal(t, "warn", got[1]["level"])
}
