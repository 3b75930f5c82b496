package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"booknook/internal/http/handlers"
)

// /admin requires the admin role.
func TestAdminGuardRequiresAdmin(t *testing.T) {
	e := newEnv(t, handlers.AppConfig{})

	resp := e.get("/admin", "")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("anonymous expected redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "/login?next=") {
		t.Fatalf("anonymous should be sent to login, got %q", loc)
	}

	for _, email := range []string{"reader@booknook.test", "staff@booknook.test"} {
		if resp := e.get("/admin", e.session(email)); resp.StatusCode != http.StatusForbidden {
			t.Fatalf("%s expected 403, got %d", email, resp.StatusCode)
		}
	}

	if resp := e.get("/admin", e.session("admin@booknook.test")); resp.StatusCode != http.StatusOK {
		t.Fatalf("admin expected 200, got %d", resp.StatusCode)
	}
}

// The pickup counter is open to staff and admins only.
func TestStaffGuard(t *testing.T) {
	e := newEnv(t, handlers.AppConfig{})

	if resp := e.get("/staff/fulfillment", e.session("reader@booknook.test")); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("reader expected 403, got %d", resp.StatusCode)
	}
	for _, email := range []string{"staff@booknook.test", "admin@booknook.test"} {
		if resp := e.get("/staff/fulfillment", e.session(email)); resp.StatusCode != http.StatusOK {
			t.Fatalf("%s expected 200, got %d", email, resp.StatusCode)
		}
	}
}

func TestAccountPagesRequireSignIn(t *testing.T) {
	e := newEnv(t, handlers.AppConfig{})
	for _, path := range []string{"/cart", "/orders", "/wishlist", "/checkout", "/account/profile"} {
		if resp := e.get(path, ""); resp.StatusCode != http.StatusFound {
			t.Fatalf("%s expected redirect to login, got %d", path, resp.StatusCode)
		}
	}
}
