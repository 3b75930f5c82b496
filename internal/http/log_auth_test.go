package handlers_test

import (
	"net/url"
	"testing"

	"booknook/internal/http/handlers"
)

// Sign-in attempts are logged on success and failure.
func TestAuthLogging(t *testing.T) {
	e := newEnv(t, handlers.AppConfig{})
	run := func(pass string) []logEntry {
		return captureLogs(t, func() {
			e.post("/login", "", url.Values{"email": {"reader@booknook.test"}, "password": {pass}})
		})
	}

	entry, ok := findAction(run("badpass!"), "auth.login.fail")
	if !ok {
		t.Fatalf("auth.login.fail log not found")
	}
	if _, ok := entry.Fields["email"]; !ok {
		t.Fatalf("auth.login.fail missing email field")
	}
	if entry.Fields["reason"] != "bad_credentials" {
		t.Fatalf("unexpected reason %v", entry.Fields["reason"])
	}

	entry, ok = findAction(run("Passw0rd!"), "auth.login.success")
	if !ok {
		t.Fatalf("auth.login.success log not found")
	}
	if _, ok := entry.Fields["email"]; !ok {
		t.Fatalf("auth.login.success missing email field")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	e := newEnv(t, handlers.AppConfig{})
	e.post("/account/forgot", "", url.Values{"email": {"nobody@booknook.test"}})
	if n := len(e.mail.Messages()); n != 0 {
		t.Fatalf("unknown address should get no mail, got %d", n)
	}

	entries := captureLogs(t, func() {
		e.post("/account/reset", "", url.Values{"token": {"garbage"}, "password": {"N3w!passw"}, "confirm_password": {"N3w!passw"}})
	})
	if _, ok := findAction(entries, "auth.reset.fail"); !ok {
		t.Fatal("a bad reset token should be logged")
	}
}
