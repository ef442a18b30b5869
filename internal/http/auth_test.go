package handlers_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"shopfront/internal/repos"
)

// Login success/fail paths and the per-route throttle.
func TestLoginSuccessFailAndThrottle(t *testing.T) {
	env := newEnv(t, envOpts{loginMax: 3})

	resp, body := env.post("/login", url.Values{"email": {"ada@example.com"}, "password": {""}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Please enter both email and password") {
		t.Fatalf("missing inline alert; body=%s", body)
	}
	if n := env.api.count("/auth/login"); n != 0 {
		t.Fatalf("empty password reached the server %d times", n)
	}

	resp, body = env.post("/login", url.Values{"email": {"ada@example.com"}, "password": {"wrong"}})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad creds, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Invalid email or password") {
		t.Fatalf("bad creds message missing; body=%s", body)
	}

	resp, _ = env.post("/login", url.Values{"email": {"ada@example.com"}, "password": {"Passw0rd!"}})
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/page/dashboard" {
		t.Fatalf("expected redirect to dashboard, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, _ = env.post("/login", url.Values{"email": {"ada@example.com"}, "password": {"wrong"}})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after throttle, got %d", resp.StatusCode)
	}
}

func TestLoggedInHeaderAndLogout(t *testing.T) {
	env := newEnv(t)
	env.post("/cart", url.Values{"productId": {"1"}, "qty": {"2"}})
	env.login()

	_, body := env.get("/")
	if !strings.Contains(body, "Ada") || !strings.Contains(body, "Logout") {
		t.Fatalf("header should greet the user; body=%s", body)
	}

	resp, _ := env.post("/logout", nil)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Fatalf("expected redirect home, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	_, body = env.get("/")
	if strings.Contains(body, "Logout") {
		t.Fatalf("still logged in after logout")
	}

	// the cart belongs to the browser, not the account
	_, body = env.get("/cart")
	if !strings.Contains(body, "Wireless Headphones") {
		t.Fatalf("cart lost on logout; body=%s", body)
	}
}

// A token the server no longer accepts is dropped on the next page load.
func TestStaleTokenIsDropped(t *testing.T) {
	env := newEnv(t)
	env.login()
	env.api.set(http.StatusUnauthorized, 0)

	entries := captureLogs(t, func() {
		_, body := env.get("/")
		if strings.Contains(body, "Logout") {
			t.Errorf("rejected token still treated as logged in")
		}
	})
	if _, ok := findLog(entries, "auth.session.expired"); !ok {
		t.Fatalf("expected auth.session.expired log")
	}
	if _, err := env.slots.Get(context.Background(), env.jar["sid"], repos.SlotToken); err == nil {
		t.Fatalf("token slot should be cleared")
	}
}
