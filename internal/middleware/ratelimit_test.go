package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiterFallsBackWithoutRedis(t *testing.T) {
	rl := NewRateLimiter(nil, 60, 3, nil)
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
		req.RemoteAddr = "203.0.113.9:4242"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	// The local bucket allows the burst, then rejects.
	for i := 0; i < 3; i++ {
		if rec := send(); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
	if rec.Header().Get("X-RateLimit-Limit") != "60" {
		t.Fatalf("unexpected limit header %q", rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimiterKeysPerCaller(t *testing.T) {
	rl := NewRateLimiter(nil, 60, 1, nil)
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("198.51.100.1"); code != http.StatusOK {
		t.Fatalf("first caller: expected 200, got %d", code)
	}
	if code := send("198.51.100.1"); code != http.StatusTooManyRequests {
		t.Fatalf("first caller again: expected 429, got %d", code)
	}
	// A different caller has its own budget.
	if code := send("198.51.100.2"); code != http.StatusOK {
		t.Fatalf("second caller: expected 200, got %d", code)
	}
}

func TestRateLimiterKeysByBearerToken(t *testing.T) {
	rl := NewRateLimiter(nil, 60, 1, nil)
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
		req.RemoteAddr = "203.0.113.9:4242"
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// Two admins behind one IP spend separate budgets.
	if code := send("token-one"); code != http.StatusOK {
		t.Fatalf("first admin: expected 200, got %d", code)
	}
	if code := send("token-one"); code != http.StatusTooManyRequests {
		t.Fatalf("first admin again: expected 429, got %d", code)
	}
	if code := send("token-two"); code != http.StatusOK {
		t.Fatalf("second admin: expected 200, got %d", code)
	}
	// Anonymous traffic from the same IP is counted by address.
	if code := send(""); code != http.StatusOK {
		t.Fatalf("anonymous: expected 200, got %d", code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4242"
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("remote addr: got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	if got := clientIP(req); got != "198.51.100.7" {
		t.Fatalf("forwarded: got %q", got)
	}
}
