package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSOriginMatching(t *testing.T) {
	m := NewCORSMiddleware([]string{"https://admin.example.com", "admin.example.org"})
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send("https://admin.example.com"); rec.Header().Get("Access-Control-Allow-Origin") != "https://admin.example.com" {
		t.Fatalf("exact origin not allowed")
	}
	// Scheme-less allowlist entries compare by host.
	if rec := send("https://admin.example.org"); rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("host entry not allowed")
	}
	if rec := send("https://evil-admin.example.com"); rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("lookalike host allowed")
	}
	if rec := send("https://evil.com/?https://admin.example.com"); rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("crafted origin allowed")
	}
	if rec := send(""); rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("headers set without an Origin")
	}
}

func TestCORSPreflight(t *testing.T) {
	m := NewCORSMiddleware([]string{"https://admin.example.com"})
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("preflight reached the next handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/admin/v1/users", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatalf("missing preflight headers")
	}
}

func TestCORSAllowAll(t *testing.T) {
	m := NewCORSMiddleware([]string{"*"})
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://anything.example.net")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://anything.example.net" {
		t.Fatalf("wildcard allowlist rejected origin")
	}
}
