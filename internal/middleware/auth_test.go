package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func validClaims(sub string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"sub":  sub,
		"role": "authenticated",
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	}
}

func TestAuthMiddleware(t *testing.T) {
	mw := NewAuthMiddleware(testSecret, nil, []string{"/health", "/api/admin/v1/auth/login"})
	var gotAdminID string
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAdminID = GetAdminID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// Skip paths pass through without a token, trailing slash included.
	for _, path := range []string{"/health", "/health/", "/api/admin/v1/auth/login"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	// Everything else needs a bearer token.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
	req.Header.Set("Authorization", "Token abc")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a non-bearer header, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims("admin-1")))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotAdminID != "admin-1" {
		t.Fatalf("admin id not propagated, got %q", gotAdminID)
	}
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	mw := NewAuthMiddleware(testSecret, nil, nil)
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(token string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// Wrong secret.
	wrong, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("admin-1")).SignedString([]byte("another-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if code := send(wrong); code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: expected 401, got %d", code)
	}

	// Expired.
	claims := validClaims("admin-1")
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	if code := send(signToken(t, claims)); code != http.StatusUnauthorized {
		t.Fatalf("expired: expected 401, got %d", code)
	}

	// Missing subject.
	claims = validClaims("")
	delete(claims, "sub")
	if code := send(signToken(t, claims)); code != http.StatusUnauthorized {
		t.Fatalf("no subject: expected 401, got %d", code)
	}
}

func TestAuthMiddlewareRejectsImpersonationTokens(t *testing.T) {
	mw := NewAuthMiddleware(testSecret, nil, nil)
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	claims := validClaims("user-1")
	claims["impersonated"] = true
	claims["impersonated_by"] = "admin-1"

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
