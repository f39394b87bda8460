// Package middleware provides the HTTP middleware chain for the admin API:
// CORS, trusted hosts, rate limiting, JWT authentication, role checks and
// request auditing.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/httputil"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

// Claims are the token claims issued by the auth provider. Impersonation
// tokens additionally carry the issuing operator.
type Claims struct {
	Email          string `json:"email,omitempty"`
	Role           string `json:"role,omitempty"`
	Impersonated   bool   `json:"impersonated,omitempty"`
	ImpersonatedBy string `json:"impersonated_by,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates bearer tokens signed with the shared HS256 secret.
type AuthMiddleware struct {
	secret    []byte
	log       *logger.Logger
	skipPaths map[string]bool
}

// NewAuthMiddleware creates the authentication middleware. Requests to any
// skip path pass through unauthenticated.
func NewAuthMiddleware(secret string, log *logger.Logger, skipPaths []string) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth-middleware")
	}
	skip := make(map[string]bool, len(skipPaths))
	for _, path := range skipPaths {
		skip[strings.TrimRight(path, "/")] = true
		skip[path] = true
	}
	return &AuthMiddleware{secret: []byte(secret), log: log, skipPaths: skip}
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] || m.skipPaths[strings.TrimRight(r.URL.Path, "/")] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondError(w, r, errors.Unauthorized("Missing Authorization header"))
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.respondError(w, r, errors.Unauthorized("Invalid Authorization header format"))
			return
		}

		claims, err := m.validateToken(parts[1])
		if err != nil {
			m.log.WithContext(r.Context()).WithError(err).Warn("token validation failed")
			m.respondError(w, r, err)
			return
		}
		if claims.Impersonated {
			// Impersonation tokens act on the platform, never on this API.
			m.respondError(w, r, errors.Forbidden("impersonation tokens cannot access the admin API"))
			return
		}

		ctx := logger.WithAdmin(r.Context(), claims.Subject, claims.Role)
		ctx = context.WithValue(ctx, tokenKey, parts[1])
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) validateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.InvalidToken(nil).WithDetails("method", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, errors.InvalidToken(err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.InvalidToken(nil)
	}
	return claims, nil
}

func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	se := errors.GetServiceError(err)
	if se == nil {
		se = errors.Internal("Authentication failed", err)
	}
	httputil.WriteErrorResponse(w, se.HTTPStatus, string(se.Code), se.Message, se.Details)
}

type contextKey string

const (
	tokenKey   contextKey = "access_token"
	profileKey contextKey = "admin_profile"
)

// GetAdminID extracts the authenticated admin's user id from the context.
func GetAdminID(ctx context.Context) string {
	return logger.GetAdminID(ctx)
}

// GetAccessToken extracts the raw bearer token from the context.
func GetAccessToken(ctx context.Context) string {
	if v, ok := ctx.Value(tokenKey).(string); ok {
		return v
	}
	return ""
}
