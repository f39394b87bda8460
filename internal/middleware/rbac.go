package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/httputil"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

// resourceForGroup maps the first path segment under the API prefix to the
// permission resource it is checked against.
var resourceForGroup = map[string]string{
	"users":         "users",
	"segments":      "users",
	"subscriptions": "subscriptions",
	"moderation":    "moderation",
	"entrepreneurs": "entrepreneurs",
	"messages":      "messages",
	"campaigns":     "campaigns",
	"analytics":     "analytics",
	"audit":         "audit",
	"settings":      "settings",
}

// RBACMiddleware loads the operator's profile, enforces the role permission
// table and confines unverified 2FA sessions to the auth routes. The loaded
// profile is stored on the context for handlers.
type RBACMiddleware struct {
	admins    storage.AdminStore
	apiPrefix string
	log       *logger.Logger
}

// NewRBACMiddleware creates the role check middleware for routes under the
// given API prefix.
func NewRBACMiddleware(admins storage.AdminStore, apiPrefix string, log *logger.Logger) *RBACMiddleware {
	if log == nil {
		log = logger.NewDefault("rbac")
	}
	return &RBACMiddleware{admins: admins, apiPrefix: strings.TrimRight(apiPrefix, "/"), log: log}
}

// Handler returns the middleware handler.
func (m *RBACMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		adminID := GetAdminID(r.Context())
		if adminID == "" {
			// Unauthenticated requests only reach here on public routes.
			next.ServeHTTP(w, r)
			return
		}

		profile, err := m.admins.GetAdminByUserID(r.Context(), adminID)
		if err != nil {
			m.respond(w, errors.Forbidden("no admin profile for this account"))
			return
		}
		if !profile.IsActive {
			m.respond(w, errors.Forbidden("admin account is deactivated"))
			return
		}

		group, rest := m.routeGroup(r.URL.Path)
		if profile.Requires2FA && !profile.MFAVerified && group != "auth" {
			m.respond(w, errors.MFARequired())
			return
		}

		if permission := m.requiredPermission(r.Method, group, rest); permission != "" {
			if !profile.HasPermission(permission) {
				m.log.WithContext(r.Context()).WithFields(map[string]interface{}{
					"permission": permission,
					"role":       profile.Role,
					"path":       r.URL.Path,
				}).Warn("permission denied")
				m.respond(w, errors.Forbidden("insufficient permissions"))
				return
			}
		}

		ctx := context.WithValue(r.Context(), profileKey, profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// routeGroup splits an API path into its first segment under the prefix and
// the remainder.
func (m *RBACMiddleware) routeGroup(path string) (string, string) {
	trimmed := strings.TrimPrefix(path, m.apiPrefix)
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return "", ""
	}
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i], trimmed[i+1:]
	}
	return trimmed, ""
}

// requiredPermission returns the "<resource>:<read|write>" permission for a
// route, or "" when the route needs authentication only.
func (m *RBACMiddleware) requiredPermission(method, group, rest string) string {
	switch group {
	case "", "auth", "notifications", "health":
		return ""
	case "moderation":
		// Macro management and assignment carry dedicated permissions.
		if strings.HasPrefix(rest, "macros") {
			if method == http.MethodGet || method == http.MethodHead {
				return "moderation:read"
			}
			return "moderation:macros"
		}
		if strings.HasSuffix(rest, "/assign") {
			return "moderation:assign"
		}
	}

	resource, ok := resourceForGroup[group]
	if !ok {
		resource = group
	}
	if method == http.MethodGet || method == http.MethodHead {
		return resource + ":read"
	}
	return resource + ":write"
}

func (m *RBACMiddleware) respond(w http.ResponseWriter, err *errors.ServiceError) {
	httputil.WriteErrorResponse(w, err.HTTPStatus, string(err.Code), err.Message, err.Details)
}

// GetAdminProfile extracts the operator profile loaded by the RBAC layer.
func GetAdminProfile(ctx context.Context) (admin.Profile, bool) {
	profile, ok := ctx.Value(profileKey).(admin.Profile)
	return profile, ok
}
