// Package admin holds the back-office operator model: profiles, roles and
// their permission grants, and in-app notifications.
package admin

import "time"

// Roles assignable to back-office operators.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleSupport   = "support"
	RoleViewer    = "viewer"
)

// RolePermissions maps each role to the permissions it grants. The admin
// wildcard matches every permission.
var RolePermissions = map[string][]string{
	RoleAdmin: {"*"},
	RoleModerator: {
		"users:read",
		"entrepreneurs:read", "entrepreneurs:write",
		"moderation:read", "moderation:write", "moderation:macros", "moderation:assign",
	},
	RoleSupport: {
		"users:read",
		"messages:read", "messages:write",
		"settings:read",
	},
	RoleViewer: {
		"analytics:read",
		"audit:read",
		"settings:read",
	},
}

// Profile is an operator's admin_profiles row. Scopes extend the role's
// permission set per profile.
type Profile struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name"`
	Role            string     `json:"role"`
	Scopes          []string   `json:"scopes,omitempty"`
	IsActive        bool       `json:"is_active"`
	Requires2FA     bool       `json:"requires_2fa"`
	MFASecret       string     `json:"mfa_secret,omitempty"`
	MFAVerified     bool       `json:"mfa_verified"`
	MFAVerifiedAt   *time.Time `json:"mfa_verified_at,omitempty"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	LoginCount      int        `json:"login_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HasPermission reports whether the profile's role or extra scopes grant the
// permission.
func (p *Profile) HasPermission(permission string) bool {
	for _, granted := range RolePermissions[p.Role] {
		if granted == "*" || granted == permission {
			return true
		}
	}
	for _, granted := range p.Scopes {
		if granted == "*" || granted == permission {
			return true
		}
	}
	return false
}

// Notification is an in-app notice for an operator, fanned out on critical
// audit events among other sources.
type Notification struct {
	ID        string     `json:"id"`
	AdminID   string     `json:"admin_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
