// Package user holds the platform end-user model as seen from the back
// office: profiles, tags, segments, custom fields and impersonation sessions.
package user

import "time"

// Profile is a user_profiles row joined with back-office metadata.
type Profile struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	FirstName        string     `json:"first_name,omitempty"`
	LastName         string     `json:"last_name,omitempty"`
	Email            string     `json:"email,omitempty"`
	Role             string     `json:"role,omitempty"`
	CountryCode      string     `json:"country_code,omitempty"`
	City             string     `json:"city,omitempty"`
	HasProfile       bool       `json:"has_profile"`
	IsPremium        bool       `json:"is_premium"`
	PremiumUntil     *time.Time `json:"premium_until,omitempty"`
	SubscriptionTier string     `json:"subscription_tier,omitempty"`
	IsBlocked        bool       `json:"is_blocked"`
	BlockedAt        *time.Time `json:"blocked_at,omitempty"`
	BlockedBy        string     `json:"blocked_by,omitempty"`
	BlockReason      string     `json:"block_reason,omitempty"`
	LastLogin        *time.Time `json:"last_login,omitempty"`
	LoginCount       int        `json:"login_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Metadata attached on list and detail reads.
	Tags     []Tag        `json:"tags,omitempty"`
	Segments []SegmentRef `json:"segments,omitempty"`
}

// Tag is a colored label attached to a user by an operator.
type Tag struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Tag       string    `json:"tag"`
	Color     string    `json:"color,omitempty"`
	AddedBy   string    `json:"added_by,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Segment is a saved user filter owned by an operator, optionally shared.
type Segment struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Filters     map[string]interface{} `json:"filters"`
	IsShared    bool                   `json:"is_shared"`
	CreatedBy   string                 `json:"created_by"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// SegmentRef is the compact segment shape attached to user rows.
type SegmentRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// SegmentMember links a user into a segment.
type SegmentMember struct {
	ID        string    `json:"id,omitempty"`
	SegmentID string    `json:"segment_id"`
	UserID    string    `json:"user_id"`
	AddedBy   string    `json:"added_by,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// CustomField is an operator-defined key/value attached to a user.
type CustomField struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ImpersonationSession records an operator acting as a user. Revoked sessions
// keep their row for the audit trail.
type ImpersonationSession struct {
	ID           string     `json:"id"`
	AdminID      string     `json:"admin_id"`
	TargetUserID string     `json:"target_user_id"`
	Reason       string     `json:"reason,omitempty"`
	ExpiresAt    time.Time  `json:"expires_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	RevokedBy    string     `json:"revoked_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Active reports whether the session is usable at the given instant.
func (s *ImpersonationSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
