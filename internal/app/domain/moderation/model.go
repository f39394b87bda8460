// Package moderation holds the entrepreneur review pipeline: submitted
// profiles, the review queue and canned decision macros.
package moderation

import "time"

// Queue item statuses.
const (
	StatusPending   = "pending"
	StatusInReview  = "in_review"
	StatusPaused    = "paused"
	StatusEscalated = "escalated"
	StatusDone      = "done"
)

// Moderation decisions.
const (
	DecisionApproved         = "approved"
	DecisionRejected         = "rejected"
	DecisionChangesRequested = "changes_requested"
)

// Entrepreneur is a submitted business profile awaiting or past review.
type Entrepreneur struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	BusinessName string     `json:"business_name"`
	Description  string     `json:"description,omitempty"`
	Category     string     `json:"category,omitempty"`
	CountryCode  string     `json:"country_code,omitempty"`
	City         string     `json:"city,omitempty"`
	Website      string     `json:"website,omitempty"`
	Status       string     `json:"status"` // pending, approved, rejected
	ReviewedBy   string     `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	ReviewReason string     `json:"review_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// QueueItem is one pending review in the moderation queue.
type QueueItem struct {
	ID             string     `json:"id"`
	EntrepreneurID string     `json:"entrepreneur_id"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority,omitempty"`
	AssignedTo     string     `json:"assigned_to,omitempty"`
	AssignedAt     *time.Time `json:"assigned_at,omitempty"`
	Decision       string     `json:"decision,omitempty"`
	DecisionReason string     `json:"decision_reason,omitempty"`
	MacroUsed      string     `json:"macro_used,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Hydrated on reads.
	Entrepreneur *Entrepreneur `json:"entrepreneur,omitempty"`
	AssigneeName string        `json:"assignee_name,omitempty"`
}

// Macro is a canned moderation decision with a response template.
type Macro struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Decision    string    `json:"decision"`
	Template    string    `json:"template"`
	Tags        []string  `json:"tags,omitempty"`
	SLAMinutes  int       `json:"sla_minutes,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidQueueStatus reports whether s is a recognised queue status.
func ValidQueueStatus(s string) bool {
	switch s {
	case StatusPending, StatusInReview, StatusPaused, StatusEscalated, StatusDone:
		return true
	}
	return false
}

// ValidDecision reports whether d is a recognised moderation decision.
func ValidDecision(d string) bool {
	switch d {
	case DecisionApproved, DecisionRejected, DecisionChangesRequested:
		return true
	}
	return false
}
