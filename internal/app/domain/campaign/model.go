// Package campaign holds email campaigns, their templates and send
// statistics.
package campaign

import "time"

// Campaign statuses.
const (
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusSending   = "sending"
	StatusSent      = "sent"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Targeting types.
const (
	TargetAll     = "all"
	TargetSegment = "segment"
	TargetPremium = "premium"
	TargetCountry = "country"
)

// Campaign is a bulk email send with targeting and lifecycle state.
type Campaign struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	Subject          string                 `json:"subject"`
	Content          string                 `json:"content"`
	TemplateID       string                 `json:"template_id,omitempty"`
	TargetingType    string                 `json:"targeting_type"`
	TargetingFilters map[string]interface{} `json:"targeting_filters,omitempty"`
	Status           string                 `json:"status"`
	ScheduledFor     *time.Time             `json:"scheduled_for,omitempty"`
	SentAt           *time.Time             `json:"sent_at,omitempty"`
	RecipientCount   int                    `json:"recipient_count"`
	SentCount        int                    `json:"sent_count"`
	FailedCount      int                    `json:"failed_count"`
	CreatedBy        string                 `json:"created_by,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// EmailTemplate is a reusable campaign body with {{var}} placeholders.
type EmailTemplate struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Subject     string    `json:"subject"`
	Content     string    `json:"content"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Stats aggregates delivery outcomes for one campaign.
type Stats struct {
	CampaignID     string     `json:"campaign_id"`
	RecipientCount int        `json:"recipient_count"`
	SentCount      int        `json:"sent_count"`
	FailedCount    int        `json:"failed_count"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
}

// ValidTargeting reports whether t is a recognised targeting type.
func ValidTargeting(t string) bool {
	switch t {
	case TargetAll, TargetSegment, TargetPremium, TargetCountry:
		return true
	}
	return false
}

// ValidStatus reports whether s is a recognised campaign status.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusSending, StatusSent, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
