// Package audit holds the append-only, hash-stamped audit log model.
//
// Each entry is stamped at write time with a SHA-256 over its canonical JSON
// form, excluding the fields the store assigns (id, created_at) and the stamp
// itself. Read paths recompute the hash to surface tampering; entries are
// never chained.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Severities, ordered by weight.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MED"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRIT"
)

// Event types written by services and the request audit middleware.
const (
	EventAdminLogin           = "admin.login"
	EventAdminLogout          = "admin.logout"
	EventAuthFailed           = "auth.failed"
	EventAccessDenied         = "access.denied"
	EventRequestError         = "request.error"
	EventRequestSuccess       = "request.success"
	EventUserCreated          = "user.created"
	EventUserUpdated          = "user.updated"
	EventUserViewed           = "user.viewed"
	EventUserBlocked          = "user.blocked"
	EventUserUnblocked        = "user.unblocked"
	EventUserDeleted          = "user.deleted"
	EventUserImpersonated     = "user.impersonated"
	EventBulkAction           = "user.bulk_action"
	EventEntrepreneurModerate = "entrepreneur.moderated"
	EventEntrepreneurApproved = "entrepreneur.approved"
	EventEntrepreneurRejected = "entrepreneur.rejected"
	EventSubscriptionGranted  = "subscription.granted"
	EventSubscriptionRevoked  = "subscription.revoked"
	EventMessageReplied       = "message.replied"
	EventCampaignCreated      = "campaign.created"
	EventCampaignSent         = "campaign.sent"
	EventSettingsUpdated      = "settings.updated"
	EventMaintenanceToggled   = "maintenance.toggled"
	EventBackupTriggered      = "backup.triggered"
	EventDataExported         = "data.exported"
	EventAuditExported        = "audit.exported"
)

// CriticalEvents always log at CRIT and fan out notifications to active
// administrators.
var CriticalEvents = map[string]bool{
	"user.blocked":     true,
	"user.deleted":     true,
	"admin.created":    true,
	"admin.deleted":    true,
	"settings.updated": true,
	"data.exported":    true,
	"audit.exported":   true,
}

// Entry is one audit log record.
type Entry struct {
	ID         string                 `json:"id,omitempty"`
	EventType  string                 `json:"event_type"`
	Severity   string                 `json:"severity"`
	UserID     string                 `json:"user_id,omitempty"`
	AdminID    string                 `json:"admin_id,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
	UserAgent  string                 `json:"user_agent,omitempty"`
	Endpoint   string                 `json:"endpoint,omitempty"`
	HTTPMethod string                 `json:"http_method,omitempty"`
	StatusCode int                    `json:"status_code,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Changes    map[string]interface{} `json:"changes,omitempty"`
	LogHash    string                 `json:"log_hash,omitempty"`
	CreatedAt  time.Time              `json:"created_at,omitempty"`
}

// hashExcluded are the fields outside the integrity envelope: assigned by the
// store after stamping, or the stamp itself.
var hashExcluded = map[string]bool{
	"id":              true,
	"created_at":      true,
	"log_hash":        true,
	"integrity_chain": true,
	"hash_valid":      true,
	"computed_hash":   true,
}

// ComputeHash returns the hex SHA-256 of the entry's canonical JSON form with
// the excluded fields removed. json.Marshal emits map keys sorted, which
// makes the serialization canonical.
func ComputeHash(e *Entry) (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", err
	}
	for key := range hashExcluded {
		delete(fields, key)
	}
	canonical, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Stamp computes and sets the entry's LogHash. It must be called before the
// store assigns id and created_at.
func (e *Entry) Stamp() error {
	e.LogHash = ""
	hash, err := ComputeHash(e)
	if err != nil {
		return err
	}
	e.LogHash = hash
	return nil
}

// Verify recomputes the hash and reports whether it matches the stored stamp.
// The computed hash is returned so read paths can expose it.
func (e *Entry) Verify() (bool, string) {
	stored := e.LogHash
	if stored == "" {
		return false, ""
	}
	copied := *e
	copied.LogHash = ""
	copied.ID = ""
	copied.CreatedAt = time.Time{}
	computed, err := ComputeHash(&copied)
	if err != nil {
		return false, ""
	}
	return computed == stored, computed
}

// SeverityFor maps an HTTP outcome to a severity, with critical events always
// CRIT.
func SeverityFor(statusCode int, eventType string) string {
	if CriticalEvents[eventType] {
		return SeverityCritical
	}
	switch {
	case statusCode >= 500:
		return SeverityHigh
	case statusCode >= 400:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// EventTypeFor maps a request to its audit event type the way the request
// middleware classifies traffic.
func EventTypeFor(method, path string, statusCode int) string {
	if statusCode >= 400 {
		switch statusCode {
		case 401:
			return EventAuthFailed
		case 403:
			return EventAccessDenied
		default:
			return EventRequestError
		}
	}
	switch {
	case strings.Contains(path, "/auth/login"):
		return EventAdminLogin
	case strings.Contains(path, "/auth/logout"):
		return EventAdminLogout
	case strings.Contains(path, "/export"):
		return EventDataExported
	case strings.Contains(path, "/users"):
		switch method {
		case "POST":
			return EventUserCreated
		case "PUT", "PATCH":
			return EventUserUpdated
		case "DELETE":
			return EventUserDeleted
		default:
			return EventUserViewed
		}
	case strings.Contains(path, "/entrepreneurs") && (method == "POST" || method == "PUT" || method == "PATCH"):
		return EventEntrepreneurModerate
	case strings.Contains(path, "/campaigns") && method == "POST":
		return EventCampaignCreated
	}
	return EventRequestSuccess
}
