// Package audit implements the append-only audit trail: hash-stamped writes,
// verified reads, exports and the critical-event notification fan-out.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/audit"
	"github.com/nexus-partners/admin-backend/internal/app/metrics"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

// Service writes and reads the audit log.
type Service struct {
	store  storage.AuditStore
	admins storage.AdminStore
	log    *logger.Logger
}

// New constructs an audit service.
func New(store storage.AuditStore, admins storage.AdminStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("audit")
	}
	return &Service{store: store, admins: admins, log: log}
}

// Record stamps and appends an entry. Critical entries additionally notify
// every active administrator. Failures are logged, never propagated: an audit
// outage must not fail the admin action itself.
func (s *Service) Record(ctx context.Context, entry audit.Entry) {
	if entry.Severity == "" {
		entry.Severity = audit.SeverityFor(entry.StatusCode, entry.EventType)
	}
	if err := entry.Stamp(); err != nil {
		s.log.WithError(err).Error("audit entry hash failed")
		return
	}
	stored, err := s.store.AppendAuditEntry(ctx, entry)
	if err != nil {
		s.log.WithError(err).WithField("event_type", entry.EventType).Error("audit write failed")
		return
	}
	metrics.RecordAuditEvent(stored.Severity)
	if stored.Severity == audit.SeverityCritical {
		s.notifyAdmins(ctx, stored)
	}
}

func (s *Service) notifyAdmins(ctx context.Context, entry audit.Entry) {
	admins, err := s.admins.ListActiveAdmins(ctx, admin.RoleAdmin)
	if err != nil {
		s.log.WithError(err).Warn("critical event notification skipped")
		return
	}
	for _, profile := range admins {
		_, err := s.admins.CreateNotification(ctx, admin.Notification{
			AdminID: profile.UserID,
			Type:    "warning",
			Title:   "Critical Event: " + entry.EventType,
			Body:    "A critical action was performed",
		})
		if err != nil {
			s.log.WithError(err).WithField("admin_id", profile.UserID).Warn("notification write failed")
		}
	}
}

// VerifiedEntry is an entry with its recomputed integrity state.
type VerifiedEntry struct {
	audit.Entry
	HashValid    bool   `json:"hash_valid"`
	ComputedHash string `json:"computed_hash,omitempty"`
}

func verify(entry audit.Entry) VerifiedEntry {
	valid, computed := entry.Verify()
	return VerifiedEntry{Entry: entry, HashValid: valid, ComputedHash: computed}
}

// ListResult is one page of verified entries with summary counts.
type ListResult struct {
	Data           []VerifiedEntry `json:"data"`
	Total          int             `json:"total"`
	NextCursor     string          `json:"next_cursor,omitempty"`
	Summary        map[string]int  `json:"summary"`
	LastCriticalAt *time.Time      `json:"last_critical_at,omitempty"`
}

// List returns a verified page of audit entries.
func (s *Service) List(ctx context.Context, filter storage.AuditFilter) (ListResult, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 50
	}
	entries, err := s.store.ListAuditEntries(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}
	verified := make([]VerifiedEntry, 0, len(entries))
	for _, e := range entries {
		verified = append(verified, verify(e))
	}

	total, err := s.store.CountAuditEntries(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}
	summary, err := s.store.SeveritySummary(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}
	lastCritical, err := s.store.LastCriticalAt(ctx)
	if err != nil {
		return ListResult{}, err
	}

	result := ListResult{
		Data:           verified,
		Total:          total,
		Summary:        summary,
		LastCriticalAt: lastCritical,
	}
	if len(entries) == filter.Limit && len(entries) > 0 {
		result.NextCursor = entries[len(entries)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	return result, nil
}

// Get returns one verified entry.
func (s *Service) Get(ctx context.Context, id string) (VerifiedEntry, error) {
	entry, err := s.store.GetAuditEntry(ctx, id)
	if err != nil {
		return VerifiedEntry{}, err
	}
	return verify(entry), nil
}

// RecentActivity returns the latest entries involving an actor.
func (s *Service) RecentActivity(ctx context.Context, actorID string, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.ListAuditByActor(ctx, actorID, limit)
}

// Export renders matching entries as CSV, prefixed with a line carrying the
// SHA-256 of the CSV content, and records the export itself as a critical
// event.
func (s *Service) Export(ctx context.Context, filter storage.AuditFilter, adminID string) (string, string, error) {
	filter.Cursor = ""
	filter.Limit = 0
	entries, err := s.store.ListAuditEntries(ctx, filter)
	if err != nil {
		return "", "", err
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	header := []string{"id", "created_at", "event_type", "severity", "admin_id", "user_id", "ip_address", "endpoint", "http_method", "status_code", "log_hash", "metadata", "changes"}
	if err := w.Write(header); err != nil {
		return "", "", err
	}
	for _, e := range entries {
		metadata, _ := json.Marshal(e.Metadata)
		changes, _ := json.Marshal(e.Changes)
		row := []string{
			e.ID,
			e.CreatedAt.Format(time.RFC3339),
			e.EventType,
			e.Severity,
			e.AdminID,
			e.UserID,
			e.IPAddress,
			e.Endpoint,
			e.HTTPMethod,
			strconv.Itoa(e.StatusCode),
			e.LogHash,
			string(metadata),
			string(changes),
		}
		if err := w.Write(row); err != nil {
			return "", "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", "", err
	}

	content := sb.String()
	sum := sha256.Sum256([]byte(content))
	exportHash := hex.EncodeToString(sum[:])
	signed := fmt.Sprintf("# Export Hash: %s\n%s", exportHash, content)

	s.Record(ctx, audit.Entry{
		EventType: audit.EventAuditExported,
		Severity:  audit.SeverityCritical,
		AdminID:   adminID,
		Metadata: map[string]interface{}{
			"count":       len(entries),
			"export_hash": exportHash,
		},
	})

	filename := fmt.Sprintf("audit_logs_%s.csv", time.Now().UTC().Format("20060102_150405"))
	return signed, filename, nil
}

// Stats aggregates severity and event-type counts over a lookback period.
func (s *Service) Stats(ctx context.Context, period string) (map[string]interface{}, error) {
	days := 7
	switch period {
	case "7d", "":
	case "30d":
		days = 30
	case "90d":
		days = 90
	default:
		return nil, fmt.Errorf("unknown period %q", period)
	}
	start := time.Now().UTC().AddDate(0, 0, -days)
	filter := storage.AuditFilter{StartDate: &start}

	total, err := s.store.CountAuditEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	summary, err := s.store.SeveritySummary(ctx, filter)
	if err != nil {
		return nil, err
	}
	lastCritical, err := s.store.LastCriticalAt(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"period":           fmt.Sprintf("%dd", days),
		"total":            total,
		"by_severity":      summary,
		"last_critical_at": lastCritical,
	}, nil
}

// EventTypes returns the static catalogue of recognised event types.
func (s *Service) EventTypes() []string {
	return []string{
		audit.EventAdminLogin,
		audit.EventAdminLogout,
		audit.EventAuthFailed,
		audit.EventAccessDenied,
		audit.EventRequestError,
		audit.EventRequestSuccess,
		audit.EventUserCreated,
		audit.EventUserUpdated,
		audit.EventUserViewed,
		audit.EventUserBlocked,
		audit.EventUserUnblocked,
		audit.EventUserDeleted,
		audit.EventUserImpersonated,
		audit.EventBulkAction,
		audit.EventEntrepreneurModerate,
		audit.EventEntrepreneurApproved,
		audit.EventEntrepreneurRejected,
		audit.EventSubscriptionGranted,
		audit.EventSubscriptionRevoked,
		audit.EventMessageReplied,
		audit.EventCampaignCreated,
		audit.EventCampaignSent,
		audit.EventSettingsUpdated,
		audit.EventMaintenanceToggled,
		audit.EventBackupTriggered,
		audit.EventDataExported,
		audit.EventAuditExported,
	}
}
