// Package settings implements typed system settings, maintenance mode, the
// deep health check, backup requests and admin notifications.
package settings

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	auditdomain "github.com/nexus-partners/admin-backend/internal/app/domain/audit"
	"github.com/nexus-partners/admin-backend/internal/app/domain/setting"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/database"
	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/gateway"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

// Dependencies are the external systems the deep health check probes. Any of
// them may be nil.
type Dependencies struct {
	Database *database.Client
	Cache    *redis.Client
	Email    *gateway.SendGridClient
	Payments *gateway.MonerooClient
}

// Service handles system settings administration.
type Service struct {
	store   storage.Store
	deps    Dependencies
	audits  *auditsvc.Service
	log     *logger.Logger
	timeNow func() time.Time
}

// New constructs a settings service.
func New(store storage.Store, deps Dependencies, audits *auditsvc.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("settings")
	}
	return &Service{
		store:   store,
		deps:    deps,
		audits:  audits,
		log:     log,
		timeNow: func() time.Time { return time.Now().UTC() },
	}
}

// CategoryGroup is one category of settings with parsed values.
type CategoryGroup struct {
	Category string                  `json:"category"`
	Label    string                  `json:"label"`
	Settings []setting.SystemSetting `json:"settings"`
}

// List returns settings grouped by category with values parsed per their
// declared type.
func (s *Service) List(ctx context.Context, category string) ([]CategoryGroup, error) {
	settings, err := s.store.ListSettings(ctx, category)
	if err != nil {
		return nil, errors.Internal("failed to list settings", err)
	}

	byCategory := make(map[string][]setting.SystemSetting)
	for _, row := range settings {
		row.ParsedValue = row.ParseValue()
		byCategory[row.Category] = append(byCategory[row.Category], row)
	}

	groups := make([]CategoryGroup, 0, len(byCategory))
	for cat, rows := range byCategory {
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].DisplayOrder != rows[j].DisplayOrder {
				return rows[i].DisplayOrder < rows[j].DisplayOrder
			}
			return rows[i].SettingKey < rows[j].SettingKey
		})
		groups = append(groups, CategoryGroup{
			Category: cat,
			Label:    setting.CategoryLabel(cat),
			Settings: rows,
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Category < groups[j].Category })
	return groups, nil
}

// Get returns one setting with its parsed value.
func (s *Service) Get(ctx context.Context, key string) (setting.SystemSetting, error) {
	row, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return setting.SystemSetting{}, errors.NotFound("setting")
	}
	row.ParsedValue = row.ParseValue()
	return row, nil
}

// Update writes one setting, serializing the value per the declared type and
// recording old and new values.
func (s *Service) Update(ctx context.Context, operator admin.Profile, key string, value interface{}) (setting.SystemSetting, error) {
	row, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return setting.SystemSetting{}, errors.NotFound("setting")
	}

	serialized, err := setting.SerializeValue(value, row.SettingType)
	if err != nil {
		return setting.SystemSetting{}, errors.Validation(err.Error())
	}
	if row.IsRequired && strings.TrimSpace(serialized) == "" {
		return setting.SystemSetting{}, errors.Validation("setting is required and cannot be empty")
	}
	if serialized == row.SettingValue {
		row.ParsedValue = row.ParseValue()
		return row, nil
	}

	oldValue := row.SettingValue
	row.SettingValue = serialized
	row.UpdatedBy = operator.UserID
	updated, err := s.store.UpdateSetting(ctx, row)
	if err != nil {
		return setting.SystemSetting{}, errors.Internal("failed to update setting", err)
	}
	updated.ParsedValue = updated.ParseValue()

	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventSettingsUpdated,
		AdminID:   operator.UserID,
		Changes: map[string]interface{}{
			key: map[string]interface{}{"old": oldValue, "new": serialized},
		},
	})
	return updated, nil
}

// BulkUpdate writes several settings, reporting each outcome individually.
func (s *Service) BulkUpdate(ctx context.Context, operator admin.Profile, values map[string]interface{}) map[string]string {
	results := make(map[string]string, len(values))
	for key, value := range values {
		if _, err := s.Update(ctx, operator, key, value); err != nil {
			results[key] = err.Error()
		} else {
			results[key] = "ok"
		}
	}
	return results
}

// ToggleMaintenance flips the maintenance_mode setting and records the
// toggle.
func (s *Service) ToggleMaintenance(ctx context.Context, operator admin.Profile) (bool, error) {
	row, err := s.store.GetSetting(ctx, "maintenance_mode")
	if err != nil {
		return false, errors.NotFound("setting")
	}
	enabled, _ := row.ParseValue().(bool)
	enabled = !enabled

	row.SettingValue, _ = setting.SerializeValue(enabled, setting.TypeBoolean)
	row.UpdatedBy = operator.UserID
	if _, err := s.store.UpdateSetting(ctx, row); err != nil {
		return false, errors.Internal("failed to toggle maintenance mode", err)
	}

	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventMaintenanceToggled,
		Severity:  auditdomain.SeverityHigh,
		AdminID:   operator.UserID,
		Metadata:  map[string]interface{}{"enabled": enabled},
	})
	return enabled, nil
}

// DependencyStatus is one probed dependency in the deep health check.
type DependencyStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // healthy, degraded or unconfigured
	Detail  string `json:"detail,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HealthCheck probes each external dependency and reports per-dependency
// status. Overall status is healthy only when every configured dependency is.
func (s *Service) HealthCheck(ctx context.Context) map[string]interface{} {
	checks := []DependencyStatus{
		s.checkDatabase(ctx),
		s.checkCache(ctx),
		s.checkEmail(),
		s.checkPayments(),
	}
	overall := "healthy"
	for _, c := range checks {
		if c.Status == "degraded" {
			overall = "degraded"
			break
		}
	}
	return map[string]interface{}{
		"status":       overall,
		"dependencies": checks,
		"checked_at":   s.timeNow().Format(time.RFC3339),
	}
}

func (s *Service) checkDatabase(ctx context.Context) DependencyStatus {
	if s.deps.Database == nil {
		return DependencyStatus{Name: "database", Status: "unconfigured"}
	}
	start := time.Now()
	if err := s.deps.Database.Ping(ctx); err != nil {
		return DependencyStatus{Name: "database", Status: "degraded", Detail: err.Error()}
	}
	return DependencyStatus{Name: "database", Status: "healthy", Latency: time.Since(start).Round(time.Millisecond).String()}
}

func (s *Service) checkCache(ctx context.Context) DependencyStatus {
	if s.deps.Cache == nil {
		return DependencyStatus{Name: "cache", Status: "unconfigured"}
	}
	start := time.Now()
	if err := s.deps.Cache.Ping(ctx).Err(); err != nil {
		return DependencyStatus{Name: "cache", Status: "degraded", Detail: err.Error()}
	}
	return DependencyStatus{Name: "cache", Status: "healthy", Latency: time.Since(start).Round(time.Millisecond).String()}
}

func (s *Service) checkEmail() DependencyStatus {
	if s.deps.Email == nil || !s.deps.Email.Configured() {
		return DependencyStatus{Name: "email", Status: "unconfigured"}
	}
	return DependencyStatus{Name: "email", Status: "healthy"}
}

func (s *Service) checkPayments() DependencyStatus {
	if s.deps.Payments == nil || !s.deps.Payments.Configured() {
		return DependencyStatus{Name: "payment", Status: "unconfigured"}
	}
	return DependencyStatus{Name: "payment", Status: "healthy"}
}

// TriggerBackup records a backup request and audits it. An external job
// runner picks the request up.
func (s *Service) TriggerBackup(ctx context.Context, operator admin.Profile, reason string, includeStorage bool) (setting.BackupRequest, error) {
	req, err := s.store.CreateBackupRequest(ctx, setting.BackupRequest{
		JobType:        "backup",
		Status:         "requested",
		Reason:         strings.TrimSpace(reason),
		IncludeStorage: includeStorage,
		RequestedBy:    operator.UserID,
	})
	if err != nil {
		return setting.BackupRequest{}, errors.Internal("failed to record backup request", err)
	}
	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventBackupTriggered,
		Severity:  auditdomain.SeverityHigh,
		AdminID:   operator.UserID,
		Metadata:  map[string]interface{}{"request_id": req.ID, "include_storage": includeStorage},
	})
	return req, nil
}

// Notifications returns the operator's notifications, optionally unread only.
func (s *Service) Notifications(ctx context.Context, operator admin.Profile, unreadOnly bool) ([]admin.Notification, error) {
	notifications, err := s.store.ListNotifications(ctx, operator.UserID, unreadOnly)
	if err != nil {
		return nil, errors.Internal("failed to list notifications", err)
	}
	return notifications, nil
}

// MarkNotificationRead marks one of the operator's notifications read.
func (s *Service) MarkNotificationRead(ctx context.Context, operator admin.Profile, id string) error {
	if err := s.store.MarkNotificationRead(ctx, id, operator.UserID); err != nil {
		if err == storage.ErrNotFound {
			return errors.NotFound("notification")
		}
		return errors.Internal("failed to mark notification read", err)
	}
	return nil
}
