package settings

import (
	"context"
	"testing"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/setting"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/app/storage/memory"
	"github.com/nexus-partners/admin-backend/internal/errors"
)

var operator = admin.Profile{UserID: "admin-1", Role: admin.RoleAdmin, MFAVerified: true}

func newService(store *memory.Store) *Service {
	return New(store, Dependencies{}, auditsvc.New(store, store, nil), nil)
}

func seedSettings(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	rows := []setting.SystemSetting{
		{SettingKey: "app_name", SettingValue: "Nexus", SettingType: setting.TypeString, Category: "general", IsRequired: true},
		{SettingKey: "maintenance_mode", SettingValue: "false", SettingType: setting.TypeBoolean, Category: "maintenance"},
		{SettingKey: "max_upload_mb", SettingValue: "25", SettingType: setting.TypeNumber, Category: "limits"},
	}
	for _, row := range rows {
		if _, err := store.UpdateSetting(ctx, row); err != nil {
			t.Fatalf("seed setting %s: %v", row.SettingKey, err)
		}
	}
}

func TestListGroupsByCategory(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedSettings(t, store)

	groups, err := svc.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(groups))
	}
	// Categories come back sorted.
	if groups[0].Category != "general" || groups[0].Label != "General" {
		t.Fatalf("unexpected first group %+v", groups[0])
	}

	only, err := svc.List(ctx, "limits")
	if err != nil {
		t.Fatalf("list limits: %v", err)
	}
	if len(only) != 1 || len(only[0].Settings) != 1 {
		t.Fatalf("unexpected filtered groups %+v", only)
	}
	if only[0].Settings[0].ParsedValue != 25.0 {
		t.Fatalf("number not parsed: %v", only[0].Settings[0].ParsedValue)
	}
}

func TestUpdateSerializesAndAudits(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedSettings(t, store)

	updated, err := svc.Update(ctx, operator, "max_upload_mb", 50.0)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.SettingValue != "50" || updated.ParsedValue != 50.0 || updated.UpdatedBy != "admin-1" {
		t.Fatalf("unexpected setting %+v", updated)
	}

	entries, err := store.CountAuditEntries(ctx, storage.AuditFilter{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if entries != 1 {
		t.Fatalf("expected 1 audit entry, got %d", entries)
	}

	// Writing the same value again is a no-op and leaves no new entry.
	if _, err := svc.Update(ctx, operator, "max_upload_mb", 50.0); err != nil {
		t.Fatalf("noop update: %v", err)
	}
	after, _ := store.CountAuditEntries(ctx, storage.AuditFilter{})
	if after != 1 {
		t.Fatalf("noop update recorded an audit entry")
	}

	if _, err := svc.Update(ctx, operator, "max_upload_mb", "not a number"); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Update(ctx, operator, "app_name", ""); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeValidation {
		t.Fatalf("expected validation error for empty required value, got %v", err)
	}
	if _, err := svc.Update(ctx, operator, "missing_key", "x"); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBulkUpdateReportsPerKey(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedSettings(t, store)

	results := svc.BulkUpdate(ctx, operator, map[string]interface{}{
		"app_name":    "Nexus Partners",
		"missing_key": "x",
	})
	if results["app_name"] != "ok" {
		t.Fatalf("unexpected result %q", results["app_name"])
	}
	if results["missing_key"] == "ok" || results["missing_key"] == "" {
		t.Fatalf("missing key should report its error, got %q", results["missing_key"])
	}
}

func TestToggleMaintenance(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedSettings(t, store)

	enabled, err := svc.ToggleMaintenance(ctx, operator)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !enabled {
		t.Fatalf("expected maintenance on")
	}
	row, err := svc.Get(ctx, "maintenance_mode")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row.ParsedValue != true {
		t.Fatalf("setting not persisted: %+v", row)
	}

	enabled, err = svc.ToggleMaintenance(ctx, operator)
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if enabled {
		t.Fatalf("expected maintenance off")
	}
}

func TestHealthCheckUnconfigured(t *testing.T) {
	store := memory.New()
	svc := newService(store)

	report := svc.HealthCheck(context.Background())
	if report["status"] != "healthy" {
		t.Fatalf("unconfigured dependencies must not degrade health: %v", report["status"])
	}
	checks, ok := report["dependencies"].([]DependencyStatus)
	if !ok || len(checks) != 4 {
		t.Fatalf("unexpected dependencies %v", report["dependencies"])
	}
	for _, c := range checks {
		if c.Status != "unconfigured" {
			t.Fatalf("dependency %s should be unconfigured, got %s", c.Name, c.Status)
		}
	}
}

func TestTriggerBackup(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	req, err := svc.TriggerBackup(ctx, operator, "pre-release", true)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if req.Status != "requested" || !req.IncludeStorage || req.RequestedBy != "admin-1" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestNotifications(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	n, err := store.CreateNotification(ctx, admin.Notification{AdminID: "admin-1", Type: "info", Title: "Hello"})
	if err != nil {
		t.Fatalf("seed notification: %v", err)
	}

	unread, err := svc.Notifications(ctx, operator, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(unread) != 1 {
		t.Fatalf("expected 1 unread, got %d", len(unread))
	}

	if err := svc.MarkNotificationRead(ctx, operator, n.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	unread, err = svc.Notifications(ctx, operator, true)
	if err != nil {
		t.Fatalf("list again: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("notification still unread")
	}

	// Operators only mark their own notifications.
	other := admin.Profile{UserID: "admin-2"}
	if err := svc.MarkNotificationRead(ctx, other, n.ID); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
