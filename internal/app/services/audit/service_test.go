package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	auditdomain "github.com/nexus-partners/admin-backend/internal/app/domain/audit"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/app/storage/memory"
)

func TestRecordStampsAndVerifies(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	svc.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventUserUpdated,
		AdminID:   "admin-1",
		UserID:    "user-1",
	})

	result, err := svc.List(ctx, storage.AuditFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Data) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(result.Data))
	}
	entry := result.Data[0]
	if entry.LogHash == "" {
		t.Fatalf("entry not stamped")
	}
	if !entry.HashValid {
		t.Fatalf("fresh entry failed verification")
	}
	if entry.Severity != auditdomain.SeverityLow {
		t.Fatalf("expected LOW severity, got %s", entry.Severity)
	}
}

func TestCriticalEventNotifiesAdmins(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	for _, id := range []string{"admin-1", "admin-2"} {
		if _, err := store.UpdateAdmin(ctx, admin.Profile{UserID: id, Role: admin.RoleAdmin, IsActive: true}); err != nil {
			t.Fatalf("seed admin: %v", err)
		}
	}

	svc := New(store, store, nil)
	svc.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventUserBlocked,
		AdminID:   "admin-1",
		UserID:    "user-1",
	})

	for _, id := range []string{"admin-1", "admin-2"} {
		notes, err := store.ListNotifications(ctx, id, true)
		if err != nil {
			t.Fatalf("notifications: %v", err)
		}
		if len(notes) != 1 {
			t.Fatalf("admin %s: expected 1 notification, got %d", id, len(notes))
		}
		if !strings.Contains(notes[0].Title, auditdomain.EventUserBlocked) {
			t.Fatalf("unexpected title %q", notes[0].Title)
		}
	}
}

func TestListPagination(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.Record(ctx, auditdomain.Entry{EventType: auditdomain.EventUserViewed, AdminID: "admin-1"})
		time.Sleep(time.Millisecond)
	}

	page, err := svc.List(ctx, storage.AuditFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Data) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page.Data))
	}
	if page.Total != 5 {
		t.Fatalf("expected total 5, got %d", page.Total)
	}
	if page.NextCursor == "" {
		t.Fatalf("expected a next cursor on a full page")
	}

	rest, err := svc.List(ctx, storage.AuditFilter{Limit: 10, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("list rest: %v", err)
	}
	if len(rest.Data) != 3 {
		t.Fatalf("expected 3 remaining entries, got %d", len(rest.Data))
	}
}

func TestExportPrefixedWithHash(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	svc.Record(ctx, auditdomain.Entry{EventType: auditdomain.EventUserViewed, AdminID: "admin-1"})

	data, filename, err := svc.Export(ctx, storage.AuditFilter{}, "admin-1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(data, "# Export Hash: ") {
		t.Fatalf("export missing hash prefix: %q", data[:40])
	}
	if !strings.HasPrefix(filename, "audit_logs_") || !strings.HasSuffix(filename, ".csv") {
		t.Fatalf("unexpected filename %q", filename)
	}

	// The export itself lands in the log as a critical event.
	result, err := svc.List(ctx, storage.AuditFilter{EventTypes: []string{auditdomain.EventAuditExported}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Data) != 1 || result.Data[0].Severity != auditdomain.SeverityCritical {
		t.Fatalf("export event not recorded as critical")
	}
}
