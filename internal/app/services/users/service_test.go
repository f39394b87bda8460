package users

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/user"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/app/storage/memory"
	"github.com/nexus-partners/admin-backend/internal/errors"
)

var operator = admin.Profile{UserID: "admin-1", Role: admin.RoleAdmin, MFAVerified: true}

func newService(store *memory.Store) *Service {
	return New(store, auditsvc.New(store, store, nil), nil)
}

func seedUsers(t *testing.T, store *memory.Store, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		id := string(rune('a'+i)) + "-user"
		profile := user.Profile{
			UserID:      id,
			FirstName:   "User",
			LastName:    strings.ToUpper(string(rune('A' + i))),
			CountryCode: "CI",
			HasProfile:  true,
		}
		if i%2 == 0 {
			profile.IsPremium = true
		}
		if _, err := store.UpdateProfile(ctx, profile); err != nil {
			t.Fatalf("seed user %s: %v", id, err)
		}
		store.SetEmail(id, id+"@example.com")
		time.Sleep(time.Millisecond)
	}
}

func TestListPaginationAndSummary(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedUsers(t, store, 5)

	page, err := svc.List(ctx, storage.UserFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Data) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(page.Data))
	}
	if page.NextCursor == "" {
		t.Fatalf("expected a next cursor")
	}
	if page.Summary.TotalUsers != 5 || page.Summary.Premium != 3 || page.Summary.WithProfile != 5 {
		t.Fatalf("unexpected summary %+v", page.Summary)
	}
	if page.Data[0].Email == "" {
		t.Fatalf("profiles not enriched with emails")
	}

	rest, err := svc.List(ctx, storage.UserFilter{Limit: 10, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("list rest: %v", err)
	}
	if len(rest.Data) != 3 {
		t.Fatalf("expected 3 remaining profiles, got %d", len(rest.Data))
	}
}

func TestBlockUnblock(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedUsers(t, store, 1)

	if _, err := svc.Block(ctx, operator, "a-user", ""); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeValidation {
		t.Fatalf("expected validation error for empty reason, got %v", err)
	}

	blocked, err := svc.Block(ctx, operator, "a-user", "spam")
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if !blocked.IsBlocked || blocked.BlockedBy != "admin-1" || blocked.BlockReason != "spam" {
		t.Fatalf("unexpected blocked state %+v", blocked)
	}

	if _, err := svc.Block(ctx, operator, "a-user", "again"); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeConflict {
		t.Fatalf("expected conflict on double block, got %v", err)
	}

	unblocked, err := svc.Unblock(ctx, operator, "a-user")
	if err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if unblocked.IsBlocked || unblocked.BlockReason != "" {
		t.Fatalf("unexpected unblocked state %+v", unblocked)
	}

	if _, err := svc.Unblock(ctx, operator, "a-user"); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeConflict {
		t.Fatalf("expected conflict on double unblock, got %v", err)
	}
}

func TestUpdateRecordsChanges(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedUsers(t, store, 1)

	city := "Abidjan"
	updated, err := svc.Update(ctx, operator, "a-user", UpdateRequest{City: &city})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.City != "Abidjan" {
		t.Fatalf("city not applied: %+v", updated)
	}

	// A no-change patch is a no-op and leaves no audit entry behind.
	before, err := store.CountAuditEntries(ctx, storage.AuditFilter{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if _, err := svc.Update(ctx, operator, "a-user", UpdateRequest{City: &city}); err != nil {
		t.Fatalf("noop update: %v", err)
	}
	after, err := store.CountAuditEntries(ctx, storage.AuditFilter{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if after != before {
		t.Fatalf("noop update recorded an audit entry")
	}
}

func TestSoftAndHardDelete(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedUsers(t, store, 2)

	if err := svc.Delete(ctx, operator, "a-user", "requested by user", false); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	profile, err := store.GetProfile(ctx, "a-user")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !profile.IsBlocked || profile.IsPremium || profile.PremiumUntil != nil {
		t.Fatalf("soft delete left premium state %+v", profile)
	}

	if err := svc.Delete(ctx, operator, "b-user", "", true); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if _, err := store.GetProfile(ctx, "b-user"); err != storage.ErrNotFound {
		t.Fatalf("expected profile gone, got %v", err)
	}
}

func TestTags(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedUsers(t, store, 1)

	tag, err := svc.AddTag(ctx, operator, "a-user", " vip ", "#ffd700")
	if err != nil {
		t.Fatalf("add tag: %v", err)
	}
	if tag.Tag != "vip" || tag.AddedBy != "admin-1" {
		t.Fatalf("unexpected tag %+v", tag)
	}

	detail, err := svc.Get(ctx, "a-user")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.Profile.Tags) != 1 {
		t.Fatalf("tag not attached: %+v", detail.Profile.Tags)
	}

	if err := svc.RemoveTag(ctx, "a-user", "vip"); err != nil {
		t.Fatalf("remove tag: %v", err)
	}
	if err := svc.RemoveTag(ctx, "a-user", "vip"); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBulk(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedUsers(t, store, 2)

	results, err := svc.Bulk(ctx, operator, BulkRequest{
		Action:  "block",
		UserIDs: []string{"a-user", "b-user", "missing"},
		Reason:  "cleanup",
	})
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].OK || !results[1].OK || results[2].OK {
		t.Fatalf("unexpected outcomes %+v", results)
	}
	if results[2].Error == "" {
		t.Fatalf("failed entry missing its error")
	}

	if _, err := svc.Bulk(ctx, operator, BulkRequest{Action: "explode", UserIDs: []string{"a-user"}}); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Bulk(ctx, operator, BulkRequest{Action: "block"}); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeValidation {
		t.Fatalf("expected validation error for empty batch, got %v", err)
	}
}

func TestBulkSegmentActions(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedUsers(t, store, 2)

	segment, err := svc.CreateSegment(ctx, operator, SegmentRequest{Name: "VIPs"})
	if err != nil {
		t.Fatalf("create segment: %v", err)
	}

	results, err := svc.Bulk(ctx, operator, BulkRequest{
		Action:    "segment_add",
		UserIDs:   []string{"a-user", "b-user", "missing"},
		SegmentID: segment.ID,
	})
	if err != nil {
		t.Fatalf("segment_add: %v", err)
	}
	if !results[0].OK || !results[1].OK || results[2].OK {
		t.Fatalf("unexpected outcomes %+v", results)
	}
	members, err := store.ListSegmentMembers(ctx, []string{"a-user", "b-user"})
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	results, err = svc.Bulk(ctx, operator, BulkRequest{
		Action:    "segment_remove",
		UserIDs:   []string{"a-user"},
		SegmentID: segment.ID,
	})
	if err != nil {
		t.Fatalf("segment_remove: %v", err)
	}
	if !results[0].OK {
		t.Fatalf("unexpected outcome %+v", results[0])
	}
	members, err = store.ListSegmentMembers(ctx, []string{"a-user", "b-user"})
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 || members[0].UserID != "b-user" {
		t.Fatalf("unexpected members %+v", members)
	}

	if _, err := svc.Bulk(ctx, operator, BulkRequest{Action: "segment_add", UserIDs: []string{"a-user"}}); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeValidation {
		t.Fatalf("expected validation error without segment_id, got %v", err)
	}
}

func TestBulkTagAliases(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedUsers(t, store, 1)

	if _, err := svc.Bulk(ctx, operator, BulkRequest{Action: "tag", UserIDs: []string{"a-user"}, Tag: "vip"}); err != nil {
		t.Fatalf("tag: %v", err)
	}
	detail, err := svc.Get(ctx, "a-user")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.Profile.Tags) != 1 || detail.Profile.Tags[0].Tag != "vip" {
		t.Fatalf("unexpected tags %+v", detail.Profile.Tags)
	}

	if _, err := svc.Bulk(ctx, operator, BulkRequest{Action: "untag", UserIDs: []string{"a-user"}, Tag: "vip"}); err != nil {
		t.Fatalf("untag: %v", err)
	}
	detail, err = svc.Get(ctx, "a-user")
	if err != nil {
		t.Fatalf("get after untag: %v", err)
	}
	if len(detail.Profile.Tags) != 0 {
		t.Fatalf("tag not removed: %+v", detail.Profile.Tags)
	}
}

func TestExport(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedUsers(t, store, 3)

	data, filename, err := svc.Export(ctx, operator, storage.UserFilter{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(data, "# Export Hash: ") {
		t.Fatalf("export missing hash prefix")
	}
	lines := strings.Split(strings.TrimRight(data, "\n"), "\n")
	// Hash line, header, one row per user.
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], "user_id,email,") {
		t.Fatalf("unexpected header %q", lines[1])
	}
	if !strings.HasPrefix(filename, "users_") || !strings.HasSuffix(filename, ".csv") {
		t.Fatalf("unexpected filename %q", filename)
	}
}
