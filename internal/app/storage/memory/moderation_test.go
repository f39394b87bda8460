package memory

import (
	"context"
	"testing"

	"github.com/nexus-partners/admin-backend/internal/app/domain/moderation"
)

func TestUpdateQueueItemUpserts(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.UpdateQueueItem(ctx, moderation.QueueItem{
		EntrepreneurID: "ent-1",
	})
	if err != nil {
		t.Fatalf("insert via update: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("missing generated fields: %+v", created)
	}
	if created.Status != moderation.StatusPending {
		t.Fatalf("unexpected status %q", created.Status)
	}

	created.Status = moderation.StatusInReview
	created.EntrepreneurID = "ent-other"
	updated, err := store.UpdateQueueItem(ctx, created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != moderation.StatusInReview {
		t.Fatalf("status not updated: %+v", updated)
	}
	if updated.EntrepreneurID != "ent-1" {
		t.Fatalf("entrepreneur id should be immutable, got %q", updated.EntrepreneurID)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at changed on update")
	}

	fetched, err := store.GetQueueItemByEntrepreneur(ctx, "ent-1")
	if err != nil {
		t.Fatalf("lookup by entrepreneur: %v", err)
	}
	if fetched.ID != created.ID {
		t.Fatalf("unexpected item %+v", fetched)
	}
}
