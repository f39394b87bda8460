package messages

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/message"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/app/storage/memory"
	apperrors "github.com/nexus-partners/admin-backend/internal/errors"
)

var operator = admin.Profile{UserID: "support-1", Role: admin.RoleSupport, MFAVerified: true}

type stubSender struct {
	sent []string
	fail bool
}

func (s *stubSender) Send(_ context.Context, to, _, _ string) error {
	if s.fail {
		return errors.New("smtp down")
	}
	s.sent = append(s.sent, to)
	return nil
}

func seedMessage(t *testing.T, store *memory.Store, status string) message.Message {
	t.Helper()
	msg, err := store.UpdateMessage(context.Background(), message.Message{
		UserID:  "user-1",
		Email:   "aya@example.com",
		Subject: "Cannot log in",
		Content: "My password reset link never arrives.",
		Status:  status,
	})
	if err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return msg
}

func TestGetOpensNewMessages(t *testing.T) {
	store := memory.New()
	svc := New(store, nil, auditsvc.New(store, store, nil), nil)
	ctx := context.Background()
	msg := seedMessage(t, store, message.StatusNew)

	got, err := svc.Get(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != message.StatusOpen {
		t.Fatalf("expected open, got %s", got.Status)
	}

	// A second read leaves the status alone.
	again, err := svc.Get(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if again.Status != message.StatusOpen {
		t.Fatalf("status drifted to %s", again.Status)
	}
}

func TestUpdateAssignment(t *testing.T) {
	store := memory.New()
	svc := New(store, nil, auditsvc.New(store, store, nil), nil)
	ctx := context.Background()
	msg := seedMessage(t, store, message.StatusOpen)

	if _, err := store.UpdateAdmin(ctx, admin.Profile{UserID: "support-1", Role: admin.RoleSupport, IsActive: true}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	assignee := "support-1"
	updated, err := svc.Update(ctx, operator, msg.ID, UpdateRequest{AssignedTo: &assignee})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.AssignedTo != "support-1" || updated.AssignedAt == nil {
		t.Fatalf("assignment not applied: %+v", updated)
	}

	ghost := "ghost"
	if _, err := svc.Update(ctx, operator, msg.ID, UpdateRequest{AssignedTo: &ghost}); apperrors.GetServiceError(err) == nil || apperrors.GetServiceError(err).Code != apperrors.CodeNotFound {
		t.Fatalf("expected not found for unknown assignee, got %v", err)
	}

	none := ""
	updated, err = svc.Update(ctx, operator, msg.ID, UpdateRequest{AssignedTo: &none})
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if updated.AssignedTo != "" || updated.AssignedAt != nil {
		t.Fatalf("unassignment not applied: %+v", updated)
	}

	bogus := "limbo"
	if _, err := svc.Update(ctx, operator, msg.ID, UpdateRequest{Status: &bogus}); apperrors.GetServiceError(err) == nil || apperrors.GetServiceError(err).Code != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReply(t *testing.T) {
	store := memory.New()
	sender := &stubSender{}
	svc := New(store, sender, auditsvc.New(store, store, nil), nil)
	ctx := context.Background()
	msg := seedMessage(t, store, message.StatusOpen)

	if _, err := svc.Reply(ctx, operator, msg.ID, ReplyRequest{}); apperrors.GetServiceError(err) == nil || apperrors.GetServiceError(err).Code != apperrors.CodeValidation {
		t.Fatalf("expected validation error for empty reply, got %v", err)
	}

	replied, err := svc.Reply(ctx, operator, msg.ID, ReplyRequest{Content: "A new link is on its way."})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if replied.Status != message.StatusReplied || replied.RepliedBy != "support-1" || replied.RepliedAt == nil {
		t.Fatalf("unexpected message %+v", replied)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "aya@example.com" {
		t.Fatalf("reply not delivered: %+v", sender.sent)
	}
}

func TestReplyWithTemplate(t *testing.T) {
	store := memory.New()
	sender := &stubSender{}
	svc := New(store, sender, auditsvc.New(store, store, nil), nil)
	ctx := context.Background()
	msg := seedMessage(t, store, message.StatusOpen)

	tpl, err := svc.CreateTemplate(ctx, operator, TemplateRequest{
		Name:    "Password reset",
		Subject: "About your password reset",
		Content: "Please check your spam folder, then try again.",
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	replied, err := svc.Reply(ctx, operator, msg.ID, ReplyRequest{TemplateID: tpl.ID})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if replied.ReplyContent != tpl.Content {
		t.Fatalf("template content not applied: %q", replied.ReplyContent)
	}
}

func TestReplyDeliveryFailureKeepsReply(t *testing.T) {
	store := memory.New()
	sender := &stubSender{fail: true}
	svc := New(store, sender, auditsvc.New(store, store, nil), nil)
	ctx := context.Background()
	msg := seedMessage(t, store, message.StatusOpen)

	_, err := svc.Reply(ctx, operator, msg.ID, ReplyRequest{Content: "hello"})
	if se := apperrors.GetServiceError(err); se == nil || se.Code != apperrors.CodeUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}

	stored, err := store.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != message.StatusReplied || stored.ReplyContent != "hello" {
		t.Fatalf("reply not stored despite delivery failure: %+v", stored)
	}
}

func TestArchive(t *testing.T) {
	store := memory.New()
	svc := New(store, nil, auditsvc.New(store, store, nil), nil)
	ctx := context.Background()
	msg := seedMessage(t, store, message.StatusReplied)

	archived, err := svc.Archive(ctx, msg.ID)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if archived.Status != message.StatusArchived {
		t.Fatalf("unexpected status %s", archived.Status)
	}

	if _, err := svc.Archive(ctx, msg.ID); apperrors.GetServiceError(err) == nil || apperrors.GetServiceError(err).Code != apperrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := svc.Reply(ctx, operator, msg.ID, ReplyRequest{Content: "too late"}); apperrors.GetServiceError(err) == nil || apperrors.GetServiceError(err).Code != apperrors.CodeConflict {
		t.Fatalf("expected conflict replying to archived, got %v", err)
	}
}

func TestStats(t *testing.T) {
	store := memory.New()
	svc := New(store, nil, auditsvc.New(store, store, nil), nil)
	ctx := context.Background()

	overdue := time.Now().UTC().Add(-time.Hour)
	if _, err := store.UpdateMessage(ctx, message.Message{Email: "a@example.com", Subject: "1", Status: message.StatusNew, SLADueAt: &overdue}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	seedMessage(t, store, message.StatusOpen)
	seedMessage(t, store, message.StatusArchived)

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats["unanswered"] != 2 {
		t.Fatalf("unexpected unanswered count %v", stats["unanswered"])
	}
	if stats["sla_overdue"] != 1 {
		t.Fatalf("unexpected overdue count %v", stats["sla_overdue"])
	}

	if _, err := svc.List(ctx, storage.MessageFilter{Status: "limbo"}); apperrors.GetServiceError(err) == nil || apperrors.GetServiceError(err).Code != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
