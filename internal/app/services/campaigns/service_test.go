package campaigns

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/campaign"
	"github.com/nexus-partners/admin-backend/internal/app/domain/user"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	"github.com/nexus-partners/admin-backend/internal/app/storage/memory"
	"github.com/nexus-partners/admin-backend/internal/errors"
)

var operator = admin.Profile{UserID: "admin-1", Role: admin.RoleAdmin, MFAVerified: true}

type captureSender struct {
	to      []string
	subject []string
	body    []string
}

func (c *captureSender) Send(_ context.Context, to, subject, body string) error {
	c.to = append(c.to, to)
	c.subject = append(c.subject, subject)
	c.body = append(c.body, body)
	return nil
}

func newService(store *memory.Store, sender *captureSender) *Service {
	if sender == nil {
		return New(store, nil, auditsvc.New(store, store, nil), nil)
	}
	return New(store, sender, auditsvc.New(store, store, nil), nil)
}

func seedAudience(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	seed := []user.Profile{
		{UserID: "user-1", FirstName: "Aya", CountryCode: "CI"},
		{UserID: "user-2", FirstName: "Ben", CountryCode: "SN", IsPremium: true},
		{UserID: "user-3", FirstName: "Chi", CountryCode: "CI", IsBlocked: true},
		{UserID: "user-4", FirstName: "Dia", CountryCode: "CI"}, // no email
	}
	for _, p := range seed {
		if _, err := store.UpdateProfile(ctx, p); err != nil {
			t.Fatalf("seed user %s: %v", p.UserID, err)
		}
	}
	store.SetEmail("user-1", "aya@example.com")
	store.SetEmail("user-2", "ben@example.com")
	store.SetEmail("user-3", "chi@example.com")
}

func TestCreateValidation(t *testing.T) {
	store := memory.New()
	svc := newService(store, nil)
	ctx := context.Background()

	cases := []CreateRequest{
		{Name: "", Subject: "s", Content: "c", TargetingType: campaign.TargetAll},
		{Name: "n", Subject: "s", Content: "c", TargetingType: "everyone"},
		{Name: "n", Subject: "", Content: "c", TargetingType: campaign.TargetAll},
		{Name: "n", Subject: "s", Content: "c", TargetingType: campaign.TargetSegment},
		{Name: "n", Subject: "s", Content: "c", TargetingType: campaign.TargetCountry},
	}
	for i, req := range cases {
		if _, err := svc.Create(ctx, operator, req); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeValidation {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestCreateEstimatesRecipients(t *testing.T) {
	store := memory.New()
	svc := newService(store, nil)
	ctx := context.Background()
	seedAudience(t, store)

	c, err := svc.Create(ctx, operator, CreateRequest{
		Name:          "Welcome",
		Subject:       "Hello {{first_name}}",
		Content:       "<p>Hi {{first_name}}</p>",
		TargetingType: campaign.TargetAll,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Status != campaign.StatusDraft {
		t.Fatalf("expected draft, got %s", c.Status)
	}
	// Blocked users and users without an email never count.
	if c.RecipientCount != 2 {
		t.Fatalf("expected 2 recipients, got %d", c.RecipientCount)
	}
}

func TestScheduleAndCancel(t *testing.T) {
	store := memory.New()
	svc := newService(store, nil)
	ctx := context.Background()
	seedAudience(t, store)

	c, err := svc.Create(ctx, operator, CreateRequest{
		Name: "Launch", Subject: "s", Content: "c", TargetingType: campaign.TargetAll,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Schedule(ctx, c.ID, time.Now().Add(-time.Hour)); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeValidation {
		t.Fatalf("expected validation error for a past time, got %v", err)
	}

	at := time.Now().Add(time.Hour).UTC()
	scheduled, err := svc.Schedule(ctx, c.ID, at)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if scheduled.Status != campaign.StatusScheduled || scheduled.ScheduledFor == nil {
		t.Fatalf("unexpected campaign %+v", scheduled)
	}

	// Scheduled campaigns are no longer editable.
	if _, err := svc.Update(ctx, c.ID, CreateRequest{Name: "Changed"}); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	cancelled, err := svc.Cancel(ctx, c.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != campaign.StatusCancelled || cancelled.ScheduledFor != nil {
		t.Fatalf("unexpected campaign %+v", cancelled)
	}
	if _, err := svc.Cancel(ctx, c.ID); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeConflict {
		t.Fatalf("expected conflict on double cancel, got %v", err)
	}

	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete cancelled: %v", err)
	}
}

func TestSendRendersPlaceholders(t *testing.T) {
	store := memory.New()
	sender := &captureSender{}
	svc := newService(store, sender)
	ctx := context.Background()
	seedAudience(t, store)

	c, err := svc.Create(ctx, operator, CreateRequest{
		Name:          "Welcome",
		Subject:       "Hello {{first_name}}",
		Content:       "<p>Hi {{first_name}}, you are {{email}}</p>",
		TargetingType: campaign.TargetCountry,
		TargetingFilters: map[string]interface{}{
			"country_code": "CI",
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sent, err := svc.Send(ctx, operator, c.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.Status != campaign.StatusSent || sent.SentCount != 1 || sent.FailedCount != 0 {
		t.Fatalf("unexpected campaign %+v", sent)
	}
	if len(sender.to) != 1 || sender.to[0] != "aya@example.com" {
		t.Fatalf("unexpected recipients %+v", sender.to)
	}
	if sender.subject[0] != "Hello Aya" {
		t.Fatalf("subject not rendered: %q", sender.subject[0])
	}
	if !strings.Contains(sender.body[0], "aya@example.com") {
		t.Fatalf("body not rendered: %q", sender.body[0])
	}

	if _, err := svc.Send(ctx, operator, c.ID); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeConflict {
		t.Fatalf("expected conflict on double send, got %v", err)
	}
}

func TestSendSegmentTargeting(t *testing.T) {
	store := memory.New()
	sender := &captureSender{}
	svc := newService(store, sender)
	ctx := context.Background()
	seedAudience(t, store)

	seg, err := store.CreateSegment(ctx, user.Segment{Name: "Beta testers"})
	if err != nil {
		t.Fatalf("create segment: %v", err)
	}
	for _, id := range []string{"user-2", "user-3"} {
		if err := store.AddSegmentMember(ctx, user.SegmentMember{SegmentID: seg.ID, UserID: id}); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}

	c, err := svc.Create(ctx, operator, CreateRequest{
		Name:          "Beta news",
		Subject:       "s",
		Content:       "c",
		TargetingType: campaign.TargetSegment,
		TargetingFilters: map[string]interface{}{
			"segment_id": seg.ID,
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sent, err := svc.Send(ctx, operator, c.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	// user-3 is blocked and stays out.
	if sent.SentCount != 1 || len(sender.to) != 1 || sender.to[0] != "ben@example.com" {
		t.Fatalf("unexpected delivery %+v %+v", sent, sender.to)
	}
}

func TestSendWithoutEmailSender(t *testing.T) {
	store := memory.New()
	svc := newService(store, nil)
	ctx := context.Background()
	seedAudience(t, store)

	c, err := svc.Create(ctx, operator, CreateRequest{
		Name: "n", Subject: "s", Content: "c", TargetingType: campaign.TargetAll,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Send(ctx, operator, c.ID); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeNotConfigured {
		t.Fatalf("expected not configured, got %v", err)
	}
}

func TestRunDue(t *testing.T) {
	store := memory.New()
	sender := &captureSender{}
	svc := newService(store, sender)
	ctx := context.Background()
	seedAudience(t, store)

	c, err := svc.Create(ctx, operator, CreateRequest{
		Name: "Digest", Subject: "s", Content: "c", TargetingType: campaign.TargetPremium,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Schedule(ctx, c.ID, time.Now().Add(time.Minute).UTC()); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	// Nothing is due yet.
	svc.RunDue(ctx)
	if len(sender.to) != 0 {
		t.Fatalf("campaign fired early")
	}

	svc.timeNow = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }
	svc.RunDue(ctx)
	if len(sender.to) != 1 || sender.to[0] != "ben@example.com" {
		t.Fatalf("due campaign not delivered: %+v", sender.to)
	}
	got, err := svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != campaign.StatusSent {
		t.Fatalf("unexpected status %s", got.Status)
	}
}

func TestTemplateDefaults(t *testing.T) {
	store := memory.New()
	svc := newService(store, nil)
	ctx := context.Background()
	seedAudience(t, store)

	tpl, err := svc.CreateEmailTemplate(ctx, operator, TemplateRequest{
		Name:    "Monthly digest",
		Subject: "Your month in review",
		Content: "<p>Here is what happened.</p>",
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	c, err := svc.Create(ctx, operator, CreateRequest{
		Name:          "March digest",
		TemplateID:    tpl.ID,
		TargetingType: campaign.TargetAll,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Subject != tpl.Subject || c.Content != tpl.Content {
		t.Fatalf("template defaults not applied: %+v", c)
	}
}
