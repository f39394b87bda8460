package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/subscription"
	"github.com/nexus-partners/admin-backend/internal/app/domain/user"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	"github.com/nexus-partners/admin-backend/internal/app/storage/memory"
	"github.com/nexus-partners/admin-backend/internal/errors"
)

var operator = admin.Profile{UserID: "admin-1", Role: admin.RoleAdmin, MFAVerified: true}

func newService(store *memory.Store) *Service {
	return New(store, nil, auditsvc.New(store, store, nil), nil)
}

func seedUser(t *testing.T, store *memory.Store, id string) {
	t.Helper()
	if _, err := store.UpdateProfile(context.Background(), user.Profile{UserID: id}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestGrantWithDuration(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedUser(t, store, "user-1")

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.timeNow = func() time.Time { return fixed }

	profile, err := svc.Grant(ctx, operator, "user-1", GrantRequest{DurationDays: 30, Reason: "goodwill"})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !profile.IsPremium || profile.SubscriptionTier != "premium" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	want := fixed.AddDate(0, 0, 30)
	if profile.PremiumUntil == nil || !profile.PremiumUntil.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, profile.PremiumUntil)
	}

	// A second grant extends from the current expiry, not from now.
	profile, err = svc.Grant(ctx, operator, "user-1", GrantRequest{DurationDays: 10})
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	want = want.AddDate(0, 0, 10)
	if profile.PremiumUntil == nil || !profile.PremiumUntil.Equal(want) {
		t.Fatalf("expected extended expiry %v, got %v", want, profile.PremiumUntil)
	}

	history, err := svc.History(ctx, "user-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(history))
	}
	if history[0].EventType != subscription.EventRenewed && history[1].EventType != subscription.EventRenewed {
		t.Fatalf("extension not recorded as renewal: %+v", history)
	}
}

func TestGrantWithPlan(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedUser(t, store, "user-1")

	plan, err := svc.CreatePlan(ctx, subscription.Plan{
		PlanCode:     "Gold",
		PlanName:     "Gold",
		Price:        15000,
		Currency:     "XOF",
		DurationDays: 90,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if plan.PlanCode != "gold" {
		t.Fatalf("plan code not normalized: %q", plan.PlanCode)
	}

	profile, err := svc.Grant(ctx, operator, "user-1", GrantRequest{PlanCode: "gold"})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if profile.SubscriptionTier != "gold" {
		t.Fatalf("tier not taken from plan: %q", profile.SubscriptionTier)
	}

	if _, err := svc.Grant(ctx, operator, "user-1", GrantRequest{}); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeValidation {
		t.Fatalf("expected validation error without plan or duration, got %v", err)
	}
	if _, err := svc.Grant(ctx, operator, "user-1", GrantRequest{PlanCode: "missing"}); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeNotFound {
		t.Fatalf("expected not found for unknown plan, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedUser(t, store, "user-1")

	if _, err := svc.Revoke(ctx, operator, "user-1", "never premium"); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, err := svc.Grant(ctx, operator, "user-1", GrantRequest{DurationDays: 30}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	profile, err := svc.Revoke(ctx, operator, "user-1", "refund")
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if profile.IsPremium || profile.PremiumUntil != nil || profile.SubscriptionTier != "" {
		t.Fatalf("premium state not cleared: %+v", profile)
	}
}

func TestCouponLifecycle(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	seedUser(t, store, "user-1")

	now := time.Now().UTC()
	coupon, err := svc.CreateCoupon(ctx, operator, CouponRequest{
		Code:          "launch10",
		DiscountType:  "percentage",
		DiscountValue: 10,
		ValidFrom:     now.Add(-time.Hour),
		ValidUntil:    now.Add(24 * time.Hour),
		MaxUses:       1,
	})
	if err != nil {
		t.Fatalf("create coupon: %v", err)
	}
	if coupon.Code != "LAUNCH10" {
		t.Fatalf("code not normalized: %q", coupon.Code)
	}

	if _, err := svc.Grant(ctx, operator, "user-1", GrantRequest{DurationDays: 30, CouponCode: "LAUNCH10"}); err != nil {
		t.Fatalf("grant with coupon: %v", err)
	}

	// The single use is spent.
	if _, err := svc.Grant(ctx, operator, "user-1", GrantRequest{DurationDays: 30, CouponCode: "LAUNCH10"}); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeValidation {
		t.Fatalf("expected usage limit rejection, got %v", err)
	}

	deactivated, err := svc.DeactivateCoupon(ctx, "LAUNCH10")
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if deactivated.IsActive {
		t.Fatalf("coupon still active")
	}
	if _, err := svc.DeactivateCoupon(ctx, "LAUNCH10"); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeConflict {
		t.Fatalf("expected conflict on double deactivation, got %v", err)
	}
}

func TestCouponValidation(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()
	now := time.Now().UTC()

	cases := []CouponRequest{
		{Code: "", DiscountType: "fixed", DiscountValue: 5, ValidFrom: now, ValidUntil: now.Add(time.Hour)},
		{Code: "A", DiscountType: "percentage", DiscountValue: 150, ValidFrom: now, ValidUntil: now.Add(time.Hour)},
		{Code: "B", DiscountType: "fixed", DiscountValue: 0, ValidFrom: now, ValidUntil: now.Add(time.Hour)},
		{Code: "C", DiscountType: "lottery", DiscountValue: 5, ValidFrom: now, ValidUntil: now.Add(time.Hour)},
		{Code: "D", DiscountType: "fixed", DiscountValue: 5, ValidFrom: now.Add(time.Hour), ValidUntil: now},
	}
	for i, req := range cases {
		if _, err := svc.CreateCoupon(ctx, operator, req); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeValidation {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestDiscounted(t *testing.T) {
	if got := discounted(100, subscription.Coupon{DiscountType: "percentage", DiscountValue: 25}); got != 75 {
		t.Fatalf("percentage: got %v", got)
	}
	if got := discounted(100, subscription.Coupon{DiscountType: "fixed", DiscountValue: 30}); got != 70 {
		t.Fatalf("fixed: got %v", got)
	}
	if got := discounted(10, subscription.Coupon{DiscountType: "fixed", DiscountValue: 50}); got != 0 {
		t.Fatalf("floor: got %v", got)
	}
}

func TestExpiringSoon(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	soon := time.Now().UTC().AddDate(0, 0, 3)
	later := time.Now().UTC().AddDate(0, 0, 45)
	if _, err := store.UpdateProfile(ctx, user.Profile{UserID: "user-1", IsPremium: true, PremiumUntil: &soon}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.UpdateProfile(ctx, user.Profile{UserID: "user-2", IsPremium: true, PremiumUntil: &later}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	expiring, err := svc.ExpiringSoon(ctx, 7)
	if err != nil {
		t.Fatalf("expiring: %v", err)
	}
	if len(expiring) != 1 || expiring[0].UserID != "user-1" {
		t.Fatalf("unexpected result %+v", expiring)
	}
}

func TestPaymentLinkUnconfigured(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.CreatePaymentLink(ctx, operator, "user-1", PaymentLinkRequest{PlanCode: "gold"})
	if se := errors.GetServiceError(err); se == nil || se.Code != errors.CodeNotConfigured {
		t.Fatalf("expected not configured, got %v", err)
	}
}
