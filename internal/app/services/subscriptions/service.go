// Package subscriptions implements premium management: grants and
// revocations with a ledger, plans, coupons, payment links and expiry
// reporting.
package subscriptions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	auditdomain "github.com/nexus-partners/admin-backend/internal/app/domain/audit"
	"github.com/nexus-partners/admin-backend/internal/app/domain/subscription"
	"github.com/nexus-partners/admin-backend/internal/app/domain/user"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/gateway"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

// Service handles premium subscription administration.
type Service struct {
	store    storage.Store
	payments *gateway.MonerooClient
	audits   *auditsvc.Service
	log      *logger.Logger
	timeNow  func() time.Time
}

// New constructs a subscriptions service. The payment client may be nil when
// no gateway credentials are configured.
func New(store storage.Store, payments *gateway.MonerooClient, audits *auditsvc.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("subscriptions")
	}
	return &Service{
		store:    store,
		payments: payments,
		audits:   audits,
		log:      log,
		timeNow:  func() time.Time { return time.Now().UTC() },
	}
}

// GrantRequest extends or starts a user's premium access.
type GrantRequest struct {
	PlanCode     string  `json:"plan_code,omitempty"`
	Tier         string  `json:"tier,omitempty"`
	DurationDays int     `json:"duration_days,omitempty"`
	Amount       float64 `json:"amount,omitempty"`
	CouponCode   string  `json:"coupon_code,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}

// Grant gives a user premium access. With a plan code, tier and duration come
// from the plan; otherwise the request must carry an explicit duration.
// Active premium is extended from its current expiry, not from now.
func (s *Service) Grant(ctx context.Context, operator admin.Profile, userID string, req GrantRequest) (user.Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return user.Profile{}, errors.NotFound("user")
	}

	tier := strings.TrimSpace(req.Tier)
	duration := req.DurationDays
	if req.PlanCode != "" {
		plan, err := s.store.GetPlanByCode(ctx, req.PlanCode)
		if err != nil {
			return user.Profile{}, errors.NotFound("plan")
		}
		if !plan.IsActive {
			return user.Profile{}, errors.Validation("plan is inactive")
		}
		if tier == "" {
			tier = plan.PlanCode
		}
		if duration <= 0 {
			duration = plan.DurationDays
		}
	}
	if duration <= 0 {
		return user.Profile{}, errors.Validation("duration_days or an active plan_code is required")
	}
	if tier == "" {
		tier = "premium"
	}

	if req.CouponCode != "" {
		if _, err := s.redeemCoupon(ctx, req.CouponCode, req.PlanCode); err != nil {
			return user.Profile{}, err
		}
	}

	now := s.timeNow()
	start := now
	if profile.IsPremium && profile.PremiumUntil != nil && profile.PremiumUntil.After(now) {
		start = *profile.PremiumUntil
	}
	expiresAt := start.AddDate(0, 0, duration)

	profile.IsPremium = true
	profile.PremiumUntil = &expiresAt
	profile.SubscriptionTier = tier
	updated, err := s.store.UpdateProfile(ctx, profile)
	if err != nil {
		return user.Profile{}, errors.Internal("failed to grant premium", err)
	}

	eventType := subscription.EventGranted
	if start.After(now) {
		eventType = subscription.EventRenewed
	}
	if _, err := s.store.AppendHistory(ctx, subscription.HistoryEntry{
		UserID:       userID,
		EventType:    eventType,
		PlanCode:     req.PlanCode,
		Tier:         tier,
		DurationDays: duration,
		StartsAt:     &start,
		ExpiresAt:    &expiresAt,
		Amount:       req.Amount,
		CouponCode:   req.CouponCode,
		Reason:       strings.TrimSpace(req.Reason),
		PerformedBy:  operator.UserID,
	}); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("subscription ledger write failed")
	}

	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventSubscriptionGranted,
		AdminID:   operator.UserID,
		UserID:    userID,
		Metadata: map[string]interface{}{
			"tier":       tier,
			"days":       duration,
			"expires_at": expiresAt.Format(time.RFC3339),
		},
	})
	return updated, nil
}

// Revoke strips a user's premium access immediately.
func (s *Service) Revoke(ctx context.Context, operator admin.Profile, userID, reason string) (user.Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return user.Profile{}, errors.NotFound("user")
	}
	if !profile.IsPremium {
		return user.Profile{}, errors.Conflict("user has no active subscription")
	}

	previousTier := profile.SubscriptionTier
	profile.IsPremium = false
	profile.PremiumUntil = nil
	profile.SubscriptionTier = ""
	updated, err := s.store.UpdateProfile(ctx, profile)
	if err != nil {
		return user.Profile{}, errors.Internal("failed to revoke premium", err)
	}

	if _, err := s.store.AppendHistory(ctx, subscription.HistoryEntry{
		UserID:      userID,
		EventType:   subscription.EventRevoked,
		Tier:        previousTier,
		Reason:      strings.TrimSpace(reason),
		PerformedBy: operator.UserID,
	}); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("subscription ledger write failed")
	}

	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventSubscriptionRevoked,
		AdminID:   operator.UserID,
		UserID:    userID,
		Metadata:  map[string]interface{}{"previous_tier": previousTier, "reason": reason},
	})
	return updated, nil
}

// History returns a user's subscription ledger, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]subscription.HistoryEntry, error) {
	entries, err := s.store.ListHistory(ctx, userID)
	if err != nil {
		return nil, errors.Internal("failed to load subscription history", err)
	}
	return entries, nil
}

// ExpiringSoon returns premium users whose access lapses within the window.
func (s *Service) ExpiringSoon(ctx context.Context, days int) ([]user.Profile, error) {
	if days <= 0 {
		days = 7
	}
	profiles, err := s.store.ListExpiring(ctx, s.timeNow().AddDate(0, 0, days))
	if err != nil {
		return nil, errors.Internal("failed to list expiring subscriptions", err)
	}
	return profiles, nil
}

// PaymentLinkRequest asks the payment gateway for a checkout link.
type PaymentLinkRequest struct {
	PlanCode      string `json:"plan_code"`
	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name,omitempty"`
	CouponCode    string `json:"coupon_code,omitempty"`
}

// CreatePaymentLink builds a checkout link for a plan, applying a coupon
// discount when given.
func (s *Service) CreatePaymentLink(ctx context.Context, operator admin.Profile, userID string, req PaymentLinkRequest) (gateway.PaymentLink, error) {
	if s.payments == nil || !s.payments.Configured() {
		return gateway.PaymentLink{}, errors.NotConfigured("payment gateway")
	}
	plan, err := s.store.GetPlanByCode(ctx, req.PlanCode)
	if err != nil {
		return gateway.PaymentLink{}, errors.NotFound("plan")
	}
	if _, err := s.store.GetProfile(ctx, userID); err != nil {
		return gateway.PaymentLink{}, errors.NotFound("user")
	}

	amount := plan.Price
	if req.CouponCode != "" {
		coupon, err := s.redeemCoupon(ctx, req.CouponCode, plan.PlanCode)
		if err != nil {
			return gateway.PaymentLink{}, err
		}
		amount = discounted(amount, coupon)
	}

	link, err := s.payments.CreatePaymentLink(ctx, amount, plan.Currency,
		fmt.Sprintf("%s subscription", plan.PlanName),
		req.CustomerEmail, req.CustomerName,
		map[string]interface{}{
			"user_id":    userID,
			"plan_code":  plan.PlanCode,
			"created_by": operator.UserID,
		})
	if err != nil {
		return gateway.PaymentLink{}, errors.Unavailable("payment gateway request failed", err)
	}
	return link, nil
}

// VerifyPayment fetches a payment's status from the gateway.
func (s *Service) VerifyPayment(ctx context.Context, paymentID string) (gateway.PaymentStatus, error) {
	if s.payments == nil || !s.payments.Configured() {
		return gateway.PaymentStatus{}, errors.NotConfigured("payment gateway")
	}
	status, err := s.payments.VerifyPayment(ctx, paymentID)
	if err != nil {
		return gateway.PaymentStatus{}, errors.Unavailable("payment gateway request failed", err)
	}
	return status, nil
}

// Stats summarizes the premium population.
func (s *Service) Stats(ctx context.Context) (map[string]interface{}, error) {
	yes := true
	premium, err := s.store.CountProfiles(ctx, storage.UserFilter{IsPremium: &yes})
	if err != nil {
		return nil, errors.Internal("failed to compute subscription stats", err)
	}
	total, err := s.store.CountProfiles(ctx, storage.UserFilter{})
	if err != nil {
		return nil, errors.Internal("failed to compute subscription stats", err)
	}
	expiring, err := s.ExpiringSoon(ctx, 7)
	if err != nil {
		return nil, err
	}

	rate := 0.0
	if total > 0 {
		rate = float64(premium) / float64(total) * 100
	}
	return map[string]interface{}{
		"total_users":       total,
		"premium_users":     premium,
		"conversion_rate":   rate,
		"expiring_7_days":   len(expiring),
		"generated_at":      s.timeNow().Format(time.RFC3339),
	}, nil
}

func discounted(amount float64, coupon subscription.Coupon) float64 {
	switch coupon.DiscountType {
	case "percentage":
		amount -= amount * coupon.DiscountValue / 100
	case "fixed":
		amount -= coupon.DiscountValue
	}
	if amount < 0 {
		return 0
	}
	return amount
}

// redeemCoupon validates a coupon against its window, usage cap and plan
// scope, and bumps its use count.
func (s *Service) redeemCoupon(ctx context.Context, code, planCode string) (subscription.Coupon, error) {
	coupon, err := s.store.GetCouponByCode(ctx, code)
	if err != nil {
		return subscription.Coupon{}, errors.NotFound("coupon")
	}
	now := s.timeNow()
	if !coupon.IsActive || now.Before(coupon.ValidFrom) || now.After(coupon.ValidUntil) {
		return subscription.Coupon{}, errors.Validation("coupon is not currently valid")
	}
	if coupon.MaxUses > 0 && coupon.UseCount >= coupon.MaxUses {
		return subscription.Coupon{}, errors.Validation("coupon usage limit reached")
	}
	if len(coupon.ApplicablePlans) > 0 && planCode != "" {
		applicable := false
		for _, p := range coupon.ApplicablePlans {
			if p == planCode {
				applicable = true
				break
			}
		}
		if !applicable {
			return subscription.Coupon{}, errors.Validation("coupon does not apply to this plan")
		}
	}
	coupon.UseCount++
	if _, err := s.store.UpdateCoupon(ctx, coupon); err != nil {
		s.log.WithError(err).WithField("code", code).Warn("coupon use count update failed")
	}
	return coupon, nil
}
