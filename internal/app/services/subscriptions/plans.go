package subscriptions

import (
	"context"
	"strings"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/subscription"
	"github.com/nexus-partners/admin-backend/internal/errors"
)

// ListPlans returns subscription plans in display order.
func (s *Service) ListPlans(ctx context.Context, includeInactive bool) ([]subscription.Plan, error) {
	plans, err := s.store.ListPlans(ctx, includeInactive)
	if err != nil {
		return nil, errors.Internal("failed to list plans", err)
	}
	return plans, nil
}

// CreatePlan registers a new purchasable plan.
func (s *Service) CreatePlan(ctx context.Context, plan subscription.Plan) (subscription.Plan, error) {
	plan.PlanCode = strings.TrimSpace(strings.ToLower(plan.PlanCode))
	plan.PlanName = strings.TrimSpace(plan.PlanName)
	if plan.PlanCode == "" || plan.PlanName == "" {
		return subscription.Plan{}, errors.Validation("plan_code and plan_name are required")
	}
	if plan.Price < 0 {
		return subscription.Plan{}, errors.Validation("price must not be negative")
	}
	if plan.DurationDays <= 0 {
		return subscription.Plan{}, errors.Validation("duration_days must be positive")
	}
	if plan.Currency == "" {
		plan.Currency = "USD"
	}
	if _, err := s.store.GetPlanByCode(ctx, plan.PlanCode); err == nil {
		return subscription.Plan{}, errors.Conflict("a plan with this code already exists")
	}
	created, err := s.store.CreatePlan(ctx, plan)
	if err != nil {
		return subscription.Plan{}, errors.Internal("failed to create plan", err)
	}
	return created, nil
}

// UpdatePlan patches an existing plan. The plan code itself is immutable.
func (s *Service) UpdatePlan(ctx context.Context, code string, patch subscription.Plan) (subscription.Plan, error) {
	plan, err := s.store.GetPlanByCode(ctx, code)
	if err != nil {
		return subscription.Plan{}, errors.NotFound("plan")
	}
	if name := strings.TrimSpace(patch.PlanName); name != "" {
		plan.PlanName = name
	}
	if patch.Description != "" {
		plan.Description = patch.Description
	}
	if patch.Price > 0 {
		plan.Price = patch.Price
	}
	if patch.Currency != "" {
		plan.Currency = patch.Currency
	}
	if patch.DurationDays > 0 {
		plan.DurationDays = patch.DurationDays
	}
	if patch.Features != nil {
		plan.Features = patch.Features
	}
	if patch.DisplayOrder > 0 {
		plan.DisplayOrder = patch.DisplayOrder
	}
	plan.IsActive = patch.IsActive
	updated, err := s.store.UpdatePlan(ctx, plan)
	if err != nil {
		return subscription.Plan{}, errors.Internal("failed to update plan", err)
	}
	return updated, nil
}

// CouponRequest creates a discount code.
type CouponRequest struct {
	Code              string    `json:"code"`
	DiscountType      string    `json:"discount_type"`
	DiscountValue     float64   `json:"discount_value"`
	ValidFrom         time.Time `json:"valid_from"`
	ValidUntil        time.Time `json:"valid_until"`
	MaxUses           int       `json:"max_uses,omitempty"`
	UsageLimitPerUser int       `json:"usage_limit_per_user,omitempty"`
	ApplicablePlans   []string  `json:"applicable_plans,omitempty"`
}

// CreateCoupon registers a discount code.
func (s *Service) CreateCoupon(ctx context.Context, operator admin.Profile, req CouponRequest) (subscription.Coupon, error) {
	req.Code = strings.TrimSpace(strings.ToUpper(req.Code))
	if req.Code == "" {
		return subscription.Coupon{}, errors.Validation("code is required")
	}
	switch req.DiscountType {
	case "percentage":
		if req.DiscountValue <= 0 || req.DiscountValue > 100 {
			return subscription.Coupon{}, errors.Validation("percentage discount must be between 0 and 100")
		}
	case "fixed":
		if req.DiscountValue <= 0 {
			return subscription.Coupon{}, errors.Validation("fixed discount must be positive")
		}
	default:
		return subscription.Coupon{}, errors.Validation("discount_type must be percentage or fixed")
	}
	if !req.ValidUntil.After(req.ValidFrom) {
		return subscription.Coupon{}, errors.Validation("valid_until must be after valid_from")
	}
	if _, err := s.store.GetCouponByCode(ctx, req.Code); err == nil {
		return subscription.Coupon{}, errors.Conflict("a coupon with this code already exists")
	}

	created, err := s.store.CreateCoupon(ctx, subscription.Coupon{
		Code:              req.Code,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		ValidFrom:         req.ValidFrom,
		ValidUntil:        req.ValidUntil,
		MaxUses:           req.MaxUses,
		UsageLimitPerUser: req.UsageLimitPerUser,
		ApplicablePlans:   req.ApplicablePlans,
		IsActive:          true,
		CreatedBy:         operator.UserID,
	})
	if err != nil {
		return subscription.Coupon{}, errors.Internal("failed to create coupon", err)
	}
	return created, nil
}

// ListCoupons returns discount codes, optionally only currently active ones.
func (s *Service) ListCoupons(ctx context.Context, activeOnly bool) ([]subscription.Coupon, error) {
	coupons, err := s.store.ListCoupons(ctx, activeOnly)
	if err != nil {
		return nil, errors.Internal("failed to list coupons", err)
	}
	return coupons, nil
}

// DeactivateCoupon turns a discount code off without deleting its usage
// history.
func (s *Service) DeactivateCoupon(ctx context.Context, code string) (subscription.Coupon, error) {
	coupon, err := s.store.GetCouponByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return subscription.Coupon{}, errors.NotFound("coupon")
	}
	if !coupon.IsActive {
		return subscription.Coupon{}, errors.Conflict("coupon is already inactive")
	}
	coupon.IsActive = false
	updated, err := s.store.UpdateCoupon(ctx, coupon)
	if err != nil {
		return subscription.Coupon{}, errors.Internal("failed to deactivate coupon", err)
	}
	return updated, nil
}
