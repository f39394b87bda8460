package supabase

import (
	"context"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/subscription"
	"github.com/nexus-partners/admin-backend/internal/app/domain/user"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/database"
)

func (s *Store) ListPlans(ctx context.Context, includeInactive bool) ([]subscription.Plan, error) {
	q := database.NewQuery()
	if !includeInactive {
		q = q.Eq("is_active", "true")
	}
	q = q.Order("display_order", false)
	var rows []subscription.Plan
	if err := s.selectInto(ctx, tablePlans, q.Encode(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) GetPlanByCode(ctx context.Context, code string) (subscription.Plan, error) {
	var rows []subscription.Plan
	q := database.NewQuery().Eq("plan_code", code).Limit(1).Encode()
	if err := s.selectInto(ctx, tablePlans, q, &rows); err != nil {
		return subscription.Plan{}, err
	}
	if len(rows) == 0 {
		return subscription.Plan{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) CreatePlan(ctx context.Context, plan subscription.Plan) (subscription.Plan, error) {
	row := map[string]interface{}{
		"plan_code":     plan.PlanCode,
		"plan_name":     plan.PlanName,
		"description":   plan.Description,
		"price":         plan.Price,
		"currency":      plan.Currency,
		"duration_days": plan.DurationDays,
		"features":      plan.Features,
		"is_active":     plan.IsActive,
		"display_order": plan.DisplayOrder,
	}
	var created subscription.Plan
	if err := s.insertOne(ctx, tablePlans, row, &created); err != nil {
		return subscription.Plan{}, err
	}
	return created, nil
}

func (s *Store) UpdatePlan(ctx context.Context, plan subscription.Plan) (subscription.Plan, error) {
	q := database.NewQuery().Eq("id", plan.ID).Encode()
	patch := map[string]interface{}{
		"plan_name":     plan.PlanName,
		"description":   plan.Description,
		"price":         plan.Price,
		"currency":      plan.Currency,
		"duration_days": plan.DurationDays,
		"features":      plan.Features,
		"is_active":     plan.IsActive,
		"display_order": plan.DisplayOrder,
		"updated_at":    time.Now().UTC(),
	}
	var updated subscription.Plan
	if err := s.updateOne(ctx, tablePlans, patch, q, &updated); err != nil {
		return subscription.Plan{}, err
	}
	return updated, nil
}

func (s *Store) CreateCoupon(ctx context.Context, c subscription.Coupon) (subscription.Coupon, error) {
	row := map[string]interface{}{
		"code":                 c.Code,
		"discount_type":        c.DiscountType,
		"discount_value":       c.DiscountValue,
		"valid_from":           c.ValidFrom,
		"valid_until":          c.ValidUntil,
		"max_uses":             c.MaxUses,
		"usage_limit_per_user": c.UsageLimitPerUser,
		"applicable_plans":     c.ApplicablePlans,
		"is_active":            c.IsActive,
		"created_by":           c.CreatedBy,
	}
	var created subscription.Coupon
	if err := s.insertOne(ctx, tableCoupons, row, &created); err != nil {
		return subscription.Coupon{}, err
	}
	return created, nil
}

func (s *Store) ListCoupons(ctx context.Context, activeOnly bool) ([]subscription.Coupon, error) {
	q := database.NewQuery()
	if activeOnly {
		q = q.Eq("is_active", "true")
	}
	q = q.Order("created_at", true)
	var rows []subscription.Coupon
	if err := s.selectInto(ctx, tableCoupons, q.Encode(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) GetCouponByCode(ctx context.Context, code string) (subscription.Coupon, error) {
	var rows []subscription.Coupon
	q := database.NewQuery().Eq("code", code).Limit(1).Encode()
	if err := s.selectInto(ctx, tableCoupons, q, &rows); err != nil {
		return subscription.Coupon{}, err
	}
	if len(rows) == 0 {
		return subscription.Coupon{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) UpdateCoupon(ctx context.Context, c subscription.Coupon) (subscription.Coupon, error) {
	q := database.NewQuery().Eq("id", c.ID).Encode()
	patch := map[string]interface{}{
		"discount_type":        c.DiscountType,
		"discount_value":       c.DiscountValue,
		"valid_from":           c.ValidFrom,
		"valid_until":          c.ValidUntil,
		"max_uses":             c.MaxUses,
		"usage_limit_per_user": c.UsageLimitPerUser,
		"applicable_plans":     c.ApplicablePlans,
		"is_active":            c.IsActive,
		"updated_at":           time.Now().UTC(),
	}
	var updated subscription.Coupon
	if err := s.updateOne(ctx, tableCoupons, patch, q, &updated); err != nil {
		return subscription.Coupon{}, err
	}
	return updated, nil
}

func (s *Store) AppendHistory(ctx context.Context, entry subscription.HistoryEntry) (subscription.HistoryEntry, error) {
	row := map[string]interface{}{
		"user_id":           entry.UserID,
		"event_type":        entry.EventType,
		"plan_code":         entry.PlanCode,
		"tier":              entry.Tier,
		"duration_days":     entry.DurationDays,
		"starts_at":         entry.StartsAt,
		"expires_at":        entry.ExpiresAt,
		"payment_method":    entry.PaymentMethod,
		"payment_reference": entry.PaymentReference,
		"amount":            entry.Amount,
		"coupon_code":       entry.CouponCode,
		"reason":            entry.Reason,
		"performed_by":      entry.PerformedBy,
	}
	var created subscription.HistoryEntry
	if err := s.insertOne(ctx, tableHistory, row, &created); err != nil {
		return subscription.HistoryEntry{}, err
	}
	return created, nil
}

func (s *Store) ListHistory(ctx context.Context, userID string) ([]subscription.HistoryEntry, error) {
	q := database.NewQuery().Eq("user_id", userID).Order("created_at", true).Encode()
	var rows []subscription.HistoryEntry
	if err := s.selectInto(ctx, tableHistory, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListExpiring(ctx context.Context, before time.Time) ([]user.Profile, error) {
	q := database.NewQuery().
		Eq("is_premium", "true").
		Gt("premium_until", time.Now().UTC().Format(time.RFC3339)).
		Lt("premium_until", before.Format(time.RFC3339)).
		Order("premium_until", false).
		Encode()
	var rows []user.Profile
	if err := s.selectInto(ctx, tableUserProfiles, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
