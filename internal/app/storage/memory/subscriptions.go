package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/subscription"
	"github.com/nexus-partners/admin-backend/internal/app/domain/user"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
)

func (s *Store) ListPlans(_ context.Context, includeInactive bool) ([]subscription.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []subscription.Plan
	for _, plan := range s.plans {
		if !includeInactive && !plan.IsActive {
			continue
		}
		out = append(out, plan)
	}
	sortByCreatedDesc(out, func(p subscription.Plan) time.Time { return p.CreatedAt })
	return out, nil
}

func (s *Store) GetPlanByCode(_ context.Context, code string) (subscription.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, plan := range s.plans {
		if plan.PlanCode == code {
			return plan, nil
		}
	}
	return subscription.Plan{}, storage.ErrNotFound
}

func (s *Store) CreatePlan(_ context.Context, plan subscription.Plan) (subscription.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.plans {
		if existing.PlanCode == plan.PlanCode {
			return subscription.Plan{}, fmt.Errorf("plan code %s already exists", plan.PlanCode)
		}
	}
	if plan.ID == "" {
		plan.ID = newID()
	}
	plan.CreatedAt = now()
	plan.UpdatedAt = plan.CreatedAt
	s.plans[plan.ID] = plan
	return plan, nil
}

func (s *Store) UpdatePlan(_ context.Context, plan subscription.Plan) (subscription.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.plans[plan.ID]
	if !ok {
		return subscription.Plan{}, storage.ErrNotFound
	}
	plan.PlanCode = existing.PlanCode
	plan.CreatedAt = existing.CreatedAt
	plan.UpdatedAt = now()
	s.plans[plan.ID] = plan
	return plan, nil
}

func (s *Store) CreateCoupon(_ context.Context, c subscription.Coupon) (subscription.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.coupons {
		if existing.Code == c.Code {
			return subscription.Coupon{}, fmt.Errorf("coupon code %s already exists", c.Code)
		}
	}
	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	s.coupons[c.ID] = c
	return c, nil
}

func (s *Store) ListCoupons(_ context.Context, activeOnly bool) ([]subscription.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []subscription.Coupon
	for _, c := range s.coupons {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	sortByCreatedDesc(out, func(c subscription.Coupon) time.Time { return c.CreatedAt })
	return out, nil
}

func (s *Store) GetCouponByCode(_ context.Context, code string) (subscription.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.coupons {
		if c.Code == code {
			return c, nil
		}
	}
	return subscription.Coupon{}, storage.ErrNotFound
}

func (s *Store) UpdateCoupon(_ context.Context, c subscription.Coupon) (subscription.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.coupons[c.ID]
	if !ok {
		return subscription.Coupon{}, storage.ErrNotFound
	}
	c.Code = existing.Code
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = now()
	s.coupons[c.ID] = c
	return c, nil
}

func (s *Store) AppendHistory(_ context.Context, entry subscription.HistoryEntry) (subscription.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = newID()
	}
	entry.CreatedAt = now()
	s.history[entry.UserID] = append(s.history[entry.UserID], entry)
	return entry, nil
}

func (s *Store) ListHistory(_ context.Context, userID string) ([]subscription.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]subscription.HistoryEntry(nil), s.history[userID]...)
	sortByCreatedDesc(out, func(e subscription.HistoryEntry) time.Time { return e.CreatedAt })
	return out, nil
}

func (s *Store) ListExpiring(_ context.Context, before time.Time) ([]user.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []user.Profile
	for _, p := range s.profiles {
		if p.IsPremium && p.PremiumUntil != nil && p.PremiumUntil.Before(before) && p.PremiumUntil.After(time.Now().UTC()) {
			out = append(out, p)
		}
	}
	sortByCreatedDesc(out, func(p user.Profile) time.Time { return p.CreatedAt })
	return out, nil
}
