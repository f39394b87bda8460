// Package subscription holds premium plans, coupons and the per-user
// subscription history ledger.
package subscription

import "time"

// History entry types.
const (
	EventGranted = "granted"
	EventRevoked = "revoked"
	EventExpired = "expired"
	EventRenewed = "renewed"
)

// Plan is a purchasable subscription tier.
type Plan struct {
	ID           string    `json:"id"`
	PlanCode     string    `json:"plan_code"`
	PlanName     string    `json:"plan_name"`
	Description  string    `json:"description,omitempty"`
	Price        float64   `json:"price"`
	Currency     string    `json:"currency"`
	DurationDays int       `json:"duration_days"`
	Features     []string  `json:"features"`
	IsActive     bool      `json:"is_active"`
	DisplayOrder int       `json:"display_order,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Coupon is a discount code applicable to one or more plans.
type Coupon struct {
	ID                string    `json:"id"`
	Code              string    `json:"code"`
	DiscountType      string    `json:"discount_type"` // percentage or fixed
	DiscountValue     float64   `json:"discount_value"`
	ValidFrom         time.Time `json:"valid_from"`
	ValidUntil        time.Time `json:"valid_until"`
	MaxUses           int       `json:"max_uses,omitempty"`
	UseCount          int       `json:"use_count"`
	UsageLimitPerUser int       `json:"usage_limit_per_user,omitempty"`
	ApplicablePlans   []string  `json:"applicable_plans,omitempty"`
	IsActive          bool      `json:"is_active"`
	CreatedBy         string    `json:"created_by,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HistoryEntry is one event in a user's subscription ledger.
type HistoryEntry struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	EventType        string     `json:"event_type"`
	PlanCode         string     `json:"plan_code,omitempty"`
	Tier             string     `json:"tier,omitempty"`
	DurationDays     int        `json:"duration_days,omitempty"`
	StartsAt         *time.Time `json:"starts_at,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	PaymentMethod    string     `json:"payment_method,omitempty"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	Amount           float64    `json:"amount,omitempty"`
	CouponCode       string     `json:"coupon_code,omitempty"`
	Reason           string     `json:"reason,omitempty"`
	PerformedBy      string     `json:"performed_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
