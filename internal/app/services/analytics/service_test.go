package analytics

import (
	"context"
	"strings"
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
	return New(store, auditsvc.New(store, store, nil), nil)
}

func TestUserGrowthZeroFills(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	for _, id := range []string{"user-1", "user-2"} {
		if _, err := store.UpdateProfile(ctx, user.Profile{UserID: id}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	points, err := svc.UserGrowth(ctx, 7)
	if err != nil {
		t.Fatalf("growth: %v", err)
	}
	if len(points) != 7 {
		t.Fatalf("expected 7 points, got %d", len(points))
	}
	today := time.Now().UTC().Format("2006-01-02")
	last := points[len(points)-1]
	if last.Date != today || last.Count != 2 {
		t.Fatalf("unexpected last point %+v", last)
	}
	for _, p := range points[:len(points)-1] {
		if p.Count != 0 {
			t.Fatalf("expected zero-filled day, got %+v", p)
		}
	}

	// Out-of-range day counts fall back to the default window.
	points, err = svc.UserGrowth(ctx, 5000)
	if err != nil {
		t.Fatalf("growth: %v", err)
	}
	if len(points) != 30 {
		t.Fatalf("expected 30 points, got %d", len(points))
	}
}

func TestGeographySortsByCount(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	seed := map[string]string{
		"user-1": "CI",
		"user-2": "CI",
		"user-3": "SN",
		"user-4": "CI",
		"user-5": "SN",
		"user-6": "BF",
	}
	for id, code := range seed {
		if _, err := store.UpdateProfile(ctx, user.Profile{UserID: id, CountryCode: code}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	entries, err := svc.Geography(ctx)
	if err != nil {
		t.Fatalf("geography: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 countries, got %d", len(entries))
	}
	if entries[0].CountryCode != "CI" || entries[0].Count != 3 {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[0].Percentage != 50.0 {
		t.Fatalf("unexpected percentage %v", entries[0].Percentage)
	}
}

func TestRevenueGroupsByMonthAndTier(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	for _, e := range []subscription.HistoryEntry{
		{UserID: "user-1", EventType: subscription.EventGranted, Tier: "gold", Amount: 100},
		{UserID: "user-2", EventType: subscription.EventRenewed, Tier: "gold", Amount: 100},
		{UserID: "user-3", EventType: subscription.EventGranted, Amount: 50},
		{UserID: "user-4", EventType: subscription.EventRevoked, Amount: 999},
	} {
		if _, err := store.AppendHistory(ctx, e); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	points, err := svc.Revenue(ctx, 3)
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 months, got %d", len(points))
	}
	current := points[len(points)-1]
	if current.Total != 250 || current.Events != 3 {
		t.Fatalf("revocations must not count as revenue: %+v", current)
	}
	if current.ByTier["gold"] != 200 || current.ByTier["premium"] != 50 {
		t.Fatalf("unexpected tier split %+v", current.ByTier)
	}
}

func TestDashboard(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	if _, err := store.UpdateProfile(ctx, user.Profile{UserID: "user-1", IsPremium: true}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.UpdateProfile(ctx, user.Profile{UserID: "user-2", IsBlocked: true}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	dash, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash["total_users"] != 2 || dash["premium_users"] != 1 || dash["blocked_users"] != 1 {
		t.Fatalf("unexpected dashboard %+v", dash)
	}
	if dash["conversion_rate"] != 50.0 {
		t.Fatalf("unexpected conversion %v", dash["conversion_rate"])
	}
}

func TestExport(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	if _, err := store.UpdateProfile(ctx, user.Profile{UserID: "user-1", CountryCode: "CI"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	data, filename, err := svc.Export(ctx, operator, "geography")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(data, "# Export Hash: ") {
		t.Fatalf("export missing hash prefix")
	}
	if !strings.Contains(data, "country_code,users,percentage") {
		t.Fatalf("unexpected header in %q", data)
	}
	if !strings.HasPrefix(filename, "analytics_geography_") {
		t.Fatalf("unexpected filename %q", filename)
	}

	if _, _, err := svc.Export(ctx, operator, "secrets"); errors.GetServiceError(err) == nil || errors.GetServiceError(err).Code != errors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
