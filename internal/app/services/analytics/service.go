// Package analytics answers aggregate questions about the platform:
// dashboard KPIs, signup growth, geography, revenue and dataset exports.
package analytics

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	auditdomain "github.com/nexus-partners/admin-backend/internal/app/domain/audit"
	"github.com/nexus-partners/admin-backend/internal/app/domain/message"
	"github.com/nexus-partners/admin-backend/internal/app/domain/moderation"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/pkg/logger"

	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
)

// Service answers reporting queries.
type Service struct {
	store   storage.Store
	audits  *auditsvc.Service
	log     *logger.Logger
	timeNow func() time.Time
}

// New constructs an analytics service.
func New(store storage.Store, audits *auditsvc.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("analytics")
	}
	return &Service{
		store:   store,
		audits:  audits,
		log:     log,
		timeNow: func() time.Time { return time.Now().UTC() },
	}
}

// Dashboard returns the headline KPIs.
func (s *Service) Dashboard(ctx context.Context) (map[string]interface{}, error) {
	now := s.timeNow()
	yes := true

	total, err := s.store.CountProfiles(ctx, storage.UserFilter{})
	if err != nil {
		return nil, errors.Internal("failed to compute dashboard", err)
	}
	premium, err := s.store.CountProfiles(ctx, storage.UserFilter{IsPremium: &yes})
	if err != nil {
		return nil, errors.Internal("failed to compute dashboard", err)
	}
	blocked, err := s.store.CountProfiles(ctx, storage.UserFilter{IsBlocked: &yes})
	if err != nil {
		return nil, errors.Internal("failed to compute dashboard", err)
	}

	last7, err := s.store.SignupDates(ctx, now.AddDate(0, 0, -7), now)
	if err != nil {
		return nil, errors.Internal("failed to compute dashboard", err)
	}
	last30, err := s.store.SignupDates(ctx, now.AddDate(0, 0, -30), now)
	if err != nil {
		return nil, errors.Internal("failed to compute dashboard", err)
	}

	pendingModeration, err := s.store.CountQueue(ctx, moderation.StatusPending)
	if err != nil {
		return nil, errors.Internal("failed to compute dashboard", err)
	}
	newMessages, err := s.store.CountMessages(ctx, message.StatusNew)
	if err != nil {
		return nil, errors.Internal("failed to compute dashboard", err)
	}

	conversion := 0.0
	if total > 0 {
		conversion = float64(premium) / float64(total) * 100
	}
	return map[string]interface{}{
		"total_users":        total,
		"premium_users":      premium,
		"blocked_users":      blocked,
		"conversion_rate":    conversion,
		"signups_7_days":     len(last7),
		"signups_30_days":    len(last30),
		"pending_moderation": pendingModeration,
		"new_messages":       newMessages,
		"generated_at":       now.Format(time.RFC3339),
	}, nil
}

// GrowthPoint is one day's signup count.
type GrowthPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// UserGrowth returns daily signup counts over the last N days, zero-filled.
func (s *Service) UserGrowth(ctx context.Context, days int) ([]GrowthPoint, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	now := s.timeNow()
	from := now.AddDate(0, 0, -days)

	dates, err := s.store.SignupDates(ctx, from, now)
	if err != nil {
		return nil, errors.Internal("failed to compute user growth", err)
	}
	perDay := make(map[string]int)
	for _, d := range dates {
		perDay[d.Format("2006-01-02")]++
	}

	out := make([]GrowthPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		out = append(out, GrowthPoint{Date: day, Count: perDay[day]})
	}
	return out, nil
}

// GeoEntry is one country's user count.
type GeoEntry struct {
	CountryCode string  `json:"country_code"`
	Count       int     `json:"count"`
	Percentage  float64 `json:"percentage"`
}

// Geography returns the user distribution by country, largest first.
func (s *Service) Geography(ctx context.Context) ([]GeoEntry, error) {
	dist, err := s.store.CountryDistribution(ctx)
	if err != nil {
		return nil, errors.Internal("failed to compute geography", err)
	}
	total := 0
	for _, n := range dist {
		total += n
	}
	out := make([]GeoEntry, 0, len(dist))
	for code, n := range dist {
		pct := 0.0
		if total > 0 {
			pct = float64(n) / float64(total) * 100
		}
		out = append(out, GeoEntry{CountryCode: code, Count: n, Percentage: pct})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].CountryCode < out[j].CountryCode
	})
	return out, nil
}

// RevenuePoint is one month's subscription revenue.
type RevenuePoint struct {
	Month  string             `json:"month"`
	Total  float64            `json:"total"`
	ByTier map[string]float64 `json:"by_tier"`
	Events int                `json:"events"`
}

// Revenue aggregates grant and renewal amounts by month and tier over the
// last N months.
func (s *Service) Revenue(ctx context.Context, months int) ([]RevenuePoint, error) {
	if months <= 0 || months > 24 {
		months = 6
	}
	now := s.timeNow()
	from := now.AddDate(0, -months, 0)

	events, err := s.store.RevenueEvents(ctx, from)
	if err != nil {
		return nil, errors.Internal("failed to compute revenue", err)
	}

	byMonth := make(map[string]*RevenuePoint)
	for _, e := range events {
		month := e.CreatedAt.Format("2006-01")
		point, ok := byMonth[month]
		if !ok {
			point = &RevenuePoint{Month: month, ByTier: make(map[string]float64)}
			byMonth[month] = point
		}
		point.Total += e.Amount
		point.Events++
		tier := e.Tier
		if tier == "" {
			tier = "premium"
		}
		point.ByTier[tier] += e.Amount
	}

	out := make([]RevenuePoint, 0, months)
	for i := months - 1; i >= 0; i-- {
		month := now.AddDate(0, -i, 0).Format("2006-01")
		if point, ok := byMonth[month]; ok {
			out = append(out, *point)
		} else {
			out = append(out, RevenuePoint{Month: month, ByTier: map[string]float64{}})
		}
	}
	return out, nil
}

// ContentStats summarizes entrepreneur submissions by status.
func (s *Service) ContentStats(ctx context.Context) (map[string]interface{}, error) {
	byStatus := make(map[string]int)
	for _, status := range []string{"pending", "approved", "rejected"} {
		n, err := s.store.CountEntrepreneurs(ctx, status)
		if err != nil {
			return nil, errors.Internal("failed to compute content stats", err)
		}
		byStatus[status] = n
	}
	total, err := s.store.CountEntrepreneurs(ctx, "")
	if err != nil {
		return nil, errors.Internal("failed to compute content stats", err)
	}
	return map[string]interface{}{
		"entrepreneurs":       total,
		"entrepreneur_status": byStatus,
	}, nil
}

// Overview bundles the dashboard, geography and content stats into a single
// payload.
func (s *Service) Overview(ctx context.Context) (map[string]interface{}, error) {
	dashboard, err := s.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	geo, err := s.Geography(ctx)
	if err != nil {
		return nil, err
	}
	content, err := s.ContentStats(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"dashboard": dashboard,
		"geography": geo,
		"content":   content,
	}, nil
}

// Export renders a named dataset as CSV, prefixed with a line carrying the
// SHA-256 of the content, and records the export as a critical event.
// Supported datasets: growth, geography, revenue.
func (s *Service) Export(ctx context.Context, operator admin.Profile, dataset string) (string, string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	switch dataset {
	case "growth":
		points, err := s.UserGrowth(ctx, 90)
		if err != nil {
			return "", "", err
		}
		if err := w.Write([]string{"date", "signups"}); err != nil {
			return "", "", errors.Internal("failed to render export", err)
		}
		for _, p := range points {
			if err := w.Write([]string{p.Date, strconv.Itoa(p.Count)}); err != nil {
				return "", "", errors.Internal("failed to render export", err)
			}
		}
	case "geography":
		entries, err := s.Geography(ctx)
		if err != nil {
			return "", "", err
		}
		if err := w.Write([]string{"country_code", "users", "percentage"}); err != nil {
			return "", "", errors.Internal("failed to render export", err)
		}
		for _, e := range entries {
			row := []string{e.CountryCode, strconv.Itoa(e.Count), strconv.FormatFloat(e.Percentage, 'f', 2, 64)}
			if err := w.Write(row); err != nil {
				return "", "", errors.Internal("failed to render export", err)
			}
		}
	case "revenue":
		points, err := s.Revenue(ctx, 12)
		if err != nil {
			return "", "", err
		}
		if err := w.Write([]string{"month", "total", "events"}); err != nil {
			return "", "", errors.Internal("failed to render export", err)
		}
		for _, p := range points {
			row := []string{p.Month, strconv.FormatFloat(p.Total, 'f', 2, 64), strconv.Itoa(p.Events)}
			if err := w.Write(row); err != nil {
				return "", "", errors.Internal("failed to render export", err)
			}
		}
	default:
		return "", "", errors.Validation("dataset must be growth, geography or revenue")
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", "", errors.Internal("failed to render export", err)
	}

	content := sb.String()
	sum := sha256.Sum256([]byte(content))
	exportHash := hex.EncodeToString(sum[:])
	signed := fmt.Sprintf("# Export Hash: %s\n%s", exportHash, content)

	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventDataExported,
		AdminID:   operator.UserID,
		Metadata: map[string]interface{}{
			"resource":    "analytics/" + dataset,
			"export_hash": exportHash,
		},
	})

	filename := fmt.Sprintf("analytics_%s_%s.csv", dataset, s.timeNow().Format("20060102_150405"))
	return signed, filename, nil
}
