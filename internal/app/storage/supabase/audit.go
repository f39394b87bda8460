package supabase

import (
	"context"
	"strings"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/audit"
	"github.com/nexus-partners/admin-backend/internal/app/domain/subscription"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/database"
)

func auditFilterQuery(f storage.AuditFilter) *database.Query {
	q := database.NewQuery()
	if len(f.Severities) > 0 {
		q = q.In("severity", f.Severities)
	}
	if len(f.EventTypes) > 0 {
		q = q.In("event_type", f.EventTypes)
	}
	if f.Actor != "" {
		q = q.Or("admin_id.eq." + f.Actor + ",user_id.eq." + f.Actor)
	}
	if f.StartDate != nil {
		q = q.Gte("created_at", f.StartDate.Format(time.RFC3339))
	}
	if f.EndDate != nil {
		q = q.Lte("created_at", f.EndDate.Format(time.RFC3339))
	}
	if pattern := searchPattern(f.Search); pattern != "" {
		q = q.Or(strings.Join([]string{
			"event_type.ilike." + pattern,
			"endpoint.ilike." + pattern,
			"ip_address.ilike." + pattern,
		}, ","))
	}
	return q
}

func (s *Store) AppendAuditEntry(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	row := map[string]interface{}{
		"event_type":  entry.EventType,
		"severity":    entry.Severity,
		"user_id":     entry.UserID,
		"admin_id":    entry.AdminID,
		"ip_address":  entry.IPAddress,
		"user_agent":  entry.UserAgent,
		"endpoint":    entry.Endpoint,
		"http_method": entry.HTTPMethod,
		"status_code": entry.StatusCode,
		"metadata":    entry.Metadata,
		"changes":     entry.Changes,
		"log_hash":    entry.LogHash,
	}
	var created audit.Entry
	if err := s.insertOne(ctx, tableAuditLogs, row, &created); err != nil {
		return audit.Entry{}, err
	}
	return created, nil
}

func (s *Store) ListAuditEntries(ctx context.Context, filter storage.AuditFilter) ([]audit.Entry, error) {
	q := auditFilterQuery(filter)
	if filter.Cursor != "" {
		q = q.Lt("created_at", filter.Cursor)
	}
	q = q.Order("created_at", true)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []audit.Entry
	if err := s.selectInto(ctx, tableAuditLogs, q.Encode(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CountAuditEntries(ctx context.Context, filter storage.AuditFilter) (int, error) {
	return s.client.Count(ctx, tableAuditLogs, auditFilterQuery(filter).Select("id").Encode())
}

func (s *Store) GetAuditEntry(ctx context.Context, id string) (audit.Entry, error) {
	var rows []audit.Entry
	q := database.NewQuery().Eq("id", id).Limit(1).Encode()
	if err := s.selectInto(ctx, tableAuditLogs, q, &rows); err != nil {
		return audit.Entry{}, err
	}
	if len(rows) == 0 {
		return audit.Entry{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) ListAuditByActor(ctx context.Context, actorID string, limit int) ([]audit.Entry, error) {
	q := database.NewQuery().
		Or("admin_id.eq." + actorID + ",user_id.eq." + actorID).
		Order("created_at", true)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []audit.Entry
	if err := s.selectInto(ctx, tableAuditLogs, q.Encode(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// SeveritySummary counts matching rows per severity with one count query
// each. PostgREST has no group-by, so four exact counts stand in for it.
func (s *Store) SeveritySummary(ctx context.Context, filter storage.AuditFilter) (map[string]int, error) {
	severities := []string{audit.SeverityLow, audit.SeverityMedium, audit.SeverityHigh, audit.SeverityCritical}
	summary := make(map[string]int, len(severities))
	for _, severity := range severities {
		scoped := filter
		scoped.Severities = []string{severity}
		count, err := s.CountAuditEntries(ctx, scoped)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			summary[severity] = count
		}
	}
	return summary, nil
}

func (s *Store) LastCriticalAt(ctx context.Context) (*time.Time, error) {
	q := database.NewQuery().
		Select("created_at").
		Eq("severity", audit.SeverityCritical).
		Order("created_at", true).
		Limit(1).
		Encode()
	var rows []struct {
		CreatedAt time.Time `json:"created_at"`
	}
	if err := s.selectInto(ctx, tableAuditLogs, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0].CreatedAt, nil
}

// AnalyticsStore ----------------------------------------------------------

func (s *Store) SignupDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	q := database.NewQuery().
		Select("created_at").
		Gte("created_at", from.Format(time.RFC3339)).
		Lte("created_at", to.Format(time.RFC3339)).
		Encode()
	var rows []struct {
		CreatedAt time.Time `json:"created_at"`
	}
	if err := s.selectInto(ctx, tableUserProfiles, q, &rows); err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.CreatedAt)
	}
	return out, nil
}

func (s *Store) CountryDistribution(ctx context.Context) (map[string]int, error) {
	q := database.NewQuery().Select("country_code").Encode()
	var rows []struct {
		CountryCode string `json:"country_code"`
	}
	if err := s.selectInto(ctx, tableUserProfiles, q, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, row := range rows {
		code := strings.ToUpper(row.CountryCode)
		if code == "" {
			code = "unknown"
		}
		out[code]++
	}
	return out, nil
}

func (s *Store) RevenueEvents(ctx context.Context, from time.Time) ([]subscription.HistoryEntry, error) {
	q := database.NewQuery().
		Gte("created_at", from.Format(time.RFC3339)).
		In("event_type", []string{subscription.EventGranted, subscription.EventRenewed}).
		Order("created_at", true).
		Encode()
	var rows []subscription.HistoryEntry
	if err := s.selectInto(ctx, tableHistory, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
