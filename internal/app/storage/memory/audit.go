package memory

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/audit"
	"github.com/nexus-partners/admin-backend/internal/app/domain/subscription"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
)

func matchesAuditFilter(e audit.Entry, f storage.AuditFilter) bool {
	if len(f.Severities) > 0 && !containsString(f.Severities, e.Severity) {
		return false
	}
	if len(f.EventTypes) > 0 && !containsString(f.EventTypes, e.EventType) {
		return false
	}
	if f.Actor != "" && e.AdminID != f.Actor && e.UserID != f.Actor {
		return false
	}
	if f.StartDate != nil && e.CreatedAt.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.CreatedAt.After(*f.EndDate) {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(strings.TrimSpace(f.Search))
		haystack := strings.ToLower(e.EventType + " " + e.Endpoint + " " + e.IPAddress)
		if e.Metadata != nil {
			if raw, err := json.Marshal(e.Metadata); err == nil {
				haystack += " " + strings.ToLower(string(raw))
			}
		}
		if e.Changes != nil {
			if raw, err := json.Marshal(e.Changes); err == nil {
				haystack += " " + strings.ToLower(string(raw))
			}
		}
		for _, word := range strings.Fields(term) {
			if !strings.Contains(haystack, word) {
				return false
			}
		}
	}
	return true
}

func containsString(values []string, v string) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}

func (s *Store) AppendAuditEntry(_ context.Context, entry audit.Entry) (audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = newID()
	}
	entry.CreatedAt = now()
	s.auditLog = append(s.auditLog, entry)
	return entry, nil
}

func (s *Store) ListAuditEntries(_ context.Context, filter storage.AuditFilter) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Entry
	for _, e := range s.auditLog {
		if !matchesAuditFilter(e, filter) {
			continue
		}
		if !afterCursor(e.CreatedAt, filter.Cursor) {
			continue
		}
		out = append(out, e)
	}
	sortByCreatedDesc(out, func(e audit.Entry) time.Time { return e.CreatedAt })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) CountAuditEntries(_ context.Context, filter storage.AuditFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, e := range s.auditLog {
		if matchesAuditFilter(e, filter) {
			count++
		}
	}
	return count, nil
}

func (s *Store) GetAuditEntry(_ context.Context, id string) (audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.auditLog {
		if e.ID == id {
			return e, nil
		}
	}
	return audit.Entry{}, storage.ErrNotFound
}

func (s *Store) ListAuditByActor(_ context.Context, actorID string, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Entry
	for _, e := range s.auditLog {
		if e.AdminID == actorID || e.UserID == actorID {
			out = append(out, e)
		}
	}
	sortByCreatedDesc(out, func(e audit.Entry) time.Time { return e.CreatedAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) SeveritySummary(_ context.Context, filter storage.AuditFilter) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary := make(map[string]int)
	for _, e := range s.auditLog {
		if matchesAuditFilter(e, filter) {
			summary[e.Severity]++
		}
	}
	return summary, nil
}

func (s *Store) LastCriticalAt(_ context.Context) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *time.Time
	for i := range s.auditLog {
		e := s.auditLog[i]
		if e.Severity != audit.SeverityCritical {
			continue
		}
		if latest == nil || e.CreatedAt.After(*latest) {
			t := e.CreatedAt
			latest = &t
		}
	}
	return latest, nil
}

// AnalyticsStore ----------------------------------------------------------

func (s *Store) SignupDates(_ context.Context, from, to time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []time.Time
	for _, p := range s.profiles {
		if p.CreatedAt.Before(from) || p.CreatedAt.After(to) {
			continue
		}
		out = append(out, p.CreatedAt)
	}
	return out, nil
}

func (s *Store) CountryDistribution(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int)
	for _, p := range s.profiles {
		code := strings.ToUpper(p.CountryCode)
		if code == "" {
			code = "unknown"
		}
		out[code]++
	}
	return out, nil
}

func (s *Store) RevenueEvents(_ context.Context, from time.Time) ([]subscription.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []subscription.HistoryEntry
	for _, entries := range s.history {
		for _, e := range entries {
			if e.CreatedAt.Before(from) {
				continue
			}
			if e.EventType != subscription.EventGranted && e.EventType != subscription.EventRenewed {
				continue
			}
			out = append(out, e)
		}
	}
	sortByCreatedDesc(out, func(e subscription.HistoryEntry) time.Time { return e.CreatedAt })
	return out, nil
}
