package memory

import (
	"context"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/moderation"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
)

func (s *Store) ListQueue(_ context.Context, filter storage.ModerationFilter) ([]moderation.QueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []moderation.QueueItem
	for _, item := range s.queue {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.AssignedTo != "" && item.AssignedTo != filter.AssignedTo {
			continue
		}
		if !afterCursor(item.CreatedAt, filter.Cursor) {
			continue
		}
		out = append(out, item)
	}
	sortByCreatedDesc(out, func(i moderation.QueueItem) time.Time { return i.CreatedAt })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) CountQueue(_ context.Context, status string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, item := range s.queue {
		if status == "" || item.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *Store) GetQueueItem(_ context.Context, id string) (moderation.QueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.queue[id]
	if !ok {
		return moderation.QueueItem{}, storage.ErrNotFound
	}
	return item, nil
}

func (s *Store) GetQueueItemByEntrepreneur(_ context.Context, entrepreneurID string) (moderation.QueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *moderation.QueueItem
	for id := range s.queue {
		item := s.queue[id]
		if item.EntrepreneurID != entrepreneurID {
			continue
		}
		if latest == nil || item.CreatedAt.After(latest.CreatedAt) {
			latest = &item
		}
	}
	if latest == nil {
		return moderation.QueueItem{}, storage.ErrNotFound
	}
	return *latest, nil
}

func (s *Store) CreateQueueItem(_ context.Context, item moderation.QueueItem) (moderation.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = newID()
	}
	if item.Status == "" {
		item.Status = moderation.StatusPending
	}
	item.CreatedAt = now()
	item.UpdatedAt = item.CreatedAt
	s.queue[item.ID] = item
	return item, nil
}

func (s *Store) UpdateQueueItem(_ context.Context, item moderation.QueueItem) (moderation.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.queue[item.ID]
	if !ok {
		if item.ID == "" {
			item.ID = newID()
		}
		if item.Status == "" {
			item.Status = moderation.StatusPending
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now()
		}
	} else {
		item.EntrepreneurID = existing.EntrepreneurID
		item.CreatedAt = existing.CreatedAt
	}
	item.UpdatedAt = now()
	item.Entrepreneur = nil
	item.AssigneeName = ""
	s.queue[item.ID] = item
	return item, nil
}

func (s *Store) ListResolvedSince(_ context.Context, since time.Time) ([]moderation.QueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []moderation.QueueItem
	for _, item := range s.queue {
		if item.ResolvedAt != nil && item.ResolvedAt.After(since) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *Store) CreateMacro(_ context.Context, m moderation.Macro) (moderation.Macro, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = newID()
	}
	m.CreatedAt = now()
	m.UpdatedAt = m.CreatedAt
	s.macros[m.ID] = m
	return m, nil
}

func (s *Store) ListMacros(_ context.Context) ([]moderation.Macro, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []moderation.Macro
	for _, m := range s.macros {
		out = append(out, m)
	}
	sortByCreatedDesc(out, func(m moderation.Macro) time.Time { return m.CreatedAt })
	return out, nil
}

func (s *Store) GetMacro(_ context.Context, id string) (moderation.Macro, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.macros[id]
	if !ok {
		return moderation.Macro{}, storage.ErrNotFound
	}
	return m, nil
}

func (s *Store) UpdateMacro(_ context.Context, m moderation.Macro) (moderation.Macro, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.macros[m.ID]
	if !ok {
		return moderation.Macro{}, storage.ErrNotFound
	}
	m.CreatedBy = existing.CreatedBy
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = now()
	s.macros[m.ID] = m
	return m, nil
}

func (s *Store) DeleteMacro(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.macros[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.macros, id)
	return nil
}

func (s *Store) GetEntrepreneur(_ context.Context, id string) (moderation.Entrepreneur, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entrepreneurs[id]
	if !ok {
		return moderation.Entrepreneur{}, storage.ErrNotFound
	}
	return e, nil
}

func (s *Store) UpdateEntrepreneur(_ context.Context, e moderation.Entrepreneur) (moderation.Entrepreneur, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.entrepreneurs[e.ID]
	if !ok {
		if e.ID == "" {
			e.ID = newID()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now()
		}
	} else {
		e.CreatedAt = existing.CreatedAt
	}
	e.UpdatedAt = now()
	s.entrepreneurs[e.ID] = e
	return e, nil
}

func (s *Store) ListEntrepreneursByIDs(_ context.Context, ids []string) ([]moderation.Entrepreneur, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]moderation.Entrepreneur, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.entrepreneurs[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) CountEntrepreneurs(_ context.Context, status string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, e := range s.entrepreneurs {
		if status == "" || e.Status == status {
			count++
		}
	}
	return count, nil
}
