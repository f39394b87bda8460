package memory

import (
	"context"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/message"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
)

func (s *Store) ListMessages(_ context.Context, filter storage.MessageFilter) ([]message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []message.Message
	for _, msg := range s.messages {
		if filter.Status != "" && msg.Status != filter.Status {
			continue
		}
		if filter.AssignedTo != "" && msg.AssignedTo != filter.AssignedTo {
			continue
		}
		if filter.Category != "" && msg.Category != filter.Category {
			continue
		}
		if !afterCursor(msg.CreatedAt, filter.Cursor) {
			continue
		}
		out = append(out, msg)
	}
	sortByCreatedDesc(out, func(m message.Message) time.Time { return m.CreatedAt })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) CountMessages(_ context.Context, status string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, msg := range s.messages {
		if status == "" || msg.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *Store) GetMessage(_ context.Context, id string) (message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	if !ok {
		return message.Message{}, storage.ErrNotFound
	}
	return msg, nil
}

func (s *Store) UpdateMessage(_ context.Context, msg message.Message) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.messages[msg.ID]
	if !ok {
		if msg.ID == "" {
			msg.ID = newID()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now()
		}
	} else {
		msg.CreatedAt = existing.CreatedAt
	}
	msg.UpdatedAt = now()
	s.messages[msg.ID] = msg
	return msg, nil
}

func (s *Store) CreateTemplate(_ context.Context, t message.Template) (message.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = newID()
	}
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt
	s.msgTemplates[t.ID] = t
	return t, nil
}

func (s *Store) ListTemplates(_ context.Context) ([]message.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []message.Template
	for _, t := range s.msgTemplates {
		out = append(out, t)
	}
	sortByCreatedDesc(out, func(t message.Template) time.Time { return t.CreatedAt })
	return out, nil
}

func (s *Store) GetTemplate(_ context.Context, id string) (message.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.msgTemplates[id]
	if !ok {
		return message.Template{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) UpdateTemplate(_ context.Context, t message.Template) (message.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.msgTemplates[t.ID]
	if !ok {
		return message.Template{}, storage.ErrNotFound
	}
	t.CreatedBy = existing.CreatedBy
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = now()
	s.msgTemplates[t.ID] = t
	return t, nil
}

func (s *Store) DeleteTemplate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.msgTemplates[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.msgTemplates, id)
	return nil
}
