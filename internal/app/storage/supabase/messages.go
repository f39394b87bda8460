package supabase

import (
	"context"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/message"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/database"
)

func (s *Store) ListMessages(ctx context.Context, filter storage.MessageFilter) ([]message.Message, error) {
	q := database.NewQuery()
	if filter.Status != "" {
		q = q.Eq("status", filter.Status)
	}
	if filter.AssignedTo != "" {
		q = q.Eq("assigned_to", filter.AssignedTo)
	}
	if filter.Category != "" {
		q = q.Eq("category", filter.Category)
	}
	if filter.Cursor != "" {
		q = q.Lt("created_at", filter.Cursor)
	}
	q = q.Order("created_at", true)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []message.Message
	if err := s.selectInto(ctx, tableMessages, q.Encode(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CountMessages(ctx context.Context, status string) (int, error) {
	q := database.NewQuery().Select("id")
	if status != "" {
		q = q.Eq("status", status)
	}
	return s.client.Count(ctx, tableMessages, q.Encode())
}

func (s *Store) GetMessage(ctx context.Context, id string) (message.Message, error) {
	var rows []message.Message
	q := database.NewQuery().Eq("id", id).Limit(1).Encode()
	if err := s.selectInto(ctx, tableMessages, q, &rows); err != nil {
		return message.Message{}, err
	}
	if len(rows) == 0 {
		return message.Message{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) UpdateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	q := database.NewQuery().Eq("id", msg.ID).Encode()
	patch := map[string]interface{}{
		"status":         msg.Status,
		"priority":       msg.Priority,
		"category":       msg.Category,
		"assigned_to":    msg.AssignedTo,
		"assigned_at":    msg.AssignedAt,
		"tags":           msg.Tags,
		"internal_notes": msg.InternalNotes,
		"sla_due_at":     msg.SLADueAt,
		"replied_at":     msg.RepliedAt,
		"replied_by":     msg.RepliedBy,
		"reply_content":  msg.ReplyContent,
		"updated_at":     time.Now().UTC(),
	}
	var updated message.Message
	if err := s.updateOne(ctx, tableMessages, patch, q, &updated); err != nil {
		return message.Message{}, err
	}
	return updated, nil
}

func (s *Store) CreateTemplate(ctx context.Context, t message.Template) (message.Template, error) {
	row := map[string]interface{}{
		"name":       t.Name,
		"subject":    t.Subject,
		"content":    t.Content,
		"category":   t.Category,
		"created_by": t.CreatedBy,
	}
	var created message.Template
	if err := s.insertOne(ctx, tableMsgTemplates, row, &created); err != nil {
		return message.Template{}, err
	}
	return created, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]message.Template, error) {
	q := database.NewQuery().Order("created_at", true).Encode()
	var rows []message.Template
	if err := s.selectInto(ctx, tableMsgTemplates, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) GetTemplate(ctx context.Context, id string) (message.Template, error) {
	var rows []message.Template
	q := database.NewQuery().Eq("id", id).Limit(1).Encode()
	if err := s.selectInto(ctx, tableMsgTemplates, q, &rows); err != nil {
		return message.Template{}, err
	}
	if len(rows) == 0 {
		return message.Template{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) UpdateTemplate(ctx context.Context, t message.Template) (message.Template, error) {
	q := database.NewQuery().Eq("id", t.ID).Encode()
	patch := map[string]interface{}{
		"name":       t.Name,
		"subject":    t.Subject,
		"content":    t.Content,
		"category":   t.Category,
		"updated_at": time.Now().UTC(),
	}
	var updated message.Template
	if err := s.updateOne(ctx, tableMsgTemplates, patch, q, &updated); err != nil {
		return message.Template{}, err
	}
	return updated, nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	return s.client.Delete(ctx, tableMsgTemplates, database.NewQuery().Eq("id", id).Encode())
}
