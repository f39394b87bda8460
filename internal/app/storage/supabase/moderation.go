package supabase

import (
	"context"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/moderation"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/database"
)

func (s *Store) ListQueue(ctx context.Context, filter storage.ModerationFilter) ([]moderation.QueueItem, error) {
	q := database.NewQuery()
	if filter.Status != "" {
		q = q.Eq("status", filter.Status)
	}
	if filter.AssignedTo != "" {
		q = q.Eq("assigned_to", filter.AssignedTo)
	}
	if filter.Cursor != "" {
		q = q.Lt("created_at", filter.Cursor)
	}
	q = q.Order("created_at", true)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []moderation.QueueItem
	if err := s.selectInto(ctx, tableQueue, q.Encode(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CountQueue(ctx context.Context, status string) (int, error) {
	q := database.NewQuery().Select("id")
	if status != "" {
		q = q.Eq("status", status)
	}
	return s.client.Count(ctx, tableQueue, q.Encode())
}

func (s *Store) GetQueueItem(ctx context.Context, id string) (moderation.QueueItem, error) {
	var rows []moderation.QueueItem
	q := database.NewQuery().Eq("id", id).Limit(1).Encode()
	if err := s.selectInto(ctx, tableQueue, q, &rows); err != nil {
		return moderation.QueueItem{}, err
	}
	if len(rows) == 0 {
		return moderation.QueueItem{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) GetQueueItemByEntrepreneur(ctx context.Context, entrepreneurID string) (moderation.QueueItem, error) {
	var rows []moderation.QueueItem
	q := database.NewQuery().
		Eq("entrepreneur_id", entrepreneurID).
		Order("created_at", true).
		Limit(1).
		Encode()
	if err := s.selectInto(ctx, tableQueue, q, &rows); err != nil {
		return moderation.QueueItem{}, err
	}
	if len(rows) == 0 {
		return moderation.QueueItem{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) CreateQueueItem(ctx context.Context, item moderation.QueueItem) (moderation.QueueItem, error) {
	if item.Status == "" {
		item.Status = moderation.StatusPending
	}
	row := map[string]interface{}{
		"entrepreneur_id": item.EntrepreneurID,
		"status":          item.Status,
		"priority":        item.Priority,
	}
	var created moderation.QueueItem
	if err := s.insertOne(ctx, tableQueue, row, &created); err != nil {
		return moderation.QueueItem{}, err
	}
	return created, nil
}

func (s *Store) UpdateQueueItem(ctx context.Context, item moderation.QueueItem) (moderation.QueueItem, error) {
	q := database.NewQuery().Eq("id", item.ID).Encode()
	patch := map[string]interface{}{
		"status":          item.Status,
		"priority":        item.Priority,
		"assigned_to":     item.AssignedTo,
		"assigned_at":     item.AssignedAt,
		"decision":        item.Decision,
		"decision_reason": item.DecisionReason,
		"macro_used":      item.MacroUsed,
		"notes":           item.Notes,
		"resolved_at":     item.ResolvedAt,
		"resolved_by":     item.ResolvedBy,
		"updated_at":      time.Now().UTC(),
	}
	var updated moderation.QueueItem
	if err := s.updateOne(ctx, tableQueue, patch, q, &updated); err != nil {
		return moderation.QueueItem{}, err
	}
	return updated, nil
}

func (s *Store) ListResolvedSince(ctx context.Context, since time.Time) ([]moderation.QueueItem, error) {
	q := database.NewQuery().
		Gte("resolved_at", since.Format(time.RFC3339)).
		Order("resolved_at", true).
		Encode()
	var rows []moderation.QueueItem
	if err := s.selectInto(ctx, tableQueue, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CreateMacro(ctx context.Context, m moderation.Macro) (moderation.Macro, error) {
	row := map[string]interface{}{
		"name":        m.Name,
		"description": m.Description,
		"decision":    m.Decision,
		"template":    m.Template,
		"tags":        m.Tags,
		"sla_minutes": m.SLAMinutes,
		"created_by":  m.CreatedBy,
	}
	var created moderation.Macro
	if err := s.insertOne(ctx, tableMacros, row, &created); err != nil {
		return moderation.Macro{}, err
	}
	return created, nil
}

func (s *Store) ListMacros(ctx context.Context) ([]moderation.Macro, error) {
	q := database.NewQuery().Order("created_at", true).Encode()
	var rows []moderation.Macro
	if err := s.selectInto(ctx, tableMacros, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) GetMacro(ctx context.Context, id string) (moderation.Macro, error) {
	var rows []moderation.Macro
	q := database.NewQuery().Eq("id", id).Limit(1).Encode()
	if err := s.selectInto(ctx, tableMacros, q, &rows); err != nil {
		return moderation.Macro{}, err
	}
	if len(rows) == 0 {
		return moderation.Macro{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) UpdateMacro(ctx context.Context, m moderation.Macro) (moderation.Macro, error) {
	q := database.NewQuery().Eq("id", m.ID).Encode()
	patch := map[string]interface{}{
		"name":        m.Name,
		"description": m.Description,
		"decision":    m.Decision,
		"template":    m.Template,
		"tags":        m.Tags,
		"sla_minutes": m.SLAMinutes,
		"updated_at":  time.Now().UTC(),
	}
	var updated moderation.Macro
	if err := s.updateOne(ctx, tableMacros, patch, q, &updated); err != nil {
		return moderation.Macro{}, err
	}
	return updated, nil
}

func (s *Store) DeleteMacro(ctx context.Context, id string) error {
	return s.client.Delete(ctx, tableMacros, database.NewQuery().Eq("id", id).Encode())
}

func (s *Store) GetEntrepreneur(ctx context.Context, id string) (moderation.Entrepreneur, error) {
	var rows []moderation.Entrepreneur
	q := database.NewQuery().Eq("id", id).Limit(1).Encode()
	if err := s.selectInto(ctx, tableEntrepreneurs, q, &rows); err != nil {
		return moderation.Entrepreneur{}, err
	}
	if len(rows) == 0 {
		return moderation.Entrepreneur{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) UpdateEntrepreneur(ctx context.Context, e moderation.Entrepreneur) (moderation.Entrepreneur, error) {
	q := database.NewQuery().Eq("id", e.ID).Encode()
	patch := map[string]interface{}{
		"status":        e.Status,
		"reviewed_by":   e.ReviewedBy,
		"reviewed_at":   e.ReviewedAt,
		"review_reason": e.ReviewReason,
		"updated_at":    time.Now().UTC(),
	}
	var updated moderation.Entrepreneur
	if err := s.updateOne(ctx, tableEntrepreneurs, patch, q, &updated); err != nil {
		return moderation.Entrepreneur{}, err
	}
	return updated, nil
}

func (s *Store) ListEntrepreneursByIDs(ctx context.Context, ids []string) ([]moderation.Entrepreneur, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := database.NewQuery().In("id", ids).Encode()
	var rows []moderation.Entrepreneur
	if err := s.selectInto(ctx, tableEntrepreneurs, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CountEntrepreneurs(ctx context.Context, status string) (int, error) {
	q := database.NewQuery().Select("id")
	if status != "" {
		q = q.Eq("status", status)
	}
	return s.client.Count(ctx, tableEntrepreneurs, q.Encode())
}
