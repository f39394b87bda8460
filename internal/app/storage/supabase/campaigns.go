package supabase

import (
	"context"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/campaign"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/database"
)

func (s *Store) CreateCampaign(ctx context.Context, c campaign.Campaign) (campaign.Campaign, error) {
	if c.Status == "" {
		c.Status = campaign.StatusDraft
	}
	row := map[string]interface{}{
		"name":              c.Name,
		"subject":           c.Subject,
		"content":           c.Content,
		"template_id":       c.TemplateID,
		"targeting_type":    c.TargetingType,
		"targeting_filters": c.TargetingFilters,
		"status":            c.Status,
		"scheduled_for":     c.ScheduledFor,
		"created_by":        c.CreatedBy,
	}
	var created campaign.Campaign
	if err := s.insertOne(ctx, tableCampaigns, row, &created); err != nil {
		return campaign.Campaign{}, err
	}
	return created, nil
}

func (s *Store) GetCampaign(ctx context.Context, id string) (campaign.Campaign, error) {
	var rows []campaign.Campaign
	q := database.NewQuery().Eq("id", id).Limit(1).Encode()
	if err := s.selectInto(ctx, tableCampaigns, q, &rows); err != nil {
		return campaign.Campaign{}, err
	}
	if len(rows) == 0 {
		return campaign.Campaign{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) ListCampaigns(ctx context.Context, status string) ([]campaign.Campaign, error) {
	q := database.NewQuery()
	if status != "" {
		q = q.Eq("status", status)
	}
	q = q.Order("created_at", true)
	var rows []campaign.Campaign
	if err := s.selectInto(ctx, tableCampaigns, q.Encode(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) UpdateCampaign(ctx context.Context, c campaign.Campaign) (campaign.Campaign, error) {
	q := database.NewQuery().Eq("id", c.ID).Encode()
	patch := map[string]interface{}{
		"name":              c.Name,
		"subject":           c.Subject,
		"content":           c.Content,
		"template_id":       c.TemplateID,
		"targeting_type":    c.TargetingType,
		"targeting_filters": c.TargetingFilters,
		"status":            c.Status,
		"scheduled_for":     c.ScheduledFor,
		"sent_at":           c.SentAt,
		"recipient_count":   c.RecipientCount,
		"sent_count":        c.SentCount,
		"failed_count":      c.FailedCount,
		"updated_at":        time.Now().UTC(),
	}
	var updated campaign.Campaign
	if err := s.updateOne(ctx, tableCampaigns, patch, q, &updated); err != nil {
		return campaign.Campaign{}, err
	}
	return updated, nil
}

func (s *Store) DeleteCampaign(ctx context.Context, id string) error {
	return s.client.Delete(ctx, tableCampaigns, database.NewQuery().Eq("id", id).Encode())
}

func (s *Store) ListDueCampaigns(ctx context.Context, now time.Time) ([]campaign.Campaign, error) {
	q := database.NewQuery().
		Eq("status", campaign.StatusScheduled).
		Lte("scheduled_for", now.Format(time.RFC3339)).
		Order("scheduled_for", false).
		Encode()
	var rows []campaign.Campaign
	if err := s.selectInto(ctx, tableCampaigns, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CreateEmailTemplate(ctx context.Context, t campaign.EmailTemplate) (campaign.EmailTemplate, error) {
	row := map[string]interface{}{
		"name":        t.Name,
		"subject":     t.Subject,
		"content":     t.Content,
		"description": t.Description,
		"category":    t.Category,
		"is_active":   true,
		"created_by":  t.CreatedBy,
	}
	var created campaign.EmailTemplate
	if err := s.insertOne(ctx, tableEmailTemplates, row, &created); err != nil {
		return campaign.EmailTemplate{}, err
	}
	return created, nil
}

func (s *Store) ListEmailTemplates(ctx context.Context, activeOnly bool) ([]campaign.EmailTemplate, error) {
	q := database.NewQuery()
	if activeOnly {
		q = q.Eq("is_active", "true")
	}
	q = q.Order("created_at", true)
	var rows []campaign.EmailTemplate
	if err := s.selectInto(ctx, tableEmailTemplates, q.Encode(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) GetEmailTemplate(ctx context.Context, id string) (campaign.EmailTemplate, error) {
	var rows []campaign.EmailTemplate
	q := database.NewQuery().Eq("id", id).Limit(1).Encode()
	if err := s.selectInto(ctx, tableEmailTemplates, q, &rows); err != nil {
		return campaign.EmailTemplate{}, err
	}
	if len(rows) == 0 {
		return campaign.EmailTemplate{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) UpdateEmailTemplate(ctx context.Context, t campaign.EmailTemplate) (campaign.EmailTemplate, error) {
	q := database.NewQuery().Eq("id", t.ID).Encode()
	patch := map[string]interface{}{
		"name":        t.Name,
		"subject":     t.Subject,
		"content":     t.Content,
		"description": t.Description,
		"category":    t.Category,
		"is_active":   t.IsActive,
		"updated_at":  time.Now().UTC(),
	}
	var updated campaign.EmailTemplate
	if err := s.updateOne(ctx, tableEmailTemplates, patch, q, &updated); err != nil {
		return campaign.EmailTemplate{}, err
	}
	return updated, nil
}
