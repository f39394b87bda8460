package memory

import (
	"context"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/campaign"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
)

func (s *Store) CreateCampaign(_ context.Context, c campaign.Campaign) (campaign.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Status == "" {
		c.Status = campaign.StatusDraft
	}
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	s.campaigns[c.ID] = c
	return c, nil
}

func (s *Store) GetCampaign(_ context.Context, id string) (campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	if !ok {
		return campaign.Campaign{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCampaigns(_ context.Context, status string) ([]campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []campaign.Campaign
	for _, c := range s.campaigns {
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, c)
	}
	sortByCreatedDesc(out, func(c campaign.Campaign) time.Time { return c.CreatedAt })
	return out, nil
}

func (s *Store) UpdateCampaign(_ context.Context, c campaign.Campaign) (campaign.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.campaigns[c.ID]
	if !ok {
		return campaign.Campaign{}, storage.ErrNotFound
	}
	c.CreatedBy = existing.CreatedBy
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = now()
	s.campaigns[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCampaign(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.campaigns, id)
	return nil
}

func (s *Store) ListDueCampaigns(_ context.Context, nowAt time.Time) ([]campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []campaign.Campaign
	for _, c := range s.campaigns {
		if c.Status == campaign.StatusScheduled && c.ScheduledFor != nil && !c.ScheduledFor.After(nowAt) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) CreateEmailTemplate(_ context.Context, t campaign.EmailTemplate) (campaign.EmailTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = newID()
	}
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt
	s.emailTemplates[t.ID] = t
	return t, nil
}

func (s *Store) ListEmailTemplates(_ context.Context, activeOnly bool) ([]campaign.EmailTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []campaign.EmailTemplate
	for _, t := range s.emailTemplates {
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	sortByCreatedDesc(out, func(t campaign.EmailTemplate) time.Time { return t.CreatedAt })
	return out, nil
}

func (s *Store) GetEmailTemplate(_ context.Context, id string) (campaign.EmailTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.emailTemplates[id]
	if !ok {
		return campaign.EmailTemplate{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) UpdateEmailTemplate(_ context.Context, t campaign.EmailTemplate) (campaign.EmailTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.emailTemplates[t.ID]
	if !ok {
		return campaign.EmailTemplate{}, storage.ErrNotFound
	}
	t.CreatedBy = existing.CreatedBy
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = now()
	s.emailTemplates[t.ID] = t
	return t, nil
}
