package campaigns

import (
	"context"
	"strings"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/campaign"
	"github.com/nexus-partners/admin-backend/internal/errors"
)

// TemplateRequest creates or updates a reusable campaign body.
type TemplateRequest struct {
	Name        string `json:"name"`
	Subject     string `json:"subject"`
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// CreateEmailTemplate registers a reusable campaign body.
func (s *Service) CreateEmailTemplate(ctx context.Context, operator admin.Profile, req TemplateRequest) (campaign.EmailTemplate, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return campaign.EmailTemplate{}, errors.Validation("template name is required")
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Content) == "" {
		return campaign.EmailTemplate{}, errors.Validation("subject and content are required")
	}
	tpl, err := s.store.CreateEmailTemplate(ctx, campaign.EmailTemplate{
		Name:        req.Name,
		Subject:     req.Subject,
		Content:     req.Content,
		Description: req.Description,
		Category:    req.Category,
		IsActive:    true,
		CreatedBy:   operator.UserID,
	})
	if err != nil {
		return campaign.EmailTemplate{}, errors.Internal("failed to create email template", err)
	}
	return tpl, nil
}

// ListEmailTemplates returns campaign templates, optionally only active ones.
func (s *Service) ListEmailTemplates(ctx context.Context, activeOnly bool) ([]campaign.EmailTemplate, error) {
	templates, err := s.store.ListEmailTemplates(ctx, activeOnly)
	if err != nil {
		return nil, errors.Internal("failed to list email templates", err)
	}
	return templates, nil
}

// UpdateEmailTemplate patches a campaign template.
func (s *Service) UpdateEmailTemplate(ctx context.Context, id string, req TemplateRequest, active *bool) (campaign.EmailTemplate, error) {
	tpl, err := s.store.GetEmailTemplate(ctx, id)
	if err != nil {
		return campaign.EmailTemplate{}, errors.NotFound("email template")
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		tpl.Name = name
	}
	if strings.TrimSpace(req.Subject) != "" {
		tpl.Subject = req.Subject
	}
	if strings.TrimSpace(req.Content) != "" {
		tpl.Content = req.Content
	}
	if req.Description != "" {
		tpl.Description = req.Description
	}
	if req.Category != "" {
		tpl.Category = req.Category
	}
	if active != nil {
		tpl.IsActive = *active
	}
	updated, err := s.store.UpdateEmailTemplate(ctx, tpl)
	if err != nil {
		return campaign.EmailTemplate{}, errors.Internal("failed to update email template", err)
	}
	return updated, nil
}
