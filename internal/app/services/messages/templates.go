package messages

import (
	"context"
	"strings"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/message"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/errors"
)

// TemplateRequest creates or updates a canned reply.
type TemplateRequest struct {
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	Content  string `json:"content"`
	Category string `json:"category,omitempty"`
}

// CreateTemplate registers a canned reply.
func (s *Service) CreateTemplate(ctx context.Context, operator admin.Profile, req TemplateRequest) (message.Template, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return message.Template{}, errors.Validation("template name is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return message.Template{}, errors.Validation("template content is required")
	}
	tpl, err := s.store.CreateTemplate(ctx, message.Template{
		Name:      req.Name,
		Subject:   req.Subject,
		Content:   req.Content,
		Category:  req.Category,
		CreatedBy: operator.UserID,
	})
	if err != nil {
		return message.Template{}, errors.Internal("failed to create template", err)
	}
	return tpl, nil
}

// ListTemplates returns all canned replies.
func (s *Service) ListTemplates(ctx context.Context) ([]message.Template, error) {
	templates, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, errors.Internal("failed to list templates", err)
	}
	return templates, nil
}

// UpdateTemplate patches a canned reply.
func (s *Service) UpdateTemplate(ctx context.Context, id string, req TemplateRequest) (message.Template, error) {
	tpl, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return message.Template{}, errors.NotFound("template")
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		tpl.Name = name
	}
	if req.Subject != "" {
		tpl.Subject = req.Subject
	}
	if strings.TrimSpace(req.Content) != "" {
		tpl.Content = req.Content
	}
	if req.Category != "" {
		tpl.Category = req.Category
	}
	updated, err := s.store.UpdateTemplate(ctx, tpl)
	if err != nil {
		return message.Template{}, errors.Internal("failed to update template", err)
	}
	return updated, nil
}

// DeleteTemplate removes a canned reply.
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		if err == storage.ErrNotFound {
			return errors.NotFound("template")
		}
		return errors.Internal("failed to delete template", err)
	}
	return nil
}
