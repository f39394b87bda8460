package moderation

import (
	"context"
	"strings"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/moderation"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/errors"
)

// MacroRequest creates or updates a canned moderation decision.
type MacroRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Decision    string   `json:"decision"`
	Template    string   `json:"template"`
	Tags        []string `json:"tags,omitempty"`
	SLAMinutes  int      `json:"sla_minutes,omitempty"`
}

// CreateMacro registers a canned decision.
func (s *Service) CreateMacro(ctx context.Context, operator admin.Profile, req MacroRequest) (moderation.Macro, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return moderation.Macro{}, errors.Validation("macro name is required")
	}
	if !moderation.ValidDecision(req.Decision) {
		return moderation.Macro{}, errors.Validation("decision must be approved, rejected or changes_requested")
	}
	if strings.TrimSpace(req.Template) == "" {
		return moderation.Macro{}, errors.Validation("template is required")
	}
	macro, err := s.store.CreateMacro(ctx, moderation.Macro{
		Name:        req.Name,
		Description: req.Description,
		Decision:    req.Decision,
		Template:    req.Template,
		Tags:        req.Tags,
		SLAMinutes:  req.SLAMinutes,
		CreatedBy:   operator.UserID,
	})
	if err != nil {
		return moderation.Macro{}, errors.Internal("failed to create macro", err)
	}
	return macro, nil
}

// ListMacros returns all canned decisions.
func (s *Service) ListMacros(ctx context.Context) ([]moderation.Macro, error) {
	macros, err := s.store.ListMacros(ctx)
	if err != nil {
		return nil, errors.Internal("failed to list macros", err)
	}
	return macros, nil
}

// UpdateMacro patches a canned decision.
func (s *Service) UpdateMacro(ctx context.Context, id string, req MacroRequest) (moderation.Macro, error) {
	macro, err := s.store.GetMacro(ctx, id)
	if err != nil {
		return moderation.Macro{}, errors.NotFound("macro")
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		macro.Name = name
	}
	if req.Description != "" {
		macro.Description = req.Description
	}
	if req.Decision != "" {
		if !moderation.ValidDecision(req.Decision) {
			return moderation.Macro{}, errors.Validation("decision must be approved, rejected or changes_requested")
		}
		macro.Decision = req.Decision
	}
	if strings.TrimSpace(req.Template) != "" {
		macro.Template = req.Template
	}
	if req.Tags != nil {
		macro.Tags = req.Tags
	}
	if req.SLAMinutes > 0 {
		macro.SLAMinutes = req.SLAMinutes
	}
	updated, err := s.store.UpdateMacro(ctx, macro)
	if err != nil {
		return moderation.Macro{}, errors.Internal("failed to update macro", err)
	}
	return updated, nil
}

// DeleteMacro removes a canned decision.
func (s *Service) DeleteMacro(ctx context.Context, id string) error {
	if err := s.store.DeleteMacro(ctx, id); err != nil {
		if err == storage.ErrNotFound {
			return errors.NotFound("macro")
		}
		return errors.Internal("failed to delete macro", err)
	}
	return nil
}
