// Package messages implements the support inbox: listing, triage, replies
// with email delivery, archiving and canned reply templates.
package messages

import (
	"context"
	"strings"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	auditdomain "github.com/nexus-partners/admin-backend/internal/app/domain/audit"
	"github.com/nexus-partners/admin-backend/internal/app/domain/message"
	"github.com/nexus-partners/admin-backend/internal/app/metrics"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/gateway"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

const defaultPageSize = 50

// Service handles the support inbox.
type Service struct {
	store   storage.Store
	emails  gateway.EmailSender
	audits  *auditsvc.Service
	log     *logger.Logger
	timeNow func() time.Time
}

// New constructs a messages service. The email sender may be nil; replies
// are then stored without being delivered.
func New(store storage.Store, emails gateway.EmailSender, audits *auditsvc.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("messages")
	}
	return &Service{
		store:   store,
		emails:  emails,
		audits:  audits,
		log:     log,
		timeNow: func() time.Time { return time.Now().UTC() },
	}
}

// Page is one page of support messages.
type Page struct {
	Data       []message.Message `json:"data"`
	Total      int               `json:"total"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// List returns one page of messages matching the filter.
func (s *Service) List(ctx context.Context, filter storage.MessageFilter) (Page, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Status != "" && !message.ValidStatus(filter.Status) {
		return Page{}, errors.Validation("unknown message status: " + filter.Status)
	}

	msgs, err := s.store.ListMessages(ctx, filter)
	if err != nil {
		return Page{}, errors.Internal("failed to list messages", err)
	}
	total, err := s.store.CountMessages(ctx, filter.Status)
	if err != nil {
		return Page{}, errors.Internal("failed to count messages", err)
	}

	page := Page{Data: msgs, Total: total}
	if len(msgs) == filter.Limit {
		page.NextCursor = msgs[len(msgs)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	return page, nil
}

// Get returns one message. Viewing a new message moves it to open.
func (s *Service) Get(ctx context.Context, id string) (message.Message, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return message.Message{}, errors.NotFound("message")
	}
	if msg.Status == message.StatusNew {
		msg.Status = message.StatusOpen
		if msg, err = s.store.UpdateMessage(ctx, msg); err != nil {
			return message.Message{}, errors.Internal("failed to update message", err)
		}
	}
	return msg, nil
}

// UpdateRequest patches triage fields on a message.
type UpdateRequest struct {
	Status        *string  `json:"status,omitempty"`
	Priority      *string  `json:"priority,omitempty"`
	Category      *string  `json:"category,omitempty"`
	AssignedTo    *string  `json:"assigned_to,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	InternalNotes *string  `json:"internal_notes,omitempty"`
}

// Update patches triage fields. Assignment changes refresh the assignment
// timestamp.
func (s *Service) Update(ctx context.Context, operator admin.Profile, id string, req UpdateRequest) (message.Message, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return message.Message{}, errors.NotFound("message")
	}

	if req.Status != nil {
		if !message.ValidStatus(*req.Status) {
			return message.Message{}, errors.Validation("unknown message status: " + *req.Status)
		}
		msg.Status = *req.Status
	}
	if req.Priority != nil {
		msg.Priority = *req.Priority
	}
	if req.Category != nil {
		msg.Category = *req.Category
	}
	if req.AssignedTo != nil && *req.AssignedTo != msg.AssignedTo {
		if *req.AssignedTo != "" {
			if _, err := s.store.GetAdminByUserID(ctx, *req.AssignedTo); err != nil {
				return message.Message{}, errors.NotFound("admin")
			}
			now := s.timeNow()
			msg.AssignedAt = &now
		} else {
			msg.AssignedAt = nil
		}
		msg.AssignedTo = *req.AssignedTo
	}
	if req.Tags != nil {
		msg.Tags = req.Tags
	}
	if req.InternalNotes != nil {
		msg.InternalNotes = *req.InternalNotes
	}

	updated, err := s.store.UpdateMessage(ctx, msg)
	if err != nil {
		return message.Message{}, errors.Internal("failed to update message", err)
	}
	return updated, nil
}

// ReplyRequest answers a support message. With a template id, subject and
// content default to the template's.
type ReplyRequest struct {
	Content    string `json:"content"`
	Subject    string `json:"subject,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
}

// Reply stores the answer, emails it to the sender and marks the message
// replied. A send failure keeps the reply stored and reports the failure.
func (s *Service) Reply(ctx context.Context, operator admin.Profile, id string, req ReplyRequest) (message.Message, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return message.Message{}, errors.NotFound("message")
	}
	if msg.Status == message.StatusArchived {
		return message.Message{}, errors.Conflict("message is archived")
	}

	if req.TemplateID != "" {
		tpl, err := s.store.GetTemplate(ctx, req.TemplateID)
		if err != nil {
			return message.Message{}, errors.NotFound("template")
		}
		if strings.TrimSpace(req.Content) == "" {
			req.Content = tpl.Content
		}
		if strings.TrimSpace(req.Subject) == "" {
			req.Subject = tpl.Subject
		}
	}
	if strings.TrimSpace(req.Content) == "" {
		return message.Message{}, errors.Validation("reply content is required")
	}
	if strings.TrimSpace(req.Subject) == "" {
		req.Subject = "Re: " + msg.Subject
	}

	now := s.timeNow()
	msg.Status = message.StatusReplied
	msg.RepliedAt = &now
	msg.RepliedBy = operator.UserID
	msg.ReplyContent = req.Content
	updated, err := s.store.UpdateMessage(ctx, msg)
	if err != nil {
		return message.Message{}, errors.Internal("failed to store reply", err)
	}

	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventMessageReplied,
		AdminID:   operator.UserID,
		UserID:    msg.UserID,
		Metadata:  map[string]interface{}{"message_id": msg.ID},
	})

	if s.emails != nil {
		err := s.emails.Send(ctx, msg.Email, req.Subject, req.Content)
		metrics.RecordEmailSend("reply", err == nil)
		if err != nil {
			s.log.WithError(err).WithField("message_id", msg.ID).Error("reply delivery failed")
			return updated, errors.Unavailable("reply stored but delivery failed", err)
		}
	}
	return updated, nil
}

// Archive moves a message out of the active inbox.
func (s *Service) Archive(ctx context.Context, id string) (message.Message, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return message.Message{}, errors.NotFound("message")
	}
	if msg.Status == message.StatusArchived {
		return message.Message{}, errors.Conflict("message is already archived")
	}
	msg.Status = message.StatusArchived
	updated, err := s.store.UpdateMessage(ctx, msg)
	if err != nil {
		return message.Message{}, errors.Internal("failed to archive message", err)
	}
	return updated, nil
}

// Stats summarizes inbox depth and SLA pressure.
func (s *Service) Stats(ctx context.Context) (map[string]interface{}, error) {
	byStatus := make(map[string]int)
	for _, status := range []string{
		message.StatusNew,
		message.StatusOpen,
		message.StatusReplied,
		message.StatusArchived,
	} {
		n, err := s.store.CountMessages(ctx, status)
		if err != nil {
			return nil, errors.Internal("failed to compute message stats", err)
		}
		byStatus[status] = n
	}

	open, err := s.store.ListMessages(ctx, storage.MessageFilter{Status: message.StatusNew, Limit: 500})
	if err != nil {
		return nil, errors.Internal("failed to compute message stats", err)
	}
	now := s.timeNow()
	overdue := 0
	for _, m := range open {
		if m.SLADueAt != nil && m.SLADueAt.Before(now) {
			overdue++
		}
	}

	return map[string]interface{}{
		"by_status":   byStatus,
		"unanswered":  byStatus[message.StatusNew] + byStatus[message.StatusOpen],
		"sla_overdue": overdue,
	}, nil
}
