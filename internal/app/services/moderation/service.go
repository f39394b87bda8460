// Package moderation implements the entrepreneur review pipeline: the queue,
// assignment, decisions, canned macros and throughput stats.
package moderation

import (
	"context"
	"strings"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	auditdomain "github.com/nexus-partners/admin-backend/internal/app/domain/audit"
	"github.com/nexus-partners/admin-backend/internal/app/domain/moderation"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/gateway"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

const defaultPageSize = 50

// Service handles moderation queue administration.
type Service struct {
	store   storage.Store
	emails  gateway.EmailSender
	audits  *auditsvc.Service
	log     *logger.Logger
	timeNow func() time.Time
}

// New constructs a moderation service. The email sender may be nil; decision
// notifications are then skipped.
func New(store storage.Store, emails gateway.EmailSender, audits *auditsvc.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("moderation")
	}
	return &Service{
		store:   store,
		emails:  emails,
		audits:  audits,
		log:     log,
		timeNow: func() time.Time { return time.Now().UTC() },
	}
}

// QueuePage is one page of hydrated queue items.
type QueuePage struct {
	Data       []moderation.QueueItem `json:"data"`
	Total      int                    `json:"total"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

// Queue returns one page of queue items with their entrepreneur records and
// assignee names attached.
func (s *Service) Queue(ctx context.Context, filter storage.ModerationFilter) (QueuePage, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Status != "" && !moderation.ValidQueueStatus(filter.Status) {
		return QueuePage{}, errors.Validation("unknown queue status: " + filter.Status)
	}

	items, err := s.store.ListQueue(ctx, filter)
	if err != nil {
		return QueuePage{}, errors.Internal("failed to list moderation queue", err)
	}
	s.hydrate(ctx, items)

	total, err := s.store.CountQueue(ctx, filter.Status)
	if err != nil {
		return QueuePage{}, errors.Internal("failed to count moderation queue", err)
	}

	page := QueuePage{Data: items, Total: total}
	if len(items) == filter.Limit {
		page.NextCursor = items[len(items)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	return page, nil
}

// hydrate attaches entrepreneur records and assignee names in place.
func (s *Service) hydrate(ctx context.Context, items []moderation.QueueItem) {
	if len(items) == 0 {
		return
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.EntrepreneurID)
	}
	entrepreneurs, err := s.store.ListEntrepreneursByIDs(ctx, ids)
	if err != nil {
		s.log.WithError(err).Warn("queue hydration failed")
		return
	}
	byID := make(map[string]moderation.Entrepreneur, len(entrepreneurs))
	for _, e := range entrepreneurs {
		byID[e.ID] = e
	}

	assignees := make(map[string]string)
	for i := range items {
		if e, ok := byID[items[i].EntrepreneurID]; ok {
			entry := e
			items[i].Entrepreneur = &entry
		}
		if id := items[i].AssignedTo; id != "" {
			name, ok := assignees[id]
			if !ok {
				if profile, err := s.store.GetAdminByUserID(ctx, id); err == nil {
					name = profile.FullName
				}
				assignees[id] = name
			}
			items[i].AssigneeName = name
		}
	}
}

// Get returns one hydrated queue item.
func (s *Service) Get(ctx context.Context, id string) (moderation.QueueItem, error) {
	item, err := s.store.GetQueueItem(ctx, id)
	if err != nil {
		return moderation.QueueItem{}, errors.NotFound("queue item")
	}
	page := []moderation.QueueItem{item}
	s.hydrate(ctx, page)
	return page[0], nil
}

// Assign hands a queue item to an operator and moves it into review.
func (s *Service) Assign(ctx context.Context, operator admin.Profile, itemID, assigneeID string) (moderation.QueueItem, error) {
	if assigneeID == "" {
		assigneeID = operator.UserID
	}
	if _, err := s.store.GetAdminByUserID(ctx, assigneeID); err != nil {
		return moderation.QueueItem{}, errors.NotFound("admin")
	}
	item, err := s.store.GetQueueItem(ctx, itemID)
	if err != nil {
		return moderation.QueueItem{}, errors.NotFound("queue item")
	}
	if item.Status == moderation.StatusDone {
		return moderation.QueueItem{}, errors.Conflict("queue item is already resolved")
	}

	now := s.timeNow()
	item.AssignedTo = assigneeID
	item.AssignedAt = &now
	item.Status = moderation.StatusInReview
	updated, err := s.store.UpdateQueueItem(ctx, item)
	if err != nil {
		return moderation.QueueItem{}, errors.Internal("failed to assign queue item", err)
	}
	return updated, nil
}

// SetStatus moves a queue item between workflow states without deciding it.
func (s *Service) SetStatus(ctx context.Context, operator admin.Profile, itemID, status, notes string) (moderation.QueueItem, error) {
	if !moderation.ValidQueueStatus(status) {
		return moderation.QueueItem{}, errors.Validation("unknown queue status: " + status)
	}
	if status == moderation.StatusDone {
		return moderation.QueueItem{}, errors.Validation("resolve items through a moderation decision")
	}
	item, err := s.store.GetQueueItem(ctx, itemID)
	if err != nil {
		return moderation.QueueItem{}, errors.NotFound("queue item")
	}
	if item.Status == moderation.StatusDone {
		return moderation.QueueItem{}, errors.Conflict("queue item is already resolved")
	}

	item.Status = status
	if notes = strings.TrimSpace(notes); notes != "" {
		item.Notes = notes
	}
	updated, err := s.store.UpdateQueueItem(ctx, item)
	if err != nil {
		return moderation.QueueItem{}, errors.Internal("failed to update queue item", err)
	}
	return updated, nil
}

// DecisionRequest resolves a queue item.
type DecisionRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
	MacroID  string `json:"macro_id,omitempty"`
	Notify   bool   `json:"notify"`
}

// Decide resolves a queue item, updates the entrepreneur record and
// optionally emails the applicant. A macro supplies the decision and reason
// when given.
func (s *Service) Decide(ctx context.Context, operator admin.Profile, itemID string, req DecisionRequest) (moderation.QueueItem, error) {
	item, err := s.store.GetQueueItem(ctx, itemID)
	if err != nil {
		return moderation.QueueItem{}, errors.NotFound("queue item")
	}
	if item.Status == moderation.StatusDone {
		return moderation.QueueItem{}, errors.Conflict("queue item is already resolved")
	}

	var macro *moderation.Macro
	if req.MacroID != "" {
		m, err := s.store.GetMacro(ctx, req.MacroID)
		if err != nil {
			return moderation.QueueItem{}, errors.NotFound("macro")
		}
		macro = &m
		if req.Decision == "" {
			req.Decision = m.Decision
		}
		if strings.TrimSpace(req.Reason) == "" {
			req.Reason = m.Template
		}
	}
	if !moderation.ValidDecision(req.Decision) {
		return moderation.QueueItem{}, errors.Validation("decision must be approved, rejected or changes_requested")
	}
	if req.Decision != moderation.DecisionApproved && strings.TrimSpace(req.Reason) == "" {
		return moderation.QueueItem{}, errors.Validation("a reason is required unless approving")
	}

	entrepreneur, err := s.store.GetEntrepreneur(ctx, item.EntrepreneurID)
	if err != nil {
		return moderation.QueueItem{}, errors.NotFound("entrepreneur")
	}

	now := s.timeNow()
	switch req.Decision {
	case moderation.DecisionApproved:
		entrepreneur.Status = "approved"
	case moderation.DecisionRejected:
		entrepreneur.Status = "rejected"
	case moderation.DecisionChangesRequested:
		entrepreneur.Status = "pending"
	}
	entrepreneur.ReviewedBy = operator.UserID
	entrepreneur.ReviewedAt = &now
	entrepreneur.ReviewReason = strings.TrimSpace(req.Reason)
	if _, err := s.store.UpdateEntrepreneur(ctx, entrepreneur); err != nil {
		return moderation.QueueItem{}, errors.Internal("failed to update entrepreneur", err)
	}

	item.Status = moderation.StatusDone
	item.Decision = req.Decision
	item.DecisionReason = strings.TrimSpace(req.Reason)
	item.ResolvedAt = &now
	item.ResolvedBy = operator.UserID
	if macro != nil {
		item.MacroUsed = macro.ID
	}
	updated, err := s.store.UpdateQueueItem(ctx, item)
	if err != nil {
		return moderation.QueueItem{}, errors.Internal("failed to resolve queue item", err)
	}

	eventType := auditdomain.EventEntrepreneurRejected
	if req.Decision == moderation.DecisionApproved {
		eventType = auditdomain.EventEntrepreneurApproved
	} else if req.Decision == moderation.DecisionChangesRequested {
		eventType = auditdomain.EventEntrepreneurModerate
	}
	s.audits.Record(ctx, auditdomain.Entry{
		EventType: eventType,
		AdminID:   operator.UserID,
		UserID:    entrepreneur.UserID,
		Metadata: map[string]interface{}{
			"entrepreneur_id": entrepreneur.ID,
			"business_name":   entrepreneur.BusinessName,
			"decision":        req.Decision,
		},
	})

	if req.Notify {
		s.notifyApplicant(ctx, entrepreneur, req.Decision, item.DecisionReason)
	}
	return updated, nil
}

// GetEntrepreneur returns the full entrepreneur record for review.
func (s *Service) GetEntrepreneur(ctx context.Context, id string) (moderation.Entrepreneur, error) {
	e, err := s.store.GetEntrepreneur(ctx, id)
	if err != nil {
		return moderation.Entrepreneur{}, errors.NotFound("entrepreneur")
	}
	return e, nil
}

// DecideEntrepreneur resolves the queue item attached to an entrepreneur.
func (s *Service) DecideEntrepreneur(ctx context.Context, operator admin.Profile, entrepreneurID string, req DecisionRequest) (moderation.QueueItem, error) {
	item, err := s.store.GetQueueItemByEntrepreneur(ctx, entrepreneurID)
	if err != nil {
		return moderation.QueueItem{}, errors.NotFound("queue item")
	}
	return s.Decide(ctx, operator, item.ID, req)
}

func (s *Service) notifyApplicant(ctx context.Context, e moderation.Entrepreneur, decision, reason string) {
	if s.emails == nil {
		return
	}
	emails, err := s.store.ListEmails(ctx, []string{e.UserID})
	if err != nil || emails[e.UserID] == "" {
		s.log.WithField("entrepreneur_id", e.ID).Warn("no email for decision notification")
		return
	}

	var subject, body string
	switch decision {
	case moderation.DecisionApproved:
		subject = "Your business profile has been approved"
		body = "<p>Good news! Your business profile <strong>" + e.BusinessName + "</strong> has been approved and is now visible.</p>"
	case moderation.DecisionRejected:
		subject = "Your business profile was not approved"
		body = "<p>Your business profile <strong>" + e.BusinessName + "</strong> was not approved.</p><p>Reason: " + reason + "</p>"
	default:
		subject = "Your business profile needs changes"
		body = "<p>Your business profile <strong>" + e.BusinessName + "</strong> needs changes before it can be approved.</p><p>" + reason + "</p>"
	}
	if err := s.emails.Send(ctx, emails[e.UserID], subject, body); err != nil {
		s.log.WithError(err).WithField("entrepreneur_id", e.ID).Warn("decision notification failed")
	}
}

// Stats summarizes queue depth and review throughput over the last 7 days.
func (s *Service) Stats(ctx context.Context) (map[string]interface{}, error) {
	byStatus := make(map[string]int)
	for _, status := range []string{
		moderation.StatusPending,
		moderation.StatusInReview,
		moderation.StatusPaused,
		moderation.StatusEscalated,
		moderation.StatusDone,
	} {
		n, err := s.store.CountQueue(ctx, status)
		if err != nil {
			return nil, errors.Internal("failed to compute moderation stats", err)
		}
		byStatus[status] = n
	}

	since := s.timeNow().AddDate(0, 0, -7)
	resolved, err := s.store.ListResolvedSince(ctx, since)
	if err != nil {
		return nil, errors.Internal("failed to compute moderation stats", err)
	}
	var totalReview time.Duration
	reviewed := 0
	for _, item := range resolved {
		if item.ResolvedAt != nil {
			totalReview += item.ResolvedAt.Sub(item.CreatedAt)
			reviewed++
		}
	}
	avgReviewHours := 0.0
	if reviewed > 0 {
		avgReviewHours = (totalReview / time.Duration(reviewed)).Hours()
	}

	approved := 0
	for _, item := range resolved {
		if item.Decision == moderation.DecisionApproved {
			approved++
		}
	}
	approvalRate := 0.0
	if len(resolved) > 0 {
		approvalRate = float64(approved) / float64(len(resolved)) * 100
	}

	return map[string]interface{}{
		"queue":            byStatus,
		"resolved_7_days":  len(resolved),
		"avg_review_hours": avgReviewHours,
		"approval_rate":    approvalRate,
	}, nil
}
