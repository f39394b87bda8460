// Package campaigns implements bulk email: campaign lifecycle, audience
// targeting, template rendering, delivery and scheduled sends.
package campaigns

import (
	"context"
	"strings"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	auditdomain "github.com/nexus-partners/admin-backend/internal/app/domain/audit"
	"github.com/nexus-partners/admin-backend/internal/app/domain/campaign"
	"github.com/nexus-partners/admin-backend/internal/app/domain/user"
	"github.com/nexus-partners/admin-backend/internal/app/metrics"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/internal/gateway"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

const recipientPageSize = 500

// Service handles email campaign administration.
type Service struct {
	store   storage.Store
	emails  gateway.EmailSender
	audits  *auditsvc.Service
	log     *logger.Logger
	timeNow func() time.Time
}

// New constructs a campaigns service. The email sender may be nil; sends
// then fail with a configuration error.
func New(store storage.Store, emails gateway.EmailSender, audits *auditsvc.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("campaigns")
	}
	return &Service{
		store:   store,
		emails:  emails,
		audits:  audits,
		log:     log,
		timeNow: func() time.Time { return time.Now().UTC() },
	}
}

// CreateRequest drafts a campaign. With a template id, subject and content
// default to the template's.
type CreateRequest struct {
	Name             string                 `json:"name"`
	Subject          string                 `json:"subject"`
	Content          string                 `json:"content"`
	TemplateID       string                 `json:"template_id,omitempty"`
	TargetingType    string                 `json:"targeting_type"`
	TargetingFilters map[string]interface{} `json:"targeting_filters,omitempty"`
}

// Create drafts a campaign and records its recipient estimate.
func (s *Service) Create(ctx context.Context, operator admin.Profile, req CreateRequest) (campaign.Campaign, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return campaign.Campaign{}, errors.Validation("campaign name is required")
	}
	if !campaign.ValidTargeting(req.TargetingType) {
		return campaign.Campaign{}, errors.Validation("targeting_type must be all, segment, premium or country")
	}
	if req.TemplateID != "" {
		tpl, err := s.store.GetEmailTemplate(ctx, req.TemplateID)
		if err != nil {
			return campaign.Campaign{}, errors.NotFound("email template")
		}
		if strings.TrimSpace(req.Subject) == "" {
			req.Subject = tpl.Subject
		}
		if strings.TrimSpace(req.Content) == "" {
			req.Content = tpl.Content
		}
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Content) == "" {
		return campaign.Campaign{}, errors.Validation("subject and content are required")
	}
	if err := s.validateTargeting(ctx, req.TargetingType, req.TargetingFilters); err != nil {
		return campaign.Campaign{}, err
	}

	c := campaign.Campaign{
		Name:             req.Name,
		Subject:          req.Subject,
		Content:          req.Content,
		TemplateID:       req.TemplateID,
		TargetingType:    req.TargetingType,
		TargetingFilters: req.TargetingFilters,
		Status:           campaign.StatusDraft,
		CreatedBy:        operator.UserID,
	}
	if recipients, err := s.resolveRecipients(ctx, c); err == nil {
		c.RecipientCount = len(recipients)
	}

	created, err := s.store.CreateCampaign(ctx, c)
	if err != nil {
		return campaign.Campaign{}, errors.Internal("failed to create campaign", err)
	}
	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventCampaignCreated,
		AdminID:   operator.UserID,
		Metadata:  map[string]interface{}{"campaign_id": created.ID, "name": created.Name},
	})
	return created, nil
}

func (s *Service) validateTargeting(ctx context.Context, targetingType string, filters map[string]interface{}) error {
	switch targetingType {
	case campaign.TargetSegment:
		id, _ := filters["segment_id"].(string)
		if id == "" {
			return errors.Validation("segment targeting requires targeting_filters.segment_id")
		}
		if _, err := s.store.GetSegment(ctx, id); err != nil {
			return errors.NotFound("segment")
		}
	case campaign.TargetCountry:
		if code, _ := filters["country_code"].(string); code == "" {
			return errors.Validation("country targeting requires targeting_filters.country_code")
		}
	}
	return nil
}

// List returns campaigns, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string) ([]campaign.Campaign, error) {
	if status != "" && !campaign.ValidStatus(status) {
		return nil, errors.Validation("unknown campaign status: " + status)
	}
	campaigns, err := s.store.ListCampaigns(ctx, status)
	if err != nil {
		return nil, errors.Internal("failed to list campaigns", err)
	}
	return campaigns, nil
}

// Get returns one campaign.
func (s *Service) Get(ctx context.Context, id string) (campaign.Campaign, error) {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return campaign.Campaign{}, errors.NotFound("campaign")
	}
	return c, nil
}

// Update patches a draft campaign. Non-draft campaigns are immutable.
func (s *Service) Update(ctx context.Context, id string, req CreateRequest) (campaign.Campaign, error) {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return campaign.Campaign{}, errors.NotFound("campaign")
	}
	if c.Status != campaign.StatusDraft {
		return campaign.Campaign{}, errors.Conflict("only draft campaigns can be edited")
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		c.Name = name
	}
	if subject := strings.TrimSpace(req.Subject); subject != "" {
		c.Subject = subject
	}
	if content := strings.TrimSpace(req.Content); content != "" {
		c.Content = content
	}
	if req.TargetingType != "" {
		if !campaign.ValidTargeting(req.TargetingType) {
			return campaign.Campaign{}, errors.Validation("targeting_type must be all, segment, premium or country")
		}
		c.TargetingType = req.TargetingType
	}
	if req.TargetingFilters != nil {
		c.TargetingFilters = req.TargetingFilters
	}
	if err := s.validateTargeting(ctx, c.TargetingType, c.TargetingFilters); err != nil {
		return campaign.Campaign{}, err
	}
	if recipients, err := s.resolveRecipients(ctx, c); err == nil {
		c.RecipientCount = len(recipients)
	}
	updated, err := s.store.UpdateCampaign(ctx, c)
	if err != nil {
		return campaign.Campaign{}, errors.Internal("failed to update campaign", err)
	}
	return updated, nil
}

// Delete removes a draft or cancelled campaign.
func (s *Service) Delete(ctx context.Context, id string) error {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return errors.NotFound("campaign")
	}
	if c.Status != campaign.StatusDraft && c.Status != campaign.StatusCancelled {
		return errors.Conflict("only draft or cancelled campaigns can be deleted")
	}
	if err := s.store.DeleteCampaign(ctx, id); err != nil {
		return errors.Internal("failed to delete campaign", err)
	}
	return nil
}

// Schedule queues a draft campaign for a future send.
func (s *Service) Schedule(ctx context.Context, id string, at time.Time) (campaign.Campaign, error) {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return campaign.Campaign{}, errors.NotFound("campaign")
	}
	if c.Status != campaign.StatusDraft {
		return campaign.Campaign{}, errors.Conflict("only draft campaigns can be scheduled")
	}
	if !at.After(s.timeNow()) {
		return campaign.Campaign{}, errors.Validation("scheduled_for must be in the future")
	}
	c.Status = campaign.StatusScheduled
	c.ScheduledFor = &at
	updated, err := s.store.UpdateCampaign(ctx, c)
	if err != nil {
		return campaign.Campaign{}, errors.Internal("failed to schedule campaign", err)
	}
	return updated, nil
}

// Cancel pulls a scheduled campaign back before it fires.
func (s *Service) Cancel(ctx context.Context, id string) (campaign.Campaign, error) {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return campaign.Campaign{}, errors.NotFound("campaign")
	}
	if c.Status != campaign.StatusScheduled {
		return campaign.Campaign{}, errors.Conflict("only scheduled campaigns can be cancelled")
	}
	c.Status = campaign.StatusCancelled
	c.ScheduledFor = nil
	updated, err := s.store.UpdateCampaign(ctx, c)
	if err != nil {
		return campaign.Campaign{}, errors.Internal("failed to cancel campaign", err)
	}
	return updated, nil
}

// Send delivers a draft or scheduled campaign now.
func (s *Service) Send(ctx context.Context, operator admin.Profile, id string) (campaign.Campaign, error) {
	if s.emails == nil {
		return campaign.Campaign{}, errors.NotConfigured("email delivery")
	}
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return campaign.Campaign{}, errors.NotFound("campaign")
	}
	if c.Status != campaign.StatusDraft && c.Status != campaign.StatusScheduled {
		return campaign.Campaign{}, errors.Conflict("campaign has already been sent or cancelled")
	}
	return s.deliver(ctx, c, operator.UserID)
}

// deliver resolves the audience, renders per-recipient content and sends,
// tracking per-recipient outcomes on the campaign row.
func (s *Service) deliver(ctx context.Context, c campaign.Campaign, adminID string) (campaign.Campaign, error) {
	recipients, err := s.resolveRecipients(ctx, c)
	if err != nil {
		return campaign.Campaign{}, err
	}
	if len(recipients) == 0 {
		return campaign.Campaign{}, errors.Validation("campaign has no recipients")
	}

	c.Status = campaign.StatusSending
	c.RecipientCount = len(recipients)
	c.SentCount = 0
	c.FailedCount = 0
	if c, err = s.store.UpdateCampaign(ctx, c); err != nil {
		return campaign.Campaign{}, errors.Internal("failed to update campaign", err)
	}

	started := time.Now()
	for _, r := range recipients {
		subject := render(c.Subject, r)
		body := render(c.Content, r)
		err := s.emails.Send(ctx, r.Email, subject, body)
		metrics.RecordEmailSend("campaign", err == nil)
		if err != nil {
			c.FailedCount++
			s.log.WithError(err).WithField("campaign_id", c.ID).WithField("user_id", r.UserID).Warn("campaign send failed")
		} else {
			c.SentCount++
		}
	}

	now := s.timeNow()
	c.SentAt = &now
	if c.SentCount == 0 {
		c.Status = campaign.StatusFailed
	} else {
		c.Status = campaign.StatusSent
	}
	metrics.RecordCampaignRun(c.Status, time.Since(started))
	updated, err := s.store.UpdateCampaign(ctx, c)
	if err != nil {
		return campaign.Campaign{}, errors.Internal("failed to update campaign", err)
	}

	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventCampaignSent,
		AdminID:   adminID,
		Metadata: map[string]interface{}{
			"campaign_id": c.ID,
			"recipients":  c.RecipientCount,
			"sent":        c.SentCount,
			"failed":      c.FailedCount,
		},
	})
	return updated, nil
}

// recipient is one resolved campaign target.
type recipient struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
}

// resolveRecipients expands the campaign's targeting into concrete addresses.
// Blocked users and users without an email are always excluded.
func (s *Service) resolveRecipients(ctx context.Context, c campaign.Campaign) ([]recipient, error) {
	filter := storage.UserFilter{Limit: recipientPageSize}
	no := false
	filter.IsBlocked = &no

	switch c.TargetingType {
	case campaign.TargetAll:
	case campaign.TargetPremium:
		yes := true
		filter.IsPremium = &yes
	case campaign.TargetCountry:
		code, _ := c.TargetingFilters["country_code"].(string)
		if code == "" {
			return nil, errors.Validation("country targeting requires targeting_filters.country_code")
		}
		filter.CountryCode = code
	case campaign.TargetSegment:
		return s.segmentRecipients(ctx, c)
	default:
		return nil, errors.Validation("unknown targeting type: " + c.TargetingType)
	}

	var out []recipient
	for {
		page, err := s.store.ListProfiles(ctx, filter)
		if err != nil {
			return nil, errors.Internal("failed to resolve recipients", err)
		}
		out = append(out, s.toRecipients(ctx, page)...)
		if len(page) < filter.Limit {
			break
		}
		filter.Cursor = page[len(page)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	return out, nil
}

func (s *Service) segmentRecipients(ctx context.Context, c campaign.Campaign) ([]recipient, error) {
	segmentID, _ := c.TargetingFilters["segment_id"].(string)
	if segmentID == "" {
		return nil, errors.Validation("segment targeting requires targeting_filters.segment_id")
	}
	ids, err := s.store.ListMemberIDs(ctx, segmentID)
	if err != nil {
		return nil, errors.Internal("failed to resolve segment members", err)
	}
	var profiles []user.Profile
	for _, id := range ids {
		p, err := s.store.GetProfile(ctx, id)
		if err != nil || p.IsBlocked {
			continue
		}
		profiles = append(profiles, p)
	}
	return s.toRecipients(ctx, profiles), nil
}

func (s *Service) toRecipients(ctx context.Context, profiles []user.Profile) []recipient {
	if len(profiles) == 0 {
		return nil
	}
	ids := make([]string, len(profiles))
	for i, p := range profiles {
		ids[i] = p.UserID
	}
	emails, err := s.store.ListEmails(ctx, ids)
	if err != nil {
		s.log.WithError(err).Warn("recipient email lookup failed")
	}

	out := make([]recipient, 0, len(profiles))
	for _, p := range profiles {
		email := p.Email
		if email == "" {
			email = emails[p.UserID]
		}
		if email == "" {
			continue
		}
		out = append(out, recipient{
			UserID:    p.UserID,
			Email:     email,
			FirstName: p.FirstName,
			LastName:  p.LastName,
		})
	}
	return out
}

// render substitutes {{first_name}}, {{last_name}} and {{email}}
// placeholders.
func render(template string, r recipient) string {
	replacer := strings.NewReplacer(
		"{{first_name}}", r.FirstName,
		"{{last_name}}", r.LastName,
		"{{email}}", r.Email,
	)
	return replacer.Replace(template)
}

// Stats returns delivery counts for one campaign.
func (s *Service) Stats(ctx context.Context, id string) (campaign.Stats, error) {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return campaign.Stats{}, errors.NotFound("campaign")
	}
	return campaign.Stats{
		CampaignID:     c.ID,
		RecipientCount: c.RecipientCount,
		SentCount:      c.SentCount,
		FailedCount:    c.FailedCount,
		Status:         c.Status,
		SentAt:         c.SentAt,
	}, nil
}

// RunDue fires every scheduled campaign whose time has passed. The scheduler
// calls this once a minute.
func (s *Service) RunDue(ctx context.Context) {
	if s.emails == nil {
		return
	}
	due, err := s.store.ListDueCampaigns(ctx, s.timeNow())
	if err != nil {
		s.log.WithError(err).Error("due campaign scan failed")
		return
	}
	for _, c := range due {
		if _, err := s.deliver(ctx, c, c.CreatedBy); err != nil {
			s.log.WithError(err).WithField("campaign_id", c.ID).Error("scheduled campaign send failed")
			c.Status = campaign.StatusFailed
			if _, err := s.store.UpdateCampaign(ctx, c); err != nil {
				s.log.WithError(err).WithField("campaign_id", c.ID).Error("campaign status update failed")
			}
		}
	}
}
