// Package users implements user administration: listing and enrichment,
// profile edits, blocking, deletion, tagging, saved segments, bulk actions
// and CSV export.
package users

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	auditdomain "github.com/nexus-partners/admin-backend/internal/app/domain/audit"
	"github.com/nexus-partners/admin-backend/internal/app/domain/user"
	auditsvc "github.com/nexus-partners/admin-backend/internal/app/services/audit"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/errors"
	"github.com/nexus-partners/admin-backend/pkg/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxBulkUsers    = 100
)

// Service handles user administration.
type Service struct {
	store   storage.Store
	audits  *auditsvc.Service
	log     *logger.Logger
	timeNow func() time.Time
}

// New constructs a users service.
func New(store storage.Store, audits *auditsvc.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{
		store:   store,
		audits:  audits,
		log:     log,
		timeNow: func() time.Time { return time.Now().UTC() },
	}
}

// Summary carries the list endpoint's aggregate counts.
type Summary struct {
	TotalUsers  int `json:"total_users"`
	Filtered    int `json:"filtered"`
	Premium     int `json:"premium"`
	Blocked     int `json:"blocked"`
	WithProfile int `json:"with_profile"`
}

// ListResult is one page of enriched profiles.
type ListResult struct {
	Data       []user.Profile `json:"data"`
	Total      int            `json:"total"`
	NextCursor string         `json:"next_cursor,omitempty"`
	Summary    Summary        `json:"summary"`
}

// List returns one page of profiles matching the filter, enriched with
// emails, tags and segment memberships, plus aggregate counts.
func (s *Service) List(ctx context.Context, filter storage.UserFilter) (ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}

	profiles, err := s.store.ListProfiles(ctx, filter)
	if err != nil {
		return ListResult{}, errors.Internal("failed to list users", err)
	}
	if err := s.enrich(ctx, profiles); err != nil {
		s.log.WithError(err).Warn("user enrichment failed")
	}

	summary, err := s.summarize(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}

	result := ListResult{Data: profiles, Total: summary.Filtered, Summary: summary}
	if len(profiles) == filter.Limit {
		result.NextCursor = profiles[len(profiles)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	return result, nil
}

func (s *Service) summarize(ctx context.Context, filter storage.UserFilter) (Summary, error) {
	overall, err := s.store.CountProfiles(ctx, storage.UserFilter{})
	if err != nil {
		return Summary{}, errors.Internal("failed to count users", err)
	}
	filtered, err := s.store.CountProfiles(ctx, filter)
	if err != nil {
		return Summary{}, errors.Internal("failed to count users", err)
	}
	yes := true
	withPremium := filter
	withPremium.IsPremium = &yes
	premium, _ := s.store.CountProfiles(ctx, withPremium)
	withBlocked := filter
	withBlocked.IsBlocked = &yes
	blocked, _ := s.store.CountProfiles(ctx, withBlocked)
	withProfile := filter
	withProfile.HasProfile = &yes
	complete, _ := s.store.CountProfiles(ctx, withProfile)

	return Summary{
		TotalUsers:  overall,
		Filtered:    filtered,
		Premium:     premium,
		Blocked:     blocked,
		WithProfile: complete,
	}, nil
}

// enrich attaches emails, tags and segment refs to the given page in place.
func (s *Service) enrich(ctx context.Context, profiles []user.Profile) error {
	if len(profiles) == 0 {
		return nil
	}
	ids := make([]string, len(profiles))
	for i, p := range profiles {
		ids[i] = p.UserID
	}

	emails, err := s.store.ListEmails(ctx, ids)
	if err != nil {
		return err
	}
	tags, err := s.store.ListTags(ctx, ids)
	if err != nil {
		return err
	}
	members, err := s.store.ListSegmentMembers(ctx, ids)
	if err != nil {
		return err
	}

	tagsByUser := make(map[string][]user.Tag)
	for _, t := range tags {
		tagsByUser[t.UserID] = append(tagsByUser[t.UserID], t)
	}
	segmentsByUser := make(map[string][]user.SegmentRef)
	segmentNames := make(map[string]string)
	for _, m := range members {
		name, ok := segmentNames[m.SegmentID]
		if !ok {
			if seg, err := s.store.GetSegment(ctx, m.SegmentID); err == nil {
				name = seg.Name
			}
			segmentNames[m.SegmentID] = name
		}
		segmentsByUser[m.UserID] = append(segmentsByUser[m.UserID], user.SegmentRef{ID: m.SegmentID, Name: name})
	}

	for i := range profiles {
		p := &profiles[i]
		if p.Email == "" {
			p.Email = emails[p.UserID]
		}
		p.Tags = tagsByUser[p.UserID]
		p.Segments = segmentsByUser[p.UserID]
	}
	return nil
}

// Detail is the single-user aggregate.
type Detail struct {
	Profile        user.Profile               `json:"profile"`
	CustomFields   []user.CustomField         `json:"custom_fields"`
	Impersonations []user.ImpersonationSession `json:"impersonation_sessions"`
	RecentActivity []auditdomain.Entry        `json:"recent_activity"`
}

// Get returns one user with metadata, custom fields, impersonation history
// and their recent audit trail.
func (s *Service) Get(ctx context.Context, userID string) (Detail, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return Detail{}, errors.NotFound("user")
	}
	page := []user.Profile{profile}
	if err := s.enrich(ctx, page); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("user enrichment failed")
	}
	profile = page[0]

	fields, err := s.store.ListCustomFields(ctx, userID)
	if err != nil {
		return Detail{}, errors.Internal("failed to load custom fields", err)
	}
	sessions, err := s.store.ListImpersonationSessions(ctx, userID)
	if err != nil {
		return Detail{}, errors.Internal("failed to load impersonation sessions", err)
	}
	activity, err := s.audits.RecentActivity(ctx, userID, 10)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("recent activity lookup failed")
		activity = nil
	}
	return Detail{
		Profile:        profile,
		CustomFields:   fields,
		Impersonations: sessions,
		RecentActivity: activity,
	}, nil
}

// UpdateRequest patches editable profile fields. Nil pointers leave the field
// untouched.
type UpdateRequest struct {
	FirstName        *string `json:"first_name,omitempty"`
	LastName         *string `json:"last_name,omitempty"`
	Role             *string `json:"role,omitempty"`
	CountryCode      *string `json:"country_code,omitempty"`
	City             *string `json:"city,omitempty"`
	SubscriptionTier *string `json:"subscription_tier,omitempty"`
}

// Update patches a profile and records the changed fields.
func (s *Service) Update(ctx context.Context, operator admin.Profile, userID string, req UpdateRequest) (user.Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return user.Profile{}, errors.NotFound("user")
	}

	changes := make(map[string]interface{})
	apply := func(field string, dst *string, src *string) {
		if src == nil || *dst == *src {
			return
		}
		changes[field] = map[string]interface{}{"old": *dst, "new": *src}
		*dst = *src
	}
	apply("first_name", &profile.FirstName, req.FirstName)
	apply("last_name", &profile.LastName, req.LastName)
	apply("role", &profile.Role, req.Role)
	apply("country_code", &profile.CountryCode, req.CountryCode)
	apply("city", &profile.City, req.City)
	apply("subscription_tier", &profile.SubscriptionTier, req.SubscriptionTier)
	if len(changes) == 0 {
		return profile, nil
	}

	updated, err := s.store.UpdateProfile(ctx, profile)
	if err != nil {
		return user.Profile{}, errors.Internal("failed to update user", err)
	}

	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventUserUpdated,
		AdminID:   operator.UserID,
		UserID:    userID,
		Changes:   changes,
	})
	return updated, nil
}

// Block marks a user blocked with a reason.
func (s *Service) Block(ctx context.Context, operator admin.Profile, userID, reason string) (user.Profile, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return user.Profile{}, errors.Validation("a block reason is required")
	}
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return user.Profile{}, errors.NotFound("user")
	}
	if profile.IsBlocked {
		return user.Profile{}, errors.Conflict("user is already blocked")
	}

	now := s.timeNow()
	profile.IsBlocked = true
	profile.BlockedAt = &now
	profile.BlockedBy = operator.UserID
	profile.BlockReason = reason
	updated, err := s.store.UpdateProfile(ctx, profile)
	if err != nil {
		return user.Profile{}, errors.Internal("failed to block user", err)
	}

	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventUserBlocked,
		AdminID:   operator.UserID,
		UserID:    userID,
		Metadata:  map[string]interface{}{"reason": reason},
	})
	return updated, nil
}

// Unblock clears a user's blocked state.
func (s *Service) Unblock(ctx context.Context, operator admin.Profile, userID string) (user.Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return user.Profile{}, errors.NotFound("user")
	}
	if !profile.IsBlocked {
		return user.Profile{}, errors.Conflict("user is not blocked")
	}

	previousReason := profile.BlockReason
	profile.IsBlocked = false
	profile.BlockedAt = nil
	profile.BlockedBy = ""
	profile.BlockReason = ""
	updated, err := s.store.UpdateProfile(ctx, profile)
	if err != nil {
		return user.Profile{}, errors.Internal("failed to unblock user", err)
	}

	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventUserUnblocked,
		AdminID:   operator.UserID,
		UserID:    userID,
		Metadata:  map[string]interface{}{"previous_reason": previousReason},
	})
	return updated, nil
}

// Delete removes a user. Soft deletion blocks the account and strips premium
// access; hard deletion drops the profile row entirely.
func (s *Service) Delete(ctx context.Context, operator admin.Profile, userID, reason string, hard bool) error {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return errors.NotFound("user")
	}

	if hard {
		if err := s.store.DeleteProfile(ctx, userID); err != nil {
			return errors.Internal("failed to delete user", err)
		}
	} else {
		now := s.timeNow()
		profile.IsBlocked = true
		profile.BlockedAt = &now
		profile.BlockedBy = operator.UserID
		profile.BlockReason = "account deleted"
		profile.IsPremium = false
		profile.PremiumUntil = nil
		if _, err := s.store.UpdateProfile(ctx, profile); err != nil {
			return errors.Internal("failed to delete user", err)
		}
	}

	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventUserDeleted,
		AdminID:   operator.UserID,
		UserID:    userID,
		Metadata:  map[string]interface{}{"hard": hard, "reason": strings.TrimSpace(reason)},
	})
	return nil
}

// AddTag attaches a colored label to a user.
func (s *Service) AddTag(ctx context.Context, operator admin.Profile, userID, tag, color string) (user.Tag, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return user.Tag{}, errors.Validation("tag is required")
	}
	if _, err := s.store.GetProfile(ctx, userID); err != nil {
		return user.Tag{}, errors.NotFound("user")
	}
	created, err := s.store.AddTag(ctx, user.Tag{
		UserID:  userID,
		Tag:     tag,
		Color:   color,
		AddedBy: operator.UserID,
	})
	if err != nil {
		return user.Tag{}, errors.Internal("failed to add tag", err)
	}
	return created, nil
}

// RemoveTag detaches a label from a user.
func (s *Service) RemoveTag(ctx context.Context, userID, tag string) error {
	if err := s.store.RemoveTag(ctx, userID, tag); err != nil {
		if err == storage.ErrNotFound {
			return errors.NotFound("tag")
		}
		return errors.Internal("failed to remove tag", err)
	}
	return nil
}

// BulkResult is the per-user outcome of a bulk action.
type BulkResult struct {
	UserID string `json:"user_id"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// BulkRequest applies one action to a batch of users.
type BulkRequest struct {
	Action    string   `json:"action"`
	UserIDs   []string `json:"user_ids"`
	Reason    string   `json:"reason,omitempty"`
	Tag       string   `json:"tag,omitempty"`
	Color     string   `json:"color,omitempty"`
	SegmentID string   `json:"segment_id,omitempty"`
}

// Bulk applies block, unblock, tag, untag, segment_add or segment_remove to
// up to 100 users, reporting each outcome individually.
func (s *Service) Bulk(ctx context.Context, operator admin.Profile, req BulkRequest) ([]BulkResult, error) {
	if len(req.UserIDs) == 0 {
		return nil, errors.Validation("user_ids is required")
	}
	if len(req.UserIDs) > maxBulkUsers {
		return nil, errors.Validation(fmt.Sprintf("at most %d users per bulk action", maxBulkUsers))
	}
	switch req.Action {
	case "segment_add", "segment_remove":
		if req.SegmentID == "" {
			return nil, errors.Validation("segment_id is required for segment actions")
		}
	}

	results := make([]BulkResult, 0, len(req.UserIDs))
	succeeded := 0
	for _, id := range req.UserIDs {
		var err error
		switch req.Action {
		case "block":
			_, err = s.Block(ctx, operator, id, req.Reason)
		case "unblock":
			_, err = s.Unblock(ctx, operator, id)
		case "tag", "add_tag":
			_, err = s.AddTag(ctx, operator, id, req.Tag, req.Color)
		case "untag", "remove_tag":
			err = s.RemoveTag(ctx, id, req.Tag)
		case "segment_add":
			err = s.AddSegmentMember(ctx, operator, req.SegmentID, id)
		case "segment_remove":
			err = s.RemoveSegmentMember(ctx, operator, req.SegmentID, id)
		default:
			return nil, errors.Validation("unknown bulk action: " + req.Action)
		}
		r := BulkResult{UserID: id, OK: err == nil}
		if err != nil {
			r.Error = err.Error()
		} else {
			succeeded++
		}
		results = append(results, r)
	}

	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventBulkAction,
		AdminID:   operator.UserID,
		Metadata: map[string]interface{}{
			"action":    req.Action,
			"requested": len(req.UserIDs),
			"succeeded": succeeded,
		},
	})
	return results, nil
}

// Export renders all users matching the filter as CSV, prefixed with a line
// carrying the SHA-256 of the content, and records the export as a critical
// event.
func (s *Service) Export(ctx context.Context, operator admin.Profile, filter storage.UserFilter) (string, string, error) {
	filter.Cursor = ""
	filter.Limit = maxPageSize

	var all []user.Profile
	for {
		page, err := s.store.ListProfiles(ctx, filter)
		if err != nil {
			return "", "", errors.Internal("failed to export users", err)
		}
		all = append(all, page...)
		if len(page) < filter.Limit {
			break
		}
		filter.Cursor = page[len(page)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	if err := s.enrich(ctx, all); err != nil {
		s.log.WithError(err).Warn("user enrichment failed")
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	header := []string{"user_id", "email", "first_name", "last_name", "role", "country_code", "city", "is_premium", "premium_until", "subscription_tier", "is_blocked", "tags", "created_at"}
	if err := w.Write(header); err != nil {
		return "", "", errors.Internal("failed to render export", err)
	}
	for _, p := range all {
		premiumUntil := ""
		if p.PremiumUntil != nil {
			premiumUntil = p.PremiumUntil.Format(time.RFC3339)
		}
		tags := make([]string, len(p.Tags))
		for i, t := range p.Tags {
			tags[i] = t.Tag
		}
		row := []string{
			p.UserID,
			p.Email,
			p.FirstName,
			p.LastName,
			p.Role,
			p.CountryCode,
			p.City,
			strconv.FormatBool(p.IsPremium),
			premiumUntil,
			p.SubscriptionTier,
			strconv.FormatBool(p.IsBlocked),
			strings.Join(tags, ";"),
			p.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return "", "", errors.Internal("failed to render export", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", "", errors.Internal("failed to render export", err)
	}

	content := sb.String()
	sum := sha256.Sum256([]byte(content))
	exportHash := hex.EncodeToString(sum[:])
	signed := fmt.Sprintf("# Export Hash: %s\n%s", exportHash, content)

	s.audits.Record(ctx, auditdomain.Entry{
		EventType: auditdomain.EventDataExported,
		AdminID:   operator.UserID,
		Metadata: map[string]interface{}{
			"resource":    "users",
			"count":       len(all),
			"export_hash": exportHash,
		},
	})

	filename := fmt.Sprintf("users_%s.csv", s.timeNow().Format("20060102_150405"))
	return signed, filename, nil
}
