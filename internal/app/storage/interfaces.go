// Package storage defines the persistence interfaces for the back office.
// Implementations live in the memory and supabase subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/audit"
	"github.com/nexus-partners/admin-backend/internal/app/domain/campaign"
	"github.com/nexus-partners/admin-backend/internal/app/domain/message"
	"github.com/nexus-partners/admin-backend/internal/app/domain/moderation"
	"github.com/nexus-partners/admin-backend/internal/app/domain/setting"
	"github.com/nexus-partners/admin-backend/internal/app/domain/subscription"
	"github.com/nexus-partners/admin-backend/internal/app/domain/user"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// UserFilter narrows profile listings. Nil bool pointers mean "no filter".
type UserFilter struct {
	Search      string
	Role        string
	CountryCode string
	IsPremium   *bool
	IsBlocked   *bool
	HasProfile  *bool
	Cursor      string // exclusive created_at upper bound, RFC 3339
	Limit       int
}

// AdminStore persists operator profiles and notifications.
type AdminStore interface {
	GetAdminByUserID(ctx context.Context, userID string) (admin.Profile, error)
	UpdateAdmin(ctx context.Context, profile admin.Profile) (admin.Profile, error)
	ListActiveAdmins(ctx context.Context, role string) ([]admin.Profile, error)

	CreateNotification(ctx context.Context, n admin.Notification) (admin.Notification, error)
	ListNotifications(ctx context.Context, adminID string, unreadOnly bool) ([]admin.Notification, error)
	MarkNotificationRead(ctx context.Context, id, adminID string) error
}

// UserStore persists end-user profiles and their back-office metadata.
type UserStore interface {
	ListProfiles(ctx context.Context, filter UserFilter) ([]user.Profile, error)
	CountProfiles(ctx context.Context, filter UserFilter) (int, error)
	GetProfile(ctx context.Context, userID string) (user.Profile, error)
	UpdateProfile(ctx context.Context, profile user.Profile) (user.Profile, error)
	DeleteProfile(ctx context.Context, userID string) error

	ListEmails(ctx context.Context, userIDs []string) (map[string]string, error)

	ListTags(ctx context.Context, userIDs []string) ([]user.Tag, error)
	AddTag(ctx context.Context, tag user.Tag) (user.Tag, error)
	RemoveTag(ctx context.Context, userID, tag string) error

	ListCustomFields(ctx context.Context, userID string) ([]user.CustomField, error)
}

// SegmentStore persists saved user segments and memberships.
type SegmentStore interface {
	CreateSegment(ctx context.Context, seg user.Segment) (user.Segment, error)
	GetSegment(ctx context.Context, id string) (user.Segment, error)
	ListSegments(ctx context.Context, adminID string) ([]user.Segment, error)
	UpdateSegment(ctx context.Context, seg user.Segment) (user.Segment, error)
	DeleteSegment(ctx context.Context, id string) error

	AddSegmentMember(ctx context.Context, member user.SegmentMember) error
	RemoveSegmentMember(ctx context.Context, segmentID, userID string) error
	ListSegmentMembers(ctx context.Context, userIDs []string) ([]user.SegmentMember, error)
	ListMemberIDs(ctx context.Context, segmentID string) ([]string, error)
}

// ImpersonationStore persists impersonation sessions.
type ImpersonationStore interface {
	CreateImpersonationSession(ctx context.Context, s user.ImpersonationSession) (user.ImpersonationSession, error)
	ListImpersonationSessions(ctx context.Context, targetUserID string) ([]user.ImpersonationSession, error)
	GetImpersonationSession(ctx context.Context, id string) (user.ImpersonationSession, error)
	RevokeImpersonationSession(ctx context.Context, id, revokedBy string, at time.Time) error
}

// SubscriptionStore persists plans, coupons and the subscription ledger.
type SubscriptionStore interface {
	ListPlans(ctx context.Context, includeInactive bool) ([]subscription.Plan, error)
	GetPlanByCode(ctx context.Context, code string) (subscription.Plan, error)
	CreatePlan(ctx context.Context, plan subscription.Plan) (subscription.Plan, error)
	UpdatePlan(ctx context.Context, plan subscription.Plan) (subscription.Plan, error)

	CreateCoupon(ctx context.Context, c subscription.Coupon) (subscription.Coupon, error)
	ListCoupons(ctx context.Context, activeOnly bool) ([]subscription.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (subscription.Coupon, error)
	UpdateCoupon(ctx context.Context, c subscription.Coupon) (subscription.Coupon, error)

	AppendHistory(ctx context.Context, entry subscription.HistoryEntry) (subscription.HistoryEntry, error)
	ListHistory(ctx context.Context, userID string) ([]subscription.HistoryEntry, error)
	ListExpiring(ctx context.Context, before time.Time) ([]user.Profile, error)
}

// ModerationFilter narrows queue listings.
type ModerationFilter struct {
	Status     string
	AssignedTo string
	Cursor     string
	Limit      int
}

// ModerationStore persists the review queue, macros and entrepreneur records.
type ModerationStore interface {
	ListQueue(ctx context.Context, filter ModerationFilter) ([]moderation.QueueItem, error)
	CountQueue(ctx context.Context, status string) (int, error)
	GetQueueItem(ctx context.Context, id string) (moderation.QueueItem, error)
	GetQueueItemByEntrepreneur(ctx context.Context, entrepreneurID string) (moderation.QueueItem, error)
	CreateQueueItem(ctx context.Context, item moderation.QueueItem) (moderation.QueueItem, error)
	UpdateQueueItem(ctx context.Context, item moderation.QueueItem) (moderation.QueueItem, error)
	ListResolvedSince(ctx context.Context, since time.Time) ([]moderation.QueueItem, error)

	CreateMacro(ctx context.Context, m moderation.Macro) (moderation.Macro, error)
	ListMacros(ctx context.Context) ([]moderation.Macro, error)
	GetMacro(ctx context.Context, id string) (moderation.Macro, error)
	UpdateMacro(ctx context.Context, m moderation.Macro) (moderation.Macro, error)
	DeleteMacro(ctx context.Context, id string) error

	GetEntrepreneur(ctx context.Context, id string) (moderation.Entrepreneur, error)
	UpdateEntrepreneur(ctx context.Context, e moderation.Entrepreneur) (moderation.Entrepreneur, error)
	ListEntrepreneursByIDs(ctx context.Context, ids []string) ([]moderation.Entrepreneur, error)
	CountEntrepreneurs(ctx context.Context, status string) (int, error)
}

// MessageFilter narrows support message listings.
type MessageFilter struct {
	Status     string
	AssignedTo string
	Category   string
	Cursor     string
	Limit      int
}

// MessageStore persists support messages and reply templates.
type MessageStore interface {
	ListMessages(ctx context.Context, filter MessageFilter) ([]message.Message, error)
	CountMessages(ctx context.Context, status string) (int, error)
	GetMessage(ctx context.Context, id string) (message.Message, error)
	UpdateMessage(ctx context.Context, msg message.Message) (message.Message, error)

	CreateTemplate(ctx context.Context, t message.Template) (message.Template, error)
	ListTemplates(ctx context.Context) ([]message.Template, error)
	GetTemplate(ctx context.Context, id string) (message.Template, error)
	UpdateTemplate(ctx context.Context, t message.Template) (message.Template, error)
	DeleteTemplate(ctx context.Context, id string) error
}

// CampaignStore persists campaigns and email templates.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, c campaign.Campaign) (campaign.Campaign, error)
	GetCampaign(ctx context.Context, id string) (campaign.Campaign, error)
	ListCampaigns(ctx context.Context, status string) ([]campaign.Campaign, error)
	UpdateCampaign(ctx context.Context, c campaign.Campaign) (campaign.Campaign, error)
	DeleteCampaign(ctx context.Context, id string) error
	ListDueCampaigns(ctx context.Context, now time.Time) ([]campaign.Campaign, error)

	CreateEmailTemplate(ctx context.Context, t campaign.EmailTemplate) (campaign.EmailTemplate, error)
	ListEmailTemplates(ctx context.Context, activeOnly bool) ([]campaign.EmailTemplate, error)
	GetEmailTemplate(ctx context.Context, id string) (campaign.EmailTemplate, error)
	UpdateEmailTemplate(ctx context.Context, t campaign.EmailTemplate) (campaign.EmailTemplate, error)
}

// SettingStore persists typed system settings and backup requests.
type SettingStore interface {
	ListSettings(ctx context.Context, category string) ([]setting.SystemSetting, error)
	GetSetting(ctx context.Context, key string) (setting.SystemSetting, error)
	UpdateSetting(ctx context.Context, s setting.SystemSetting) (setting.SystemSetting, error)
	CreateBackupRequest(ctx context.Context, req setting.BackupRequest) (setting.BackupRequest, error)
}

// AuditFilter narrows audit log listings.
type AuditFilter struct {
	Severities []string
	EventTypes []string
	Actor      string
	Search     string
	StartDate  *time.Time
	EndDate    *time.Time
	Cursor     string
	Limit      int
}

// AuditStore persists the append-only audit log. Entries are stamped before
// insertion and never updated.
type AuditStore interface {
	AppendAuditEntry(ctx context.Context, entry audit.Entry) (audit.Entry, error)
	ListAuditEntries(ctx context.Context, filter AuditFilter) ([]audit.Entry, error)
	CountAuditEntries(ctx context.Context, filter AuditFilter) (int, error)
	GetAuditEntry(ctx context.Context, id string) (audit.Entry, error)
	ListAuditByActor(ctx context.Context, actorID string, limit int) ([]audit.Entry, error)
	SeveritySummary(ctx context.Context, filter AuditFilter) (map[string]int, error)
	LastCriticalAt(ctx context.Context) (*time.Time, error)
}

// AnalyticsStore answers aggregate questions about the platform.
type AnalyticsStore interface {
	SignupDates(ctx context.Context, from, to time.Time) ([]time.Time, error)
	CountryDistribution(ctx context.Context) (map[string]int, error)
	RevenueEvents(ctx context.Context, from time.Time) ([]subscription.HistoryEntry, error)
}

// Store aggregates every persistence interface the application uses.
type Store interface {
	AdminStore
	UserStore
	SegmentStore
	ImpersonationStore
	SubscriptionStore
	ModerationStore
	MessageStore
	CampaignStore
	SettingStore
	AuditStore
	AnalyticsStore
}
