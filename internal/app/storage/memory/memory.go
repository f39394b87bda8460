// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/audit"
	"github.com/nexus-partners/admin-backend/internal/app/domain/campaign"
	"github.com/nexus-partners/admin-backend/internal/app/domain/message"
	"github.com/nexus-partners/admin-backend/internal/app/domain/moderation"
	"github.com/nexus-partners/admin-backend/internal/app/domain/setting"
	"github.com/nexus-partners/admin-backend/internal/app/domain/subscription"
	"github.com/nexus-partners/admin-backend/internal/app/domain/user"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
)

// Store holds every collection behind one lock. Individual operations are
// short so a single RWMutex keeps the implementation simple.
type Store struct {
	mu sync.RWMutex

	admins        map[string]admin.Profile // keyed by user_id
	notifications map[string]admin.Notification

	profiles     map[string]user.Profile // keyed by user_id
	emails       map[string]string       // user_id -> email
	tags         map[string][]user.Tag
	customFields map[string][]user.CustomField

	segments       map[string]user.Segment
	segmentMembers map[string]map[string]user.SegmentMember // segment_id -> user_id

	impersonations map[string]user.ImpersonationSession

	plans   map[string]subscription.Plan
	coupons map[string]subscription.Coupon
	history map[string][]subscription.HistoryEntry // keyed by user_id

	queue         map[string]moderation.QueueItem
	macros        map[string]moderation.Macro
	entrepreneurs map[string]moderation.Entrepreneur

	messages     map[string]message.Message
	msgTemplates map[string]message.Template

	campaigns      map[string]campaign.Campaign
	emailTemplates map[string]campaign.EmailTemplate

	settings map[string]setting.SystemSetting // keyed by setting_key
	backups  map[string]setting.BackupRequest

	auditLog []audit.Entry
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		admins:         make(map[string]admin.Profile),
		notifications:  make(map[string]admin.Notification),
		profiles:       make(map[string]user.Profile),
		emails:         make(map[string]string),
		tags:           make(map[string][]user.Tag),
		customFields:   make(map[string][]user.CustomField),
		segments:       make(map[string]user.Segment),
		segmentMembers: make(map[string]map[string]user.SegmentMember),
		impersonations: make(map[string]user.ImpersonationSession),
		plans:          make(map[string]subscription.Plan),
		coupons:        make(map[string]subscription.Coupon),
		history:        make(map[string][]subscription.HistoryEntry),
		queue:          make(map[string]moderation.QueueItem),
		macros:         make(map[string]moderation.Macro),
		entrepreneurs:  make(map[string]moderation.Entrepreneur),
		messages:       make(map[string]message.Message),
		msgTemplates:   make(map[string]message.Template),
		campaigns:      make(map[string]campaign.Campaign),
		emailTemplates: make(map[string]campaign.EmailTemplate),
		settings:       make(map[string]setting.SystemSetting),
		backups:        make(map[string]setting.BackupRequest),
	}
}

func newID() string {
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC()
}

// sortByCreatedDesc orders newest first, which every list endpoint expects.
func sortByCreatedDesc[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).After(createdAt(items[j]))
	})
}

// afterCursor reports whether a created_at survives the exclusive cursor
// bound. An empty or unparseable cursor keeps everything.
func afterCursor(createdAt time.Time, cursor string) bool {
	if cursor == "" {
		return true
	}
	bound, err := time.Parse(time.RFC3339Nano, cursor)
	if err != nil {
		bound, err = time.Parse(time.RFC3339, cursor)
		if err != nil {
			return true
		}
	}
	return createdAt.Before(bound)
}
