// Package supabase implements the storage interfaces on top of the Supabase
// PostgREST API. Each method builds an encoded query and decodes the JSON
// rows straight into the domain types.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/database"
)

// Table names in the Supabase project. Back-office tables live in the admin
// schema exposed through PostgREST.
const (
	tableAdminProfiles   = "admin_profiles"
	tableNotifications   = "admin_notifications"
	tableUserProfiles    = "user_profiles"
	tableAuthEmails      = "auth_user_emails" // view over auth.users
	tableUserTags        = "user_tags"
	tableCustomFields    = "user_custom_fields"
	tableSegments        = "user_segments"
	tableSegmentMembers  = "user_segment_members"
	tableImpersonations  = "impersonation_sessions"
	tablePlans           = "subscription_plans"
	tableCoupons         = "subscription_coupons"
	tableHistory         = "subscription_history"
	tableQueue           = "moderation_queue"
	tableMacros          = "moderation_macros"
	tableEntrepreneurs   = "entrepreneurs"
	tableMessages        = "contact_messages"
	tableMsgTemplates    = "support_templates"
	tableCampaigns       = "email_campaigns"
	tableEmailTemplates  = "email_templates"
	tableSystemSettings  = "system_settings"
	tableSystemJobs      = "system_jobs"
	tableAuditLogs       = "audit_logs"
)

// Store implements storage.Store against PostgREST.
type Store struct {
	client *database.Client
}

var _ storage.Store = (*Store)(nil)

// New creates a Store over an initialized Supabase client.
func New(client *database.Client) *Store {
	return &Store{client: client}
}

// selectInto runs a select and decodes the row array into dst.
func (s *Store) selectInto(ctx context.Context, table, query string, dst interface{}) error {
	body, err := s.client.Select(ctx, table, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s rows: %w", table, err)
	}
	return nil
}

// insertOne inserts a row and decodes the single returned representation.
func (s *Store) insertOne(ctx context.Context, table string, row, dst interface{}) error {
	body, err := s.client.Insert(ctx, table, row)
	if err != nil {
		return err
	}
	return decodeOne(table, body, dst)
}

// updateOne patches matching rows and decodes the first returned one.
func (s *Store) updateOne(ctx context.Context, table string, row interface{}, query string, dst interface{}) error {
	body, err := s.client.Update(ctx, table, row, query)
	if err != nil {
		return err
	}
	return decodeOne(table, body, dst)
}

// decodeOne unwraps PostgREST's single-element array representation.
func decodeOne(table string, body []byte, dst interface{}) error {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return fmt.Errorf("decode %s rows: %w", table, err)
	}
	if len(rows) == 0 {
		return storage.ErrNotFound
	}
	if err := json.Unmarshal(rows[0], dst); err != nil {
		return fmt.Errorf("decode %s row: %w", table, err)
	}
	return nil
}

// searchPattern renders a user-entered term as a PostgREST ilike pattern,
// with spaces widened to wildcards.
func searchPattern(term string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(term, ",", " "))
	if cleaned == "" {
		return ""
	}
	return "*" + strings.ReplaceAll(cleaned, " ", "*") + "*"
}
