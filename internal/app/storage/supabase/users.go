package supabase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/user"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/database"
)

// AdminStore --------------------------------------------------------------

func (s *Store) GetAdminByUserID(ctx context.Context, userID string) (admin.Profile, error) {
	var rows []admin.Profile
	q := database.NewQuery().Eq("user_id", userID).Limit(1).Encode()
	if err := s.selectInto(ctx, tableAdminProfiles, q, &rows); err != nil {
		return admin.Profile{}, err
	}
	if len(rows) == 0 {
		return admin.Profile{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) UpdateAdmin(ctx context.Context, profile admin.Profile) (admin.Profile, error) {
	q := database.NewQuery().Eq("user_id", profile.UserID).Encode()
	patch := map[string]interface{}{
		"role":            profile.Role,
		"scopes":          profile.Scopes,
		"is_active":       profile.IsActive,
		"requires_2fa":    profile.Requires2FA,
		"mfa_secret":      profile.MFASecret,
		"mfa_verified":    profile.MFAVerified,
		"mfa_verified_at": profile.MFAVerifiedAt,
		"last_login":      profile.LastLogin,
		"login_count":     profile.LoginCount,
		"updated_at":      time.Now().UTC(),
	}
	var updated admin.Profile
	if err := s.updateOne(ctx, tableAdminProfiles, patch, q, &updated); err != nil {
		return admin.Profile{}, err
	}
	return updated, nil
}

func (s *Store) ListActiveAdmins(ctx context.Context, role string) ([]admin.Profile, error) {
	q := database.NewQuery().Eq("is_active", "true")
	if role != "" {
		q = q.Eq("role", role)
	}
	var rows []admin.Profile
	if err := s.selectInto(ctx, tableAdminProfiles, q.Order("created_at", true).Encode(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CreateNotification(ctx context.Context, n admin.Notification) (admin.Notification, error) {
	row := map[string]interface{}{
		"admin_id": n.AdminID,
		"type":     n.Type,
		"title":    n.Title,
		"body":     n.Body,
		"read":     false,
	}
	var created admin.Notification
	if err := s.insertOne(ctx, tableNotifications, row, &created); err != nil {
		return admin.Notification{}, err
	}
	return created, nil
}

func (s *Store) ListNotifications(ctx context.Context, adminID string, unreadOnly bool) ([]admin.Notification, error) {
	q := database.NewQuery().Eq("admin_id", adminID)
	if unreadOnly {
		q = q.Eq("read", "false")
	}
	var rows []admin.Notification
	if err := s.selectInto(ctx, tableNotifications, q.Order("created_at", true).Encode(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, adminID string) error {
	q := database.NewQuery().Eq("id", id).Eq("admin_id", adminID).Encode()
	patch := map[string]interface{}{"read": true, "read_at": time.Now().UTC()}
	var updated admin.Notification
	return s.updateOne(ctx, tableNotifications, patch, q, &updated)
}

// UserStore ---------------------------------------------------------------

func userFilterQuery(f storage.UserFilter) *database.Query {
	q := database.NewQuery()
	if f.Role != "" {
		q = q.Eq("role", f.Role)
	}
	if f.CountryCode != "" {
		q = q.Eq("country_code", strings.ToUpper(f.CountryCode))
	}
	if f.IsPremium != nil {
		q = q.Eq("is_premium", fmt.Sprintf("%t", *f.IsPremium))
	}
	if f.IsBlocked != nil {
		q = q.Eq("is_blocked", fmt.Sprintf("%t", *f.IsBlocked))
	}
	if f.HasProfile != nil {
		q = q.Eq("has_profile", fmt.Sprintf("%t", *f.HasProfile))
	}
	if pattern := searchPattern(f.Search); pattern != "" {
		q = q.Or(strings.Join([]string{
			"first_name.ilike." + pattern,
			"last_name.ilike." + pattern,
			"email.ilike." + pattern,
		}, ","))
	}
	return q
}

func (s *Store) ListProfiles(ctx context.Context, filter storage.UserFilter) ([]user.Profile, error) {
	q := userFilterQuery(filter)
	if filter.Cursor != "" {
		q = q.Lt("created_at", filter.Cursor)
	}
	q = q.Order("created_at", true)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []user.Profile
	if err := s.selectInto(ctx, tableUserProfiles, q.Encode(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CountProfiles(ctx context.Context, filter storage.UserFilter) (int, error) {
	return s.client.Count(ctx, tableUserProfiles, userFilterQuery(filter).Select("id").Encode())
}

func (s *Store) GetProfile(ctx context.Context, userID string) (user.Profile, error) {
	var rows []user.Profile
	q := database.NewQuery().Eq("user_id", userID).Limit(1).Encode()
	if err := s.selectInto(ctx, tableUserProfiles, q, &rows); err != nil {
		return user.Profile{}, err
	}
	if len(rows) == 0 {
		return user.Profile{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) UpdateProfile(ctx context.Context, profile user.Profile) (user.Profile, error) {
	q := database.NewQuery().Eq("user_id", profile.UserID).Encode()
	patch := map[string]interface{}{
		"first_name":        profile.FirstName,
		"last_name":         profile.LastName,
		"role":              profile.Role,
		"country_code":      profile.CountryCode,
		"city":              profile.City,
		"is_premium":        profile.IsPremium,
		"premium_until":     profile.PremiumUntil,
		"subscription_tier": profile.SubscriptionTier,
		"is_blocked":        profile.IsBlocked,
		"blocked_at":        profile.BlockedAt,
		"blocked_by":        profile.BlockedBy,
		"block_reason":      profile.BlockReason,
		"last_login":        profile.LastLogin,
		"login_count":       profile.LoginCount,
		"updated_at":        time.Now().UTC(),
	}
	var updated user.Profile
	if err := s.updateOne(ctx, tableUserProfiles, patch, q, &updated); err != nil {
		return user.Profile{}, err
	}
	return updated, nil
}

func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	q := database.NewQuery().Eq("user_id", userID).Encode()
	return s.client.Delete(ctx, tableUserProfiles, q)
}

func (s *Store) ListEmails(ctx context.Context, userIDs []string) (map[string]string, error) {
	if len(userIDs) == 0 {
		return map[string]string{}, nil
	}
	q := database.NewQuery().Select("id,email").In("id", userIDs).Encode()
	var rows []struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := s.selectInto(ctx, tableAuthEmails, q, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Email
	}
	return out, nil
}

func (s *Store) ListTags(ctx context.Context, userIDs []string) ([]user.Tag, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	q := database.NewQuery().In("user_id", userIDs).Encode()
	var rows []user.Tag
	if err := s.selectInto(ctx, tableUserTags, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) AddTag(ctx context.Context, tag user.Tag) (user.Tag, error) {
	row := map[string]interface{}{
		"user_id":  tag.UserID,
		"tag":      tag.Tag,
		"color":    tag.Color,
		"added_by": tag.AddedBy,
	}
	var created user.Tag
	if err := s.insertOne(ctx, tableUserTags, row, &created); err != nil {
		return user.Tag{}, err
	}
	return created, nil
}

func (s *Store) RemoveTag(ctx context.Context, userID, tag string) error {
	q := database.NewQuery().Eq("user_id", userID).Eq("tag", tag).Encode()
	return s.client.Delete(ctx, tableUserTags, q)
}

func (s *Store) ListCustomFields(ctx context.Context, userID string) ([]user.CustomField, error) {
	q := database.NewQuery().Eq("user_id", userID).Encode()
	var rows []user.CustomField
	if err := s.selectInto(ctx, tableCustomFields, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// SegmentStore ------------------------------------------------------------

func (s *Store) CreateSegment(ctx context.Context, seg user.Segment) (user.Segment, error) {
	row := map[string]interface{}{
		"name":        seg.Name,
		"description": seg.Description,
		"filters":     seg.Filters,
		"is_shared":   seg.IsShared,
		"created_by":  seg.CreatedBy,
	}
	var created user.Segment
	if err := s.insertOne(ctx, tableSegments, row, &created); err != nil {
		return user.Segment{}, err
	}
	return created, nil
}

func (s *Store) GetSegment(ctx context.Context, id string) (user.Segment, error) {
	var rows []user.Segment
	q := database.NewQuery().Eq("id", id).Limit(1).Encode()
	if err := s.selectInto(ctx, tableSegments, q, &rows); err != nil {
		return user.Segment{}, err
	}
	if len(rows) == 0 {
		return user.Segment{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) ListSegments(ctx context.Context, adminID string) ([]user.Segment, error) {
	q := database.NewQuery().
		Or("is_shared.eq.true,created_by.eq." + adminID).
		Order("created_at", true)
	var rows []user.Segment
	if err := s.selectInto(ctx, tableSegments, q.Encode(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) UpdateSegment(ctx context.Context, seg user.Segment) (user.Segment, error) {
	q := database.NewQuery().Eq("id", seg.ID).Encode()
	patch := map[string]interface{}{
		"name":        seg.Name,
		"description": seg.Description,
		"filters":     seg.Filters,
		"is_shared":   seg.IsShared,
		"updated_at":  time.Now().UTC(),
	}
	var updated user.Segment
	if err := s.updateOne(ctx, tableSegments, patch, q, &updated); err != nil {
		return user.Segment{}, err
	}
	return updated, nil
}

func (s *Store) DeleteSegment(ctx context.Context, id string) error {
	memberQ := database.NewQuery().Eq("segment_id", id).Encode()
	if err := s.client.Delete(ctx, tableSegmentMembers, memberQ); err != nil {
		return err
	}
	return s.client.Delete(ctx, tableSegments, database.NewQuery().Eq("id", id).Encode())
}

func (s *Store) AddSegmentMember(ctx context.Context, member user.SegmentMember) error {
	row := map[string]interface{}{
		"segment_id": member.SegmentID,
		"user_id":    member.UserID,
		"added_by":   member.AddedBy,
	}
	_, err := s.client.Upsert(ctx, tableSegmentMembers, row)
	return err
}

func (s *Store) RemoveSegmentMember(ctx context.Context, segmentID, userID string) error {
	q := database.NewQuery().Eq("segment_id", segmentID).Eq("user_id", userID).Encode()
	return s.client.Delete(ctx, tableSegmentMembers, q)
}

func (s *Store) ListSegmentMembers(ctx context.Context, userIDs []string) ([]user.SegmentMember, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	q := database.NewQuery().In("user_id", userIDs).Encode()
	var rows []user.SegmentMember
	if err := s.selectInto(ctx, tableSegmentMembers, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListMemberIDs(ctx context.Context, segmentID string) ([]string, error) {
	q := database.NewQuery().Select("user_id").Eq("segment_id", segmentID).Encode()
	var rows []struct {
		UserID string `json:"user_id"`
	}
	if err := s.selectInto(ctx, tableSegmentMembers, q, &rows); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.UserID)
	}
	return out, nil
}

// ImpersonationStore ------------------------------------------------------

func (s *Store) CreateImpersonationSession(ctx context.Context, session user.ImpersonationSession) (user.ImpersonationSession, error) {
	row := map[string]interface{}{
		"admin_id":       session.AdminID,
		"target_user_id": session.TargetUserID,
		"reason":         session.Reason,
		"expires_at":     session.ExpiresAt,
	}
	var created user.ImpersonationSession
	if err := s.insertOne(ctx, tableImpersonations, row, &created); err != nil {
		return user.ImpersonationSession{}, err
	}
	return created, nil
}

func (s *Store) ListImpersonationSessions(ctx context.Context, targetUserID string) ([]user.ImpersonationSession, error) {
	q := database.NewQuery().Eq("target_user_id", targetUserID).Order("created_at", true).Encode()
	var rows []user.ImpersonationSession
	if err := s.selectInto(ctx, tableImpersonations, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) GetImpersonationSession(ctx context.Context, id string) (user.ImpersonationSession, error) {
	var rows []user.ImpersonationSession
	q := database.NewQuery().Eq("id", id).Limit(1).Encode()
	if err := s.selectInto(ctx, tableImpersonations, q, &rows); err != nil {
		return user.ImpersonationSession{}, err
	}
	if len(rows) == 0 {
		return user.ImpersonationSession{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) RevokeImpersonationSession(ctx context.Context, id, revokedBy string, at time.Time) error {
	q := database.NewQuery().Eq("id", id).Encode()
	patch := map[string]interface{}{"revoked_at": at, "revoked_by": revokedBy}
	var updated user.ImpersonationSession
	return s.updateOne(ctx, tableImpersonations, patch, q, &updated)
}
