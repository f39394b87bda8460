package memory

import (
	"context"
	"strings"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/user"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
)

// AdminStore --------------------------------------------------------------

func (s *Store) GetAdminByUserID(_ context.Context, userID string) (admin.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.admins[userID]
	if !ok {
		return admin.Profile{}, storage.ErrNotFound
	}
	return profile, nil
}

func (s *Store) UpdateAdmin(_ context.Context, profile admin.Profile) (admin.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.admins[profile.UserID]
	if !ok {
		if profile.ID == "" {
			profile.ID = newID()
		}
		if profile.CreatedAt.IsZero() {
			profile.CreatedAt = now()
		}
	} else {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
	}
	profile.UpdatedAt = now()
	s.admins[profile.UserID] = profile
	return profile, nil
}

func (s *Store) ListActiveAdmins(_ context.Context, role string) ([]admin.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []admin.Profile
	for _, p := range s.admins {
		if !p.IsActive {
			continue
		}
		if role != "" && p.Role != role {
			continue
		}
		out = append(out, p)
	}
	sortByCreatedDesc(out, func(p admin.Profile) time.Time { return p.CreatedAt })
	return out, nil
}

func (s *Store) CreateNotification(_ context.Context, n admin.Notification) (admin.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = newID()
	}
	n.CreatedAt = now()
	s.notifications[n.ID] = n
	return n, nil
}

func (s *Store) ListNotifications(_ context.Context, adminID string, unreadOnly bool) ([]admin.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []admin.Notification
	for _, n := range s.notifications {
		if n.AdminID != adminID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	sortByCreatedDesc(out, func(n admin.Notification) time.Time { return n.CreatedAt })
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id, adminID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.AdminID != adminID {
		return storage.ErrNotFound
	}
	readAt := now()
	n.Read = true
	n.ReadAt = &readAt
	s.notifications[id] = n
	return nil
}

// UserStore ---------------------------------------------------------------

func (s *Store) matchesFilter(p user.Profile, f storage.UserFilter) bool {
	if f.Role != "" && p.Role != f.Role {
		return false
	}
	if f.CountryCode != "" && !strings.EqualFold(p.CountryCode, f.CountryCode) {
		return false
	}
	if f.IsPremium != nil && p.IsPremium != *f.IsPremium {
		return false
	}
	if f.IsBlocked != nil && p.IsBlocked != *f.IsBlocked {
		return false
	}
	if f.HasProfile != nil && p.HasProfile != *f.HasProfile {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(strings.TrimSpace(f.Search))
		email := strings.ToLower(s.emails[p.UserID])
		haystack := strings.ToLower(p.FirstName + " " + p.LastName + " " + email)
		for _, word := range strings.Fields(term) {
			if !strings.Contains(haystack, word) {
				return false
			}
		}
	}
	return true
}

func (s *Store) ListProfiles(_ context.Context, filter storage.UserFilter) ([]user.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []user.Profile
	for _, p := range s.profiles {
		if !s.matchesFilter(p, filter) {
			continue
		}
		if !afterCursor(p.CreatedAt, filter.Cursor) {
			continue
		}
		out = append(out, p)
	}
	sortByCreatedDesc(out, func(p user.Profile) time.Time { return p.CreatedAt })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) CountProfiles(_ context.Context, filter storage.UserFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, p := range s.profiles {
		if s.matchesFilter(p, filter) {
			count++
		}
	}
	return count, nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (user.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return user.Profile{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpdateProfile(_ context.Context, profile user.Profile) (user.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.profiles[profile.UserID]
	if !ok {
		if profile.ID == "" {
			profile.ID = newID()
		}
		if profile.CreatedAt.IsZero() {
			profile.CreatedAt = now()
		}
	} else {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
	}
	profile.UpdatedAt = now()
	s.profiles[profile.UserID] = profile
	return profile, nil
}

func (s *Store) DeleteProfile(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[userID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.profiles, userID)
	delete(s.emails, userID)
	delete(s.tags, userID)
	delete(s.customFields, userID)
	return nil
}

func (s *Store) ListEmails(_ context.Context, userIDs []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		if email, ok := s.emails[id]; ok {
			out[id] = email
		}
	}
	return out, nil
}

// SetEmail seeds an auth email for tests.
func (s *Store) SetEmail(userID, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails[userID] = email
}

func (s *Store) ListTags(_ context.Context, userIDs []string) ([]user.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []user.Tag
	for _, id := range userIDs {
		out = append(out, s.tags[id]...)
	}
	return out, nil
}

func (s *Store) AddTag(_ context.Context, tag user.Tag) (user.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tags[tag.UserID] {
		if existing.Tag == tag.Tag {
			return existing, nil
		}
	}
	if tag.ID == "" {
		tag.ID = newID()
	}
	tag.CreatedAt = now()
	s.tags[tag.UserID] = append(s.tags[tag.UserID], tag)
	return tag, nil
}

func (s *Store) RemoveTag(_ context.Context, userID, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tags := s.tags[userID]
	for i, existing := range tags {
		if existing.Tag == tag {
			s.tags[userID] = append(tags[:i], tags[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) ListCustomFields(_ context.Context, userID string) ([]user.CustomField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]user.CustomField(nil), s.customFields[userID]...), nil
}

// SegmentStore ------------------------------------------------------------

func (s *Store) CreateSegment(_ context.Context, seg user.Segment) (user.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seg.ID == "" {
		seg.ID = newID()
	}
	seg.CreatedAt = now()
	seg.UpdatedAt = seg.CreatedAt
	s.segments[seg.ID] = seg
	return seg, nil
}

func (s *Store) GetSegment(_ context.Context, id string) (user.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, ok := s.segments[id]
	if !ok {
		return user.Segment{}, storage.ErrNotFound
	}
	return seg, nil
}

func (s *Store) ListSegments(_ context.Context, adminID string) ([]user.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []user.Segment
	for _, seg := range s.segments {
		if seg.IsShared || seg.CreatedBy == adminID {
			out = append(out, seg)
		}
	}
	sortByCreatedDesc(out, func(seg user.Segment) time.Time { return seg.CreatedAt })
	return out, nil
}

func (s *Store) UpdateSegment(_ context.Context, seg user.Segment) (user.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.segments[seg.ID]
	if !ok {
		return user.Segment{}, storage.ErrNotFound
	}
	seg.CreatedBy = existing.CreatedBy
	seg.CreatedAt = existing.CreatedAt
	seg.UpdatedAt = now()
	s.segments[seg.ID] = seg
	return seg, nil
}

func (s *Store) DeleteSegment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.segments[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.segments, id)
	delete(s.segmentMembers, id)
	return nil
}

func (s *Store) AddSegmentMember(_ context.Context, member user.SegmentMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.segments[member.SegmentID]; !ok {
		return storage.ErrNotFound
	}
	members := s.segmentMembers[member.SegmentID]
	if members == nil {
		members = make(map[string]user.SegmentMember)
		s.segmentMembers[member.SegmentID] = members
	}
	if member.ID == "" {
		member.ID = newID()
	}
	member.CreatedAt = now()
	members[member.UserID] = member
	return nil
}

func (s *Store) RemoveSegmentMember(_ context.Context, segmentID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.segmentMembers[segmentID]
	if !ok {
		return storage.ErrNotFound
	}
	if _, ok := members[userID]; !ok {
		return storage.ErrNotFound
	}
	delete(members, userID)
	return nil
}

func (s *Store) ListSegmentMembers(_ context.Context, userIDs []string) ([]user.SegmentMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	var out []user.SegmentMember
	for _, members := range s.segmentMembers {
		for userID, member := range members {
			if wanted[userID] {
				out = append(out, member)
			}
		}
	}
	return out, nil
}

func (s *Store) ListMemberIDs(_ context.Context, segmentID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members, ok := s.segmentMembers[segmentID]
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(members))
	for userID := range members {
		out = append(out, userID)
	}
	return out, nil
}

// ImpersonationStore ------------------------------------------------------

func (s *Store) CreateImpersonationSession(_ context.Context, session user.ImpersonationSession) (user.ImpersonationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.ID == "" {
		session.ID = newID()
	}
	session.CreatedAt = now()
	s.impersonations[session.ID] = session
	return session, nil
}

func (s *Store) ListImpersonationSessions(_ context.Context, targetUserID string) ([]user.ImpersonationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []user.ImpersonationSession
	for _, session := range s.impersonations {
		if session.TargetUserID == targetUserID {
			out = append(out, session)
		}
	}
	sortByCreatedDesc(out, func(session user.ImpersonationSession) time.Time { return session.CreatedAt })
	return out, nil
}

func (s *Store) GetImpersonationSession(_ context.Context, id string) (user.ImpersonationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.impersonations[id]
	if !ok {
		return user.ImpersonationSession{}, storage.ErrNotFound
	}
	return session, nil
}

func (s *Store) RevokeImpersonationSession(_ context.Context, id, revokedBy string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.impersonations[id]
	if !ok {
		return storage.ErrNotFound
	}
	session.RevokedAt = &at
	session.RevokedBy = revokedBy
	s.impersonations[id] = session
	return nil
}
