package users

import (
	"context"
	"strings"

	"github.com/nexus-partners/admin-backend/internal/app/domain/admin"
	"github.com/nexus-partners/admin-backend/internal/app/domain/user"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/errors"
)

// SegmentRequest creates or updates a saved segment.
type SegmentRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Filters     map[string]interface{} `json:"filters,omitempty"`
	IsShared    bool                   `json:"is_shared"`
}

// CreateSegment saves a named user filter owned by the operator.
func (s *Service) CreateSegment(ctx context.Context, operator admin.Profile, req SegmentRequest) (user.Segment, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return user.Segment{}, errors.Validation("segment name is required")
	}
	if req.Filters == nil {
		req.Filters = make(map[string]interface{})
	}
	seg, err := s.store.CreateSegment(ctx, user.Segment{
		Name:        req.Name,
		Description: req.Description,
		Filters:     req.Filters,
		IsShared:    req.IsShared,
		CreatedBy:   operator.UserID,
	})
	if err != nil {
		return user.Segment{}, errors.Internal("failed to create segment", err)
	}
	return seg, nil
}

// ListSegments returns the operator's own segments plus shared ones.
func (s *Service) ListSegments(ctx context.Context, operator admin.Profile) ([]user.Segment, error) {
	segments, err := s.store.ListSegments(ctx, operator.UserID)
	if err != nil {
		return nil, errors.Internal("failed to list segments", err)
	}
	return segments, nil
}

// GetSegment returns one segment with its member count.
func (s *Service) GetSegment(ctx context.Context, operator admin.Profile, id string) (user.Segment, int, error) {
	seg, err := s.segmentVisibleTo(ctx, operator, id)
	if err != nil {
		return user.Segment{}, 0, err
	}
	members, err := s.store.ListMemberIDs(ctx, id)
	if err != nil {
		return user.Segment{}, 0, errors.Internal("failed to list segment members", err)
	}
	return seg, len(members), nil
}

// UpdateSegment patches a segment the operator owns.
func (s *Service) UpdateSegment(ctx context.Context, operator admin.Profile, id string, req SegmentRequest) (user.Segment, error) {
	seg, err := s.ownedSegment(ctx, operator, id)
	if err != nil {
		return user.Segment{}, err
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		seg.Name = name
	}
	seg.Description = req.Description
	if req.Filters != nil {
		seg.Filters = req.Filters
	}
	seg.IsShared = req.IsShared
	updated, err := s.store.UpdateSegment(ctx, seg)
	if err != nil {
		return user.Segment{}, errors.Internal("failed to update segment", err)
	}
	return updated, nil
}

// DeleteSegment removes a segment the operator owns.
func (s *Service) DeleteSegment(ctx context.Context, operator admin.Profile, id string) error {
	if _, err := s.ownedSegment(ctx, operator, id); err != nil {
		return err
	}
	if err := s.store.DeleteSegment(ctx, id); err != nil {
		return errors.Internal("failed to delete segment", err)
	}
	return nil
}

// AddSegmentMember puts a user into a segment.
func (s *Service) AddSegmentMember(ctx context.Context, operator admin.Profile, segmentID, userID string) error {
	if _, err := s.segmentVisibleTo(ctx, operator, segmentID); err != nil {
		return err
	}
	if _, err := s.store.GetProfile(ctx, userID); err != nil {
		return errors.NotFound("user")
	}
	if err := s.store.AddSegmentMember(ctx, user.SegmentMember{
		SegmentID: segmentID,
		UserID:    userID,
		AddedBy:   operator.UserID,
	}); err != nil {
		return errors.Internal("failed to add segment member", err)
	}
	return nil
}

// RemoveSegmentMember takes a user out of a segment.
func (s *Service) RemoveSegmentMember(ctx context.Context, operator admin.Profile, segmentID, userID string) error {
	if _, err := s.segmentVisibleTo(ctx, operator, segmentID); err != nil {
		return err
	}
	if err := s.store.RemoveSegmentMember(ctx, segmentID, userID); err != nil {
		if err == storage.ErrNotFound {
			return errors.NotFound("segment member")
		}
		return errors.Internal("failed to remove segment member", err)
	}
	return nil
}

func (s *Service) segmentVisibleTo(ctx context.Context, operator admin.Profile, id string) (user.Segment, error) {
	seg, err := s.store.GetSegment(ctx, id)
	if err != nil {
		return user.Segment{}, errors.NotFound("segment")
	}
	if !seg.IsShared && seg.CreatedBy != operator.UserID && operator.Role != admin.RoleAdmin {
		return user.Segment{}, errors.Forbidden("segment belongs to another admin")
	}
	return seg, nil
}

func (s *Service) ownedSegment(ctx context.Context, operator admin.Profile, id string) (user.Segment, error) {
	seg, err := s.store.GetSegment(ctx, id)
	if err != nil {
		return user.Segment{}, errors.NotFound("segment")
	}
	if seg.CreatedBy != operator.UserID && operator.Role != admin.RoleAdmin {
		return user.Segment{}, errors.Forbidden("segment belongs to another admin")
	}
	return seg, nil
}
