package supabase

import (
	"context"
	"time"

	"github.com/nexus-partners/admin-backend/internal/app/domain/setting"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
	"github.com/nexus-partners/admin-backend/internal/database"
)

func (s *Store) ListSettings(ctx context.Context, category string) ([]setting.SystemSetting, error) {
	q := database.NewQuery()
	if category != "" {
		q = q.Eq("category", category)
	}
	q = q.Order("category", false).Order("setting_key", false)
	var rows []setting.SystemSetting
	if err := s.selectInto(ctx, tableSystemSettings, q.Encode(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (setting.SystemSetting, error) {
	var rows []setting.SystemSetting
	q := database.NewQuery().Eq("setting_key", key).Limit(1).Encode()
	if err := s.selectInto(ctx, tableSystemSettings, q, &rows); err != nil {
		return setting.SystemSetting{}, err
	}
	if len(rows) == 0 {
		return setting.SystemSetting{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) UpdateSetting(ctx context.Context, item setting.SystemSetting) (setting.SystemSetting, error) {
	q := database.NewQuery().Eq("setting_key", item.SettingKey).Encode()
	patch := map[string]interface{}{
		"setting_value": item.SettingValue,
		"updated_by":    item.UpdatedBy,
		"updated_at":    time.Now().UTC(),
	}
	var updated setting.SystemSetting
	if err := s.updateOne(ctx, tableSystemSettings, patch, q, &updated); err != nil {
		return setting.SystemSetting{}, err
	}
	return updated, nil
}

func (s *Store) CreateBackupRequest(ctx context.Context, req setting.BackupRequest) (setting.BackupRequest, error) {
	if req.Status == "" {
		req.Status = "pending"
	}
	row := map[string]interface{}{
		"job_type":        "backup",
		"status":          req.Status,
		"reason":          req.Reason,
		"include_storage": req.IncludeStorage,
		"requested_by":    req.RequestedBy,
	}
	var created setting.BackupRequest
	if err := s.insertOne(ctx, tableSystemJobs, row, &created); err != nil {
		return setting.BackupRequest{}, err
	}
	return created, nil
}
