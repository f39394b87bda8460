package memory

import (
	"context"
	"sort"

	"github.com/nexus-partners/admin-backend/internal/app/domain/setting"
	"github.com/nexus-partners/admin-backend/internal/app/storage"
)

func (s *Store) ListSettings(_ context.Context, category string) ([]setting.SystemSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []setting.SystemSetting
	for _, item := range s.settings {
		if category != "" && item.Category != category {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].SettingKey < out[j].SettingKey
	})
	return out, nil
}

func (s *Store) GetSetting(_ context.Context, key string) (setting.SystemSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.settings[key]
	if !ok {
		return setting.SystemSetting{}, storage.ErrNotFound
	}
	return item, nil
}

func (s *Store) UpdateSetting(_ context.Context, item setting.SystemSetting) (setting.SystemSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.settings[item.SettingKey]
	if !ok {
		if item.ID == "" {
			item.ID = newID()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now()
		}
	} else {
		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
	}
	item.UpdatedAt = now()
	s.settings[item.SettingKey] = item
	return item, nil
}

func (s *Store) CreateBackupRequest(_ context.Context, req setting.BackupRequest) (setting.BackupRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.ID == "" {
		req.ID = newID()
	}
	if req.Status == "" {
		req.Status = "pending"
	}
	req.CreatedAt = now()
	s.backups[req.ID] = req
	return req, nil
}
