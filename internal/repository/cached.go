package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"BitePoints/internal/model"
)

// CachedByID 按 cache_id 查询缓存问卷，未找到返回 (nil, nil)
func (s *Store) CachedByID(ctx context.Context, cacheID string) (*model.CachedSurvey, error) {
	var cached model.CachedSurvey

	err := s.db.WithContext(ctx).
		Where("cache_id = ?", cacheID).
		First(&cached).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cached survey %s: %w", cacheID, err)
	}
	return &cached, nil
}

// CachedForUser 查询用户的全部缓存问卷
func (s *Store) CachedForUser(ctx context.Context, userID string) ([]model.CachedSurvey, error) {
	var cached []model.CachedSurvey

	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("category asc").
		Find(&cached).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query cached surveys: %w", err)
	}
	return cached, nil
}

// UpsertCached 按 (user_id, category) 覆盖写入缓存问卷，新缓存顶掉旧缓存
func (s *Store) UpsertCached(ctx context.Context, cached *model.CachedSurvey) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cache_id", "survey_id", "questions", "answers",
			"completed_at", "synced_at", "updated_at",
		}),
	}).Create(cached).Error
	if err != nil {
		return fmt.Errorf("failed to upsert cached survey: %w", err)
	}
	return nil
}

// SaveCached 更新已有缓存问卷的答案与时间戳
func (s *Store) SaveCached(ctx context.Context, cached *model.CachedSurvey) error {
	err := s.db.WithContext(ctx).
		Model(&model.CachedSurvey{}).
		Where("cache_id = ?", cached.CacheID).
		Updates(map[string]interface{}{
			"answers":      cached.Answers,
			"completed_at": cached.CompletedAt,
			"synced_at":    cached.SyncedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to save cached survey: %w", err)
	}
	return nil
}

// PendingForUser 查询用户已完成未同步的缓存问卷
func (s *Store) PendingForUser(ctx context.Context, userID string) ([]model.CachedSurvey, error) {
	var cached []model.CachedSurvey

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND completed_at IS NOT NULL AND synced_at IS NULL", userID).
		Order("completed_at asc").
		Find(&cached).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query pending cached surveys: %w", err)
	}
	return cached, nil
}

// PendingBefore 查询全量滞留的待同步问卷，调度器兜底扫描使用
func (s *Store) PendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.CachedSurvey, error) {
	var cached []model.CachedSurvey

	err := s.db.WithContext(ctx).
		Where("completed_at IS NOT NULL AND synced_at IS NULL AND completed_at < ?", cutoff).
		Order("completed_at asc").
		Limit(limit).
		Find(&cached).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query stale pending surveys: %w", err)
	}
	return cached, nil
}

// MarkSynced 打同步完成标记
func (s *Store) MarkSynced(ctx context.Context, cacheID string, syncedAt time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&model.CachedSurvey{}).
		Where("cache_id = ? AND synced_at IS NULL", cacheID).
		Update("synced_at", syncedAt).Error
	if err != nil {
		return fmt.Errorf("failed to mark cached survey synced: %w", err)
	}
	return nil
}
