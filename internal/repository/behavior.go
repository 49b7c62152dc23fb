package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"BitePoints/internal/model"
)

// BehaviorFor 查询用户行为画像，不存在时返回零值画像（不落库）
func (s *Store) BehaviorFor(ctx context.Context, userID string) (*model.UserBehavior, error) {
	var behavior model.UserBehavior

	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&behavior).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.UserBehavior{
			UserID:              userID,
			CompletedSurveys:    model.StringList{},
			PreferredCategories: model.StringList{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user behavior: %w", err)
	}
	return &behavior, nil
}

// SaveBehavior 按 user_id 覆盖写入行为画像
func (s *Store) SaveBehavior(ctx context.Context, behavior *model.UserBehavior) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"completed_surveys", "preferred_categories", "average_session_time",
			"last_activity", "total_points", "updated_at",
		}),
	}).Create(behavior).Error
	if err != nil {
		return fmt.Errorf("failed to save user behavior: %w", err)
	}
	return nil
}
