package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"BitePoints/internal/model"
)

// ProgressFor 查询用户某问卷的答卷进度，未找到返回 (nil, nil)
func (s *Store) ProgressFor(ctx context.Context, userID, surveyID string) (*model.SurveyProgress, error) {
	var progress model.SurveyProgress

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND survey_id = ?", userID, surveyID).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query survey progress: %w", err)
	}
	return &progress, nil
}

// SaveProgress 按 (user_id, survey_id) 覆盖写入答卷进度
func (s *Store) SaveProgress(ctx context.Context, progress *model.SurveyProgress) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "survey_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"answers", "current_question", "last_saved", "updated_at",
		}),
	}).Create(progress).Error
	if err != nil {
		return fmt.Errorf("failed to save survey progress: %w", err)
	}
	return nil
}

// DeleteProgress 删除答卷进度（完成或放弃后清理）
func (s *Store) DeleteProgress(ctx context.Context, userID, surveyID string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND survey_id = ?", userID, surveyID).
		Delete(&model.SurveyProgress{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete survey progress: %w", err)
	}
	return nil
}
