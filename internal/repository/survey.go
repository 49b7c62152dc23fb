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

// UpsertSurveys 按 survey_id 覆盖写入目录镜像
func (s *Store) UpsertSurveys(ctx context.Context, surveys []model.Survey) error {
	if len(surveys) == 0 {
		return nil
	}

	db := s.db.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "survey_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "category", "description", "estimated_time", "base_points",
			"questions", "schedule", "targeting", "is_active", "multiplier", "fallback",
			"updated_at",
		}),
	}).Create(&surveys).Error
	if err != nil {
		return fmt.Errorf("failed to upsert surveys: %w", err)
	}
	return nil
}

// ActiveSurveys 读取全部在用问卷
func (s *Store) ActiveSurveys(ctx context.Context) ([]model.Survey, error) {
	var surveys []model.Survey

	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("survey_id asc").
		Find(&surveys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query active surveys: %w", err)
	}
	return surveys, nil
}

// SurveyByID 按目录 ID 查询问卷，未找到返回 (nil, nil)
func (s *Store) SurveyByID(ctx context.Context, surveyID string) (*model.Survey, error) {
	var survey model.Survey

	err := s.db.WithContext(ctx).
		Where("survey_id = ?", surveyID).
		First(&survey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query survey %s: %w", surveyID, err)
	}
	return &survey, nil
}

// ScheduleFor 查询用户对某问卷的个人调度记录，未找到返回 (nil, nil)
func (s *Store) ScheduleFor(ctx context.Context, userID, surveyID string) (*model.SurveySchedule, error) {
	var schedule model.SurveySchedule

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND survey_id = ?", userID, surveyID).
		First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query survey schedule: %w", err)
	}
	return &schedule, nil
}

// SchedulesForUser 查询用户的全部个人调度记录，按 survey_id 建索引返回
func (s *Store) SchedulesForUser(ctx context.Context, userID string) (map[string]model.SurveySchedule, error) {
	var schedules []model.SurveySchedule

	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query survey schedules: %w", err)
	}

	result := make(map[string]model.SurveySchedule, len(schedules))
	for _, schedule := range schedules {
		result[schedule.SurveyID] = schedule
	}
	return result, nil
}

// UpsertSchedule 写入用户的下次可用时间，存在则覆盖
func (s *Store) UpsertSchedule(ctx context.Context, userID, surveyID string, nextAvailable time.Time) error {
	schedule := model.SurveySchedule{
		UserID:        userID,
		SurveyID:      surveyID,
		NextAvailable: nextAvailable,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "survey_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"next_available", "updated_at"}),
	}).Create(&schedule).Error
	if err != nil {
		return fmt.Errorf("failed to upsert survey schedule: %w", err)
	}
	return nil
}
