package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"BitePoints/config"
	"BitePoints/internal/model"
	"BitePoints/pkg/backend"
	"BitePoints/pkg/logger"
)

// FallbackSurveyID 兜底问卷目录 ID，上游不可达时保证至少一份可答
const FallbackSurveyID = "fallback-meal-feedback"

var (
	mu     sync.Mutex
	loaded bool
)

// Load 拉取问卷目录并转换为本地镜像模型
// 进程内只拉取一次，后续调用直接跳过，调度器通过 Refresh 强制刷新
// 拉取失败或目录为空时返回内置兜底问卷，不向上抛错
func Load(ctx context.Context) ([]model.Survey, bool, error) {
	mu.Lock()
	defer mu.Unlock()

	if loaded {
		return nil, false, nil
	}

	surveys := fetch(ctx)
	loaded = true
	return surveys, true, nil
}

// Refresh 强制重新拉取目录，调度器每日刷新使用
func Refresh(ctx context.Context) []model.Survey {
	mu.Lock()
	defer mu.Unlock()

	surveys := fetch(ctx)
	loaded = true
	return surveys
}

// ResetForTest 清除已加载标记（测试用）
func ResetForTest() {
	mu.Lock()
	defer mu.Unlock()
	loaded = false
}

func fetch(ctx context.Context) []model.Survey {
	raws, err := backend.GetClient().FetchSurveys(ctx)
	if err != nil {
		logger.Logger.Warn("Failed to fetch survey catalog, falling back to built-in survey",
			zap.Error(err),
		)
		return []model.Survey{FallbackSurvey()}
	}

	surveys := make([]model.Survey, 0, len(raws))
	for _, raw := range raws {
		surveys = append(surveys, Convert(raw))
	}

	if len(surveys) == 0 {
		logger.Logger.Warn("Survey catalog is empty, falling back to built-in survey")
		return []model.Survey{FallbackSurvey()}
	}

	logger.Logger.Info("Survey catalog loaded",
		zap.Int("count", len(surveys)),
	)
	return surveys
}

// Convert 将上游问卷记录转换为本地镜像模型
func Convert(raw backend.RawSurvey) model.Survey {
	survey := model.Survey{
		SurveyID:      raw.ID,
		Title:         raw.Title,
		Category:      raw.Category,
		Description:   raw.Description,
		EstimatedTime: raw.EstimatedTime,
		BasePoints:    raw.BasePoints,
		Questions:     convertQuestions(raw.Questions),
		IsActive:      raw.IsActive,
		Multiplier:    raw.Multiplier,
	}

	if survey.Multiplier <= 0 {
		survey.Multiplier = 1
	}

	if raw.Schedule != nil {
		policy := &model.SurveySchedulePolicy{
			Type:      model.ScheduleType(raw.Schedule.Type),
			Frequency: raw.Schedule.Frequency,
		}
		// 非法时间串按立即可用处理
		if raw.Schedule.NextAvailable != "" {
			if next, err := time.Parse(time.RFC3339, raw.Schedule.NextAvailable); err == nil {
				policy.NextAvailable = &next
			} else {
				logger.Logger.Warn("Invalid nextAvailable in catalog, treating as immediately available",
					zap.String("survey_id", raw.ID),
					zap.String("next_available", raw.Schedule.NextAvailable),
				)
			}
		}
		survey.Schedule = policy
	}

	if raw.Targeting != nil {
		targeting := &model.SurveyTargeting{
			UserBehavior:        raw.Targeting.UserBehavior,
			CompletedCategories: raw.Targeting.CompletedCategories,
		}
		if raw.Targeting.PointsRange != nil {
			targeting.PointsRange = &model.PointsRange{
				Min: raw.Targeting.PointsRange.Min,
				Max: raw.Targeting.PointsRange.Max,
			}
		}
		survey.Targeting = targeting
	}

	return survey
}

func convertQuestions(raws []backend.RawQuestion) model.SurveyQuestions {
	questions := make(model.SurveyQuestions, 0, len(raws))
	for _, q := range raws {
		questions = append(questions, model.SurveyQuestion{
			ID:       q.ID,
			Text:     q.Text,
			Type:     q.Type,
			Options:  q.Options,
			Required: q.Required,
		})
	}
	return questions
}

// FallbackSurvey 内置兜底问卷，定向规则全开
func FallbackSurvey() model.Survey {
	return model.Survey{
		SurveyID:      FallbackSurveyID,
		Title:         "今日用餐反馈",
		Category:      "meal_feedback",
		Description:   "告诉我们这一餐怎么样",
		EstimatedTime: "1 min",
		BasePoints:    config.Cfg.FallbackSurveyPoints,
		Questions: model.SurveyQuestions{
			{
				ID:       "q1",
				Text:     "这一餐的整体满意度如何？",
				Type:     "rating",
				Required: true,
			},
			{
				ID:      "q2",
				Text:    "有什么想补充的吗？",
				Type:    "text",
				Options: nil,
			},
		},
		Schedule: &model.SurveySchedulePolicy{
			Type:      model.ScheduleTypeDaily,
			Frequency: 1,
		},
		IsActive:   true,
		Multiplier: 1,
		Fallback:   true,
	}
}
