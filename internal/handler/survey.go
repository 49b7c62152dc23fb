package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"BitePoints/internal/middleware"
	"BitePoints/internal/model"
	"BitePoints/internal/model/dto"
	"BitePoints/internal/service"
	"BitePoints/pkg/response"
)

// ListSurveys 可答问卷列表，按用户画像个性化排序
// GET /v1/surveys
func ListSurveys(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}

	var query dto.SurveyListQuery
	if err := c.BindQuery(&query); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	surveyService := service.Survey()
	surveys, err := surveyService.PersonalizedSurveys(ctx, userID, query.Limit)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	multiplier := surveyService.BonusMultiplier(ctx)
	data := make([]dto.SurveyData, 0, len(surveys))
	for _, survey := range surveys {
		if query.Category != "" && survey.Category != query.Category {
			continue
		}
		data = append(data, surveyToDTO(survey, multiplier))
	}

	response.Success(ctx, c, dto.SurveyListResponse{
		Surveys:    data,
		Multiplier: multiplier,
	})
}

// ListAvailableSurveys 当前可答的问卷，只看调度、保持目录顺序
// GET /v1/surveys/available
func ListAvailableSurveys(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}

	surveyService := service.Survey()
	surveys, err := surveyService.AvailableSurveys(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	multiplier := surveyService.BonusMultiplier(ctx)
	data := make([]dto.SurveyData, 0, len(surveys))
	for _, survey := range surveys {
		data = append(data, surveyToDTO(survey, multiplier))
	}

	response.Success(ctx, c, dto.SurveyListResponse{
		Surveys:    data,
		Multiplier: multiplier,
	})
}

// ListScheduledSurveys 带调度且已到期的问卷及其到期时间
// GET /v1/surveys/scheduled
func ListScheduledSurveys(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}

	surveyService := service.Survey()
	surveys, nextTimes, err := surveyService.ScheduledSurveys(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	multiplier := surveyService.BonusMultiplier(ctx)
	data := make([]dto.SurveyData, 0, len(surveys))
	for _, survey := range surveys {
		item := surveyToDTO(survey, multiplier)
		if next, ok := nextTimes[survey.SurveyID]; ok {
			nextCopy := next
			item.NextAvailable = &nextCopy
		}
		data = append(data, item)
	}

	response.Success(ctx, c, dto.SurveyListResponse{
		Surveys:    data,
		Multiplier: multiplier,
	})
}

// EstimateSurveyPoints 按当前倍数预估问卷可得积分
// GET /v1/surveys/:survey_id/estimate
func EstimateSurveyPoints(ctx context.Context, c *app.RequestContext) {
	if _, ok := userIDFromContext(ctx, c); !ok {
		return
	}

	surveyID := c.Param("survey_id")
	surveyService := service.Survey()

	survey, err := surveyService.SurveyByID(ctx, surveyID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	multiplier := surveyService.BonusMultiplier(ctx)
	response.Success(ctx, c, dto.EstimatePointsResponse{
		SurveyID:        survey.SurveyID,
		BasePoints:      survey.BasePoints,
		Multiplier:      multiplier,
		EstimatedPoints: service.AwardPoints(survey.BasePoints, multiplier),
	})
}

// GetMultiplier 当前积分倍数
// GET /v1/surveys/multiplier
func GetMultiplier(ctx context.Context, c *app.RequestContext) {
	multiplier := service.Survey().BonusMultiplier(ctx)
	now := time.Now()

	response.Success(ctx, c, dto.MultiplierResponse{
		Multiplier: multiplier,
		Weekend:    service.IsWeekend(now),
		CheckedAt:  now,
	})
}

// StartSurvey 开始答卷
// POST /v1/surveys/:survey_id/start
func StartSurvey(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}
	surveyID := c.Param("survey_id")

	progress, err := service.Survey().StartSurvey(ctx, userID, surveyID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.StartSurveyResponse{
		SurveyID:        surveyID,
		CurrentQuestion: progress.CurrentQuestion,
		Answers:         progress.Answers,
		StartedAt:       progress.StartedAt,
	})
}

// SaveSurveyProgress 保存答卷进度
// PUT /v1/surveys/:survey_id/progress
func SaveSurveyProgress(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}
	surveyID := c.Param("survey_id")

	var req dto.SaveProgressRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	progress, err := service.Survey().SaveProgress(ctx, userID, surveyID, req.Answers, req.CurrentQuestion)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.SaveProgressResponse{
		SurveyID:        surveyID,
		CurrentQuestion: progress.CurrentQuestion,
		LastSaved:       progress.LastSaved,
	})
}

// ClearSurveyProgress 放弃答卷
// DELETE /v1/surveys/:survey_id/progress
func ClearSurveyProgress(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}
	surveyID := c.Param("survey_id")

	if err := service.Survey().ClearProgress(ctx, userID, surveyID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// CompleteSurvey 完成问卷并结算积分
// POST /v1/surveys/:survey_id/complete
func CompleteSurvey(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}
	surveyID := c.Param("survey_id")

	var req dto.CompleteSurveyRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	points, multiplier, next, err := service.Survey().CompleteSurvey(ctx, userID, surveyID, req.Answers)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	middleware.RecordSurveyCompleted(ctx, surveyID, points, false)

	response.Success(ctx, c, dto.CompleteSurveyResponse{
		SurveyID:      surveyID,
		PointsAwarded: points,
		Multiplier:    multiplier,
		NextAvailable: next,
	})
}

func surveyToDTO(survey model.Survey, multiplier float64) dto.SurveyData {
	return dto.SurveyData{
		SurveyID:        survey.SurveyID,
		Title:           survey.Title,
		Category:        survey.Category,
		EstimatedTime:   survey.EstimatedTime,
		BasePoints:      survey.BasePoints,
		EstimatedPoints: service.AwardPoints(survey.BasePoints, multiplier),
		Questions:       survey.Questions,
	}
}
