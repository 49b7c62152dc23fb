package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"BitePoints/internal/model"
	"BitePoints/internal/model/dto"
	"BitePoints/internal/service"
	"BitePoints/pkg/response"
)

// CacheSurveyForOffline 缓存一份问卷供离线作答
// POST /v1/offline/surveys
func CacheSurveyForOffline(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}

	var req dto.CacheSurveyRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	cached, err := service.Offline().CacheSurvey(ctx, userID, req.Category, req.SurveyID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, cachedToDTO(cached))
}

// ListCachedSurveys 用户的全部缓存问卷
// GET /v1/offline/surveys
func ListCachedSurveys(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}

	cached, err := service.Offline().ListCachedSurveys(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	// 每个分类只缓存一份，按 category 过滤即按分类取单份缓存
	category := c.Query("category")

	data := make([]dto.CachedSurveyData, 0, len(cached))
	for i := range cached {
		if category != "" && cached[i].Category != category {
			continue
		}
		data = append(data, cachedToDTO(&cached[i]))
	}
	response.Success(ctx, c, dto.PendingSurveysResponse{Surveys: data})
}

// GetCachedSurvey 查询单份缓存问卷
// GET /v1/offline/surveys/:cache_id
func GetCachedSurvey(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}
	cacheID := c.Param("cache_id")

	cached, err := service.Offline().GetCachedSurvey(ctx, userID, cacheID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, cachedToDTO(cached))
}

// UpdateCachedSurvey 保存离线答案
// PUT /v1/offline/surveys/:cache_id
func UpdateCachedSurvey(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}
	cacheID := c.Param("cache_id")

	var req dto.UpdateCachedSurveyRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	cached, err := service.Offline().UpdateCachedSurvey(ctx, userID, cacheID, req.Answers)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, cachedToDTO(cached))
}

// CompleteCachedSurvey 标记缓存问卷离线完成
// POST /v1/offline/surveys/:cache_id/complete
func CompleteCachedSurvey(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}
	cacheID := c.Param("cache_id")

	var req dto.CompleteCachedSurveyRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	cached, err := service.Offline().CompleteCachedSurvey(ctx, userID, cacheID, req.Answers, req.CompletedAt)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, cachedToDTO(cached))
}

// ListPendingSurveys 已完成待同步的缓存问卷
// GET /v1/offline/pending
func ListPendingSurveys(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}

	pending, err := service.Offline().PendingSurveys(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	data := make([]dto.CachedSurveyData, 0, len(pending))
	for i := range pending {
		data = append(data, cachedToDTO(&pending[i]))
	}
	response.Success(ctx, c, dto.PendingSurveysResponse{Surveys: data})
}

// SyncPendingSurveys 手动触发待同步问卷投递
// POST /v1/offline/sync
func SyncPendingSurveys(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}

	enqueued, err := service.Offline().SyncPendingSurveys(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.SyncResultResponse{Enqueued: enqueued})
}

// SetOnlineStatus 上报在线状态，离线转在线会自动触发同步
// POST /v1/offline/status
func SetOnlineStatus(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}

	var req dto.SetOnlineRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := service.Offline().SetOnline(ctx, userID, req.Online); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

func cachedToDTO(cached *model.CachedSurvey) dto.CachedSurveyData {
	return dto.CachedSurveyData{
		CacheID:     cached.CacheID,
		SurveyID:    cached.SurveyID,
		Category:    cached.Category,
		Questions:   cached.Questions,
		Answers:     cached.Answers,
		State:       string(cached.State()),
		CompletedAt: cached.CompletedAt,
		SyncedAt:    cached.SyncedAt,
	}
}
