package dto

import (
	"time"

	"BitePoints/internal/model"
)

// ========== Offline 相关 DTO ==========

// CacheSurveyRequest 缓存问卷请求，客户端在离线前拉取并缓存
type CacheSurveyRequest struct {
	Category string `json:"category" binding:"required"`
	SurveyID string `json:"survey_id,omitempty"` // 为空时按类目选一份可用问卷
}

// CachedSurveyData 缓存问卷视图
type CachedSurveyData struct {
	CacheID     string                 `json:"cache_id"`
	SurveyID    string                 `json:"survey_id,omitempty"`
	Category    string                 `json:"category"`
	Questions   []model.SurveyQuestion `json:"questions"`
	Answers     model.AnswerMap        `json:"answers,omitempty"`
	State       string                 `json:"state"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	SyncedAt    *time.Time             `json:"synced_at,omitempty"`
}

// UpdateCachedSurveyRequest 更新缓存问卷答案请求
type UpdateCachedSurveyRequest struct {
	Answers model.AnswerMap `json:"answers" binding:"required"`
}

// CompleteCachedSurveyRequest 离线完成缓存问卷请求
type CompleteCachedSurveyRequest struct {
	Answers     model.AnswerMap `json:"answers" binding:"required"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"` // 客户端离线完成时刻
}

// PendingSurveysResponse 待同步问卷列表响应
type PendingSurveysResponse struct {
	Surveys []CachedSurveyData `json:"surveys"`
}

// SyncResultResponse 同步结果响应
type SyncResultResponse struct {
	Enqueued int `json:"enqueued"`
}

// SetOnlineRequest 上报在线状态请求
type SetOnlineRequest struct {
	Online bool `json:"online"`
}
