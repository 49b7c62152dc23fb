package dto

import (
	"time"

	"BitePoints/internal/model"
)

// ========== Survey 相关 DTO ==========

// SurveyListQuery 问卷列表查询参数
type SurveyListQuery struct {
	Category string `form:"category"`
	Limit    int    `form:"limit"`
}

// SurveyData 返回给客户端的问卷视图
type SurveyData struct {
	SurveyID        string                 `json:"survey_id"`
	Title           string                 `json:"title"`
	Category        string                 `json:"category"`
	EstimatedTime   string                 `json:"estimated_time"`
	BasePoints      int                    `json:"base_points"`
	EstimatedPoints int                    `json:"estimated_points"`
	Questions       []model.SurveyQuestion `json:"questions"`
	NextAvailable   *time.Time             `json:"next_available,omitempty"`
}

// SurveyListResponse 问卷列表响应
type SurveyListResponse struct {
	Surveys    []SurveyData `json:"surveys"`
	Multiplier float64      `json:"multiplier"`
}

// StartSurveyResponse 开始答卷响应
type StartSurveyResponse struct {
	SurveyID        string          `json:"survey_id"`
	CurrentQuestion int             `json:"current_question"`
	Answers         model.AnswerMap `json:"answers"`
	StartedAt       time.Time       `json:"started_at"`
}

// SaveProgressRequest 保存答卷进度请求
type SaveProgressRequest struct {
	Answers         model.AnswerMap `json:"answers" binding:"required"`
	CurrentQuestion int             `json:"current_question"`
}

// SaveProgressResponse 保存答卷进度响应
type SaveProgressResponse struct {
	SurveyID        string    `json:"survey_id"`
	CurrentQuestion int       `json:"current_question"`
	LastSaved       time.Time `json:"last_saved"`
}

// CompleteSurveyRequest 完成问卷请求
type CompleteSurveyRequest struct {
	Answers model.AnswerMap `json:"answers" binding:"required"`
}

// CompleteSurveyResponse 完成问卷响应
type CompleteSurveyResponse struct {
	SurveyID      string     `json:"survey_id"`
	PointsAwarded int        `json:"points_awarded"`
	Multiplier    float64    `json:"multiplier"`
	NextAvailable *time.Time `json:"next_available,omitempty"`
}

// EstimatePointsResponse 问卷预估积分响应
type EstimatePointsResponse struct {
	SurveyID        string  `json:"survey_id"`
	BasePoints      int     `json:"base_points"`
	Multiplier      float64 `json:"multiplier"`
	EstimatedPoints int     `json:"estimated_points"`
}

// MultiplierResponse 当前积分倍数响应
type MultiplierResponse struct {
	Multiplier float64   `json:"multiplier"`
	Weekend    bool      `json:"weekend"`
	CheckedAt  time.Time `json:"checked_at"`
}

// UpdateBehaviorRequest 更新用户行为画像请求
type UpdateBehaviorRequest struct {
	PreferredCategories []string `json:"preferred_categories,omitempty"`
	SessionTime         int      `json:"session_time,omitempty"` // 本次会话时长，秒
}

// BehaviorData 用户行为画像视图
type BehaviorData struct {
	UserID              string     `json:"user_id"`
	CompletedSurveys    []string   `json:"completed_surveys"`
	PreferredCategories []string   `json:"preferred_categories"`
	AverageSessionTime  int        `json:"average_session_time"`
	LastActivity        *time.Time `json:"last_activity,omitempty"`
	TotalPoints         int        `json:"total_points"`
	Tags                []string   `json:"tags"`
}

// ========== Points 相关 DTO ==========

// PointsBalanceResponse 积分余额响应
type PointsBalanceResponse struct {
	Balance int `json:"balance"`
}

// RedeemPointsRequest 积分兑换请求
type RedeemPointsRequest struct {
	Amount int    `json:"amount" binding:"required"`
	Reason string `json:"reason"`
}

// RedeemPointsResponse 积分兑换响应
type RedeemPointsResponse struct {
	Amount  int `json:"amount"`
	Balance int `json:"balance"`
}

// PointsTransactionData 积分流水视图
type PointsTransactionData struct {
	ID              int64     `json:"id"`
	TransactionType string    `json:"transaction_type"`
	Reason          string    `json:"reason"`
	SurveyID        string    `json:"survey_id,omitempty"`
	Amount          int       `json:"amount"`
	BalanceAfter    int       `json:"balance_after"`
	CreatedAt       time.Time `json:"created_at"`
}

// PointsTransactionsQuery 积分流水查询参数
type PointsTransactionsQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}
