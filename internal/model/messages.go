package model

import "time"

// SurveyCompletedEvent 问卷完成事件，worker 据此落积分流水
type SurveyCompletedEvent struct {
	MessageID  string  `json:"message_id"`
	UserID     string  `json:"user_id"`
	SurveyID   string  `json:"survey_id"`
	CacheID    string  `json:"cache_id,omitempty"` // 来自离线同步时携带
	Points     int     `json:"points"`
	Multiplier float64 `json:"multiplier"`
	OccurredAt string  `json:"occurred_at"`
}

// SurveySyncMessage 离线问卷同步消息，worker 负责回传上游并打同步标记
type SurveySyncMessage struct {
	MessageID   string                 `json:"message_id"`
	CacheID     string                 `json:"cache_id"`
	UserID      string                 `json:"user_id"`
	SurveyID    string                 `json:"survey_id,omitempty"`
	Category    string                 `json:"category"`
	Answers     map[string]interface{} `json:"answers"`
	CompletedAt time.Time              `json:"completed_at"`
}
