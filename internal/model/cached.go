package model

import "time"

// CacheState 离线缓存问卷状态
type CacheState string

const (
	CacheStateDraft     CacheState = "draft"     // 未完成
	CacheStateCompleted CacheState = "completed" // 已完成未同步
	CacheStateSynced    CacheState = "synced"    // 已同步
)

// CachedSurvey 离线缓存的问卷副本
// 每个用户每个 category 只保留一条，新缓存覆盖旧缓存；同步后只打标记不删除
type CachedSurvey struct {
	BaseModel
	CacheID     string          `gorm:"uniqueIndex;type:varchar(64);not null" json:"cache_id"` // 本地生成的 snowflake id
	UserID      string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_cached_surveys_user_category" json:"user_id"`
	Category    string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_cached_surveys_user_category" json:"category"`
	SurveyID    string          `gorm:"type:varchar(64);not null;default:''" json:"survey_id"` // 对应目录问卷，可为空
	Questions   SurveyQuestions `gorm:"type:jsonb;default:'[]'" json:"questions"`
	Answers     AnswerMap       `gorm:"type:jsonb;default:'{}'" json:"answers"`
	CompletedAt *time.Time      `gorm:"type:timestamptz;index:idx_cached_surveys_pending" json:"completed_at,omitempty"`
	SyncedAt    *time.Time      `gorm:"type:timestamptz;index:idx_cached_surveys_pending" json:"synced_at,omitempty"`
}

// TableName 指定表名
func (CachedSurvey) TableName() string {
	return "cached_surveys"
}

// State 由时间戳推导当前状态
func (c *CachedSurvey) State() CacheState {
	if c.CompletedAt == nil {
		return CacheStateDraft
	}
	if c.SyncedAt == nil {
		return CacheStateCompleted
	}
	return CacheStateSynced
}

// IsPending 已完成但尚未同步
func (c *CachedSurvey) IsPending() bool {
	return c.CompletedAt != nil && c.SyncedAt == nil
}
