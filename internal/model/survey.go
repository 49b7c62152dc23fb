package model

import (
	"database/sql/driver"
	"time"
)

// ScheduleType 问卷调度周期枚举
type ScheduleType string

const (
	ScheduleTypeDaily   ScheduleType = "daily"
	ScheduleTypeWeekly  ScheduleType = "weekly"
	ScheduleTypeMonthly ScheduleType = "monthly"
)

// 行为标签，粗粒度用户分群
const (
	BehaviorTagNewUser    = "new_user"    // 完成问卷数 < 3
	BehaviorTagActiveUser = "active_user" // 完成问卷数 >= 3
	BehaviorTagHighEarner = "high_earner" // 总积分 > 100
)

// SurveyQuestion 问卷题目，顺序即展示顺序
type SurveyQuestion struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Type     string   `json:"type"` // single_choice, multi_choice, rating, text
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
}

type SurveyQuestions []SurveyQuestion

func (q SurveyQuestions) Value() (driver.Value, error) {
	if q == nil {
		return jsonbValue([]SurveyQuestion{})
	}
	return jsonbValue([]SurveyQuestion(q))
}

func (q *SurveyQuestions) Scan(src interface{}) error {
	return jsonbScan(src, q)
}

// SurveySchedulePolicy 目录级调度规则
// NextAvailable 是目录默认值，用户完成后以 survey_schedules 里的个人记录为准
type SurveySchedulePolicy struct {
	Type          ScheduleType `json:"type"`
	Frequency     int          `json:"frequency"`
	NextAvailable *time.Time   `json:"next_available,omitempty"`
}

func (s SurveySchedulePolicy) Value() (driver.Value, error) {
	return jsonbValue(s)
}

func (s *SurveySchedulePolicy) Scan(src interface{}) error {
	return jsonbScan(src, s)
}

// PointsRange 积分区间，闭区间
type PointsRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// SurveyTargeting 投放定向规则
type SurveyTargeting struct {
	UserBehavior        []string     `json:"user_behavior,omitempty"`
	CompletedCategories []string     `json:"completed_categories,omitempty"`
	PointsRange         *PointsRange `json:"points_range,omitempty"`
}

func (t SurveyTargeting) Value() (driver.Value, error) {
	return jsonbValue(t)
}

func (t *SurveyTargeting) Scan(src interface{}) error {
	return jsonbScan(src, t)
}

// Survey 问卷目录镜像（来自上游订餐后台）
type Survey struct {
	BaseModel
	SurveyID      string                `gorm:"uniqueIndex;type:varchar(64);not null" json:"survey_id"`
	Title         string                `gorm:"type:varchar(128);not null" json:"title"`
	Category      string                `gorm:"type:varchar(64);not null;index:idx_surveys_category" json:"category"`
	Description   string                `gorm:"type:text;not null;default:''" json:"description"`
	EstimatedTime string                `gorm:"type:varchar(32);not null;default:''" json:"estimated_time"`
	BasePoints    int                   `gorm:"not null;default:0" json:"base_points"`
	Questions     SurveyQuestions       `gorm:"type:jsonb;default:'[]'" json:"questions"`
	Schedule      *SurveySchedulePolicy `gorm:"type:jsonb" json:"schedule,omitempty"`
	Targeting     *SurveyTargeting      `gorm:"type:jsonb" json:"targeting,omitempty"`
	IsActive      bool                  `gorm:"not null;default:true;index:idx_surveys_active" json:"is_active"`
	// Multiplier 是目录自带的问卷权重，积分结算只使用全局周末倍率，此字段仅透传
	Multiplier float64 `gorm:"not null;default:1" json:"multiplier"`
	Fallback   bool    `gorm:"not null;default:false" json:"fallback"` // 内置兜底问卷标记
}

// TableName 指定表名
func (Survey) TableName() string {
	return "surveys"
}

// SurveySchedule 用户维度的问卷下次可用时间，完成问卷时写入
type SurveySchedule struct {
	BaseModel
	UserID        string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_survey_schedules_user_survey" json:"user_id"`
	SurveyID      string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_survey_schedules_user_survey" json:"survey_id"`
	NextAvailable time.Time `gorm:"type:timestamptz;not null" json:"next_available"`
}

func (SurveySchedule) TableName() string {
	return "survey_schedules"
}
