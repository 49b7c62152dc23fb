package model

import "time"

// SurveyProgress 问卷作答草稿，仅存在于 start 与完成/清除之间
// 每个 (user, survey) 至多一条
type SurveyProgress struct {
	BaseModel
	UserID          string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_survey_progresses_user_survey" json:"user_id"`
	SurveyID        string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_survey_progresses_user_survey" json:"survey_id"`
	Answers         AnswerMap `gorm:"type:jsonb;default:'{}'" json:"answers"`
	CurrentQuestion int       `gorm:"not null;default:0" json:"current_question"`
	StartedAt       time.Time `gorm:"type:timestamptz;not null" json:"started_at"`
	LastSaved       time.Time `gorm:"type:timestamptz;not null" json:"last_saved"`
}

// TableName 指定表名
func (SurveyProgress) TableName() string {
	return "survey_progresses"
}
