package model

import "time"

// UserBehavior 设备维度的行为聚合，每个用户一行
// TotalPoints 除显式兑换外单调不减
type UserBehavior struct {
	BaseModel
	UserID              string     `gorm:"uniqueIndex;type:varchar(64);not null" json:"user_id"`
	CompletedSurveys    StringList `gorm:"type:jsonb;default:'[]'" json:"completed_surveys"`
	PreferredCategories StringList `gorm:"type:jsonb;default:'[]'" json:"preferred_categories"`
	AverageSessionTime  int        `gorm:"not null;default:0" json:"average_session_time"` // 秒
	LastActivity        *time.Time `gorm:"type:timestamptz" json:"last_activity,omitempty"`
	TotalPoints         int        `gorm:"not null;default:0" json:"total_points"`
}

// TableName 指定表名
func (UserBehavior) TableName() string {
	return "user_behaviors"
}

// IsNewUser 完成问卷数不足 3 份
func (b *UserBehavior) IsNewUser() bool {
	return len(b.CompletedSurveys) < 3
}

// IsActiveUser 完成问卷数达到 3 份
func (b *UserBehavior) IsActiveUser() bool {
	return len(b.CompletedSurveys) >= 3
}

// IsHighEarner 总积分超过 100
func (b *UserBehavior) IsHighEarner() bool {
	return b.TotalPoints > 100
}

// MatchesTag 判断行为标签是否命中，未识别的标签永不命中
func (b *UserBehavior) MatchesTag(tag string) bool {
	switch tag {
	case BehaviorTagNewUser:
		return b.IsNewUser()
	case BehaviorTagActiveUser:
		return b.IsActiveUser()
	case BehaviorTagHighEarner:
		return b.IsHighEarner()
	default:
		return false
	}
}
