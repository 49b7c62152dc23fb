package model

// TransactionType 积分交易类型枚举
type TransactionType string

const (
	TransactionTypeGrant  TransactionType = "grant"  // 发放
	TransactionTypeDeduct TransactionType = "deduct" // 扣减
)

// 积分流水原因
const (
	PointsReasonSurveyAward = "survey_award" // 完成问卷奖励
	PointsReasonRedeem      = "redeem"       // 兑换餐品折扣
	PointsReasonAdjust      = "adjust"       // 人工调整
)

// PointsTransaction 积分流水模型，余额以最新一条的 BalanceAfter 为准
type PointsTransaction struct {
	BaseModel
	UserID          string          `gorm:"type:varchar(64);not null;index:idx_points_transactions_user" json:"user_id"`
	TransactionType TransactionType `gorm:"type:varchar(16);not null" json:"transaction_type"`
	Reason          string          `gorm:"type:varchar(32);not null" json:"reason"`
	SurveyID        string          `gorm:"type:varchar(64);not null;default:''" json:"survey_id"`
	MessageID       string          `gorm:"type:varchar(64);not null;default:'';index:idx_points_transactions_message" json:"message_id"` // 幂等键
	Amount          int             `gorm:"not null" json:"amount"`
	BalanceAfter    int             `gorm:"not null" json:"balance_after"`
}

// TableName 指定表名
func (PointsTransaction) TableName() string {
	return "points_transactions"
}
