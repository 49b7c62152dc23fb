package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"BitePoints/internal/model"
)

// LatestTransaction 查询用户最新一条积分流水，余额以其 BalanceAfter 为准
// 传入 tx 时在事务内查询
func (s *Store) LatestTransaction(ctx context.Context, tx *gorm.DB, userID string) (*model.PointsTransaction, error) {
	db := tx
	if db == nil {
		db = s.db.WithContext(ctx)
	}

	var transactions []model.PointsTransaction
	err := db.
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(1).
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query points balance: %w", err)
	}
	if len(transactions) == 0 {
		return nil, nil
	}
	return &transactions[0], nil
}

// CreateTransaction 写入一条积分流水
func (s *Store) CreateTransaction(ctx context.Context, tx *gorm.DB, transaction *model.PointsTransaction) error {
	db := tx
	if db == nil {
		db = s.db.WithContext(ctx)
	}

	if err := db.Create(transaction).Error; err != nil {
		return fmt.Errorf("failed to create points transaction: %w", err)
	}
	return nil
}

// TransactionsForUser 分页查询积分流水，按时间倒序
func (s *Store) TransactionsForUser(ctx context.Context, userID string, limit, offset int) ([]model.PointsTransaction, error) {
	var transactions []model.PointsTransaction

	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Offset(offset).
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query points transactions: %w", err)
	}
	return transactions, nil
}

// InTransaction 在数据库事务内执行 fn
func (s *Store) InTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
