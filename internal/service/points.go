package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"BitePoints/internal/model"
	"BitePoints/internal/repository"
	"BitePoints/pkg/errors"
	"BitePoints/pkg/logger"
)

// PointsService 积分账本，只追加流水，余额取最新一条的 balance_after
type PointsService struct {
	store *repository.Store
}

var (
	pointsService *PointsService
	pointsOnce    sync.Once
)

func Points() *PointsService {
	pointsOnce.Do(func() {
		pointsService = &PointsService{store: repository.Default()}
	})
	return pointsService
}

// Record 按问卷完成事件落一条发放流水，消费者处理事件时调用
// 0 分事件不落账
func (s *PointsService) Record(ctx context.Context, event model.SurveyCompletedEvent) error {
	if event.Points <= 0 {
		return nil
	}

	return s.store.InTransaction(ctx, func(tx *gorm.DB) error {
		latest, err := s.store.LatestTransaction(ctx, tx, event.UserID)
		if err != nil {
			return err
		}

		var currentBalance int
		if latest != nil {
			currentBalance = latest.BalanceAfter
		}
		newBalance := currentBalance + event.Points

		transaction := &model.PointsTransaction{
			UserID:          event.UserID,
			TransactionType: model.TransactionTypeGrant,
			Reason:          model.PointsReasonSurveyAward,
			SurveyID:        event.SurveyID,
			MessageID:       event.MessageID,
			Amount:          event.Points,
			BalanceAfter:    newBalance,
		}
		if err := s.store.CreateTransaction(ctx, tx, transaction); err != nil {
			return err
		}

		logger.Logger.Info("Points granted",
			zap.String("user_id", event.UserID),
			zap.String("survey_id", event.SurveyID),
			zap.Int("amount", event.Points),
			zap.Int("balance_before", currentBalance),
			zap.Int("balance_after", newBalance),
		)
		return nil
	})
}

// Redeem 扣减积分，余额不足时拒绝
func (s *PointsService) Redeem(ctx context.Context, userID string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w", errors.PointsReasonInvalid)
	}
	if reason == "" {
		reason = model.PointsReasonRedeem
	}
	if reason != model.PointsReasonRedeem && reason != model.PointsReasonAdjust {
		return 0, fmt.Errorf("%w", errors.PointsReasonInvalid)
	}

	var newBalance int
	err := s.store.InTransaction(ctx, func(tx *gorm.DB) error {
		latest, err := s.store.LatestTransaction(ctx, tx, userID)
		if err != nil {
			return err
		}

		var currentBalance int
		if latest != nil {
			currentBalance = latest.BalanceAfter
		}
		if currentBalance < amount {
			return fmt.Errorf("%w", errors.PointsInsufficient)
		}
		newBalance = currentBalance - amount

		transaction := &model.PointsTransaction{
			UserID:          userID,
			TransactionType: model.TransactionTypeDeduct,
			Reason:          reason,
			Amount:          amount,
			BalanceAfter:    newBalance,
		}
		if err := s.store.CreateTransaction(ctx, tx, transaction); err != nil {
			return err
		}

		logger.Logger.Info("Points redeemed",
			zap.String("user_id", userID),
			zap.String("reason", reason),
			zap.Int("amount", amount),
			zap.Int("balance_after", newBalance),
		)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Balance 查询当前积分余额
func (s *PointsService) Balance(ctx context.Context, userID string) (int, error) {
	latest, err := s.store.LatestTransaction(ctx, nil, userID)
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return 0, nil
	}
	return latest.BalanceAfter, nil
}

// Transactions 分页查询积分流水
func (s *PointsService) Transactions(ctx context.Context, userID string, limit, offset int) ([]model.PointsTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.TransactionsForUser(ctx, userID, limit, offset)
}
