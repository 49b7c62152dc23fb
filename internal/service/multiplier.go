package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"BitePoints/config"
	"BitePoints/internal/cache"
	"BitePoints/pkg/logger"
)

// MultiplierService 维护全局积分倍数，周末自动翻倍
// 以 Redis 为准，调度器周期刷新，读不到时按本地时钟降级计算
type MultiplierService struct {
	now func() time.Time
}

var (
	multiplierService *MultiplierService
	multiplierOnce    sync.Once
)

func Multiplier() *MultiplierService {
	multiplierOnce.Do(func() {
		multiplierService = &MultiplierService{now: time.Now}
	})
	return multiplierService
}

// NewMultiplierService 构造可注入时钟的实例（测试用）
func NewMultiplierService(now func() time.Time) *MultiplierService {
	return &MultiplierService{now: now}
}

// MultiplierFor 计算某时刻生效的积分倍数
func MultiplierFor(t time.Time) float64 {
	if IsWeekend(t) {
		return float64(config.Cfg.WeekendBonusMultiplier)
	}
	return 1
}

// IsWeekend 周六或周日
func IsWeekend(t time.Time) bool {
	weekday := t.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// Current 读取当前生效倍数，Redis 缺失时计算并回填
func (s *MultiplierService) Current(ctx context.Context) float64 {
	value, ok, err := cache.GetMultiplier(ctx)
	if err != nil {
		computed := MultiplierFor(s.now())
		logger.Logger.Warn("Failed to read multiplier from redis, computing locally",
			zap.Float64("multiplier", computed),
			zap.Error(err),
		)
		return computed
	}
	if ok {
		return value
	}

	computed, err := s.Refresh(ctx)
	if err != nil {
		logger.Logger.Warn("Failed to persist multiplier", zap.Error(err))
	}
	return computed
}

// Refresh 按当前时钟重算倍数并写入 Redis，调度器每轮调用
func (s *MultiplierService) Refresh(ctx context.Context) (float64, error) {
	now := s.now()
	multiplier := MultiplierFor(now)

	if err := cache.SetMultiplier(ctx, multiplier); err != nil {
		return multiplier, err
	}

	logger.Logger.Info("Points multiplier refreshed",
		zap.Float64("multiplier", multiplier),
		zap.Bool("weekend", IsWeekend(now)),
	)
	return multiplier, nil
}
