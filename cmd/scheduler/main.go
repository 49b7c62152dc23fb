package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"BitePoints/config"
	"BitePoints/internal/queue"
	"BitePoints/internal/service"
	"BitePoints/pkg/backend"
	"BitePoints/pkg/logger"
	"BitePoints/pkg/snowflake"
	"BitePoints/storage"
)

func main() {

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer storage.Close()

	// 考虑与 worker 和 server 作区分
	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake for scheduler", zap.Error(err))
	}

	// 目录刷新要访问上游订餐后台
	if err := backend.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize backend client for scheduler", zap.Error(err))
		logger.Logger.Info("Backend client disabled, catalog refresh will use the fallback survey")
	}

	// 补偿扫描需要把滞留的离线问卷重新投递到 MQ
	service.Offline().SetSyncPublisher(queue.NewProducer())

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", "bitepoints-scheduler"),
		zap.String("environment", config.Cfg.Environment),
	)

	go runMultiplierRefreshLoop(ctx)
	go runCatalogRefreshLoop(ctx)
	go runPendingSweepLoop(ctx)

	<-ctx.Done()

	logger.Logger.Info("Scheduler service shutting down gracefully")
}

// runMultiplierRefreshLoop 周期性重算积分倍率并写入 Redis
// 倍率只在周末边界变化，轮询刷新足够，请求路径上的缓存未命中也会触发重算
func runMultiplierRefreshLoop(ctx context.Context) {
	interval := time.Duration(config.Cfg.MultiplierRefreshMinutes) * time.Minute
	if config.Cfg.Environment == "development" {
		interval = 1 * time.Minute
		logger.Logger.Info("Multiplier refresh loop running in development mode with 1m interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			multiplier, err := service.Multiplier().Refresh(runCtx)
			if err != nil {
				logger.Logger.Error("Multiplier refresh run failed", zap.Error(err))
			} else {
				logger.Logger.Info("Multiplier refreshed",
					zap.Float64("multiplier", multiplier),
				)
			}
			cancel()
		}
	}
}

// runCatalogRefreshLoop 每天固定时间从上游重新拉取问卷目录
// 当前实现：每天本地时间 CATALOG_REFRESH_HOUR 点触发一次
func runCatalogRefreshLoop(ctx context.Context) {
	// 在 development 环境下，为了方便本地调试，将每日刷新改为每 1 分钟执行一次
	if config.Cfg.Environment == "development" {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		logger.Logger.Info("Catalog refresh loop running in development mode with 1m interval")

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
				if err := service.Survey().RefreshCatalog(runCtx); err != nil {
					logger.Logger.Error("Catalog refresh run failed (development interval)", zap.Error(err))
				}
				cancel()
			}
		}
	}

	for {
		// 计算下一次运行时间（今天/明天的刷新时刻）
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), config.Cfg.CatalogRefreshHour, 0, 0, 0, now.Location())
		if !next.After(now) {
			// 如果已经过了今天的刷新时刻，则设置为明天
			next = next.Add(24 * time.Hour)
		}

		delay := time.Until(next)
		logger.Logger.Info("Scheduled next catalog refresh run",
			zap.Time("now", now),
			zap.Time("next_run", next),
			zap.Duration("delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			if err := service.Survey().RefreshCatalog(runCtx); err != nil {
				logger.Logger.Error("Catalog refresh run failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// runPendingSweepLoop 周期性扫描已完成但未同步的离线问卷并补偿投递
// 客户端的同步请求可能丢失，这里兜底保证积分最终入账
func runPendingSweepLoop(ctx context.Context) {
	interval := time.Duration(config.Cfg.SyncSweepMinutes) * time.Minute
	if config.Cfg.Environment == "development" {
		interval = 1 * time.Minute
		logger.Logger.Info("Pending sweep loop running in development mode with 1m interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			swept, err := service.Offline().SweepPending(runCtx, 30*time.Minute, 200)
			if err != nil {
				logger.Logger.Error("Pending sweep run failed", zap.Error(err))
			} else if swept > 0 {
				logger.Logger.Info("Pending surveys enqueued for sync",
					zap.Int("count", swept),
				)
			}
			cancel()
		}
	}
}
