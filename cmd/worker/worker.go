package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

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

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	// worker 与 server 共用雪花配置，部署多实例时通过环境变量区分
	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	// 同步消费者需要向上游回传已完成问卷
	if err := backend.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize backend client", zap.Error(err))
		logger.Logger.Info("Backend client disabled, completed surveys will not be submitted upstream")
	}

	// 接线消息发布器, 离线问卷结算时会再发布完成事件
	producer := queue.NewProducer()
	service.Survey().SetCompletionPublisher(producer)
	service.Offline().SetSyncPublisher(producer)

	logger.Logger.Info("Worker service starting",
		zap.String("service", "bitepoints-worker"),
		zap.String("environment", config.Cfg.Environment),
	)

	// 启动所有的消费者部分
	queue.StartAllConsumers(ctx)

	logger.Logger.Info("Worker service shutting down gracefully")
}
