package middleware

import (
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"BitePoints/config"
	"BitePoints/pkg/logger"
)

// Init 初始化所有中间件
func Init() error {
	if err := initAuthMiddleware(); err != nil {
		logger.Logger.Error("Failed to initialize auth middleware", zap.Error(err))
		return err
	}

	// 未启用 OTLP 上报时拿到的是 no-op meter，指标调用安全空转
	if err := InitMetrics(otel.Meter(config.Cfg.ServiceName)); err != nil {
		logger.Logger.Error("Failed to initialize metrics", zap.Error(err))
		return err
	}

	logger.Logger.Info("All middlewares initialized successfully")
	return nil
}
