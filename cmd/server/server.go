package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"go.uber.org/zap"

	"BitePoints/config"
	"BitePoints/internal/middleware"
	"BitePoints/internal/queue"
	"BitePoints/internal/router"
	"BitePoints/internal/service"
	"BitePoints/pkg/backend"
	"BitePoints/pkg/logger"
	"BitePoints/pkg/otel"
	"BitePoints/pkg/snowflake"
	"BitePoints/pkg/token"
	"BitePoints/storage"
)

func main() {
	// 日志部分
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

	// 初始化存储层，记得关闭外部连接
	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	// 初始化上游订餐后台客户端，失败时目录加载走兜底问卷
	if err := backend.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize backend client", zap.Error(err))
		logger.Logger.Info("Backend client disabled, survey catalog will use the fallback survey")
	}

	if config.Cfg.TracingEnabled {
		shutdownOtel, err := otel.InitOpenTelemetry(ctx, otel.Config{
			ServiceName:  config.Cfg.ServiceName,
			Environment:  config.Cfg.Environment,
			OTLPEndpoint: config.Cfg.TracingEndpoint,
			SampleRatio:  config.Cfg.TracingSampler,
		})
		if err != nil {
			logger.Logger.Warn("Failed to initialize OpenTelemetry", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := shutdownOtel(shutdownCtx); err != nil {
					logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
				}
			}()
		}
	}

	if err := token.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize token package", zap.Error(err))
	} // token 在中间件前初始化，middleware 依赖 token

	// 初始化中间件
	if err := middleware.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize middlewares", zap.Error(err))
	}

	// 接线消息发布器, 完成问卷与离线同步都经过 MQ
	producer := queue.NewProducer()
	service.Survey().SetCompletionPublisher(producer)
	service.Offline().SetSyncPublisher(producer)

	// 启动时先拉一次问卷目录，失败由兜底问卷顶上
	loadCtx, loadCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := service.Survey().LoadCatalog(loadCtx); err != nil {
		logger.Logger.Warn("Failed to load survey catalog on startup", zap.Error(err))
	}
	if _, err := service.Multiplier().Refresh(loadCtx); err != nil {
		logger.Logger.Warn("Failed to refresh points multiplier on startup", zap.Error(err))
	}
	loadCancel()

	logger.Logger.Info("Server starting",
		zap.String("service", config.Cfg.ServiceName),
		zap.String("port", config.Cfg.ServerPort),
		zap.String("environment", config.Cfg.Environment),
	)

	addr := net.JoinHostPort(config.Cfg.ServerHost, config.Cfg.ServerPort)
	serverOpts := []hertzconfig.Option{server.WithHostPorts(addr)}

	var tracerMiddleware app.HandlerFunc
	if config.Cfg.TracingEnabled {
		tracerOpt, mw := middleware.NewServerTracerConfig()
		serverOpts = append(serverOpts, tracerOpt)
		tracerMiddleware = mw
	}

	h := server.Default(serverOpts...)
	if tracerMiddleware != nil {
		h.Use(tracerMiddleware)
	}

	router.Register(h)

	// 优雅关闭：在单独的 goroutine 中监听关闭信号并调用 Shutdown
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Server shutting down gracefully")
}
