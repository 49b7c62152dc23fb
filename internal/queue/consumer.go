package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"BitePoints/internal/cache"
	"BitePoints/internal/model"
	"BitePoints/internal/service"
	"BitePoints/pkg/backend"
	"BitePoints/pkg/errors"
	"BitePoints/pkg/logger"
	"BitePoints/storage/mq"
)

// StartPointsLedgerConsumer 消费问卷完成事件，幂等落积分流水
func StartPointsLedgerConsumer(ctx context.Context) error {
	handler := func(body []byte) error {
		var event model.SurveyCompletedEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return fmt.Errorf("failed to unmarshal survey completed event: %w", err)
		}

		processed, err := cache.TryMarkMessageProcessing(ctx, event.MessageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", event.MessageID),
				zap.Error(err),
			)
			// 检查失败时继续处理，可能重复，流水带 message_id 可事后对账
		} else if !processed {
			logger.Logger.Info("Message already processed or being processed, skipping",
				zap.String("message_id", event.MessageID),
			)
			return &errors.SkipMessageError{Reason: fmt.Sprintf("Message %s already processed", event.MessageID)}
		}

		if err := service.Points().Record(ctx, event); err != nil {
			// 处理失败，取消标记，允许重试
			if unmarkErr := cache.UnmarkMessageProcessing(ctx, event.MessageID); unmarkErr != nil {
				logger.Logger.Warn("Failed to unmark message processing",
					zap.String("message_id", event.MessageID),
					zap.Error(unmarkErr),
				)
			}
			return fmt.Errorf("failed to record points for event %s: %w", event.MessageID, err)
		}

		if err := cache.MarkMessageProcessed(ctx, event.MessageID, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", event.MessageID),
				zap.Error(err),
			)
		}
		return nil
	}

	return mq.Consume(mq.ConsumeOptions{
		Queue:         "points.survey_completed",
		ConsumerTag:   "points_ledger_consumer",
		PrefetchCount: 10,
		Handler:       handler,
	})
}

// surveySyncDeps 同步消费者的外部依赖，测试时可替换
type surveySyncDeps struct {
	tryMark    func(ctx context.Context, messageID string, ttl time.Duration) (bool, error)
	unmark     func(ctx context.Context, messageID string) error
	markDone   func(ctx context.Context, messageID string, ttl time.Duration) error
	submit     func(ctx context.Context, payload backend.CompletedSurvey) error
	markSynced func(ctx context.Context, cacheID string) error
	settle     func(ctx context.Context, userID, surveyID, cacheID string, answers model.AnswerMap) (int, error)
}

func defaultSurveySyncDeps() surveySyncDeps {
	return surveySyncDeps{
		tryMark:  cache.TryMarkMessageProcessing,
		unmark:   cache.UnmarkMessageProcessing,
		markDone: cache.MarkMessageProcessed,
		submit: func(ctx context.Context, payload backend.CompletedSurvey) error {
			return backend.GetClient().SubmitCompleted(ctx, payload)
		},
		markSynced: func(ctx context.Context, cacheID string) error {
			return service.Offline().MarkSynced(ctx, cacheID)
		},
		settle: func(ctx context.Context, userID, surveyID, cacheID string, answers model.AnswerMap) (int, error) {
			return service.Survey().CompleteCachedSurvey(ctx, userID, surveyID, cacheID, answers)
		},
	}
}

// surveySyncHandler 回传上游失败时返回错误走 Nack 重回队列，
// 同步标记和积分结算只在回传成功后进行
func surveySyncHandler(ctx context.Context, deps surveySyncDeps) mq.MessageHandler {
	return func(body []byte) error {
		var msg model.SurveySyncMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal survey sync message: %w", err)
		}

		processed, err := deps.tryMark(ctx, msg.MessageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		} else if !processed {
			logger.Logger.Info("Message already processed or being processed, skipping",
				zap.String("message_id", msg.MessageID),
			)
			return &errors.SkipMessageError{Reason: fmt.Sprintf("Message %s already processed", msg.MessageID)}
		}

		payload := backend.CompletedSurvey{
			CacheID:     msg.CacheID,
			UserID:      msg.UserID,
			Category:    msg.Category,
			Answers:     msg.Answers,
			CompletedAt: msg.CompletedAt,
		}
		if err := deps.submit(ctx, payload); err != nil {
			// 回传失败不打同步标记，消息重回队列等待重试
			if unmarkErr := deps.unmark(ctx, msg.MessageID); unmarkErr != nil {
				logger.Logger.Warn("Failed to unmark message processing",
					zap.String("message_id", msg.MessageID),
					zap.Error(unmarkErr),
				)
			}
			return fmt.Errorf("failed to submit survey %s upstream: %w", msg.CacheID, err)
		}

		if err := deps.markSynced(ctx, msg.CacheID); err != nil {
			if unmarkErr := deps.unmark(ctx, msg.MessageID); unmarkErr != nil {
				logger.Logger.Warn("Failed to unmark message processing",
					zap.String("message_id", msg.MessageID),
					zap.Error(unmarkErr),
				)
			}
			return fmt.Errorf("failed to mark survey synced %s: %w", msg.CacheID, err)
		}

		// 离线完成同样结算积分，目录中找不到的问卷静默跳过
		points, err := deps.settle(ctx, msg.UserID, msg.SurveyID, msg.CacheID, msg.Answers)
		if err != nil {
			logger.Logger.Error("Failed to settle points for synced survey",
				zap.String("cache_id", msg.CacheID),
				zap.String("survey_id", msg.SurveyID),
				zap.Error(err),
			)
		}

		if err := deps.markDone(ctx, msg.MessageID, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}

		logger.Logger.Info("Offline survey synced",
			zap.String("cache_id", msg.CacheID),
			zap.String("user_id", msg.UserID),
			zap.Int("points", points),
		)
		return nil
	}
}

// StartSurveySyncConsumer 消费离线问卷同步消息
func StartSurveySyncConsumer(ctx context.Context) error {
	return mq.Consume(mq.ConsumeOptions{
		Queue:         "offline.survey_sync",
		ConsumerTag:   "survey_sync_consumer",
		PrefetchCount: 10,
		Handler:       surveySyncHandler(ctx, defaultSurveySyncDeps()),
	})
}

// StartAllConsumers 启动全部消费者，worker 进程入口调用
func StartAllConsumers(ctx context.Context) error {
	var wg sync.WaitGroup
	consumers := []struct {
		name  string
		start func(context.Context) error
	}{
		{"points_ledger", StartPointsLedgerConsumer},
		{"survey_sync", StartSurveySyncConsumer},
	}

	for _, consumer := range consumers {
		wg.Add(1)
		go func(name string, start func(context.Context) error) {
			defer wg.Done()
			if err := start(ctx); err != nil {
				logger.Logger.Error("Consumer exited with error",
					zap.String("consumer", name),
					zap.Error(err),
				)
			}
		}(consumer.name, consumer.start)
	}

	logger.Logger.Info("All consumers started", zap.Int("count", len(consumers)))
	wg.Wait()
	return nil
}
