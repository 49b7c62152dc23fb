package queue

import (
	"BitePoints/internal/model"
	"BitePoints/pkg/logger"
	"BitePoints/storage/mq"

	"go.uber.org/zap"
)

// Producer 基于 RabbitMQ 的消息发布器
// 实现 service.CompletionPublisher 和 service.SyncPublisher，进程启动时接线
type Producer struct{}

func NewProducer() *Producer {
	return &Producer{}
}

// PublishSurveyCompleted 发布问卷完成事件，worker 落积分流水
func (p *Producer) PublishSurveyCompleted(event model.SurveyCompletedEvent) error {
	err := mq.PublishMessage(
		"events.topic",     // exchange
		"survey.completed", // routing key
		event,
	)
	if err != nil {
		logger.Logger.Error("Failed to publish survey completed event",
			zap.String("message_id", event.MessageID),
			zap.String("user_id", event.UserID),
			zap.String("survey_id", event.SurveyID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published survey completed event",
		zap.String("message_id", event.MessageID),
		zap.String("user_id", event.UserID),
		zap.String("survey_id", event.SurveyID),
		zap.Int("points", event.Points),
	)
	return nil
}

// PublishSurveySync 发布离线问卷同步消息，worker 回传上游并打同步标记
func (p *Producer) PublishSurveySync(msg model.SurveySyncMessage) error {
	err := mq.PublishMessage(
		"offline.topic",
		"offline.survey.sync",
		msg,
	)
	if err != nil {
		logger.Logger.Error("Failed to publish survey sync message",
			zap.String("message_id", msg.MessageID),
			zap.String("cache_id", msg.CacheID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published survey sync message",
		zap.String("message_id", msg.MessageID),
		zap.String("cache_id", msg.CacheID),
		zap.String("user_id", msg.UserID),
	)
	return nil
}
