package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"BitePoints/config"
)

var (
	conn   *amqp.Connection
	mqOnce sync.Once
	mqErr  error
)

func Init() error {
	mqOnce.Do(func() {
		url := config.Cfg.GetRabbitMQURL()
		conn, mqErr = amqp.Dial(url)
		if mqErr != nil {
			return
		}

		var ch *amqp.Channel
		ch, mqErr = conn.Channel()
		if mqErr != nil {
			return
		}
		defer ch.Close()

		mqErr = declareTopology(ch)
	})

	return mqErr
}

func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	if conn == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("timed out closing RabbitMQ connection")
	case err := <-done:
		return err
	}
}

// declareTopology 声明交换机、队列与绑定
// events.topic 承载问卷完成事件，offline.topic 承载离线问卷投递
func declareTopology(ch *amqp.Channel) error {
	exchanges := []string{"events.topic", "offline.topic"}
	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", ex, err)
		}
	}

	queues := []struct {
		name       string
		exchange   string
		routingKey string
	}{
		{"points.survey_completed", "events.topic", "survey.completed"},
		{"offline.survey_sync", "offline.topic", "offline.survey.sync"},
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q.name, err)
		}
		if err := ch.QueueBind(q.name, q.routingKey, q.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", q.name, err)
		}
	}

	return nil
}
