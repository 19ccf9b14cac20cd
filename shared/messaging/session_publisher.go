package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"storefront/shared/interfaces"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var (
	_ interfaces.SessionEventPublisher = (*RabbitMQSessionPublisher)(nil)
	_ interfaces.SessionEventPublisher = NoopSessionPublisher{}
)

// RabbitMQSessionPublisher публикует события сессий в fanout exchange.
type RabbitMQSessionPublisher struct {
	mu           sync.Mutex
	ch           *amqp091.Channel
	logger       *zap.Logger
	exchangeName string
	now          func() time.Time
}

// NewRabbitMQSessionPublisher открывает канал и объявляет durable fanout exchange.
func NewRabbitMQSessionPublisher(conn *amqp091.Connection, exchangeName string, logger *zap.Logger) (*RabbitMQSessionPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}
	if exchangeName == "" {
		exchangeName = SessionEventsExchangeName
	}

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("Failed to open a channel for session events", zap.Error(err))
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchangeName,
		sessionEventsExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		logger.Error("Failed to declare session events exchange", zap.String("exchange", exchangeName), zap.Error(err))
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchangeName, err)
	}
	logger.Info("Session events exchange declared", zap.String("exchange", exchangeName))

	return &RabbitMQSessionPublisher{
		ch:           ch,
		logger:       logger.Named("SessionEventPublisher"),
		exchangeName: exchangeName,
		now:          time.Now,
	}, nil
}

// PublishSessionsRevoked публикует sessions.revoked.
func (p *RabbitMQSessionPublisher) PublishSessionsRevoked(ctx context.Context, userID string, count int64) error {
	payload := SessionEventPayload{
		Event:      SessionEventRevoked,
		UserID:     userID,
		Count:      count,
		OccurredAt: p.now().UTC(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		p.exchangeName,
		"",    // routing key не нужен для fanout
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    uuid.NewString(),
			Type:         string(SessionEventRevoked),
			Timestamp:    payload.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish session event", zap.String("userID", userID), zap.Error(err))
		return fmt.Errorf("failed to publish session event: %w", err)
	}
	p.logger.Debug("Session event published", zap.String("userID", userID), zap.Int64("count", count))
	return nil
}

// Close закрывает канал RabbitMQ.
func (p *RabbitMQSessionPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}

// NoopSessionPublisher используется, когда RabbitMQ не настроен.
type NoopSessionPublisher struct{}

func (NoopSessionPublisher) PublishSessionsRevoked(context.Context, string, int64) error { return nil }
