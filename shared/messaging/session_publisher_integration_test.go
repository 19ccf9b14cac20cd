package messaging_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"storefront/shared/messaging"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcrabbit "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"go.uber.org/zap"
)

func TestRabbitMQSessionPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcrabbit.Run(ctx, "rabbitmq:3.13-management-alpine")
	require.NoError(t, err, "Failed to start rabbitmq container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	})

	url, err := container.AmqpURL(ctx)
	require.NoError(t, err)
	conn, err := amqp091.Dial(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	publisher, err := messaging.NewRabbitMQSessionPublisher(conn, "", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = publisher.Close() })

	// Подписываемся на fanout эксклюзивной очередью.
	ch, err := conn.Channel()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, "", messaging.SessionEventsExchangeName, false, nil))
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	require.NoError(t, publisher.PublishSessionsRevoked(ctx, "user-42", 3))

	select {
	case d := <-deliveries:
		assert.Equal(t, "application/json", d.ContentType)
		assert.Equal(t, string(messaging.SessionEventRevoked), d.Type)
		var payload messaging.SessionEventPayload
		require.NoError(t, json.Unmarshal(d.Body, &payload))
		assert.Equal(t, messaging.SessionEventRevoked, payload.Event)
		assert.Equal(t, "user-42", payload.UserID)
		assert.Equal(t, int64(3), payload.Count)
		assert.False(t, payload.OccurredAt.IsZero())
	case <-time.After(10 * time.Second):
		t.Fatal("session event was not delivered")
	}
}

func TestNoopSessionPublisher(t *testing.T) {
	assert.NoError(t, messaging.NoopSessionPublisher{}.PublishSessionsRevoked(context.Background(), "u", 1))
}
