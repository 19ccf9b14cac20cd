package interfaces

import (
	"context"
)

// SessionEventPublisher broadcasts session lifecycle events to other services.
type SessionEventPublisher interface {
	// PublishSessionsRevoked announces that all sessions of the user were revoked.
	PublishSessionsRevoked(ctx context.Context, userID string, count int64) error
}
