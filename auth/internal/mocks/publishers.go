package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Mock SessionEventPublisher
type SessionEventPublisher struct {
	mock.Mock
}

func (m *SessionEventPublisher) PublishSessionsRevoked(ctx context.Context, userID string, count int64) error {
	args := m.Called(ctx, userID, count)
	return args.Error(0)
}
