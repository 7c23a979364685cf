package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/steelcopilot/chat-service/internal/domain/models"
	"github.com/steelcopilot/chat-service/internal/services/chat"
	"github.com/steelcopilot/chat-service/internal/services/chat/processor"
)

// MockReplier is a mock of the chat pipeline as seen by the HTTP handlers.
type MockReplier struct {
	mock.Mock
}

// Reply answers a chat message.
func (m *MockReplier) Reply(ctx context.Context, req processor.Request) (models.ResponseEnvelope, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.ResponseEnvelope), args.Error(1)
}

// CleanupSession releases pipeline resources of a session.
func (m *MockReplier) CleanupSession(sessionID string) {
	m.Called(sessionID)
}

// Stats reports pipeline counters.
func (m *MockReplier) Stats() chat.Stats {
	args := m.Called()
	return args.Get(0).(chat.Stats)
}

// MockPinger is a mock health probe.
type MockPinger struct {
	mock.Mock
}

// Ping checks the dependency.
func (m *MockPinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
