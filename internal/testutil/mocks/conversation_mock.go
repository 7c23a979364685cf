package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/steelcopilot/chat-service/internal/domain/models"
	"github.com/steelcopilot/chat-service/internal/services/conversation"
)

// MockConversationService is a mock implementation of conversation.Service.
type MockConversationService struct {
	mock.Mock
}

// CreateSession creates a session.
func (m *MockConversationService) CreateSession(ctx context.Context, in conversation.CreateSessionInput) (*models.ChatSession, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

// GetOrCreateSession returns the latest matching session or creates one.
func (m *MockConversationService) GetOrCreateSession(ctx context.Context, in conversation.CreateSessionInput) (*models.ChatSession, bool, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.ChatSession), args.Bool(1), args.Error(2)
}

// GetSession returns a session.
func (m *MockConversationService) GetSession(ctx context.Context, sessionID, userID string) (*models.ChatSession, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

// AppendMessages appends messages to a session.
func (m *MockConversationService) AppendMessages(ctx context.Context, sessionID string, messages ...models.ChatMessage) error {
	args := m.Called(ctx, sessionID, messages)
	return args.Error(0)
}

// ListUserSessions lists the sessions of a user.
func (m *MockConversationService) ListUserSessions(ctx context.Context, userID string) ([]*models.ChatSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChatSession), args.Error(1)
}

// DeleteSession deletes a session.
func (m *MockConversationService) DeleteSession(ctx context.Context, sessionID, userID string) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}
