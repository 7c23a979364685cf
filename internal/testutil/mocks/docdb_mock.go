package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/steelcopilot/chat-service/internal/core/docdb"
	"github.com/steelcopilot/chat-service/internal/domain/models"
)

// MockChatSessionsCollection is a mock implementation of docdb.ChatSessionsCollection.
type MockChatSessionsCollection struct {
	mock.Mock
}

// Create inserts a session.
func (m *MockChatSessionsCollection) Create(ctx context.Context, session *models.ChatSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// Get returns a session by id.
func (m *MockChatSessionsCollection) Get(ctx context.Context, id string) (*models.ChatSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

// AppendMessages pushes messages onto a session.
func (m *MockChatSessionsCollection) AppendMessages(ctx context.Context, id string, messages ...models.ChatMessage) (bool, error) {
	args := m.Called(ctx, id, messages)
	return args.Bool(0), args.Error(1)
}

// List lists sessions.
func (m *MockChatSessionsCollection) List(ctx context.Context, opts *docdb.ListSessionsOptions) ([]*models.ChatSession, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChatSession), args.Error(1)
}

// Delete removes a session.
func (m *MockChatSessionsCollection) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// EnsureIndexes creates the collection indexes.
func (m *MockChatSessionsCollection) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockDocDBClient is a mock implementation of docdb.Client.
type MockDocDBClient struct {
	mock.Mock
	Sessions *MockChatSessionsCollection
}

// NewMockDocDBClient creates a MockDocDBClient with an empty collection mock.
func NewMockDocDBClient() *MockDocDBClient {
	return &MockDocDBClient{Sessions: &MockChatSessionsCollection{}}
}

// ChatSessions returns the collection mock.
func (m *MockDocDBClient) ChatSessions() docdb.ChatSessionsCollection {
	return m.Sessions
}

// Ping checks the database connection.
func (m *MockDocDBClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the database connection.
func (m *MockDocDBClient) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
