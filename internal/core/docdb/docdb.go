// Package docdb defines the document database used to persist chat sessions.
package docdb

import (
	"context"

	"github.com/steelcopilot/chat-service/internal/domain/models"
)

// Type represents the type of document database.
type Type string

const (
	// TypeMongoDB represents a MongoDB database.
	TypeMongoDB Type = "mongodb"
)

// SortOrder represents the sort direction.
type SortOrder string

const (
	// SortOrderAsc represents ascending order.
	SortOrderAsc SortOrder = "asc"
	// SortOrderDesc represents descending order.
	SortOrderDesc SortOrder = "desc"
)

// ListSessionsOptions filters and pages a session listing. Results are
// ordered by updated_at, newest first unless OrderBy says otherwise.
type ListSessionsOptions struct {
	UserID string
	// Module restricts the listing to one module when set.
	Module string
	// AgentID restricts the listing to one agent when set.
	AgentID *int
	// WithoutAgent keeps only sessions not bound to an agent. Ignored when
	// AgentID is set.
	WithoutAgent bool
	Limit        int64
	Skip         int64
	OrderBy      SortOrder
}

// ChatSessionsCollection stores chat session documents.
type ChatSessionsCollection interface {
	// Create inserts a new session document.
	Create(ctx context.Context, session *models.ChatSession) error

	// Get returns nil, nil when the session does not exist.
	Get(ctx context.Context, id string) (*models.ChatSession, error)

	// AppendMessages pushes messages onto the session and bumps updated_at.
	// It reports whether the session exists.
	AppendMessages(ctx context.Context, id string, messages ...models.ChatMessage) (bool, error)

	List(ctx context.Context, opts *ListSessionsOptions) ([]*models.ChatSession, error)

	// Delete reports whether a document was removed.
	Delete(ctx context.Context, id string) (bool, error)

	EnsureIndexes(ctx context.Context) error
}

// Client is a connected document database.
type Client interface {
	ChatSessions() ChatSessionsCollection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
