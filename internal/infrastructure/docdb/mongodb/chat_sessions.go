package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/steelcopilot/chat-service/internal/core/docdb"
	"github.com/steelcopilot/chat-service/internal/domain/models"
)

// ChatSessionsCollectionName is the default collection for session documents.
const ChatSessionsCollectionName = "chat_sessions"

// ChatSessionsCollection implements docdb.ChatSessionsCollection.
type ChatSessionsCollection struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewChatSessionsCollection wraps a MongoDB collection.
func NewChatSessionsCollection(collection *mongo.Collection) *ChatSessionsCollection {
	return &ChatSessionsCollection{
		collection: collection,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a new session document.
func (c *ChatSessionsCollection) Create(ctx context.Context, session *models.ChatSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session ID is required")
	}
	if session.Messages == nil {
		session.Messages = []models.ChatMessage{}
	}

	if _, err := c.collection.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to insert chat session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID.
func (c *ChatSessionsCollection) Get(ctx context.Context, id string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := c.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}
	return &session, nil
}

// AppendMessages pushes messages in order and bumps updated_at.
func (c *ChatSessionsCollection) AppendMessages(ctx context.Context, id string, messages ...models.ChatMessage) (bool, error) {
	if len(messages) == 0 {
		return false, fmt.Errorf("at least one message is required")
	}

	update := bson.M{
		"$push": bson.M{"messages": bson.M{"$each": messages}},
		"$set":  bson.M{"updated_at": c.now()},
	}
	result, err := c.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return false, fmt.Errorf("failed to append chat messages: %w", err)
	}
	return result.MatchedCount > 0, nil
}

// List returns the sessions matching opts.
func (c *ChatSessionsCollection) List(ctx context.Context, opts *docdb.ListSessionsOptions) ([]*models.ChatSession, error) {
	if opts == nil {
		opts = &docdb.ListSessionsOptions{}
	}

	filter := bson.M{}
	if opts.UserID != "" {
		filter["user_id"] = opts.UserID
	}
	if opts.Module != "" {
		filter["module"] = opts.Module
	}
	switch {
	case opts.AgentID != nil:
		filter["agent_id"] = *opts.AgentID
	case opts.WithoutAgent:
		// Matches both a null and a missing agent_id.
		filter["agent_id"] = nil
	}

	sortDir := -1
	if opts.OrderBy == docdb.SortOrderAsc {
		sortDir = 1
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: sortDir}})
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}

	cursor, err := c.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	defer cursor.Close(ctx)

	sessions := []*models.ChatSession{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode chat sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes a session document.
func (c *ChatSessionsCollection) Delete(ctx context.Context, id string) (bool, error) {
	result, err := c.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete chat session: %w", err)
	}
	return result.DeletedCount > 0, nil
}

// EnsureIndexes creates the user listing index.
func (c *ChatSessionsCollection) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_user_updated"),
		},
	}

	if _, err := c.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create chat session indexes: %w", err)
	}
	return nil
}
