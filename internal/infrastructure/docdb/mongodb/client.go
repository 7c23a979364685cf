// Package mongodb stores chat session documents in MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/steelcopilot/chat-service/internal/core/docdb"
)

const (
	// DefaultConnectTimeout bounds the initial connect and ping.
	DefaultConnectTimeout = 10 * time.Second

	appName = "chat-service"
)

// ClientConfig holds MongoDB connection configuration.
type ClientConfig struct {
	URI          string
	DatabaseName string
	// ChatCollection defaults to ChatSessionsCollectionName.
	ChatCollection string
	ConnectTimeout time.Duration
}

// Client implements docdb.Client for MongoDB.
type Client struct {
	client       *mongo.Client
	chatSessions *ChatSessionsCollection
}

// NewClient connects to MongoDB and verifies the connection.
func NewClient(ctx context.Context, config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.URI == "" {
		return nil, fmt.Errorf("mongodb URI is required")
	}
	if config.DatabaseName == "" {
		return nil, fmt.Errorf("database name is required")
	}

	timeout := config.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	collection := config.ChatCollection
	if collection == "" {
		collection = ChatSessionsCollectionName
	}

	opts := options.Client().
		ApplyURI(config.URI).
		SetAppName(appName).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Client{
		client:       client,
		chatSessions: NewChatSessionsCollection(client.Database(config.DatabaseName).Collection(collection)),
	}, nil
}

// ChatSessions returns the chat sessions collection.
func (c *Client) ChatSessions() docdb.ChatSessionsCollection {
	return c.chatSessions
}

// Ping verifies the connection to the primary.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb ping failed: %w", err)
	}
	return nil
}

// Close disconnects, waiting for in-use connections until ctx is done.
func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}
	return nil
}
