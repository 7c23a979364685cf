// Package models contains domain models for the Steel Co-Pilot Chat Service.
package models

import "time"

// MessageRole represents the role of a message sender in a completion turn.
type MessageRole string

const (
	// RoleUser represents a message from the user.
	RoleUser MessageRole = "user"
	// RoleAssistant represents a message from the assistant.
	RoleAssistant MessageRole = "assistant"
	// RoleSystem represents a system message.
	RoleSystem MessageRole = "system"
)

// ChatMessage is a single message stored inside a chat session document.
type ChatMessage struct {
	Text      string    `json:"text" bson:"text"`
	IsUser    bool      `json:"isUser" bson:"isUser"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// NewChatMessage creates a message stamped with the current time.
func NewChatMessage(text string, isUser bool) ChatMessage {
	return ChatMessage{
		Text:      text,
		IsUser:    isUser,
		Timestamp: time.Now().UTC(),
	}
}

// Role maps the isUser flag onto a completion role.
func (m ChatMessage) Role() MessageRole {
	if m.IsUser {
		return RoleUser
	}
	return RoleAssistant
}

// ChatSession is the persisted conversation document.
type ChatSession struct {
	ID        string                 `json:"session_id" bson:"_id"`
	UserID    string                 `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Username  string                 `json:"username,omitempty" bson:"username,omitempty"`
	Module    string                 `json:"module,omitempty" bson:"module,omitempty"`
	AgentID   *int                   `json:"agent_id,omitempty" bson:"agent_id,omitempty"`
	Messages  []ChatMessage          `json:"messages" bson:"messages"`
	CreatedAt time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" bson:"updated_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// NewChatSession creates a session document with the given opening messages.
func NewChatSession(id, userID, username, module string, agentID *int, metadata map[string]interface{}, messages ...ChatMessage) *ChatSession {
	now := time.Now().UTC()
	if messages == nil {
		messages = []ChatMessage{}
	}
	return &ChatSession{
		ID:        id,
		UserID:    userID,
		Username:  username,
		Module:    module,
		AgentID:   agentID,
		Messages:  messages,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  metadata,
	}
}

// Turn is one prior exchange handed to the completion backend.
type Turn struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Turns converts the stored messages into completion turns, oldest first.
func (s *ChatSession) Turns() []Turn {
	if s == nil {
		return nil
	}
	turns := make([]Turn, 0, len(s.Messages))
	for _, msg := range s.Messages {
		turns = append(turns, Turn{Role: msg.Role(), Content: msg.Text})
	}
	return turns
}
