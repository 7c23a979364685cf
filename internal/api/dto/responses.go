// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/steelcopilot/chat-service/internal/domain/models"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// MessageResponse represents a stored chat message.
type MessageResponse struct {
	Text      string    `json:"text"`
	IsUser    bool      `json:"isUser"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionResponse represents a chat session.
type SessionResponse struct {
	SessionID string                 `json:"session_id"`
	Module    string                 `json:"module,omitempty"`
	AgentID   *int                   `json:"agent_id,omitempty"`
	Messages  []MessageResponse      `json:"messages"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// SessionSummaryResponse represents a chat session in a listing.
type SessionSummaryResponse struct {
	SessionID    string    `json:"session_id"`
	Module       string    `json:"module,omitempty"`
	AgentID      *int      `json:"agent_id,omitempty"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListSessionsResponse represents the sessions of the authenticated user.
type ListSessionsResponse struct {
	Sessions []SessionSummaryResponse `json:"sessions"`
	Total    int                      `json:"total"`
}

// NewSessionResponse converts a stored session into its API form.
func NewSessionResponse(session *models.ChatSession) SessionResponse {
	messages := make([]MessageResponse, 0, len(session.Messages))
	for _, msg := range session.Messages {
		messages = append(messages, MessageResponse{
			Text:      msg.Text,
			IsUser:    msg.IsUser,
			Timestamp: msg.Timestamp,
		})
	}

	return SessionResponse{
		SessionID: session.ID,
		Module:    session.Module,
		AgentID:   session.AgentID,
		Messages:  messages,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		Metadata:  session.Metadata,
	}
}

// NewListSessionsResponse summarizes a session listing.
func NewListSessionsResponse(sessions []*models.ChatSession) ListSessionsResponse {
	summaries := make([]SessionSummaryResponse, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, SessionSummaryResponse{
			SessionID:    s.ID,
			Module:       s.Module,
			AgentID:      s.AgentID,
			MessageCount: len(s.Messages),
			UpdatedAt:    s.UpdatedAt,
		})
	}
	return ListSessionsResponse{Sessions: summaries, Total: len(summaries)}
}
