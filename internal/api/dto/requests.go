// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// CreateSessionRequest represents the request body for opening a chat session.
type CreateSessionRequest struct {
	Module   string                 `json:"module" binding:"omitempty,max=100"`
	AgentID  *int                   `json:"agent_id" binding:"omitempty,min=0"`
	Metadata map[string]interface{} `json:"metadata"`
}

// SendMessageRequest represents the request body for sending a chat message.
type SendMessageRequest struct {
	Text string `json:"text" binding:"required,min=1,max=32000"`
}
