package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/steelcopilot/chat-service/internal/api/dto"
	"github.com/steelcopilot/chat-service/internal/api/middleware"
	"github.com/steelcopilot/chat-service/internal/domain/errors"
	"github.com/steelcopilot/chat-service/internal/domain/models"
	"github.com/steelcopilot/chat-service/internal/services/chat/processor"
	"github.com/steelcopilot/chat-service/internal/services/conversation"
)

// Replier answers chat messages.
type Replier interface {
	Reply(ctx context.Context, req processor.Request) (models.ResponseEnvelope, error)
	CleanupSession(sessionID string)
}

// ChatHandler handles chat session endpoints.
type ChatHandler struct {
	conversations conversation.Service
	replier       Replier
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(conversations conversation.Service, replier Replier) *ChatHandler {
	return &ChatHandler{
		conversations: conversations,
		replier:       replier,
	}
}

// CreateSession handles POST /sessions
// @Summary Create chat session
// @Description Opens a chat session for the authenticated user with a welcome message
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body dto.CreateSessionRequest false "Session options"
// @Success 201 {object} dto.SessionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat/sessions [post]
func (h *ChatHandler) CreateSession(c *gin.Context) {
	user := middleware.GetUser(c)

	var req dto.CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleError(c, errors.NewValidationError("invalid request body", err.Error()))
			return
		}
	}

	session, err := h.conversations.CreateSession(c.Request.Context(), conversation.CreateSessionInput{
		UserID:   user.UserID,
		Username: user.Username,
		Module:   req.Module,
		AgentID:  req.AgentID,
		Metadata: req.Metadata,
	})
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewSessionResponse(session))
}

// ListSessions handles GET /sessions
// @Summary List chat sessions
// @Description Lists the sessions of the authenticated user, most recently updated first
// @Tags Chat
// @Produce json
// @Success 200 {object} dto.ListSessionsResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat/sessions [get]
func (h *ChatHandler) ListSessions(c *gin.Context) {
	user := middleware.GetUser(c)

	sessions, err := h.conversations.ListUserSessions(c.Request.Context(), user.UserID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListSessionsResponse(sessions))
}

// ModuleSession handles GET /{module}
// @Summary Get or create module chat
// @Description Returns the caller's most recent session for the module, creating one with a welcome message when none exists
// @Tags Chat
// @Produce json
// @Param module path string true "Module"
// @Success 200 {object} dto.SessionResponse
// @Success 201 {object} dto.SessionResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat/{module} [get]
func (h *ChatHandler) ModuleSession(c *gin.Context) {
	user := middleware.GetUser(c)

	h.openSession(c, conversation.CreateSessionInput{
		UserID:   user.UserID,
		Username: user.Username,
		Module:   c.Param("module"),
	})
}

// AgentSession handles GET /agents/{agentId}
// @Summary Get or create agent chat
// @Description Returns the caller's most recent session with the agent, creating one with a welcome message when none exists
// @Tags Chat
// @Produce json
// @Param agentId path int true "Agent ID"
// @Success 200 {object} dto.SessionResponse
// @Success 201 {object} dto.SessionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat/agents/{agentId} [get]
func (h *ChatHandler) AgentSession(c *gin.Context) {
	user := middleware.GetUser(c)

	agentID, err := strconv.Atoi(c.Param("agentId"))
	if err != nil || agentID < 1 {
		middleware.HandleError(c, errors.NewValidationError("invalid agent id", "agent id must be a positive integer"))
		return
	}

	h.openSession(c, conversation.CreateSessionInput{
		UserID:   user.UserID,
		Username: user.Username,
		AgentID:  &agentID,
	})
}

func (h *ChatHandler) openSession(c *gin.Context, in conversation.CreateSessionInput) {
	session, created, err := h.conversations.GetOrCreateSession(c.Request.Context(), in)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.NewSessionResponse(session))
}

// GetSession handles GET /sessions/{sessionId}
// @Summary Get chat session
// @Description Returns a session with its messages
// @Tags Chat
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat/sessions/{sessionId} [get]
func (h *ChatHandler) GetSession(c *gin.Context) {
	user := middleware.GetUser(c)

	session, err := h.conversations.GetSession(c.Request.Context(), c.Param("sessionId"), user.UserID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSessionResponse(session))
}

// SendMessage handles POST /sessions/{sessionId}/messages
// @Summary Send chat message
// @Description Stores the user message, runs it through the co-pilot pipeline and returns the normalized reply
// @Tags Chat
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param request body dto.SendMessageRequest true "Message"
// @Success 200 {object} models.ResponseEnvelope
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 504 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat/sessions/{sessionId}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(c)
	sessionID := c.Param("sessionId")
	log := middleware.GetRequestLogger(c).With().Str("session_id", sessionID).Logger()

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}

	session, err := h.conversations.GetSession(ctx, sessionID, user.UserID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	history := conversation.RecentTurns(session, conversation.DefaultHistoryCount)

	if err := h.conversations.AppendMessages(ctx, sessionID, models.NewChatMessage(req.Text, true)); err != nil {
		middleware.HandleError(c, err)
		return
	}

	envelope, err := h.replier.Reply(ctx, processor.Request{
		SessionID: sessionID,
		UserID:    user.UserID,
		Message:   req.Text,
		Module:    session.Module,
		AgentID:   session.AgentID,
		Persona:   user.Persona,
		History:   history,
	})
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	if err := h.conversations.AppendMessages(ctx, sessionID, models.NewChatMessage(envelope.Text, false)); err != nil {
		log.Warn().Err(err).Msg("failed to store assistant reply")
	}

	c.JSON(http.StatusOK, envelope)
}

// DeleteSession handles DELETE /sessions/{sessionId}
// @Summary Delete chat session
// @Description Deletes a stored session and releases its pipeline resources
// @Tags Chat
// @Param sessionId path string true "Session ID"
// @Success 204 "No Content"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat/sessions/{sessionId} [delete]
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	user := middleware.GetUser(c)
	sessionID := c.Param("sessionId")

	if err := h.conversations.DeleteSession(c.Request.Context(), sessionID, user.UserID); err != nil {
		middleware.HandleError(c, err)
		return
	}
	h.replier.CleanupSession(sessionID)

	c.Status(http.StatusNoContent)
}
