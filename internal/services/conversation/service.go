// Package conversation persists chat sessions. Session documents live in the
// document store; a sealed copy is kept in the cache for fast reads.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/steelcopilot/chat-service/internal/core/cache"
	"github.com/steelcopilot/chat-service/internal/core/docdb"
	domainerrors "github.com/steelcopilot/chat-service/internal/domain/errors"
	"github.com/steelcopilot/chat-service/internal/domain/models"
	"github.com/steelcopilot/chat-service/internal/pkg/encryption"
	"github.com/steelcopilot/chat-service/internal/pkg/logger"
)

const (
	// DefaultCacheTTL is how long a cached session document stays valid.
	DefaultCacheTTL = 3 * time.Minute

	// DefaultListLimit caps ListUserSessions.
	DefaultListLimit = 50

	// DefaultHistoryCount is the number of prior messages sent as context.
	DefaultHistoryCount = 30
)

// CreateSessionInput describes a new chat session.
type CreateSessionInput struct {
	UserID   string
	Username string
	Module   string
	AgentID  *int
	Metadata map[string]interface{}
}

// Service manages persisted chat sessions.
type Service interface {
	// CreateSession stores a new session opened with a welcome message.
	CreateSession(ctx context.Context, in CreateSessionInput) (*models.ChatSession, error)

	// GetOrCreateSession returns the most recently updated session of the user
	// for the agent, or for the module when no agent is given, creating one
	// when none exists. created reports whether a new session was stored.
	GetOrCreateSession(ctx context.Context, in CreateSessionInput) (session *models.ChatSession, created bool, err error)

	// GetSession returns the session if it belongs to userID.
	GetSession(ctx context.Context, sessionID, userID string) (*models.ChatSession, error)

	// AppendMessages adds messages to the end of the session.
	AppendMessages(ctx context.Context, sessionID string, messages ...models.ChatMessage) error

	// ListUserSessions returns the sessions of userID, most recently updated first.
	ListUserSessions(ctx context.Context, userID string) ([]*models.ChatSession, error)

	// DeleteSession removes the session if it belongs to userID.
	DeleteSession(ctx context.Context, sessionID, userID string) error
}

// Config holds the configuration for the conversation service.
type Config struct {
	Store docdb.ChatSessionsCollection
	// Cache is optional.
	Cache  cache.Cache
	Sealer encryption.Sealer
	TTL    time.Duration
}

type service struct {
	store  docdb.ChatSessionsCollection
	cache  cache.Cache
	sealer encryption.Sealer
	ttl    time.Duration
	logger zerolog.Logger
}

// NewService creates a new conversation service.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}

	sealer := cfg.Sealer
	if sealer == nil {
		sealer = encryption.NoOpSealer{}
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}

	return &service{
		store:  cfg.Store,
		cache:  cfg.Cache,
		sealer: sealer,
		ttl:    ttl,
		logger: logger.ForComponent("conversation"),
	}, nil
}

// WelcomeMessage is the assistant greeting that opens a session.
func WelcomeMessage(module string, agentID *int) string {
	if hasAgent(agentID) {
		return fmt.Sprintf("Hello! I'm Agent #%d. How can I assist with your steel operations today?", *agentID)
	}
	topic := "operations"
	if module != "" {
		topic = strings.ReplaceAll(module, "-", " ")
	}
	return fmt.Sprintf("Hello! I'm your Steel Ecosystem Co-Pilot. How can I help you with steel %s today?", topic)
}

// hasAgent treats agent id zero as no agent.
func hasAgent(agentID *int) bool {
	return agentID != nil && *agentID != 0
}

// RecentTurns converts the last limit messages of the session into completion
// turns. A non-positive limit selects DefaultHistoryCount.
func RecentTurns(session *models.ChatSession, limit int) []models.Turn {
	turns := session.Turns()
	if limit <= 0 {
		limit = DefaultHistoryCount
	}
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns
}

func (s *service) CreateSession(ctx context.Context, in CreateSessionInput) (*models.ChatSession, error) {
	if in.UserID == "" {
		return nil, domainerrors.NewValidationError("user id is required", "")
	}

	session := models.NewChatSession(
		uuid.NewString(),
		in.UserID,
		in.Username,
		in.Module,
		in.AgentID,
		in.Metadata,
		models.NewChatMessage(WelcomeMessage(in.Module, in.AgentID), false),
	)
	if err := s.store.Create(ctx, session); err != nil {
		return nil, domainerrors.NewInternalError("failed to create chat session", err)
	}

	s.storeCached(ctx, session)
	s.logger.Info().Str("session_id", session.ID).Str("user_id", in.UserID).Msg("chat session created")
	return session, nil
}

func (s *service) GetOrCreateSession(ctx context.Context, in CreateSessionInput) (*models.ChatSession, bool, error) {
	if in.UserID == "" {
		return nil, false, domainerrors.NewValidationError("user id is required", "")
	}

	opts := &docdb.ListSessionsOptions{
		UserID:  in.UserID,
		Limit:   1,
		OrderBy: docdb.SortOrderDesc,
	}
	if hasAgent(in.AgentID) {
		opts.AgentID = in.AgentID
	} else {
		opts.Module = in.Module
		opts.WithoutAgent = true
	}

	latest, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, false, domainerrors.NewInternalError("failed to look up chat session", err)
	}
	if len(latest) > 0 {
		return latest[0], false, nil
	}

	session, err := s.CreateSession(ctx, in)
	if err != nil {
		return nil, false, err
	}
	return session, true, nil
}

func (s *service) GetSession(ctx context.Context, sessionID, userID string) (*models.ChatSession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, domainerrors.NewForbiddenError("chat session belongs to another user")
	}
	return session, nil
}

func (s *service) AppendMessages(ctx context.Context, sessionID string, messages ...models.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}

	found, err := s.store.AppendMessages(ctx, sessionID, messages...)
	if err != nil {
		return domainerrors.NewInternalError("failed to append chat messages", err)
	}
	if !found {
		return domainerrors.NewNotFoundError("chat session", sessionID)
	}

	s.invalidate(ctx, sessionID)
	return nil
}

func (s *service) ListUserSessions(ctx context.Context, userID string) ([]*models.ChatSession, error) {
	sessions, err := s.store.List(ctx, &docdb.ListSessionsOptions{
		UserID:  userID,
		Limit:   DefaultListLimit,
		OrderBy: docdb.SortOrderDesc,
	})
	if err != nil {
		return nil, domainerrors.NewInternalError("failed to list chat sessions", err)
	}
	return sessions, nil
}

func (s *service) DeleteSession(ctx context.Context, sessionID, userID string) error {
	if _, err := s.GetSession(ctx, sessionID, userID); err != nil {
		return err
	}

	if _, err := s.store.Delete(ctx, sessionID); err != nil {
		return domainerrors.NewInternalError("failed to delete chat session", err)
	}
	s.invalidate(ctx, sessionID)
	return nil
}

// load reads through the cache.
func (s *service) load(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	if cached := s.cached(ctx, sessionID); cached != nil {
		return cached, nil
	}

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, domainerrors.NewInternalError("failed to load chat session", err)
	}
	if session == nil {
		return nil, domainerrors.NewNotFoundError("chat session", sessionID)
	}

	s.storeCached(ctx, session)
	return session, nil
}

func cacheKey(sessionID string) string {
	return "session:" + sessionID
}

// cached returns nil on a miss or on any cache, decrypt or decode failure.
func (s *service) cached(ctx context.Context, sessionID string) *models.ChatSession {
	if s.cache == nil {
		return nil
	}

	key := cacheKey(sessionID)
	sealed, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("session cache read failed")
		return nil
	}
	if sealed == nil {
		return nil
	}

	plain, err := s.sealer.Open(sealed, []byte(sessionID))
	if err != nil {
		_, _ = s.cache.Delete(ctx, key)
		return nil
	}

	var session models.ChatSession
	if err := json.Unmarshal(plain, &session); err != nil {
		_, _ = s.cache.Delete(ctx, key)
		return nil
	}
	return &session
}

func (s *service) storeCached(ctx context.Context, session *models.ChatSession) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(session)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed to encode session for cache")
		return
	}
	sealed, err := s.sealer.Seal(data, []byte(session.ID))
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed to seal session for cache")
		return
	}
	if err := s.cache.Set(ctx, cacheKey(session.ID), sealed, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("session cache write failed")
	}
}

func (s *service) invalidate(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Delete(ctx, cacheKey(sessionID)); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("session cache invalidation failed")
	}
}
