// Package processor turns one chat message into a raw result. Work for a
// session is serialized on the session semaphore; results are cached by
// message, module and agent.
package processor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/steelcopilot/chat-service/internal/domain/models"
	"github.com/steelcopilot/chat-service/internal/pkg/logger"
	"github.com/steelcopilot/chat-service/internal/services/chat/completion"
	"github.com/steelcopilot/chat-service/internal/services/chat/formatter"
	"github.com/steelcopilot/chat-service/internal/services/chat/responsecache"
	"github.com/steelcopilot/chat-service/internal/services/chat/sessions"
)

const (
	// DefaultTemperature is the sampling temperature for completions.
	DefaultTemperature float32 = 0.7
	// DefaultMaxTokens caps the completion length.
	DefaultMaxTokens = 800

	// ErrorText replaces the reply when processing fails.
	ErrorText = "An error occurred while processing your request."
	// ApologyText replaces the reply when the completion backend fails.
	ApologyText = formatter.FallbackText
)

// Sessions is the part of the session registry the processor needs.
type Sessions interface {
	GetOrCreate(sessionID string) (*sessions.State, error)
	Acquire(ctx context.Context, sessionID string) (*sessions.Token, error)
	Release(token *sessions.Token)
}

// Cache stores processed replies.
type Cache interface {
	Get(key string) (models.RawResult, bool)
	Set(key string, value models.RawResult)
}

// Request is one inbound chat message with its context.
type Request struct {
	SessionID string
	UserID    string
	Message   string
	Module    string
	AgentID   *int
	Persona   string
	// History holds the prior turns of the conversation, oldest first.
	History []models.Turn
}

// CacheKey returns the response cache key of the request.
func (r Request) CacheKey() string {
	return responsecache.Key(r.Message, r.Module, r.AgentID)
}

// Config holds the processor dependencies.
type Config struct {
	Sessions    Sessions
	Cache       Cache
	Completer   completion.Completer
	Temperature float32
	MaxTokens   int
}

// Processor runs the classify/complete step for chat messages.
type Processor struct {
	sessions    Sessions
	cache       Cache
	completer   completion.Completer
	temperature float32
	maxTokens   int
}

// New creates a processor.
func New(cfg *Config) (*Processor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session registry is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if cfg.Completer == nil {
		return nil, fmt.Errorf("completer is required")
	}

	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &Processor{
		sessions:    cfg.Sessions,
		cache:       cfg.Cache,
		completer:   cfg.Completer,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Process answers req. Processing failures are turned into an error reply;
// the only error returned is a failure to acquire the session semaphore.
func (p *Processor) Process(ctx context.Context, req Request) (models.RawResult, error) {
	log := logger.ForSession(req.SessionID)

	if _, err := p.sessions.GetOrCreate(req.SessionID); err != nil {
		log.Error().Err(err).Msg("failed to prepare session")
		return errorReply(), nil
	}

	key := req.CacheKey()
	if cached, ok := p.cache.Get(key); ok {
		log.Debug().Msg("response served from cache")
		return cached, nil
	}

	token, err := p.sessions.Acquire(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	defer p.sessions.Release(token)

	reply, cacheable, err := p.run(ctx, log, req)
	if err != nil {
		log.Error().Err(err).Msg("processing failed")
		return errorReply(), nil
	}
	if cacheable {
		p.cache.Set(key, reply)
	}
	return reply, nil
}

// run executes the classify/call step. A panic is reported as an error.
func (p *Processor) run(ctx context.Context, log zerolog.Logger, req Request) (reply *models.Reply, cacheable bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing message: %v", r)
		}
	}()

	kind := Classify(req.Message)
	log.Info().Str("kind", kind.String()).Msg("processing message")

	if kind == DataRequest {
		return dataReply(log, req), true, nil
	}
	return p.converse(ctx, log, req)
}

// converse asks the completion backend. Backend failures become the apology
// text and are not cached.
func (p *Processor) converse(ctx context.Context, log zerolog.Logger, req Request) (*models.Reply, bool, error) {
	turns := make([]models.Turn, 0, len(req.History)+1)
	turns = append(turns, req.History...)
	turns = append(turns, models.Turn{Role: models.RoleUser, Content: req.Message})

	text, err := p.completer.Complete(ctx, SystemPrompt(req.Module, req.AgentID), turns, p.temperature, p.maxTokens)
	if err != nil {
		log.Warn().Err(err).Msg("completion backend failed")
		return &models.Reply{Text: ApologyText, NextQuestion: FollowUps(req.Persona)}, false, nil
	}

	return &models.Reply{Text: text, NextQuestion: FollowUps(req.Persona)}, true, nil
}

func errorReply() *models.Reply {
	return &models.Reply{Text: ErrorText, NextQuestion: formatter.FallbackQuestions()}
}
