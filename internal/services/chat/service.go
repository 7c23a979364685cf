// Package chat wires the message pipeline together: response cache, request
// queue, per-session worker pools, processor and formatter.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	domainerrors "github.com/steelcopilot/chat-service/internal/domain/errors"
	"github.com/steelcopilot/chat-service/internal/domain/models"
	"github.com/steelcopilot/chat-service/internal/pkg/logger"
	"github.com/steelcopilot/chat-service/internal/services/chat/formatter"
	"github.com/steelcopilot/chat-service/internal/services/chat/processor"
	"github.com/steelcopilot/chat-service/internal/services/chat/queue"
	"github.com/steelcopilot/chat-service/internal/services/chat/sessions"
)

// Processor produces the raw result for a request.
type Processor interface {
	Process(ctx context.Context, req processor.Request) (models.RawResult, error)
}

// Cache is the read side of the response cache.
type Cache interface {
	Get(key string) (models.RawResult, bool)
}

// Stats summarizes pipeline load for health reporting.
type Stats struct {
	Sessions int         `json:"sessions"`
	Queue    queue.Stats `json:"queue"`
}

// Config holds the service dependencies.
type Config struct {
	Sessions  *sessions.Registry
	Cache     Cache
	Queue     *queue.Queue
	Processor Processor
	// Sweeper is optional; when set it is stopped by Close.
	Sweeper *sessions.Sweeper
	Timeout time.Duration
}

// Service answers chat messages.
type Service struct {
	sessions  *sessions.Registry
	cache     Cache
	queue     *queue.Queue
	processor Processor
	sweeper   *sessions.Sweeper
	timeout   time.Duration

	// work outlives individual callers; it is cancelled by Close.
	work      context.Context
	stopWork  context.CancelFunc
	closeOnce sync.Once
	logger    zerolog.Logger
}

// NewService creates the chat service.
func NewService(cfg *Config) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session registry is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if cfg.Queue == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if cfg.Processor == nil {
		return nil, fmt.Errorf("processor is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = queue.DefaultTimeout
	}

	work, stop := context.WithCancel(context.Background())
	return &Service{
		sessions:  cfg.Sessions,
		cache:     cfg.Cache,
		queue:     cfg.Queue,
		processor: cfg.Processor,
		sweeper:   cfg.Sweeper,
		timeout:   timeout,
		work:      work,
		stopWork:  stop,
		logger:    logger.ForComponent("chat-service"),
	}, nil
}

// Reply runs req through the pipeline and returns the normalized envelope.
// A reply that does not arrive within the queue timeout yields a TIMEOUT
// domain error; the work itself keeps running and its result is dropped.
func (s *Service) Reply(ctx context.Context, req processor.Request) (models.ResponseEnvelope, error) {
	log := logger.ForSession(req.SessionID)

	if cached, ok := s.cache.Get(req.CacheKey()); ok {
		log.Debug().Msg("reply served from cache")
		return formatter.Normalize(cached), nil
	}

	key := s.queue.Enqueue(req.SessionID, req.UserID, req.Message)
	pool := s.sessions.Pool(req.SessionID)

	work := func() (models.RawResult, error) {
		return s.processor.Process(s.work, req)
	}
	run := func(job func()) error {
		return pool.Submit(job)
	}
	if err := s.queue.Submit(key, work, run); err != nil {
		log.Warn().Err(err).Str("request_key", key).Msg("failed to schedule message")
	}

	raw, err := s.queue.Await(ctx, key, s.timeout)
	if err != nil {
		var reqErr *queue.RequestError
		switch {
		case errors.Is(err, queue.ErrTimeout):
			log.Warn().Str("request_key", key).Dur("timeout", s.timeout).Msg("reply timed out")
			return models.ResponseEnvelope{}, domainerrors.NewTimeoutError("chat reply", err)
		case errors.As(err, &reqErr):
			log.Error().Err(err).Str("request_key", key).Msg("message processing failed")
			return formatter.Fallback(), nil
		default:
			return models.ResponseEnvelope{}, err
		}
	}

	return formatter.Normalize(raw), nil
}

// CleanupSession releases every resource held for sessionID.
func (s *Service) CleanupSession(sessionID string) {
	s.sessions.Cleanup(sessionID)
}

// Stats returns pipeline counters.
func (s *Service) Stats() Stats {
	return Stats{
		Sessions: s.sessions.Len(),
		Queue:    s.queue.Stats(),
	}
}

// Close stops the sweeper, cancels outstanding work and shuts every session
// pool down. It is safe to call more than once.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		if s.sweeper != nil {
			s.sweeper.Stop()
		}
		s.stopWork()
		s.sessions.Close()
		s.logger.Info().Msg("chat service closed")
	})
}
