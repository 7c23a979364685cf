package sessions

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/steelcopilot/chat-service/internal/pkg/logger"
)

// DefaultSweepSchedule runs the idle sweep once a minute.
const DefaultSweepSchedule = "@every 1m"

// Evictor is the part of the registry the sweeper drives.
type Evictor interface {
	EvictIdle(maxIdle time.Duration) int
}

// Sweeper periodically evicts idle sessions.
type Sweeper struct {
	cron    *cron.Cron
	evictor Evictor
	maxIdle time.Duration
	logger  zerolog.Logger
}

// NewSweeper schedules EvictIdle(maxIdle) on the given cron spec. The spec
// accepts the robfig descriptors, e.g. "@every 30s".
func NewSweeper(evictor Evictor, schedule string, maxIdle time.Duration) (*Sweeper, error) {
	if evictor == nil {
		return nil, fmt.Errorf("evictor is required")
	}
	if maxIdle <= 0 {
		return nil, fmt.Errorf("max idle duration must be positive")
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	s := &Sweeper{
		cron:    cron.New(),
		evictor: evictor,
		maxIdle: maxIdle,
		logger:  logger.ForComponent("session-sweeper"),
	}
	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Sweep runs one eviction pass.
func (s *Sweeper) Sweep() {
	n := s.evictor.EvictIdle(s.maxIdle)
	s.logger.Debug().Int("evicted", n).Dur("max_idle", s.maxIdle).Msg("idle sweep finished")
}

// Start begins the schedule in its own goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info().Dur("max_idle", s.maxIdle).Msg("session sweeper started")
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("session sweeper stopped")
}
