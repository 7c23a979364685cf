// Package sessions owns the per-session resources of the chat pipeline: the
// working directory, the binary semaphore that serializes message processing
// and the worker pool that runs it.
package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/sync/semaphore"

	"github.com/steelcopilot/chat-service/internal/pkg/logger"
)

const (
	// DefaultMaxSessions bounds the number of live sessions.
	DefaultMaxSessions = 512

	// DefaultPoolQueueSize is the backlog of each session pool.
	DefaultPoolQueueSize = 64

	maxPoolSize = 32
)

// State is the public view of a session.
type State struct {
	SessionID string
	WorkDir   string
	CreatedAt time.Time
}

// Token proves ownership of a session semaphore. Release it exactly once;
// extra releases are ignored.
type Token struct {
	sessionID string
	sem       *semaphore.Weighted
	entry     *session
	once      sync.Once
}

// SessionID returns the id of the session the token belongs to.
func (t *Token) SessionID() string {
	return t.sessionID
}

// session holds lazily created sub-resources; any of them may be nil.
type session struct {
	state    *State
	sem      *semaphore.Weighted
	pool     *WorkerPool
	inUse    int
	lastUsed time.Time
	// removed marks an entry cleaned up while its semaphore was in use. It
	// stays in the map, keeping the semaphore, until the last holder leaves.
	removed bool
}

func (s *session) idle() bool {
	return s.inUse == 0 && (s.pool == nil || s.pool.Busy() == 0)
}

// Config holds the registry configuration.
type Config struct {
	// WorkRoot is the parent of the per-session working directories.
	WorkRoot      string
	MaxSessions   int
	PoolSize      int
	PoolQueueSize int
	Now           func() time.Time
}

// Registry tracks per-session state. It is safe for concurrent use.
type Registry struct {
	mu            sync.Mutex
	sessions      map[string]*session
	workRoot      string
	maxSessions   int
	poolSize      int
	poolQueueSize int
	now           func() time.Time
	logger        zerolog.Logger
}

// NewRegistry creates a session registry.
func NewRegistry(cfg Config) (*Registry, error) {
	workRoot := cfg.WorkRoot
	if workRoot == "" {
		workRoot = os.TempDir()
	}
	if err := os.MkdirAll(workRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session work root: %w", err)
	}

	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = DefaultPoolSize()
	}
	queueSize := cfg.PoolQueueSize
	if queueSize <= 0 {
		queueSize = DefaultPoolQueueSize
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Registry{
		sessions:      make(map[string]*session),
		workRoot:      workRoot,
		maxSessions:   maxSessions,
		poolSize:      poolSize,
		poolQueueSize: queueSize,
		now:           now,
		logger:        logger.ForComponent("sessions"),
	}, nil
}

// DefaultPoolSize is twice the logical core count, capped.
func DefaultPoolSize() int {
	cores, err := cpu.Counts(true)
	if err != nil || cores < 1 {
		cores = runtime.NumCPU()
	}
	size := cores * 2
	if size > maxPoolSize {
		size = maxPoolSize
	}
	return size
}

// GetOrCreate returns the session state, creating it and its working
// directory on first use.
func (r *Registry) GetOrCreate(sessionID string) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.entryLocked(sessionID)
	s.lastUsed = r.now()
	if s.state != nil {
		return s.state, nil
	}

	dir := filepath.Join(r.workRoot, "session_"+sanitize(sessionID))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create working directory for session %s: %w", sessionID, err)
	}

	s.state = &State{
		SessionID: sessionID,
		WorkDir:   dir,
		CreatedAt: r.now(),
	}
	r.logger.Debug().Str("session_id", sessionID).Str("work_dir", dir).Msg("session created")
	return s.state, nil
}

// Acquire blocks until the session semaphore is free or ctx is done.
func (r *Registry) Acquire(ctx context.Context, sessionID string) (*Token, error) {
	r.mu.Lock()
	s := r.entryLocked(sessionID)
	if s.sem == nil {
		s.sem = semaphore.NewWeighted(1)
	}
	s.inUse++
	s.lastUsed = r.now()
	sem := s.sem
	r.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		r.mu.Lock()
		r.leaveLocked(sessionID, s)
		r.mu.Unlock()
		return nil, fmt.Errorf("failed to acquire session %s: %w", sessionID, err)
	}

	return &Token{sessionID: sessionID, sem: sem, entry: s}, nil
}

// Release returns the semaphore held by token.
func (r *Registry) Release(token *Token) {
	if token == nil {
		return
	}
	token.once.Do(func() {
		token.sem.Release(1)

		r.mu.Lock()
		token.entry.lastUsed = r.now()
		r.leaveLocked(token.sessionID, token.entry)
		r.mu.Unlock()
	})
}

// Do runs fn while holding the session semaphore.
func (r *Registry) Do(ctx context.Context, sessionID string, fn func() error) error {
	token, err := r.Acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer r.Release(token)

	return fn()
}

// Pool returns the session worker pool, starting it on first use.
func (r *Registry) Pool(sessionID string) *WorkerPool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.entryLocked(sessionID)
	s.lastUsed = r.now()
	if s.pool == nil {
		s.pool = NewWorkerPool(r.poolQueueSize)
		s.pool.Start(r.poolSize)
	}
	return s.pool
}

// Cleanup drops every resource of the session. Unknown ids are ignored. While
// the semaphore is held or awaited the entry is kept, so later callers still
// queue behind the current holder; it is dropped when the last one releases.
func (r *Registry) Cleanup(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if !ok || s.removed {
		r.mu.Unlock()
		return
	}
	if s.inUse > 0 {
		s.removed = true
		pool, state := s.pool, s.state
		s.pool, s.state = nil, nil
		r.mu.Unlock()

		r.release(sessionID, &session{pool: pool, state: state})
		return
	}
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	r.release(sessionID, s)
}

// EvictIdle removes sessions unused for at least maxIdle and returns how many
// were removed. Sessions with work in flight are kept.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	now := r.now()

	r.mu.Lock()
	evicted := make(map[string]*session)
	for id, s := range r.sessions {
		if s.idle() && now.Sub(s.lastUsed) >= maxIdle {
			evicted[id] = s
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for id, s := range evicted {
		r.release(id, s)
	}
	if len(evicted) > 0 {
		r.logger.Info().Int("evicted", len(evicted)).Msg("idle sessions evicted")
	}
	return len(evicted)
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, s := range r.sessions {
		if !s.removed {
			n++
		}
	}
	return n
}

// Has reports whether the session is tracked.
func (r *Registry) Has(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	return ok && !s.removed
}

// Close stops every session pool and waits for their workers.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for id, s := range all {
		r.release(id, s)
		if s.pool != nil {
			s.pool.Wait()
		}
	}
}

// entryLocked returns the entry for sessionID, creating it and evicting the
// least recently used idle session when the registry is full.
func (r *Registry) entryLocked(sessionID string) *session {
	if s, ok := r.sessions[sessionID]; ok {
		// Reusing a cleaned-up entry revives the session.
		s.removed = false
		return s
	}

	if len(r.sessions) >= r.maxSessions {
		r.evictOldestLocked()
	}

	s := &session{lastUsed: r.now()}
	r.sessions[sessionID] = s
	return s
}

// leaveLocked records that one semaphore user is gone and drops a cleaned-up
// entry once nobody uses it any more.
func (r *Registry) leaveLocked(sessionID string, s *session) {
	s.inUse--
	if !s.removed || s.inUse > 0 {
		return
	}
	if cur, ok := r.sessions[sessionID]; ok && cur == s {
		delete(r.sessions, sessionID)
	}
}

func (r *Registry) evictOldestLocked() {
	var (
		oldestID string
		oldest   *session
	)
	for id, s := range r.sessions {
		if !s.idle() {
			continue
		}
		if oldest == nil || s.lastUsed.Before(oldest.lastUsed) {
			oldestID, oldest = id, s
		}
	}
	if oldest == nil {
		r.logger.Warn().Int("sessions", len(r.sessions)).Msg("session limit reached with no idle session to evict")
		return
	}

	delete(r.sessions, oldestID)
	r.release(oldestID, oldest)
}

// release frees the sub-resources of a session already removed from the map.
func (r *Registry) release(sessionID string, s *session) {
	if s.pool != nil {
		s.pool.Stop()
	}
	if s.state != nil {
		if err := os.RemoveAll(s.state.WorkDir); err != nil {
			r.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to remove session working directory")
		}
	}
	r.logger.Debug().Str("session_id", sessionID).Msg("session resources released")
}

// sanitize keeps session ids safe to use as a path element. Ids that had to
// be rewritten get a hash suffix so distinct ids never share a directory.
func sanitize(sessionID string) string {
	var b strings.Builder
	for _, c := range sessionID {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	if b.String() == sessionID && sessionID != "" {
		return sessionID
	}
	sum := sha256.Sum256([]byte(sessionID))
	return b.String() + "-" + hex.EncodeToString(sum[:4])
}
