// Package queue decouples registering a chat request from waiting for its
// result. Each request key is completed exactly once and consumed at most once.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/steelcopilot/chat-service/internal/domain/models"
	"github.com/steelcopilot/chat-service/internal/pkg/logger"
)

// DefaultTimeout is how long Await waits when no timeout is given.
const DefaultTimeout = 120 * time.Second

// ErrTimeout is returned by Await when no result arrived in time.
var ErrTimeout = errors.New("timed out waiting for request result")

// Status is the lifecycle state of a request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// PendingRequest describes a registered request that has no result yet.
type PendingRequest struct {
	Key       string
	SessionID string
	UserID    string
	Message   string
	Status    Status
	Timestamp time.Time
}

// Result is the outcome written by the worker.
type Result struct {
	Status    Status
	Value     models.RawResult
	Error     string
	Timestamp time.Time
}

// RequestError carries the failure message stored for a request.
type RequestError struct {
	Key     string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s failed: %s", e.Key, e.Message)
}

// Work produces the result of a request.
type Work func() (models.RawResult, error)

// Runner schedules a job for concurrent execution, e.g. a worker pool's Submit.
type Runner func(job func()) error

// Stats is a snapshot of queue activity.
type Stats struct {
	Pending   int   `json:"pending"`
	Ready     int   `json:"ready"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	TimedOut  int64 `json:"timed_out"`
	Dropped   int64 `json:"dropped"`
}

type entry struct {
	pending *PendingRequest
	result  *Result
	done    chan struct{}
}

// Queue tracks outstanding requests. A single mutex guards every map mutation.
type Queue struct {
	mu      sync.Mutex
	entries map[string]*entry
	stats   Stats
	now     func() time.Time
	logger  zerolog.Logger
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		entries: make(map[string]*entry),
		now:     time.Now,
		logger:  logger.ForComponent("request-queue"),
	}
}

// Enqueue registers a pending request and returns its key without blocking.
func (q *Queue) Enqueue(sessionID, userID, message string) string {
	key := uuid.NewString()

	q.mu.Lock()
	q.entries[key] = &entry{
		pending: &PendingRequest{
			Key:       key,
			SessionID: sessionID,
			UserID:    userID,
			Message:   message,
			Status:    StatusPending,
			Timestamp: q.now(),
		},
		done: make(chan struct{}),
	}
	q.mu.Unlock()

	q.logger.Debug().Str("request_key", key).Str("session_id", sessionID).Msg("request enqueued")
	return key
}

// Submit schedules work for key with run and returns immediately. A nil run
// starts a goroutine. If run refuses the job, the request is failed with the
// scheduling error, which is also returned.
func (q *Queue) Submit(key string, work Work, run Runner) error {
	job := func() {
		value, err := work()
		q.complete(key, value, err)
	}

	if run == nil {
		go job()
		return nil
	}
	if err := run(job); err != nil {
		q.complete(key, nil, err)
		return fmt.Errorf("failed to schedule request %s: %w", key, err)
	}
	return nil
}

// complete stores the outcome of key. Results for unknown keys, which were
// abandoned by a timed-out waiter, are dropped.
func (q *Queue) complete(key string, value models.RawResult, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[key]
	if !ok {
		q.stats.Dropped++
		q.logger.Debug().Str("request_key", key).Msg("dropping result of abandoned request")
		return
	}
	if e.result != nil {
		return
	}

	result := &Result{Status: StatusCompleted, Value: value, Timestamp: q.now()}
	if err != nil {
		result = &Result{Status: StatusError, Error: err.Error(), Timestamp: q.now()}
		q.stats.Failed++
		q.logger.Warn().Err(err).Str("request_key", key).Str("session_id", e.pending.SessionID).Msg("request failed")
	} else {
		q.stats.Completed++
	}

	e.pending = nil
	e.result = result
	close(e.done)
}

// Await waits up to timeout for the result of key and consumes it. A key that
// is unknown or was already consumed times out.
func (q *Queue) Await(ctx context.Context, key string, timeout time.Duration) (models.RawResult, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	q.mu.Lock()
	e, ok := q.entries[key]
	q.mu.Unlock()

	if ok {
		select {
		case <-e.done:
			if result := q.take(key, e); result != nil {
				return unwrap(key, result)
			}
		case <-timer.C:
			return q.abandon(key, e)
		case <-ctx.Done():
			q.abandon(key, e)
			return nil, ctx.Err()
		}
	}

	select {
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// take removes and returns the result of e if it is still the entry for key.
func (q *Queue) take(key string, e *entry) *Result {
	q.mu.Lock()
	defer q.mu.Unlock()

	if cur, ok := q.entries[key]; !ok || cur != e || e.result == nil {
		return nil
	}
	delete(q.entries, key)
	return e.result
}

// abandon forgets key after a waiter gave up, unless the result landed in the
// meantime, in which case it is consumed.
func (q *Queue) abandon(key string, e *entry) (models.RawResult, error) {
	q.mu.Lock()
	cur, ok := q.entries[key]
	if !ok || cur != e {
		q.mu.Unlock()
		return nil, ErrTimeout
	}
	delete(q.entries, key)
	result := e.result
	if result == nil {
		q.stats.TimedOut++
	}
	q.mu.Unlock()

	if result != nil {
		return unwrap(key, result)
	}
	q.logger.Warn().Str("request_key", key).Str("session_id", e.pending.SessionID).Msg("request abandoned by waiter")
	return nil, ErrTimeout
}

func unwrap(key string, result *Result) (models.RawResult, error) {
	if result.Status == StatusError {
		return nil, &RequestError{Key: key, Message: result.Error}
	}
	return result.Value, nil
}

// Pending returns the number of requests without a result.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, e := range q.entries {
		if e.result == nil {
			n++
		}
	}
	return n
}

// Lookup returns the pending record of key, if the request is still pending.
func (q *Queue) Lookup(key string) (PendingRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[key]
	if !ok || e.pending == nil {
		return PendingRequest{}, false
	}
	return *e.pending, true
}

// Stats returns a snapshot of queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := q.stats
	for _, e := range q.entries {
		if e.result == nil {
			s.Pending++
		} else {
			s.Ready++
		}
	}
	return s
}
