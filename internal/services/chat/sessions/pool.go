package sessions

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrPoolStopped is returned when submitting to a stopped pool.
	ErrPoolStopped = errors.New("worker pool stopped")
	// ErrPoolFull is returned when the pool backlog is at capacity.
	ErrPoolFull = errors.New("worker pool backlog full")
)

// Job is a unit of work run by a WorkerPool.
type Job func()

// WorkerPool runs submitted jobs on a fixed set of goroutines.
type WorkerPool struct {
	jobs    chan Job
	wg      sync.WaitGroup
	mu      sync.RWMutex
	started bool
	stopped bool
	busy    atomic.Int64
}

// NewWorkerPool creates a pool whose backlog holds bufferSize jobs.
func NewWorkerPool(bufferSize int) *WorkerPool {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &WorkerPool{
		jobs: make(chan Job, bufferSize),
	}
}

// Start launches the workers. Calling it again is a no-op.
func (p *WorkerPool) Start(workerCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.stopped {
		return
	}
	p.started = true

	if workerCount < 1 {
		workerCount = 1
	}
	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker runs jobs until the backlog is closed and drained.
func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for job := range p.jobs {
		p.run(job)
	}
}

func (p *WorkerPool) run(job Job) {
	defer p.busy.Add(-1)
	job()
}

// Submit queues a job without blocking.
func (p *WorkerPool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	p.busy.Add(1)
	select {
	case p.jobs <- job:
		return nil
	default:
		p.busy.Add(-1)
		return ErrPoolFull
	}
}

// Busy returns the number of queued or running jobs.
func (p *WorkerPool) Busy() int {
	return int(p.busy.Load())
}

// Stop refuses new jobs. Jobs already queued still run; Stop does not wait
// for them.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	p.stopped = true
	close(p.jobs)
}

// Wait blocks until every worker has exited. Only meaningful after Stop.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
