package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/domain/identity"
	"jan-server/services/helpdesk-api/internal/infrastructure/metrics"
)

// Task is a named unit of best-effort background work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Config contains worker pool configuration.
type Config struct {
	WorkerCount int
	QueueSize   int
	TaskTimeout time.Duration
}

// Pool runs tasks on a fixed set of workers fed by a bounded queue. Submit never
// blocks: when the queue is full the task is dropped.
type Pool struct {
	tasks       chan Task
	workers     []*Worker
	workerCount int
	taskTimeout time.Duration
	log         zerolog.Logger
	wg          sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
	cancel  context.CancelFunc
}

var _ identity.TaskRunner = (*Pool)(nil)

// NewPool creates a new worker pool.
func NewPool(cfg Config, log zerolog.Logger) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 30 * time.Second
	}
	return &Pool{
		tasks:       make(chan Task, cfg.QueueSize),
		workerCount: cfg.WorkerCount,
		taskTimeout: cfg.TaskTimeout,
		log:         log.With().Str("component", "worker-pool").Logger(),
	}
}

// Start launches the workers. Tasks run under ctx, each with its own timeout.
func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.log.Info().Int("worker_count", p.workerCount).Int("queue_size", cap(p.tasks)).Msg("starting worker pool")

	p.workers = make([]*Worker, p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		w := NewWorker(i+1, p.tasks, p.taskTimeout, p.log)
		p.workers[i] = w

		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Start(ctx)
		}(w)
	}
}

// Submit enqueues fn. It returns false when the pool is stopped or the queue is full.
func (p *Pool) Submit(name string, fn func(ctx context.Context) error) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		metrics.RecordBackgroundTask(name, "dropped")
		return false
	}
	select {
	case p.tasks <- Task{Name: name, Run: fn}:
		return true
	default:
		metrics.RecordBackgroundTask(name, "dropped")
		p.log.Warn().Str("task", name).Msg("task queue full, dropping task")
		return false
	}
}

// QueueDepth returns the number of tasks waiting for a worker.
func (p *Pool) QueueDepth() int {
	return len(p.tasks)
}

// Stop stops accepting tasks and lets workers drain the queue. Tasks still running
// at the deadline are cancelled.
func (p *Pool) Stop(timeout time.Duration) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	cancel := p.cancel
	p.mu.Unlock()

	p.log.Info().Int("pending", len(p.tasks)).Msg("stopping worker pool")

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info().Msg("all workers stopped gracefully")
	case <-time.After(timeout):
		p.log.Warn().Msg("worker pool shutdown timed out")
	}
	if cancel != nil {
		cancel()
	}
}
