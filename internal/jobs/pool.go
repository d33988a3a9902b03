// Package jobs runs background work (narration synthesis and renders) on a
// bounded worker pool. Requests only schedule tasks; nothing waits on them
// and failures are logged rather than reported back.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"animlab/internal/logging"
)

var (
	// ErrQueueFull is returned when every queue slot is taken.
	ErrQueueFull = errors.New("job queue is full")
	// ErrPoolClosed is returned after Stop.
	ErrPoolClosed = errors.New("job pool is stopped")
)

// Task is a unit of background work.
type Task struct {
	ID   string
	Kind string
	Run  func(ctx context.Context) error
}

// Scheduler accepts tasks for asynchronous execution.
type Scheduler interface {
	Schedule(task Task) error
}

// Pool manages background workers for scheduled tasks.
type Pool struct {
	tasks   chan Task
	workers int
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewPool creates a pool with the given worker count and queue size.
func NewPool(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		tasks:   make(chan Task, queueSize),
		workers: workers,
		logger:  logging.NewComponentLogger(logger, "jobs"),
	}
}

// Start launches the worker goroutines. Tasks receive a context derived from
// ctx that is cancelled only after Stop has drained the queue.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				p.run(task)
			}
		}()
	}
	p.logger.Debug("worker pool started", logging.Int("workers", p.workers), logging.Int("queue_size", cap(p.tasks)))
}

// Schedule queues a task without blocking.
func (p *Pool) Schedule(task Task) error {
	if task.Run == nil {
		return fmt.Errorf("schedule %s: task has no body", task.Kind)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		p.logger.Warn("job queue full, rejecting task",
			logging.String(logging.FieldJobID, task.ID),
			logging.String("kind", task.Kind),
			logging.String(logging.FieldEventType, "queue_full"),
		)
		return ErrQueueFull
	}
}

// Pending returns the number of queued tasks not yet picked up.
func (p *Pool) Pending() int {
	return len(p.tasks)
}

// Stop refuses new tasks, lets workers drain the queue, and waits for them.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	started := p.started
	p.mu.Unlock()

	if started {
		p.wg.Wait()
		p.cancel()
	}
}

func (p *Pool) run(task Task) {
	ctx := logging.WithJobID(p.ctx, task.ID)
	logger := logging.WithContext(ctx, p.logger).With(logging.String("kind", task.Kind))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
		}
	}()
	logger.Debug("job started")
	if err := task.Run(ctx); err != nil {
		logger.Error("job failed", logging.Error(err))
		return
	}
	logger.Debug("job finished")
}
