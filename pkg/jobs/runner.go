// Package jobs runs the service's background maintenance. Today that is
// report retention; tasks are typed so new housekeeping can be added
// without widening the payload into a grab bag.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind identifies one maintenance task.
type Kind string

// KindPurgeReports removes rendered day reports past their retention.
const KindPurgeReports Kind = "purge_reports"

// Task is one unit of background work.
type Task struct {
	Kind     Kind
	Attempt  int
	Enqueued time.Time
}

// Handler processes a task.
type Handler func(context.Context, Task) error

// Config configures worker pool behaviour.
type Config struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Runner dispatches maintenance tasks to a small in-process worker pool
// and can fire a task on a fixed interval.
type Runner struct {
	handler Handler

	workers    int
	bufferSize int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewRunner builds a runner around the provided handler.
func NewRunner(handler Handler, cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Runner{
		handler:    handler,
		workers:    cfg.Workers,
		bufferSize: cfg.BufferSize,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		tasks:      make(chan Task, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	r.started = true
	r.logger.Sugar().Infow("maintenance runner started", "workers", r.workers)
}

// Stop cancels workers and waits for them to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.mu.Unlock()
	r.wg.Wait()
	r.logger.Sugar().Infow("maintenance runner stopped")
}

// Enqueue pushes a task onto the runner.
func (r *Runner) Enqueue(task Task) error {
	r.mu.Lock()
	ctx := r.ctx
	started := r.started
	r.mu.Unlock()

	if !started {
		return fmt.Errorf("maintenance runner not started")
	}
	if task.Enqueued.IsZero() {
		task.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("maintenance runner stopped: %w", ctx.Err())
	case r.tasks <- task:
		return nil
	}
}

// Schedule enqueues the given task kind every interval until the runner's
// context is cancelled. Must be called after Start.
func (r *Runner) Schedule(kind Kind, every time.Duration) {
	r.mu.Lock()
	ctx := r.ctx
	started := r.started
	r.mu.Unlock()

	if !started || every <= 0 {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.Enqueue(Task{Kind: kind}); err != nil {
					r.logger.Sugar().Warnw("failed to schedule task", "kind", kind, "error", err)
				}
			}
		}
	}()
}

func (r *Runner) worker() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case task := <-r.tasks:
			if err := r.handler(r.ctx, task); err != nil {
				r.handleFailure(task, err)
			}
		}
	}
}

func (r *Runner) handleFailure(task Task, err error) {
	task.Attempt++
	if task.Attempt > r.maxRetries {
		r.logger.Sugar().Errorw("task exceeded retries", "kind", task.Kind, "error", err)
		return
	}
	r.logger.Sugar().Warnw("task failed, retrying", "kind", task.Kind, "attempt", task.Attempt, "error", err)

	go func(t Task) {
		timer := time.NewTimer(r.retryDelay)
		defer timer.Stop()
		select {
		case <-r.ctx.Done():
			return
		case <-timer.C:
			if err := r.Enqueue(t); err != nil {
				r.logger.Sugar().Errorw("failed to requeue task", "kind", t.Kind, "error", err)
			}
		}
	}(task)
}
