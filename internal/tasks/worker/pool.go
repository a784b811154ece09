// Package worker runs queued matching tasks on a fixed set of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"guidinghand/internal/sentinel"
	"guidinghand/internal/tasks"
	"guidinghand/internal/tasks/metrics"
)

// Handler executes one task. Returned errors are logged and counted; they
// never stop the pool.
type Handler func(ctx context.Context, t tasks.Task) error

// Pool drains a queue with a fixed number of workers.
type Pool struct {
	queue        tasks.Queue
	handle       Handler
	concurrency  int
	errorBackoff time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// Option configures the Pool.
type Option func(*Pool)

// WithConcurrency sets the number of workers.
func WithConcurrency(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithErrorBackoff sets the pause after a failed dequeue.
func WithErrorBackoff(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.errorBackoff = d
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pool) {
		p.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// New creates a pool with 4 workers unless configured otherwise.
func New(queue tasks.Queue, handle Handler, opts ...Option) *Pool {
	p := &Pool{
		queue:        queue,
		handle:       handle,
		concurrency:  4,
		errorBackoff: time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run blocks until ctx is cancelled or the queue is closed. A task already
// picked up finishes with the cancelled context.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range p.concurrency {
		g.Go(func() error {
			p.loop(ctx, i)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pool) loop(ctx context.Context, worker int) {
	for {
		t, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, sentinel.ErrClosed) {
				return
			}
			p.logger.ErrorContext(ctx, "failed to dequeue task", "worker", worker, "error", err)
			if p.metrics != nil {
				p.metrics.IncDequeueErrors()
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.errorBackoff):
			}
			continue
		}
		p.process(ctx, worker, t)
	}
}

func (p *Pool) process(ctx context.Context, worker int, t tasks.Task) {
	start := time.Now()
	err := p.safeHandle(ctx, t)

	outcome := "success"
	if err != nil {
		outcome = "failure"
		p.logger.ErrorContext(ctx, "matching task failed",
			"worker", worker,
			"task_id", t.ID,
			"kind", t.Kind,
			"found_person_id", t.FoundPersonID,
			"error", err,
		)
	} else {
		p.logger.DebugContext(ctx, "matching task done", "task_id", t.ID, "kind", t.Kind)
	}
	if p.metrics != nil {
		p.metrics.ObserveTask(t.Kind.String(), outcome, time.Since(start).Seconds())
	}
}

func (p *Pool) safeHandle(ctx context.Context, t tasks.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return p.handle(ctx, t)
}
