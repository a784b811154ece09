package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"guidinghand/internal/notifications/metrics"
	"guidinghand/internal/notifications/models"
	"guidinghand/pkg/platform/privacy"
	"guidinghand/pkg/requestcontext"
)

// Deliverer re-sends one queued notification. A nil error means the email
// transport accepted it.
type Deliverer interface {
	Redeliver(ctx context.Context, d *models.Delivery) error
}

// Worker polls the retry queue and re-sends due deliveries.
type Worker struct {
	store        Store
	scheduler    *Scheduler
	deliverer    Deliverer
	batchSize    int
	pollInterval time.Duration
	lease        time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// Option configures the Worker.
type Option func(*Worker)

// WithBatchSize sets the maximum number of deliveries claimed per poll.
func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

// WithPollInterval sets the interval between polls.
func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// WithLease sets how long a claimed delivery stays invisible to other polls.
// It must exceed the email transport timeout.
func WithLease(lease time.Duration) Option {
	return func(w *Worker) {
		if lease > 0 {
			w.lease = lease
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// NewWorker creates a retry worker.
func NewWorker(store Store, scheduler *Scheduler, deliverer Deliverer, opts ...Option) *Worker {
	w := &Worker{
		store:        store,
		scheduler:    scheduler,
		deliverer:    deliverer,
		batchSize:    50,
		pollInterval: 5 * time.Second,
		lease:        2 * time.Minute,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled. It always returns nil so it can sit in
// an errgroup next to the HTTP server.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "notification retry worker started",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
	)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("notification retry worker stopped")
			return nil
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll claims one batch of due deliveries and processes it. It returns the
// number of deliveries attempted.
func (w *Worker) Poll(ctx context.Context) int {
	now := requestcontext.Now(ctx)
	due, err := w.store.ClaimDue(ctx, now, w.lease, w.batchSize)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to claim due deliveries", "error", err)
		return 0
	}

	for _, d := range due {
		if ctx.Err() != nil {
			break
		}
		w.process(ctx, d)
	}

	if w.metrics != nil {
		if pending, err := w.store.CountPending(ctx); err == nil {
			w.metrics.SetPending(pending)
		}
	}
	return len(due)
}

func (w *Worker) process(ctx context.Context, d *models.Delivery) {
	sendErr := w.deliverer.Redeliver(ctx, d)
	if sendErr == nil {
		if err := w.store.MarkDelivered(ctx, d.ID, requestcontext.Now(ctx)); err != nil {
			// The lease expires and the message is sent again; trackers may
			// see a duplicate.
			w.logger.ErrorContext(ctx, "failed to mark delivery delivered",
				"delivery_id", d.ID,
				"error", err,
			)
			return
		}
		if w.metrics != nil {
			w.metrics.IncRetry("delivered")
		}
		return
	}

	if errors.Is(sendErr, models.ErrUndeliverable) {
		w.logger.WarnContext(ctx, "notification undeliverable, dead-lettering",
			"delivery_id", d.ID,
			"match_id", d.MatchID,
			"error", sendErr,
		)
		if err := w.scheduler.Abandon(ctx, d, sendErr); err != nil {
			w.logger.ErrorContext(ctx, "failed to dead-letter delivery",
				"delivery_id", d.ID,
				"error", err,
			)
		}
		return
	}

	w.logger.WarnContext(ctx, "notification retry failed",
		"delivery_id", d.ID,
		"match_id", d.MatchID,
		"email", privacy.MaskEmail(d.TrackerEmail),
		"attempt", d.Attempts+1,
		"error", sendErr,
	)
	if err := w.scheduler.Reschedule(ctx, d, sendErr); err != nil {
		w.logger.ErrorContext(ctx, "failed to record retry failure",
			"delivery_id", d.ID,
			"error", err,
		)
	}
}
