// Package retry keeps failed notifications in a durable queue and re-sends
// them with bounded exponential backoff until they succeed or run out of
// attempts.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"guidinghand/internal/events"
	"guidinghand/internal/notifications/metrics"
	"guidinghand/internal/notifications/models"
	id "guidinghand/pkg/domain"
	"guidinghand/pkg/platform/privacy"
	"guidinghand/pkg/requestcontext"
)

const maxErrorLen = 500

// Store persists deliveries. See the store package for the error contract.
type Store interface {
	Schedule(ctx context.Context, d *models.Delivery) (*models.Delivery, bool, error)
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.Delivery, error)
	MarkDelivered(ctx context.Context, deliveryID id.DeliveryID, now time.Time) error
	MarkFailed(ctx context.Context, deliveryID id.DeliveryID, attempts int, next time.Time, lastErr string, now time.Time) error
	MarkDead(ctx context.Context, deliveryID id.DeliveryID, attempts int, lastErr string, now time.Time) error
	CountPending(ctx context.Context) (int64, error)
}

// Policy bounds the retries of one delivery. MaxAttempts counts every send,
// including the dispatcher's original one.
type Policy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseBackoff: 30 * time.Second, MaxBackoff: 30 * time.Minute}
}

// Backoff is the wait after the given failed attempt:
// BaseBackoff * 2^(attempt-1), capped at MaxBackoff.
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.BaseBackoff
	for i := 1; i < attempt && d < p.MaxBackoff; i++ {
		d *= 2
	}
	return min(d, p.MaxBackoff)
}

// Scheduler records failed sends and decides between another attempt and
// the dead-letter state.
type Scheduler struct {
	store     Store
	policy    Policy
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewScheduler creates a scheduler. A nil publisher discards events; nil
// metrics are skipped.
func NewScheduler(store Store, policy Policy, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Scheduler{store: store, policy: policy, publisher: publisher, metrics: m, logger: logger}
}

// Schedule enqueues a delivery whose first send just failed. If a pending
// entry already exists for the match and email it is left as is.
func (s *Scheduler) Schedule(ctx context.Context, d *models.Delivery, cause error) error {
	now := requestcontext.Now(ctx)
	d.Attempts = 1
	d.LastError = errorText(cause)
	d.UpdatedAt = now

	if s.exhausted(d) {
		d.State = models.StateDead
		_, stored, err := s.store.Schedule(ctx, d)
		if err != nil {
			return fmt.Errorf("store dead delivery: %w", err)
		}
		if stored {
			s.deadLetter(ctx, d)
		}
		return nil
	}

	d.State = models.StatePending
	d.NextAttemptAt = now.Add(s.policy.Backoff(d.Attempts))
	_, stored, err := s.store.Schedule(ctx, d)
	if err != nil {
		return fmt.Errorf("schedule delivery: %w", err)
	}
	if !stored {
		return nil
	}
	if s.metrics != nil {
		s.metrics.IncRetry("scheduled")
	}
	s.logger.InfoContext(ctx, "notification scheduled for retry",
		"match_id", d.MatchID,
		"email", privacy.MaskEmail(d.TrackerEmail),
		"next_attempt_at", d.NextAttemptAt,
	)
	return nil
}

// Reschedule records another failed attempt of a claimed delivery.
func (s *Scheduler) Reschedule(ctx context.Context, d *models.Delivery, cause error) error {
	now := requestcontext.Now(ctx)
	d.Attempts++
	d.LastError = errorText(cause)
	d.UpdatedAt = now

	if s.exhausted(d) {
		if err := s.store.MarkDead(ctx, d.ID, d.Attempts, d.LastError, now); err != nil {
			return fmt.Errorf("mark delivery dead: %w", err)
		}
		d.State = models.StateDead
		s.deadLetter(ctx, d)
		return nil
	}

	d.NextAttemptAt = now.Add(s.policy.Backoff(d.Attempts))
	if err := s.store.MarkFailed(ctx, d.ID, d.Attempts, d.NextAttemptAt, d.LastError, now); err != nil {
		return fmt.Errorf("reschedule delivery: %w", err)
	}
	if s.metrics != nil {
		s.metrics.IncRetry("rescheduled")
	}
	return nil
}

// Abandon dead-letters a delivery without further attempts. Used when the
// deliverer reports the notification can never be sent.
func (s *Scheduler) Abandon(ctx context.Context, d *models.Delivery, cause error) error {
	now := requestcontext.Now(ctx)
	d.Attempts++
	d.LastError = errorText(cause)
	d.UpdatedAt = now
	if err := s.store.MarkDead(ctx, d.ID, d.Attempts, d.LastError, now); err != nil {
		return fmt.Errorf("mark delivery dead: %w", err)
	}
	d.State = models.StateDead
	s.deadLetter(ctx, d)
	return nil
}

func (s *Scheduler) exhausted(d *models.Delivery) bool {
	return d.Attempts >= s.policy.MaxAttempts
}

func (s *Scheduler) deadLetter(ctx context.Context, d *models.Delivery) {
	if s.metrics != nil {
		s.metrics.IncRetry("dead")
		s.metrics.IncDeadLetters()
	}
	s.logger.WarnContext(ctx, "notification dead-lettered",
		"match_id", d.MatchID,
		"email", privacy.MaskEmail(d.TrackerEmail),
		"attempts", d.Attempts,
		"last_error", d.LastError,
	)
	s.publisher.Publish(ctx, events.Event{
		Type:            events.NotificationDeadLettered,
		MatchID:         d.MatchID,
		MissingPersonID: d.MissingPersonID,
		FoundPersonID:   d.FoundPersonID,
		ConfidenceScore: d.ConfidenceScore,
		TrackerEmail:    privacy.MaskEmail(d.TrackerEmail),
		Attempts:        d.Attempts,
		Reason:          d.LastError,
		OccurredAt:      d.UpdatedAt,
	})
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) <= maxErrorLen {
		return strings.ToValidUTF8(msg, "\uFFFD")
	}
	// last_error is a text column; never cut inside a rune.
	n := maxErrorLen
	for n > 0 && !utf8.RuneStart(msg[n]) {
		n--
	}
	return strings.ToValidUTF8(msg[:n], "\uFFFD")
}
