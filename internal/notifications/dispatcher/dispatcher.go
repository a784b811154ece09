// Package dispatcher fans a high-confidence match out to the verified
// trackers of the missing-person report.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"guidinghand/internal/events"
	matchmodels "guidinghand/internal/matches/models"
	"guidinghand/internal/notifications/metrics"
	"guidinghand/internal/notifications/models"
	"guidinghand/internal/notifications/sender"
	reportmodels "guidinghand/internal/reports/models"
	"guidinghand/internal/sentinel"
	trackermodels "guidinghand/internal/trackers/models"
	id "guidinghand/pkg/domain"
	"guidinghand/pkg/platform/privacy"
	"guidinghand/pkg/requestcontext"
)

const (
	pathDispatch = "dispatch"
	pathRetry    = "retry"
)

// Reports loads the two sides of a match.
type Reports interface {
	GetMissing(ctx context.Context, reportID id.MissingPersonID) (*reportmodels.MissingPerson, error)
	GetFound(ctx context.Context, reportID id.FoundPersonID) (*reportmodels.FoundPerson, error)
}

// Trackers lists subscribers of a missing-person report.
type Trackers interface {
	ListByMissingPerson(ctx context.Context, missingID id.MissingPersonID) ([]*trackermodels.Tracker, error)
}

// Matches resolves the match for a pair and records notification.
type Matches interface {
	FindByPair(ctx context.Context, missingID id.MissingPersonID, foundID id.FoundPersonID) (*matchmodels.Match, error)
	MarkNotified(ctx context.Context, matchID id.MatchID) (bool, error)
}

// Retries takes over sends that failed.
type Retries interface {
	Schedule(ctx context.Context, d *models.Delivery, cause error) error
}

type Dispatcher struct {
	reports   Reports
	trackers  Trackers
	matches   Matches
	sender    sender.Sender
	retries   Retries
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithRetries hands failed sends to a retry queue. Without it failures are
// only logged and counted.
func WithRetries(r Retries) Option {
	return func(d *Dispatcher) {
		d.retries = r
	}
}

// WithPublisher sets the match event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(d *Dispatcher) {
		if p != nil {
			d.publisher = p
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func New(reports Reports, trackers Trackers, matches Matches, s sender.Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		reports:   reports,
		trackers:  trackers,
		matches:   matches,
		sender:    s,
		publisher: events.Noop{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch notifies every verified tracker of missingID that foundID may be
// the same person. Each tracker is handled independently: a failed send is
// logged, counted and queued for retry, and the loop moves on. A missing
// report or match makes the call a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, missingID id.MissingPersonID, foundID id.FoundPersonID, score int) error {
	missing, found, err := d.loadPair(ctx, missingID, foundID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			d.logger.WarnContext(ctx, "dispatch skipped: report not found",
				"missing_person_id", missingID,
				"found_person_id", foundID,
			)
			return nil
		}
		return err
	}

	trackers, err := d.trackers.ListByMissingPerson(ctx, missingID)
	if err != nil {
		return fmt.Errorf("list trackers: %w", err)
	}
	verified := make([]*trackermodels.Tracker, 0, len(trackers))
	for _, t := range trackers {
		if t.Verified {
			verified = append(verified, t)
		}
	}
	if len(verified) == 0 {
		d.logger.DebugContext(ctx, "no verified trackers to notify", "missing_person_id", missingID)
		return nil
	}

	match, err := d.matches.FindByPair(ctx, missingID, foundID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			d.logger.WarnContext(ctx, "dispatch skipped: match not found",
				"missing_person_id", missingID,
				"found_person_id", foundID,
			)
			return nil
		}
		return fmt.Errorf("find match: %w", err)
	}

	sent := 0
	for _, t := range verified {
		msg := sender.Message{
			To:                t.Email,
			MissingPersonName: missing.Name,
			FoundPersonName:   found.Name,
			ConfidenceScore:   score,
			MatchID:           match.ID,
		}
		if err := d.send(ctx, msg, pathDispatch); err != nil {
			d.logger.ErrorContext(ctx, "failed to notify tracker",
				"match_id", match.ID,
				"tracker_id", t.ID,
				"email", privacy.MaskEmail(t.Email),
				"error", err,
			)
			d.scheduleRetry(ctx, match.ID, t.Email, missingID, foundID, score, err)
			continue
		}
		sent++
		d.markNotified(ctx, match.ID, missingID, foundID, score)
	}

	d.logger.InfoContext(ctx, "match dispatched",
		"match_id", match.ID,
		"confidence_score", score,
		"trackers", len(verified),
		"sent", sent,
	)
	return nil
}

// Redeliver re-sends a queued notification with the reports' current names.
// A report that no longer exists yields models.ErrUndeliverable.
func (d *Dispatcher) Redeliver(ctx context.Context, del *models.Delivery) error {
	missing, found, err := d.loadPair(ctx, del.MissingPersonID, del.FoundPersonID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("%w: %w", models.ErrUndeliverable, err)
	}
	if err != nil {
		return err
	}
	msg := sender.Message{
		To:                del.TrackerEmail,
		MissingPersonName: missing.Name,
		FoundPersonName:   found.Name,
		ConfidenceScore:   del.ConfidenceScore,
		MatchID:           del.MatchID,
	}
	if err := d.send(ctx, msg, pathRetry); err != nil {
		return err
	}
	d.markNotified(ctx, del.MatchID, del.MissingPersonID, del.FoundPersonID, del.ConfidenceScore)
	return nil
}

func (d *Dispatcher) loadPair(ctx context.Context, missingID id.MissingPersonID, foundID id.FoundPersonID) (*reportmodels.MissingPerson, *reportmodels.FoundPerson, error) {
	missing, err := d.reports.GetMissing(ctx, missingID)
	if err != nil {
		return nil, nil, fmt.Errorf("load missing person: %w", err)
	}
	found, err := d.reports.GetFound(ctx, foundID)
	if err != nil {
		return nil, nil, fmt.Errorf("load found person: %w", err)
	}
	return missing, found, nil
}

func (d *Dispatcher) send(ctx context.Context, msg sender.Message, path string) error {
	start := time.Now()
	err := d.sender.Send(ctx, msg)
	if d.metrics != nil {
		d.metrics.ObserveSend(time.Since(start).Seconds())
		if err != nil {
			d.metrics.IncFailed(path)
		} else {
			d.metrics.IncSent(path)
		}
	}
	return err
}

func (d *Dispatcher) scheduleRetry(ctx context.Context, matchID id.MatchID, email string, missingID id.MissingPersonID, foundID id.FoundPersonID, score int, cause error) {
	if d.retries == nil {
		return
	}
	del := models.NewDelivery(matchID, email, missingID, foundID, score, requestcontext.Now(ctx))
	if err := d.retries.Schedule(ctx, del, cause); err != nil {
		d.logger.ErrorContext(ctx, "failed to schedule notification retry",
			"match_id", matchID,
			"email", privacy.MaskEmail(email),
			"error", err,
		)
	}
}

// markNotified flips the match's notified flag. Only the call that flips it
// publishes match.notified.
func (d *Dispatcher) markNotified(ctx context.Context, matchID id.MatchID, missingID id.MissingPersonID, foundID id.FoundPersonID, score int) {
	flipped, err := d.matches.MarkNotified(ctx, matchID)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to mark match notified", "match_id", matchID, "error", err)
		return
	}
	if !flipped {
		return
	}
	d.publisher.Publish(ctx, events.Event{
		Type:            events.MatchNotified,
		MatchID:         matchID,
		MissingPersonID: missingID,
		FoundPersonID:   foundID,
		ConfidenceScore: score,
		OccurredAt:      requestcontext.Now(ctx),
	})
}
