// Package engine runs the two matching tasks for a found-person report: the
// referenced match the finder asserted, and the broad sweep over every open
// missing-person report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"guidinghand/internal/events"
	matchmodels "guidinghand/internal/matches/models"
	"guidinghand/internal/matching/metrics"
	"guidinghand/internal/matching/scoring"
	reportmodels "guidinghand/internal/reports/models"
	"guidinghand/internal/sentinel"
	"guidinghand/internal/tasks"
	id "guidinghand/pkg/domain"
	dErrors "guidinghand/pkg/domain-errors"
	"guidinghand/pkg/requestcontext"
)

const (
	sourceReferenced = "referenced"
	sourceBroad      = "broad"
)

// Reports is the read side of the report store.
type Reports interface {
	GetFound(ctx context.Context, reportID id.FoundPersonID) (*reportmodels.FoundPerson, error)
	ListMissing(ctx context.Context, filter reportmodels.MissingFilter) ([]*reportmodels.MissingPerson, error)
}

// Matches records matches. Create merges into an existing pair.
type Matches interface {
	Create(ctx context.Context, m *matchmodels.Match) (*matchmodels.Match, bool, error)
	FindByPair(ctx context.Context, missingID id.MissingPersonID, foundID id.FoundPersonID) (*matchmodels.Match, error)
}

// Dispatcher notifies trackers of a high-confidence match.
type Dispatcher interface {
	Dispatch(ctx context.Context, missingID id.MissingPersonID, foundID id.FoundPersonID, score int) error
}

type Engine struct {
	reports    Reports
	matches    Matches
	dispatcher Dispatcher
	publisher  events.Publisher
	tracer     trace.Tracer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithPublisher sets the match event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func New(reports Reports, matches Matches, dispatcher Dispatcher, opts ...Option) *Engine {
	e := &Engine{
		reports:    reports,
		matches:    matches,
		dispatcher: dispatcher,
		publisher:  events.Noop{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("guidinghand/matching")
	}
	return e
}

// HandleTask routes a queued task to its entry point.
func (e *Engine) HandleTask(ctx context.Context, t tasks.Task) error {
	switch t.Kind {
	case tasks.KindReferencedMatch:
		if t.MissingPersonID == nil {
			return dErrors.New(dErrors.CodeInvalidInput, "referenced match task without missing person id")
		}
		return e.RunReferenced(ctx, *t.MissingPersonID, t.FoundPersonID)
	case tasks.KindBroadMatch:
		return e.RunBroad(ctx, t.FoundPersonID)
	default:
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown task kind %q", t.Kind))
	}
}

// RunReferenced records the finder's explicit link at the referenced
// confidence unless the pair already has a match. It never notifies: the
// referenced confidence sits below the notify threshold.
func (e *Engine) RunReferenced(ctx context.Context, missingID id.MissingPersonID, foundID id.FoundPersonID) (err error) {
	ctx, span := e.tracer.Start(ctx, "matching.referenced", trace.WithAttributes(
		attribute.String("missing_person_id", missingID.String()),
		attribute.String("found_person_id", foundID.String()),
	))
	defer func() { endSpan(span, err) }()

	_, err = e.matches.FindByPair(ctx, missingID, foundID)
	switch {
	case err == nil:
		span.SetAttributes(attribute.Bool("existing", true))
		return nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return fmt.Errorf("find referenced match: %w", err)
	}

	m, created, err := e.matches.Create(ctx, matchmodels.New(missingID, foundID, scoring.ScoreReferenced, requestcontext.Now(ctx)))
	if err != nil {
		return fmt.Errorf("create referenced match: %w", err)
	}
	if created {
		e.matchCreated(ctx, m, sourceReferenced)
	}
	return nil
}

// RunBroad scores the found report against every missing report in status
// missing, one candidate at a time. Scores at the persist threshold are
// recorded; scores above the notify threshold are dispatched. A store
// failure ends the sweep with the matches recorded so far kept; re-running
// is safe because match creation merges by pair.
func (e *Engine) RunBroad(ctx context.Context, foundID id.FoundPersonID) (err error) {
	ctx, span := e.tracer.Start(ctx, "matching.broad", trace.WithAttributes(
		attribute.String("found_person_id", foundID.String()),
	))
	defer func() { endSpan(span, err) }()
	start := time.Now()

	found, err := e.reports.GetFound(ctx, foundID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			e.logger.WarnContext(ctx, "broad match skipped: found person not found", "found_person_id", foundID)
			return nil
		}
		return fmt.Errorf("load found person: %w", err)
	}

	status := reportmodels.StatusMissing
	candidates, err := e.reports.ListMissing(ctx, reportmodels.MissingFilter{Status: &status})
	if err != nil {
		return fmt.Errorf("list missing persons: %w", err)
	}

	var persisted, dispatched int
	for _, missing := range candidates {
		score := scoring.Score(found, missing)
		if !scoring.ShouldPersist(score) {
			continue
		}

		m, created, err := e.matches.Create(ctx, matchmodels.New(missing.ID, found.ID, score, requestcontext.Now(ctx)))
		if err != nil {
			return fmt.Errorf("create match for missing person %s: %w", missing.ID, err)
		}
		persisted++
		if created {
			e.matchCreated(ctx, m, sourceBroad)
		}

		if scoring.ShouldNotify(score) {
			dispatched++
			if e.metrics != nil {
				e.metrics.IncDispatch()
			}
			if err := e.dispatcher.Dispatch(ctx, missing.ID, found.ID, score); err != nil {
				e.logger.ErrorContext(ctx, "dispatch failed",
					"match_id", m.ID,
					"confidence_score", score,
					"error", err,
				)
			}
		}
	}

	span.SetAttributes(
		attribute.Int("candidates", len(candidates)),
		attribute.Int("persisted", persisted),
		attribute.Int("dispatched", dispatched),
	)
	if e.metrics != nil {
		e.metrics.AddScored(len(candidates))
		e.metrics.ObserveSweep(time.Since(start).Seconds())
	}
	e.logger.InfoContext(ctx, "broad match completed",
		"found_person_id", foundID,
		"candidates", len(candidates),
		"persisted", persisted,
		"dispatched", dispatched,
	)
	return nil
}

func (e *Engine) matchCreated(ctx context.Context, m *matchmodels.Match, source string) {
	if e.metrics != nil {
		e.metrics.IncMatchCreated(source, metrics.Band(m.ConfidenceScore, scoring.NotifyThreshold))
	}
	e.logger.InfoContext(ctx, "match created",
		"match_id", m.ID,
		"missing_person_id", m.MissingPersonID,
		"found_person_id", m.FoundPersonID,
		"confidence_score", m.ConfidenceScore,
		"source", source,
	)
	e.publisher.Publish(ctx, events.Event{
		Type:            events.MatchCreated,
		MatchID:         m.ID,
		MissingPersonID: m.MissingPersonID,
		FoundPersonID:   m.FoundPersonID,
		ConfidenceScore: m.ConfidenceScore,
		OccurredAt:      m.CreatedAt,
	})
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
