// Package service implements report intake: the guarded missing-person
// write, the found-person write with its reference check, and the task
// hand-off to the matching worker pool.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"guidinghand/internal/matching/scoring"
	"guidinghand/internal/reports/guard"
	"guidinghand/internal/reports/metrics"
	"guidinghand/internal/reports/models"
	"guidinghand/internal/sentinel"
	"guidinghand/internal/tasks"
	taskmetrics "guidinghand/internal/tasks/metrics"
	id "guidinghand/pkg/domain"
	dErrors "guidinghand/pkg/domain-errors"
	"guidinghand/pkg/platform/privacy"
	"guidinghand/pkg/requestcontext"
)

const (
	kindMissing = "missing"
	kindFound   = "found"
)

// Store persists reports.
type Store interface {
	guard.History
	CreateMissing(ctx context.Context, report *models.MissingPerson) error
	GetMissing(ctx context.Context, reportID id.MissingPersonID) (*models.MissingPerson, error)
	ListMissing(ctx context.Context, filter models.MissingFilter) ([]*models.MissingPerson, error)
	UpdateMissingStatus(ctx context.Context, reportID id.MissingPersonID, status models.MissingStatus, now time.Time) error
	CreateFound(ctx context.Context, report *models.FoundPerson) error
	GetFound(ctx context.Context, reportID id.FoundPersonID) (*models.FoundPerson, error)
	ListFound(ctx context.Context, filter models.FoundFilter) ([]*models.FoundPerson, error)
	UpdateFoundStatus(ctx context.Context, reportID id.FoundPersonID, status models.FoundStatus, now time.Time) error
}

// IntakeStore is the part of the store visible inside an intake transaction.
type IntakeStore interface {
	guard.History
	CreateMissing(ctx context.Context, report *models.MissingPerson) error
}

// Guard screens missing-person submissions.
type Guard interface {
	Evaluate(ctx context.Context, history guard.History, candidate *models.MissingPerson) (guard.Reason, error)
}

type Service struct {
	store       Store
	queue       tasks.Queue
	guard       Guard
	tx          IntakeTx
	metrics     *metrics.Metrics
	taskMetrics *taskmetrics.Metrics
	logger      *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithIntakeTx replaces the in-memory shard lock, e.g. with a Postgres
// transaction.
func WithIntakeTx(tx IntakeTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// WithMetrics sets the intake metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTaskMetrics counts enqueue outcomes.
func WithTaskMetrics(m *taskmetrics.Metrics) Option {
	return func(s *Service) {
		s.taskMetrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(store Store, queue tasks.Queue, g Guard, opts ...Option) *Service {
	s := &Service{
		store:  store,
		queue:  queue,
		guard:  g,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewShardedIntakeTx(store, s.metrics)
	}
	return s
}

// CreateMissing validates the submission, runs the intake guard against the
// reporter's history and persists the report with status missing. The guard
// and the insert run under one per-reporter transaction.
func (s *Service) CreateMissing(ctx context.Context, req *models.CreateMissingPersonRequest) (*models.MissingPerson, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	report := req.ToModel(id.NewMissingPersonID(), requestcontext.Now(ctx))
	err := s.tx.RunInTx(ctx, report.Reporter.Email, func(ctx context.Context, st IntakeStore) error {
		reason, err := s.guard.Evaluate(ctx, st, report)
		if err != nil {
			if reason != "" {
				if s.metrics != nil {
					s.metrics.IncGuardRejection(string(reason))
				}
				s.logger.InfoContext(ctx, "missing person submission rejected",
					"reason", reason,
					"reporter", privacy.MaskEmail(report.Reporter.Email),
				)
			}
			return err
		}
		return st.CreateMissing(ctx, report)
	})
	if err != nil {
		return nil, translate(err, "failed to create missing person report")
	}

	if s.metrics != nil {
		s.metrics.IncCreated(kindMissing)
	}
	s.logger.InfoContext(ctx, "missing person reported",
		"missing_person_id", report.ID,
		"parish", report.LastKnownLocation.Parish,
	)
	return report, nil
}

// CreateFound validates the submission and any missing-person reference,
// persists the report and enqueues its matching tasks. Enqueue failures are
// logged and leave the report in place; matchctl re-drives them.
func (s *Service) CreateFound(ctx context.Context, req *models.CreateFoundPersonRequest) (*models.FoundPerson, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ref, err := req.ReferencedID()
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	report := req.ToModel(id.NewFoundPersonID(), ref, now)
	if ref != nil {
		if err := s.checkReference(ctx, report, *ref); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateFound(ctx, report); err != nil {
		return nil, translate(err, "failed to create found person report")
	}
	if s.metrics != nil {
		s.metrics.IncCreated(kindFound)
	}
	s.logger.InfoContext(ctx, "found person reported",
		"found_person_id", report.ID,
		"parish", report.FoundLocation.Parish,
		"referenced", ref != nil,
	)

	if ref != nil {
		s.enqueue(ctx, tasks.NewReferencedMatch(*ref, report.ID, now))
	}
	s.enqueue(ctx, tasks.NewBroadMatch(report.ID, now))
	return report, nil
}

// checkReference accepts the reference only if it names an open report the
// found person plausibly is.
func (s *Service) checkReference(ctx context.Context, found *models.FoundPerson, ref id.MissingPersonID) error {
	missing, err := s.store.GetMissing(ctx, ref)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.rejectReference(ctx, found, ref, "not_found")
			return dErrors.New(dErrors.CodeInvalidReference, "referenced missing person report does not exist")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load referenced missing person report")
	}
	if missing.Status != models.StatusMissing {
		s.rejectReference(ctx, found, ref, "closed")
		return dErrors.New(dErrors.CodeInvalidReference, "referenced missing person report is no longer open")
	}
	if !scoring.ValidateReference(found, missing) {
		s.rejectReference(ctx, found, ref, "implausible")
		return dErrors.New(dErrors.CodeInvalidReference, "found person does not match the referenced missing person report")
	}
	return nil
}

func (s *Service) rejectReference(ctx context.Context, found *models.FoundPerson, ref id.MissingPersonID, why string) {
	if s.metrics != nil {
		s.metrics.IncReferenceRejected()
	}
	s.logger.InfoContext(ctx, "found person reference rejected",
		"referenced_missing_person_id", ref,
		"reason", why,
		"reporter", privacy.MaskEmail(found.Reporter.Email),
	)
}

func (s *Service) enqueue(ctx context.Context, t tasks.Task) {
	outcome := "ok"
	if err := s.queue.Enqueue(ctx, t); err != nil {
		outcome = "error"
		s.logger.ErrorContext(ctx, "failed to enqueue matching task",
			"task_id", t.ID,
			"kind", t.Kind,
			"found_person_id", t.FoundPersonID,
			"error", err,
		)
	}
	if s.taskMetrics != nil {
		s.taskMetrics.IncEnqueued(t.Kind.String(), outcome)
	}
}

func (s *Service) GetMissing(ctx context.Context, reportID id.MissingPersonID) (*models.MissingPerson, error) {
	report, err := s.store.GetMissing(ctx, reportID)
	if err != nil {
		return nil, translate(err, "failed to load missing person report")
	}
	return report, nil
}

func (s *Service) GetFound(ctx context.Context, reportID id.FoundPersonID) (*models.FoundPerson, error) {
	report, err := s.store.GetFound(ctx, reportID)
	if err != nil {
		return nil, translate(err, "failed to load found person report")
	}
	return report, nil
}

// ListMissing returns reports newest first.
func (s *Service) ListMissing(ctx context.Context, filter models.MissingFilter) ([]*models.MissingPerson, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid status filter")
	}
	reports, err := s.store.ListMissing(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list missing person reports")
	}
	return reports, nil
}

// ListFound returns reports newest first.
func (s *Service) ListFound(ctx context.Context, filter models.FoundFilter) ([]*models.FoundPerson, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid status filter")
	}
	reports, err := s.store.ListFound(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list found person reports")
	}
	return reports, nil
}

// UpdateMissingStatus is the entry point for the external verification
// workflow. A resolved report drops out of future broad matches.
func (s *Service) UpdateMissingStatus(ctx context.Context, reportID id.MissingPersonID, req *models.UpdateStatusRequest) (*models.MissingPerson, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	status := models.MissingStatus(req.Status)
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid missing person status")
	}
	if err := s.store.UpdateMissingStatus(ctx, reportID, status, requestcontext.Now(ctx)); err != nil {
		return nil, translate(err, "failed to update missing person status")
	}
	s.logger.InfoContext(ctx, "missing person status updated", "missing_person_id", reportID, "status", status)
	return s.GetMissing(ctx, reportID)
}

// UpdateFoundStatus is the entry point for the external verification
// workflow.
func (s *Service) UpdateFoundStatus(ctx context.Context, reportID id.FoundPersonID, req *models.UpdateStatusRequest) (*models.FoundPerson, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	status := models.FoundStatus(req.Status)
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid found person status")
	}
	if err := s.store.UpdateFoundStatus(ctx, reportID, status, requestcontext.Now(ctx)); err != nil {
		return nil, translate(err, "failed to update found person status")
	}
	s.logger.InfoContext(ctx, "found person status updated", "found_person_id", reportID, "status", status)
	return s.GetFound(ctx, reportID)
}

// translate maps store sentinels to domain errors once. Domain errors from
// the guard or the transaction pass through untouched.
func translate(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "report not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "report already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
