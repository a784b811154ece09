// Package service implements the tracker registry: idempotent
// subscriptions of email addresses to missing-person reports.
package service

import (
	"context"
	"errors"
	"log/slog"

	reportmodels "guidinghand/internal/reports/models"
	"guidinghand/internal/sentinel"
	"guidinghand/internal/trackers/models"
	id "guidinghand/pkg/domain"
	dErrors "guidinghand/pkg/domain-errors"
	"guidinghand/pkg/platform/privacy"
	"guidinghand/pkg/requestcontext"
)

// Store persists trackers.
type Store interface {
	CreateOrGet(ctx context.Context, t *models.Tracker) (*models.Tracker, bool, error)
	ListByMissingPerson(ctx context.Context, missingID id.MissingPersonID) ([]*models.Tracker, error)
	SetVerified(ctx context.Context, trackerID id.TrackerID) error
}

// Reports confirms the tracked report exists.
type Reports interface {
	GetMissing(ctx context.Context, reportID id.MissingPersonID) (*reportmodels.MissingPerson, error)
}

type Service struct {
	store   Store
	reports Reports
	logger  *slog.Logger
}

func New(store Store, reports Reports, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, reports: reports, logger: logger}
}

// Subscribe returns the tracker for (email, missingID), creating an
// unverified one if none exists. An existing tracker is never modified.
func (s *Service) Subscribe(ctx context.Context, req *models.SubscribeRequest, missingID id.MissingPersonID) (id.TrackerID, error) {
	if req == nil {
		return id.TrackerID{}, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return id.TrackerID{}, err
	}

	if _, err := s.reports.GetMissing(ctx, missingID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.TrackerID{}, dErrors.New(dErrors.CodeNotFound, "missing person report not found")
		}
		return id.TrackerID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load missing person report")
	}

	t, created, err := s.store.CreateOrGet(ctx, models.New(req.Email, missingID, requestcontext.Now(ctx)))
	if err != nil {
		return id.TrackerID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to subscribe")
	}
	if created {
		s.logger.InfoContext(ctx, "tracker subscribed",
			"tracker_id", t.ID,
			"missing_person_id", missingID,
			"email", privacy.MaskEmail(t.Email),
		)
	}
	return t.ID, nil
}

// ListByMissingPerson returns every tracker of the report, verified or not.
func (s *Service) ListByMissingPerson(ctx context.Context, missingID id.MissingPersonID) ([]*models.Tracker, error) {
	trackers, err := s.store.ListByMissingPerson(ctx, missingID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list trackers")
	}
	return trackers, nil
}

// SetVerified is the hook the external email verification process calls.
func (s *Service) SetVerified(ctx context.Context, trackerID id.TrackerID) error {
	if err := s.store.SetVerified(ctx, trackerID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "tracker not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify tracker")
	}
	return nil
}
