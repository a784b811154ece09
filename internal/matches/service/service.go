// Package service exposes match records to the HTTP surface and to the
// external verification workflow.
package service

import (
	"context"
	"errors"
	"log/slog"

	"guidinghand/internal/matches/models"
	"guidinghand/internal/sentinel"
	id "guidinghand/pkg/domain"
	dErrors "guidinghand/pkg/domain-errors"
)

// Store is the slice of the match store the read surface needs.
type Store interface {
	FindByID(ctx context.Context, matchID id.MatchID) (*models.Match, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Match, error)
	UpdateVerificationStatus(ctx context.Context, matchID id.MatchID, status models.VerificationStatus) error
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

func (s *Service) Get(ctx context.Context, matchID id.MatchID) (*models.Match, error) {
	m, err := s.store.FindByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "match not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load match")
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, filter models.Filter) ([]*models.Match, error) {
	if filter.VerificationStatus != nil && !filter.VerificationStatus.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid verification status filter")
	}
	matches, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list matches")
	}
	return matches, nil
}

// UpdateVerification records a reviewer decision. It does not touch the
// confidence or the notified flag.
func (s *Service) UpdateVerification(ctx context.Context, matchID id.MatchID, status models.VerificationStatus) (*models.Match, error) {
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid verification status")
	}
	if err := s.store.UpdateVerificationStatus(ctx, matchID, status); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "match not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update match")
	}
	s.logger.InfoContext(ctx, "match verification updated", "match_id", matchID, "status", status)
	return s.Get(ctx, matchID)
}
