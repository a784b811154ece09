// Package guard rejects missing-person submissions that repeat a recent
// report or exceed the per-reporter rate, before anything is persisted.
package guard

import (
	"context"
	"fmt"
	"time"

	"guidinghand/internal/reports/models"
	dErrors "guidinghand/pkg/domain-errors"
	"guidinghand/pkg/requestcontext"
)

// History is the slice of the report store the guard reads. Returned reports
// must all belong to email and have CreatedAt strictly after since.
type History interface {
	ListMissingByReporterSince(ctx context.Context, email string, since time.Time) ([]*models.MissingPerson, error)
}

// Config sets the guard windows.
type Config struct {
	DuplicateWindow time.Duration
	RateWindow      time.Duration
	RateLimit       int
}

// Reason labels a rejection for metrics.
type Reason string

const (
	ReasonDuplicate Reason = "duplicate"
	ReasonRateLimit Reason = "rate_limit"
)

// Guard evaluates intake candidates against the reporter's history.
type Guard struct {
	cfg Config
}

func New(cfg Config) *Guard {
	return &Guard{cfg: cfg}
}

// Check returns CodeDuplicateSubmission if the reporter filed the same name
// and date of birth inside the duplicate window, or CodeRateLimited if they
// already filed RateLimit reports inside the rate window. The duplicate check
// wins when both apply. Callers run Check and the insert in one transaction.
func (g *Guard) Check(ctx context.Context, history History, candidate *models.MissingPerson) error {
	_, err := g.Evaluate(ctx, history, candidate)
	return err
}

// Evaluate is Check that also reports which rule fired.
func (g *Guard) Evaluate(ctx context.Context, history History, candidate *models.MissingPerson) (Reason, error) {
	now := requestcontext.Now(ctx)
	window := max(g.cfg.DuplicateWindow, g.cfg.RateWindow)

	recent, err := history.ListMissingByReporterSince(ctx, candidate.Reporter.Email, now.Add(-window))
	if err != nil {
		return "", fmt.Errorf("load reporter history: %w", err)
	}

	dupSince := now.Add(-g.cfg.DuplicateWindow)
	for _, r := range recent {
		if r.CreatedAt.After(dupSince) && r.Name == candidate.Name && r.DateOfBirth == candidate.DateOfBirth {
			return ReasonDuplicate, dErrors.New(dErrors.CodeDuplicateSubmission, "a similar report was already submitted recently")
		}
	}

	rateSince := now.Add(-g.cfg.RateWindow)
	count := 0
	for _, r := range recent {
		if r.CreatedAt.After(rateSince) {
			count++
		}
	}
	if count >= g.cfg.RateLimit {
		return ReasonRateLimit, dErrors.New(dErrors.CodeRateLimited, "rate limit exceeded, please try again later")
	}
	return "", nil
}
