package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"guidinghand/internal/notifications/models"
	"guidinghand/internal/sentinel"
	id "guidinghand/pkg/domain"
)

// Error Contract:
// - Schedule never returns ErrConflict; an existing pending delivery for the
//   same match and email is kept and reported with scheduled=false
// - Mark* return sentinel.ErrNotFound for an unknown delivery
// - Mark* on a delivery that is no longer pending return sentinel.ErrInvalidState

type pairKey struct {
	match id.MatchID
	email string
}

// InMemoryStore keeps deliveries in a map with a unique (match, email) index.
type InMemoryStore struct {
	mu     sync.Mutex
	byID   map[id.DeliveryID]*models.Delivery
	byPair map[pairKey]*models.Delivery
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[id.DeliveryID]*models.Delivery),
		byPair: make(map[pairKey]*models.Delivery),
	}
}

// Schedule inserts d, or re-arms a delivered or dead entry for the same pair
// with d's attempts, state and timing. A pending entry is left alone.
func (s *InMemoryStore) Schedule(_ context.Context, d *models.Delivery) (*models.Delivery, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{match: d.MatchID, email: d.TrackerEmail}
	if existing, ok := s.byPair[key]; ok {
		if existing.State == models.StatePending {
			return existing.Clone(), false, nil
		}
		existing.ConfidenceScore = d.ConfidenceScore
		existing.Attempts = d.Attempts
		existing.NextAttemptAt = d.NextAttemptAt
		existing.LastError = d.LastError
		existing.State = d.State
		existing.UpdatedAt = d.UpdatedAt
		return existing.Clone(), true, nil
	}

	stored := d.Clone()
	s.byID[stored.ID] = stored
	s.byPair[key] = stored
	return stored.Clone(), true, nil
}

// ClaimDue returns up to limit pending deliveries due at now, oldest due
// first, and pushes their next attempt out by lease so a concurrent poll
// does not pick them up again. Returned deliveries carry the leased time.
func (s *InMemoryStore) ClaimDue(_ context.Context, now time.Time, lease time.Duration, limit int) ([]*models.Delivery, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*models.Delivery
	for _, d := range s.byID {
		if d.State == models.StatePending && !d.NextAttemptAt.After(now) {
			due = append(due, d)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextAttemptAt.Before(due[j].NextAttemptAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	out := make([]*models.Delivery, len(due))
	for i, d := range due {
		d.NextAttemptAt = now.Add(lease)
		out[i] = d.Clone()
	}
	return out, nil
}

func (s *InMemoryStore) MarkDelivered(_ context.Context, deliveryID id.DeliveryID, now time.Time) error {
	return s.update(deliveryID, func(d *models.Delivery) {
		d.State = models.StateDelivered
		d.LastError = ""
		d.UpdatedAt = now
	})
}

func (s *InMemoryStore) MarkFailed(_ context.Context, deliveryID id.DeliveryID, attempts int, next time.Time, lastErr string, now time.Time) error {
	return s.update(deliveryID, func(d *models.Delivery) {
		d.Attempts = attempts
		d.NextAttemptAt = next
		d.LastError = lastErr
		d.UpdatedAt = now
	})
}

func (s *InMemoryStore) MarkDead(_ context.Context, deliveryID id.DeliveryID, attempts int, lastErr string, now time.Time) error {
	return s.update(deliveryID, func(d *models.Delivery) {
		d.State = models.StateDead
		d.Attempts = attempts
		d.LastError = lastErr
		d.UpdatedAt = now
	})
}

func (s *InMemoryStore) update(deliveryID id.DeliveryID, fn func(*models.Delivery)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[deliveryID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if d.State != models.StatePending {
		return sentinel.ErrInvalidState
	}
	fn(d)
	return nil
}

func (s *InMemoryStore) CountPending(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, d := range s.byID {
		if d.State == models.StatePending {
			n++
		}
	}
	return n, nil
}

// ListByMatch returns the match's deliveries ordered by tracker email.
func (s *InMemoryStore) ListByMatch(_ context.Context, matchID id.MatchID) ([]*models.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Delivery
	for _, d := range s.byID {
		if d.MatchID == matchID {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackerEmail < out[j].TrackerEmail })
	return out, nil
}
