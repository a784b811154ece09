package store

import (
	"context"
	"sort"
	"sync"

	"guidinghand/internal/sentinel"
	"guidinghand/internal/trackers/models"
	id "guidinghand/pkg/domain"
)

// Error Contract:
// - CreateOrGet returns the existing tracker for the pair instead of failing
// - SetVerified returns sentinel.ErrNotFound for an unknown tracker

type pairKey struct {
	email   string
	missing id.MissingPersonID
}

type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[id.TrackerID]*models.Tracker
	byPair map[pairKey]*models.Tracker
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[id.TrackerID]*models.Tracker),
		byPair: make(map[pairKey]*models.Tracker),
	}
}

// CreateOrGet inserts t unless a tracker for the same email and report
// exists, in which case that one is returned unchanged.
func (s *InMemoryStore) CreateOrGet(_ context.Context, t *models.Tracker) (*models.Tracker, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{email: t.Email, missing: t.MissingPersonID}
	if existing, ok := s.byPair[key]; ok {
		return existing.Clone(), false, nil
	}
	stored := t.Clone()
	s.byID[t.ID] = stored
	s.byPair[key] = stored
	return stored.Clone(), true, nil
}

// ListByMissingPerson returns every tracker of the report, oldest first.
func (s *InMemoryStore) ListByMissingPerson(_ context.Context, missingID id.MissingPersonID) ([]*models.Tracker, error) {
	s.mu.RLock()
	var out []*models.Tracker
	for _, t := range s.byID {
		if t.MissingPersonID == missingID {
			out = append(out, t.Clone())
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (s *InMemoryStore) SetVerified(_ context.Context, trackerID id.TrackerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[trackerID]
	if !ok {
		return sentinel.ErrNotFound
	}
	t.Verified = true
	return nil
}
