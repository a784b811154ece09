package store

import (
	"context"
	"sort"
	"sync"

	"guidinghand/internal/matches/models"
	"guidinghand/internal/sentinel"
	id "guidinghand/pkg/domain"
)

// Error Contract:
// - Return sentinel.ErrNotFound from lookups when the match does not exist
// - Create never returns ErrConflict; an existing pair is merged instead
// - MarkNotified on an unknown id is a no-op

type pairKey struct {
	missing id.MissingPersonID
	found   id.FoundPersonID
}

type entry struct {
	seq   uint64
	match *models.Match
}

// InMemoryStore keeps matches in a map with a unique pair index.
type InMemoryStore struct {
	mu     sync.RWMutex
	seq    uint64
	byID   map[id.MatchID]*entry
	byPair map[pairKey]*entry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[id.MatchID]*entry),
		byPair: make(map[pairKey]*entry),
	}
}

// Create inserts m unless its pair already has a match, in which case the
// stored confidence becomes the larger of the two. The returned match is the
// stored one; created reports whether it was inserted.
func (s *InMemoryStore) Create(_ context.Context, m *models.Match) (*models.Match, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{missing: m.MissingPersonID, found: m.FoundPersonID}
	if existing, ok := s.byPair[key]; ok {
		existing.match.ConfidenceScore = max(existing.match.ConfidenceScore, m.ConfidenceScore)
		return existing.match.Clone(), false, nil
	}

	s.seq++
	e := &entry{seq: s.seq, match: m.Clone()}
	s.byID[m.ID] = e
	s.byPair[key] = e
	return e.match.Clone(), true, nil
}

func (s *InMemoryStore) FindByPair(_ context.Context, missingID id.MissingPersonID, foundID id.FoundPersonID) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byPair[pairKey{missing: missingID, found: foundID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e.match.Clone(), nil
}

func (s *InMemoryStore) FindByID(_ context.Context, matchID id.MatchID) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[matchID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e.match.Clone(), nil
}

// MarkNotified sets Notified and reports whether this call changed it.
func (s *InMemoryStore) MarkNotified(_ context.Context, matchID id.MatchID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[matchID]
	if !ok || e.match.Notified {
		return false, nil
	}
	e.match.Notified = true
	return true, nil
}

func (s *InMemoryStore) UpdateVerificationStatus(_ context.Context, matchID id.MatchID, status models.VerificationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[matchID]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.match.VerificationStatus = status
	return nil
}

// List returns matches newest first.
func (s *InMemoryStore) List(_ context.Context, filter models.Filter) ([]*models.Match, error) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.byID))
	for _, e := range s.byID {
		switch {
		case filter.MissingPersonID != nil:
			if e.match.MissingPersonID != *filter.MissingPersonID {
				continue
			}
		case filter.VerificationStatus != nil:
			if e.match.VerificationStatus != *filter.VerificationStatus {
				continue
			}
		}
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].match, entries[j].match
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return entries[i].seq > entries[j].seq
	})
	out := make([]*models.Match, len(entries))
	for i, e := range entries {
		out[i] = e.match.Clone()
	}
	return out, nil
}
