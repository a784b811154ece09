package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"guidinghand/internal/reports/models"
	"guidinghand/internal/sentinel"
	id "guidinghand/pkg/domain"
)

// Error Contract:
// - Return sentinel.ErrNotFound when the requested report does not exist
// - Return sentinel.ErrConflict when inserting an ID that already exists
// - Returned reports are copies; callers may mutate them freely

type missingEntry struct {
	seq    uint64
	report *models.MissingPerson
}

type foundEntry struct {
	seq    uint64
	report *models.FoundPerson
}

// InMemoryStore keeps both report kinds in maps guarded by one RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	seq     uint64
	missing map[id.MissingPersonID]*missingEntry
	found   map[id.FoundPersonID]*foundEntry
}

// NewInMemory constructs an empty report store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		missing: make(map[id.MissingPersonID]*missingEntry),
		found:   make(map[id.FoundPersonID]*foundEntry),
	}
}

func (s *InMemoryStore) CreateMissing(_ context.Context, report *models.MissingPerson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.missing[report.ID]; ok {
		return sentinel.ErrConflict
	}
	s.seq++
	s.missing[report.ID] = &missingEntry{seq: s.seq, report: report.Clone()}
	return nil
}

func (s *InMemoryStore) GetMissing(_ context.Context, reportID id.MissingPersonID) (*models.MissingPerson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.missing[reportID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e.report.Clone(), nil
}

// ListMissing returns matching reports newest first.
func (s *InMemoryStore) ListMissing(_ context.Context, filter models.MissingFilter) ([]*models.MissingPerson, error) {
	return s.collectMissing(func(m *models.MissingPerson) bool {
		if filter.Parish != nil && m.LastKnownLocation.Parish != *filter.Parish {
			return false
		}
		if filter.Status != nil && m.Status != *filter.Status {
			return false
		}
		return true
	}), nil
}

// ListMissingByReporterSince returns the reporter's reports created strictly
// after since, newest first.
func (s *InMemoryStore) ListMissingByReporterSince(_ context.Context, email string, since time.Time) ([]*models.MissingPerson, error) {
	return s.collectMissing(func(m *models.MissingPerson) bool {
		return m.Reporter.Email == email && m.CreatedAt.After(since)
	}), nil
}

func (s *InMemoryStore) collectMissing(keep func(*models.MissingPerson) bool) []*models.MissingPerson {
	s.mu.RLock()
	entries := make([]*missingEntry, 0, len(s.missing))
	for _, e := range s.missing {
		if keep(e.report) {
			entries = append(entries, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.report.CreatedAt.Equal(b.report.CreatedAt) {
			return a.report.CreatedAt.After(b.report.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]*models.MissingPerson, len(entries))
	for i, e := range entries {
		out[i] = e.report.Clone()
	}
	return out
}

func (s *InMemoryStore) UpdateMissingStatus(_ context.Context, reportID id.MissingPersonID, status models.MissingStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.missing[reportID]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.report.Status = status
	e.report.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) CreateFound(_ context.Context, report *models.FoundPerson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.found[report.ID]; ok {
		return sentinel.ErrConflict
	}
	s.seq++
	s.found[report.ID] = &foundEntry{seq: s.seq, report: report.Clone()}
	return nil
}

func (s *InMemoryStore) GetFound(_ context.Context, reportID id.FoundPersonID) (*models.FoundPerson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.found[reportID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e.report.Clone(), nil
}

// ListFound returns matching reports newest first.
func (s *InMemoryStore) ListFound(_ context.Context, filter models.FoundFilter) ([]*models.FoundPerson, error) {
	s.mu.RLock()
	entries := make([]*foundEntry, 0, len(s.found))
	for _, e := range s.found {
		if filter.Status != nil && e.report.Status != *filter.Status {
			continue
		}
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.report.CreatedAt.Equal(b.report.CreatedAt) {
			return a.report.CreatedAt.After(b.report.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]*models.FoundPerson, len(entries))
	for i, e := range entries {
		out[i] = e.report.Clone()
	}
	return out, nil
}

func (s *InMemoryStore) UpdateFoundStatus(_ context.Context, reportID id.FoundPersonID, status models.FoundStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.found[reportID]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.report.Status = status
	e.report.UpdatedAt = now
	return nil
}
