package models

import (
	"time"

	id "guidinghand/pkg/domain"
)

// VerificationStatus is the review state of a match. Matching creates
// matches as pending; the external verification workflow decides.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationPending, VerificationVerified, VerificationRejected:
		return true
	}
	return false
}

func (s VerificationStatus) String() string { return string(s) }

// Match links one missing report to one found report. There is at most one
// match per pair; Notified only ever goes from false to true.
type Match struct {
	ID                 id.MatchID
	MissingPersonID    id.MissingPersonID
	FoundPersonID      id.FoundPersonID
	ConfidenceScore    int
	VerificationStatus VerificationStatus
	Notified           bool
	CreatedAt          time.Time
}

// New builds a pending, unnotified match.
func New(missingID id.MissingPersonID, foundID id.FoundPersonID, score int, now time.Time) *Match {
	return &Match{
		ID:                 id.NewMatchID(),
		MissingPersonID:    missingID,
		FoundPersonID:      foundID,
		ConfidenceScore:    score,
		VerificationStatus: VerificationPending,
		CreatedAt:          now,
	}
}

func (m *Match) Clone() *Match {
	c := *m
	return &c
}

// Filter selects matches for listing. When both are set MissingPersonID
// takes precedence, mirroring the two list indexes.
type Filter struct {
	MissingPersonID    *id.MissingPersonID
	VerificationStatus *VerificationStatus
}
