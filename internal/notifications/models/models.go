package models

import (
	"errors"
	"time"

	id "guidinghand/pkg/domain"
)

// ErrUndeliverable marks a redelivery that can never succeed, such as one
// whose report was deleted. The retry worker dead-letters it at once.
var ErrUndeliverable = errors.New("notification undeliverable")

// DeliveryState is where a notification sits in the retry queue.
type DeliveryState string

const (
	StatePending   DeliveryState = "pending"
	StateDelivered DeliveryState = "delivered"
	StateDead      DeliveryState = "dead"
)

func (s DeliveryState) IsValid() bool {
	switch s {
	case StatePending, StateDelivered, StateDead:
		return true
	}
	return false
}

// Delivery is one notification that failed at least once, keyed by match
// and tracker email. Attempts counts sends already made, including the
// original one from the dispatcher.
type Delivery struct {
	ID              id.DeliveryID
	MatchID         id.MatchID
	TrackerEmail    string
	MissingPersonID id.MissingPersonID
	FoundPersonID   id.FoundPersonID
	ConfidenceScore int
	Attempts        int
	NextAttemptAt   time.Time
	LastError       string
	State           DeliveryState
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewDelivery describes a send that has not been attempted yet.
func NewDelivery(matchID id.MatchID, email string, missingID id.MissingPersonID, foundID id.FoundPersonID, score int, now time.Time) *Delivery {
	return &Delivery{
		ID:              id.NewDeliveryID(),
		MatchID:         matchID,
		TrackerEmail:    email,
		MissingPersonID: missingID,
		FoundPersonID:   foundID,
		ConfidenceScore: score,
		State:           StatePending,
		NextAttemptAt:   now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (d *Delivery) Clone() *Delivery {
	c := *d
	return &c
}
