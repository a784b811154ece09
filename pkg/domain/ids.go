// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "guidinghand/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a FoundPersonID where a
// MissingPersonID is expected.
type (
	MissingPersonID uuid.UUID
	FoundPersonID   uuid.UUID
	TrackerID       uuid.UUID
	MatchID         uuid.UUID
	DeliveryID      uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, queue payloads, CLI args).

func ParseMissingPersonID(s string) (MissingPersonID, error) {
	id, err := parseUUID(s, "missing person ID")
	return MissingPersonID(id), err
}

func ParseFoundPersonID(s string) (FoundPersonID, error) {
	id, err := parseUUID(s, "found person ID")
	return FoundPersonID(id), err
}

func ParseTrackerID(s string) (TrackerID, error) {
	id, err := parseUUID(s, "tracker ID")
	return TrackerID(id), err
}

func ParseMatchID(s string) (MatchID, error) {
	id, err := parseUUID(s, "match ID")
	return MatchID(id), err
}

// New constructors.

func NewMissingPersonID() MissingPersonID { return MissingPersonID(uuid.New()) }
func NewFoundPersonID() FoundPersonID     { return FoundPersonID(uuid.New()) }
func NewTrackerID() TrackerID             { return TrackerID(uuid.New()) }
func NewMatchID() MatchID                 { return MatchID(uuid.New()) }
func NewDeliveryID() DeliveryID           { return DeliveryID(uuid.New()) }

// String methods - for logging and debugging.

func (id MissingPersonID) String() string { return uuid.UUID(id).String() }
func (id FoundPersonID) String() string   { return uuid.UUID(id).String() }
func (id TrackerID) String() string       { return uuid.UUID(id).String() }
func (id MatchID) String() string         { return uuid.UUID(id).String() }
func (id DeliveryID) String() string      { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id MissingPersonID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id FoundPersonID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id TrackerID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id MatchID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id DeliveryID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return id, nil
}
