package models

import (
	"time"

	id "guidinghand/pkg/domain"
	s "guidinghand/pkg/string"
	"guidinghand/pkg/validation"
)

// Tracker subscribes an email address to one missing-person report. There
// is at most one tracker per (email, report). Verified is only ever set by
// the external email verification process.
type Tracker struct {
	ID              id.TrackerID
	Email           string
	MissingPersonID id.MissingPersonID
	Verified        bool
	CreatedAt       time.Time
}

func New(email string, missingID id.MissingPersonID, now time.Time) *Tracker {
	return &Tracker{
		ID:              id.NewTrackerID(),
		Email:           email,
		MissingPersonID: missingID,
		CreatedAt:       now,
	}
}

func (t *Tracker) Clone() *Tracker {
	c := *t
	return &c
}

// SubscribeRequest is the tracker subscription payload.
type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// Normalize trims and lower-cases the email so subscriptions are
// idempotent regardless of casing.
func (r *SubscribeRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = s.NormalizeEmail(r.Email)
}

func (r *SubscribeRequest) Validate() error {
	return validation.Validate(r)
}

// SubscribeResponse returns the tracker id, new or existing.
type SubscribeResponse struct {
	TrackerID string `json:"trackerId"`
}
