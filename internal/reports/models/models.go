package models

import (
	"time"

	id "guidinghand/pkg/domain"
)

// MissingStatus is the lifecycle of a missing-person report. Intake creates
// reports as StatusMissing; only the external verification workflow moves
// them on.
type MissingStatus string

const (
	StatusMissing                    MissingStatus = "missing"
	StatusMissingPendingVerification MissingStatus = "pending_verification"
	StatusResolved                   MissingStatus = "resolved"
)

func (s MissingStatus) IsValid() bool {
	switch s {
	case StatusMissing, StatusMissingPendingVerification, StatusResolved:
		return true
	}
	return false
}

func (s MissingStatus) String() string { return string(s) }

// FoundStatus is the lifecycle of a found-person report.
type FoundStatus string

const (
	StatusFoundPendingVerification FoundStatus = "pending_verification"
	StatusVerified                 FoundStatus = "verified"
	StatusRejected                 FoundStatus = "rejected"
)

func (s FoundStatus) IsValid() bool {
	switch s {
	case StatusFoundPendingVerification, StatusVerified, StatusRejected:
		return true
	}
	return false
}

func (s FoundStatus) String() string { return string(s) }

// Identity holds the name and the optional identifiers. An empty string
// means the reporter did not supply the value.
type Identity struct {
	Name          string
	DateOfBirth   string // YYYY-MM-DD
	TRN           string
	NIN           string
	Passport      string
	DriverLicense string
}

// Description is the free-text physical description. Height is compared
// verbatim by the scorer; skin tone and hair colour case-insensitively.
type Description struct {
	Height              string
	Weight              string
	SkinTone            string
	HairColor           string
	DistinctiveFeatures string
}

type Location struct {
	Parish id.Parish
	City   string
}

type Contact struct {
	Email string // normalized to lower case at intake
	Phone string
}

// MissingPerson is a report of someone who cannot be found. Reports are
// never deleted.
type MissingPerson struct {
	ID id.MissingPersonID
	Identity
	Description
	LastKnownLocation Location
	PhotoIDs          []string
	Reporter          Contact
	Status            MissingStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FoundPerson is a report of someone located by a reporter.
// ReferencedMissingPersonID is the reporter's explicit claim of which
// missing report this corresponds to.
type FoundPerson struct {
	ID id.FoundPersonID
	Identity
	Description
	FoundLocation             Location
	PhotoIDs                  []string
	Reporter                  Contact
	ReferencedMissingPersonID *id.MissingPersonID
	Status                    FoundStatus
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// MissingFilter narrows ListMissing. A nil field is not filtered on.
type MissingFilter struct {
	Parish *id.Parish
	Status *MissingStatus
}

// FoundFilter narrows ListFound.
type FoundFilter struct {
	Status *FoundStatus
}

// Clone returns a deep copy so stores never hand out shared slices.
func (m *MissingPerson) Clone() *MissingPerson {
	c := *m
	c.PhotoIDs = append([]string(nil), m.PhotoIDs...)
	return &c
}

// Clone returns a deep copy so stores never hand out shared slices.
func (f *FoundPerson) Clone() *FoundPerson {
	c := *f
	c.PhotoIDs = append([]string(nil), f.PhotoIDs...)
	if f.ReferencedMissingPersonID != nil {
		ref := *f.ReferencedMissingPersonID
		c.ReferencedMissingPersonID = &ref
	}
	return &c
}
