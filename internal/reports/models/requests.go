package models

import (
	"time"

	id "guidinghand/pkg/domain"
	s "guidinghand/pkg/string"
	"guidinghand/pkg/validation"
)

// PersonFields is the identity, description and contact block shared by both
// intake requests.
type PersonFields struct {
	Name                string   `json:"name" validate:"notblank,max=200"`
	DateOfBirth         string   `json:"dateOfBirth,omitempty" validate:"omitempty,isodate"`
	TRN                 string   `json:"trn,omitempty" validate:"max=64"`
	NIN                 string   `json:"nin,omitempty" validate:"max=64"`
	Passport            string   `json:"passport,omitempty" validate:"max=64"`
	DriverLicense       string   `json:"driverLicense,omitempty" validate:"max=64"`
	Height              string   `json:"height,omitempty" validate:"max=32"`
	Weight              string   `json:"weight,omitempty" validate:"max=32"`
	SkinTone            string   `json:"skinTone,omitempty" validate:"max=64"`
	HairColor           string   `json:"hairColor,omitempty" validate:"max=64"`
	DistinctiveFeatures string   `json:"distinctiveFeatures,omitempty" validate:"max=2000"`
	PhotoIDs            []string `json:"photoIds,omitempty" validate:"max=10,dive,notblank,max=256"`
	ReporterEmail       string   `json:"reporterEmail" validate:"required,email,max=254"`
	ReporterPhone       string   `json:"reporterPhone,omitempty" validate:"max=32"`
}

func (p *PersonFields) normalize() {
	s.TrimStrings(&p.Name, &p.DateOfBirth, &p.TRN, &p.NIN, &p.Passport, &p.DriverLicense,
		&p.Height, &p.Weight, &p.SkinTone, &p.HairColor, &p.DistinctiveFeatures, &p.ReporterPhone)
	p.Name = s.CollapseSpaces(p.Name)
	p.ReporterEmail = s.NormalizeEmail(p.ReporterEmail)
	p.PhotoIDs = s.TrimSlice(p.PhotoIDs)
}

func (p *PersonFields) identity() Identity {
	return Identity{
		Name:          p.Name,
		DateOfBirth:   p.DateOfBirth,
		TRN:           p.TRN,
		NIN:           p.NIN,
		Passport:      p.Passport,
		DriverLicense: p.DriverLicense,
	}
}

func (p *PersonFields) description() Description {
	return Description{
		Height:              p.Height,
		Weight:              p.Weight,
		SkinTone:            p.SkinTone,
		HairColor:           p.HairColor,
		DistinctiveFeatures: p.DistinctiveFeatures,
	}
}

func (p *PersonFields) contact() Contact {
	return Contact{Email: p.ReporterEmail, Phone: p.ReporterPhone}
}

// CreateMissingPersonRequest is the missing-person intake payload.
type CreateMissingPersonRequest struct {
	PersonFields
	LastKnownLocationParish string `json:"lastKnownLocationParish" validate:"required,parish"`
	LastKnownLocationCity   string `json:"lastKnownLocationCity,omitempty" validate:"max=128"`
}

// Normalize trims inputs, lower-cases the reporter email and canonicalizes
// the parish spelling.
func (r *CreateMissingPersonRequest) Normalize() {
	if r == nil {
		return
	}
	r.PersonFields.normalize()
	s.TrimStrings(&r.LastKnownLocationParish, &r.LastKnownLocationCity)
	if p, err := id.ParseParish(r.LastKnownLocationParish); err == nil {
		r.LastKnownLocationParish = p.String()
	}
}

// Validate checks required fields and formats.
func (r *CreateMissingPersonRequest) Validate() error {
	return validation.Validate(r)
}

// ToModel builds a new report with status missing.
func (r *CreateMissingPersonRequest) ToModel(reportID id.MissingPersonID, now time.Time) *MissingPerson {
	return &MissingPerson{
		ID:          reportID,
		Identity:    r.identity(),
		Description: r.description(),
		LastKnownLocation: Location{
			Parish: id.Parish(r.LastKnownLocationParish),
			City:   r.LastKnownLocationCity,
		},
		PhotoIDs:  append([]string{}, r.PhotoIDs...),
		Reporter:  r.contact(),
		Status:    StatusMissing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateFoundPersonRequest is the found-person intake payload.
type CreateFoundPersonRequest struct {
	PersonFields
	FoundLocationParish       string `json:"foundLocationParish" validate:"required,parish"`
	FoundLocationCity         string `json:"foundLocationCity,omitempty" validate:"max=128"`
	ReferencedMissingPersonID string `json:"referencedMissingPersonId,omitempty" validate:"omitempty,uuid"`
}

// Normalize trims inputs and canonicalizes the parish spelling.
func (r *CreateFoundPersonRequest) Normalize() {
	if r == nil {
		return
	}
	r.PersonFields.normalize()
	s.TrimStrings(&r.FoundLocationParish, &r.FoundLocationCity, &r.ReferencedMissingPersonID)
	if p, err := id.ParseParish(r.FoundLocationParish); err == nil {
		r.FoundLocationParish = p.String()
	}
}

// Validate checks required fields and formats.
func (r *CreateFoundPersonRequest) Validate() error {
	return validation.Validate(r)
}

// ReferencedID returns the parsed reference, or nil when none was given.
// Validate has already checked the format.
func (r *CreateFoundPersonRequest) ReferencedID() (*id.MissingPersonID, error) {
	if r.ReferencedMissingPersonID == "" {
		return nil, nil
	}
	ref, err := id.ParseMissingPersonID(r.ReferencedMissingPersonID)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// ToModel builds a new report with status pending_verification.
func (r *CreateFoundPersonRequest) ToModel(reportID id.FoundPersonID, ref *id.MissingPersonID, now time.Time) *FoundPerson {
	return &FoundPerson{
		ID:          reportID,
		Identity:    r.identity(),
		Description: r.description(),
		FoundLocation: Location{
			Parish: id.Parish(r.FoundLocationParish),
			City:   r.FoundLocationCity,
		},
		PhotoIDs:                  append([]string{}, r.PhotoIDs...),
		Reporter:                  r.contact(),
		ReferencedMissingPersonID: ref,
		Status:                    StatusFoundPendingVerification,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
}

// UpdateStatusRequest moves a report through its lifecycle. The service
// checks the value against the report kind.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"notblank"`
}

func (r *UpdateStatusRequest) Normalize() {
	if r == nil {
		return
	}
	s.TrimStrings(&r.Status)
}

func (r *UpdateStatusRequest) Validate() error {
	return validation.Validate(r)
}
