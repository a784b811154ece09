package testutil

import (
	"time"

	"guidinghand/internal/reports/models"
	id "guidinghand/pkg/domain"
)

// FixedTime is the reference "now" used by fixtures.
var FixedTime = time.Date(2025, 10, 29, 12, 0, 0, 0, time.UTC)

// MissingPersonBuilder provides a fluent interface for building missing-person reports.
type MissingPersonBuilder struct {
	m *models.MissingPerson
}

// NewMissingPerson starts from a valid report: John Smith, Kingston, status missing.
func NewMissingPerson() *MissingPersonBuilder {
	return &MissingPersonBuilder{m: &models.MissingPerson{
		ID:                id.NewMissingPersonID(),
		Identity:          models.Identity{Name: "John Smith"},
		LastKnownLocation: models.Location{Parish: id.ParishKingston},
		Reporter:          models.Contact{Email: "reporter@example.com"},
		Status:            models.StatusMissing,
		CreatedAt:         FixedTime,
		UpdatedAt:         FixedTime,
	}}
}

func (b *MissingPersonBuilder) WithName(name string) *MissingPersonBuilder {
	b.m.Name = name
	return b
}

func (b *MissingPersonBuilder) WithDOB(dob string) *MissingPersonBuilder {
	b.m.DateOfBirth = dob
	return b
}

func (b *MissingPersonBuilder) WithTRN(trn string) *MissingPersonBuilder {
	b.m.TRN = trn
	return b
}

func (b *MissingPersonBuilder) WithParish(p id.Parish) *MissingPersonBuilder {
	b.m.LastKnownLocation.Parish = p
	return b
}

func (b *MissingPersonBuilder) WithDescription(d models.Description) *MissingPersonBuilder {
	b.m.Description = d
	return b
}

func (b *MissingPersonBuilder) WithReporter(email string) *MissingPersonBuilder {
	b.m.Reporter.Email = email
	return b
}

func (b *MissingPersonBuilder) WithStatus(s models.MissingStatus) *MissingPersonBuilder {
	b.m.Status = s
	return b
}

func (b *MissingPersonBuilder) CreatedAt(t time.Time) *MissingPersonBuilder {
	b.m.CreatedAt = t
	b.m.UpdatedAt = t
	return b
}

func (b *MissingPersonBuilder) Build() *models.MissingPerson {
	return b.m.Clone()
}

// FoundPersonBuilder provides a fluent interface for building found-person reports.
type FoundPersonBuilder struct {
	f *models.FoundPerson
}

// NewFoundPerson starts from a valid report: John Smith, Kingston, pending verification.
func NewFoundPerson() *FoundPersonBuilder {
	return &FoundPersonBuilder{f: &models.FoundPerson{
		ID:            id.NewFoundPersonID(),
		Identity:      models.Identity{Name: "John Smith"},
		FoundLocation: models.Location{Parish: id.ParishKingston},
		Reporter:      models.Contact{Email: "finder@example.com"},
		Status:        models.StatusFoundPendingVerification,
		CreatedAt:     FixedTime,
		UpdatedAt:     FixedTime,
	}}
}

func (b *FoundPersonBuilder) WithName(name string) *FoundPersonBuilder {
	b.f.Name = name
	return b
}

func (b *FoundPersonBuilder) WithDOB(dob string) *FoundPersonBuilder {
	b.f.DateOfBirth = dob
	return b
}

func (b *FoundPersonBuilder) WithTRN(trn string) *FoundPersonBuilder {
	b.f.TRN = trn
	return b
}

func (b *FoundPersonBuilder) WithParish(p id.Parish) *FoundPersonBuilder {
	b.f.FoundLocation.Parish = p
	return b
}

func (b *FoundPersonBuilder) WithDescription(d models.Description) *FoundPersonBuilder {
	b.f.Description = d
	return b
}

func (b *FoundPersonBuilder) Referencing(missingID id.MissingPersonID) *FoundPersonBuilder {
	b.f.ReferencedMissingPersonID = &missingID
	return b
}

func (b *FoundPersonBuilder) CreatedAt(t time.Time) *FoundPersonBuilder {
	b.f.CreatedAt = t
	b.f.UpdatedAt = t
	return b
}

func (b *FoundPersonBuilder) Build() *models.FoundPerson {
	return b.f.Clone()
}
