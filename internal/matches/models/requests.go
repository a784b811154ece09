package models

import (
	s "guidinghand/pkg/string"
	"guidinghand/pkg/validation"
)

// UpdateVerificationRequest records the reviewer's decision on a match.
type UpdateVerificationRequest struct {
	VerificationStatus string `json:"verificationStatus" validate:"required,oneof=pending verified rejected"`
}

func (r *UpdateVerificationRequest) Normalize() {
	if r == nil {
		return
	}
	s.TrimStrings(&r.VerificationStatus)
}

func (r *UpdateVerificationRequest) Validate() error {
	return validation.Validate(r)
}
