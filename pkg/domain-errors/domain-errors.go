package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a transport-agnostic failure category. Handlers map it to a
// status code at the HTTP boundary.
type Code string

const (
	CodeNotFound        Code = "not_found"
	CodeBadRequest      Code = "bad_request"
	CodeInvalidInput    Code = "invalid_input"
	CodeValidation      Code = "validation_failed"
	CodePayloadTooLarge Code = "payload_too_large"
	CodeInternal        Code = "internal_error"
	CodeConflict        Code = "conflict"
	CodeTimeout         Code = "timeout"

	// Intake outcomes surfaced to the submitter. None of these are retried.
	CodeDuplicateSubmission Code = "duplicate_submission" // same name+DOB from the reporter within the duplicate window
	CodeRateLimited         Code = "rate_limited"         // reporter exceeded the intake rate window
	CodeInvalidReference    Code = "invalid_reference"    // referenced missing-person report is absent, closed, or implausible
)

// Error carries a stable Code through service, store, and worker layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches by code, so errors.Is(err, New(CodeRateLimited, "")) holds for
// any rate limited error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches msg to err. An existing domain code in the chain wins over
// code, so a guard rejection stays a guard rejection after wrapping.
func Wrap(err error, code Code, msg string) error {
	if existing := CodeOf(err); existing != "" {
		code = existing
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the first domain code in the chain, or "" when err carries
// none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func HasCode(err error, code Code) bool {
	return code != "" && CodeOf(err) == code
}
