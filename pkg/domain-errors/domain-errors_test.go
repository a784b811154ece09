package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Intake guard and reference validation outcomes travel through these types
// from the service layer to the HTTP boundary, so the code must survive
// wrapping.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "missing person report not found"}
		s.Equal("missing person report not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeRateLimited}
		s.Equal("rate_limited", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("database connection failed")
		err := &Error{Code: CodeInternal, Message: "service error", Err: inner}
		s.Equal(inner, err.Unwrap())
	})

	s.Run("returns nil when no wrapped error", func() {
		err := &Error{Code: CodeNotFound, Message: "not found"}
		s.Nil(err.Unwrap())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeDuplicateSubmission, Message: "first"}
		err2 := &Error{Code: CodeDuplicateSubmission, Message: "second"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		s.False((&Error{Code: CodeDuplicateSubmission}).Is(&Error{Code: CodeRateLimited}))
	})

	s.Run("works with errors.Is through fmt wrapping", func() {
		inner := New(CodeInvalidReference, "referenced report is resolved")
		wrapped := fmt.Errorf("create found person: %w", inner)
		s.True(errors.Is(wrapped, &Error{Code: CodeInvalidReference}))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves original domain code when wrapping domain error", func() {
		original := New(CodeRateLimited, "too many reports")
		wrapped := Wrap(original, CodeInternal, "intake failed")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeRateLimited, domainErr.Code)
		s.Equal("intake failed", domainErr.Message)
	})

	s.Run("uses provided code when wrapping non-domain error", func() {
		original := errors.New("database timeout")
		wrapped := Wrap(original, CodeInternal, "service error")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeInternal, domainErr.Code)
		s.True(errors.Is(wrapped, original))
	})
}

func (s *DomainErrorsSuite) TestHasCode() {
	s.Run("returns true for matching code", func() {
		s.True(HasCode(New(CodeNotFound, "not found"), CodeNotFound))
	})

	s.Run("returns false for non-domain error", func() {
		s.False(HasCode(errors.New("regular error"), CodeNotFound))
	})

	s.Run("returns false for nil error", func() {
		s.False(HasCode(nil, CodeNotFound))
	})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Run("finds code through fmt wrapping", func() {
		err := fmt.Errorf("intake: %w", Newf(CodeDuplicateSubmission, "report for %s already submitted", "John Smith"))
		s.Equal(CodeDuplicateSubmission, CodeOf(err))
		s.Equal("intake: report for John Smith already submitted", err.Error())
	})

	s.Run("empty for plain errors", func() {
		s.Equal(Code(""), CodeOf(errors.New("boom")))
		s.Equal(Code(""), CodeOf(nil))
	})
}
