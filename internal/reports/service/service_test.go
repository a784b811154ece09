package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"guidinghand/internal/reports/guard"
	"guidinghand/internal/reports/models"
	"guidinghand/internal/reports/store"
	"guidinghand/internal/tasks"
	"guidinghand/internal/tasks/queue"
	dErrors "guidinghand/pkg/domain-errors"
	"guidinghand/pkg/requestcontext"
	"guidinghand/pkg/testutil"
)

type failingQueue struct{}

func (failingQueue) Enqueue(context.Context, tasks.Task) error {
	return errors.New("redis: connection refused")
}

func (failingQueue) Dequeue(context.Context) (tasks.Task, error) {
	return tasks.Task{}, errors.New("redis: connection refused")
}

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemoryStore
	queue   *queue.Memory
	service *Service
	logger  *slog.Logger
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), testutil.FixedTime)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = store.NewInMemory()
	s.queue = queue.NewMemory(16)
	s.service = New(s.store, s.queue, s.newGuard(), WithLogger(s.logger))
}

func (s *ServiceSuite) newGuard() *guard.Guard {
	return guard.New(guard.Config{DuplicateWindow: 24 * time.Hour, RateWindow: time.Hour, RateLimit: 5})
}

func missingRequest(name string) *models.CreateMissingPersonRequest {
	return &models.CreateMissingPersonRequest{
		PersonFields: models.PersonFields{
			Name:          name,
			DateOfBirth:   "1980-01-01",
			ReporterEmail: "Reporter@Example.com ",
		},
		LastKnownLocationParish: "kingston",
	}
}

func foundRequest(name string) *models.CreateFoundPersonRequest {
	return &models.CreateFoundPersonRequest{
		PersonFields: models.PersonFields{
			Name:          name,
			ReporterEmail: "finder@example.com",
		},
		FoundLocationParish: "Kingston",
	}
}

func (s *ServiceSuite) drain() []tasks.Task {
	var out []tasks.Task
	for s.queue.Len() > 0 {
		t, err := s.queue.Dequeue(context.Background())
		s.Require().NoError(err)
		out = append(out, t)
	}
	return out
}

func (s *ServiceSuite) TestCreateMissing() {
	s.Run("persists with status missing and normalized fields", func() {
		report, err := s.service.CreateMissing(s.ctx, missingRequest("  John Smith "))
		s.Require().NoError(err)
		s.Equal("John Smith", report.Name)
		s.Equal("reporter@example.com", report.Reporter.Email)
		s.Equal("Kingston", report.LastKnownLocation.Parish.String())
		s.Equal(models.StatusMissing, report.Status)
		s.Equal(testutil.FixedTime, report.CreatedAt)

		stored, err := s.store.GetMissing(s.ctx, report.ID)
		s.Require().NoError(err)
		s.Equal(report.ID, stored.ID)
	})

	s.Run("missing name is a validation error", func() {
		req := missingRequest("   ")
		_, err := s.service.CreateMissing(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown parish is a validation error", func() {
		req := missingRequest("Jane Doe")
		req.LastKnownLocationParish = "Atlantis"
		_, err := s.service.CreateMissing(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("nil request", func() {
		_, err := s.service.CreateMissing(s.ctx, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestCreateMissingGuard() {
	s.Run("same name and DOB twice is a duplicate", func() {
		_, err := s.service.CreateMissing(s.ctx, missingRequest("Marcus Brown"))
		s.Require().NoError(err)
		_, err = s.service.CreateMissing(s.ctx, missingRequest("Marcus Brown"))
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateSubmission))
	})

	s.Run("sixth report inside the hour is rate limited", func() {
		for i := range 4 {
			_, err := s.service.CreateMissing(s.ctx, missingRequest(fmt.Sprintf("Person %d", i)))
			s.Require().NoError(err)
		}
		_, err := s.service.CreateMissing(s.ctx, missingRequest("One Too Many"))
		s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))

		list, err := s.store.ListMissingByReporterSince(s.ctx, "reporter@example.com", testutil.FixedTime.Add(-time.Hour))
		s.Require().NoError(err)
		s.Len(list, 5)
	})
}

// TestConcurrentIntakeIsLinearizable verifies the guard and insert run as one
// step per reporter: ten parallel submissions admit exactly the rate limit.
func (s *ServiceSuite) TestConcurrentIntakeIsLinearizable() {
	result := testutil.RunConcurrent(10, func(idx int) error {
		_, err := s.service.CreateMissing(s.ctx, missingRequest(fmt.Sprintf("Concurrent %d", idx)))
		return err
	})
	s.Equal(int32(5), result.Successes)
	s.Equal(int32(5), result.RateLimits)
	s.Zero(result.Errors)
}

func (s *ServiceSuite) TestCreateFound() {
	s.Run("without reference enqueues a broad match", func() {
		report, err := s.service.CreateFound(s.ctx, foundRequest("John Smith"))
		s.Require().NoError(err)
		s.Equal(models.StatusFoundPendingVerification, report.Status)
		s.Nil(report.ReferencedMissingPersonID)

		queued := s.drain()
		s.Require().Len(queued, 1)
		s.Equal(tasks.KindBroadMatch, queued[0].Kind)
		s.Equal(report.ID, queued[0].FoundPersonID)
	})

	s.Run("with valid reference enqueues referenced then broad", func() {
		missing := testutil.NewMissingPerson().WithName("John Smith").Build()
		s.Require().NoError(s.store.CreateMissing(s.ctx, missing))

		req := foundRequest("John Smith")
		req.ReferencedMissingPersonID = missing.ID.String()
		report, err := s.service.CreateFound(s.ctx, req)
		s.Require().NoError(err)
		s.Require().NotNil(report.ReferencedMissingPersonID)
		s.Equal(missing.ID, *report.ReferencedMissingPersonID)

		queued := s.drain()
		s.Require().Len(queued, 2)
		s.Equal(tasks.KindReferencedMatch, queued[0].Kind)
		s.Equal(missing.ID, *queued[0].MissingPersonID)
		s.Equal(tasks.KindBroadMatch, queued[1].Kind)
	})
}

func (s *ServiceSuite) TestCreateFoundInvalidReference() {
	resolved := testutil.NewMissingPerson().WithName("John Smith").WithStatus(models.StatusResolved).Build()
	open := testutil.NewMissingPerson().WithName("John Smith").Build()
	s.Require().NoError(s.store.CreateMissing(s.ctx, resolved))
	s.Require().NoError(s.store.CreateMissing(s.ctx, open))

	tests := []struct {
		name string
		ref  string
		who  string
	}{
		{name: "unknown report", ref: testutil.NewMissingPerson().Build().ID.String(), who: "John Smith"},
		{name: "resolved report", ref: resolved.ID.String(), who: "John Smith"},
		{name: "implausible name", ref: open.ID.String(), who: "Beverley Campbell"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := foundRequest(tt.who)
			req.ReferencedMissingPersonID = tt.ref
			_, err := s.service.CreateFound(s.ctx, req)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidReference), "got %v", err)
		})
	}

	list, err := s.store.ListFound(s.ctx, models.FoundFilter{})
	s.Require().NoError(err)
	s.Empty(list, "rejected reports are not persisted")
	s.Zero(s.queue.Len())
}

func (s *ServiceSuite) TestCreateFoundMalformedReference() {
	req := foundRequest("John Smith")
	req.ReferencedMissingPersonID = "not-a-uuid"
	_, err := s.service.CreateFound(s.ctx, req)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// TestEnqueueFailureKeepsReport verifies a queue outage does not fail intake.
func (s *ServiceSuite) TestEnqueueFailureKeepsReport() {
	svc := New(s.store, failingQueue{}, s.newGuard(), WithLogger(s.logger))

	report, err := svc.CreateFound(s.ctx, foundRequest("John Smith"))
	s.Require().NoError(err)

	stored, err := s.store.GetFound(s.ctx, report.ID)
	s.Require().NoError(err)
	s.Equal(report.ID, stored.ID)
}

func (s *ServiceSuite) TestUpdateStatus() {
	missing := testutil.NewMissingPerson().Build()
	found := testutil.NewFoundPerson().Build()
	s.Require().NoError(s.store.CreateMissing(s.ctx, missing))
	s.Require().NoError(s.store.CreateFound(s.ctx, found))

	s.Run("missing report resolved", func() {
		updated, err := s.service.UpdateMissingStatus(s.ctx, missing.ID, &models.UpdateStatusRequest{Status: " resolved "})
		s.Require().NoError(err)
		s.Equal(models.StatusResolved, updated.Status)
	})

	s.Run("found report verified", func() {
		updated, err := s.service.UpdateFoundStatus(s.ctx, found.ID, &models.UpdateStatusRequest{Status: "verified"})
		s.Require().NoError(err)
		s.Equal(models.StatusVerified, updated.Status)
	})

	s.Run("status from the other lifecycle is rejected", func() {
		_, err := s.service.UpdateMissingStatus(s.ctx, missing.ID, &models.UpdateStatusRequest{Status: "verified"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown report", func() {
		_, err := s.service.UpdateFoundStatus(s.ctx, testutil.NewFoundPerson().Build().ID, &models.UpdateStatusRequest{Status: "rejected"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestListAndGet() {
	older := testutil.NewMissingPerson().CreatedAt(testutil.FixedTime.Add(-time.Hour)).Build()
	newer := testutil.NewMissingPerson().Build()
	resolved := testutil.NewMissingPerson().WithStatus(models.StatusResolved).Build()
	for _, m := range []*models.MissingPerson{older, newer, resolved} {
		s.Require().NoError(s.store.CreateMissing(s.ctx, m))
	}

	status := models.StatusMissing
	list, err := s.service.ListMissing(s.ctx, models.MissingFilter{Status: &status})
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(newer.ID, list[0].ID)
	s.Equal(older.ID, list[1].ID)

	bad := models.MissingStatus("lost")
	_, err = s.service.ListMissing(s.ctx, models.MissingFilter{Status: &bad})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.GetMissing(s.ctx, testutil.NewMissingPerson().Build().ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
