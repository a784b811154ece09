package dispatcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"guidinghand/internal/events"
	matchmodels "guidinghand/internal/matches/models"
	matchstore "guidinghand/internal/matches/store"
	"guidinghand/internal/notifications/models"
	"guidinghand/internal/notifications/retry"
	"guidinghand/internal/notifications/sender"
	"guidinghand/internal/notifications/sender/mocks"
	deliverystore "guidinghand/internal/notifications/store"
	reportmodels "guidinghand/internal/reports/models"
	reportstore "guidinghand/internal/reports/store"
	trackermodels "guidinghand/internal/trackers/models"
	trackerstore "guidinghand/internal/trackers/store"
	id "guidinghand/pkg/domain"
	"guidinghand/pkg/testutil"
)

type DispatcherSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	sender     *mocks.MockSender
	reports    *reportstore.InMemoryStore
	trackers   *trackerstore.InMemoryStore
	matches    *matchstore.InMemoryStore
	deliveries *deliverystore.InMemoryStore
	events     *events.Recorder
	dispatcher *Dispatcher

	missing *reportmodels.MissingPerson
	found   *reportmodels.FoundPerson
	match   *matchmodels.Match
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.ctrl = gomock.NewController(s.T())
	s.sender = mocks.NewMockSender(s.ctrl)
	s.reports = reportstore.NewInMemory()
	s.trackers = trackerstore.NewInMemory()
	s.matches = matchstore.NewInMemory()
	s.deliveries = deliverystore.NewInMemory()
	s.events = &events.Recorder{}

	scheduler := retry.NewScheduler(s.deliveries, retry.DefaultPolicy(), s.events, nil, logger)
	s.dispatcher = New(s.reports, s.trackers, s.matches, s.sender,
		WithRetries(scheduler),
		WithPublisher(s.events),
		WithLogger(logger),
	)

	s.missing = testutil.NewMissingPerson().WithName("John Smith").Build()
	s.found = testutil.NewFoundPerson().WithName("Jon Smith").Build()
	s.Require().NoError(s.reports.CreateMissing(ctx, s.missing))
	s.Require().NoError(s.reports.CreateFound(ctx, s.found))

	m, _, err := s.matches.Create(ctx, matchmodels.New(s.missing.ID, s.found.ID, 90, testutil.FixedTime))
	s.Require().NoError(err)
	s.match = m
}

func (s *DispatcherSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *DispatcherSuite) addTracker(email string, verified bool) *trackermodels.Tracker {
	ctx := context.Background()
	t, _, err := s.trackers.CreateOrGet(ctx, trackermodels.New(email, s.missing.ID, testutil.FixedTime))
	s.Require().NoError(err)
	if verified {
		s.Require().NoError(s.trackers.SetVerified(ctx, t.ID))
	}
	return t
}

func (s *DispatcherSuite) notified() bool {
	m, err := s.matches.FindByID(context.Background(), s.match.ID)
	s.Require().NoError(err)
	return m.Notified
}

func (s *DispatcherSuite) messageTo(email string) sender.Message {
	return sender.Message{
		To:                email,
		MissingPersonName: "John Smith",
		FoundPersonName:   "Jon Smith",
		ConfidenceScore:   90,
		MatchID:           s.match.ID,
	}
}

// TestOnlyVerifiedTrackersAreNotified verifies unverified subscribers never
// receive mail.
func (s *DispatcherSuite) TestOnlyVerifiedTrackersAreNotified() {
	s.addTracker("verified@example.com", true)
	s.addTracker("unverified@example.com", false)

	s.sender.EXPECT().Send(gomock.Any(), s.messageTo("verified@example.com")).Return(nil)

	s.Require().NoError(s.dispatcher.Dispatch(context.Background(), s.missing.ID, s.found.ID, 90))
	s.True(s.notified())
	s.Len(s.events.OfType(events.MatchNotified), 1)
}

// TestFailedSendDoesNotStopLoop verifies a failure for one tracker is queued
// for retry while the remaining trackers are still attempted.
func (s *DispatcherSuite) TestFailedSendDoesNotStopLoop() {
	s.addTracker("a@example.com", true)
	s.addTracker("b@example.com", true)

	gomock.InOrder(
		s.sender.EXPECT().Send(gomock.Any(), s.messageTo("a@example.com")).Return(errors.New("email transport returned 503")),
		s.sender.EXPECT().Send(gomock.Any(), s.messageTo("b@example.com")).Return(nil),
	)

	s.Require().NoError(s.dispatcher.Dispatch(context.Background(), s.missing.ID, s.found.ID, 90))
	s.True(s.notified())

	queued, err := s.deliveries.ListByMatch(context.Background(), s.match.ID)
	s.Require().NoError(err)
	s.Require().Len(queued, 1)
	s.Equal("a@example.com", queued[0].TrackerEmail)
	s.Equal(models.StatePending, queued[0].State)
	s.Equal(1, queued[0].Attempts)
	s.Contains(queued[0].LastError, "503")
}

func (s *DispatcherSuite) TestAllSendsFailLeavesMatchUnnotified() {
	s.addTracker("a@example.com", true)
	s.addTracker("b@example.com", true)

	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("timeout")).Times(2)

	s.Require().NoError(s.dispatcher.Dispatch(context.Background(), s.missing.ID, s.found.ID, 90))
	s.False(s.notified())
	s.Empty(s.events.OfType(events.MatchNotified))

	queued, err := s.deliveries.ListByMatch(context.Background(), s.match.ID)
	s.Require().NoError(err)
	s.Len(queued, 2)
}

func (s *DispatcherSuite) TestNoOps() {
	s.addTracker("a@example.com", true)

	s.Run("unknown missing report", func() {
		other := testutil.NewMissingPerson().Build()
		s.NoError(s.dispatcher.Dispatch(context.Background(), other.ID, s.found.ID, 90))
	})

	s.Run("unknown found report", func() {
		other := testutil.NewFoundPerson().Build()
		s.NoError(s.dispatcher.Dispatch(context.Background(), s.missing.ID, other.ID, 90))
	})

	s.Run("no match for the pair", func() {
		found := testutil.NewFoundPerson().Build()
		s.Require().NoError(s.reports.CreateFound(context.Background(), found))
		s.NoError(s.dispatcher.Dispatch(context.Background(), s.missing.ID, found.ID, 90))
	})

	s.Run("no verified trackers", func() {
		missing := testutil.NewMissingPerson().Build()
		s.Require().NoError(s.reports.CreateMissing(context.Background(), missing))
		s.NoError(s.dispatcher.Dispatch(context.Background(), missing.ID, s.found.ID, 90))
	})
	s.False(s.notified())
}

// TestNotifiedEventPublishedOnce verifies repeated dispatches keep the flag
// set and publish match.notified only for the first success.
func (s *DispatcherSuite) TestNotifiedEventPublishedOnce() {
	s.addTracker("a@example.com", true)
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	ctx := context.Background()
	s.Require().NoError(s.dispatcher.Dispatch(ctx, s.missing.ID, s.found.ID, 90))
	s.Require().NoError(s.dispatcher.Dispatch(ctx, s.missing.ID, s.found.ID, 90))

	s.True(s.notified())
	s.Len(s.events.OfType(events.MatchNotified), 1)
}

func (s *DispatcherSuite) TestRedeliver() {
	ctx := context.Background()
	del := models.NewDelivery(s.match.ID, "a@example.com", s.missing.ID, s.found.ID, 90, testutil.FixedTime)

	s.Run("failure is returned and leaves the match unnotified", func() {
		s.sender.EXPECT().Send(gomock.Any(), s.messageTo("a@example.com")).Return(errors.New("503"))
		s.Error(s.dispatcher.Redeliver(ctx, del))
		s.False(s.notified())
	})

	s.Run("success marks the match notified", func() {
		s.sender.EXPECT().Send(gomock.Any(), s.messageTo("a@example.com")).Return(nil)
		s.NoError(s.dispatcher.Redeliver(ctx, del))
		s.True(s.notified())
	})
}

func (s *DispatcherSuite) TestRedeliverWithDeletedReportIsUndeliverable() {
	ctx := context.Background()
	del := models.NewDelivery(s.match.ID, "a@example.com", s.missing.ID, id.NewFoundPersonID(), 90, testutil.FixedTime)

	err := s.dispatcher.Redeliver(ctx, del)
	s.Require().Error(err)
	s.ErrorIs(err, models.ErrUndeliverable)
	s.False(s.notified())
}

func (s *DispatcherSuite) TestRedeliverStoreFailureStaysRetryable() {
	ctx := context.Background()
	broken := New(failingReports{}, s.trackers, s.matches, s.sender)
	del := models.NewDelivery(s.match.ID, "a@example.com", s.missing.ID, s.found.ID, 90, testutil.FixedTime)

	err := broken.Redeliver(ctx, del)
	s.Require().Error(err)
	s.NotErrorIs(err, models.ErrUndeliverable)
}

type failingReports struct{}

func (failingReports) GetMissing(context.Context, id.MissingPersonID) (*reportmodels.MissingPerson, error) {
	return nil, errors.New("connection reset")
}

func (failingReports) GetFound(context.Context, id.FoundPersonID) (*reportmodels.FoundPerson, error) {
	return nil, errors.New("connection reset")
}
