package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"guidinghand/internal/events"
	matchmodels "guidinghand/internal/matches/models"
	matchstore "guidinghand/internal/matches/store"
	"guidinghand/internal/matching/scoring"
	"guidinghand/internal/notifications/dispatcher"
	"guidinghand/internal/notifications/sender"
	"guidinghand/internal/notifications/sender/mocks"
	reportmodels "guidinghand/internal/reports/models"
	reportstore "guidinghand/internal/reports/store"
	"guidinghand/internal/tasks"
	trackermodels "guidinghand/internal/trackers/models"
	trackerstore "guidinghand/internal/trackers/store"
	id "guidinghand/pkg/domain"
	dErrors "guidinghand/pkg/domain-errors"
	"guidinghand/pkg/testutil"
)

type dispatchCall struct {
	missingID id.MissingPersonID
	foundID   id.FoundPersonID
	score     int
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
}

func (d *recordingDispatcher) Dispatch(_ context.Context, missingID id.MissingPersonID, foundID id.FoundPersonID, score int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{missingID: missingID, foundID: foundID, score: score})
	return nil
}

// failingMatches fails every Create after the first `allow` calls.
type failingMatches struct {
	*matchstore.InMemoryStore
	allow int
	calls int
}

func (f *failingMatches) Create(ctx context.Context, m *matchmodels.Match) (*matchmodels.Match, bool, error) {
	f.calls++
	if f.calls > f.allow {
		return nil, false, errors.New("connection reset")
	}
	return f.InMemoryStore.Create(ctx, m)
}

type EngineSuite struct {
	suite.Suite
	reports    *reportstore.InMemoryStore
	matches    *matchstore.InMemoryStore
	dispatcher *recordingDispatcher
	events     *events.Recorder
	engine     *Engine
	logger     *slog.Logger
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.reports = reportstore.NewInMemory()
	s.matches = matchstore.NewInMemory()
	s.dispatcher = &recordingDispatcher{}
	s.events = &events.Recorder{}
	s.engine = New(s.reports, s.matches, s.dispatcher, WithPublisher(s.events), WithLogger(s.logger))
}

func (s *EngineSuite) addMissing(m *reportmodels.MissingPerson) *reportmodels.MissingPerson {
	s.Require().NoError(s.reports.CreateMissing(context.Background(), m))
	return m
}

func (s *EngineSuite) addFound(f *reportmodels.FoundPerson) *reportmodels.FoundPerson {
	s.Require().NoError(s.reports.CreateFound(context.Background(), f))
	return f
}

func (s *EngineSuite) matchesFor(missingID id.MissingPersonID) []*matchmodels.Match {
	list, err := s.matches.List(context.Background(), matchmodels.Filter{MissingPersonID: &missingID})
	s.Require().NoError(err)
	return list
}

// TestIdentifierMatchDispatches verifies a shared TRN produces a 100
// confidence match and a dispatch for that pair.
func (s *EngineSuite) TestIdentifierMatchDispatches() {
	missing := s.addMissing(testutil.NewMissingPerson().WithName("John Smith").WithTRN("123").Build())
	found := s.addFound(testutil.NewFoundPerson().WithName("John Smith").WithTRN("123").Build())

	s.Require().NoError(s.engine.RunBroad(context.Background(), found.ID))

	list := s.matchesFor(missing.ID)
	s.Require().Len(list, 1)
	s.Equal(100, list[0].ConfidenceScore)
	s.Equal(found.ID, list[0].FoundPersonID)
	s.Equal([]dispatchCall{{missingID: missing.ID, foundID: found.ID, score: 100}}, s.dispatcher.calls)
	s.Len(s.events.OfType(events.MatchCreated), 1)
}

// TestDissimilarNamesCreateNothing verifies a name similarity of 0.5 with no
// shared identifiers or DOB is never matched.
func (s *EngineSuite) TestDissimilarNamesCreateNothing() {
	a := s.addMissing(testutil.NewMissingPerson().WithName("Mary Brown").Build())
	found := s.addFound(testutil.NewFoundPerson().WithName("Mary Smith").Build())
	s.Require().Less(scoring.Score(found, a), scoring.PersistThreshold)

	s.Require().NoError(s.engine.RunBroad(context.Background(), found.ID))

	s.Empty(s.matchesFor(a.ID))
	s.Empty(s.dispatcher.calls)
	s.Empty(s.events.Events())
}

func (s *EngineSuite) TestMidConfidencePersistsWithoutDispatch() {
	missing := s.addMissing(testutil.NewMissingPerson().WithName("Christopher Robinson").WithDOB("1990-05-01").Build())
	found := s.addFound(testutil.NewFoundPerson().WithName("Christina Robins").WithDOB("1990-05-01").Build())

	s.Require().NoError(s.engine.RunBroad(context.Background(), found.ID))

	list := s.matchesFor(missing.ID)
	s.Require().Len(list, 1)
	s.Equal(scoring.ScoreFuzzy, list[0].ConfidenceScore)
	s.Empty(s.dispatcher.calls)
}

func (s *EngineSuite) TestOnlyOpenReportsAreCandidates() {
	resolved := s.addMissing(testutil.NewMissingPerson().WithTRN("123").WithStatus(reportmodels.StatusResolved).Build())
	pending := s.addMissing(testutil.NewMissingPerson().WithTRN("123").WithStatus(reportmodels.StatusMissingPendingVerification).Build())
	open := s.addMissing(testutil.NewMissingPerson().WithTRN("123").Build())
	found := s.addFound(testutil.NewFoundPerson().WithTRN("123").Build())

	s.Require().NoError(s.engine.RunBroad(context.Background(), found.ID))

	s.Empty(s.matchesFor(resolved.ID))
	s.Empty(s.matchesFor(pending.ID))
	s.Len(s.matchesFor(open.ID), 1)
}

func (s *EngineSuite) TestRunBroadUnknownFoundIsNoop() {
	s.NoError(s.engine.RunBroad(context.Background(), id.NewFoundPersonID()))
}

// TestReferencedThenBroadCoalesce verifies both tasks for one pair leave a
// single match carrying the higher confidence.
func (s *EngineSuite) TestReferencedThenBroadCoalesce() {
	ctx := context.Background()
	missing := s.addMissing(testutil.NewMissingPerson().WithName("John Smith").WithDOB("1980-01-01").Build())
	found := s.addFound(testutil.NewFoundPerson().WithName("John Smith").WithDOB("1980-01-01").Referencing(missing.ID).Build())

	s.Require().NoError(s.engine.RunReferenced(ctx, missing.ID, found.ID))
	list := s.matchesFor(missing.ID)
	s.Require().Len(list, 1)
	s.Equal(scoring.ScoreReferenced, list[0].ConfidenceScore)
	s.Empty(s.dispatcher.calls, "referenced matches never notify")

	s.Require().NoError(s.engine.RunBroad(ctx, found.ID))
	list = s.matchesFor(missing.ID)
	s.Require().Len(list, 1)
	s.Equal(scoring.ScoreNameAndDOB, list[0].ConfidenceScore)
	s.Len(s.dispatcher.calls, 1)
	s.Len(s.events.OfType(events.MatchCreated), 1)

	s.Require().NoError(s.engine.RunReferenced(ctx, missing.ID, found.ID))
	list = s.matchesFor(missing.ID)
	s.Require().Len(list, 1)
	s.Equal(scoring.ScoreNameAndDOB, list[0].ConfidenceScore, "an existing match is left alone")
}

// TestStoreFailureAbortsSweep verifies a failed match write ends the task
// with earlier matches kept, and a re-run completes the sweep.
func (s *EngineSuite) TestStoreFailureAbortsSweep() {
	ctx := context.Background()
	first := s.addMissing(testutil.NewMissingPerson().WithTRN("123").CreatedAt(testutil.FixedTime).Build())
	second := s.addMissing(testutil.NewMissingPerson().WithTRN("123").WithReporter("b@example.com").CreatedAt(testutil.FixedTime.Add(-1)).Build())
	found := s.addFound(testutil.NewFoundPerson().WithTRN("123").Build())

	failing := &failingMatches{InMemoryStore: s.matches, allow: 1}
	eng := New(s.reports, failing, s.dispatcher, WithLogger(s.logger))

	err := eng.RunBroad(ctx, found.ID)
	s.Require().Error(err)
	s.Len(s.matchesFor(first.ID), 1, "newest candidate was written before the failure")
	s.Empty(s.matchesFor(second.ID))

	s.Require().NoError(s.engine.RunBroad(ctx, found.ID))
	s.Len(s.matchesFor(first.ID), 1)
	s.Len(s.matchesFor(second.ID), 1)
}

func (s *EngineSuite) TestHandleTask() {
	ctx := context.Background()
	missing := s.addMissing(testutil.NewMissingPerson().Build())
	found := s.addFound(testutil.NewFoundPerson().WithName("Somebody Else").Build())

	s.Run("referenced task", func() {
		s.Require().NoError(s.engine.HandleTask(ctx, tasks.NewReferencedMatch(missing.ID, found.ID, testutil.FixedTime)))
		s.Len(s.matchesFor(missing.ID), 1)
	})

	s.Run("broad task", func() {
		s.NoError(s.engine.HandleTask(ctx, tasks.NewBroadMatch(found.ID, testutil.FixedTime)))
	})

	s.Run("referenced task without missing id", func() {
		err := s.engine.HandleTask(ctx, tasks.Task{Kind: tasks.KindReferencedMatch, FoundPersonID: found.ID})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown kind", func() {
		err := s.engine.HandleTask(ctx, tasks.Task{Kind: "rescore", FoundPersonID: found.ID})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// TestEndToEndNotifiesEveryVerifiedTracker wires the real dispatcher: a TRN
// match notifies each verified tracker, and a failure for the first does not
// stop the second.
func (s *EngineSuite) TestEndToEndNotifiesEveryVerifiedTracker() {
	ctx := context.Background()
	ctrl := gomock.NewController(s.T())
	mockSender := mocks.NewMockSender(ctrl)

	missing := s.addMissing(testutil.NewMissingPerson().WithName("John Smith").WithTRN("123").WithParish(id.ParishKingston).Build())
	found := s.addFound(testutil.NewFoundPerson().WithName("John Smith").WithTRN("123").WithParish(id.ParishKingston).Build())

	trackers := trackerstore.NewInMemory()
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		t, _, err := trackers.CreateOrGet(ctx, trackermodels.New(email, missing.ID, testutil.FixedTime))
		s.Require().NoError(err)
		if email != "c@example.com" {
			s.Require().NoError(trackers.SetVerified(ctx, t.ID))
		}
	}

	var sentTo []string
	gomock.InOrder(
		mockSender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg sender.Message) error {
			sentTo = append(sentTo, msg.To)
			return errors.New("email transport returned 500")
		}),
		mockSender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg sender.Message) error {
			sentTo = append(sentTo, msg.To)
			s.Equal(100, msg.ConfidenceScore)
			s.Equal("John Smith", msg.FoundPersonName)
			return nil
		}),
	)

	disp := dispatcher.New(s.reports, trackers, s.matches, mockSender, dispatcher.WithLogger(s.logger))
	eng := New(s.reports, s.matches, disp, WithLogger(s.logger))

	s.Require().NoError(eng.RunBroad(ctx, found.ID))
	s.Equal([]string{"a@example.com", "b@example.com"}, sentTo)

	list := s.matchesFor(missing.ID)
	s.Require().Len(list, 1)
	s.Equal(100, list[0].ConfidenceScore)
	s.True(list[0].Notified)
}
