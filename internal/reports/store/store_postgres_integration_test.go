//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"guidinghand/internal/reports/models"
	"guidinghand/internal/reports/store"
	"guidinghand/internal/sentinel"
	id "guidinghand/pkg/domain"
	"guidinghand/pkg/testutil"
	"guidinghand/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

// TestMissingRoundTrip verifies every column survives a write and read,
// including the photo reference array.
func (s *PostgresStoreSuite) TestMissingRoundTrip() {
	ctx := context.Background()
	report := testutil.NewMissingPerson().
		WithDOB("1990-04-12").
		WithTRN("123-456-789").
		WithDescription(models.Description{Height: "170cm", SkinTone: "brown", HairColor: "black"}).
		CreatedAt(testutil.FixedTime).
		Build()
	report.PhotoIDs = []string{"photo-1", "photo-2"}

	s.Require().NoError(s.store.CreateMissing(ctx, report))
	s.Require().ErrorIs(s.store.CreateMissing(ctx, report), sentinel.ErrConflict)

	got, err := s.store.GetMissing(ctx, report.ID)
	s.Require().NoError(err)
	s.Equal(report.Identity, got.Identity)
	s.Equal(report.Description, got.Description)
	s.Equal(report.LastKnownLocation, got.LastKnownLocation)
	s.Equal(report.PhotoIDs, got.PhotoIDs)
	s.Equal(report.Reporter, got.Reporter)
	s.True(report.CreatedAt.Equal(got.CreatedAt))

	_, err = s.store.GetMissing(ctx, id.NewMissingPersonID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListMissingFilters() {
	ctx := context.Background()
	now := testutil.FixedTime
	older := testutil.NewMissingPerson().WithParish(id.ParishStJames).CreatedAt(now.Add(-time.Hour)).Build()
	newer := testutil.NewMissingPerson().WithParish(id.ParishStJames).CreatedAt(now).Build()
	resolved := testutil.NewMissingPerson().WithStatus(models.StatusResolved).CreatedAt(now).Build()
	for _, r := range []*models.MissingPerson{older, newer, resolved} {
		s.Require().NoError(s.store.CreateMissing(ctx, r))
	}

	parish := id.ParishStJames
	got, err := s.store.ListMissing(ctx, models.MissingFilter{Parish: &parish})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(newer.ID, got[0].ID)
	s.Equal(older.ID, got[1].ID)

	status := models.StatusResolved
	got, err = s.store.ListMissing(ctx, models.MissingFilter{Status: &status})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(resolved.ID, got[0].ID)
}

func (s *PostgresStoreSuite) TestReporterHistoryWindow() {
	ctx := context.Background()
	since := testutil.FixedTime.Add(-time.Hour)
	boundary := testutil.NewMissingPerson().WithReporter("r@example.com").CreatedAt(since).Build()
	inside := testutil.NewMissingPerson().WithReporter("r@example.com").CreatedAt(since.Add(time.Minute)).Build()
	s.Require().NoError(s.store.CreateMissing(ctx, boundary))
	s.Require().NoError(s.store.CreateMissing(ctx, inside))

	got, err := s.store.ListMissingByReporterSince(ctx, "r@example.com", since)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(inside.ID, got[0].ID)
}

func (s *PostgresStoreSuite) TestFoundLifecycle() {
	ctx := context.Background()
	missing := testutil.NewMissingPerson().Build()
	s.Require().NoError(s.store.CreateMissing(ctx, missing))

	found := testutil.NewFoundPerson().Referencing(missing.ID).Build()
	s.Require().NoError(s.store.CreateFound(ctx, found))

	got, err := s.store.GetFound(ctx, found.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.ReferencedMissingPersonID)
	s.Equal(missing.ID, *got.ReferencedMissingPersonID)
	s.Equal(models.StatusFoundPendingVerification, got.Status)

	s.Require().NoError(s.store.UpdateFoundStatus(ctx, found.ID, models.StatusVerified, testutil.FixedTime.Add(time.Hour)))
	verified := models.StatusVerified
	list, err := s.store.ListFound(ctx, models.FoundFilter{Status: &verified})
	s.Require().NoError(err)
	s.Require().Len(list, 1)

	s.ErrorIs(s.store.UpdateFoundStatus(ctx, id.NewFoundPersonID(), models.StatusVerified, testutil.FixedTime), sentinel.ErrNotFound)
}
