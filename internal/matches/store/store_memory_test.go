package store

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guidinghand/internal/matches/models"
	"guidinghand/internal/sentinel"
	id "guidinghand/pkg/domain"
	"guidinghand/pkg/testutil"
)

// TestCreateCoalescesPairs verifies one record per pair with the highest
// confidence seen, leaving notified and status untouched.
func TestCreateCoalescesPairs(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	missingID, foundID := id.NewMissingPersonID(), id.NewFoundPersonID()

	first, created, err := store.Create(ctx, models.New(missingID, foundID, 78, testutil.FixedTime))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 78, first.ConfidenceScore)

	flipped, err := store.MarkNotified(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, flipped)

	higher, created, err := store.Create(ctx, models.New(missingID, foundID, 90, testutil.FixedTime.Add(time.Minute)))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, higher.ID)
	assert.Equal(t, 90, higher.ConfidenceScore)
	assert.True(t, higher.Notified)
	assert.Equal(t, models.VerificationPending, higher.VerificationStatus)

	lower, created, err := store.Create(ctx, models.New(missingID, foundID, 70, testutil.FixedTime))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 90, lower.ConfidenceScore)

	all, err := store.List(ctx, models.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateIsAtomicUnderConcurrency(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	missingID, foundID := id.NewMissingPersonID(), id.NewFoundPersonID()

	var inserts atomic.Int32
	result := testutil.RunConcurrent(50, func(idx int) error {
		_, created, err := store.Create(ctx, models.New(missingID, foundID, 70+idx%30, testutil.FixedTime))
		if created {
			inserts.Add(1)
		}
		return err
	})
	assert.Equal(t, int32(50), result.Successes)
	assert.Equal(t, int32(1), inserts.Load(), "only one caller observes the insert")

	m, err := store.FindByPair(ctx, missingID, foundID)
	require.NoError(t, err)
	assert.Equal(t, 99, m.ConfidenceScore)
}

func TestMarkNotified(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	flipped, err := store.MarkNotified(ctx, id.NewMatchID())
	require.NoError(t, err)
	assert.False(t, flipped, "unknown id is a no-op")

	m, _, err := store.Create(ctx, models.New(id.NewMissingPersonID(), id.NewFoundPersonID(), 100, testutil.FixedTime))
	require.NoError(t, err)

	flipped, err = store.MarkNotified(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = store.MarkNotified(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, flipped, "second call leaves notified unchanged")

	got, err := store.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Notified)
}

func TestListFiltersAndOrder(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	missingA, missingB := id.NewMissingPersonID(), id.NewMissingPersonID()

	old, _, err := store.Create(ctx, models.New(missingA, id.NewFoundPersonID(), 75, testutil.FixedTime.Add(-time.Hour)))
	require.NoError(t, err)
	recent, _, err := store.Create(ctx, models.New(missingA, id.NewFoundPersonID(), 90, testutil.FixedTime))
	require.NoError(t, err)
	other, _, err := store.Create(ctx, models.New(missingB, id.NewFoundPersonID(), 100, testutil.FixedTime))
	require.NoError(t, err)
	require.NoError(t, store.UpdateVerificationStatus(ctx, other.ID, models.VerificationVerified))

	all, err := store.List(ctx, models.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, other.ID, all[0].ID)
	assert.Equal(t, recent.ID, all[1].ID)
	assert.Equal(t, old.ID, all[2].ID)

	byMissing, err := store.List(ctx, models.Filter{MissingPersonID: &missingA})
	require.NoError(t, err)
	require.Len(t, byMissing, 2)
	assert.Equal(t, recent.ID, byMissing[0].ID)

	verified := models.VerificationVerified
	byStatus, err := store.List(ctx, models.Filter{VerificationStatus: &verified})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, other.ID, byStatus[0].ID)

	err = store.UpdateVerificationStatus(ctx, id.NewMatchID(), models.VerificationRejected)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = store.FindByPair(ctx, missingB, id.NewFoundPersonID())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}
