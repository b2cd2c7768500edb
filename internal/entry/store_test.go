package entry_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkvist/courtkeeper/internal/database"
	"github.com/tkvist/courtkeeper/internal/entry"
)

// setupTestDB creates a temporary in-memory SQLite database for testing.
func setupTestDB(t *testing.T) (entry.Store, *sql.DB, func()) {
	t.Helper()

	db, dbTeardown, err := database.Init(":memory:", "", "")
	require.NoError(t, err)

	return entry.New(db), db, dbTeardown
}

func register(t *testing.T, store entry.Store, userID, name string) *entry.Entry {
	t.Helper()
	e, err := store.Register(entry.RegisterParams{
		UserID:     userID,
		Name:       name,
		SkillMu:    25.0,
		SkillSigma: 25.0 / 3.0,
	})
	require.NoError(t, err)
	return e
}

func TestRegister(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	e := register(t, store, "u1", "Alice")
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, entry.StatusPending, e.Status)

	t.Run("duplicate check-in is rejected", func(t *testing.T) {
		_, err := store.Register(entry.RegisterParams{UserID: "u1", Name: "Alice"})
		assert.ErrorIs(t, err, entry.ErrAlreadyRegistered)
	})

	t.Run("re-register after leave succeeds", func(t *testing.T) {
		require.NoError(t, store.Remove(e.ID))
		e2 := register(t, store, "u1", "Alice")
		assert.NotEqual(t, e.ID, e2.ID)
	})
}

func TestListByStatus(t *testing.T) {
	store, db, teardown := setupTestDB(t)
	defer teardown()

	register(t, store, "u1", "Alice")
	register(t, store, "u2", "Bob")
	register(t, store, "u3", "Carol")

	pending, err := store.ListByStatus(entry.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	t.Run("resting entries come back most-rested first", func(t *testing.T) {
		_, err := db.Exec("UPDATE entries SET status = 'RESTING', rest_count = 2 WHERE user_id = 'u1'")
		require.NoError(t, err)
		_, err = db.Exec("UPDATE entries SET status = 'RESTING', rest_count = 5 WHERE user_id = 'u2'")
		require.NoError(t, err)

		resting, err := store.ListByStatus(entry.StatusResting)
		require.NoError(t, err)
		require.Len(t, resting, 2)
		assert.Equal(t, "u2", resting[0].UserID)
		assert.Equal(t, "u1", resting[1].UserID)
	})
}

func TestTransitionStatus(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	e := register(t, store, "u1", "Alice")

	placement := &entry.Placement{MatchID: "m1", CourtNumber: 2, Team: entry.TeamB}
	require.NoError(t, store.TransitionStatus(e.ID, entry.StatusPending, entry.StatusPlaying, placement))

	got, err := store.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.StatusPlaying, got.Status)
	assert.Equal(t, "m1", got.MatchID)
	assert.Equal(t, 2, got.CourtNumber)
	assert.Equal(t, entry.TeamB, got.Team)

	t.Run("stale precondition is rejected", func(t *testing.T) {
		err := store.TransitionStatus(e.ID, entry.StatusPending, entry.StatusPlaying, placement)
		assert.ErrorIs(t, err, entry.ErrPreconditionFailed)
	})

	t.Run("leaving playing clears placement", func(t *testing.T) {
		require.NoError(t, store.TransitionStatus(e.ID, entry.StatusPlaying, entry.StatusPending, nil))
		got, err := store.Get(e.ID)
		require.NoError(t, err)
		assert.Equal(t, entry.StatusPending, got.Status)
		assert.Empty(t, got.MatchID)
		assert.Zero(t, got.CourtNumber)
		assert.Empty(t, got.Team)
	})
}

func TestRemove(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	e := register(t, store, "u1", "Alice")

	t.Run("cannot leave mid-match", func(t *testing.T) {
		placement := &entry.Placement{MatchID: "m1", CourtNumber: 1, Team: entry.TeamA}
		require.NoError(t, store.TransitionStatus(e.ID, entry.StatusPending, entry.StatusPlaying, placement))
		assert.ErrorIs(t, store.Remove(e.ID), entry.ErrPlaying)
		require.NoError(t, store.TransitionStatus(e.ID, entry.StatusPlaying, entry.StatusPending, nil))
	})

	require.NoError(t, store.Remove(e.ID))
	_, err := store.Get(e.ID)
	assert.ErrorIs(t, err, entry.ErrNotFound)

	t.Run("removing twice reports not found", func(t *testing.T) {
		assert.ErrorIs(t, store.Remove(e.ID), entry.ErrNotFound)
	})
}

func TestUpdateRating(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	register(t, store, "u1", "Alice")
	require.NoError(t, store.UpdateRating("u1", 27.5, 7.1))

	got, err := store.GetByUserID("u1")
	require.NoError(t, err)
	assert.InDelta(t, 27.5, got.SkillMu, 1e-9)
	assert.InDelta(t, 7.1, got.SkillSigma, 1e-9)
}

func TestConservativeSkill(t *testing.T) {
	e := entry.Entry{SkillMu: 25.0, SkillSigma: 8.0}
	assert.InDelta(t, 1.0, e.ConservativeSkill(), 1e-9)
}
