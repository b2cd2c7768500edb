package match_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkvist/courtkeeper/internal/database"
	"github.com/tkvist/courtkeeper/internal/entry"
	"github.com/tkvist/courtkeeper/internal/match"
	"github.com/tkvist/courtkeeper/internal/pairing"
)

func setupStore(t *testing.T) (match.Store, entry.Store, *sql.DB, func()) {
	t.Helper()
	db, teardown, err := database.Init(":memory:", "", "")
	require.NoError(t, err)
	return match.NewStore(db), entry.New(db), db, teardown
}

func registerPlayers(t *testing.T, entries entry.Store, n int) []entry.Entry {
	t.Helper()
	out := make([]entry.Entry, 0, n)
	for i := 0; i < n; i++ {
		e, err := entries.Register(entry.RegisterParams{
			UserID:     fmt.Sprintf("u%d", i),
			Name:       fmt.Sprintf("Player %d", i),
			SkillMu:    25,
			SkillSigma: 25.0 / 3.0,
		})
		require.NoError(t, err)
		out = append(out, *e)
	}
	return out
}

func courtsOf(players []entry.Entry) []pairing.Court {
	var courts []pairing.Court
	for i := 0; i+3 < len(players); i += 4 {
		courts = append(courts, pairing.Court{
			Number: i/4 + 1,
			TeamA:  []entry.Entry{players[i], players[i+1]},
			TeamB:  []entry.Entry{players[i+2], players[i+3]},
		})
	}
	return courts
}

func TestStart(t *testing.T) {
	store, entries, _, teardown := setupStore(t)
	defer teardown()

	players := registerPlayers(t, entries, 10)
	courts := courtsOf(players[:8])
	resters := players[8:]

	require.NoError(t, store.Start("m1", courts, resters, nil))

	meta, err := store.GetMeta()
	require.NoError(t, err)
	assert.Equal(t, match.MetaPlaying, meta.Status)
	assert.Equal(t, "m1", meta.CurrentMatchID)
	assert.Equal(t, 2, meta.CourtCount)

	playing, err := entries.ListByStatus(entry.StatusPlaying)
	require.NoError(t, err)
	assert.Len(t, playing, 8, "court_count * 4 entries hold the match id")
	for _, e := range playing {
		assert.Equal(t, "m1", e.MatchID)
		assert.NotZero(t, e.CourtNumber)
		assert.NotEmpty(t, e.Team)
	}

	resting, err := entries.ListByStatus(entry.StatusResting)
	require.NoError(t, err)
	require.Len(t, resting, 2)
	assert.Equal(t, 1, resting[0].RestCount)

	t.Run("second start is rejected", func(t *testing.T) {
		err := store.Start("m2", courts, nil, nil)
		assert.ErrorIs(t, err, match.ErrAlreadyPlaying)
	})
}

func TestStart_RollsBackAsAUnit(t *testing.T) {
	store, entries, _, teardown := setupStore(t)
	defer teardown()

	players := registerPlayers(t, entries, 4)

	// One player slipped out of PENDING between pairing and commit.
	require.NoError(t, entries.TransitionStatus(players[3].ID, entry.StatusPending, entry.StatusResting, nil))

	err := store.Start("m1", courtsOf(players), nil, nil)
	require.ErrorIs(t, err, entry.ErrPreconditionFailed)

	// No partial start is observable: meta idle, nobody playing.
	meta, err := store.GetMeta()
	require.NoError(t, err)
	assert.Equal(t, match.MetaIdle, meta.Status)
	assert.Empty(t, meta.CurrentMatchID)

	playing, err := entries.ListByStatus(entry.StatusPlaying)
	require.NoError(t, err)
	assert.Empty(t, playing)
}

func TestStart_RotationCommitFailureRollsBack(t *testing.T) {
	store, entries, _, teardown := setupStore(t)
	defer teardown()

	players := registerPlayers(t, entries, 4)

	failed := errors.New("rest queue moved")
	err := store.Start("m1", courtsOf(players), nil, func(tx *sql.Tx) error {
		return failed
	})
	require.ErrorIs(t, err, failed)

	meta, err := store.GetMeta()
	require.NoError(t, err)
	assert.Equal(t, match.MetaIdle, meta.Status)

	pending, err := entries.ListByStatus(entry.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 4, "nobody was placed on a court")
}

func TestFinish(t *testing.T) {
	store, entries, _, teardown := setupStore(t)
	defer teardown()

	players := registerPlayers(t, entries, 10)
	require.NoError(t, store.Start("m1", courtsOf(players[:8]), players[8:], nil))

	t.Run("wrong match id is rejected", func(t *testing.T) {
		assert.ErrorIs(t, store.Finish("m-other"), match.ErrNoActiveMatch)
	})

	require.NoError(t, store.Finish("m1"))

	meta, err := store.GetMeta()
	require.NoError(t, err)
	assert.Equal(t, match.MetaIdle, meta.Status)
	assert.Equal(t, "m1", meta.LastMatchID)
	assert.Empty(t, meta.CurrentMatchID)

	pending, err := entries.ListByStatus(entry.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 10, "players and resters all return to pending")
	for _, e := range pending {
		assert.Empty(t, e.MatchID)
		assert.Zero(t, e.CourtNumber)
	}

	t.Run("finishing twice is rejected", func(t *testing.T) {
		assert.ErrorIs(t, store.Finish("m1"), match.ErrNoActiveMatch)
	})

	t.Run("match counts were bumped for players only", func(t *testing.T) {
		e, err := entries.GetByUserID("u0")
		require.NoError(t, err)
		assert.Equal(t, 1, e.MatchCount)

		rested, err := entries.GetByUserID("u8")
		require.NoError(t, err)
		assert.Equal(t, 0, rested.MatchCount)
		assert.Equal(t, 1, rested.RestCount)
	})
}

func TestForceReset(t *testing.T) {
	store, entries, _, teardown := setupStore(t)
	defer teardown()

	players := registerPlayers(t, entries, 8)
	require.NoError(t, store.Start("m1", courtsOf(players), nil, nil))

	require.NoError(t, store.ForceReset())

	meta, err := store.GetMeta()
	require.NoError(t, err)
	assert.Equal(t, match.MetaIdle, meta.Status)

	pending, err := entries.ListByStatus(entry.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 8)
}

func TestSubmitResult(t *testing.T) {
	store, _, _, teardown := setupStore(t)
	defer teardown()

	res := &match.Result{
		MatchID:     "m1",
		CourtNumber: 1,
		TeamA:       []match.PlayerSnapshot{{UserID: "u0"}, {UserID: "u1"}},
		TeamB:       []match.PlayerSnapshot{{UserID: "u2"}, {UserID: "u3"}},
		ScoreA:      21,
		ScoreB:      15,
		Winner:      entry.TeamA,
		SubmittedAt: 100,
	}
	require.NoError(t, store.SubmitResult(res))

	t.Run("resubmission overwrites for score correction", func(t *testing.T) {
		res.ScoreA, res.ScoreB, res.Winner = 15, 21, entry.TeamB
		require.NoError(t, store.SubmitResult(res))

		results, err := store.GetResults("m1")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, entry.TeamB, results[0].Winner)
		assert.Equal(t, 15, results[0].ScoreA)
		assert.Equal(t, "u0", results[0].TeamA[0].UserID)
	})
}

func TestAllSubmitted(t *testing.T) {
	store, _, _, teardown := setupStore(t)
	defer teardown()

	submit := func(court int) {
		require.NoError(t, store.SubmitResult(&match.Result{
			MatchID: "m1", CourtNumber: court, ScoreA: 21, ScoreB: 10, Winner: entry.TeamA,
		}))
	}

	done, err := store.AllSubmitted("m1", 2)
	require.NoError(t, err)
	assert.False(t, done)

	submit(1)
	done, err = store.AllSubmitted("m1", 2)
	require.NoError(t, err)
	assert.False(t, done, "one court is not all courts")

	submit(2)
	done, err = store.AllSubmitted("m1", 2)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestMarkRatingApplied(t *testing.T) {
	store, _, _, teardown := setupStore(t)
	defer teardown()

	applied, err := store.MarkRatingApplied("m1", 1, []byte(`{}`))
	require.NoError(t, err)
	assert.True(t, applied, "first claim wins")

	applied, err = store.MarkRatingApplied("m1", 1, []byte(`{}`))
	require.NoError(t, err)
	assert.False(t, applied, "reprocessing the same court is a no-op")

	applied, err = store.MarkRatingApplied("m1", 2, []byte(`{}`))
	require.NoError(t, err)
	assert.True(t, applied, "other courts are independent")
}
