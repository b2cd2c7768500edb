package rotation_test

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkvist/courtkeeper/internal/database"
	"github.com/tkvist/courtkeeper/internal/entry"
	"github.com/tkvist/courtkeeper/internal/rotation"
)

func setupQueue(t *testing.T) (rotation.Queue, *sql.DB, func()) {
	t.Helper()
	db, teardown, err := database.Init(":memory:", "", "")
	require.NoError(t, err)
	return rotation.New(db), db, teardown
}

func players(n int) []entry.Entry {
	entries := make([]entry.Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, entry.Entry{
			ID:     fmt.Sprintf("e%d", i),
			UserID: fmt.Sprintf("u%d", i),
		})
	}
	return entries
}

// selectAndCommit runs a full selection round the way the orchestrator
// does: plan the split, then consume the queue inside a transaction.
func selectAndCommit(t *testing.T, q rotation.Queue, db *sql.DB, eligible []entry.Entry, waiting int) *rotation.Selection {
	t.Helper()
	sel, err := q.Select(eligible, waiting)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, q.Commit(tx, sel))
	require.NoError(t, tx.Commit())
	return sel
}

func TestSelect_ZeroWaitersIsNoOp(t *testing.T) {
	q, db, teardown := setupQueue(t)
	defer teardown()

	sel := selectAndCommit(t, q, db, players(8), 0)
	assert.Len(t, sel.Active, 8)
	assert.Empty(t, sel.Resting)

	state, err := q.State()
	require.NoError(t, err)
	assert.Equal(t, 0, state.Version, "queue must be unchanged")
}

func TestSelect_SplitsActiveAndResting(t *testing.T) {
	q, db, teardown := setupQueue(t)
	defer teardown()

	sel := selectAndCommit(t, q, db, players(16), 4)
	assert.Len(t, sel.Resting, 4)
	assert.Len(t, sel.Active, 12)
	assert.Equal(t, 1, sel.State.Generation, "first selection starts generation 1")

	seen := make(map[string]bool)
	for _, e := range append(sel.Active, sel.Resting...) {
		assert.False(t, seen[e.UserID], "player %s appears twice", e.UserID)
		seen[e.UserID] = true
	}
	assert.Len(t, seen, 16)
}

func TestSelect_UncommittedPlanLeavesQueueUntouched(t *testing.T) {
	q, db, teardown := setupQueue(t)
	defer teardown()

	eligible := players(8)
	first := selectAndCommit(t, q, db, eligible, 2)

	// Plan another round but never commit it, as happens when the match
	// start transaction fails.
	_, err := q.Select(eligible, 2)
	require.NoError(t, err)

	state, err := q.State()
	require.NoError(t, err)
	assert.Equal(t, 1, state.Version, "abandoned plan must not advance the queue")

	// The next committed round picks up where the first left off, so
	// nobody rests twice within the generation.
	second := selectAndCommit(t, q, db, eligible, 2)
	for _, e := range second.Resting {
		for _, r := range first.Resting {
			assert.NotEqual(t, r.UserID, e.UserID, "player %s rested twice in one generation", e.UserID)
		}
	}
}

func TestCommit_StaleVersionConflicts(t *testing.T) {
	q, db, teardown := setupQueue(t)
	defer teardown()

	eligible := players(8)
	stale, err := q.Select(eligible, 2)
	require.NoError(t, err)

	// Another selection commits first.
	selectAndCommit(t, q, db, eligible, 2)

	tx, err := db.Begin()
	require.NoError(t, err)
	err = q.Commit(tx, stale)
	assert.ErrorIs(t, err, rotation.ErrVersionConflict)
	require.NoError(t, tx.Rollback())
}

// Every eligible player must rest exactly once per generation before any
// repeat, for any N >= waitingCount >= 1.
func TestSelect_RotationCompleteness(t *testing.T) {
	for _, tc := range []struct {
		n, waiting int
	}{
		{16, 4},
		{12, 3},
		{10, 4},
		{5, 1},
	} {
		t.Run(fmt.Sprintf("n=%d_waiting=%d", tc.n, tc.waiting), func(t *testing.T) {
			q, db, teardown := setupQueue(t)
			defer teardown()

			eligible := players(tc.n)
			rested := make(map[string]int)
			rounds := (tc.n + tc.waiting - 1) / tc.waiting

			for i := 0; i < rounds; i++ {
				sel := selectAndCommit(t, q, db, eligible, tc.waiting)
				for _, e := range sel.Resting {
					rested[e.UserID]++
				}
			}

			for _, count := range rested {
				assert.LessOrEqual(t, count, 2, "no player rests three times this early")
			}
			assert.Len(t, rested, tc.n, "every player rested at least once")

			// The final round may reshuffle mid-way when n is not a
			// multiple of waiting; everyone still rested before then.
			total := 0
			for _, count := range rested {
				total += count
			}
			assert.Equal(t, rounds*tc.waiting, total)
		})
	}
}

func TestSelect_PrunesDepartedPlayers(t *testing.T) {
	q, db, teardown := setupQueue(t)
	defer teardown()

	eligible := players(8)
	sel := selectAndCommit(t, q, db, eligible, 2)

	// Drop everyone who has not yet rested except two; the queue must not
	// hand back departed players.
	remaining := []entry.Entry{sel.Active[0], sel.Active[1]}
	sel2 := selectAndCommit(t, q, db, remaining, 1)
	require.Len(t, sel2.Resting, 1)
	assert.Contains(t, []string{remaining[0].UserID, remaining[1].UserID}, sel2.Resting[0].UserID)
}

func TestSelect_TooManyWaiters(t *testing.T) {
	q, _, teardown := setupQueue(t)
	defer teardown()

	_, err := q.Select(players(3), 4)
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	q, db, teardown := setupQueue(t)
	defer teardown()

	selectAndCommit(t, q, db, players(8), 2)

	require.NoError(t, q.Reset())
	state, err := q.State()
	require.NoError(t, err)
	assert.Equal(t, 0, state.Generation)
}
