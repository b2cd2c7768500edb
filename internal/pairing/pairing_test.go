package pairing_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkvist/courtkeeper/internal/database"
	"github.com/tkvist/courtkeeper/internal/entry"
	"github.com/tkvist/courtkeeper/internal/pairing"
)

func activePlayers(n int) []entry.Entry {
	entries := make([]entry.Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, entry.Entry{
			ID:         fmt.Sprintf("e%d", i),
			UserID:     fmt.Sprintf("u%d", i),
			Name:       fmt.Sprintf("Player %d", i),
			SkillMu:    20.0 + float64(i),
			SkillSigma: 2.0,
		})
	}
	return entries
}

func assertValidPairing(t *testing.T, res *pairing.Result, totalPlayers, maxCourts int) {
	t.Helper()

	assert.LessOrEqual(t, len(res.Courts), maxCourts)
	seen := make(map[string]bool)
	for i, c := range res.Courts {
		assert.Equal(t, i+1, c.Number, "courts are numbered 1..N in order")
		require.Len(t, c.TeamA, 2)
		require.Len(t, c.TeamB, 2)
		for _, e := range append(append([]entry.Entry{}, c.TeamA...), c.TeamB...) {
			assert.False(t, seen[e.UserID], "player %s placed twice", e.UserID)
			seen[e.UserID] = true
		}
	}
	for _, w := range res.Waiters {
		assert.False(t, seen[w.UserID], "waiter %s also placed on a court", w.UserID)
		seen[w.UserID] = true
	}
	assert.Len(t, seen, totalPlayers, "every player is either placed or waiting")
}

func TestBalanced_Pair(t *testing.T) {
	strategy := pairing.NewBalanced()

	t.Run("12 players fill 3 courts", func(t *testing.T) {
		res, err := strategy.Pair(activePlayers(12), 3)
		require.NoError(t, err)
		require.Len(t, res.Courts, 3)
		assert.Empty(t, res.Waiters)
		assertValidPairing(t, res, 12, 3)
	})

	t.Run("overflow players become waiters", func(t *testing.T) {
		res, err := strategy.Pair(activePlayers(14), 3)
		require.NoError(t, err)
		require.Len(t, res.Courts, 3)
		assert.Len(t, res.Waiters, 2)
		assertValidPairing(t, res, 14, 3)
	})

	t.Run("court cap rounds down to a multiple of four", func(t *testing.T) {
		res, err := strategy.Pair(activePlayers(10), 3)
		require.NoError(t, err)
		require.Len(t, res.Courts, 2)
		assert.Len(t, res.Waiters, 2)
	})

	t.Run("fewer than four players fails", func(t *testing.T) {
		_, err := strategy.Pair(activePlayers(3), 2)
		assert.ErrorIs(t, err, pairing.ErrInsufficientPlayers)
	})

	t.Run("gaps are modest for a smooth skill spread", func(t *testing.T) {
		res, err := strategy.Pair(activePlayers(8), 2)
		require.NoError(t, err)
		for _, c := range res.Courts {
			// Conservative skills run 14..21 in steps of 1; the greedy
			// coupling keeps opposing sums within a couple of points.
			assert.LessOrEqual(t, c.Gap(), 2.0, "court %d gap too wide", c.Number)
		}
	})
}

func TestSearch_Pair(t *testing.T) {
	strategy := pairing.NewSearch(128)

	res, err := strategy.Pair(activePlayers(12), 3)
	require.NoError(t, err)
	require.Len(t, res.Courts, 3)
	assertValidPairing(t, res, 12, 3)

	t.Run("respects the court cap", func(t *testing.T) {
		res, err := strategy.Pair(activePlayers(16), 2)
		require.NoError(t, err)
		require.Len(t, res.Courts, 2)
		assert.Len(t, res.Waiters, 8)
		assertValidPairing(t, res, 16, 2)
	})

	t.Run("fewer than four players fails", func(t *testing.T) {
		_, err := strategy.Pair(activePlayers(2), 1)
		assert.ErrorIs(t, err, pairing.ErrInsufficientPlayers)
	})
}

func TestAlternator(t *testing.T) {
	db, teardown, err := database.Init(":memory:", "", "")
	require.NoError(t, err)
	defer teardown()

	alt := pairing.NewAlternator(db, pairing.NewBalanced(), pairing.NewSearch(8))

	first, err := alt.Next()
	require.NoError(t, err)
	second, err := alt.Next()
	require.NoError(t, err)
	third, err := alt.Next()
	require.NoError(t, err)

	assert.NotEqual(t, first.Mode(), second.Mode(), "modes alternate")
	assert.Equal(t, first.Mode(), third.Mode(), "alternation cycles")
}

func TestFixed(t *testing.T) {
	fixed := pairing.NewFixed(pairing.NewBalanced())
	s, err := fixed.Next()
	require.NoError(t, err)
	assert.Equal(t, pairing.ModeBalanced, s.Mode())
	s2, err := fixed.Next()
	require.NoError(t, err)
	assert.Equal(t, s.Mode(), s2.Mode())
}
