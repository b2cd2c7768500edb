package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_CreatesTables(t *testing.T) {
	db, teardown, err := Init(":memory:", "", "")
	require.NoError(t, err, "Init should not return an error")
	defer teardown()

	for _, table := range []string{"entries", "rest_queue", "match_meta", "match_results", "rating_updates", "pairing_mode"} {
		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "querying for %s table should not produce an error", table)
		assert.Equal(t, table, name)
	}
}

func TestInit_SeedsSingletons(t *testing.T) {
	db, teardown, err := Init(":memory:", "", "")
	require.NoError(t, err)
	defer teardown()

	var version, generation int
	err = db.QueryRow("SELECT version, generation FROM rest_queue WHERE id = 1").Scan(&version, &generation)
	require.NoError(t, err)
	assert.Equal(t, 0, version)
	assert.Equal(t, 0, generation)

	var status string
	err = db.QueryRow("SELECT status FROM match_meta WHERE id = 1").Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, "IDLE", status)
}
