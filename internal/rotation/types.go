package rotation

import (
	"database/sql"
	"errors"
	"math/rand"
	"sync"

	"github.com/tkvist/courtkeeper/internal/entry"
)

// store persists the singleton rest-rotation queue.
type store struct {
	db   *sql.DB
	mu   sync.Mutex
	rand *rand.Rand
}

// ErrVersionConflict is returned when the queue was modified between read
// and write. The caller retries the whole selection.
var ErrVersionConflict = errors.New("rest queue version conflict")

// State is the persisted rotation bookkeeping returned alongside a
// selection, mostly for observability.
type State struct {
	Generation int `json:"generation"`
	Version    int `json:"version"`
}

// Selection partitions the eligible players for one match round. It is a
// plan until Commit writes it; the unexported fields carry the queue
// remainder and the version the plan was read at.
type Selection struct {
	Active  []entry.Entry
	Resting []entry.Entry
	State   State

	remainder     []string
	newGeneration int
	baseVersion   int
	dirty         bool
}

// Queue decides which eligible players rest next, guaranteeing every player
// rests exactly once per generation before any repeat.
type Queue interface {
	// Select plans which players rest next. Nothing is persisted until the
	// returned selection is passed to Commit, so an abandoned selection
	// leaves the rotation untouched.
	Select(eligible []entry.Entry, waitingCount int) (*Selection, error)
	// Commit consumes the planned resters inside the caller's transaction,
	// conditioned on the version Select read. A lost race surfaces as
	// ErrVersionConflict and rolls back with the caller.
	Commit(tx *sql.Tx, sel *Selection) error
	// Reset clears the queue so the next selection starts a fresh
	// generation. Used by the administrative session reset.
	Reset() error
	State() (*State, error)
}
