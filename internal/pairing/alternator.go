package pairing

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Policy decides which strategy pairs the next match.
type Policy interface {
	Next() (Strategy, error)
}

// Alternator flips between its strategies match-to-match so the greedy
// groupings do not go stale. The last mode used is persisted in its own
// one-row table, separate from the rotation queue.
type Alternator struct {
	db         *sql.DB
	mu         sync.Mutex
	strategies []Strategy
}

func NewAlternator(db *sql.DB, strategies ...Strategy) *Alternator {
	if len(strategies) == 0 {
		strategies = []Strategy{NewBalanced(), NewSearch(0)}
	}
	return &Alternator{
		db:         db,
		strategies: strategies,
	}
}

func (a *Alternator) Next() (Strategy, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var lastMode string
	err := a.db.QueryRow("SELECT last_mode FROM pairing_mode WHERE id = 1").Scan(&lastMode)
	if err != nil {
		return nil, fmt.Errorf("failed to load pairing mode: %w", err)
	}

	next := a.strategies[0]
	for i, s := range a.strategies {
		if string(s.Mode()) == lastMode {
			next = a.strategies[(i+1)%len(a.strategies)]
			break
		}
	}

	_, err = a.db.Exec("UPDATE pairing_mode SET last_mode = ? WHERE id = 1", string(next.Mode()))
	if err != nil {
		return nil, fmt.Errorf("failed to persist pairing mode: %w", err)
	}

	log.Debug("Selected pairing strategy", "mode", next.Mode())
	return next, nil
}

// Fixed always returns the same strategy. Used when an operator pins a mode.
type Fixed struct {
	strategy Strategy
}

func NewFixed(s Strategy) *Fixed {
	return &Fixed{strategy: s}
}

func (f *Fixed) Next() (Strategy, error) {
	return f.strategy, nil
}
