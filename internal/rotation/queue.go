package rotation

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tkvist/courtkeeper/internal/entry"
)

// New creates a new rotation Queue.
func New(db *sql.DB) Queue {
	return &store{
		db:   db,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Select picks waitingCount resters from the head of the persisted rotation
// order and returns the remainder as the active set. The queue itself is not
// touched: the consumption is written by Commit, inside the same transaction
// that starts the match, so a failed start cannot eat anyone's rest.
func (s *store) Select(eligible []entry.Entry, waitingCount int) (*Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, generation, version, err := s.load()
	if err != nil {
		return nil, err
	}

	if waitingCount == 0 {
		return &Selection{
			Active: eligible,
			State:  State{Generation: generation, Version: version},
		}, nil
	}
	if waitingCount > len(eligible) {
		return nil, fmt.Errorf("cannot rest %d of %d eligible players", waitingCount, len(eligible))
	}

	byUser := make(map[string]entry.Entry, len(eligible))
	for _, e := range eligible {
		byUser[e.UserID] = e
	}

	// Drop anyone who checked out mid-cycle.
	pruned := queue[:0]
	for _, userID := range queue {
		if _, ok := byUser[userID]; ok {
			pruned = append(pruned, userID)
		}
	}
	queue = pruned

	// Queue exhausted (or too small for the request): start a new cycle
	// with a uniformly random permutation of everyone eligible. Fairness is
	// by rotation, not by probability. Players still owed a rest from the
	// outgoing cycle stay at the head so nobody repeats before they sit out.
	if len(queue) < waitingCount {
		carried := make(map[string]bool, len(queue))
		for _, userID := range queue {
			carried[userID] = true
		}
		fresh := make([]string, 0, len(eligible))
		for _, e := range eligible {
			if !carried[e.UserID] {
				fresh = append(fresh, e.UserID)
			}
		}
		s.rand.Shuffle(len(fresh), func(i, j int) {
			fresh[i], fresh[j] = fresh[j], fresh[i]
		})
		queue = append(queue, fresh...)
		generation++
		log.Info("Rest rotation reshuffled", "generation", generation, "players", len(queue))
	}

	restingIDs := queue[:waitingCount]
	remainder := append([]string{}, queue[waitingCount:]...)

	restingSet := make(map[string]bool, len(restingIDs))
	resting := make([]entry.Entry, 0, len(restingIDs))
	for _, userID := range restingIDs {
		restingSet[userID] = true
		resting = append(resting, byUser[userID])
	}
	active := make([]entry.Entry, 0, len(eligible)-len(resting))
	for _, e := range eligible {
		if !restingSet[e.UserID] {
			active = append(active, e)
		}
	}

	return &Selection{
		Active:  active,
		Resting: resting,
		State:   State{Generation: generation, Version: version},

		remainder:     remainder,
		newGeneration: generation,
		baseVersion:   version,
		dirty:         true,
	}, nil
}

// Commit writes the queue consumption planned by Select. It runs on the
// caller's transaction so the rotation advances if and only if the match
// start commits.
func (s *store) Commit(tx *sql.Tx, sel *Selection) error {
	if sel == nil || !sel.dirty {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	queueJSON, err := json.Marshal(sel.remainder)
	if err != nil {
		return fmt.Errorf("failed to marshal rest queue: %w", err)
	}

	result, err := tx.Exec(`
		UPDATE rest_queue SET queue_json = ?, generation = ?, version = version + 1
		WHERE id = 1 AND version = ?
	`, string(queueJSON), sel.newGeneration, sel.baseVersion)
	if err != nil {
		return fmt.Errorf("failed to persist rest queue: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		log.Debug("Rest queue write rejected", "expected_version", sel.baseVersion)
		return ErrVersionConflict
	}
	return nil
}

func (s *store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE rest_queue SET queue_json = '[]', generation = 0, version = version + 1 WHERE id = 1")
	if err != nil {
		return fmt.Errorf("failed to reset rest queue: %w", err)
	}
	log.Info("Rest rotation reset")
	return nil
}

func (s *store) State() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, generation, version, err := s.load()
	if err != nil {
		return nil, err
	}
	return &State{Generation: generation, Version: version}, nil
}

func (s *store) load() ([]string, int, int, error) {
	var queueJSON string
	var generation, version int
	err := s.db.QueryRow("SELECT queue_json, generation, version FROM rest_queue WHERE id = 1").Scan(&queueJSON, &generation, &version)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to load rest queue: %w", err)
	}

	var queue []string
	if err := json.Unmarshal([]byte(queueJSON), &queue); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to unmarshal rest queue: %w", err)
	}
	return queue, generation, version, nil
}
