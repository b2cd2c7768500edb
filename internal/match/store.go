package match

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tkvist/courtkeeper/internal/entry"
	"github.com/tkvist/courtkeeper/internal/pairing"
)

// store handles database operations for match orchestration.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore creates a new match Store.
func NewStore(db *sql.DB) Store {
	return &store{
		db: db,
	}
}

func (s *store) GetMeta() (*Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getMeta()
}

func (s *store) getMeta() (*Meta, error) {
	var meta Meta
	var currentMatchID, lastMatchID sql.NullString
	var startedAt, finishedAt sql.NullInt64

	err := s.db.QueryRow(`
		SELECT status, current_match_id, court_count, started_at, finished_at, last_match_id
		FROM match_meta WHERE id = 1
	`).Scan(&meta.Status, &currentMatchID, &meta.CourtCount, &startedAt, &finishedAt, &lastMatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load match meta: %w", err)
	}

	meta.CurrentMatchID = currentMatchID.String
	meta.LastMatchID = lastMatchID.String
	meta.StartedAt = startedAt.Int64
	meta.FinishedAt = finishedAt.Int64
	return &meta, nil
}

// Start is the match-start transaction. Every conditional UPDATE inside it
// must affect exactly one row; a zero-row update means a concurrent request
// changed something first, and the whole start rolls back untouched.
func (s *store) Start(matchID string, courts []pairing.Court, resters []entry.Entry, commitRotation func(*sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin start transaction: %w", err)
	}

	now := time.Now().Unix()
	result, err := tx.Exec(`
		UPDATE match_meta SET status = ?, current_match_id = ?, court_count = ?, started_at = ?, finished_at = NULL
		WHERE id = 1 AND status = ?
	`, MetaPlaying, matchID, len(courts), now, MetaIdle)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to claim match slot: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		tx.Rollback()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		return ErrAlreadyPlaying
	}

	place := func(e entry.Entry, courtNumber int, team entry.Team) error {
		result, err := tx.Exec(`
			UPDATE entries SET status = ?, match_id = ?, court_number = ?, team = ?, updated_at = ?
			WHERE id = ? AND status = ?
		`, entry.StatusPlaying, matchID, courtNumber, team, now, e.ID, entry.StatusPending)
		if err != nil {
			return fmt.Errorf("failed to place entry %s: %w", e.ID, err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		} else if n == 0 {
			return fmt.Errorf("entry %s: %w", e.UserID, entry.ErrPreconditionFailed)
		}
		return nil
	}

	for _, c := range courts {
		for _, e := range c.TeamA {
			if err := place(e, c.Number, entry.TeamA); err != nil {
				tx.Rollback()
				return err
			}
		}
		for _, e := range c.TeamB {
			if err := place(e, c.Number, entry.TeamB); err != nil {
				tx.Rollback()
				return err
			}
		}
	}

	for _, e := range resters {
		result, err := tx.Exec(`
			UPDATE entries SET status = ?, rest_count = rest_count + 1, updated_at = ?
			WHERE id = ? AND status = ?
		`, entry.StatusResting, now, e.ID, entry.StatusPending)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to rest entry %s: %w", e.ID, err)
		}
		if n, err := result.RowsAffected(); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to get rows affected: %w", err)
		} else if n == 0 {
			tx.Rollback()
			return fmt.Errorf("entry %s: %w", e.UserID, entry.ErrPreconditionFailed)
		}
	}

	if commitRotation != nil {
		if err := commitRotation(tx); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit start transaction: %w", err)
	}
	log.Info("Match started", "matchID", matchID, "courts", len(courts), "resting", len(resters))
	return nil
}

// Finish is the match-release transaction, conditioned on the stored
// current_match_id still matching.
func (s *store) Finish(matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin finish transaction: %w", err)
	}

	now := time.Now().Unix()
	result, err := tx.Exec(`
		UPDATE match_meta SET status = ?, current_match_id = NULL, finished_at = ?, last_match_id = ?
		WHERE id = 1 AND status = ? AND current_match_id = ?
	`, MetaIdle, now, matchID, MetaPlaying, matchID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to release match slot: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		tx.Rollback()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		return ErrNoActiveMatch
	}

	_, err = tx.Exec(`
		UPDATE entries SET status = ?, match_id = NULL, court_number = NULL, team = NULL,
			match_count = match_count + 1, updated_at = ?
		WHERE match_id = ? AND status = ?
	`, entry.StatusPending, now, matchID, entry.StatusPlaying)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to release playing entries: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE entries SET status = ?, updated_at = ? WHERE status = ?
	`, entry.StatusPending, now, entry.StatusResting)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to release resting entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit finish transaction: %w", err)
	}
	log.Info("Match finished", "matchID", matchID)
	return nil
}

// ForceReset bypasses the conditional checks. It exists to recover a stuck
// session after a crash mid-match and must stay behind the admin gate.
func (s *store) ForceReset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}

	now := time.Now().Unix()
	if _, err := tx.Exec(`
		UPDATE match_meta SET status = ?, current_match_id = NULL, court_count = 0, finished_at = ?
		WHERE id = 1
	`, MetaIdle, now); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to reset match meta: %w", err)
	}
	if _, err := tx.Exec(`
		UPDATE entries SET status = ?, match_id = NULL, court_number = NULL, team = NULL, updated_at = ?
		WHERE status != ?
	`, entry.StatusPending, now, entry.StatusPending); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to reset entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset transaction: %w", err)
	}
	log.Warn("Match state force-reset")
	return nil
}

// SubmitResult stores one court's outcome, overwriting any earlier
// submission for the same court so scores can be corrected before finish.
func (s *store) SubmitResult(res *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	teamAJSON, err := json.Marshal(res.TeamA)
	if err != nil {
		return fmt.Errorf("failed to marshal team A: %w", err)
	}
	teamBJSON, err := json.Marshal(res.TeamB)
	if err != nil {
		return fmt.Errorf("failed to marshal team B: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO match_results (match_id, court_number, team_a_json, team_b_json, score_a, score_b, winner, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(match_id, court_number) DO UPDATE SET
			team_a_json = excluded.team_a_json,
			team_b_json = excluded.team_b_json,
			score_a = excluded.score_a,
			score_b = excluded.score_b,
			winner = excluded.winner,
			submitted_at = excluded.submitted_at;
	`, res.MatchID, res.CourtNumber, teamAJSON, teamBJSON, res.ScoreA, res.ScoreB, res.Winner, res.SubmittedAt)
	if err != nil {
		return fmt.Errorf("failed to submit result: %w", err)
	}

	log.Info("Court result submitted", "matchID", res.MatchID, "court", res.CourtNumber, "scoreA", res.ScoreA, "scoreB", res.ScoreB)
	return nil
}

func (s *store) GetResults(matchID string) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT match_id, court_number, team_a_json, team_b_json, score_a, score_b, winner, submitted_at
		FROM match_results WHERE match_id = ? ORDER BY court_number ASC
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var res Result
		var teamAJSON, teamBJSON []byte
		err := rows.Scan(&res.MatchID, &res.CourtNumber, &teamAJSON, &teamBJSON, &res.ScoreA, &res.ScoreB, &res.Winner, &res.SubmittedAt)
		if err != nil {
			log.Error("Failed to scan result row", "error", err)
			continue
		}
		if err := json.Unmarshal(teamAJSON, &res.TeamA); err != nil {
			log.Error("Failed to unmarshal team A", "error", err, "matchID", res.MatchID)
		}
		if err := json.Unmarshal(teamBJSON, &res.TeamB); err != nil {
			log.Error("Failed to unmarshal team B", "error", err, "matchID", res.MatchID)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// AllSubmitted reports whether a distinct result exists for every court
// number 1..expectedCourts.
func (s *store) AllSubmitted(matchID string, expectedCourts int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(DISTINCT court_number) FROM match_results
		WHERE match_id = ? AND court_number BETWEEN 1 AND ?
	`, matchID, expectedCourts).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count results: %w", err)
	}
	return count == expectedCourts, nil
}

// MarkRatingApplied claims the rating update for one court. The insert is
// keyed by (match_id, court_number); losing the conflict means an earlier
// finish already applied this update.
func (s *store) MarkRatingApplied(matchID string, courtNumber int, updatesJSON []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`
		INSERT INTO rating_updates (match_id, court_number, updates_json, applied_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(match_id, court_number) DO NOTHING;
	`, matchID, courtNumber, updatesJSON, time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("failed to mark rating applied: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}
