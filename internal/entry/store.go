package entry

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// New creates a new entry Store.
func New(db *sql.DB) Store {
	return &store{
		db: db,
	}
}

const entryColumns = `id, user_id, name, gender, status, skill_mu, skill_sigma, match_id, court_number, team, match_count, rest_count, joined_at, updated_at`

// Register creates a pending entry for the user. At most one entry per
// user_id may exist at a time; a second check-in fails with
// ErrAlreadyRegistered so the caller can treat it as an idempotent no-op.
func (s *store) Register(params RegisterParams) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	e := &Entry{
		ID:         uuid.New().String(),
		UserID:     params.UserID,
		Name:       params.Name,
		Gender:     params.Gender,
		Status:     StatusPending,
		SkillMu:    params.SkillMu,
		SkillSigma: params.SkillSigma,
		JoinedAt:   now,
		UpdatedAt:  now,
	}

	var exists bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM entries WHERE user_id = ?)", params.UserID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing entry: %w", err)
	}
	if exists {
		return nil, ErrAlreadyRegistered
	}

	_, err = s.db.Exec(`
		INSERT INTO entries (id, user_id, name, gender, status, skill_mu, skill_sigma, match_count, rest_count, joined_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
	`, e.ID, e.UserID, e.Name, e.Gender, e.Status, e.SkillMu, e.SkillSigma, e.JoinedAt, e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to register entry: %w", err)
	}

	log.Info("Registered player", "userID", e.UserID, "name", e.Name, "entryID", e.ID)
	return e, nil
}

func (s *store) Get(entryID string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanOne(s.db.QueryRow("SELECT "+entryColumns+" FROM entries WHERE id = ?", entryID))
}

func (s *store) GetByUserID(userID string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanOne(s.db.QueryRow("SELECT "+entryColumns+" FROM entries WHERE user_id = ?", userID))
}

// ListByStatus returns a snapshot of entries in the given status. Pending
// entries come back in check-in order, resting entries most-rested first.
func (s *store) ListByStatus(status Status) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := "joined_at ASC"
	if status == StatusResting {
		order = "rest_count DESC"
	}
	rows, err := s.db.Query("SELECT "+entryColumns+" FROM entries WHERE status = ? ORDER BY "+order, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries by status: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *store) ListAll() ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT " + entryColumns + " FROM entries ORDER BY joined_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// TransitionStatus moves one entry through the status machine with a
// conditional write. The UPDATE only matches when the stored status still
// equals from; zero rows affected means a concurrent request won the race.
// The match store does the same transition inline on its own transaction;
// this single-row form serves admin corrections and out-of-band callers.
func (s *store) TransitionStatus(entryID string, from, to Status, placement *Placement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	var result sql.Result
	var err error
	if to == StatusPlaying {
		if placement == nil {
			return fmt.Errorf("transition to %s requires a placement", StatusPlaying)
		}
		result, err = s.db.Exec(`
			UPDATE entries SET status = ?, match_id = ?, court_number = ?, team = ?, updated_at = ?
			WHERE id = ? AND status = ?
		`, to, placement.MatchID, placement.CourtNumber, placement.Team, now, entryID, from)
	} else {
		result, err = s.db.Exec(`
			UPDATE entries SET status = ?, match_id = NULL, court_number = NULL, team = NULL, updated_at = ?
			WHERE id = ? AND status = ?
		`, to, now, entryID, from)
	}
	if err != nil {
		return fmt.Errorf("failed to transition entry status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		log.Debug("Entry status transition rejected", "entryID", entryID, "from", from, "to", to)
		return ErrPreconditionFailed
	}
	return nil
}

// Remove deletes the entry. Leaving mid-match is not allowed; the match has
// to finish (or be force-reset) first.
func (s *store) Remove(entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("DELETE FROM entries WHERE id = ? AND status != ?", entryID, StatusPlaying)
	if err != nil {
		return fmt.Errorf("failed to remove entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM entries WHERE id = ?)", entryID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check entry: %w", err)
		}
		if exists {
			return ErrPlaying
		}
		return ErrNotFound
	}
	log.Info("Removed entry", "entryID", entryID)
	return nil
}

// UpdateRating writes a new skill snapshot onto the entry, keyed by user so
// the caller does not need the surrogate id.
func (s *store) UpdateRating(userID string, mu, sigma float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE entries SET skill_mu = ?, skill_sigma = ?, updated_at = ? WHERE user_id = ?
	`, mu, sigma, time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	return nil
}

func (s *store) scanOne(row *sql.Row) (*Entry, error) {
	e, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

func scanEntry(scanner interface{ Scan(...any) error }) (*Entry, error) {
	var e Entry
	var matchID, team sql.NullString
	var courtNumber sql.NullInt64

	err := scanner.Scan(
		&e.ID, &e.UserID, &e.Name, &e.Gender, &e.Status, &e.SkillMu, &e.SkillSigma,
		&matchID, &courtNumber, &team, &e.MatchCount, &e.RestCount, &e.JoinedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.MatchID = matchID.String
	e.CourtNumber = int(courtNumber.Int64)
	e.Team = Team(team.String)
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			log.Error("Failed to scan entry row", "error", err)
			continue
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
