package entry

import (
	"database/sql"
	"errors"
	"sync"
)

// store handles all database operations for check-in entries.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Status is the lifecycle state of a checked-in player.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusResting Status = "RESTING"
	StatusPlaying Status = "PLAYING"
)

// Team identifies one side of a court.
type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

var (
	// ErrAlreadyRegistered is returned when a non-terminated entry already
	// exists for the user.
	ErrAlreadyRegistered = errors.New("user already registered")
	// ErrNotFound is returned when no entry matches the given identifier.
	ErrNotFound = errors.New("entry not found")
	// ErrPreconditionFailed is returned when a conditional status transition
	// finds the stored status no longer matches what the caller read.
	ErrPreconditionFailed = errors.New("entry status precondition failed")
	// ErrPlaying is returned when removing an entry that is mid-match.
	ErrPlaying = errors.New("entry is currently playing")
)

// Entry is one checked-in player's lifecycle record.
type Entry struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	Name        string  `json:"name"`
	Gender      string  `json:"gender,omitempty"`
	Status      Status  `json:"status"`
	SkillMu     float64 `json:"skill_mu"`
	SkillSigma  float64 `json:"skill_sigma"`
	MatchID     string  `json:"match_id,omitempty"`
	CourtNumber int     `json:"court_number,omitempty"`
	Team        Team    `json:"team,omitempty"`
	MatchCount  int     `json:"match_count"`
	RestCount   int     `json:"rest_count"`
	JoinedAt    int64   `json:"joined_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

// ConservativeSkill is the lower-confidence-bound rating used for pairing,
// so new players with uncertain ratings are not over-trusted.
func (e Entry) ConservativeSkill() float64 {
	return e.SkillMu - 3*e.SkillSigma
}

// Placement describes where an entry plays during a match. It is stamped on
// the entry while status is PLAYING and cleared afterwards.
type Placement struct {
	MatchID     string
	CourtNumber int
	Team        Team
}

// RegisterParams carries the profile snapshot taken at check-in.
type RegisterParams struct {
	UserID     string
	Name       string
	Gender     string
	SkillMu    float64
	SkillSigma float64
}
