package match

import (
	"errors"

	"github.com/tkvist/courtkeeper/internal/entry"
)

// MetaStatus is the state of the club-wide current-match slot.
type MetaStatus string

const (
	MetaIdle    MetaStatus = "IDLE"
	MetaPlaying MetaStatus = "PLAYING"
)

var (
	// ErrAlreadyPlaying is returned when a match is already in progress.
	ErrAlreadyPlaying = errors.New("a match is already in progress")
	// ErrNoActiveMatch is returned when no match is in progress.
	ErrNoActiveMatch = errors.New("no match in progress")
	// ErrTooManyCourts is returned when the requested pairing would exceed
	// the bounded transaction size. The caller reduces max_courts.
	ErrTooManyCourts = errors.New("pairing exceeds maximum transaction size")
	// ErrIncompleteResults is returned when finishing before every court
	// has a submitted result.
	ErrIncompleteResults = errors.New("not all courts have submitted results")
	// ErrInvalidScore is returned for tied or otherwise impossible scores.
	ErrInvalidScore = errors.New("scores must be distinct")
	// ErrRosterMismatch is returned for a submission naming a court that
	// does not match the entries recorded as playing.
	ErrRosterMismatch = errors.New("submission does not match the recorded court roster")
)

// Meta is the singleton record describing the currently-running match.
type Meta struct {
	Status         MetaStatus `json:"status"`
	CurrentMatchID string     `json:"current_match_id,omitempty"`
	CourtCount     int        `json:"court_count"`
	StartedAt      int64      `json:"started_at,omitempty"`
	FinishedAt     int64      `json:"finished_at,omitempty"`
	LastMatchID    string     `json:"last_match_id,omitempty"`
}

// PlayerSnapshot freezes a player's identity and rating at match time, so
// results stay meaningful after ratings move.
type PlayerSnapshot struct {
	UserID string  `json:"user_id"`
	Name   string  `json:"name"`
	Mu     float64 `json:"mu"`
	Sigma  float64 `json:"sigma"`
}

// Result is one court's submitted outcome.
type Result struct {
	MatchID     string           `json:"match_id"`
	CourtNumber int              `json:"court_number"`
	TeamA       []PlayerSnapshot `json:"team_a"`
	TeamB       []PlayerSnapshot `json:"team_b"`
	ScoreA      int              `json:"score_a"`
	ScoreB      int              `json:"score_b"`
	Winner      entry.Team       `json:"winner"`
	SubmittedAt int64            `json:"submitted_at"`
}

// CourtView is one court's roster in the read-only projection of the
// active match.
type CourtView struct {
	Number int           `json:"number"`
	TeamA  []entry.Entry `json:"team_a"`
	TeamB  []entry.Entry `json:"team_b"`
}

// View is the current match as shown to players: per-court rosters plus
// who is resting.
type View struct {
	MatchID string        `json:"match_id"`
	Courts  []CourtView   `json:"courts"`
	Resting []entry.Entry `json:"resting,omitempty"`
	Mode    string        `json:"mode,omitempty"`
}
