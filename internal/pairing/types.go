package pairing

import (
	"errors"

	"github.com/tkvist/courtkeeper/internal/entry"
)

// Mode names a pairing strategy.
type Mode string

const (
	ModeBalanced Mode = "BALANCED"
	ModeSearch   Mode = "SEARCH"
)

// ErrInsufficientPlayers is returned when fewer than four players remain
// after waiter selection.
var ErrInsufficientPlayers = errors.New("not enough players for a match")

// Court is one court's line-up: two players a side.
type Court struct {
	Number int           `json:"number"`
	TeamA  []entry.Entry `json:"team_a"`
	TeamB  []entry.Entry `json:"team_b"`
}

// Gap is the conservative-skill difference between the two teams.
func (c Court) Gap() float64 {
	return abs(teamStrength(c.TeamA) - teamStrength(c.TeamB))
}

// Result is a full pairing: ordered courts plus the players who could not
// be placed and wait alongside the rotation's resters.
type Result struct {
	Courts  []Court       `json:"courts"`
	Waiters []entry.Entry `json:"waiters"`
	Mode    Mode          `json:"mode"`
}

// Strategy partitions active players into courts. Implementations must not
// mutate the input slice.
type Strategy interface {
	Mode() Mode
	Pair(active []entry.Entry, maxCourts int) (*Result, error)
}

func teamStrength(team []entry.Entry) float64 {
	var sum float64
	for _, e := range team {
		sum += e.ConservativeSkill()
	}
	return sum
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// usableCount is the number of players that fit on courts: a multiple of
// four, capped by maxCourts.
func usableCount(total, maxCourts int) int {
	usable := total / 4 * 4
	if usable > maxCourts*4 {
		usable = maxCourts * 4
	}
	return usable
}
