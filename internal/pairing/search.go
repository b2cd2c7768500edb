package pairing

import (
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tkvist/courtkeeper/internal/entry"
)

// SearchStrategy runs a fixed number of randomized trial pairings and keeps
// the one with the lowest total cross-court skill-gap variance. Slower than
// the greedy strategy but escapes its deterministic groupings, so the same
// people are not always paired together.
type SearchStrategy struct {
	trials int
	rand   *rand.Rand
}

func NewSearch(trials int) *SearchStrategy {
	if trials <= 0 {
		trials = 64
	}
	return &SearchStrategy{
		trials: trials,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *SearchStrategy) Mode() Mode {
	return ModeSearch
}

func (s *SearchStrategy) Pair(active []entry.Entry, maxCourts int) (*Result, error) {
	usable := usableCount(len(active), maxCourts)
	if usable < 4 {
		return nil, ErrInsufficientPlayers
	}

	players := make([]entry.Entry, usable)
	copy(players, active[:usable])
	waiters := append([]entry.Entry{}, active[usable:]...)

	var best []Court
	bestCost := 0.0
	for trial := 0; trial < s.trials; trial++ {
		s.rand.Shuffle(len(players), func(i, j int) {
			players[i], players[j] = players[j], players[i]
		})

		courts := make([]Court, 0, usable/4)
		for i := 0; i < usable; i += 4 {
			courts = append(courts, Court{
				Number: i/4 + 1,
				TeamA:  []entry.Entry{players[i], players[i+1]},
				TeamB:  []entry.Entry{players[i+2], players[i+3]},
			})
		}

		cost := gapVariance(courts)
		if best == nil || cost < bestCost {
			best = courts
			bestCost = cost
		}
	}

	log.Debug("Search pairing selected", "trials", s.trials, "cost", bestCost)
	return &Result{Courts: best, Waiters: waiters, Mode: ModeSearch}, nil
}

// gapVariance scores a candidate pairing: the second moment of per-court
// gaps, so one lopsided court costs more than several mild ones.
func gapVariance(courts []Court) float64 {
	var sum float64
	for _, c := range courts {
		gap := c.Gap()
		sum += gap * gap
	}
	return sum / float64(len(courts))
}
