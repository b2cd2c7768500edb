package pairing

import (
	"sort"

	"github.com/charmbracelet/log"
	"github.com/tkvist/courtkeeper/internal/entry"
)

// BalancedStrategy pairs greedily on conservative skill: each team couples
// a strong player with a weak one, then teams of similar strength meet on
// the same court.
type BalancedStrategy struct{}

func NewBalanced() *BalancedStrategy {
	return &BalancedStrategy{}
}

func (b *BalancedStrategy) Mode() Mode {
	return ModeBalanced
}

func (b *BalancedStrategy) Pair(active []entry.Entry, maxCourts int) (*Result, error) {
	usable := usableCount(len(active), maxCourts)
	if usable < 4 {
		return nil, ErrInsufficientPlayers
	}

	// Anyone beyond the court capacity waits this round, last-come first.
	players := make([]entry.Entry, usable)
	copy(players, active[:usable])
	waiters := append([]entry.Entry{}, active[usable:]...)

	sort.Slice(players, func(i, j int) bool {
		return players[i].ConservativeSkill() > players[j].ConservativeSkill()
	})

	// Couple strongest with weakest so team sums stay close.
	teamCount := usable / 2
	teams := make([][]entry.Entry, 0, teamCount)
	for i := 0; i < teamCount; i++ {
		teams = append(teams, []entry.Entry{players[i], players[usable-1-i]})
	}

	// Adjacent teams in strength order meet on the same court.
	sort.SliceStable(teams, func(i, j int) bool {
		return teamStrength(teams[i]) > teamStrength(teams[j])
	})

	courts := make([]Court, 0, teamCount/2)
	for i := 0; i < teamCount; i += 2 {
		courts = append(courts, Court{
			Number: i/2 + 1,
			TeamA:  teams[i],
			TeamB:  teams[i+1],
		})
	}

	balanceGenders(courts)

	for _, c := range courts {
		log.Debug("Paired court", "court", c.Number, "gap", c.Gap(), "mode", ModeBalanced)
	}
	return &Result{Courts: courts, Waiters: waiters, Mode: ModeBalanced}, nil
}

// balanceGenders swaps opposing teams between consecutive courts when the
// swap leaves the skill gaps unchanged but spreads genders more evenly.
// Soft preference only: skill balance always wins.
func balanceGenders(courts []Court) {
	const epsilon = 1e-9
	for i := 0; i+1 < len(courts); i++ {
		a, b := courts[i], courts[i+1]
		gapBefore := a.Gap() + b.Gap()

		swapped := []Court{
			{Number: a.Number, TeamA: a.TeamA, TeamB: b.TeamA},
			{Number: b.Number, TeamA: a.TeamB, TeamB: b.TeamB},
		}
		gapAfter := swapped[0].Gap() + swapped[1].Gap()
		if abs(gapAfter-gapBefore) > epsilon {
			continue
		}
		if genderImbalance(swapped[0])+genderImbalance(swapped[1]) < genderImbalance(a)+genderImbalance(b) {
			courts[i], courts[i+1] = swapped[0], swapped[1]
		}
	}
}

// genderImbalance counts how unevenly one gender is spread across the two
// teams of a court.
func genderImbalance(c Court) int {
	count := func(team []entry.Entry) int {
		n := 0
		for _, e := range team {
			if e.Gender == "f" {
				n++
			}
		}
		return n
	}
	diff := count(c.TeamA) - count(c.TeamB)
	if diff < 0 {
		diff = -diff
	}
	return diff
}
