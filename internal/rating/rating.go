// Package rating applies a Bayesian two-team skill update in the TrueSkill
// family: each player carries a mean (mu) and an uncertainty (sigma), the
// winning team's means go up, the losing team's go down, and everyone's
// uncertainty shrinks toward a floor. How far a mean moves is proportional
// to that player's own uncertainty and to how surprising the result was
// given the pre-match ratings.
package rating

import (
	"math"

	"github.com/charmbracelet/log"
)

const (
	// DefaultMu is the prior mean for a brand-new player.
	DefaultMu = 25.0
	// DefaultSigma is the prior uncertainty, mu/3.
	DefaultSigma = DefaultMu / 3.0
	// sigmaFloor keeps ratings adaptable indefinitely.
	sigmaFloor = 0.1
)

// Rating is one player's skill estimate.
type Rating struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

// Conservative is the lower-confidence-bound estimate used wherever a
// single comparable number is needed.
func (r Rating) Conservative() float64 {
	return r.Mu - 3*r.Sigma
}

// Engine computes post-match ratings.
type Engine struct {
	// beta is the per-player performance variance; a skill difference of
	// beta means roughly 76% win probability.
	beta float64
	// tau is additive dynamics noise, so sigma never collapses entirely.
	tau float64
}

// New creates an Engine derived from the configured initial mu, following
// the conventional beta = mu/6, tau = mu/300 scaling.
func New(initialMu float64) *Engine {
	if initialMu <= 0 {
		initialMu = DefaultMu
	}
	return &Engine{
		beta: initialMu / 6.0,
		tau:  initialMu / 300.0,
	}
}

// Update computes new ratings for a finished two-versus-two court. The
// winners slice and losers slice each hold two pre-match ratings; the
// returned slices are in the same order. The input is never mutated.
func (e *Engine) Update(winners, losers []Rating) (newWinners, newLosers []Rating) {
	// Dynamics noise is added before the update so long-standing ratings
	// stay movable.
	w := addDynamics(winners, e.tau)
	l := addDynamics(losers, e.tau)

	var muW, muL, varSum float64
	for _, r := range w {
		muW += r.Mu
		varSum += r.Sigma * r.Sigma
	}
	for _, r := range l {
		muL += r.Mu
		varSum += r.Sigma * r.Sigma
	}

	n := float64(len(w) + len(l))
	c := math.Sqrt(varSum + n*e.beta*e.beta)
	t := (muW - muL) / c

	v := vWin(t)
	wCoeff := v * (v + t)

	update := func(r Rating, sign float64) Rating {
		variance := r.Sigma * r.Sigma
		mu := r.Mu + sign*(variance/c)*v
		sigmaSq := variance * (1 - (variance/(c*c))*wCoeff)
		sigma := math.Sqrt(math.Max(sigmaSq, sigmaFloor*sigmaFloor))
		return Rating{Mu: mu, Sigma: sigma}
	}

	newWinners = make([]Rating, len(w))
	for i, r := range w {
		newWinners[i] = update(r, +1)
	}
	newLosers = make([]Rating, len(l))
	for i, r := range l {
		newLosers[i] = update(r, -1)
	}

	log.Debug("Computed rating update", "surprise", t, "v", v)
	return newWinners, newLosers
}

func addDynamics(ratings []Rating, tau float64) []Rating {
	out := make([]Rating, len(ratings))
	for i, r := range ratings {
		out[i] = Rating{
			Mu:    r.Mu,
			Sigma: math.Sqrt(r.Sigma*r.Sigma + tau*tau),
		}
	}
	return out
}

// vWin is the additive correction for a win: pdf(t)/cdf(t) of the standard
// normal. Large when the win was surprising (t very negative), near zero
// when it was expected.
func vWin(t float64) float64 {
	denom := cdf(t)
	if denom < 1e-300 {
		// Far tail: pdf/cdf asymptotically approaches -t.
		return -t
	}
	return pdf(t) / denom
}

func pdf(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

func cdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
