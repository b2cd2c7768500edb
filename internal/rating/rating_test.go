package rating_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkvist/courtkeeper/internal/rating"
)

func fresh() []rating.Rating {
	return []rating.Rating{
		{Mu: rating.DefaultMu, Sigma: rating.DefaultSigma},
		{Mu: rating.DefaultMu, Sigma: rating.DefaultSigma},
	}
}

func TestUpdate_WinnersUpLosersDown(t *testing.T) {
	engine := rating.New(rating.DefaultMu)

	winners, losers := engine.Update(fresh(), fresh())
	require.Len(t, winners, 2)
	require.Len(t, losers, 2)

	for _, r := range winners {
		assert.Greater(t, r.Mu, rating.DefaultMu)
		assert.Less(t, r.Sigma, rating.DefaultSigma, "uncertainty shrinks after a result")
	}
	for _, r := range losers {
		assert.Less(t, r.Mu, rating.DefaultMu)
		assert.Less(t, r.Sigma, rating.DefaultSigma)
	}
}

func TestUpdate_SurprisingResultMovesMore(t *testing.T) {
	engine := rating.New(rating.DefaultMu)

	strong := []rating.Rating{{Mu: 35, Sigma: 4}, {Mu: 34, Sigma: 4}}
	weak := []rating.Rating{{Mu: 15, Sigma: 4}, {Mu: 16, Sigma: 4}}

	// Expected result: strong beats weak.
	expectedWinners, _ := engine.Update(strong, weak)
	expectedDelta := expectedWinners[0].Mu - strong[0].Mu

	// Upset: weak beats strong.
	upsetWinners, _ := engine.Update(weak, strong)
	upsetDelta := upsetWinners[0].Mu - weak[0].Mu

	assert.Greater(t, upsetDelta, expectedDelta, "an upset moves ratings further than an expected win")
	assert.Greater(t, expectedDelta, 0.0, "even an expected win nudges mu upward")
}

func TestUpdate_UncertainPlayersMoveMore(t *testing.T) {
	engine := rating.New(rating.DefaultMu)

	winners := []rating.Rating{
		{Mu: 25, Sigma: 8},
		{Mu: 25, Sigma: 2},
	}
	newWinners, _ := engine.Update(winners, fresh())

	uncertainDelta := newWinners[0].Mu - winners[0].Mu
	confidentDelta := newWinners[1].Mu - winners[1].Mu
	assert.Greater(t, uncertainDelta, confidentDelta)
}

func TestUpdate_SigmaNeverBelowFloor(t *testing.T) {
	engine := rating.New(rating.DefaultMu)

	winners := fresh()
	losers := fresh()
	for i := 0; i < 500; i++ {
		winners, losers = engine.Update(winners, losers)
	}
	for _, r := range append(winners, losers...) {
		assert.Greater(t, r.Sigma, 0.0, "sigma is floored, never zero")
	}
}

func TestUpdate_DoesNotMutateInput(t *testing.T) {
	engine := rating.New(rating.DefaultMu)

	winners := fresh()
	losers := fresh()
	engine.Update(winners, losers)

	assert.Equal(t, rating.DefaultMu, winners[0].Mu)
	assert.Equal(t, rating.DefaultSigma, winners[0].Sigma)
	assert.Equal(t, rating.DefaultMu, losers[0].Mu)
}

func TestConservative(t *testing.T) {
	r := rating.Rating{Mu: 25, Sigma: 5}
	assert.InDelta(t, 10.0, r.Conservative(), 1e-9)
}
