package dimensions

import "github.com/nvandessel/smesim/internal/randstream"

// Resilience builds shock resistance and applies idiosyncratic revenue shocks.
//
// Each agent draws twice: once for a resilience improvement, once for a shock.
// A shock cuts revenue by shock_impact_factor, reduced in proportion to the
// agent's resilience times resilience_mitigation_factor.
type Resilience struct{}

func (Resilience) Name() string { return StageResilience }

func (Resilience) ApplyYear(y *Year) error {
	res := y.Params.Resilience

	for i := range y.Agents {
		a := &y.Agents[i]
		a.ShockedThisYear = false

		if y.Rand.Bernoulli(res.ResilienceImprovementProb) {
			a.ResilienceScore = randstream.Clamp01(a.ResilienceScore + res.ResilienceImprovementAmount)
			y.Tally.ResilienceGains++
		}

		if y.Rand.Bernoulli(res.ShockEventProb) {
			impact := res.ShockImpactFactor * (1 - a.ResilienceScore*res.ResilienceMitigationFactor)
			scale(a, 1-randstream.Clamp01(impact))
			a.ShockedThisYear = true
			y.Tally.Shocked++
		}
	}
	return nil
}
