package dimensions

import "github.com/nvandessel/smesim/internal/randstream"

// Sustainability handles green practice adoption. Adoption costs a share of
// revenue once and strengthens resilience.
type Sustainability struct{}

func (Sustainability) Name() string { return StageSustainability }

func (Sustainability) ApplyYear(y *Year) error {
	sus := y.Params.Sustainability
	p := randstream.Clamp01(sus.BaseSustainabilityAdoptionProb + sus.GreenIncentiveProbBonus)

	for i := range y.Agents {
		a := &y.Agents[i]
		if a.IsSustainable {
			continue
		}
		if y.Rand.Bernoulli(p) {
			a.IsSustainable = true
			a.CostsThisYear += a.Revenue * sus.SustainabilityCostFactorRevenue
			a.ResilienceScore = randstream.Clamp01(a.ResilienceScore + sus.SustainabilityResilienceBoost)
			y.Tally.NewSustainable++
		}
	}
	return nil
}
