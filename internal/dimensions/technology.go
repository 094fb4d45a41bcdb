package dimensions

import "github.com/nvandessel/smesim/internal/randstream"

// Technology handles digital technology adoption. Adoption odds grow with the
// agent's digital literacy and with last year's adoption rate across the
// population. Adopters pay a one-off cost and gain productivity. Literacy
// improves for everyone.
type Technology struct{}

func (Technology) Name() string { return StageTechnology }

func (Technology) ApplyYear(y *Year) error {
	tech := y.Params.Technology
	peer := y.Env.PrevTechAdoptionRate * tech.PeerInfluenceOnAdoption

	for i := range y.Agents {
		a := &y.Agents[i]
		if !a.HasAdoptedTech {
			p := tech.BaseAdoptionProb + a.DigitalLiteracy*tech.LiteracyInfluenceOnAdoption + peer
			if y.Rand.Bernoulli(randstream.Clamp01(p)) {
				a.HasAdoptedTech = true
				a.Productivity += tech.TechProductivityBoost
				a.CostsThisYear += a.Revenue * tech.TechCostFactorRevenue
				y.Tally.NewTechAdopters++
			}
		}
		a.DigitalLiteracy = randstream.Clamp01(a.DigitalLiteracy + tech.DigitalLiteracyImprovementRate)
	}
	return nil
}
