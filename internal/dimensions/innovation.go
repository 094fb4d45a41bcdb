package dimensions

import "github.com/nvandessel/smesim/internal/randstream"

// Innovation turns non-innovators into innovators. The odds grow with skill
// level and get a bonus for tech adopters. A new innovator's productivity
// rises by a fixed amount, added to the boosts of the other stages.
type Innovation struct{}

func (Innovation) Name() string { return StageInnovation }

func (Innovation) ApplyYear(y *Year) error {
	inn := y.Params.Innovation

	for i := range y.Agents {
		a := &y.Agents[i]
		if a.IsInnovator {
			continue
		}
		p := inn.BaseInnovationProb + a.SkillLevel*inn.SkillInfluenceOnInnovation
		if a.HasAdoptedTech {
			p += inn.TechAdopterInnovationBonus
		}
		if y.Rand.Bernoulli(randstream.Clamp01(p)) {
			a.IsInnovator = true
			a.Productivity += inn.InnovationProductivityBoost
			y.Tally.NewInnovators++
		}
	}
	return nil
}
