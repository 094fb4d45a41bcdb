package dimensions

import (
	"github.com/nvandessel/smesim/internal/constants"
	"github.com/nvandessel/smesim/internal/randstream"
)

// HumanCapital raises workforce skill. Productivity gains follow the realized
// skill change, so agents at the top of the scale gain nothing.
type HumanCapital struct{}

func (HumanCapital) Name() string { return StageHumanCapital }

func (HumanCapital) ApplyYear(y *Year) error {
	hc := y.Params.HumanCapital

	for i := range y.Agents {
		a := &y.Agents[i]
		if !y.Rand.Bernoulli(hc.SkillImprovementProb) {
			continue
		}
		before := a.SkillLevel
		a.SkillLevel = randstream.Clamp(before+hc.SkillImprovementAmount, constants.MinSkillLevel, constants.MaxSkillLevel)
		if gain := a.SkillLevel - before; gain > 0 {
			a.Productivity += gain * hc.SkillProductivityBoost
			y.Tally.SkillImprovements++
		}
	}
	return nil
}
