package dimensions

import (
	"github.com/nvandessel/smesim/internal/models"
	"github.com/nvandessel/smesim/internal/randstream"
)

// Inclusion improves inclusion scores, with targeted support raising the odds
// for women-owned and youth-led firms.
type Inclusion struct{}

func (Inclusion) Name() string { return StageInclusion }

func (Inclusion) ApplyYear(y *Year) error {
	inc := y.Params.Inclusion

	for i := range y.Agents {
		a := &y.Agents[i]
		p := inc.InclusionImprovementProb
		if a.OwnerGender == models.Female {
			p += inc.WomenLedSupportBonus
		}
		if a.YouthLed {
			p += inc.YouthLedSupportBonus
		}
		if y.Rand.Bernoulli(randstream.Clamp01(p)) {
			a.InclusionScore = randstream.Clamp01(a.InclusionScore + inc.InclusionImprovementAmount)
			y.Tally.InclusionImprovements++
		}
	}
	return nil
}
