package dimensions

import (
	"math"

	"github.com/nvandessel/smesim/internal/models"
)

// BusinessEnvironment advances the infrastructure index and passes its
// improvement on to revenue. Rural firms feel a damped share of the gain.
// It makes no random draws.
type BusinessEnvironment struct{}

func (BusinessEnvironment) Name() string { return StageBusinessEnvironment }

func (BusinessEnvironment) ApplyYear(y *Year) error {
	env := y.Params.BusinessEnvironment
	elapsed := float64(y.Year - y.Params.Simulation.StartYear)

	index := math.Min(1, env.InitialInfrastructureIndex+env.InfrastructureImprovementRate*elapsed)
	delta := index - y.Env.InfrastructureIndex
	y.Env.InfrastructureIndex = index
	y.Env.CompetitionLevel = env.CompetitionLevel

	if delta == 0 || env.InfrastructureRevenueEffect == 0 {
		return nil
	}
	for i := range y.Agents {
		a := &y.Agents[i]
		d := delta
		if a.Location == models.Rural {
			d *= env.RuralInfrastructureMultiplier
		}
		scale(a, 1+env.InfrastructureRevenueEffect*d)
	}
	return nil
}
