package dimensions

import "github.com/nvandessel/smesim/internal/models"

// Segmentation ages every agent, grows revenue with productivity and lets
// eligible micro and small firms move up one size class.
type Segmentation struct{}

func (Segmentation) Name() string { return StageSegmentation }

func (Segmentation) ApplyYear(y *Year) error {
	seg := y.Params.Segmentation
	step := y.Params.Simulation.TimeStep

	for i := range y.Agents {
		a := &y.Agents[i]
		a.LoanApprovedThisYear = false
		a.FormalizedThisYear = false
		a.CostsThisYear = 0

		a.Age += step
		scale(a, 1+seg.BaseRevenueGrowthRate*a.Productivity)

		var p float64
		switch a.Size {
		case models.SizeMicro:
			p = seg.MicroToSmallProb
		case models.SizeSmall:
			p = seg.SmallToMediumProb
		default:
			continue
		}
		// The draw happens regardless of the revenue gate.
		if y.Rand.Bernoulli(p) && a.Revenue >= seg.GrowthMinRevenue {
			a.Size++
			y.Tally.SizeUpgrades++
		}
	}
	return nil
}
