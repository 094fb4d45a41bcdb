package dimensions

import "github.com/nvandessel/smesim/internal/models"

// Regulatory charges compliance costs to registered firms and lets informal
// firms formalize. A firm that formalizes this year starts paying next year.
type Regulatory struct{}

func (Regulatory) Name() string { return StageRegulatory }

func (Regulatory) ApplyYear(y *Year) error {
	reg := y.Params.Regulatory

	for i := range y.Agents {
		a := &y.Agents[i]
		if a.IsFormal() {
			a.ComplianceCostFactor = reg.BaseComplianceCostFactor
			a.CostsThisYear += a.ComplianceCostFactor * a.Revenue
			continue
		}
		a.ComplianceCostFactor = 0
		if y.Rand.Bernoulli(reg.FormalizationProbFactor) {
			a.Formality = models.Formal
			a.FormalizedThisYear = true
			y.Tally.NewFormalizations++
		}
	}
	return nil
}
