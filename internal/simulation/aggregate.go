package simulation

import (
	"github.com/nvandessel/smesim/internal/dimensions"
	"github.com/nvandessel/smesim/internal/models"
)

// Aggregate folds the agent table at the end of a year into one record.
// An empty table yields zero means and rates.
func Aggregate(scenario string, year int, agents []models.Agent, tally *dimensions.Tally, env *dimensions.Environment) models.AggregateRecord {
	rec := models.AggregateRecord{
		Scenario:  scenario,
		Year:      year,
		TotalSMEs: len(agents),
	}
	if tally != nil {
		rec.LoansSought = tally.LoansSought
		rec.LoansApproved = tally.LoansApproved
		rec.MeanNewLoanRate = tally.MeanNewLoanRate()
		rec.NewTechAdopters = tally.NewTechAdopters
		rec.NewEcommerceUsers = tally.NewEcommerceUsers
		rec.SkillImprovements = tally.SkillImprovements
		rec.NewFormalizations = tally.NewFormalizations
		rec.NewInnovators = tally.NewInnovators
		rec.NewSustainable = tally.NewSustainable
		rec.ShockedCount = tally.Shocked
		rec.NewExporters = tally.NewExporters
		rec.InclusionImprovement = tally.InclusionImprovements
		rec.SizeUpgrades = tally.SizeUpgrades
	}
	if env != nil {
		rec.InfrastructureIndex = env.InfrastructureIndex
	}
	if len(agents) == 0 {
		return rec
	}

	var (
		financed, adopters, ecommerce, innovators, sustainable int
		sumDebtRatio, sumCredit, sumLiteracy, sumProductivity  float64
		sumSkill, sumCompliance, sumCosts, sumResilience       float64
		sumInclusion                                           float64
	)
	for i := range agents {
		a := &agents[i]
		switch a.Size {
		case models.SizeMicro:
			rec.MicroCount++
		case models.SizeSmall:
			rec.SmallCount++
		case models.SizeMedium:
			rec.MediumCount++
		}
		if a.IsFormal() {
			rec.FormalCount++
		}
		if a.HasFormalFinancing {
			financed++
		}
		if a.HasAdoptedTech {
			adopters++
		}
		if a.UsesEcommerce {
			ecommerce++
		}
		if a.IsInnovator {
			innovators++
		}
		if a.IsSustainable {
			sustainable++
		}
		if a.IsExporter {
			rec.ExporterCount++
		}

		rec.TotalRevenue += a.Revenue
		sumDebtRatio += a.DebtRatio
		sumCredit += a.Creditworthiness
		sumLiteracy += a.DigitalLiteracy
		sumProductivity += a.Productivity
		sumSkill += a.SkillLevel
		sumCompliance += a.ComplianceCostFactor
		sumCosts += a.CostsThisYear
		sumResilience += a.ResilienceScore
		sumInclusion += a.InclusionScore
	}

	n := float64(len(agents))
	rec.MeanRevenue = rec.TotalRevenue / n
	rec.MeanDebtRatio = sumDebtRatio / n
	rec.MeanCreditworthiness = sumCredit / n
	rec.MeanDigitalLiteracy = sumLiteracy / n
	rec.MeanProductivity = sumProductivity / n
	rec.MeanSkillLevel = sumSkill / n
	rec.MeanComplianceCost = sumCompliance / n
	rec.MeanCosts = sumCosts / n
	rec.MeanResilience = sumResilience / n
	rec.MeanInclusion = sumInclusion / n

	rec.FormalShare = float64(rec.FormalCount) / n
	rec.FinancingAccessRate = float64(financed) / n
	rec.TechAdoptionRate = float64(adopters) / n
	rec.EcommerceRate = float64(ecommerce) / n
	rec.InnovatorRate = float64(innovators) / n
	rec.SustainabilityRate = float64(sustainable) / n
	rec.ExporterRate = float64(rec.ExporterCount) / n
	return rec
}
