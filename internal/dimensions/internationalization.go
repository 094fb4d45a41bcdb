package dimensions

import "github.com/nvandessel/smesim/internal/models"

// Internationalization lets large enough firms start exporting. Eligibility
// needs both the revenue floor and the minimum size class; once an exporter,
// a firm keeps exporting and earns the export boost every year.
type Internationalization struct{}

func (Internationalization) Name() string { return StageInternationalization }

func (Internationalization) ApplyYear(y *Year) error {
	intl := y.Params.Internationalization

	for i := range y.Agents {
		a := &y.Agents[i]
		if !a.IsExporter && eligibleForExport(a.Revenue, a.Size, intl.MinRevenueForExport, intl.MinSizeForExport) {
			if y.Rand.Bernoulli(intl.BaseExportStartProb) {
				a.IsExporter = true
				y.Tally.NewExporters++
			}
		}
		if a.IsExporter {
			scale(a, 1+intl.ExportRevenueBoost)
		}
	}
	return nil
}

// eligibleForExport reports whether a firm clears both export thresholds.
// Size is compared on the ordinal micro < small < medium scale.
func eligibleForExport(revenue float64, size models.SizeCategory, minRevenue float64, minSize models.SizeCategory) bool {
	return revenue >= minRevenue && size >= minSize
}
