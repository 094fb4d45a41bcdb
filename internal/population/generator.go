// Package population generates the initial synthetic SME population of a
// scenario from its resolved parameters.
package population

import (
	"fmt"
	"math"
	"sort"

	"github.com/nvandessel/smesim/internal/constants"
	"github.com/nvandessel/smesim/internal/models"
	"github.com/nvandessel/smesim/internal/params"
	"github.com/nvandessel/smesim/internal/randstream"
)

// Generator produces the initial agent table of a scenario.
type Generator interface {
	Generate(size int, p *params.Set, s *randstream.Stream) (models.Population, error)
}

// InvalidDistributionError reports a categorical distribution that cannot be
// sampled: weights that do not sum to 1, negative weights or unknown keys.
type InvalidDistributionError struct {
	Name   string
	Sum    float64
	Reason string
}

func (e *InvalidDistributionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid distribution %s: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("invalid distribution %s: weights sum to %g, want 1", e.Name, e.Sum)
}

// Synthetic samples agents independently from the segmentation parameters.
type Synthetic struct{}

// Generate is a convenience wrapper around Synthetic.Generate.
func Generate(size int, p *params.Set, s *randstream.Stream) (models.Population, error) {
	return Synthetic{}.Generate(size, p, s)
}

// Generate returns size agents with IDs 0..size-1. The stream is consumed in
// a fixed per-agent field order so that a seed fully determines the result.
func (Synthetic) Generate(size int, p *params.Set, s *randstream.Stream) (models.Population, error) {
	if size < 0 {
		return nil, fmt.Errorf("population size must be non-negative, got %d", size)
	}
	seg := p.Segmentation

	sectorW, err := weights("sector_distribution", seg.SectorDistribution, sectorKeys())
	if err != nil {
		return nil, err
	}
	sizeW, err := weights("size_distribution", seg.SizeDistribution, sizeKeys())
	if err != nil {
		return nil, err
	}
	formalityW, err := weights("formality_distribution", seg.FormalityDistribution, formalityKeys())
	if err != nil {
		return nil, err
	}
	locationW, err := weights("location_distribution", seg.LocationDistribution, locationKeys())
	if err != nil {
		return nil, err
	}

	agents := make(models.Population, size)
	for i := range agents {
		a := &agents[i]
		a.ID = i
		a.Sector = models.Sectors[s.Categorical(sectorW)]
		a.Size = models.SizeCategories[s.Categorical(sizeW)]
		a.Formality = models.Formalities[s.Categorical(formalityW)]
		a.Location = models.Locations[s.Categorical(locationW)]

		age := s.Normal(seg.AvgBusinessAge, seg.AvgBusinessAge/2)
		a.Age = int(math.Max(0, age))

		a.Revenue = s.Uniform(seg.RevenueRange.Min, seg.RevenueRange.Max)
		a.DebtRatio = randstream.Clamp01(s.Uniform(seg.DebtRatioRange.Min, seg.DebtRatioRange.Max))
		a.Debt = a.DebtRatio * a.Revenue
		a.Creditworthiness = randstream.Clamp01(s.Uniform(seg.CreditworthinessRange.Min, seg.CreditworthinessRange.Max))
		a.DigitalLiteracy = randstream.Clamp01(s.Uniform(seg.DigitalLiteracyRange.Min, seg.DigitalLiteracyRange.Max))
		a.HasAdoptedTech = s.Bernoulli(seg.InitialTechAdoptionRate)
		a.UsesEcommerce = s.Bernoulli(seg.InitialEcommerceRate)
		a.SkillLevel = randstream.Clamp(s.Uniform(seg.SkillLevelRange.Min, seg.SkillLevelRange.Max),
			constants.MinSkillLevel, constants.MaxSkillLevel)
		a.ResilienceScore = randstream.Clamp01(s.Uniform(seg.ResilienceRange.Min, seg.ResilienceRange.Max))
		a.InclusionScore = randstream.Clamp01(s.Uniform(seg.InclusionRange.Min, seg.InclusionRange.Max))
		if s.Bernoulli(seg.WomenOwnershipRate) {
			a.OwnerGender = models.Female
		} else {
			a.OwnerGender = models.Male
		}
		a.YouthLed = s.Bernoulli(seg.YouthLedRate)

		a.Productivity = constants.BaseProductivity
		if a.IsFormal() {
			a.ComplianceCostFactor = p.Regulatory.BaseComplianceCostFactor
		}
	}
	return agents, nil
}

// weights orders a distribution by canonical category order and checks that
// it can be sampled.
func weights(name string, dist params.Distribution, keys []string) ([]float64, error) {
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
	}

	unknown := make([]string, 0)
	for k := range dist {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &InvalidDistributionError{Name: name, Reason: fmt.Sprintf("unknown category %q", unknown[0])}
	}

	w := make([]float64, len(keys))
	sum := 0.0
	for i, k := range keys {
		v := dist[k]
		if v < 0 || math.IsNaN(v) {
			return nil, &InvalidDistributionError{Name: name, Reason: fmt.Sprintf("category %q has weight %g", k, v)}
		}
		w[i] = v
		sum += v
	}
	if math.Abs(sum-1) > constants.DistributionTolerance {
		return nil, &InvalidDistributionError{Name: name, Sum: sum}
	}
	return w, nil
}

func sectorKeys() []string {
	keys := make([]string, len(models.Sectors))
	for i, s := range models.Sectors {
		keys[i] = string(s)
	}
	return keys
}

func sizeKeys() []string {
	keys := make([]string, len(models.SizeCategories))
	for i, s := range models.SizeCategories {
		keys[i] = s.String()
	}
	return keys
}

func formalityKeys() []string {
	keys := make([]string, len(models.Formalities))
	for i, f := range models.Formalities {
		keys[i] = string(f)
	}
	return keys
}

func locationKeys() []string {
	keys := make([]string, len(models.Locations))
	for i, l := range models.Locations {
		keys[i] = string(l)
	}
	return keys
}
