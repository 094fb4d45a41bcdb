package store

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/nvandessel/smesim/internal/models"
)

// sampleRecords builds n records for scenario starting at 2025, with every
// column holding a distinct value.
func sampleRecords(scenario string, n int) []models.AggregateRecord {
	recs := make([]models.AggregateRecord, n)
	for i := range recs {
		f := float64(i)
		recs[i] = models.AggregateRecord{
			Scenario:             scenario,
			Year:                 2025 + i,
			TotalSMEs:            100,
			MicroCount:           70 - i,
			SmallCount:           25 + i,
			MediumCount:          5,
			FormalCount:          40 + i,
			MeanRevenue:          50000 + 1000*f,
			TotalRevenue:         5e6 + 1e5*f,
			MeanDebtRatio:        0.3 + 0.01*f,
			MeanCreditworthiness: 0.55,
			MeanDigitalLiteracy:  0.4 + 0.02*f,
			MeanProductivity:     1.1 + 0.05*f,
			MeanSkillLevel:       5.5,
			MeanComplianceCost:   0.02,
			MeanCosts:            1234.5,
			MeanResilience:       0.45,
			MeanInclusion:        0.35,
			FormalShare:          0.4 + 0.01*f,
			FinancingAccessRate:  0.12,
			TechAdoptionRate:     0.2 + 0.03*f,
			EcommerceRate:        0.1 + 0.02*f,
			InnovatorRate:        0.05,
			SustainabilityRate:   0.07,
			ExporterRate:         0.01,
			ExporterCount:        1,
			LoansSought:          20 + i,
			LoansApproved:        12,
			MeanNewLoanRate:      0.089,
			NewTechAdopters:      3,
			NewEcommerceUsers:    2,
			SkillImprovements:    9,
			NewFormalizations:    1,
			NewInnovators:        4,
			NewSustainable:       2,
			ShockedCount:         5,
			NewExporters:         i % 2,
			InclusionImprovement: 6,
			SizeUpgrades:         i,
			InfrastructureIndex:  0.5 + 0.01*f,
		}
	}
	return recs
}

func TestMemorySink_WriteAndRead(t *testing.T) {
	s := NewMemorySink()
	ctx := context.Background()

	recs := sampleRecords("baseline", 3)
	if err := s.WriteResults(ctx, "baseline", recs); err != nil {
		t.Fatalf("WriteResults() error = %v", err)
	}

	got, ok := s.Results("baseline")
	if !ok {
		t.Fatal("Results() ok = false, want true")
	}
	if !reflect.DeepEqual(got, recs) {
		t.Errorf("Results() = %+v, want %+v", got, recs)
	}

	if _, ok := s.Results("missing"); ok {
		t.Error("Results(missing) ok = true, want false")
	}
}

func TestMemorySink_CopiesRecords(t *testing.T) {
	s := NewMemorySink()
	recs := sampleRecords("baseline", 2)
	if err := s.WriteResults(context.Background(), "baseline", recs); err != nil {
		t.Fatalf("WriteResults() error = %v", err)
	}

	recs[0].MeanRevenue = -1
	got, _ := s.Results("baseline")
	if got[0].MeanRevenue == -1 {
		t.Error("sink aliased caller slice")
	}

	got[1].Year = 0
	again, _ := s.Results("baseline")
	if again[1].Year == 0 {
		t.Error("Results() returned internal slice")
	}
}

func TestMemorySink_ScenarioOrder(t *testing.T) {
	s := NewMemorySink()
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "zeta", "mid"} {
		if err := s.WriteResults(ctx, name, sampleRecords(name, 1)); err != nil {
			t.Fatalf("WriteResults(%s) error = %v", name, err)
		}
	}

	want := []string{"zeta", "alpha", "mid"}
	if got := s.Scenarios(); !reflect.DeepEqual(got, want) {
		t.Errorf("Scenarios() = %v, want %v", got, want)
	}
	if got := s.Writes(); got != 4 {
		t.Errorf("Writes() = %d, want 4", got)
	}
}

func TestMemorySink_ConcurrentWrites(t *testing.T) {
	s := NewMemorySink()
	ctx := context.Background()

	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := s.WriteResults(ctx, name, sampleRecords(name, 5)); err != nil {
				t.Errorf("WriteResults(%s) error = %v", name, err)
			}
		}(name)
	}
	wg.Wait()

	if got := len(s.Scenarios()); got != len(names) {
		t.Errorf("len(Scenarios()) = %d, want %d", got, len(names))
	}
}
