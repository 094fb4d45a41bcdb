package simulation

import (
	"reflect"
	"testing"

	"github.com/nvandessel/smesim/internal/models"
)

// AssertRecordsInYearOrder asserts one record per expected year, in order.
func AssertRecordsInYearOrder(t *testing.T, records []models.AggregateRecord, years []int) {
	t.Helper()
	if len(records) != len(years) {
		t.Fatalf("AssertRecordsInYearOrder: got %d records, want %d", len(records), len(years))
	}
	for i, rec := range records {
		if rec.Year != years[i] {
			t.Errorf("AssertRecordsInYearOrder: record %d has year %d, want %d", i, rec.Year, years[i])
		}
	}
}

// AssertRecordConsistent asserts that a record's counts add up and its rates
// are shares.
func AssertRecordConsistent(t *testing.T, rec models.AggregateRecord) {
	t.Helper()
	if sum := rec.MicroCount + rec.SmallCount + rec.MediumCount; sum != rec.TotalSMEs {
		t.Errorf("AssertRecordConsistent: year %d: size counts sum to %d, total is %d", rec.Year, sum, rec.TotalSMEs)
	}
	if rec.FormalCount > rec.TotalSMEs || rec.ExporterCount > rec.TotalSMEs {
		t.Errorf("AssertRecordConsistent: year %d: formal %d or exporter %d count exceeds total %d",
			rec.Year, rec.FormalCount, rec.ExporterCount, rec.TotalSMEs)
	}
	if rec.LoansApproved > rec.LoansSought {
		t.Errorf("AssertRecordConsistent: year %d: %d loans approved of %d sought", rec.Year, rec.LoansApproved, rec.LoansSought)
	}

	rates := map[string]float64{
		"formal_share":          rec.FormalShare,
		"financing_access_rate": rec.FinancingAccessRate,
		"tech_adoption_rate":    rec.TechAdoptionRate,
		"ecommerce_rate":        rec.EcommerceRate,
		"innovator_rate":        rec.InnovatorRate,
		"sustainability_rate":   rec.SustainabilityRate,
		"exporter_rate":         rec.ExporterRate,
		"infrastructure_index":  rec.InfrastructureIndex,
	}
	for name, v := range rates {
		if !(v >= 0 && v <= 1) {
			t.Errorf("AssertRecordConsistent: year %d: %s = %v outside [0, 1]", rec.Year, name, v)
		}
	}
}

// AssertAgentsWithinBounds asserts every per-agent bound on a table observed
// after stage.
func AssertAgentsWithinBounds(t *testing.T, year int, stage string, agents []models.Agent) {
	t.Helper()
	for i := range agents {
		a := &agents[i]
		// Compare against itself: structural transitions are checked by
		// AssertStructureMonotone.
		self := structural{size: a.Size, formality: a.Formality}
		if reason := agentViolation(stage, a, self); reason != "" {
			t.Errorf("AssertAgentsWithinBounds: %d/%s agent %d: %s", year, stage, a.ID, reason)
			return
		}
	}
}

// AssertStructureMonotone asserts that across consecutive observations no
// agent's size category shrinks and no formal agent becomes informal.
func AssertStructureMonotone(t *testing.T, steps []TrajectoryStep) {
	t.Helper()
	for s := 1; s < len(steps); s++ {
		prev, cur := steps[s-1].Agents, steps[s].Agents
		if len(prev) != len(cur) {
			t.Fatalf("AssertStructureMonotone: step %d: agent count %d -> %d", s, len(prev), len(cur))
		}
		for i := range cur {
			if cur[i].Size < prev[i].Size {
				t.Errorf("AssertStructureMonotone: %d/%s agent %d: size %s -> %s",
					steps[s].Year, steps[s].Stage, cur[i].ID, prev[i].Size, cur[i].Size)
				return
			}
			if prev[i].IsFormal() && !cur[i].IsFormal() {
				t.Errorf("AssertStructureMonotone: %d/%s agent %d: formal -> informal",
					steps[s].Year, steps[s].Stage, cur[i].ID)
				return
			}
		}
	}
}

// AssertSameRecords asserts two trajectories are identical, naming the first
// differing year.
func AssertSameRecords(t *testing.T, got, want []models.AggregateRecord) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("AssertSameRecords: got %d records, want %d", len(got), len(want))
	}
	for i := range got {
		if !reflect.DeepEqual(got[i], want[i]) {
			t.Errorf("AssertSameRecords: year %d differs:\n got %+v\nwant %+v", want[i].Year, got[i], want[i])
			return
		}
	}
}
