package simulation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nvandessel/smesim/internal/config"
	"github.com/nvandessel/smesim/internal/models"
	"github.com/nvandessel/smesim/internal/params"
	"github.com/nvandessel/smesim/internal/population"
	"github.com/nvandessel/smesim/internal/snapshot"
	"github.com/nvandessel/smesim/internal/store"
)

func smallConfig(t *testing.T, years, agents int) *config.Config {
	t.Helper()
	cfg, err := SmallConfig(years, agents)
	if err != nil {
		t.Fatalf("SmallConfig() error = %v", err)
	}
	return cfg
}

// withBrokenScenario appends a scenario whose sector weights cannot be sampled.
func withBrokenScenario(cfg *config.Config) {
	cfg.Scenarios = append(cfg.Scenarios, config.Scenario{
		Name: "broken",
		Overrides: params.Tree{
			"sme_segmentation": map[string]any{
				"sector_distribution": map[string]any{"manufacturing": 5.0},
			},
		},
	})
}

type errSink struct {
	err error
}

func (s errSink) WriteResults(context.Context, string, []models.AggregateRecord) error { return s.err }
func (s errSink) Close() error                                                         { return nil }

func TestRunner_RunAll(t *testing.T) {
	cfg := smallConfig(t, 3, 50)
	sink := store.NewMemorySink()
	r := NewRunner(cfg, WithSink(sink), WithWorkers(2), WithRunID("run-test"))

	report, err := r.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.OK() {
		t.Fatalf("report not OK: failures=%v sink=%v", report.Failures, report.SinkErrors)
	}
	if report.RunID != "run-test" || r.RunID() != "run-test" {
		t.Errorf("RunID = %q, want run-test", report.RunID)
	}

	want := cfg.Scenarios.Names()
	if len(report.Order) != len(want) {
		t.Fatalf("Order = %v, want %v", report.Order, want)
	}
	for i, name := range want {
		if report.Order[i] != name {
			t.Errorf("Order[%d] = %s, want %s", i, report.Order[i], name)
		}
		res, ok := report.Results[name]
		if !ok {
			t.Errorf("no result for %s", name)
			continue
		}
		AssertRecordsInYearOrder(t, res.Records, []int{2025, 2026, 2027})
		if res.Seed != cfg.Simulation.RandomSeed+int64(i) {
			t.Errorf("%s seed = %d, want %d", name, res.Seed, cfg.Simulation.RandomSeed+int64(i))
		}
		stored, ok := sink.Results(name)
		if !ok {
			t.Errorf("sink missing %s", name)
			continue
		}
		AssertSameRecords(t, stored, res.Records)
	}

	// Sinks are written in declaration order.
	if got := sink.Scenarios(); len(got) != len(want) || got[0] != want[0] {
		t.Errorf("sink write order = %v, want %v", got, want)
	}
	if sink.Writes() != len(want) {
		t.Errorf("sink written %d times, want %d", sink.Writes(), len(want))
	}
}

func TestRunner_ParallelEqualsSequential(t *testing.T) {
	cfg := smallConfig(t, 4, 120)

	seq, err := NewRunner(cfg, WithWorkers(1)).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("sequential Run() error = %v", err)
	}
	par, err := NewRunner(cfg, WithWorkers(len(cfg.Scenarios))).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("parallel Run() error = %v", err)
	}

	for _, name := range seq.Order {
		AssertSameRecords(t, par.Results[name].Records, seq.Results[name].Records)
	}
}

func TestRunner_SeedIndependentOfSelection(t *testing.T) {
	cfg := smallConfig(t, 3, 80)

	all, err := NewRunner(cfg).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run(all) error = %v", err)
	}
	one, err := NewRunner(cfg).Run(context.Background(), []string{"digital_leap"})
	if err != nil {
		t.Fatalf("Run(digital_leap) error = %v", err)
	}

	if len(one.Results) != 1 {
		t.Fatalf("len(Results) = %d, want 1", len(one.Results))
	}
	AssertSameRecords(t, one.Results["digital_leap"].Records, all.Results["digital_leap"].Records)
}

func TestRunner_Isolation(t *testing.T) {
	cfg := smallConfig(t, 2, 30)
	withBrokenScenario(cfg)
	sink := store.NewMemorySink()

	report, err := NewRunner(cfg, WithSink(sink)).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	failure, ok := report.Failures["broken"]
	if !ok {
		t.Fatal("broken scenario not reported as failed")
	}
	var iso *ScenarioIsolationError
	if !errors.As(failure, &iso) || iso.Scenario != "broken" {
		t.Errorf("failure %v is not a ScenarioIsolationError for broken", failure)
	}
	var ide *population.InvalidDistributionError
	if !errors.As(failure, &ide) {
		t.Errorf("errors.As(failure, *InvalidDistributionError) = false: %v", failure)
	}

	if _, ok := report.Results["broken"]; ok {
		t.Error("failed scenario also has a result")
	}
	if _, ok := sink.Results("broken"); ok {
		t.Error("failed scenario was written to the sink")
	}
	if got, want := len(report.Results), len(cfg.Scenarios)-1; got != want {
		t.Errorf("len(Results) = %d, want %d", got, want)
	}
	if report.OK() {
		t.Error("OK() = true with a failed scenario")
	}
}

func TestRunner_SinkFailureKeepsResults(t *testing.T) {
	cfg := smallConfig(t, 2, 30)
	boom := errors.New("disk full")

	report, err := NewRunner(cfg, WithSink(errSink{err: boom})).Run(context.Background(), []string{"baseline", "pro_investment"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, name := range []string{"baseline", "pro_investment"} {
		if _, ok := report.Results[name]; !ok {
			t.Errorf("result for %s dropped after sink failure", name)
		}
		if !errors.Is(report.SinkErrors[name], boom) {
			t.Errorf("SinkErrors[%s] = %v, want %v", name, report.SinkErrors[name], boom)
		}
	}
	if len(report.Failures) != 0 {
		t.Errorf("Failures = %v, want none", report.Failures)
	}
}

func TestRunner_ConfigurationErrors(t *testing.T) {
	cfg := smallConfig(t, 2, 10)

	tests := []struct {
		name  string
		names []string
	}{
		{"unknown scenario", []string{"baseline", "nope"}},
		{"duplicate scenario", []string{"baseline", "baseline"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := store.NewMemorySink()
			report, err := NewRunner(cfg, WithSink(sink)).Run(context.Background(), tt.names)
			if !errors.Is(err, params.ErrConfiguration) {
				t.Fatalf("Run() error = %v, want ErrConfiguration", err)
			}
			if report != nil {
				t.Error("Run() returned a report for a configuration error")
			}
			if sink.Writes() != 0 {
				t.Error("a scenario ran despite a configuration error")
			}
		})
	}
}

func TestRunner_UnknownScenarioType(t *testing.T) {
	_, err := NewRunner(smallConfig(t, 1, 5)).Prepare([]string{"nope"})
	var use *config.UnknownScenarioError
	if !errors.As(err, &use) || use.Name != "nope" {
		t.Errorf("Prepare() error = %v, want UnknownScenarioError{nope}", err)
	}
}

func TestRunner_Prepare(t *testing.T) {
	cfg := smallConfig(t, 2, 10)
	plans, err := NewRunner(cfg, WithPopulationSize(7)).Prepare([]string{"inclusive_green", "baseline"})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(plans) != 2 || plans[0].Scenario != "inclusive_green" || plans[1].Scenario != "baseline" {
		t.Fatalf("Prepare() = %+v", plans)
	}

	_, idx, _ := cfg.Scenarios.Lookup("inclusive_green")
	if plans[0].Index != idx || plans[0].Seed != cfg.Simulation.RandomSeed+int64(idx) {
		t.Errorf("plan index/seed = %d/%d, want %d/%d", plans[0].Index, plans[0].Seed, idx, cfg.Simulation.RandomSeed+int64(idx))
	}
	for _, p := range plans {
		if p.Params.Segmentation.NumSyntheticSMEs != 7 {
			t.Errorf("%s population = %d, want 7", p.Scenario, p.Params.Segmentation.NumSyntheticSMEs)
		}
	}
}

func TestRunner_Cancelled(t *testing.T) {
	cfg := smallConfig(t, 3, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewRunner(cfg).Run(ctx, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Results) != 0 {
		t.Errorf("len(Results) = %d, want 0", len(report.Results))
	}
	for name, failure := range report.Failures {
		if !errors.Is(failure, context.Canceled) {
			t.Errorf("%s failure = %v, want context.Canceled", name, failure)
		}
	}
}

func TestRunner_Snapshots(t *testing.T) {
	cfg := smallConfig(t, 2, 25)
	dir := t.TempDir()

	for i := 0; i < 2; i++ {
		report, err := NewRunner(cfg, WithSnapshots(dir, 1)).Run(context.Background(), []string{"baseline", "formalization_push"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(report.SnapshotErrors) != 0 {
			t.Fatalf("SnapshotErrors = %v", report.SnapshotErrors)
		}

		res := report.Results["baseline"]
		header, agents, err := snapshot.Read(res.SnapshotPath)
		if err != nil {
			t.Fatalf("snapshot.Read() error = %v", err)
		}
		if header.Scenario != "baseline" || header.Year != 2026 || header.Seed != res.Seed {
			t.Errorf("snapshot header = %+v", header)
		}
		if len(agents) != 25 {
			t.Errorf("snapshot has %d agents, want 25", len(agents))
		}
	}

	list, err := snapshot.List(dir)
	if err != nil {
		t.Fatalf("snapshot.List() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("%d snapshots kept, want 2 (one per scenario)", len(list))
	}
}

func TestRunner_KeepAgentsAndHooks(t *testing.T) {
	cfg := smallConfig(t, 2, 15)

	var mu sync.Mutex
	calls := make(map[string]int)
	hook := func(scenario string) StageHook {
		return func(int, string, []models.Agent) {
			mu.Lock()
			calls[scenario]++
			mu.Unlock()
		}
	}

	report, err := NewRunner(cfg, WithKeepAgents(true), WithScenarioHook(hook)).Run(context.Background(), []string{"baseline", "digital_leap"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, name := range report.Order {
		if got := len(report.Results[name].Agents); got != 15 {
			t.Errorf("%s kept %d agents, want 15", name, got)
		}
		if got, want := calls[name], 2*12; got != want {
			t.Errorf("%s hook calls = %d, want %d", name, got, want)
		}
	}
}

func TestRunner_YearlySnapshots(t *testing.T) {
	cfg := smallConfig(t, 3, 20)
	dir := t.TempDir()
	scenarios := []string{"baseline", "digital_leap"}

	for i := 0; i < 2; i++ {
		report, err := NewRunner(cfg, WithSnapshots(dir, 1), WithYearlySnapshots(true)).Run(context.Background(), scenarios)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(report.SnapshotErrors) != 0 {
			t.Fatalf("SnapshotErrors = %v", report.SnapshotErrors)
		}

		for _, name := range scenarios {
			res := report.Results[name]
			if len(res.SnapshotPaths) != 3 {
				t.Fatalf("%s wrote %d snapshots, want 3", name, len(res.SnapshotPaths))
			}
			for j, path := range res.SnapshotPaths {
				header, agents, err := snapshot.Read(path)
				if err != nil {
					t.Fatalf("snapshot.Read(%s) error = %v", path, err)
				}
				if want := res.Records[j].Year; header.Year != want || header.Scenario != name {
					t.Errorf("snapshot %d header = %+v, want %s/%d", j, header, name, want)
				}
				if len(agents) != 20 {
					t.Errorf("snapshot %d has %d agents, want 20", j, len(agents))
				}
			}
			if res.SnapshotPath != res.SnapshotPaths[2] {
				t.Errorf("SnapshotPath = %s, want the final year's snapshot", res.SnapshotPath)
			}
		}
	}

	list, err := snapshot.List(dir)
	if err != nil {
		t.Fatalf("snapshot.List() error = %v", err)
	}
	if want := len(scenarios) * 3; len(list) != want {
		t.Errorf("%d snapshots kept, want %d (one per scenario year)", len(list), want)
	}
}

func TestRunner_FinalSnapshotOnly(t *testing.T) {
	cfg := smallConfig(t, 3, 10)
	report, err := NewRunner(cfg, WithSnapshots(t.TempDir(), 0)).Run(context.Background(), []string{"baseline"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := len(report.Results["baseline"].SnapshotPaths); got != 1 {
		t.Errorf("final-only run wrote %d snapshots, want 1", got)
	}
}

func TestRunner_PanicIsIsolated(t *testing.T) {
	cfg := smallConfig(t, 2, 10)
	hook := func(scenario string) StageHook {
		if scenario != "digital_leap" {
			return nil
		}
		return func(int, string, []models.Agent) { panic("stage exploded") }
	}

	report, err := NewRunner(cfg, WithWorkers(2), WithScenarioHook(hook)).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	failure, ok := report.Failures["digital_leap"]
	if !ok {
		t.Fatal("panicking scenario not reported as failed")
	}
	var pe *PanicError
	if !errors.As(failure, &pe) || pe.Value != "stage exploded" {
		t.Errorf("failure = %v, want PanicError(stage exploded)", failure)
	}
	var iso *ScenarioIsolationError
	if !errors.As(failure, &iso) || iso.Scenario != "digital_leap" {
		t.Errorf("failure %v is not a ScenarioIsolationError for digital_leap", failure)
	}
	if got, want := len(report.Results), len(cfg.Scenarios)-1; got != want {
		t.Errorf("len(Results) = %d, want %d", got, want)
	}
}
