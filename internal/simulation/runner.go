package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/smesim/internal/config"
	"github.com/nvandessel/smesim/internal/logging"
	"github.com/nvandessel/smesim/internal/models"
	"github.com/nvandessel/smesim/internal/params"
	"github.com/nvandessel/smesim/internal/population"
	"github.com/nvandessel/smesim/internal/randstream"
	"github.com/nvandessel/smesim/internal/snapshot"
	"github.com/nvandessel/smesim/internal/store"
)

// Runner resolves scenarios from configuration and runs each one in
// isolation on a bounded worker pool.
type Runner struct {
	cfg       *config.Config
	sink      store.ResultSink
	generator population.Generator
	logger    *slog.Logger
	events    *logging.EventLogger

	workers        int
	populationSize int
	runID          string
	keepAgents     bool
	scenarioHook   func(scenario string) StageHook

	snapshotDir     string
	keepSnapshots   int
	yearlySnapshots bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSink sets the sink completed trajectories are written to.
func WithSink(s store.ResultSink) RunnerOption {
	return func(r *Runner) { r.sink = s }
}

// WithGenerator replaces the synthetic population generator.
func WithGenerator(g population.Generator) RunnerOption {
	return func(r *Runner) {
		if g != nil {
			r.generator = g
		}
	}
}

// WithRunnerLogger sets the operational logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRunnerEvents passes an event logger to every orchestrator.
func WithRunnerEvents(el *logging.EventLogger) RunnerOption {
	return func(r *Runner) { r.events = el }
}

// WithWorkers bounds how many scenarios run at once. Zero or less means
// GOMAXPROCS.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) { r.workers = n }
}

// WithPopulationSize overrides num_synthetic_smes for every scenario.
func WithPopulationSize(n int) RunnerOption {
	return func(r *Runner) { r.populationSize = n }
}

// WithRunID sets the run id instead of generating one.
func WithRunID(id string) RunnerOption {
	return func(r *Runner) {
		if id != "" {
			r.runID = id
		}
	}
}

// WithKeepAgents keeps each scenario's final agent table in its Result.
func WithKeepAgents(keep bool) RunnerOption {
	return func(r *Runner) { r.keepAgents = keep }
}

// WithScenarioHook installs a StageHook per scenario. The factory is called
// once per scenario, from that scenario's worker.
func WithScenarioHook(f func(scenario string) StageHook) RunnerOption {
	return func(r *Runner) { r.scenarioHook = f }
}

// WithSnapshots writes each scenario's final agent table to dir and keeps the
// newest keep snapshots per scenario and year (0 keeps all).
func WithSnapshots(dir string, keep int) RunnerOption {
	return func(r *Runner) {
		r.snapshotDir = dir
		r.keepSnapshots = keep
	}
}

// WithYearlySnapshots makes WithSnapshots write the agent table at the end of
// every simulated year instead of only the last one.
func WithYearlySnapshots(on bool) RunnerOption {
	return func(r *Runner) { r.yearlySnapshots = on }
}

// NewRunner creates a runner over cfg. Without WithSink, results are only
// returned in the Report.
func NewRunner(cfg *config.Config, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:       cfg,
		generator: population.Synthetic{},
		logger:    logging.Discard(),
		workers:   cfg.Runner.Workers,
		runID:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunID returns the id of this runner's invocation.
func (r *Runner) RunID() string { return r.runID }

// Plan is one resolved scenario, ready to run.
type Plan struct {
	Scenario string
	Index    int
	Seed     int64
	Params   *params.Set
}

// Prepare resolves the named scenarios, or every configured scenario in
// declaration order when names is empty. Any error wraps
// params.ErrConfiguration and means nothing should run.
func (r *Runner) Prepare(names []string) ([]Plan, error) {
	if len(names) == 0 {
		names = r.cfg.Scenarios.Names()
	}

	seen := make(map[string]bool, len(names))
	plans := make([]Plan, 0, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("%w: scenario %q requested more than once", params.ErrConfiguration, name)
		}
		seen[name] = true

		_, idx, err := r.cfg.Scenarios.Lookup(name)
		if err != nil {
			return nil, err
		}
		set, err := r.cfg.ResolveScenario(name)
		if err != nil {
			return nil, err
		}
		if r.populationSize > 0 {
			set.Segmentation.NumSyntheticSMEs = r.populationSize
		}

		plans = append(plans, Plan{
			Scenario: name,
			Index:    idx,
			Seed:     randstream.ScenarioSeed(r.cfg.Simulation.RandomSeed, idx),
			Params:   set,
		})
	}
	return plans, nil
}

// Result is the outcome of one completed scenario.
type Result struct {
	Scenario     string                   `json:"scenario"`
	Seed         int64                    `json:"seed"`
	Records      []models.AggregateRecord `json:"records"`
	Agents       models.Population        `json:"-"`
	Duration     time.Duration            `json:"duration"`

	// SnapshotPath is the snapshot of the final year; SnapshotPaths holds
	// every snapshot written, in year order.
	SnapshotPath  string   `json:"snapshot_path,omitempty"`
	SnapshotPaths []string `json:"snapshot_paths,omitempty"`
}

// Final returns the record of the last simulated year.
func (res *Result) Final() (models.AggregateRecord, bool) {
	if len(res.Records) == 0 {
		return models.AggregateRecord{}, false
	}
	return res.Records[len(res.Records)-1], true
}

// Report collects the outcome of a Run. A scenario appears in exactly one of
// Results and Failures. SinkErrors and SnapshotErrors never remove a result.
type Report struct {
	RunID          string
	Order          []string
	Results        map[string]*Result
	Failures       map[string]error
	SinkErrors     map[string]error
	SnapshotErrors map[string]error
}

// OK reports whether every scenario completed and was stored.
func (rep *Report) OK() bool {
	return len(rep.Failures) == 0 && len(rep.SinkErrors) == 0 && len(rep.SnapshotErrors) == 0
}

// Run executes the named scenarios (all when names is empty). The returned
// error is non-nil only for configuration errors, in which case nothing ran.
// Scenario failures are isolated and reported in Report.Failures.
func (r *Runner) Run(ctx context.Context, names []string) (*Report, error) {
	plans, err := r.Prepare(names)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:          r.runID,
		Order:          make([]string, len(plans)),
		Results:        make(map[string]*Result, len(plans)),
		Failures:       make(map[string]error),
		SinkErrors:     make(map[string]error),
		SnapshotErrors: make(map[string]error),
	}
	for i, p := range plans {
		report.Order[i] = p.Scenario
	}

	workers := r.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	r.logger.Info("starting run",
		"run_id", r.runID, "scenarios", len(plans), "workers", workers)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(workers)
	for _, plan := range plans {
		g.Go(func() error {
			var snaps *snapshotWriter
			if r.snapshotDir != "" {
				snaps = &snapshotWriter{dir: r.snapshotDir, plan: plan}
			}
			res, final, err := r.safeRunScenario(ctx, plan, snaps)
			var snapErr error
			if err == nil && snaps != nil {
				if !r.yearlySnapshots {
					var year int
					if rec, ok := res.Final(); ok {
						year = rec.Year
					}
					snaps.write(year, final)
				}
				res.SnapshotPaths = snaps.paths
				if n := len(snaps.paths); n > 0 {
					res.SnapshotPath = snaps.paths[n-1]
				}
				snapErr = snaps.err
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures[plan.Scenario] = &ScenarioIsolationError{Scenario: plan.Scenario, Err: err}
				r.logger.Error("scenario failed", "scenario", plan.Scenario, "error", err)
				return nil
			}
			report.Results[plan.Scenario] = res
			if snapErr != nil {
				report.SnapshotErrors[plan.Scenario] = snapErr
				r.logger.Warn("snapshot failed", "scenario", plan.Scenario, "error", snapErr)
			}
			return nil
		})
	}
	_ = g.Wait()

	if r.sink != nil {
		for _, name := range report.Order {
			res, ok := report.Results[name]
			if !ok {
				continue
			}
			if err := r.sink.WriteResults(ctx, name, res.Records); err != nil {
				report.SinkErrors[name] = err
				r.logger.Error("failed to write results", "scenario", name, "error", err)
			}
		}
	}

	if r.snapshotDir != "" && r.keepSnapshots > 0 {
		deleted, err := snapshot.Rotate(r.snapshotDir, r.keepSnapshots)
		if err != nil {
			r.logger.Warn("snapshot rotation failed", "error", err)
		} else if len(deleted) > 0 {
			r.logger.Debug("rotated snapshots", "deleted", len(deleted))
		}
	}

	r.logger.Info("run finished",
		"run_id", r.runID, "completed", len(report.Results), "failed", len(report.Failures))
	return report, nil
}

// safeRunScenario runs one plan and turns a panic in any stage into that
// scenario's failure.
func (r *Runner) safeRunScenario(ctx context.Context, plan Plan, snaps *snapshotWriter) (res *Result, final models.Population, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, final = nil, nil
			err = &PanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	return r.runScenario(ctx, plan, snaps)
}

// runScenario runs one plan on its own stream, population and orchestrator
// and returns the final agent table alongside the result.
func (r *Runner) runScenario(ctx context.Context, plan Plan, snaps *snapshotWriter) (*Result, models.Population, error) {
	start := time.Now()
	logger := r.logger.With("scenario", plan.Scenario)

	rs := randstream.New(plan.Seed)
	agents, err := r.generator.Generate(plan.Params.Segmentation.NumSyntheticSMEs, plan.Params, rs)
	if err != nil {
		return nil, nil, fmt.Errorf("generating population: %w", err)
	}
	logger.Debug("population generated", "agents", len(agents), "seed", plan.Seed)

	opts := []Option{WithLogger(logger), WithEventLogger(r.events)}
	if r.scenarioHook != nil {
		if hook := r.scenarioHook(plan.Scenario); hook != nil {
			opts = append(opts, WithStageHook(hook))
		}
	}

	if snaps != nil && r.yearlySnapshots {
		opts = append(opts, WithYearHook(func(rec models.AggregateRecord, agents []models.Agent) {
			snaps.write(rec.Year, agents)
		}))
	}

	orch := NewOrchestrator(plan.Scenario, plan.Params, agents, rs, opts...)
	records, err := orch.Run(ctx)
	if err != nil {
		return nil, nil, err
	}

	res := &Result{
		Scenario: plan.Scenario,
		Seed:     plan.Seed,
		Records:  records,
		Duration: time.Since(start),
	}
	if r.keepAgents {
		res.Agents = orch.Agents()
	}

	logger.Info("scenario completed", "years", len(records), "duration", res.Duration)
	return res, orch.Agents(), nil
}

// snapshotWriter writes the snapshots of one scenario and keeps the first
// failure. Later writes are skipped once one has failed.
type snapshotWriter struct {
	dir   string
	plan  Plan
	paths []string
	err   error
}

func (w *snapshotWriter) write(year int, agents []models.Agent) {
	if w.err != nil {
		return
	}
	path := snapshot.GeneratePath(w.dir, w.plan.Scenario, year, time.Now())
	if _, err := snapshot.Write(path, snapshot.Header{
		Scenario: w.plan.Scenario,
		Seed:     w.plan.Seed,
		Year:     year,
	}, agents); err != nil {
		w.err = fmt.Errorf("writing %d snapshot: %w", year, err)
		return
	}
	w.paths = append(w.paths, path)
}
