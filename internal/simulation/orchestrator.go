package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nvandessel/smesim/internal/dimensions"
	"github.com/nvandessel/smesim/internal/logging"
	"github.com/nvandessel/smesim/internal/models"
	"github.com/nvandessel/smesim/internal/params"
	"github.com/nvandessel/smesim/internal/randstream"
)

// State is the lifecycle position of an Orchestrator.
type State int

const (
	StateInitialized State = iota
	StateRunning
	StateAggregating
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateAggregating:
		return "aggregating"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrAlreadyRun is returned when Run is called on an orchestrator that has
// left the initialized state.
var ErrAlreadyRun = errors.New("orchestrator has already run")

// StageHook observes the agent table after a stage has run and passed the
// invariant checks. Hooks must not modify agents.
type StageHook func(year int, stage string, agents []models.Agent)

// YearHook observes the agent table once a year has been aggregated. Hooks
// must not modify agents.
type YearHook func(rec models.AggregateRecord, agents []models.Agent)

// Orchestrator runs one scenario year by year. It is not safe for concurrent
// use; the runner gives every scenario its own.
type Orchestrator struct {
	scenario string
	params   *params.Set
	stages   []dimensions.Model
	rand     *randstream.Stream
	env      *dimensions.Environment
	agents   models.Population

	state State
	year  int

	hook     StageHook
	yearHook YearHook
	events   *logging.EventLogger
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStageHook registers a hook called after every stage of every year.
func WithStageHook(h StageHook) Option {
	return func(o *Orchestrator) { o.hook = h }
}

// WithYearHook registers a hook called after every year's aggregation.
func WithYearHook(h YearHook) Option {
	return func(o *Orchestrator) { o.yearHook = h }
}

// WithEventLogger records one event per stage per year.
func WithEventLogger(el *logging.EventLogger) Option {
	return func(o *Orchestrator) { o.events = el }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStages replaces the default stage list.
func WithStages(stages []dimensions.Model) Option {
	return func(o *Orchestrator) { o.stages = stages }
}

// NewOrchestrator takes ownership of agents and rs.
func NewOrchestrator(scenario string, p *params.Set, agents models.Population, rs *randstream.Stream, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		scenario: scenario,
		params:   p,
		stages:   dimensions.Stages(),
		rand:     rs,
		env:      dimensions.NewEnvironment(p, agents),
		agents:   agents,
		state:    StateInitialized,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return o.state }

// Year returns the year being simulated, or the last year simulated once the
// run has finished.
func (o *Orchestrator) Year() int { return o.year }

// Agents returns the agent table. After a completed run it holds the state
// at the end of the final year.
func (o *Orchestrator) Agents() models.Population { return o.agents }

// Environment returns the scenario-wide environment.
func (o *Orchestrator) Environment() dimensions.Environment { return *o.env }

// Run simulates every configured year and returns one record per year in
// year order. The context is checked between years. On failure the
// orchestrator moves to StateFailed and no records are returned.
func (o *Orchestrator) Run(ctx context.Context) ([]models.AggregateRecord, error) {
	if o.state != StateInitialized {
		return nil, ErrAlreadyRun
	}

	years := o.params.Simulation.Years()
	records := make([]models.AggregateRecord, 0, len(years))
	var before []structural

	for _, year := range years {
		if err := ctx.Err(); err != nil {
			o.state = StateFailed
			return nil, fmt.Errorf("scenario %s cancelled before year %d: %w", o.scenario, year, err)
		}

		o.state = StateRunning
		o.year = year
		tally := &dimensions.Tally{}
		var prevCounts map[string]int
		y := &dimensions.Year{
			Agents: o.agents,
			Params: o.params,
			Year:   year,
			Rand:   o.rand,
			Env:    o.env,
			Tally:  tally,
		}

		for _, stage := range o.stages {
			name := stage.Name()
			before = captureStructure(o.agents, before)

			if err := stage.ApplyYear(y); err != nil {
				o.state = StateFailed
				var due *dimensions.DimensionUpdateError
				if errors.As(err, &due) {
					return nil, err
				}
				return nil, &dimensions.DimensionUpdateError{
					Dimension: name, Year: year, AgentID: -1, Reason: err.Error(), Err: err,
				}
			}
			if err := checkInvariants(name, year, o.agents, before); err != nil {
				o.state = StateFailed
				return nil, err
			}

			if o.hook != nil {
				o.hook(year, name, o.agents)
			}
			if o.events != nil {
				counts := tally.Counts()
				o.events.LogStage(logging.StageEvent{
					Scenario: o.scenario,
					Year:     year,
					Stage:    name,
					Agents:   len(o.agents),
					Counters: countsDelta(prevCounts, counts),
				})
				prevCounts = counts
			}
			o.logger.Log(ctx, logging.LevelTrace, "stage completed",
				"scenario", o.scenario, "year", year, "stage", name)
		}

		o.state = StateAggregating
		rec := Aggregate(o.scenario, year, o.agents, tally, o.env)
		o.env.PrevTechAdoptionRate = rec.TechAdoptionRate
		records = append(records, rec)
		if o.yearHook != nil {
			o.yearHook(rec, o.agents)
		}

		o.logger.Debug("year completed",
			"scenario", o.scenario, "year", year,
			"mean_revenue", rec.MeanRevenue, "formal_share", rec.FormalShare)
	}

	o.state = StateCompleted
	return records, nil
}

// countsDelta returns the counters that changed from before to after. A nil
// before counts as all zero.
func countsDelta(before, after map[string]int) map[string]int {
	var delta map[string]int
	for k, v := range after {
		if d := v - before[k]; d != 0 {
			if delta == nil {
				delta = make(map[string]int)
			}
			delta[k] = d
		}
	}
	return delta
}
