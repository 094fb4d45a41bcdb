package simulation

import (
	"fmt"
	"sync"

	"github.com/nvandessel/smesim/internal/config"
	"github.com/nvandessel/smesim/internal/models"
	"github.com/nvandessel/smesim/internal/params"
)

// TrajectoryStep is a copy of the agent table after one stage of one year.
type TrajectoryStep struct {
	Year   int
	Stage  string
	Agents models.Population
}

// TrajectoryRecorder captures every stage of a run through its Hook.
type TrajectoryRecorder struct {
	mu    sync.Mutex
	steps []TrajectoryStep
}

// Hook returns a StageHook that appends a copy of the table on every call.
func (tr *TrajectoryRecorder) Hook() StageHook {
	return func(year int, stage string, agents []models.Agent) {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		tr.steps = append(tr.steps, TrajectoryStep{
			Year:   year,
			Stage:  stage,
			Agents: models.Population(agents).Clone(),
		})
	}
}

// Steps returns the recorded steps in call order.
func (tr *TrajectoryRecorder) Steps() []TrajectoryStep {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make([]TrajectoryStep, len(tr.steps))
	copy(out, tr.steps)
	return out
}

// SmallConfig returns the default configuration shortened to years simulated
// years and agents synthetic SMEs, for fast runs.
func SmallConfig(years, agents int) (*config.Config, error) {
	cfg := config.Default()
	cfg.Simulation.EndYear = cfg.Simulation.StartYear + (years-1)*cfg.Simulation.TimeStep

	merged, err := params.Resolve(cfg.DefaultParameters, params.Tree{
		"sme_segmentation": map[string]any{"num_synthetic_smes": agents},
	})
	if err != nil {
		return nil, fmt.Errorf("overriding population size: %w", err)
	}
	cfg.DefaultParameters = merged
	return cfg, nil
}
