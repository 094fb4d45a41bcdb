package mcp

import (
	"github.com/nvandessel/smesim/internal/models"
	"github.com/nvandessel/smesim/internal/params"
)

// ListScenariosInput defines the input for the sme_list_scenarios tool.
type ListScenariosInput struct{}

// ScenarioSummary describes one configured scenario.
type ScenarioSummary struct {
	Name        string `json:"name" jsonschema:"Scenario name"`
	Description string `json:"description,omitempty" jsonschema:"Human-readable description"`
	Index       int    `json:"index" jsonschema:"Declaration index, added to the base seed"`
	Overrides   int    `json:"overrides" jsonschema:"Number of parameter leaves the scenario overrides"`
}

// ListScenariosOutput defines the output for the sme_list_scenarios tool.
type ListScenariosOutput struct {
	Scenarios  []ScenarioSummary `json:"scenarios" jsonschema:"Configured scenarios in declaration order"`
	StartYear  int               `json:"start_year" jsonschema:"First simulated year"`
	EndYear    int               `json:"end_year" jsonschema:"Last simulated year"`
	RandomSeed int64             `json:"random_seed" jsonschema:"Base random seed"`
}

// ResolveParametersInput defines the input for the sme_resolve_parameters tool.
type ResolveParametersInput struct {
	Scenario string `json:"scenario" jsonschema:"Scenario name, as listed by sme_list_scenarios"`
}

// ResolveParametersOutput defines the output for the sme_resolve_parameters tool.
type ResolveParametersOutput struct {
	Scenario   string      `json:"scenario" jsonschema:"Scenario name"`
	Seed       int64       `json:"seed" jsonschema:"Random seed the scenario runs with"`
	Overridden []string    `json:"overridden" jsonschema:"Dotted paths of the parameters the scenario overrides"`
	Parameters *params.Set `json:"parameters" jsonschema:"Fully resolved and validated parameter set"`
}

// RunScenarioInput defines the input for the sme_run_scenario tool.
type RunScenarioInput struct {
	Scenario       string `json:"scenario" jsonschema:"Scenario name, as listed by sme_list_scenarios"`
	PopulationSize int    `json:"population_size,omitempty" jsonschema:"Number of synthetic SMEs (default: configured size)"`
	EndYear        int    `json:"end_year,omitempty" jsonschema:"Last simulated year (default: configured end year; the span from start_year is capped by the server)"`
}

// RunScenarioOutput defines the output for the sme_run_scenario tool.
type RunScenarioOutput struct {
	Scenario   string                   `json:"scenario" jsonschema:"Scenario name"`
	RunID      string                   `json:"run_id" jsonschema:"Identifier of this run"`
	Seed       int64                    `json:"seed" jsonschema:"Random seed used"`
	DurationMs int64                    `json:"duration_ms" jsonschema:"Wall time of the run in milliseconds"`
	Records    []models.AggregateRecord `json:"records" jsonschema:"One aggregate record per simulated year, in year order"`
	Message    string                   `json:"message" jsonschema:"Human-readable result message"`
}
