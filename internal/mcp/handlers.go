package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/smesim/internal/params"
	"github.com/nvandessel/smesim/internal/randstream"
	"github.com/nvandessel/smesim/internal/ratelimit"
	"github.com/nvandessel/smesim/internal/sanitize"
	"github.com/nvandessel/smesim/internal/simulation"
	"gopkg.in/yaml.v3"
)

const (
	scenariosURI      = "smesim://scenarios"
	scenarioURIPrefix = "smesim://scenarios/"
)

// registerTools registers the simulator tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolListScenarios,
		Description: "List the configured policy scenarios and the simulated time horizon",
	}, s.handleListScenarios)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolResolveParameters,
		Description: "Resolve a scenario's overrides against the default parameters and return the validated parameter set",
	}, s.handleResolveParameters)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolRunScenario,
		Description: "Run one scenario over the configured years and return its yearly aggregate records",
	}, s.handleRunScenario)
}

// registerResources registers the scenario catalogue as readable resources.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         scenariosURI,
		Name:        "smesim-scenarios",
		Description: "Configured policy scenarios with their descriptions.",
		MIMEType:    "text/markdown",
	}, s.handleScenariosResource)

	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: scenarioURIPrefix + "{name}",
		Name:        "smesim-scenario-parameters",
		Description: "Resolved parameter set of one scenario, as YAML.",
		MIMEType:    "application/yaml",
	}, s.handleScenarioResource)
}

func (s *Server) handleScenariosResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	sim := s.cfg.Simulation

	var sb strings.Builder
	sb.WriteString("# Policy Scenarios\n\n")
	fmt.Fprintf(&sb, "Simulated years %d to %d, step %d, base seed %d.\n\n",
		sim.StartYear, sim.EndYear, sim.TimeStep, sim.RandomSeed)
	for _, sc := range s.cfg.Scenarios {
		fmt.Fprintf(&sb, "- **%s**", sc.Name)
		if desc := sanitize.Description(sc.Description); desc != "" {
			fmt.Fprintf(&sb, ": %s", desc)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nResolved parameters are available at %s{name}.\n", scenarioURIPrefix)

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{{
			URI:      scenariosURI,
			MIMEType: "text/markdown",
			Text:     sb.String(),
		}},
	}, nil
}

func (s *Server) handleScenarioResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	name, ok := strings.CutPrefix(uri, scenarioURIPrefix)
	if !ok || name == "" {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}

	set, err := s.cfg.ResolveScenario(name)
	if err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("encoding parameters: %w", err)
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{{
			URI:      uri,
			MIMEType: "application/yaml",
			Text:     string(data),
		}},
	}, nil
}

// handleListScenarios implements the sme_list_scenarios tool.
func (s *Server) handleListScenarios(ctx context.Context, req *sdk.CallToolRequest, args ListScenariosInput) (_ *sdk.CallToolResult, _ ListScenariosOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolListScenarios, start, retErr, nil)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolListScenarios); err != nil {
		return nil, ListScenariosOutput{}, err
	}

	out := ListScenariosOutput{
		Scenarios:  make([]ScenarioSummary, 0, len(s.cfg.Scenarios)),
		StartYear:  s.cfg.Simulation.StartYear,
		EndYear:    s.cfg.Simulation.EndYear,
		RandomSeed: s.cfg.Simulation.RandomSeed,
	}
	for i, sc := range s.cfg.Scenarios {
		out.Scenarios = append(out.Scenarios, ScenarioSummary{
			Name:        sc.Name,
			Description: sanitize.Description(sc.Description),
			Index:       i,
			Overrides:   len(params.LeafPaths(sc.Overrides)),
		})
	}
	return nil, out, nil
}

// handleResolveParameters implements the sme_resolve_parameters tool.
func (s *Server) handleResolveParameters(ctx context.Context, req *sdk.CallToolRequest, args ResolveParametersInput) (_ *sdk.CallToolResult, _ ResolveParametersOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolResolveParameters, start, retErr, sanitizeToolParams(map[string]any{
			"scenario": args.Scenario,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolResolveParameters); err != nil {
		return nil, ResolveParametersOutput{}, err
	}
	if args.Scenario == "" {
		return nil, ResolveParametersOutput{}, fmt.Errorf("scenario is required")
	}

	sc, idx, err := s.cfg.Scenarios.Lookup(args.Scenario)
	if err != nil {
		return nil, ResolveParametersOutput{}, err
	}
	set, err := s.cfg.ResolveScenario(args.Scenario)
	if err != nil {
		return nil, ResolveParametersOutput{}, err
	}

	overridden := params.LeafPaths(sc.Overrides)
	if overridden == nil {
		overridden = []string{}
	}
	return nil, ResolveParametersOutput{
		Scenario:   sc.Name,
		Seed:       randstream.ScenarioSeed(s.cfg.Simulation.RandomSeed, idx),
		Overridden: overridden,
		Parameters: set,
	}, nil
}

// handleRunScenario implements the sme_run_scenario tool.
func (s *Server) handleRunScenario(ctx context.Context, req *sdk.CallToolRequest, args RunScenarioInput) (_ *sdk.CallToolResult, _ RunScenarioOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolRunScenario, start, retErr, sanitizeToolParams(map[string]any{
			"scenario":        args.Scenario,
			"population_size": args.PopulationSize,
			"end_year":        args.EndYear,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolRunScenario); err != nil {
		return nil, RunScenarioOutput{}, err
	}
	if args.Scenario == "" {
		return nil, RunScenarioOutput{}, fmt.Errorf("scenario is required")
	}
	if args.PopulationSize < 0 || args.PopulationSize > s.maxPopulation {
		return nil, RunScenarioOutput{}, fmt.Errorf("%w: population_size must be between 0 and %d, got %d",
			params.ErrConfiguration, s.maxPopulation, args.PopulationSize)
	}

	cfg := *s.cfg
	if args.EndYear != 0 {
		if args.EndYear < cfg.Simulation.StartYear {
			return nil, RunScenarioOutput{}, fmt.Errorf("%w: end_year %d precedes start_year %d",
				params.ErrConfiguration, args.EndYear, cfg.Simulation.StartYear)
		}
		if span := args.EndYear - cfg.Simulation.StartYear + 1; span > s.maxYears {
			return nil, RunScenarioOutput{}, fmt.Errorf("%w: end_year %d spans %d years from start_year %d, at most %d allowed",
				params.ErrConfiguration, args.EndYear, span, cfg.Simulation.StartYear, s.maxYears)
		}
		cfg.Simulation.EndYear = args.EndYear
	}

	runner := simulation.NewRunner(&cfg,
		simulation.WithWorkers(1),
		simulation.WithPopulationSize(args.PopulationSize),
		simulation.WithRunnerLogger(s.logger),
	)
	report, err := runner.Run(ctx, []string{args.Scenario})
	if err != nil {
		return nil, RunScenarioOutput{}, err
	}
	if failure, ok := report.Failures[args.Scenario]; ok {
		return nil, RunScenarioOutput{}, failure
	}
	res, ok := report.Results[args.Scenario]
	if !ok {
		return nil, RunScenarioOutput{}, errors.New("scenario produced no result")
	}

	msg := fmt.Sprintf("Simulated %d years of %s", len(res.Records), res.Scenario)
	if final, ok := res.Final(); ok {
		msg = fmt.Sprintf("%s: %d SMEs in %d, formal share %.1f%%, financing access %.1f%%",
			msg, final.TotalSMEs, final.Year, 100*final.FormalShare, 100*final.FinancingAccessRate)
	}

	return nil, RunScenarioOutput{
		Scenario:   res.Scenario,
		RunID:      report.RunID,
		Seed:       res.Seed,
		DurationMs: res.Duration.Milliseconds(),
		Records:    res.Records,
		Message:    msg,
	}, nil
}
