// Package config provides unified configuration loading for smesim.
// It supports loading from YAML files and environment variables, layered over
// an embedded default configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/nvandessel/smesim/internal/constants"
	"github.com/nvandessel/smesim/internal/params"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	out := make([]byte, len(defaultYAML))
	copy(out, defaultYAML)
	return out
}

// Config contains all smesim configuration settings.
type Config struct {
	// Simulation sets the time horizon and the base random seed.
	Simulation params.SimulationParams `json:"simulation_parameters" yaml:"simulation_parameters"`

	// DataSources selects where the initial population comes from.
	DataSources DataSourcesConfig `json:"data_sources" yaml:"data_sources"`

	// DefaultParameters holds every dimension parameter; scenarios override
	// subsets of it.
	DefaultParameters params.Tree `json:"default_parameters" yaml:"default_parameters"`

	// Scenarios are kept in declaration order.
	Scenarios Scenarios `json:"scenarios" yaml:"scenarios"`

	// Output contains settings for result sinks and snapshots.
	Output OutputConfig `json:"output" yaml:"output"`

	// Runner contains settings for the scenario worker pool.
	Runner RunnerConfig `json:"runner" yaml:"runner"`

	// Logging contains settings for operational and event logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// DataSourcesConfig configures population input.
type DataSourcesConfig struct {
	// UseSyntheticData must be true; loading survey data is not supported.
	UseSyntheticData bool `json:"use_synthetic_data" yaml:"use_synthetic_data"`
}

// OutputConfig configures where and how results are written.
type OutputConfig struct {
	// Dir is the directory results and snapshots are written to.
	Dir string `json:"dir" yaml:"dir"`

	// Formats lists the result sinks to enable: "jsonl", "arrow", "sqlite".
	Formats []string `json:"formats" yaml:"formats"`

	// Snapshots enables writing the final agent table of every scenario.
	Snapshots bool `json:"snapshots" yaml:"snapshots"`

	// SnapshotEveryYear writes the agent table at the end of every simulated
	// year instead of only the final one.
	SnapshotEveryYear bool `json:"snapshot_every_year" yaml:"snapshot_every_year"`

	// KeepSnapshots is how many snapshots per scenario and year survive rotation.
	KeepSnapshots int `json:"keep_snapshots" yaml:"keep_snapshots"`
}

// RunnerConfig configures scenario execution.
type RunnerConfig struct {
	// Workers bounds how many scenarios run at once. 0 means GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`
}

// LoggingConfig configures smesim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the per-stage event log in the output directory.
	Level string `json:"level" yaml:"level"`
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("config: embedded default.yaml is invalid: %v", err))
	}
	return cfg
}

func parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load loads configuration from path, or from ./config.yaml when path is
// empty and that file exists, then applies environment variable overrides.
// Order: embedded defaults -> config file -> environment variables
func Load(path string) (*Config, error) {
	config := Default()

	if path == "" {
		if _, statErr := os.Stat(constants.DefaultConfigFile); statErr == nil {
			path = constants.DefaultConfigFile
		}
	}
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file layered over the
// embedded defaults. default_parameters in the file are deep-merged into the
// embedded defaults; a scenarios section replaces the default scenarios.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	baseParams := config.DefaultParameters
	baseScenarios := config.Scenarios
	config.DefaultParameters = nil
	config.Scenarios = nil

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if config.DefaultParameters == nil {
		config.DefaultParameters = baseParams
	} else {
		merged, err := params.Resolve(baseParams, config.DefaultParameters)
		if err != nil {
			return nil, fmt.Errorf("merging default_parameters: %w", err)
		}
		config.DefaultParameters = merged
	}
	if config.Scenarios == nil {
		config.Scenarios = baseScenarios
	}

	return config, nil
}

// Validate checks that the configuration is valid. Every error unwraps to
// params.ErrConfiguration.
func (c *Config) Validate() error {
	sim := c.Simulation
	if sim.TimeStep < 1 {
		return fmt.Errorf("%w: time_step must be at least 1, got %d", params.ErrConfiguration, sim.TimeStep)
	}
	if sim.EndYear < sim.StartYear {
		return fmt.Errorf("%w: end_year %d precedes start_year %d", params.ErrConfiguration, sim.EndYear, sim.StartYear)
	}

	if !c.DataSources.UseSyntheticData {
		return fmt.Errorf("%w: use_synthetic_data must be true (survey data loading is not supported)", params.ErrConfiguration)
	}

	if len(c.Scenarios) == 0 {
		return fmt.Errorf("%w: no scenarios configured", params.ErrConfiguration)
	}
	if _, err := params.ResolveSet(c.Simulation, c.DefaultParameters, nil); err != nil {
		return fmt.Errorf("default_parameters: %w", err)
	}

	if c.Runner.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", params.ErrConfiguration, c.Runner.Workers)
	}
	if c.Output.KeepSnapshots < 0 {
		return fmt.Errorf("%w: keep_snapshots must be non-negative, got %d", params.ErrConfiguration, c.Output.KeepSnapshots)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("%w: invalid log level: %s (valid: info, debug, trace, or empty for default)", params.ErrConfiguration, c.Logging.Level)
	}

	return nil
}

// ResolveScenario returns the validated parameter set of the named scenario.
func (c *Config) ResolveScenario(name string) (*params.Set, error) {
	sc, _, err := c.Scenarios.Lookup(name)
	if err != nil {
		return nil, err
	}
	set, err := params.ResolveSet(c.Simulation, c.DefaultParameters, sc.Overrides)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}
	return set, nil
}

// EnvError reports an environment override whose value cannot be parsed.
type EnvError struct {
	Name  string
	Value string
	Err   error
}

func (e *EnvError) Error() string {
	return fmt.Sprintf("invalid %s=%q: %v", e.Name, e.Value, e.Err)
}

func (e *EnvError) Unwrap() []error { return []error{params.ErrConfiguration, e.Err} }

// applyEnvOverrides applies environment variable overrides to the config.
// Every unparseable numeric variable is reported; the others still apply.
func applyEnvOverrides(config *Config) error {
	var errs []error
	envInt := func(name string, dst *int) {
		v := os.Getenv(name)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, &EnvError{Name: name, Value: v, Err: err})
			return
		}
		*dst = n
	}

	if v := os.Getenv("SMESIM_RANDOM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err != nil {
			errs = append(errs, &EnvError{Name: "SMESIM_RANDOM_SEED", Value: v, Err: err})
		} else {
			config.Simulation.RandomSeed = n
		}
	}
	envInt("SMESIM_START_YEAR", &config.Simulation.StartYear)
	envInt("SMESIM_END_YEAR", &config.Simulation.EndYear)
	envInt("SMESIM_WORKERS", &config.Runner.Workers)

	if v := os.Getenv("SMESIM_OUTPUT_DIR"); v != "" {
		config.Output.Dir = v
	}
	if v := os.Getenv("SMESIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	return errors.Join(errs...)
}
