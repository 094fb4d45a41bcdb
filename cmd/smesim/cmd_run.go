package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nvandessel/smesim/internal/config"
	"github.com/nvandessel/smesim/internal/constants"
	"github.com/nvandessel/smesim/internal/logging"
	"github.com/nvandessel/smesim/internal/simulation"
	"github.com/nvandessel/smesim/internal/store"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run scenarios and write their yearly results",
		Long: `Run the named scenarios, or every configured scenario when none are named.

Scenarios run in parallel, each with its own population and random stream
seeded from the base seed and the scenario's position in the config, so a
scenario's results do not depend on which other scenarios run with it.
A failing scenario is reported without stopping the others.

Examples:
  smesim run
  smesim run baseline digital_leap --population 2000
  smesim run --format jsonl,sqlite --snapshots`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}
			if err := store.ValidateFormats(cfg.Output.Formats); err != nil {
				return err
			}
			population, _ := cmd.Flags().GetInt("population")
			if population < 0 {
				return fmt.Errorf("--population must be non-negative, got %d", population)
			}

			logger := newLogger(cmd, cfg)
			events := logging.NewEventLogger(cfg.Output.Dir, cfg.Logging.Level)
			defer events.Close()

			runID := uuid.NewString()
			opts := []simulation.RunnerOption{
				simulation.WithRunID(runID),
				simulation.WithPopulationSize(population),
				simulation.WithRunnerLogger(logger),
				simulation.WithRunnerEvents(events),
			}

			var sink *store.MultiSink
			if len(cfg.Output.Formats) > 0 {
				sink, err = store.Open(cfg.Output.Formats, cfg.Output.Dir, runID)
				if err != nil {
					return fmt.Errorf("opening result sinks: %w", err)
				}
				defer sink.Close()
				opts = append(opts, simulation.WithSink(sink))
			}
			if cfg.Output.Snapshots {
				dir := filepath.Join(cfg.Output.Dir, constants.SnapshotDirName)
				opts = append(opts,
					simulation.WithSnapshots(dir, cfg.Output.KeepSnapshots),
					simulation.WithYearlySnapshots(cfg.Output.SnapshotEveryYear),
				)
			}

			ctx, cancel := signalContext(cmd.Context(), logger)
			defer cancel()

			report, err := simulation.NewRunner(cfg, opts...).Run(ctx, args)
			if err != nil {
				return err
			}
			if sink != nil {
				if err := sink.Close(); err != nil {
					logger.Warn("closing result sinks", "error", err)
				}
			}

			if jsonOutput(cmd) {
				if err := json.NewEncoder(cmd.OutOrStdout()).Encode(newRunJSON(report, cfg)); err != nil {
					return err
				}
			} else {
				printRunReport(cmd.OutOrStdout(), report)
			}

			if !report.OK() {
				return fmt.Errorf("run %s: %d failed, %d not stored, %d snapshot errors",
					report.RunID, len(report.Failures), len(report.SinkErrors), len(report.SnapshotErrors))
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output directory (overrides config)")
	cmd.Flags().StringSlice("format", nil, "Result formats: jsonl, arrow, sqlite (overrides config)")
	cmd.Flags().Int("workers", 0, "Scenarios run at once, 0 for one per CPU (overrides config)")
	cmd.Flags().Int("population", 0, "Synthetic SMEs per scenario (default: num_synthetic_smes)")
	cmd.Flags().Int64("seed", 0, "Base random seed (overrides config)")
	cmd.Flags().Int("end-year", 0, "Last simulated year (overrides config)")
	cmd.Flags().Bool("snapshots", false, "Write each scenario's final population snapshot")
	cmd.Flags().Bool("snapshot-every-year", false, "With --snapshots, write a snapshot for every simulated year")
	cmd.Flags().Bool("no-store", false, "Do not write results, only print them")

	return cmd
}

// applyRunFlags layers explicitly set flags over cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Dir, _ = flags.GetString("output")
	}
	if flags.Changed("format") {
		cfg.Output.Formats, _ = flags.GetStringSlice("format")
	}
	if noStore, _ := flags.GetBool("no-store"); noStore {
		cfg.Output.Formats = nil
	}
	if flags.Changed("workers") {
		cfg.Runner.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("seed") {
		cfg.Simulation.RandomSeed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("end-year") {
		cfg.Simulation.EndYear, _ = flags.GetInt("end-year")
	}
	if flags.Changed("snapshots") {
		cfg.Output.Snapshots, _ = flags.GetBool("snapshots")
	}
	if flags.Changed("snapshot-every-year") {
		cfg.Output.SnapshotEveryYear, _ = flags.GetBool("snapshot-every-year")
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = constants.DefaultOutputDir
	}
	return cfg.Validate()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			logger.Warn("interrupted, cancelling run", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

type runJSON struct {
	RunID          string               `json:"run_id"`
	OutputDir      string               `json:"output_dir"`
	Formats        []string             `json:"formats"`
	Results        []*simulation.Result `json:"results"`
	Failures       map[string]string    `json:"failures,omitempty"`
	SinkErrors     map[string]string    `json:"sink_errors,omitempty"`
	SnapshotErrors map[string]string    `json:"snapshot_errors,omitempty"`
}

func newRunJSON(report *simulation.Report, cfg *config.Config) runJSON {
	out := runJSON{
		RunID:          report.RunID,
		OutputDir:      cfg.Output.Dir,
		Formats:        cfg.Output.Formats,
		Results:        make([]*simulation.Result, 0, len(report.Results)),
		Failures:       errorStrings(report.Failures),
		SinkErrors:     errorStrings(report.SinkErrors),
		SnapshotErrors: errorStrings(report.SnapshotErrors),
	}
	if out.Formats == nil {
		out.Formats = []string{}
	}
	for _, name := range report.Order {
		if res, ok := report.Results[name]; ok {
			out.Results = append(out.Results, res)
		}
	}
	return out
}

func errorStrings(errs map[string]error) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(errs))
	for k, err := range errs {
		out[k] = err.Error()
	}
	return out
}
