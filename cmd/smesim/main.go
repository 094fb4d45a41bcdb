package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nvandessel/smesim/internal/config"
	"github.com/nvandessel/smesim/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "smesim",
		Short: "SME policy scenario simulator",
		Long: `smesim simulates a synthetic population of small and medium enterprises
year by year under alternative policy scenarios.

Each scenario overrides part of the default parameter set. Every year every
firm passes through twelve dimension models (environment, financing,
technology, market access, skills, regulation, innovation, sustainability,
resilience, internationalization, inclusion, size) and the population is
summarized into one aggregate record per scenario and year.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./config.yaml if present, else built-in defaults)")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newRunCmd(),
		newScenariosCmd(),
		newParamsCmd(),
		newResultsCmd(),
		newSnapshotsCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

// loadConfig loads and validates the configuration named by --config and
// applies --log-level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger returns the operational logger, writing to the command's stderr.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

func jsonOutput(cmd *cobra.Command) bool {
	jsonOut, _ := cmd.Flags().GetBool("json")
	return jsonOut
}
