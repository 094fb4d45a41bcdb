package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newParamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "params <scenario>",
		Short: "Print a scenario's resolved parameter set",
		Long: `Resolve the scenario's overrides against the default parameters, validate
the result, and print it as YAML (or JSON with --json).

Examples:
  smesim params pro_investment
  smesim params digital_leap --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			set, err := cfg.ResolveScenario(args[0])
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(set)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(set); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
