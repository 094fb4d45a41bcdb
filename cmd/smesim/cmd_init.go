package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nvandessel/smesim/internal/config"
	"github.com/nvandessel/smesim/internal/constants"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to config.yaml",
		Long: `Write the built-in configuration, with every default parameter and the
five standard scenarios, to a file you can edit.

Examples:
  smesim init
  smesim init --path scenarios.yaml --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("path")
			force, _ := cmd.Flags().GetBool("force")

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, config.DefaultYAML(), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			if jsonOutput(cmd) {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"status": "initialized",
					"path":   path,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().String("path", constants.DefaultConfigFile, "File to write")
	cmd.Flags().Bool("force", false, "Overwrite an existing file")

	return cmd
}
