package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/nvandessel/smesim/internal/params"
	"github.com/nvandessel/smesim/internal/randstream"
	"github.com/spf13/cobra"
)

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List configured scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			type entry struct {
				Name        string   `json:"name"`
				Description string   `json:"description,omitempty"`
				Seed        int64    `json:"seed"`
				Overrides   []string `json:"overrides"`
			}
			entries := make([]entry, 0, len(cfg.Scenarios))
			for i, sc := range cfg.Scenarios {
				overrides := params.LeafPaths(sc.Overrides)
				if overrides == nil {
					overrides = []string{}
				}
				entries = append(entries, entry{
					Name:        sc.Name,
					Description: sc.Description,
					Seed:        randstream.ScenarioSeed(cfg.Simulation.RandomSeed, i),
					Overrides:   overrides,
				})
			}

			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				return json.NewEncoder(out).Encode(map[string]any{
					"scenarios":  entries,
					"start_year": cfg.Simulation.StartYear,
					"end_year":   cfg.Simulation.EndYear,
					"count":      len(entries),
				})
			}

			fmt.Fprintf(out, "Scenarios (%d-%d):\n", cfg.Simulation.StartYear, cfg.Simulation.EndYear)
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(tw, "  %s\t%d overrides\t%s\n", e.Name, len(e.Overrides), e.Description)
			}
			return tw.Flush()
		},
	}
}
