package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/nvandessel/smesim/internal/models"
	"github.com/nvandessel/smesim/internal/store"
	"github.com/spf13/cobra"
)

// scenarioRecords is one scenario's stored trajectory.
type scenarioRecords struct {
	Scenario string                   `json:"scenario"`
	Records  []models.AggregateRecord `json:"records"`
}

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results [scenario...]",
		Short: "Show stored results",
		Long: `Read results written by 'smesim run' and print the final year of every
scenario side by side, or every year with --years or when a single scenario
is named.

The sqlite source keeps every run; by default the latest run is shown.
The jsonl and arrow sources hold the last run of each scenario.

Examples:
  smesim results
  smesim results baseline
  smesim results --from sqlite --run 5f0c...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dir, _ := cmd.Flags().GetString("output")
			if dir == "" {
				dir = cfg.Output.Dir
			}
			from, _ := cmd.Flags().GetString("from")
			if from == "" {
				from = "jsonl"
				if len(cfg.Output.Formats) > 0 {
					from = cfg.Output.Formats[0]
				}
			}
			runID, _ := cmd.Flags().GetString("run")

			var loaded []scenarioRecords
			switch from {
			case "sqlite":
				runID, loaded, err = loadSQLiteResults(cmd, dir, runID, args)
			case "jsonl", "arrow":
				names := args
				if len(names) == 0 {
					names = cfg.Scenarios.Names()
				}
				loaded, err = loadFileResults(dir, from, names, len(args) > 0)
			default:
				err = &store.UnknownFormatError{Format: from}
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				return json.NewEncoder(out).Encode(map[string]any{
					"source":    from,
					"run_id":    runID,
					"directory": dir,
					"scenarios": loaded,
				})
			}

			if len(loaded) == 0 {
				fmt.Fprintf(out, "No results found in %s\n", dir)
				return nil
			}
			if runID != "" {
				fmt.Fprintf(out, "Run %s\n\n", runID)
			}

			years, _ := cmd.Flags().GetBool("years")
			if years || len(loaded) == 1 {
				for i, sr := range loaded {
					if i > 0 {
						fmt.Fprintln(out)
					}
					printRecords(out, sr.Scenario, sr.Records)
				}
				return nil
			}

			finals := make([]models.AggregateRecord, 0, len(loaded))
			for _, sr := range loaded {
				if n := len(sr.Records); n > 0 {
					finals = append(finals, sr.Records[n-1])
				}
			}
			printComparison(out, finals)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output directory to read (default: config output dir)")
	cmd.Flags().String("from", "", "Source format: jsonl, arrow, sqlite (default: first configured format)")
	cmd.Flags().String("run", "", "Run id to show (sqlite only, default: latest)")
	cmd.Flags().Bool("years", false, "Print every year instead of the final year only")

	return cmd
}

// loadSQLiteResults reads one run from the results database. An empty runID
// selects the latest run; empty names selects every scenario of the run.
func loadSQLiteResults(cmd *cobra.Command, dir, runID string, names []string) (string, []scenarioRecords, error) {
	ctx := cmd.Context()
	db, err := store.OpenSQLiteResults(dir)
	if err != nil {
		return "", nil, err
	}
	defer db.Close()

	if runID == "" {
		latest, err := db.LatestRun(ctx)
		if errors.Is(err, store.ErrNoRuns) {
			return "", nil, nil
		}
		if err != nil {
			return "", nil, err
		}
		runID = latest.ID
	}
	if len(names) == 0 {
		if names, err = db.Scenarios(ctx, runID); err != nil {
			return "", nil, err
		}
	}

	loaded := make([]scenarioRecords, 0, len(names))
	for _, name := range names {
		records, err := db.Records(ctx, runID, name)
		if err != nil {
			return "", nil, err
		}
		if len(records) == 0 {
			return "", nil, fmt.Errorf("run %s has no results for scenario %q", runID, name)
		}
		loaded = append(loaded, scenarioRecords{Scenario: name, Records: records})
	}
	return runID, loaded, nil
}

// loadFileResults reads per-scenario result files. Missing files are an
// error only for scenarios the user named.
func loadFileResults(dir, format string, names []string, explicit bool) ([]scenarioRecords, error) {
	read := store.ReadJSONL
	if format == "arrow" {
		read = store.ReadArrow
	}

	loaded := make([]scenarioRecords, 0, len(names))
	for _, name := range names {
		path := store.ResultsPath(dir, name, format)
		records, err := read(path)
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading results for %s: %w", name, err)
		}
		loaded = append(loaded, scenarioRecords{Scenario: name, Records: records})
	}
	return loaded, nil
}
