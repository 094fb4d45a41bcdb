package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/nvandessel/smesim/internal/config"
	"github.com/nvandessel/smesim/internal/constants"
	"github.com/nvandessel/smesim/internal/snapshot"
	"github.com/spf13/cobra"
)

func newSnapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List, verify and prune population snapshots",
		Long: `Population snapshots hold the final agent table of a scenario run. They
are written by 'smesim run --snapshots' to <output>/snapshots.`,
	}
	cmd.PersistentFlags().StringP("output", "o", "", "Output directory (default: config output dir)")

	cmd.AddCommand(
		newSnapshotsListCmd(),
		newSnapshotsVerifyCmd(),
		newSnapshotsPruneCmd(),
	)
	return cmd
}

// snapshotDir resolves <output>/snapshots from --output or the config.
func snapshotDir(cmd *cobra.Command, cfg *config.Config) string {
	dir, _ := cmd.Flags().GetString("output")
	if dir == "" {
		dir = cfg.Output.Dir
	}
	return filepath.Join(dir, constants.SnapshotDirName)
}

func newSnapshotsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dir := snapshotDir(cmd, cfg)

			infos, err := snapshot.List(dir)
			if err != nil {
				return fmt.Errorf("failed to list snapshots: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				type jsonEntry struct {
					Path       string `json:"path"`
					Scenario   string `json:"scenario"`
					Size       int64  `json:"size_bytes"`
					CreatedAt  string `json:"created_at"`
					Year       int    `json:"year,omitempty"`
					AgentCount int    `json:"agent_count,omitempty"`
				}
				entries := make([]jsonEntry, 0, len(infos))
				for _, info := range infos {
					entry := jsonEntry{
						Path:      info.Path,
						Scenario:  info.Scenario,
						Size:      info.Size,
						CreatedAt: info.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
						Year:      info.Year,
					}
					if h, err := snapshot.ReadHeader(info.Path); err == nil {
						entry.AgentCount = h.AgentCount
					}
					entries = append(entries, entry)
				}
				return json.NewEncoder(out).Encode(map[string]any{
					"snapshots":   entries,
					"total_count": len(entries),
					"directory":   dir,
				})
			}

			if len(infos) == 0 {
				fmt.Fprintf(out, "No snapshots found in %s\n", dir)
				return nil
			}

			fmt.Fprintf(out, "Snapshots in %s:\n", dir)
			var total uint64
			for _, info := range infos {
				total += uint64(info.Size)
				agents := 0
				if h, err := snapshot.ReadHeader(info.Path); err == nil {
					agents = h.AgentCount
				}
				fmt.Fprintf(out, "  %s  %-20s  %d  %8s  %d agents  %s\n",
					info.CreatedAt.Format("2006-01-02 15:04"),
					info.Scenario,
					info.Year,
					humanize.Bytes(uint64(info.Size)),
					agents,
					filepath.Base(info.Path),
				)
			}
			fmt.Fprintf(out, "Total: %d snapshots, %s\n", len(infos), humanize.Bytes(total))
			return nil
		},
	}
}

func newSnapshotsVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify a snapshot's checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			out := cmd.OutOrStdout()

			err := snapshot.VerifyChecksum(path)
			if jsonOutput(cmd) {
				result := map[string]any{"file": path, "valid": err == nil}
				if err != nil {
					result["error"] = err.Error()
				}
				if encErr := json.NewEncoder(out).Encode(result); encErr != nil {
					return encErr
				}
			} else if err == nil {
				green.Fprintln(out, "OK: checksum verified")
				fmt.Fprintf(out, "  File: %s\n", path)
			} else {
				red.Fprintf(out, "FAILED: %v\n", err)
				fmt.Fprintf(out, "  File: %s\n", path)
			}
			if err != nil {
				return fmt.Errorf("snapshot verification failed: %w", err)
			}
			return nil
		},
	}
}

func newSnapshotsPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest snapshots of each scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			keep, _ := cmd.Flags().GetInt("keep")
			if !cmd.Flags().Changed("keep") {
				keep = cfg.Output.KeepSnapshots
			}
			if keep <= 0 {
				return fmt.Errorf("--keep must be at least 1, got %d", keep)
			}

			deleted, err := snapshot.Rotate(snapshotDir(cmd, cfg), keep)
			if err != nil {
				return fmt.Errorf("failed to prune snapshots: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				if deleted == nil {
					deleted = []string{}
				}
				return json.NewEncoder(out).Encode(map[string]any{"deleted": deleted, "keep": keep})
			}
			fmt.Fprintf(out, "Deleted %d snapshots, keeping %d per scenario\n", len(deleted), keep)
			return nil
		},
	}
	cmd.Flags().Int("keep", constants.MaxSnapshotRotation, "Snapshots to keep per scenario (default: keep_snapshots from config)")
	return cmd
}
