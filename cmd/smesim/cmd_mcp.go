package main

import (
	"github.com/nvandessel/smesim/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve the simulator as MCP tools over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing the tools
sme_list_scenarios, sme_resolve_parameters and sme_run_scenario.

Tool calls are appended to audit.jsonl in the output directory unless
--no-audit is set. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			maxPop, _ := cmd.Flags().GetInt("max-population")
			maxYears, _ := cmd.Flags().GetInt("max-years")
			noAudit, _ := cmd.Flags().GetBool("no-audit")

			serverCfg := &mcp.Config{
				Name:          "smesim",
				Version:       version,
				Sim:           cfg,
				Logger:        newLogger(cmd, cfg),
				MaxPopulation: maxPop,
				MaxYears:      maxYears,
			}
			if !noAudit {
				serverCfg.AuditDir = cfg.Output.Dir
			}

			server, err := mcp.NewServer(serverCfg)
			if err != nil {
				return err
			}
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().Int("max-population", mcp.DefaultMaxPopulation, "Largest population_size a tool call may request")
	cmd.Flags().Int("max-years", mcp.DefaultMaxYears, "Longest start_year..end_year span a tool call may request")
	cmd.Flags().Bool("no-audit", false, "Do not write audit.jsonl")

	return cmd
}
