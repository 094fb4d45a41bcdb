// Package mcp provides an MCP (Model Context Protocol) server that exposes the
// scenario simulator as tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/smesim/internal/config"
	"github.com/nvandessel/smesim/internal/logging"
	"github.com/nvandessel/smesim/internal/ratelimit"
)

// DefaultMaxPopulation caps the population of a single sme_run_scenario call.
const DefaultMaxPopulation = 20000

// DefaultMaxYears caps the number of simulated years of a single
// sme_run_scenario call, counted from start_year to end_year inclusive.
const DefaultMaxYears = 50

// Server wraps the MCP SDK server around a simulator configuration.
type Server struct {
	server       *sdk.Server
	cfg          *config.Config
	auditLogger  *AuditLogger
	toolLimiters ratelimit.ToolLimiters
	logger       *slog.Logger

	maxPopulation int
	maxYears      int
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "smesim")
	Version string // Server version

	// Sim is the simulator configuration every tool reads. Required.
	Sim *config.Config

	// AuditDir receives audit.jsonl. Empty disables auditing.
	AuditDir string

	// Logger receives operational logs. Nil discards them.
	Logger *slog.Logger

	// MaxPopulation caps population_size. 0 means DefaultMaxPopulation.
	MaxPopulation int

	// MaxYears caps the simulated year span. 0 means DefaultMaxYears.
	MaxYears int
}

// NewServer creates an MCP server with the simulator tools registered.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil || cfg.Sim == nil {
		return nil, fmt.Errorf("mcp: simulator configuration is required")
	}
	if err := cfg.Sim.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulator configuration: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	maxPop := cfg.MaxPopulation
	if maxPop <= 0 {
		maxPop = DefaultMaxPopulation
	}
	maxYears := cfg.MaxYears
	if maxYears <= 0 {
		maxYears = DefaultMaxYears
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:        mcpServer,
		cfg:           cfg.Sim,
		toolLimiters:  ratelimit.NewToolLimiters(),
		logger:        logger,
		maxPopulation: maxPop,
		maxYears:      maxYears,
	}
	if cfg.AuditDir != "" {
		s.auditLogger = NewAuditLogger(cfg.AuditDir, logger)
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves over stdio until the client disconnects, ctx is cancelled, or
// the process receives a shutdown signal.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			s.logger.Info("shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close releases the audit log.
func (s *Server) Close() error {
	return s.auditLogger.Close()
}
