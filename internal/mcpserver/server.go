// Package mcpserver exposes noteforge over the Model Context Protocol so
// agent clients can trigger conversions and inspect run statistics.
package mcpserver

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dervan/noteforge/internal/cache"
	"github.com/dervan/noteforge/internal/config"
	"github.com/dervan/noteforge/internal/pipeline"
	"github.com/dervan/noteforge/internal/segment"
	"github.com/dervan/noteforge/internal/stats"
	"github.com/dervan/noteforge/internal/vault"
)

const (
	// ServerName is the MCP server name.
	ServerName = "noteforge"
	// ServerVersion is the current server version.
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp       *server.MCPServer
	cfg       *config.Config
	segmenter segment.Segmenter
	cache     *cache.Cache
	logger    *slog.Logger

	// lastSummary holds the most recent run's statistics for the status
	// tool. Guarded because tool handlers may run concurrently.
	mu          sync.Mutex
	lastSummary *stats.Summary
}

// NewServer creates an MCP server instance around a shared cache and
// segmenter; each convert invocation runs a fresh pipeline against them.
func NewServer(cfg *config.Config, seg segment.Segmenter, c *cache.Cache, logger *slog.Logger) (*Server, error) {
	mcpServer := server.NewMCPServer(ServerName, ServerVersion)

	s := &Server{
		mcp:       mcpServer,
		cfg:       cfg,
		segmenter: seg,
		cache:     c,
		logger:    logger,
	}

	s.mcp.AddTool(convertDirectoryTool(), s.handleConvertDirectory)
	s.mcp.AddTool(conversionStatusTool(), s.handleConversionStatus)

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// runConversion executes one pipeline run with optional directory
// overrides and records its summary.
func (s *Server) runConversion(ctx context.Context, inputDir, outputDir string) (*pipeline.RunResult, *stats.Summary, error) {
	cfg := *s.cfg
	if inputDir != "" {
		cfg.Input.Dir = inputDir
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}

	collector := stats.NewBasic()
	orch, err := pipeline.New(pipeline.Options{
		Config:    &cfg,
		Segmenter: s.segmenter,
		Cache:     s.cache,
		Writer:    vault.NewWriter(cfg.Output.Dir),
		Collector: collector,
		Logger:    s.logger,
	})
	if err != nil {
		return nil, nil, err
	}

	result, err := orch.Run(ctx)
	if err != nil {
		return nil, nil, err
	}

	summary := collector.Summary()
	s.mu.Lock()
	s.lastSummary = summary
	s.mu.Unlock()

	return result, summary, nil
}
