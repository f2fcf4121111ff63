package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/dervan/noteforge/internal/cache"
	"github.com/dervan/noteforge/internal/config"
	"github.com/dervan/noteforge/internal/mcpserver"
	"github.com/dervan/noteforge/internal/pipeline"
	"github.com/dervan/noteforge/internal/segment"
	"github.com/dervan/noteforge/internal/stats"
	"github.com/dervan/noteforge/internal/vault"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cmd := &cli.Command{
		Name:    "noteforge",
		Usage:   "Convert plain-text files into a linked vault of atomic markdown notes",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "noteforge.yaml",
				Sources: cli.EnvVars("NOTEFORGE_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "convert",
				Usage:  "Run a conversion over the configured input directory",
				Action: runConvert,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "input",
						Aliases: []string{"i"},
						Usage:   "Input directory or file (overrides config)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Vault output directory (overrides config)",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve conversion tools over MCP on stdio",
				Action: runServe,
			},
			{
				Name:   "buildinfo",
				Usage:  "Print build configuration",
				Action: runBuildInfo,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func runConvert(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	if dir := cmd.String("input"); dir != "" {
		cfg.Input.Dir = dir
	}
	if dir := cmd.String("output"); dir != "" {
		cfg.Output.Dir = dir
	}

	segmenter, responseCache, err := buildCore(cfg, logger)
	if err != nil {
		return err
	}
	defer segmenter.Close()
	defer responseCache.Close()

	collector := stats.NewBasic()
	orch, err := pipeline.New(pipeline.Options{
		Config:    cfg,
		Segmenter: segmenter,
		Cache:     responseCache,
		Writer:    vault.NewWriter(cfg.Output.Dir),
		Collector: collector,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	result, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	fmt.Print(collector.Summary().Format())
	fmt.Printf("Wrote %d notes to %s\n", len(result.Written), cfg.Output.Dir)
	return nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	segmenter, responseCache, err := buildCore(cfg, logger)
	if err != nil {
		return err
	}
	defer segmenter.Close()
	defer responseCache.Close()

	srv, err := mcpserver.NewServer(cfg, segmenter, responseCache, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	logger.Info("MCP server ready, listening on stdio",
		slog.String("version", version),
		slog.String("build_time", buildTime))
	return srv.Serve(ctx)
}

func runBuildInfo(_ context.Context, _ *cli.Command) error {
	fmt.Printf("noteforge %s (built %s)\n", version, buildTime)
	fmt.Printf("Build Mode: %s\n", cache.BuildMode)
	fmt.Printf("SQLite Driver: %s\n", cache.DriverName)
	return nil
}

// setup loads configuration and builds the application logger. Logs go to
// stderr: convert prints its summary on stdout and serve reserves stdout
// for the MCP protocol.
func setup(cmd *cli.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadOrDefault(cmd.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	return cfg, logger, nil
}

// buildCore creates the shared segmenter and response cache.
func buildCore(cfg *config.Config, logger *slog.Logger) (segment.Segmenter, *cache.Cache, error) {
	segmenter, err := segment.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create provider: %w", err)
	}

	var store cache.Store
	if cfg.Cache.Enabled {
		store = cache.OpenStore(cfg.Cache.Path, logger)
	} else {
		store = cache.NewMemoryStore()
	}

	responseCache, err := cache.New(cache.Options{
		Store:         store,
		MemoryEntries: cfg.Cache.MemoryEntries,
		Logger:        logger,
	})
	if err != nil {
		segmenter.Close()
		return nil, nil, fmt.Errorf("failed to create cache: %w", err)
	}

	return segmenter, responseCache, nil
}
