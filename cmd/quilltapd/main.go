package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/foundry-9/quilltap/config"
	"github.com/foundry-9/quilltap/llm"
	"github.com/foundry-9/quilltap/llm/factory"
	qtlogger "github.com/foundry-9/quilltap/logger"
	"github.com/foundry-9/quilltap/migrations"
	"github.com/foundry-9/quilltap/server"
	"github.com/foundry-9/quilltap/store"
	"github.com/foundry-9/quilltap/tools"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listenAddr = flag.String("listen", "", "TCP address to listen on (overrides config)")
		logFile    = flag.String("logfile", "", "Path to log file. If not set, logs to stdout")
		pretty     = flag.Bool("pretty", false, "Use pretty console output (only valid when logfile is not set)")
		dbPath     = flag.String("db", "", "Path to SQLite database file (overrides config)")
	)
	flag.Parse()

	if *logFile != "" && *pretty {
		return fmt.Errorf("--logfile and --pretty are mutually exclusive")
	}

	// API keys may live in a local .env; a missing file is fine.
	_ = godotenv.Load()

	configPath := config.GetConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if *listenAddr != "" {
		cfg.Server.Listen = *listenAddr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger, err := qtlogger.Init(cfg.Logging.Level, *logFile, *pretty || cfg.Logging.Pretty)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info().
		Str("listen", cfg.Server.Listen).
		Str("db", cfg.Database.Path).
		Msg("quilltapd starting")

	db, err := sql.Open("sqlite3", cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck // No remedy for db close errors

	if err := migrations.Run(db, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	messageStore := store.NewStore(db)
	registry := llm.NewRegistry(factory.Bootstrap)

	toolRegistry := tools.NewRegistry(logger)
	if imageProvider := imageCapableProvider(cfg, registry, logger); imageProvider != nil {
		imageModel := ""
		if pc := cfg.Providers["google"]; pc != nil {
			imageModel = pc.Model
		}
		toolRegistry.RegisterImageGeneration(imageProvider, imageModel, nil)
	}

	srv, err := server.New(cfg, registry, messageStore, toolRegistry, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

// imageCapableProvider resolves the provider used for the generate_image
// tool. Only Gemini supports image generation today, so the tool is wired
// only when google credentials are configured.
func imageCapableProvider(cfg *config.Config, registry *llm.Registry, logger zerolog.Logger) llm.Provider {
	opts := cfg.ProviderOptions("google", logger)
	if opts.APIKey == "" {
		return nil
	}
	provider, err := registry.Resolve("google", opts)
	if err != nil {
		logger.Warn().Err(err).Msg("image generation disabled")
		return nil
	}
	return provider
}
