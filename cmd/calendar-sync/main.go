package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tradeboard/calendar-sync/pkg/client"
	"github.com/tradeboard/calendar-sync/pkg/config"
	"github.com/tradeboard/calendar-sync/pkg/db"
	"github.com/tradeboard/calendar-sync/pkg/notify"
	"github.com/tradeboard/calendar-sync/pkg/orchestrator"
	"github.com/tradeboard/calendar-sync/pkg/records"
	"github.com/tradeboard/calendar-sync/pkg/registry"
	"github.com/tradeboard/calendar-sync/pkg/server"
)

const (
	defaultConfigPath = "config.yaml"
	gracefulTimeout   = 30 * time.Second
)

var (
	configPath = flag.String("config", defaultConfigPath, "Path to configuration file")
	version    = flag.Bool("version", false, "Print version information")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	dryRun     = flag.Bool("dry-run", false, "Run without publishing notifications")
)

// Version information - can be set at build time
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	flag.Parse()

	if *version {
		printVersion()
		os.Exit(0)
	}

	app, err := NewApp(*configPath, *debug, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(); err != nil {
		app.logger.Error("Failed to start application", "error", err)
		os.Exit(1)
	}

	app.logger.Info("Calendar sync service started successfully")

	sig := <-sigChan
	app.logger.Info("Received shutdown signal", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulTimeout)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		app.logger.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	app.logger.Info("Calendar sync service stopped gracefully")
}

// App holds the main application components
type App struct {
	config    *config.Config
	logger    *slog.Logger
	database  *sql.DB
	publisher *notify.Publisher
	server    *server.Server
	dryRun    bool
}

// NewApp creates a new application instance
func NewApp(configPath string, debugMode, dryRun bool) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.Logging, debugMode)
	logger.Info("Starting calendar sync service",
		"version", Version,
		"commit", GitCommit,
		"build_time", BuildTime,
		"config_path", configPath,
		"dry_run", dryRun)

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Init(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Sync runs notify over NATS; dry-run swaps in the log-only notifier.
	var publisher *notify.Publisher
	var notifier orchestrator.Notifier
	if !dryRun {
		natsConfig := notify.DefaultConfig()
		natsConfig.URL = cfg.NATS.URL
		natsConfig.Subject = cfg.NATS.Subject
		publisher, err = notify.NewPublisher(natsConfig, logger)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
		}
		notifier = publisher
	} else {
		notifier = notify.NewLogNotifier(logger)
		logger.Info("Running in dry-run mode - notifications will not be published")
	}

	auth := server.NewStaticTokenAuthenticator(cfg.Server.Tokens)
	connectionRegistry := registry.New(database, logger)
	recordStore := records.New(database, logger)

	// Sync runs fan out through the HTTP sync endpoint with the caller's
	// own token, so the run and single-connection paths share one
	// authorization model.
	newSyncer := func(token string) orchestrator.Syncer {
		return client.New(client.Config{
			Endpoint:    cfg.Sync.Endpoint,
			Token:       token,
			Timeout:     cfg.Sync.Timeout,
			MaxAttempts: cfg.Sync.MaxAttempts,
		}, logger)
	}

	syncHandler := server.NewSyncHandler(auth, connectionRegistry, recordStore, logger)
	runHandler := server.NewSyncRunHandler(auth, connectionRegistry, notifier, newSyncer, logger)
	connectionsHandler := server.NewConnectionsHandler(auth, connectionRegistry, logger)
	srv := server.New(cfg.Server.Addr, syncHandler, runHandler, connectionsHandler, logger)

	return &App{
		config:    cfg,
		logger:    logger,
		database:  database,
		publisher: publisher,
		server:    srv,
		dryRun:    dryRun,
	}, nil
}

// Start starts the application services
func (a *App) Start() error {
	if err := a.server.Start(); err != nil {
		return fmt.Errorf("failed to start sync server: %w", err)
	}
	return nil
}

// Stop gracefully stops the application services
func (a *App) Stop(ctx context.Context) error {
	a.logger.Info("Shutting down application")

	if err := a.server.Stop(ctx); err != nil {
		a.logger.Error("Error stopping sync server", "error", err)
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("Error closing NATS publisher", "error", err)
		}
	}

	if err := a.database.Close(); err != nil {
		a.logger.Error("Error closing database", "error", err)
	}

	return nil
}

// setupLogger configures the application logger
func setupLogger(cfg config.LoggingConfig, debugMode bool) *slog.Logger {
	var level slog.Level

	if debugMode {
		level = slog.LevelDebug
	} else {
		switch cfg.Level {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Calendar Sync %s\n", Version)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Build Time: %s\n", BuildTime)
}
