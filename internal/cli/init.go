// Package cli provides common CLI initialization utilities shared by
// cmd/roadrich, cmd/roadrich-worker, cmd/recurring-worker and
// cmd/roadrich-report.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"roadrich/internal/amqp"
	"roadrich/internal/config"
	applog "roadrich/internal/log"
	"roadrich/internal/report"
	"roadrich/internal/sheets"
	gsheet "roadrich/internal/sheets/google"
	memsheet "roadrich/internal/sheets/memory"
	"roadrich/internal/storage"
	"roadrich/internal/storage/memory"
)

// SetupLogger builds the process logger for component at the LOG_LEVEL
// level and installs it as the slog default. An unknown level falls back
// to info.
func SetupLogger(level, component string) *applog.Logger {
	lvl, err := applog.ParseLevel(level)
	cfg := applog.DefaultConfig()
	cfg.Level = lvl
	cfg.Component = component
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldOperation, applog.OpStartup, "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSentry enables error reporting from the configuration. The returned
// func flushes pending events and must be deferred.
func InitSentry(logger *applog.Logger, cfg *config.Config, release string) func() {
	flush, err := applog.InitSentry(applog.SentryConfig{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     release,
	})
	if err != nil {
		logger.Warn("Sentry disabled", "error", err)
	}
	return flush
}

// OpenStore opens the configured data backend.
func OpenStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.DataBackend {
	case "memory":
		slog.Info("Using in-memory store, data is lost on exit", applog.FieldComponent, applog.ComponentStorage)
		return memory.New(), nil
	case "sqlite", "":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store at %s: %w", cfg.SQLiteDBPath, err)
		}
		slog.Info("Using SQLite store", applog.FieldComponent, applog.ComponentStorage, "path", cfg.SQLiteDBPath)
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}

// MustOpenStore is OpenStore that exits the process on failure.
func MustOpenStore(logger *applog.Logger, cfg *config.Config) storage.Store {
	store, err := OpenStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize store", applog.FieldOperation, applog.OpStartup, "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return store
}

// ConnectAMQP connects to the broker when AMQP_URL is set. It returns nil
// without error when messaging is not configured.
func ConnectAMQP(cfg *config.Config) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect AMQP: %w", err)
	}
	slog.Info("AMQP client connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}

// OpenMirror returns the Google Sheets mirror when a spreadsheet is
// configured and an in-memory mirror otherwise.
func OpenMirror(ctx context.Context, cfg *config.Config) (sheets.Mirror, error) {
	if !cfg.MirrorEnabled() {
		slog.InfoContext(ctx, "No spreadsheet configured, mirroring to memory")
		return memsheet.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("open Google Sheets mirror: %w", err)
	}
	return client, nil
}

// NewComposer builds the report composer from the report settings.
func NewComposer(cfg *config.Config) *report.Composer {
	opts := report.DefaultOptions()
	opts.FilePrefix = cfg.ReportFilePrefix
	opts.ProductURL = cfg.ReportProductURL
	opts.Watermark = cfg.ReportWatermark
	return report.NewComposer(report.NewBackend(cfg.ReportFontDir), opts)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown, "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
