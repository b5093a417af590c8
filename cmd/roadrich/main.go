package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"roadrich/internal/cache"
	"roadrich/internal/cli"
	"roadrich/internal/core"
	apphttp "roadrich/internal/http"
	applog "roadrich/internal/log"
	"roadrich/internal/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	flush := cli.InitSentry(logger, cfg, version)
	defer flush()

	store := cli.MustOpenStore(logger, cfg)
	defer store.Close()

	// Mirror messages are optional: without a broker the mirror worker's
	// sweep still picks up every pending row.
	var publisher services.MirrorPublisher
	amqpClient, err := cli.ConnectAMQP(cfg)
	switch {
	case err != nil:
		logger.Warn("Failed to initialize AMQP client, continuing without mirror messages", "error", err)
	case amqpClient != nil:
		defer amqpClient.Close()
		publisher = amqpClient
	default:
		logger.Info("AMQP disabled, mirror relies on the worker sweep")
	}

	overviews := cache.NewLRUCache[core.MonthOverview](1000, 10*time.Minute)
	svc := apphttp.Services{
		Auth:      services.NewAuthService(store, store),
		Expenses:  services.NewExpenseService(store, publisher, overviews, nil),
		Dashboard: services.NewDashboardService(store, overviews, nil),
		Analysis:  services.NewAnalysisService(store, nil),
		Reports:   services.NewReportService(store, cli.NewComposer(cfg)),
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		SessionTTL:     cfg.SessionTTL,
		SecureCookies:  cfg.SecureCookies,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger.WithComponent(applog.ComponentHTTP),
		Caches:         map[string]cache.Cleaner{"overviews": overviews},
		Ready: func(ctx context.Context) error {
			if err := store.Ping(ctx); err != nil {
				return err
			}
			if amqpClient != nil && !amqpClient.Healthy() {
				return errors.New("AMQP connection down")
			}
			return nil
		},
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting roadrich server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"version", version,
		"mirror_messages", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
