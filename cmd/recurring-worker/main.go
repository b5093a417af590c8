package main

import (
	"context"
	"errors"
	"os"
	"time"

	"roadrich/internal/cli"
	applog "roadrich/internal/log"
	"roadrich/internal/services"
	"roadrich/internal/worker"
)

var version = "dev"

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.Info("Starting recurring-worker", applog.FieldOperation, applog.OpStartup, "version", version)

	cfg := cli.LoadAndValidateConfig(logger)
	flush := cli.InitSentry(logger, cfg, version)
	defer flush()

	store := cli.MustOpenStore(logger, cfg)
	defer store.Close()

	// Renewed expenses are announced like any other write so the
	// roadrich-worker mirrors them.
	var publisher services.MirrorPublisher
	amqpClient, err := cli.ConnectAMQP(cfg)
	switch {
	case err != nil:
		logger.Warn("Failed to initialize AMQP client, continuing without mirror messages", "error", err)
	case amqpClient != nil:
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP client initialized, renewed expenses will be mirrored")
	default:
		logger.Info("AMQP disabled, renewed expenses will not be announced")
	}

	expenses := services.NewExpenseService(store, publisher, nil, nil)
	processor := services.NewRecurringProcessor(store, expenses)

	job, err := worker.NewPeriodic("recurring", cfg.RecurringInterval, processor.ProcessDueExpenses)
	if err != nil {
		logger.Error("Invalid worker configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("Recurring expense processor configured",
		"interval", cfg.RecurringInterval,
		"backend", cfg.DataBackend)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	if err := job.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Recurring worker failed", "error", err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring-worker shutdown complete", "runs", job.Runs(), "failures", job.Failures())
}
