package main

import (
	"context"
	"errors"
	"os"
	"time"

	"roadrich/internal/cli"
	applog "roadrich/internal/log"
	"roadrich/internal/services"
)

var version = "dev"

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.Info("Starting roadrich-worker", applog.FieldOperation, applog.OpStartup, "version", version)

	cfg := cli.LoadAndValidateConfig(logger)
	flush := cli.InitSentry(logger, cfg, version)
	defer flush()

	store := cli.MustOpenStore(logger, cfg)
	defer store.Close()

	mirror, err := cli.OpenMirror(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize spreadsheet mirror", "error", err)
		os.Exit(1)
	}

	processor := services.NewMirrorProcessor(store, mirror, services.MirrorProcessorConfig{
		PollInterval: cfg.MirrorInterval,
		BatchSize:    cfg.MirrorBatchSize,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Mirror processor stop failed", "error", err)
		}
	})

	// The sweep runs with or without a broker, so rows written while
	// messages were lost still reach the spreadsheet.
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start mirror processor", "error", err)
		os.Exit(1)
	}

	amqpClient, err := cli.ConnectAMQP(cfg)
	switch {
	case err != nil:
		logger.Warn("Failed to initialize AMQP client, relying on periodic sweep", "error", err)
	case amqpClient == nil:
		logger.Info("AMQP disabled, relying on periodic sweep", "interval", cfg.MirrorInterval)
	default:
		defer amqpClient.Close()
		go func() {
			err := amqpClient.ConsumeMirror(ctx, processor.Handle)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
				applog.CaptureError(ctx, err, map[string]string{"component": applog.ComponentAMQP})
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
