package main

import (
	"context"
	"errors"
	"os"
	"time"

	"billview/internal/backend"
	"billview/internal/cli"
	"billview/internal/log"
	"billview/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting billview-worker")

	if !cfg.OutboxEnabled() {
		logger.Error("SQLITE_DB_PATH is required for the worker")
		os.Exit(1)
	}
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(repo, be.Beneficiaries, worker.Config{
		BatchSize:  cfg.SyncBatchSize,
		MaxRetries: cfg.SyncMaxRetries,
	}, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// pick up anything queued while the worker was down
	if res, err := syncWorker.SweepPending(ctx); err != nil {
		logger.Error("Startup sweep failed", log.FieldError, err)
	} else {
		logger.Info("Startup sweep finished", "synced", res.Synced, "retrying", res.Retrying, "failed", res.Failed)
	}

	sched, err := syncWorker.Schedule(ctx, cfg.SyncSchedule)
	if err != nil {
		logger.Error("Failed to schedule sweep", log.FieldError, err, "schedule", cfg.SyncSchedule)
		os.Exit(1)
	}
	sched.Start()

	if client := cli.InitAMQP(logger, cfg); client != nil {
		defer client.Close()
		go func() {
			if err := client.ConsumeMutations(ctx, syncWorker.Handle); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption stopped, relying on scheduled sweep", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("No AMQP consumer, mutations are delivered by the scheduled sweep only")
	}

	cli.WaitForShutdown(ctx, done)

	logger.Info("Shutting down worker...")
	<-sched.Stop().Done()
	if be.Cleanup != nil {
		be.Cleanup()
	}
	logger.Info("Worker shutdown complete")
}
