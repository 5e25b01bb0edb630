package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"billview/internal/backend"
	"billview/internal/cli"
	apphttp "billview/internal/http"
	"billview/internal/log"
	"billview/internal/services"
	"billview/internal/source"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

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

	var (
		outbox    services.Outbox
		publisher services.Publisher
		stats     apphttp.OutboxStats
		closers   []func() error
	)
	if cfg.OutboxEnabled() {
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		outbox, stats = repo, repo
		closers = append(closers, repo.Close)
		if client := cli.InitAMQP(logger, cfg); client != nil {
			publisher = client
			closers = append(closers, client.Close)
		}
	} else {
		logger.Info("Mutation outbox disabled, beneficiary changes are applied synchronously")
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MutationRateLimit:  cfg.MutationRateLimit,
		ReportCacheSize:    cfg.ReportCacheSize,
		ReportCacheTTL:     cfg.ReportCacheTTL,
	}, apphttp.Dependencies{
		Loader:        source.NewLoader(be.Records, cfg.SnapshotTTL, logger),
		Beneficiaries: services.NewBeneficiaryService(be.Beneficiaries, outbox, publisher, logger),
		Regions:       be.Regions,
		Outbox:        stats,
	}, logger)
	if err != nil {
		logger.Error("Failed to create server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				logger.Warn("Cleanup failed", log.FieldError, err)
			}
		}
		if be.Cleanup != nil {
			be.Cleanup()
		}
	})

	logger.Info("Starting billview server", "port", cfg.Port, "backend", cfg.DataBackend, "outbox", cfg.OutboxEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
