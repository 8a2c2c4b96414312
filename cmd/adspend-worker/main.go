package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"adspend/internal/amqp"
	"adspend/internal/backend"
	"adspend/internal/cli"
	"adspend/internal/config"
	applog "adspend/internal/log"
	"adspend/internal/metrics"
	"adspend/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat).WithComponent(applog.ComponentWorker)
	logger.Info("Starting adspend-worker")

	if err := cfg.ValidateUpstream(); err != nil {
		logger.Error("Configuration validation failed",
			applog.FieldError, err,
			"error_type", applog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	ucfg, err := backend.UpstreamFromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid upstream configuration",
			applog.FieldError, err,
			"error_type", applog.ErrorTypeConfiguration)
		os.Exit(1)
	}
	upstream, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), ucfg)
	if err != nil {
		logger.Error("Failed to initialize upstream", applog.FieldError, err, "backend", ucfg.Type.String())
		os.Exit(1)
	}
	defer upstream.Close()

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	// Snapshot notifications are optional; without them the dashboard picks
	// up new snapshots on its next refresh.
	var publisher worker.Publisher
	if cfg.AMQPEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient.WithLogger(logger)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	m := metrics.New()
	var metricsSrv *http.Server
	if cfg.WorkerMetricsAddr != "" {
		metricsSrv = &http.Server{
			Addr:              cfg.WorkerMetricsAddr,
			Handler:           m.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", applog.FieldError, err, "addr", cfg.WorkerMetricsAddr)
			}
		}()
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
	})

	syncWorker := worker.NewSyncWorker(upstream.Source, sqliteRepo, publisher, cfg.SnapshotKeep, m, logger)
	if err := syncWorker.Run(ctx, cfg.SyncInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Snapshot worker stopped", applog.FieldError, err)
	}

	cli.WaitForShutdown(ctx, done)
}
