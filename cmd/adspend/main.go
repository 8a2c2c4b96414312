package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"adspend/internal/amqp"
	"adspend/internal/backend"
	"adspend/internal/cli"
	"adspend/internal/config"
	"adspend/internal/core"
	"adspend/internal/dashboard"
	apphttp "adspend/internal/http"
	applog "adspend/internal/log"
	"adspend/internal/metrics"
	"adspend/internal/middleware/ratelimit"
	"adspend/internal/render"
	"adspend/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	boot := config.Load()
	logger := cli.SetupLogger(boot.LogLevel, boot.LogFormat)
	cfg := cli.LoadAndValidateConfig(logger)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration",
			applog.FieldError, err,
			"error_type", applog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize data backend",
			applog.FieldError, err,
			"backend", bcfg.Type.String())
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Failed to close data backend", applog.FieldError, err)
		}
	}()
	logger.Info("Initialized data backend", "backend", bcfg.Type.String())

	layout, _ := core.ParseDateLayout(cfg.DateLayout)
	formatter, err := render.NewFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		logger.Error("Invalid currency settings",
			applog.FieldError, err,
			"locale", cfg.Locale,
			"currency", cfg.Currency)
		os.Exit(1)
	}

	m := metrics.New()

	var (
		srv        *apphttp.Server
		amqpClient *amqp.Client
	)
	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
	})

	ctrl := dashboard.New(ctx, res.Source, dashboard.Options{
		Normalizer:   core.NewNormalizer(cfg.Schema(), layout, cfg.CampaignFallback),
		Renderer:     render.NewRenderer(formatter, render.DefaultLabels()),
		FetchTimeout: cfg.FetchTimeout,
		FoldAccents:  cfg.SearchFoldAccents,
		CacheSize:    cfg.ViewCacheSize,
		CacheTTL:     cfg.ViewCacheTTL,
		Metrics:      m,
		Logger:       logger,
	})

	srv = apphttp.NewServer(":"+cfg.Port, ctrl, apphttp.Options{
		Metrics: m,
		Logger:  logger,
		RateLimit: ratelimit.Config{
			RequestsPerMinute: cfg.RefreshRatePerMin,
			Burst:             cfg.RefreshBurst,
		},
		TrustedProxies: cfg.TrustedProxies,
	})

	// Configure server timeouts and limits; a refresh may hold the request
	// for the whole fetch timeout.
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.FetchTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if _, err := ctrl.Refresh(gctx); err != nil {
			// The page shows the error; users can retry from the UI.
			logger.Warn("Initial refresh failed", applog.FieldError, err)
		}
		return nil
	})

	if bcfg.Type == backend.SQLiteBackend && cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, snapshots load on manual refresh only",
				applog.FieldError, err,
				"error_type", applog.ErrorTypeNetwork)
			amqpClient = nil
		} else {
			amqpClient.WithLogger(logger)
			g.Go(func() error {
				err := amqpClient.ConsumeSnapshotUpdated(gctx, worker.RefreshOnSnapshot(ctrl, logger))
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}
	}

	g.Go(func() error {
		logger.Info("Starting adspend server",
			"port", cfg.Port,
			"backend", bcfg.Type.String(),
			applog.FieldOperation, applog.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// A failing consumer takes the server down with it.
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
