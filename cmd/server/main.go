// Package main provides the entry point for the ScienceSwipe API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/scienceswipe/internal/cache"
	"github.com/helixir/scienceswipe/internal/config"
	"github.com/helixir/scienceswipe/internal/database"
	"github.com/helixir/scienceswipe/internal/events"
	"github.com/helixir/scienceswipe/internal/feed"
	"github.com/helixir/scienceswipe/internal/imagegen"
	"github.com/helixir/scienceswipe/internal/observability"
	"github.com/helixir/scienceswipe/internal/repository"
	httpserver "github.com/helixir/scienceswipe/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger, logCloser := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	defer logCloser.Close()
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("scienceswipe server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
	}

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		if err := migrateUp(db, cfg.Database.MigrationPath, logger); err != nil {
			return err
		}
	}

	// Create repositories.
	rowRepo := repository.NewPgRowRepository(db)
	reactionRepo := repository.NewPgReactionRepository(db, logger)

	// Event publisher.
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(events.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, logger, metrics)
		logger.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.Topic).
			Msg("kafka event publisher enabled")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	// Feed service, optionally cached in Redis.
	feedOpts := []feed.Option{
		feed.WithReactionCounter(reactionRepo),
		feed.WithMetrics(metrics),
		feed.WithMaxPapers(cfg.Feed.MaxPapers),
		feed.WithQueryTimeout(cfg.Feed.QueryTimeout),
	}
	if cfg.Redis.Enabled {
		rdb, err := cache.NewClient(ctx, cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rdb.Close()
		feedOpts = append(feedOpts, feed.WithCache(cache.NewPaperCache(rdb, cfg.Redis.TTL, cfg.Redis.KeyPrefix)))
		logger.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.TTL).Msg("feed cache enabled")
	}
	feedSvc := feed.NewService(rowRepo, logger, feedOpts...)

	// Image generation.
	genOpts := []imagegen.GeneratorOption{
		imagegen.WithInvalidator(feedSvc),
		imagegen.WithEventPublisher(publisher),
		imagegen.WithGeneratorMetrics(metrics),
	}
	if bucket := cfg.Images.Storage.Bucket; bucket != "" {
		gcs, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("create storage client: %w", err)
		}
		defer gcs.Close()
		genOpts = append(genOpts, imagegen.WithObjectStore(
			imagegen.NewGCSStore(gcs, bucket, cfg.Images.Storage.Prefix, cfg.Images.Storage.PublicBaseURL),
		))
		logger.Info().Str("bucket", bucket).Msg("generated images re-hosted in GCS")
	}
	if cfg.Images.OpenAI.APIKey == "" {
		logger.Warn().Msg("no image provider API key configured, image generation will fail")
	}
	provider := imagegen.NewOpenAIProvider(imagegen.OpenAIConfig{
		APIKey:      cfg.Images.OpenAI.APIKey,
		BaseURL:     cfg.Images.OpenAI.BaseURL,
		Model:       cfg.Images.Model,
		Timeout:     cfg.Images.Timeout,
		ReturnBytes: cfg.Images.Storage.Bucket != "",
	})
	generator := imagegen.NewGenerator(feedSvc, rowRepo, provider, imagegen.GeneratorConfig{
		DefaultWidth:  cfg.Images.DefaultWidth,
		DefaultHeight: cfg.Images.DefaultHeight,
		RateLimit:     cfg.Images.RateLimit,
		RateBurst:     cfg.Images.RateBurst,
	}, logger, genOpts...)

	// HTTP API server.
	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, httpserver.Deps{
		Feed:      feedSvc,
		Images:    generator,
		Reactions: reactionRepo,
		Publisher: publisher,
		Health:    db,
		Metrics:   metrics,
	}, logger)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.ReadTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("scienceswipe server is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down scienceswipe server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("scienceswipe server shutdown complete")
	return nil
}

func migrateUp(db *database.DB, path string, logger zerolog.Logger) error {
	source, err := database.MigrationSource(path)
	if err != nil {
		return err
	}
	migrator, err := database.NewMigrator(db, source, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
