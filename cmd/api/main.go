// Package main provides the entrypoint for the ski touring scoring API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/skitourlive/skitourlive/internal/api"
	"github.com/skitourlive/skitourlive/internal/api/middleware"
	"github.com/skitourlive/skitourlive/internal/config"
	"github.com/skitourlive/skitourlive/internal/database"
	"github.com/skitourlive/skitourlive/internal/dataset"
	"github.com/skitourlive/skitourlive/internal/featureflags"
	"github.com/skitourlive/skitourlive/internal/provider/resilience"
	"github.com/skitourlive/skitourlive/internal/scoring"
	"github.com/skitourlive/skitourlive/internal/telemetry"
	"github.com/skitourlive/skitourlive/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "skitour-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting ski touring scoring API")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		SampleRatio:    cfg.OTelSampleRatio,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.OTelEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetricsWithMeter(tp.Meter)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize HTTP metrics")
	}
	scoringMetrics, err := tp.ScoringMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize scoring metrics")
	}

	// Connect to database when a component is backed by PostgreSQL
	var pool *pgxpool.Pool
	if cfg.NeedsDatabase() {
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare database schema")
		}
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")
	}

	// Feature flags
	var ffRepo featureflags.Repository = featureflags.NewInMemoryRepository()
	if cfg.FlagsFromDatabase {
		ffRepo = featureflags.NewPostgresRepository(pool)
	}
	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository:   ffRepo,
		Logger:       log,
		CacheTTL:     1 * time.Minute,
		DefaultFlags: defaultFlags(cfg),
	})
	log.Info().Bool("from_database", cfg.FlagsFromDatabase).Msg("feature flags service initialized")

	// Dataset source
	var repo dataset.Repository
	switch cfg.DataSource {
	case config.SourcePostgres:
		repo = dataset.NewPostgresRepository(pool, log)
	default:
		repo = dataset.NewFileRepository(dataset.FileRepositoryConfig{
			RoutesPath:    cfg.RoutesCSV,
			WeatherPath:   cfg.WeatherCSV,
			BulletinsPath: cfg.BulletinsJSON,
			Logger:        log,
		})
	}

	loader := dataset.NewLoader(dataset.LoaderConfig{
		Repository:    repo,
		ModelPath:     cfg.ModelPath,
		Massifs:       cfg.MassifCodes,
		Neighbors:     cfg.WeatherNeighbors,
		NeighborsFunc: ffService.WeatherNeighbors,
		CacheSize:     cfg.WeatherCacheSize,
		Logger:        log,
	})
	holder := dataset.NewHolder(loader, log)

	registry := resilience.NewRegistry()
	registry.Register("snow_model", holder.ModelBreaker())

	engine := scoring.NewEngine(scoring.EngineConfig{
		Logger:      log,
		Concurrency: cfg.ScoringConcurrency,
		WindowDays:  cfg.WindowDays,
		Metrics:     scoringMetrics,
	})

	// Load the first session in the background; /v1/ops/ready reports 503 until it lands.
	go func() {
		loadCtx, cancel := context.WithTimeout(ctx, cfg.ReloadTimeout)
		defer cancel()
		if _, err := holder.Reload(loadCtx); err != nil {
			log.Error().Err(err).Msg("initial dataset load failed, waiting for a reload")
		}
	}()

	// Reload listener
	if cfg.PubSubEnabled() {
		warm := worker.NewWarmJob(worker.WarmJobConfig{
			Config: worker.WarmConfig{
				Concurrency: cfg.ScoringConcurrency,
				WindowDays:  cfg.WindowDays,
			},
			Sessions: holder,
			Flags:    ffService,
			Logger:   log,
		})
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.PubSubSubscription,
			Processor:        worker.NewProcessor(holder, warm, log),
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer func() {
			if err := handler.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close pubsub client")
			}
		}()

		go func() {
			if err := handler.Start(ctx); err != nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:       Version,
		BuildTime:     BuildTime,
		Logger:        log,
		ServiceName:   serviceName,
		Metrics:       metrics,
		Holder:        holder,
		Engine:        engine,
		Flags:         ffService,
		Registry:      registry,
		AdminToken:    cfg.AdminToken,
		RequireTLS:    cfg.RequireTLS,
		ReloadTimeout: cfg.ReloadTimeout,
	})
	if cfg.AdminToken == "" {
		log.Warn().Msg("ADMIN_TOKEN not set - admin endpoints are disabled")
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ReloadTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1) //nolint:gocritic // intentional exit, deferred cleanup is best-effort
	}

	log.Info().Msg("server stopped")
}

// defaultFlags seeds the runtime flags from the process configuration.
func defaultFlags(cfg config.Config) map[string]*featureflags.Flag {
	flags := featureflags.DefaultFlags()
	if cfg.WeatherNeighbors > 0 {
		flags[featureflags.FlagWeatherNeighbors].Value = cfg.WeatherNeighbors
	}
	if cfg.ScoringConcurrency > 0 {
		flags[featureflags.FlagScoringConcurrency].Value = cfg.ScoringConcurrency
	}
	return flags
}
