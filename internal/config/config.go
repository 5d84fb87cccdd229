// Package config reads the API process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/skitourlive/skitourlive/internal/database"
)

// Data sources.
const (
	SourceFiles    = "files"
	SourcePostgres = "postgres"
)

// ErrInvalidConfig is returned for unusable settings.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the API process configuration.
type Config struct {
	Port        string
	Environment string

	OTelEnabled     bool
	OTLPEndpoint    string
	OTLPInsecure    bool
	OTelSampleRatio float64

	DataSource    string
	RoutesCSV     string
	WeatherCSV    string
	BulletinsJSON string
	ModelPath     string
	MassifCodes   []string

	WeatherNeighbors   int
	WeatherCacheSize   int
	ScoringConcurrency int
	WindowDays         int

	ReloadTimeout time.Duration
	AdminToken    string
	RequireTLS    bool

	// FlagsFromDatabase stores feature flags in PostgreSQL rather than memory.
	FlagsFromDatabase bool

	PubSubProjectID    string
	PubSubSubscription string

	Database database.Config
}

// Load reads configuration from environment variables with defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:               getEnvOrDefault("APP_PORT", "8080"),
		Environment:        getEnvOrDefault("APP_ENV", "development"),
		OTelEnabled:        os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPInsecure:       getEnvOrDefault("OTEL_EXPORTER_OTLP_INSECURE", "true") == "true",
		DataSource:         strings.ToLower(getEnvOrDefault("DATA_SOURCE", SourceFiles)),
		RoutesCSV:          getEnvOrDefault("ROUTES_CSV", "data/routes.csv"),
		WeatherCSV:         getEnvOrDefault("WEATHER_CSV", "data/weather.csv"),
		BulletinsJSON:      getEnvOrDefault("BULLETINS_JSON", "data/bulletins.json"),
		ModelPath:          os.Getenv("MODEL_PATH"),
		MassifCodes:        splitList(os.Getenv("MASSIF_CODES")),
		AdminToken:         os.Getenv("ADMIN_TOKEN"),
		RequireTLS:         os.Getenv("REQUIRE_TLS") == "true",
		FlagsFromDatabase:  os.Getenv("FLAGS_FROM_DATABASE") == "true",
		PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubSubscription: getEnvOrDefault("PUBSUB_SUBSCRIPTION", "skitour-dataset-events"),
	}

	var err error
	if cfg.WeatherNeighbors, err = intEnv("WEATHER_NEIGHBORS", 4); err != nil {
		return cfg, err
	}
	if cfg.WeatherCacheSize, err = intEnv("WEATHER_CACHE_SIZE", 4096); err != nil {
		return cfg, err
	}
	if cfg.ScoringConcurrency, err = intEnv("SCORING_CONCURRENCY", 4); err != nil {
		return cfg, err
	}
	if cfg.WindowDays, err = intEnv("WINDOW_DAYS", 7); err != nil {
		return cfg, err
	}
	if cfg.OTelSampleRatio, err = strconv.ParseFloat(getEnvOrDefault("OTEL_TRACES_SAMPLER_ARG", "1"), 64); err != nil || cfg.OTelSampleRatio < 0 || cfg.OTelSampleRatio > 1 {
		return cfg, fmt.Errorf("%w: OTEL_TRACES_SAMPLER_ARG must be a ratio in [0,1]", ErrInvalidConfig)
	}
	if cfg.ReloadTimeout, err = time.ParseDuration(getEnvOrDefault("RELOAD_TIMEOUT", "2m")); err != nil {
		return cfg, fmt.Errorf("%w: RELOAD_TIMEOUT: %v", ErrInvalidConfig, err)
	}

	if cfg.DataSource != SourceFiles && cfg.DataSource != SourcePostgres {
		return cfg, fmt.Errorf("%w: DATA_SOURCE must be %q or %q", ErrInvalidConfig, SourceFiles, SourcePostgres)
	}
	if cfg.DataSource == SourcePostgres || cfg.FlagsFromDatabase {
		cfg.Database = database.ConfigFromEnv()
	}

	return cfg, nil
}

// NeedsDatabase reports whether a PostgreSQL pool must be opened.
func (c Config) NeedsDatabase() bool {
	return c.DataSource == SourcePostgres || c.FlagsFromDatabase
}

// PubSubEnabled reports whether the reload listener should run.
func (c Config) PubSubEnabled() bool {
	return c.PubSubProjectID != ""
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q is not a non-negative integer", ErrInvalidConfig, key, v)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
