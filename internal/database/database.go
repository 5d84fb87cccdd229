// Package database opens the PostgreSQL pool behind the dataset and feature
// flag repositories and creates their tables.
package database

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skitourlive/skitourlive/internal/provider/resilience"
)

// Config holds database connection configuration.
type Config struct {
	// URL, when set, replaces the discrete connection fields.
	URL string

	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration

	// StatementTimeout bounds each query server side. Dataset loads read
	// whole tables, so it is generous.
	StatementTimeout time.Duration

	// ConnectRetry retries the initial ping while the server comes up.
	ConnectRetry resilience.RetryConfig
}

// ConfigFromEnv creates a Config from DATABASE_URL and DB_* variables.
func ConfigFromEnv() Config {
	port, _ := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
	maxConns, _ := strconv.Atoi(getEnvOrDefault("DB_MAX_CONNS", "8"))
	minConns, _ := strconv.Atoi(getEnvOrDefault("DB_MIN_CONNS", "1"))
	lifetime, _ := time.ParseDuration(getEnvOrDefault("DB_CONN_MAX_LIFETIME", "30m"))
	stmtTimeout, _ := time.ParseDuration(getEnvOrDefault("DB_STATEMENT_TIMEOUT", "60s"))

	return Config{
		URL:              os.Getenv("DATABASE_URL"),
		Host:             getEnvOrDefault("DB_HOST", "localhost"),
		Port:             port,
		User:             getEnvOrDefault("DB_USER", "skitour"),
		Password:         getEnvOrDefault("DB_PASSWORD", "localdev"),
		Database:         getEnvOrDefault("DB_NAME", "skitour"),
		SSLMode:          getEnvOrDefault("DB_SSL_MODE", "disable"),
		MaxConns:         int32(max(maxConns, 1)), //nolint:gosec // small operator-provided value
		MinConns:         int32(max(minConns, 0)), //nolint:gosec // small operator-provided value
		ConnMaxLifetime:  lifetime,
		StatementTimeout: stmtTimeout,
		ConnectRetry: resilience.RetryConfig{
			MaxRetries:      5,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	}
}

// ConnectionString returns the PostgreSQL connection string.
func (c Config) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Connect creates a pool and waits until the server answers a ping.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = min(cfg.MinConns, poolConfig.MaxConns)
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	rt := poolConfig.ConnConfig.RuntimeParams
	rt["application_name"] = "skitour"
	if cfg.StatementTimeout > 0 {
		rt["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := resilience.Retry(ctx, cfg.ConnectRetry, pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// schema holds the tables read by the dataset and feature flag repositories.
const schema = `
CREATE TABLE IF NOT EXISTS routes (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	url             TEXT,
	massif          TEXT NOT NULL,
	lat             DOUBLE PRECISION NOT NULL,
	lon             DOUBLE PRECISION NOT NULL,
	elevation_gain  DOUBLE PRECISION NOT NULL,
	summit_altitude DOUBLE PRECISION,
	aspect          TEXT,
	difficulty      TEXT
);

CREATE TABLE IF NOT EXISTS weather_observations (
	lat           DOUBLE PRECISION NOT NULL,
	lon           DOUBLE PRECISION NOT NULL,
	observed_at   TIMESTAMPTZ NOT NULL,
	temperature   DOUBLE PRECISION NOT NULL,
	wind_speed    DOUBLE PRECISION NOT NULL,
	precipitation DOUBLE PRECISION,
	snowfall      DOUBLE PRECISION,
	PRIMARY KEY (lat, lon, observed_at)
);

CREATE TABLE IF NOT EXISTS avalanche_bulletins (
	massif         TEXT NOT NULL,
	valid_at       DATE NOT NULL,
	level          SMALLINT,
	next_day_level SMALLINT,
	summary        TEXT,
	PRIMARY KEY (massif, valid_at)
);

CREATE TABLE IF NOT EXISTS scoring_feature_flags (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates any missing tables. Existing tables are left alone.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
