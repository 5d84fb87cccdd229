package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/skitourlive/skitourlive/internal/avalanche"
	"github.com/skitourlive/skitourlive/internal/route"
	"github.com/skitourlive/skitourlive/internal/weather"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgreSQL dataset repository.
func NewPostgresRepository(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{
		pool:   pool,
		logger: logger.With().Str("component", "dataset_postgres").Logger(),
	}
}

// Routes retrieves the route catalog. Rows that fail validation are dropped
// so the catalog matches what the CSV loader would accept.
func (r *PostgresRepository) Routes(ctx context.Context) ([]route.Route, error) {
	query := `
		SELECT id, name, COALESCE(url, ''), massif, lat, lon,
		       elevation_gain, COALESCE(summit_altitude, 0),
		       COALESCE(aspect, ''), COALESCE(difficulty, '')
		FROM routes
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()

	var routes []route.Route
	for rows.Next() {
		var (
			rt         route.Route
			aspect     string
			difficulty string
		)
		if err := rows.Scan(
			&rt.ID,
			&rt.Name,
			&rt.SourceURL,
			&rt.Massif,
			&rt.Lat,
			&rt.Lon,
			&rt.ElevationGain,
			&rt.SummitAltitude,
			&aspect,
			&difficulty,
		); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}

		if rt, ok := r.acceptRoute(rt, aspect, difficulty); ok {
			routes = append(routes, rt)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return routes, nil
}

// acceptRoute normalizes a scanned row and reports whether it belongs in the
// catalog. Rejected rows are logged.
func (r *PostgresRepository) acceptRoute(rt route.Route, aspect, difficulty string) (route.Route, bool) {
	rt.Massif = avalanche.NormalizeMassif(rt.Massif)
	rt.Aspect, _ = route.ParseAspect(aspect)

	grade, err := route.ParseGrade(difficulty)
	if err != nil {
		r.logger.Warn().Str("route_id", rt.ID).Err(err).Msg("skipping route with invalid difficulty")
		return rt, false
	}
	rt.Grade = grade

	if err := rt.Validate(); err != nil {
		r.logger.Warn().Str("route_id", rt.ID).Err(err).Msg("skipping invalid route")
		return rt, false
	}
	return rt, true
}

// WeatherGrid retrieves hourly observations grouped by grid point.
func (r *PostgresRepository) WeatherGrid(ctx context.Context) ([]weather.GridPoint, error) {
	query := `
		SELECT lat, lon, observed_at, temperature, wind_speed,
		       COALESCE(precipitation, 0), COALESCE(snowfall, 0)
		FROM weather_observations
		ORDER BY lat, lon, observed_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query weather: %w", err)
	}
	defer rows.Close()

	var points []weather.GridPoint
	for rows.Next() {
		var (
			lat, lon float64
			rd       weather.Record
		)
		if err := rows.Scan(
			&lat,
			&lon,
			&rd.Time,
			&rd.Temperature,
			&rd.WindSpeed,
			&rd.Precipitation,
			&rd.Snowfall,
		); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}

		// Rows are ordered by point, so a new point starts whenever the
		// coordinates change.
		n := len(points)
		if n == 0 || points[n-1].Lat != lat || points[n-1].Lon != lon {
			points = append(points, weather.GridPoint{Lat: lat, Lon: lon})
			n++
		}
		points[n-1].Records = append(points[n-1].Records, rd)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, ErrEmptyDataset
	}
	return points, nil
}

// Bulletins retrieves the latest bulletin per massif.
func (r *PostgresRepository) Bulletins(ctx context.Context) ([]avalanche.Bulletin, error) {
	query := `
		SELECT DISTINCT ON (massif) massif, level, next_day_level, valid_at, COALESCE(summary, '')
		FROM avalanche_bulletins
		ORDER BY massif, valid_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query bulletins: %w", err)
	}
	defer rows.Close()

	var bulletins []avalanche.Bulletin
	for rows.Next() {
		var (
			massif  string
			level   *int
			next    *int
			validAt *time.Time
			summary string
		)
		if err := rows.Scan(&massif, &level, &next, &validAt, &summary); err != nil {
			return nil, fmt.Errorf("scan bulletin: %w", err)
		}
		bulletins = append(bulletins, bulletinFromRow(massif, level, next, validAt, summary))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bulletins, nil
}
