// Package dataset loads the route catalog, weather grid and avalanche
// bulletins from files or PostgreSQL and assembles them into a scoring
// session.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/skitourlive/skitourlive/internal/avalanche"
	"github.com/skitourlive/skitourlive/internal/provider/resilience"
	"github.com/skitourlive/skitourlive/internal/route"
	"github.com/skitourlive/skitourlive/internal/weather"
)

// Repository provides the raw inputs of a scoring session.
type Repository interface {
	Routes(ctx context.Context) ([]route.Route, error)
	WeatherGrid(ctx context.Context) ([]weather.GridPoint, error)
	Bulletins(ctx context.Context) ([]avalanche.Bulletin, error)
}

// FileRepositoryConfig holds the paths of the exported data files.
type FileRepositoryConfig struct {
	RoutesPath    string
	WeatherPath   string
	BulletinsPath string
	Logger        zerolog.Logger
}

// FileRepository reads CSV and JSON exports from disk.
type FileRepository struct {
	cfg    FileRepositoryConfig
	logger zerolog.Logger
}

var _ Repository = (*FileRepository)(nil)

// NewFileRepository creates a file-backed repository.
func NewFileRepository(cfg FileRepositoryConfig) *FileRepository {
	return &FileRepository{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "dataset_files").Logger(),
	}
}

// Routes reads the route table.
func (r *FileRepository) Routes(ctx context.Context) ([]route.Route, error) {
	f, err := open(r.cfg.RoutesPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	routes, skipped, err := ReadRoutesCSV(f, r.logger)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("routes %s: %w", r.cfg.RoutesPath, err))
	}
	r.logger.Info().Int("routes", len(routes)).Int("skipped", skipped).Msg("route table loaded")
	return routes, ctx.Err()
}

// WeatherGrid reads the weather grid export.
func (r *FileRepository) WeatherGrid(ctx context.Context) ([]weather.GridPoint, error) {
	f, err := open(r.cfg.WeatherPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	points, skipped, err := ReadWeatherCSV(f, r.logger)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("weather %s: %w", r.cfg.WeatherPath, err))
	}
	r.logger.Info().Int("points", len(points)).Int("skipped_rows", skipped).Msg("weather grid loaded")
	return points, ctx.Err()
}

// Bulletins reads the bulletin file. A missing file means no bulletins:
// every massif then falls back to the default risk.
func (r *FileRepository) Bulletins(ctx context.Context) ([]avalanche.Bulletin, error) {
	if r.cfg.BulletinsPath == "" {
		return nil, nil
	}
	f, err := os.Open(r.cfg.BulletinsPath)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Warn().Str("path", r.cfg.BulletinsPath).Msg("bulletin file not found, using default risk")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening bulletins: %w", err)
	}
	defer f.Close()

	bulletins, skipped, err := ReadBulletinsJSON(f, r.logger)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("bulletins %s: %w", r.cfg.BulletinsPath, err))
	}
	r.logger.Info().Int("bulletins", len(bulletins)).Int("skipped", skipped).Msg("bulletins loaded")
	return bulletins, ctx.Err()
}

// open treats a missing file as permanent; other errors may be transient
// (network mounts) and are retried.
func open(path string) (*os.File, error) {
	if path == "" {
		return nil, resilience.Permanent(fmt.Errorf("%w: no path configured", fs.ErrNotExist))
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, resilience.Permanent(fmt.Errorf("opening %s: %w", path, err))
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}
