package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/skitourlive/skitourlive/internal/avalanche"
	"github.com/skitourlive/skitourlive/internal/model"
	"github.com/skitourlive/skitourlive/internal/provider/resilience"
	"github.com/skitourlive/skitourlive/internal/route"
	"github.com/skitourlive/skitourlive/internal/scoring"
	"github.com/skitourlive/skitourlive/internal/telemetry"
	"github.com/skitourlive/skitourlive/internal/weather"
)

// ErrNotLoaded is returned when no session has been loaded yet.
var ErrNotLoaded = errors.New("dataset not loaded")

// Stats summarizes a loaded session.
type Stats struct {
	Routes      int       `json:"routes"`
	GridPoints  int       `json:"gridPoints"`
	Bulletins   int       `json:"bulletins"`
	Neighbors   int       `json:"neighbors"`
	ModelLoaded bool      `json:"modelLoaded"`
	FirstDay    string    `json:"firstDay,omitempty"`
	LastDay     string    `json:"lastDay,omitempty"`
	LoadedAt    time.Time `json:"loadedAt"`
}

// Session is one immutable load of the reference data.
type Session struct {
	Context *scoring.Context
	Weather *weather.Service
	Stats   Stats
}

// LoaderConfig holds configuration for the Loader.
type LoaderConfig struct {
	Repository Repository

	// ModelPath is the LightGBM model file. Empty disables the model.
	ModelPath string

	// Massifs is the model's categorical massif list, in training order.
	Massifs []string

	// Neighbors is the number of grid points blended per location.
	Neighbors int

	// NeighborsFunc, when set, overrides Neighbors at each load.
	NeighborsFunc func(ctx context.Context) int

	// CacheSize bounds the weather memoization caches.
	CacheSize int

	Retry  resilience.RetryConfig
	Clock  clockwork.Clock
	Logger zerolog.Logger
}

// Loader builds sessions from a repository.
type Loader struct {
	cfg    LoaderConfig
	clock  clockwork.Clock
	logger zerolog.Logger
}

// NewLoader creates a new Loader.
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry = resilience.DefaultRetryConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Loader{
		cfg:    cfg,
		clock:  clock,
		logger: cfg.Logger.With().Str("component", "dataset_loader").Logger(),
	}
}

// Load fetches routes, weather and bulletins concurrently, each with
// retries, then assembles the scoring context. A model that fails to load
// leaves the session without a model rather than failing the load.
func (l *Loader) Load(ctx context.Context) (s *Session, err error) {
	if l.cfg.Repository == nil {
		return nil, errors.New("dataset loader has no repository")
	}

	ctx, span := telemetry.StartSpan(ctx, "dataset.Load")
	defer func() { telemetry.EndSpan(span, err) }()

	var (
		routes    []route.Route
		points    []weather.GridPoint
		bulletins []avalanche.Bulletin
		adapter   *model.Adapter
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return resilience.Retry(gctx, l.cfg.Retry, func(ctx context.Context) (err error) {
			routes, err = l.cfg.Repository.Routes(ctx)
			return err
		})
	})
	g.Go(func() error {
		return resilience.Retry(gctx, l.cfg.Retry, func(ctx context.Context) (err error) {
			points, err = l.cfg.Repository.WeatherGrid(ctx)
			return err
		})
	})
	g.Go(func() error {
		return resilience.Retry(gctx, l.cfg.Retry, func(ctx context.Context) (err error) {
			bulletins, err = l.cfg.Repository.Bulletins(ctx)
			return err
		})
	})
	g.Go(func() error {
		adapter = l.loadModel()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}

	return l.Assemble(routes, points, bulletins, adapter, l.neighbors(ctx))
}

// Assemble builds a session from already loaded inputs.
func (l *Loader) Assemble(routes []route.Route, points []weather.GridPoint, bulletins []avalanche.Bulletin, adapter *model.Adapter, neighbors int) (*Session, error) {
	grid, err := weather.NewGrid(points)
	if err != nil {
		return nil, fmt.Errorf("building weather grid: %w", err)
	}

	agg := weather.NewAggregator(weather.AggregatorConfig{
		Grid:      grid,
		Neighbors: neighbors,
		Logger:    l.cfg.Logger,
	})
	svc := weather.NewService(weather.ServiceConfig{
		Aggregator: agg,
		CacheSize:  l.cfg.CacheSize,
		Logger:     l.cfg.Logger,
	})
	table := avalanche.NewTable(bulletins)

	sc, err := scoring.NewContext(routes, svc, table, adapter)
	if err != nil {
		return nil, err
	}

	stats := Stats{
		Routes:      len(routes),
		GridPoints:  grid.Len(),
		Bulletins:   table.Len(),
		Neighbors:   agg.Neighbors(),
		ModelLoaded: adapter.Available(),
		LoadedAt:    l.clock.Now().UTC(),
	}
	if first, last, ok := grid.DayRange(); ok {
		stats.FirstDay = first.String()
		stats.LastDay = last.String()
	}

	l.logger.Info().
		Int("routes", stats.Routes).
		Int("grid_points", stats.GridPoints).
		Int("bulletins", stats.Bulletins).
		Int("neighbors", stats.Neighbors).
		Bool("model", stats.ModelLoaded).
		Msg("dataset session assembled")

	return &Session{Context: sc, Weather: svc, Stats: stats}, nil
}

func (l *Loader) neighbors(ctx context.Context) int {
	if l.cfg.NeighborsFunc != nil {
		if k := l.cfg.NeighborsFunc(ctx); k > 0 {
			return k
		}
	}
	return l.cfg.Neighbors
}

func (l *Loader) loadModel() *model.Adapter {
	if l.cfg.ModelPath == "" {
		l.logger.Info().Msg("no snow model configured, using physical winter score")
		return nil
	}

	lgb, err := model.LoadLightGBM(l.cfg.ModelPath)
	if err != nil {
		l.logger.Warn().Err(err).Str("path", l.cfg.ModelPath).Msg("snow model unavailable")
		return nil
	}

	l.logger.Info().Str("path", l.cfg.ModelPath).Int("trees", lgb.Trees()).Msg("snow model loaded")
	return model.NewAdapter(model.AdapterConfig{
		Regressor: lgb,
		Massifs:   l.cfg.Massifs,
		Logger:    l.cfg.Logger,
	})
}

// Holder publishes the current session. Readers never block; a reload
// builds a complete new session and swaps it in atomically.
type Holder struct {
	current atomic.Pointer[Session]
	loader  *Loader
	mu      sync.Mutex
	logger  zerolog.Logger
}

// NewHolder creates a Holder that reloads through loader.
func NewHolder(loader *Loader, logger zerolog.Logger) *Holder {
	return &Holder{
		loader: loader,
		logger: logger.With().Str("component", "dataset_holder").Logger(),
	}
}

// Current returns the active session, or ErrNotLoaded.
func (h *Holder) Current() (*Session, error) {
	s := h.current.Load()
	if s == nil {
		return nil, ErrNotLoaded
	}
	return s, nil
}

// Ready reports whether a session has been loaded.
func (h *Holder) Ready() bool {
	return h.current.Load() != nil
}

// Set installs s as the active session.
func (h *Holder) Set(s *Session) {
	h.current.Store(s)
}

// Reload loads a fresh session and swaps it in. Concurrent reloads are
// serialized; on failure the previous session stays active.
func (h *Holder) Reload(ctx context.Context) (*Session, error) {
	if h.loader == nil {
		return nil, errors.New("dataset holder has no loader")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	s, err := h.loader.Load(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("dataset reload failed, keeping previous session")
		return nil, err
	}

	prev := h.current.Swap(s)
	if prev != nil {
		prev.Weather.InvalidateCache()
	}

	h.logger.Info().Dur("duration", time.Since(start)).Msg("dataset session swapped")
	return s, nil
}

// ModelBreaker exposes the circuit breaker of the active session's model,
// following reloads. Without a session or a model it reports a closed circuit.
func (h *Holder) ModelBreaker() resilience.Breaker {
	return modelBreaker{h: h}
}

type modelBreaker struct {
	h *Holder
}

func (b modelBreaker) CircuitBreakerState() gobreaker.State {
	if a := b.adapter(); a != nil {
		return a.CircuitBreakerState()
	}
	return gobreaker.StateClosed
}

func (b modelBreaker) CircuitBreakerCounts() gobreaker.Counts {
	if a := b.adapter(); a != nil {
		return a.CircuitBreakerCounts()
	}
	return gobreaker.Counts{}
}

func (b modelBreaker) adapter() *model.Adapter {
	s := b.h.current.Load()
	if s == nil || s.Context == nil {
		return nil
	}
	return s.Context.Model
}
