package scoring

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skitourlive/skitourlive/internal/route"
	"github.com/skitourlive/skitourlive/internal/snow"
	"github.com/skitourlive/skitourlive/internal/telemetry"
	"github.com/skitourlive/skitourlive/internal/weather"
)

// Confidence indicates how much of a score rests on real data.
type Confidence string

const (
	ConfidenceLow  Confidence = "LOW"
	ConfidenceHigh Confidence = "HIGH"
)

// EngineConfig holds configuration for the Engine.
type EngineConfig struct {
	// Logger for scoring operations.
	Logger zerolog.Logger

	// Concurrency is the number of scoring workers (default: 4).
	Concurrency int

	// WindowDays is the trailing window length (default: 7).
	WindowDays int

	// Metrics is optional.
	Metrics *telemetry.ScoringMetrics
}

// Engine scores routes against a Context.
type Engine struct {
	logger      zerolog.Logger
	concurrency int
	windowDays  int
	metrics     *telemetry.ScoringMetrics
}

// NewEngine creates a new Engine.
func NewEngine(cfg EngineConfig) *Engine {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = weather.DefaultWindowDays
	}

	return &Engine{
		logger:      cfg.Logger,
		concurrency: concurrency,
		windowDays:  windowDays,
		metrics:     cfg.Metrics,
	}
}

// Query selects the date and user preferences for a scoring batch.
type Query struct {
	Date      time.Time
	UserLevel route.Grade
	Dplus     DplusRange

	// Concurrency overrides the engine's worker count when positive.
	Concurrency int
}

// Validate checks the user level and elevation gain range.
func (q Query) Validate() error {
	if !q.UserLevel.Valid() {
		return ErrInvalidLevel
	}
	return q.Dplus.Validate()
}

// ScoreResult is the outcome for one route on one date.
type ScoreResult struct {
	RouteID string `json:"routeId"`
	Name    string `json:"name"`
	Massif  string `json:"massif"`

	Danger     float64 `json:"danger"`
	Fitness    float64 `json:"fitness"`
	FinalScore float64 `json:"finalScore"`

	SnowQuality float64         `json:"snowQuality"`
	SeasonMode  snow.SeasonMode `json:"seasonMode"`

	// DataAvailable is false when the day's weather fell back to neutral values.
	DataAvailable bool       `json:"dataAvailable"`
	Confidence    Confidence `json:"confidence"`

	Breakdown DangerBreakdown `json:"breakdown"`
}

// SkippedRoute is a route excluded from a batch because it failed validation.
type SkippedRoute struct {
	Index   int    `json:"index"`
	RouteID string `json:"routeId"`
	Reason  string `json:"reason"`
}

// BatchResult is a ranked set of scores.
type BatchResult struct {
	Date    time.Time      `json:"date"`
	Results []ScoreResult  `json:"results"`
	Skipped []SkippedRoute `json:"skipped,omitempty"`
}

type routeJob struct {
	index int
	route route.Route
}

type routeOutcome struct {
	index   int
	result  ScoreResult
	skipped *SkippedRoute
}

// ScoreRoutes scores routes for q.Date and returns them ranked by final
// score, highest first; equal scores keep input order. Malformed routes are
// skipped and reported, never fatal. Only an invalid query or a canceled
// ctx returns an error.
func (e *Engine) ScoreRoutes(ctx context.Context, sc *Context, routes []route.Route, q Query) (*BatchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "scoring.ScoreRoutes",
		attribute.String("date", q.Date.Format(time.DateOnly)),
		attribute.Int("routes", len(routes)),
	)
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	startTime := time.Now()
	concurrency := e.concurrency
	if q.Concurrency > 0 {
		concurrency = q.Concurrency
	}

	jobs := make(chan routeJob, len(routes))
	outcomes := make(chan routeOutcome, len(routes))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.scoreWorker(ctx, sc, q, jobs, outcomes)
		}()
	}

	for i, r := range routes {
		jobs <- routeJob{index: i, route: r}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	ordered := make([]*routeOutcome, len(routes))
	for o := range outcomes {
		ordered[o.index] = &o
	}

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	batch := &BatchResult{
		Date:    q.Date,
		Results: make([]ScoreResult, 0, len(routes)),
	}
	for _, o := range ordered {
		if o == nil {
			continue
		}
		if o.skipped != nil {
			batch.Skipped = append(batch.Skipped, *o.skipped)
			continue
		}
		batch.Results = append(batch.Results, o.result)
	}

	sort.SliceStable(batch.Results, func(i, j int) bool {
		return batch.Results[i].FinalScore > batch.Results[j].FinalScore
	})

	span.SetAttributes(attribute.Int("scored", len(batch.Results)), attribute.Int("skipped", len(batch.Skipped)))

	duration := time.Since(startTime)
	e.metrics.RecordBatch(ctx, len(batch.Results), len(batch.Skipped), duration)

	e.logger.Debug().
		Str("date", q.Date.Format(time.DateOnly)).
		Int("scored", len(batch.Results)).
		Int("skipped", len(batch.Skipped)).
		Dur("duration", duration).
		Msg("scored routes")

	return batch, nil
}

func (e *Engine) scoreWorker(ctx context.Context, sc *Context, q Query, jobs <-chan routeJob, outcomes chan<- routeOutcome) {
	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
			outcomes <- e.scoreJob(ctx, sc, q, job)
		}
	}
}

func (e *Engine) scoreJob(ctx context.Context, sc *Context, q Query, job routeJob) routeOutcome {
	r := job.route
	if err := r.Validate(); err != nil {
		e.logger.Warn().
			Int("index", job.index).
			Str("route_id", r.ID).
			Err(err).
			Msg("skipping malformed route")
		return routeOutcome{
			index:   job.index,
			skipped: &SkippedRoute{Index: job.index, RouteID: r.ID, Reason: err.Error()},
		}
	}

	return routeOutcome{index: job.index, result: e.Score(ctx, sc, r, q)}
}

// Score computes the result for a single valid route.
func (e *Engine) Score(ctx context.Context, sc *Context, r route.Route, q Query) ScoreResult {
	day := sc.Weather.DailySummary(r.Lat, r.Lon, q.Date)
	if !day.DataAvailable {
		e.metrics.RecordWeatherMissing(ctx, "daily")
	}

	danger := Danger(sc.Avalanche.Risk(r.Massif), day, r)
	fitness := Fitness(r, q.UserLevel, q.Dplus)
	sq := e.HybridSnowQuality(ctx, sc, r, q.Date)

	confidence := sq.Confidence
	if !day.DataAvailable {
		confidence = ConfidenceLow
	}

	return ScoreResult{
		RouteID:       r.ID,
		Name:          r.Name,
		Massif:        r.Massif,
		Danger:        danger.Total,
		Fitness:       fitness,
		FinalScore:    FinalScore(fitness, danger.Total),
		SnowQuality:   sq.Score,
		SeasonMode:    sq.Mode,
		DataAvailable: day.DataAvailable,
		Confidence:    confidence,
		Breakdown:     danger,
	}
}
