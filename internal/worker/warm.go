package worker

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/skitourlive/skitourlive/internal/dataset"
	"github.com/skitourlive/skitourlive/internal/featureflags"
)

// Sessions provides the active dataset session.
type Sessions interface {
	Current() (*dataset.Session, error)
}

// WarmJob precomputes daily summaries and trailing windows for every route
// location over the next few dates, so the first scoring requests after a
// reload hit a warm cache.
type WarmJob struct {
	config   WarmConfig
	sessions Sessions
	flags    *featureflags.Service
	clock    clockwork.Clock
	logger   zerolog.Logger

	metrics *WarmMetrics
}

// WarmMetrics tracks warm job statistics.
type WarmMetrics struct {
	mu sync.RWMutex

	TotalRuns     int64
	WarmedEntries int64
	SkippedRuns   int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// WarmJobConfig holds configuration for creating a WarmJob.
type WarmJobConfig struct {
	Config   WarmConfig
	Sessions Sessions
	Flags    *featureflags.Service
	Clock    clockwork.Clock
	Logger   zerolog.Logger
}

// NewWarmJob creates a new warm job.
func NewWarmJob(cfg WarmJobConfig) *WarmJob {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &WarmJob{
		config:   cfg.Config.withDefaults(),
		sessions: cfg.Sessions,
		flags:    cfg.Flags,
		clock:    clock,
		logger:   cfg.Logger.With().Str("job", "warm").Logger(),
		metrics:  &WarmMetrics{},
	}
}

// WarmResult contains the result of a warm run.
type WarmResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalPoints int
	Dates       []string
	Warmed      int

	// CacheMisses is how many entries were computed rather than already cached.
	CacheMisses int64
}

type warmTask struct {
	point Point
	date  time.Time
}

// Run warms the current session. It returns dataset.ErrNotLoaded when no
// session is active.
func (j *WarmJob) Run(ctx context.Context) (*WarmResult, error) {
	session, err := j.sessions.Current()
	if err != nil {
		return nil, err
	}

	startTime := j.clock.Now()
	result := &WarmResult{StartTime: startTime}

	days := j.config.Days
	if j.flags != nil {
		days = j.flags.WarmDays(ctx)
	}
	if days <= 0 {
		j.logger.Info().Msg("warming disabled, skipping")
		j.metrics.mu.Lock()
		j.metrics.SkippedRuns++
		j.metrics.mu.Unlock()
		result.EndTime = startTime
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	points := RoutePoints(session.Context.Routes)
	today := startTime.UTC().Truncate(24 * time.Hour)
	dates := make([]time.Time, days)
	for d := range dates {
		dates[d] = today.AddDate(0, 0, d)
		result.Dates = append(result.Dates, dates[d].Format(time.DateOnly))
	}
	result.TotalPoints = len(points)

	j.logger.Info().
		Int("points", len(points)).
		Int("days", days).
		Int("concurrency", j.config.Concurrency).
		Msg("starting cache warm job")

	before := session.Weather.CacheStats()

	tasks := make(chan warmTask, len(points)*len(dates))
	done := make(chan struct{}, len(points)*len(dates))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.warmWorker(ctx, session, tasks, done)
		}()
	}

	for _, p := range points {
		for _, d := range dates {
			tasks <- warmTask{point: p, date: d}
		}
	}
	close(tasks)

	go func() {
		wg.Wait()
		close(done)
	}()

	for range done {
		result.Warmed++
	}

	after := session.Weather.CacheStats()
	result.CacheMisses = after.Misses - before.Misses
	result.EndTime = j.clock.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("warmed", result.Warmed).
		Int64("cache_misses", result.CacheMisses).
		Msg("cache warm job completed")

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (j *WarmJob) warmWorker(ctx context.Context, session *dataset.Session, tasks <-chan warmTask, done chan<- struct{}) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			return
		default:
			session.Weather.DailySummary(task.point.Lat, task.point.Lon, task.date)
			session.Weather.TrailingWindow(task.point.Lat, task.point.Lon, task.date, j.config.WindowDays)
			done <- struct{}{}
		}
	}
}

func (j *WarmJob) updateMetrics(result *WarmResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.WarmedEntries += int64(result.Warmed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *WarmJob) GetMetrics() WarmMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return WarmMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		WarmedEntries:   j.metrics.WarmedEntries,
		SkippedRuns:     j.metrics.SkippedRuns,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}
