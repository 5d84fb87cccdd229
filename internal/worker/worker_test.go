package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skitourlive/skitourlive/internal/avalanche"
	"github.com/skitourlive/skitourlive/internal/dataset"
	"github.com/skitourlive/skitourlive/internal/featureflags"
	"github.com/skitourlive/skitourlive/internal/route"
	"github.com/skitourlive/skitourlive/internal/weather"
	"github.com/skitourlive/skitourlive/internal/worker"
)

func testRoutes() []route.Route {
	return []route.Route{
		{ID: "a", Name: "A", Massif: "ARAVIS", Lat: 45.9, Lon: 6.5, ElevationGain: 1000, Grade: route.GradeS2},
		{ID: "b", Name: "B", Massif: "ARAVIS", Lat: 45.9, Lon: 6.5, ElevationGain: 1200, Grade: route.GradeS3},
		{ID: "c", Name: "C", Massif: "MONT-BLANC", Lat: 45.95, Lon: 6.88, ElevationGain: 1400, Grade: route.GradeS3},
	}
}

func testSession(t *testing.T) *dataset.Session {
	t.Helper()
	start := time.Date(2026, 2, 7, 6, 0, 0, 0, time.UTC)
	var records []weather.Record
	for d := 0; d < 8; d++ {
		records = append(records, weather.Record{Time: start.AddDate(0, 0, d), Temperature: -4, WindSpeed: 10})
	}
	points := []weather.GridPoint{
		{Lat: 45.9, Lon: 6.6, Records: records},
		{Lat: 45.9, Lon: 6.8, Records: records},
	}

	loader := dataset.NewLoader(dataset.LoaderConfig{Logger: zerolog.Nop()})
	s, err := loader.Assemble(testRoutes(), points, []avalanche.Bulletin{{Massif: "ARAVIS", Level: 3}}, nil, 4)
	require.NoError(t, err)
	return s
}

type staticSessions struct{ s *dataset.Session }

func (s staticSessions) Current() (*dataset.Session, error) {
	if s.s == nil {
		return nil, dataset.ErrNotLoaded
	}
	return s.s, nil
}

// fakeReloader swaps in a fixed session or fails.
type fakeReloader struct {
	session *dataset.Session
	err     error
	calls   atomic.Int32
}

func (r *fakeReloader) Reload(context.Context) (*dataset.Session, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return r.session, nil
}

func (r *fakeReloader) Current() (*dataset.Session, error) {
	if r.calls.Load() == 0 || r.err != nil {
		return nil, dataset.ErrNotLoaded
	}
	return r.session, nil
}

func TestDefaultWarmConfig(t *testing.T) {
	cfg := worker.DefaultWarmConfig()

	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, 3, cfg.Days)
	assert.Equal(t, weather.DefaultWindowDays, cfg.WindowDays)
}

func TestRoutePoints_Dedupes(t *testing.T) {
	points := worker.RoutePoints(testRoutes())

	require.Len(t, points, 2)
	assert.Equal(t, worker.Point{Lat: 45.9, Lon: 6.5}, points[0])
	assert.Equal(t, worker.Point{Lat: 45.95, Lon: 6.88}, points[1])
}

func TestWarmJob_Run(t *testing.T) {
	s := testSession(t)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 2, 13, 7, 30, 0, 0, time.UTC))

	job := worker.NewWarmJob(worker.WarmJobConfig{
		Config:   worker.WarmConfig{Concurrency: 2, Days: 2},
		Sessions: staticSessions{s: s},
		Clock:    clock,
		Logger:   zerolog.Nop(),
	})

	result, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalPoints)
	assert.Equal(t, []string{"2026-02-13", "2026-02-14"}, result.Dates)
	assert.Equal(t, 4, result.Warmed)
	assert.Equal(t, int64(8), result.CacheMisses)

	stats := s.Weather.CacheStats()
	assert.Equal(t, 4, stats.DailyEntries)
	assert.Equal(t, 4, stats.WindowEntries)

	// A second run finds everything cached.
	result, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.CacheMisses)

	m := job.GetMetrics()
	assert.Equal(t, int64(2), m.TotalRuns)
	assert.Equal(t, int64(8), m.WarmedEntries)
}

func TestWarmJob_DaysFromFlag(t *testing.T) {
	s := testSession(t)
	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewInMemoryRepositoryWithFlags(map[string]*featureflags.Flag{
			featureflags.FlagWarmDays: {Key: featureflags.FlagWarmDays, Value: float64(0)},
		}),
		Logger: zerolog.Nop(),
	})

	job := worker.NewWarmJob(worker.WarmJobConfig{
		Sessions: staticSessions{s: s},
		Flags:    flags,
		Logger:   zerolog.Nop(),
	})

	result, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Warmed)
	assert.Zero(t, s.Weather.CacheStats().DailyEntries)
	assert.Equal(t, int64(1), job.GetMetrics().SkippedRuns)
}

func TestWarmJob_NotLoaded(t *testing.T) {
	job := worker.NewWarmJob(worker.WarmJobConfig{Sessions: staticSessions{}, Logger: zerolog.Nop()})

	_, err := job.Run(context.Background())
	assert.ErrorIs(t, err, dataset.ErrNotLoaded)
}

func message(t *testing.T, msg worker.JobMessage) []byte {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return data
}

func TestProcessor_DatasetRefreshedReloadsAndWarms(t *testing.T) {
	reloader := &fakeReloader{session: testSession(t)}
	warm := worker.NewWarmJob(worker.WarmJobConfig{
		Config:   worker.WarmConfig{Days: 1},
		Sessions: reloader,
		Clock:    clockwork.NewFakeClockAt(time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)),
		Logger:   zerolog.Nop(),
	})
	p := worker.NewProcessor(reloader, warm, zerolog.Nop())

	err := p.Process(context.Background(), message(t, worker.JobMessage{JobType: worker.JobDatasetRefreshed}))
	require.NoError(t, err)

	assert.Equal(t, int32(1), reloader.calls.Load())
	assert.Equal(t, int64(1), warm.GetMetrics().TotalRuns)
	assert.Equal(t, 2, reloader.session.Weather.CacheStats().DailyEntries)
}

func TestProcessor_SkipWarm(t *testing.T) {
	reloader := &fakeReloader{session: testSession(t)}
	warm := worker.NewWarmJob(worker.WarmJobConfig{Sessions: reloader, Logger: zerolog.Nop()})
	p := worker.NewProcessor(reloader, warm, zerolog.Nop())

	msg := message(t, worker.JobMessage{JobType: worker.JobDatasetRefreshed, SkipWarm: true})
	require.NoError(t, p.Process(context.Background(), msg))
	assert.Zero(t, warm.GetMetrics().TotalRuns)
}

func TestProcessor_ReloadFailure(t *testing.T) {
	reloader := &fakeReloader{err: errors.New("bucket unavailable")}
	p := worker.NewProcessor(reloader, nil, zerolog.Nop())

	err := p.Process(context.Background(), message(t, worker.JobMessage{JobType: worker.JobDatasetRefreshed}))
	require.Error(t, err)
	assert.False(t, worker.Ack(err, zerolog.Nop()), "failed reloads are retried")
}

func TestProcessor_WarmWithoutSessionIsNoop(t *testing.T) {
	reloader := &fakeReloader{}
	warm := worker.NewWarmJob(worker.WarmJobConfig{Sessions: reloader, Logger: zerolog.Nop()})
	p := worker.NewProcessor(reloader, warm, zerolog.Nop())

	err := p.Process(context.Background(), message(t, worker.JobMessage{JobType: worker.JobWarm}))
	assert.NoError(t, err)
	assert.Zero(t, reloader.calls.Load())
}

func TestProcessor_UnknownAndMalformedMessagesAreAcked(t *testing.T) {
	p := worker.NewProcessor(&fakeReloader{}, nil, zerolog.Nop())

	err := p.Process(context.Background(), message(t, worker.JobMessage{JobType: "provider_refresh"}))
	assert.ErrorIs(t, err, worker.ErrUnknownJob)
	assert.True(t, worker.Ack(err, zerolog.Nop()))

	err = p.Process(context.Background(), []byte("{not json"))
	require.Error(t, err)
	assert.True(t, worker.Ack(err, zerolog.Nop()))

	assert.True(t, worker.Ack(nil, zerolog.Nop()))
}
