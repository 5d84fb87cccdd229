package weather_test

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/skitourlive/skitourlive/internal/weather"
)

func newService(t *testing.T, size int) *weather.Service {
	t.Helper()
	return weather.NewService(weather.ServiceConfig{
		Aggregator: newAggregator(t, windowGrid(), 4),
		Logger:     zerolog.Nop(),
		CacheSize:  size,
	})
}

func TestService_ImplementsSource(t *testing.T) {
	var _ weather.Source = newService(t, 0)
	var _ weather.Source = newAggregator(t, windowGrid(), 4)
}

func TestService_MatchesAggregator(t *testing.T) {
	svc := newService(t, 0)
	agg := svc.Aggregator()

	d := date("2026-02-10")
	assert.Equal(t, agg.DailySummary(45.1, 6.1, d), svc.DailySummary(45.1, 6.1, d))
	assert.Equal(t, agg.TrailingWindow(45.1, 6.1, d, 7), svc.TrailingWindow(45.1, 6.1, d, 7))
}

func TestService_CachesResults(t *testing.T) {
	svc := newService(t, 0)
	d := date("2026-02-10")

	first := svc.TrailingWindow(45.1, 6.1, d, 7)
	second := svc.TrailingWindow(45.1, 6.1, d, 7)
	assert.Equal(t, first, second)

	// Zero window is the default window and shares the entry.
	svc.TrailingWindow(45.1, 6.1, d, 0)

	svc.DailySummary(45.1, 6.1, d)
	svc.DailySummary(45.1, 6.1, d)

	stats := svc.CacheStats()
	assert.Equal(t, 1, stats.WindowEntries)
	assert.Equal(t, 1, stats.DailyEntries)
	assert.Equal(t, int64(3), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestService_InvalidateCache(t *testing.T) {
	svc := newService(t, 0)
	d := date("2026-02-10")

	svc.DailySummary(45.1, 6.1, d)
	svc.TrailingWindow(45.1, 6.1, d, 7)

	svc.InvalidateCache()

	stats := svc.CacheStats()
	assert.Equal(t, 0, stats.DailyEntries)
	assert.Equal(t, 0, stats.WindowEntries)
}

func TestService_EvictsBeyondSize(t *testing.T) {
	svc := newService(t, 2)
	d := date("2026-02-10")

	svc.DailySummary(45.0, 6.0, d)
	svc.DailySummary(45.1, 6.1, d)
	svc.DailySummary(45.2, 6.2, d)

	assert.Equal(t, 2, svc.CacheStats().DailyEntries)
}

func TestService_ConcurrentAccess(t *testing.T) {
	svc := newService(t, 0)
	d := date("2026-02-10")
	want := svc.Aggregator().TrailingWindow(45.1, 6.1, d, 7)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, svc.TrailingWindow(45.1, 6.1, d, 7))
		}()
	}
	wg.Wait()
}
