package weather

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// Source provides blended weather for a location and date.
type Source interface {
	DailySummary(lat, lon float64, date time.Time) DailySummary
	TrailingWindow(lat, lon float64, date time.Time, windowDays int) FeatureVector
}

// Locator reports which grid points feed a location's blend.
type Locator interface {
	Contributions(lat, lon float64) []Contribution
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Aggregator computes uncached values.
	Aggregator *Aggregator

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheSize is the maximum number of entries per cache (default: 4096).
	CacheSize int
}

// Service is a read-through memoization layer over an Aggregator.
// Values are pure functions of the immutable grid, so entries never expire;
// InvalidateCache is called when the grid is replaced.
type Service struct {
	agg    *Aggregator
	logger zerolog.Logger

	dailyCache  *lru.Cache[cacheKey, DailySummary]
	windowCache *lru.Cache[cacheKey, FeatureVector]

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheKey struct {
	lat    float64
	lon    float64
	day    Day
	window int
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	size := cfg.CacheSize
	if size <= 0 {
		size = 4096
	}

	daily, err := lru.New[cacheKey, DailySummary](size)
	if err != nil {
		daily, _ = lru.New[cacheKey, DailySummary](16)
	}
	window, err := lru.New[cacheKey, FeatureVector](size)
	if err != nil {
		window, _ = lru.New[cacheKey, FeatureVector](16)
	}

	return &Service{
		agg:         cfg.Aggregator,
		logger:      cfg.Logger,
		dailyCache:  daily,
		windowCache: window,
	}
}

// Aggregator returns the underlying aggregator.
func (s *Service) Aggregator() *Aggregator {
	return s.agg
}

// DailySummary returns the blended daily summary, using the cache when possible.
func (s *Service) DailySummary(lat, lon float64, date time.Time) DailySummary {
	key := cacheKey{lat: lat, lon: lon, day: DayOf(date)}

	if v, ok := s.dailyCache.Get(key); ok {
		s.hits.Add(1)
		return v
	}
	s.misses.Add(1)

	v := s.agg.DailySummary(lat, lon, date)
	s.dailyCache.Add(key, v)
	return v
}

// TrailingWindow returns the trailing-window feature vector, using the cache when possible.
func (s *Service) TrailingWindow(lat, lon float64, date time.Time, windowDays int) FeatureVector {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	key := cacheKey{lat: lat, lon: lon, day: DayOf(date), window: windowDays}

	if v, ok := s.windowCache.Get(key); ok {
		s.hits.Add(1)
		return v
	}
	s.misses.Add(1)

	v := s.agg.TrailingWindow(lat, lon, date, windowDays)
	s.windowCache.Add(key, v)
	return v
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.dailyCache.Purge()
	s.windowCache.Purge()
	s.logger.Debug().Msg("weather cache invalidated")
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	return CacheStats{
		DailyEntries:  s.dailyCache.Len(),
		WindowEntries: s.windowCache.Len(),
		Hits:          s.hits.Load(),
		Misses:        s.misses.Load(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	DailyEntries  int   `json:"dailyEntries"`
	WindowEntries int   `json:"windowEntries"`
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
}

// Contributions returns the nearest grid points and their weights. Not cached.
func (s *Service) Contributions(lat, lon float64) []Contribution {
	return s.agg.Contributions(lat, lon)
}
