// Package worker runs background jobs for the scoring service: dataset
// reloads triggered over Pub/Sub and cache warming.
package worker

import (
	"time"

	"github.com/skitourlive/skitourlive/internal/route"
	"github.com/skitourlive/skitourlive/internal/weather"
)

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// WarmConfig holds configuration for the cache warming job.
type WarmConfig struct {
	// Concurrency is the number of concurrent warm workers.
	// Default: 4
	Concurrency int

	// Timeout bounds a whole warm run.
	// Default: 2 minutes
	Timeout time.Duration

	// Days is how many dates, starting today, are warmed when no
	// feature flag service is configured.
	// Default: 3
	Days int

	// WindowDays is the trailing window length to precompute.
	// Default: weather.DefaultWindowDays
	WindowDays int
}

// DefaultWarmConfig returns the default warm configuration.
func DefaultWarmConfig() WarmConfig {
	return WarmConfig{
		Concurrency: 4,
		Timeout:     2 * time.Minute,
		Days:        3,
		WindowDays:  weather.DefaultWindowDays,
	}
}

func (c WarmConfig) withDefaults() WarmConfig {
	def := DefaultWarmConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.Days <= 0 {
		c.Days = def.Days
	}
	if c.WindowDays <= 0 {
		c.WindowDays = def.WindowDays
	}
	return c
}

// RoutePoints returns the distinct start locations of routes in input order.
// Routes sharing exact coordinates share a cache entry, so they are warmed once.
func RoutePoints(routes []route.Route) []Point {
	seen := make(map[Point]bool, len(routes))
	points := make([]Point, 0, len(routes))
	for _, r := range routes {
		p := Point{Lat: r.Lat, Lon: r.Lon}
		if seen[p] {
			continue
		}
		seen[p] = true
		points = append(points, p)
	}
	return points
}
