package weather

import (
	"math"
	"sort"

	"github.com/skitourlive/skitourlive/internal/geo"
)

// dayStats holds per-day aggregates for one grid point.
type dayStats struct {
	meanTemp float64
	minTemp  float64
	maxTemp  float64
	maxWind  float64
	snow     float64
	precip   float64
}

// freezeThaw reports whether the day crossed 0 °C in both directions.
func (s dayStats) freezeThaw() bool {
	return s.maxTemp > 0 && s.minTemp < 0
}

type pointSeries struct {
	days  []Day // sorted ascending
	stats map[Day]dayStats
}

// Grid is the read-only weather grid with pre-aggregated daily statistics.
type Grid struct {
	index  *geo.GridIndex
	series []pointSeries
}

// NewGrid aggregates hourly records into daily statistics per point.
// The input is not retained.
func NewGrid(points []GridPoint) (*Grid, error) {
	if len(points) == 0 {
		return nil, ErrEmptyGrid
	}

	locs := make([]geo.Point, len(points))
	series := make([]pointSeries, len(points))

	for i, p := range points {
		if err := geo.ValidateCoordinates(p.Lat, p.Lon); err != nil {
			return nil, ErrInvalidCoordinates
		}
		locs[i] = geo.Point{Lat: p.Lat, Lon: p.Lon}
		series[i] = aggregateDays(p.Records)
	}

	return &Grid{
		index:  geo.NewGridIndex(locs),
		series: series,
	}, nil
}

// Len returns the number of grid points.
func (g *Grid) Len() int {
	return g.index.Len()
}

// Nearest returns the k nearest grid points to a location.
func (g *Grid) Nearest(lat, lon float64, k int) []geo.Neighbor {
	return g.index.Nearest(lat, lon, k)
}

// DayRange returns the first and last day with data across all points.
func (g *Grid) DayRange() (first, last Day, ok bool) {
	for _, s := range g.series {
		if len(s.days) == 0 {
			continue
		}
		if !ok || s.days[0] < first {
			first = s.days[0]
		}
		if !ok || s.days[len(s.days)-1] > last {
			last = s.days[len(s.days)-1]
		}
		ok = true
	}
	return first, last, ok
}

// closest returns the stats for day, or for the closest day with data
// (earlier day wins a tie).
func (s pointSeries) closest(day Day) (dayStats, bool) {
	if st, ok := s.stats[day]; ok {
		return st, true
	}
	if len(s.days) == 0 {
		return dayStats{}, false
	}

	i := sort.Search(len(s.days), func(i int) bool { return s.days[i] >= day })

	switch {
	case i == 0:
		return s.stats[s.days[0]], true
	case i == len(s.days):
		return s.stats[s.days[len(s.days)-1]], true
	}

	before, after := s.days[i-1], s.days[i]
	if day-before <= after-day {
		return s.stats[before], true
	}
	return s.stats[after], true
}

func aggregateDays(records []Record) pointSeries {
	type acc struct {
		tempSum float64
		n       int
		stats   dayStats
	}

	accs := make(map[Day]*acc)
	for _, r := range records {
		d := DayOf(r.Time)
		a, ok := accs[d]
		if !ok {
			a = &acc{stats: dayStats{
				minTemp: math.Inf(1),
				maxTemp: math.Inf(-1),
				maxWind: math.Inf(-1),
			}}
			accs[d] = a
		}

		a.tempSum += r.Temperature
		a.n++
		a.stats.minTemp = math.Min(a.stats.minTemp, r.Temperature)
		a.stats.maxTemp = math.Max(a.stats.maxTemp, r.Temperature)
		a.stats.maxWind = math.Max(a.stats.maxWind, r.WindSpeed)
		a.stats.snow += r.Snowfall
		a.stats.precip += r.Precipitation
	}

	s := pointSeries{
		days:  make([]Day, 0, len(accs)),
		stats: make(map[Day]dayStats, len(accs)),
	}
	for d, a := range accs {
		a.stats.meanTemp = a.tempSum / float64(a.n)
		s.days = append(s.days, d)
		s.stats[d] = a.stats
	}
	sort.Slice(s.days, func(i, j int) bool { return s.days[i] < s.days[j] })

	return s
}
