package weather

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/skitourlive/skitourlive/internal/geo"
)

// Aggregator defaults.
const (
	DefaultNeighbors = 4
	MinNeighbors     = 3
	MaxNeighbors     = 5
	DefaultEpsilon   = 0.01

	// Snowfall above this many cm marks a "snow day" for DaysSinceLastSnow.
	snowDayThreshold = 2.0

	// Window accumulation at or above this many cm sets RecentSnow.
	recentSnowThreshold = 20.0
)

// AggregatorConfig holds configuration for the Aggregator.
type AggregatorConfig struct {
	// Grid is the read-only weather grid.
	Grid *Grid

	// Neighbors is the number of grid points blended per query (default: 4, clamped to 3-5).
	Neighbors int

	// Epsilon is added to distances before inversion (default: 0.01 degrees).
	Epsilon float64

	// Logger for aggregation diagnostics.
	Logger zerolog.Logger
}

// Contribution describes a grid point's share of a blended value.
type Contribution struct {
	geo.Neighbor

	// Weight is the normalized inverse-distance weight (0-1).
	Weight float64 `json:"weight"`
}

// Aggregator blends grid point data into location estimates using
// inverse distance weighting over the nearest neighbors.
type Aggregator struct {
	grid      *Grid
	neighbors int
	epsilon   float64
	logger    zerolog.Logger
}

// NewAggregator creates a new Aggregator.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	k := cfg.Neighbors
	switch {
	case k == 0:
		k = DefaultNeighbors
	case k < MinNeighbors:
		k = MinNeighbors
	case k > MaxNeighbors:
		k = MaxNeighbors
	}

	eps := cfg.Epsilon
	if eps <= 0 {
		eps = DefaultEpsilon
	}

	return &Aggregator{
		grid:      cfg.Grid,
		neighbors: k,
		epsilon:   eps,
		logger:    cfg.Logger,
	}
}

// Neighbors returns the number of grid points blended per query.
func (a *Aggregator) Neighbors() int {
	return a.neighbors
}

// Contributions returns the nearest grid points and their normalized weights,
// assuming every point has data.
func (a *Aggregator) Contributions(lat, lon float64) []Contribution {
	if a.grid == nil {
		return nil
	}

	nbrs := a.grid.Nearest(lat, lon, a.neighbors)
	out := make([]Contribution, len(nbrs))

	var total float64
	for i, n := range nbrs {
		out[i] = Contribution{Neighbor: n, Weight: a.weight(n)}
		total += out[i].Weight
	}
	for i := range out {
		out[i].Weight /= total
	}
	return out
}

// DailySummary returns the blended weather on date at (lat, lon).
// A point lacking the exact date substitutes its closest available day.
// When no neighbor has any data the neutral summary is returned with DataAvailable=false.
func (a *Aggregator) DailySummary(lat, lon float64, date time.Time) DailySummary {
	if a.grid == nil {
		return NeutralDailySummary()
	}

	day := DayOf(date)

	var (
		sum   DailySummary
		total float64
	)
	sum.MaxWind = math.Inf(-1)

	for _, n := range a.grid.Nearest(lat, lon, a.neighbors) {
		st, ok := a.grid.series[n.Index].closest(day)
		if !ok {
			continue
		}

		w := a.weight(n)
		total += w
		sum.MeanTemp += w * st.meanTemp
		sum.TotalSnow += w * st.snow
		sum.TotalPrecip += w * st.precip
		// Wind is combined by max so the worst cell is never averaged away.
		sum.MaxWind = math.Max(sum.MaxWind, st.maxWind)
		sum.PointsUsed++
	}

	if sum.PointsUsed == 0 {
		a.logger.Debug().
			Float64("lat", lat).
			Float64("lon", lon).
			Str("date", day.String()).
			Msg("no weather data for daily summary, using neutral values")
		return NeutralDailySummary()
	}

	sum.MeanTemp /= total
	sum.TotalSnow /= total
	sum.TotalPrecip /= total
	sum.DataAvailable = true
	return sum
}

// TrailingWindow returns the feature vector over the windowDays days
// strictly before date. Only days with data contribute; a point with no
// data in the window is excluded from the blend.
func (a *Aggregator) TrailingWindow(lat, lon float64, date time.Time, windowDays int) FeatureVector {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if a.grid == nil {
		return NeutralFeatureVector()
	}

	end := DayOf(date)
	start := end - Day(windowDays)

	var (
		fv    FeatureVector
		total float64
		// blended snowfall per window day, for DaysSinceLastSnow
		daySnow   = make([]float64, windowDays)
		dayWeight = make([]float64, windowDays)
	)
	fv.WindMax = math.Inf(-1)

	for _, n := range a.grid.Nearest(lat, lon, a.neighbors) {
		ps := a.grid.series[n.Index]
		w := a.weight(n)

		var (
			days                             int
			tmin, tmax, amp, snow, precip, ft float64
			wind                             = math.Inf(-1)
		)
		for d := start; d < end; d++ {
			st, ok := ps.stats[d]
			if !ok {
				continue
			}
			days++
			tmin += st.minTemp
			tmax += st.maxTemp
			amp += st.maxTemp - st.minTemp
			snow += st.snow
			precip += st.precip
			wind = math.Max(wind, st.maxWind)
			if st.freezeThaw() {
				ft++
			}

			daySnow[d-start] += w * st.snow
			dayWeight[d-start] += w
		}
		if days == 0 {
			continue
		}

		nd := float64(days)
		total += w
		fv.TempMinAvg += w * tmin / nd
		fv.TempMaxAvg += w * tmax / nd
		fv.TempAmplitudeAvg += w * amp / nd
		fv.SnowfallSum += w * snow
		fv.PrecipSum += w * precip
		fv.FreezeThawCycles += w * ft
		fv.WindMax = math.Max(fv.WindMax, wind)
		fv.DaysWithData = max(fv.DaysWithData, days)
		fv.PointsUsed++
	}

	if fv.PointsUsed == 0 {
		a.logger.Debug().
			Float64("lat", lat).
			Float64("lon", lon).
			Str("date", end.String()).
			Int("window_days", windowDays).
			Msg("no weather data in trailing window, using neutral values")
		return NeutralFeatureVector()
	}

	fv.TempMinAvg /= total
	fv.TempMaxAvg /= total
	fv.TempAmplitudeAvg /= total
	fv.SnowfallSum /= total
	fv.PrecipSum /= total
	fv.FreezeThawCycles /= total

	fv.DaysSinceLastSnow = -1
	for i := windowDays - 1; i >= 0; i-- {
		if dayWeight[i] > 0 && daySnow[i]/dayWeight[i] > snowDayThreshold {
			fv.DaysSinceLastSnow = windowDays - i
			break
		}
	}
	fv.RecentSnow = fv.SnowfallSum >= recentSnowThreshold
	fv.DataAvailable = true

	return fv
}

// weight is the unnormalized inverse-distance weight of a neighbor.
func (a *Aggregator) weight(n geo.Neighbor) float64 {
	return 1 / (n.Distance + a.epsilon)
}
