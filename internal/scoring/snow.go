package scoring

import (
	"context"
	"time"

	"github.com/skitourlive/skitourlive/internal/avalanche"
	"github.com/skitourlive/skitourlive/internal/model"
	"github.com/skitourlive/skitourlive/internal/route"
	"github.com/skitourlive/skitourlive/internal/snow"
	"github.com/skitourlive/skitourlive/internal/weather"
)

// Winter score sources.
const (
	WinterSourceModel    = "model"
	WinterSourcePhysical = "physical"
)

// SnowQuality is the seasonal snow-quality estimate for a route.
type SnowQuality struct {
	snow.Hybrid

	// WinterSource is "model" or "physical".
	WinterSource string     `json:"winterSource"`
	Confidence   Confidence `json:"confidence"`

	Features weather.FeatureVector `json:"features"`
}

// HybridSnowQuality blends the winter and spring scores for a route on date.
// Without a usable model the winter score comes from the physical rules and
// confidence is low.
func (e *Engine) HybridSnowQuality(ctx context.Context, sc *Context, r route.Route, date time.Time) SnowQuality {
	fv := sc.Weather.TrailingWindow(r.Lat, r.Lon, date, e.windowDays)
	if !fv.DataAvailable {
		e.metrics.RecordWeatherMissing(ctx, "window")
	}

	spring := snow.SpringScore(fv)

	pred := sc.Model.PredictWinterScore(fv, model.RouteContext{
		Massif:         r.Massif,
		ElevationGain:  r.ElevationGain,
		Difficulty:     int(r.Grade),
		SummitAltitude: r.SummitAltitude,
	}, date)

	winter := pred.Score
	source := WinterSourceModel
	if !pred.Available {
		winter = snow.WinterPhysicalScore(fv)
		source = WinterSourcePhysical
		e.metrics.RecordModelFallback(ctx)
	}

	confidence := ConfidenceHigh
	if !pred.Available || !fv.DataAvailable {
		confidence = ConfidenceLow
	}

	return SnowQuality{
		Hybrid:       snow.BlendDate(date, winter, spring),
		WinterSource: source,
		Confidence:   confidence,
		Features:     fv,
	}
}

// Conditions is a diagnostic view of the inputs behind a route's scores.
type Conditions struct {
	RouteID string    `json:"routeId"`
	Date    time.Time `json:"date"`

	Daily  weather.DailySummary  `json:"daily"`
	Window weather.FeatureVector `json:"window"`

	// Neighbors lists the grid points feeding the blend, with great-circle distances.
	Neighbors []weather.Contribution `json:"neighbors,omitempty"`

	AvalancheRisk float64             `json:"avalancheRisk"`
	Bulletin      *avalanche.Bulletin `json:"bulletin,omitempty"`
	Danger        DangerBreakdown     `json:"danger"`
}

// Conditions gathers weather, avalanche and danger diagnostics for a route.
func (e *Engine) Conditions(sc *Context, r route.Route, date time.Time) Conditions {
	day := sc.Weather.DailySummary(r.Lat, r.Lon, date)
	risk := sc.Avalanche.Risk(r.Massif)

	c := Conditions{
		RouteID:       r.ID,
		Date:          date,
		Daily:         day,
		Window:        sc.Weather.TrailingWindow(r.Lat, r.Lon, date, e.windowDays),
		AvalancheRisk: risk,
		Danger:        Danger(risk, day, r),
	}

	if loc, ok := sc.Weather.(weather.Locator); ok {
		c.Neighbors = loc.Contributions(r.Lat, r.Lon)
	}
	if b, ok := sc.Avalanche.Lookup(r.Massif); ok {
		c.Bulletin = &b
	}

	return c
}
