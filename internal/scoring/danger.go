// Package scoring ranks ski-touring routes by combining avalanche risk,
// weather penalties, terrain exposure and the user's fitness preferences.
package scoring

import (
	"math"

	"github.com/skitourlive/skitourlive/internal/route"
	"github.com/skitourlive/skitourlive/internal/weather"
)

// Danger weights. They sum to 1.
const (
	AvalancheWeight = 0.30
	WindWeight      = 0.20
	FreshSnowWeight = 0.15
	WetSnowWeight   = 0.15
	AspectWeight    = 0.10
	SlopeWeight     = 0.10
)

// Penalty scales.
const (
	freshSnowFullPenalty = 30.0 // cm in a day
	windFullPenalty      = 25.0 // km/h

	steepSlopePenalty  = 1.0
	gentleSlopePenalty = 0.3

	unknownAspectPenalty = 0.5
)

// Solar exposure by octant, shaded north to fully exposed south.
var aspectPenalties = map[route.Aspect]float64{
	route.AspectN:  0.1,
	route.AspectNE: 0.2,
	route.AspectE:  0.4,
	route.AspectSE: 0.7,
	route.AspectS:  1.0,
	route.AspectSW: 0.8,
	route.AspectW:  0.6,
	route.AspectNW: 0.3,
}

// DangerBreakdown lists each penalty term and the weighted total.
type DangerBreakdown struct {
	AvalancheRisk float64 `json:"avalancheRisk"`
	Wind          float64 `json:"wind"`
	FreshSnow     float64 `json:"freshSnow"`
	WetSnow       float64 `json:"wetSnow"`
	Aspect        float64 `json:"aspect"`
	Slope         float64 `json:"slope"`
	Total         float64 `json:"total"`
}

// AspectPenalty returns the exposure penalty for an octant.
func AspectPenalty(a route.Aspect) float64 {
	if p, ok := aspectPenalties[a]; ok {
		return p
	}
	return unknownAspectPenalty
}

// WindPenalty scales daily max wind (km/h) to [0,1].
func WindPenalty(maxWind float64) float64 {
	return clamp01(maxWind / windFullPenalty)
}

// FreshSnowPenalty scales the day's snowfall (cm) to [0,1].
func FreshSnowPenalty(totalSnow float64) float64 {
	return clamp01(totalSnow / freshSnowFullPenalty)
}

// WetSnowPenalty is 1 when any precipitation falls above freezing, else 0.
func WetSnowPenalty(meanTemp, totalPrecip float64) float64 {
	if meanTemp > 0 && totalPrecip > 0 {
		return 1.0
	}
	return 0.0
}

// SlopePenalty is 1 for S4 and S5, 0.3 otherwise.
func SlopePenalty(g route.Grade) float64 {
	if g.Steep() {
		return steepSlopePenalty
	}
	return gentleSlopePenalty
}

// Danger combines avalanche risk, the day's weather and the route's terrain into [0,1].
func Danger(avalancheRisk float64, day weather.DailySummary, r route.Route) DangerBreakdown {
	b := DangerBreakdown{
		AvalancheRisk: clamp01(avalancheRisk),
		Wind:          WindPenalty(day.MaxWind),
		FreshSnow:     FreshSnowPenalty(day.TotalSnow),
		WetSnow:       WetSnowPenalty(day.MeanTemp, day.TotalPrecip),
		Aspect:        AspectPenalty(r.Aspect),
		Slope:         SlopePenalty(r.Grade),
	}

	b.Total = AvalancheWeight*b.AvalancheRisk +
		WindWeight*b.Wind +
		FreshSnowWeight*b.FreshSnow +
		WetSnowWeight*b.WetSnow +
		AspectWeight*b.Aspect +
		SlopeWeight*b.Slope

	return b
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}
