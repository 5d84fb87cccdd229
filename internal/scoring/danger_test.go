package scoring_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skitourlive/skitourlive/internal/route"
	"github.com/skitourlive/skitourlive/internal/scoring"
	"github.com/skitourlive/skitourlive/internal/weather"
)

func TestDangerWeightsSumToOne(t *testing.T) {
	sum := scoring.AvalancheWeight + scoring.WindWeight + scoring.FreshSnowWeight +
		scoring.WetSnowWeight + scoring.AspectWeight + scoring.SlopeWeight
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestAspectPenalty(t *testing.T) {
	tests := []struct {
		aspect   route.Aspect
		expected float64
	}{
		{route.AspectN, 0.1},
		{route.AspectNE, 0.2},
		{route.AspectE, 0.4},
		{route.AspectSE, 0.7},
		{route.AspectS, 1.0},
		{route.AspectSW, 0.8},
		{route.AspectW, 0.6},
		{route.AspectNW, 0.3},
		{route.AspectUnknown, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.aspect.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, scoring.AspectPenalty(tt.aspect))
		})
	}
}

func TestPenalties_AlwaysInUnitInterval(t *testing.T) {
	inputs := []float64{-10, 0, 5, 12.5, 25, 30, 60, 1e6, math.NaN()}

	for _, x := range inputs {
		for _, p := range []float64{
			scoring.WindPenalty(x),
			scoring.FreshSnowPenalty(x),
			scoring.WetSnowPenalty(x, x),
		} {
			assert.GreaterOrEqual(t, p, 0.0, "input=%v", x)
			assert.LessOrEqual(t, p, 1.0, "input=%v", x)
		}
	}
}

func TestWindAndFreshSnowPenalty(t *testing.T) {
	assert.InDelta(t, 0.5, scoring.WindPenalty(12.5), 1e-12)
	assert.Equal(t, 1.0, scoring.WindPenalty(40))
	assert.InDelta(t, 0.5, scoring.FreshSnowPenalty(15), 1e-12)
	assert.Equal(t, 1.0, scoring.FreshSnowPenalty(45))
}

func TestWetSnowPenalty_Binary(t *testing.T) {
	assert.Equal(t, 1.0, scoring.WetSnowPenalty(0.5, 0.1))
	assert.Equal(t, 1.0, scoring.WetSnowPenalty(8, 40))
	assert.Equal(t, 0.0, scoring.WetSnowPenalty(0, 10))
	assert.Equal(t, 0.0, scoring.WetSnowPenalty(5, 0))
}

func TestSlopePenalty(t *testing.T) {
	assert.Equal(t, 0.3, scoring.SlopePenalty(route.GradeS1))
	assert.Equal(t, 0.3, scoring.SlopePenalty(route.GradeS3))
	assert.Equal(t, 1.0, scoring.SlopePenalty(route.GradeS4))
	assert.Equal(t, 1.0, scoring.SlopePenalty(route.GradeS5))
}

func TestDanger_InUnitInterval(t *testing.T) {
	worst := scoring.Danger(5, weather.DailySummary{MeanTemp: 3, MaxWind: 200, TotalSnow: 90, TotalPrecip: 20},
		route.Route{Aspect: route.AspectS, Grade: route.GradeS5})
	assert.InDelta(t, 1.0, worst.Total, 1e-12)
	assert.Equal(t, 1.0, worst.AvalancheRisk)

	best := scoring.Danger(0, weather.DailySummary{}, route.Route{Aspect: route.AspectN, Grade: route.GradeS1})
	assert.InDelta(t, 0.04, best.Total, 1e-12)
}
