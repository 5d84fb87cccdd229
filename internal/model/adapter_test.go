package model_test

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skitourlive/skitourlive/internal/model"
	"github.com/skitourlive/skitourlive/internal/provider/resilience"
	"github.com/skitourlive/skitourlive/internal/weather"
)

func constant(raw float64) model.Regressor {
	return model.RegressorFunc(func([]float64) (float64, error) { return raw, nil })
}

func newAdapter(r model.Regressor) *model.Adapter {
	return model.NewAdapter(model.AdapterConfig{
		Regressor: r,
		Massifs:   []string{"Mont-Blanc", "Aravis"},
		Logger:    zerolog.Nop(),
	})
}

var feb14 = time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)

func TestBoost_EndpointsAndMonotonic(t *testing.T) {
	assert.Equal(t, 0.0, model.Boost(0))
	assert.Equal(t, 1.0, model.Boost(1))

	prev := model.Boost(0)
	for x := 0.01; x <= 1.0; x += 0.01 {
		got := model.Boost(x)
		assert.Greater(t, got, prev, "x=%v", x)
		assert.GreaterOrEqual(t, got, x, "boost never lowers a score")
		prev = got
	}
}

func TestNormalize_Clamps(t *testing.T) {
	assert.Equal(t, 0.0, model.Normalize(-3))
	assert.Equal(t, 0.5, model.Normalize(0))
	assert.Equal(t, 1.0, model.Normalize(2.5))
}

func TestPostProcess_Pipeline(t *testing.T) {
	calm := weather.FeatureVector{SnowfallSum: 5, TempMinAvg: -2, WindMax: 20}

	// 0.5 -> 1-(0.5)^1.5 -> ^0.65
	expected := math.Pow(1-math.Pow(0.5, 1.5), 0.65)
	assert.InDelta(t, expected, model.PostProcess(0, calm), 0.0005)

	assert.Equal(t, 0.0, model.PostProcess(-1, calm))
	assert.Equal(t, 1.0, model.PostProcess(1, calm))
	assert.Equal(t, 1.0, model.PostProcess(5, calm))
}

func TestExceptionalDayOverride(t *testing.T) {
	exceptional := weather.FeatureVector{SnowfallSum: 30, TempMinAvg: -8, WindMax: 20}
	ordinary := exceptional
	ordinary.SnowfallSum = 10

	require.True(t, model.ExceptionalDay(exceptional))
	require.False(t, model.ExceptionalDay(ordinary))

	adapter := newAdapter(constant(0.0))

	lifted := adapter.PredictWinterScore(exceptional, model.RouteContext{Massif: "Aravis"}, feb14)
	plain := model.PostProcess(0.0, ordinary)

	assert.True(t, lifted.Available)
	assert.True(t, lifted.Exceptional)
	assert.Greater(t, lifted.Score, plain)

	boosted := 1 - math.Pow(0.5, 1.5)
	assert.InDelta(t, math.Pow(boosted+0.5*(1-boosted), 0.65), lifted.Score, 0.0005)
}

func TestExceptionalDay_Boundaries(t *testing.T) {
	assert.True(t, model.ExceptionalDay(weather.FeatureVector{SnowfallSum: 25, TempMinAvg: -6, WindMax: 35}))
	assert.False(t, model.ExceptionalDay(weather.FeatureVector{SnowfallSum: 25, TempMinAvg: -5.9, WindMax: 35}))
	assert.False(t, model.ExceptionalDay(weather.FeatureVector{SnowfallSum: 25, TempMinAvg: -6, WindMax: 35.1}))
}

func TestPredictWinterScore_NoModel(t *testing.T) {
	adapter := newAdapter(nil)

	p := adapter.PredictWinterScore(weather.FeatureVector{}, model.RouteContext{}, feb14)

	assert.False(t, p.Available)
	assert.Equal(t, model.NeutralScore, p.Score)
	assert.False(t, adapter.Available())

	var nilAdapter *model.Adapter
	assert.Equal(t, model.NeutralScore, nilAdapter.PredictWinterScore(weather.FeatureVector{}, model.RouteContext{}, feb14).Score)
}

func TestPredictWinterScore_ErrorsFallBackAndTripBreaker(t *testing.T) {
	calls := 0
	failing := model.RegressorFunc(func([]float64) (float64, error) {
		calls++
		return 0, assert.AnError
	})

	cb := resilience.DefaultCircuitBreakerConfig("test-model")
	adapter := model.NewAdapter(model.AdapterConfig{
		Regressor:      failing,
		CircuitBreaker: &cb,
		Logger:         zerolog.Nop(),
	})

	for i := 0; i < 10; i++ {
		p := adapter.PredictWinterScore(weather.FeatureVector{}, model.RouteContext{}, feb14)
		assert.False(t, p.Available)
		assert.Equal(t, model.NeutralScore, p.Score)
	}

	assert.Equal(t, gobreaker.StateOpen, adapter.CircuitBreakerState())
	assert.Equal(t, 3, calls, "open breaker short-circuits further calls")
	assert.False(t, adapter.Available())
}

func TestPredictWinterScore_NaNIsUnavailable(t *testing.T) {
	adapter := newAdapter(constant(math.NaN()))

	p := adapter.PredictWinterScore(weather.FeatureVector{}, model.RouteContext{}, feb14)
	assert.False(t, p.Available)
	assert.Equal(t, model.NeutralScore, p.Score)
}

func TestPredictWinterScore_PassesFeatureRow(t *testing.T) {
	var got []float64
	spy := model.RegressorFunc(func(f []float64) (float64, error) {
		got = f
		return 0.2, nil
	})

	fv := weather.FeatureVector{TempMinAvg: -4, TempMaxAvg: 2, TempAmplitudeAvg: 6, SnowfallSum: 12, WindMax: 30, FreezeThawCycles: 3}
	rc := model.RouteContext{Massif: " aravis ", ElevationGain: 1500, Difficulty: 4}

	p := newAdapter(spy).PredictWinterScore(fv, rc, feb14)
	require.True(t, p.Available)
	assert.Equal(t, 0.2, p.Raw)

	// Saturday -> 5, Aravis is the second massif, altitude is neutral.
	assert.Equal(t, []float64{-4, 2, 6, 12, 30, 3, 2400, 1500, 4, 1, 5}, got)
}
