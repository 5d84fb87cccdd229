package scoring_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skitourlive/skitourlive/internal/model"
	"github.com/skitourlive/skitourlive/internal/route"
	"github.com/skitourlive/skitourlive/internal/scoring"
	"github.com/skitourlive/skitourlive/internal/snow"
	"github.com/skitourlive/skitourlive/internal/weather"
)

var powderWeek = weather.FeatureVector{
	TempMinAvg:       -9,
	TempMaxAvg:       -4,
	TempAmplitudeAvg: 5,
	SnowfallSum:      35,
	WindMax:          20,
	DataAvailable:    true,
	PointsUsed:       3,
}

func stubModel(raw float64) *model.Adapter {
	return model.NewAdapter(model.AdapterConfig{
		Regressor: model.RegressorFunc(func([]float64) (float64, error) { return raw, nil }),
		Logger:    zerolog.Nop(),
	})
}

func TestHybridSnowQuality_WithModel(t *testing.T) {
	sc := newContext(t, nil, stubWeather{day: calmDay, fv: powderWeek}, stubModel(0.2))

	sq := newEngine().HybridSnowQuality(context.Background(), sc, baseRoute(), feb14)

	assert.Equal(t, scoring.WinterSourceModel, sq.WinterSource)
	assert.Equal(t, scoring.ConfidenceHigh, sq.Confidence)
	assert.Equal(t, snow.ModeWinter, sq.Mode)
	assert.Equal(t, model.PostProcess(0.2, powderWeek), sq.Winter)
	// February is pure winter, spring is reported but ignored.
	assert.Equal(t, sq.Winter, sq.Score)
	assert.Equal(t, 0.0, sq.Spring)
}

func TestHybridSnowQuality_ModelUnavailableFallsBackToPhysical(t *testing.T) {
	sc := newContext(t, nil, stubWeather{day: calmDay, fv: powderWeek}, nil)

	sq := newEngine().HybridSnowQuality(context.Background(), sc, baseRoute(), feb14)

	assert.Equal(t, scoring.WinterSourcePhysical, sq.WinterSource)
	assert.Equal(t, scoring.ConfidenceLow, sq.Confidence)
	assert.Equal(t, snow.WinterPhysicalScore(powderWeek), sq.Winter)
	assert.Equal(t, sq.Winter, sq.Score)
}

func TestHybridSnowQuality_SpringMode(t *testing.T) {
	cornWeek := weather.FeatureVector{
		TempMinAvg:       -7,
		TempMaxAvg:       8,
		TempAmplitudeAvg: 15,
		SnowfallSum:      0,
		WindMax:          10,
		DataAvailable:    true,
	}
	sc := newContext(t, nil, stubWeather{day: calmDay, fv: cornWeek}, stubModel(-0.6))

	april := time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC)
	sq := newEngine().HybridSnowQuality(context.Background(), sc, baseRoute(), april)

	assert.Equal(t, snow.ModeSpring, sq.Mode)
	assert.Equal(t, 1.0, sq.Spring)
	assert.Equal(t, 1.0, sq.Score)
}

func TestScoreRoutes_CarriesSnowQuality(t *testing.T) {
	routes := []route.Route{baseRoute()}
	sc := newContext(t, routes, stubWeather{day: calmDay, fv: powderWeek}, stubModel(0.2))

	batch, err := newEngine().ScoreRoutes(context.Background(), sc, routes, query())
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)

	res := batch.Results[0]
	assert.Equal(t, snow.ModeWinter, res.SeasonMode)
	assert.Equal(t, model.PostProcess(0.2, powderWeek), res.SnowQuality)
	assert.Equal(t, scoring.ConfidenceHigh, res.Confidence)
}

func TestConditions_WithGrid(t *testing.T) {
	d := feb14
	grid, err := weather.NewGrid([]weather.GridPoint{
		{Lat: 45.9, Lon: 6.8, Records: []weather.Record{{Time: d, Temperature: -3, WindSpeed: 12, Snowfall: 4}}},
		{Lat: 45.6, Lon: 6.5, Records: []weather.Record{{Time: d, Temperature: -1, WindSpeed: 18}}},
		{Lat: 46.2, Lon: 7.1, Records: []weather.Record{{Time: d, Temperature: -5, WindSpeed: 30}}},
	})
	require.NoError(t, err)

	svc := weather.NewService(weather.ServiceConfig{
		Aggregator: weather.NewAggregator(weather.AggregatorConfig{Grid: grid, Logger: zerolog.Nop()}),
		Logger:     zerolog.Nop(),
	})

	r := baseRoute()
	sc := newContext(t, []route.Route{r}, svc, nil)

	c := newEngine().Conditions(sc, r, d)

	assert.Equal(t, "belvedere", c.RouteID)
	assert.True(t, c.Daily.DataAvailable)
	assert.Equal(t, 30.0, c.Daily.MaxWind)
	assert.Len(t, c.Neighbors, 3)
	assert.Less(t, c.Neighbors[0].DistanceKm, 15.0)
	require.NotNil(t, c.Bulletin)
	assert.Equal(t, 2, c.Bulletin.Level)
	assert.InDelta(t, 0.4, c.AvalancheRisk, 1e-9)
	assert.InDelta(t, c.Danger.Total, scoring.Danger(0.4, c.Daily, r).Total, 1e-12)
}
