package geo_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skitourlive/skitourlive/internal/geo"
)

func alpsGrid() []geo.Point {
	return []geo.Point{
		{Lat: 45.8, Lon: 6.8}, // Chamonix area
		{Lat: 45.5, Lon: 6.5},
		{Lat: 45.2, Lon: 5.9}, // Grenoble area
		{Lat: 44.9, Lon: 6.6},
		{Lat: 46.1, Lon: 6.8},
	}
}

func TestGridIndex_Nearest_OrderedAscending(t *testing.T) {
	idx := geo.NewGridIndex(alpsGrid())

	neighbors := idx.Nearest(45.9, 6.85, 3)
	require.Len(t, neighbors, 3)

	assert.Equal(t, 0, neighbors[0].Index)
	for i := 1; i < len(neighbors); i++ {
		assert.GreaterOrEqual(t, neighbors[i].Distance, neighbors[i-1].Distance)
	}
	for _, n := range neighbors {
		assert.GreaterOrEqual(t, n.Distance, 0.0)
		assert.GreaterOrEqual(t, n.DistanceKm, 0.0)
	}
}

func TestGridIndex_Nearest_KLargerThanGrid(t *testing.T) {
	idx := geo.NewGridIndex(alpsGrid())

	neighbors := idx.Nearest(45.9, 6.85, 50)
	assert.Len(t, neighbors, 5)
}

func TestGridIndex_Nearest_EmptyOrZeroK(t *testing.T) {
	assert.Empty(t, geo.NewGridIndex(nil).Nearest(45, 6, 3))
	assert.Empty(t, geo.NewGridIndex(alpsGrid()).Nearest(45, 6, 0))
}

func TestGridIndex_Nearest_TiesKeepInputOrder(t *testing.T) {
	// Four points equidistant from the origin.
	idx := geo.NewGridIndex([]geo.Point{
		{Lat: 1, Lon: 0},
		{Lat: 0, Lon: 1},
		{Lat: -1, Lon: 0},
		{Lat: 0, Lon: -1},
	})

	neighbors := idx.Nearest(0, 0, 4)
	require.Len(t, neighbors, 4)
	for i, n := range neighbors {
		assert.Equal(t, i, n.Index)
	}
}

func TestGridIndex_Nearest_Idempotent(t *testing.T) {
	idx := geo.NewGridIndex(alpsGrid())

	first := idx.Nearest(45.4, 6.4, 4)
	second := idx.Nearest(45.4, 6.4, 4)
	assert.Equal(t, first, second)
}

func TestGridIndex_DoesNotAliasInput(t *testing.T) {
	points := alpsGrid()
	idx := geo.NewGridIndex(points)

	points[0] = geo.Point{Lat: 0, Lon: 0}
	assert.Equal(t, 45.8, idx.Point(0).Lat)
}

func TestHaversineKm(t *testing.T) {
	tests := []struct {
		name     string
		lat1     float64
		lon1     float64
		lat2     float64
		lon2     float64
		expected float64
		delta    float64
	}{
		{"same point", 45.9, 6.8, 45.9, 6.8, 0, 1e-9},
		{"one degree of latitude", 45, 6, 46, 6, 111.19, 0.1},
		{"Chamonix to Grenoble", 45.9237, 6.8694, 45.1885, 5.7245, 120.0, 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geo.HaversineKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.expected, got, tt.delta)
		})
	}
}

func TestValidateCoordinates(t *testing.T) {
	assert.NoError(t, geo.ValidateCoordinates(45.9, 6.8))
	assert.ErrorIs(t, geo.ValidateCoordinates(91, 0), geo.ErrInvalidCoordinates)
	assert.ErrorIs(t, geo.ValidateCoordinates(0, -181), geo.ErrInvalidCoordinates)
	assert.ErrorIs(t, geo.ValidateCoordinates(math.NaN(), 0), geo.ErrInvalidCoordinates)
}
