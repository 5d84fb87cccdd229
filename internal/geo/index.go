// Package geo provides nearest-neighbor lookup over a small set of weather grid points.
package geo

import (
	"errors"
	"math"
	"sort"
)

// ErrInvalidCoordinates indicates the provided coordinates are out of range.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// earthRadiusKm is the mean Earth radius used by Haversine.
const earthRadiusKm = 6371.0

// Point is a grid location in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Neighbor is a grid point paired with its distance from a query location.
type Neighbor struct {
	// Index is the position of the point in the index's input slice.
	Index int `json:"index"`

	// Point is the grid location.
	Point Point `json:"point"`

	// Distance is the planar Euclidean distance in degrees. It is only
	// meaningful for ranking and weighting over a regional grid.
	Distance float64 `json:"distance"`

	// DistanceKm is the great-circle distance in kilometers.
	DistanceKm float64 `json:"distanceKm"`
}

// GridIndex answers nearest-K queries over an immutable set of points.
type GridIndex struct {
	points []Point
}

// NewGridIndex creates an index over a copy of the given points.
// Input order is preserved and used to break distance ties.
func NewGridIndex(points []Point) *GridIndex {
	cp := make([]Point, len(points))
	copy(cp, points)
	return &GridIndex{points: cp}
}

// Len returns the number of indexed points.
func (g *GridIndex) Len() int {
	return len(g.points)
}

// Point returns the point at position i.
func (g *GridIndex) Point(i int) Point {
	return g.points[i]
}

// Nearest returns up to k points ordered by ascending distance from (lat, lon).
// Ties keep input order. When k exceeds the number of points all points are returned.
func (g *GridIndex) Nearest(lat, lon float64, k int) []Neighbor {
	if k <= 0 || len(g.points) == 0 {
		return nil
	}

	neighbors := make([]Neighbor, len(g.points))
	for i, p := range g.points {
		neighbors[i] = Neighbor{
			Index:    i,
			Point:    p,
			Distance: planarDistance(lat, lon, p.Lat, p.Lon),
		}
	}

	sort.SliceStable(neighbors, func(a, b int) bool {
		return neighbors[a].Distance < neighbors[b].Distance
	})

	if k < len(neighbors) {
		neighbors = neighbors[:k]
	}

	// Only the selected neighbors pay for the trigonometry.
	for i := range neighbors {
		neighbors[i].DistanceKm = HaversineKm(lat, lon, neighbors[i].Point.Lat, neighbors[i].Point.Lon)
	}

	return neighbors
}

// ValidateCoordinates checks if coordinates are within valid ranges.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

func planarDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat2 - lat1
	dLon := lon2 - lon1
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

// HaversineKm calculates the great-circle distance between two points in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
