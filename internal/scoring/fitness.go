package scoring

import (
	"fmt"
	"math"

	"github.com/skitourlive/skitourlive/internal/route"
)

const (
	dplusSpreadPenalty = 0.3
	dplusOutsideScale  = 0.5
	dplusFloor         = 0.1
)

// DplusRange is the user's acceptable elevation gain window in meters.
type DplusRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Validate checks that the range is positive and ordered.
func (r DplusRange) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || r.Min <= 0 || r.Max < r.Min {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidDplusRange, r.Min, r.Max)
	}
	return nil
}

// LevelBonus is 1/(1+|route-user|) over the S1..S5 ordinal.
func LevelBonus(routeGrade, userLevel route.Grade) float64 {
	diff := math.Abs(float64(routeGrade - userLevel))
	return 1 / (1 + diff)
}

// DplusBonus rates how well an elevation gain fits the range. Inside the
// range it peaks at 1.0 in the middle and bottoms at 0.85 on the edges.
// Outside it drops steeply but never below 0.1.
func DplusBonus(dplus float64, r DplusRange) float64 {
	switch {
	case dplus < r.Min:
		return math.Max(dplusFloor, dplus/r.Min*dplusOutsideScale)
	case dplus > r.Max:
		return math.Max(dplusFloor, r.Max/dplus*dplusOutsideScale)
	case r.Max == r.Min:
		return 1.0
	}

	center := (r.Min + r.Max) / 2
	return 1 - dplusSpreadPenalty*math.Abs(dplus-center)/(r.Max-r.Min)
}

// Fitness is DplusBonus × LevelBonus, in (0,1].
func Fitness(r route.Route, userLevel route.Grade, dplus DplusRange) float64 {
	return DplusBonus(r.ElevationGain, dplus) * LevelBonus(r.Grade, userLevel)
}

// FinalScore is fitness/(1+danger). Higher is better.
func FinalScore(fitness, danger float64) float64 {
	return fitness / (1 + danger)
}
