package snow

import (
	"math"
	"time"
)

// SeasonMode labels which regime produced a hybrid score.
type SeasonMode string

// Season modes.
const (
	ModeWinter     SeasonMode = "winter"
	ModeTransition SeasonMode = "transition"
	ModeSpring     SeasonMode = "spring"
)

const (
	// transitionMaxWeight caps the spring share during March.
	transitionMaxWeight = 0.6

	// springWinterFloor scales the winter score used as a floor in spring.
	springWinterFloor = 0.7
)

// Hybrid is a blended snow quality with its constituents.
type Hybrid struct {
	Score  float64    `json:"score"`
	Mode   SeasonMode `json:"seasonMode"`
	Winter float64    `json:"winterScore"`
	Spring float64    `json:"springScore"`
}

// Blend combines winter and spring scores by calendar position:
//
//	Jan-Feb   winter
//	March     linear ramp toward spring, spring share capped at 0.6
//	Apr-Jun   max(spring, 0.7*winter)
//	Jul-Dec   winter
func Blend(month time.Month, day int, winter, spring float64) Hybrid {
	h := Hybrid{Winter: winter, Spring: spring}

	switch {
	case month <= time.February:
		h.Mode = ModeWinter
		h.Score = winter
	case month == time.March:
		w := math.Min(float64(day)/31*transitionMaxWeight, transitionMaxWeight)
		h.Mode = ModeTransition
		h.Score = (1-w)*winter + w*spring
	case month <= time.June:
		h.Mode = ModeSpring
		h.Score = math.Max(spring, winter*springWinterFloor)
	default:
		h.Mode = ModeWinter
		h.Score = winter
	}

	return h
}

// BlendDate is Blend for the month and day of date.
func BlendDate(date time.Time, winter, spring float64) Hybrid {
	return Blend(date.Month(), date.Day(), winter, spring)
}
