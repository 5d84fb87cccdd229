// Package snow scores snow quality from trailing-window weather features.
//
// The rule tables below are hand-specified domain policy. Each is a
// monotonic step function; thresholds are inclusive.
package snow

import (
	"math"

	"github.com/skitourlive/skitourlive/internal/weather"
)

// Spring score weights.
const (
	SpringFreezeWeight    = 0.45
	SpringAmplitudeWeight = 0.35
	SpringWindWeight      = 0.20
)

// Physical winter score weights, used when no model is available.
const (
	WinterPowderWeight = 0.5
	WinterColdWeight   = 0.3
	WinterWindWeight   = 0.2
)

// FreezeQuality rates overnight refreeze from the average daily minimum (°C).
func FreezeQuality(tempMin float64) float64 {
	switch {
	case tempMin <= -6:
		return 1.0
	case tempMin <= -3:
		return 0.8
	case tempMin <= -1:
		return 0.6
	default:
		return 0.2
	}
}

// ThermalAmplitudeQuality rates the average daily temperature swing (°C).
func ThermalAmplitudeQuality(amp float64) float64 {
	switch {
	case amp >= 12:
		return 1.0
	case amp >= 8:
		return 0.8
	case amp >= 5:
		return 0.6
	default:
		return 0.3
	}
}

// WindPenaltySpring rates the window's peak wind (km/h). Higher is calmer.
func WindPenaltySpring(windMax float64) float64 {
	switch {
	case windMax <= 15:
		return 1.0
	case windMax <= 30:
		return 0.7
	default:
		return 0.4
	}
}

// SpringActivation gates the corn-snow regime on recent snowfall (cm).
// Heavy recent snowfall disables it entirely.
func SpringActivation(snowfall7d float64) float64 {
	switch {
	case snowfall7d <= 3:
		return 1.0
	case snowfall7d <= 10:
		return 0.5
	default:
		return 0.0
	}
}

// SpringScore is the spring (corn snow) quality in [0,1], rounded to 3 decimals.
func SpringScore(fv weather.FeatureVector) float64 {
	activation := SpringActivation(fv.SnowfallSum)
	if activation == 0 {
		return 0.0
	}

	base := SpringFreezeWeight*FreezeQuality(fv.TempMinAvg) +
		SpringAmplitudeWeight*ThermalAmplitudeQuality(fv.TempAmplitudeAvg) +
		SpringWindWeight*WindPenaltySpring(fv.WindMax)

	return round3(activation * base)
}

// PowderQuality rates recent snowfall (cm) for winter skiing.
func PowderQuality(snowfall7d float64) float64 {
	switch {
	case snowfall7d >= 25:
		return 1.0
	case snowfall7d >= 10:
		return 0.8
	case snowfall7d >= 3:
		return 0.5
	default:
		return 0.2
	}
}

// ColdQuality rates how well the snowpack stayed cold from the average daily maximum (°C).
func ColdQuality(tempMaxAvg float64) float64 {
	switch {
	case tempMaxAvg <= -3:
		return 1.0
	case tempMaxAvg <= 0:
		return 0.8
	case tempMaxAvg <= 3:
		return 0.5
	default:
		return 0.2
	}
}

// WinterPhysicalScore is the rule-based winter quality in [0,1], rounded to
// 3 decimals. It stands in for the model when the model is unavailable.
func WinterPhysicalScore(fv weather.FeatureVector) float64 {
	return round3(WinterPowderWeight*PowderQuality(fv.SnowfallSum) +
		WinterColdWeight*ColdQuality(fv.TempMaxAvg) +
		WinterWindWeight*WindPenaltySpring(fv.WindMax))
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
