package model

import (
	"time"

	"github.com/skitourlive/skitourlive/internal/avalanche"
	"github.com/skitourlive/skitourlive/internal/weather"
)

// Neutral route attributes used when a route lacks them.
const (
	NeutralSummitAltitude = 2400.0
	NeutralElevationGain  = 1200.0
	NeutralDifficulty     = 3.0

	// UnknownMassif encodes a massif missing from the category list.
	// Negative categorical values are treated as missing by the model.
	UnknownMassif = -1.0
)

// Columns is the model's feature order. FeatureRow.Values follows it exactly.
var Columns = []string{
	"temp_min_7d_avg",
	"temp_max_7d_avg",
	"temp_amp_7d_avg",
	"snowfall_7d_sum",
	"wind_max_7d",
	"freeze_thaw_cycles_7d",
	"summit_altitude_clean",
	"topo_denivele",
	"topo_difficulty",
	"massif",
	"day_of_week",
}

// RouteContext carries the route attributes the model consumes.
type RouteContext struct {
	Massif         string
	ElevationGain  float64
	Difficulty     int
	SummitAltitude float64
}

// FeatureRow is one typed model input.
type FeatureRow struct {
	TempMinAvg       float64
	TempMaxAvg       float64
	TempAmplitudeAvg float64
	SnowfallSum      float64
	WindMax          float64
	FreezeThawCycles float64
	SummitAltitude   float64
	ElevationGain    float64
	Difficulty       float64
	Massif           float64
	DayOfWeek        float64
}

// Values returns the row in Columns order.
func (r FeatureRow) Values() []float64 {
	return []float64{
		r.TempMinAvg,
		r.TempMaxAvg,
		r.TempAmplitudeAvg,
		r.SnowfallSum,
		r.WindMax,
		r.FreezeThawCycles,
		r.SummitAltitude,
		r.ElevationGain,
		r.Difficulty,
		r.Massif,
		r.DayOfWeek,
	}
}

// MassifEncoder maps massif names to the model's categorical codes.
type MassifEncoder struct {
	codes map[string]int
}

// NewMassifEncoder assigns each massif its position in the list.
func NewMassifEncoder(massifs []string) *MassifEncoder {
	e := &MassifEncoder{codes: make(map[string]int, len(massifs))}
	for i, m := range massifs {
		key := avalanche.NormalizeMassif(m)
		if _, dup := e.codes[key]; key == "" || dup {
			continue
		}
		e.codes[key] = i
	}
	return e
}

// Encode returns the code for a massif, or UnknownMassif.
func (e *MassifEncoder) Encode(massif string) float64 {
	if e == nil {
		return UnknownMassif
	}
	if code, ok := e.codes[avalanche.NormalizeMassif(massif)]; ok {
		return float64(code)
	}
	return UnknownMassif
}

// DayOfWeek returns the weekday with Monday as 0.
func DayOfWeek(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

// NewFeatureRow builds the model input for a route on a date.
func NewFeatureRow(fv weather.FeatureVector, rc RouteContext, date time.Time, massifs *MassifEncoder) FeatureRow {
	row := FeatureRow{
		TempMinAvg:       fv.TempMinAvg,
		TempMaxAvg:       fv.TempMaxAvg,
		TempAmplitudeAvg: fv.TempAmplitudeAvg,
		SnowfallSum:      fv.SnowfallSum,
		WindMax:          fv.WindMax,
		FreezeThawCycles: fv.FreezeThawCycles,
		SummitAltitude:   rc.SummitAltitude,
		ElevationGain:    rc.ElevationGain,
		Difficulty:       float64(rc.Difficulty),
		Massif:           massifs.Encode(rc.Massif),
		DayOfWeek:        float64(DayOfWeek(date)),
	}

	if row.SummitAltitude <= 0 {
		row.SummitAltitude = NeutralSummitAltitude
	}
	if row.ElevationGain <= 0 {
		row.ElevationGain = NeutralElevationGain
	}
	if row.Difficulty <= 0 {
		row.Difficulty = NeutralDifficulty
	}

	return row
}
