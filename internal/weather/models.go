package weather

import (
	"errors"
	"time"
)

// Weather errors.
var (
	ErrEmptyGrid          = errors.New("weather grid has no points")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidWindow      = errors.New("window must be at least one day")
)

// Neutral values returned when no grid point has usable data.
const (
	NeutralMeanTemp    = 0.0
	NeutralMaxWind     = 10.0
	NeutralTotalSnow   = 0.0
	NeutralTotalPrecip = 0.0
)

// DefaultWindowDays is the trailing window length used for snowpack features.
const DefaultWindowDays = 7

// Record is one hourly (or daily) observation at a grid point.
type Record struct {
	Time time.Time

	// Temperature at 2 m in Celsius.
	Temperature float64

	// WindSpeed at 10 m in km/h.
	WindSpeed float64

	// Precipitation in mm.
	Precipitation float64

	// Snowfall in cm.
	Snowfall float64
}

// GridPoint is a forecast grid location with its time series.
type GridPoint struct {
	Lat     float64
	Lon     float64
	Records []Record
}

// Day is a calendar date expressed as days since the Unix epoch.
type Day int64

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// Time returns midnight UTC of the day.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

func (d Day) String() string {
	return d.Time().Format(time.DateOnly)
}

// DailySummary is the blended weather for a single day at a location.
type DailySummary struct {
	MeanTemp    float64 `json:"meanTemp"`
	MaxWind     float64 `json:"maxWind"`
	TotalSnow   float64 `json:"totalSnow"`
	TotalPrecip float64 `json:"totalPrecip"`

	// DataAvailable is false when every neighbor lacked data and neutral values were used.
	DataAvailable bool `json:"dataAvailable"`

	// PointsUsed is the number of grid points that contributed.
	PointsUsed int `json:"pointsUsed"`
}

// NeutralDailySummary returns the documented fallback when no data exists.
func NeutralDailySummary() DailySummary {
	return DailySummary{
		MeanTemp:    NeutralMeanTemp,
		MaxWind:     NeutralMaxWind,
		TotalSnow:   NeutralTotalSnow,
		TotalPrecip: NeutralTotalPrecip,
	}
}

// FeatureVector summarizes the trailing window before a target date.
type FeatureVector struct {
	TempMinAvg       float64 `json:"tempMinAvg"`
	TempMaxAvg       float64 `json:"tempMaxAvg"`
	TempAmplitudeAvg float64 `json:"tempAmplitudeAvg"`
	SnowfallSum      float64 `json:"snowfallSum"`
	WindMax          float64 `json:"windMax"`
	FreezeThawCycles float64 `json:"freezeThawCycles"`
	PrecipSum        float64 `json:"precipSum"`

	// DaysWithData is the largest number of window days any contributing point had.
	DaysWithData int `json:"daysWithData"`

	// DaysSinceLastSnow counts back from the target date to the latest day
	// with more than 2 cm blended snowfall, or -1 if none in the window.
	DaysSinceLastSnow int `json:"daysSinceLastSnow"`

	// RecentSnow is set when the window accumulated at least 20 cm.
	RecentSnow bool `json:"recentSnow"`

	DataAvailable bool `json:"dataAvailable"`
	PointsUsed    int  `json:"pointsUsed"`
}

// NeutralFeatureVector returns the documented fallback when no data exists.
func NeutralFeatureVector() FeatureVector {
	return FeatureVector{
		WindMax:           NeutralMaxWind,
		DaysSinceLastSnow: -1,
	}
}
