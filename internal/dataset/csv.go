package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/skitourlive/skitourlive/internal/avalanche"
	"github.com/skitourlive/skitourlive/internal/route"
	"github.com/skitourlive/skitourlive/internal/weather"
)

// Dataset errors.
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrEmptyDataset  = errors.New("dataset is empty")
)

// Route table columns.
const (
	colName       = "name"
	colMassif     = "massif"
	colLat        = "lat"
	colLon        = "lon"
	colDenivele   = "denivele_positif"
	colExposition = "exposition"
	colDifficulty = "difficulty_ski"
	colID         = "id"
	colURL        = "url"
	colAltitude   = "altitude"
)

// Weather grid columns.
const (
	colLatitude      = "latitude"
	colLongitude     = "longitude"
	colTime          = "time"
	colTemperature   = "temperature_2m"
	colWindSpeed     = "wind_speed_10m"
	colPrecipitation = "precipitation"
	colSnowfall      = "snowfall"
)

var timeLayouts = []string{
	"2006-01-02T15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// RowError describes a rejected input row.
type RowError struct {
	Row    int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// header maps column names to positions.
type header map[string]int

func readHeader(r *csv.Reader, required ...string) (header, error) {
	names, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	h := make(header, len(names))
	for i, n := range names {
		h[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(n, "\uFEFF")))] = i
	}
	for _, col := range required {
		if _, ok := h[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return h, nil
}

func (h header) get(rec []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (h header) float(rec []string, col string) (float64, error) {
	s := h.get(rec, col)
	if s == "" {
		return 0, fmt.Errorf("%s is empty", col)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%s is not numeric: %q", col, s)
	}
	return v, nil
}

// floatOrZero treats an empty cell as zero.
func (h header) floatOrZero(rec []string, col string) (float64, error) {
	if h.get(rec, col) == "" {
		return 0, nil
	}
	return h.float(rec, col)
}

// ReadRoutesCSV parses a route table. Malformed rows are skipped with a
// warning and counted; only structural problems return an error.
func ReadRoutesCSV(r io.Reader, logger zerolog.Logger) ([]route.Route, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	h, err := readHeader(cr, colName, colMassif, colLat, colLon, colDenivele, colExposition, colDifficulty)
	if err != nil {
		return nil, 0, err
	}

	var (
		routes  []route.Route
		skipped int
	)
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("reading routes: %w", err)
		}

		rt, err := parseRoute(h, rec, row)
		if err != nil {
			logger.Warn().Int("row", row).Err(err).Msg("skipping malformed route row")
			skipped++
			continue
		}
		routes = append(routes, rt)
	}

	return routes, skipped, nil
}

func parseRoute(h header, rec []string, row int) (route.Route, error) {
	rt := route.Route{
		ID:        h.get(rec, colID),
		Name:      h.get(rec, colName),
		SourceURL: h.get(rec, colURL),
		Massif:    avalanche.NormalizeMassif(h.get(rec, colMassif)),
	}
	if rt.ID == "" {
		rt.ID = fmt.Sprintf("route-%d", row)
	}

	var err error
	if rt.Lat, err = h.float(rec, colLat); err != nil {
		return rt, &RowError{Row: row, Reason: err.Error()}
	}
	if rt.Lon, err = h.float(rec, colLon); err != nil {
		return rt, &RowError{Row: row, Reason: err.Error()}
	}
	if rt.ElevationGain, err = h.float(rec, colDenivele); err != nil {
		return rt, &RowError{Row: row, Reason: err.Error()}
	}
	if rt.SummitAltitude, err = h.floatOrZero(rec, colAltitude); err != nil {
		return rt, &RowError{Row: row, Reason: err.Error()}
	}
	if rt.Grade, err = route.ParseGrade(h.get(rec, colDifficulty)); err != nil {
		return rt, &RowError{Row: row, Reason: err.Error()}
	}

	// An unrecognized exposition is scored as unknown rather than rejected.
	rt.Aspect, _ = route.ParseAspect(h.get(rec, colExposition))

	if err := rt.Validate(); err != nil {
		return rt, &RowError{Row: row, Reason: err.Error()}
	}
	return rt, nil
}

// ReadWeatherCSV parses a long-format weather grid (one row per point and
// hour) and groups rows into points in first-seen order.
func ReadWeatherCSV(r io.Reader, logger zerolog.Logger) ([]weather.GridPoint, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	h, err := readHeader(cr, colLatitude, colLongitude, colTime, colTemperature, colWindSpeed, colPrecipitation, colSnowfall)
	if err != nil {
		return nil, 0, err
	}

	type key struct{ lat, lon float64 }
	var (
		points  []weather.GridPoint
		index   = make(map[key]int)
		skipped int
	)

	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("reading weather: %w", err)
		}

		lat, lon, rd, err := parseWeatherRow(h, rec)
		if err != nil {
			logger.Debug().Int("row", row).Err(err).Msg("skipping malformed weather row")
			skipped++
			continue
		}

		k := key{lat, lon}
		i, ok := index[k]
		if !ok {
			i = len(points)
			index[k] = i
			points = append(points, weather.GridPoint{Lat: lat, Lon: lon})
		}
		points[i].Records = append(points[i].Records, rd)
	}

	if skipped > 0 {
		logger.Warn().Int("skipped", skipped).Msg("skipped malformed weather rows")
	}
	if len(points) == 0 {
		return nil, skipped, ErrEmptyDataset
	}
	return points, skipped, nil
}

func parseWeatherRow(h header, rec []string) (lat, lon float64, rd weather.Record, err error) {
	if lat, err = h.float(rec, colLatitude); err != nil {
		return
	}
	if lon, err = h.float(rec, colLongitude); err != nil {
		return
	}
	if rd.Time, err = parseTime(h.get(rec, colTime)); err != nil {
		return
	}
	if rd.Temperature, err = h.float(rec, colTemperature); err != nil {
		return
	}
	if rd.WindSpeed, err = h.float(rec, colWindSpeed); err != nil {
		return
	}
	if rd.Precipitation, err = h.floatOrZero(rec, colPrecipitation); err != nil {
		return
	}
	rd.Snowfall, err = h.floatOrZero(rec, colSnowfall)
	return
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
