// Package route defines the ski-touring route reference data.
package route

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sentinel errors for route parsing and validation.
var (
	ErrInvalidGrade  = errors.New("invalid difficulty grade")
	ErrInvalidAspect = errors.New("invalid aspect")
)

// Aspect is the compass octant a route's main slope faces.
type Aspect string

// Aspect values.
const (
	AspectN       Aspect = "N"
	AspectNE      Aspect = "NE"
	AspectE       Aspect = "E"
	AspectSE      Aspect = "SE"
	AspectS       Aspect = "S"
	AspectSW      Aspect = "SW"
	AspectW       Aspect = "W"
	AspectNW      Aspect = "NW"
	AspectUnknown Aspect = ""
)

// Topo sources use French octant codes for the western half of the rose.
var aspectAliases = map[string]Aspect{
	"N":  AspectN,
	"NE": AspectNE,
	"E":  AspectE,
	"SE": AspectSE,
	"S":  AspectS,
	"SW": AspectSW,
	"SO": AspectSW,
	"W":  AspectW,
	"O":  AspectW,
	"NW": AspectNW,
	"NO": AspectNW,
}

// ParseAspect parses an octant code. Blank input yields AspectUnknown without error.
func ParseAspect(s string) (Aspect, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || s == "?" {
		return AspectUnknown, nil
	}
	if a, ok := aspectAliases[s]; ok {
		return a, nil
	}
	return AspectUnknown, fmt.Errorf("%w: %q", ErrInvalidAspect, s)
}

// String returns the octant code, or "unknown".
func (a Aspect) String() string {
	if a == AspectUnknown {
		return "unknown"
	}
	return string(a)
}

// Grade is the ordinal ski difficulty, S1 (easiest) to S5.
type Grade int

// Grade values.
const (
	GradeUnknown Grade = 0
	GradeS1      Grade = 1
	GradeS2      Grade = 2
	GradeS3      Grade = 3
	GradeS4      Grade = 4
	GradeS5      Grade = 5
)

// ParseGrade accepts "S3", "s3", "3" and the topo sub-grade form "3.2".
func ParseGrade(s string) (Grade, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "S")
	if s == "" {
		return GradeUnknown, fmt.Errorf("%w: empty", ErrInvalidGrade)
	}

	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return GradeUnknown, fmt.Errorf("%w: %q", ErrInvalidGrade, s)
	}

	g := Grade(n)
	if !g.Valid() {
		return GradeUnknown, fmt.Errorf("%w: %d out of range", ErrInvalidGrade, n)
	}
	return g, nil
}

// Valid reports whether g is in S1..S5.
func (g Grade) Valid() bool {
	return g >= GradeS1 && g <= GradeS5
}

// Steep reports whether the grade is at or above the steep-terrain threshold (S4).
func (g Grade) Steep() bool {
	return g >= GradeS4
}

func (g Grade) String() string {
	if !g.Valid() {
		return "unknown"
	}
	return "S" + strconv.Itoa(int(g))
}

// Route is an immutable ski-touring route record.
type Route struct {
	ID        string
	Name      string
	SourceURL string

	// Massif is the normalized (trimmed, uppercased) massif key.
	Massif string

	Lat float64
	Lon float64

	// ElevationGain is the cumulative positive elevation gain (D+) in meters.
	ElevationGain float64

	// SummitAltitude in meters, 0 when unknown.
	SummitAltitude float64

	Aspect Aspect
	Grade  Grade
}

// ValidationError describes why a route record was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid route %s: %s", e.Field, e.Reason)
}

// Validate checks the numeric and ordinal fields required for scoring.
func (r Route) Validate() error {
	if math.IsNaN(r.Lat) || r.Lat < -90 || r.Lat > 90 {
		return &ValidationError{Field: "lat", Reason: "out of range"}
	}
	if math.IsNaN(r.Lon) || r.Lon < -180 || r.Lon > 180 {
		return &ValidationError{Field: "lon", Reason: "out of range"}
	}
	if math.IsNaN(r.ElevationGain) || r.ElevationGain <= 0 {
		return &ValidationError{Field: "elevation_gain", Reason: "must be positive"}
	}
	if !r.Grade.Valid() {
		return &ValidationError{Field: "grade", Reason: "must be S1..S5"}
	}
	return nil
}
