package models

import (
	"github.com/skitourlive/skitourlive/internal/scoring"
	"github.com/skitourlive/skitourlive/internal/weather"
)

// ScoresResponse is the ranked result of GET /v1/scores.
type ScoresResponse struct {
	Date      Date                   `json:"date"`
	UserLevel string                 `json:"userLevel"`
	DplusMin  float64                `json:"dplusMin"`
	DplusMax  float64                `json:"dplusMax"`
	Total     int                    `json:"total"`
	Items     []RouteScore           `json:"items"`
	Skipped   []scoring.SkippedRoute `json:"skipped,omitempty"`
}

// RouteScore is one ranked route.
type RouteScore struct {
	Rank          int                     `json:"rank"`
	RouteID       string                  `json:"routeId"`
	Name          string                  `json:"name"`
	Massif        string                  `json:"massif"`
	FinalScore    float64                 `json:"finalScore"`
	Danger        float64                 `json:"danger"`
	Fitness       float64                 `json:"fitness"`
	SnowQuality   float64                 `json:"snowQuality"`
	SeasonMode    string                  `json:"seasonMode"`
	Confidence    string                  `json:"confidence"`
	DataAvailable bool                    `json:"dataAvailable"`
	Breakdown     scoring.DangerBreakdown `json:"breakdown"`
}

// NewRouteScore maps an engine result to its API shape.
func NewRouteScore(rank int, r scoring.ScoreResult) RouteScore {
	return RouteScore{
		Rank:          rank,
		RouteID:       r.RouteID,
		Name:          r.Name,
		Massif:        r.Massif,
		FinalScore:    r.FinalScore,
		Danger:        r.Danger,
		Fitness:       r.Fitness,
		SnowQuality:   r.SnowQuality,
		SeasonMode:    string(r.SeasonMode),
		Confidence:    string(r.Confidence),
		DataAvailable: r.DataAvailable,
		Breakdown:     r.Breakdown,
	}
}

// SnowQualityResponse is the body of GET /v1/routes/{routeId}/snow.
type SnowQualityResponse struct {
	RouteID      string                `json:"routeId"`
	Date         Date                  `json:"date"`
	Score        float64               `json:"score"`
	SeasonMode   string                `json:"seasonMode"`
	WinterScore  float64               `json:"winterScore"`
	SpringScore  float64               `json:"springScore"`
	WinterSource string                `json:"winterSource"`
	Confidence   string                `json:"confidence"`
	Features     weather.FeatureVector `json:"features"`
}

// NewSnowQualityResponse maps a hybrid snow quality to its API shape.
func NewSnowQualityResponse(routeID string, date Date, sq scoring.SnowQuality) SnowQualityResponse {
	return SnowQualityResponse{
		RouteID:      routeID,
		Date:         date,
		Score:        sq.Score,
		SeasonMode:   string(sq.Mode),
		WinterScore:  sq.Winter,
		SpringScore:  sq.Spring,
		WinterSource: sq.WinterSource,
		Confidence:   string(sq.Confidence),
		Features:     sq.Features,
	}
}

// MassifRisk is one row of GET /v1/massifs.
type MassifRisk struct {
	Massif       string     `json:"massif"`
	Risk         float64    `json:"risk"`
	Level        int        `json:"level,omitempty"`
	NextDayLevel int        `json:"nextDayLevel,omitempty"`
	ValidAt      *Timestamp `json:"validAt,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	Routes       int        `json:"routes"`
}

// MassifList is the body of GET /v1/massifs.
type MassifList struct {
	DefaultRisk float64      `json:"defaultRisk"`
	Items       []MassifRisk `json:"items"`
}
