package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/skitourlive/skitourlive/internal/api/models"
	"github.com/skitourlive/skitourlive/internal/api/response"
	"github.com/skitourlive/skitourlive/internal/avalanche"
	"github.com/skitourlive/skitourlive/internal/dataset"
	"github.com/skitourlive/skitourlive/internal/featureflags"
	"github.com/skitourlive/skitourlive/internal/route"
	"github.com/skitourlive/skitourlive/internal/scoring"
)

// Default elevation gain window when the caller gives none.
const (
	DefaultDplusMin = 800
	DefaultDplusMax = 1500
)

// scoresMaxAge is how long clients may cache a ranking. Rankings only
// change when the dataset is reloaded.
const scoresMaxAge = time.Minute

// ScoresHandlerConfig holds dependencies shared by the scoring handlers.
type ScoresHandlerConfig struct {
	Sessions Sessions
	Engine   *scoring.Engine
	Flags    *featureflags.Service
	Clock    clockwork.Clock
	Logger   zerolog.Logger
}

// ScoresHandler handles route ranking and per-route snow and condition endpoints.
type ScoresHandler struct {
	sessions Sessions
	engine   *scoring.Engine
	flags    *featureflags.Service
	clock    clockwork.Clock
	logger   zerolog.Logger
}

// NewScoresHandler creates a new ScoresHandler.
func NewScoresHandler(cfg ScoresHandlerConfig) *ScoresHandler {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ScoresHandler{
		sessions: cfg.Sessions,
		engine:   cfg.Engine,
		flags:    cfg.Flags,
		clock:    clock,
		logger:   cfg.Logger,
	}
}

// scoringContext applies runtime flags to the session's scoring context.
func (h *ScoresHandler) scoringContext(ctx context.Context, s *dataset.Session) *scoring.Context {
	if h.flags.IsMLModelDisabled(ctx) {
		return s.Context.WithModel(nil)
	}
	return s.Context
}

// ListScores handles GET /v1/scores - rank routes for a date and user profile.
func (h *ScoresHandler) ListScores(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	date, dateErr := parseDate(r, h.clock)
	dplusMin, minErr := parseFloat(r, "dplusMin", DefaultDplusMin)
	dplusMax, maxErr := parseFloat(r, "dplusMax", DefaultDplusMax)
	limit, limitErr := parseInt(r, "limit", 0)

	var levelErr *models.FieldError
	level, err := route.ParseGrade(q.Get("level"))
	if err != nil {
		levelErr = &models.FieldError{Field: "level", Message: "must be one of S1..S5", Code: "invalid_value"}
	}

	if errs := fieldErrors(dateErr, minErr, maxErr, limitErr, levelErr); len(errs) > 0 {
		response.BadRequest(w, r, "invalid query parameters", errs)
		return
	}

	query := scoring.Query{
		Date:        date,
		UserLevel:   level,
		Dplus:       scoring.DplusRange{Min: dplusMin, Max: dplusMax},
		Concurrency: h.flags.ScoringConcurrency(r.Context()),
	}
	if err := query.Validate(); err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "dplusMin", Message: "must be positive and not above dplusMax", Code: "invalid_range"},
		})
		return
	}

	s, ok := currentSession(w, r, h.sessions)
	if !ok {
		return
	}

	routes := s.Context.Routes
	if massif := q.Get("massif"); massif != "" {
		routes = filterMassif(routes, avalanche.NormalizeMassif(massif))
	}

	batch, err := h.engine.ScoreRoutes(r.Context(), h.scoringContext(r.Context(), s), routes, query)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Error().Err(err).Msg("scoring batch failed")
		response.InternalError(w, r, "scoring failed")
		return
	}

	items := batch.Results
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	resp := models.ScoresResponse{
		Date:      models.Date(date),
		UserLevel: level.String(),
		DplusMin:  dplusMin,
		DplusMax:  dplusMax,
		Total:     len(batch.Results),
		Items:     make([]models.RouteScore, len(items)),
		Skipped:   batch.Skipped,
	}
	for i, res := range items {
		resp.Items[i] = models.NewRouteScore(i+1, res)
	}

	response.CachedJSON(w, r, scoresMaxAge, resp)
}

// GetSnowQuality handles GET /v1/routes/{routeId}/snow - hybrid snow quality for a route.
func (h *ScoresHandler) GetSnowQuality(w http.ResponseWriter, r *http.Request) {
	s, rt, date, ok := h.routeRequest(w, r)
	if !ok {
		return
	}

	sq := h.engine.HybridSnowQuality(r.Context(), h.scoringContext(r.Context(), s), rt, date)
	response.CachedJSON(w, r, scoresMaxAge, models.NewSnowQualityResponse(rt.ID, models.Date(date), sq))
}

// GetConditions handles GET /v1/routes/{routeId}/conditions - weather and danger diagnostics.
func (h *ScoresHandler) GetConditions(w http.ResponseWriter, r *http.Request) {
	s, rt, date, ok := h.routeRequest(w, r)
	if !ok {
		return
	}

	response.JSON(w, r, http.StatusOK, h.engine.Conditions(s.Context, rt, date))
}

// ListMassifs handles GET /v1/massifs - avalanche risk per massif. Massifs of
// the loaded routes come first, then bulletin-only massifs.
func (h *ScoresHandler) ListMassifs(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions)
	if !ok {
		return
	}

	counts := make(map[string]int)
	for _, rt := range s.Context.Routes {
		counts[rt.Massif]++
	}

	list := models.MassifList{
		DefaultRisk: avalanche.DefaultRisk,
		Items:       []models.MassifRisk{},
	}
	massifs := s.Context.Massifs()
	for _, b := range s.Context.Avalanche.Bulletins() {
		if _, seen := counts[b.Massif]; !seen {
			massifs = append(massifs, b.Massif)
			counts[b.Massif] = 0
		}
	}

	for _, m := range massifs {
		item := models.MassifRisk{
			Massif: m,
			Risk:   s.Context.Avalanche.Risk(m),
			Routes: counts[m],
		}
		if b, found := s.Context.Avalanche.Lookup(m); found {
			item.Level = b.Level
			item.NextDayLevel = b.NextDayLevel
			item.Summary = b.Summary
			if !b.ValidAt.IsZero() {
				ts := models.Timestamp(b.ValidAt)
				item.ValidAt = &ts
			}
		}
		list.Items = append(list.Items, item)
	}

	response.JSON(w, r, http.StatusOK, list)
}

// routeRequest resolves the session, the {routeId} route and the date.
func (h *ScoresHandler) routeRequest(w http.ResponseWriter, r *http.Request) (*dataset.Session, route.Route, time.Time, bool) {
	date, dateErr := parseDate(r, h.clock)
	if dateErr != nil {
		response.BadRequest(w, r, "invalid query parameters", fieldErrors(dateErr))
		return nil, route.Route{}, time.Time{}, false
	}

	s, ok := currentSession(w, r, h.sessions)
	if !ok {
		return nil, route.Route{}, time.Time{}, false
	}

	id := chi.URLParam(r, "routeId")
	rt, err := s.Context.RouteByID(id)
	if err != nil {
		routeNotFound(w, r, id)
		return nil, route.Route{}, time.Time{}, false
	}
	return s, rt, date, true
}

func filterMassif(routes []route.Route, massif string) []route.Route {
	var out []route.Route
	for _, rt := range routes {
		if strings.EqualFold(rt.Massif, massif) {
			out = append(out, rt)
		}
	}
	return out
}
