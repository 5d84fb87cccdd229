// Package handler provides HTTP handlers for the ski touring scoring API.
package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/skitourlive/skitourlive/internal/api/models"
	"github.com/skitourlive/skitourlive/internal/api/response"
	"github.com/skitourlive/skitourlive/internal/dataset"
)

// notReadyRetryAfter is sent with 503s while no dataset session is loaded.
const notReadyRetryAfter = 30 * time.Second

// Sessions provides the active dataset session.
type Sessions interface {
	Current() (*dataset.Session, error)
	Ready() bool
}

var _ Sessions = (*dataset.Holder)(nil)

// currentSession returns the active session or writes a 503.
func currentSession(w http.ResponseWriter, r *http.Request, sessions Sessions) (*dataset.Session, bool) {
	s, err := sessions.Current()
	if err != nil {
		response.ServiceUnavailable(w, r, "dataset not loaded yet", notReadyRetryAfter)
		return nil, false
	}
	return s, true
}

// parseDate reads the date query parameter. A missing date means today
// in UTC according to clock.
func parseDate(r *http.Request, clock clockwork.Clock) (time.Time, *models.FieldError) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		now := clock.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, &models.FieldError{Field: "date", Message: "must be YYYY-MM-DD", Code: "invalid_format"}
	}
	return d, nil
}

// parseFloat reads an optional float query parameter.
func parseFloat(r *http.Request, name string, def float64) (float64, *models.FieldError) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &models.FieldError{Field: name, Message: "must be a number", Code: "invalid_format"}
	}
	return v, nil
}

// parseInt reads an optional non-negative int query parameter.
func parseInt(r *http.Request, name string, def int) (int, *models.FieldError) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, &models.FieldError{Field: name, Message: "must be a non-negative integer", Code: "invalid_format"}
	}
	return v, nil
}

// fieldErrors drops nil entries.
func fieldErrors(errs ...*models.FieldError) []models.FieldError {
	var out []models.FieldError
	for _, e := range errs {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out
}

func datasetStatus(st dataset.Stats) models.DatasetStatus {
	return models.DatasetStatus{
		Routes:      st.Routes,
		GridPoints:  st.GridPoints,
		Bulletins:   st.Bulletins,
		Neighbors:   st.Neighbors,
		ModelLoaded: st.ModelLoaded,
		FirstDay:    st.FirstDay,
		LastDay:     st.LastDay,
		LoadedAt:    models.Timestamp(st.LoadedAt),
	}
}

func routeNotFound(w http.ResponseWriter, r *http.Request, id string) {
	response.NotFound(w, r, fmt.Sprintf("route %q not found", id))
}
