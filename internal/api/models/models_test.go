package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skitourlive/skitourlive/internal/api/models"
	"github.com/skitourlive/skitourlive/internal/scoring"
	"github.com/skitourlive/skitourlive/internal/snow"
)

func TestProblem_Builders(t *testing.T) {
	p := models.NewProblem(
		models.ProblemTypeValidation,
		"Validation error",
		http.StatusBadRequest,
		"req_test123",
	).WithDetail("level is required").
		WithInstance("/v1/scores").
		WithErrors([]models.FieldError{{Field: "level", Message: "required", Code: "REQUIRED"}})

	assert.Equal(t, models.ProblemTypeValidation, p.Type)
	assert.Equal(t, http.StatusBadRequest, p.Status)
	assert.Equal(t, "level is required", p.Detail)
	assert.Equal(t, "/v1/scores", p.Instance)
	require.Len(t, p.Errors, 1)
	assert.Equal(t, "REQUIRED", p.Errors[0].Code)
}

func TestProblem_Write(t *testing.T) {
	p := models.NewServiceUnavailable("req_abc", "dataset not loaded")

	w := httptest.NewRecorder()
	p.Write(w)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_abc", w.Header().Get("X-Request-Id"))

	var body models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.ProblemTypeUnavailable, body.Type)
	assert.Equal(t, "dataset not loaded", body.Detail)
	assert.Empty(t, body.Errors)
}

func TestDate_JSON(t *testing.T) {
	d := models.Date(time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC))

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-02-14"`, string(data))

	var back models.Date
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, d.Time().Equal(back.Time()))

	assert.Error(t, json.Unmarshal([]byte(`"14/02/2026"`), &back))
}

func TestNewRouteScore(t *testing.T) {
	rs := models.NewRouteScore(2, scoring.ScoreResult{
		RouteID:       "belvedere",
		Name:          "Col du Belvedere",
		Massif:        "MONT-BLANC",
		FinalScore:    0.512,
		SnowQuality:   0.7,
		SeasonMode:    snow.ModeTransition,
		Confidence:    scoring.ConfidenceLow,
		DataAvailable: true,
	})

	assert.Equal(t, 2, rs.Rank)
	assert.Equal(t, "belvedere", rs.RouteID)
	assert.Equal(t, "transition", rs.SeasonMode)
	assert.Equal(t, "LOW", rs.Confidence)
	assert.True(t, rs.DataAvailable)
}

func TestNewStatusProblem(t *testing.T) {
	p := models.NewStatusProblem(http.StatusUnsupportedMediaType, "req_1", "Content-Type must be application/json")
	assert.Equal(t, models.ProblemTypeUnsupportedMedia, p.Type)
	assert.Equal(t, "Unsupported media type", p.Title)
	assert.Equal(t, "Content-Type must be application/json", p.Detail)

	p = models.NewStatusProblem(http.StatusTeapot, "req_2", "")
	assert.Equal(t, "about:blank", p.Type)
	assert.Equal(t, http.StatusText(http.StatusTeapot), p.Title)
}
