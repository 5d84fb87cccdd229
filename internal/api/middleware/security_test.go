package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/skitourlive/skitourlive/internal/api/middleware"
)

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.SecurityHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=31536000")
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestRequireTLS(t *testing.T) {
	enabled := middleware.RequireTLS(true)(okHandler())
	disabled := middleware.RequireTLS(false)(okHandler())

	assert.Equal(t, http.StatusForbidden, doFrom(enabled, "1.2.3.4:1", "/v1/scores", "X-Forwarded-Proto", "http").Code)
	assert.Equal(t, http.StatusOK, doFrom(enabled, "1.2.3.4:1", "/v1/scores", "X-Forwarded-Proto", "https").Code)
	assert.Equal(t, http.StatusOK, doFrom(enabled, "1.2.3.4:1", "/v1/scores").Code)
	assert.Equal(t, http.StatusOK, doFrom(disabled, "1.2.3.4:1", "/v1/scores", "X-Forwarded-Proto", "http").Code)
}

func TestRequireJSON(t *testing.T) {
	h := middleware.RequireJSON(okHandler())

	req := httptest.NewRequest(http.MethodPut, "/v1/admin/feature-flags", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported-media-type")

	req = httptest.NewRequest(http.MethodPut, "/v1/admin/feature-flags", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecovery(t *testing.T) {
	h := middleware.RequestID(middleware.Recovery(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/scores", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "an unexpected error occurred")
	assert.Contains(t, rec.Body.String(), rec.Header().Get("X-Request-Id"))
}
