package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/skitourlive/skitourlive/internal/api/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doFrom(h http.Handler, ip, path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	req.RemoteAddr = ip
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP_BlocksOverLimit(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 3, WindowLength: time.Minute}
	h := middleware.RateLimitByIP(cfg)(okHandler())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doFrom(h, "10.0.0.1:1234", "/v1/scores").Code, "request %d", i+1)
	}

	rec := doFrom(h, "10.0.0.1:1234", "/v1/scores")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "too-many-requests")
	assert.Contains(t, rec.Body.String(), "/v1/scores")

	// Another client is unaffected.
	assert.Equal(t, http.StatusOK, doFrom(h, "10.0.0.2:1234", "/v1/scores").Code)
}

func TestRateLimitByIP_RetryAfterFollowsWindow(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 1, WindowLength: 10 * time.Second}
	h := middleware.RateLimitByIP(cfg)(okHandler())

	doFrom(h, "10.1.0.1:1", "/")
	rec := doFrom(h, "10.1.0.1:1", "/")
	assert.Equal(t, "10", rec.Header().Get("Retry-After"))
}

func TestRateLimitByPrincipal_SharesBudgetAcrossIPs(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 2, WindowLength: time.Minute}
	h := middleware.AdminToken("tok")(middleware.RateLimitByPrincipal(cfg)(okHandler()))

	auth := []string{"Authorization", "Bearer tok"}
	assert.Equal(t, http.StatusOK, doFrom(h, "192.0.2.1:1", "/", auth...).Code)
	assert.Equal(t, http.StatusOK, doFrom(h, "192.0.2.2:1", "/", auth...).Code)
	assert.Equal(t, http.StatusTooManyRequests, doFrom(h, "192.0.2.3:1", "/", auth...).Code)
}

func TestDefaultRateLimitConfigs(t *testing.T) {
	assert.Equal(t, 30, middleware.ScoringRateLimit.RequestLimit)
	assert.Equal(t, 100, middleware.StandardRateLimit.RequestLimit)
	assert.Equal(t, 10, middleware.AdminRateLimit.RequestLimit)
}
