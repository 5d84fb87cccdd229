package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/skitourlive/skitourlive/internal/api/models"
	"github.com/skitourlive/skitourlive/internal/api/response"
	"github.com/skitourlive/skitourlive/internal/dataset"
)

// Reloader rebuilds and swaps the dataset session.
type Reloader interface {
	Reload(ctx context.Context) (*dataset.Session, error)
}

var _ Reloader = (*dataset.Holder)(nil)

// AdminHandler handles dataset administration endpoints.
type AdminHandler struct {
	reloader Reloader
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler. A zero timeout defaults to two minutes.
func NewAdminHandler(reloader Reloader, timeout time.Duration, logger zerolog.Logger) *AdminHandler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &AdminHandler{
		reloader: reloader,
		timeout:  timeout,
		logger:   logger,
	}
}

// Reload handles POST /v1/admin/reload - reload the dataset and swap it in.
// On failure the previous session keeps serving.
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	s, err := h.reloader.Reload(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("admin reload failed")
		response.ServiceUnavailable(w, r, "dataset reload failed, previous dataset still active", 0)
		return
	}

	response.JSON(w, r, http.StatusOK, models.ReloadResponse{
		Dataset:  datasetStatus(s.Stats),
		Duration: time.Since(start).Round(time.Millisecond).String(),
	})
}
