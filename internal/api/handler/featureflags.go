package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/skitourlive/skitourlive/internal/api/models"
	"github.com/skitourlive/skitourlive/internal/api/response"
	"github.com/skitourlive/skitourlive/internal/featureflags"
)

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags - list all feature flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	flags := h.service.GetAllFlags(r.Context())

	list := featureflags.FlagList{Items: make([]featureflags.Flag, 0, len(flags))}
	for _, f := range flags {
		if f != nil {
			list.Items = append(list.Items, *f)
		}
	}
	sort.Slice(list.Items, func(i, j int) bool { return list.Items[i].Key < list.Items[j].Key })

	response.JSON(w, r, http.StatusOK, list)
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags - update feature flags.
// The whole batch is rejected if any update is invalid.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req featureflags.FlagUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if len(req.Updates) == 0 {
		response.BadRequest(w, r, "no updates provided", []models.FieldError{
			{Field: "updates", Message: "must contain at least one update", Code: "required"},
		})
		return
	}

	flags, err := h.service.ApplyUpdates(r.Context(), req)
	switch {
	case errors.Is(err, featureflags.ErrUnknownFlag), errors.Is(err, featureflags.ErrInvalidFlagValue):
		response.BadRequest(w, r, err.Error(), nil)
		return
	case err != nil:
		response.ServiceUnavailable(w, r, "feature flags could not be stored", 0)
		return
	}

	list := featureflags.FlagList{Items: make([]featureflags.Flag, 0, len(flags))}
	for _, f := range flags {
		list.Items = append(list.Items, *f)
	}
	response.JSON(w, r, http.StatusOK, list)
}

// ResetFeatureFlag handles DELETE /v1/admin/feature-flags/{key} - drop an
// override so the flag returns to its default.
func (h *FeatureFlagsHandler) ResetFeatureFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	flag, err := h.service.ResetFlag(r.Context(), key)
	switch {
	case errors.Is(err, featureflags.ErrUnknownFlag):
		response.NotFound(w, r, "unknown feature flag: "+key)
		return
	case errors.Is(err, featureflags.ErrFlagNotFound):
		response.NotFound(w, r, "feature flag has no override: "+key)
		return
	case err != nil:
		response.ServiceUnavailable(w, r, "feature flag could not be reset", 0)
		return
	}
	response.JSON(w, r, http.StatusOK, flag)
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate - drop cached flag values.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}
