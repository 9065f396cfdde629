package processing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hemolink/platform/pkg/auth"
	"github.com/hemolink/platform/pkg/common/logger"
	"github.com/hemolink/platform/pkg/inventory"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/processing/components", h.split).Methods(http.MethodPost)
	r.HandleFunc("/processing/whole-blood/{ref}/release", h.releaseWholeBlood).Methods(http.MethodPost)
	r.HandleFunc("/processing/batches/{id}", h.batch).Methods(http.MethodGet)
}

func (h *Handler) split(w http.ResponseWriter, r *http.Request) {
	var req SplitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UnitRef == "" {
		writeError(w, http.StatusBadRequest, "unit_id is required")
		return
	}
	result, err := h.service.Split(r.Context(), auth.UserFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) releaseWholeBlood(w http.ResponseWriter, r *http.Request) {
	unit, err := h.service.ReleaseWholeBlood(r.Context(), auth.UserFrom(r.Context()), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, unit)
}

func (h *Handler) batch(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["id"]
	components, err := h.service.Batch(r.Context(), batchID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"batch_id":   batchID,
		"components": components,
		"total":      len(components),
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var state *inventory.StateError
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		writeError(w, http.StatusNotFound, "Unit not found")
	case errors.Is(err, ErrUnitNotScreened),
		errors.Is(err, ErrNoComponents),
		errors.Is(err, ErrUnknownComponent),
		errors.Is(err, ErrVolumeExceeded):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &state):
		writeError(w, http.StatusBadRequest, state.Error())
	default:
		logger.Log.WithError(err).Error("processing request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
