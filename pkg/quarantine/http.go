package quarantine

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
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
	r.HandleFunc("/quarantine", h.flag).Methods(http.MethodPost)
	r.HandleFunc("/quarantine", h.list).Methods(http.MethodGet)
	r.HandleFunc("/quarantine/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/quarantine/{id}/resolve", h.resolve).Methods(http.MethodPost)
}

func (h *Handler) flag(w http.ResponseWriter, r *http.Request) {
	var req FlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemRef == "" {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}
	record, err := h.service.Flag(r.Context(), auth.UserFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	pendingOnly := r.URL.Query().Get("include_resolved") != "true"
	records, err := h.service.List(r.Context(), pendingOnly)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records, "total": len(records)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid quarantine record id")
		return
	}
	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid quarantine record id")
		return
	}
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	record, err := h.service.Resolve(r.Context(), auth.UserFrom(r.Context()), id, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var state *inventory.StateError
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Quarantine record not found")
	case errors.Is(err, inventory.ErrNotFound):
		writeError(w, http.StatusNotFound, "Item not found")
	case errors.Is(err, ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "Insufficient permissions")
	case errors.Is(err, ErrAlreadyResolved):
		writeError(w, http.StatusConflict, "Quarantine record already resolved")
	case errors.Is(err, ErrInvalidDisposition):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &state):
		writeError(w, http.StatusBadRequest, state.Error())
	default:
		logger.Log.WithError(err).Error("quarantine request failed")
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
