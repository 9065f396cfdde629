package lab

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
	r.HandleFunc("/lab-tests", h.record).Methods(http.MethodPost)
	r.HandleFunc("/lab-tests", h.list).Methods(http.MethodGet)
	r.HandleFunc("/lab-tests/unit/{ref}", h.listForUnit).Methods(http.MethodGet)
	r.HandleFunc("/lab-tests/{id}", h.get).Methods(http.MethodGet)
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req RecordTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UnitRef == "" {
		writeError(w, http.StatusBadRequest, "unit_id is required")
		return
	}
	test, err := h.service.RecordTest(r.Context(), auth.UserFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, test)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tests, err := h.service.List(r.Context(), r.URL.Query().Get("result"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tests": tests, "total": len(tests)})
}

func (h *Handler) listForUnit(w http.ResponseWriter, r *http.Request) {
	tests, err := h.service.ListForUnit(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tests": tests, "total": len(tests)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lab test id")
		return
	}
	test, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, test)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var state *inventory.StateError
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Lab test not found")
	case errors.Is(err, inventory.ErrNotFound):
		writeError(w, http.StatusNotFound, "Unit not found")
	case errors.Is(err, ErrInvalidResult), errors.Is(err, ErrVerificationRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &state):
		writeError(w, http.StatusBadRequest, state.Error())
	default:
		logger.Log.WithError(err).Error("lab request failed")
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
