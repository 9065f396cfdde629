package disposition

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hemolink/platform/pkg/auth"
	"github.com/hemolink/platform/pkg/common/logger"
	"github.com/hemolink/platform/pkg/common/models"
	"github.com/hemolink/platform/pkg/inventory"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/returns", h.createReturn).Methods(http.MethodPost)
	r.HandleFunc("/returns", h.listReturns).Methods(http.MethodGet)
	r.HandleFunc("/returns/{ref}", h.getReturn).Methods(http.MethodGet)
	r.HandleFunc("/returns/{ref}/process", h.processReturn).Methods(http.MethodPost)

	r.HandleFunc("/discards", h.createDiscard).Methods(http.MethodPost)
	r.HandleFunc("/discards", h.listDiscards).Methods(http.MethodGet)
	r.HandleFunc("/discards/{ref}", h.getDiscard).Methods(http.MethodGet)
	r.HandleFunc("/discards/{ref}/destroy", h.markDestroyed).Methods(http.MethodPost)
}

func (h *Handler) createReturn(w http.ResponseWriter, r *http.Request) {
	var req CreateReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ComponentRef == "" || req.Reason == "" {
		writeError(w, http.StatusBadRequest, "component_id and reason are required")
		return
	}
	record, err := h.service.CreateReturn(r.Context(), auth.UserFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) listReturns(w http.ResponseWriter, r *http.Request) {
	pendingOnly := r.URL.Query().Get("include_processed") != "true"
	records, err := h.service.ListReturns(r.Context(), pendingOnly)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"returns": records, "total": len(records)})
}

func (h *Handler) getReturn(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.GetReturn(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) processReturn(w http.ResponseWriter, r *http.Request) {
	var req ProcessReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	record, err := h.service.ProcessReturn(r.Context(), auth.UserFrom(r.Context()), mux.Vars(r)["ref"], req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) createDiscard(w http.ResponseWriter, r *http.Request) {
	var req CreateDiscardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ComponentRef == "" || req.Reason == "" {
		writeError(w, http.StatusBadRequest, "component_id and reason are required")
		return
	}
	record, err := h.service.CreateDiscard(r.Context(), auth.UserFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) listDiscards(w http.ResponseWriter, r *http.Request) {
	reason := models.DiscardReason(r.URL.Query().Get("reason"))
	records, err := h.service.ListDiscards(r.Context(), reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"discards": records, "total": len(records)})
}

func (h *Handler) getDiscard(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.GetDiscard(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) markDestroyed(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.MarkDestroyed(r.Context(), auth.UserFrom(r.Context()), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var state *inventory.StateError
	switch {
	case errors.Is(err, ErrReturnNotFound):
		writeError(w, http.StatusNotFound, "Return record not found")
	case errors.Is(err, ErrDiscardNotFound):
		writeError(w, http.StatusNotFound, "Discard record not found")
	case errors.Is(err, inventory.ErrNotFound):
		writeError(w, http.StatusNotFound, "Item not found")
	case errors.Is(err, ErrAlreadyProcessed):
		writeError(w, http.StatusConflict, "Return already processed")
	case errors.Is(err, ErrAlreadyDestroyed):
		writeError(w, http.StatusConflict, "Discard already destroyed")
	case errors.Is(err, ErrInvalidDecision):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &state):
		writeError(w, http.StatusBadRequest, state.Error())
	default:
		logger.Log.WithError(err).Error("disposition request failed")
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
