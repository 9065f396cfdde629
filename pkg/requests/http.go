package requests

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

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
	r.HandleFunc("/requests", h.createRequest).Methods(http.MethodPost)
	r.HandleFunc("/requests", h.listRequests).Methods(http.MethodGet)
	r.HandleFunc("/requests/{ref}", h.getRequest).Methods(http.MethodGet)
	r.HandleFunc("/requests/{ref}/approve", h.approve).Methods(http.MethodPost)
	r.HandleFunc("/requests/{ref}/candidates", h.candidates).Methods(http.MethodGet)

	r.HandleFunc("/issuances", h.createIssuance).Methods(http.MethodPost)
	r.HandleFunc("/issuances", h.listIssuances).Methods(http.MethodGet)
	r.HandleFunc("/issuances/{ref}", h.getIssuance).Methods(http.MethodGet)
	r.HandleFunc("/issuances/{ref}/status", h.progress).Methods(http.MethodPost)
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RequesterName == "" || req.BloodGroup == "" || req.ProductType == "" || req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "requester_name, blood_group, product_type and a positive quantity are required")
		return
	}
	request, err := h.service.CreateRequest(r.Context(), auth.UserFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	requests, err := h.service.ListRequests(r.Context(),
		models.RequestStatus(q.Get("status")), models.RequestType(q.Get("request_type")))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": requests, "total": len(requests)})
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	request, err := h.service.GetRequest(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	request, err := h.service.Approve(r.Context(), auth.UserFrom(r.Context()), mux.Vars(r)["ref"], req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func (h *Handler) candidates(w http.ResponseWriter, r *http.Request) {
	limit := 25
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	request, views, err := h.service.Candidates(r.Context(), mux.Vars(r)["ref"], limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"request":    request,
		"candidates": views,
		"total":      len(views),
	})
}

func (h *Handler) createIssuance(w http.ResponseWriter, r *http.Request) {
	var req CreateIssuanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RequestRef == "" || len(req.ComponentRefs) == 0 {
		writeError(w, http.StatusBadRequest, "request_id and component_ids are required")
		return
	}
	issuance, err := h.service.CreateIssuance(r.Context(), auth.UserFrom(r.Context()), req)
	if err != nil {
		var unavailable *UnavailableError
		if errors.As(err, &unavailable) {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":  "components unavailable",
				"failed": unavailable.Failed,
			})
			return
		}
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, issuance)
}

func (h *Handler) listIssuances(w http.ResponseWriter, r *http.Request) {
	issuances, err := h.service.ListIssuances(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"issuances": issuances, "total": len(issuances)})
}

func (h *Handler) getIssuance(w http.ResponseWriter, r *http.Request) {
	issuance, err := h.service.GetIssuance(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issuance)
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	var req ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	issuance, err := h.service.Progress(r.Context(), auth.UserFrom(r.Context()), mux.Vars(r)["ref"], req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issuance)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var state *inventory.StateError
	switch {
	case errors.Is(err, ErrRequestNotFound):
		writeError(w, http.StatusNotFound, "Blood request not found")
	case errors.Is(err, ErrIssuanceNotFound):
		writeError(w, http.StatusNotFound, "Issuance not found")
	case errors.Is(err, inventory.ErrNotFound):
		writeError(w, http.StatusNotFound, "Item not found")
	case errors.Is(err, ErrRequestNotApproved):
		writeError(w, http.StatusBadRequest, "Request must be approved first")
	case errors.Is(err, ErrBadRequestState):
		writeError(w, http.StatusConflict, "Request is not in the required state")
	case errors.Is(err, ErrBadProgression):
		writeError(w, http.StatusBadRequest, "Issuance cannot skip pipeline stages")
	case errors.As(err, &state):
		writeError(w, http.StatusBadRequest, state.Error())
	default:
		logger.Log.WithError(err).Error("requests request failed")
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
