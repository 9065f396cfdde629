package logistics

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hemolink/platform/pkg/auth"
	"github.com/hemolink/platform/pkg/common/logger"
	"github.com/hemolink/platform/pkg/requests"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/logistics/shipments", h.create).Methods(http.MethodPost)
	r.HandleFunc("/logistics/shipments", h.list).Methods(http.MethodGet)
	r.HandleFunc("/logistics/shipments/{ref}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/logistics/shipments/{ref}/tracking", h.addTracking).Methods(http.MethodPost)
	r.HandleFunc("/logistics/shipments/{ref}/temperature", h.addTemperature).Methods(http.MethodPost)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateShipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IssuanceRef == "" || req.Destination == "" {
		writeError(w, http.StatusBadRequest, "issuance_id and destination are required")
		return
	}
	shipment, err := h.service.Create(r.Context(), auth.UserFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, shipment)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	shipments, err := h.service.List(r.Context(), q.Get("status"), q.Get("destination"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"shipments": shipments, "total": len(shipments)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	shipment, err := h.service.Get(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

func (h *Handler) addTracking(w http.ResponseWriter, r *http.Request) {
	var req TrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Location == "" {
		writeError(w, http.StatusBadRequest, "location is required")
		return
	}
	shipment, err := h.service.AddTracking(r.Context(), auth.UserFrom(r.Context()), mux.Vars(r)["ref"], req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

func (h *Handler) addTemperature(w http.ResponseWriter, r *http.Request) {
	var req TemperatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	shipment, err := h.service.AddTemperature(r.Context(), auth.UserFrom(r.Context()), mux.Vars(r)["ref"], req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Shipment not found")
	case errors.Is(err, requests.ErrIssuanceNotFound):
		writeError(w, http.StatusNotFound, "Issuance not found")
	case errors.Is(err, ErrIssuanceNotShipped):
		writeError(w, http.StatusBadRequest, "Issuance must be shipped before creating a shipment")
	case errors.Is(err, ErrInvalidTransport):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Log.WithError(err).Error("logistics request failed")
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
