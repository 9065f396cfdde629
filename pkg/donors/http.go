package donors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hemolink/platform/pkg/auth"
	"github.com/hemolink/platform/pkg/common/logger"
	"github.com/hemolink/platform/pkg/common/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/donors", h.register).Methods(http.MethodPost)
	r.HandleFunc("/donors", h.list).Methods(http.MethodGet)
	r.HandleFunc("/donors/{ref}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/donors/{ref}", h.update).Methods(http.MethodPut)
	r.HandleFunc("/donors/{ref}/defer", h.deferDonor).Methods(http.MethodPost)
	r.HandleFunc("/donors/{ref}/reinstate", h.reinstate).Methods(http.MethodPost)
	r.HandleFunc("/donors/{ref}/donations", h.donations).Methods(http.MethodGet)
	r.HandleFunc("/donations", h.collect).Methods(http.MethodPost)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FullName == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "full_name and phone are required")
		return
	}
	donor, err := h.service.Register(r.Context(), auth.UserFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, donor)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	donors, err := h.service.List(r.Context(),
		models.DonorStatus(q.Get("status")),
		models.BloodGroup(q.Get("blood_group")),
		q.Get("q"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"donors": donors, "total": len(donors)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	donor, err := h.service.Get(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, donor)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	donor, err := h.service.Update(r.Context(), mux.Vars(r)["ref"], req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, donor)
}

func (h *Handler) deferDonor(w http.ResponseWriter, r *http.Request) {
	var req DeferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}
	donor, err := h.service.Defer(r.Context(), auth.UserFrom(r.Context()), mux.Vars(r)["ref"], req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, donor)
}

func (h *Handler) reinstate(w http.ResponseWriter, r *http.Request) {
	donor, err := h.service.Reinstate(r.Context(), auth.UserFrom(r.Context()), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, donor)
}

func (h *Handler) donations(w http.ResponseWriter, r *http.Request) {
	donor, donations, err := h.service.Donations(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"donor":     donor,
		"donations": donations,
		"total":     len(donations),
	})
}

func (h *Handler) collect(w http.ResponseWriter, r *http.Request) {
	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DonorRef == "" || req.VolumeML <= 0 {
		writeError(w, http.StatusBadRequest, "donor_id and a positive volume_collected are required")
		return
	}
	result, err := h.service.Collect(r.Context(), auth.UserFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Donor not found")
	case errors.Is(err, ErrConsentRequired):
		writeError(w, http.StatusBadRequest, "Donor consent is required")
	case errors.Is(err, ErrDonorDeferred):
		writeError(w, http.StatusBadRequest, "Donor is currently deferred")
	case errors.Is(err, ErrNotEligibleYet):
		writeError(w, http.StatusBadRequest, "Donor is not yet eligible to donate again")
	default:
		logger.Log.WithError(err).Error("donor request failed")
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
