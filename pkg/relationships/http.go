package relationships

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

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
	r.HandleFunc("/relationships/unit/{ref}", h.unitTree).Methods(http.MethodGet)
	r.HandleFunc("/relationships/component/{ref}", h.componentFamily).Methods(http.MethodGet)
	r.HandleFunc("/relationships/tree/{ref}", h.tree).Methods(http.MethodGet)
	r.HandleFunc("/relationships/batch", h.batch).Methods(http.MethodPost)
}

func (h *Handler) unitTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.UnitTree(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (h *Handler) componentFamily(w http.ResponseWriter, r *http.Request) {
	family, err := h.service.ComponentFamily(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, family)
}

func (h *Handler) tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.Resolve(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (h *Handler) batch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Refs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}
	entries := h.service.ResolveBatch(r.Context(), req.Refs)
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": entries, "total": len(entries)})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		writeError(w, http.StatusNotFound, "Item not found")
	default:
		logger.Log.WithError(err).Error("relationship request failed")
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
