package inventory

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

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
	r.HandleFunc("/inventory-enhanced/dashboard/by-storage", h.dashboardByStorage).Methods(http.MethodGet)
	r.HandleFunc("/inventory-enhanced/dashboard/by-blood-group", h.dashboardByBloodGroup).Methods(http.MethodGet)
	r.HandleFunc("/inventory-enhanced/dashboard/by-component-type", h.dashboardByComponentType).Methods(http.MethodGet)
	r.HandleFunc("/inventory-enhanced/dashboard/by-expiry", h.dashboardByExpiry).Methods(http.MethodGet)
	r.HandleFunc("/inventory-enhanced/dashboard/by-status", h.dashboardByStatus).Methods(http.MethodGet)

	r.HandleFunc("/inventory-enhanced/storage", h.listStorages).Methods(http.MethodGet)
	r.HandleFunc("/inventory-enhanced/storage", h.createStorage).Methods(http.MethodPost)
	r.HandleFunc("/inventory-enhanced/storage/{ref}/contents", h.storageContents).Methods(http.MethodGet)

	r.HandleFunc("/inventory-enhanced/move", h.move).Methods(http.MethodPost)
	r.HandleFunc("/inventory-enhanced/move/validate", h.validateMoveQuery).Methods(http.MethodGet)
	r.HandleFunc("/inventory-enhanced/move/validate", h.validateMove).Methods(http.MethodPost)

	r.HandleFunc("/inventory-enhanced/search", h.search).Methods(http.MethodGet)
	r.HandleFunc("/inventory-enhanced/locate/{ref}", h.locate).Methods(http.MethodGet)

	r.HandleFunc("/inventory-enhanced/reserve", h.reserve).Methods(http.MethodPost)
	r.HandleFunc("/inventory-enhanced/reserve/auto-release", h.autoRelease).Methods(http.MethodPost)
	r.HandleFunc("/inventory-enhanced/reserve/{ref}/release", h.release).Methods(http.MethodPost)
	r.HandleFunc("/inventory-enhanced/reserved", h.listReserved).Methods(http.MethodGet)

	r.HandleFunc("/inventory-enhanced/reports/stock", h.stockReport).Methods(http.MethodGet)
	r.HandleFunc("/inventory-enhanced/reports/movement", h.movementReport).Methods(http.MethodGet)
	r.HandleFunc("/inventory-enhanced/reports/expiry-analysis", h.expiryAnalysis).Methods(http.MethodGet)
	r.HandleFunc("/inventory-enhanced/reports/storage-utilization", h.utilizationReport).Methods(http.MethodGet)

	r.HandleFunc("/inventory-enhanced/audit/{ref}", h.auditTrail).Methods(http.MethodGet)
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.ItemIDs) == 0 || req.DestinationStorageID == "" {
		writeError(w, http.StatusBadRequest, "item_ids and destination_storage_id are required")
		return
	}

	result, err := h.service.Move(r.Context(), auth.UserFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) validateMove(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.service.ValidateMove(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) validateMoveQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := MoveRequest{
		ItemIDs:              splitParam(q.Get("item_ids")),
		ItemType:             models.ItemType(q.Get("item_type")),
		DestinationStorageID: q.Get("destination_storage_id"),
	}
	if len(req.ItemIDs) == 0 || req.DestinationStorageID == "" {
		writeError(w, http.StatusBadRequest, "item_ids and destination_storage_id are required")
		return
	}
	result, err := h.service.ValidateMove(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	var req ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.ItemIDs) == 0 || req.ReservedFor == "" {
		writeError(w, http.StatusBadRequest, "item_ids and reserved_for are required")
		return
	}

	result, err := h.service.Reserve(r.Context(), auth.UserFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["ref"]
	itemType := models.ItemType(r.URL.Query().Get("item_type"))

	item, err := h.service.Release(r.Context(), auth.UserFrom(r.Context()), itemType, ref)
	if err != nil {
		var state *StateError
		if errors.As(err, &state) {
			writeError(w, http.StatusBadRequest, "Item is not currently reserved")
			return
		}
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Reservation released",
		"item":    item,
	})
}

func (h *Handler) listReserved(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListReserved(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": views,
		"total": len(views),
	})
}

func (h *Handler) autoRelease(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.AutoRelease(r.Context(), auth.UserFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) locate(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Locate(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if !result.Found {
		writeJSON(w, http.StatusNotFound, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := SearchFilters{Query: q.Get("q")}
	for _, g := range splitParam(q.Get("blood_group")) {
		filters.BloodGroups = append(filters.BloodGroups, models.BloodGroup(g))
	}
	for _, ct := range splitParam(q.Get("component_type")) {
		filters.ComponentTypes = append(filters.ComponentTypes, models.ComponentType(ct))
	}
	filters.StorageRefs = splitParam(q.Get("storage"))
	for _, st := range splitParam(q.Get("status")) {
		filters.Statuses = append(filters.Statuses, models.UnitStatus(st))
	}
	filters.ExpiryFrom = parseTimeParam(q.Get("expiry_from"))
	filters.ExpiryTo = parseTimeParam(q.Get("expiry_to"))

	page, err := h.service.Search(r.Context(), filters, intParam(q.Get("page"), 1), intParam(q.Get("page_size"), 20))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) dashboardByStorage(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.DashboardByStorage(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"storages": rows, "total": len(rows)})
}

func (h *Handler) dashboardByBloodGroup(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.DashboardByBloodGroup(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"blood_groups": rows})
}

func (h *Handler) dashboardByComponentType(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.DashboardByComponentType(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"component_types": rows})
}

func (h *Handler) dashboardByExpiry(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.service.DashboardByExpiry(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) dashboardByStatus(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.DashboardByStatus(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"statuses": rows})
}

func (h *Handler) listStorages(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("include_inactive") != "true"
	storages, err := h.service.Store().ListStorages(r.Context(), activeOnly)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"storages": storages, "total": len(storages)})
}

func (h *Handler) createStorage(w http.ResponseWriter, r *http.Request) {
	var loc models.StorageLocation
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if loc.LocationCode == "" || loc.Capacity <= 0 {
		writeError(w, http.StatusBadRequest, "location_code and a positive capacity are required")
		return
	}
	created, err := h.service.Store().CreateStorage(r.Context(), loc)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) storageContents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	contents, err := h.service.StorageContents(r.Context(), mux.Vars(r)["ref"],
		intParam(q.Get("page"), 1), intParam(q.Get("page_size"), 20), q.Get("sort_by"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contents)
}

func (h *Handler) stockReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.StockReport(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) movementReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := h.service.MovementReport(r.Context(), parseTimeParam(q.Get("from")), parseTimeParam(q.Get("to")))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) expiryAnalysis(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ExpiryAnalysis(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) utilizationReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.UtilizationReport(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	trail, err := h.service.AuditTrail(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trail)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var state *StateError
	var capErr *CapacityError
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Item not found")
	case errors.Is(err, ErrStorageNotFound):
		writeError(w, http.StatusNotFound, "Storage location not found")
	case errors.Is(err, ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "Insufficient permissions")
	case errors.As(err, &capErr):
		writeError(w, http.StatusBadRequest, capErr.Error())
	case errors.As(err, &state):
		writeError(w, http.StatusBadRequest, state.Error())
	default:
		logger.Log.WithError(err).Error("inventory request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func splitParam(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intParam(v string, fallback int) int {
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseTimeParam(v string) *time.Time {
	if v == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
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
