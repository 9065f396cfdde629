package inventory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/hemolink/platform/pkg/common/models"
)

func newTestRouter(store *fakeStore) *mux.Router {
	svc, _ := newTestService(store)
	router := mux.NewRouter()
	NewHandler(svc).Register(router)
	return router
}

func TestValidateMoveAcceptsQueryParams(t *testing.T) {
	store := newFakeStore()
	src := store.addStorage("FRG-SRC", models.StorageRefrigerator, 10, 1)
	dest := store.addStorage("FRG-DST", models.StorageRefrigerator, 10, 0)
	comp := store.addComponent("CMP-PRC", models.ComponentPRC, models.StatusReadyToUse, src, future(10))
	router := newTestRouter(store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/inventory-enhanced/move/validate?item_ids="+comp.ComponentID+
			"&item_type=component&destination_storage_id="+dest.LocationCode, nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var v MoveValidation
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !v.Valid || v.ItemsCount != 1 || v.Destination != "FRG-DST" {
		t.Fatalf("validation = %+v", v)
	}
	// Preflight must not mutate anything.
	if store.comps[comp.ID].StorageCode != "FRG-SRC" || dest.CurrentOccupancy != 0 {
		t.Fatalf("validation mutated state")
	}
}

func TestValidateMoveQueryRequiresParams(t *testing.T) {
	router := newTestRouter(newFakeStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/inventory-enhanced/move/validate?item_ids=CMP-1", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestReleaseResponseCarriesMessage(t *testing.T) {
	store := newFakeStore()
	comp := store.addComponent("CMP-1", models.ComponentPRC, models.StatusReserved, nil, future(10))
	comp.Reservation = models.Reservation{ReservedFor: "City Hospital", ReservedBy: "tech-1"}
	router := newTestRouter(store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		"/inventory-enhanced/reserve/"+comp.ComponentID+"/release?item_type=component", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "success" || body["message"] != "Reservation released" {
		t.Fatalf("body = %+v", body)
	}
	if body["item"] == nil {
		t.Fatalf("released item missing from response")
	}
}
