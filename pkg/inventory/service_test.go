package inventory

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hemolink/platform/pkg/common/logger"
	"github.com/hemolink/platform/pkg/common/models"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeStore struct {
	storages map[uuid.UUID]*models.StorageLocation
	units    map[uuid.UUID]*models.BloodUnit
	comps    map[uuid.UUID]*models.Component
	custody  []models.CustodyEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		storages: map[uuid.UUID]*models.StorageLocation{},
		units:    map[uuid.UUID]*models.BloodUnit{},
		comps:    map[uuid.UUID]*models.Component{},
	}
}

func (f *fakeStore) addStorage(code string, st models.StorageType, capacity, occupancy int) *models.StorageLocation {
	loc := &models.StorageLocation{
		ID:               uuid.New(),
		LocationCode:     code,
		StorageName:      code,
		StorageType:      st,
		Capacity:         capacity,
		CurrentOccupancy: occupancy,
		IsActive:         true,
	}
	f.storages[loc.ID] = loc
	return loc
}

func (f *fakeStore) addComponent(displayID string, ct models.ComponentType, status models.UnitStatus, loc *models.StorageLocation, expiry *time.Time) *models.Component {
	comp := &models.Component{
		ID:            uuid.New(),
		ComponentID:   displayID,
		ParentUnitID:  uuid.New(),
		ComponentType: ct,
		BloodGroup:    models.BloodGroupOPos,
		Status:        status,
		ExpiryDate:    expiry,
		VolumeML:      250,
		CreatedAt:     time.Now().UTC(),
	}
	if loc != nil {
		comp.StorageLocationID = &loc.ID
		comp.StorageCode = loc.LocationCode
	}
	f.comps[comp.ID] = comp
	return comp
}

func (f *fakeStore) addUnit(displayID string, status models.UnitStatus, expiry *time.Time) *models.BloodUnit {
	unit := &models.BloodUnit{
		ID:         uuid.New(),
		UnitID:     displayID,
		BloodGroup: models.BloodGroupAPos,
		Status:     status,
		ExpiryDate: expiry,
		VolumeML:   450,
		CreatedAt:  time.Now().UTC(),
	}
	f.units[unit.ID] = unit
	return unit
}

func (f *fakeStore) GetStorage(_ context.Context, ref string) (models.StorageLocation, error) {
	for _, loc := range f.storages {
		if loc.ID.String() == ref || loc.LocationCode == ref {
			return *loc, nil
		}
	}
	return models.StorageLocation{}, ErrStorageNotFound
}

func (f *fakeStore) ListStorages(_ context.Context, activeOnly bool) ([]models.StorageLocation, error) {
	var out []models.StorageLocation
	for _, loc := range f.storages {
		if activeOnly && !loc.IsActive {
			continue
		}
		out = append(out, *loc)
	}
	return out, nil
}

func (f *fakeStore) CreateStorage(_ context.Context, loc models.StorageLocation) (models.StorageLocation, error) {
	loc.ID = uuid.New()
	loc.IsActive = true
	f.storages[loc.ID] = &loc
	return loc, nil
}

func (f *fakeStore) findUnit(ref string) *models.BloodUnit {
	for _, u := range f.units {
		if u.ID.String() == ref || u.UnitID == ref || (u.BagBarcode != "" && u.BagBarcode == ref) {
			return u
		}
	}
	return nil
}

func (f *fakeStore) findComp(ref string) *models.Component {
	for _, c := range f.comps {
		if c.ID.String() == ref || c.ComponentID == ref {
			return c
		}
	}
	return nil
}

func (f *fakeStore) GetItem(_ context.Context, itemType models.ItemType, ref string) (models.InventoryItem, error) {
	if itemType == models.ItemTypeUnit {
		if u := f.findUnit(ref); u != nil {
			copied := *u
			return models.InventoryItem{Type: models.ItemTypeUnit, Unit: &copied}, nil
		}
		return models.InventoryItem{}, ErrNotFound
	}
	if c := f.findComp(ref); c != nil {
		copied := *c
		return models.InventoryItem{Type: models.ItemTypeComponent, Component: &copied}, nil
	}
	return models.InventoryItem{}, ErrNotFound
}

func (f *fakeStore) FindItem(ctx context.Context, ref string) (models.InventoryItem, error) {
	if item, err := f.GetItem(ctx, models.ItemTypeUnit, ref); err == nil {
		return item, nil
	}
	return f.GetItem(ctx, models.ItemTypeComponent, ref)
}

func (f *fakeStore) ListItems(_ context.Context, filter ItemFilter) ([]models.InventoryItem, error) {
	var out []models.InventoryItem
	if filter.wantsUnits() {
		for _, u := range f.units {
			copied := *u
			item := models.InventoryItem{Type: models.ItemTypeUnit, Unit: &copied}
			if matchesFilter(item, filter) {
				out = append(out, item)
			}
		}
	}
	if filter.wantsComponents() {
		for _, c := range f.comps {
			copied := *c
			item := models.InventoryItem{Type: models.ItemTypeComponent, Component: &copied}
			if matchesFilter(item, filter) {
				out = append(out, item)
			}
		}
	}
	return out, nil
}

func matchesFilter(item models.InventoryItem, f ItemFilter) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, st := range f.Statuses {
			if item.Status() == st {
				ok = true
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.BloodGroups) > 0 {
		ok := false
		for _, g := range f.BloodGroups {
			if item.BloodGroup() == g {
				ok = true
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.ComponentTypes) > 0 && !containsComponentType(f.ComponentTypes, item.ComponentType()) {
		return false
	}
	if len(f.StorageRefs) > 0 {
		ok := false
		for _, ref := range f.StorageRefs {
			if item.StorageCode() == ref {
				ok = true
			}
			if id := item.StorageLocationID(); id != nil && id.String() == ref {
				ok = true
			}
		}
		if !ok {
			return false
		}
	}
	if f.RequireExpiry && item.ExpiryDate() == nil {
		return false
	}
	if f.ParentUnitID != nil {
		if item.Type != models.ItemTypeComponent || item.Component.ParentUnitID != *f.ParentUnitID {
			return false
		}
	}
	return true
}

func (f *fakeStore) ReserveItem(ctx context.Context, itemType models.ItemType, ref string, hold models.Reservation) (models.InventoryItem, error) {
	if itemType == models.ItemTypeUnit {
		u := f.findUnit(ref)
		if u == nil {
			return models.InventoryItem{}, ErrNotFound
		}
		if u.Status != models.StatusReadyToUse {
			return models.InventoryItem{}, &StateError{Current: u.Status}
		}
		u.Status = models.StatusReserved
		u.Reservation = hold
		return f.GetItem(ctx, itemType, ref)
	}
	c := f.findComp(ref)
	if c == nil {
		return models.InventoryItem{}, ErrNotFound
	}
	if c.Status != models.StatusReadyToUse {
		return models.InventoryItem{}, &StateError{Current: c.Status}
	}
	c.Status = models.StatusReserved
	c.Reservation = hold
	return f.GetItem(ctx, itemType, ref)
}

func (f *fakeStore) ReleaseItem(ctx context.Context, itemType models.ItemType, ref string) (models.InventoryItem, error) {
	if itemType == models.ItemTypeUnit {
		u := f.findUnit(ref)
		if u == nil {
			return models.InventoryItem{}, ErrNotFound
		}
		if u.Status != models.StatusReserved {
			return models.InventoryItem{}, &StateError{Current: u.Status}
		}
		u.Status = models.StatusReadyToUse
		u.Reservation = models.Reservation{}
		return f.GetItem(ctx, itemType, ref)
	}
	c := f.findComp(ref)
	if c == nil {
		return models.InventoryItem{}, ErrNotFound
	}
	if c.Status != models.StatusReserved {
		return models.InventoryItem{}, &StateError{Current: c.Status}
	}
	c.Status = models.StatusReadyToUse
	c.Reservation = models.Reservation{}
	return f.GetItem(ctx, itemType, ref)
}

func (f *fakeStore) ReleaseExpiredReservations(_ context.Context, now time.Time) (int64, int64, error) {
	var units, comps int64
	for _, u := range f.units {
		if u.Status == models.StatusReserved && u.Reservation.Until != nil && u.Reservation.Until.Before(now) {
			u.Status = models.StatusReadyToUse
			u.Reservation = models.Reservation{}
			units++
		}
	}
	for _, c := range f.comps {
		if c.Status == models.StatusReserved && c.Reservation.Until != nil && c.Reservation.Until.Before(now) {
			c.Status = models.StatusReadyToUse
			c.Reservation = models.Reservation{}
			comps++
		}
	}
	return units, comps, nil
}

func (f *fakeStore) RelocateItem(ctx context.Context, itemType models.ItemType, ref string, dest models.StorageLocation, event models.CustodyEvent) (models.InventoryItem, error) {
	destLoc, ok := f.storages[dest.ID]
	if !ok {
		return models.InventoryItem{}, ErrStorageNotFound
	}
	if destLoc.CurrentOccupancy >= destLoc.Capacity {
		return models.InventoryItem{}, &CapacityError{Available: 0, Requested: 1}
	}

	var prev *uuid.UUID
	switch itemType {
	case models.ItemTypeUnit:
		u := f.findUnit(ref)
		if u == nil {
			return models.InventoryItem{}, ErrNotFound
		}
		prev = u.StorageLocationID
		u.StorageLocationID = &destLoc.ID
		u.StorageCode = destLoc.LocationCode
	default:
		c := f.findComp(ref)
		if c == nil {
			return models.InventoryItem{}, ErrNotFound
		}
		prev = c.StorageLocationID
		c.StorageLocationID = &destLoc.ID
		c.StorageCode = destLoc.LocationCode
	}
	destLoc.CurrentOccupancy++
	if prev != nil {
		if prevLoc, ok := f.storages[*prev]; ok && prevLoc.CurrentOccupancy > 0 {
			prevLoc.CurrentOccupancy--
		}
	}
	f.custody = append(f.custody, event)
	return f.GetItem(ctx, itemType, ref)
}

type fakeCustody struct {
	events []models.CustodyEvent
}

func (f *fakeCustody) Record(_ context.Context, event models.CustodyEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeCustody) ListForItem(_ context.Context, itemID uuid.UUID) ([]models.CustodyEvent, error) {
	var out []models.CustodyEvent
	for _, e := range f.events {
		if e.ItemID == itemID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCustody) ListByStages(_ context.Context, stages []string, _, _ *time.Time) ([]models.CustodyEvent, error) {
	var out []models.CustodyEvent
	for _, e := range f.events {
		for _, st := range stages {
			if e.Stage == st {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func newTestService(store *fakeStore) (*Service, *fakeCustody) {
	log := &fakeCustody{}
	return NewService(store, log, DefaultTempMatrix(), 24*time.Hour), log
}

func future(days int) *time.Time {
	t := time.Now().UTC().AddDate(0, 0, days)
	return &t
}

var inventoryUser = models.UserContext{ID: "tech-1", Role: models.RoleInventory}

func TestReserveSetsHoldAndCustody(t *testing.T) {
	store := newFakeStore()
	fridge := store.addStorage("FRG-01", models.StorageRefrigerator, 10, 1)
	comp := store.addComponent("CMP-1", models.ComponentPRC, models.StatusReadyToUse, fridge, future(10))
	svc, log := newTestService(store)

	before := time.Now().UTC()
	result, err := svc.Reserve(context.Background(), inventoryUser, ReserveRequest{
		ItemIDs:     []string{comp.ComponentID},
		ItemType:    models.ItemTypeComponent,
		ReservedFor: "City Hospital",
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if result.Status != "success" || result.ReservedCount != 1 || result.FailedCount != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	stored := store.comps[comp.ID]
	if stored.Status != models.StatusReserved {
		t.Fatalf("status = %s, want reserved", stored.Status)
	}
	if stored.Reservation.ReservedFor != "City Hospital" || stored.Reservation.ReservedBy != "tech-1" {
		t.Fatalf("reservation fields not set: %+v", stored.Reservation)
	}
	if stored.Reservation.Until == nil {
		t.Fatalf("reservation has no expiry")
	}
	ttl := stored.Reservation.Until.Sub(before)
	if ttl < 23*time.Hour || ttl > 25*time.Hour {
		t.Fatalf("default hold should be about 24h, got %v", ttl)
	}

	if len(log.events) != 1 || log.events[0].Stage != StageReservation {
		t.Fatalf("expected one Reservation custody event, got %+v", log.events)
	}
}

func TestReserveAlreadyReservedKeepsHolder(t *testing.T) {
	store := newFakeStore()
	comp := store.addComponent("CMP-1", models.ComponentPRC, models.StatusReadyToUse, nil, future(10))
	svc, _ := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, inventoryUser, ReserveRequest{
		ItemIDs: []string{comp.ComponentID}, ItemType: models.ItemTypeComponent, ReservedFor: "First Hospital",
	}); err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	result, err := svc.Reserve(ctx, inventoryUser, ReserveRequest{
		ItemIDs: []string{comp.ComponentID}, ItemType: models.ItemTypeComponent, ReservedFor: "Second Hospital",
	})
	if err != nil {
		t.Fatalf("second reserve: %v", err)
	}
	if result.Status != "failed" || result.FailedCount != 1 {
		t.Fatalf("second reserve should fail: %+v", result)
	}
	if got := result.Failed[0].Reason; got != "Cannot reserve - current status: reserved" {
		t.Fatalf("reason = %q", got)
	}
	if store.comps[comp.ID].Reservation.ReservedFor != "First Hospital" {
		t.Fatalf("original holder was overwritten")
	}
}

func TestReservePartialBatch(t *testing.T) {
	store := newFakeStore()
	ready := store.addComponent("CMP-READY", models.ComponentPRC, models.StatusReadyToUse, nil, future(10))
	store.addComponent("CMP-QUAR", models.ComponentPRC, models.StatusQuarantine, nil, future(10))
	svc, _ := newTestService(store)

	result, err := svc.Reserve(context.Background(), inventoryUser, ReserveRequest{
		ItemIDs:     []string{ready.ComponentID, "CMP-QUAR", "CMP-MISSING"},
		ItemType:    models.ItemTypeComponent,
		ReservedFor: "City Hospital",
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if result.Status != "success" {
		t.Fatalf("batch with one success should report success, got %s", result.Status)
	}
	if result.ReservedCount != 1 || result.FailedCount != 2 {
		t.Fatalf("counts = %d/%d", result.ReservedCount, result.FailedCount)
	}
	reasons := map[string]string{}
	for _, f := range result.Failed {
		reasons[f.ID] = f.Reason
	}
	if reasons["CMP-QUAR"] != "Cannot reserve - current status: quarantine" {
		t.Fatalf("quarantine reason = %q", reasons["CMP-QUAR"])
	}
	if reasons["CMP-MISSING"] != "Not found" {
		t.Fatalf("missing reason = %q", reasons["CMP-MISSING"])
	}
}

func TestReleaseClearsReservation(t *testing.T) {
	store := newFakeStore()
	comp := store.addComponent("CMP-1", models.ComponentPRC, models.StatusReadyToUse, nil, future(10))
	svc, log := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, inventoryUser, ReserveRequest{
		ItemIDs: []string{comp.ComponentID}, ItemType: models.ItemTypeComponent, ReservedFor: "City Hospital",
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.Release(ctx, inventoryUser, models.ItemTypeComponent, comp.ComponentID); err != nil {
		t.Fatalf("release: %v", err)
	}

	stored := store.comps[comp.ID]
	if stored.Status != models.StatusReadyToUse {
		t.Fatalf("status = %s, want ready_to_use", stored.Status)
	}
	if !stored.Reservation.Empty() {
		t.Fatalf("reservation fields not cleared: %+v", stored.Reservation)
	}
	if log.events[len(log.events)-1].Stage != StageReservationRelease {
		t.Fatalf("missing Reservation Release custody event")
	}
}

func TestReleaseNotReserved(t *testing.T) {
	store := newFakeStore()
	comp := store.addComponent("CMP-1", models.ComponentPRC, models.StatusReadyToUse, nil, future(10))
	svc, _ := newTestService(store)

	_, err := svc.Release(context.Background(), inventoryUser, models.ItemTypeComponent, comp.ComponentID)
	var state *StateError
	if !errors.As(err, &state) {
		t.Fatalf("expected StateError, got %v", err)
	}
	if state.Current != models.StatusReadyToUse {
		t.Fatalf("state = %s", state.Current)
	}
}

func TestAutoReleaseIsIdempotent(t *testing.T) {
	store := newFakeStore()
	expired := store.addComponent("CMP-EXP", models.ComponentPRC, models.StatusReserved, nil, future(10))
	past := time.Now().UTC().Add(-1 * time.Hour)
	expired.Reservation = models.Reservation{ReservedFor: "X", Until: &past}

	expiredUnit := store.addUnit("UN-EXP", models.StatusReserved, future(10))
	expiredUnit.Reservation = models.Reservation{ReservedFor: "X", Until: &past}

	active := store.addComponent("CMP-ACT", models.ComponentPRC, models.StatusReserved, nil, future(10))
	soon := time.Now().UTC().Add(2 * time.Hour)
	active.Reservation = models.Reservation{ReservedFor: "Y", Until: &soon}

	svc, _ := newTestService(store)
	admin := models.UserContext{ID: "admin-1", Role: models.RoleAdmin}

	first, err := svc.AutoRelease(context.Background(), admin)
	if err != nil {
		t.Fatalf("auto-release: %v", err)
	}
	if first.TotalReleased != 2 || first.UnitsReleased != 1 || first.ComponentsReleased != 1 {
		t.Fatalf("first sweep: %+v", first)
	}
	if store.comps[active.ID].Status != models.StatusReserved {
		t.Fatalf("active hold must survive the sweep")
	}

	second, err := svc.AutoRelease(context.Background(), admin)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if second.TotalReleased != 0 {
		t.Fatalf("second sweep released %d, want 0", second.TotalReleased)
	}
}

func TestAutoReleaseRequiresRole(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	_, err := svc.AutoRelease(context.Background(), models.UserContext{ID: "u", Role: models.RolePhlebotomist})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestMoveCapacityPrecheckRejectsWholeBatch(t *testing.T) {
	store := newFakeStore()
	src := store.addStorage("FRG-SRC", models.StorageRefrigerator, 10, 2)
	dest := store.addStorage("FRG-DST", models.StorageRefrigerator, 5, 4)
	a := store.addComponent("CMP-A", models.ComponentPRC, models.StatusReadyToUse, src, future(10))
	b := store.addComponent("CMP-B", models.ComponentPRC, models.StatusReadyToUse, src, future(10))
	svc, _ := newTestService(store)

	_, err := svc.Move(context.Background(), inventoryUser, MoveRequest{
		ItemIDs:              []string{a.ComponentID, b.ComponentID},
		ItemType:             models.ItemTypeComponent,
		DestinationStorageID: dest.LocationCode,
		Reason:               "restock",
	})
	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityError, got %v", err)
	}
	if capErr.Available != 1 || capErr.Requested != 2 {
		t.Fatalf("capacity error = %+v", capErr)
	}
	if !strings.Contains(capErr.Error(), "Only 1 slots available") {
		t.Fatalf("message = %q", capErr.Error())
	}

	// Zero mutations: nothing moved, counters untouched.
	if store.comps[a.ID].StorageCode != "FRG-SRC" || store.comps[b.ID].StorageCode != "FRG-SRC" {
		t.Fatalf("items moved despite rejected batch")
	}
	if src.CurrentOccupancy != 2 || dest.CurrentOccupancy != 4 {
		t.Fatalf("occupancy changed: src=%d dest=%d", src.CurrentOccupancy, dest.CurrentOccupancy)
	}
}

func TestMovePartialFailure(t *testing.T) {
	store := newFakeStore()
	src := store.addStorage("FRG-SRC", models.StorageRefrigerator, 10, 2)
	dest := store.addStorage("FRZ-DST", models.StorageFreezer, 10, 0)
	plasma := store.addComponent("CMP-PLASMA", models.ComponentPlasma, models.StatusReadyToUse, src, future(60))
	prc := store.addComponent("CMP-PRC", models.ComponentPRC, models.StatusReadyToUse, src, future(10))
	svc, _ := newTestService(store)

	result, err := svc.Move(context.Background(), inventoryUser, MoveRequest{
		ItemIDs:              []string{plasma.ComponentID, prc.ComponentID, "CMP-MISSING"},
		ItemType:             models.ItemTypeComponent,
		DestinationStorageID: dest.LocationCode,
		Reason:               "freezer consolidation",
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if result.Status != "success" || result.MovedCount != 1 || result.FailedCount != 2 {
		t.Fatalf("result = %+v", result)
	}
	reasons := map[string]string{}
	for _, f := range result.Failed {
		reasons[f.ID] = f.Reason
	}
	if reasons[prc.ComponentID] != "Temperature incompatible" {
		t.Fatalf("prc reason = %q", reasons[prc.ComponentID])
	}
	if reasons["CMP-MISSING"] != "Not found" {
		t.Fatalf("missing reason = %q", reasons["CMP-MISSING"])
	}

	if store.comps[plasma.ID].StorageCode != "FRZ-DST" {
		t.Fatalf("plasma not relocated")
	}
	if src.CurrentOccupancy != 1 || dest.CurrentOccupancy != 1 {
		t.Fatalf("occupancy: src=%d dest=%d", src.CurrentOccupancy, dest.CurrentOccupancy)
	}
	if len(store.custody) != 1 || store.custody[0].Stage != StageStorageTransfer {
		t.Fatalf("custody events = %+v", store.custody)
	}
	if store.custody[0].FromLocation != "FRG-SRC" || store.custody[0].ToLocation != "FRZ-DST" {
		t.Fatalf("custody locations = %+v", store.custody[0])
	}
}

func TestValidateMoveIsReadOnly(t *testing.T) {
	store := newFakeStore()
	src := store.addStorage("FRG-SRC", models.StorageRefrigerator, 10, 1)
	dest := store.addStorage("FRZ-DST", models.StorageFreezer, 10, 0)
	prc := store.addComponent("CMP-PRC", models.ComponentPRC, models.StatusReadyToUse, src, future(10))
	svc, _ := newTestService(store)

	v, err := svc.ValidateMove(context.Background(), MoveRequest{
		ItemIDs:              []string{prc.ComponentID},
		ItemType:             models.ItemTypeComponent,
		DestinationStorageID: dest.LocationCode,
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v.Valid {
		t.Fatalf("prc into a freezer should be invalid")
	}
	if len(v.IncompatibleItems) != 1 || v.IncompatibleItems[0].Reason != "Temperature incompatible" {
		t.Fatalf("incompatible = %+v", v.IncompatibleItems)
	}
	if store.comps[prc.ID].StorageCode != "FRG-SRC" || dest.CurrentOccupancy != 0 {
		t.Fatalf("validation mutated state")
	}
}

func TestFEFOCandidatesOrdered(t *testing.T) {
	store := newFakeStore()
	late := store.addComponent("CMP-LATE", models.ComponentPRC, models.StatusReadyToUse, nil, future(30))
	soon := store.addComponent("CMP-SOON", models.ComponentPRC, models.StatusReadyToUse, nil, future(2))
	mid := store.addComponent("CMP-MID", models.ComponentPRC, models.StatusReadyToUse, nil, future(10))
	store.addComponent("CMP-RESV", models.ComponentPRC, models.StatusReserved, nil, future(1))
	svc, _ := newTestService(store)

	views, err := svc.FEFOCandidates(context.Background(), models.BloodGroupOPos, models.ComponentPRC, 0)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("got %d candidates, want 3", len(views))
	}
	want := []string{soon.ComponentID, mid.ComponentID, late.ComponentID}
	for i, v := range views {
		if v.ItemID != want[i] {
			t.Fatalf("order[%d] = %s, want %s", i, v.ItemID, want[i])
		}
	}
}

func TestLocateUnknownRef(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	result, err := svc.Locate(context.Background(), "UN-NOPE")
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if result.Found {
		t.Fatalf("found an item that does not exist")
	}
}
