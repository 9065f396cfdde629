package lab

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/hemolink/platform/pkg/common/models"
	"github.com/hemolink/platform/pkg/inventory"
	"github.com/hemolink/platform/pkg/lifecycle"
	"github.com/hemolink/platform/pkg/quarantine"
)

type fakeRecords struct {
	tests []models.LabTest
}

func (f *fakeRecords) Create(_ context.Context, test models.LabTest) (models.LabTest, error) {
	test.ID = uuid.New()
	f.tests = append(f.tests, test)
	return test, nil
}

func (f *fakeRecords) Get(_ context.Context, id uuid.UUID) (models.LabTest, error) {
	for _, t := range f.tests {
		if t.ID == id {
			return t, nil
		}
	}
	return models.LabTest{}, ErrNotFound
}

func (f *fakeRecords) ListForUnit(_ context.Context, unitID uuid.UUID) ([]models.LabTest, error) {
	var out []models.LabTest
	for _, t := range f.tests {
		if t.UnitID == unitID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRecords) List(_ context.Context, overall string) ([]models.LabTest, error) {
	var out []models.LabTest
	for _, t := range f.tests {
		if overall != "" && t.OverallResult != overall {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

type fakeInventory struct {
	units map[uuid.UUID]*models.BloodUnit
}

func (f *fakeInventory) lookup(ref string) *models.BloodUnit {
	for _, u := range f.units {
		if u.ID.String() == ref || u.UnitID == ref {
			return u
		}
	}
	return nil
}

func (f *fakeInventory) GetItem(_ context.Context, _ models.ItemType, ref string) (models.InventoryItem, error) {
	u := f.lookup(ref)
	if u == nil {
		return models.InventoryItem{}, inventory.ErrNotFound
	}
	copied := *u
	return models.InventoryItem{Type: models.ItemTypeUnit, Unit: &copied}, nil
}

func (f *fakeInventory) ApplyTransition(ctx context.Context, itemType models.ItemType, ref string, action lifecycle.Action, extra map[string]interface{}) (models.InventoryItem, error) {
	u := f.lookup(ref)
	if u == nil {
		return models.InventoryItem{}, inventory.ErrNotFound
	}
	next, err := lifecycle.Next(u.Status, action)
	if err != nil {
		return models.InventoryItem{}, &inventory.StateError{Current: u.Status}
	}
	u.Status = next
	if v, ok := extra["confirmed_blood_group"].(string); ok {
		u.ConfirmedBloodGroup = models.BloodGroup(v)
	}
	return f.GetItem(ctx, itemType, ref)
}

type fakeQuarantine struct {
	inventory *fakeInventory
	flags     []quarantine.FlagRequest
}

func (f *fakeQuarantine) Flag(ctx context.Context, _ models.UserContext, req quarantine.FlagRequest) (models.QuarantineRecord, error) {
	if _, err := f.inventory.ApplyTransition(ctx, req.ItemType, req.ItemRef, lifecycle.ActionFlagQuarantine, nil); err != nil {
		return models.QuarantineRecord{}, err
	}
	f.flags = append(f.flags, req)
	return models.QuarantineRecord{ID: uuid.New(), Reason: req.Reason}, nil
}

var labTech = models.UserContext{ID: "lab-1", Role: models.RoleLabTech}

func newTestService() (*Service, *fakeRecords, *fakeInventory, *fakeQuarantine) {
	records := &fakeRecords{}
	inv := &fakeInventory{units: map[uuid.UUID]*models.BloodUnit{}}
	q := &fakeQuarantine{inventory: inv}
	return NewService(records, inv, q), records, inv, q
}

func addUnit(inv *fakeInventory, status models.UnitStatus) *models.BloodUnit {
	u := &models.BloodUnit{
		ID:         uuid.New(),
		UnitID:     "UN-TEST-0001",
		BloodGroup: models.BloodGroupAPos,
		Status:     status,
	}
	inv.units[u.ID] = u
	return u
}

func cleanPanel(unitRef string) RecordTestRequest {
	return RecordTestRequest{
		UnitRef:             unitRef,
		ConfirmedBloodGroup: models.BloodGroupANeg,
		VerifiedBy1:         "tech-a",
		VerifiedBy2:         "tech-b",
		HIVResult:           models.ScreeningNonReactive,
		HBsAgResult:         models.ScreeningNonReactive,
		HCVResult:           models.ScreeningNonReactive,
		SyphilisResult:      models.ScreeningNonReactive,
	}
}

func TestCleanPanelPassesUnitToProcessing(t *testing.T) {
	svc, _, inv, q := newTestService()
	unit := addUnit(inv, models.StatusCollected)

	test, err := svc.RecordTest(context.Background(), labTech, cleanPanel(unit.UnitID))
	if err != nil {
		t.Fatalf("record test: %v", err)
	}
	if test.OverallResult != ResultPassed || test.TestMethod != "ELISA" {
		t.Fatalf("test = %+v", test)
	}
	if unit.Status != models.StatusProcessing {
		t.Fatalf("unit status = %s, want processing", unit.Status)
	}
	if unit.ConfirmedBloodGroup != models.BloodGroupANeg {
		t.Fatalf("confirmed group = %s, want A-", unit.ConfirmedBloodGroup)
	}
	if len(q.flags) != 0 {
		t.Fatalf("unexpected quarantine flags: %+v", q.flags)
	}
}

func TestReactiveMarkerQuarantinesUnit(t *testing.T) {
	svc, _, inv, q := newTestService()
	unit := addUnit(inv, models.StatusLab)

	req := cleanPanel(unit.UnitID)
	req.HCVResult = models.ScreeningReactive
	test, err := svc.RecordTest(context.Background(), labTech, req)
	if err != nil {
		t.Fatalf("record test: %v", err)
	}
	if test.OverallResult != ResultFailed {
		t.Fatalf("overall = %s, want failed", test.OverallResult)
	}
	if unit.Status != models.StatusQuarantine {
		t.Fatalf("unit status = %s, want quarantine", unit.Status)
	}
	if len(q.flags) != 1 || q.flags[0].SourceResult != models.ScreeningReactive {
		t.Fatalf("flags = %+v", q.flags)
	}
	// A failed panel must not write the confirmed group back.
	if unit.ConfirmedBloodGroup != "" {
		t.Fatalf("confirmed group written on failed panel: %s", unit.ConfirmedBloodGroup)
	}
}

func TestGrayZoneAlsoQuarantines(t *testing.T) {
	svc, _, inv, q := newTestService()
	unit := addUnit(inv, models.StatusLab)

	req := cleanPanel(unit.UnitID)
	req.SyphilisResult = models.ScreeningGray
	if _, err := svc.RecordTest(context.Background(), labTech, req); err != nil {
		t.Fatalf("record test: %v", err)
	}
	if unit.Status != models.StatusQuarantine {
		t.Fatalf("unit status = %s, want quarantine", unit.Status)
	}
	if len(q.flags) != 1 || q.flags[0].SourceResult != models.ScreeningGray {
		t.Fatalf("flags = %+v", q.flags)
	}
}

func TestConfirmedGroupNeedsTwoVerifiers(t *testing.T) {
	svc, _, inv, _ := newTestService()
	unit := addUnit(inv, models.StatusLab)

	req := cleanPanel(unit.UnitID)
	req.VerifiedBy2 = ""
	_, err := svc.RecordTest(context.Background(), labTech, req)
	if !errors.Is(err, ErrVerificationRequired) {
		t.Fatalf("expected ErrVerificationRequired, got %v", err)
	}
	if unit.Status != models.StatusLab {
		t.Fatalf("unit mutated on rejected panel: %s", unit.Status)
	}
}

func TestUnknownMarkerResultRejected(t *testing.T) {
	svc, _, inv, _ := newTestService()
	unit := addUnit(inv, models.StatusLab)

	req := cleanPanel(unit.UnitID)
	req.HIVResult = "positive"
	_, err := svc.RecordTest(context.Background(), labTech, req)
	if !errors.Is(err, ErrInvalidResult) {
		t.Fatalf("expected ErrInvalidResult, got %v", err)
	}
}
