package inventory

import (
	"testing"

	"github.com/hemolink/platform/pkg/common/models"
)

func storage(st models.StorageType, min, max *float64) models.StorageLocation {
	return models.StorageLocation{StorageType: st, TempMin: min, TempMax: max}
}

func f(v float64) *float64 { return &v }

func TestCompatibleByStorageTypeName(t *testing.T) {
	m := DefaultTempMatrix()

	if !m.Compatible(models.ComponentPRC, storage(models.StorageRefrigerator, nil, nil)) {
		t.Fatalf("prc should fit a refrigerator")
	}
	if !m.Compatible(models.ComponentPlasma, storage(models.StorageFreezer, nil, nil)) {
		t.Fatalf("plasma should fit a freezer")
	}
	if !m.Compatible(models.ComponentPlatelets, storage(models.StoragePlateletIncubator, nil, nil)) {
		t.Fatalf("platelets should fit a platelet incubator")
	}
}

func TestIncompatibleWrongTypeNoBands(t *testing.T) {
	m := DefaultTempMatrix()

	if m.Compatible(models.ComponentPRC, storage(models.StorageFreezer, nil, nil)) {
		t.Fatalf("prc must not fit a freezer without an overlapping band")
	}
	if m.Compatible(models.ComponentPlatelets, storage(models.StorageRefrigerator, nil, nil)) {
		t.Fatalf("platelets must not fit a refrigerator")
	}
}

func TestCompatibleByBandOverlap(t *testing.T) {
	m := DefaultTempMatrix()

	// Unknown type name, but the declared band covers 2..6.
	dest := storage("walk_in_cold_room", f(1), f(8))
	if !m.Compatible(models.ComponentPRC, dest) {
		t.Fatalf("overlapping band should be compatible")
	}

	// Band entirely outside the requirement.
	dest = storage("walk_in_cold_room", f(10), f(15))
	if m.Compatible(models.ComponentPRC, dest) {
		t.Fatalf("disjoint band must be incompatible")
	}

	// Touching edges still count as overlap.
	dest = storage("cabinet", f(6), f(10))
	if !m.Compatible(models.ComponentPRC, dest) {
		t.Fatalf("edge-touching band should be compatible")
	}
}

func TestUnknownComponentTypeFailsOpen(t *testing.T) {
	m := DefaultTempMatrix()
	dest := storage(models.StorageFreezer, f(-30), f(-18))
	if !m.Compatible(models.ComponentType("granulocytes"), dest) {
		t.Fatalf("unknown component type must not be rejected")
	}
}
