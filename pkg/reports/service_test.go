package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hemolink/platform/pkg/common/models"
	"github.com/hemolink/platform/pkg/inventory"
)

type fakeInventory struct {
	items []models.InventoryItem
}

func (f *fakeInventory) ListItems(_ context.Context, filter inventory.ItemFilter) ([]models.InventoryItem, error) {
	var out []models.InventoryItem
	for _, item := range f.items {
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if item.Status() == s {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, item)
	}
	return out, nil
}

type fakeCounts struct {
	donors    int64
	donations int64
	pending   int64
	held      int64
}

func (f *fakeCounts) CountDonors(context.Context) (int64, error) { return f.donors, nil }
func (f *fakeCounts) CountDonationsSince(context.Context, time.Time) (int64, error) {
	return f.donations, nil
}
func (f *fakeCounts) CountRequestsByStatus(context.Context, models.RequestStatus) (int64, error) {
	return f.pending, nil
}
func (f *fakeCounts) CountPending(context.Context) (int64, error) { return f.held, nil }

func unitItem(group models.BloodGroup, confirmed models.BloodGroup, status models.UnitStatus, expiry *time.Time) models.InventoryItem {
	return models.InventoryItem{Type: models.ItemTypeUnit, Unit: &models.BloodUnit{
		ID:                  uuid.New(),
		BloodGroup:          group,
		ConfirmedBloodGroup: confirmed,
		Status:              status,
		ExpiryDate:          expiry,
	}}
}

func componentItem(group models.BloodGroup, ct models.ComponentType, expiry *time.Time) models.InventoryItem {
	return models.InventoryItem{Type: models.ItemTypeComponent, Component: &models.Component{
		ID:            uuid.New(),
		BloodGroup:    group,
		ComponentType: ct,
		Status:        models.StatusReadyToUse,
		ExpiryDate:    expiry,
	}}
}

func TestStatsAggregatesAcrossDomains(t *testing.T) {
	soon := time.Now().UTC().Add(48 * time.Hour)
	far := time.Now().UTC().Add(30 * 24 * time.Hour)
	inv := &fakeInventory{items: []models.InventoryItem{
		// Confirmed group wins over the declared one.
		unitItem(models.BloodGroupAPos, models.BloodGroupONeg, models.StatusReadyToUse, &far),
		unitItem(models.BloodGroupBPos, "", models.StatusReadyToUse, &soon),
		unitItem(models.BloodGroupBPos, "", models.StatusDiscarded, nil),
		componentItem(models.BloodGroupONeg, models.ComponentPlasma, &far),
		componentItem(models.BloodGroupONeg, models.ComponentPlatelets, &soon),
	}}
	counts := &fakeCounts{donors: 120, donations: 4, pending: 3, held: 2}
	svc := NewService(inv, counts, counts, counts)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.AvailableUnits != 2 || stats.AvailableComponents != 2 {
		t.Fatalf("availability = %d units / %d components", stats.AvailableUnits, stats.AvailableComponents)
	}
	if stats.InventoryByBloodGroup["O-"] != 3 || stats.InventoryByBloodGroup["B+"] != 1 {
		t.Fatalf("by group = %+v", stats.InventoryByBloodGroup)
	}
	if stats.InventoryByBloodGroup["A+"] != 0 {
		t.Fatalf("declared group counted despite confirmation: %+v", stats.InventoryByBloodGroup)
	}
	if stats.ComponentsByType["plasma"] != 1 || stats.ComponentsByType["platelets"] != 1 {
		t.Fatalf("by type = %+v", stats.ComponentsByType)
	}
	if stats.ExpiringWithinWeek != 2 {
		t.Fatalf("expiring = %d, want 2", stats.ExpiringWithinWeek)
	}
	if stats.TodayDonations != 4 || stats.TotalDonors != 120 || stats.PendingRequests != 3 || stats.QuarantinePending != 2 {
		t.Fatalf("counts = %+v", stats)
	}
}
