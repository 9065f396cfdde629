package reports

import (
	"context"
	"time"

	"github.com/hemolink/platform/pkg/common/models"
	"github.com/hemolink/platform/pkg/inventory"
)

// Inventory is the read slice of the inventory store;
// *inventory.Repository satisfies it.
type Inventory interface {
	ListItems(ctx context.Context, filter inventory.ItemFilter) ([]models.InventoryItem, error)
}

// Donors is the donor registry's counting side; *donors.Repository
// satisfies it.
type Donors interface {
	CountDonors(ctx context.Context) (int64, error)
	CountDonationsSince(ctx context.Context, since time.Time) (int64, error)
}

// Requests counts open demand; *requests.Repository satisfies it.
type Requests interface {
	CountRequestsByStatus(ctx context.Context, status models.RequestStatus) (int64, error)
}

// Quarantine counts unresolved holds; *quarantine.Repository satisfies it.
type Quarantine interface {
	CountPending(ctx context.Context) (int64, error)
}

type Service struct {
	inventory  Inventory
	donors     Donors
	requests   Requests
	quarantine Quarantine
}

func NewService(inv Inventory, donorRegistry Donors, requestRecords Requests, quarantineRecords Quarantine) *Service {
	return &Service{
		inventory:  inv,
		donors:     donorRegistry,
		requests:   requestRecords,
		quarantine: quarantineRecords,
	}
}

type DashboardStats struct {
	TodayDonations        int64          `json:"today_donations"`
	TotalDonors           int64          `json:"total_donors"`
	AvailableUnits        int            `json:"available_units"`
	AvailableComponents   int            `json:"available_components"`
	PendingRequests       int64          `json:"pending_requests"`
	ExpiringWithinWeek    int            `json:"expiring_within_week"`
	QuarantinePending     int64          `json:"quarantine_pending"`
	InventoryByBloodGroup map[string]int `json:"inventory_by_blood_group"`
	ComponentsByType      map[string]int `json:"components_by_type"`
	GeneratedAt           time.Time      `json:"generated_at"`
}

// Stats assembles the landing-page dashboard in one call.
func (s *Service) Stats(ctx context.Context) (DashboardStats, error) {
	now := time.Now().UTC()
	stats := DashboardStats{
		InventoryByBloodGroup: map[string]int{},
		ComponentsByType:      map[string]int{},
		GeneratedAt:           now,
	}
	for _, group := range models.AllBloodGroups() {
		stats.InventoryByBloodGroup[string(group)] = 0
	}

	available, err := s.inventory.ListItems(ctx, inventory.ItemFilter{
		Statuses: []models.UnitStatus{models.StatusReadyToUse},
	})
	if err != nil {
		return DashboardStats{}, err
	}
	weekOut := now.Add(7 * 24 * time.Hour)
	for _, item := range available {
		if item.Type == models.ItemTypeUnit {
			stats.AvailableUnits++
		} else {
			stats.AvailableComponents++
			stats.ComponentsByType[string(item.ComponentType())]++
		}
		if group := item.BloodGroup(); group != "" {
			stats.InventoryByBloodGroup[string(group)]++
		}
		if expiry := item.ExpiryDate(); expiry != nil && !expiry.After(weekOut) {
			stats.ExpiringWithinWeek++
		}
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if stats.TodayDonations, err = s.donors.CountDonationsSince(ctx, midnight); err != nil {
		return DashboardStats{}, err
	}
	if stats.TotalDonors, err = s.donors.CountDonors(ctx); err != nil {
		return DashboardStats{}, err
	}
	if stats.PendingRequests, err = s.requests.CountRequestsByStatus(ctx, models.RequestPending); err != nil {
		return DashboardStats{}, err
	}
	if stats.QuarantinePending, err = s.quarantine.CountPending(ctx); err != nil {
		return DashboardStats{}, err
	}
	return stats, nil
}
