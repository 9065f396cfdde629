package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hemolink/platform/pkg/common/models"
)

var (
	ErrNotFound         = errors.New("item not found")
	ErrStorageNotFound  = errors.New("storage location not found")
	ErrPermissionDenied = errors.New("insufficient permissions")
)

// StateError reports a transition attempted from a status the lifecycle
// table does not allow.
type StateError struct {
	Current models.UnitStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid item state: %s", e.Current)
}

// CapacityError rejects a whole move batch before any item is touched.
type CapacityError struct {
	Available int
	Requested int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("Insufficient capacity. Only %d slots available, trying to move %d items.", e.Available, e.Requested)
}

// ItemFilter narrows the merged unit/component listing.
type ItemFilter struct {
	Types          []models.ItemType
	Statuses       []models.UnitStatus
	BloodGroups    []models.BloodGroup
	ComponentTypes []models.ComponentType
	StorageRefs    []string
	ExpiryFrom     *time.Time
	ExpiryTo       *time.Time
	RequireExpiry  bool
	Query          string
	ParentUnitID   *uuid.UUID
}

type MoveRequest struct {
	ItemIDs              []string        `json:"item_ids"`
	ItemType             models.ItemType `json:"item_type"`
	DestinationStorageID string          `json:"destination_storage_id"`
	Reason               string          `json:"reason"`
	Notes                string          `json:"notes,omitempty"`
}

type ItemFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type MoveResult struct {
	Status      string        `json:"status"`
	Moved       []string      `json:"moved"`
	MovedCount  int           `json:"moved_count"`
	Failed      []ItemFailure `json:"failed"`
	FailedCount int           `json:"failed_count"`
	Destination string        `json:"destination"`
}

type MoveValidation struct {
	Valid             bool          `json:"valid"`
	Error             string        `json:"error,omitempty"`
	ItemsCount        int           `json:"items_count,omitempty"`
	Destination       string        `json:"destination,omitempty"`
	AvailableCapacity *int          `json:"available_capacity,omitempty"`
	IncompatibleItems []ItemFailure `json:"incompatible_items,omitempty"`
}

type ReserveRequest struct {
	ItemIDs       []string        `json:"item_ids"`
	ItemType      models.ItemType `json:"item_type"`
	RequestID     string          `json:"request_id,omitempty"`
	ReservedFor   string          `json:"reserved_for"`
	ReservedUntil *time.Time      `json:"reserved_until,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

type ReserveResult struct {
	Status        string        `json:"status"`
	Reserved      []string      `json:"reserved"`
	ReservedCount int           `json:"reserved_count"`
	Failed        []ItemFailure `json:"failed"`
	FailedCount   int           `json:"failed_count"`
	ReservedUntil time.Time     `json:"reserved_until"`
}

type AutoReleaseResult struct {
	Status             string `json:"status"`
	UnitsReleased      int64  `json:"units_released"`
	ComponentsReleased int64  `json:"components_released"`
	TotalReleased      int64  `json:"total_released"`
}

// ItemView is an inventory item annotated for dashboards and search results.
type ItemView struct {
	models.InventoryItem
	ItemID         string             `json:"item_id"`
	DaysRemaining  *int               `json:"days_remaining,omitempty"`
	ExpiryCategory string             `json:"expiry_category,omitempty"`
	TimeRemaining  *float64           `json:"time_remaining_hours,omitempty"`
	HoldExpired    bool               `json:"is_expired,omitempty"`
}

type LocateResult struct {
	Found    bool                    `json:"found"`
	ItemType models.ItemType         `json:"item_type,omitempty"`
	Item     *models.InventoryItem   `json:"item,omitempty"`
	Location *LocateLocation         `json:"location,omitempty"`
	Message  string                  `json:"message,omitempty"`
}

type LocateLocation struct {
	Storage         *models.StorageLocation `json:"storage,omitempty"`
	CurrentLocation string                  `json:"current_location,omitempty"`
	Display         string                  `json:"display"`
}

type SearchFilters struct {
	Query          string
	BloodGroups    []models.BloodGroup
	ComponentTypes []models.ComponentType
	StorageRefs    []string
	Statuses       []models.UnitStatus
	ExpiryFrom     *time.Time
	ExpiryTo       *time.Time
}

type Page struct {
	Items      []ItemView `json:"items"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

type ExpiryDashboard struct {
	Items      []ItemView            `json:"items"`
	Categories map[string][]ItemView `json:"categories"`
	Summary    map[string]int        `json:"summary"`
}

type StorageDashboardRow struct {
	ID               uuid.UUID          `json:"id"`
	LocationCode     string             `json:"location_code"`
	StorageName      string             `json:"storage_name"`
	StorageType      models.StorageType `json:"storage_type"`
	Facility         string             `json:"facility,omitempty"`
	Capacity         int                `json:"capacity"`
	CurrentOccupancy int                `json:"current_occupancy"`
	OccupancyPercent float64            `json:"occupancy_percent"`
	UnitsCount       int                `json:"units_count"`
	ComponentsCount  int                `json:"components_count"`
	ExpiringCount    int                `json:"expiring_count"`
	TempMin          *float64           `json:"temp_min,omitempty"`
	TempMax          *float64           `json:"temp_max,omitempty"`
}

type BloodGroupDashboardRow struct {
	BloodGroup       models.BloodGroup                      `json:"blood_group"`
	Units            []ItemView                             `json:"units"`
	UnitsCount       int                                    `json:"units_count"`
	ComponentsByType map[models.ComponentType][]ItemView    `json:"components_by_type"`
	ComponentsCount  int                                    `json:"components_count"`
	TotalItems       int                                    `json:"total_items"`
	TotalVolume      float64                                `json:"total_volume"`
}

type ComponentTypeDashboardRow struct {
	ComponentType models.ComponentType `json:"component_type"`
	DisplayName   string               `json:"display_name"`
	Items         []ItemView           `json:"items"`
	Count         int                  `json:"count"`
	TotalVolume   float64              `json:"total_volume"`
	StorageTemp   string               `json:"storage_temp"`
}

type StatusDashboardRow struct {
	Status          models.UnitStatus `json:"status"`
	Units           []ItemView        `json:"units"`
	UnitsCount      int               `json:"units_count"`
	Components      []ItemView        `json:"components"`
	ComponentsCount int               `json:"components_count"`
	TotalCount      int               `json:"total_count"`
}

type StorageContents struct {
	Location   models.StorageLocation `json:"location"`
	Items      []ItemView             `json:"items"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	TotalPages int                    `json:"total_pages"`
}

type GroupStat struct {
	Count  int     `json:"count"`
	Volume float64 `json:"volume"`
}

type StockReport struct {
	Summary struct {
		TotalUnits      int `json:"total_units"`
		TotalComponents int `json:"total_components"`
		TotalItems      int `json:"total_items"`
	} `json:"summary"`
	ByBloodGroup struct {
		Units      map[models.BloodGroup]GroupStat `json:"units"`
		Components map[models.BloodGroup]GroupStat `json:"components"`
	} `json:"by_blood_group"`
	ByComponentType map[models.ComponentType]GroupStat `json:"by_component_type"`
	ByStorage       struct {
		Units      map[string]int `json:"units"`
		Components map[string]int `json:"components"`
	} `json:"by_storage"`
}

type MovementReport struct {
	Movements      []models.CustodyEvent     `json:"movements"`
	TotalMovements int                       `json:"total_movements"`
	ByDay          map[string]map[string]int `json:"by_day"`
	ByReason       map[string]int            `json:"by_reason"`
	ByLocation     struct {
		From map[string]int `json:"from"`
		To   map[string]int `json:"to"`
	} `json:"by_location"`
}

type UtilizationRow struct {
	ID                 uuid.UUID          `json:"id"`
	LocationCode       string             `json:"location_code"`
	StorageName        string             `json:"storage_name"`
	StorageType        models.StorageType `json:"storage_type"`
	Capacity           int                `json:"capacity"`
	Occupancy          int                `json:"occupancy"`
	Available          int                `json:"available"`
	UtilizationPercent float64            `json:"utilization_percent"`
	Status             string             `json:"status"`
}

type UtilizationReport struct {
	Locations []UtilizationRow `json:"locations"`
	Summary   struct {
		TotalCapacity      int     `json:"total_capacity"`
		TotalOccupancy     int     `json:"total_occupancy"`
		OverallUtilization float64 `json:"overall_utilization"`
		CriticalCount      int     `json:"critical_count"`
		WarningCount       int     `json:"warning_count"`
		UnderutilizedCount int     `json:"underutilized_count"`
	} `json:"summary"`
}

type ExpiryAnalysisBucket struct {
	UnitsCount      int        `json:"units_count"`
	ComponentsCount int        `json:"components_count"`
	Total           int        `json:"total"`
	Units           []ItemView `json:"units"`
	Components      []ItemView `json:"components"`
}

type ExpiryAnalysisReport struct {
	Categories map[string]ExpiryAnalysisBucket `json:"categories"`
	Summary    map[string]int                  `json:"summary"`
	Discards   struct {
		Total    int64            `json:"total"`
		ByReason map[string]int64 `json:"by_reason"`
	} `json:"historical_discards"`
}

type AuditEntry struct {
	Type        string                 `json:"type"`
	Timestamp   *time.Time             `json:"timestamp,omitempty"`
	Description string                 `json:"description"`
	User        string                 `json:"user,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

type AuditTrail struct {
	Item        models.InventoryItem `json:"item"`
	ItemType    models.ItemType      `json:"item_type"`
	Trail       []AuditEntry         `json:"audit_trail"`
	TotalEvents int                  `json:"total_events"`
}
