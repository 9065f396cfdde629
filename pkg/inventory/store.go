package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hemolink/platform/pkg/common/models"
)

// Store is the persistence port of the inventory service. *Repository is the
// Postgres implementation; tests run against an in-memory fake.
type Store interface {
	GetStorage(ctx context.Context, ref string) (models.StorageLocation, error)
	ListStorages(ctx context.Context, activeOnly bool) ([]models.StorageLocation, error)
	CreateStorage(ctx context.Context, loc models.StorageLocation) (models.StorageLocation, error)

	GetItem(ctx context.Context, itemType models.ItemType, ref string) (models.InventoryItem, error)
	FindItem(ctx context.Context, ref string) (models.InventoryItem, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]models.InventoryItem, error)

	ReserveItem(ctx context.Context, itemType models.ItemType, ref string, hold models.Reservation) (models.InventoryItem, error)
	ReleaseItem(ctx context.Context, itemType models.ItemType, ref string) (models.InventoryItem, error)
	ReleaseExpiredReservations(ctx context.Context, now time.Time) (units int64, components int64, err error)

	// RelocateItem moves one item into dest. The item update, both occupancy
	// counters and the custody append commit in a single transaction.
	RelocateItem(ctx context.Context, itemType models.ItemType, ref string, dest models.StorageLocation, event models.CustodyEvent) (models.InventoryItem, error)
}

// CustodyLog is the chain-of-custody port; *custody.Recorder satisfies it.
type CustodyLog interface {
	Record(ctx context.Context, event models.CustodyEvent) error
	ListForItem(ctx context.Context, itemID uuid.UUID) ([]models.CustodyEvent, error)
	ListByStages(ctx context.Context, stages []string, from, to *time.Time) ([]models.CustodyEvent, error)
}

// DiscardStats feeds historical discard counts into the expiry analysis
// report; the disposition repository satisfies it. May be nil.
type DiscardStats interface {
	CountDiscardsByReason(ctx context.Context) (map[string]int64, error)
}
