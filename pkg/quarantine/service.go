package quarantine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hemolink/platform/pkg/common/models"
	"github.com/hemolink/platform/pkg/lifecycle"
)

var (
	ErrPermissionDenied   = errors.New("insufficient permissions")
	ErrInvalidDisposition = errors.New("disposition must be release or discard")
)

const (
	DispositionRelease = "release"
	DispositionDiscard = "discard"
)

// Records is the persistence port; *Repository satisfies it.
type Records interface {
	Create(ctx context.Context, record models.QuarantineRecord) (models.QuarantineRecord, error)
	Get(ctx context.Context, id uuid.UUID) (models.QuarantineRecord, error)
	List(ctx context.Context, pendingOnly bool) ([]models.QuarantineRecord, error)
	Resolve(ctx context.Context, id uuid.UUID, retest models.ScreeningResult, disposition, resolvedBy string) (models.QuarantineRecord, error)
}

// Inventory is the slice of the inventory store the quarantine flow drives.
type Inventory interface {
	GetItem(ctx context.Context, itemType models.ItemType, ref string) (models.InventoryItem, error)
	ApplyTransition(ctx context.Context, itemType models.ItemType, ref string, action lifecycle.Action, extra map[string]interface{}) (models.InventoryItem, error)
}

type Service struct {
	records   Records
	inventory Inventory
}

func NewService(records Records, inventory Inventory) *Service {
	return &Service{records: records, inventory: inventory}
}

type FlagRequest struct {
	ItemRef      string                 `json:"item_id"`
	ItemType     models.ItemType        `json:"item_type"`
	SourceResult models.ScreeningResult `json:"source_result,omitempty"`
	Reason       string                 `json:"reason"`
}

// Flag pulls an item out of circulation and opens a quarantine record.
func (s *Service) Flag(ctx context.Context, user models.UserContext, req FlagRequest) (models.QuarantineRecord, error) {
	itemType := req.ItemType
	if itemType == "" {
		itemType = models.ItemTypeComponent
	}
	item, err := s.inventory.ApplyTransition(ctx, itemType, req.ItemRef, lifecycle.ActionFlagQuarantine, nil)
	if err != nil {
		return models.QuarantineRecord{}, err
	}
	return s.records.Create(ctx, models.QuarantineRecord{
		ItemID:          item.ID(),
		ItemType:        item.Type,
		SourceResult:    req.SourceResult,
		Reason:          req.Reason,
		QuarantinedDate: time.Now().UTC(),
	})
}

func (s *Service) List(ctx context.Context, pendingOnly bool) ([]models.QuarantineRecord, error) {
	return s.records.List(ctx, pendingOnly)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.QuarantineRecord, error) {
	return s.records.Get(ctx, id)
}

type ResolveRequest struct {
	RetestResult models.ScreeningResult `json:"retest_result"`
	Disposition  string                 `json:"disposition"`
}

func canResolve(role string) bool {
	switch role {
	case models.RoleAdmin, models.RoleQCManager, models.RoleLabTech:
		return true
	}
	return false
}

// Resolve closes a pending record. A release disposition returns the item to
// ready_to_use; anything retained goes to discarded.
func (s *Service) Resolve(ctx context.Context, user models.UserContext, id uuid.UUID, req ResolveRequest) (models.QuarantineRecord, error) {
	if !canResolve(user.Role) {
		return models.QuarantineRecord{}, ErrPermissionDenied
	}
	if req.Disposition != DispositionRelease && req.Disposition != DispositionDiscard {
		return models.QuarantineRecord{}, ErrInvalidDisposition
	}

	record, err := s.records.Get(ctx, id)
	if err != nil {
		return models.QuarantineRecord{}, err
	}
	if record.Disposition != "" {
		return models.QuarantineRecord{}, ErrAlreadyResolved
	}

	action := lifecycle.ActionQuarantineDiscard
	if req.Disposition == DispositionRelease {
		action = lifecycle.ActionQuarantineRelease
	}
	if _, err := s.inventory.ApplyTransition(ctx, record.ItemType, record.ItemID.String(), action, nil); err != nil {
		return models.QuarantineRecord{}, err
	}
	return s.records.Resolve(ctx, id, req.RetestResult, req.Disposition, user.ID)
}
