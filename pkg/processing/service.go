package processing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hemolink/platform/pkg/common/models"
	"github.com/hemolink/platform/pkg/inventory"
	"github.com/hemolink/platform/pkg/lifecycle"
)

// Shelf life per produced component type, counted from processing time.
var shelfLives = map[models.ComponentType]time.Duration{
	models.ComponentPRC:             42 * 24 * time.Hour,
	models.ComponentPlasma:          365 * 24 * time.Hour,
	models.ComponentFFP:             365 * 24 * time.Hour,
	models.ComponentCryoprecipitate: 365 * 24 * time.Hour,
	models.ComponentPlatelets:       5 * 24 * time.Hour,
}

var (
	ErrUnitNotScreened  = errors.New("unit has not passed screening")
	ErrNoComponents     = errors.New("at least one component is required")
	ErrUnknownComponent = errors.New("unknown component type")
	ErrVolumeExceeded   = errors.New("component volumes exceed the unit volume")
)

// Inventory is the slice of the inventory store the splitter drives;
// *inventory.Repository satisfies it.
type Inventory interface {
	GetItem(ctx context.Context, itemType models.ItemType, ref string) (models.InventoryItem, error)
	ApplyTransition(ctx context.Context, itemType models.ItemType, ref string, action lifecycle.Action, extra map[string]interface{}) (models.InventoryItem, error)
	CreateComponent(ctx context.Context, comp models.Component) (models.Component, error)
	ListItems(ctx context.Context, filter inventory.ItemFilter) ([]models.InventoryItem, error)
}

// CustodyLog records production events; *custody.Recorder satisfies it.
type CustodyLog interface {
	Record(ctx context.Context, event models.CustodyEvent) error
}

type Service struct {
	inventory Inventory
	custody   CustodyLog
}

func NewService(inv Inventory, custodyLog CustodyLog) *Service {
	return &Service{inventory: inv, custody: custodyLog}
}

type ComponentSpec struct {
	Type     models.ComponentType `json:"component_type"`
	VolumeML float64              `json:"volume"`
}

type SplitRequest struct {
	UnitRef    string          `json:"unit_id"`
	Components []ComponentSpec `json:"components"`
}

type SplitResult struct {
	Unit       models.BloodUnit   `json:"unit"`
	BatchID    string             `json:"batch_id"`
	Components []models.Component `json:"components"`
}

// Split produces components from a screened unit. Components come out
// ready_to_use under a shared batch id; the parent unit stays in processing
// as the provenance root.
func (s *Service) Split(ctx context.Context, user models.UserContext, req SplitRequest) (SplitResult, error) {
	if len(req.Components) == 0 {
		return SplitResult{}, ErrNoComponents
	}

	item, err := s.inventory.GetItem(ctx, models.ItemTypeUnit, req.UnitRef)
	if err != nil {
		return SplitResult{}, err
	}
	unit := *item.Unit
	if unit.Status != models.StatusProcessing {
		return SplitResult{}, ErrUnitNotScreened
	}

	var total float64
	for _, spec := range req.Components {
		if _, ok := shelfLives[spec.Type]; !ok {
			return SplitResult{}, fmt.Errorf("%w: %s", ErrUnknownComponent, spec.Type)
		}
		if spec.VolumeML <= 0 {
			return SplitResult{}, fmt.Errorf("%w: %s needs a positive volume", ErrUnknownComponent, spec.Type)
		}
		total += spec.VolumeML
	}
	if unit.VolumeML > 0 && total > unit.VolumeML {
		return SplitResult{}, ErrVolumeExceeded
	}

	now := time.Now().UTC()
	batchID := newBatchID(now)
	components := make([]models.Component, 0, len(req.Components))
	for _, spec := range req.Components {
		expiry := now.Add(shelfLives[spec.Type])
		comp, err := s.inventory.CreateComponent(ctx, models.Component{
			ParentUnitID:  unit.ID,
			BatchID:       batchID,
			ComponentType: spec.Type,
			BloodGroup:    unit.EffectiveBloodGroup(),
			Status:        models.StatusReadyToUse,
			ExpiryDate:    &expiry,
			VolumeML:      spec.VolumeML,
			ProcessedBy:   user.ID,
		})
		if err != nil {
			return SplitResult{}, err
		}
		if err := s.custody.Record(ctx, models.CustodyEvent{
			ItemID:       comp.ID,
			ItemType:     models.ItemTypeComponent,
			Stage:        "Processing",
			FromLocation: "Processing Lab",
			Reason:       fmt.Sprintf("Produced from unit %s, batch %s", unit.UnitID, batchID),
			GiverID:      user.ID,
			Confirmed:    true,
		}); err != nil {
			return SplitResult{}, err
		}
		components = append(components, comp)
	}

	return SplitResult{Unit: unit, BatchID: batchID, Components: components}, nil
}

// ReleaseWholeBlood keeps a screened unit intact and moves it straight to
// ready_to_use instead of splitting it.
func (s *Service) ReleaseWholeBlood(ctx context.Context, user models.UserContext, unitRef string) (models.BloodUnit, error) {
	item, err := s.inventory.ApplyTransition(ctx, models.ItemTypeUnit, unitRef, lifecycle.ActionCompleteProcessing, nil)
	if err != nil {
		return models.BloodUnit{}, err
	}
	return *item.Unit, nil
}

// Batch lists all components produced under one batch id.
func (s *Service) Batch(ctx context.Context, batchID string) ([]models.Component, error) {
	items, err := s.inventory.ListItems(ctx, inventory.ItemFilter{
		Types: []models.ItemType{models.ItemTypeComponent},
		Query: batchID,
	})
	if err != nil {
		return nil, err
	}
	components := make([]models.Component, 0, len(items))
	for _, item := range items {
		if item.Component != nil && item.Component.BatchID == batchID {
			components = append(components, *item.Component)
		}
	}
	return components, nil
}

func newBatchID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("BTH-%s-%s", now.Format("20060102"), suffix)
}
