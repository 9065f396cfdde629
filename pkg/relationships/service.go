package relationships

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hemolink/platform/pkg/common/models"
	"github.com/hemolink/platform/pkg/inventory"
)

// Inventory is the read slice of the inventory store;
// *inventory.Repository satisfies it.
type Inventory interface {
	GetItem(ctx context.Context, itemType models.ItemType, ref string) (models.InventoryItem, error)
	FindItem(ctx context.Context, ref string) (models.InventoryItem, error)
	ListItems(ctx context.Context, filter inventory.ItemFilter) ([]models.InventoryItem, error)
}

// Donors resolves provenance back to the collection; *donors.Repository
// satisfies it. May be nil when the donor registry is not deployed.
type Donors interface {
	GetDonor(ctx context.Context, ref string) (models.Donor, error)
	DonationForUnit(ctx context.Context, unitID uuid.UUID) (models.Donation, error)
}

// Lab lists screening history; *lab.Repository satisfies it. May be nil.
type Lab interface {
	ListForUnit(ctx context.Context, unitID uuid.UUID) ([]models.LabTest, error)
}

type Service struct {
	inventory Inventory
	donors    Donors
	lab       Lab
}

func NewService(inv Inventory, donorRegistry Donors, labRecords Lab) *Service {
	return &Service{inventory: inv, donors: donorRegistry, lab: labRecords}
}

// UnitTree is a unit with everything hanging off it.
type UnitTree struct {
	Unit        models.BloodUnit   `json:"unit"`
	Donor       *models.Donor      `json:"donor,omitempty"`
	Donation    *models.Donation   `json:"donation,omitempty"`
	LabTests    []models.LabTest   `json:"lab_tests,omitempty"`
	Components  []models.Component `json:"components"`
	StatusTally map[string]int     `json:"status_tally"`
}

// ComponentFamily is a component with its provenance and siblings.
type ComponentFamily struct {
	Component  models.Component   `json:"component"`
	ParentUnit *models.BloodUnit  `json:"parent_unit,omitempty"`
	Siblings   []models.Component `json:"siblings"`
}

// Tree resolves a ref to whichever side it names and returns the matching
// view. Units get the full tree; components get their family.
type Tree struct {
	ItemType models.ItemType  `json:"item_type"`
	Unit     *UnitTree        `json:"unit_tree,omitempty"`
	Family   *ComponentFamily `json:"component_family,omitempty"`
}

func (s *Service) UnitTree(ctx context.Context, ref string) (UnitTree, error) {
	item, err := s.inventory.GetItem(ctx, models.ItemTypeUnit, ref)
	if err != nil {
		return UnitTree{}, err
	}
	return s.buildUnitTree(ctx, *item.Unit)
}

func (s *Service) buildUnitTree(ctx context.Context, unit models.BloodUnit) (UnitTree, error) {
	tree := UnitTree{Unit: unit, StatusTally: map[string]int{}}

	items, err := s.inventory.ListItems(ctx, inventory.ItemFilter{
		Types:        []models.ItemType{models.ItemTypeComponent},
		ParentUnitID: &unit.ID,
	})
	if err != nil {
		return UnitTree{}, err
	}
	tree.Components = make([]models.Component, 0, len(items))
	for _, item := range items {
		tree.Components = append(tree.Components, *item.Component)
		tree.StatusTally[string(item.Component.Status)]++
	}

	if s.donors != nil {
		if donation, err := s.donors.DonationForUnit(ctx, unit.ID); err == nil {
			tree.Donation = &donation
		}
		if unit.DonorID != nil {
			if donor, err := s.donors.GetDonor(ctx, unit.DonorID.String()); err == nil {
				tree.Donor = &donor
			}
		}
	}
	if s.lab != nil {
		if tests, err := s.lab.ListForUnit(ctx, unit.ID); err == nil {
			tree.LabTests = tests
		}
	}
	return tree, nil
}

func (s *Service) ComponentFamily(ctx context.Context, ref string) (ComponentFamily, error) {
	item, err := s.inventory.GetItem(ctx, models.ItemTypeComponent, ref)
	if err != nil {
		return ComponentFamily{}, err
	}
	return s.buildFamily(ctx, *item.Component)
}

func (s *Service) buildFamily(ctx context.Context, comp models.Component) (ComponentFamily, error) {
	family := ComponentFamily{Component: comp, Siblings: []models.Component{}}

	if comp.ParentUnitID != uuid.Nil {
		if parent, err := s.inventory.GetItem(ctx, models.ItemTypeUnit, comp.ParentUnitID.String()); err == nil {
			family.ParentUnit = parent.Unit
		} else if !errors.Is(err, inventory.ErrNotFound) {
			return ComponentFamily{}, err
		}

		items, err := s.inventory.ListItems(ctx, inventory.ItemFilter{
			Types:        []models.ItemType{models.ItemTypeComponent},
			ParentUnitID: &comp.ParentUnitID,
		})
		if err != nil {
			return ComponentFamily{}, err
		}
		for _, item := range items {
			if item.Component.ID == comp.ID {
				continue
			}
			family.Siblings = append(family.Siblings, *item.Component)
		}
	}
	return family, nil
}

// Resolve auto-detects whether ref names a unit or a component.
func (s *Service) Resolve(ctx context.Context, ref string) (Tree, error) {
	item, err := s.inventory.FindItem(ctx, ref)
	if err != nil {
		return Tree{}, err
	}
	switch item.Type {
	case models.ItemTypeUnit:
		tree, err := s.buildUnitTree(ctx, *item.Unit)
		if err != nil {
			return Tree{}, err
		}
		return Tree{ItemType: models.ItemTypeUnit, Unit: &tree}, nil
	default:
		family, err := s.buildFamily(ctx, *item.Component)
		if err != nil {
			return Tree{}, err
		}
		return Tree{ItemType: models.ItemTypeComponent, Family: &family}, nil
	}
}

type BatchEntry struct {
	Ref   string `json:"ref"`
	Tree  *Tree  `json:"tree,omitempty"`
	Error string `json:"error,omitempty"`
}

// ResolveBatch looks up many refs at once, folding per-ref failures into the
// result instead of aborting.
func (s *Service) ResolveBatch(ctx context.Context, refs []string) []BatchEntry {
	entries := make([]BatchEntry, 0, len(refs))
	for _, ref := range refs {
		tree, err := s.Resolve(ctx, ref)
		if err != nil {
			reason := "lookup failed"
			if errors.Is(err, inventory.ErrNotFound) {
				reason = "Not found"
			}
			entries = append(entries, BatchEntry{Ref: ref, Error: reason})
			continue
		}
		entries = append(entries, BatchEntry{Ref: ref, Tree: &tree})
	}
	return entries
}
