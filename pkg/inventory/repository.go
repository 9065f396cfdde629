package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hemolink/platform/pkg/common/models"
	"github.com/hemolink/platform/pkg/custody"
	"github.com/hemolink/platform/pkg/lifecycle"
)

type unitModel struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UnitID              string     `gorm:"size:32;uniqueIndex"`
	DonorID             *uuid.UUID `gorm:"type:uuid;index"`
	DonationID          *uuid.UUID `gorm:"type:uuid"`
	BagBarcode          string     `gorm:"size:64;index"`
	BloodGroup          string     `gorm:"size:8"`
	ConfirmedBloodGroup string     `gorm:"size:8"`
	Status              string     `gorm:"size:24;index"`
	StorageLocationID   *uuid.UUID `gorm:"type:uuid;index"`
	StorageLocation     string     `gorm:"size:64"`
	CollectionDate      time.Time
	ExpiryDate          *time.Time `gorm:"index"`
	Volume              float64
	ReservedFor         string     `gorm:"size:128"`
	ReservedUntil       *time.Time `gorm:"index"`
	ReservedRequestID   string     `gorm:"size:64"`
	ReservedBy          string     `gorm:"size:64"`
	ReservedAt          *time.Time
	ReservationNotes    string
	CreatedBy           string `gorm:"size:64"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (unitModel) TableName() string { return "blood_units" }

type componentModel struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ComponentID       string     `gorm:"size:32;uniqueIndex"`
	ParentUnitID      uuid.UUID  `gorm:"type:uuid;index"`
	BatchID           string     `gorm:"size:64;index"`
	ComponentType     string     `gorm:"size:24;index"`
	BloodGroup        string     `gorm:"size:8"`
	Status            string     `gorm:"size:24;index"`
	StorageLocationID *uuid.UUID `gorm:"type:uuid;index"`
	StorageLocation   string     `gorm:"size:64"`
	ExpiryDate        *time.Time `gorm:"index"`
	Volume            float64
	ReservedFor       string     `gorm:"size:128"`
	ReservedUntil     *time.Time `gorm:"index"`
	ReservedRequestID string     `gorm:"size:64"`
	ReservedBy        string     `gorm:"size:64"`
	ReservedAt        *time.Time
	ReservationNotes  string
	ProcessedBy       string `gorm:"size:64"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (componentModel) TableName() string { return "components" }

type storageModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	LocationCode     string    `gorm:"size:64;uniqueIndex"`
	StorageName      string    `gorm:"size:128"`
	StorageType      string    `gorm:"size:32;index"`
	TemperatureRange string    `gorm:"size:32"`
	TempMin          *float64
	TempMax          *float64
	Capacity         int
	CurrentOccupancy int
	Facility         string `gorm:"size:128"`
	IsActive         bool   `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (storageModel) TableName() string { return "storage_locations" }

// Repository is the Postgres store. The custody repository is carried so a
// relocation can append its custody record in the same transaction.
type Repository struct {
	db      *gorm.DB
	custody *custody.Repository
}

func NewRepository(db *gorm.DB, custodyRepo *custody.Repository) (*Repository, error) {
	if err := db.AutoMigrate(&unitModel{}, &componentModel{}, &storageModel{}); err != nil {
		return nil, fmt.Errorf("migrate inventory tables: %w", err)
	}
	return &Repository{db: db, custody: custodyRepo}, nil
}

func statusStrings(statuses []models.UnitStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func splitRefs(refs []string) (ids []uuid.UUID, codes []string) {
	for _, ref := range refs {
		if id, err := uuid.Parse(ref); err == nil {
			ids = append(ids, id)
		}
		codes = append(codes, ref)
	}
	return ids, codes
}

// --- storage ---

func (r *Repository) GetStorage(ctx context.Context, ref string) (models.StorageLocation, error) {
	q := r.db.WithContext(ctx)
	if id, err := uuid.Parse(ref); err == nil {
		q = q.Where("id = ? OR location_code = ?", id, ref)
	} else {
		q = q.Where("location_code = ?", ref)
	}
	var row storageModel
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.StorageLocation{}, ErrStorageNotFound
		}
		return models.StorageLocation{}, err
	}
	return toStorage(row), nil
}

func (r *Repository) ListStorages(ctx context.Context, activeOnly bool) ([]models.StorageLocation, error) {
	q := r.db.WithContext(ctx).Order("location_code ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []storageModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.StorageLocation, 0, len(rows))
	for _, row := range rows {
		out = append(out, toStorage(row))
	}
	return out, nil
}

func (r *Repository) CreateStorage(ctx context.Context, loc models.StorageLocation) (models.StorageLocation, error) {
	now := time.Now().UTC()
	row := storageModel{
		ID:               uuid.New(),
		LocationCode:     loc.LocationCode,
		StorageName:      loc.StorageName,
		StorageType:      string(loc.StorageType),
		TemperatureRange: loc.TemperatureRange,
		TempMin:          loc.TempMin,
		TempMax:          loc.TempMax,
		Capacity:         loc.Capacity,
		CurrentOccupancy: 0,
		Facility:         loc.Facility,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.StorageLocation{}, err
	}
	return toStorage(row), nil
}

// --- item lookup ---

func unitRef(q *gorm.DB, ref string) *gorm.DB {
	if id, err := uuid.Parse(ref); err == nil {
		return q.Where("id = ? OR unit_id = ?", id, ref)
	}
	return q.Where("unit_id = ? OR bag_barcode = ?", ref, ref)
}

func componentRef(q *gorm.DB, ref string) *gorm.DB {
	if id, err := uuid.Parse(ref); err == nil {
		return q.Where("id = ? OR component_id = ?", id, ref)
	}
	return q.Where("component_id = ?", ref)
}

func (r *Repository) findUnit(ctx context.Context, ref string) (unitModel, error) {
	var row unitModel
	err := unitRef(r.db.WithContext(ctx), ref).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return unitModel{}, ErrNotFound
	}
	return row, err
}

func (r *Repository) findComponent(ctx context.Context, ref string) (componentModel, error) {
	var row componentModel
	err := componentRef(r.db.WithContext(ctx), ref).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return componentModel{}, ErrNotFound
	}
	return row, err
}

func (r *Repository) GetItem(ctx context.Context, itemType models.ItemType, ref string) (models.InventoryItem, error) {
	switch itemType {
	case models.ItemTypeUnit:
		row, err := r.findUnit(ctx, ref)
		if err != nil {
			return models.InventoryItem{}, err
		}
		return unitItem(row), nil
	case models.ItemTypeComponent:
		row, err := r.findComponent(ctx, ref)
		if err != nil {
			return models.InventoryItem{}, err
		}
		return componentItem(row), nil
	default:
		return models.InventoryItem{}, fmt.Errorf("unknown item type %q", itemType)
	}
}

// FindItem resolves a bare reference against units first, then components,
// trying every identifier a caller might paste in.
func (r *Repository) FindItem(ctx context.Context, ref string) (models.InventoryItem, error) {
	q := r.db.WithContext(ctx)
	var unit unitModel
	var err error
	if id, perr := uuid.Parse(ref); perr == nil {
		err = q.Where("id = ? OR unit_id = ? OR donor_id = ?", id, ref, id).First(&unit).Error
	} else {
		err = q.Where("unit_id = ? OR bag_barcode = ?", ref, ref).First(&unit).Error
	}
	if err == nil {
		return unitItem(unit), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.InventoryItem{}, err
	}

	var comp componentModel
	q = r.db.WithContext(ctx)
	if id, perr := uuid.Parse(ref); perr == nil {
		err = q.Where("id = ? OR component_id = ? OR batch_id = ?", id, ref, ref).First(&comp).Error
	} else {
		err = q.Where("component_id = ? OR batch_id = ?", ref, ref).First(&comp).Error
	}
	if err == nil {
		return componentItem(comp), nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.InventoryItem{}, ErrNotFound
	}
	return models.InventoryItem{}, err
}

func (r *Repository) ListItems(ctx context.Context, filter ItemFilter) ([]models.InventoryItem, error) {
	var out []models.InventoryItem

	if filter.wantsUnits() {
		q := r.db.WithContext(ctx).Model(&unitModel{})
		q = r.applyUnitFilter(q, filter)
		var rows []unitModel
		if err := q.Order("expiry_date ASC NULLS LAST").Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, unitItem(row))
		}
	}

	if filter.wantsComponents() {
		q := r.db.WithContext(ctx).Model(&componentModel{})
		q = r.applyComponentFilter(q, filter)
		var rows []componentModel
		if err := q.Order("expiry_date ASC NULLS LAST").Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, componentItem(row))
		}
	}
	return out, nil
}

func (f ItemFilter) wantsUnits() bool {
	if f.ParentUnitID != nil {
		return false
	}
	if len(f.ComponentTypes) > 0 && !containsComponentType(f.ComponentTypes, models.ComponentWholeBlood) {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == models.ItemTypeUnit {
			return true
		}
	}
	return false
}

func (f ItemFilter) wantsComponents() bool {
	if len(f.ComponentTypes) == 1 && f.ComponentTypes[0] == models.ComponentWholeBlood {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == models.ItemTypeComponent {
			return true
		}
	}
	return false
}

func containsComponentType(types []models.ComponentType, want models.ComponentType) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

func (r *Repository) applyUnitFilter(q *gorm.DB, f ItemFilter) *gorm.DB {
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(f.Statuses))
	}
	if len(f.BloodGroups) > 0 {
		groups := make([]string, len(f.BloodGroups))
		for i, g := range f.BloodGroups {
			groups[i] = string(g)
		}
		q = q.Where("COALESCE(NULLIF(confirmed_blood_group, ''), blood_group) IN ?", groups)
	}
	if len(f.StorageRefs) > 0 {
		ids, codes := splitRefs(f.StorageRefs)
		if len(ids) > 0 {
			q = q.Where("storage_location_id IN ? OR storage_location IN ?", ids, codes)
		} else {
			q = q.Where("storage_location IN ?", codes)
		}
	}
	if f.ExpiryFrom != nil {
		q = q.Where("expiry_date >= ?", *f.ExpiryFrom)
	}
	if f.ExpiryTo != nil {
		q = q.Where("expiry_date <= ?", *f.ExpiryTo)
	}
	if f.RequireExpiry {
		q = q.Where("expiry_date IS NOT NULL")
	}
	if f.Query != "" {
		pattern := "%" + f.Query + "%"
		q = q.Where("unit_id ILIKE ? OR bag_barcode ILIKE ?", pattern, pattern)
	}
	return q
}

func (r *Repository) applyComponentFilter(q *gorm.DB, f ItemFilter) *gorm.DB {
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(f.Statuses))
	}
	if len(f.BloodGroups) > 0 {
		groups := make([]string, len(f.BloodGroups))
		for i, g := range f.BloodGroups {
			groups[i] = string(g)
		}
		q = q.Where("blood_group IN ?", groups)
	}
	if len(f.ComponentTypes) > 0 {
		types := make([]string, 0, len(f.ComponentTypes))
		for _, ct := range f.ComponentTypes {
			if ct != models.ComponentWholeBlood {
				types = append(types, string(ct))
			}
		}
		if len(types) > 0 {
			q = q.Where("component_type IN ?", types)
		}
	}
	if len(f.StorageRefs) > 0 {
		ids, codes := splitRefs(f.StorageRefs)
		if len(ids) > 0 {
			q = q.Where("storage_location_id IN ? OR storage_location IN ?", ids, codes)
		} else {
			q = q.Where("storage_location IN ?", codes)
		}
	}
	if f.ExpiryFrom != nil {
		q = q.Where("expiry_date >= ?", *f.ExpiryFrom)
	}
	if f.ExpiryTo != nil {
		q = q.Where("expiry_date <= ?", *f.ExpiryTo)
	}
	if f.RequireExpiry {
		q = q.Where("expiry_date IS NOT NULL")
	}
	if f.ParentUnitID != nil {
		q = q.Where("parent_unit_id = ?", *f.ParentUnitID)
	}
	if f.Query != "" {
		pattern := "%" + f.Query + "%"
		q = q.Where("component_id ILIKE ? OR batch_id ILIKE ?", pattern, pattern)
	}
	return q
}

// --- creation ---

func (r *Repository) CreateUnit(ctx context.Context, unit models.BloodUnit) (models.BloodUnit, error) {
	now := time.Now().UTC()
	if unit.ID == uuid.Nil {
		unit.ID = uuid.New()
	}
	if unit.UnitID == "" {
		id, err := r.nextDisplayID(ctx, &unitModel{}, "unit_id", "UN")
		if err != nil {
			return models.BloodUnit{}, err
		}
		unit.UnitID = id
	}
	if unit.Status == "" {
		unit.Status = models.StatusCollected
	}
	row := fromUnit(unit)
	row.CreatedAt = now
	row.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.BloodUnit{}, err
	}
	return toUnit(row), nil
}

func (r *Repository) CreateComponent(ctx context.Context, comp models.Component) (models.Component, error) {
	now := time.Now().UTC()
	if comp.ID == uuid.Nil {
		comp.ID = uuid.New()
	}
	if comp.ComponentID == "" {
		id, err := r.nextDisplayID(ctx, &componentModel{}, "component_id", "CMP")
		if err != nil {
			return models.Component{}, err
		}
		comp.ComponentID = id
	}
	row := fromComponent(comp)
	row.CreatedAt = now
	row.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Component{}, err
	}
	return toComponent(row), nil
}

func (r *Repository) nextDisplayID(ctx context.Context, model interface{}, column, prefix string) (string, error) {
	day := time.Now().UTC().Format("20060102")
	var count int64
	err := r.db.WithContext(ctx).Model(model).
		Where(column+" LIKE ?", fmt.Sprintf("%s-%s-%%", prefix, day)).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, day, count+1), nil
}

// --- conditional transitions ---

func (r *Repository) conditionalUpdate(ctx context.Context, itemType models.ItemType, ref string, from []models.UnitStatus, updates map[string]interface{}) (models.InventoryItem, error) {
	updates["updated_at"] = time.Now().UTC()

	var res *gorm.DB
	switch itemType {
	case models.ItemTypeUnit:
		res = unitRef(r.db.WithContext(ctx).Model(&unitModel{}), ref).
			Where("status IN ?", statusStrings(from)).
			Updates(updates)
	case models.ItemTypeComponent:
		res = componentRef(r.db.WithContext(ctx).Model(&componentModel{}), ref).
			Where("status IN ?", statusStrings(from)).
			Updates(updates)
	default:
		return models.InventoryItem{}, fmt.Errorf("unknown item type %q", itemType)
	}
	if res.Error != nil {
		return models.InventoryItem{}, res.Error
	}
	if res.RowsAffected == 0 {
		item, err := r.GetItem(ctx, itemType, ref)
		if err != nil {
			return models.InventoryItem{}, err
		}
		return models.InventoryItem{}, &StateError{Current: item.Status()}
	}
	return r.GetItem(ctx, itemType, ref)
}

func (r *Repository) ReserveItem(ctx context.Context, itemType models.ItemType, ref string, hold models.Reservation) (models.InventoryItem, error) {
	target, _ := lifecycle.Target(lifecycle.ActionReserve)
	updates := map[string]interface{}{
		"status":              string(target),
		"reserved_for":        hold.ReservedFor,
		"reserved_until":      hold.Until,
		"reserved_request_id": hold.RequestID,
		"reserved_by":         hold.ReservedBy,
		"reserved_at":         hold.ReservedAt,
		"reservation_notes":   hold.Notes,
	}
	return r.conditionalUpdate(ctx, itemType, ref, lifecycle.From(lifecycle.ActionReserve), updates)
}

func (r *Repository) ReleaseItem(ctx context.Context, itemType models.ItemType, ref string) (models.InventoryItem, error) {
	target, _ := lifecycle.Target(lifecycle.ActionRelease)
	return r.conditionalUpdate(ctx, itemType, ref, lifecycle.From(lifecycle.ActionRelease), clearReservation(string(target)))
}

func clearReservation(status string) map[string]interface{} {
	return map[string]interface{}{
		"status":              status,
		"reserved_for":        "",
		"reserved_until":      nil,
		"reserved_request_id": "",
		"reserved_by":         "",
		"reserved_at":         nil,
		"reservation_notes":   "",
	}
}

// ApplyTransition drives any lifecycle action as one conditional update.
// Extra columns (confirmed_blood_group, storage fields) ride along. Actions
// that take an item out of reserved (release, ship) also null the
// reservation columns.
func (r *Repository) ApplyTransition(ctx context.Context, itemType models.ItemType, ref string, action lifecycle.Action, extra map[string]interface{}) (models.InventoryItem, error) {
	updates, ok := transitionUpdates(action, extra)
	if !ok {
		return models.InventoryItem{}, lifecycle.ErrIllegalTransition
	}
	return r.conditionalUpdate(ctx, itemType, ref, lifecycle.From(action), updates)
}

func transitionUpdates(action lifecycle.Action, extra map[string]interface{}) (map[string]interface{}, bool) {
	target, ok := lifecycle.Target(action)
	if !ok {
		return nil, false
	}
	updates := map[string]interface{}{"status": string(target)}
	if leavesReserved(action) {
		updates = clearReservation(string(target))
	}
	for k, v := range extra {
		updates[k] = v
	}
	return updates, true
}

func leavesReserved(action lifecycle.Action) bool {
	target, ok := lifecycle.Target(action)
	if !ok || target == models.StatusReserved {
		return false
	}
	for _, from := range lifecycle.From(action) {
		if from == models.StatusReserved {
			return true
		}
	}
	return false
}

// ReleaseExpiredReservations is the idempotent sweep. Running it twice in a
// row releases nothing the second time.
func (r *Repository) ReleaseExpiredReservations(ctx context.Context, now time.Time) (int64, int64, error) {
	target, _ := lifecycle.Target(lifecycle.ActionRelease)
	updates := clearReservation(string(target))
	updates["updated_at"] = now.UTC()

	resUnits := r.db.WithContext(ctx).Model(&unitModel{}).
		Where("status = ? AND reserved_until IS NOT NULL AND reserved_until < ?", string(models.StatusReserved), now).
		Updates(updates)
	if resUnits.Error != nil {
		return 0, 0, resUnits.Error
	}
	resComponents := r.db.WithContext(ctx).Model(&componentModel{}).
		Where("status = ? AND reserved_until IS NOT NULL AND reserved_until < ?", string(models.StatusReserved), now).
		Updates(clearReservationCopy(updates))
	if resComponents.Error != nil {
		return resUnits.RowsAffected, 0, resComponents.Error
	}
	return resUnits.RowsAffected, resComponents.RowsAffected, nil
}

func clearReservationCopy(updates map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(updates))
	for k, v := range updates {
		out[k] = v
	}
	return out
}

// RelocateItem claims a slot in the destination, updates the item, releases
// the slot in the previous location and appends the custody record, all in
// one transaction. A full destination fails the claim with zero mutations.
func (r *Repository) RelocateItem(ctx context.Context, itemType models.ItemType, ref string, dest models.StorageLocation, event models.CustodyEvent) (models.InventoryItem, error) {
	var out models.InventoryItem
	now := time.Now().UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&storageModel{}).
			Where("id = ? AND current_occupancy < capacity", dest.ID).
			Updates(map[string]interface{}{
				"current_occupancy": gorm.Expr("current_occupancy + 1"),
				"updated_at":        now,
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return &CapacityError{Available: 0, Requested: 1}
		}

		var prev *uuid.UUID
		itemUpdates := map[string]interface{}{
			"storage_location_id": dest.ID,
			"storage_location":    dest.LocationCode,
			"updated_at":          now,
		}
		switch itemType {
		case models.ItemTypeUnit:
			var row unitModel
			if err := unitRef(tx, ref).First(&row).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
			prev = row.StorageLocationID
			if err := tx.Model(&unitModel{}).Where("id = ?", row.ID).Updates(itemUpdates).Error; err != nil {
				return err
			}
			row.StorageLocationID = &dest.ID
			row.StorageLocation = dest.LocationCode
			row.UpdatedAt = now
			out = unitItem(row)
		case models.ItemTypeComponent:
			var row componentModel
			if err := componentRef(tx, ref).First(&row).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
			prev = row.StorageLocationID
			if err := tx.Model(&componentModel{}).Where("id = ?", row.ID).Updates(itemUpdates).Error; err != nil {
				return err
			}
			row.StorageLocationID = &dest.ID
			row.StorageLocation = dest.LocationCode
			row.UpdatedAt = now
			out = componentItem(row)
		default:
			return fmt.Errorf("unknown item type %q", itemType)
		}

		if prev != nil {
			if err := tx.Model(&storageModel{}).
				Where("id = ? AND current_occupancy > 0", *prev).
				Updates(map[string]interface{}{
					"current_occupancy": gorm.Expr("current_occupancy - 1"),
					"updated_at":        now,
				}).Error; err != nil {
				return err
			}
		}

		event.ItemID = out.ID()
		event.ItemType = itemType
		if _, err := r.custody.WithTx(tx).Append(ctx, event); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return models.InventoryItem{}, err
	}
	return out, nil
}

// --- mapping ---

func toStorage(row storageModel) models.StorageLocation {
	return models.StorageLocation{
		ID:               row.ID,
		LocationCode:     row.LocationCode,
		StorageName:      row.StorageName,
		StorageType:      models.StorageType(row.StorageType),
		TemperatureRange: row.TemperatureRange,
		TempMin:          row.TempMin,
		TempMax:          row.TempMax,
		Capacity:         row.Capacity,
		CurrentOccupancy: row.CurrentOccupancy,
		Facility:         row.Facility,
		IsActive:         row.IsActive,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func toUnit(row unitModel) models.BloodUnit {
	return models.BloodUnit{
		ID:                  row.ID,
		UnitID:              row.UnitID,
		DonorID:             row.DonorID,
		DonationID:          row.DonationID,
		BagBarcode:          row.BagBarcode,
		BloodGroup:          models.BloodGroup(row.BloodGroup),
		ConfirmedBloodGroup: models.BloodGroup(row.ConfirmedBloodGroup),
		Status:              models.UnitStatus(row.Status),
		StorageLocationID:   row.StorageLocationID,
		StorageCode:         row.StorageLocation,
		CollectionDate:      row.CollectionDate,
		ExpiryDate:          row.ExpiryDate,
		VolumeML:            row.Volume,
		Reservation: models.Reservation{
			ReservedFor: row.ReservedFor,
			Until:       row.ReservedUntil,
			RequestID:   row.ReservedRequestID,
			ReservedBy:  row.ReservedBy,
			ReservedAt:  row.ReservedAt,
			Notes:       row.ReservationNotes,
		},
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func fromUnit(unit models.BloodUnit) unitModel {
	return unitModel{
		ID:                  unit.ID,
		UnitID:              unit.UnitID,
		DonorID:             unit.DonorID,
		DonationID:          unit.DonationID,
		BagBarcode:          unit.BagBarcode,
		BloodGroup:          string(unit.BloodGroup),
		ConfirmedBloodGroup: string(unit.ConfirmedBloodGroup),
		Status:              string(unit.Status),
		StorageLocationID:   unit.StorageLocationID,
		StorageLocation:     unit.StorageCode,
		CollectionDate:      unit.CollectionDate,
		ExpiryDate:          unit.ExpiryDate,
		Volume:              unit.VolumeML,
		ReservedFor:         unit.Reservation.ReservedFor,
		ReservedUntil:       unit.Reservation.Until,
		ReservedRequestID:   unit.Reservation.RequestID,
		ReservedBy:          unit.Reservation.ReservedBy,
		ReservedAt:          unit.Reservation.ReservedAt,
		ReservationNotes:    unit.Reservation.Notes,
		CreatedBy:           unit.CreatedBy,
	}
}

func toComponent(row componentModel) models.Component {
	return models.Component{
		ID:                row.ID,
		ComponentID:       row.ComponentID,
		ParentUnitID:      row.ParentUnitID,
		BatchID:           row.BatchID,
		ComponentType:     models.ComponentType(row.ComponentType),
		BloodGroup:        models.BloodGroup(row.BloodGroup),
		Status:            models.UnitStatus(row.Status),
		StorageLocationID: row.StorageLocationID,
		StorageCode:       row.StorageLocation,
		ExpiryDate:        row.ExpiryDate,
		VolumeML:          row.Volume,
		Reservation: models.Reservation{
			ReservedFor: row.ReservedFor,
			Until:       row.ReservedUntil,
			RequestID:   row.ReservedRequestID,
			ReservedBy:  row.ReservedBy,
			ReservedAt:  row.ReservedAt,
			Notes:       row.ReservationNotes,
		},
		ProcessedBy: row.ProcessedBy,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func fromComponent(comp models.Component) componentModel {
	return componentModel{
		ID:                comp.ID,
		ComponentID:       comp.ComponentID,
		ParentUnitID:      comp.ParentUnitID,
		BatchID:           comp.BatchID,
		ComponentType:     string(comp.ComponentType),
		BloodGroup:        string(comp.BloodGroup),
		Status:            string(comp.Status),
		StorageLocationID: comp.StorageLocationID,
		StorageLocation:   comp.StorageCode,
		ExpiryDate:        comp.ExpiryDate,
		Volume:            comp.VolumeML,
		ReservedFor:       comp.Reservation.ReservedFor,
		ReservedUntil:     comp.Reservation.Until,
		ReservedRequestID: comp.Reservation.RequestID,
		ReservedBy:        comp.Reservation.ReservedBy,
		ReservedAt:        comp.Reservation.ReservedAt,
		ReservationNotes:  comp.Reservation.Notes,
		ProcessedBy:       comp.ProcessedBy,
	}
}

func unitItem(row unitModel) models.InventoryItem {
	unit := toUnit(row)
	return models.InventoryItem{Type: models.ItemTypeUnit, Unit: &unit}
}

func componentItem(row componentModel) models.InventoryItem {
	comp := toComponent(row)
	return models.InventoryItem{Type: models.ItemTypeComponent, Component: &comp}
}
