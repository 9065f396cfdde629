package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hemolink/platform/pkg/common/logger"
	"github.com/hemolink/platform/pkg/common/models"
	"github.com/hemolink/platform/pkg/lifecycle"
)

const (
	StageReservation        = "Reservation"
	StageReservationRelease = "Reservation Release"
	StageStorageTransfer    = "Storage Transfer"
	StageStorageAssignment  = "Storage Assignment"
	StageCollection         = "Collection"
)

var availableStatuses = []models.UnitStatus{models.StatusReadyToUse, models.StatusReserved}

var inStorageStatuses = []models.UnitStatus{
	models.StatusReadyToUse, models.StatusReserved,
	models.StatusHold, models.StatusQuarantine,
}

// Service implements reservation, movement, search and reporting over the
// inventory store.
type Service struct {
	store    Store
	custody  CustodyLog
	temps    TempMatrix
	ttl      time.Duration
	discards DiscardStats
}

func NewService(store Store, custodyLog CustodyLog, temps TempMatrix, reservationTTL time.Duration) *Service {
	if reservationTTL <= 0 {
		reservationTTL = 24 * time.Hour
	}
	return &Service{store: store, custody: custodyLog, temps: temps, ttl: reservationTTL}
}

// SetDiscardStats wires historical discard counts into the expiry analysis
// report once the disposition repository exists.
func (s *Service) SetDiscardStats(stats DiscardStats) { s.discards = stats }

func (s *Service) Store() Store { return s.store }

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func normalizeType(t models.ItemType) models.ItemType {
	if t == "" {
		return models.ItemTypeComponent
	}
	return t
}

func (s *Service) recordCustody(ctx context.Context, event models.CustodyEvent) {
	if err := s.custody.Record(ctx, event); err != nil {
		logger.Log.WithError(err).WithField("item_id", event.ItemID).Error("custody record failed")
	}
}

// --- moves ---

// Move relocates a batch. The whole batch is rejected before any mutation
// when it exceeds the destination's free slots; after that each item succeeds
// or fails on its own.
func (s *Service) Move(ctx context.Context, user models.UserContext, req MoveRequest) (MoveResult, error) {
	itemType := normalizeType(req.ItemType)

	dest, err := s.store.GetStorage(ctx, req.DestinationStorageID)
	if err != nil {
		return MoveResult{}, err
	}
	if avail := dest.AvailableCapacity(); len(req.ItemIDs) > avail {
		return MoveResult{}, &CapacityError{Available: avail, Requested: len(req.ItemIDs)}
	}

	result := MoveResult{Status: "failed", Destination: dest.LocationCode}
	for _, ref := range req.ItemIDs {
		item, err := s.store.GetItem(ctx, itemType, ref)
		if err != nil {
			result.Failed = append(result.Failed, ItemFailure{ID: ref, Reason: "Not found"})
			continue
		}
		if !s.temps.Compatible(item.ComponentType(), dest) {
			result.Failed = append(result.Failed, ItemFailure{ID: ref, Reason: "Temperature incompatible"})
			continue
		}

		event := models.CustodyEvent{
			Stage:        StageStorageTransfer,
			FromLocation: orDefault(item.StorageCode(), "Unknown"),
			ToLocation:   dest.LocationCode,
			Reason:       req.Reason,
			GiverID:      user.ID,
			ReceiverID:   user.ID,
			Confirmed:    true,
			Notes:        req.Notes,
		}
		moved, err := s.store.RelocateItem(ctx, itemType, ref, dest, event)
		if err != nil {
			reason := "Move failed"
			var capErr *CapacityError
			switch {
			case errors.Is(err, ErrNotFound):
				reason = "Not found"
			case errors.As(err, &capErr):
				reason = "Destination full"
			default:
				logger.Log.WithError(err).WithField("item", ref).Error("relocate failed")
			}
			result.Failed = append(result.Failed, ItemFailure{ID: ref, Reason: reason})
			continue
		}
		result.Moved = append(result.Moved, moved.DisplayID())
	}

	result.MovedCount = len(result.Moved)
	result.FailedCount = len(result.Failed)
	if result.MovedCount > 0 {
		result.Status = "success"
	}
	return result, nil
}

// ValidateMove is the read-only preflight of Move.
func (s *Service) ValidateMove(ctx context.Context, req MoveRequest) (MoveValidation, error) {
	itemType := normalizeType(req.ItemType)

	dest, err := s.store.GetStorage(ctx, req.DestinationStorageID)
	if err != nil {
		if errors.Is(err, ErrStorageNotFound) {
			return MoveValidation{Valid: false, Error: "Destination storage not found"}, nil
		}
		return MoveValidation{}, err
	}

	avail := dest.AvailableCapacity()
	v := MoveValidation{
		ItemsCount:        len(req.ItemIDs),
		Destination:       dest.LocationCode,
		AvailableCapacity: &avail,
	}
	if len(req.ItemIDs) > avail {
		v.Error = (&CapacityError{Available: avail, Requested: len(req.ItemIDs)}).Error()
		return v, nil
	}
	for _, ref := range req.ItemIDs {
		item, err := s.store.GetItem(ctx, itemType, ref)
		if err != nil {
			v.IncompatibleItems = append(v.IncompatibleItems, ItemFailure{ID: ref, Reason: "Not found"})
			continue
		}
		if !s.temps.Compatible(item.ComponentType(), dest) {
			v.IncompatibleItems = append(v.IncompatibleItems, ItemFailure{ID: ref, Reason: "Temperature incompatible"})
		}
	}
	v.Valid = len(v.IncompatibleItems) == 0
	return v, nil
}

// --- reservations ---

func (s *Service) Reserve(ctx context.Context, user models.UserContext, req ReserveRequest) (ReserveResult, error) {
	itemType := normalizeType(req.ItemType)
	now := time.Now().UTC()
	until := now.Add(s.ttl)
	if req.ReservedUntil != nil {
		until = *req.ReservedUntil
	}
	hold := models.Reservation{
		ReservedFor: req.ReservedFor,
		Until:       &until,
		RequestID:   req.RequestID,
		ReservedBy:  user.ID,
		ReservedAt:  &now,
		Notes:       req.Notes,
	}

	result := ReserveResult{Status: "failed", ReservedUntil: until}
	for _, ref := range req.ItemIDs {
		item, err := s.store.ReserveItem(ctx, itemType, ref, hold)
		if err != nil {
			reason := "Reserve failed"
			var state *StateError
			switch {
			case errors.Is(err, ErrNotFound):
				reason = "Not found"
			case errors.As(err, &state):
				reason = fmt.Sprintf("Cannot reserve - current status: %s", state.Current)
			default:
				logger.Log.WithError(err).WithField("item", ref).Error("reserve failed")
			}
			result.Failed = append(result.Failed, ItemFailure{ID: ref, Reason: reason})
			continue
		}
		result.Reserved = append(result.Reserved, item.DisplayID())

		loc := orDefault(item.StorageCode(), "Unknown")
		s.recordCustody(ctx, models.CustodyEvent{
			ItemID:       item.ID(),
			ItemType:     item.Type,
			Stage:        StageReservation,
			FromLocation: loc,
			ToLocation:   loc,
			Reason:       "Reserved for: " + req.ReservedFor,
			GiverID:      user.ID,
			ReceiverID:   user.ID,
			Confirmed:    true,
			Notes:        req.Notes,
		})
	}

	result.ReservedCount = len(result.Reserved)
	result.FailedCount = len(result.Failed)
	if result.ReservedCount > 0 {
		result.Status = "success"
	}
	return result, nil
}

func (s *Service) Release(ctx context.Context, user models.UserContext, itemType models.ItemType, ref string) (models.InventoryItem, error) {
	item, err := s.store.ReleaseItem(ctx, normalizeType(itemType), ref)
	if err != nil {
		return models.InventoryItem{}, err
	}

	s.recordCustody(ctx, models.CustodyEvent{
		ItemID:       item.ID(),
		ItemType:     item.Type,
		Stage:        StageReservationRelease,
		FromLocation: "Reserved",
		ToLocation:   orDefault(item.StorageCode(), "Available"),
		Reason:       "Reservation released",
		GiverID:      user.ID,
		ReceiverID:   user.ID,
		Confirmed:    true,
	})
	return item, nil
}

func (s *Service) ListReserved(ctx context.Context) ([]ItemView, error) {
	items, err := s.store.ListItems(ctx, ItemFilter{Statuses: []models.UnitStatus{models.StatusReserved}})
	if err != nil {
		return nil, err
	}
	return s.views(items), nil
}

// AutoRelease frees every reservation whose hold expired. Safe to run
// repeatedly; the second run releases nothing.
func (s *Service) AutoRelease(ctx context.Context, user models.UserContext) (AutoReleaseResult, error) {
	if user.Role != models.RoleAdmin && user.Role != models.RoleInventory {
		return AutoReleaseResult{}, ErrPermissionDenied
	}
	units, components, err := s.store.ReleaseExpiredReservations(ctx, time.Now().UTC())
	if err != nil {
		return AutoReleaseResult{}, err
	}
	if units+components > 0 {
		logger.Log.WithField("units", units).WithField("components", components).Info("expired reservations released")
	}
	return AutoReleaseResult{
		Status:             "success",
		UnitsReleased:      units,
		ComponentsReleased: components,
		TotalReleased:      units + components,
	}, nil
}

// --- lookup and search ---

func (s *Service) Locate(ctx context.Context, ref string) (LocateResult, error) {
	item, err := s.store.FindItem(ctx, ref)
	if errors.Is(err, ErrNotFound) {
		return LocateResult{Found: false, Message: fmt.Sprintf("No unit or component matches %q", ref)}, nil
	}
	if err != nil {
		return LocateResult{}, err
	}

	result := LocateResult{Found: true, ItemType: item.Type, Item: &item}
	loc := &LocateLocation{CurrentLocation: item.StorageCode()}
	if id := item.StorageLocationID(); id != nil {
		if storage, err := s.store.GetStorage(ctx, id.String()); err == nil {
			loc.Storage = &storage
			loc.Display = fmt.Sprintf("%s (%s)", storage.StorageName, storage.LocationCode)
		}
	}
	if loc.Display == "" {
		loc.Display = orDefault(item.StorageCode(), "Not in storage")
	}
	result.Location = loc
	return result, nil
}

func (s *Service) Search(ctx context.Context, filters SearchFilters, page, pageSize int) (Page, error) {
	items, err := s.store.ListItems(ctx, ItemFilter{
		Query:          filters.Query,
		BloodGroups:    filters.BloodGroups,
		ComponentTypes: filters.ComponentTypes,
		StorageRefs:    filters.StorageRefs,
		Statuses:       filters.Statuses,
		ExpiryFrom:     filters.ExpiryFrom,
		ExpiryTo:       filters.ExpiryTo,
	})
	if err != nil {
		return Page{}, err
	}
	views := s.views(items)
	sortByExpiry(views)
	paged, totalPages := paginate(views, page, pageSize)
	return Page{Items: paged, Total: len(views), Page: page, PageSize: pageSize, TotalPages: totalPages}, nil
}

// FEFOCandidates lists available items of the given group and type, earliest
// expiry first, for issuance picking.
func (s *Service) FEFOCandidates(ctx context.Context, bloodGroup models.BloodGroup, componentType models.ComponentType, limit int) ([]ItemView, error) {
	filter := ItemFilter{
		Statuses:      []models.UnitStatus{models.StatusReadyToUse},
		RequireExpiry: true,
	}
	if bloodGroup != "" {
		filter.BloodGroups = []models.BloodGroup{bloodGroup}
	}
	if componentType != "" {
		filter.ComponentTypes = []models.ComponentType{componentType}
	}
	items, err := s.store.ListItems(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := s.views(items)
	sortByExpiry(views)
	if limit > 0 && len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

// --- dashboards ---

func (s *Service) DashboardByStorage(ctx context.Context) ([]StorageDashboardRow, error) {
	storages, err := s.store.ListStorages(ctx, true)
	if err != nil {
		return nil, err
	}
	rows := make([]StorageDashboardRow, 0, len(storages))
	for _, storage := range storages {
		items, err := s.store.ListItems(ctx, ItemFilter{
			Statuses:    inStorageStatuses,
			StorageRefs: []string{storage.ID.String(), storage.LocationCode},
		})
		if err != nil {
			return nil, err
		}

		row := StorageDashboardRow{
			ID:               storage.ID,
			LocationCode:     storage.LocationCode,
			StorageName:      storage.StorageName,
			StorageType:      storage.StorageType,
			Facility:         storage.Facility,
			Capacity:         storage.Capacity,
			CurrentOccupancy: storage.CurrentOccupancy,
			TempMin:          storage.TempMin,
			TempMax:          storage.TempMax,
		}
		if storage.Capacity > 0 {
			row.OccupancyPercent = float64(storage.CurrentOccupancy) / float64(storage.Capacity) * 100
		}
		today := time.Now().UTC()
		for _, item := range items {
			if item.Type == models.ItemTypeUnit {
				row.UnitsCount++
			} else {
				row.ComponentsCount++
			}
			if exp := item.ExpiryDate(); exp != nil {
				if days := lifecycle.DaysRemaining(*exp, today); days < 7 {
					row.ExpiringCount++
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Service) DashboardByBloodGroup(ctx context.Context) ([]BloodGroupDashboardRow, error) {
	items, err := s.store.ListItems(ctx, ItemFilter{Statuses: availableStatuses})
	if err != nil {
		return nil, err
	}

	byGroup := make(map[models.BloodGroup]*BloodGroupDashboardRow)
	for _, g := range models.AllBloodGroups() {
		byGroup[g] = &BloodGroupDashboardRow{
			BloodGroup:       g,
			Units:            []ItemView{},
			ComponentsByType: map[models.ComponentType][]ItemView{},
		}
	}
	for _, item := range items {
		row, ok := byGroup[item.BloodGroup()]
		if !ok {
			continue
		}
		v := s.view(item)
		if item.Type == models.ItemTypeUnit {
			row.Units = append(row.Units, v)
		} else {
			ct := item.ComponentType()
			row.ComponentsByType[ct] = append(row.ComponentsByType[ct], v)
		}
		row.TotalVolume += item.VolumeML()
	}

	rows := make([]BloodGroupDashboardRow, 0, len(byGroup))
	for _, g := range models.AllBloodGroups() {
		row := byGroup[g]
		row.UnitsCount = len(row.Units)
		for _, vs := range row.ComponentsByType {
			row.ComponentsCount += len(vs)
		}
		row.TotalItems = row.UnitsCount + row.ComponentsCount
		rows = append(rows, *row)
	}
	return rows, nil
}

var componentDisplayNames = map[models.ComponentType]string{
	models.ComponentWholeBlood:      "Whole Blood",
	models.ComponentPRC:             "Packed Red Cells",
	models.ComponentPlasma:          "Plasma",
	models.ComponentFFP:             "Fresh Frozen Plasma",
	models.ComponentPlatelets:       "Platelets",
	models.ComponentCryoprecipitate: "Cryoprecipitate",
}

func (s *Service) DashboardByComponentType(ctx context.Context) ([]ComponentTypeDashboardRow, error) {
	items, err := s.store.ListItems(ctx, ItemFilter{Statuses: availableStatuses})
	if err != nil {
		return nil, err
	}

	byType := make(map[models.ComponentType]*ComponentTypeDashboardRow)
	order := []models.ComponentType{}
	for _, item := range items {
		ct := item.ComponentType()
		row, ok := byType[ct]
		if !ok {
			row = &ComponentTypeDashboardRow{
				ComponentType: ct,
				DisplayName:   orDefault(componentDisplayNames[ct], string(ct)),
				StorageTemp:   s.temps.Band(ct),
			}
			byType[ct] = row
			order = append(order, ct)
		}
		row.Items = append(row.Items, s.view(item))
		row.TotalVolume += item.VolumeML()
	}

	rows := make([]ComponentTypeDashboardRow, 0, len(order))
	for _, ct := range order {
		row := byType[ct]
		row.Count = len(row.Items)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ComponentType < rows[j].ComponentType })
	return rows, nil
}

func (s *Service) DashboardByExpiry(ctx context.Context) (ExpiryDashboard, error) {
	items, err := s.store.ListItems(ctx, ItemFilter{Statuses: availableStatuses, RequireExpiry: true})
	if err != nil {
		return ExpiryDashboard{}, err
	}
	views := s.views(items)
	sortByExpiry(views)

	dashboard := ExpiryDashboard{
		Items:      views,
		Categories: map[string][]ItemView{},
		Summary:    map[string]int{},
	}
	for _, v := range views {
		dashboard.Categories[v.ExpiryCategory] = append(dashboard.Categories[v.ExpiryCategory], v)
		dashboard.Summary[v.ExpiryCategory]++
	}
	dashboard.Summary["total"] = len(views)
	return dashboard, nil
}

func (s *Service) DashboardByStatus(ctx context.Context) ([]StatusDashboardRow, error) {
	items, err := s.store.ListItems(ctx, ItemFilter{})
	if err != nil {
		return nil, err
	}

	statuses := []models.UnitStatus{
		models.StatusCollected, models.StatusLab, models.StatusProcessing,
		models.StatusQuarantine, models.StatusHold, models.StatusReadyToUse,
		models.StatusReserved, models.StatusIssued, models.StatusReturned,
		models.StatusDiscarded,
	}
	byStatus := make(map[models.UnitStatus]*StatusDashboardRow, len(statuses))
	for _, st := range statuses {
		byStatus[st] = &StatusDashboardRow{Status: st, Units: []ItemView{}, Components: []ItemView{}}
	}
	for _, item := range items {
		row, ok := byStatus[item.Status()]
		if !ok {
			continue
		}
		v := s.view(item)
		if item.Type == models.ItemTypeUnit {
			row.Units = append(row.Units, v)
		} else {
			row.Components = append(row.Components, v)
		}
	}

	rows := make([]StatusDashboardRow, 0, len(statuses))
	for _, st := range statuses {
		row := byStatus[st]
		row.UnitsCount = len(row.Units)
		row.ComponentsCount = len(row.Components)
		row.TotalCount = row.UnitsCount + row.ComponentsCount
		rows = append(rows, *row)
	}
	return rows, nil
}

func (s *Service) StorageContents(ctx context.Context, ref string, page, pageSize int, sortBy string) (StorageContents, error) {
	storage, err := s.store.GetStorage(ctx, ref)
	if err != nil {
		return StorageContents{}, err
	}
	items, err := s.store.ListItems(ctx, ItemFilter{
		StorageRefs: []string{storage.ID.String(), storage.LocationCode},
	})
	if err != nil {
		return StorageContents{}, err
	}
	views := s.views(items)

	switch sortBy {
	case "blood_group":
		sort.SliceStable(views, func(i, j int) bool { return views[i].BloodGroup() < views[j].BloodGroup() })
	case "component_type":
		sort.SliceStable(views, func(i, j int) bool { return views[i].ComponentType() < views[j].ComponentType() })
	default:
		sortByExpiry(views)
	}
	paged, totalPages := paginate(views, page, pageSize)
	return StorageContents{
		Location:   storage,
		Items:      paged,
		Total:      len(views),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// --- reports ---

func (s *Service) StockReport(ctx context.Context) (StockReport, error) {
	items, err := s.store.ListItems(ctx, ItemFilter{Statuses: []models.UnitStatus{models.StatusReadyToUse}})
	if err != nil {
		return StockReport{}, err
	}

	report := StockReport{}
	report.ByBloodGroup.Units = map[models.BloodGroup]GroupStat{}
	report.ByBloodGroup.Components = map[models.BloodGroup]GroupStat{}
	report.ByComponentType = map[models.ComponentType]GroupStat{}
	report.ByStorage.Units = map[string]int{}
	report.ByStorage.Components = map[string]int{}

	for _, item := range items {
		group := item.BloodGroup()
		loc := orDefault(item.StorageCode(), "unassigned")
		if item.Type == models.ItemTypeUnit {
			report.Summary.TotalUnits++
			stat := report.ByBloodGroup.Units[group]
			stat.Count++
			stat.Volume += item.VolumeML()
			report.ByBloodGroup.Units[group] = stat
			report.ByStorage.Units[loc]++
		} else {
			report.Summary.TotalComponents++
			stat := report.ByBloodGroup.Components[group]
			stat.Count++
			stat.Volume += item.VolumeML()
			report.ByBloodGroup.Components[group] = stat
			report.ByStorage.Components[loc]++
		}
		ctStat := report.ByComponentType[item.ComponentType()]
		ctStat.Count++
		ctStat.Volume += item.VolumeML()
		report.ByComponentType[item.ComponentType()] = ctStat
	}
	report.Summary.TotalItems = report.Summary.TotalUnits + report.Summary.TotalComponents
	return report, nil
}

func (s *Service) MovementReport(ctx context.Context, from, to *time.Time) (MovementReport, error) {
	stages := []string{StageStorageTransfer, StageStorageAssignment, StageReservation, StageReservationRelease}
	events, err := s.custody.ListByStages(ctx, stages, from, to)
	if err != nil {
		return MovementReport{}, err
	}

	report := MovementReport{
		Movements:      events,
		TotalMovements: len(events),
		ByDay:          map[string]map[string]int{},
		ByReason:       map[string]int{},
	}
	report.ByLocation.From = map[string]int{}
	report.ByLocation.To = map[string]int{}
	for _, e := range events {
		day := e.Timestamp.UTC().Format("2006-01-02")
		if report.ByDay[day] == nil {
			report.ByDay[day] = map[string]int{}
		}
		report.ByDay[day][e.Stage]++
		report.ByReason[orDefault(e.Reason, "unspecified")]++
		report.ByLocation.From[orDefault(e.FromLocation, "unknown")]++
		report.ByLocation.To[orDefault(e.ToLocation, "unknown")]++
	}
	return report, nil
}

func (s *Service) ExpiryAnalysis(ctx context.Context) (ExpiryAnalysisReport, error) {
	items, err := s.store.ListItems(ctx, ItemFilter{Statuses: availableStatuses, RequireExpiry: true})
	if err != nil {
		return ExpiryAnalysisReport{}, err
	}

	buckets := []string{"expired", "within_3_days", "within_7_days", "within_14_days", "within_30_days", "beyond_30_days"}
	report := ExpiryAnalysisReport{
		Categories: map[string]ExpiryAnalysisBucket{},
		Summary:    map[string]int{},
	}
	for _, name := range buckets {
		report.Categories[name] = ExpiryAnalysisBucket{Units: []ItemView{}, Components: []ItemView{}}
	}

	today := time.Now().UTC()
	for _, item := range items {
		exp := item.ExpiryDate()
		days := lifecycle.DaysRemaining(*exp, today)
		var name string
		switch {
		case days < 0:
			name = "expired"
		case days <= 3:
			name = "within_3_days"
		case days <= 7:
			name = "within_7_days"
		case days <= 14:
			name = "within_14_days"
		case days <= 30:
			name = "within_30_days"
		default:
			name = "beyond_30_days"
		}
		bucket := report.Categories[name]
		v := s.view(item)
		if item.Type == models.ItemTypeUnit {
			bucket.Units = append(bucket.Units, v)
			bucket.UnitsCount++
		} else {
			bucket.Components = append(bucket.Components, v)
			bucket.ComponentsCount++
		}
		bucket.Total++
		report.Categories[name] = bucket
		report.Summary[name]++
	}
	report.Summary["total"] = len(items)

	if s.discards != nil {
		byReason, err := s.discards.CountDiscardsByReason(ctx)
		if err != nil {
			logger.Log.WithError(err).Warn("discard stats unavailable")
		} else {
			report.Discards.ByReason = byReason
			for _, n := range byReason {
				report.Discards.Total += n
			}
		}
	}
	return report, nil
}

func (s *Service) UtilizationReport(ctx context.Context) (UtilizationReport, error) {
	storages, err := s.store.ListStorages(ctx, false)
	if err != nil {
		return UtilizationReport{}, err
	}

	report := UtilizationReport{Locations: make([]UtilizationRow, 0, len(storages))}
	for _, storage := range storages {
		row := UtilizationRow{
			ID:           storage.ID,
			LocationCode: storage.LocationCode,
			StorageName:  storage.StorageName,
			StorageType:  storage.StorageType,
			Capacity:     storage.Capacity,
			Occupancy:    storage.CurrentOccupancy,
			Available:    storage.AvailableCapacity(),
		}
		if storage.Capacity > 0 {
			row.UtilizationPercent = float64(storage.CurrentOccupancy) / float64(storage.Capacity) * 100
		}
		switch {
		case row.UtilizationPercent >= 90:
			row.Status = "critical"
			report.Summary.CriticalCount++
		case row.UtilizationPercent >= 75:
			row.Status = "warning"
			report.Summary.WarningCount++
		case row.UtilizationPercent < 30:
			row.Status = "underutilized"
			report.Summary.UnderutilizedCount++
		default:
			row.Status = "normal"
		}
		report.Summary.TotalCapacity += storage.Capacity
		report.Summary.TotalOccupancy += storage.CurrentOccupancy
		report.Locations = append(report.Locations, row)
	}
	if report.Summary.TotalCapacity > 0 {
		report.Summary.OverallUtilization = float64(report.Summary.TotalOccupancy) / float64(report.Summary.TotalCapacity) * 100
	}
	return report, nil
}

func (s *Service) AuditTrail(ctx context.Context, ref string) (AuditTrail, error) {
	item, err := s.store.FindItem(ctx, ref)
	if err != nil {
		return AuditTrail{}, err
	}
	events, err := s.custody.ListForItem(ctx, item.ID())
	if err != nil {
		return AuditTrail{}, err
	}

	trail := AuditTrail{Item: item, ItemType: item.Type}
	created := itemCreatedAt(item)
	trail.Trail = append(trail.Trail, AuditEntry{
		Type:        "creation",
		Timestamp:   &created,
		Description: fmt.Sprintf("%s %s created", item.Type, item.DisplayID()),
	})
	for _, e := range events {
		ts := e.Timestamp
		trail.Trail = append(trail.Trail, AuditEntry{
			Type:        "custody",
			Timestamp:   &ts,
			Description: fmt.Sprintf("%s: %s -> %s", e.Stage, e.FromLocation, e.ToLocation),
			User:        e.GiverID,
			Details: map[string]interface{}{
				"stage":     e.Stage,
				"from":      e.FromLocation,
				"to":        e.ToLocation,
				"reason":    e.Reason,
				"confirmed": e.Confirmed,
				"notes":     e.Notes,
			},
		})
	}
	trail.TotalEvents = len(trail.Trail)
	return trail, nil
}

func itemCreatedAt(item models.InventoryItem) time.Time {
	if item.Type == models.ItemTypeUnit {
		return item.Unit.CreatedAt
	}
	return item.Component.CreatedAt
}

// --- helpers ---

func (s *Service) view(item models.InventoryItem) ItemView {
	v := ItemView{InventoryItem: item, ItemID: item.DisplayID()}
	now := time.Now().UTC()
	if exp := item.ExpiryDate(); exp != nil {
		days := lifecycle.DaysRemaining(*exp, now)
		v.DaysRemaining = &days
		v.ExpiryCategory = string(lifecycle.ClassifyExpiry(days))
		hours := exp.Sub(now).Hours()
		v.TimeRemaining = &hours
	}
	if hold := item.Reservation(); hold.Until != nil && hold.Until.Before(now) && item.Status() == models.StatusReserved {
		v.HoldExpired = true
	}
	return v
}

func (s *Service) views(items []models.InventoryItem) []ItemView {
	out := make([]ItemView, 0, len(items))
	for _, item := range items {
		out = append(out, s.view(item))
	}
	return out
}

func sortByExpiry(views []ItemView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].ExpiryDate(), views[j].ExpiryDate()
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

func paginate(views []ItemView, page, pageSize int) ([]ItemView, int) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := (len(views) + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start >= len(views) {
		return []ItemView{}, totalPages
	}
	end := start + pageSize
	if end > len(views) {
		end = len(views)
	}
	return views[start:end], totalPages
}
