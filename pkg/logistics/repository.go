package logistics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hemolink/platform/pkg/common/models"
)

var ErrNotFound = errors.New("shipment not found")

type shipmentModel struct {
	ID                  uuid.UUID      `gorm:"primaryKey;column:id"`
	ShipmentID          string         `gorm:"column:shipment_id;uniqueIndex"`
	TrackingNumber      string         `gorm:"column:tracking_number;uniqueIndex"`
	IssuanceID          uuid.UUID      `gorm:"column:issuance_id;index"`
	Destination         string         `gorm:"column:destination"`
	DestinationAddress  string         `gorm:"column:destination_address"`
	ContactPerson       string         `gorm:"column:contact_person"`
	ContactPhone        string         `gorm:"column:contact_phone"`
	TransportMethod     string         `gorm:"column:transport_method"`
	VehicleID           string         `gorm:"column:vehicle_id"`
	DriverName          string         `gorm:"column:driver_name"`
	DriverPhone         string         `gorm:"column:driver_phone"`
	CourierCompany      string         `gorm:"column:courier_company"`
	CourierContact      string         `gorm:"column:courier_contact"`
	CourierTrackingNo   string         `gorm:"column:courier_tracking_number"`
	SpecialInstructions string         `gorm:"column:special_instructions"`
	EstimatedArrival    *time.Time     `gorm:"column:estimated_arrival"`
	Status              string         `gorm:"column:status;index"`
	CurrentLocation     string         `gorm:"column:current_location"`
	TrackingUpdates     datatypes.JSON `gorm:"column:tracking_updates"`
	TemperatureLog      datatypes.JSON `gorm:"column:temperature_log"`
	CreatedBy           string         `gorm:"column:created_by"`
	CreatedAt           time.Time      `gorm:"column:created_at"`
}

func (shipmentModel) TableName() string { return "shipments" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&shipmentModel{}); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Create(ctx context.Context, shipment models.Shipment) (models.Shipment, error) {
	shipment.ID = uuid.New()
	displayID, err := r.nextDisplayID(ctx, "SHP")
	if err != nil {
		return models.Shipment{}, err
	}
	shipment.ShipmentID = displayID
	shipment.TrackingNumber = newTrackingNumber()
	shipment.CreatedAt = time.Now().UTC()

	row, err := fromShipment(shipment)
	if err != nil {
		return models.Shipment{}, err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Shipment{}, err
	}
	return shipment, nil
}

// Get resolves a shipment by system id, display id or public tracking number.
func (r *Repository) Get(ctx context.Context, ref string) (models.Shipment, error) {
	var row shipmentModel
	q := r.db.WithContext(ctx)
	if id, err := uuid.Parse(ref); err == nil {
		q = q.Where("id = ?", id)
	} else {
		q = q.Where("shipment_id = ? OR tracking_number = ?", ref, ref)
	}
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Shipment{}, ErrNotFound
		}
		return models.Shipment{}, err
	}
	return toShipment(row)
}

func (r *Repository) List(ctx context.Context, status, destination string) ([]models.Shipment, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if destination != "" {
		q = q.Where("destination ILIKE ?", "%"+destination+"%")
	}
	var rows []shipmentModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	shipments := make([]models.Shipment, 0, len(rows))
	for _, row := range rows {
		shipment, err := toShipment(row)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, shipment)
	}
	return shipments, nil
}

// AppendTracking adds one tracking event and moves the shipment's status and
// current location along with it, in a single transaction.
func (r *Repository) AppendTracking(ctx context.Context, id uuid.UUID, update models.TrackingUpdate) (models.Shipment, error) {
	var out models.Shipment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row shipmentModel
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		var updates []models.TrackingUpdate
		if len(row.TrackingUpdates) > 0 {
			if err := json.Unmarshal(row.TrackingUpdates, &updates); err != nil {
				return err
			}
		}
		updates = append(updates, update)
		raw, err := json.Marshal(updates)
		if err != nil {
			return err
		}
		if err := tx.Model(&shipmentModel{}).Where("id = ?", id).Updates(map[string]interface{}{
			"tracking_updates": datatypes.JSON(raw),
			"status":           update.Status,
			"current_location": update.Location,
		}).Error; err != nil {
			return err
		}
		row.TrackingUpdates = raw
		row.Status = update.Status
		row.CurrentLocation = update.Location
		out, err = toShipment(row)
		return err
	})
	if err != nil {
		return models.Shipment{}, err
	}
	return out, nil
}

// AppendTemperature adds one temperature reading to the shipment log.
func (r *Repository) AppendTemperature(ctx context.Context, id uuid.UUID, reading models.TemperatureReading) (models.Shipment, error) {
	var out models.Shipment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row shipmentModel
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		var readings []models.TemperatureReading
		if len(row.TemperatureLog) > 0 {
			if err := json.Unmarshal(row.TemperatureLog, &readings); err != nil {
				return err
			}
		}
		readings = append(readings, reading)
		raw, err := json.Marshal(readings)
		if err != nil {
			return err
		}
		if err := tx.Model(&shipmentModel{}).Where("id = ?", id).
			Update("temperature_log", datatypes.JSON(raw)).Error; err != nil {
			return err
		}
		row.TemperatureLog = raw
		out, err = toShipment(row)
		return err
	})
	if err != nil {
		return models.Shipment{}, err
	}
	return out, nil
}

func (r *Repository) nextDisplayID(ctx context.Context, prefix string) (string, error) {
	today := time.Now().UTC().Format("20060102")
	pattern := fmt.Sprintf("%s-%s-%%", prefix, today)
	var count int64
	if err := r.db.WithContext(ctx).Model(&shipmentModel{}).
		Where("shipment_id LIKE ?", pattern).Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, today, count+1), nil
}

func newTrackingNumber() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "TRK" + strings.ToUpper(raw[:8])
}

func fromShipment(s models.Shipment) (shipmentModel, error) {
	updates, err := json.Marshal(s.TrackingUpdates)
	if err != nil {
		return shipmentModel{}, err
	}
	readings, err := json.Marshal(s.TemperatureLog)
	if err != nil {
		return shipmentModel{}, err
	}
	return shipmentModel{
		ID:                  s.ID,
		ShipmentID:          s.ShipmentID,
		TrackingNumber:      s.TrackingNumber,
		IssuanceID:          s.IssuanceID,
		Destination:         s.Destination,
		DestinationAddress:  s.DestinationAddress,
		ContactPerson:       s.ContactPerson,
		ContactPhone:        s.ContactPhone,
		TransportMethod:     s.TransportMethod,
		VehicleID:           s.VehicleID,
		DriverName:          s.DriverName,
		DriverPhone:         s.DriverPhone,
		CourierCompany:      s.CourierCompany,
		CourierContact:      s.CourierContact,
		CourierTrackingNo:   s.CourierTrackingNo,
		SpecialInstructions: s.SpecialInstructions,
		EstimatedArrival:    s.EstimatedArrival,
		Status:              s.Status,
		CurrentLocation:     s.CurrentLocation,
		TrackingUpdates:     updates,
		TemperatureLog:      readings,
		CreatedBy:           s.CreatedBy,
		CreatedAt:           s.CreatedAt,
	}, nil
}

func toShipment(row shipmentModel) (models.Shipment, error) {
	s := models.Shipment{
		ID:                  row.ID,
		ShipmentID:          row.ShipmentID,
		TrackingNumber:      row.TrackingNumber,
		IssuanceID:          row.IssuanceID,
		Destination:         row.Destination,
		DestinationAddress:  row.DestinationAddress,
		ContactPerson:       row.ContactPerson,
		ContactPhone:        row.ContactPhone,
		TransportMethod:     row.TransportMethod,
		VehicleID:           row.VehicleID,
		DriverName:          row.DriverName,
		DriverPhone:         row.DriverPhone,
		CourierCompany:      row.CourierCompany,
		CourierContact:      row.CourierContact,
		CourierTrackingNo:   row.CourierTrackingNo,
		SpecialInstructions: row.SpecialInstructions,
		EstimatedArrival:    row.EstimatedArrival,
		Status:              row.Status,
		CurrentLocation:     row.CurrentLocation,
		CreatedBy:           row.CreatedBy,
		CreatedAt:           row.CreatedAt,
	}
	if len(row.TrackingUpdates) > 0 {
		if err := json.Unmarshal(row.TrackingUpdates, &s.TrackingUpdates); err != nil {
			return models.Shipment{}, err
		}
	}
	if len(row.TemperatureLog) > 0 {
		if err := json.Unmarshal(row.TemperatureLog, &s.TemperatureLog); err != nil {
			return models.Shipment{}, err
		}
	}
	return s, nil
}
