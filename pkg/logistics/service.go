package logistics

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hemolink/platform/pkg/common/logger"
	"github.com/hemolink/platform/pkg/common/models"
	"github.com/hemolink/platform/pkg/requests"
)

const (
	StatusDispatching = "dispatching"
	StatusInTransit   = "in_transit"
	StatusDelivered   = "delivered"

	TransportSelfVehicle = "self_vehicle"
	TransportThirdParty  = "third_party"
)

var (
	ErrIssuanceNotShipped = errors.New("issuance has not been shipped")
	ErrInvalidTransport   = errors.New("transport method must be self_vehicle or third_party")
)

// Shipments is the persistence port; *Repository satisfies it.
type Shipments interface {
	Create(ctx context.Context, shipment models.Shipment) (models.Shipment, error)
	Get(ctx context.Context, ref string) (models.Shipment, error)
	List(ctx context.Context, status, destination string) ([]models.Shipment, error)
	AppendTracking(ctx context.Context, id uuid.UUID, update models.TrackingUpdate) (models.Shipment, error)
	AppendTemperature(ctx context.Context, id uuid.UUID, reading models.TemperatureReading) (models.Shipment, error)
}

// Issuances is the slice of the request service the tracker needs;
// *requests.Service satisfies it.
type Issuances interface {
	GetIssuance(ctx context.Context, ref string) (models.Issuance, error)
	AttachShipment(ctx context.Context, issuanceRef string, shipmentID uuid.UUID) (models.Issuance, error)
	MarkDelivered(ctx context.Context, user models.UserContext, ref, receivedBy string) (models.Issuance, error)
}

type Service struct {
	shipments Shipments
	issuances Issuances
}

func NewService(shipments Shipments, issuances Issuances) *Service {
	return &Service{shipments: shipments, issuances: issuances}
}

type CreateShipmentRequest struct {
	IssuanceRef         string     `json:"issuance_id"`
	Destination         string     `json:"destination"`
	DestinationAddress  string     `json:"destination_address,omitempty"`
	ContactPerson       string     `json:"contact_person,omitempty"`
	ContactPhone        string     `json:"contact_phone,omitempty"`
	TransportMethod     string     `json:"transport_method"`
	VehicleID           string     `json:"vehicle_id,omitempty"`
	DriverName          string     `json:"driver_name,omitempty"`
	DriverPhone         string     `json:"driver_phone,omitempty"`
	CourierCompany      string     `json:"courier_company,omitempty"`
	CourierContact      string     `json:"courier_contact,omitempty"`
	CourierTrackingNo   string     `json:"courier_tracking_number,omitempty"`
	SpecialInstructions string     `json:"special_instructions,omitempty"`
	EstimatedArrival    *time.Time `json:"estimated_arrival,omitempty"`
}

// Create opens a shipment for a shipped issuance and links the two. The
// shipment starts in dispatching at the blood bank.
func (s *Service) Create(ctx context.Context, user models.UserContext, req CreateShipmentRequest) (models.Shipment, error) {
	method := req.TransportMethod
	if method == "" {
		method = TransportSelfVehicle
	}
	if method != TransportSelfVehicle && method != TransportThirdParty {
		return models.Shipment{}, ErrInvalidTransport
	}

	issuance, err := s.issuances.GetIssuance(ctx, req.IssuanceRef)
	if err != nil {
		return models.Shipment{}, err
	}
	if issuance.Status != requests.IssuanceShipped {
		return models.Shipment{}, ErrIssuanceNotShipped
	}

	now := time.Now().UTC()
	shipment, err := s.shipments.Create(ctx, models.Shipment{
		IssuanceID:          issuance.ID,
		Destination:         req.Destination,
		DestinationAddress:  req.DestinationAddress,
		ContactPerson:       req.ContactPerson,
		ContactPhone:        req.ContactPhone,
		TransportMethod:     method,
		VehicleID:           req.VehicleID,
		DriverName:          req.DriverName,
		DriverPhone:         req.DriverPhone,
		CourierCompany:      req.CourierCompany,
		CourierContact:      req.CourierContact,
		CourierTrackingNo:   req.CourierTrackingNo,
		SpecialInstructions: req.SpecialInstructions,
		EstimatedArrival:    req.EstimatedArrival,
		Status:              StatusDispatching,
		CurrentLocation:     "Blood Bank",
		TrackingUpdates: []models.TrackingUpdate{{
			Timestamp: now,
			Location:  "Blood Bank",
			Status:    StatusDispatching,
			UpdatedBy: user.ID,
		}},
		CreatedBy: user.ID,
	})
	if err != nil {
		return models.Shipment{}, err
	}

	if _, err := s.issuances.AttachShipment(ctx, issuance.IssueID, shipment.ID); err != nil {
		return models.Shipment{}, err
	}
	return shipment, nil
}

func (s *Service) Get(ctx context.Context, ref string) (models.Shipment, error) {
	return s.shipments.Get(ctx, ref)
}

func (s *Service) List(ctx context.Context, status, destination string) ([]models.Shipment, error) {
	return s.shipments.List(ctx, status, destination)
}

type TrackingRequest struct {
	Location   string `json:"location"`
	Status     string `json:"status"`
	Notes      string `json:"notes,omitempty"`
	ReceivedBy string `json:"received_by,omitempty"`
}

// AddTracking appends a tracking event. A delivered event also completes the
// linked issuance.
func (s *Service) AddTracking(ctx context.Context, user models.UserContext, ref string, req TrackingRequest) (models.Shipment, error) {
	shipment, err := s.shipments.Get(ctx, ref)
	if err != nil {
		return models.Shipment{}, err
	}

	status := req.Status
	if status == "" {
		status = StatusInTransit
	}
	updated, err := s.shipments.AppendTracking(ctx, shipment.ID, models.TrackingUpdate{
		Timestamp: time.Now().UTC(),
		Location:  req.Location,
		Status:    status,
		UpdatedBy: user.ID,
		Notes:     req.Notes,
	})
	if err != nil {
		return models.Shipment{}, err
	}

	if status == StatusDelivered {
		receivedBy := req.ReceivedBy
		if receivedBy == "" {
			receivedBy = shipment.ContactPerson
		}
		if _, err := s.issuances.MarkDelivered(ctx, user, shipment.IssuanceID.String(), receivedBy); err != nil {
			logger.Log.WithError(err).WithField("shipment_id", shipment.ShipmentID).
				Warn("shipment delivered but issuance could not be completed")
		}
	}
	return updated, nil
}

type TemperatureRequest struct {
	Celsius float64 `json:"celsius"`
}

func (s *Service) AddTemperature(ctx context.Context, user models.UserContext, ref string, req TemperatureRequest) (models.Shipment, error) {
	shipment, err := s.shipments.Get(ctx, ref)
	if err != nil {
		return models.Shipment{}, err
	}
	return s.shipments.AppendTemperature(ctx, shipment.ID, models.TemperatureReading{
		Timestamp:  time.Now().UTC(),
		Celsius:    req.Celsius,
		RecordedBy: user.ID,
	})
}
