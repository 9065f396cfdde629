package logistics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hemolink/platform/pkg/common/models"
	"github.com/hemolink/platform/pkg/requests"
)

type fakeShipments struct {
	byID map[uuid.UUID]*models.Shipment
	seq  int
}

func newFakeShipments() *fakeShipments {
	return &fakeShipments{byID: map[uuid.UUID]*models.Shipment{}}
}

func (f *fakeShipments) Create(_ context.Context, shipment models.Shipment) (models.Shipment, error) {
	f.seq++
	shipment.ID = uuid.New()
	shipment.ShipmentID = fmt.Sprintf("SHP-TEST-%04d", f.seq)
	shipment.TrackingNumber = fmt.Sprintf("TRK%08d", f.seq)
	shipment.CreatedAt = time.Now().UTC()
	copied := shipment
	f.byID[shipment.ID] = &copied
	return shipment, nil
}

func (f *fakeShipments) Get(_ context.Context, ref string) (models.Shipment, error) {
	for _, s := range f.byID {
		if s.ID.String() == ref || s.ShipmentID == ref || s.TrackingNumber == ref {
			return *s, nil
		}
	}
	return models.Shipment{}, ErrNotFound
}

func (f *fakeShipments) List(_ context.Context, status, _ string) ([]models.Shipment, error) {
	var out []models.Shipment
	for _, s := range f.byID {
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeShipments) AppendTracking(_ context.Context, id uuid.UUID, update models.TrackingUpdate) (models.Shipment, error) {
	s, ok := f.byID[id]
	if !ok {
		return models.Shipment{}, ErrNotFound
	}
	s.TrackingUpdates = append(s.TrackingUpdates, update)
	s.Status = update.Status
	s.CurrentLocation = update.Location
	return *s, nil
}

func (f *fakeShipments) AppendTemperature(_ context.Context, id uuid.UUID, reading models.TemperatureReading) (models.Shipment, error) {
	s, ok := f.byID[id]
	if !ok {
		return models.Shipment{}, ErrNotFound
	}
	s.TemperatureLog = append(s.TemperatureLog, reading)
	return *s, nil
}

type fakeIssuances struct {
	byID map[uuid.UUID]*models.Issuance
}

func (f *fakeIssuances) GetIssuance(_ context.Context, ref string) (models.Issuance, error) {
	for _, i := range f.byID {
		if i.ID.String() == ref || i.IssueID == ref {
			return *i, nil
		}
	}
	return models.Issuance{}, requests.ErrIssuanceNotFound
}

func (f *fakeIssuances) AttachShipment(_ context.Context, ref string, shipmentID uuid.UUID) (models.Issuance, error) {
	for _, i := range f.byID {
		if i.ID.String() == ref || i.IssueID == ref {
			i.ShipmentID = &shipmentID
			return *i, nil
		}
	}
	return models.Issuance{}, requests.ErrIssuanceNotFound
}

func (f *fakeIssuances) MarkDelivered(_ context.Context, _ models.UserContext, ref, receivedBy string) (models.Issuance, error) {
	for _, i := range f.byID {
		if i.ID.String() == ref || i.IssueID == ref {
			i.Status = requests.IssuanceDelivered
			i.ReceivedBy = receivedBy
			return *i, nil
		}
	}
	return models.Issuance{}, requests.ErrIssuanceNotFound
}

func addIssuance(f *fakeIssuances, status string) *models.Issuance {
	i := &models.Issuance{ID: uuid.New(), IssueID: "ISS-TEST-0001", Status: status}
	f.byID[i.ID] = i
	return i
}

var courier = models.UserContext{ID: "log-1", Role: models.RoleDistribution}

func newTestService() (*Service, *fakeShipments, *fakeIssuances) {
	shipments := newFakeShipments()
	issuances := &fakeIssuances{byID: map[uuid.UUID]*models.Issuance{}}
	return NewService(shipments, issuances), shipments, issuances
}

func TestCreateRequiresShippedIssuance(t *testing.T) {
	svc, _, issuances := newTestService()
	addIssuance(issuances, requests.IssuancePacking)

	_, err := svc.Create(context.Background(), courier, CreateShipmentRequest{
		IssuanceRef: "ISS-TEST-0001", Destination: "City Hospital",
	})
	if !errors.Is(err, ErrIssuanceNotShipped) {
		t.Fatalf("expected ErrIssuanceNotShipped, got %v", err)
	}
}

func TestCreateLinksShipmentToIssuance(t *testing.T) {
	svc, _, issuances := newTestService()
	issuance := addIssuance(issuances, requests.IssuanceShipped)

	shipment, err := svc.Create(context.Background(), courier, CreateShipmentRequest{
		IssuanceRef:     issuance.IssueID,
		Destination:     "City Hospital",
		TransportMethod: TransportThirdParty,
		CourierCompany:  "ColdChain Express",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if shipment.Status != StatusDispatching || shipment.CurrentLocation != "Blood Bank" {
		t.Fatalf("shipment = %+v", shipment)
	}
	if len(shipment.TrackingUpdates) != 1 || shipment.TrackingUpdates[0].Status != StatusDispatching {
		t.Fatalf("tracking updates = %+v", shipment.TrackingUpdates)
	}
	if issuance.ShipmentID == nil || *issuance.ShipmentID != shipment.ID {
		t.Fatalf("issuance not linked: %+v", issuance)
	}
}

func TestCreateRejectsUnknownTransport(t *testing.T) {
	svc, _, issuances := newTestService()
	addIssuance(issuances, requests.IssuanceShipped)

	_, err := svc.Create(context.Background(), courier, CreateShipmentRequest{
		IssuanceRef: "ISS-TEST-0001", Destination: "City Hospital", TransportMethod: "drone",
	})
	if !errors.Is(err, ErrInvalidTransport) {
		t.Fatalf("expected ErrInvalidTransport, got %v", err)
	}
}

func TestDeliveredTrackingCompletesIssuance(t *testing.T) {
	svc, _, issuances := newTestService()
	issuance := addIssuance(issuances, requests.IssuanceShipped)
	shipment, err := svc.Create(context.Background(), courier, CreateShipmentRequest{
		IssuanceRef: issuance.IssueID, Destination: "City Hospital",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	inTransit, err := svc.AddTracking(context.Background(), courier, shipment.ShipmentID, TrackingRequest{
		Location: "Highway checkpoint",
	})
	if err != nil {
		t.Fatalf("tracking: %v", err)
	}
	if inTransit.Status != StatusInTransit {
		t.Fatalf("status = %s, want in_transit", inTransit.Status)
	}
	if issuance.Status != requests.IssuanceShipped {
		t.Fatalf("issuance completed too early: %s", issuance.Status)
	}

	delivered, err := svc.AddTracking(context.Background(), courier, shipment.ShipmentID, TrackingRequest{
		Location: "City Hospital", Status: StatusDelivered, ReceivedBy: "Nurse Joy",
	})
	if err != nil {
		t.Fatalf("delivery tracking: %v", err)
	}
	if delivered.Status != StatusDelivered || len(delivered.TrackingUpdates) != 3 {
		t.Fatalf("delivered = %+v", delivered)
	}
	if issuance.Status != requests.IssuanceDelivered || issuance.ReceivedBy != "Nurse Joy" {
		t.Fatalf("issuance = %+v", issuance)
	}
}

func TestTemperatureLogAccumulates(t *testing.T) {
	svc, _, issuances := newTestService()
	issuance := addIssuance(issuances, requests.IssuanceShipped)
	shipment, err := svc.Create(context.Background(), courier, CreateShipmentRequest{
		IssuanceRef: issuance.IssueID, Destination: "City Hospital",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, c := range []float64{4.1, 4.5} {
		if _, err := svc.AddTemperature(context.Background(), courier, shipment.TrackingNumber, TemperatureRequest{Celsius: c}); err != nil {
			t.Fatalf("temperature: %v", err)
		}
	}
	stored, err := svc.Get(context.Background(), shipment.TrackingNumber)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.TemperatureLog) != 2 || stored.TemperatureLog[1].Celsius != 4.5 {
		t.Fatalf("temperature log = %+v", stored.TemperatureLog)
	}
}
