package requests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hemolink/platform/pkg/common/models"
	"github.com/hemolink/platform/pkg/inventory"
	"github.com/hemolink/platform/pkg/lifecycle"
)

const (
	IssuancePicking   = "picking"
	IssuancePacking   = "packing"
	IssuanceShipped   = "shipped"
	IssuanceDelivered = "delivered"
)

var (
	ErrRequestNotApproved = errors.New("request is not approved")
	ErrBadProgression     = errors.New("issuance cannot skip pipeline stages")
)

// UnavailableError reports the components that could not be reserved for an
// issuance. The whole issuance is rolled back when any component fails.
type UnavailableError struct {
	Failed []inventory.ItemFailure
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%d components unavailable", len(e.Failed))
}

// Records is the persistence port; *Repository satisfies it.
type Records interface {
	CreateRequest(ctx context.Context, request models.BloodRequest) (models.BloodRequest, error)
	GetRequest(ctx context.Context, ref string) (models.BloodRequest, error)
	ListRequests(ctx context.Context, status models.RequestStatus, requestType models.RequestType) ([]models.BloodRequest, error)
	TransitionRequest(ctx context.Context, id uuid.UUID, from, to models.RequestStatus, extra map[string]interface{}) (models.BloodRequest, error)
	CreateIssuance(ctx context.Context, issuance models.Issuance) (models.Issuance, error)
	GetIssuance(ctx context.Context, ref string) (models.Issuance, error)
	ListIssuances(ctx context.Context, status string) ([]models.Issuance, error)
	TransitionIssuance(ctx context.Context, id uuid.UUID, from, to string, extra map[string]interface{}) (models.Issuance, error)
	SetIssuanceShipment(ctx context.Context, id, shipmentID uuid.UUID) error
}

// Inventory is the reservation side of the inventory service.
type Inventory interface {
	Reserve(ctx context.Context, user models.UserContext, req inventory.ReserveRequest) (inventory.ReserveResult, error)
	Release(ctx context.Context, user models.UserContext, itemType models.ItemType, ref string) (models.InventoryItem, error)
	FEFOCandidates(ctx context.Context, bloodGroup models.BloodGroup, componentType models.ComponentType, limit int) ([]inventory.ItemView, error)
}

// Transitions is the direct item-transition side; *inventory.Repository
// satisfies it.
type Transitions interface {
	GetItem(ctx context.Context, itemType models.ItemType, ref string) (models.InventoryItem, error)
	ApplyTransition(ctx context.Context, itemType models.ItemType, ref string, action lifecycle.Action, extra map[string]interface{}) (models.InventoryItem, error)
}

type Service struct {
	records     Records
	inventory   Inventory
	transitions Transitions
}

func NewService(records Records, inv Inventory, transitions Transitions) *Service {
	return &Service{records: records, inventory: inv, transitions: transitions}
}

type CreateRequestRequest struct {
	RequestType      models.RequestType   `json:"request_type"`
	RequesterName    string               `json:"requester_name"`
	RequesterContact string               `json:"requester_contact"`
	HospitalName     string               `json:"hospital_name,omitempty"`
	PatientName      string               `json:"patient_name,omitempty"`
	PatientID        string               `json:"patient_id,omitempty"`
	BloodGroup       models.BloodGroup    `json:"blood_group"`
	ProductType      models.ComponentType `json:"product_type"`
	Quantity         int                  `json:"quantity"`
	Urgency          string               `json:"urgency,omitempty"`
	RequiredByDate   *time.Time           `json:"required_by_date,omitempty"`
	Notes            string               `json:"notes,omitempty"`
}

func (s *Service) CreateRequest(ctx context.Context, user models.UserContext, req CreateRequestRequest) (models.BloodRequest, error) {
	requestType := req.RequestType
	if requestType == "" {
		requestType = models.RequestExternal
	}
	urgency := req.Urgency
	if urgency == "" {
		urgency = "routine"
	}
	return s.records.CreateRequest(ctx, models.BloodRequest{
		RequestType:      requestType,
		RequesterName:    req.RequesterName,
		RequesterContact: req.RequesterContact,
		HospitalName:     req.HospitalName,
		PatientName:      req.PatientName,
		PatientID:        req.PatientID,
		BloodGroup:       req.BloodGroup,
		ProductType:      req.ProductType,
		Quantity:         req.Quantity,
		Urgency:          urgency,
		Status:           models.RequestPending,
		RequestedDate:    time.Now().UTC(),
		RequiredByDate:   req.RequiredByDate,
		Notes:            req.Notes,
	})
}

func (s *Service) GetRequest(ctx context.Context, ref string) (models.BloodRequest, error) {
	return s.records.GetRequest(ctx, ref)
}

func (s *Service) ListRequests(ctx context.Context, status models.RequestStatus, requestType models.RequestType) ([]models.BloodRequest, error) {
	return s.records.ListRequests(ctx, status, requestType)
}

type ApproveRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes,omitempty"`
}

// Approve settles a pending request one way or the other.
func (s *Service) Approve(ctx context.Context, user models.UserContext, ref string, req ApproveRequest) (models.BloodRequest, error) {
	request, err := s.records.GetRequest(ctx, ref)
	if err != nil {
		return models.BloodRequest{}, err
	}
	to := models.RequestRejected
	if req.Approve {
		to = models.RequestApproved
	}
	extra := map[string]interface{}{
		"approved_by":   user.ID,
		"approval_date": time.Now().UTC(),
	}
	if req.Notes != "" {
		extra["notes"] = req.Notes
	}
	return s.records.TransitionRequest(ctx, request.ID, models.RequestPending, to, extra)
}

// Candidates lists reservable stock for a request, earliest expiry first.
func (s *Service) Candidates(ctx context.Context, ref string, limit int) (models.BloodRequest, []inventory.ItemView, error) {
	request, err := s.records.GetRequest(ctx, ref)
	if err != nil {
		return models.BloodRequest{}, nil, err
	}
	views, err := s.inventory.FEFOCandidates(ctx, request.BloodGroup, request.ProductType, limit)
	if err != nil {
		return models.BloodRequest{}, nil, err
	}
	return request, views, nil
}

type CreateIssuanceRequest struct {
	RequestRef    string   `json:"request_id"`
	ComponentRefs []string `json:"component_ids"`
}

// CreateIssuance reserves the named components against an approved request
// and opens the picking stage. All components reserve or none do.
func (s *Service) CreateIssuance(ctx context.Context, user models.UserContext, req CreateIssuanceRequest) (models.Issuance, error) {
	request, err := s.records.GetRequest(ctx, req.RequestRef)
	if err != nil {
		return models.Issuance{}, err
	}
	if request.Status != models.RequestApproved {
		return models.Issuance{}, ErrRequestNotApproved
	}

	componentIDs := make([]uuid.UUID, 0, len(req.ComponentRefs))
	for _, ref := range req.ComponentRefs {
		item, err := s.transitions.GetItem(ctx, models.ItemTypeComponent, ref)
		if err != nil {
			return models.Issuance{}, err
		}
		componentIDs = append(componentIDs, item.ID())
	}

	holder := request.HospitalName
	if holder == "" {
		holder = request.RequesterName
	}
	result, err := s.inventory.Reserve(ctx, user, inventory.ReserveRequest{
		ItemIDs:     req.ComponentRefs,
		ItemType:    models.ItemTypeComponent,
		RequestID:   request.RequestID,
		ReservedFor: holder,
	})
	if err != nil {
		return models.Issuance{}, err
	}
	if result.FailedCount > 0 {
		for _, ref := range result.Reserved {
			if _, err := s.inventory.Release(ctx, user, models.ItemTypeComponent, ref); err != nil {
				return models.Issuance{}, err
			}
		}
		return models.Issuance{}, &UnavailableError{Failed: result.Failed}
	}

	now := time.Now().UTC()
	return s.records.CreateIssuance(ctx, models.Issuance{
		RequestID:     request.ID,
		ComponentIDs:  componentIDs,
		Status:        IssuancePicking,
		PickTimestamp: &now,
		IssuedBy:      user.ID,
	})
}

func (s *Service) GetIssuance(ctx context.Context, ref string) (models.Issuance, error) {
	return s.records.GetIssuance(ctx, ref)
}

func (s *Service) ListIssuances(ctx context.Context, status string) ([]models.Issuance, error) {
	return s.records.ListIssuances(ctx, status)
}

var nextStage = map[string]string{
	IssuancePicking: IssuancePacking,
	IssuancePacking: IssuanceShipped,
	IssuanceShipped: IssuanceDelivered,
}

type ProgressRequest struct {
	Status     string `json:"status"`
	ReceivedBy string `json:"received_by,omitempty"`
}

// Progress advances an issuance one pipeline stage. Shipping flips every
// reserved component to issued and fulfils the request.
func (s *Service) Progress(ctx context.Context, user models.UserContext, ref string, req ProgressRequest) (models.Issuance, error) {
	issuance, err := s.records.GetIssuance(ctx, ref)
	if err != nil {
		return models.Issuance{}, err
	}
	if nextStage[issuance.Status] != req.Status {
		return models.Issuance{}, ErrBadProgression
	}

	now := time.Now().UTC()
	extra := map[string]interface{}{}
	switch req.Status {
	case IssuancePacking:
		extra["pack_timestamp"] = now
	case IssuanceShipped:
		for _, componentID := range issuance.ComponentIDs {
			if _, err := s.transitions.ApplyTransition(ctx, models.ItemTypeComponent, componentID.String(), lifecycle.ActionShip, nil); err != nil {
				return models.Issuance{}, err
			}
		}
		if _, err := s.records.TransitionRequest(ctx, issuance.RequestID, models.RequestApproved, models.RequestFulfilled, nil); err != nil {
			return models.Issuance{}, err
		}
		extra["ship_timestamp"] = now
	case IssuanceDelivered:
		extra["received_by"] = req.ReceivedBy
	}

	return s.records.TransitionIssuance(ctx, issuance.ID, issuance.Status, req.Status, extra)
}

// MarkDelivered completes a shipped issuance; the logistics tracker calls
// this when a shipment reports delivery.
func (s *Service) MarkDelivered(ctx context.Context, user models.UserContext, ref, receivedBy string) (models.Issuance, error) {
	return s.Progress(ctx, user, ref, ProgressRequest{Status: IssuanceDelivered, ReceivedBy: receivedBy})
}

// AttachShipment links the logistics shipment to its issuance.
func (s *Service) AttachShipment(ctx context.Context, issuanceRef string, shipmentID uuid.UUID) (models.Issuance, error) {
	issuance, err := s.records.GetIssuance(ctx, issuanceRef)
	if err != nil {
		return models.Issuance{}, err
	}
	if err := s.records.SetIssuanceShipment(ctx, issuance.ID, shipmentID); err != nil {
		return models.Issuance{}, err
	}
	return s.records.GetIssuance(ctx, issuanceRef)
}
