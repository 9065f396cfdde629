package disposition

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hemolink/platform/pkg/common/logger"
	"github.com/hemolink/platform/pkg/common/models"
	"github.com/hemolink/platform/pkg/lifecycle"
)

var ErrInvalidDecision = errors.New("decision must be accept or reject")

const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

// Records is the persistence port; *Repository satisfies it.
type Records interface {
	CreateReturn(ctx context.Context, record models.ReturnRecord) (models.ReturnRecord, error)
	GetReturn(ctx context.Context, ref string) (models.ReturnRecord, error)
	ListReturns(ctx context.Context, pendingOnly bool) ([]models.ReturnRecord, error)
	DecideReturn(ctx context.Context, id uuid.UUID, qcPass *bool, decision, qcNotes, processedBy string) (models.ReturnRecord, error)
	CreateDiscard(ctx context.Context, record models.DiscardRecord) (models.DiscardRecord, error)
	GetDiscard(ctx context.Context, ref string) (models.DiscardRecord, error)
	ListDiscards(ctx context.Context, reason models.DiscardReason) ([]models.DiscardRecord, error)
	MarkDestroyed(ctx context.Context, id uuid.UUID, approvedBy string) (models.DiscardRecord, error)
}

// Inventory is the slice of the inventory store the disposition flows drive.
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

type CreateReturnRequest struct {
	ComponentRef        string `json:"component_id"`
	Source              string `json:"source"`
	Reason              string `json:"reason"`
	HospitalName        string `json:"hospital_name,omitempty"`
	ContactPerson       string `json:"contact_person,omitempty"`
	TransportConditions string `json:"transport_conditions,omitempty"`
}

// CreateReturn books an issued component back in as returned, pending QC.
func (s *Service) CreateReturn(ctx context.Context, user models.UserContext, req CreateReturnRequest) (models.ReturnRecord, error) {
	item, err := s.inventory.ApplyTransition(ctx, models.ItemTypeComponent, req.ComponentRef, lifecycle.ActionReturn, nil)
	if err != nil {
		return models.ReturnRecord{}, err
	}
	return s.records.CreateReturn(ctx, models.ReturnRecord{
		ComponentID:         item.ID(),
		ReturnDate:          time.Now().UTC(),
		Source:              req.Source,
		Reason:              req.Reason,
		HospitalName:        req.HospitalName,
		ContactPerson:       req.ContactPerson,
		TransportConditions: req.TransportConditions,
	})
}

func (s *Service) GetReturn(ctx context.Context, ref string) (models.ReturnRecord, error) {
	return s.records.GetReturn(ctx, ref)
}

func (s *Service) ListReturns(ctx context.Context, pendingOnly bool) ([]models.ReturnRecord, error) {
	return s.records.ListReturns(ctx, pendingOnly)
}

type ProcessReturnRequest struct {
	QCPass   *bool  `json:"qc_pass"`
	Decision string `json:"decision"`
	QCNotes  string `json:"qc_notes,omitempty"`
}

// ProcessReturn applies the QC decision. Accept puts the component back in
// stock; reject discards it and opens a discard record automatically.
func (s *Service) ProcessReturn(ctx context.Context, user models.UserContext, ref string, req ProcessReturnRequest) (models.ReturnRecord, error) {
	if req.Decision != DecisionAccept && req.Decision != DecisionReject {
		return models.ReturnRecord{}, ErrInvalidDecision
	}
	record, err := s.records.GetReturn(ctx, ref)
	if err != nil {
		return models.ReturnRecord{}, err
	}
	if record.Decision != "" {
		return models.ReturnRecord{}, ErrAlreadyProcessed
	}

	action := lifecycle.ActionReturnAccept
	if req.Decision == DecisionReject {
		action = lifecycle.ActionReturnReject
	}
	if _, err := s.inventory.ApplyTransition(ctx, models.ItemTypeComponent, record.ComponentID.String(), action, nil); err != nil {
		return models.ReturnRecord{}, err
	}

	if req.Decision == DecisionReject {
		if _, err := s.records.CreateDiscard(ctx, models.DiscardRecord{
			ComponentID:   record.ComponentID,
			Reason:        models.DiscardRejectedReturn,
			ReasonDetails: "Return rejected: " + req.QCNotes,
			DiscardDate:   time.Now().UTC(),
			ProcessedBy:   user.ID,
		}); err != nil {
			logger.Log.WithError(err).WithField("return_id", record.ReturnID).Error("auto discard record failed")
		}
	}
	return s.records.DecideReturn(ctx, record.ID, req.QCPass, req.Decision, req.QCNotes, user.ID)
}

type CreateDiscardRequest struct {
	ComponentRef  string               `json:"component_id"`
	Reason        models.DiscardReason `json:"reason"`
	ReasonDetails string               `json:"reason_details,omitempty"`
}

// CreateDiscard retires a component from stock with a reasoned record.
func (s *Service) CreateDiscard(ctx context.Context, user models.UserContext, req CreateDiscardRequest) (models.DiscardRecord, error) {
	item, err := s.inventory.ApplyTransition(ctx, models.ItemTypeComponent, req.ComponentRef, lifecycle.ActionDiscard, nil)
	if err != nil {
		return models.DiscardRecord{}, err
	}
	return s.records.CreateDiscard(ctx, models.DiscardRecord{
		ComponentID:   item.ID(),
		Reason:        req.Reason,
		ReasonDetails: req.ReasonDetails,
		DiscardDate:   time.Now().UTC(),
		ProcessedBy:   user.ID,
	})
}

func (s *Service) GetDiscard(ctx context.Context, ref string) (models.DiscardRecord, error) {
	return s.records.GetDiscard(ctx, ref)
}

func (s *Service) ListDiscards(ctx context.Context, reason models.DiscardReason) ([]models.DiscardRecord, error) {
	return s.records.ListDiscards(ctx, reason)
}

func (s *Service) MarkDestroyed(ctx context.Context, user models.UserContext, ref string) (models.DiscardRecord, error) {
	record, err := s.records.GetDiscard(ctx, ref)
	if err != nil {
		return models.DiscardRecord{}, err
	}
	return s.records.MarkDestroyed(ctx, record.ID, user.ID)
}
