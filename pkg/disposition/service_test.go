package disposition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hemolink/platform/pkg/common/models"
	"github.com/hemolink/platform/pkg/inventory"
	"github.com/hemolink/platform/pkg/lifecycle"
)

type fakeInventory struct {
	comps map[uuid.UUID]*models.Component
}

func (f *fakeInventory) lookup(ref string) *models.Component {
	for _, c := range f.comps {
		if c.ID.String() == ref || c.ComponentID == ref {
			return c
		}
	}
	return nil
}

func (f *fakeInventory) GetItem(_ context.Context, _ models.ItemType, ref string) (models.InventoryItem, error) {
	c := f.lookup(ref)
	if c == nil {
		return models.InventoryItem{}, inventory.ErrNotFound
	}
	copied := *c
	return models.InventoryItem{Type: models.ItemTypeComponent, Component: &copied}, nil
}

func (f *fakeInventory) ApplyTransition(ctx context.Context, itemType models.ItemType, ref string, action lifecycle.Action, _ map[string]interface{}) (models.InventoryItem, error) {
	c := f.lookup(ref)
	if c == nil {
		return models.InventoryItem{}, inventory.ErrNotFound
	}
	next, err := lifecycle.Next(c.Status, action)
	if err != nil {
		return models.InventoryItem{}, &inventory.StateError{Current: c.Status}
	}
	c.Status = next
	return f.GetItem(ctx, itemType, ref)
}

type fakeRecords struct {
	returns  map[uuid.UUID]*models.ReturnRecord
	discards map[uuid.UUID]*models.DiscardRecord
	seq      int
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		returns:  map[uuid.UUID]*models.ReturnRecord{},
		discards: map[uuid.UUID]*models.DiscardRecord{},
	}
}

func (f *fakeRecords) CreateReturn(_ context.Context, record models.ReturnRecord) (models.ReturnRecord, error) {
	f.seq++
	record.ID = uuid.New()
	record.ReturnID = "RET-TEST-" + string(rune('0'+f.seq))
	f.returns[record.ID] = &record
	return record, nil
}

func (f *fakeRecords) GetReturn(_ context.Context, ref string) (models.ReturnRecord, error) {
	for _, r := range f.returns {
		if r.ID.String() == ref || r.ReturnID == ref {
			return *r, nil
		}
	}
	return models.ReturnRecord{}, ErrReturnNotFound
}

func (f *fakeRecords) ListReturns(_ context.Context, pendingOnly bool) ([]models.ReturnRecord, error) {
	var out []models.ReturnRecord
	for _, r := range f.returns {
		if pendingOnly && r.Decision != "" {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRecords) DecideReturn(_ context.Context, id uuid.UUID, qcPass *bool, decision, qcNotes, processedBy string) (models.ReturnRecord, error) {
	r, ok := f.returns[id]
	if !ok {
		return models.ReturnRecord{}, ErrReturnNotFound
	}
	if r.Decision != "" {
		return models.ReturnRecord{}, ErrAlreadyProcessed
	}
	r.QCPass = qcPass
	r.Decision = decision
	r.QCNotes = qcNotes
	r.ProcessedBy = processedBy
	return *r, nil
}

func (f *fakeRecords) CreateDiscard(_ context.Context, record models.DiscardRecord) (models.DiscardRecord, error) {
	f.seq++
	record.ID = uuid.New()
	record.DiscardID = "DSC-TEST-" + string(rune('0'+f.seq))
	f.discards[record.ID] = &record
	return record, nil
}

func (f *fakeRecords) GetDiscard(_ context.Context, ref string) (models.DiscardRecord, error) {
	for _, d := range f.discards {
		if d.ID.String() == ref || d.DiscardID == ref {
			return *d, nil
		}
	}
	return models.DiscardRecord{}, ErrDiscardNotFound
}

func (f *fakeRecords) ListDiscards(_ context.Context, reason models.DiscardReason) ([]models.DiscardRecord, error) {
	var out []models.DiscardRecord
	for _, d := range f.discards {
		if reason != "" && d.Reason != reason {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeRecords) MarkDestroyed(_ context.Context, id uuid.UUID, approvedBy string) (models.DiscardRecord, error) {
	d, ok := f.discards[id]
	if !ok {
		return models.DiscardRecord{}, ErrDiscardNotFound
	}
	if d.DestructionDate != nil {
		return models.DiscardRecord{}, ErrAlreadyDestroyed
	}
	now := time.Now().UTC()
	d.DestructionDate = &now
	d.ApprovedBy = approvedBy
	return *d, nil
}

func newTestService(status models.UnitStatus) (*Service, *fakeRecords, *models.Component) {
	comp := &models.Component{
		ID:            uuid.New(),
		ComponentID:   "CMP-1",
		ComponentType: models.ComponentPRC,
		Status:        status,
	}
	inv := &fakeInventory{comps: map[uuid.UUID]*models.Component{comp.ID: comp}}
	records := newFakeRecords()
	return NewService(records, inv), records, comp
}

var qcUser = models.UserContext{ID: "qc-1", Role: models.RoleQCManager}

func TestCreateReturnFromIssued(t *testing.T) {
	svc, _, comp := newTestService(models.StatusIssued)

	record, err := svc.CreateReturn(context.Background(), qcUser, CreateReturnRequest{
		ComponentRef: comp.ComponentID,
		Source:       "hospital",
		Reason:       "surplus",
		HospitalName: "City Hospital",
	})
	if err != nil {
		t.Fatalf("create return: %v", err)
	}
	if comp.Status != models.StatusReturned {
		t.Fatalf("component status = %s, want returned", comp.Status)
	}
	if record.ComponentID != comp.ID || record.Decision != "" {
		t.Fatalf("record = %+v", record)
	}
}

func TestCreateReturnRejectsNonIssued(t *testing.T) {
	svc, _, comp := newTestService(models.StatusReadyToUse)

	_, err := svc.CreateReturn(context.Background(), qcUser, CreateReturnRequest{
		ComponentRef: comp.ComponentID, Source: "hospital", Reason: "x",
	})
	var state *inventory.StateError
	if !errors.As(err, &state) {
		t.Fatalf("expected StateError, got %v", err)
	}
}

func TestProcessReturnAccept(t *testing.T) {
	svc, _, comp := newTestService(models.StatusIssued)
	record, _ := svc.CreateReturn(context.Background(), qcUser, CreateReturnRequest{
		ComponentRef: comp.ComponentID, Source: "hospital", Reason: "surplus",
	})

	pass := true
	processed, err := svc.ProcessReturn(context.Background(), qcUser, record.ReturnID, ProcessReturnRequest{
		QCPass: &pass, Decision: DecisionAccept,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if comp.Status != models.StatusReadyToUse {
		t.Fatalf("component status = %s, want ready_to_use", comp.Status)
	}
	if processed.Decision != DecisionAccept || processed.ProcessedBy != "qc-1" {
		t.Fatalf("processed = %+v", processed)
	}
}

func TestProcessReturnRejectAutoDiscards(t *testing.T) {
	svc, records, comp := newTestService(models.StatusIssued)
	record, _ := svc.CreateReturn(context.Background(), qcUser, CreateReturnRequest{
		ComponentRef: comp.ComponentID, Source: "hospital", Reason: "temperature excursion",
	})

	fail := false
	if _, err := svc.ProcessReturn(context.Background(), qcUser, record.ReturnID, ProcessReturnRequest{
		QCPass: &fail, Decision: DecisionReject, QCNotes: "cold chain broken",
	}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if comp.Status != models.StatusDiscarded {
		t.Fatalf("component status = %s, want discarded", comp.Status)
	}

	discards, _ := records.ListDiscards(context.Background(), models.DiscardRejectedReturn)
	if len(discards) != 1 {
		t.Fatalf("expected one auto discard record, got %d", len(discards))
	}
	if discards[0].ComponentID != comp.ID {
		t.Fatalf("discard for wrong component: %+v", discards[0])
	}
}

func TestProcessReturnTwiceFails(t *testing.T) {
	svc, _, comp := newTestService(models.StatusIssued)
	record, _ := svc.CreateReturn(context.Background(), qcUser, CreateReturnRequest{
		ComponentRef: comp.ComponentID, Source: "hospital", Reason: "surplus",
	})

	pass := true
	if _, err := svc.ProcessReturn(context.Background(), qcUser, record.ReturnID, ProcessReturnRequest{
		QCPass: &pass, Decision: DecisionAccept,
	}); err != nil {
		t.Fatalf("first process: %v", err)
	}
	_, err := svc.ProcessReturn(context.Background(), qcUser, record.ReturnID, ProcessReturnRequest{
		QCPass: &pass, Decision: DecisionReject,
	})
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
}

func TestProcessReturnInvalidDecision(t *testing.T) {
	svc, _, comp := newTestService(models.StatusIssued)
	record, _ := svc.CreateReturn(context.Background(), qcUser, CreateReturnRequest{
		ComponentRef: comp.ComponentID, Source: "hospital", Reason: "surplus",
	})

	_, err := svc.ProcessReturn(context.Background(), qcUser, record.ReturnID, ProcessReturnRequest{Decision: "maybe"})
	if !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision, got %v", err)
	}
}

func TestCreateDiscardFromStock(t *testing.T) {
	svc, _, comp := newTestService(models.StatusReadyToUse)

	record, err := svc.CreateDiscard(context.Background(), qcUser, CreateDiscardRequest{
		ComponentRef: comp.ComponentID,
		Reason:       models.DiscardExpired,
	})
	if err != nil {
		t.Fatalf("create discard: %v", err)
	}
	if comp.Status != models.StatusDiscarded {
		t.Fatalf("component status = %s, want discarded", comp.Status)
	}
	if record.Reason != models.DiscardExpired || record.ProcessedBy != "qc-1" {
		t.Fatalf("record = %+v", record)
	}
}

func TestMarkDestroyedOnce(t *testing.T) {
	svc, _, comp := newTestService(models.StatusReadyToUse)
	record, _ := svc.CreateDiscard(context.Background(), qcUser, CreateDiscardRequest{
		ComponentRef: comp.ComponentID, Reason: models.DiscardDamaged,
	})

	destroyed, err := svc.MarkDestroyed(context.Background(), qcUser, record.DiscardID)
	if err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if destroyed.DestructionDate == nil || destroyed.ApprovedBy != "qc-1" {
		t.Fatalf("destroyed = %+v", destroyed)
	}

	if _, err := svc.MarkDestroyed(context.Background(), qcUser, record.DiscardID); !errors.Is(err, ErrAlreadyDestroyed) {
		t.Fatalf("expected ErrAlreadyDestroyed, got %v", err)
	}
}
