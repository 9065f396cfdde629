package donors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hemolink/platform/pkg/common/models"
)

type fakeRecords struct {
	donors    map[uuid.UUID]*models.Donor
	donations []models.Donation
	seq       int
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{donors: map[uuid.UUID]*models.Donor{}}
}

func (f *fakeRecords) CreateDonor(_ context.Context, donor models.Donor) (models.Donor, error) {
	f.seq++
	donor.ID = uuid.New()
	donor.DonorID = fmt.Sprintf("DNR-TEST-%04d", f.seq)
	f.donors[donor.ID] = &donor
	return donor, nil
}

func (f *fakeRecords) GetDonor(_ context.Context, ref string) (models.Donor, error) {
	for _, d := range f.donors {
		if d.ID.String() == ref || d.DonorID == ref || d.Phone == ref {
			return *d, nil
		}
	}
	return models.Donor{}, ErrNotFound
}

func (f *fakeRecords) ListDonors(_ context.Context, status models.DonorStatus, bloodGroup models.BloodGroup, _ string) ([]models.Donor, error) {
	var out []models.Donor
	for _, d := range f.donors {
		if status != "" && d.Status != status {
			continue
		}
		if bloodGroup != "" && d.BloodGroup != bloodGroup {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeRecords) UpdateDonor(_ context.Context, id uuid.UUID, updates map[string]interface{}) (models.Donor, error) {
	d, ok := f.donors[id]
	if !ok {
		return models.Donor{}, ErrNotFound
	}
	if v, ok := updates["status"].(string); ok {
		d.Status = models.DonorStatus(v)
	}
	if v, ok := updates["deferral_reason"].(string); ok {
		d.DeferralReason = v
	}
	if v, ok := updates["deferral_end_date"].(*time.Time); ok {
		d.DeferralEndDate = v
	}
	if v, ok := updates["phone"].(string); ok {
		d.Phone = v
	}
	return *d, nil
}

func (f *fakeRecords) RecordDonationTally(_ context.Context, id uuid.UUID, collectedAt time.Time) error {
	d, ok := f.donors[id]
	if !ok {
		return ErrNotFound
	}
	d.TotalDonations++
	at := collectedAt
	d.LastDonationDate = &at
	return nil
}

func (f *fakeRecords) CreateDonation(_ context.Context, donation models.Donation) (models.Donation, error) {
	f.seq++
	donation.ID = uuid.New()
	donation.DonationID = fmt.Sprintf("DON-TEST-%04d", f.seq)
	f.donations = append(f.donations, donation)
	return donation, nil
}

func (f *fakeRecords) ListDonations(_ context.Context, donorID uuid.UUID) ([]models.Donation, error) {
	var out []models.Donation
	for _, d := range f.donations {
		if d.DonorID == donorID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeUnits struct {
	units []models.BloodUnit
}

func (f *fakeUnits) CreateUnit(_ context.Context, unit models.BloodUnit) (models.BloodUnit, error) {
	unit.ID = uuid.New()
	unit.UnitID = fmt.Sprintf("UN-TEST-%04d", len(f.units)+1)
	f.units = append(f.units, unit)
	return unit, nil
}

type fakeCustody struct {
	events []models.CustodyEvent
}

func (f *fakeCustody) Record(_ context.Context, event models.CustodyEvent) error {
	f.events = append(f.events, event)
	return nil
}

var phlebotomist = models.UserContext{ID: "phl-1", Role: models.RolePhlebotomist}

func newTestService() (*Service, *fakeRecords, *fakeUnits, *fakeCustody) {
	records := newFakeRecords()
	units := &fakeUnits{}
	custodyLog := &fakeCustody{}
	return NewService(records, units, custodyLog, 35*24*time.Hour), records, units, custodyLog
}

func registerDonor(t *testing.T, svc *Service) models.Donor {
	t.Helper()
	donor, err := svc.Register(context.Background(), phlebotomist, RegisterRequest{
		FullName:     "Asha Patel",
		DateOfBirth:  time.Date(1990, 5, 12, 0, 0, 0, 0, time.UTC),
		Gender:       "female",
		BloodGroup:   models.BloodGroupONeg,
		Phone:        "555-0101",
		ConsentGiven: true,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return donor
}

func TestRegisterRequiresConsent(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.Register(context.Background(), phlebotomist, RegisterRequest{
		FullName: "Asha Patel", Phone: "555-0101",
	})
	if !errors.Is(err, ErrConsentRequired) {
		t.Fatalf("expected ErrConsentRequired, got %v", err)
	}
}

func TestCollectOpensCollectedUnit(t *testing.T) {
	svc, records, units, custodyLog := newTestService()
	donor := registerDonor(t, svc)

	result, err := svc.Collect(context.Background(), phlebotomist, CollectRequest{
		DonorRef:   donor.DonorID,
		VolumeML:   450,
		BagBarcode: "BAG-001",
	})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	unit := result.Unit
	if unit.Status != models.StatusCollected {
		t.Fatalf("unit status = %s, want collected", unit.Status)
	}
	if unit.BloodGroup != models.BloodGroupONeg || unit.BagBarcode != "BAG-001" {
		t.Fatalf("unit = %+v", unit)
	}
	if unit.ExpiryDate == nil {
		t.Fatalf("unit expiry not set")
	}
	wantExpiry := unit.CollectionDate.Add(35 * 24 * time.Hour)
	if !unit.ExpiryDate.Equal(wantExpiry) {
		t.Fatalf("expiry = %v, want %v", unit.ExpiryDate, wantExpiry)
	}
	if result.Donation.UnitID == nil || *result.Donation.UnitID != unit.ID {
		t.Fatalf("donation not linked to unit: %+v", result.Donation)
	}

	stored := records.donors[donor.ID]
	if stored.TotalDonations != 1 || stored.LastDonationDate == nil {
		t.Fatalf("donor tally = %+v", stored)
	}
	if len(units.units) != 1 {
		t.Fatalf("units created = %d", len(units.units))
	}
	if len(custodyLog.events) != 1 || custodyLog.events[0].Stage != "Collection" {
		t.Fatalf("custody events = %+v", custodyLog.events)
	}
}

func TestCollectRejectsDeferredDonor(t *testing.T) {
	svc, _, _, _ := newTestService()
	donor := registerDonor(t, svc)
	if _, err := svc.Defer(context.Background(), phlebotomist, donor.DonorID, DeferRequest{Reason: "low hemoglobin"}); err != nil {
		t.Fatalf("defer: %v", err)
	}

	_, err := svc.Collect(context.Background(), phlebotomist, CollectRequest{DonorRef: donor.DonorID, VolumeML: 450})
	if !errors.Is(err, ErrDonorDeferred) {
		t.Fatalf("expected ErrDonorDeferred, got %v", err)
	}
}

func TestCollectEnforcesDonationInterval(t *testing.T) {
	svc, _, _, _ := newTestService()
	donor := registerDonor(t, svc)

	if _, err := svc.Collect(context.Background(), phlebotomist, CollectRequest{DonorRef: donor.DonorID, VolumeML: 450}); err != nil {
		t.Fatalf("first collect: %v", err)
	}
	_, err := svc.Collect(context.Background(), phlebotomist, CollectRequest{DonorRef: donor.DonorID, VolumeML: 450})
	if !errors.Is(err, ErrNotEligibleYet) {
		t.Fatalf("expected ErrNotEligibleYet, got %v", err)
	}
}

func TestReinstateClearsDeferral(t *testing.T) {
	svc, _, _, _ := newTestService()
	donor := registerDonor(t, svc)
	until := time.Now().Add(30 * 24 * time.Hour)
	if _, err := svc.Defer(context.Background(), phlebotomist, donor.DonorID, DeferRequest{Until: &until, Reason: "travel"}); err != nil {
		t.Fatalf("defer: %v", err)
	}

	reinstated, err := svc.Reinstate(context.Background(), phlebotomist, donor.DonorID)
	if err != nil {
		t.Fatalf("reinstate: %v", err)
	}
	if reinstated.Status != models.DonorActive || reinstated.DeferralReason != "" {
		t.Fatalf("reinstated = %+v", reinstated)
	}
}
