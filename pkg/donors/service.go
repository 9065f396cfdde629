package donors

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hemolink/platform/pkg/common/models"
)

// Whole-blood donors wait at least this long between collections.
const donationInterval = 90 * 24 * time.Hour

var (
	ErrConsentRequired = errors.New("donor consent is required")
	ErrDonorDeferred   = errors.New("donor is deferred")
	ErrNotEligibleYet  = errors.New("donor donated too recently")
)

// Records is the persistence port; *Repository satisfies it.
type Records interface {
	CreateDonor(ctx context.Context, donor models.Donor) (models.Donor, error)
	GetDonor(ctx context.Context, ref string) (models.Donor, error)
	ListDonors(ctx context.Context, status models.DonorStatus, bloodGroup models.BloodGroup, query string) ([]models.Donor, error)
	UpdateDonor(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (models.Donor, error)
	RecordDonationTally(ctx context.Context, id uuid.UUID, collectedAt time.Time) error
	CreateDonation(ctx context.Context, donation models.Donation) (models.Donation, error)
	ListDonations(ctx context.Context, donorID uuid.UUID) ([]models.Donation, error)
}

// Units is the collection side of the inventory store;
// *inventory.Repository satisfies it.
type Units interface {
	CreateUnit(ctx context.Context, unit models.BloodUnit) (models.BloodUnit, error)
}

// CustodyLog records the collection event; *custody.Recorder satisfies it.
type CustodyLog interface {
	Record(ctx context.Context, event models.CustodyEvent) error
}

type Service struct {
	records Records
	units   Units
	custody CustodyLog
	shelf   time.Duration
}

// NewService wires the donor registry. wholeBloodShelf is the shelf life
// stamped onto collected units.
func NewService(records Records, units Units, custodyLog CustodyLog, wholeBloodShelf time.Duration) *Service {
	if wholeBloodShelf <= 0 {
		wholeBloodShelf = 35 * 24 * time.Hour
	}
	return &Service{records: records, units: units, custody: custodyLog, shelf: wholeBloodShelf}
}

type RegisterRequest struct {
	FullName     string            `json:"full_name"`
	DateOfBirth  time.Time         `json:"date_of_birth"`
	Gender       string            `json:"gender"`
	BloodGroup   models.BloodGroup `json:"blood_group,omitempty"`
	Phone        string            `json:"phone"`
	Email        string            `json:"email,omitempty"`
	Address      string            `json:"address,omitempty"`
	ConsentGiven bool              `json:"consent_given"`
}

func (s *Service) Register(ctx context.Context, user models.UserContext, req RegisterRequest) (models.Donor, error) {
	if !req.ConsentGiven {
		return models.Donor{}, ErrConsentRequired
	}
	return s.records.CreateDonor(ctx, models.Donor{
		FullName:     req.FullName,
		DateOfBirth:  req.DateOfBirth,
		Gender:       req.Gender,
		BloodGroup:   req.BloodGroup,
		Phone:        req.Phone,
		Email:        req.Email,
		Address:      req.Address,
		Status:       models.DonorActive,
		ConsentGiven: true,
	})
}

func (s *Service) Get(ctx context.Context, ref string) (models.Donor, error) {
	return s.records.GetDonor(ctx, ref)
}

func (s *Service) List(ctx context.Context, status models.DonorStatus, bloodGroup models.BloodGroup, query string) ([]models.Donor, error) {
	return s.records.ListDonors(ctx, status, bloodGroup, query)
}

type UpdateRequest struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

func (s *Service) Update(ctx context.Context, ref string, req UpdateRequest) (models.Donor, error) {
	donor, err := s.records.GetDonor(ctx, ref)
	if err != nil {
		return models.Donor{}, err
	}
	updates := map[string]interface{}{}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if req.Address != "" {
		updates["address"] = req.Address
	}
	if len(updates) == 0 {
		return donor, nil
	}
	return s.records.UpdateDonor(ctx, donor.ID, updates)
}

type DeferRequest struct {
	Permanent bool       `json:"permanent"`
	Until     *time.Time `json:"until,omitempty"`
	Reason    string     `json:"reason"`
}

func (s *Service) Defer(ctx context.Context, user models.UserContext, ref string, req DeferRequest) (models.Donor, error) {
	donor, err := s.records.GetDonor(ctx, ref)
	if err != nil {
		return models.Donor{}, err
	}
	status := models.DonorDeferredTemporary
	if req.Permanent {
		status = models.DonorDeferredPermanent
	}
	return s.records.UpdateDonor(ctx, donor.ID, map[string]interface{}{
		"status":            string(status),
		"deferral_end_date": req.Until,
		"deferral_reason":   req.Reason,
	})
}

func (s *Service) Reinstate(ctx context.Context, user models.UserContext, ref string) (models.Donor, error) {
	donor, err := s.records.GetDonor(ctx, ref)
	if err != nil {
		return models.Donor{}, err
	}
	return s.records.UpdateDonor(ctx, donor.ID, map[string]interface{}{
		"status":            string(models.DonorActive),
		"deferral_end_date": nil,
		"deferral_reason":   "",
	})
}

type CollectRequest struct {
	DonorRef       string     `json:"donor_id"`
	DonationType   string     `json:"donation_type,omitempty"`
	CollectionDate *time.Time `json:"collection_date,omitempty"`
	VolumeML       float64    `json:"volume_collected"`
	Phlebotomist   string     `json:"phlebotomist,omitempty"`
	BagBarcode     string     `json:"bag_barcode,omitempty"`
}

type CollectResult struct {
	Donation models.Donation  `json:"donation"`
	Unit     models.BloodUnit `json:"unit"`
}

// Collect records a donation and opens the collected blood unit that tracks
// the bag through the rest of the pipeline.
func (s *Service) Collect(ctx context.Context, user models.UserContext, req CollectRequest) (CollectResult, error) {
	donor, err := s.records.GetDonor(ctx, req.DonorRef)
	if err != nil {
		return CollectResult{}, err
	}
	if donor.Status != models.DonorActive {
		return CollectResult{}, ErrDonorDeferred
	}
	collectedAt := time.Now().UTC()
	if req.CollectionDate != nil {
		collectedAt = req.CollectionDate.UTC()
	}
	if donor.LastDonationDate != nil && collectedAt.Sub(*donor.LastDonationDate) < donationInterval {
		return CollectResult{}, ErrNotEligibleYet
	}

	expiry := collectedAt.Add(s.shelf)
	unit, err := s.units.CreateUnit(ctx, models.BloodUnit{
		DonorID:        &donor.ID,
		BagBarcode:     req.BagBarcode,
		BloodGroup:     donor.BloodGroup,
		Status:         models.StatusCollected,
		CollectionDate: collectedAt,
		ExpiryDate:     &expiry,
		VolumeML:       req.VolumeML,
		CreatedBy:      user.ID,
	})
	if err != nil {
		return CollectResult{}, err
	}

	donationType := req.DonationType
	if donationType == "" {
		donationType = "whole_blood"
	}
	donation, err := s.records.CreateDonation(ctx, models.Donation{
		DonorID:           donor.ID,
		UnitID:            &unit.ID,
		DonationType:      donationType,
		CollectionDate:    collectedAt,
		VolumeCollectedML: req.VolumeML,
		Phlebotomist:      req.Phlebotomist,
		BagBarcode:        req.BagBarcode,
	})
	if err != nil {
		return CollectResult{}, err
	}

	if err := s.records.RecordDonationTally(ctx, donor.ID, collectedAt); err != nil {
		return CollectResult{}, err
	}
	if err := s.custody.Record(ctx, models.CustodyEvent{
		ItemID:     unit.ID,
		ItemType:   models.ItemTypeUnit,
		Stage:      "Collection",
		ToLocation: "Collection Area",
		Reason:     "Donation " + donation.DonationID,
		GiverID:    user.ID,
		Confirmed:  true,
	}); err != nil {
		return CollectResult{}, err
	}
	return CollectResult{Donation: donation, Unit: unit}, nil
}

func (s *Service) Donations(ctx context.Context, donorRef string) (models.Donor, []models.Donation, error) {
	donor, err := s.records.GetDonor(ctx, donorRef)
	if err != nil {
		return models.Donor{}, nil, err
	}
	donations, err := s.records.ListDonations(ctx, donor.ID)
	if err != nil {
		return models.Donor{}, nil, err
	}
	return donor, donations, nil
}
