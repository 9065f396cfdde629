package donors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hemolink/platform/pkg/common/models"
)

var ErrNotFound = errors.New("donor not found")

type donorModel struct {
	ID               uuid.UUID  `gorm:"primaryKey;column:id"`
	DonorID          string     `gorm:"column:donor_id;uniqueIndex"`
	FullName         string     `gorm:"column:full_name"`
	DateOfBirth      time.Time  `gorm:"column:date_of_birth"`
	Gender           string     `gorm:"column:gender"`
	BloodGroup       string     `gorm:"column:blood_group;index"`
	Phone            string     `gorm:"column:phone;index"`
	Email            string     `gorm:"column:email"`
	Address          string     `gorm:"column:address"`
	Status           string     `gorm:"column:status;index"`
	DeferralEndDate  *time.Time `gorm:"column:deferral_end_date"`
	DeferralReason   string     `gorm:"column:deferral_reason"`
	ConsentGiven     bool       `gorm:"column:consent_given"`
	TotalDonations   int        `gorm:"column:total_donations"`
	LastDonationDate *time.Time `gorm:"column:last_donation_date"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (donorModel) TableName() string { return "donors" }

type donationModel struct {
	ID                uuid.UUID  `gorm:"primaryKey;column:id"`
	DonationID        string     `gorm:"column:donation_id;uniqueIndex"`
	DonorID           uuid.UUID  `gorm:"column:donor_id;index"`
	UnitID            *uuid.UUID `gorm:"column:unit_id"`
	DonationType      string     `gorm:"column:donation_type"`
	CollectionDate    time.Time  `gorm:"column:collection_date;index"`
	VolumeCollectedML float64    `gorm:"column:volume_collected_ml"`
	Phlebotomist      string     `gorm:"column:phlebotomist"`
	BagBarcode        string     `gorm:"column:bag_barcode"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
}

func (donationModel) TableName() string { return "donations" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&donorModel{}, &donationModel{}); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) CreateDonor(ctx context.Context, donor models.Donor) (models.Donor, error) {
	now := time.Now().UTC()
	donor.ID = uuid.New()
	displayID, err := r.nextDisplayID(ctx, &donorModel{}, "donor_id", "DNR")
	if err != nil {
		return models.Donor{}, err
	}
	donor.DonorID = displayID
	donor.CreatedAt = now
	donor.UpdatedAt = now

	row := fromDonor(donor)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Donor{}, err
	}
	return donor, nil
}

func (r *Repository) GetDonor(ctx context.Context, ref string) (models.Donor, error) {
	var row donorModel
	q := r.db.WithContext(ctx)
	if id, err := uuid.Parse(ref); err == nil {
		q = q.Where("id = ?", id)
	} else {
		q = q.Where("donor_id = ? OR phone = ?", ref, ref)
	}
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Donor{}, ErrNotFound
		}
		return models.Donor{}, err
	}
	return toDonor(row), nil
}

func (r *Repository) ListDonors(ctx context.Context, status models.DonorStatus, bloodGroup models.BloodGroup, query string) ([]models.Donor, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if bloodGroup != "" {
		q = q.Where("blood_group = ?", string(bloodGroup))
	}
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("full_name ILIKE ? OR donor_id ILIKE ? OR phone ILIKE ?", like, like, like)
	}
	var rows []donorModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	donors := make([]models.Donor, 0, len(rows))
	for _, row := range rows {
		donors = append(donors, toDonor(row))
	}
	return donors, nil
}

func (r *Repository) UpdateDonor(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (models.Donor, error) {
	updates["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&donorModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return models.Donor{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.Donor{}, ErrNotFound
	}
	return r.GetDonor(ctx, id.String())
}

// RecordDonationTally bumps the donor's donation counters after a successful
// collection.
func (r *Repository) RecordDonationTally(ctx context.Context, id uuid.UUID, collectedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&donorModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"total_donations":    gorm.Expr("total_donations + 1"),
		"last_donation_date": collectedAt,
		"updated_at":         time.Now().UTC(),
	}).Error
}

func (r *Repository) CreateDonation(ctx context.Context, donation models.Donation) (models.Donation, error) {
	donation.ID = uuid.New()
	displayID, err := r.nextDisplayID(ctx, &donationModel{}, "donation_id", "DON")
	if err != nil {
		return models.Donation{}, err
	}
	donation.DonationID = displayID
	donation.CreatedAt = time.Now().UTC()

	row := fromDonation(donation)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Donation{}, err
	}
	return donation, nil
}

func (r *Repository) ListDonations(ctx context.Context, donorID uuid.UUID) ([]models.Donation, error) {
	var rows []donationModel
	if err := r.db.WithContext(ctx).
		Where("donor_id = ?", donorID).
		Order("collection_date DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	donations := make([]models.Donation, 0, len(rows))
	for _, row := range rows {
		donations = append(donations, toDonation(row))
	}
	return donations, nil
}

// DonationForUnit finds the collection record behind a blood unit.
func (r *Repository) DonationForUnit(ctx context.Context, unitID uuid.UUID) (models.Donation, error) {
	var row donationModel
	if err := r.db.WithContext(ctx).Where("unit_id = ?", unitID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Donation{}, ErrNotFound
		}
		return models.Donation{}, err
	}
	return toDonation(row), nil
}

func (r *Repository) CountDonors(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&donorModel{}).Count(&count).Error
	return count, err
}

func (r *Repository) CountDonationsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&donationModel{}).
		Where("collection_date >= ?", since).Count(&count).Error
	return count, err
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

func fromDonor(d models.Donor) donorModel {
	return donorModel{
		ID:               d.ID,
		DonorID:          d.DonorID,
		FullName:         d.FullName,
		DateOfBirth:      d.DateOfBirth,
		Gender:           d.Gender,
		BloodGroup:       string(d.BloodGroup),
		Phone:            d.Phone,
		Email:            d.Email,
		Address:          d.Address,
		Status:           string(d.Status),
		DeferralEndDate:  d.DeferralEndDate,
		DeferralReason:   d.DeferralReason,
		ConsentGiven:     d.ConsentGiven,
		TotalDonations:   d.TotalDonations,
		LastDonationDate: d.LastDonationDate,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func toDonor(row donorModel) models.Donor {
	return models.Donor{
		ID:               row.ID,
		DonorID:          row.DonorID,
		FullName:         row.FullName,
		DateOfBirth:      row.DateOfBirth,
		Gender:           row.Gender,
		BloodGroup:       models.BloodGroup(row.BloodGroup),
		Phone:            row.Phone,
		Email:            row.Email,
		Address:          row.Address,
		Status:           models.DonorStatus(row.Status),
		DeferralEndDate:  row.DeferralEndDate,
		DeferralReason:   row.DeferralReason,
		ConsentGiven:     row.ConsentGiven,
		TotalDonations:   row.TotalDonations,
		LastDonationDate: row.LastDonationDate,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func fromDonation(d models.Donation) donationModel {
	return donationModel{
		ID:                d.ID,
		DonationID:        d.DonationID,
		DonorID:           d.DonorID,
		UnitID:            d.UnitID,
		DonationType:      d.DonationType,
		CollectionDate:    d.CollectionDate,
		VolumeCollectedML: d.VolumeCollectedML,
		Phlebotomist:      d.Phlebotomist,
		BagBarcode:        d.BagBarcode,
		CreatedAt:         d.CreatedAt,
	}
}

func toDonation(row donationModel) models.Donation {
	return models.Donation{
		ID:                row.ID,
		DonationID:        row.DonationID,
		DonorID:           row.DonorID,
		UnitID:            row.UnitID,
		DonationType:      row.DonationType,
		CollectionDate:    row.CollectionDate,
		VolumeCollectedML: row.VolumeCollectedML,
		Phlebotomist:      row.Phlebotomist,
		BagBarcode:        row.BagBarcode,
		CreatedAt:         row.CreatedAt,
	}
}
