package quarantine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hemolink/platform/pkg/common/models"
)

var (
	ErrNotFound        = errors.New("quarantine record not found")
	ErrAlreadyResolved = errors.New("quarantine record already resolved")
)

type quarantineModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ItemID          uuid.UUID  `gorm:"column:unit_component_id;type:uuid;index"`
	ItemType        string     `gorm:"column:unit_type;size:16"`
	SourceResult    string     `gorm:"size:16"`
	Reason          string
	RetestResult    string     `gorm:"size:16"`
	Disposition     string     `gorm:"size:16;index"`
	QuarantinedDate time.Time
	ResolvedDate    *time.Time
	ResolvedBy      string `gorm:"size:64"`
	CreatedAt       time.Time
}

func (quarantineModel) TableName() string { return "quarantine_records" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&quarantineModel{}); err != nil {
		return nil, fmt.Errorf("migrate quarantine records: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Create(ctx context.Context, record models.QuarantineRecord) (models.QuarantineRecord, error) {
	now := time.Now().UTC()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.QuarantinedDate.IsZero() {
		record.QuarantinedDate = now
	}
	row := quarantineModel{
		ID:              record.ID,
		ItemID:          record.ItemID,
		ItemType:        string(record.ItemType),
		SourceResult:    string(record.SourceResult),
		Reason:          record.Reason,
		QuarantinedDate: record.QuarantinedDate,
		CreatedAt:       now,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.QuarantineRecord{}, err
	}
	return toRecord(row), nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (models.QuarantineRecord, error) {
	var row quarantineModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.QuarantineRecord{}, ErrNotFound
	}
	if err != nil {
		return models.QuarantineRecord{}, err
	}
	return toRecord(row), nil
}

// List returns records, pending first. With pendingOnly only unresolved
// records come back.
func (r *Repository) List(ctx context.Context, pendingOnly bool) ([]models.QuarantineRecord, error) {
	q := r.db.WithContext(ctx).Order("quarantined_date DESC")
	if pendingOnly {
		q = q.Where("disposition = ''")
	}
	var rows []quarantineModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.QuarantineRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRecord(row))
	}
	return out, nil
}

// Resolve stamps the disposition on an unresolved record. The guard on
// disposition keeps a record from being resolved twice.
func (r *Repository) Resolve(ctx context.Context, id uuid.UUID, retest models.ScreeningResult, disposition, resolvedBy string) (models.QuarantineRecord, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&quarantineModel{}).
		Where("id = ? AND disposition = ''", id).
		Updates(map[string]interface{}{
			"retest_result": string(retest),
			"disposition":   disposition,
			"resolved_date": now,
			"resolved_by":   resolvedBy,
		})
	if res.Error != nil {
		return models.QuarantineRecord{}, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return models.QuarantineRecord{}, err
		}
		return models.QuarantineRecord{}, ErrAlreadyResolved
	}
	return r.Get(ctx, id)
}

func (r *Repository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&quarantineModel{}).Where("disposition = ''").Count(&count).Error
	return count, err
}

func toRecord(row quarantineModel) models.QuarantineRecord {
	return models.QuarantineRecord{
		ID:              row.ID,
		ItemID:          row.ItemID,
		ItemType:        models.ItemType(row.ItemType),
		SourceResult:    models.ScreeningResult(row.SourceResult),
		Reason:          row.Reason,
		RetestResult:    models.ScreeningResult(row.RetestResult),
		Disposition:     row.Disposition,
		QuarantinedDate: row.QuarantinedDate,
		ResolvedDate:    row.ResolvedDate,
		ResolvedBy:      row.ResolvedBy,
		CreatedAt:       row.CreatedAt,
	}
}
