package disposition

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
	ErrReturnNotFound   = errors.New("return record not found")
	ErrDiscardNotFound  = errors.New("discard record not found")
	ErrAlreadyProcessed = errors.New("return already processed")
	ErrAlreadyDestroyed = errors.New("discard already destroyed")
)

type returnModel struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReturnID            string    `gorm:"size:32;uniqueIndex"`
	ComponentID         uuid.UUID `gorm:"type:uuid;index"`
	ReturnDate          time.Time
	Source              string `gorm:"size:32"`
	Reason              string
	HospitalName        string `gorm:"size:128"`
	ContactPerson       string `gorm:"size:128"`
	TransportConditions string
	QCPass              *bool
	Decision            string `gorm:"size:16;index"`
	QCNotes             string
	ProcessedBy         string `gorm:"size:64"`
	CreatedAt           time.Time
}

func (returnModel) TableName() string { return "return_records" }

type discardModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	DiscardID       string    `gorm:"size:32;uniqueIndex"`
	ComponentID     uuid.UUID `gorm:"type:uuid;index"`
	Reason          string    `gorm:"size:24;index"`
	ReasonDetails   string
	DiscardDate     time.Time
	DestructionDate *time.Time
	ApprovedBy      string `gorm:"size:64"`
	ProcessedBy     string `gorm:"size:64"`
	CreatedAt       time.Time
}

func (discardModel) TableName() string { return "discard_records" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&returnModel{}, &discardModel{}); err != nil {
		return nil, fmt.Errorf("migrate disposition tables: %w", err)
	}
	return &Repository{db: db}, nil
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

// --- returns ---

func (r *Repository) CreateReturn(ctx context.Context, record models.ReturnRecord) (models.ReturnRecord, error) {
	now := time.Now().UTC()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.ReturnID == "" {
		id, err := r.nextDisplayID(ctx, &returnModel{}, "return_id", "RET")
		if err != nil {
			return models.ReturnRecord{}, err
		}
		record.ReturnID = id
	}
	if record.ReturnDate.IsZero() {
		record.ReturnDate = now
	}
	row := fromReturn(record)
	row.CreatedAt = now
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.ReturnRecord{}, err
	}
	return toReturn(row), nil
}

func (r *Repository) GetReturn(ctx context.Context, ref string) (models.ReturnRecord, error) {
	q := r.db.WithContext(ctx)
	if id, err := uuid.Parse(ref); err == nil {
		q = q.Where("id = ? OR return_id = ?", id, ref)
	} else {
		q = q.Where("return_id = ?", ref)
	}
	var row returnModel
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ReturnRecord{}, ErrReturnNotFound
	}
	if err != nil {
		return models.ReturnRecord{}, err
	}
	return toReturn(row), nil
}

func (r *Repository) ListReturns(ctx context.Context, pendingOnly bool) ([]models.ReturnRecord, error) {
	q := r.db.WithContext(ctx).Order("return_date DESC")
	if pendingOnly {
		q = q.Where("decision = ''")
	}
	var rows []returnModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.ReturnRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toReturn(row))
	}
	return out, nil
}

// DecideReturn stamps QC outcome and decision on a pending return.
func (r *Repository) DecideReturn(ctx context.Context, id uuid.UUID, qcPass *bool, decision, qcNotes, processedBy string) (models.ReturnRecord, error) {
	res := r.db.WithContext(ctx).Model(&returnModel{}).
		Where("id = ? AND decision = ''", id).
		Updates(map[string]interface{}{
			"qc_pass":      qcPass,
			"decision":     decision,
			"qc_notes":     qcNotes,
			"processed_by": processedBy,
		})
	if res.Error != nil {
		return models.ReturnRecord{}, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetReturn(ctx, id.String()); err != nil {
			return models.ReturnRecord{}, err
		}
		return models.ReturnRecord{}, ErrAlreadyProcessed
	}
	return r.GetReturn(ctx, id.String())
}

// --- discards ---

func (r *Repository) CreateDiscard(ctx context.Context, record models.DiscardRecord) (models.DiscardRecord, error) {
	now := time.Now().UTC()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.DiscardID == "" {
		id, err := r.nextDisplayID(ctx, &discardModel{}, "discard_id", "DSC")
		if err != nil {
			return models.DiscardRecord{}, err
		}
		record.DiscardID = id
	}
	if record.DiscardDate.IsZero() {
		record.DiscardDate = now
	}
	row := fromDiscard(record)
	row.CreatedAt = now
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.DiscardRecord{}, err
	}
	return toDiscard(row), nil
}

func (r *Repository) GetDiscard(ctx context.Context, ref string) (models.DiscardRecord, error) {
	q := r.db.WithContext(ctx)
	if id, err := uuid.Parse(ref); err == nil {
		q = q.Where("id = ? OR discard_id = ?", id, ref)
	} else {
		q = q.Where("discard_id = ?", ref)
	}
	var row discardModel
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DiscardRecord{}, ErrDiscardNotFound
	}
	if err != nil {
		return models.DiscardRecord{}, err
	}
	return toDiscard(row), nil
}

func (r *Repository) ListDiscards(ctx context.Context, reason models.DiscardReason) ([]models.DiscardRecord, error) {
	q := r.db.WithContext(ctx).Order("discard_date DESC")
	if reason != "" {
		q = q.Where("reason = ?", string(reason))
	}
	var rows []discardModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.DiscardRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDiscard(row))
	}
	return out, nil
}

// MarkDestroyed stamps physical destruction exactly once.
func (r *Repository) MarkDestroyed(ctx context.Context, id uuid.UUID, approvedBy string) (models.DiscardRecord, error) {
	res := r.db.WithContext(ctx).Model(&discardModel{}).
		Where("id = ? AND destruction_date IS NULL", id).
		Updates(map[string]interface{}{
			"destruction_date": time.Now().UTC(),
			"approved_by":      approvedBy,
		})
	if res.Error != nil {
		return models.DiscardRecord{}, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetDiscard(ctx, id.String()); err != nil {
			return models.DiscardRecord{}, err
		}
		return models.DiscardRecord{}, ErrAlreadyDestroyed
	}
	return r.GetDiscard(ctx, id.String())
}

// CountDiscardsByReason feeds the expiry analysis report.
func (r *Repository) CountDiscardsByReason(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Reason string
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&discardModel{}).
		Select("reason, COUNT(*) AS count").
		Group("reason").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Reason] = r.Count
	}
	return out, nil
}

// --- mapping ---

func fromReturn(record models.ReturnRecord) returnModel {
	return returnModel{
		ID:                  record.ID,
		ReturnID:            record.ReturnID,
		ComponentID:         record.ComponentID,
		ReturnDate:          record.ReturnDate,
		Source:              record.Source,
		Reason:              record.Reason,
		HospitalName:        record.HospitalName,
		ContactPerson:       record.ContactPerson,
		TransportConditions: record.TransportConditions,
		QCPass:              record.QCPass,
		Decision:            record.Decision,
		QCNotes:             record.QCNotes,
		ProcessedBy:         record.ProcessedBy,
	}
}

func toReturn(row returnModel) models.ReturnRecord {
	return models.ReturnRecord{
		ID:                  row.ID,
		ReturnID:            row.ReturnID,
		ComponentID:         row.ComponentID,
		ReturnDate:          row.ReturnDate,
		Source:              row.Source,
		Reason:              row.Reason,
		HospitalName:        row.HospitalName,
		ContactPerson:       row.ContactPerson,
		TransportConditions: row.TransportConditions,
		QCPass:              row.QCPass,
		Decision:            row.Decision,
		QCNotes:             row.QCNotes,
		ProcessedBy:         row.ProcessedBy,
		CreatedAt:           row.CreatedAt,
	}
}

func fromDiscard(record models.DiscardRecord) discardModel {
	return discardModel{
		ID:              record.ID,
		DiscardID:       record.DiscardID,
		ComponentID:     record.ComponentID,
		Reason:          string(record.Reason),
		ReasonDetails:   record.ReasonDetails,
		DiscardDate:     record.DiscardDate,
		DestructionDate: record.DestructionDate,
		ApprovedBy:      record.ApprovedBy,
		ProcessedBy:     record.ProcessedBy,
	}
}

func toDiscard(row discardModel) models.DiscardRecord {
	return models.DiscardRecord{
		ID:              row.ID,
		DiscardID:       row.DiscardID,
		ComponentID:     row.ComponentID,
		Reason:          models.DiscardReason(row.Reason),
		ReasonDetails:   row.ReasonDetails,
		DiscardDate:     row.DiscardDate,
		DestructionDate: row.DestructionDate,
		ApprovedBy:      row.ApprovedBy,
		ProcessedBy:     row.ProcessedBy,
		CreatedAt:       row.CreatedAt,
	}
}
