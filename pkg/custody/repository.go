package custody

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hemolink/platform/pkg/common/models"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to an open transaction so callers can commit a
// custody append together with their own writes.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

type custodyModel struct {
	ID           uuid.UUID `gorm:"primaryKey;column:id"`
	ItemID       uuid.UUID `gorm:"column:unit_id;index"`
	ItemType     string    `gorm:"column:item_type"`
	Stage        string    `gorm:"column:stage;index"`
	FromLocation string    `gorm:"column:from_location"`
	ToLocation   string    `gorm:"column:to_location"`
	Reason       string    `gorm:"column:reason"`
	GiverID      string    `gorm:"column:giver_id"`
	ReceiverID   string    `gorm:"column:receiver_id"`
	Timestamp    time.Time `gorm:"column:timestamp;index"`
	Confirmed    bool      `gorm:"column:confirmed"`
	Notes        string    `gorm:"column:notes"`
}

func (custodyModel) TableName() string { return "chain_custody" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&custodyModel{})
}

// Append inserts one event. There is intentionally no update or delete path
// on this table.
func (r *Repository) Append(ctx context.Context, event models.CustodyEvent) (models.CustodyEvent, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	row := custodyModel{
		ID:           event.ID,
		ItemID:       event.ItemID,
		ItemType:     string(event.ItemType),
		Stage:        event.Stage,
		FromLocation: event.FromLocation,
		ToLocation:   event.ToLocation,
		Reason:       event.Reason,
		GiverID:      event.GiverID,
		ReceiverID:   event.ReceiverID,
		Timestamp:    event.Timestamp,
		Confirmed:    event.Confirmed,
		Notes:        event.Notes,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.CustodyEvent{}, err
	}
	return event, nil
}

// ListForItem returns the item's full history, newest first.
func (r *Repository) ListForItem(ctx context.Context, itemID uuid.UUID) ([]models.CustodyEvent, error) {
	var rows []custodyModel
	if err := r.db.WithContext(ctx).
		Where("unit_id = ?", itemID).
		Order("timestamp DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toEvents(rows), nil
}

// ListByStages returns movement events filtered by stage and time window,
// newest first.
func (r *Repository) ListByStages(ctx context.Context, stages []string, from, to *time.Time) ([]models.CustodyEvent, error) {
	q := r.db.WithContext(ctx).Where("stage IN ?", stages)
	if from != nil {
		q = q.Where("timestamp >= ?", *from)
	}
	if to != nil {
		q = q.Where("timestamp <= ?", *to)
	}
	var rows []custodyModel
	if err := q.Order("timestamp DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toEvents(rows), nil
}

func toEvents(rows []custodyModel) []models.CustodyEvent {
	events := make([]models.CustodyEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, models.CustodyEvent{
			ID:           row.ID,
			ItemID:       row.ItemID,
			ItemType:     models.ItemType(row.ItemType),
			Stage:        row.Stage,
			FromLocation: row.FromLocation,
			ToLocation:   row.ToLocation,
			Reason:       row.Reason,
			GiverID:      row.GiverID,
			ReceiverID:   row.ReceiverID,
			Timestamp:    row.Timestamp,
			Confirmed:    row.Confirmed,
			Notes:        row.Notes,
		})
	}
	return events
}
