package custody

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hemolink/platform/pkg/common/logger"
	"github.com/hemolink/platform/pkg/common/models"
)

// Publisher is the event-bus side of the recorder; the Kafka producer
// satisfies it.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Recorder appends custody events to the store and mirrors them onto the
// event bus. The DB write is authoritative; the publish is best effort.
type Recorder struct {
	repo      *Repository
	publisher Publisher
}

func NewRecorder(repo *Repository, publisher Publisher) *Recorder {
	return &Recorder{repo: repo, publisher: publisher}
}

func (r *Recorder) Record(ctx context.Context, event models.CustodyEvent) error {
	stored, err := r.repo.Append(ctx, event)
	if err != nil {
		return err
	}

	if r.publisher != nil {
		if err := r.publisher.PublishEvent(ctx, "custody.recorded", "bloodbank-api", map[string]interface{}{
			"event_id":  stored.ID.String(),
			"unit_id":   stored.ItemID.String(),
			"item_type": string(stored.ItemType),
			"stage":     stored.Stage,
			"from":      stored.FromLocation,
			"to":        stored.ToLocation,
			"actor":     stored.GiverID,
		}); err != nil {
			logger.Log.WithError(err).Warn("custody event publish failed")
		}
	}
	return nil
}

func (r *Recorder) ListForItem(ctx context.Context, itemID uuid.UUID) ([]models.CustodyEvent, error) {
	return r.repo.ListForItem(ctx, itemID)
}

func (r *Recorder) ListByStages(ctx context.Context, stages []string, from, to *time.Time) ([]models.CustodyEvent, error) {
	return r.repo.ListByStages(ctx, stages, from, to)
}
