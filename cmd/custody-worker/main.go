package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hemolink/platform/pkg/common/kafka"
	"github.com/hemolink/platform/pkg/common/logger"
	"github.com/hemolink/platform/pkg/common/models"
)

// The worker tails the custody-events topic and mirrors every movement into
// the structured log stream that downstream compliance tooling ingests. The
// database row written by the API is authoritative; this stream is the
// near-real-time feed.
func main() {
	logger.Init()

	consumer := kafka.NewConsumer("custody-events", "")
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("Shutting down custody worker...")
		cancel()
	}()

	logger.Log.Info("Custody worker started")
	err := consumer.Consume(ctx, func(ctx context.Context, event models.Event) error {
		logger.Log.WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
			"unit_id":    event.Data["unit_id"],
			"item_type":  event.Data["item_type"],
			"stage":      event.Data["stage"],
			"from":       event.Data["from"],
			"to":         event.Data["to"],
			"actor":      event.Data["actor"],
		}).Info("custody event")
		return nil
	})
	if err != nil && err != context.Canceled {
		logger.Log.WithError(err).Error("consumer stopped")
	}
	logger.Log.Info("Custody worker stopped")
}
