package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"StudentDrop/internal/domain/models"
	drepo "StudentDrop/internal/domain/repository"
	"StudentDrop/internal/domain/service"
	"StudentDrop/pkg/logger"
)

// ModelTrainer simulates a blocking training run. Its result is never
// stored, so StatusReporter output does not change.
type ModelTrainer struct {
	delay   time.Duration
	events  drepo.EventPublisher
	metrics drepo.Metrics
	l       *logger.Logger
}

func NewModelTrainer(delay time.Duration, events drepo.EventPublisher, metrics drepo.Metrics, l *logger.Logger) *ModelTrainer {
	return &ModelTrainer{delay: delay, events: events, metrics: metrics, l: l}
}

// Train waits for the configured delay and reports a fixed accuracy. It
// returns ctx.Err() if the caller goes away first.
func (t *ModelTrainer) Train(ctx context.Context) (models.TrainResult, error) {
	start := time.Now()

	timer := time.NewTimer(t.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		t.metrics.RecordError("train_cancelled")
		return models.TrainResult{}, ctx.Err()
	}

	elapsed := time.Since(start)
	t.metrics.RecordTraining(elapsed)
	t.l.Info("training finished",
		logger.Duration("duration_ms", elapsed),
		logger.Float64("accuracy", models.TrainedAccuracy))

	if t.events != nil {
		err := t.events.Publish(ctx, &models.Event{
			ID:         uuid.NewString(),
			Type:       models.EventTraining,
			Accuracy:   models.TrainedAccuracy,
			Source:     "http",
			OccurredAt: time.Now().UTC(),
		})
		if err != nil {
			t.metrics.RecordError("publish_training")
			t.l.Warn("publish training event", logger.Error(err))
		}
	}

	return models.TrainResult{Message: "Model trained", Accuracy: models.TrainedAccuracy}, nil
}

var _ service.Trainer = (*ModelTrainer)(nil)
