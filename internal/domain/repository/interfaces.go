package repository

import (
	"context"
	"time"

	"StudentDrop/internal/domain/models"
)

// PredictionCache memoises predictions by student id. Implementations must
// be safe for concurrent use.
type PredictionCache interface {
	Get(ctx context.Context, studentID int64) (models.Prediction, bool, error)
	Set(ctx context.Context, studentID int64, p models.Prediction) error
	Close() error
}

// EventPublisher ships ML events to the bus.
type EventPublisher interface {
	Publish(ctx context.Context, e *models.Event) error
	Close() error
}

// AuditStore persists ML events for later analysis.
type AuditStore interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, events []*models.Event) error
	CountByCategory(ctx context.Context, from, to time.Time) (map[models.RiskCategory]uint64, error)
	Health(ctx context.Context) error
}

type Metrics interface {
	RecordPrediction(category models.RiskCategory, riskPercent float64, cached bool)
	RecordTraining(d time.Duration)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
