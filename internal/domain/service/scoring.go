package service

import (
	"context"

	"StudentDrop/internal/domain/models"
)

// RiskScorer maps a student id to a prediction. Implementations are pure:
// the same id always yields the same prediction.
type RiskScorer interface {
	Score(studentID int64) models.Prediction
}

// Trainer runs (or simulates) a model training pass.
type Trainer interface {
	Train(ctx context.Context) (models.TrainResult, error)
}
