package usecase

import "StudentDrop/internal/domain/models"

// StatusReporter answers liveness and model status with fixed values.
type StatusReporter struct{}

func NewStatusReporter() *StatusReporter { return &StatusReporter{} }

func (StatusReporter) Health() models.HealthStatus {
	return models.HealthStatus{Status: "ok"}
}

// ModelStatus is constant: nothing has ever been trained and persisted.
func (StatusReporter) ModelStatus() models.ModelStatus {
	return models.ModelStatus{Accuracy: 0, LastTrained: nil}
}
