package models

import "time"

// EventType discriminates ML events on the bus.
type EventType string

const (
	EventPrediction EventType = "prediction"
	EventTraining   EventType = "training"
)

// Event is published for every prediction and training run and lands in
// the audit store.
type Event struct {
	ID          string       `json:"id"`
	Type        EventType    `json:"type"`
	StudentID   int64        `json:"student_id"`
	RiskPercent float64      `json:"risk_percent"`
	Category    RiskCategory `json:"category,omitempty"`
	Accuracy    float64      `json:"accuracy,omitempty"`
	Source      string       `json:"source"`
	OccurredAt  time.Time    `json:"occurred_at"`
}
