package models

import "time"

// RiskCategory is the coarse label derived from a risk percent.
type RiskCategory string

const (
	RiskLow    RiskCategory = "low"
	RiskMedium RiskCategory = "medium"
	RiskHigh   RiskCategory = "high"
)

// Category thresholds, inclusive upper bounds on the rounded percent.
const (
	LowRiskMax    = 40.0
	MediumRiskMax = 70.0
)

// CategoryFor classifies an already rounded risk percent.
func CategoryFor(riskPercent float64) RiskCategory {
	switch {
	case riskPercent <= LowRiskMax:
		return RiskLow
	case riskPercent <= MediumRiskMax:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Valid reports whether c is one of the three known labels.
func (c RiskCategory) Valid() bool {
	switch c {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

// Prediction is the scorer output for one student.
type Prediction struct {
	RiskPercent float64      `json:"risk_percent"`
	Category    RiskCategory `json:"category"`
}

// ModelStatus is reported by GET /ml/status. It never changes: training
// is simulated and nothing is persisted.
type ModelStatus struct {
	Accuracy    float64    `json:"accuracy"`
	LastTrained *time.Time `json:"last_trained"`
}

// TrainedAccuracy is the accuracy every simulated training run reports.
const TrainedAccuracy = 0.85

// TrainResult is returned by POST /ml/train.
type TrainResult struct {
	Message  string  `json:"message"`
	Accuracy float64 `json:"accuracy"`
}

// HealthStatus is returned by GET /health.
type HealthStatus struct {
	Status string `json:"status"`
}
