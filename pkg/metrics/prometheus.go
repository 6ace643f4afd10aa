package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"StudentDrop/internal/domain/models"
	"StudentDrop/internal/domain/repository"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictions   *prometheus.CounterVec
	riskPercent   prometheus.Histogram
	trainings     prometheus.Counter
	trainDuration prometheus.Histogram
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New registers the recorder's collectors on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studentdrop_predictions_total",
				Help: "Predictions served, by risk category and cache result",
			},
			[]string{"category", "cached"},
		),
		riskPercent: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "studentdrop_risk_percent",
				Help:    "Distribution of served risk percents",
				Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
		),
		trainings: f.NewCounter(
			prometheus.CounterOpts{
				Name: "studentdrop_trainings_total",
				Help: "Completed simulated training runs",
			},
		),
		trainDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "studentdrop_training_duration_seconds",
				Help:    "Wall time of simulated training runs",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5},
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studentdrop_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "studentdrop_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordPrediction counts one served prediction.
func (r *Recorder) RecordPrediction(category models.RiskCategory, riskPercent float64, cached bool) {
	c := "false"
	if cached {
		c = "true"
	}
	r.predictions.WithLabelValues(string(category), c).Inc()
	r.riskPercent.Observe(riskPercent)
}

// RecordTraining records a finished training run.
func (r *Recorder) RecordTraining(d time.Duration) {
	r.trainings.Inc()
	r.trainDuration.Observe(d.Seconds())
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

var _ repository.Metrics = (*Recorder)(nil)
