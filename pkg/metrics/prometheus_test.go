package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"StudentDrop/internal/domain/models"
)

func TestRecorderCountsPredictions(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordPrediction(models.RiskLow, 25.12, false)
	r.RecordPrediction(models.RiskLow, 21.13, true)
	r.RecordPrediction(models.RiskHigh, 88.59, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.predictions.WithLabelValues("low", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.predictions.WithLabelValues("low", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.predictions.WithLabelValues("high", "false")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.predictions.WithLabelValues("medium", "false")))
}

func TestRecorderCountsTrainingAndErrors(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordTraining(10 * time.Millisecond)
	r.RecordTraining(20 * time.Millisecond)
	r.RecordError("cache_get")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.trainings))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("cache_get")))
}

func TestNewOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
