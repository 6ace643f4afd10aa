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

// RiskPredictor serves predictions. Scoring never fails; the cache and the
// event bus are optional side paths whose errors are logged and dropped.
type RiskPredictor struct {
	scorer  service.RiskScorer
	cache   drepo.PredictionCache
	events  drepo.EventPublisher
	metrics drepo.Metrics
	l       *logger.Logger
	now     func() time.Time
}

// PredictorOption configures RiskPredictor.
type PredictorOption func(*RiskPredictor)

// WithPredictionCache enables read-through caching.
func WithPredictionCache(c drepo.PredictionCache) PredictorOption {
	return func(p *RiskPredictor) { p.cache = c }
}

// WithPredictionEvents publishes one event per prediction.
func WithPredictionEvents(pub drepo.EventPublisher) PredictorOption {
	return func(p *RiskPredictor) { p.events = pub }
}

func NewRiskPredictor(scorer service.RiskScorer, metrics drepo.Metrics, l *logger.Logger, opts ...PredictorOption) *RiskPredictor {
	p := &RiskPredictor{
		scorer:  scorer,
		metrics: metrics,
		l:       l,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Predict scores studentID. source tags the emitted event ("http", "ws").
func (p *RiskPredictor) Predict(ctx context.Context, studentID int64, source string) models.Prediction {
	start := p.now()

	pred, cached := p.lookup(ctx, studentID)
	if !cached {
		pred = p.scorer.Score(studentID)
		p.store(ctx, studentID, pred)
	}

	p.metrics.RecordPrediction(pred.Category, pred.RiskPercent, cached)
	p.metrics.RecordLatency("predict", p.now().Sub(start).Seconds())

	if p.events != nil {
		e := &models.Event{
			ID:          uuid.NewString(),
			Type:        models.EventPrediction,
			StudentID:   studentID,
			RiskPercent: pred.RiskPercent,
			Category:    pred.Category,
			Source:      source,
			OccurredAt:  start.UTC(),
		}
		if err := p.events.Publish(ctx, e); err != nil {
			p.metrics.RecordError("publish_prediction")
			p.l.Warn("publish prediction event", logger.Int64("student_id", studentID), logger.Error(err))
		}
	}

	return pred
}

func (p *RiskPredictor) lookup(ctx context.Context, studentID int64) (models.Prediction, bool) {
	if p.cache == nil {
		return models.Prediction{}, false
	}
	pred, ok, err := p.cache.Get(ctx, studentID)
	if err != nil {
		p.metrics.RecordError("cache_get")
		p.l.Warn("prediction cache get", logger.Int64("student_id", studentID), logger.Error(err))
		return models.Prediction{}, false
	}
	// a corrupt entry is treated as a miss and overwritten
	if ok && !pred.Category.Valid() {
		return models.Prediction{}, false
	}
	return pred, ok
}

func (p *RiskPredictor) store(ctx context.Context, studentID int64, pred models.Prediction) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, studentID, pred); err != nil {
		p.metrics.RecordError("cache_set")
		p.l.Warn("prediction cache set", logger.Int64("student_id", studentID), logger.Error(err))
	}
}
