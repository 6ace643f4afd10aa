package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"StudentDrop/internal/domain/models"
	"StudentDrop/internal/domain/repository"
	"StudentDrop/pkg/cache"
)

// CachedPredictions implements PredictionCache on top of a cache.Service.
type CachedPredictions struct {
	svc cache.Service
	ttl time.Duration
}

func NewCachedPredictions(svc cache.Service, ttl time.Duration) *CachedPredictions {
	return &CachedPredictions{svc: svc, ttl: ttl}
}

func predictionKey(studentID int64) string {
	return cache.Key("predict", strconv.FormatInt(studentID, 10))
}

func (c *CachedPredictions) Get(ctx context.Context, studentID int64) (models.Prediction, bool, error) {
	var p models.Prediction
	err := c.svc.Get(ctx, predictionKey(studentID), &p)
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.Prediction{}, false, nil
	}
	if err != nil {
		return models.Prediction{}, false, err
	}
	return p, true, nil
}

func (c *CachedPredictions) Set(ctx context.Context, studentID int64, p models.Prediction) error {
	return c.svc.Set(ctx, predictionKey(studentID), p, c.ttl)
}

func (c *CachedPredictions) Close() error {
	return c.svc.Close()
}

var _ repository.PredictionCache = (*CachedPredictions)(nil)
