package repository

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StudentDrop/internal/domain/models"
	"StudentDrop/pkg/cache"
)

type published struct {
	topic string
	key   []byte
	value interface{}
}

type fakeProducer struct {
	sent   []published
	closed bool
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.sent = append(f.sent, published{topic, key, value})
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestKafkaEventPublisherKeys(t *testing.T) {
	fp := &fakeProducer{}
	p := NewKafkaEventPublisher(fp, "ml.events")

	require.NoError(t, p.Publish(context.Background(), &models.Event{Type: models.EventPrediction, StudentID: 42}))
	require.NoError(t, p.Publish(context.Background(), &models.Event{Type: models.EventTraining, Accuracy: models.TrainedAccuracy}))
	require.NoError(t, p.Close())

	require.Len(t, fp.sent, 2)
	assert.Equal(t, "ml.events", fp.sent[0].topic)
	assert.Equal(t, "42", string(fp.sent[0].key))
	assert.Equal(t, "training", string(fp.sent[1].key))
	assert.True(t, fp.closed)
}

func TestEventJSONShape(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b, err := json.Marshal(&models.Event{
		ID:          "e1",
		Type:        models.EventPrediction,
		StudentID:   0,
		RiskPercent: 21.13,
		Category:    models.RiskLow,
		Source:      "http",
		OccurredAt:  at,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"e1","type":"prediction","student_id":0,"risk_percent":21.13,
		"category":"low","source":"http","occurred_at":"2026-01-02T03:04:05Z"}`, string(b))
}

func TestBuildInsertSkipsInvalid(t *testing.T) {
	at := time.Now()
	q, args := buildInsert("db.prediction_events", []*models.Event{
		{ID: "a", Type: models.EventPrediction, StudentID: 1, RiskPercent: 25.12, Category: models.RiskLow, OccurredAt: at},
		nil,
		{Type: models.EventPrediction},
		{ID: "b", Type: models.EventTraining, Accuracy: 0.85, OccurredAt: at},
	})

	assert.True(t, strings.HasPrefix(q, "INSERT INTO db.prediction_events ("))
	assert.Equal(t, 2, strings.Count(q, "(?, ?, ?, ?, ?, ?, ?, ?)"))
	require.Len(t, args, 16)
	assert.Equal(t, "a", args[0])
	assert.Equal(t, "training", args[9])

	q, args = buildInsert("t", []*models.Event{nil})
	assert.Empty(t, q)
	assert.Nil(t, args)
}

func TestSchemaStatementsIdempotent(t *testing.T) {
	stmts := schemaStatements("studentdrop", "studentdrop.prediction_events")
	require.Len(t, stmts, 2)
	for _, s := range stmts {
		assert.Contains(t, s, "IF NOT EXISTS")
	}
	assert.Contains(t, stmts[1], "studentdrop.prediction_events")
}

func TestCachedPredictions(t *testing.T) {
	mc := cache.NewMemoryCache()
	c := NewCachedPredictions(mc, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	want := models.Prediction{RiskPercent: 61.0, Category: models.RiskMedium}
	require.NoError(t, c.Set(ctx, 7, want))

	got, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	exists, err := mc.Exists(ctx, "predict:7")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Close())
}
