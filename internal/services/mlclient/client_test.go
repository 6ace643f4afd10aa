package mlclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StudentDrop/internal/domain/models"
	"StudentDrop/internal/handler/api"
	"StudentDrop/internal/services/scoring"
	"StudentDrop/internal/usecase"
	xhttp "StudentDrop/pkg/http"
	"StudentDrop/pkg/logger"
	"StudentDrop/pkg/metrics"
)

func newService(t *testing.T) *httptest.Server {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	l := logger.Nop()
	h := api.NewMLHandler(l,
		usecase.NewRiskPredictor(scoring.NewLCGScorer(), m, l),
		usecase.NewModelTrainer(5*time.Millisecond, nil, m, l),
		usecase.NewStatusReporter(),
	)
	ts := httptest.NewServer(xhttp.NewServer(h, l, xhttp.WithMetrics(false)).Echo())
	t.Cleanup(ts.Close)
	return ts
}

func TestClientAgainstService(t *testing.T) {
	ts := newService(t)
	c, err := New(ts.URL, time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)

	p, err := c.Predict(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.Prediction{RiskPercent: 25.12, Category: models.RiskLow}, p)

	tr, err := c.Train(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.85, tr.Accuracy)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ModelStatus{}, st)

	preds, err := c.PredictStream(ctx, []int64{0, 42})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, 21.13, preds[0].RiskPercent)
	assert.Equal(t, models.RiskHigh, preds[1].Category)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	e := echo.New()
	e.GET("/health", func(c echo.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "upstream"})
		}
		return c.JSON(http.StatusOK, models.HealthStatus{Status: "ok"})
	})
	ts := httptest.NewServer(e)
	defer ts.Close()

	c, err := New(ts.URL, time.Second, WithRetries(3))
	require.NoError(t, err)
	_, err = c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	e := echo.New()
	e.POST("/ml/predict", func(c echo.Context) error {
		atomic.AddInt32(&calls, 1)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "student_id is required"})
	})
	ts := httptest.NewServer(e)
	defer ts.Close()

	c, err := New(ts.URL, time.Second, WithRetries(3))
	require.NoError(t, err)
	_, err = c.Predict(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "student_id is required")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8000", "ftp://x"} {
		_, err := New(u, 0)
		assert.Error(t, err, u)
	}
}
