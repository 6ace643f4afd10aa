package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StudentDrop/internal/domain/models"
	"StudentDrop/internal/services/scoring"
	"StudentDrop/internal/usecase"
	xhttp "StudentDrop/pkg/http"
	"StudentDrop/pkg/http/middleware"
	"StudentDrop/pkg/logger"
	"StudentDrop/pkg/metrics"
)

const trainDelay = 30 * time.Millisecond

type fakeAuditStore struct{}

func (fakeAuditStore) Init(context.Context) error { return nil }

func (fakeAuditStore) StoreBatch(context.Context, []*models.Event) error { return nil }

func (fakeAuditStore) CountByCategory(context.Context, time.Time, time.Time) (map[models.RiskCategory]uint64, error) {
	return map[models.RiskCategory]uint64{models.RiskLow: 2, models.RiskMedium: 1}, nil
}

func (fakeAuditStore) Health(context.Context) error { return nil }

func newTestHandler(opts ...MLHandlerOption) *MLHandler {
	m := metrics.New(prometheus.NewRegistry())
	l := logger.Nop()
	return NewMLHandler(l,
		usecase.NewRiskPredictor(scoring.NewLCGScorer(), m, l),
		usecase.NewModelTrainer(trainDelay, nil, m, l),
		usecase.NewStatusReporter(),
		opts...,
	)
}

func newTestEcho(opts ...MLHandlerOption) *echo.Echo {
	return xhttp.NewServer(newTestHandler(opts...), logger.Nop(), xhttp.WithMetrics(false)).Echo()
}

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(newTestEcho(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStatus(t *testing.T) {
	rec := serve(newTestEcho(), http.MethodGet, "/ml/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accuracy":0.0,"last_trained":null}`, rec.Body.String())
}

func TestPredict(t *testing.T) {
	e := newTestEcho()
	tests := []struct {
		body string
		want string
	}{
		{`{"student_id":1}`, `{"risk_percent":25.12,"category":"low"}`},
		{`{"student_id":0}`, `{"risk_percent":21.13,"category":"low"}`},
		{`{"student_id":5}`, `{"risk_percent":41.07,"category":"medium"}`},
		{`{"student_id":10}`, `{"risk_percent":61,"category":"medium"}`},
		{`{"student_id":42}`, `{"risk_percent":88.59,"category":"high"}`},
		{`{"student_id":-1}`, `{"risk_percent":17.15,"category":"low"}`},
		{`{"student_id":12345,"extra":"ignored"}`, `{"risk_percent":41.32,"category":"medium"}`},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			rec := serve(e, http.MethodPost, "/ml/predict", tt.body)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestPredictIsDeterministic(t *testing.T) {
	e := newTestEcho()
	first := serve(e, http.MethodPost, "/ml/predict", `{"student_id":777}`).Body.String()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, serve(e, http.MethodPost, "/ml/predict", `{"student_id":777}`).Body.String())
	}
}

func TestPredictRejectsBadInput(t *testing.T) {
	e := newTestEcho()
	for _, body := range []string{`{}`, `{"student_id":"abc"}`, `{"student_id":1.5}`, `{"student_id":`, `[1]`} {
		t.Run(body, func(t *testing.T) {
			rec := serve(e, http.MethodPost, "/ml/predict", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var out map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			assert.NotEmpty(t, out["error"])
		})
	}

	rec := serve(e, http.MethodPost, "/ml/predict", `{}`)
	assert.Contains(t, rec.Body.String(), "student_id is required")
}

func TestUnknownRouteAndMethod(t *testing.T) {
	e := newTestEcho()

	rec := serve(e, http.MethodGet, "/foo", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/ml/predict", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTrainLatencyAndIsolation(t *testing.T) {
	e := newTestEcho()

	start := time.Now()
	rec := serve(e, http.MethodPost, "/ml/train", "")
	elapsed := time.Since(start)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Model trained","accuracy":0.85}`, rec.Body.String())
	assert.GreaterOrEqual(t, elapsed, trainDelay)
	assert.Less(t, elapsed, trainDelay+time.Second)

	rec = serve(e, http.MethodGet, "/ml/status", "")
	assert.JSONEq(t, `{"accuracy":0.0,"last_trained":null}`, rec.Body.String())
}

func TestTrainInterrupted(t *testing.T) {
	e := newTestEcho()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/ml/train", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimitedGroup(t *testing.T) {
	e := newTestEcho(WithRateLimiter(middleware.NewLimiter(1, 0.001)))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ml/status", "").Code)
	rec := serve(e, http.MethodGet, "/ml/status", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"rate limited"}`, rec.Body.String())

	// liveness is never limited
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/health", "").Code)
}

func TestAuditCategories(t *testing.T) {
	e := newTestEcho(WithAuditReport(usecase.NewAuditReport(fakeAuditStore{})))

	rec := serve(e, http.MethodGet, "/ml/audit/categories?window=1h", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out usecase.CategorySummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, uint64(3), out.Total)
	assert.Equal(t, time.Hour, out.To.Sub(out.From))

	rec = serve(e, http.MethodGet, "/ml/audit/categories?from=2026-01-01T00:00:00Z&to=1767312000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 24*time.Hour, out.To.Sub(out.From))

	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodGet, "/ml/audit/categories?window=soon", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodGet, "/ml/audit/categories?from=2026-02-01T00:00:00Z&to=2026-01-01T00:00:00Z", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(newTestEcho(), http.MethodGet, "/ml/audit/categories", "").Code)
}

func TestPredictStream(t *testing.T) {
	ts := httptest.NewServer(newTestEcho())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ml/predict/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"student_id":1}`)))
	var pred models.Prediction
	require.NoError(t, conn.ReadJSON(&pred))
	assert.Equal(t, models.Prediction{RiskPercent: 25.12, Category: models.RiskLow}, pred)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"nope":true}`)))
	var errFrame xhttp.ErrorResponse
	require.NoError(t, conn.ReadJSON(&errFrame))
	assert.Equal(t, "student_id is required", errFrame.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`garbage`)))
	errFrame = xhttp.ErrorResponse{}
	require.NoError(t, conn.ReadJSON(&errFrame))
	assert.Contains(t, errFrame.Error, "invalid frame")

	// still open after bad frames
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"student_id":42}`)))
	require.NoError(t, conn.ReadJSON(&pred))
	assert.Equal(t, models.RiskHigh, pred.Category)
}

func TestPredictStreamPings(t *testing.T) {
	ts := httptest.NewServer(newTestEcho(WithStreamPing(20 * time.Millisecond)))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ml/predict/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(data string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	// control frames are only handled while reading
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping within 2s")
	}
}
