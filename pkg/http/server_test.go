package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StudentDrop/pkg/logger"
)

type scoreRequest struct {
	StudentID *int64 `json:"student_id" validate:"required"`
	Mode      string `json:"mode" default:"fast" validate:"oneof=fast slow"`
}

type testHandler struct{}

func (testHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/score", func(c echo.Context) error {
		var req scoreRequest
		if err := ReadAndValidateRequest(c, &req); err != nil {
			return err
		}
		return SuccessResponse(c, map[string]interface{}{"id": *req.StudentID, "mode": req.Mode})
	})
	e.GET("/boom", func(c echo.Context) error {
		panic("boom")
	})
	e.GET("/limited", func(c echo.Context) error {
		return TooManyRequestsError("rate limited")
	})
}

func newTestServer() *Server {
	return NewServer(testHandler{}, logger.Nop(), WithMetrics(false))
}

func do(t *testing.T, s *Server, method, path, contentType, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestReadAndValidateRequest(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
		errContains string
	}{
		{"ok with default", echo.MIMEApplicationJSON, `{"student_id":0}`, http.StatusOK, ""},
		{"missing field", echo.MIMEApplicationJSON, `{}`, http.StatusBadRequest, "student_id is required"},
		{"empty body", echo.MIMEApplicationJSON, ``, http.StatusBadRequest, "student_id is required"},
		{"wrong type", echo.MIMEApplicationJSON, `{"student_id":"abc"}`, http.StatusBadRequest, "invalid request body"},
		{"malformed json", echo.MIMEApplicationJSON, `{"student_id":`, http.StatusBadRequest, "invalid request body"},
		{"no content type", "", `{"student_id":1}`, http.StatusBadRequest, "application/json"},
		{"oneof", echo.MIMEApplicationJSON, `{"student_id":1,"mode":"warp"}`, http.StatusBadRequest, "mode must be one of: fast, slow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := do(t, s, http.MethodPost, "/score", tt.contentType, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			if tt.errContains == "" {
				assert.Equal(t, "fast", out["mode"])
				return
			}
			assert.Contains(t, out["error"], tt.errContains)
		})
	}
}

func TestValidationDetails(t *testing.T) {
	rec, out := do(t, newTestServer(), http.MethodPost, "/score", echo.MIMEApplicationJSON, `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	details, ok := out["details"].([]interface{})
	require.True(t, ok)
	require.Len(t, details, 1)
	d := details[0].(map[string]interface{})
	assert.Equal(t, "student_id", d["field"])
	assert.Equal(t, "ERR_REQUIRED", d["code"])
}

func TestErrorHandlerShapes(t *testing.T) {
	s := newTestServer()

	rec, out := do(t, s, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]interface{}{"error": "Not Found"}, out)

	rec, out = do(t, s, http.MethodGet, "/score", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method Not Allowed", out["error"])

	rec, out = do(t, s, http.MethodGet, "/boom", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", out["error"])

	rec, out = do(t, s, http.MethodGet, "/limited", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limited", out["error"])
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer()
	rec, _ := do(t, s, http.MethodGet, "/nope", "", "")
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(echo.HeaderXRequestID))
}

func TestServerStartStop(t *testing.T) {
	s := NewServer(testHandler{}, logger.Nop(), WithHost("127.0.0.1"), WithPort(0), WithMetrics(false))
	require.NoError(t, s.Start())
	require.NotEmpty(t, s.Addr())

	c := NewClient()
	var out map[string]interface{}
	err := c.SendAndParse(context.Background(), &RequestOptions{
		Method: MethodPost,
		URL:    "http://" + s.Addr() + "/score",
		Body:   map[string]int{"student_id": 7},
	}, &out)
	require.NoError(t, err)
	assert.EqualValues(t, 7, out["id"])

	require.NoError(t, s.Stop(context.Background()))
}

func TestClientStatusError(t *testing.T) {
	ts := httptest.NewServer(newTestServer().Echo())
	defer ts.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{
		Method: MethodPost,
		URL:    ts.URL + "/score",
		Body:   map[string]string{},
	}, nil)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "student_id is required", se.Message)
}

func TestMetricsEndpoint(t *testing.T) {
	s := NewServer(testHandler{}, logger.Nop())
	do(t, s, http.MethodPost, "/score", echo.MIMEApplicationJSON, `{"student_id":1}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{`)
	assert.Contains(t, rec.Body.String(), `route="/score"`)
}
