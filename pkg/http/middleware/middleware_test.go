package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StudentDrop/pkg/logger"
)

func TestLimiterRefills(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewLimiter(2, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "buckets are per key")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	now = now.Add(10 * time.Second)
	assert.Equal(t, 2, l.Prune())
}

func TestRateLimitMiddleware(t *testing.T) {
	e := echo.New()
	errLimited := errors.New("limited")
	h := RateLimit(NewLimiter(1, 0.001), func() error { return errLimited })(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	require.NoError(t, h(e.NewContext(req, httptest.NewRecorder())))
	assert.ErrorIs(t, h(e.NewContext(req, httptest.NewRecorder())), errLimited)

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	assert.NoError(t, h(e.NewContext(other, httptest.NewRecorder())))
}

func TestCORSPreflight(t *testing.T) {
	e := echo.New()
	h := CORS(DefaultCORSConfig)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodOptions, "/ml/predict", nil)
	req.Header.Set(echo.HeaderOrigin, "http://dashboard.local")
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPost)
}

func TestCORSRestrictedOrigin(t *testing.T) {
	e := echo.New()
	h := CORS(CORSConfig{AllowOrigins: []string{"http://ok.local"}})(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderOrigin, "http://evil.local")
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestRecoverReturnsError(t *testing.T) {
	e := echo.New()
	h := Recover(logger.Nop())(func(c echo.Context) error {
		panic("kaboom")
	})
	err := h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}
