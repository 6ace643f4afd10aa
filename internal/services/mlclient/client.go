package mlclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"StudentDrop/internal/domain/models"
	xhttp "StudentDrop/pkg/http"
)

// Client talks to a running risk service over HTTP.
type Client struct {
	baseURL  string
	client   *xhttp.Client
	attempts int
}

// Option configures Client.
type Option func(*Client)

// WithRetries retries transport failures and 5xx responses.
func WithRetries(attempts int) Option {
	return func(c *Client) { c.attempts = attempts }
}

// New builds a client for baseURL ("http://localhost:8000").
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		attempts: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Health(ctx context.Context) (models.HealthStatus, error) {
	var out models.HealthStatus
	return out, c.do(ctx, xhttp.MethodGet, "/health", nil, &out)
}

func (c *Client) Status(ctx context.Context) (models.ModelStatus, error) {
	var out models.ModelStatus
	return out, c.do(ctx, xhttp.MethodGet, "/ml/status", nil, &out)
}

func (c *Client) Predict(ctx context.Context, studentID int64) (models.Prediction, error) {
	var out models.Prediction
	return out, c.do(ctx, xhttp.MethodPost, "/ml/predict", models.PredictRequest{StudentID: &studentID}, &out)
}

// Train blocks for the server's simulated training delay.
func (c *Client) Train(ctx context.Context) (models.TrainResult, error) {
	var out models.TrainResult
	return out, c.do(ctx, xhttp.MethodPost, "/ml/train", nil, &out)
}

// PredictStream scores ids over one websocket connection, in order.
func (c *Client) PredictStream(ctx context.Context, ids []int64) ([]models.Prediction, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ml/predict/stream"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("stream connect: %w", err)
	}
	defer conn.Close()

	out := make([]models.Prediction, 0, len(ids))
	for _, id := range ids {
		if err := conn.WriteJSON(models.PredictRequest{StudentID: &id}); err != nil {
			return out, fmt.Errorf("stream write: %w", err)
		}
		var frame struct {
			models.Prediction
			Error string `json:"error"`
		}
		if err := conn.ReadJSON(&frame); err != nil {
			return out, fmt.Errorf("stream read: %w", err)
		}
		if frame.Error != "" {
			return out, fmt.Errorf("student %d: %s", id, frame.Error)
		}
		out = append(out, frame.Prediction)
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, dest interface{}) error {
	var err error
	for i := 1; i <= c.attempts; i++ {
		err = c.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: method,
			URL:    c.baseURL + path,
			Body:   payload,
		}, dest)
		if err == nil || !retryable(err) || i == c.attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

func retryable(err error) bool {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled)
}
