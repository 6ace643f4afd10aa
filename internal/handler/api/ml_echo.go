package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"StudentDrop/internal/domain/models"
	"StudentDrop/internal/domain/service"
	"StudentDrop/internal/usecase"
	xhttp "StudentDrop/pkg/http"
	"StudentDrop/pkg/http/middleware"
	xlogger "StudentDrop/pkg/logger"
	"StudentDrop/pkg/util"
)

// MLHandler serves the health, status, predict and train endpoints.
type MLHandler struct {
	logger    *xlogger.Logger
	predictor *usecase.RiskPredictor
	trainer   service.Trainer
	status    *usecase.StatusReporter
	report    *usecase.AuditReport
	limiter   *middleware.Limiter

	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

// MLHandlerOption configures MLHandler.
type MLHandlerOption func(*MLHandler)

// WithRateLimiter guards /ml/* with a per-IP token bucket.
func WithRateLimiter(l *middleware.Limiter) MLHandlerOption {
	return func(h *MLHandler) { h.limiter = l }
}

// WithAuditReport exposes GET /ml/audit/categories.
func WithAuditReport(r *usecase.AuditReport) MLHandlerOption {
	return func(h *MLHandler) { h.report = r }
}

// WithStreamPing sets the websocket keepalive interval.
func WithStreamPing(d time.Duration) MLHandlerOption {
	return func(h *MLHandler) { h.pingInterval = d }
}

func NewMLHandler(
	logger *xlogger.Logger,
	predictor *usecase.RiskPredictor,
	trainer service.Trainer,
	status *usecase.StatusReporter,
	opts ...MLHandlerOption,
) *MLHandler {
	h := &MLHandler{
		logger:       logger,
		predictor:    predictor,
		trainer:      trainer,
		status:       status,
		pingInterval: 30 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *MLHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/ml")
	if h.limiter != nil {
		g.Use(middleware.RateLimit(h.limiter, func() error {
			return xhttp.TooManyRequestsError("rate limited")
		}))
	}
	g.GET("/status", h.Status)
	g.POST("/predict", h.Predict)
	g.POST("/train", h.Train)
	g.GET("/predict/stream", h.PredictStream)
	if h.report != nil {
		g.GET("/audit/categories", h.AuditCategories)
	}
}

func (h *MLHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.status.Health())
}

func (h *MLHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.status.ModelStatus())
}

func (h *MLHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if err := xhttp.ReadAndValidateRequest(c, req); err != nil {
		return err
	}

	res := h.predictor.Predict(c.Request().Context(), *req.StudentID, "http")
	return xhttp.SuccessResponse(c, res)
}

func (h *MLHandler) Train(c echo.Context) error {
	res, err := h.trainer.Train(c.Request().Context())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return xhttp.ServiceUnavailableError("training interrupted").WithError(err)
		}
		h.logger.Error("train usecase error", xlogger.Error(err))
		return xhttp.InternalError("training failed").WithError(err)
	}
	return xhttp.SuccessResponse(c, res)
}

// AuditCategories accepts from/to (RFC3339 or unix seconds) or a window
// duration ending now; the default is the last 24h.
func (h *MLHandler) AuditCategories(c echo.Context) error {
	from, to, err := util.ResolveRange(c.QueryParam("from"), c.QueryParam("to"), c.QueryParam("window"), 24*time.Hour, time.Now())
	if err != nil {
		return xhttp.BadRequestError(err.Error()).WithError(err)
	}

	res, err := h.report.Categories(c.Request().Context(), from, to)
	if err != nil {
		h.logger.Error("audit report error", xlogger.Error(err))
		return xhttp.ServiceUnavailableError("audit store unavailable").WithError(err)
	}
	return xhttp.SuccessResponse(c, res)
}
