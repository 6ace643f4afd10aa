package api

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"StudentDrop/internal/domain/models"
	xhttp "StudentDrop/pkg/http"
	xlogger "StudentDrop/pkg/logger"
)

const (
	streamWriteWait = 5 * time.Second
	streamMaxFrame  = 4 << 10
)

// PredictStream upgrades to a websocket. Every text frame
// {"student_id": N} is answered with one prediction frame; a bad frame
// is answered with {"error": ...} and the connection stays open.
func (h *MLHandler) PredictStream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written an HTTP error
		h.logger.Debug("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx := c.Request().Context()
	conn.SetReadLimit(streamMaxFrame)
	readWait := 2 * h.pingInterval
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	// gorilla allows one concurrent writer
	var wmu sync.Mutex
	write := func(v interface{}) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		return conn.WriteJSON(v)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				wmu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait))
				wmu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		mt, b, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read", xlogger.Error(err))
			}
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))

		var out interface{}
		if mt != websocket.TextMessage {
			out = xhttp.ErrorResponse{Error: "only text frames are supported"}
		} else {
			out = h.streamFrame(c, b)
		}
		if err := write(out); err != nil {
			h.logger.Debug("websocket write", xlogger.Error(err))
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (h *MLHandler) streamFrame(c echo.Context, b []byte) interface{} {
	req := &models.PredictRequest{}
	if err := json.Unmarshal(b, req); err != nil {
		return xhttp.ErrorResponse{Error: "invalid frame: " + err.Error()}
	}
	if err := xhttp.ValidateStruct(c.Request().Context(), req); err != nil {
		var appErr *xhttp.AppError
		if errors.As(err, &appErr) {
			return xhttp.ErrorResponse{Error: appErr.Message, Details: appErr.Details}
		}
		return xhttp.ErrorResponse{Error: err.Error()}
	}
	return h.predictor.Predict(c.Request().Context(), *req.StudentID, "ws")
}
