package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"StudentDrop/pkg/logger"
)

// SuccessResponse writes data as the 200 body, unwrapped.
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

// ErrorJSON writes an {"error": message} body.
func ErrorJSON(c echo.Context, status int, message string, details ...ValidationError) error {
	return c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// ErrorHandler renders every error that reaches echo, including router
// 404/405 and recovered panics, in the {"error": ...} shape.
func ErrorHandler(l *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		appErr := toAppError(err)
		if appErr.Status >= http.StatusInternalServerError {
			l.Error("http handler error",
				logger.String("method", c.Request().Method),
				logger.String("path", c.Path()),
				logger.Error(err))
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(appErr.Status)
		} else {
			werr = ErrorJSON(c, appErr.Status, appErr.Message, appErr.Details...)
		}
		if werr != nil {
			l.Warn("write error response", logger.Error(werr))
		}
	}
}

func toAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound:
			return NotFoundError(http.StatusText(http.StatusNotFound)).WithError(err)
		case http.StatusMethodNotAllowed:
			return MethodNotAllowedError(http.StatusText(http.StatusMethodNotAllowed)).WithError(err)
		case http.StatusUnsupportedMediaType:
			return BadRequestError("request body must be application/json").WithError(err)
		}
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		} else if he.Message != nil {
			msg = fmt.Sprintf("%v", he.Message)
		}
		return NewAppError("ERR_HTTP", "", msg, he.Code).WithError(err)
	}

	return InternalError(http.StatusText(http.StatusInternalServerError)).WithError(err)
}
