package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"StudentDrop/pkg/logger"
)

// Recover turns a handler panic into an error for the server's error
// handler, which renders it as a 500.
func Recover(l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					if re, ok := r.(error); ok {
						err = fmt.Errorf("panic: %w", re)
					} else {
						err = fmt.Errorf("panic: %v", r)
					}
					l.Error("panic recovered",
						logger.String("path", c.Path()),
						logger.Error(err),
						logger.String("stack", string(debug.Stack())))
				}
			}()
			return next(c)
		}
	}
}
