package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/merchant-inventory/internal/logger"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID reuses the caller's X-Request-ID or generates one, echoes it
// back, and attaches a child of base tagged with it to the request context
// so services log under the same id.
func RequestID(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.New().String()
			}
			c.Request().Header.Set(RequestIDHeader, id)
			c.Response().Header().Set(RequestIDHeader, id)

			l := base.With(zap.String("request_id", id))
			c.Set("logger", l)
			c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context(), l)))
			return next(c)
		}
	}
}

// AccessLog writes one line per request with the request-scoped logger.
func AccessLog() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			l := logger.FromContext(c.Request().Context())
			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			if id, _, ok := CurrentUser(c); ok {
				fields = append(fields, zap.Uint64("user_id", id))
			}
			switch {
			case c.Response().Status >= 500:
				l.Error("request", append(fields, zap.Error(err))...)
			case c.Response().Status >= 400:
				l.Warn("request", fields...)
			default:
				l.Info("request", fields...)
			}
			return nil
		}
	}
}
