package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *sql.DB and *redis.Client wrappers.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Health reports "ok" when the database answers a ping within two seconds.
// Optional dependencies are reported but never fail the check.
func Health(db Pinger, optional map[string]Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		deps := echo.Map{}
		for name, p := range optional {
			if err := p.PingContext(ctx); err != nil {
				deps[name] = "down"
			} else {
				deps[name] = "up"
			}
		}
		if err := db.PingContext(ctx); err != nil {
			deps["database"] = "down"
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "dependencies": deps})
		}
		deps["database"] = "up"
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "dependencies": deps})
	}
}
