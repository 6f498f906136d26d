// Package metrics holds the Prometheus collectors: HTTP request metrics
// recorded by middleware and a few domain counters recorded by the services.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/merchant-inventory/internal/repository"
)

var (
	// RequestCounter counts all HTTP requests with labels
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration records request duration in seconds
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SalesCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_committed_total",
		Help: "Sales transactions committed",
	})

	salesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_failed_total",
		Help: "Sales transactions rolled back, by reason",
	}, []string{"reason"})

	StockAllocated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_allocated_units_total",
		Help: "Units moved from master stock to merchant allocations",
	})
)

// SaleFailed counts a rolled back sale under a reason derived from err.
func SaleFailed(err error) {
	salesFailed.WithLabelValues(Reason(err)).Inc()
}

// Reason maps an error to a low-cardinality label value.
func Reason(err error) string {
	switch {
	case errors.Is(err, repository.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, repository.ErrMerchantNotFound):
		return "merchant_not_found"
	case errors.Is(err, repository.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}

// Middleware records request count and latency per route template.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if err != nil && errors.As(err, &he) {
				status = he.Code
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			RequestCounter.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			RequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
