package router // package router registers the HTTP routes of the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/merchant-inventory/internal/handler"
	"github.com/iliyamo/merchant-inventory/internal/metrics"
	"github.com/iliyamo/merchant-inventory/internal/middleware"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Health       echo.HandlerFunc
	Auth         *handler.AuthHandler
	Catalog      *handler.CatalogHandler
	Allocations  *handler.MerchantProductHandler
	Transactions *handler.TransactionHandler
}

// Guards are the per-route middlewares built from config: the Redis token
// bucket for writes and the Redis response cache for catalog reads.
type Guards struct {
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

func noop(next echo.HandlerFunc) echo.HandlerFunc { return next }

// orNoop fills unset guards so routes can always list them.
func (g Guards) orNoop() Guards {
	if g.RateLimit == nil {
		g.RateLimit = noop
	}
	if g.Cache == nil {
		g.Cache = noop
	}
	return g
}

// RegisterRoutes registers unauthenticated routes: the health check and
// the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers the token endpoints under /v1/auth and the
// protected /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh) // rotates the refresh token
	g.POST("/logout", a.Logout)   // body: refresh_token; no access token needed

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// Register wires every route group.
func Register(e *echo.Echo, h Handlers, g Guards, jwtSecret string) {
	RegisterRoutes(e, h)
	RegisterAuth(e, h.Auth, jwtSecret)
	RegisterManager(e, h, g, jwtSecret)
	RegisterSales(e, h, g, jwtSecret)
}
