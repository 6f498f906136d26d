package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/merchant-inventory/internal/middleware"
	"github.com/iliyamo/merchant-inventory/internal/model"
)

// RegisterManager registers MANAGER-only endpoints under /v1: the product
// and merchant catalog, stock allocation and the global sales listing.
func RegisterManager(e *echo.Echo, h Handlers, guard Guards, jwtSecret string) {
	guard = guard.orNoop()
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleManager),
	)

	// ---- Catalog ----
	// products carry master stock, so only merchant reads are cached
	g.POST("/products", h.Catalog.CreateProduct, guard.RateLimit)
	g.GET("/products/:id", h.Catalog.GetProduct)
	g.POST("/merchants", h.Catalog.CreateMerchant, guard.RateLimit)
	g.GET("/merchants/:id", h.Catalog.GetMerchant, guard.Cache)

	// ---- Allocations ----
	// stock figures are never cached
	g.POST("/merchants/:id/products", h.Allocations.Assign, guard.RateLimit)
	g.PUT("/merchants/:id/products/:product_id", h.Allocations.UpdateStock, guard.RateLimit)
	g.DELETE("/merchants/:id/products/:product_id", h.Allocations.Remove, guard.RateLimit)
	g.GET("/merchants/:id/products", h.Allocations.List)

	// ---- Sales ----
	g.GET("/transactions", h.Transactions.List)
}
