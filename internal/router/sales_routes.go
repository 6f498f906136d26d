package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/merchant-inventory/internal/middleware"
	"github.com/iliyamo/merchant-inventory/internal/model"
)

// RegisterSales registers the endpoints keepers use. Managers may call them
// too; whether a given principal may sell for a merchant is decided by the
// transaction service's authorizer, and reads are scoped in the handler.
func RegisterSales(e *echo.Echo, h Handlers, guard Guards, jwtSecret string) {
	guard = guard.orNoop()
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleManager, model.RoleKeeper),
	)
	g.POST("/transactions", h.Transactions.Create, guard.RateLimit)
	g.GET("/transactions/:id", h.Transactions.Get)
	g.GET("/merchants/:id/transactions", h.Transactions.ListByMerchant)
}
