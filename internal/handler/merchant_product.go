package handler

import (
	"context"
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/merchant-inventory/internal/model"
)

// maxQuantity is the largest stock or quantity a request may carry; the
// columns are INT UNSIGNED.
const maxQuantity = math.MaxUint32

// Allocator is what MerchantProductHandler needs from service.AllocationService.
type Allocator interface {
	Assign(ctx context.Context, merchantID, productID uint64, qty uint32) (model.MerchantProduct, error)
	UpdateStock(ctx context.Context, merchantID, productID uint64, newQty uint32) (model.MerchantProduct, error)
	Remove(ctx context.Context, merchantID, productID uint64) error
	ListByMerchant(ctx context.Context, merchantID uint64) ([]model.MerchantProduct, error)
}

// MerchantProductHandler manages the stock a merchant holds per product.
type MerchantProductHandler struct {
	Allocations Allocator
}

func NewMerchantProductHandler(a Allocator) *MerchantProductHandler {
	if a == nil {
		panic("nil allocator passed to NewMerchantProductHandler")
	}
	return &MerchantProductHandler{Allocations: a}
}

type assignReq struct {
	ProductID uint64 `json:"product_id"`
	Stock     *int64 `json:"stock"`
}

type updateStockReq struct {
	Stock *int64 `json:"stock"`
}

func validStock(errs fieldErrors, stock *int64) {
	switch {
	case stock == nil:
		errs.add("stock", "The stock field is required.")
	case *stock < 0 || *stock > maxQuantity:
		errs.add("stock", "The stock must be a non-negative integer.")
	}
}

// Assign handles POST /v1/merchants/:id/products.
func (h *MerchantProductHandler) Assign(c echo.Context) error {
	merchantID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid merchant id"})
	}
	var req assignReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	errs := fieldErrors{}
	if req.ProductID == 0 {
		errs.add("product_id", "The product id field is required.")
	}
	validStock(errs, req.Stock)
	if len(errs) > 0 {
		return badRequest(c, errs)
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	mp, err := h.Allocations.Assign(ctx, merchantID, req.ProductID, uint32(*req.Stock))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, mp)
}

// UpdateStock handles PUT /v1/merchants/:id/products/:product_id. The body's
// stock replaces the allocation's stock.
func (h *MerchantProductHandler) UpdateStock(c echo.Context) error {
	merchantID, ok1 := pathID(c, "id")
	productID, ok2 := pathID(c, "product_id")
	if !ok1 || !ok2 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateStockReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	errs := fieldErrors{}
	validStock(errs, req.Stock)
	if len(errs) > 0 {
		return badRequest(c, errs)
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	mp, err := h.Allocations.UpdateStock(ctx, merchantID, productID, uint32(*req.Stock))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, mp)
}

// Remove handles DELETE /v1/merchants/:id/products/:product_id.
func (h *MerchantProductHandler) Remove(c echo.Context) error {
	merchantID, ok1 := pathID(c, "id")
	productID, ok2 := pathID(c, "product_id")
	if !ok1 || !ok2 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Allocations.Remove(ctx, merchantID, productID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /v1/merchants/:id/products.
func (h *MerchantProductHandler) List(c echo.Context) error {
	merchantID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid merchant id"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := h.Allocations.ListByMerchant(ctx, merchantID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
