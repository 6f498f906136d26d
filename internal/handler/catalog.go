package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/merchant-inventory/internal/model"
)

// Catalog is what CatalogHandler needs from service.CatalogService.
type Catalog interface {
	CreateProduct(ctx context.Context, name string, price decimal.Decimal, stock uint32) (model.Product, error)
	GetProduct(ctx context.Context, id uint64) (model.Product, error)
	CreateMerchant(ctx context.Context, name string, keeperID uint64) (model.Merchant, error)
	GetMerchant(ctx context.Context, id uint64) (model.Merchant, error)
}

// CatalogHandler serves product and merchant management.
type CatalogHandler struct {
	Catalog Catalog
}

func NewCatalogHandler(catalog Catalog) *CatalogHandler {
	if catalog == nil {
		panic("nil catalog passed to NewCatalogHandler")
	}
	return &CatalogHandler{Catalog: catalog}
}

type createProductReq struct {
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price"`
	Stock *int64           `json:"stock"`
}

type createMerchantReq struct {
	Name     string `json:"name"`
	KeeperID uint64 `json:"keeper_id"`
}

// CreateProduct handles POST /v1/products.
func (h *CatalogHandler) CreateProduct(c echo.Context) error {
	var req createProductReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)

	errs := fieldErrors{}
	if req.Name == "" {
		errs.add("name", "The name field is required.")
	}
	switch {
	case req.Price == nil:
		errs.add("price", "The price field is required.")
	case req.Price.IsNegative():
		errs.add("price", "The price must be at least 0.")
	}
	switch {
	case req.Stock == nil:
		errs.add("stock", "The stock field is required.")
	case *req.Stock < 0 || *req.Stock > maxQuantity:
		errs.add("stock", "The stock must be a non-negative integer.")
	}
	if len(errs) > 0 {
		return badRequest(c, errs)
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.Catalog.CreateProduct(ctx, req.Name, *req.Price, uint32(*req.Stock))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// GetProduct handles GET /v1/products/:id.
func (h *CatalogHandler) GetProduct(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.Catalog.GetProduct(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// CreateMerchant handles POST /v1/merchants.
func (h *CatalogHandler) CreateMerchant(c echo.Context) error {
	var req createMerchantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)

	errs := fieldErrors{}
	if req.Name == "" {
		errs.add("name", "The name field is required.")
	}
	if req.KeeperID == 0 {
		errs.add("keeper_id", "The keeper id field is required.")
	}
	if len(errs) > 0 {
		return badRequest(c, errs)
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	m, err := h.Catalog.CreateMerchant(ctx, req.Name, req.KeeperID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// GetMerchant handles GET /v1/merchants/:id.
func (h *CatalogHandler) GetMerchant(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid merchant id"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	m, err := h.Catalog.GetMerchant(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}
