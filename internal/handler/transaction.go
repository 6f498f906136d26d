package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/merchant-inventory/internal/model"
	"github.com/iliyamo/merchant-inventory/internal/service"
)

// Sales is what TransactionHandler needs from service.TransactionService.
type Sales interface {
	CreateTransaction(ctx context.Context, p service.Principal, req service.CreateTransactionRequest) (model.Transaction, error)
	GetTransaction(ctx context.Context, id uint64) (model.Transaction, error)
	ListTransactions(ctx context.Context) ([]model.Transaction, error)
	ListByMerchant(ctx context.Context, merchantID uint64) ([]model.Transaction, error)
}

// MerchantLookup resolves a merchant so keeper access can be checked.
type MerchantLookup interface {
	GetMerchant(ctx context.Context, id uint64) (model.Merchant, error)
}

// TransactionHandler records and reads sales.
type TransactionHandler struct {
	Sales     Sales
	Merchants MerchantLookup
}

func NewTransactionHandler(s Sales, m MerchantLookup) *TransactionHandler {
	if s == nil || m == nil {
		panic("nil dependency passed to NewTransactionHandler")
	}
	return &TransactionHandler{Sales: s, Merchants: m}
}

// canSee reports whether p may read sales of merchant m.
func canSee(p service.Principal, m *model.Merchant) bool {
	return p.Role == model.RoleManager || (m != nil && m.KeeperID == p.UserID)
}

type saleLineReq struct {
	ProductID uint64 `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type createTransactionReq struct {
	MerchantID uint64        `json:"merchant_id"`
	Name       string        `json:"name"`
	Phone      string        `json:"phone"`
	Products   []saleLineReq `json:"products"`
}

// validate checks the request shape before anything touches the database
// and converts it to the service request.
func (r createTransactionReq) validate() (service.CreateTransactionRequest, fieldErrors) {
	errs := fieldErrors{}
	name := strings.TrimSpace(r.Name)
	phone := strings.TrimSpace(r.Phone)
	if r.MerchantID == 0 {
		errs.add("merchant_id", "The merchant id field is required.")
	}
	if name == "" {
		errs.add("name", "The name field is required.")
	} else if len(name) > 255 {
		errs.add("name", "The name may not be greater than 255 characters.")
	}
	if phone == "" {
		errs.add("phone", "The phone field is required.")
	} else if len(phone) > 32 {
		errs.add("phone", "The phone may not be greater than 32 characters.")
	}
	if len(r.Products) == 0 {
		errs.add("products", "The products field must contain at least one item.")
	}

	out := service.CreateTransactionRequest{
		MerchantID: r.MerchantID,
		Name:       name,
		Phone:      phone,
		Products:   make([]service.SaleLineRequest, 0, len(r.Products)),
	}
	for i, p := range r.Products {
		if p.ProductID == 0 {
			errs.add(fmt.Sprintf("products.%d.product_id", i), "The product id field is required.")
		}
		switch field := fmt.Sprintf("products.%d.quantity", i); {
		case p.Quantity < 1:
			errs.add(field, "The quantity must be at least 1.")
		case p.Quantity > maxQuantity:
			errs.add(field, fmt.Sprintf("The quantity may not be greater than %d.", uint64(maxQuantity)))
		}
		out.Products = append(out.Products, service.SaleLineRequest{ProductID: p.ProductID, Quantity: uint32(p.Quantity)})
	}
	return out, errs
}

// Create handles POST /v1/transactions.
func (h *TransactionHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createTransactionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	sale, errs := req.validate()
	if len(errs) > 0 {
		return badRequest(c, errs)
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	t, err := h.Sales.CreateTransaction(ctx, p, sale)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// Get handles GET /v1/transactions/:id. Keepers only see sales of merchants
// they keep.
func (h *TransactionHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction id"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	t, err := h.Sales.GetTransaction(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if !canSee(p, t.Merchant) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, t)
}

// List handles GET /v1/transactions.
func (h *TransactionHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := h.Sales.ListTransactions(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListByMerchant handles GET /v1/merchants/:id/transactions.
func (h *TransactionHandler) ListByMerchant(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	merchantID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid merchant id"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	m, err := h.Merchants.GetMerchant(ctx, merchantID)
	if err != nil {
		return respondError(c, err)
	}
	if !canSee(p, &m) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	items, err := h.Sales.ListByMerchant(ctx, merchantID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
