package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/merchant-inventory/internal/model"
)

// ProductCatalog creates and reads products.
type ProductCatalog interface {
	Create(ctx context.Context, name string, price decimal.Decimal, stock uint32) (model.Product, error)
	GetByID(ctx context.Context, id uint64) (model.Product, error)
}

// MerchantDirectory creates and reads merchants.
type MerchantDirectory interface {
	Create(ctx context.Context, name string, keeperID uint64) (model.Merchant, error)
	GetByID(ctx context.Context, id uint64) (model.Merchant, error)
}

// CatalogService is the thin management surface for products and
// merchants. Stock is only set here at product creation; afterwards it
// moves exclusively through AllocationService.
type CatalogService struct {
	products  ProductCatalog
	merchants MerchantDirectory
}

func NewCatalogService(products ProductCatalog, merchants MerchantDirectory) *CatalogService {
	return &CatalogService{products: products, merchants: merchants}
}

func (s *CatalogService) CreateProduct(ctx context.Context, name string, price decimal.Decimal, stock uint32) (model.Product, error) {
	return s.products.Create(ctx, name, price.Round(2), stock)
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint64) (model.Product, error) {
	return s.products.GetByID(ctx, id)
}

func (s *CatalogService) CreateMerchant(ctx context.Context, name string, keeperID uint64) (model.Merchant, error) {
	return s.merchants.Create(ctx, name, keeperID)
}

func (s *CatalogService) GetMerchant(ctx context.Context, id uint64) (model.Merchant, error) {
	return s.merchants.GetByID(ctx, id)
}
