package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/merchant-inventory/internal/config"
	"github.com/iliyamo/merchant-inventory/internal/logger"
	"github.com/iliyamo/merchant-inventory/internal/metrics"
	"github.com/iliyamo/merchant-inventory/internal/model"
	"github.com/iliyamo/merchant-inventory/internal/repository"
)

// AllocationService moves stock from the master ledger to merchants. It is
// the only code path that touches both the products' stock and the
// merchant_products rows, and it always does so inside one unit of work.
type AllocationService struct {
	uow         UnitOfWork
	ledger      StockLedger
	merchants   MerchantReader
	allocations Allocations
	policy      config.AllocationPolicy
}

// NewAllocationService wires the service. A zero policy keeps the plain
// behavior: removal forfeits stock and updates never touch master stock.
func NewAllocationService(uow UnitOfWork, ledger StockLedger, merchants MerchantReader, allocations Allocations, policy config.AllocationPolicy) *AllocationService {
	if uow == nil || ledger == nil || merchants == nil || allocations == nil {
		panic("nil dependency passed to NewAllocationService")
	}
	return &AllocationService{uow: uow, ledger: ledger, merchants: merchants, allocations: allocations, policy: policy}
}

// Assign creates the merchant's allocation of qty units of productID and
// takes the same qty out of the product's master stock.
func (s *AllocationService) Assign(ctx context.Context, merchantID, productID uint64, qty uint32) (model.MerchantProduct, error) {
	var assigned model.MerchantProduct
	err := s.uow.WithinTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.merchants.GetByIDTx(ctx, tx, merchantID); err != nil {
			if errors.Is(err, repository.ErrMerchantNotFound) {
				return invalid("merchant_id", err, "Merchant not found.")
			}
			return err
		}
		// Lock the product first: concurrent assigns of the same product
		// queue here and each sees the stock the previous one left.
		product, err := s.ledger.GetForUpdateTx(ctx, tx, productID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return invalid("product_id", err, "Product not found.")
			}
			return err
		}

		_, err = s.allocations.GetForUpdateTx(ctx, tx, merchantID, productID)
		switch {
		case err == nil:
			return invalid("product", repository.ErrDuplicateAllocation, "Product already exists in this merchant.")
		case !errors.Is(err, repository.ErrAllocationNotFound):
			return err
		}

		if product.Stock < qty {
			return invalid("stock", repository.ErrInsufficientStock, "Not enough stock in master product.")
		}

		assigned, err = s.allocations.CreateTx(ctx, tx, merchantID, productID, qty)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateAllocation) {
				return invalid("product", err, "Product already exists in this merchant.")
			}
			return err
		}
		if err := s.ledger.DecrementTx(ctx, tx, productID, qty); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return invalid("stock", err, "Not enough stock in master product.")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return model.MerchantProduct{}, err
	}

	metrics.StockAllocated.Add(float64(qty))
	logger.FromContext(ctx).Info("product assigned to merchant",
		zap.Uint64("merchant_id", merchantID),
		zap.Uint64("product_id", productID),
		zap.Uint32("stock", qty),
	)
	return assigned, nil
}

// UpdateStock sets the allocation's stock to newQty. The value is absolute,
// not a delta. With ReconcileOnUpdate the difference is moved to or from
// the master stock; otherwise master stock is not consulted.
func (s *AllocationService) UpdateStock(ctx context.Context, merchantID, productID uint64, newQty uint32) (model.MerchantProduct, error) {
	var updated model.MerchantProduct
	err := s.uow.WithinTx(ctx, func(tx *sql.Tx) error {
		current, err := s.allocations.GetForUpdateTx(ctx, tx, merchantID, productID)
		if err != nil {
			if errors.Is(err, repository.ErrAllocationNotFound) {
				return invalid("product", err, "Product not assigned to this merchant.")
			}
			return err
		}

		if s.policy.ReconcileOnUpdate {
			if err := s.reconcile(ctx, tx, productID, current.Stock, newQty); err != nil {
				return err
			}
		}

		if err := s.allocations.SetStockTx(ctx, tx, merchantID, productID, newQty); err != nil {
			return err
		}
		updated = current
		updated.Stock = newQty
		return nil
	})
	if err != nil {
		return model.MerchantProduct{}, err
	}
	logger.FromContext(ctx).Info("merchant stock updated",
		zap.Uint64("merchant_id", merchantID),
		zap.Uint64("product_id", productID),
		zap.Uint32("stock", newQty),
	)
	return updated, nil
}

func (s *AllocationService) reconcile(ctx context.Context, tx *sql.Tx, productID uint64, from, to uint32) error {
	switch {
	case to > from:
		if err := s.ledger.DecrementTx(ctx, tx, productID, to-from); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return invalid("stock", err, "Not enough stock in master product.")
			}
			return err
		}
	case to < from:
		return s.ledger.IncrementTx(ctx, tx, productID, from-to)
	}
	return nil
}

// Remove detaches the product from the merchant. The allocated quantity is
// forfeited unless ReturnOnRemove is set, in which case it goes back to the
// master stock in the same unit of work.
func (s *AllocationService) Remove(ctx context.Context, merchantID, productID uint64) error {
	var returned uint32
	err := s.uow.WithinTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.merchants.GetByIDTx(ctx, tx, merchantID); err != nil {
			if errors.Is(err, repository.ErrMerchantNotFound) {
				return invalid("product", err, "Merchant not found.")
			}
			return err
		}
		current, err := s.allocations.GetForUpdateTx(ctx, tx, merchantID, productID)
		if err != nil {
			if errors.Is(err, repository.ErrAllocationNotFound) {
				return invalid("product", err, "Product not assigned to this merchant.")
			}
			return err
		}
		if err := s.allocations.DeleteTx(ctx, tx, merchantID, productID); err != nil {
			return err
		}
		if s.policy.ReturnOnRemove && current.Stock > 0 {
			if err := s.ledger.IncrementTx(ctx, tx, productID, current.Stock); err != nil {
				return err
			}
			returned = current.Stock
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("product detached from merchant",
		zap.Uint64("merchant_id", merchantID),
		zap.Uint64("product_id", productID),
		zap.Bool("stock_returned", returned > 0),
		zap.Uint32("returned_units", returned),
	)
	return nil
}

// ListByMerchant returns the merchant's allocations with product details.
func (s *AllocationService) ListByMerchant(ctx context.Context, merchantID uint64) ([]model.MerchantProduct, error) {
	if _, err := s.merchants.GetByID(ctx, merchantID); err != nil {
		if errors.Is(err, repository.ErrMerchantNotFound) {
			return nil, invalid("merchant_id", err, "Merchant not found.")
		}
		return nil, err
	}
	return s.allocations.ListByMerchant(ctx, merchantID)
}
