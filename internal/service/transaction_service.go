package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/merchant-inventory/internal/logger"
	"github.com/iliyamo/merchant-inventory/internal/metrics"
	"github.com/iliyamo/merchant-inventory/internal/model"
	"github.com/iliyamo/merchant-inventory/internal/repository"
)

// SaleLineRequest is one requested product line.
type SaleLineRequest struct {
	ProductID uint64
	Quantity  uint32
}

// CreateTransactionRequest is a sale as received from the request layer.
// Quantities are positive and Products is non-empty by the time it gets here.
type CreateTransactionRequest struct {
	MerchantID uint64
	Name       string
	Phone      string
	Products   []SaleLineRequest
}

// TransactionService records sales against merchant allocations. It never
// touches the products' master stock.
type TransactionService struct {
	uow          UnitOfWork
	merchants    MerchantReader
	allocations  Allocations
	transactions Transactions
	authz        Authorizer
	taxRate      decimal.Decimal
	events       EventPublisher
}

// NewTransactionService wires the service. events may be nil.
func NewTransactionService(uow UnitOfWork, merchants MerchantReader, allocations Allocations, transactions Transactions, authz Authorizer, taxRate decimal.Decimal, events EventPublisher) *TransactionService {
	if uow == nil || merchants == nil || allocations == nil || transactions == nil || authz == nil {
		panic("nil dependency passed to NewTransactionService")
	}
	return &TransactionService{
		uow:          uow,
		merchants:    merchants,
		allocations:  allocations,
		transactions: transactions,
		authz:        authz,
		taxRate:      taxRate,
		events:       events,
	}
}

// Totals computes tax and grand total for a subtotal. Tax is rounded half
// away from zero to cents; the grand total is the exact sum of the two.
func Totals(subTotal, taxRate decimal.Decimal) (tax, grand decimal.Decimal) {
	tax = subTotal.Mul(taxRate).Round(2)
	return tax, subTotal.Add(tax)
}

// CreateTransaction records a sale as one unit of work: the transaction
// row, every line, every allocation decrement and the final totals commit
// together or not at all. Lines are processed in request order.
func (s *TransactionService) CreateTransaction(ctx context.Context, principal Principal, req CreateTransactionRequest) (model.Transaction, error) {
	log := logger.FromContext(ctx).With(
		zap.Uint64("merchant_id", req.MerchantID),
		zap.Uint64("principal", principal.UserID),
	)

	var created model.Transaction
	err := s.uow.WithinTx(ctx, func(tx *sql.Tx) error {
		merchant, err := s.merchants.GetByIDTx(ctx, tx, req.MerchantID)
		if err != nil {
			if errors.Is(err, repository.ErrMerchantNotFound) {
				return invalid("merchant_id", err, "Merchant not found.")
			}
			return err
		}
		if err := s.authz.Authorize(principal, merchant); err != nil {
			return err
		}

		txID, err := s.transactions.CreateShellTx(ctx, tx, merchant.ID, req.Name, req.Phone)
		if err != nil {
			return err
		}

		subTotal := decimal.Zero
		for _, item := range req.Products {
			line, err := s.allocations.GetSaleLineForUpdateTx(ctx, tx, merchant.ID, item.ProductID)
			if err != nil && !errors.Is(err, repository.ErrAllocationNotFound) {
				return err
			}
			if err != nil || line.Stock < item.Quantity {
				return invalid("stock", repository.ErrInsufficientStock,
					"Not enough stock for product ID %d in this merchant.", item.ProductID)
			}

			itemSubTotal := line.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			subTotal = subTotal.Add(itemSubTotal)

			if err := s.transactions.CreateLineTx(ctx, tx, model.TransactionProduct{
				TransactionID: txID,
				ProductID:     item.ProductID,
				Quantity:      item.Quantity,
				Price:         line.Price,
				SubTotal:      itemSubTotal,
			}); err != nil {
				return err
			}

			if err := s.allocations.DecrementTx(ctx, tx, line.AllocationID, item.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return invalid("stock", err,
						"Not enough stock for product ID %d in this merchant.", item.ProductID)
				}
				return err
			}
		}

		tax, grand := Totals(subTotal, s.taxRate)
		if err := s.transactions.FinalizeTx(ctx, tx, txID, subTotal, tax, grand); err != nil {
			return err
		}

		created, err = s.transactions.GetByIDTx(ctx, tx, txID)
		return err
	})
	if err != nil {
		metrics.SaleFailed(err)
		log.Info("transaction rejected", zap.Error(err))
		return model.Transaction{}, err
	}

	metrics.SalesCommitted.Inc()
	log.Info("transaction created",
		zap.Uint64("transaction_id", created.ID),
		zap.Int("lines", len(created.Products)),
		zap.String("grand_total", created.GrandTotal.StringFixed(2)),
	)
	if s.events != nil {
		if err := s.events.PublishTransactionCreated(ctx, created); err != nil {
			log.Warn("publish transaction.created failed", zap.Uint64("transaction_id", created.ID), zap.Error(err))
		}
	}
	return created, nil
}

// GetTransaction returns one transaction with its lines and merchant.
func (s *TransactionService) GetTransaction(ctx context.Context, id uint64) (model.Transaction, error) {
	t, err := s.transactions.GetByID(ctx, id)
	if errors.Is(err, repository.ErrTransactionNotFound) {
		return model.Transaction{}, invalid("transaction_id", err, "Transaction not found.")
	}
	return t, err
}

// ListTransactions returns every transaction, newest first.
func (s *TransactionService) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	return s.transactions.List(ctx)
}

// ListByMerchant returns the merchant's transactions, newest first.
func (s *TransactionService) ListByMerchant(ctx context.Context, merchantID uint64) ([]model.Transaction, error) {
	if _, err := s.merchants.GetByID(ctx, merchantID); err != nil {
		if errors.Is(err, repository.ErrMerchantNotFound) {
			return nil, invalid("merchant_id", err, "Merchant not found.")
		}
		return nil, err
	}
	return s.transactions.ListByMerchant(ctx, merchantID)
}
