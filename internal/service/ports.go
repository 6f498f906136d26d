package service

import (
	"context"
	"database/sql"

	"github.com/iliyamo/merchant-inventory/internal/model"
	"github.com/iliyamo/merchant-inventory/internal/repository"
	"github.com/shopspring/decimal"
)

// The interfaces below are the slices of the repositories the core needs.
// The MySQL repositories in package repository satisfy them.

// UnitOfWork runs fn in one database transaction and commits only if fn
// returns nil.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// StockLedger owns the products' master stock.
type StockLedger interface {
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, productID uint64) (model.Product, error)
	DecrementTx(ctx context.Context, tx *sql.Tx, productID uint64, qty uint32) error
	IncrementTx(ctx context.Context, tx *sql.Tx, productID uint64, qty uint32) error
}

// MerchantReader resolves merchants.
type MerchantReader interface {
	GetByID(ctx context.Context, id uint64) (model.Merchant, error)
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Merchant, error)
}

// Allocations stores per-merchant stock allocations.
type Allocations interface {
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, merchantID, productID uint64) (model.MerchantProduct, error)
	GetSaleLineForUpdateTx(ctx context.Context, tx *sql.Tx, merchantID, productID uint64) (repository.SaleLine, error)
	CreateTx(ctx context.Context, tx *sql.Tx, merchantID, productID uint64, stock uint32) (model.MerchantProduct, error)
	SetStockTx(ctx context.Context, tx *sql.Tx, merchantID, productID uint64, stock uint32) error
	DecrementTx(ctx context.Context, tx *sql.Tx, allocationID uint64, qty uint32) error
	DeleteTx(ctx context.Context, tx *sql.Tx, merchantID, productID uint64) error
	ListByMerchant(ctx context.Context, merchantID uint64) ([]model.MerchantProduct, error)
}

// Transactions stores sales and their lines.
type Transactions interface {
	CreateShellTx(ctx context.Context, tx *sql.Tx, merchantID uint64, name, phone string) (uint64, error)
	CreateLineTx(ctx context.Context, tx *sql.Tx, line model.TransactionProduct) error
	FinalizeTx(ctx context.Context, tx *sql.Tx, id uint64, sub, tax, grand decimal.Decimal) error
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Transaction, error)
	GetByID(ctx context.Context, id uint64) (model.Transaction, error)
	List(ctx context.Context) ([]model.Transaction, error)
	ListByMerchant(ctx context.Context, merchantID uint64) ([]model.Transaction, error)
}

// EventPublisher receives a notification for every committed sale.
// Implementations must not block for long; failures are only logged.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, t model.Transaction) error
}
