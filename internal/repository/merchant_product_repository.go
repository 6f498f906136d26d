package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/merchant-inventory/internal/model"
	"github.com/shopspring/decimal"
)

// MerchantProductRepo provides access to merchant_products, the per
// merchant stock allocations. Each row's stock counter is independent of
// the product's master stock. All mutating methods run inside a caller
// supplied transaction; the caller commits or rolls back.
type MerchantProductRepo struct {
	db *sql.DB
}

// NewMerchantProductRepo returns a new MerchantProductRepo bound to db.
func NewMerchantProductRepo(db *sql.DB) *MerchantProductRepo { return &MerchantProductRepo{db: db} }

// SaleLine is an allocation joined with the product's current price, as
// read under lock while recording a sale.
type SaleLine struct {
	AllocationID uint64
	Stock        uint32
	Price        decimal.Decimal
	ProductName  string
}

const allocationColumns = `id, merchant_id, product_id, stock, created_at, updated_at`

func scanAllocation(row rowScanner) (model.MerchantProduct, error) {
	var mp model.MerchantProduct
	err := row.Scan(&mp.ID, &mp.MerchantID, &mp.ProductID, &mp.Stock, &mp.CreatedAt, &mp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MerchantProduct{}, ErrAllocationNotFound
	}
	return mp, err
}

// GetForUpdateTx reads the allocation for the pair and locks it until tx
// ends. It returns ErrAllocationNotFound when the pair has no row.
func (r *MerchantProductRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, merchantID, productID uint64) (model.MerchantProduct, error) {
	const q = `SELECT ` + allocationColumns + ` FROM merchant_products
               WHERE merchant_id = ? AND product_id = ? FOR UPDATE`
	return scanAllocation(tx.QueryRowContext(ctx, q, merchantID, productID))
}

// GetSaleLineForUpdateTx locks the allocation row for the pair and returns
// it with the product's current price. Only the allocation row is locked;
// the price is read as a consistent snapshot.
func (r *MerchantProductRepo) GetSaleLineForUpdateTx(ctx context.Context, tx *sql.Tx, merchantID, productID uint64) (SaleLine, error) {
	const q = `SELECT mp.id, mp.stock, p.price, p.name
               FROM merchant_products mp
               JOIN products p ON p.id = mp.product_id
               WHERE mp.merchant_id = ? AND mp.product_id = ?
               FOR UPDATE OF mp`
	var l SaleLine
	err := tx.QueryRowContext(ctx, q, merchantID, productID).Scan(&l.AllocationID, &l.Stock, &l.Price, &l.ProductName)
	if errors.Is(err, sql.ErrNoRows) {
		return SaleLine{}, ErrAllocationNotFound
	}
	return l, err
}

// CreateTx inserts a new allocation. A concurrent insert for the same pair
// surfaces as ErrDuplicateAllocation through the unique key.
func (r *MerchantProductRepo) CreateTx(ctx context.Context, tx *sql.Tx, merchantID, productID uint64, stock uint32) (model.MerchantProduct, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO merchant_products (merchant_id, product_id, stock) VALUES (?, ?, ?)`,
		merchantID, productID, stock)
	if err != nil {
		if isDuplicateKey(err) {
			return model.MerchantProduct{}, ErrDuplicateAllocation
		}
		return model.MerchantProduct{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.MerchantProduct{}, err
	}
	return scanAllocation(tx.QueryRowContext(ctx, `SELECT `+allocationColumns+` FROM merchant_products WHERE id = ?`, id))
}

// SetStockTx overwrites the allocation's stock with an absolute value.
func (r *MerchantProductRepo) SetStockTx(ctx context.Context, tx *sql.Tx, merchantID, productID uint64, stock uint32) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE merchant_products SET stock = ?, updated_at = UTC_TIMESTAMP() WHERE merchant_id = ? AND product_id = ?`,
		stock, merchantID, productID)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrAllocationNotFound)
}

// DecrementTx subtracts qty from the allocation if at least qty remain,
// otherwise it returns ErrInsufficientStock and leaves the row untouched.
func (r *MerchantProductRepo) DecrementTx(ctx context.Context, tx *sql.Tx, allocationID uint64, qty uint32) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE merchant_products SET stock = stock - ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND stock >= ?`,
		qty, allocationID, qty)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrInsufficientStock)
}

// DeleteTx removes the allocation for the pair. The allocated quantity is
// simply dropped; returning it to master stock is the caller's decision.
func (r *MerchantProductRepo) DeleteTx(ctx context.Context, tx *sql.Tx, merchantID, productID uint64) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM merchant_products WHERE merchant_id = ? AND product_id = ?`,
		merchantID, productID)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrAllocationNotFound)
}

// ListByMerchant returns the merchant's allocations with product details,
// ordered by product id.
func (r *MerchantProductRepo) ListByMerchant(ctx context.Context, merchantID uint64) ([]model.MerchantProduct, error) {
	const q = `SELECT mp.id, mp.merchant_id, mp.product_id, mp.stock, mp.created_at, mp.updated_at,
                      p.id, p.name, p.price, p.stock, p.created_at, p.updated_at
               FROM merchant_products mp
               JOIN products p ON p.id = mp.product_id
               WHERE mp.merchant_id = ?
               ORDER BY mp.product_id`
	rows, err := r.db.QueryContext(ctx, q, merchantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.MerchantProduct{}
	for rows.Next() {
		var mp model.MerchantProduct
		var p model.Product
		if err := rows.Scan(
			&mp.ID, &mp.MerchantID, &mp.ProductID, &mp.Stock, &mp.CreatedAt, &mp.UpdatedAt,
			&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		mp.Product = &p
		out = append(out, mp)
	}
	return out, rows.Err()
}

func expectOneRow(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}
