package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/merchant-inventory/internal/model"
	"github.com/shopspring/decimal"
)

// ProductRepo owns the products table and with it the master stock
// ledger. Stock changes go through DecrementTx and IncrementTx only; both
// are single UPDATE statements evaluated against the row's current value,
// so concurrent callers can never drive the stock below zero.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo returns a new ProductRepo bound to the given database.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

const productColumns = `id, name, price, stock, created_at, updated_at`

func scanProduct(row rowScanner) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Product{}, ErrProductNotFound
	}
	return p, err
}

// Create inserts a product and returns it with generated fields populated.
func (r *ProductRepo) Create(ctx context.Context, name string, price decimal.Decimal, stock uint32) (model.Product, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO products (name, price, stock) VALUES (?, ?, ?)`,
		name, price.StringFixed(2), stock)
	if err != nil {
		return model.Product{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Product{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a product without locking it.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (model.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

// GetForUpdateTx reads a product and holds its row lock until tx ends.
// Allocation uses it so the duplicate check, stock check and decrement all
// see the same master stock value.
func (r *ProductRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Product, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ? FOR UPDATE`, id)
	return scanProduct(row)
}

// DecrementTx subtracts qty from the master stock. It fails with
// ErrInsufficientStock when fewer than qty units remain, in which case the
// row is left untouched.
func (r *ProductRepo) DecrementTx(ctx context.Context, tx *sql.Tx, id uint64, qty uint32) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE products SET stock = stock - ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND stock >= ?`,
		qty, id, qty)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrInsufficientStock)
}

// IncrementTx adds qty back to the master stock. Only the corrective
// allocation flows call it.
func (r *ProductRepo) IncrementTx(ctx context.Context, tx *sql.Tx, id uint64, qty uint32) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE products SET stock = stock + ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		qty, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrProductNotFound)
}
