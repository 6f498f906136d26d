package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/merchant-inventory/internal/model"
	"github.com/shopspring/decimal"
)

// TransactionRepo provides CRUD operations for sales and their lines. A
// sale is written in three steps inside one database transaction: the
// shell row with zero totals (so lines have an id to reference), the
// lines, then the final totals.
type TransactionRepo struct {
	db *sql.DB
}

// NewTransactionRepo returns a new TransactionRepo bound to the given database.
func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateShellTx inserts the transaction row with zeroed totals and
// returns its id.
func (r *TransactionRepo) CreateShellTx(ctx context.Context, tx *sql.Tx, merchantID uint64, name, phone string) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (name, phone, merchant_id, sub_total, tax_total, grand_total) VALUES (?, ?, ?, 0, 0, 0)`,
		name, phone, merchantID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CreateLineTx inserts one line of the transaction. Price and SubTotal are
// stored as given; they are the snapshot taken at sale time.
func (r *TransactionRepo) CreateLineTx(ctx context.Context, tx *sql.Tx, line model.TransactionProduct) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transaction_products (transaction_id, product_id, quantity, price, sub_total) VALUES (?, ?, ?, ?, ?)`,
		line.TransactionID, line.ProductID, line.Quantity, line.Price.StringFixed(2), line.SubTotal.StringFixed(2))
	return err
}

// FinalizeTx writes the computed totals onto the shell row.
func (r *TransactionRepo) FinalizeTx(ctx context.Context, tx *sql.Tx, id uint64, sub, tax, grand decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE transactions SET sub_total = ?, tax_total = ?, grand_total = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		sub.StringFixed(2), tax.StringFixed(2), grand.StringFixed(2), id)
	if err != nil {
		return err
	}
	return expectOneRow(res, ErrTransactionNotFound)
}

// GetByIDTx reloads a transaction with its lines and merchant inside tx,
// so a sale can be returned fully materialized before it commits.
func (r *TransactionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Transaction, error) {
	return r.load(ctx, tx, id)
}

// GetByID loads a committed transaction with its lines and merchant.
func (r *TransactionRepo) GetByID(ctx context.Context, id uint64) (model.Transaction, error) {
	return r.load(ctx, r.db, id)
}

const transactionSelect = `SELECT t.id, t.name, t.phone, t.merchant_id, t.sub_total, t.tax_total, t.grand_total,
                                  t.created_at, t.updated_at,
                                  m.id, m.name, m.keeper_id, m.created_at, m.updated_at
                           FROM transactions t
                           JOIN merchants m ON m.id = t.merchant_id`

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var t model.Transaction
	var m model.Merchant
	err := row.Scan(
		&t.ID, &t.Name, &t.Phone, &t.MerchantID, &t.SubTotal, &t.TaxTotal, &t.GrandTotal,
		&t.CreatedAt, &t.UpdatedAt,
		&m.ID, &m.Name, &m.KeeperID, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, err
	}
	t.Merchant = &m
	t.Products = []model.TransactionProduct{}
	return t, nil
}

func (r *TransactionRepo) load(ctx context.Context, q querier, id uint64) (model.Transaction, error) {
	t, err := scanTransaction(q.QueryRowContext(ctx, transactionSelect+` WHERE t.id = ?`, id))
	if err != nil {
		return model.Transaction{}, err
	}
	lines, err := r.linesFor(ctx, q, []uint64{t.ID})
	if err != nil {
		return model.Transaction{}, err
	}
	t.Products = append(t.Products, lines[t.ID]...)
	return t, nil
}

// List returns every transaction, newest first, with lines attached.
func (r *TransactionRepo) List(ctx context.Context) ([]model.Transaction, error) {
	return r.list(ctx, transactionSelect+` ORDER BY t.id DESC`)
}

// ListByMerchant returns the merchant's transactions, newest first.
func (r *TransactionRepo) ListByMerchant(ctx context.Context, merchantID uint64) ([]model.Transaction, error) {
	return r.list(ctx, transactionSelect+` WHERE t.merchant_id = ? ORDER BY t.id DESC`, merchantID)
}

func (r *TransactionRepo) list(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := []model.Transaction{}
	ids := []uint64{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	lines, err := r.linesFor(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Products = append(out[i].Products, lines[out[i].ID]...)
	}
	return out, nil
}

// linesFor loads the lines of the given transactions keyed by transaction
// id, in insertion order, with the product joined in.
func (r *TransactionRepo) linesFor(ctx context.Context, q querier, ids []uint64) (map[uint64][]model.TransactionProduct, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `SELECT tp.id, tp.transaction_id, tp.product_id, tp.quantity, tp.price, tp.sub_total, tp.created_at,
                     p.id, p.name, p.price, p.stock, p.created_at, p.updated_at
              FROM transaction_products tp
              JOIN products p ON p.id = tp.product_id
              WHERE tp.transaction_id IN (` + placeholders + `)
              ORDER BY tp.transaction_id, tp.id`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]model.TransactionProduct, len(ids))
	for rows.Next() {
		var l model.TransactionProduct
		var p model.Product
		if err := rows.Scan(
			&l.ID, &l.TransactionID, &l.ProductID, &l.Quantity, &l.Price, &l.SubTotal, &l.CreatedAt,
			&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		l.Product = &p
		out[l.TransactionID] = append(out[l.TransactionID], l)
	}
	return out, rows.Err()
}
