package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/merchant-inventory/internal/model"
)

// MerchantRepo provides access to the merchants table.
type MerchantRepo struct {
	db *sql.DB
}

// NewMerchantRepo returns a new MerchantRepo bound to the given database.
func NewMerchantRepo(db *sql.DB) *MerchantRepo { return &MerchantRepo{db: db} }

const merchantColumns = `id, name, keeper_id, created_at, updated_at`

type rowScanner interface{ Scan(...any) error }

func scanMerchant(row rowScanner) (model.Merchant, error) {
	var m model.Merchant
	err := row.Scan(&m.ID, &m.Name, &m.KeeperID, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Merchant{}, ErrMerchantNotFound
	}
	return m, err
}

// Create inserts a merchant kept by keeperID.
func (r *MerchantRepo) Create(ctx context.Context, name string, keeperID uint64) (model.Merchant, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO merchants (name, keeper_id) VALUES (?, ?)`, name, keeperID)
	if err != nil {
		return model.Merchant{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Merchant{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a merchant outside of any transaction.
func (r *MerchantRepo) GetByID(ctx context.Context, id uint64) (model.Merchant, error) {
	return scanMerchant(r.db.QueryRowContext(ctx, `SELECT `+merchantColumns+` FROM merchants WHERE id = ?`, id))
}

// GetByIDTx fetches a merchant inside tx. A shared lock keeps the keeper
// assignment stable while a sale is being recorded against it.
func (r *MerchantRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Merchant, error) {
	return scanMerchant(tx.QueryRowContext(ctx, `SELECT `+merchantColumns+` FROM merchants WHERE id = ? LOCK IN SHARE MODE`, id))
}
