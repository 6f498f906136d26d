package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UnitOfWork runs a function inside one database transaction.  The
// transaction commits only when fn returns nil; any error or panic rolls
// it back, so callers never see a partially applied unit.
type UnitOfWork struct {
	db   *sql.DB
	opts *sql.TxOptions
}

// NewUnitOfWork binds a UnitOfWork to db.  Transactions use READ COMMITTED;
// every stock read that matters is a locking read, so the stronger
// REPEATABLE READ default only adds gap locks.
func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db, opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted}}
}

// DB exposes the underlying handle for read-only queries outside a unit.
func (u *UnitOfWork) DB() *sql.DB { return u.db }

// WithinTx begins a transaction, hands it to fn and commits or rolls back.
// The error returned by fn is passed through unchanged so sentinel checks
// with errors.Is keep working.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := u.db.BeginTx(ctx, u.opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
