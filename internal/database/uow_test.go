package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUnit(t *testing.T) (*UnitOfWork, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewUnitOfWork(db), mock
}

func TestWithinTxCommits(t *testing.T) {
	u, mock := newUnit(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := u.WithinTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec("UPDATE products SET stock = stock - 1 WHERE id = 1")
		return err
	})
	require.NoError(t, err)
}

func TestWithinTxRollsBackAndKeepsSentinel(t *testing.T) {
	u, mock := newUnit(t)
	sentinel := errors.New("insufficient stock")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := u.WithinTx(context.Background(), func(*sql.Tx) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, sentinel, err)
}

func TestWithinTxJoinsRollbackFailure(t *testing.T) {
	u, mock := newUnit(t)
	sentinel := errors.New("line failed")
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("connection reset"))

	err := u.WithinTx(context.Background(), func(*sql.Tx) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "rollback: connection reset")
}

func TestWithinTxRollsBackOnPanic(t *testing.T) {
	u, mock := newUnit(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = u.WithinTx(context.Background(), func(*sql.Tx) error { panic("boom") })
	})
}

func TestWithinTxBeginFailure(t *testing.T) {
	u, mock := newUnit(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err := u.WithinTx(context.Background(), func(*sql.Tx) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
	assert.False(t, called)
}

func TestWithinTxCommitFailure(t *testing.T) {
	u, mock := newUnit(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("deadlock"))

	err := u.WithinTx(context.Background(), func(*sql.Tx) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit: deadlock")
}
