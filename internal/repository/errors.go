// Package repository defines error types that are reused across multiple
// repositories and by the service layer. These sentinel values allow
// higher layers such as handlers to distinguish between different failure
// scenarios without inspecting driver errors. Every one of them aborts the
// enclosing unit of work; none is a fatal process error.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicateAllocation is returned when a merchant already holds an
// allocation for the product. Handlers translate this into HTTP 409.
var ErrDuplicateAllocation = errors.New("product already exists in this merchant")

// ErrInsufficientStock covers both a master stock too small to allocate
// from and a merchant allocation too small (or missing) to sell from.
// Handlers translate this into HTTP 422.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrAllocationNotFound is returned when no allocation exists for the
// merchant and product pair.
var ErrAllocationNotFound = errors.New("product not assigned to this merchant")

// ErrMerchantNotFound is returned when the merchant does not exist.
var ErrMerchantNotFound = errors.New("merchant not found")

// ErrProductNotFound is returned when the product does not exist.
var ErrProductNotFound = errors.New("product not found")

// ErrTransactionNotFound is returned when the transaction does not exist.
var ErrTransactionNotFound = errors.New("transaction not found")

// ErrUnauthorized is returned when the acting user may not operate on the
// merchant. Handlers translate this into HTTP 403.
var ErrUnauthorized = errors.New("unauthorized")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// mysqlDuplicateKey is ER_DUP_ENTRY.
const mysqlDuplicateKey = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateKey
}
