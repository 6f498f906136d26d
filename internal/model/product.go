package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a master catalog entry.  Its Stock is the master pool that
// merchant allocations are carved out of; sales never touch it directly.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – display name.
//	Price     – current unit price, non-negative, two decimal places.
//	Stock     – master stock quantity, never negative.
//	CreatedAt – timestamp of creation.
//	UpdatedAt – timestamp of last update.
type Product struct {
	ID        uint64          `json:"id"`         // products.id
	Name      string          `json:"name"`       // products.name
	Price     decimal.Decimal `json:"price"`      // products.price
	Stock     uint32          `json:"stock"`      // products.stock
	CreatedAt time.Time       `json:"created_at"` // products.created_at
	UpdatedAt time.Time       `json:"updated_at"` // products.updated_at
}
