package model

import "time"

// Merchant is a selling location.  KeeperID names the one user allowed to
// record sales against the merchant's allocated stock.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – display name.
//	KeeperID  – user ID of the designated keeper.
//	CreatedAt – timestamp of creation.
//	UpdatedAt – timestamp of last update.
type Merchant struct {
	ID        uint64    `json:"id"`         // merchants.id
	Name      string    `json:"name"`       // merchants.name
	KeeperID  uint64    `json:"keeper_id"`  // merchants.keeper_id
	CreatedAt time.Time `json:"created_at"` // merchants.created_at
	UpdatedAt time.Time `json:"updated_at"` // merchants.updated_at
}

// MerchantProduct is the stock of one product allocated to one merchant.
// There is at most one row per (MerchantID, ProductID); its Stock counter is
// independent of the product's master stock once allocated.
type MerchantProduct struct {
	ID         uint64    `json:"id"`                // merchant_products.id
	MerchantID uint64    `json:"merchant_id"`       // merchant_products.merchant_id
	ProductID  uint64    `json:"product_id"`        // merchant_products.product_id
	Stock      uint32    `json:"stock"`             // merchant_products.stock
	Product    *Product  `json:"product,omitempty"` // joined on listing
	CreatedAt  time.Time `json:"created_at"`        // merchant_products.created_at
	UpdatedAt  time.Time `json:"updated_at"`        // merchant_products.updated_at
}
