package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one completed sale at a merchant.  The totals are written
// in the same database transaction as its lines, so a persisted
// Transaction always satisfies GrandTotal = SubTotal + TaxTotal.
//
// Fields:
//
//	ID         – primary key identifier.
//	Name       – customer name.
//	Phone      – customer phone number.
//	MerchantID – merchant the sale was recorded at.
//	SubTotal   – sum of line subtotals.
//	TaxTotal   – SubTotal × tax rate, rounded to cents.
//	GrandTotal – SubTotal + TaxTotal.
//	Products   – the lines, owned by the transaction.
//	Merchant   – the merchant, attached when the sale is materialized.
type Transaction struct {
	ID         uint64               `json:"id"`          // transactions.id
	Name       string               `json:"name"`        // transactions.name
	Phone      string               `json:"phone"`       // transactions.phone
	MerchantID uint64               `json:"merchant_id"` // transactions.merchant_id
	SubTotal   decimal.Decimal      `json:"sub_total"`   // transactions.sub_total
	TaxTotal   decimal.Decimal      `json:"tax_total"`   // transactions.tax_total
	GrandTotal decimal.Decimal      `json:"grand_total"` // transactions.grand_total
	Products   []TransactionProduct `json:"transaction_products"`
	Merchant   *Merchant            `json:"merchant,omitempty"`
	CreatedAt  time.Time            `json:"created_at"` // transactions.created_at
	UpdatedAt  time.Time            `json:"updated_at"` // transactions.updated_at
}

// TransactionProduct is one line of a sale.  Price is the product price at
// the moment of sale and is never updated afterwards.
type TransactionProduct struct {
	ID            uint64          `json:"id"`                // transaction_products.id
	TransactionID uint64          `json:"transaction_id"`    // transaction_products.transaction_id
	ProductID     uint64          `json:"product_id"`        // transaction_products.product_id
	Quantity      uint32          `json:"quantity"`          // transaction_products.quantity
	Price         decimal.Decimal `json:"price"`             // transaction_products.price
	SubTotal      decimal.Decimal `json:"sub_total"`         // transaction_products.sub_total
	Product       *Product        `json:"product,omitempty"` // joined on reload
	CreatedAt     time.Time       `json:"created_at"`        // transaction_products.created_at
}
