// Package queue carries sale events over RabbitMQ: the payloads, a
// publisher used by the sales path and the consumer that writes the sales
// log.
package queue

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/merchant-inventory/internal/model"
)

// TransactionCreatedQueue is the durable queue sale events are routed to.
const TransactionCreatedQueue = "transaction.created"

// TransactionCreatedEvent is published once a sale has committed. It holds
// enough for downstream consumers to log or report on the sale without
// querying the primary database.
type TransactionCreatedEvent struct {
	TransactionID uint64          `json:"transaction_id"`
	MerchantID    uint64          `json:"merchant_id"`
	MerchantName  string          `json:"merchant_name"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Items         []SaleItem      `json:"items"`
	SubTotal      decimal.Decimal `json:"sub_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	CreatedAt     string          `json:"created_at"`
}

// SaleItem is one line of a sale event.
type SaleItem struct {
	ProductID uint64          `json:"product_id"`
	Quantity  uint32          `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	SubTotal  decimal.Decimal `json:"sub_total"`
}

// NewTransactionCreatedEvent flattens a committed transaction into its event.
func NewTransactionCreatedEvent(t model.Transaction) TransactionCreatedEvent {
	ev := TransactionCreatedEvent{
		TransactionID: t.ID,
		MerchantID:    t.MerchantID,
		Name:          t.Name,
		Phone:         t.Phone,
		Items:         make([]SaleItem, 0, len(t.Products)),
		SubTotal:      t.SubTotal,
		TaxTotal:      t.TaxTotal,
		GrandTotal:    t.GrandTotal,
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.Merchant != nil {
		ev.MerchantName = t.Merchant.Name
	}
	if t.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	for _, l := range t.Products {
		ev.Items = append(ev.Items, SaleItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.Price,
			SubTotal:  l.SubTotal,
		})
	}
	return ev
}
