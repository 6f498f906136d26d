package queue

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/merchant-inventory/internal/model"
)

func sampleTransaction() model.Transaction {
	return model.Transaction{
		ID:         9,
		Name:       "Jane",
		Phone:      "555-0100",
		MerchantID: 7,
		SubTotal:   decimal.NewFromInt(50),
		TaxTotal:   decimal.NewFromInt(5),
		GrandTotal: decimal.NewFromInt(55),
		Merchant:   &model.Merchant{ID: 7, Name: "Corner Shop"},
		Products: []model.TransactionProduct{
			{ProductID: 1, Quantity: 5, Price: decimal.RequireFromString("10.00"), SubTotal: decimal.NewFromInt(50)},
		},
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewTransactionCreatedEvent(t *testing.T) {
	ev := NewTransactionCreatedEvent(sampleTransaction())

	assert.Equal(t, uint64(9), ev.TransactionID)
	assert.Equal(t, "Corner Shop", ev.MerchantName)
	assert.Equal(t, "2025-03-01T12:00:00Z", ev.CreatedAt)
	require.Len(t, ev.Items, 1)
	assert.Equal(t, uint32(5), ev.Items[0].Quantity)

	body, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"grand_total":"55"`)
}

func TestSalesLogHandleAppendsLines(t *testing.T) {
	dir := t.TempDir()
	sink := NewSalesLog(dir)

	body, err := json.Marshal(NewTransactionCreatedEvent(sampleTransaction()))
	require.NoError(t, err)
	require.NoError(t, sink.Handle(body))
	require.NoError(t, sink.Handle(body))

	raw, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		`[2025-03-01T12:00:00Z] Sale recorded | transaction_id=9 | merchant_id=7 | merchant="Corner Shop" | customer="Jane" | phone="555-0100" | items=[1x5@10.00] | sub_total=50.00 | tax=5.00 | total=55.00`,
		lines[0])
}

func TestSalesLogRejectsBadPayload(t *testing.T) {
	sink := NewSalesLog(t.TempDir())

	assert.Error(t, sink.Handle([]byte("not json")))
	assert.Error(t, sink.Handle([]byte(`{}`)))
	_, err := os.Stat(sink.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestPublisherEnqueueNeverBlocks(t *testing.T) {
	p := NewPublisher("amqp://invalid", nil)
	tr := sampleTransaction()

	for i := 0; i < cap(p.buf); i++ {
		require.NoError(t, p.PublishTransactionCreated(context.Background(), tr))
	}
	assert.ErrorIs(t, p.PublishTransactionCreated(context.Background(), tr), ErrPublisherBusy)

	p.Close()
	assert.ErrorIs(t, p.PublishTransactionCreated(context.Background(), tr), ErrPublisherClosed)
}
