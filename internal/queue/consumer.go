package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// SalesLog appends one human-readable line per sale to <dir>/sales.log.
type SalesLog struct {
	dir string
	mu  sync.Mutex
}

func NewSalesLog(dir string) *SalesLog {
	return &SalesLog{dir: dir}
}

// Path is the file lines are appended to.
func (s *SalesLog) Path() string {
	return filepath.Join(s.dir, "sales.log")
}

// Handle decodes one message body and appends it to the log.
func (s *SalesLog) Handle(body []byte) error {
	var ev TransactionCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.TransactionID == 0 {
		return errors.New("event without transaction_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.dir, err)
	}
	f, err := os.OpenFile(s.Path(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatSaleLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatSaleLine renders ev as a single newline-terminated log line.
func FormatSaleLine(ev TransactionCreatedEvent) string {
	items := make([]string, 0, len(ev.Items))
	for _, it := range ev.Items {
		items = append(items, fmt.Sprintf("%dx%d@%s", it.ProductID, it.Quantity, it.Price.StringFixed(2)))
	}
	return fmt.Sprintf("[%s] Sale recorded | transaction_id=%d | merchant_id=%d | merchant=%q | customer=%q | phone=%q | items=[%s] | sub_total=%s | tax=%s | total=%s\n",
		ev.CreatedAt, ev.TransactionID, ev.MerchantID, ev.MerchantName, ev.Name, ev.Phone,
		strings.Join(items, ","),
		ev.SubTotal.StringFixed(2), ev.TaxTotal.StringFixed(2), ev.GrandTotal.StringFixed(2))
}

// StartSalesConsumer consumes the transaction.created queue and writes each
// event to sink. It reconnects with backoff until ctx is cancelled, which is
// the only way it returns. Messages that fail to process are rejected
// without requeue so a bad payload cannot spin the loop.
func StartSalesConsumer(ctx context.Context, url string, sink *SalesLog, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("sales-consumer")

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !wait(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, sink, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended; reconnecting", zap.Error(err))
		if !wait(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, sink *SalesLog, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(TransactionCreatedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(TransactionCreatedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := sink.Handle(d.Body); err != nil {
				log.Error("handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
