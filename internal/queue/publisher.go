package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/merchant-inventory/internal/model"
)

// ErrPublisherBusy is returned when the outbound buffer is full. The sale is
// already committed at that point, so callers only log it.
var ErrPublisherBusy = errors.New("queue: publisher buffer full")

// ErrPublisherClosed is returned after Close.
var ErrPublisherClosed = errors.New("queue: publisher closed")

// Publisher sends sale events to RabbitMQ from a single background
// goroutine that owns one long-lived connection. Publishing from the
// request path only enqueues, so a slow or absent broker never holds up a
// sale.
type Publisher struct {
	url   string
	queue string
	log   *zap.Logger

	buf       chan []byte
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPublisher returns a publisher for url. Call Start to begin delivering.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		url:   url,
		queue: TransactionCreatedQueue,
		log:   log.Named("publisher"),
		buf:   make(chan []byte, 256),
		done:  make(chan struct{}),
	}
}

// PublishTransactionCreated enqueues the event for t. It never blocks.
func (p *Publisher) PublishTransactionCreated(_ context.Context, t model.Transaction) error {
	body, err := json.Marshal(NewTransactionCreatedEvent(t))
	if err != nil {
		return err
	}
	select {
	case <-p.done:
		return ErrPublisherClosed
	default:
	}
	select {
	case p.buf <- body:
		return nil
	default:
		return ErrPublisherBusy
	}
}

// Start runs the delivery loop until ctx is cancelled or Close is called.
func (p *Publisher) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()
}

// Close stops the delivery loop. Events still buffered are dropped.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}

func (p *Publisher) run(ctx context.Context) {
	var pending []byte
	backoff := time.Second
	for {
		conn, ch, err := p.connect()
		if err != nil {
			p.log.Warn("broker unavailable", zap.Error(err), zap.Duration("retry_in", backoff))
			if !p.sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		pending, err = p.deliver(ctx, ch, pending)
		_ = ch.Close()
		_ = conn.Close()
		if err == nil {
			return
		}
		p.log.Warn("publish failed; reconnecting", zap.Error(err))
		if !p.sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func (p *Publisher) connect() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

// deliver publishes pending and then everything from the buffer. It
// returns a nil error only when the publisher should stop; otherwise the
// body that failed is handed back so it is retried on the next connection.
func (p *Publisher) deliver(ctx context.Context, ch *amqp.Channel, pending []byte) ([]byte, error) {
	if pending != nil {
		if err := p.publish(ctx, ch, pending); err != nil {
			return pending, err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return nil, nil
		case <-p.done:
			return nil, nil
		case body := <-p.buf:
			if err := p.publish(ctx, ch, body); err != nil {
				return body, err
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ch *amqp.Channel, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func (p *Publisher) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-p.done:
		return false
	case <-t.C:
		return true
	}
}
