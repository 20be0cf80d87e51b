// Package notify delivers committed reservation events to the lounge's listeners.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"lounge-booking/internal/pkg/config"
	"lounge-booking/internal/pkg/errs"
	"lounge-booking/internal/usecase/shared"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPNotifier publishes events as persistent JSON messages to a durable queue on the
// default exchange. The connection is reopened lazily after the broker drops it.
type AMQPNotifier struct {
	url     string
	queue   string
	timeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPNotifier(cfg config.BrokerConfig) (*AMQPNotifier, error) {
	n := &AMQPNotifier{url: cfg.URL, queue: cfg.Queue, timeout: cfg.PublishTimeout}
	if n.timeout <= 0 {
		n.timeout = 2 * time.Second
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.connect(); err != nil {
		return nil, err
	}
	return n, nil
}

// connect must be called with mu held.
func (n *AMQPNotifier) connect() error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return errs.Wrap(err, "rabbitmq: dial failed")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return errs.Wrap(err, "rabbitmq: channel open failed")
	}
	if _, err := ch.QueueDeclare(
		n.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return errs.Wrapf(err, "rabbitmq: declare queue %s failed", n.queue)
	}
	n.conn, n.ch = conn, ch
	return nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, event shared.ReservationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errs.Wrap(err, "rabbitmq: marshal event failed")
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch == nil || n.ch.IsClosed() {
		n.closeLocked()
		if err := n.connect(); err != nil {
			return err
		}
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ReservationID.String() + ":" + string(event.Kind),
		Type:         string(event.Kind),
		Timestamp:    event.OccurredAt,
		Body:         body,
	}
	if err := n.ch.PublishWithContext(ctx,
		"",      // default exchange
		n.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		return errs.Wrapf(err, "rabbitmq: publish %s failed", event.Kind)
	}
	return nil
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closeLocked()
}

func (n *AMQPNotifier) closeLocked() error {
	var err error
	if n.ch != nil {
		_ = n.ch.Close()
		n.ch = nil
	}
	if n.conn != nil && !n.conn.IsClosed() {
		err = n.conn.Close()
	}
	n.conn = nil
	return err
}
