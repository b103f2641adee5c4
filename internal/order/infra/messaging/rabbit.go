// Package messaging publishes order cancellations to the broker.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitChannel is the part of *amqp.Channel the notifier uses.
type RabbitChannel interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
	IsClosed() bool
	Close() error
}

// RabbitDialer opens a channel ready for publishing.
type RabbitDialer func() (RabbitChannel, error)

// RabbitNotifier publishes the canceled order id as a text/plain message.
// Publishes are serialized because an AMQP channel is not safe for
// concurrent use. A closed channel is replaced on the next publish.
type RabbitNotifier struct {
	mu         sync.Mutex
	dial       RabbitDialer
	ch         RabbitChannel
	exchange   string
	routingKey string
}

// connChannel owns its connection, so closing the channel closes both.
type connChannel struct {
	*amqp.Channel
	conn *amqp.Connection
}

func (c *connChannel) IsClosed() bool {
	return c.conn.IsClosed() || c.Channel.IsClosed()
}

func (c *connChannel) Close() error {
	_ = c.Channel.Close()
	return c.conn.Close()
}

// DialRabbit returns a dialer that opens a connection and a channel in
// confirm mode, and declares the cancellation exchange.
func DialRabbit(url, exchange string) RabbitDialer {
	return func() (RabbitChannel, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, fmt.Errorf("dial rabbitmq: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("open channel: %w", err)
		}

		if err := ch.ExchangeDeclare(
			exchange,
			"direct",
			true,  // durable
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		); err != nil {
			conn.Close()
			return nil, fmt.Errorf("declare exchange: %w", err)
		}

		if err := ch.Confirm(false); err != nil {
			conn.Close()
			return nil, fmt.Errorf("enable confirm mode: %w", err)
		}
		return &connChannel{Channel: ch, conn: conn}, nil
	}
}

// NewRabbitNotifier dials once up front so a bad broker config fails at startup.
func NewRabbitNotifier(dial RabbitDialer, exchange, routingKey string) (*RabbitNotifier, error) {
	ch, err := dial()
	if err != nil {
		return nil, err
	}
	return &RabbitNotifier{dial: dial, ch: ch, exchange: exchange, routingKey: routingKey}, nil
}

func (n *RabbitNotifier) channel() (RabbitChannel, error) {
	if n.ch != nil && !n.ch.IsClosed() {
		return n.ch, nil
	}
	n.drop()
	ch, err := n.dial()
	if err != nil {
		return nil, fmt.Errorf("redial: %w", err)
	}
	n.ch = ch
	return ch, nil
}

func (n *RabbitNotifier) drop() {
	if n.ch != nil {
		_ = n.ch.Close()
		n.ch = nil
	}
}

func (n *RabbitNotifier) NotifyCancellation(ctx context.Context, orderID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch, err := n.channel()
	if err != nil {
		return err
	}

	dc, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		n.exchange,
		n.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "text/plain",
			DeliveryMode: amqp.Persistent,
			Body:         []byte(orderID),
		},
	)
	if err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			n.drop()
		}
		return fmt.Errorf("publish: %w", err)
	}
	if dc == nil {
		return nil
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait for confirm: %w", err)
	}
	if !acked {
		return errors.New("broker nacked cancellation")
	}
	return nil
}

func (n *RabbitNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.drop()
	return nil
}
