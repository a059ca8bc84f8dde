package mq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	SyncExchange   = "table_sync.fanout"
	NotifyExchange = "table_notify.fanout"
)

// OriginHeader carries the publishing client's id so subscribers can skip
// their own echoes.
const OriginHeader = "x-origin"

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(host string, port int, user, pass, vhost string) (*Client, error) {
	if vhost == "" {
		vhost = "/"
	}
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/%s", user, pass, host, port, vhost)
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// DeclareAll sets up both broadcast exchanges. Idempotent; every client runs
// it on startup.
func (c *Client) DeclareAll() error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("nil channel")
	}
	if err := c.ch.ExchangeDeclare(SyncExchange, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	return c.ch.ExchangeDeclare(NotifyExchange, "fanout", true, false, false, false, nil)
}

// Publish fans a message out to every bound queue. Delivery is transient and
// unconfirmed: both buses are fire-and-forget, a missed message is caught up
// by the next snapshot, never by replay.
func (c *Client) Publish(ctx context.Context, exchange, origin string, body []byte) error {
	return c.ch.PublishWithContext(ctx, exchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Transient,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Headers:      amqp.Table{OriginHeader: origin},
		Body:         body,
	})
}

// SubscribeFanout binds a fresh exclusive auto-delete queue to the exchange
// and consumes it with auto-ack. At-most-once by construction: when the
// client goes away, its queue and anything buffered in it go too.
func (c *Client) SubscribeFanout(exchange, consumer string) (<-chan amqp.Delivery, error) {
	q, err := c.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, err
	}
	if err := c.ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return nil, err
	}
	return c.ch.Consume(q.Name, consumer, true, true, false, false, nil)
}
