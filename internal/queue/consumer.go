package queue

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler receives the routing key and raw body of one delivery. A non-nil
// error requeues the message.
type Handler func(ctx context.Context, key string, body []byte) error

type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	q    string
}

func NewConsumer(url, exchange, queue string, keys []string) (*Consumer, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("no binding keys")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbit: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	c := &Consumer{conn: conn, ch: ch}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	qd, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	for _, k := range keys {
		if err := ch.QueueBind(qd.Name, k, exchange, false, nil); err != nil {
			c.Close()
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}
	c.q = qd.Name
	return c, nil
}

func (c *Consumer) Close() {
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

// Consume runs workers until ctx is done or the channel closes.
func (c *Consumer) Consume(ctx context.Context, workers int, handle Handler) error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("consumer is not initialized")
	}
	if workers <= 0 {
		workers = 1
	}
	if err := c.ch.Qos(workers*10, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	msgs, err := c.ch.Consume(c.q, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	deliveries := make(chan Delivery)
	go func() {
		defer close(deliveries)
		for d := range msgs {
			select {
			case deliveries <- amqpDelivery{d}:
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return
			}
		}
	}()
	Work(ctx, workers, deliveries, handle)
	return nil
}

// Delivery is one message with its acknowledgement hooks.
type Delivery interface {
	Key() string
	Body() []byte
	Ack() error
	Requeue() error
}

type amqpDelivery struct{ d amqp.Delivery }

func (a amqpDelivery) Key() string    { return a.d.RoutingKey }
func (a amqpDelivery) Body() []byte   { return a.d.Body }
func (a amqpDelivery) Ack() error     { return a.d.Ack(false) }
func (a amqpDelivery) Requeue() error { return a.d.Nack(false, true) }

// Work fans deliveries out to n workers and returns once in is closed or ctx is done
// and every worker has finished its current message.
func Work(ctx context.Context, n int, in <-chan Delivery, handle Handler) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case d, ok := <-in:
					if !ok {
						return
					}
					if err := handle(ctx, d.Key(), d.Body()); err != nil {
						_ = d.Requeue()
						continue
					}
					_ = d.Ack()
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()
}
