// internal/common/queue/rabbitmq.go
package queue

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the side of the queue the intake API depends on.
type Publisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

// Handler processes one delivery. Acknowledgment is the caller's job: the
// consumer loop acks after the handler returns, so a crash mid-handler
// leaves the message unacked and the broker redelivers it.
type Handler func(ctx context.Context, d amqp.Delivery)

// Client wraps a RabbitMQ connection and channel.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Connect dials the broker and opens a channel.
func Connect(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &Client{conn: conn, ch: ch}, nil
}

// Close closes the channel and connection.
func (c *Client) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// declareQueue asserts a durable queue so it survives broker restarts.
func (c *Client) declareQueue(name string) error {
	_, err := c.ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	return err
}

// Publish sends a persistent message to the named durable queue.
func (c *Client) Publish(ctx context.Context, queueName string, body []byte) error {
	if err := c.declareQueue(queueName); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	return c.ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Consume delivers messages to handler one at a time (per prefetch) and acks
// each after the handler returns. Blocks until ctx is cancelled or the
// delivery channel closes.
func (c *Client) Consume(ctx context.Context, queueName string, prefetch int, handler Handler) error {
	if err := c.declareQueue(queueName); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	if prefetch <= 0 {
		prefetch = 1
	}
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	msgs, err := c.ch.Consume(
		queueName,
		"",    // consumer tag
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", queueName)
			}
			handler(ctx, msg)
			_ = msg.Ack(false)
		}
	}
}
