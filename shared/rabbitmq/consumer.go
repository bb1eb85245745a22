package rabbitmq

import (
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer is a single subscription on a queue with its own channel and a
// prefetch window of one. Acks and nacks must go through the channel the
// delivery arrived on, which is why the consumer owns them.
type Consumer struct {
	channel    *amqp.Channel
	Deliveries <-chan amqp.Delivery
	queue      string
	tag        string
	logger     *slog.Logger
}

// Ack acknowledges a delivery. Called only after the full downstream effect
// of the message has completed; this is what keeps the pipeline
// at-least-once rather than at-most-once.
func (c *Consumer) Ack(deliveryTag uint64) error {
	if err := c.channel.Ack(deliveryTag, false); err != nil {
		return fmt.Errorf("failed to ack delivery %d: %w", deliveryTag, err)
	}
	return nil
}

// Nack rejects a delivery. With requeue=false the message routes to the
// queue's dead-letter target instead of being redelivered.
func (c *Consumer) Nack(deliveryTag uint64, requeue bool) error {
	if err := c.channel.Nack(deliveryTag, false, requeue); err != nil {
		return fmt.Errorf("failed to nack delivery %d: %w", deliveryTag, err)
	}
	return nil
}

// Queue returns the queue this consumer is subscribed to.
func (c *Consumer) Queue() string { return c.queue }

// Close cancels the subscription and closes the consumer's channel.
func (c *Consumer) Close() error {
	if err := c.channel.Cancel(c.tag, false); err != nil {
		c.logger.Warn("Failed to cancel consumer",
			slog.String("consumer_tag", c.tag),
			slog.Any("error", err),
		)
	}
	if err := c.channel.Close(); err != nil {
		return fmt.Errorf("failed to close consumer channel: %w", err)
	}
	return nil
}
