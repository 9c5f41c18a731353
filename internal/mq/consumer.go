package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"taskboard/pkg/metrics"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

// Consumer subscribes to a single queue with manual acknowledgment over
// the broker's shared channel. A handler error means the message is
// nacked without requeue: a deterministically failing message would
// otherwise be redelivered forever and block the queue, so it is routed
// to the dead-letter queue instead.
type Consumer struct {
	broker  *Broker
	queue   string
	handler MessageHandler
	logger  *zap.Logger
}

func NewConsumer(broker *Broker, queue string, logger *zap.Logger) *Consumer {
	return &Consumer{
		broker: broker,
		queue:  queue,
		logger: logger,
	}
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// Start subscribes and processes deliveries until the context is canceled
// or the delivery channel closes. It blocks and should be run in a
// goroutine.
func (c *Consumer) Start(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	ch, err := c.broker.Setup(ctx)
	if err != nil {
		return err
	}

	// Prefetch 1: strictly FIFO processing per queue, no unacked backlog.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	// Both consumers share one channel, and consumer tags are unique per
	// channel; deriving the tag from the queue name keeps the second
	// Consume from canceling the first.
	deliveries, err := ch.Consume(
		c.queue,
		"worker."+c.queue,
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started",
		zap.String("queue", c.queue),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.handleDelivery(ctx, d)
		}
	}
}

// handleDelivery guarantees every message is acked or nacked exactly once,
// including when the handler panics.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp091.Delivery) {
	start := time.Now()
	settled := false

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Handler panic recovered",
				zap.String("queue", c.queue),
				zap.Any("panic", r),
			)
			if !settled {
				c.nack(d)
			}
		}
	}()

	if err := c.handler(ctx, d.Body); err != nil {
		c.logger.Error("Handler error",
			zap.String("queue", c.queue),
			zap.ByteString("payload", d.Body),
			zap.Error(err),
		)
		settled = true
		c.nack(d)
		return
	}

	settled = true
	if err := d.Ack(false); err != nil {
		c.logger.Error("Failed to ack message",
			zap.String("queue", c.queue),
			zap.Error(err),
		)
		return
	}

	metrics.RecordTaskProcessed(c.queue, "acked")
	metrics.RecordTaskConsumeLatency(c.queue, time.Since(start))
}

func (c *Consumer) nack(d amqp091.Delivery) {
	// requeue=false: the queue's x-dead-letter-exchange routes the message
	// to the DLQ instead of redelivering it.
	if err := d.Nack(false, false); err != nil {
		c.logger.Error("Failed to nack message",
			zap.String("queue", c.queue),
			zap.Error(err),
		)
		return
	}
	metrics.RecordTaskProcessed(c.queue, "nacked")
}
