package mq

import (
	"fmt"
	"os"

	"github.com/rabbitmq/amqp091-go"
)

// Queue and routing key names. Producers and consumers both consult this
// registry so the names never drift.
const (
	EmailQueue     = "email_tasks"
	ThumbnailQueue = "thumbnail_tasks"

	EmailRoutingKey     = "task.email"
	ThumbnailRoutingKey = "task.thumbnail"
)

// TaskExchange is the single entry point tasks are published to. The name
// is overridable so several deployments can share one broker.
var TaskExchange = exchangeFromEnv()

// DLQExchange receives messages that were nacked without requeue.
var DLQExchange = TaskExchange + ".dlq"

func exchangeFromEnv() string {
	if name := os.Getenv("TASK_EXCHANGE"); name != "" {
		return name
	}
	return "tasks"
}

type ExchangeSpec struct {
	Name    string
	Kind    string
	Durable bool
}

type QueueSpec struct {
	Name       string
	RoutingKey string
	Durable    bool
}

func exchanges() []ExchangeSpec {
	return []ExchangeSpec{
		{Name: TaskExchange, Kind: "direct", Durable: true},
		{Name: DLQExchange, Kind: "direct", Durable: true},
	}
}

func queues() []QueueSpec {
	return []QueueSpec{
		{Name: EmailQueue, RoutingKey: EmailRoutingKey, Durable: true},
		{Name: ThumbnailQueue, RoutingKey: ThumbnailRoutingKey, Durable: true},
	}
}

// DeclareTopology asserts every exchange, then every queue with its
// dead-letter counterpart. Declarations are idempotent: re-asserting an
// existing entity with identical properties is a no-op on the broker.
func DeclareTopology(ch Channel) error {
	for _, ex := range exchanges() {
		err := ch.ExchangeDeclare(
			ex.Name,
			ex.Kind,
			ex.Durable,
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", ex.Name, err)
		}
	}

	for _, q := range queues() {
		// Nack(requeue=false) routes the message to the DLQ exchange
		// instead of dropping it.
		args := amqp091.Table{
			"x-dead-letter-exchange": DLQExchange,
		}
		_, err := ch.QueueDeclare(
			q.Name,
			q.Durable,
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			args,
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q.Name, err)
		}

		if err := ch.QueueBind(q.Name, q.RoutingKey, TaskExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", q.Name, err)
		}

		dlqName := q.Name + ".dlq"
		_, err = ch.QueueDeclare(dlqName, true, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("failed to declare DLQ queue %s: %w", dlqName, err)
		}

		if err := ch.QueueBind(dlqName, q.RoutingKey, DLQExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind DLQ queue %s: %w", dlqName, err)
		}
	}

	return nil
}
