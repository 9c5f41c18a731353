package mq

import (
	"context"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp091.Channel the broker layer uses.
// Having an interface here keeps producers and consumers testable with
// fakes instead of a live broker.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	NotifyClose(c chan *amqp091.Error) chan *amqp091.Error
	NotifyFlow(c chan bool) chan bool
	Close() error
}

// Connection abstracts *amqp091.Connection for the same reason.
type Connection interface {
	Channel() (Channel, error)
	NotifyClose(c chan *amqp091.Error) chan *amqp091.Error
	Close() error
	IsClosed() bool
}

// DialFunc opens a broker connection. Injectable for tests.
type DialFunc func(url string) (Connection, error)

// Dial is the production DialFunc.
func Dial(url string) (Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return &amqpConnection{conn: conn}, nil
}

type amqpConnection struct {
	conn *amqp091.Connection
}

func (c *amqpConnection) Channel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (c *amqpConnection) NotifyClose(ch chan *amqp091.Error) chan *amqp091.Error {
	return c.conn.NotifyClose(ch)
}

func (c *amqpConnection) Close() error {
	return c.conn.Close()
}

func (c *amqpConnection) IsClosed() bool {
	return c.conn.IsClosed()
}
