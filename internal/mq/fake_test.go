package mq

import (
	"context"
	"sync"

	"github.com/rabbitmq/amqp091-go"
)

type publishRecord struct {
	exchange string
	key      string
	msg      amqp091.Publishing
}

type consumerReg struct {
	tag   string
	queue string
	ch    chan amqp091.Delivery
}

type fakeChannel struct {
	mu          sync.Mutex
	exchanges   []string
	queues      []string
	binds       []string
	published   []publishRecord
	publishErrs []error // popped per publish call
	qosCalls    int
	closed      bool

	closeCh chan *amqp091.Error
	flowCh  chan bool

	regs []consumerReg

	declareErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{}
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.declareErr != nil {
		return c.declareErr
	}
	c.exchanges = append(c.exchanges, name)
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues = append(c.queues, name)
	return amqp091.Queue{Name: name}, nil
}

func (c *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.binds = append(c.binds, name+"|"+key+"|"+exchange)
	return nil
}

func (c *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.qosCalls++
	return nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.publishErrs) > 0 {
		err := c.publishErrs[0]
		c.publishErrs = c.publishErrs[1:]
		if err != nil {
			return err
		}
	}
	c.published = append(c.published, publishRecord{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// amqp091 semantics: reusing a consumer tag on the same channel
	// cancels the previous subscription by closing its delivery channel.
	for i, r := range c.regs {
		if r.tag == consumer && consumer != "" {
			close(r.ch)
			c.regs = append(c.regs[:i], c.regs[i+1:]...)
			break
		}
	}

	ch := make(chan amqp091.Delivery, 16)
	c.regs = append(c.regs, consumerReg{tag: consumer, queue: queue, ch: ch})
	return ch, nil
}

func (c *fakeChannel) consumerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.regs)
}

func (c *fakeChannel) deliverTo(queue string, d amqp091.Delivery) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.regs {
		if r.queue == queue {
			r.ch <- d
			return
		}
	}
}

func (c *fakeChannel) NotifyClose(ch chan *amqp091.Error) chan *amqp091.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCh = ch
	return ch
}

func (c *fakeChannel) NotifyFlow(ch chan bool) chan bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flowCh = ch
	return ch
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) publishCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.published)
}

func (c *fakeChannel) lastPublished() publishRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published[len(c.published)-1]
}

func (c *fakeChannel) flow() chan bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flowCh
}

type fakeConn struct {
	mu      sync.Mutex
	ch      *fakeChannel
	chErr   error
	closed  bool
	closeCh chan *amqp091.Error
}

func (c *fakeConn) Channel() (Channel, error) {
	if c.chErr != nil {
		return nil, c.chErr
	}
	return c.ch, nil
}

func (c *fakeConn) NotifyClose(ch chan *amqp091.Error) chan *amqp091.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCh = ch
	return ch
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.closeCh != nil {
		// graceful close: the notify channel is closed without an error
		close(c.closeCh)
		c.closeCh = nil
	}
	return nil
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) injectClose(err *amqp091.Error) {
	c.mu.Lock()
	ch := c.closeCh
	c.mu.Unlock()
	if ch != nil {
		ch <- err
	}
}

type fakeAcknowledger struct {
	mu       sync.Mutex
	acks     int
	nacks    int
	requeues []bool
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	a.requeues = append(a.requeues, requeue)
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	a.requeues = append(a.requeues, requeue)
	return nil
}
