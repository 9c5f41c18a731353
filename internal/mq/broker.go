package mq

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Broker owns the process-wide connection/channel pair. It is constructed
// once in main and passed to producers and consumers; there is no
// module-level singleton.
//
// A connection-level close or error after setup is fatal: in-flight channel
// state (unacked deliveries, consumer registrations) cannot be resumed in
// place, so the process exits and the supervisor restarts it with a clean
// connection. A channel-level error alone is only logged.
type Broker struct {
	url    string
	logger *zap.Logger
	dial   DialFunc
	exit   func(int)

	mu       sync.Mutex
	conn     Connection
	ch       Channel
	ready    bool
	initDone chan struct{}
}

type Option func(*Broker)

// WithDialFunc replaces the AMQP dialer, for tests.
func WithDialFunc(dial DialFunc) Option {
	return func(b *Broker) { b.dial = dial }
}

// WithExitFunc replaces the fatal-shutdown hook, for tests.
func WithExitFunc(exit func(int)) Option {
	return func(b *Broker) { b.exit = exit }
}

func NewBroker(url string, logger *zap.Logger, opts ...Option) *Broker {
	b := &Broker{
		url:    url,
		logger: logger,
		dial:   Dial,
		exit:   os.Exit,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Setup opens the connection and channel, asserts the topology and attaches
// the close watchers. It is idempotent and single-flight: once ready it
// returns the channel immediately, and concurrent callers during the first
// call all await the same in-flight initialization.
func (b *Broker) Setup(ctx context.Context) (Channel, error) {
	for {
		b.mu.Lock()
		if b.ready {
			ch := b.ch
			b.mu.Unlock()
			return ch, nil
		}
		if b.initDone != nil {
			done := b.initDone
			b.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		done := make(chan struct{})
		b.initDone = done
		b.mu.Unlock()

		conn, ch, err := b.connect()

		b.mu.Lock()
		b.initDone = nil
		if err != nil {
			b.mu.Unlock()
			close(done)
			return nil, err
		}
		b.conn = conn
		b.ch = ch
		b.ready = true
		b.mu.Unlock()
		close(done)

		b.watch(conn, ch)
		b.logger.Info("Broker ready",
			zap.String("exchange", TaskExchange),
		)
		return ch, nil
	}
}

func (b *Broker) connect() (Connection, Channel, error) {
	conn, err := b.dial(b.url)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}

	return conn, ch, nil
}

func (b *Broker) watch(conn Connection, ch Channel) {
	connClose := conn.NotifyClose(make(chan *amqp091.Error, 1))
	chClose := ch.NotifyClose(make(chan *amqp091.Error, 1))

	go func() {
		// A graceful Close delivers nil here; only an unexpected close
		// terminates the process.
		if err := <-connClose; err != nil {
			b.logger.Error("Broker connection lost, exiting for supervisor restart",
				zap.Error(err),
			)
			b.exit(1)
		}
	}()

	go func() {
		if err := <-chClose; err != nil {
			b.logger.Error("Channel error", zap.Error(err))
		}
	}()
}

// Close tears the connection down gracefully (closing the connection closes
// the channel) and resets the broker to uninitialized. Safe to call when
// setup never ran.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		return nil
	}

	conn := b.conn
	b.conn = nil
	b.ch = nil
	b.ready = false

	return conn.Close()
}
