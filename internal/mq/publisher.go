package mq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var errFlowPaused = errors.New("publish paused by broker flow control")

const defaultDrainTimeout = 5 * time.Second

// Publisher publishes persistent JSON messages to the task exchange over
// the broker's shared channel. All failures are converted to a boolean
// result: call sites are fire-and-forget and must never see a panic or an
// unhandled error from the publish path.
type Publisher struct {
	broker       *Broker
	logger       *zap.Logger
	drainTimeout time.Duration

	flowOnce sync.Once

	mu     sync.Mutex
	paused bool
	drain  chan struct{}
}

type PublisherOption func(*Publisher)

// WithDrainTimeout bounds how long a publish waits for flow control to
// clear before giving up.
func WithDrainTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) { p.drainTimeout = d }
}

func NewPublisher(broker *Broker, logger *zap.Logger, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		broker:       broker,
		logger:       logger,
		drainTimeout: defaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish serializes the payload and publishes it with the persistent
// delivery mode. If the channel is paused by broker flow control, it
// registers a one-shot wait for the resume signal and retries exactly
// once; a task is never silently dropped without a false return.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("Failed to marshal task payload",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return false
	}

	ch, err := p.channel(ctx)
	if err != nil {
		p.logger.Error("Failed to obtain broker channel",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return false
	}

	err = p.publish(ctx, ch, routingKey, body)
	if errors.Is(err, errFlowPaused) {
		if !p.waitDrain(ctx) {
			p.logger.Warn("Flow control did not clear, dropping publish",
				zap.String("routing_key", routingKey),
			)
			return false
		}
		err = p.publish(ctx, ch, routingKey, body)
	}
	if err != nil {
		p.logger.Error("Publish failed",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return false
	}

	return true
}

// channel lazily sets up the broker and starts the flow watcher on first
// use, so producers can be constructed before the broker is ready.
func (p *Publisher) channel(ctx context.Context) (Channel, error) {
	ch, err := p.broker.Setup(ctx)
	if err != nil {
		return nil, err
	}
	p.flowOnce.Do(func() {
		go p.watchFlow(ch.NotifyFlow(make(chan bool, 1)))
	})
	return ch, nil
}

func (p *Publisher) publish(ctx context.Context, ch Channel, routingKey string, body []byte) error {
	if p.isPaused() {
		return errFlowPaused
	}

	return ch.PublishWithContext(
		ctx,
		TaskExchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
		},
	)
}

func (p *Publisher) watchFlow(flow chan bool) {
	for active := range flow {
		p.mu.Lock()
		if active {
			p.paused = false
			if p.drain != nil {
				close(p.drain)
				p.drain = nil
			}
		} else {
			p.paused = true
			if p.drain == nil {
				p.drain = make(chan struct{})
			}
		}
		p.mu.Unlock()
	}
}

func (p *Publisher) isPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// waitDrain blocks until flow control clears, bounded by the drain timeout.
func (p *Publisher) waitDrain(ctx context.Context) bool {
	p.mu.Lock()
	drain := p.drain
	p.mu.Unlock()

	if drain == nil {
		return true
	}

	timer := time.NewTimer(p.drainTimeout)
	defer timer.Stop()

	select {
	case <-drain:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
