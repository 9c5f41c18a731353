package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func delivery(ack *fakeAcknowledger, body string) amqp091.Delivery {
	return amqp091.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Body:         []byte(body),
	}
}

func TestHandleDeliveryAckOnSuccess(t *testing.T) {
	c := NewConsumer(nil, EmailQueue, zap.NewNop())
	c.SetHandler(func(ctx context.Context, data json.RawMessage) error {
		return nil
	})

	ack := &fakeAcknowledger{}
	c.handleDelivery(context.Background(), delivery(ack, `{"ok":true}`))

	assert.Equal(t, 1, ack.acks)
	assert.Equal(t, 0, ack.nacks)
}

func TestHandleDeliveryNackNoRequeueOnError(t *testing.T) {
	c := NewConsumer(nil, EmailQueue, zap.NewNop())
	c.SetHandler(func(ctx context.Context, data json.RawMessage) error {
		return errors.New("processing failed")
	})

	ack := &fakeAcknowledger{}
	c.handleDelivery(context.Background(), delivery(ack, `{"ok":true}`))

	assert.Equal(t, 0, ack.acks)
	assert.Equal(t, 1, ack.nacks)
	require.Len(t, ack.requeues, 1)
	assert.False(t, ack.requeues[0], "failed messages must not be requeued")
}

func TestHandleDeliveryNackOnPanic(t *testing.T) {
	c := NewConsumer(nil, EmailQueue, zap.NewNop())
	c.SetHandler(func(ctx context.Context, data json.RawMessage) error {
		panic("boom")
	})

	ack := &fakeAcknowledger{}
	c.handleDelivery(context.Background(), delivery(ack, `{}`))

	assert.Equal(t, 0, ack.acks)
	assert.Equal(t, 1, ack.nacks)
	require.Len(t, ack.requeues, 1)
	assert.False(t, ack.requeues[0])
}

// A poison message is nacked once and does not prevent the next valid
// message from being processed.
func TestPoisonMessageIsolation(t *testing.T) {
	type payload struct {
		N int `json:"n"`
	}
	var processed []int

	c := NewConsumer(nil, EmailQueue, zap.NewNop())
	c.SetHandler(func(ctx context.Context, data json.RawMessage) error {
		var p payload
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		processed = append(processed, p.N)
		return nil
	})

	poisonAck := &fakeAcknowledger{}
	c.handleDelivery(context.Background(), delivery(poisonAck, `{not json`))
	assert.Equal(t, 0, poisonAck.acks)
	assert.Equal(t, 1, poisonAck.nacks)

	validAck := &fakeAcknowledger{}
	c.handleDelivery(context.Background(), delivery(validAck, `{"n":7}`))
	assert.Equal(t, 1, validAck.acks)
	assert.Equal(t, 0, validAck.nacks)

	assert.Equal(t, []int{7}, processed)
}

func TestStartRequiresHandler(t *testing.T) {
	c := NewConsumer(nil, EmailQueue, zap.NewNop())
	err := c.Start(context.Background())
	require.Error(t, err)
}

func TestStartConsumesUntilContextCancel(t *testing.T) {
	conn := &fakeConn{ch: newFakeChannel()}
	b := NewBroker("amqp://test", zap.NewNop(),
		WithDialFunc(func(string) (Connection, error) { return conn, nil }),
		WithExitFunc(func(int) {}),
	)

	c := NewConsumer(b, ThumbnailQueue, zap.NewNop())
	handled := make(chan string, 1)
	c.SetHandler(func(ctx context.Context, data json.RawMessage) error {
		handled <- string(data)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool {
		return conn.ch.consumerCount() == 1
	}, time.Second, 10*time.Millisecond)

	ack := &fakeAcknowledger{}
	conn.ch.deliverTo(ThumbnailQueue, delivery(ack, `{"n":1}`))

	assert.Equal(t, `{"n":1}`, <-handled)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 1, conn.ch.qosCalls)
}

// The worker runs the email and thumbnail consumers over the broker's one
// shared channel. Both subscriptions must stay live at once: a duplicate
// consumer tag would cancel the first consumer's deliveries.
func TestTwoConsumersShareOneChannel(t *testing.T) {
	conn := &fakeConn{ch: newFakeChannel()}
	b := NewBroker("amqp://test", zap.NewNop(),
		WithDialFunc(func(string) (Connection, error) { return conn, nil }),
		WithExitFunc(func(int) {}),
	)

	emailHandled := make(chan string, 1)
	email := NewConsumer(b, EmailQueue, zap.NewNop())
	email.SetHandler(func(ctx context.Context, data json.RawMessage) error {
		emailHandled <- string(data)
		return nil
	})

	thumbHandled := make(chan string, 1)
	thumb := NewConsumer(b, ThumbnailQueue, zap.NewNop())
	thumb.SetHandler(func(ctx context.Context, data json.RawMessage) error {
		thumbHandled <- string(data)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go email.Start(ctx)
	go thumb.Start(ctx)

	require.Eventually(t, func() bool {
		return conn.ch.consumerCount() == 2
	}, time.Second, 10*time.Millisecond)

	conn.ch.deliverTo(ThumbnailQueue, delivery(&fakeAcknowledger{}, `{"queue":"thumbnail"}`))
	conn.ch.deliverTo(EmailQueue, delivery(&fakeAcknowledger{}, `{"queue":"email"}`))

	assert.Equal(t, `{"queue":"email"}`, <-emailHandled)
	assert.Equal(t, `{"queue":"thumbnail"}`, <-thumbHandled)
}
