package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusDispatchesToAllSubscribers(t *testing.T) {
	bus := NewBus()

	var first, second []ThumbnailProcessing
	bus.SubscribeProcessing(func(e ThumbnailProcessing) { first = append(first, e) })
	bus.SubscribeProcessing(func(e ThumbnailProcessing) { second = append(second, e) })

	e := ThumbnailProcessing{UserID: 7, OriginalPath: "/tmp/in.png", ThumbPath: "/tmp/out.png"}
	bus.PublishProcessing(e)

	assert.Equal(t, []ThumbnailProcessing{e}, first)
	assert.Equal(t, []ThumbnailProcessing{e}, second)
}

func TestBusDispatchIsSynchronous(t *testing.T) {
	bus := NewBus()

	delivered := false
	bus.SubscribeCompleted(func(ThumbnailCompleted) { delivered = true })

	bus.PublishCompleted(ThumbnailCompleted{UserID: 1})
	assert.True(t, delivered, "publish must dispatch before returning")
}

func TestBusEventsAreIndependent(t *testing.T) {
	bus := NewBus()

	var errs []ThumbnailError
	bus.SubscribeError(func(e ThumbnailError) { errs = append(errs, e) })

	bus.PublishProcessing(ThumbnailProcessing{UserID: 1})
	bus.PublishCompleted(ThumbnailCompleted{UserID: 1})
	assert.Empty(t, errs)

	bus.PublishError(ThumbnailError{UserID: 7, ThumbPath: "/tmp/out.png", Error: "decode failed"})
	assert.Len(t, errs, 1)
	assert.Equal(t, 7, errs[0].UserID)
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() {
		bus.PublishProcessing(ThumbnailProcessing{UserID: 1})
		bus.PublishCompleted(ThumbnailCompleted{UserID: 1})
		bus.PublishError(ThumbnailError{UserID: 1})
	})
}
