package events

import "sync"

// Payloads for the fixed set of in-process events. The bus decouples the
// task-enqueuing code and the relay intake from the realtime notification
// code inside the gateway process; subscribers cannot tell whether a
// completion came from the worker relay or a local emit.

type ThumbnailProcessing struct {
	UserID       int    `json:"userId"`
	OriginalPath string `json:"originalPath"`
	ThumbPath    string `json:"thumbPath"`
}

type ThumbnailCompleted struct {
	UserID       int    `json:"userId"`
	OriginalPath string `json:"originalPath"`
	ThumbPath    string `json:"thumbPath"`
}

type ThumbnailError struct {
	UserID       int    `json:"userId"`
	OriginalPath string `json:"originalPath"`
	ThumbPath    string `json:"thumbPath"`
	Error        string `json:"error"`
}

// Bus is a typed, synchronous-dispatch publish/subscribe registry. One
// instance per process; subscribers register at startup for the process
// lifetime.
type Bus struct {
	mu         sync.RWMutex
	processing []func(ThumbnailProcessing)
	completed  []func(ThumbnailCompleted)
	failed     []func(ThumbnailError)
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) SubscribeProcessing(fn func(ThumbnailProcessing)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.processing = append(b.processing, fn)
}

func (b *Bus) SubscribeCompleted(fn func(ThumbnailCompleted)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completed = append(b.completed, fn)
}

func (b *Bus) SubscribeError(fn func(ThumbnailError)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failed = append(b.failed, fn)
}

func (b *Bus) PublishProcessing(e ThumbnailProcessing) {
	b.mu.RLock()
	subs := b.processing
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(e)
	}
}

func (b *Bus) PublishCompleted(e ThumbnailCompleted) {
	b.mu.RLock()
	subs := b.completed
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(e)
	}
}

func (b *Bus) PublishError(e ThumbnailError) {
	b.mu.RLock()
	subs := b.failed
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(e)
	}
}
