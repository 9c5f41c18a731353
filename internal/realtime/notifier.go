package realtime

import (
	"go.uber.org/zap"

	"taskboard/internal/events"
)

// Notifier subscribes the hub to the event bus: task lifecycle events
// become user-facing realtime notifications addressed by user id.
type Notifier struct {
	hub    *Hub
	logger *zap.Logger
}

func NewNotifier(hub *Hub, bus *events.Bus, logger *zap.Logger) *Notifier {
	n := &Notifier{hub: hub, logger: logger}

	bus.SubscribeProcessing(n.onProcessing)
	bus.SubscribeCompleted(n.onCompleted)
	bus.SubscribeError(n.onError)

	return n
}

func (n *Notifier) onProcessing(e events.ThumbnailProcessing) {
	n.hub.SendToUser(e.UserID, EventThumbnailLoading, map[string]any{
		"originalPath": e.OriginalPath,
		"thumbPath":    e.ThumbPath,
	})
}

func (n *Notifier) onCompleted(e events.ThumbnailCompleted) {
	n.hub.SendToUser(e.UserID, EventThumbnailCompleted, map[string]any{
		"originalPath": e.OriginalPath,
		"thumbPath":    e.ThumbPath,
	})
}

func (n *Notifier) onError(e events.ThumbnailError) {
	n.hub.SendToUser(e.UserID, EventThumbnailError, map[string]any{
		"thumbPath": e.ThumbPath,
		"error":     e.Error,
	})
}
