package producer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/events"
	"taskboard/internal/mq"
	"taskboard/internal/task"
	"taskboard/pkg/metrics"
)

type ThumbnailProducer struct {
	pub    *mq.Publisher
	bus    *events.Bus
	logger *zap.Logger
}

func NewThumbnailProducer(pub *mq.Publisher, bus *events.Bus, logger *zap.Logger) *ThumbnailProducer {
	return &ThumbnailProducer{pub: pub, bus: bus, logger: logger}
}

func (p *ThumbnailProducer) Send(ctx context.Context, t task.ThumbnailTask) bool {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	// Emit the pending state before publishing so the UI can show an
	// optimistic placeholder even before the worker picks the task up.
	p.bus.PublishProcessing(events.ThumbnailProcessing{
		UserID:       t.UserID,
		OriginalPath: t.OriginalPath,
		ThumbPath:    t.ThumbPath,
	})

	ok := p.pub.Publish(ctx, mq.ThumbnailRoutingKey, t)
	metrics.RecordTaskPublished(mq.ThumbnailRoutingKey, ok)
	if !ok {
		p.logger.Warn("Thumbnail task dispatch failed, thumbnail will not be generated",
			zap.String("task_id", t.ID),
			zap.Int("user_id", t.UserID),
			zap.String("original_path", t.OriginalPath),
		)
	}
	return ok
}
