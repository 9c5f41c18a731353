package producer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/mq"
	"taskboard/internal/task"
	"taskboard/pkg/metrics"
)

// EmailProducer enqueues email tasks. A false return means the task was
// not accepted by the broker; the caller's primary action still stands and
// only the email is degraded.
type EmailProducer struct {
	pub    *mq.Publisher
	logger *zap.Logger
}

func NewEmailProducer(pub *mq.Publisher, logger *zap.Logger) *EmailProducer {
	return &EmailProducer{pub: pub, logger: logger}
}

func (p *EmailProducer) Send(ctx context.Context, t task.EmailTask) bool {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	ok := p.pub.Publish(ctx, mq.EmailRoutingKey, t)
	metrics.RecordTaskPublished(mq.EmailRoutingKey, ok)
	if !ok {
		p.logger.Warn("Email task dispatch failed, email will not be sent",
			zap.String("task_id", t.ID),
			zap.String("to", t.To),
			zap.String("type", t.Type),
		)
	}
	return ok
}
