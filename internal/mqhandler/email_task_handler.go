package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"taskboard/internal/mq"
	"taskboard/internal/repository"
	"taskboard/internal/service/mailer"
	"taskboard/internal/task"
	"taskboard/pkg/util"
)

type EmailTaskHandler struct {
	mail    *mailer.Service
	deduper *util.Deduper
	taskLog *repository.TaskLogRepository
	logger  *zap.Logger
}

// deduper and taskLog may be nil when redis/postgres are not configured.
func NewEmailTaskHandler(mail *mailer.Service, deduper *util.Deduper, taskLog *repository.TaskLogRepository, logger *zap.Logger) *EmailTaskHandler {
	return &EmailTaskHandler{
		mail:    mail,
		deduper: deduper,
		taskLog: taskLog,
		logger:  logger,
	}
}

func (h *EmailTaskHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	t, err := task.UnmarshalEmail(raw)
	if err != nil {
		h.logger.Error("Poison email task, dead-lettering",
			zap.String("queue", mq.EmailQueue),
			zap.ByteString("payload", raw),
			zap.Error(err),
		)
		return err
	}

	if h.deduper != nil && t.ID != "" && !h.deduper.AcquireOnce(ctx, mq.EmailQueue, t.ID) {
		h.logger.Info("Duplicate email task skipped",
			zap.String("task_id", t.ID),
			zap.String("to", t.To),
		)
		return nil
	}

	if err := h.mail.SendTask(ctx, t); err != nil {
		if h.deduper != nil && t.ID != "" {
			h.deduper.Release(ctx, mq.EmailQueue, t.ID)
		}
		h.record(ctx, t.ID, "failed", err.Error())
		return err
	}

	h.record(ctx, t.ID, "sent", "")
	return nil
}

func (h *EmailTaskHandler) record(ctx context.Context, taskID, status, errMsg string) {
	if h.taskLog == nil {
		return
	}
	if err := h.taskLog.Record(ctx, mq.EmailQueue, taskID, status, errMsg); err != nil {
		h.logger.Warn("Failed to record task outcome", zap.Error(err))
	}
}
