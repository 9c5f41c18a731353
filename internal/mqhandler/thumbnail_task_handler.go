package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"taskboard/internal/mq"
	"taskboard/internal/relay"
	"taskboard/internal/repository"
	"taskboard/internal/service/thumbnail"
	"taskboard/internal/task"
	"taskboard/pkg/util"
)

type ThumbnailTaskHandler struct {
	resizer thumbnail.Resizer
	relay   relay.Emitter
	deduper *util.Deduper
	taskLog *repository.TaskLogRepository
	logger  *zap.Logger
}

func NewThumbnailTaskHandler(resizer thumbnail.Resizer, emitter relay.Emitter, deduper *util.Deduper, taskLog *repository.TaskLogRepository, logger *zap.Logger) *ThumbnailTaskHandler {
	return &ThumbnailTaskHandler{
		resizer: resizer,
		relay:   emitter,
		deduper: deduper,
		taskLog: taskLog,
		logger:  logger,
	}
}

func (h *ThumbnailTaskHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	t, err := task.UnmarshalThumbnail(raw)
	if err != nil {
		h.logger.Error("Poison thumbnail task, dead-lettering",
			zap.String("queue", mq.ThumbnailQueue),
			zap.ByteString("payload", raw),
			zap.Error(err),
		)
		return err
	}

	if h.deduper != nil && t.ID != "" && !h.deduper.AcquireOnce(ctx, mq.ThumbnailQueue, t.ID) {
		h.logger.Info("Duplicate thumbnail task skipped",
			zap.String("task_id", t.ID),
			zap.Int("user_id", t.UserID),
		)
		return nil
	}

	size := thumbnail.Size{Width: t.ThumbSize.Width, Height: t.ThumbSize.Height}
	if err := h.resizer.Resize(ctx, t.OriginalPath, t.ThumbPath, size); err != nil {
		h.logger.Error("Thumbnail generation failed",
			zap.String("task_id", t.ID),
			zap.Int("user_id", t.UserID),
			zap.String("original_path", t.OriginalPath),
			zap.Error(err),
		)
		h.relay.EmitThumbnailError(t.UserID, t.OriginalPath, t.ThumbPath, err.Error())
		if h.deduper != nil && t.ID != "" {
			h.deduper.Release(ctx, mq.ThumbnailQueue, t.ID)
		}
		h.record(ctx, t.ID, "failed", err.Error())
		return err
	}

	h.relay.EmitThumbnailCompleted(t.UserID, t.OriginalPath, t.ThumbPath)
	h.record(ctx, t.ID, "completed", "")
	return nil
}

func (h *ThumbnailTaskHandler) record(ctx context.Context, taskID, status, errMsg string) {
	if h.taskLog == nil {
		return
	}
	if err := h.taskLog.Record(ctx, mq.ThumbnailQueue, taskID, status, errMsg); err != nil {
		h.logger.Warn("Failed to record task outcome", zap.Error(err))
	}
}
