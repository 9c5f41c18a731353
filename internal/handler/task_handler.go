package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/producer"
	"taskboard/internal/task"
)

// TaskHandler is the entry point the CRUD layer uses to hand work to the
// queue. Dispatch failure never fails the caller's primary action, so the
// response reports queued=false instead of an error status.
type TaskHandler struct {
	emails *producer.EmailProducer
	thumbs *producer.ThumbnailProducer
}

func NewTaskHandler(emails *producer.EmailProducer, thumbs *producer.ThumbnailProducer) *TaskHandler {
	return &TaskHandler{
		emails: emails,
		thumbs: thumbs,
	}
}

// DispatchEmail handles POST /api/tasks/email
func (h *TaskHandler) DispatchEmail(c *gin.Context) {
	var t task.EmailTask
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if t.To == "" || t.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to and type are required"})
		return
	}

	queued := h.emails.Send(c.Request.Context(), t)
	c.JSON(http.StatusAccepted, gin.H{"queued": queued})
}

// DispatchThumbnail handles POST /api/tasks/thumbnail
func (h *TaskHandler) DispatchThumbnail(c *gin.Context) {
	var t task.ThumbnailTask
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if t.OriginalPath == "" || t.ThumbPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "originalPath and thumbPath are required"})
		return
	}

	queued := h.thumbs.Send(c.Request.Context(), t)
	c.JSON(http.StatusAccepted, gin.H{"queued": queued})
}
