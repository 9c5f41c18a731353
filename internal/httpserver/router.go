package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taskboard/internal/handler"
	"taskboard/internal/realtime"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(taskHandler *handler.TaskHandler, ws *realtime.WSHandler) *Router {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ws/user", ws.UserSocket)
	r.GET("/ws/system", ws.SystemSocket)

	api := r.Group("/api")
	{
		api.POST("/tasks/email", taskHandler.DispatchEmail)
		api.POST("/tasks/thumbnail", taskHandler.DispatchThumbnail)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
