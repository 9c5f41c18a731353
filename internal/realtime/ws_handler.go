package realtime

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"taskboard/internal/events"
	"taskboard/internal/relay"
	"taskboard/internal/util"
)

type WSHandler struct {
	hub          *Hub
	bus          *events.Bus
	jwtSecret    string
	workerSecret string
	logger       *zap.Logger
	upgrader     websocket.Upgrader
}

func NewWSHandler(hub *Hub, bus *events.Bus, jwtSecret, workerSecret string, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:          hub,
		bus:          bus,
		jwtSecret:    jwtSecret,
		workerSecret: workerSecret,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// UserSocket handles GET /ws/user. The browser authenticates with a JWT
// (query param or Authorization header); the session is bound to the
// token's user id in the hub.
func (h *WSHandler) UserSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = util.ExtractToken(c.Request)
	}

	userID, err := util.ParseJWT(token, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Websocket upgrade failed", zap.Error(err))
		return
	}

	session := NewSession(userID, conn)
	h.hub.Register(session)

	go session.WritePump()
	go session.ReadPump(h.hub)
}

// SystemSocket handles GET /ws/system: the worker relay. It authenticates
// with the shared worker secret, then every inbound envelope is
// re-published onto the internal event bus. The notification code never
// learns whether a completion came over this socket or from a local emit.
func (h *WSHandler) SystemSocket(c *gin.Context) {
	secret := c.GetHeader("X-Worker-Secret")
	if secret == "" {
		secret = c.Query("secret")
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.workerSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid worker secret"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Websocket upgrade failed", zap.Error(err))
		return
	}

	h.logger.Info("Worker relay connected", zap.String("remote", conn.RemoteAddr().String()))

	go h.readSystemEvents(conn)
}

func (h *WSHandler) readSystemEvents(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		h.logger.Info("Worker relay disconnected")
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env relay.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.logger.Warn("Malformed relay envelope", zap.ByteString("raw", raw))
			continue
		}

		h.dispatchSystemEvent(env)
	}
}

func (h *WSHandler) dispatchSystemEvent(env relay.Envelope) {
	switch env.Event {
	case relay.EventThumbnailCompleted:
		var p relay.CompletedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			h.logger.Warn("Malformed completion payload", zap.Error(err))
			return
		}
		h.bus.PublishCompleted(events.ThumbnailCompleted{
			UserID:       p.UserID,
			OriginalPath: p.OriginalPath,
			ThumbPath:    p.ThumbPath,
		})

	case relay.EventThumbnailError:
		var p relay.ErrorPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			h.logger.Warn("Malformed error payload", zap.Error(err))
			return
		}
		h.bus.PublishError(events.ThumbnailError{
			UserID:       p.UserID,
			OriginalPath: p.OriginalPath,
			ThumbPath:    p.ThumbPath,
			Error:        p.Error,
		})

	default:
		h.logger.Warn("Unknown relay event", zap.String("event", env.Event))
	}
}
