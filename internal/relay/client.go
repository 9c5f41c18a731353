package relay

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"taskboard/pkg/metrics"
)

// Emitter pushes completion and error notifications toward the gateway.
// Delivery is best-effort: the underlying task outcome is already settled
// on the broker, so a lost notification never fails the task.
type Emitter interface {
	EmitThumbnailCompleted(userID int, originalPath, thumbPath string)
	EmitThumbnailError(userID int, originalPath, thumbPath, reason string)
}

// Client is the worker's persistent outbound connection into the gateway's
// realtime layer. The worker has no client-facing transport of its own and
// no access to the gateway's in-memory session table, so completion events
// travel over this socket and the gateway routes them by user id.
type Client struct {
	gatewayURL string
	secret     string
	backoff    Backoff
	logger     *zap.Logger
	dialer     *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewClient(gatewayURL, secret string, logger *zap.Logger) *Client {
	return &Client{
		gatewayURL: gatewayURL,
		secret:     secret,
		backoff:    DefaultBackoff(),
		logger:     logger,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

func (c *Client) EmitThumbnailCompleted(userID int, originalPath, thumbPath string) {
	c.emit(EventThumbnailCompleted, CompletedPayload{
		UserID:       userID,
		OriginalPath: originalPath,
		ThumbPath:    thumbPath,
	})
}

func (c *Client) EmitThumbnailError(userID int, originalPath, thumbPath, reason string) {
	c.emit(EventThumbnailError, ErrorPayload{
		UserID:       userID,
		OriginalPath: originalPath,
		ThumbPath:    thumbPath,
		Error:        reason,
	})
}

// emit is fire-and-forget: failures are logged and counted, never
// surfaced to the caller.
func (c *Client) emit(event string, payload any) {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		c.logger.Error("Failed to build relay envelope", zap.Error(err))
		metrics.RecordRelayEmit(event, false)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.ensureConn()
	if err != nil {
		c.logger.Warn("Relay connection unavailable, dropping event",
			zap.String("event", event),
			zap.Error(err),
		)
		metrics.RecordRelayEmit(event, false)
		return
	}

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(env); err != nil {
		c.logger.Warn("Relay write failed, dropping connection",
			zap.String("event", event),
			zap.Error(err),
		)
		conn.Close()
		c.conn = nil
		metrics.RecordRelayEmit(event, false)
		return
	}

	metrics.RecordRelayEmit(event, true)
}

// ensureConn returns the live connection, dialing with backoff if needed.
// Callers hold c.mu.
func (c *Client) ensureConn() (*websocket.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}

	target, err := c.systemSocketURL()
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("X-Worker-Secret", c.secret)

	var lastErr error
	for attempt := 0; attempt < c.backoff.MaxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(c.backoff.Delay(attempt - 1))
		}

		conn, _, err := c.dialer.Dial(target, header)
		if err == nil {
			c.logger.Info("Relay connected", zap.String("gateway", target))
			c.conn = conn
			return conn, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("relay dial failed after %d attempts: %w", c.backoff.MaxAttempts, lastErr)
}

func (c *Client) systemSocketURL() (string, error) {
	u, err := url.Parse(c.gatewayURL)
	if err != nil {
		return "", fmt.Errorf("invalid gateway url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws/system"
	return u.String(), nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
		c.conn = nil
	}
}
