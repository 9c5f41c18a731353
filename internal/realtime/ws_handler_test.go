package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskboard/internal/events"
	"taskboard/internal/relay"
	"taskboard/internal/util"
)

const (
	testJWTSecret    = "jwt-test-secret"
	testWorkerSecret = "worker-test-secret"
)

func newTestServer(t *testing.T) (*httptest.Server, *Hub, *events.Bus) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(zap.NewNop())
	bus := events.NewBus()
	ws := NewWSHandler(hub, bus, testJWTSecret, testWorkerSecret, zap.NewNop())

	r := gin.New()
	r.GET("/ws/user", ws.UserSocket)
	r.GET("/ws/system", ws.SystemSocket)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub, bus
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestSystemSocketRejectsBadSecret(t *testing.T) {
	srv, _, _ := newTestServer(t)

	header := http.Header{}
	header.Set("X-Worker-Secret", "wrong")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/system"), header)
	require.Error(t, err)
	if conn != nil {
		conn.Close()
	}
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSystemSocketForwardsCompletionToBus(t *testing.T) {
	srv, _, bus := newTestServer(t)

	completed := make(chan events.ThumbnailCompleted, 1)
	bus.SubscribeCompleted(func(e events.ThumbnailCompleted) { completed <- e })

	header := http.Header{}
	header.Set("X-Worker-Secret", testWorkerSecret)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/system"), header)
	require.NoError(t, err)
	defer conn.Close()

	env, err := relay.NewEnvelope(relay.EventThumbnailCompleted, relay.CompletedPayload{
		UserID:       7,
		OriginalPath: "/uploads/card.png",
		ThumbPath:    "/uploads/card_thumb.png",
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(env))

	select {
	case e := <-completed:
		assert.Equal(t, 7, e.UserID)
		assert.Equal(t, "/uploads/card_thumb.png", e.ThumbPath)
	case <-time.After(2 * time.Second):
		t.Fatal("completion never reached the event bus")
	}
}

func TestSystemSocketForwardsErrorToBus(t *testing.T) {
	srv, _, bus := newTestServer(t)

	failed := make(chan events.ThumbnailError, 1)
	bus.SubscribeError(func(e events.ThumbnailError) { failed <- e })

	header := http.Header{}
	header.Set("X-Worker-Secret", testWorkerSecret)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/system"), header)
	require.NoError(t, err)
	defer conn.Close()

	env, err := relay.NewEnvelope(relay.EventThumbnailError, relay.ErrorPayload{
		UserID:    7,
		ThumbPath: "/uploads/card_thumb.png",
		Error:     "decode failed",
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(env))

	select {
	case e := <-failed:
		assert.Equal(t, 7, e.UserID)
		assert.Equal(t, "decode failed", e.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("error event never reached the event bus")
	}
}

func TestUserSocketRejectsMissingToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/user"), nil)
	require.Error(t, err)
	if conn != nil {
		conn.Close()
	}
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUserSocketDeliversHubEvents(t *testing.T) {
	srv, hub, _ := newTestServer(t)

	token, err := util.GenerateJWT(7, testJWTSecret)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/user?token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.SessionCount(7) == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.SendToUser(7, EventThumbnailCompleted, map[string]any{"thumbPath": "/uploads/card_thumb.png"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, EventThumbnailCompleted, msg.Event)
	assert.Equal(t, "/uploads/card_thumb.png", msg.Data["thumbPath"])
}
