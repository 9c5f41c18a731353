package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Events forwarded to browser sessions, addressed by user id.
const (
	EventThumbnailLoading   = "user:thumbnailLoading"
	EventThumbnailCompleted = "user:thumbnailCompleted"
	EventThumbnailError     = "user:thumbnailError"
)

type userEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub maps user ids to their live sessions. It is pure addressing state:
// created on authenticated connect, removed on disconnect, owns no
// business data. Only the connect/disconnect handlers mutate it; the rest
// of the gateway reaches it through SendToUser via the event bus.
type Hub struct {
	mu       sync.RWMutex
	sessions map[int]map[string]*Session
	logger   *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		sessions: make(map[int]map[string]*Session),
		logger:   logger,
	}
}

func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s.UserID]; !ok {
		h.sessions[s.UserID] = make(map[string]*Session)
	}
	h.sessions[s.UserID][s.ID] = s

	h.logger.Debug("Session registered",
		zap.Int("user_id", s.UserID),
		zap.String("session_id", s.ID),
	)
}

func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userSessions, ok := h.sessions[s.UserID]; ok {
		if _, ok := userSessions[s.ID]; ok {
			delete(userSessions, s.ID)
			close(s.send)
			if len(userSessions) == 0 {
				delete(h.sessions, s.UserID)
			}
		}
	}

	h.logger.Debug("Session unregistered",
		zap.Int("user_id", s.UserID),
		zap.String("session_id", s.ID),
	)
}

// SendToUser delivers an event to every live session of the user. A user
// with no connected session is silently accepted: realtime notification
// is an enhancement, not a correctness requirement.
func (h *Hub) SendToUser(userID int, event string, data any) {
	msg, err := json.Marshal(userEvent{Event: event, Data: data})
	if err != nil {
		h.logger.Error("Failed to marshal user event",
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.sessions[userID] {
		select {
		case s.send <- msg:
		default:
			// slow consumer, drop rather than block the dispatch path
			h.logger.Warn("Session send buffer full, dropping event",
				zap.Int("user_id", userID),
				zap.String("session_id", s.ID),
			)
		}
	}
}

// SessionCount reports live sessions for a user.
func (h *Hub) SessionCount(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}
