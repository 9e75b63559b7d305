package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"taskboard/internal/domain"
)

// Message types exchanged on the realtime channel.
const (
	MessageTypeAuth         = "auth"
	MessageTypeConnected    = "connected"
	MessageTypeNotification = "notification"
)

// Envelope is the wire format for server-to-client messages.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// AuthMessage is the single client-to-server message: it binds the connection
// to a user. A connection authenticates at most its current identity; sending
// auth again simply re-registers.
type AuthMessage struct {
	Type   string `json:"type"`
	UserID int64  `json:"userId"`
}

// NotificationPayload mirrors the notification REST representation.
type NotificationPayload struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	TaskID    int64  `json:"taskId"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"createdAt"`
}

// Hub owns the connection registry and implements best-effort push. It is the
// single process-wide realtime component: constructed once, handed to the HTTP
// layer for connection accept and to the services as the dispatcher.
type Hub struct {
	registry *Registry
	logger   *logrus.Logger
	upgrader websocket.Upgrader
}

func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.New()
	}
	return &Hub{
		registry: NewRegistry(),
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The channel carries no browser credentials; auth happens in-band.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Registry exposes the hub's connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ServeWS upgrades the request and runs the connection lifecycle until the
// peer disconnects or the transport fails.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("realtime: upgrade failed: %v", err)
		return
	}

	conn := newWSConn(ws, h.logger)
	defer func() {
		h.registry.Unregister(conn)
		conn.Close()
	}()

	if payload, err := json.Marshal(Envelope{Type: MessageTypeConnected}); err == nil {
		conn.Send(payload)
	}

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debugf("realtime: connection closed: %v", err)
			}
			return
		}

		var msg AuthMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			// Malformed frames are ignored; the connection stays open.
			h.logger.Warnf("realtime: malformed message: %v", err)
			continue
		}
		if msg.Type != MessageTypeAuth || msg.UserID <= 0 {
			h.logger.Warnf("realtime: ignoring message type %q", msg.Type)
			continue
		}

		h.registry.Register(msg.UserID, conn)
		h.logger.Infof("realtime: user %d connected", msg.UserID)
	}
}

// Dispatch pushes a stored notification to its recipient if a live connection
// exists. Misses and write failures are silent beyond a log line: the record
// is already durable and the client reconciles by reading it.
func (h *Hub) Dispatch(notification domain.Notification) {
	conn, ok := h.registry.Lookup(notification.UserID)
	if !ok {
		return
	}

	payload, err := json.Marshal(Envelope{
		Type: MessageTypeNotification,
		Data: NotificationPayload{
			ID:        notification.ID,
			UserID:    notification.UserID,
			TaskID:    notification.TaskID,
			Message:   notification.Message,
			Read:      notification.Read,
			CreatedAt: notification.CreatedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		h.logger.Warnf("realtime: marshal notification %d: %v", notification.ID, err)
		return
	}

	if !conn.Send(payload) {
		h.logger.Debugf("realtime: dropped notification %d for user %d", notification.ID, notification.UserID)
	}
}
