package notify

import (
	"context"
	"net/http"
	"sync"

	"coinforge/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub pushes notifications to connected websocket clients. A user with no
// open connection simply misses the push; the hub keeps no backlog.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]*client)}
}

// Subscribe upgrades the request and registers the connection for userID,
// replacing any previous one. The read loop only serves to detect the close.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, userID int64) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn}

	h.mu.Lock()
	if prev, ok := h.clients[userID]; ok {
		prev.conn.Close()
	}
	h.clients[userID] = c
	h.mu.Unlock()

	go h.readLoop(userID, c)

	return nil
}

func (h *Hub) readLoop(userID int64, c *client) {
	defer func() {
		c.conn.Close()
		h.mu.Lock()
		if h.clients[userID] == c {
			delete(h.clients, userID)
		}
		h.mu.Unlock()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Logger().Info("websocket closed unexpectedly",
					zap.Int64("user_id", userID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) Notify(ctx context.Context, n Notification) {
	h.mu.RLock()
	c, ok := h.clients[n.UserID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	payload, err := json.Marshal(n)
	if err != nil {
		logger.Logger().Error("failed to marshal notification", zap.Error(err))
		return
	}

	c.mu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, payload)
	c.mu.Unlock()
	if err != nil {
		logger.Logger().Info("failed to push notification",
			zap.Int64("user_id", n.UserID), zap.Error(err))
	}
}
