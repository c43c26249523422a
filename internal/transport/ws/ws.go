package ws

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/staymarket/order/internal/notify"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client couples one WebSocket connection to one hub subscription. A
// reconnecting client re-declares role and entity id and gets a fresh
// subscription; nothing missed in between is replayed.
type client struct {
	conn *websocket.Conn
	sub  *notify.Subscription
	hub  *notify.Hub
}

// Handler upgrades the connection and subscribes it to the topic matching the
// declared role and entity id (`?role=hotel&entity_id=4`).
func Handler(hub *notify.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := notify.Role(r.URL.Query().Get("role"))

		var entityID int64
		if raw := r.URL.Query().Get("entity_id"); raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				http.Error(w, "invalid entity id", http.StatusBadRequest)

				return
			}
			entityID = v
		}

		sub, err := hub.Subscribe(role, entityID)
		if err != nil {
			if errors.Is(err, notify.ErrUnknownRole) {
				http.Error(w, err.Error(), http.StatusBadRequest)

				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)

			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.Unsubscribe(sub)
			slog.Error("Error upgrading notification connection", "error", err)

			return
		}

		c := &client{conn: conn, sub: sub, hub: hub}
		go c.writePump()
		go c.readPump()
	}
}

// readPump discards inbound frames and tears the subscription down when the
// peer goes away, however abruptly.
func (c *client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c.sub)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Notification connection closed unexpectedly", "error", err)
			}

			return
		}
	}
}

// writePump forwards hub notifications to the peer and keeps the connection
// alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case n, ok := <-c.sub.C():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck

				return
			}
			if err := c.conn.WriteJSON(n); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
