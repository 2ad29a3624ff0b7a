package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second

	maxInboundSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser dashboards connect from a separate origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

var clientSeq atomic.Uint64

// inboundMessage is what subscribers send: subscribe/unsubscribe to a symbol.
type inboundMessage struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
}

// client couples a websocket connection to a hub subscriber.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	sub    *Subscriber
	logger *logrus.Logger
}

// ServeWS upgrades an HTTP request to a websocket subscriber connection and
// starts its read/write pumps.
func ServeWS(h *Hub, logger *logrus.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	sub := NewSubscriber(fmt.Sprintf("ws-%d", clientSeq.Add(1)))
	c := &client{hub: h, conn: conn, sub: sub, logger: logger}

	h.Register(sub)

	go c.writePump()
	go c.readPump()
}

// readPump consumes subscribe/unsubscribe commands until the connection
// drops. Malformed commands are logged and skipped.
func (c *client) readPump() {
	defer func() {
		c.hub.Unregister(c.sub)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warnf("Client %s read error: %v", c.sub.ID, err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warnf("Client %s sent malformed message: %v", c.sub.ID, err)
			continue
		}

		switch msg.Action {
		case "subscribe":
			if msg.Symbol != "" {
				c.hub.Subscribe(c.sub, msg.Symbol)
			}
		case "unsubscribe":
			if msg.Symbol != "" {
				c.hub.Unsubscribe(c.sub, msg.Symbol)
			}
		default:
			c.logger.Warnf("Client %s sent unknown action %q", c.sub.ID, msg.Action)
		}
	}
}

// writePump pushes hub events to the connection and keeps it alive with
// pings. A write failure closes the connection; Unregister happens in the
// read pump's deferred cleanup.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.sub.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.logger.Warnf("Client %s write failed: %v", c.sub.ID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
