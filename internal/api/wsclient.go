package api

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/moku-core/internal/auth"
	"github.com/nerrad567/moku-core/internal/events"
	"github.com/nerrad567/moku-core/internal/infrastructure/config"
)

// WSClient is one event stream connection.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu      sync.Mutex
	closed  bool
	types   map[string]struct{}
	devices map[string]struct{}

	// From the ticket the connection was opened with.
	subject string
	role    auth.Role
}

func newWSClient(hub *Hub, conn *websocket.Conn, entry ticketEntry) *WSClient {
	return &WSClient{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, wsSendBufferSize),
		types:   make(map[string]struct{}),
		devices: make(map[string]struct{}),
		subject: entry.subject,
		role:    entry.role,
	}
}

// wsRequest is a frame received from a client.
type wsRequest struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// keepalive holds the ping and deadline timings for one connection.
type keepalive struct {
	ping     time.Duration
	pongWait time.Duration
}

func newKeepalive(cfg config.WebSocketConfig) keepalive {
	return keepalive{
		ping:     time.Duration(cfg.PingInterval) * time.Second,
		pongWait: time.Duration(cfg.PongTimeout) * time.Second,
	}
}

// readDeadline is how long the connection may stay silent.
func (k keepalive) readDeadline() time.Time {
	return time.Now().Add(k.ping + k.pongWait)
}

// wants reports whether e matches the client's subscription.
func (c *WSClient) wants(e events.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, all := c.types[WSChannelAll]
	_, typed := c.types[string(e.Type)]
	if !all && !typed {
		return false
	}
	if len(c.devices) == 0 {
		return true
	}
	_, ok := c.devices[e.Device]
	return ok
}

// deliver queues data without blocking. It reports false when the client
// is gone or its queue is full.
func (c *WSClient) deliver(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close stops the write loop. Only the first call has an effect.
func (c *WSClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *WSClient) readLoop(ka keepalive, maxMessageSize int) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(ka.readDeadline()) //nolint:errcheck // a failed read reports it
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(ka.readDeadline())
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("event stream read failed", "subject", c.subject, "error", err)
			}
			return
		}
		// Application messages count as liveness too; some clients never
		// answer protocol pings.
		c.conn.SetReadDeadline(ka.readDeadline()) //nolint:errcheck // a failed read reports it
		c.handle(data)
	}
}

func (c *WSClient) writeLoop(ka keepalive) {
	ticker := time.NewTicker(ka.ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(ka.pongWait)) //nolint:errcheck // the write reports it
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				write(websocket.CloseMessage, nil) //nolint:errcheck // connection is closing anyway
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handle(data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply("", WSTypeError, errorPayload("invalid JSON message"))
		return
	}

	switch req.Type {
	case WSTypeSubscribe:
		c.updateSubscription(req, true)
	case WSTypeUnsubscribe:
		c.updateSubscription(req, false)
	case WSTypePing:
		c.reply(req.ID, WSTypePong, nil)
	default:
		c.reply(req.ID, WSTypeError, errorPayload("unknown message type: "+req.Type))
	}
}

// updateSubscription adds or removes event types and devices. Unknown
// event types reject the whole request.
func (c *WSClient) updateSubscription(req wsRequest, add bool) {
	var sub WSSubscribePayload
	if len(req.Payload) == 0 || json.Unmarshal(req.Payload, &sub) != nil {
		c.reply(req.ID, WSTypeError, errorPayload("payload must be {\"channels\": [...]}"))
		return
	}
	for _, ch := range sub.Channels {
		if ch != WSChannelAll && !events.Type(ch).Valid() {
			c.reply(req.ID, WSTypeError, errorPayload("unknown event type: "+ch))
			return
		}
	}

	c.mu.Lock()
	for _, ch := range sub.Channels {
		if add {
			c.types[ch] = struct{}{}
		} else {
			delete(c.types, ch)
		}
	}
	for _, d := range sub.Devices {
		if add {
			c.devices[d] = struct{}{}
		} else {
			delete(c.devices, d)
		}
	}
	c.mu.Unlock()

	key := "subscribed"
	if !add {
		key = "unsubscribed"
	}
	c.hub.logger.Debug("event stream subscription changed", "subject", c.subject, key, sub.Channels, "devices", sub.Devices)
	c.reply(req.ID, WSTypeResponse, map[string]any{key: sub.Channels, "devices": sub.Devices})
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(timestampLayout),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.deliver(data)
}

func errorPayload(message string) map[string]string {
	return map[string]string{"message": message}
}
