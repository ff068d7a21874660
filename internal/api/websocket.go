package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/moku-core/internal/auth"
	"github.com/nerrad567/moku-core/internal/events"
	"github.com/nerrad567/moku-core/internal/infrastructure/config"
	"github.com/nerrad567/moku-core/internal/infrastructure/logging"
)

// Message types on the event stream.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// WSChannelAll subscribes a client to every event type.
	WSChannelAll = "*"

	// wsSendBufferSize is the per-client outbound queue length. A client
	// that falls this far behind misses events.
	wsSendBufferSize = 256
)

// WSMessage is a frame sent to a client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Device    string `json:"device,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload selects events for subscribe and unsubscribe.
// Channels are event types such as "deploy.completed", or "*". Devices,
// when set, restricts delivery to events about those addresses.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
	Devices  []string `json:"devices,omitempty"`
}

// Hub fans bus events out to websocket clients. It is an events.Sink.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS middleware.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// NewHub creates a hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for client := range clients {
		client.close()
	}
}

// Register adds a client.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("event stream client connected", "subject", client.subject, "clients", n)
}

// Unregister removes a client and closes its queue. Safe to call twice.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	if existed {
		client.close()
		h.logger.Debug("event stream client disconnected", "subject", client.subject, "clients", n)
	}
}

// Broadcast delivers e to every client whose subscription matches it.
func (h *Hub) Broadcast(e events.Event) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		ID:        e.ID,
		EventType: string(e.Type),
		Device:    e.Device,
		Timestamp: e.Timestamp.Format(timestampLayout),
		Payload:   e.Payload,
	})
	if err != nil {
		h.logger.Error("encoding event for websocket failed", "type", e.Type, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, client := range clients {
		if client.wants(e) && client.deliver(data) {
			delivered++
		}
	}
	if delivered > 0 {
		h.logger.Debug("event streamed", "type", e.Type, "recipients", delivered)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Name implements events.Sink.
func (h *Hub) Name() string { return "websocket" }

// Handle implements events.Sink.
func (h *Hub) Handle(_ context.Context, e events.Event) error {
	h.Broadcast(e)
	return nil
}

// handleWebSocket upgrades to the event stream. With authentication
// enabled the caller must present a ticket from POST /auth/ws-ticket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	entry := ticketEntry{subject: anonymousSubject, role: auth.RoleOperator}
	if s.authEnabled() {
		ticket := r.URL.Query().Get("ticket")
		if ticket == "" {
			writeUnauthorized(w, "ticket query parameter is required")
			return
		}
		var ok bool
		if entry, ok = s.tickets.redeem(ticket); !ok {
			writeUnauthorized(w, "invalid or expired ticket")
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := newWSClient(s.hub, conn, entry)
	s.hub.Register(client)

	ka := newKeepalive(s.wsCfg)
	go client.writeLoop(ka)
	go client.readLoop(ka, s.wsCfg.MaxMessageSize)
}
