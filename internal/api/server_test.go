package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/moku-core/internal/audit"
	"github.com/nerrad567/moku-core/internal/auth"
	"github.com/nerrad567/moku-core/internal/deploy"
	"github.com/nerrad567/moku-core/internal/device"
	"github.com/nerrad567/moku-core/internal/events"
	"github.com/nerrad567/moku-core/internal/infrastructure/config"
	"github.com/nerrad567/moku-core/internal/infrastructure/database"
	"github.com/nerrad567/moku-core/internal/infrastructure/logging"
	"github.com/nerrad567/moku-core/internal/moku/mokutest"
	"github.com/nerrad567/moku-core/internal/session"
	"github.com/nerrad567/moku-core/internal/tools"
	_ "github.com/nerrad567/moku-core/migrations"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

type testEnv struct {
	srv      *Server
	router   http.Handler
	fake     *mokutest.Fake
	registry *device.Registry
	audit    *audit.SQLiteRepository
}

func testLogger() *logging.Logger {
	return logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)
}

// testServer wires a server to a fake Moku:Go, a registry in a temp dir and
// an in-memory database. An empty secret disables authentication.
func testServer(t *testing.T, secret string) *testEnv {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	fake := mokutest.NewGo()
	reg := device.NewRegistry(filepath.Join(t.TempDir(), "device_cache.json"))
	sess := session.New(fake, device.NewResolver(reg), reg)
	engine := deploy.NewEngine()
	history := deploy.NewSQLiteHistory(db.DB)
	engine.SetHistory(history)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS:       config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Security: config.SecurityConfig{JWT: config.JWTConfig{Secret: secret, TokenTTL: 15}},
		Logger:   testLogger(),
		Tools:    tools.NewService(sess, engine, nil),
		Registry: reg,
		Session:  sess,
		History:  history,
		Audit:    auditRepo,
		DB:       db,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testEnv{srv: srv, router: srv.buildRouter(), fake: fake, registry: reg, audit: auditRepo}
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, w.Body.String())
	}
	return out
}

func token(t *testing.T, role auth.Role) string {
	t.Helper()
	tok, err := auth.GenerateToken("bench-"+string(role), role, testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return tok
}

// ─── Health and middleware ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := testServer(t, testSecret)

	w := env.do(t, http.MethodGet, "/api/v1/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	resp := decode(t, w)
	if resp["status"] != "ok" || resp["version"] != "test" {
		t.Errorf("body = %v", resp)
	}
}

func TestRequestID(t *testing.T) {
	env := testServer(t, "")

	w := env.do(t, http.MethodGet, "/api/v1/health", "", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "bench-42")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "bench-42" {
		t.Errorf("X-Request-ID = %q, want bench-42", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := testServer(t, "")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/tools/attach_moku", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestNotFound(t *testing.T) {
	env := testServer(t, "")
	if w := env.do(t, http.MethodGet, "/api/v1/nope", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestMetrics(t *testing.T) {
	env := testServer(t, testSecret)

	w := env.do(t, http.MethodGet, "/api/v1/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var m SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Session.State != "idle" || m.Version != "test" || m.Runtime.Goroutines == 0 {
		t.Errorf("metrics = %+v", m)
	}
}

// ─── Authentication ────────────────────────────────────────────────

func TestAuth(t *testing.T) {
	env := testServer(t, testSecret)
	viewer := token(t, auth.RoleViewer)
	operator := token(t, auth.RoleOperator)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		token      string
		wantStatus int
	}{
		{"no token", http.MethodGet, "/api/v1/devices", "", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/v1/devices", "", "not-a-jwt", http.StatusUnauthorized},
		{"viewer reads", http.MethodGet, "/api/v1/devices", "", viewer, http.StatusOK},
		{"viewer lists tools", http.MethodGet, "/api/v1/tools", "", viewer, http.StatusOK},
		{"viewer cannot invoke", http.MethodPost, "/api/v1/tools/release_moku", "", viewer, http.StatusForbidden},
		{"operator invokes", http.MethodPost, "/api/v1/tools/release_moku", "", operator, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.body, tt.token)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestAuth_WrongSecret(t *testing.T) {
	env := testServer(t, testSecret)
	forged, err := auth.GenerateToken("mallory", auth.RoleOperator, "another-secret-that-is-32-chars-long!!", 15)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/devices", "", forged); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// ─── Tools ─────────────────────────────────────────────────────────

func TestListTools(t *testing.T) {
	env := testServer(t, "")

	resp := decode(t, env.do(t, http.MethodGet, "/api/v1/tools", "", ""))
	if resp["count"] != float64(8) {
		t.Errorf("count = %v, want 8", resp["count"])
	}
}

func TestCallTool_AttachPushAndInspect(t *testing.T) {
	env := testServer(t, "")

	w := env.do(t, http.MethodPost, "/api/v1/tools/attach_moku", `{"device_id": "10.0.0.2"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("attach status = %d", w.Code)
	}
	if resp := decode(t, w); resp["status"] != "connected" {
		t.Fatalf("attach = %v", resp)
	}

	sess := decode(t, env.do(t, http.MethodGet, "/api/v1/session", "", ""))
	if sess["state"] != "owned" {
		t.Errorf("session = %v", sess)
	}

	cfg := `{"config_dict": {
		"platform": "Moku:Go",
		"slots": {"1": {"instrument": "Oscilloscope"}},
		"routing": [{"source": "Input1", "destination": "Slot1InA"}]
	}}`
	push := decode(t, env.do(t, http.MethodPost, "/api/v1/tools/push_config", cfg, ""))
	if push["status"] != "deployed" || push["routing_configured"] != true {
		t.Fatalf("push_config = %v", push)
	}
	id, _ := push["deployment_id"].(string)

	list := decode(t, env.do(t, http.MethodGet, "/api/v1/deployments?device=10.0.0.2", "", ""))
	if list["count"] != float64(1) {
		t.Errorf("deployments = %v", list)
	}

	w = env.do(t, http.MethodGet, "/api/v1/deployments/"+id, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get deployment status = %d", w.Code)
	}
	rec := decode(t, w)
	if rec["id"] != id || rec["config"] == nil {
		t.Errorf("deployment = %v", rec)
	}

	devices := decode(t, env.do(t, http.MethodGet, "/api/v1/devices", "", ""))
	if devices["count"] != float64(1) {
		t.Errorf("devices = %v", devices)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/devices/mg-001", "", ""); w.Code != http.StatusOK {
		t.Errorf("device by serial status = %d", w.Code)
	}
}

func TestCallTool_ErrorEnvelope(t *testing.T) {
	env := testServer(t, "")

	w := env.do(t, http.MethodPost, "/api/v1/tools/list_slots", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode(t, w)
	if resp["status"] != "error" || resp["suggestion"] != "Call attach_moku first" {
		t.Errorf("envelope = %v", resp)
	}
}

func TestCallTool_Unknown(t *testing.T) {
	env := testServer(t, "")

	w := env.do(t, http.MethodPost, "/api/v1/tools/format_disk", "{}", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	resp := decode(t, w)
	if avail, ok := resp["available_tools"].([]any); !ok || len(avail) != 8 {
		t.Errorf("available_tools = %v", resp["available_tools"])
	}
}

func TestCallTool_InvalidBody(t *testing.T) {
	env := testServer(t, "")
	if w := env.do(t, http.MethodPost, "/api/v1/tools/attach_moku", `["10.0.0.2"]`, ""); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ─── Devices, deployments, audit ───────────────────────────────────

func TestGetDevice_NotFound(t *testing.T) {
	env := testServer(t, "")
	if w := env.do(t, http.MethodGet, "/api/v1/devices/10.9.9.9", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeployments_Errors(t *testing.T) {
	env := testServer(t, "")

	if w := env.do(t, http.MethodGet, "/api/v1/deployments?limit=lots", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/deployments/missing", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", w.Code)
	}

	env.srv.history = nil
	env.router = env.srv.buildRouter()
	if w := env.do(t, http.MethodGet, "/api/v1/deployments", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled status = %d, want 503", w.Code)
	}
}

func TestListAudit(t *testing.T) {
	env := testServer(t, "")
	ctx := context.Background()

	for _, action := range []string{audit.ActionAttach, audit.ActionDeploy, audit.ActionDeploy} {
		if err := env.audit.Create(ctx, &audit.AuditLog{
			Action:     action,
			EntityType: audit.EntityDevice,
			EntityID:   "10.0.0.2",
			Source:     "api",
		}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	resp := decode(t, env.do(t, http.MethodGet, "/api/v1/audit?action=deploy&limit=1", "", ""))
	if resp["total"] != float64(2) {
		t.Errorf("total = %v, want 2", resp["total"])
	}
	if logs, ok := resp["logs"].([]any); !ok || len(logs) != 1 {
		t.Errorf("logs = %v", resp["logs"])
	}
}

// ─── WebSocket tickets ─────────────────────────────────────────────

func TestWSTicket_SingleUse(t *testing.T) {
	env := testServer(t, testSecret)

	w := env.do(t, http.MethodPost, "/api/v1/auth/ws-ticket", "", token(t, auth.RoleViewer))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	ticket, _ := decode(t, w)["ticket"].(string)
	if ticket == "" {
		t.Fatal("no ticket issued")
	}

	entry, ok := env.srv.tickets.redeem(ticket)
	if !ok || entry.role != auth.RoleViewer || entry.subject != "bench-viewer" {
		t.Errorf("first redeem = %+v, %v", entry, ok)
	}
	if _, ok := env.srv.tickets.redeem(ticket); ok {
		t.Error("ticket redeemed twice")
	}
}

func TestWSTicket_Expiry(t *testing.T) {
	store := newTicketStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ticket := store.issue("bench", auth.RoleOperator)

	now = now.Add(ticketTTL + time.Second)
	if _, ok := store.redeem(ticket); ok {
		t.Error("expired ticket should not be valid")
	}

	stale := store.issue("bench", auth.RoleOperator)
	now = now.Add(ticketTTL + time.Second)
	store.clean()
	if _, ok := store.tickets[stale]; ok {
		t.Error("clean() kept an expired ticket")
	}
}

func TestWebSocket_RequiresTicket(t *testing.T) {
	env := testServer(t, testSecret)

	if w := env.do(t, http.MethodGet, "/api/v1/ws", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no ticket status = %d, want 401", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/ws?ticket=forged", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("forged ticket status = %d, want 401", w.Code)
	}
}

func TestWebSocket_StreamsSubscribedEvents(t *testing.T) {
	env := testServer(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.srv.hub.Run(ctx)

	ts := httptest.NewServer(env.router)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer resp.Body.Close()
	defer conn.Close()

	sub := WSMessage{Type: WSTypeSubscribe, ID: "1", Payload: WSSubscribePayload{Channels: []string{string(events.DeployCompleted)}}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test deadline

	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("reading ack: %v", err)
	}
	if ack.Type != WSTypeResponse || ack.ID != "1" {
		t.Errorf("ack = %+v", ack)
	}

	if err := env.srv.hub.Handle(ctx, events.New(events.SessionAttached, "10.0.0.2", nil)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if err := env.srv.hub.Handle(ctx, events.New(events.DeployCompleted, "10.0.0.2", map[string]any{"status": "deployed"})); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if msg.Type != WSTypeEvent || msg.EventType != string(events.DeployCompleted) {
		t.Errorf("message = %+v, want only the subscribed deploy event", msg)
	}
}

// ─── Hub ───────────────────────────────────────────────────────────

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

// testClient registers a connectionless client subscribed to channels.
func testClient(hub *Hub, channels ...string) *WSClient {
	client := newWSClient(hub, nil, ticketEntry{subject: "bench", role: auth.RoleViewer})
	for _, c := range channels {
		client.types[c] = struct{}{}
	}
	hub.Register(client)
	return client
}

func readReply(t *testing.T, c *WSClient) WSMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a message")
	}
	return WSMessage{}
}

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := newTestHub(t)
	client := testClient(hub, string(events.RoutingConfigured))

	hub.Broadcast(events.New(events.RoutingConfigured, "10.0.0.2", map[string]any{"connections": 2}))

	select {
	case data := <-client.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.EventType != string(events.RoutingConfigured) || msg.Device != "10.0.0.2" {
			t.Errorf("message = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}
}

func TestHub_WildcardAndUnsubscribed(t *testing.T) {
	hub := newTestHub(t)
	all := testClient(hub, WSChannelAll)
	other := testClient(hub, string(events.DiscoveryCompleted))

	if err := hub.Handle(context.Background(), events.New(events.SessionReleased, "10.0.0.2", nil)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	select {
	case data := <-all.send:
		if !bytes.Contains(data, []byte(`"session.released"`)) {
			t.Errorf("message = %s", data)
		}
	case <-time.After(time.Second):
		t.Error("wildcard client received nothing")
	}

	select {
	case <-other.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_DeviceFilter(t *testing.T) {
	hub := newTestHub(t)
	client := testClient(hub, WSChannelAll)
	client.devices["10.0.0.7"] = struct{}{}

	hub.Broadcast(events.New(events.DeployCompleted, "10.0.0.2", nil))
	hub.Broadcast(events.New(events.DeployCompleted, "10.0.0.7", nil))

	if msg := readReply(t, client); msg.Device != "10.0.0.7" {
		t.Errorf("device = %q, want only 10.0.0.7", msg.Device)
	}
	select {
	case data := <-client.send:
		t.Errorf("unexpected extra message %s", data)
	default:
	}
}

func TestWSClient_Messages(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		wantType string
		check    func(t *testing.T, c *WSClient)
	}{
		{
			name:     "subscribe with device filter",
			frame:    `{"type":"subscribe","id":"a","payload":{"channels":["deploy.completed"],"devices":["10.0.0.2"]}}`,
			wantType: WSTypeResponse,
			check: func(t *testing.T, c *WSClient) {
				if !c.wants(events.New(events.DeployCompleted, "10.0.0.2", nil)) {
					t.Error("subscribed event not wanted")
				}
				if c.wants(events.New(events.DeployCompleted, "10.0.0.3", nil)) {
					t.Error("event for another device wanted")
				}
			},
		},
		{
			name:     "unknown event type",
			frame:    `{"type":"subscribe","id":"b","payload":{"channels":["deploy.started"]}}`,
			wantType: WSTypeError,
			check: func(t *testing.T, c *WSClient) {
				if len(c.types) != 0 {
					t.Errorf("types = %v, want none", c.types)
				}
			},
		},
		{name: "missing payload", frame: `{"type":"subscribe","id":"c"}`, wantType: WSTypeError},
		{name: "ping", frame: `{"type":"ping","id":"d"}`, wantType: WSTypePong},
		{name: "unknown type", frame: `{"type":"shout","id":"e"}`, wantType: WSTypeError},
		{name: "not JSON", frame: `hello`, wantType: WSTypeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := newTestHub(t)
			client := testClient(hub)

			client.handle([]byte(tt.frame))

			if msg := readReply(t, client); msg.Type != tt.wantType {
				t.Errorf("reply type = %q, want %q", msg.Type, tt.wantType)
			}
			if tt.check != nil {
				tt.check(t, client)
			}
		})
	}
}

func TestWSClient_Unsubscribe(t *testing.T) {
	hub := newTestHub(t)
	client := testClient(hub, string(events.SessionAttached), string(events.SessionReleased))

	client.handle([]byte(`{"type":"unsubscribe","id":"1","payload":{"channels":["session.attached"]}}`))
	readReply(t, client)

	if client.wants(events.New(events.SessionAttached, "", nil)) {
		t.Error("unsubscribed type still wanted")
	}
	if !client.wants(events.New(events.SessionReleased, "", nil)) {
		t.Error("remaining type no longer wanted")
	}
}

func TestWSClient_DeliverAfterClose(t *testing.T) {
	hub := newTestHub(t)
	client := testClient(hub, WSChannelAll)

	hub.Unregister(client)
	hub.Unregister(client)

	if client.deliver([]byte("{}")) {
		t.Error("deliver() succeeded on a closed client")
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := newTestHub(t)
	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}

	client := testClient(hub)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
	if hub.Name() != "websocket" {
		t.Errorf("Name() = %q", hub.Name())
	}
}

func TestServer_StartAndClose(t *testing.T) {
	env := testServer(t, "")
	if err := env.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { env.srv.Close() })

	if err := env.srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	resp, err := http.Get("http://" + env.srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
