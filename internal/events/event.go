package events

import (
	"time"

	"github.com/google/uuid"
)

// Type names an event.
type Type string

// Event types.
const (
	SessionAttached    Type = "session.attached"
	SessionReleased    Type = "session.released"
	DeployCompleted    Type = "deploy.completed"
	RoutingConfigured  Type = "routing.configured"
	DiscoveryCompleted Type = "discovery.completed"
)

// Valid reports whether t is one of the event types above.
func (t Type) Valid() bool {
	switch t {
	case SessionAttached, SessionReleased, DeployCompleted, RoutingConfigured, DiscoveryCompleted:
		return true
	}
	return false
}

// Payload keys shared by publishers and sinks.
const (
	KeyStatus      = "status"
	KeyPlatform    = "platform"
	KeyName        = "name"
	KeySerial      = "serial"
	KeyForced      = "forced"
	KeyDeployed    = "deployed"
	KeySkipped     = "skipped"
	KeyFailed      = "failed"
	KeyConnections = "connections"
	KeyDevices     = "devices"
	KeyEnriched    = "enriched"
	KeyDurationMS  = "duration_ms"
	KeyDeployment  = "deployment_id"
	KeyError       = "error"
)

// Event is something that happened to a device or the network.
type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Device    string         `json:"device,omitempty"`
	Source    string         `json:"source,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// New creates an event with a fresh ID and the current time.
func New(t Type, device string, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Device:    device,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Int reads an integer payload value. JSON-decoded numbers are accepted.
func (e Event) Int(key string) int {
	switch v := e.Payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case []int:
		return len(v)
	default:
		return 0
	}
}

// String reads a string payload value.
func (e Event) String(key string) string {
	s, _ := e.Payload[key].(string) //nolint:errcheck // Missing keys read as ""
	return s
}

// Bool reads a boolean payload value.
func (e Event) Bool(key string) bool {
	b, _ := e.Payload[key].(bool) //nolint:errcheck // Missing keys read as false
	return b
}
