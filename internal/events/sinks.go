package events

import (
	"context"
	"time"

	"github.com/nerrad567/moku-core/internal/audit"
	"github.com/nerrad567/moku-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/moku-core/internal/infrastructure/mqtt"
)

// Publisher is the part of the MQTT client the MQTTSink uses.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// MQTTSink publishes each event to moku/events/{type}.
type MQTTSink struct {
	pub Publisher
}

// NewMQTTSink creates an MQTT sink.
func NewMQTTSink(pub Publisher) *MQTTSink {
	return &MQTTSink{pub: pub}
}

// Name implements Sink.
func (*MQTTSink) Name() string { return "mqtt" }

// Handle implements Sink.
func (s *MQTTSink) Handle(_ context.Context, e Event) error {
	return s.pub.PublishJSON(mqtt.Topics{}.Event(string(e.Type)), e)
}

// MetricsWriter is the part of the InfluxDB client the InfluxSink uses.
type MetricsWriter interface {
	WriteDeployment(d influxdb.Deployment)
	WriteDiscovery(devices, enriched int, duration time.Duration, at time.Time)
	WriteSession(device, action string, forced bool, at time.Time)
}

// InfluxSink turns events into InfluxDB points. Routing events carry no
// metric and are ignored.
type InfluxSink struct {
	w MetricsWriter
}

// NewInfluxSink creates an InfluxDB sink.
func NewInfluxSink(w MetricsWriter) *InfluxSink {
	return &InfluxSink{w: w}
}

// Name implements Sink.
func (*InfluxSink) Name() string { return "influxdb" }

// Handle implements Sink.
func (s *InfluxSink) Handle(_ context.Context, e Event) error {
	switch e.Type {
	case DeployCompleted:
		s.w.WriteDeployment(influxdb.Deployment{
			Device:      e.Device,
			Platform:    e.String(KeyPlatform),
			Status:      e.String(KeyStatus),
			Deployed:    e.Int(KeyDeployed),
			Skipped:     e.Int(KeySkipped),
			Failed:      e.Int(KeyFailed),
			Connections: e.Int(KeyConnections),
			Duration:    time.Duration(e.Int(KeyDurationMS)) * time.Millisecond,
			At:          e.Timestamp,
		})
	case DiscoveryCompleted:
		s.w.WriteDiscovery(e.Int(KeyDevices), e.Int(KeyEnriched),
			time.Duration(e.Int(KeyDurationMS))*time.Millisecond, e.Timestamp)
	case SessionAttached:
		s.w.WriteSession(e.Device, "attached", e.Bool(KeyForced), e.Timestamp)
	case SessionReleased:
		s.w.WriteSession(e.Device, "released", false, e.Timestamp)
	}
	return nil
}

// AuditSink writes one audit_logs row per event.
type AuditSink struct {
	repo audit.Repository
}

// NewAuditSink creates an audit sink.
func NewAuditSink(repo audit.Repository) *AuditSink {
	return &AuditSink{repo: repo}
}

// Name implements Sink.
func (*AuditSink) Name() string { return "audit" }

var auditActions = map[Type]string{
	SessionAttached:    audit.ActionAttach,
	SessionReleased:    audit.ActionRelease,
	DeployCompleted:    audit.ActionDeploy,
	RoutingConfigured:  audit.ActionRoute,
	DiscoveryCompleted: audit.ActionDiscover,
}

// Handle implements Sink.
func (s *AuditSink) Handle(ctx context.Context, e Event) error {
	action, ok := auditActions[e.Type]
	if !ok {
		action = string(e.Type)
	}
	entityType := audit.EntityDevice
	if e.Type == DiscoveryCompleted {
		entityType = audit.EntityNetwork
	}
	source := e.Source
	if source == "" {
		source = "mcp"
	}
	return s.repo.Create(ctx, &audit.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   e.Device,
		Source:     source,
		Details:    e.Payload,
		CreatedAt:  e.Timestamp,
	})
}
