package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurements written by the control core.
const (
	MeasurementDeployments = "deployments"
	MeasurementDiscovery   = "discovery"
	MeasurementSessions    = "sessions"
)

// Deployment is one deployment run as a metric.
type Deployment struct {
	Device      string
	Platform    string
	Status      string
	Deployed    int
	Skipped     int
	Failed      int
	Connections int
	Duration    time.Duration
	At          time.Time
}

// WriteDeployment records the outcome of a deployment run.
//
// Tags: device, platform, status. Fields: slot counts, connections,
// duration_ms.
func (c *Client) WriteDeployment(d Deployment) {
	c.WritePointWithTime(MeasurementDeployments,
		map[string]string{
			"device":   d.Device,
			"platform": d.Platform,
			"status":   d.Status,
		},
		map[string]interface{}{
			"slots_deployed": d.Deployed,
			"slots_skipped":  d.Skipped,
			"slots_failed":   d.Failed,
			"connections":    d.Connections,
			"duration_ms":    d.Duration.Milliseconds(),
		},
		d.At,
	)
}

// WriteDiscovery records a network scan.
func (c *Client) WriteDiscovery(devices, enriched int, duration time.Duration, at time.Time) {
	c.WritePointWithTime(MeasurementDiscovery,
		nil,
		map[string]interface{}{
			"devices":     devices,
			"enriched":    enriched,
			"duration_ms": duration.Milliseconds(),
		},
		at,
	)
}

// WriteSession records an ownership change ("attached" or "released").
func (c *Client) WriteSession(device, action string, forced bool, at time.Time) {
	c.WritePointWithTime(MeasurementSessions,
		map[string]string{
			"device": device,
			"action": action,
		},
		map[string]interface{}{
			"forced": forced,
		},
		at,
	)
}

// WritePointWithTime writes a point with full control over tags, fields,
// and timestamp. The write is non-blocking and batched.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
