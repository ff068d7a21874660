// Package influxdb writes control-core metrics to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, batched metric writes, and health monitoring.
//
// # Measurements
//
//   - deployments: one point per push_config run (device, platform, status)
//   - discovery: one point per network scan
//   - sessions: one point per attach or release
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteDiscovery(3, 1, 2*time.Second, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking; batch
// errors are delivered to the SetOnError callback.
package influxdb
