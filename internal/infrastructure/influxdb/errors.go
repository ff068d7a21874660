package influxdb

import "errors"

// Sentinel errors for the deployment and discovery metrics writer.
var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	// Callers treat it as "run without metrics", not as a failure.
	ErrDisabled = errors.New("influxdb: metrics disabled")

	// ErrConnectionFailed means the server did not answer the startup ping.
	ErrConnectionFailed = errors.New("influxdb: metrics server unreachable")

	// ErrNotConnected is returned by HealthCheck after Close.
	ErrNotConnected = errors.New("influxdb: metrics writer closed")

	// ErrWriteFailed wraps a batch of deployment, discovery or session
	// points the server rejected. It reaches the SetOnError callback.
	ErrWriteFailed = errors.New("influxdb: metrics batch rejected")
)
