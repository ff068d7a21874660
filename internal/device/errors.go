package device

import "errors"

// Domain errors for the device package.
//
// Store errors never reach tool callers: Load falls back to an empty cache
// and Save only logs. They are exposed for the store's own callers and tests.
var (
	// ErrCacheCorrupt is returned when the cache file cannot be decoded.
	ErrCacheCorrupt = errors.New("device: cache file corrupt")

	// ErrInvalidRecord is returned when a record has no IP address.
	ErrInvalidRecord = errors.New("device: invalid record")
)
