package discovery

import "errors"

// Domain errors for the discovery package.
var (
	// ErrBrowse is returned when the mDNS browser could not be started.
	ErrBrowse = errors.New("discovery: browse failed")
)
