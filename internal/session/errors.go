package session

import "errors"

// Domain errors for the session package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, session.ErrConnectionDenied) {
//	    // suggest retrying with force
//	}
var (
	// ErrNotConnected is returned when an operation needs an owned session.
	ErrNotConnected = errors.New("session: not connected")

	// ErrAlreadyOwnedElsewhere is returned when attaching to a device while
	// this process owns a different one.
	ErrAlreadyOwnedElsewhere = errors.New("session: already connected to another device")

	// ErrUnknownDevice is returned when an identifier is neither an address
	// nor a known name or serial.
	ErrUnknownDevice = errors.New("session: unknown device")

	// ErrConnectionDenied is returned when the firmware refuses a
	// non-forced connection because another client owns the device.
	ErrConnectionDenied = errors.New("session: connection denied")

	// ErrConnectionFailed is returned for any other connection failure.
	ErrConnectionFailed = errors.New("session: connection failed")
)
