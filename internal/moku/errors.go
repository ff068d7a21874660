package moku

import "errors"

// Domain errors for the moku package.
var (
	// ErrOwnedByAnotherClient is returned by Connect when the firmware
	// refuses a non-forced connection because another client holds ownership.
	ErrOwnedByAnotherClient = errors.New("moku: owned by another client")

	// ErrUnreachable is returned when the device cannot be contacted.
	ErrUnreachable = errors.New("moku: device unreachable")

	// ErrRequestFailed is returned when the device answers with an error.
	ErrRequestFailed = errors.New("moku: request failed")

	// ErrSlotEmpty is returned by Instrument when no instrument is loaded.
	ErrSlotEmpty = errors.New("moku: slot empty")

	// ErrHandleClosed is returned when a handle is used after Relinquish.
	ErrHandleClosed = errors.New("moku: handle closed")
)
