package model

import "errors"

// Domain errors for the model package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, model.ErrInvalidRouting) {
//	    // report the offending edges
//	}
var (
	// ErrInvalidConfig is returned when a configuration fails schema checks
	// or names an instrument that cannot be deployed.
	ErrInvalidConfig = errors.New("model: invalid config")

	// ErrInvalidRouting is returned when routing edges reference unknown
	// channels, loop onto themselves, or sit beside out-of-range slots.
	ErrInvalidRouting = errors.New("model: invalid routing")

	// ErrUnknownPlatform is returned when a platform name is not recognised
	// and no explicit slot count is given.
	ErrUnknownPlatform = errors.New("model: unknown platform")
)
