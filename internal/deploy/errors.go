package deploy

import "errors"

// Domain errors for the deploy package.
var (
	// ErrPartialDeployment is returned by Report.Err when some slots or the
	// routing matrix were not applied. Earlier changes remain on hardware.
	ErrPartialDeployment = errors.New("deploy: partial deployment")

	// ErrPlatformMismatch is returned when a config targets a different
	// platform than the connected device. It wraps model.ErrInvalidConfig.
	ErrPlatformMismatch = errors.New("deploy: platform mismatch")

	// ErrHardware is returned when a standalone hardware call fails.
	ErrHardware = errors.New("deploy: hardware call failed")
)
