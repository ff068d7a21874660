package moku

import (
	"context"

	"github.com/nerrad567/moku-core/internal/model"
)

// Identity is what a device reports about itself.
type Identity struct {
	Name     string `json:"name"`
	Serial   string `json:"serial_number"`
	Platform string `json:"platform"`
	Firmware string `json:"firmware,omitempty"`
}

// Connector opens an owned connection to a device.
//
// With force false the firmware rejects the claim when another client owns
// the device (ErrOwnedByAnotherClient). With force true the previous owner
// is preempted.
type Connector interface {
	Connect(ctx context.Context, addr string, force bool) (Handle, error)
}

// Describer reads a device's identity without claiming ownership.
type Describer interface {
	Describe(ctx context.Context, addr string) (Identity, error)
}

// Handle is an owned connection to one device.
type Handle interface {
	// Identity returns the connected device's name, serial and platform.
	Identity(ctx context.Context) (Identity, error)

	// SetInstrument loads an instrument into slot. bitstream is only used
	// by CloudCompile.
	SetInstrument(ctx context.Context, slot int, instrument model.Instrument, bitstream string) error

	// SetControl writes one control register of the instrument in slot.
	SetControl(ctx context.Context, slot int, register, value uint32) error

	// SetTimebase sets an oscilloscope's capture window in seconds.
	SetTimebase(ctx context.Context, slot int, t1, t2 float64) error

	// SetConnections replaces the routing matrix in one call.
	SetConnections(ctx context.Context, conns []model.Connection) error

	// Instrument returns the instrument loaded in slot, or ErrSlotEmpty.
	Instrument(ctx context.Context, slot int) (model.Instrument, error)

	// Relinquish releases ownership. The handle is unusable afterwards.
	Relinquish(ctx context.Context) error
}
