// Package mokutest provides an in-memory Moku device for tests.
package mokutest

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/moku-core/internal/model"
	"github.com/nerrad567/moku-core/internal/moku"
)

// Fake is an in-memory device implementing moku.Connector and
// moku.Describer. Error fields inject failures; Calls records every
// hardware call in order.
type Fake struct {
	mu sync.Mutex

	Ident moku.Identity

	// OwnedElsewhere makes non-forced Connect fail with
	// moku.ErrOwnedByAnotherClient.
	OwnedElsewhere bool

	ConnectErr        error
	DescribeErr       error
	RelinquishErr     error
	SetConnectionsErr error
	InstrumentErr     map[int]error
	ControlErr        map[int]error

	// SlotErr fails SetInstrument for the given slot.
	SlotErr map[int]error

	// Slots is the live instrument per slot.
	Slots map[int]model.Instrument

	Connections  []model.Connection
	Calls        []string
	ConnectCount int
	LastAddr     string
	LastForce    bool
}

// New returns a fake device with the given identity.
func New(id moku.Identity) *Fake {
	return &Fake{
		Ident:         id,
		Slots:         make(map[int]model.Instrument),
		SlotErr:       make(map[int]error),
		InstrumentErr: make(map[int]error),
		ControlErr:    make(map[int]error),
	}
}

// NewGo returns a fake Moku:Go.
func NewGo() *Fake {
	return New(moku.Identity{Name: "Lab-Go", Serial: "MG-001", Platform: "Moku:Go"})
}

func (f *Fake) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

// CallLog returns a copy of the recorded calls.
func (f *Fake) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

// Connect implements moku.Connector.
func (f *Fake) Connect(_ context.Context, addr string, force bool) (moku.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ConnectCount++
	f.LastAddr = addr
	f.LastForce = force
	f.record("connect %s force=%t", addr, force)

	if f.ConnectErr != nil {
		return nil, f.ConnectErr
	}
	if f.OwnedElsewhere && !force {
		return nil, moku.ErrOwnedByAnotherClient
	}
	f.OwnedElsewhere = false
	return &handle{fake: f}, nil
}

// Describe implements moku.Describer.
func (f *Fake) Describe(_ context.Context, addr string) (moku.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("describe %s", addr)
	if f.DescribeErr != nil {
		return moku.Identity{}, f.DescribeErr
	}
	return f.Ident, nil
}

type handle struct {
	fake   *Fake
	closed bool
}

func (h *handle) lock() (*Fake, error) {
	h.fake.mu.Lock()
	if h.closed {
		h.fake.mu.Unlock()
		return nil, moku.ErrHandleClosed
	}
	return h.fake, nil
}

func (h *handle) Identity(context.Context) (moku.Identity, error) {
	f, err := h.lock()
	if err != nil {
		return moku.Identity{}, err
	}
	defer f.mu.Unlock()
	return f.Ident, nil
}

func (h *handle) SetInstrument(_ context.Context, slot int, instrument model.Instrument, bitstream string) error {
	f, err := h.lock()
	if err != nil {
		return err
	}
	defer f.mu.Unlock()

	f.record("set_instrument %d %s", slot, instrument)
	if err := f.SlotErr[slot]; err != nil {
		return err
	}
	f.Slots[slot] = instrument
	return nil
}

func (h *handle) SetControl(_ context.Context, slot int, register, value uint32) error {
	f, err := h.lock()
	if err != nil {
		return err
	}
	defer f.mu.Unlock()

	f.record("set_control %d %d=%d", slot, register, value)
	return f.ControlErr[slot]
}

func (h *handle) SetTimebase(_ context.Context, slot int, t1, t2 float64) error {
	f, err := h.lock()
	if err != nil {
		return err
	}
	defer f.mu.Unlock()

	f.record("set_timebase %d %g %g", slot, t1, t2)
	return nil
}

func (h *handle) SetConnections(_ context.Context, conns []model.Connection) error {
	f, err := h.lock()
	if err != nil {
		return err
	}
	defer f.mu.Unlock()

	f.record("set_connections %d", len(conns))
	if f.SetConnectionsErr != nil {
		return f.SetConnectionsErr
	}
	f.Connections = append([]model.Connection(nil), conns...)
	return nil
}

func (h *handle) Instrument(_ context.Context, slot int) (model.Instrument, error) {
	f, err := h.lock()
	if err != nil {
		return "", err
	}
	defer f.mu.Unlock()

	f.record("get_instrument %d", slot)
	if err := f.InstrumentErr[slot]; err != nil {
		return "", err
	}
	inst, ok := f.Slots[slot]
	if !ok || inst == "" {
		return "", moku.ErrSlotEmpty
	}
	return inst, nil
}

func (h *handle) Relinquish(context.Context) error {
	f, err := h.lock()
	if err != nil {
		return err
	}
	defer f.mu.Unlock()

	f.record("relinquish")
	h.closed = true
	return f.RelinquishErr
}
