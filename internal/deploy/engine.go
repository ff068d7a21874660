package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/moku-core/internal/model"
	"github.com/nerrad567/moku-core/internal/moku"
)

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Session is the part of the ownership session the engine drives.
type Session interface {
	Handle() (moku.Handle, error)
	Target() string
	Platform() (model.Platform, error)
	CachedConfig() *model.Config
	SetCachedConfig(cfg *model.Config)
}

// Engine deploys configurations and answers read-back queries.
type Engine struct {
	history History
	logger  Logger
	now     func() time.Time
	newID   func() string
}

// NewEngine creates a deployment engine without history.
func NewEngine() *Engine {
	return &Engine{
		logger: noopLogger{},
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// SetHistory enables persistence of deployment reports.
func (e *Engine) SetHistory(h History) {
	e.history = h
}

// Deploy realises cfg on the session's device.
//
// Precondition failures (not connected, invalid routing, unsupported
// instrument, platform mismatch) return an error and touch no hardware.
// Once hardware calls begin, the outcome is reported in the Report and the
// error is nil; use Report.Err to classify it.
func (e *Engine) Deploy(ctx context.Context, sess Session, cfg *model.Config) (*Report, error) {
	handle, err := sess.Handle()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: no config", model.ErrInvalidConfig)
	}
	if err := model.CheckRouting(cfg); err != nil {
		return nil, err
	}
	if err := cfg.CheckInstruments(); err != nil {
		return nil, err
	}
	if err := checkPlatform(sess, cfg); err != nil {
		return nil, err
	}

	report := &Report{
		ID:              e.newID(),
		Device:          sess.Target(),
		Platform:        cfg.Platform.Name,
		RoutingDeclared: len(cfg.Routing),
		StartedAt:       e.now().UTC(),
	}

	e.logger.Info("deployment started",
		"deployment_id", report.ID,
		"device", report.Device,
		"slots", cfg.SortedSlots(),
		"connections", len(cfg.Routing),
	)

	slots := cfg.SortedSlots()
	failed := false
	for i, n := range slots {
		slot := cfg.Slots[n]
		result := e.deploySlot(ctx, handle, n, slot)
		report.Slots = append(report.Slots, result)

		if result.Outcome == OutcomeFailed {
			failed = true
			report.Error = result.Message
			for _, rest := range slots[i+1:] {
				report.Slots = append(report.Slots, SlotResult{
					Slot:       rest,
					Instrument: cfg.Slots[rest].Instrument,
					Outcome:    OutcomeNotAttempted,
				})
			}
			break
		}
	}

	switch {
	case failed:
		report.Status = StatusError
	case len(cfg.Routing) > 0:
		if err := handle.SetConnections(ctx, cfg.Routing); err != nil {
			e.logger.Error("routing failed after slots deployed", "deployment_id", report.ID, "error", err)
			report.Status = StatusPartialSuccess
			report.Error = fmt.Sprintf("routing: %v", err)
		} else {
			report.RoutingConfigured = true
			report.Status = StatusDeployed
		}
	default:
		report.Status = StatusDeployed
	}

	// Only a full deployment is a trustworthy description of the device.
	if report.Status == StatusDeployed {
		sess.SetCachedConfig(cfg)
	} else {
		sess.SetCachedConfig(nil)
	}

	report.CompletedAt = e.now().UTC()
	e.logger.Info("deployment finished",
		"deployment_id", report.ID,
		"status", report.Status,
		"deployed", report.SlotsConfigured(),
		"skipped", report.SlotsWith(OutcomeSkipped),
		"routing_configured", report.RoutingConfigured,
		"duration", report.Duration(),
	)

	if e.history != nil {
		if err := e.history.Record(ctx, report, cfg); err != nil {
			e.logger.Warn("failed to record deployment", "deployment_id", report.ID, "error", err)
		}
	}

	return report, nil
}

// deploySlot loads one slot. Registers are written in declared order.
func (e *Engine) deploySlot(ctx context.Context, h moku.Handle, n int, slot *model.Slot) SlotResult {
	result := SlotResult{Slot: n, Instrument: slot.Instrument}

	if slot.Instrument == model.CloudCompile && slot.Bitstream == "" {
		e.logger.Warn("skipping CloudCompile slot without bitstream", "slot", n)
		result.Outcome = OutcomeSkipped
		result.Message = "CloudCompile requires a bitstream; slot not deployed"
		return result
	}

	fail := func(step string, err error) SlotResult {
		e.logger.Error("slot deployment failed", "slot", n, "instrument", slot.Instrument, "step", step, "error", err)
		result.Outcome = OutcomeFailed
		result.Message = fmt.Sprintf("slot %d %s: %v", n, step, err)
		return result
	}

	if err := h.SetInstrument(ctx, n, slot.Instrument, slot.Bitstream); err != nil {
		return fail("set_instrument", err)
	}

	for _, reg := range slot.ControlRegisters {
		if err := h.SetControl(ctx, n, reg.Address, reg.Value); err != nil {
			return fail(fmt.Sprintf("set_control %d", reg.Address), err)
		}
	}

	if slot.Instrument == model.Oscilloscope {
		t1, t2, ok, err := slot.Timebase()
		if err != nil {
			return fail("timebase", err)
		}
		if ok {
			if err := h.SetTimebase(ctx, n, t1, t2); err != nil {
				return fail("set_timebase", err)
			}
		}
	}

	e.logger.Debug("slot deployed", "slot", n, "instrument", slot.Instrument, "registers", len(slot.ControlRegisters))
	result.Outcome = OutcomeDeployed
	return result
}

// checkPlatform rejects configs written for a different hardware model.
// Devices reporting an unrecognised platform are not checked.
func checkPlatform(sess Session, cfg *model.Config) error {
	device, err := sess.Platform()
	if err != nil {
		return err
	}
	if device.SlotCount == 0 {
		return nil
	}
	want, ok := model.LookupPlatform(cfg.Platform.Name)
	if ok && want.Name != device.Name {
		return fmt.Errorf("%w: %w: config targets %s but device is %s",
			model.ErrInvalidConfig, ErrPlatformMismatch, cfg.Platform.Name, device.Name)
	}
	if cfg.Platform.SlotCount > device.SlotCount {
		return fmt.Errorf("%w: %w: config declares %d slots but device has %d",
			model.ErrInvalidConfig, ErrPlatformMismatch, cfg.Platform.SlotCount, device.SlotCount)
	}
	return nil
}

// queryKind tags the outcome of a live slot query.
type queryKind int

const (
	slotPresent queryKind = iota
	slotAbsent
	slotQueryError
)

// slotQuery is the tagged result of asking the device what a slot holds.
type slotQuery struct {
	kind       queryKind
	instrument model.Instrument
	err        error
}

func querySlot(ctx context.Context, h moku.Handle, n int) slotQuery {
	inst, err := h.Instrument(ctx, n)
	switch {
	case err == nil && inst != "":
		return slotQuery{kind: slotPresent, instrument: inst}
	case err == nil, errors.Is(err, moku.ErrSlotEmpty):
		return slotQuery{kind: slotAbsent}
	default:
		return slotQuery{kind: slotQueryError, err: err}
	}
}

// Config sources reported by EffectiveConfig.
const (
	SourceCache    = "cache"
	SourceHardware = "hardware"
)

// Effective is the best available description of the device's config.
type Effective struct {
	Config *model.Config `json:"config"`
	Source string        `json:"source"`
	// Notes holds per-slot query failures during reconstruction.
	Notes map[int]string `json:"notes,omitempty"`
}

// EffectiveConfig returns the cached config when present. Otherwise it
// reconstructs slot instruments from live queries; routing cannot be read
// back and is returned empty.
func (e *Engine) EffectiveConfig(ctx context.Context, sess Session) (*Effective, error) {
	handle, err := sess.Handle()
	if err != nil {
		return nil, err
	}
	if cached := sess.CachedConfig(); cached != nil {
		if cached.Routing == nil {
			cached.Routing = []model.Connection{}
		}
		return &Effective{Config: cached, Source: SourceCache}, nil
	}

	platform, err := sess.Platform()
	if err != nil {
		return nil, err
	}

	cfg := &model.Config{
		Platform: platform,
		Slots:    make(map[int]*model.Slot),
		Routing:  []model.Connection{},
	}
	eff := &Effective{Config: cfg, Source: SourceHardware}

	for n := 1; n <= platform.SlotCount; n++ {
		q := querySlot(ctx, handle, n)
		switch q.kind {
		case slotPresent:
			cfg.Slots[n] = &model.Slot{Instrument: q.instrument}
		case slotAbsent:
		case slotQueryError:
			if eff.Notes == nil {
				eff.Notes = make(map[int]string)
			}
			eff.Notes[n] = q.err.Error()
			e.logger.Warn("slot query failed during reconstruction", "slot", n, "error", q.err)
		}
	}

	return eff, nil
}

// SlotStatus is one entry of ListSlots.
type SlotStatus struct {
	Instrument model.Instrument `json:"instrument,omitempty"`
	Configured bool             `json:"configured"`
	Error      string           `json:"error,omitempty"`
}

// ListSlots queries every slot of the device live.
func (e *Engine) ListSlots(ctx context.Context, sess Session) (map[int]SlotStatus, error) {
	handle, err := sess.Handle()
	if err != nil {
		return nil, err
	}
	platform, err := sess.Platform()
	if err != nil {
		return nil, err
	}

	out := make(map[int]SlotStatus, platform.SlotCount)
	for n := 1; n <= platform.SlotCount; n++ {
		q := querySlot(ctx, handle, n)
		switch q.kind {
		case slotPresent:
			out[n] = SlotStatus{Instrument: q.instrument, Configured: true}
		case slotAbsent:
			out[n] = SlotStatus{}
		case slotQueryError:
			out[n] = SlotStatus{Error: q.err.Error()}
		}
	}
	return out, nil
}

// ApplyRouting validates conns against the effective config and applies
// them in one call. On success the cached config carries the new routing.
func (e *Engine) ApplyRouting(ctx context.Context, sess Session, conns []model.Connection) (int, error) {
	handle, err := sess.Handle()
	if err != nil {
		return 0, err
	}

	eff, err := e.EffectiveConfig(ctx, sess)
	if err != nil {
		return 0, err
	}

	if errs := model.ValidateConnections(eff.Config, conns); len(errs) > 0 {
		return 0, model.RoutingErrors(errs)
	}

	if err := handle.SetConnections(ctx, conns); err != nil {
		e.logger.Error("set_connections failed", "error", err)
		return 0, fmt.Errorf("%w: set_connections: %w", ErrHardware, err)
	}

	updated := eff.Config.Clone()
	updated.Routing = append([]model.Connection{}, conns...)
	sess.SetCachedConfig(updated)

	e.logger.Info("routing configured", "connections", len(conns), "source", eff.Source)
	return len(conns), nil
}
