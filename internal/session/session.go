package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/moku-core/internal/device"
	"github.com/nerrad567/moku-core/internal/model"
	"github.com/nerrad567/moku-core/internal/moku"
)

// Logger defines the logging interface used by the Session.
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

// Resolver maps a device identifier to an address.
type Resolver interface {
	Resolve(token string) (string, bool)
}

// Recorder persists device sightings.
type Recorder interface {
	Upsert(ip, name, serial string, port int) device.Record
}

// State is the observable session state.
type State int

const (
	// Idle means no device is owned.
	Idle State = iota
	// Owned means a handle is held for Target.
	Owned
)

func (s State) String() string {
	if s == Owned {
		return "owned"
	}
	return "idle"
}

// Result statuses.
const (
	StatusConnected        = "connected"
	StatusAlreadyConnected = "already_connected"
	StatusDisconnected     = "disconnected"
	StatusNotConnected     = "not_connected"
)

// DeviceInfo describes the owned device.
type DeviceInfo struct {
	IP        string `json:"ip"`
	Name      string `json:"name"`
	Serial    string `json:"serial"`
	Platform  string `json:"platform"`
	Connected bool   `json:"connected"`
}

// AttachResult is the outcome of a successful Attach or Takeover.
type AttachResult struct {
	Status string     `json:"status"`
	Device DeviceInfo `json:"device"`
	Forced bool       `json:"forced,omitempty"`
}

// ReleaseResult is the outcome of Release. RelinquishErr is set when the
// device refused or failed to relinquish; the session is Idle regardless.
type ReleaseResult struct {
	Status        string `json:"status"`
	Device        string `json:"device,omitempty"`
	RelinquishErr error  `json:"-"`
}

// Session is the process-wide ownership session.
//
// Thread Safety: all methods are safe for concurrent use. Attach holds the
// session lock across the connect call, so state reads wait for it.
type Session struct {
	connector moku.Connector
	resolver  Resolver
	recorder  Recorder
	logger    Logger
	now       func() time.Time

	mu          sync.Mutex
	state       State
	target      string
	force       bool
	handle      moku.Handle
	identity    moku.Identity
	platform    model.Platform
	cached      *model.Config
	connectedAt time.Time
}

// New creates an Idle session. recorder may be nil.
func New(connector moku.Connector, resolver Resolver, recorder Recorder) *Session {
	return &Session{
		connector: connector,
		resolver:  resolver,
		recorder:  recorder,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the session.
func (s *Session) SetLogger(logger Logger) {
	s.logger = logger
}

// Attach connects to the device without preempting another owner.
func (s *Session) Attach(ctx context.Context, identifier string) (*AttachResult, error) {
	return s.attach(ctx, identifier, false)
}

// Takeover connects to the device and preempts any existing owner.
// The previous owner's connection is dropped by the firmware.
func (s *Session) Takeover(ctx context.Context, identifier string) (*AttachResult, error) {
	return s.attach(ctx, identifier, true)
}

func (s *Session) attach(ctx context.Context, identifier string, force bool) (*AttachResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identifier = strings.TrimSpace(identifier)

	if s.state == Owned && s.matchesOwned(identifier) {
		s.logger.Debug("attach is a no-op, already connected", "target", s.target)
		return &AttachResult{Status: StatusAlreadyConnected, Device: s.infoLocked()}, nil
	}

	addr, err := s.resolve(identifier)
	if s.state == Owned {
		if err != nil {
			return nil, fmt.Errorf("%w: connected to %s, release it before attaching to %q", ErrAlreadyOwnedElsewhere, s.target, identifier)
		}
		if addr == s.target {
			return &AttachResult{Status: StatusAlreadyConnected, Device: s.infoLocked()}, nil
		}
		return nil, fmt.Errorf("%w: connected to %s, release it before attaching to %s", ErrAlreadyOwnedElsewhere, s.target, addr)
	}
	if err != nil {
		return nil, err
	}

	if force {
		s.logger.Warn("forcing ownership takeover, any existing owner will be disconnected", "target", addr)
	}

	handle, err := s.connector.Connect(ctx, addr, force)
	if err != nil {
		if errors.Is(err, moku.ErrOwnedByAnotherClient) {
			s.logger.Warn("device owned by another client", "target", addr)
			return nil, fmt.Errorf("%w: %s is owned by another client: %w", ErrConnectionDenied, addr, err)
		}
		s.logger.Error("failed to connect", "target", addr, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, addr, err)
	}

	id, err := handle.Identity(ctx)
	if err != nil {
		if rerr := handle.Relinquish(ctx); rerr != nil {
			s.logger.Warn("relinquish after failed identity read", "target", addr, "error", rerr)
		}
		s.logger.Error("failed to read device identity", "target", addr, "error", err)
		return nil, fmt.Errorf("%w: reading identity from %s: %w", ErrConnectionFailed, addr, err)
	}

	platform, ok := model.LookupPlatform(id.Platform)
	if !ok {
		s.logger.Warn("unrecognised platform, slot queries disabled", "target", addr, "platform", id.Platform)
		platform = model.Platform{Name: id.Platform}
	}

	s.state = Owned
	s.target = addr
	s.force = force
	s.handle = handle
	s.identity = id
	s.platform = platform
	s.cached = nil
	s.connectedAt = s.now()

	if s.recorder != nil {
		host, port := splitAddr(addr)
		s.recorder.Upsert(host, id.Name, id.Serial, port)
	}

	s.logger.Info("device attached",
		"target", addr,
		"name", id.Name,
		"serial", id.Serial,
		"platform", platform.Name,
		"forced", force,
	)

	return &AttachResult{Status: StatusConnected, Device: s.infoLocked(), Forced: force}, nil
}

// resolve applies the identifier policy: resolver first, then a host-like
// literal, otherwise ErrUnknownDevice.
func (s *Session) resolve(identifier string) (string, error) {
	if identifier == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrUnknownDevice)
	}
	if addr, ok := s.resolver.Resolve(identifier); ok {
		return addr, nil
	}
	if device.IsHostLike(identifier) {
		return identifier, nil
	}
	return "", fmt.Errorf("%w: %q is not an address or a known name or serial", ErrUnknownDevice, identifier)
}

// matchesOwned reports whether identifier names the owned device directly.
func (s *Session) matchesOwned(identifier string) bool {
	if identifier == s.target {
		return true
	}
	return (s.identity.Name != "" && strings.EqualFold(identifier, s.identity.Name)) ||
		(s.identity.Serial != "" && strings.EqualFold(identifier, s.identity.Serial))
}

// Release relinquishes ownership. The session is Idle afterwards even when
// the relinquish call fails.
func (s *Session) Release(ctx context.Context) *ReleaseResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Owned {
		return &ReleaseResult{Status: StatusNotConnected}
	}

	target := s.target
	err := s.handle.Relinquish(ctx)

	s.state = Idle
	s.target = ""
	s.force = false
	s.handle = nil
	s.identity = moku.Identity{}
	s.platform = model.Platform{}
	s.cached = nil
	s.connectedAt = time.Time{}

	if err != nil {
		s.logger.Error("relinquish failed, session cleared anyway", "target", target, "error", err)
	} else {
		s.logger.Info("device released", "target", target)
	}

	return &ReleaseResult{Status: StatusDisconnected, Device: target, RelinquishErr: err}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Target returns the owned device address, or "" when Idle.
func (s *Session) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Handle returns the owned device handle.
func (s *Session) Handle() (moku.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Owned {
		return nil, ErrNotConnected
	}
	return s.handle, nil
}

// Platform returns the owned device's platform.
func (s *Session) Platform() (model.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Owned {
		return model.Platform{}, ErrNotConnected
	}
	return s.platform, nil
}

// Info returns the owned device's metadata.
func (s *Session) Info() (DeviceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Owned {
		return DeviceInfo{}, ErrNotConnected
	}
	return s.infoLocked(), nil
}

func (s *Session) infoLocked() DeviceInfo {
	return DeviceInfo{
		IP:        s.target,
		Name:      s.identity.Name,
		Serial:    s.identity.Serial,
		Platform:  s.platform.Name,
		Connected: s.state == Owned,
	}
}

// ConnectedAt returns when the current ownership began.
func (s *Session) ConnectedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedAt
}

// CachedConfig returns a copy of the last deployed config, or nil.
func (s *Session) CachedConfig() *model.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached.Clone()
}

// SetCachedConfig replaces the cached config with a copy of cfg.
// It is ignored when the session is Idle.
func (s *Session) SetCachedConfig(cfg *model.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Owned {
		return
	}
	s.cached = cfg.Clone()
}

// splitAddr separates an optional port from addr. A missing or invalid
// port is returned as 0.
func splitAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}
