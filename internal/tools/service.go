package tools

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/nerrad567/moku-core/internal/deploy"
	"github.com/nerrad567/moku-core/internal/device"
	"github.com/nerrad567/moku-core/internal/discovery"
	"github.com/nerrad567/moku-core/internal/events"
	"github.com/nerrad567/moku-core/internal/model"
	"github.com/nerrad567/moku-core/internal/session"
)

// Logger defines the logging interface used by the Service.
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

// Scanner finds devices on the network.
type Scanner interface {
	Scan(ctx context.Context, timeout time.Duration) (*discovery.Result, error)
}

// Publisher receives tool outcome events.
type Publisher interface {
	Publish(e events.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(events.Event) {}

// Sources recorded on events.
const (
	SourceMCP = "mcp"
	SourceAPI = "api"
)

type sourceKey struct{}

// WithSource tags ctx with the transport a call arrived on.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok {
		return s
	}
	return SourceMCP
}

// Result statuses beyond those of the session and deploy packages.
const (
	StatusConfigured = "configured"
)

// DiscoverResult is the result of discover_mokus.
type DiscoverResult struct {
	Devices []device.Record `json:"devices"`
	Count   int             `json:"count"`
}

// ReleaseResult is the result of release_moku. Warning is set when the
// device did not acknowledge the release; local state is cleared anyway.
type ReleaseResult struct {
	Status  string `json:"status"`
	Device  string `json:"device,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// PushResult is the result of push_config.
type PushResult struct {
	Status            deploy.Status       `json:"status"`
	SlotsConfigured   []int               `json:"slots_configured"`
	SlotsSkipped      []int               `json:"slots_skipped,omitempty"`
	RoutingConfigured bool                `json:"routing_configured"`
	DeploymentID      string              `json:"deployment_id"`
	Slots             []deploy.SlotResult `json:"slots"`
	Message           string              `json:"message,omitempty"`
	Suggestion        string              `json:"suggestion,omitempty"`
	Details           string              `json:"details,omitempty"`
}

// ConfigResult is the result of get_config. Source tells whether the
// config came from this server's last deployment or from live slot
// queries, in which case routing is always empty.
type ConfigResult struct {
	*model.Config
	Source string         `json:"source"`
	Notes  map[int]string `json:"notes,omitempty"`
}

// RoutingResult is the result of set_routing.
type RoutingResult struct {
	Status           string `json:"status"`
	ConnectionsCount int    `json:"connections_count"`
}

// SlotsResult is the result of list_slots.
type SlotsResult struct {
	Slots map[int]deploy.SlotStatus `json:"slots"`
}

type handlerFunc func(ctx context.Context, args Args) (any, error)

// Service runs tools against the ownership session.
//
// Thread Safety: Call is safe for concurrent use. Calls are serialised so
// only one tool touches the device at a time, in arrival order.
type Service struct {
	session   *session.Session
	engine    *deploy.Engine
	scanner   Scanner
	publisher Publisher
	logger    Logger
	handlers  map[string]handlerFunc

	mu sync.Mutex
}

// NewService creates a tool service.
func NewService(sess *session.Session, engine *deploy.Engine, scanner Scanner) *Service {
	s := &Service{
		session:   sess,
		engine:    engine,
		scanner:   scanner,
		publisher: noopPublisher{},
		logger:    noopLogger{},
	}
	s.handlers = map[string]handlerFunc{
		NameDiscover:      s.discover,
		NameAttach:        s.attach,
		NameRelease:       s.release,
		NamePushConfig:    s.pushConfig,
		NameGetConfig:     s.getConfig,
		NameSetRouting:    s.setRouting,
		NameGetDeviceInfo: s.getDeviceInfo,
		NameListSlots:     s.listSlots,
	}
	return s
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetPublisher sets where tool outcome events are sent.
func (s *Service) SetPublisher(p Publisher) {
	if p == nil {
		p = noopPublisher{}
	}
	s.publisher = p
}

// Call runs the named tool. The result is always JSON-serialisable; on
// failure it is an *ErrorResult.
func (s *Service) Call(ctx context.Context, name string, args map[string]any) (result any) {
	def, ok := Lookup(name)
	if !ok {
		s.logger.Warn("unknown tool called", "tool", name)
		return unknownTool(name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool panicked", "tool", name, "panic", r)
			result = &ErrorResult{Status: StatusError, Message: fmt.Sprint(r), Tool: name}
		}
	}()

	s.logger.Info("tool called", "tool", name, "args", slices.Sorted(maps.Keys(args)), "source", sourceFrom(ctx))

	if def.NeedsDevice {
		if _, err := s.session.Handle(); err != nil {
			return errorResult(name, err)
		}
	}

	out, err := s.handlers[name](ctx, Args(args))
	if err != nil {
		s.logger.Warn("tool failed", "tool", name, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return errorResult(name, err)
	}
	s.logger.Debug("tool finished", "tool", name, "duration_ms", time.Since(start).Milliseconds())
	return out
}

func (s *Service) publish(ctx context.Context, t events.Type, dev string, payload map[string]any) {
	e := events.New(t, dev, payload)
	e.Source = sourceFrom(ctx)
	s.publisher.Publish(e)
}

func (s *Service) discover(ctx context.Context, args Args) (any, error) {
	secs, err := args.Number("timeout", 0)
	if err != nil {
		return nil, err
	}
	if secs < 0 {
		return nil, fmt.Errorf("%w: timeout must not be negative", ErrInvalidArgument)
	}

	res, err := s.scanner.Scan(ctx, time.Duration(secs*float64(time.Second)))
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.DiscoveryCompleted, "", map[string]any{
		events.KeyDevices:    res.Count,
		events.KeyEnriched:   res.Enriched,
		events.KeyDurationMS: res.Duration.Milliseconds(),
	})

	devices := res.Devices
	if devices == nil {
		devices = []device.Record{}
	}
	return &DiscoverResult{Devices: devices, Count: res.Count}, nil
}

func (s *Service) attach(ctx context.Context, args Args) (any, error) {
	id, err := args.String("device_id")
	if err != nil {
		return nil, err
	}
	force, err := args.Bool("force", false)
	if err != nil {
		return nil, err
	}

	var res *session.AttachResult
	if force {
		res, err = s.session.Takeover(ctx, id)
	} else {
		res, err = s.session.Attach(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	if res.Status == session.StatusConnected {
		s.publish(ctx, events.SessionAttached, res.Device.IP, map[string]any{
			events.KeyStatus:   res.Status,
			events.KeyPlatform: res.Device.Platform,
			events.KeyName:     res.Device.Name,
			events.KeySerial:   res.Device.Serial,
			events.KeyForced:   res.Forced,
		})
	}
	return res, nil
}

func (s *Service) release(ctx context.Context, _ Args) (any, error) {
	res := s.session.Release(ctx)
	out := &ReleaseResult{Status: res.Status, Device: res.Device}
	if res.Status != session.StatusDisconnected {
		return out, nil
	}

	payload := map[string]any{events.KeyStatus: res.Status}
	if res.RelinquishErr != nil {
		out.Warning = "device did not acknowledge the release: " + res.RelinquishErr.Error()
		payload[events.KeyError] = res.RelinquishErr.Error()
	}
	s.publish(ctx, events.SessionReleased, res.Device, payload)
	return out, nil
}

func (s *Service) pushConfig(ctx context.Context, args Args) (any, error) {
	raw, err := args.Object("config_dict")
	if err != nil {
		return nil, err
	}
	cfg, err := model.FromMap(raw)
	if err != nil {
		return nil, err
	}

	report, err := s.engine.Deploy(ctx, s.session, cfg)
	if err != nil {
		return nil, err
	}

	connections := 0
	if report.RoutingConfigured {
		connections = len(cfg.Routing)
	}
	payload := map[string]any{
		events.KeyStatus:      string(report.Status),
		events.KeyPlatform:    report.Platform,
		events.KeyDeployed:    report.SlotsConfigured(),
		events.KeySkipped:     report.SlotsWith(deploy.OutcomeSkipped),
		events.KeyFailed:      report.SlotsWith(deploy.OutcomeFailed),
		events.KeyConnections: connections,
		events.KeyDeployment:  report.ID,
		events.KeyDurationMS:  report.Duration().Milliseconds(),
	}
	if report.Error != "" {
		payload[events.KeyError] = report.Error
	}
	s.publish(ctx, events.DeployCompleted, report.Device, payload)

	out := &PushResult{
		Status:            report.Status,
		SlotsConfigured:   report.SlotsConfigured(),
		SlotsSkipped:      report.SlotsWith(deploy.OutcomeSkipped),
		RoutingConfigured: report.RoutingConfigured,
		DeploymentID:      report.ID,
		Slots:             report.Slots,
	}
	if len(out.SlotsSkipped) == 0 {
		out.SlotsSkipped = nil
	}
	if rerr := report.Err(); rerr != nil {
		env := errorResult(NamePushConfig, rerr)
		out.Message, out.Suggestion, out.Details = env.Message, env.Suggestion, env.Details
		if report.Status == deploy.StatusPartialSuccess {
			out.Message = "Instruments deployed but routing was not applied"
			out.Suggestion = "Check the routing edges and retry with set_routing"
		}
	}
	return out, nil
}

func (s *Service) getConfig(ctx context.Context, _ Args) (any, error) {
	eff, err := s.engine.EffectiveConfig(ctx, s.session)
	if err != nil {
		return nil, err
	}
	return &ConfigResult{Config: eff.Config, Source: eff.Source, Notes: eff.Notes}, nil
}

func (s *Service) setRouting(ctx context.Context, args Args) (any, error) {
	items, err := args.List("connections")
	if err != nil {
		return nil, err
	}
	conns, err := model.ConnectionsFromList(items)
	if err != nil {
		// Malformed edges are a routing problem, not a config problem.
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidRouting, err)
	}

	n, err := s.engine.ApplyRouting(ctx, s.session, conns)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.RoutingConfigured, s.session.Target(), map[string]any{
		events.KeyConnections: n,
	})
	return &RoutingResult{Status: StatusConfigured, ConnectionsCount: n}, nil
}

func (s *Service) getDeviceInfo(_ context.Context, _ Args) (any, error) {
	info, err := s.session.Info()
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *Service) listSlots(ctx context.Context, _ Args) (any, error) {
	slots, err := s.engine.ListSlots(ctx, s.session)
	if err != nil {
		return nil, err
	}
	return &SlotsResult{Slots: slots}, nil
}
