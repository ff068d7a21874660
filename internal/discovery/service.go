package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/moku-core/internal/device"
	"github.com/nerrad567/moku-core/internal/infrastructure/config"
	"github.com/nerrad567/moku-core/internal/moku"
)

// Scan timeout bounds.
const (
	DefaultTimeout = 2 * time.Second
	MinTimeout     = 500 * time.Millisecond
	MaxTimeout     = 30 * time.Second

	foundBuffer = 16
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

// Recorder persists sightings.
type Recorder interface {
	Upsert(ip, name, serial string, port int) device.Record
}

// Result is the outcome of a Scan.
type Result struct {
	Devices  []device.Record `json:"devices"`
	Count    int             `json:"count"`
	Enriched int             `json:"enriched"`
	Timeout  time.Duration   `json:"-"`
	Duration time.Duration   `json:"-"`
}

// Service scans for devices and records them in the registry.
//
// Thread Safety: Scan may be called concurrently; each call browses
// independently.
type Service struct {
	browser   Browser
	describer moku.Describer
	recorder  Recorder
	logger    Logger

	service        string
	domain         string
	defaultTimeout time.Duration
	enrich         bool
}

// NewService creates a discovery service. describer may be nil, which
// disables enrichment.
func NewService(browser Browser, describer moku.Describer, recorder Recorder, cfg config.DiscoveryConfig) *Service {
	s := &Service{
		browser:        browser,
		describer:      describer,
		recorder:       recorder,
		logger:         noopLogger{},
		service:        cfg.Service,
		domain:         cfg.Domain,
		defaultTimeout: cfg.DefaultTimeout,
		enrich:         cfg.Enrich && describer != nil,
	}
	if s.service == "" {
		s.service = "_moku._tcp"
	}
	if s.domain == "" {
		s.domain = "local."
	}
	if s.defaultTimeout <= 0 {
		s.defaultTimeout = DefaultTimeout
	}
	return s
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// ClampTimeout applies the default and the [MinTimeout, MaxTimeout] bounds.
func (s *Service) ClampTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}
	return min(max(timeout, MinTimeout), MaxTimeout)
}

// Scan browses for the (clamped) timeout and returns every device sighted,
// sorted by IP. A browse that stops early still returns what it collected.
func (s *Service) Scan(ctx context.Context, timeout time.Duration) (*Result, error) {
	timeout = s.ClampTimeout(timeout)
	start := time.Now()

	sightings, err := s.browse(ctx, timeout)
	if err != nil {
		s.logger.Error("discovery browse failed", "service", s.service, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrBrowse, err)
	}

	enriched := 0
	if s.enrich {
		enriched = s.enrichAll(ctx, sightings, timeout)
	}

	res := &Result{Devices: make([]device.Record, 0, len(sightings)), Timeout: timeout}
	for _, sg := range sightings {
		rec := s.recorder.Upsert(sg.addr, sg.name, sg.serial, sg.port)
		res.Devices = append(res.Devices, rec)
	}
	sort.Slice(res.Devices, func(i, j int) bool {
		return res.Devices[i].IP < res.Devices[j].IP
	})
	res.Count = len(res.Devices)
	res.Enriched = enriched
	res.Duration = time.Since(start)

	s.logger.Info("discovery completed",
		"devices", res.Count,
		"enriched", enriched,
		"timeout", timeout,
		"duration", res.Duration,
	)
	return res, nil
}

// sighted is a deduplicated sighting keyed by address.
type sighted struct {
	addr, name, serial string
	port               int
}

// browse collects sightings until the timeout elapses.
func (s *Service) browse(ctx context.Context, timeout time.Duration) (map[string]*sighted, error) {
	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	found := make(chan Sighting, foundBuffer)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.browser.Browse(scanCtx, s.service, s.domain, found)
	}()

	out := make(map[string]*sighted)
	for sg := range found {
		addr := sg.Address()
		if addr == "" {
			s.logger.Debug("ignoring sighting without address", "instance", sg.Instance)
			continue
		}
		cur, ok := out[addr]
		if !ok {
			cur = &sighted{addr: addr}
			out[addr] = cur
		}
		if v := sg.Name(); v != "" {
			cur.name = v
		}
		if v := sg.Serial(); v != "" {
			cur.serial = v
		}
		if sg.Port > 0 {
			cur.port = sg.Port
		}
		s.logger.Debug("device sighted", "address", addr, "name", cur.name, "serial", cur.serial)
	}

	if err := <-errCh; err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return nil, err
	}
	return out, nil
}

// enrichAll fills in missing name or serial from a read-only summary of
// each device, in parallel. Failures leave the sighting as advertised.
func (s *Service) enrichAll(ctx context.Context, sightings map[string]*sighted, timeout time.Duration) int {
	enrichCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		count int
	)
	for _, sg := range sightings {
		if sg.serial != "" && sg.name != "" {
			continue
		}
		wg.Add(1)
		go func(sg *sighted) {
			defer wg.Done()
			id, err := s.describer.Describe(enrichCtx, sg.addr)
			if err != nil {
				s.logger.Debug("enrichment failed", "address", sg.addr, "error", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if id.Name != "" {
				sg.name = id.Name
			}
			if id.Serial != "" && sg.serial == "" {
				sg.serial = id.Serial
			}
			count++
		}(sg)
	}
	wg.Wait()
	return count
}
