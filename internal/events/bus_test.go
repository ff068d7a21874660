package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingSink collects events; fail makes every Handle return an error.
type recordingSink struct {
	mu     sync.Mutex
	name   string
	events []Event
	fail   error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Handle(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.fail
}

func (s *recordingSink) types() []Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Type, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type warnCounter struct {
	noopLogger
	mu    sync.Mutex
	warns int
}

func (l *warnCounter) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}

func TestBus_DeliversInOrderToAllSinks(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	bus := NewBus(0)
	bus.AddSink(a)
	bus.AddSink(b)
	bus.Start()

	bus.Publish(New(SessionAttached, "10.0.0.2", nil))
	bus.Publish(New(DeployCompleted, "10.0.0.2", nil))
	bus.Publish(New(SessionReleased, "10.0.0.2", nil))
	bus.Close()

	want := []Type{SessionAttached, DeployCompleted, SessionReleased}
	for _, s := range []*recordingSink{a, b} {
		got := s.types()
		if len(got) != len(want) {
			t.Fatalf("sink %s got %v", s.name, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("sink %s event %d = %q, want %q", s.name, i, got[i], want[i])
			}
		}
	}
}

func TestBus_SinkFailureIsIsolated(t *testing.T) {
	failing := &recordingSink{name: "failing", fail: errors.New("broker down")}
	panicking := SinkFunc{SinkName: "panicking", Fn: func(context.Context, Event) error { panic("boom") }}
	healthy := &recordingSink{name: "healthy"}
	logger := &warnCounter{}

	bus := NewBus(4)
	bus.SetLogger(logger)
	bus.AddSink(failing)
	bus.AddSink(panicking)
	bus.AddSink(healthy)
	bus.Start()

	bus.Publish(New(RoutingConfigured, "10.0.0.2", nil))
	bus.Close()

	if len(healthy.types()) != 1 {
		t.Errorf("healthy sink got %d events, want 1", len(healthy.types()))
	}
	if logger.warns != 2 {
		t.Errorf("warnings = %d, want 2", logger.warns)
	}
}

func TestBus_PublishAfterCloseIsDropped(t *testing.T) {
	s := &recordingSink{name: "s"}
	bus := NewBus(1)
	bus.AddSink(s)
	bus.Start()
	bus.Close()
	bus.Close()

	bus.Publish(New(SessionAttached, "x", nil))
	if len(s.types()) != 0 {
		t.Errorf("events after close = %v", s.types())
	}
}

func TestBus_FullBufferDrops(t *testing.T) {
	logger := &warnCounter{}
	bus := NewBus(1)
	bus.SetLogger(logger)

	// Not started: the second publish finds the buffer full.
	bus.Publish(New(SessionAttached, "x", nil))
	bus.Publish(New(SessionReleased, "x", nil))
	if logger.warns != 1 {
		t.Errorf("warnings = %d, want 1", logger.warns)
	}
	bus.Close()
}

func TestEventAccessors(t *testing.T) {
	e := New(DeployCompleted, "10.0.0.2", map[string]any{
		KeyDeployed:   []int{1, 2},
		KeySkipped:    1,
		KeyDurationMS: float64(1500),
		KeyStatus:     "deployed",
		KeyForced:     true,
	})
	if e.ID == "" || time.Since(e.Timestamp) > time.Minute {
		t.Errorf("New() = %+v", e)
	}
	if e.Int(KeyDeployed) != 2 || e.Int(KeySkipped) != 1 || e.Int(KeyDurationMS) != 1500 || e.Int("missing") != 0 {
		t.Error("Int() accessors wrong")
	}
	if e.String(KeyStatus) != "deployed" || e.String("missing") != "" || !e.Bool(KeyForced) {
		t.Error("String()/Bool() accessors wrong")
	}
}

func TestTypeValid(t *testing.T) {
	tests := []struct {
		typ  Type
		want bool
	}{
		{SessionAttached, true},
		{SessionReleased, true},
		{DeployCompleted, true},
		{RoutingConfigured, true},
		{DiscoveryCompleted, true},
		{"deploy.started", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.typ.Valid(); got != tt.want {
			t.Errorf("Type(%q).Valid() = %v, want %v", tt.typ, got, tt.want)
		}
	}
}
