package events

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Bus tuning.
const (
	DefaultBuffer = 256

	// sinkTimeout bounds one sink delivery.
	sinkTimeout = 5 * time.Second
)

// Logger defines the logging interface used by the Bus.
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

// Sink receives events.
type Sink interface {
	Name() string
	Handle(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, e Event) error
}

// Name implements Sink.
func (f SinkFunc) Name() string { return f.SinkName }

// Handle implements Sink.
func (f SinkFunc) Handle(ctx context.Context, e Event) error { return f.Fn(ctx, e) }

// Bus delivers events to sinks asynchronously, in publish order.
//
// Thread Safety: Publish and AddSink are safe for concurrent use.
type Bus struct {
	ch     chan Event
	done   chan struct{}
	logger Logger

	mu      sync.RWMutex
	sinks   []Sink
	closed  bool
	started bool
}

// NewBus creates a bus. buffer <= 0 uses DefaultBuffer.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		ch:     make(chan Event, buffer),
		done:   make(chan struct{}),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the bus.
func (b *Bus) SetLogger(logger Logger) {
	b.logger = logger
}

// AddSink registers a sink for all future events.
func (b *Bus) AddSink(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Start launches the delivery worker. It is a no-op after the first call.
func (b *Bus) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started || b.closed {
		return
	}
	b.started = true
	go b.run()
}

// Publish enqueues e. When the buffer is full the event is dropped with a
// warning rather than blocking the publisher.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.ch <- e:
	default:
		b.logger.Warn("event buffer full, dropping event", "type", e.Type, "device", e.Device)
	}
}

// Close stops accepting events, delivers those already queued, and waits
// for the worker to finish.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	started := b.started
	close(b.ch)
	b.mu.Unlock()

	if started {
		<-b.done
	}
}

func (b *Bus) run() {
	defer close(b.done)
	for e := range b.ch {
		b.deliver(e)
	}
}

func (b *Bus) deliver(e Event) {
	b.mu.RLock()
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.RUnlock()

	for _, s := range sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		err := safeHandle(ctx, s, e)
		cancel()
		if err != nil {
			b.logger.Warn("event sink failed", "sink", s.Name(), "type", e.Type, "error", err)
		}
	}
	b.logger.Debug("event delivered", "type", e.Type, "device", e.Device, "sinks", len(sinks))
}

// safeHandle converts a sink panic into an error.
func safeHandle(ctx context.Context, s Sink, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return s.Handle(ctx, e)
}
