package model

import (
	"fmt"
	"strings"
)

// RoutingError describes one structural routing problem.
//
// Edge is the index of the offending connection, or -1 when the problem is
// a slot number. Slot is set for slot-range problems.
type RoutingError struct {
	Edge       int         `json:"edge"`
	Connection *Connection `json:"connection,omitempty"`
	Slot       int         `json:"slot,omitempty"`
	Reason     string      `json:"reason"`
}

func (e RoutingError) Error() string {
	if e.Connection != nil {
		return fmt.Sprintf("routing[%d] %s -> %s: %s", e.Edge, e.Connection.Source, e.Connection.Destination, e.Reason)
	}
	return fmt.Sprintf("slot %d: %s", e.Slot, e.Reason)
}

// RoutingErrors is the error form of a failed routing validation.
// It unwraps to ErrInvalidRouting.
type RoutingErrors []RoutingError

func (e RoutingErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, re := range e {
		parts = append(parts, re.Error())
	}
	return fmt.Sprintf("%s: %s", ErrInvalidRouting, strings.Join(parts, "; "))
}

func (e RoutingErrors) Unwrap() error {
	return ErrInvalidRouting
}

// Channels returns the set of channel names available in the config: the
// platform's own channels plus those of every slot declared with an
// instrument. Nothing is queried from hardware.
func (c *Config) Channels() map[string]struct{} {
	set := make(map[string]struct{})
	for _, ch := range c.Platform.Channels() {
		set[ch] = struct{}{}
	}
	for n, slot := range c.Slots {
		if slot == nil || slot.Instrument == "" {
			continue
		}
		for _, ch := range c.Platform.SlotChannels(n) {
			set[ch] = struct{}{}
		}
	}
	return set
}

// ValidateRouting checks the config's routing structurally and returns one
// entry per problem. An empty result means the routing is valid.
//
// Checks:
//  1. every declared slot number lies in [1, platform.SlotCount]
//  2. no edge is a self-loop
//  3. every edge endpoint is a platform channel or a channel of a slot
//     declared with an instrument in the same config
func ValidateRouting(cfg *Config) []RoutingError {
	return validateRouting(cfg, cfg.Routing)
}

// ValidateConnections checks conns against the channels cfg declares, as if
// they replaced cfg's routing.
func ValidateConnections(cfg *Config, conns []Connection) []RoutingError {
	return validateRouting(cfg, conns)
}

// CheckRouting is ValidateRouting in error form.
func CheckRouting(cfg *Config) error {
	if errs := ValidateRouting(cfg); len(errs) > 0 {
		return RoutingErrors(errs)
	}
	return nil
}

func validateRouting(cfg *Config, conns []Connection) []RoutingError {
	var errs []RoutingError

	for _, n := range cfg.SortedSlots() {
		if n < 1 || n > cfg.Platform.SlotCount {
			errs = append(errs, RoutingError{
				Edge:   -1,
				Slot:   n,
				Reason: fmt.Sprintf("slot number out of range [1, %d] for %s", cfg.Platform.SlotCount, cfg.Platform.Name),
			})
		}
	}

	channels := cfg.Channels()
	for i, conn := range conns {
		edge := conn
		if conn.Source == conn.Destination {
			errs = append(errs, RoutingError{Edge: i, Connection: &edge, Reason: "self-loop: source and destination are the same channel"})
			continue
		}
		if _, ok := channels[conn.Source]; !ok {
			errs = append(errs, RoutingError{Edge: i, Connection: &edge, Reason: fmt.Sprintf("unknown source channel %q", conn.Source)})
		}
		if _, ok := channels[conn.Destination]; !ok {
			errs = append(errs, RoutingError{Edge: i, Connection: &edge, Reason: fmt.Sprintf("unknown destination channel %q", conn.Destination)})
		}
	}

	return errs
}
