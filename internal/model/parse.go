package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FieldError is a single schema problem.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// SchemaError collects every schema problem found in a configuration.
// It unwraps to ErrInvalidConfig.
type SchemaError struct {
	Problems []FieldError
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		if p.Field == "" {
			parts = append(parts, p.Reason)
			continue
		}
		parts = append(parts, p.Field+": "+p.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(parts, "; "))
}

func (e *SchemaError) Unwrap() error {
	return ErrInvalidConfig
}

func (e *SchemaError) add(field, format string, args ...any) {
	e.Problems = append(e.Problems, FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
}

func (e *SchemaError) err() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// Parse decodes and schema-checks a JSON configuration document.
//
// Expected shape:
//
//	{
//	  "platform": "Moku:Go" | {"name": "...", "slot_count": 2, ...},
//	  "slots": {"1": {"instrument": "Oscilloscope", "settings": {...}}},
//	  "routing": [{"source": "Input1", "destination": "Slot1InA"}]
//	}
func Parse(data []byte) (*Config, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		se := &SchemaError{}
		se.add("", "config must be a JSON object")
		return nil, se
	}

	se := &SchemaError{}
	cfg := &Config{Slots: make(map[int]*Slot)}

	if raw, ok := top["platform"]; ok && !isNull(raw) {
		if p, ok := decodePlatform(raw, se); ok {
			cfg.Platform = p
		}
	} else {
		se.add("platform", "required")
	}

	if raw, ok := top["slots"]; ok && !isNull(raw) {
		var slots map[string]json.RawMessage
		if err := json.Unmarshal(raw, &slots); err != nil {
			se.add("slots", "must be an object keyed by slot number")
		}
		keys := make([]string, 0, len(slots))
		for key := range slots {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		seen := make(map[int]string, len(keys))
		for _, key := range keys {
			n, err := strconv.Atoi(strings.TrimSpace(key))
			if err != nil {
				se.add("slots."+key, "slot key must be an integer")
				continue
			}
			if prev, dup := seen[n]; dup {
				se.add("slots."+key, "duplicates slot %d already declared as %q", n, prev)
				continue
			}
			seen[n] = key
			if slot := decodeSlot("slots."+key, slots[key], se); slot != nil {
				cfg.Slots[n] = slot
			}
		}
	}

	if raw, ok := top["routing"]; ok && !isNull(raw) {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			se.add("routing", "must be an array of connections")
		}
		for i, item := range items {
			if conn, ok := decodeConnection(fmt.Sprintf("routing[%d]", i), item, se); ok {
				cfg.Routing = append(cfg.Routing, conn)
			}
		}
	}

	if err := se.err(); err != nil {
		sortProblems(se)
		return nil, err
	}
	return cfg, nil
}

// FromMap schema-checks a configuration already decoded into a generic map,
// as tool arguments are.
//
// Object-form control registers in a generic map have lost their key
// order; they are applied in ascending register order. Use the array form
// to control write order through this path.
func FromMap(m map[string]any) (*Config, error) {
	if m == nil {
		se := &SchemaError{}
		se.add("", "config must be a JSON object")
		return nil, se
	}
	normalised := normaliseRegisterMaps(m)
	data, err := json.Marshal(normalised)
	if err != nil {
		se := &SchemaError{}
		se.add("", "config is not JSON-encodable: %v", err)
		return nil, se
	}
	return Parse(data)
}

// ConnectionsFromList schema-checks a generic list of routing edges.
func ConnectionsFromList(items []any) ([]Connection, error) {
	se := &SchemaError{}
	out := make([]Connection, 0, len(items))
	for i, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			se.add(fmt.Sprintf("connections[%d]", i), "not JSON-encodable")
			continue
		}
		if conn, ok := decodeConnection(fmt.Sprintf("connections[%d]", i), raw, se); ok {
			out = append(out, conn)
		}
	}
	if err := se.err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Strict applies the optional checks that deployment otherwise handles
// leniently: every instrument supported and every CloudCompile slot
// carrying a bitstream.
func (c *Config) Strict() error {
	se := &SchemaError{}
	c.checkInstruments(se)
	for _, n := range c.SortedSlots() {
		slot := c.Slots[n]
		if slot.Instrument == CloudCompile && slot.Bitstream == "" {
			se.add(fmt.Sprintf("slots.%d.bitstream", n), "required for CloudCompile")
		}
	}
	return se.err()
}

// CheckInstruments rejects slots whose instrument is not supported.
func (c *Config) CheckInstruments() error {
	se := &SchemaError{}
	c.checkInstruments(se)
	return se.err()
}

func (c *Config) checkInstruments(se *SchemaError) {
	for _, n := range c.SortedSlots() {
		if inst := c.Slots[n].Instrument; !inst.Supported() {
			se.add(fmt.Sprintf("slots.%d.instrument", n), "unsupported instrument %q", inst)
		}
	}
}

func decodePlatform(raw json.RawMessage, se *SchemaError) (Platform, bool) {
	var p Platform
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		p.Name = name
	} else if err := json.Unmarshal(raw, &p); err != nil {
		se.add("platform", "must be a platform name or object")
		return Platform{}, false
	}

	if strings.TrimSpace(p.Name) == "" {
		se.add("platform.name", "required")
		return Platform{}, false
	}
	if p.SlotCount < 0 || p.Inputs < 0 || p.Outputs < 0 || p.SlotPorts < 0 {
		se.add("platform", "counts must be non-negative")
		return Platform{}, false
	}

	resolved, err := ResolvePlatform(p)
	if err != nil {
		se.add("platform", "%v", err)
		return Platform{}, false
	}
	return resolved, true
}

func decodeSlot(field string, raw json.RawMessage, se *SchemaError) *Slot {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		se.add(field, "must be an object")
		return nil
	}

	slot := &Slot{}
	valid := true

	var name string
	if rawName, ok := fields["instrument"]; !ok || json.Unmarshal(rawName, &name) != nil || strings.TrimSpace(name) == "" {
		se.add(field+".instrument", "required")
		valid = false
	} else {
		slot.Instrument = ParseInstrument(name)
	}

	if rawBits, ok := fields["bitstream"]; ok && !isNull(rawBits) {
		if err := json.Unmarshal(rawBits, &slot.Bitstream); err != nil {
			se.add(field+".bitstream", "must be a string")
			valid = false
		}
	}

	if rawRegs, ok := fields["control_registers"]; ok {
		regs, err := decodeRegisters(rawRegs)
		if err != nil {
			se.add(field+".control_registers", "%v", err)
			valid = false
		}
		slot.ControlRegisters = regs
	}

	if rawSettings, ok := fields["settings"]; ok && !isNull(rawSettings) {
		if err := json.Unmarshal(rawSettings, &slot.Settings); err != nil {
			se.add(field+".settings", "must be an object")
			valid = false
		}
	}

	if slot.Instrument == Oscilloscope {
		if _, _, _, err := slot.Timebase(); err != nil {
			se.add(field+".settings.timebase", "%v", err)
			valid = false
		}
	}

	if !valid {
		return nil
	}
	return slot
}

func decodeConnection(field string, raw json.RawMessage, se *SchemaError) (Connection, bool) {
	var c Connection
	if err := json.Unmarshal(raw, &c); err != nil {
		se.add(field, "must be an object with source and destination")
		return Connection{}, false
	}
	ok := true
	if strings.TrimSpace(c.Source) == "" {
		se.add(field+".source", "required")
		ok = false
	}
	if strings.TrimSpace(c.Destination) == "" {
		se.add(field+".destination", "required")
		ok = false
	}
	return c, ok
}

// normaliseRegisterMaps rewrites object-form control registers into the
// array form, ordered by register number.
func normaliseRegisterMaps(m map[string]any) map[string]any {
	slots, ok := m["slots"].(map[string]any)
	if !ok {
		return m
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	newSlots := make(map[string]any, len(slots))
	for key, v := range slots {
		slot, ok := v.(map[string]any)
		if !ok {
			newSlots[key] = v
			continue
		}
		regs, ok := slot["control_registers"].(map[string]any)
		if !ok {
			newSlots[key] = slot
			continue
		}
		list, ok := sortedRegisterList(regs)
		if !ok {
			newSlots[key] = slot
			continue
		}
		cp := make(map[string]any, len(slot))
		for k, v := range slot {
			cp[k] = v
		}
		cp["control_registers"] = list
		newSlots[key] = cp
	}
	out["slots"] = newSlots
	return out
}

func sortedRegisterList(regs map[string]any) ([]map[string]any, bool) {
	type entry struct {
		addr uint32
		key  string
	}
	entries := make([]entry, 0, len(regs))
	for k := range regs {
		addr, err := parseAddress(k)
		if err != nil {
			return nil, false
		}
		entries = append(entries, entry{addr: addr, key: k})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].addr < entries[j].addr })

	list := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		list = append(list, map[string]any{"register": e.addr, "value": regs[e.key]})
	}
	return list, true
}

func sortProblems(se *SchemaError) {
	sort.SliceStable(se.Problems, func(i, j int) bool {
		return se.Problems[i].Field < se.Problems[j].Field
	})
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
