package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Register is a single control-register write.
type Register struct {
	Address uint32 `json:"register"`
	Value   uint32 `json:"value"`
}

// Registers is an ordered list of register writes. Order is significant:
// some registers gate others, so writes are applied exactly as listed.
//
// JSON accepts either an object ({"0": 1, "4": 255}, key order preserved)
// or an array ([{"register": 0, "value": 1}]).
type Registers []Register

// MarshalJSON always encodes the array form. Object keys lose their order
// once decoded into a map, so an object written here could come back
// reordered.
func (r Registers) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Register(r))
}

// UnmarshalJSON decodes either accepted form.
func (r *Registers) UnmarshalJSON(data []byte) error {
	regs, err := decodeRegisters(data)
	if err != nil {
		return err
	}
	*r = regs
	return nil
}

func decodeRegisters(data []byte) (Registers, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '{':
		return decodeRegisterObject(trimmed)
	case '[':
		return decodeRegisterArray(trimmed)
	default:
		return nil, errors.New("must be an object or an array")
	}
}

// decodeRegisterObject walks the object token by token so key order survives.
func decodeRegisterObject(data []byte) (Registers, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var out Registers
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		addr, err := parseAddress(key)
		if err != nil {
			return nil, err
		}

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		val, err := parseRegisterValue(raw)
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", key, err)
		}
		out = append(out, Register{Address: addr, Value: val})
	}
	return out, nil
}

func decodeRegisterArray(data []byte) (Registers, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var items []map[string]any
	if err := dec.Decode(&items); err != nil {
		return nil, errors.New("array entries must be {\"register\": n, \"value\": v} objects")
	}
	return registersFromList(items)
}

func registersFromList(items []map[string]any) (Registers, error) {
	out := make(Registers, 0, len(items))
	for i, item := range items {
		rawAddr, ok := item["register"]
		if !ok {
			return nil, fmt.Errorf("entry %d: register is required", i)
		}
		addr, err := parseAddress(rawAddr)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		rawVal, ok := item["value"]
		if !ok {
			return nil, fmt.Errorf("entry %d: value is required", i)
		}
		val, err := parseRegisterValue(rawVal)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, Register{Address: addr, Value: val})
	}
	return out, nil
}

func parseAddress(v any) (uint32, error) {
	n, err := toUint32(v)
	if err != nil {
		return 0, fmt.Errorf("register address %v: must be a non-negative integer", v)
	}
	return n, nil
}

func parseRegisterValue(v any) (uint32, error) {
	n, err := toUint32(v)
	if err != nil {
		return 0, fmt.Errorf("value %v: must be an unsigned 32-bit integer", v)
	}
	return n, nil
}

// toUint32 accepts JSON numbers, float64 (from decoded maps), Go integers
// and decimal or 0x-prefixed strings.
func toUint32(v any) (uint32, error) {
	switch tv := v.(type) {
	case json.Number:
		return parseUintString(tv.String())
	case string:
		return parseUintString(tv)
	case float64:
		if tv < 0 || tv > math.MaxUint32 || tv != math.Trunc(tv) {
			return 0, errors.New("out of range")
		}
		return uint32(tv), nil
	case int:
		if tv < 0 || uint64(tv) > math.MaxUint32 {
			return 0, errors.New("out of range")
		}
		return uint32(tv), nil
	case int64:
		if tv < 0 || tv > math.MaxUint32 {
			return 0, errors.New("out of range")
		}
		return uint32(tv), nil
	case uint32:
		return tv, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func parseUintString(s string) (uint32, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}
