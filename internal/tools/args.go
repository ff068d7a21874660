package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Args are the decoded arguments of one tool call.
type Args map[string]any

// String returns a required string argument.
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidArgument, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidArgument, key)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: %s must not be empty", ErrInvalidArgument, key)
	}
	return s, nil
}

// Bool returns an optional boolean argument. The strings "true" and
// "false" are accepted.
func (a Args) Bool(key string, def bool) (bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("%w: %s must be a boolean", ErrInvalidArgument, key)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("%w: %s must be a boolean", ErrInvalidArgument, key)
	}
}

// Number returns an optional numeric argument.
func (a Args) Number(key string, def float64) (float64, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidArgument, key)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidArgument, key)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidArgument, key)
	}
}

// Object returns a required object argument. A string holding a JSON
// object is decoded, since some clients send nested objects that way.
func (a Args) Object(key string) (map[string]any, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s is required", ErrInvalidArgument, key)
	}
	switch o := v.(type) {
	case map[string]any:
		return o, nil
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(o), &m); err != nil || m == nil {
			return nil, fmt.Errorf("%w: %s must be a JSON object", ErrInvalidArgument, key)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an object", ErrInvalidArgument, key)
	}
}

// List returns a required array argument. A string holding a JSON array
// is decoded.
func (a Args) List(key string) ([]any, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s is required", ErrInvalidArgument, key)
	}
	switch l := v.(type) {
	case []any:
		return l, nil
	case []map[string]any:
		out := make([]any, len(l))
		for i, item := range l {
			out[i] = item
		}
		return out, nil
	case string:
		var items []any
		if err := json.Unmarshal([]byte(l), &items); err != nil {
			return nil, fmt.Errorf("%w: %s must be a JSON array", ErrInvalidArgument, key)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an array", ErrInvalidArgument, key)
	}
}
