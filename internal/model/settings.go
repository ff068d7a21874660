package model

import (
	"encoding/json"
	"errors"
)

// SettingTimebase is the oscilloscope timebase setting key.
const SettingTimebase = "timebase"

// Timebase returns the [t1, t2] timebase window from the slot settings.
// ok is false when the setting is absent.
func (s *Slot) Timebase() (t1, t2 float64, ok bool, err error) {
	raw, present := s.Settings[SettingTimebase]
	if !present || raw == nil {
		return 0, 0, false, nil
	}

	pair, isList := raw.([]any)
	if !isList || len(pair) != 2 {
		return 0, 0, false, errors.New("must be a two-element [start, end] array")
	}
	t1, ok1 := toFloat(pair[0])
	t2, ok2 := toFloat(pair[1])
	if !ok1 || !ok2 {
		return 0, 0, false, errors.New("entries must be numbers")
	}
	if t1 >= t2 {
		return 0, 0, false, errors.New("start must be before end")
	}
	return t1, t2, true, nil
}

func toFloat(v any) (float64, bool) {
	switch tv := v.(type) {
	case float64:
		return tv, true
	case int:
		return float64(tv), true
	case json.Number:
		f, err := tv.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
