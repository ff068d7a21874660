package model

import (
	"maps"
	"sort"
	"strings"
)

// Instrument identifies the instrument loaded into a slot.
type Instrument string

// Supported instruments.
const (
	CloudCompile               Instrument = "CloudCompile"
	Oscilloscope               Instrument = "Oscilloscope"
	WaveformGenerator          Instrument = "WaveformGenerator"
	ArbitraryWaveformGenerator Instrument = "ArbitraryWaveformGenerator"
	SpectrumAnalyzer           Instrument = "SpectrumAnalyzer"
	PIDController              Instrument = "PIDController"
	LockInAmp                  Instrument = "LockInAmp"
	Phasemeter                 Instrument = "Phasemeter"
	LaserLockBox               Instrument = "LaserLockBox"
	Datalogger                 Instrument = "Datalogger"
	DigitalFilterBox           Instrument = "DigitalFilterBox"
	FIRFilterBox               Instrument = "FIRFilterBox"
	FrequencyResponseAnalyzer  Instrument = "FrequencyResponseAnalyzer"
	LogicAnalyzer              Instrument = "LogicAnalyzer"
)

// AllInstruments returns every supported instrument.
func AllInstruments() []Instrument {
	return []Instrument{
		CloudCompile,
		Oscilloscope,
		WaveformGenerator,
		ArbitraryWaveformGenerator,
		SpectrumAnalyzer,
		PIDController,
		LockInAmp,
		Phasemeter,
		LaserLockBox,
		Datalogger,
		DigitalFilterBox,
		FIRFilterBox,
		FrequencyResponseAnalyzer,
		LogicAnalyzer,
	}
}

// Pre-computed lookup from lower-cased name to canonical instrument.
var instrumentsByName map[string]Instrument

func init() {
	instrumentsByName = make(map[string]Instrument, len(AllInstruments()))
	for _, i := range AllInstruments() {
		instrumentsByName[strings.ToLower(string(i))] = i
	}
}

// ParseInstrument returns the canonical spelling of name when it is a
// supported instrument (case-insensitive). Unknown names are returned as-is.
func ParseInstrument(name string) Instrument {
	name = strings.TrimSpace(name)
	if i, ok := instrumentsByName[strings.ToLower(name)]; ok {
		return i
	}
	return Instrument(name)
}

// Supported reports whether the instrument can be deployed.
func (i Instrument) Supported() bool {
	_, ok := instrumentsByName[strings.ToLower(string(i))]
	return ok
}

// Slot is the configuration of one instrument slot.
type Slot struct {
	Instrument       Instrument     `json:"instrument"`
	Bitstream        string         `json:"bitstream,omitempty"`
	ControlRegisters Registers      `json:"control_registers,omitempty"`
	Settings         map[string]any `json:"settings,omitempty"`
}

// Connection is a directed routing edge between two channels.
type Connection struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Config is a complete device configuration.
type Config struct {
	Platform Platform      `json:"platform"`
	Slots    map[int]*Slot `json:"slots"`
	Routing  []Connection  `json:"routing"`
}

// SortedSlots returns the declared slot numbers in ascending order.
func (c *Config) SortedSlots() []int {
	nums := make([]int, 0, len(c.Slots))
	for n := range c.Slots {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := &Config{
		Platform: c.Platform,
		Slots:    make(map[int]*Slot, len(c.Slots)),
		Routing:  append([]Connection{}, c.Routing...),
	}
	for n, s := range c.Slots {
		if s == nil {
			continue
		}
		cp := *s
		cp.ControlRegisters = append(Registers(nil), s.ControlRegisters...)
		if s.Settings != nil {
			cp.Settings = cloneSettings(s.Settings)
		}
		out.Slots[n] = &cp
	}
	return out
}

func cloneSettings(in map[string]any) map[string]any {
	out := maps.Clone(in)
	for k, v := range out {
		switch tv := v.(type) {
		case map[string]any:
			out[k] = cloneSettings(tv)
		case []any:
			out[k] = append([]any{}, tv...)
		}
	}
	return out
}
