package model

import (
	"fmt"
	"strings"
)

// Platform describes the I/O capability of a Moku hardware model.
type Platform struct {
	Name      string `json:"name"`
	SlotCount int    `json:"slot_count"`
	Inputs    int    `json:"inputs"`
	Outputs   int    `json:"outputs"`
	SlotPorts int    `json:"slot_ports"`
	DIO       bool   `json:"dio"`
}

// Known platforms.
var (
	MokuGo    = Platform{Name: "Moku:Go", SlotCount: 2, Inputs: 2, Outputs: 2, SlotPorts: 2, DIO: true}
	MokuLab   = Platform{Name: "Moku:Lab", SlotCount: 2, Inputs: 2, Outputs: 2, SlotPorts: 2}
	MokuPro   = Platform{Name: "Moku:Pro", SlotCount: 4, Inputs: 4, Outputs: 4, SlotPorts: 4}
	MokuDelta = Platform{Name: "Moku:Delta", SlotCount: 8, Inputs: 8, Outputs: 8, SlotPorts: 4}
)

var knownPlatforms = map[string]Platform{
	"go":    MokuGo,
	"lab":   MokuLab,
	"pro":   MokuPro,
	"delta": MokuDelta,
}

// platformKey normalises "Moku:Go", "moku_go", "Go" and similar to "go".
func platformKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "moku")
	return strings.TrimLeft(key, ":_- ")
}

// LookupPlatform returns the known platform for name.
func LookupPlatform(name string) (Platform, bool) {
	p, ok := knownPlatforms[platformKey(name)]
	return p, ok
}

// ResolvePlatform fills in defaults for a known platform name. Non-zero
// fields already set on p take precedence. An unknown name must carry an
// explicit slot count.
func ResolvePlatform(p Platform) (Platform, error) {
	known, ok := LookupPlatform(p.Name)
	if !ok {
		if p.SlotCount <= 0 {
			return Platform{}, fmt.Errorf("%w: %q (set slot_count explicitly)", ErrUnknownPlatform, p.Name)
		}
		return p, nil
	}

	out := known
	if p.SlotCount > 0 {
		out.SlotCount = p.SlotCount
	}
	if p.Inputs > 0 {
		out.Inputs = p.Inputs
	}
	if p.Outputs > 0 {
		out.Outputs = p.Outputs
	}
	if p.SlotPorts > 0 {
		out.SlotPorts = p.SlotPorts
	}
	if p.DIO {
		out.DIO = true
	}
	return out, nil
}

// Channels returns the channel names the platform itself exposes.
func (p Platform) Channels() []string {
	out := make([]string, 0, p.Inputs+p.Outputs+1)
	for i := 1; i <= p.Inputs; i++ {
		out = append(out, fmt.Sprintf("Input%d", i))
	}
	for i := 1; i <= p.Outputs; i++ {
		out = append(out, fmt.Sprintf("Output%d", i))
	}
	if p.DIO {
		out = append(out, "DIO")
	}
	return out
}

// SlotChannels returns the channel names exposed by slot n when an
// instrument is loaded into it, e.g. Slot1InA, Slot1OutA.
func (p Platform) SlotChannels(n int) []string {
	out := make([]string, 0, 2*p.SlotPorts)
	for i := 0; i < p.SlotPorts; i++ {
		out = append(out, fmt.Sprintf("Slot%dIn%c", n, 'A'+rune(i)))
	}
	for i := 0; i < p.SlotPorts; i++ {
		out = append(out, fmt.Sprintf("Slot%dOut%c", n, 'A'+rune(i)))
	}
	return out
}
