package model

import (
	"encoding/json"
	"testing"
)

func TestRegisters_JSONPreservesOrder(t *testing.T) {
	regs := Registers{{Address: 7, Value: 1}, {Address: 2, Value: 0xFFFFFFFF}, {Address: 10, Value: 3}}

	data, err := json.Marshal(regs)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `[{"register":7,"value":1},{"register":2,"value":4294967295},{"register":10,"value":3}]`
	if got := string(data); got != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}

	var back Registers
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for i := range regs {
		if back[i] != regs[i] {
			t.Errorf("back[%d] = %v, want %v", i, back[i], regs[i])
		}
	}
}

func TestRegisters_ObjectInputStillAccepted(t *testing.T) {
	var regs Registers
	if err := json.Unmarshal([]byte(`{"4": 1, "0": 2}`), &regs); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := Registers{{Address: 4, Value: 1}, {Address: 0, Value: 2}}
	if len(regs) != len(want) || regs[0] != want[0] || regs[1] != want[1] {
		t.Errorf("Unmarshal() = %v, want %v", regs, want)
	}
}

// A generic map round trip must not reorder writes.
func TestRegisters_SurviveGenericDecode(t *testing.T) {
	cfg := &Config{
		Platform: MokuGo,
		Slots: map[int]*Slot{1: {
			Instrument:       CloudCompile,
			Bitstream:        "bits.tar",
			ControlRegisters: Registers{{Address: 4, Value: 1}, {Address: 0, Value: 2}},
		}},
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	back, err := FromMap(generic)
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}
	got := back.Slots[1].ControlRegisters
	if len(got) != 2 || got[0].Address != 4 || got[1].Address != 0 {
		t.Errorf("ControlRegisters = %v, want addresses [4 0]", got)
	}
}

func TestRegisters_DuplicateAddressKept(t *testing.T) {
	regs := Registers{{Address: 1, Value: 0}, {Address: 1, Value: 1}}

	data, err := json.Marshal(regs)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var back Registers
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(back) != 2 || back[1].Value != 1 {
		t.Errorf("back = %v", back)
	}
}

func TestRegisters_Invalid(t *testing.T) {
	tests := []string{
		`5`,
		`{"abc": 1}`,
		`{"1": -3}`,
		`{"1": 1.5}`,
		`[{"value": 1}]`,
		`[{"register": 1}]`,
		`[1, 2]`,
	}
	for _, data := range tests {
		var r Registers
		if err := json.Unmarshal([]byte(data), &r); err == nil {
			t.Errorf("Unmarshal(%s) succeeded, want error", data)
		}
	}
}
