// Package binding holds the emulator-neutral controller binding model.
// Profiles describe physical inputs with plain descriptor strings
// ("Button 3", "Axis 1-", "Hat 0 Up"); per-emulator extensions translate
// them into each emulator's native configuration format.
package binding

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// InputKind classifies a physical input.
type InputKind string

const (
	KindButton InputKind = "button"
	KindAxis   InputKind = "axis"
	KindHat    InputKind = "hat"
)

// Input is one physical control on a device.
type Input struct {
	Kind  InputKind
	Index int
	// Dir is the axis direction: +1 or -1. Zero for non-axis inputs.
	Dir int
	// HatDir is "Up", "Down", "Left", or "Right" for hat inputs.
	HatDir string
}

// String renders the descriptor form: "Button 3", "Axis 1-", "Hat 0 Up".
func (in Input) String() string {
	switch in.Kind {
	case KindButton:
		return fmt.Sprintf("Button %d", in.Index)
	case KindAxis:
		sign := "+"
		if in.Dir < 0 {
			sign = "-"
		}
		return fmt.Sprintf("Axis %d%s", in.Index, sign)
	case KindHat:
		return fmt.Sprintf("Hat %d %s", in.Index, in.HatDir)
	default:
		return ""
	}
}

// ParseInput parses a descriptor string.
func ParseInput(s string) (Input, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) < 2 {
		return Input{}, fmt.Errorf("malformed input descriptor %q", s)
	}

	switch fields[0] {
	case "Button":
		idx, err := strconv.Atoi(fields[1])
		if err != nil || idx < 0 {
			return Input{}, fmt.Errorf("malformed button descriptor %q", s)
		}
		return Input{Kind: KindButton, Index: idx}, nil

	case "Axis":
		spec := fields[1]
		if len(spec) < 2 {
			return Input{}, fmt.Errorf("malformed axis descriptor %q", s)
		}
		dir := 0
		switch spec[len(spec)-1] {
		case '+':
			dir = 1
		case '-':
			dir = -1
		default:
			return Input{}, fmt.Errorf("axis descriptor %q has no direction", s)
		}
		idx, err := strconv.Atoi(spec[:len(spec)-1])
		if err != nil || idx < 0 {
			return Input{}, fmt.Errorf("malformed axis descriptor %q", s)
		}
		return Input{Kind: KindAxis, Index: idx, Dir: dir}, nil

	case "Hat":
		if len(fields) != 3 {
			return Input{}, fmt.Errorf("malformed hat descriptor %q", s)
		}
		idx, err := strconv.Atoi(fields[1])
		if err != nil || idx < 0 {
			return Input{}, fmt.Errorf("malformed hat descriptor %q", s)
		}
		switch fields[2] {
		case "Up", "Down", "Left", "Right":
		default:
			return Input{}, fmt.Errorf("unknown hat direction in %q", s)
		}
		return Input{Kind: KindHat, Index: idx, HatDir: fields[2]}, nil

	default:
		return Input{}, fmt.Errorf("unknown input descriptor %q", s)
	}
}

// MarshalJSON renders the descriptor string.
func (in Input) MarshalJSON() ([]byte, error) {
	return json.Marshal(in.String())
}

// UnmarshalJSON parses the descriptor string.
func (in *Input) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseInput(s)
	if err != nil {
		return err
	}
	*in = parsed
	return nil
}

// Canonical action names used as Bindings keys.
var Actions = []string{
	"a", "b", "x", "y",
	"l", "r", "zl", "zr",
	"plus", "minus", "home", "capture",
	"dp_up", "dp_down", "dp_left", "dp_right",
	"ls_up", "ls_down", "ls_left", "ls_right", "ls_click",
	"rs_up", "rs_down", "rs_left", "rs_right", "rs_click",
}

// Profile is the emulator-neutral binding set for one player slot.
type Profile struct {
	// Player is the zero-based player slot.
	Player    int    `json:"player"`
	Connected bool   `json:"connected"`
	API       string `json:"api"` // input backend, e.g. "SDLController"
	// Device is the controller's display name; DeviceIndex its port.
	Device      string `json:"device"`
	DeviceIndex int    `json:"device_index"`
	DeviceGUID  string `json:"device_guid"`
	// ControllerType is the emulated controller model, e.g.
	// "Pro Controller".
	ControllerType string `json:"controller_type,omitempty"`
	// Bindings maps canonical action names to physical inputs.
	Bindings map[string]Input `json:"bindings"`
}

// LoadProfiles reads a JSON profile file.
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	var profiles []Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	for i := range profiles {
		if profiles[i].Player < 0 || profiles[i].Player > 7 {
			return nil, fmt.Errorf("profile %d: player slot %d out of range", i, profiles[i].Player)
		}
	}
	return profiles, nil
}
