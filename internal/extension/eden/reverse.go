package eden

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/meridian-launcher/meridian/internal/binding"
)

// keyToBind maps button key suffixes back to canonical action names.
var keyToBind = map[string]string{
	"button_a": "a", "button_b": "b", "button_x": "x", "button_y": "y",
	"button_l": "l", "button_r": "r", "button_zl": "zl", "button_zr": "zr",
	"button_plus": "plus", "button_minus": "minus",
	"button_home": "home", "button_screenshot": "capture",
	"button_dup": "dp_up", "button_ddown": "dp_down",
	"button_dleft": "dp_left", "button_dright": "dp_right",
	"button_lstick": "ls_click", "button_rstick": "rs_click",
}

// typeNames is the reverse of controllerTypes.
var typeNames = map[int]string{
	0: "Pro Controller",
	1: "Dual Joycons",
	2: "Left Joycon",
	3: "Right Joycon",
	4: "Handheld",
	5: "GameCube Controller",
}

// parseParam splits an engine parameter string into its fields. Field
// values never contain colons, so the first colon separates name from
// value.
func parseParam(s string) map[string]string {
	out := map[string]string{}
	for _, field := range strings.Split(s, ",") {
		name, value, found := strings.Cut(field, ":")
		if !found {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out
}

// paramToInput converts one button engine string back into a physical
// input descriptor.
func paramToInput(param string) (binding.Input, bool) {
	fields := parseParam(param)
	if b, ok := fields["button"]; ok {
		idx, err := strconv.Atoi(b)
		if err != nil {
			return binding.Input{}, false
		}
		return binding.Input{Kind: binding.KindButton, Index: idx}, true
	}
	if a, ok := fields["axis"]; ok {
		idx, err := strconv.Atoi(a)
		if err != nil {
			return binding.Input{}, false
		}
		dir := 1
		if fields["direction"] == "-" {
			dir = -1
		}
		return binding.Input{Kind: binding.KindAxis, Index: idx, Dir: dir}, true
	}
	return binding.Input{}, false
}

// ProfileFromControls reconstructs one player's neutral profile from the
// parsed [Controls] keys. Compound stick entries come back as the left
// and up direction bindings, the same ones the forward translation reads
// the axes from.
func ProfileFromControls(controls map[string]string, player int) binding.Profile {
	prefix := fmt.Sprintf("player_%d_", player)

	p := binding.Profile{
		Player:   player,
		API:      "SDLController",
		Bindings: map[string]binding.Input{},
	}
	p.Connected = controls[prefix+"connected"] == "true"
	if !p.Connected {
		return p
	}

	if t, err := strconv.Atoi(controls[prefix+"type"]); err == nil {
		if name, ok := typeNames[t]; ok {
			p.ControllerType = name
		}
	}

	for suffix, action := range keyToBind {
		value, ok := controls[prefix+suffix]
		if !ok {
			continue
		}
		in, ok := paramToInput(value)
		if !ok {
			continue
		}
		p.Bindings[action] = in
		if fields := parseParam(value); p.DeviceGUID == "" {
			if guid := fields["guid"]; guid != "" && guid != "0" {
				p.DeviceGUID = guid
			}
			if port, err := strconv.Atoi(fields["port"]); err == nil {
				p.DeviceIndex = port
			}
		}
	}

	for _, stick := range []struct {
		suffix string
		left   string
		up     string
	}{
		{"lstick", "ls_left", "ls_up"},
		{"rstick", "rs_left", "rs_up"},
	} {
		fields := parseParam(controls[prefix+stick.suffix])
		x, errX := strconv.Atoi(fields["axis_x"])
		y, errY := strconv.Atoi(fields["axis_y"])
		if errX != nil || errY != nil {
			continue
		}
		p.Bindings[stick.left] = binding.Input{Kind: binding.KindAxis, Index: x, Dir: -1}
		p.Bindings[stick.up] = binding.Input{Kind: binding.KindAxis, Index: y, Dir: -1}
	}

	return p
}
