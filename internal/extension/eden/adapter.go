package eden

import (
	"fmt"
	"strings"

	"github.com/meridian-launcher/meridian/internal/binding"
)

// Eden stores bindings in the [Controls] section of its Qt settings file
// as SDL engine parameter strings, one key per emulated button plus a
// compound entry per stick.

// kv is one settings key with its already-formatted value. Order matters
// for deterministic output, so updates travel as slices, not maps.
type kv struct {
	Key   string
	Value string
}

// bindToKey maps canonical action names onto Eden's button key suffixes.
var bindToKey = map[string]string{
	"a": "button_a", "b": "button_b", "x": "button_x", "y": "button_y",
	"cross": "button_a", "circle": "button_b", "square": "button_x", "triangle": "button_y",

	"l": "button_l", "r": "button_r", "zl": "button_zl", "zr": "button_zr",
	"lb": "button_l", "rb": "button_r", "lt": "button_zl", "rt": "button_zr",
	"l1": "button_l", "r1": "button_r", "l2": "button_zl", "r2": "button_zr",

	"plus": "button_plus", "minus": "button_minus",
	"start": "button_plus", "back": "button_minus",
	"options": "button_plus", "share": "button_minus",

	"home": "button_home", "guide": "button_home", "ps": "button_home",
	"capture": "button_screenshot", "screenshot": "button_screenshot",

	"dp_up": "button_dup", "dp_down": "button_ddown",
	"dp_left": "button_dleft", "dp_right": "button_dright",

	"ls_click": "button_lstick", "ls_press": "button_lstick", "l3": "button_lstick",
	"rs_click": "button_rstick", "rs_press": "button_rstick", "r3": "button_rstick",
}

// buttonOrder fixes the emission order of button keys.
var buttonOrder = []string{
	"a", "b", "x", "y", "l", "r", "zl", "zr",
	"plus", "minus", "home", "capture",
	"dp_up", "dp_down", "dp_left", "dp_right",
	"ls_click", "rs_click",
}

// stickDirections are consumed by the compound stick entries and never
// written as individual button keys.
var stickDirections = map[string]bool{
	"ls_up": true, "ls_down": true, "ls_left": true, "ls_right": true,
	"rs_up": true, "rs_down": true, "rs_left": true, "rs_right": true,
}

// controllerTypes is Eden's controller type enum.
var controllerTypes = map[string]int{
	"Pro Controller":      0,
	"Dual Joycons":        1,
	"Left Joycon":         2,
	"Right Joycon":        3,
	"Handheld":            4,
	"GameCube Controller": 5,
}

// hatButtons translates hat directions to the button codes Eden's SDL
// backend reports for the dpad hat.
var hatButtons = map[string]int{
	"Up":    11,
	"Down":  12,
	"Left":  13,
	"Right": 14,
}

// device identifies one physical controller in engine parameter strings.
type device struct {
	GUID string
	Port int
}

func deviceFor(p binding.Profile) device {
	guid := p.DeviceGUID
	if guid == "" {
		guid = "0"
	}
	return device{GUID: guid, Port: p.DeviceIndex}
}

func (d device) prefix() string {
	return fmt.Sprintf("engine:sdl,guid:%s,port:%d,pad:%d", d.GUID, d.Port, d.Port)
}

// buttonParam renders one physical input as an engine parameter string.
// ok is false for inputs Eden cannot express.
func buttonParam(d device, in binding.Input) (string, bool) {
	switch in.Kind {
	case binding.KindButton:
		return fmt.Sprintf("%s,button:%d", d.prefix(), in.Index), true
	case binding.KindAxis:
		dir := "+"
		if in.Dir < 0 {
			dir = "-"
		}
		return fmt.Sprintf("%s,axis:%d,threshold:%f,direction:%s", d.prefix(), in.Index, 0.5, dir), true
	case binding.KindHat:
		code, ok := hatButtons[in.HatDir]
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%s,button:%d", d.prefix(), code), true
	}
	return "", false
}

// stickParam renders a compound stick entry from its two axis indices.
func stickParam(d device, axisX, axisY int) string {
	return fmt.Sprintf("%s,axis_x:%d,axis_y:%d,deadzone:%f,range:%f,threshold:%f",
		d.prefix(), axisX, axisY, 0.15, 1.0, 0.5)
}

func motionParam(d device, slot int) string {
	return fmt.Sprintf("%s,motion:%d", d.prefix(), slot)
}

// stickAxes extracts the stick's axis pair from the direction bindings,
// falling back to SDL's conventional layout when a side is unbound.
func stickAxes(bindings map[string]binding.Input, leftAction, upAction string, defX, defY int) (int, int) {
	x, y := defX, defY
	if in, ok := bindings[leftAction]; ok && in.Kind == binding.KindAxis {
		x = in.Index
	}
	if in, ok := bindings[upAction]; ok && in.Kind == binding.KindAxis {
		y = in.Index
	}
	return x, y
}

func quoted(v string) string {
	return `"` + v + `"`
}

// playerKeys renders all [Controls] keys for one player. Each value key
// carries a \default=false sibling so Qt treats it as explicitly set.
func playerKeys(p binding.Profile) []kv {
	player := fmt.Sprintf("player_%d", p.Player)

	if !p.Connected {
		return []kv{
			{player + `_connected\default`, "false"},
			{player + "_connected", "false"},
		}
	}

	d := deviceFor(p)
	out := []kv{
		{player + `_connected\default`, "false"},
		{player + "_connected", "true"},
	}

	ctype, ok := controllerTypes[p.ControllerType]
	if !ok {
		ctype = controllerTypes["Pro Controller"]
	}
	out = append(out,
		kv{player + `_type\default`, "false"},
		kv{player + "_type", fmt.Sprintf("%d", ctype)},
		kv{player + `_vibration_enabled\default`, "false"},
		kv{player + "_vibration_enabled", "true"},
	)

	for _, action := range buttonOrder {
		in, bound := lookupAction(p.Bindings, action)
		if !bound {
			continue
		}
		param, ok := buttonParam(d, in)
		if !ok {
			continue
		}
		suffix := bindToKey[action]
		out = append(out,
			kv{player + "_" + suffix + `\default`, "false"},
			kv{player + "_" + suffix, quoted(param)},
		)
	}

	lx, ly := stickAxes(p.Bindings, "ls_left", "ls_up", 0, 1)
	rx, ry := stickAxes(p.Bindings, "rs_left", "rs_up", 2, 3)
	out = append(out,
		kv{player + `_lstick\default`, "false"},
		kv{player + "_lstick", quoted(stickParam(d, lx, ly))},
		kv{player + `_rstick\default`, "false"},
		kv{player + "_rstick", quoted(stickParam(d, rx, ry))},
		kv{player + `_motionleft\default`, "false"},
		kv{player + "_motionleft", quoted(motionParam(d, 0))},
		kv{player + `_motionright\default`, "false"},
		kv{player + "_motionright", quoted(motionParam(d, 1))},
	)

	return out
}

// lookupAction resolves an action through the synonym table: any binding
// key whose canonical suffix matches counts.
func lookupAction(bindings map[string]binding.Input, canonical string) (binding.Input, bool) {
	if in, ok := bindings[canonical]; ok {
		return in, true
	}
	want := bindToKey[canonical]
	for name, in := range bindings {
		if stickDirections[name] {
			continue
		}
		if suffix, ok := bindToKey[strings.ToLower(name)]; ok && suffix == want {
			return in, true
		}
	}
	return binding.Input{}, false
}
