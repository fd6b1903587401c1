package cemu

import (
	"fmt"
	"strconv"

	"github.com/meridian-launcher/meridian/internal/binding"
)

// bindToMapping maps canonical action names onto GamePad-layout mapping
// ids. Synonyms from other controller vocabularies are accepted too.
var bindToMapping = map[string]int{
	"a": mappingA, "b": mappingB, "x": mappingX, "y": mappingY,
	"cross": mappingA, "circle": mappingB, "square": mappingX, "triangle": mappingY,

	"l": mappingL, "r": mappingR, "zl": mappingZL, "zr": mappingZR,
	"lb": mappingL, "rb": mappingR, "lt": mappingZL, "rt": mappingZR,
	"l1": mappingL, "r1": mappingR, "l2": mappingZL, "r2": mappingZR,

	"plus": mappingPlus, "minus": mappingMinus, "home": mappingHome,
	"start": mappingPlus, "back": mappingMinus, "guide": mappingHome,
	"options": mappingPlus, "share": mappingMinus, "ps": mappingHome,

	"dp_up": mappingDpadUp, "dp_down": mappingDpadDown,
	"dp_left": mappingDpadLeft, "dp_right": mappingDpadRight,

	"ls_down": mappingLStickDown, "ls_up": mappingLStickUp,
	"ls_left": mappingLStickLeft, "ls_right": mappingLStickRight,
	"ls_click": mappingLStickPress, "ls_press": mappingLStickPress, "l3": mappingLStickPress,

	"rs_down": mappingRStickDown, "rs_up": mappingRStickUp,
	"rs_left": mappingRStickLeft, "rs_right": mappingRStickRight,
	"rs_click": mappingRStickPress, "rs_press": mappingRStickPress, "r3": mappingRStickPress,
}

// proStickOverrides reorders the stick mapping slots for the Pro
// Controller layout, which numbers them differently from the GamePad.
var proStickOverrides = map[string]int{
	"ls_click": 16, "ls_press": 16, "l3": 16,
	"rs_click": 17, "rs_press": 17, "r3": 17,
	"ls_up": 18, "ls_down": 19, "ls_left": 20, "ls_right": 21,
	"rs_up": 22, "rs_down": 23, "rs_left": 24, "rs_right": 25,
}

// mappingToBind is the reverse translation for the GamePad layout.
var mappingToBind = map[int]string{
	mappingA: "a", mappingB: "b", mappingX: "x", mappingY: "y",
	mappingL: "l", mappingR: "r", mappingZL: "zl", mappingZR: "zr",
	mappingPlus: "plus", mappingMinus: "minus", mappingHome: "home",
	mappingDpadUp: "dp_up", mappingDpadDown: "dp_down",
	mappingDpadLeft: "dp_left", mappingDpadRight: "dp_right",
	mappingLStickDown: "ls_down", mappingLStickUp: "ls_up",
	mappingLStickLeft: "ls_left", mappingLStickRight: "ls_right",
	mappingRStickDown: "rs_down", mappingRStickUp: "rs_up",
	mappingRStickLeft: "rs_left", mappingRStickRight: "rs_right",
	mappingLStickPress: "ls_click", mappingRStickPress: "rs_click",
}

var proMappingToBind = map[int]string{
	1: "a", 2: "b", 3: "x", 4: "y",
	5: "l", 6: "r", 7: "zl", 8: "zr",
	9: "plus", 10: "minus", 11: "home",
	12: "dp_up", 13: "dp_down", 14: "dp_left", 15: "dp_right",
	16: "ls_click", 17: "rs_click",
	18: "ls_up", 19: "ls_down", 20: "ls_left", 21: "ls_right",
	22: "rs_up", 23: "rs_down", 24: "rs_left", 25: "rs_right",
}

// typeMap translates neutral controller-type names to Cemu's emulated
// types.
var typeMap = map[string]string{
	"Wii U GamePad":            "Wii U GamePad",
	"GamePad":                  "Wii U GamePad",
	"Gamepad":                  "Wii U GamePad",
	"Pro Controller":           "Wii U Pro Controller",
	"Wii U Pro Controller":     "Wii U Pro Controller",
	"Classic Controller":       "Wii U Classic Controller",
	"Wii U Classic Controller": "Wii U Classic Controller",
	"Wiimote":                  "Wiimote",
}

var apiMap = map[string]string{
	"Auto":          "DirectInput",
	"SDLController": "SDLController",
	"SDL":           "SDLController",
	"XInput":        "XInput",
	"DirectInput":   "DirectInput",
	"Keyboard":      "Keyboard",
	"DSU":           "DSUController",
	"DSUController": "DSUController",
}

// inputToButton converts a physical input descriptor to Cemu's
// physical-input code. ok is false for inputs Cemu cannot express.
func inputToButton(in binding.Input) (int, bool) {
	switch in.Kind {
	case binding.KindButton:
		return in.Index, true
	case binding.KindAxis:
		pair, ok := sdlAxisCodes[in.Index]
		if !ok {
			return 0, false
		}
		if in.Dir >= 0 {
			return pair[0], true
		}
		return pair[1], true
	case binding.KindHat:
		switch in.HatDir {
		case "Up":
			return buttonHatUp, true
		case "Down":
			return buttonHatDown, true
		case "Left":
			return buttonHatLeft, true
		case "Right":
			return buttonHatRight, true
		}
	}
	return 0, false
}

// buttonToInput is the reverse of inputToButton. Codes 0-31 are plain
// buttons; unknown high codes round-trip as buttons too, matching Cemu's
// own tolerance.
func buttonToInput(code int) binding.Input {
	if code <= 31 {
		return binding.Input{Kind: binding.KindButton, Index: code}
	}
	for axis, pair := range sdlAxisCodes {
		if code == pair[0] {
			return binding.Input{Kind: binding.KindAxis, Index: axis, Dir: 1}
		}
		if code == pair[1] {
			return binding.Input{Kind: binding.KindAxis, Index: axis, Dir: -1}
		}
	}
	switch code {
	case buttonHatUp:
		return binding.Input{Kind: binding.KindHat, Index: 0, HatDir: "Up"}
	case buttonHatDown:
		return binding.Input{Kind: binding.KindHat, Index: 0, HatDir: "Down"}
	case buttonHatLeft:
		return binding.Input{Kind: binding.KindHat, Index: 0, HatDir: "Left"}
	case buttonHatRight:
		return binding.Input{Kind: binding.KindHat, Index: 0, HatDir: "Right"}
	}
	return binding.Input{Kind: binding.KindButton, Index: code}
}

// ToNative converts one neutral profile into a Cemu profile. Disconnected
// profiles and profiles without translatable bindings return nil.
func ToNative(p binding.Profile, profileName string) *Profile {
	if !p.Connected || len(p.Bindings) == 0 {
		return nil
	}

	api, ok := apiMap[p.API]
	if !ok {
		api = "DirectInput"
	}

	uuid := "0"
	switch {
	case api == "SDLController" && p.DeviceGUID != "":
		uuid = p.DeviceGUID
	case api == "XInput":
		uuid = strconv.Itoa(p.DeviceIndex)
	case p.DeviceGUID != "":
		uuid = p.DeviceGUID
	case p.DeviceIndex > 0:
		uuid = strconv.Itoa(p.DeviceIndex)
	}

	emulatedType, ok := typeMap[p.ControllerType]
	if !ok {
		emulatedType = "Wii U GamePad"
	}

	actionToMapping := bindToMapping
	if emulatedType == "Wii U Pro Controller" {
		actionToMapping = make(map[string]int, len(bindToMapping))
		for k, v := range bindToMapping {
			actionToMapping[k] = v
		}
		for k, v := range proStickOverrides {
			actionToMapping[k] = v
		}
	}

	var mappings []MappingEntry
	for action, input := range p.Bindings {
		mappingID, ok := actionToMapping[action]
		if !ok {
			continue
		}
		code, ok := inputToButton(input)
		if !ok {
			continue
		}
		mappings = append(mappings, MappingEntry{MappingID: mappingID, Button: code})
	}
	if len(mappings) == 0 {
		return nil
	}

	displayName := p.Device
	if displayName == "" {
		displayName = "Meridian Controller"
	}

	ctrl := NewControllerEntry()
	ctrl.API = api
	ctrl.UUID = uuid
	ctrl.DisplayName = displayName
	ctrl.Mappings = mappings

	return &Profile{
		EmulatedType: emulatedType,
		ProfileName:  profileName,
		Controllers:  []ControllerEntry{ctrl},
	}
}

// FromNative extracts neutral bindings from the first controller of a
// Cemu profile.
func FromNative(p *Profile) map[string]binding.Input {
	out := map[string]binding.Input{}
	if len(p.Controllers) == 0 {
		return out
	}

	toBind := mappingToBind
	if p.EmulatedType == "Wii U Pro Controller" {
		toBind = proMappingToBind
	}

	for _, m := range p.Controllers[0].Mappings {
		action, ok := toBind[m.MappingID]
		if !ok {
			continue
		}
		out[action] = buttonToInput(m.Button)
	}
	return out
}

// ProfileName returns the profile name used for a player slot.
func ProfileName(player int) string {
	return fmt.Sprintf("meridian_player%d", player+1)
}
