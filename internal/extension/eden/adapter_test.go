package eden

import (
	"strings"
	"testing"

	"github.com/meridian-launcher/meridian/internal/binding"
)

func edenProfile(player int, bindings map[string]binding.Input) binding.Profile {
	return binding.Profile{
		Player:         player,
		Connected:      true,
		API:            "SDLController",
		Device:         "Test Pad",
		DeviceIndex:    0,
		DeviceGUID:     "030003f05e0400008e02000014010000",
		ControllerType: "Pro Controller",
		Bindings:       bindings,
	}
}

func keysOf(entries []kv) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out
}

func TestPlayerKeysButtons(t *testing.T) {
	p := edenProfile(0, map[string]binding.Input{
		"a":     {Kind: binding.KindButton, Index: 0},
		"zl":    {Kind: binding.KindAxis, Index: 4, Dir: 1},
		"dp_up": {Kind: binding.KindHat, Index: 0, HatDir: "Up"},
	})

	got := keysOf(playerKeys(p))

	if got["player_0_connected"] != "true" {
		t.Errorf("connected = %q", got["player_0_connected"])
	}
	if got[`player_0_connected\default`] != "false" {
		t.Error("connected key missing its default sibling")
	}
	if got["player_0_type"] != "0" {
		t.Errorf("type = %q, want Pro Controller enum 0", got["player_0_type"])
	}
	if got["player_0_vibration_enabled"] != "true" {
		t.Errorf("vibration = %q", got["player_0_vibration_enabled"])
	}

	wantA := `"engine:sdl,guid:030003f05e0400008e02000014010000,port:0,pad:0,button:0"`
	if got["player_0_button_a"] != wantA {
		t.Errorf("button_a = %q, want %q", got["player_0_button_a"], wantA)
	}

	wantZL := `"engine:sdl,guid:030003f05e0400008e02000014010000,port:0,pad:0,axis:4,threshold:0.500000,direction:+"`
	if got["player_0_button_zl"] != wantZL {
		t.Errorf("button_zl = %q, want %q", got["player_0_button_zl"], wantZL)
	}

	if !strings.HasSuffix(strings.TrimSuffix(got["player_0_button_dup"], `"`), "button:11") {
		t.Errorf("hat up should map to button 11, got %q", got["player_0_button_dup"])
	}
	if _, ok := got[`player_0_button_a\default`]; !ok {
		t.Error("button_a missing its default sibling")
	}
}

func TestPlayerKeysSticks(t *testing.T) {
	p := edenProfile(1, map[string]binding.Input{
		"a":       {Kind: binding.KindButton, Index: 0},
		"ls_left": {Kind: binding.KindAxis, Index: 0, Dir: -1},
		"ls_up":   {Kind: binding.KindAxis, Index: 1, Dir: -1},
		"rs_left": {Kind: binding.KindAxis, Index: 3, Dir: -1},
		"rs_up":   {Kind: binding.KindAxis, Index: 4, Dir: -1},
	})

	got := keysOf(playerKeys(p))

	if strings.Contains(strings.Join(mapKeys(got), " "), "button_ls_up") {
		t.Error("stick directions must not become individual button keys")
	}

	lstick := got["player_1_lstick"]
	if !strings.Contains(lstick, "axis_x:0,axis_y:1") {
		t.Errorf("lstick axes = %q", lstick)
	}
	if !strings.Contains(lstick, "deadzone:0.150000,range:1.000000,threshold:0.500000") {
		t.Errorf("lstick calibration = %q", lstick)
	}

	rstick := got["player_1_rstick"]
	if !strings.Contains(rstick, "axis_x:3,axis_y:4") {
		t.Errorf("rstick axes = %q", rstick)
	}
}

func TestPlayerKeysStickDefaults(t *testing.T) {
	p := edenProfile(0, map[string]binding.Input{
		"a": {Kind: binding.KindButton, Index: 0},
	})
	got := keysOf(playerKeys(p))

	if !strings.Contains(got["player_0_lstick"], "axis_x:0,axis_y:1") {
		t.Errorf("lstick defaults = %q", got["player_0_lstick"])
	}
	if !strings.Contains(got["player_0_rstick"], "axis_x:2,axis_y:3") {
		t.Errorf("rstick defaults = %q", got["player_0_rstick"])
	}
}

func TestPlayerKeysMotion(t *testing.T) {
	p := edenProfile(0, map[string]binding.Input{
		"a": {Kind: binding.KindButton, Index: 0},
	})
	got := keysOf(playerKeys(p))

	if !strings.HasSuffix(got["player_0_motionleft"], `motion:0"`) {
		t.Errorf("motionleft = %q", got["player_0_motionleft"])
	}
	if !strings.HasSuffix(got["player_0_motionright"], `motion:1"`) {
		t.Errorf("motionright = %q", got["player_0_motionright"])
	}
}

func TestPlayerKeysDisconnected(t *testing.T) {
	p := edenProfile(2, nil)
	p.Connected = false

	entries := playerKeys(p)
	if len(entries) != 2 {
		t.Fatalf("disconnected player produced %d keys: %v", len(entries), entries)
	}
	got := keysOf(entries)
	if got["player_2_connected"] != "false" || got[`player_2_connected\default`] != "false" {
		t.Errorf("disconnected keys = %v", got)
	}
}

func TestPlayerKeysSynonyms(t *testing.T) {
	p := edenProfile(0, map[string]binding.Input{
		"cross":   {Kind: binding.KindButton, Index: 0},
		"options": {Kind: binding.KindButton, Index: 9},
	})
	got := keysOf(playerKeys(p))

	if !strings.HasSuffix(got["player_0_button_a"], `button:0"`) {
		t.Errorf("cross should bind button_a, got %q", got["player_0_button_a"])
	}
	if !strings.HasSuffix(got["player_0_button_plus"], `button:9"`) {
		t.Errorf("options should bind button_plus, got %q", got["player_0_button_plus"])
	}
}

func TestPlayerKeysUnknownGUID(t *testing.T) {
	p := edenProfile(0, map[string]binding.Input{
		"a": {Kind: binding.KindButton, Index: 0},
	})
	p.DeviceGUID = ""
	p.DeviceIndex = 1

	got := keysOf(playerKeys(p))
	if !strings.Contains(got["player_0_button_a"], "guid:0,port:1,pad:1") {
		t.Errorf("fallback device identity = %q", got["player_0_button_a"])
	}
}

func mapKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
