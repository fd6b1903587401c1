package eden

import (
	"testing"

	"github.com/meridian-launcher/meridian/internal/binding"
)

func TestParseParam(t *testing.T) {
	got := parseParam("engine:sdl,guid:abc123,port:0,pad:0,axis:4,threshold:0.500000,direction:-")
	if got["engine"] != "sdl" || got["guid"] != "abc123" {
		t.Errorf("identity fields = %v", got)
	}
	if got["axis"] != "4" || got["direction"] != "-" {
		t.Errorf("axis fields = %v", got)
	}
}

func TestParamToInput(t *testing.T) {
	tests := []struct {
		param string
		want  binding.Input
		ok    bool
	}{
		{
			param: "engine:sdl,guid:abc,port:0,pad:0,button:3",
			want:  binding.Input{Kind: binding.KindButton, Index: 3},
			ok:    true,
		},
		{
			param: "engine:sdl,guid:abc,port:0,pad:0,axis:4,threshold:0.500000,direction:-",
			want:  binding.Input{Kind: binding.KindAxis, Index: 4, Dir: -1},
			ok:    true,
		},
		{
			param: "engine:sdl,guid:abc,port:0,pad:0,axis:2,threshold:0.500000,direction:+",
			want:  binding.Input{Kind: binding.KindAxis, Index: 2, Dir: 1},
			ok:    true,
		},
		{param: "engine:sdl,guid:abc,port:0,pad:0,motion:0", ok: false},
	}
	for _, tt := range tests {
		got, ok := paramToInput(tt.param)
		if ok != tt.ok {
			t.Errorf("paramToInput(%q) ok = %v, want %v", tt.param, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("paramToInput(%q) = %+v, want %+v", tt.param, got, tt.want)
		}
	}
}

func TestProfileRoundTrip(t *testing.T) {
	original := edenProfile(0, map[string]binding.Input{
		"a":        {Kind: binding.KindButton, Index: 0},
		"b":        {Kind: binding.KindButton, Index: 1},
		"zl":       {Kind: binding.KindAxis, Index: 4, Dir: 1},
		"ls_left":  {Kind: binding.KindAxis, Index: 0, Dir: -1},
		"ls_up":    {Kind: binding.KindAxis, Index: 1, Dir: -1},
		"rs_left":  {Kind: binding.KindAxis, Index: 2, Dir: -1},
		"rs_up":    {Kind: binding.KindAxis, Index: 3, Dir: -1},
		"ls_click": {Kind: binding.KindButton, Index: 7},
	})

	controls := map[string]string{}
	for _, e := range playerKeys(original) {
		value := e.Value
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = value[1 : len(value)-1]
		}
		controls[e.Key] = value
	}

	back := ProfileFromControls(controls, 0)

	if !back.Connected {
		t.Fatal("connected flag lost")
	}
	if back.ControllerType != "Pro Controller" {
		t.Errorf("controller type = %q", back.ControllerType)
	}
	if back.DeviceGUID != original.DeviceGUID {
		t.Errorf("guid = %q, want %q", back.DeviceGUID, original.DeviceGUID)
	}

	for _, action := range []string{"a", "b", "zl", "ls_left", "ls_up", "rs_left", "rs_up", "ls_click"} {
		if got, ok := back.Bindings[action]; !ok || got != original.Bindings[action] {
			t.Errorf("%s: round trip = %+v (ok=%v), want %+v", action, got, ok, original.Bindings[action])
		}
	}
}

func TestProfileFromControlsDisconnected(t *testing.T) {
	back := ProfileFromControls(map[string]string{"player_3_connected": "false"}, 3)
	if back.Connected {
		t.Error("disconnected player read as connected")
	}
	if len(back.Bindings) != 0 {
		t.Errorf("bindings = %v", back.Bindings)
	}
}
