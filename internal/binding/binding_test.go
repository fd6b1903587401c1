package binding

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestParseInput(t *testing.T) {
	tests := []struct {
		in   string
		want Input
		ok   bool
	}{
		{"Button 0", Input{Kind: KindButton, Index: 0}, true},
		{"Button 15", Input{Kind: KindButton, Index: 15}, true},
		{"Axis 1+", Input{Kind: KindAxis, Index: 1, Dir: 1}, true},
		{"Axis 3-", Input{Kind: KindAxis, Index: 3, Dir: -1}, true},
		{"Hat 0 Up", Input{Kind: KindHat, Index: 0, HatDir: "Up"}, true},
		{"Hat 0 Right", Input{Kind: KindHat, Index: 0, HatDir: "Right"}, true},
		{"Button -1", Input{}, false},
		{"Axis 2", Input{}, false},
		{"Hat 0 Diagonal", Input{}, false},
		{"Trigger 1", Input{}, false},
		{"", Input{}, false},
	}

	for _, tt := range tests {
		got, err := ParseInput(tt.in)
		if tt.ok != (err == nil) {
			t.Errorf("ParseInput(%q) err = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseInput(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestInputStringRoundTrip(t *testing.T) {
	inputs := []Input{
		{Kind: KindButton, Index: 7},
		{Kind: KindAxis, Index: 0, Dir: 1},
		{Kind: KindAxis, Index: 5, Dir: -1},
		{Kind: KindHat, Index: 0, HatDir: "Down"},
	}
	for _, in := range inputs {
		back, err := ParseInput(in.String())
		if err != nil {
			t.Errorf("ParseInput(%q): %v", in.String(), err)
			continue
		}
		if back != in {
			t.Errorf("round trip %+v -> %q -> %+v", in, in.String(), back)
		}
	}
}

func TestProfileJSON(t *testing.T) {
	p := Profile{
		Player:     0,
		Connected:  true,
		API:        "SDLController",
		Device:     "8BitDo Pro 2",
		DeviceGUID: "030003f05e0400008e02000014010000",
		Bindings: map[string]Input{
			"a":     {Kind: KindButton, Index: 1},
			"ls_up": {Kind: KindAxis, Index: 1, Dir: -1},
			"dp_up": {Kind: KindHat, Index: 0, HatDir: "Up"},
		},
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}

	var back Profile
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Bindings["ls_up"] != p.Bindings["ls_up"] {
		t.Errorf("binding round trip = %+v", back.Bindings["ls_up"])
	}
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindings.json")
	content := `[
		{"player": 0, "connected": true, "api": "SDLController",
		 "device": "Pad", "device_guid": "abcd",
		 "bindings": {"a": "Button 1", "ls_left": "Axis 0-"}}
	]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("got %d profiles", len(profiles))
	}
	if got := profiles[0].Bindings["ls_left"]; got != (Input{Kind: KindAxis, Index: 0, Dir: -1}) {
		t.Errorf("ls_left = %+v", got)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`[{"player": 9, "bindings": {}}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProfiles(bad); err == nil {
		t.Error("out-of-range player slot should be rejected")
	}
}

type stubExtension struct {
	id      string
	written []string
	err     error
	calls   int
}

func (s *stubExtension) TargetID() string { return s.id }

func (s *stubExtension) Sync(ctx context.Context, profiles []Profile, installRoot, game string) ([]string, error) {
	s.calls++
	return s.written, s.err
}

func TestRegistrySync(t *testing.T) {
	ext := &stubExtension{id: "cemu", written: []string{"controllerProfiles/pad.xml"}}
	r := NewRegistry([]Extension{ext}, zap.NewNop())

	written, err := r.Sync(context.Background(), "cemu", nil, "/emu/cemu", "")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(written) != 1 || ext.calls != 1 {
		t.Errorf("written = %v, calls = %d", written, ext.calls)
	}

	// Targets without an extension are silently skipped.
	written, err = r.Sync(context.Background(), "ppsspp", nil, "/emu/ppsspp", "")
	if err != nil || written != nil {
		t.Errorf("unknown target: written = %v, err = %v", written, err)
	}

	ext.err = errors.New("disk full")
	if _, err := r.Sync(context.Background(), "cemu", nil, "/emu/cemu", ""); err == nil {
		t.Error("extension failure should surface")
	}
}
