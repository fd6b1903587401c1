package launch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/meridian-launcher/meridian/internal/binding"
	"github.com/meridian-launcher/meridian/internal/catalog"
	"github.com/meridian-launcher/meridian/internal/install"
	"github.com/meridian-launcher/meridian/internal/release"
	"github.com/meridian-launcher/meridian/internal/setup"
	"github.com/meridian-launcher/meridian/internal/store"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Entry{
		{
			ID:           "cemu",
			Name:         "Cemu",
			ArgsTemplate: "-g {rom}",
		},
		{
			ID:           "retroarch",
			Name:         "RetroArch",
			ArgsTemplate: "-L {core} {rom}",
			Components: []catalog.Component{
				{ID: "mgba", Name: "mGBA", File: "mgba_libretro.so"},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return cat
}

// installTarget creates a fake install with a runnable executable and
// returns its root.
func installTarget(t *testing.T, st store.Store, targetID string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test executable is a shell script")
	}

	root := t.TempDir()
	exe := filepath.Join(root, "emu.sh")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	err := st.Put(&store.Record{
		TargetID:       targetID,
		Version:        "1.0.0",
		InstallRoot:    root,
		ExecutablePath: "emu.sh",
		InstalledAt:    time.Now(),
		SetupComplete:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return root
}

func TestExpandArgs(t *testing.T) {
	tests := []struct {
		name     string
		template string
		rom      string
		core     string
		want     []string
	}{
		{name: "empty template with rom", rom: "/roms/game.wud", want: []string{"/roms/game.wud"}},
		{name: "empty template without rom", want: nil},
		{
			name:     "rom placeholder",
			template: "-g {rom}",
			rom:      "/roms/game.wud",
			want:     []string{"-g", "/roms/game.wud"},
		},
		{
			name:     "core and rom",
			template: "-L {core} {rom}",
			rom:      "/roms/game.gba",
			core:     "/cores/mgba_libretro.so",
			want:     []string{"-L", "/cores/mgba_libretro.so", "/roms/game.gba"},
		},
		{
			name:     "unused placeholder dropped",
			template: "-g {rom}",
			want:     []string{"-g"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandArgs(tt.template, tt.rom, tt.core)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExpandArgs(%q, %q, %q) = %v, want %v", tt.template, tt.rom, tt.core, got, tt.want)
			}
		})
	}
}

func TestLaunch(t *testing.T) {
	st := store.NewMemStore()
	installTarget(t, st, "cemu")

	l := NewLauncher(testCatalog(t), st, nil, zap.NewNop())
	pid, err := l.Launch(context.Background(), Request{TargetID: "cemu", Game: "/roms/game.wud"})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if pid <= 0 {
		t.Errorf("pid = %d", pid)
	}
}

func TestLaunchNotInstalled(t *testing.T) {
	l := NewLauncher(testCatalog(t), store.NewMemStore(), nil, zap.NewNop())
	if _, err := l.Launch(context.Background(), Request{TargetID: "cemu"}); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("err = %v, want ErrNotInstalled", err)
	}
}

func TestLaunchUnknownTarget(t *testing.T) {
	l := NewLauncher(testCatalog(t), store.NewMemStore(), nil, zap.NewNop())
	if _, err := l.Launch(context.Background(), Request{TargetID: "dolphin"}); err == nil {
		t.Error("unknown target should fail")
	}
}

func TestLaunchMissingExecutable(t *testing.T) {
	st := store.NewMemStore()
	root := installTarget(t, st, "cemu")
	if err := os.Remove(filepath.Join(root, "emu.sh")); err != nil {
		t.Fatal(err)
	}

	l := NewLauncher(testCatalog(t), st, nil, zap.NewNop())
	if _, err := l.Launch(context.Background(), Request{TargetID: "cemu"}); err == nil {
		t.Error("missing executable should fail")
	}
}

func TestLaunchComponentMissing(t *testing.T) {
	st := store.NewMemStore()
	installTarget(t, st, "retroarch")

	l := NewLauncher(testCatalog(t), st, nil, zap.NewNop())
	_, err := l.Launch(context.Background(), Request{
		TargetID:    "retroarch",
		ComponentID: "mgba",
		Game:        "/roms/game.gba",
	})
	if !errors.Is(err, ErrComponentMissing) {
		t.Errorf("err = %v, want ErrComponentMissing", err)
	}
}

func TestLaunchWithComponent(t *testing.T) {
	st := store.NewMemStore()
	root := installTarget(t, st, "retroarch")

	corePath := filepath.Join(root, "cores", "mgba_libretro.so")
	if err := os.MkdirAll(filepath.Dir(corePath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(corePath, []byte("core"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := st.Put(&store.Record{
		TargetID:      "retroarch/mgba",
		Version:       "nightly",
		InstallRoot:   root,
		InstalledAt:   time.Now(),
		SetupComplete: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	l := NewLauncher(testCatalog(t), st, nil, zap.NewNop())
	pid, err := l.Launch(context.Background(), Request{
		TargetID:    "retroarch",
		ComponentID: "mgba",
		Game:        "/roms/game.gba",
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if pid <= 0 {
		t.Errorf("pid = %d", pid)
	}
}

type stubResolver struct{}

func (stubResolver) Resolve(ctx context.Context, entry catalog.Entry) (*release.Asset, error) {
	return &release.Asset{
		TargetID: entry.ID,
		Version:  "1.2.0",
		Name:     entry.ID + ".zip",
		URL:      "https://dl/" + entry.ID + ".zip",
	}, nil
}

func (stubResolver) ResolveComponent(entry catalog.Entry, comp catalog.Component) (*release.Asset, error) {
	return &release.Asset{
		TargetID: entry.ID + "/" + comp.ID,
		Version:  "nightly",
		Name:     comp.File + ".zip",
		URL:      "https://bb/" + comp.File + ".zip",
	}, nil
}

type stubFetcher struct{ dir string }

func (f stubFetcher) FetchAsset(ctx context.Context, asset *release.Asset) (string, error) {
	path := filepath.Join(f.dir, asset.Name)
	return path, os.WriteFile(path, []byte("archive"), 0o644)
}

func (f stubFetcher) FetchSidecar(ctx context.Context, asset *release.Asset, url string) (string, error) {
	return "", nil
}

// scriptExtractor pretends every archive contains one runnable script.
type scriptExtractor struct{}

func (scriptExtractor) Extract(ctx context.Context, archivePath, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(destDir, "emu.sh"), []byte("#!/bin/sh\nexit 0\n"), 0o755)
}

type stubSetup struct{}

func (stubSetup) Run(ctx context.Context, targetID, installRoot string, sources setup.Sources) error {
	return nil
}

// TestLaunchInstalledRecord drives the real install pipeline and then
// launches from the record it produced, pinning the executable-path
// convention shared between the two packages.
func TestLaunchInstalledRecord(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test executable is a shell script")
	}

	cat, err := catalog.New([]catalog.Entry{{
		ID:            "cemu",
		Name:          "Cemu",
		Source:        catalog.ReleaseSource{Kind: catalog.SourceGitHub, Repo: "cemu-project/Cemu"},
		ExeCandidates: []string{"emu.sh"},
		ArgsTemplate:  "-g {rom}",
	}})
	if err != nil {
		t.Fatal(err)
	}

	st := store.NewMemStore()
	mgr, err := install.NewManager(install.Config{
		EmulatorsRoot: t.TempDir(),
		Catalog:       cat,
		Resolver:      stubResolver{},
		Fetcher:       stubFetcher{dir: t.TempDir()},
		Extractor:     scriptExtractor{},
		Setup:         stubSetup{},
		Store:         st,
		Log:           zap.NewNop(),
	})
	if err != nil {
		t.Fatal(err)
	}

	rec, err := mgr.Install(context.Background(), "cemu")
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if _, err := os.Stat(filepath.Join(rec.InstallRoot, rec.ExecutablePath)); err != nil {
		t.Fatalf("installed executable: %v", err)
	}

	l := NewLauncher(cat, st, nil, zap.NewNop())
	pid, err := l.Launch(context.Background(), Request{TargetID: "cemu", Game: "/roms/game.wud"})
	if err != nil {
		t.Fatalf("Launch after Install: %v", err)
	}
	if pid <= 0 {
		t.Errorf("pid = %d", pid)
	}
}

type failingExtension struct{}

func (failingExtension) TargetID() string { return "cemu" }
func (failingExtension) Sync(context.Context, []binding.Profile, string, string) ([]string, error) {
	return nil, errors.New("sync exploded")
}

func TestLaunchSurvivesBindingSyncFailure(t *testing.T) {
	st := store.NewMemStore()
	installTarget(t, st, "cemu")

	reg := binding.NewRegistry([]binding.Extension{failingExtension{}}, zap.NewNop())
	l := NewLauncher(testCatalog(t), st, reg, zap.NewNop())

	profiles := []binding.Profile{{Player: 0, Connected: true, Bindings: map[string]binding.Input{
		"a": {Kind: binding.KindButton, Index: 0},
	}}}
	pid, err := l.Launch(context.Background(), Request{TargetID: "cemu", Profiles: profiles})
	if err != nil {
		t.Fatalf("binding sync failure must not block the launch: %v", err)
	}
	if pid <= 0 {
		t.Errorf("pid = %d", pid)
	}
}
