package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/meridian-launcher/meridian/internal/archive"
	"github.com/meridian-launcher/meridian/internal/binding"
	"github.com/meridian-launcher/meridian/internal/catalog"
	"github.com/meridian-launcher/meridian/internal/download"
	"github.com/meridian-launcher/meridian/internal/extension/cemu"
	"github.com/meridian-launcher/meridian/internal/extension/eden"
	"github.com/meridian-launcher/meridian/internal/install"
	"github.com/meridian-launcher/meridian/internal/launch"
	"github.com/meridian-launcher/meridian/internal/platform"
	"github.com/meridian-launcher/meridian/internal/release"
	"github.com/meridian-launcher/meridian/internal/setup"
	"github.com/meridian-launcher/meridian/internal/store"
)

// app holds the wired components every subcommand works against.
type app struct {
	log      *zap.Logger
	catalog  *catalog.Catalog
	store    store.Store
	manager  *install.Manager
	launcher *launch.Launcher
	bindings *binding.Registry

	bindingsFile string
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// pathSetting resolves one directory setting, falling back to a location
// under meridian_dir.
func pathSetting(key, fallback string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return fallback
}

// buildApp wires the full provisioning stack from the settings.
func buildApp(ctx context.Context) (*app, error) {
	log, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	base := viper.GetString("meridian_dir")
	emulatorsRoot := pathSetting("emulators_root", filepath.Join(base, "emulators"))
	cacheDir := pathSetting("cache_dir", filepath.Join(base, "cache"))
	keyringDir := pathSetting("keyring_dir", filepath.Join(base, "keyrings"))
	stateFile := pathSetting("state_file", filepath.Join(base, "state.json"))
	lockDir := pathSetting("lock_dir", filepath.Join(base, "locks"))
	bindingsFile := pathSetting("bindings_file", filepath.Join(base, "bindings.json"))

	info, err := platform.NewDetector().Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}
	log.Debug("platform detected",
		zap.String("os", info.OS),
		zap.String("arch", info.Arch))

	sources := setup.Sources{}
	for key, value := range viper.GetStringMapString("sources") {
		sources[key] = value
	}

	cat := catalog.Builtin()
	st := store.NewFileStore(stateFile)

	manager, err := install.NewManager(install.Config{
		EmulatorsRoot: emulatorsRoot,
		LockDir:       lockDir,
		Catalog:       cat,
		Resolver:      release.NewResolver(info, log),
		Fetcher:       download.NewDownloader(cacheDir, log),
		Verifier:      download.NewVerifier(keyringDir),
		Extractor:     archive.NewExtractor(log),
		Setup:         setup.NewRegistry(setup.BuiltinProcedures(), log),
		Store:         st,
		Sources:       sources,
		Log:           log,
	})
	if err != nil {
		return nil, fmt.Errorf("wire install manager: %w", err)
	}

	registry := binding.NewRegistry([]binding.Extension{
		cemu.New(log),
		eden.New(log),
	}, log)

	return &app{
		log:          log,
		catalog:      cat,
		store:        st,
		manager:      manager,
		launcher:     launch.NewLauncher(cat, st, registry, log),
		bindings:     registry,
		bindingsFile: bindingsFile,
	}, nil
}

// loadProfiles reads the neutral controller profiles, returning none when
// the bindings file does not exist.
func (a *app) loadProfiles() ([]binding.Profile, error) {
	if _, err := os.Stat(a.bindingsFile); os.IsNotExist(err) {
		return nil, nil
	}
	return binding.LoadProfiles(a.bindingsFile)
}
