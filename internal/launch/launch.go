// Package launch starts installed emulators, synchronizing controller
// bindings first and expanding the target's argument template.
package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/meridian-launcher/meridian/internal/binding"
	"github.com/meridian-launcher/meridian/internal/catalog"
	"github.com/meridian-launcher/meridian/internal/store"
)

var (
	// ErrNotInstalled is returned when the requested target has no
	// installation record.
	ErrNotInstalled = errors.New("target is not installed")
	// ErrComponentMissing is returned when a launch names a component
	// that has not been installed.
	ErrComponentMissing = errors.New("component is not installed")
)

// Request describes one launch.
type Request struct {
	// TargetID is the emulator to start.
	TargetID string
	// Game is the rom or title path, substituted for {rom}. Optional:
	// most emulators open their own UI without one.
	Game string
	// ComponentID selects the core of a composite target, substituted
	// for {core}.
	ComponentID string
	// Profiles are the neutral controller profiles to push into the
	// target before starting it.
	Profiles []binding.Profile
}

// Launcher starts installed targets.
type Launcher struct {
	catalog  *catalog.Catalog
	store    store.Store
	bindings *binding.Registry
	log      *zap.Logger
}

// NewLauncher creates a launcher. bindings may be nil when no binding
// extensions are configured.
func NewLauncher(cat *catalog.Catalog, st store.Store, bindings *binding.Registry, log *zap.Logger) *Launcher {
	return &Launcher{catalog: cat, store: st, bindings: bindings, log: log}
}

// Launch starts the target as a detached process and returns its pid.
// Binding synchronization runs first and is best effort: a sync failure
// is logged, never fatal, so a broken profile cannot block playing.
func (l *Launcher) Launch(ctx context.Context, req Request) (int, error) {
	entry, ok := l.catalog.Get(req.TargetID)
	if !ok {
		return 0, fmt.Errorf("unknown target %q", req.TargetID)
	}

	rec, ok, err := l.store.Get(req.TargetID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%s: %w", req.TargetID, ErrNotInstalled)
	}

	corePath := ""
	if req.ComponentID != "" {
		corePath, err = l.resolveCore(entry, rec, req.ComponentID)
		if err != nil {
			return 0, err
		}
	}

	l.syncBindings(ctx, req, rec)

	exePath := filepath.Join(rec.InstallRoot, rec.ExecutablePath)
	if _, err := os.Stat(exePath); err != nil {
		return 0, fmt.Errorf("executable missing, reinstall %s: %w", req.TargetID, err)
	}

	args := ExpandArgs(entry.ArgsTemplate, req.Game, corePath)
	cmd := exec.CommandContext(ctx, exePath, args...)
	cmd.Dir = rec.InstallRoot

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", req.TargetID, err)
	}
	pid := cmd.Process.Pid
	l.log.Info("target launched",
		zap.String("target", req.TargetID),
		zap.Int("pid", pid),
		zap.Strings("args", args))

	// Reap the child in the background so it never zombies while the
	// launcher stays alive.
	go func() { _ = cmd.Wait() }()

	return pid, nil
}

func (l *Launcher) resolveCore(entry catalog.Entry, rec *store.Record, componentID string) (string, error) {
	_, comp, ok := l.catalog.Component(entry.ID, componentID)
	if !ok {
		return "", fmt.Errorf("unknown component %q of %s", componentID, entry.ID)
	}

	key := entry.ID + "/" + componentID
	if _, ok, err := l.store.Get(key); err != nil {
		return "", err
	} else if !ok {
		return "", fmt.Errorf("%s: %w", key, ErrComponentMissing)
	}

	path := filepath.Join(rec.InstallRoot, "cores", comp.File)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%s: %w", key, ErrComponentMissing)
	}
	return path, nil
}

func (l *Launcher) syncBindings(ctx context.Context, req Request, rec *store.Record) {
	if l.bindings == nil || len(req.Profiles) == 0 {
		return
	}
	written, err := l.bindings.Sync(ctx, req.TargetID, req.Profiles, rec.InstallRoot, req.Game)
	if err != nil {
		l.log.Warn("binding sync failed, launching anyway",
			zap.String("target", req.TargetID),
			zap.Error(err))
		return
	}
	if len(written) > 0 {
		l.log.Info("bindings synchronized",
			zap.String("target", req.TargetID),
			zap.Int("files", len(written)))
	}
}

// ExpandArgs renders a launch argument template. {rom} and {core} are
// substituted; an empty template yields the rom alone, matching how most
// emulators accept a bare path.
func ExpandArgs(template, rom, core string) []string {
	if strings.TrimSpace(template) == "" {
		if rom == "" {
			return nil
		}
		return []string{rom}
	}

	var args []string
	for _, field := range strings.Fields(template) {
		field = strings.ReplaceAll(field, "{rom}", rom)
		field = strings.ReplaceAll(field, "{core}", core)
		if field == "" {
			continue
		}
		args = append(args, field)
	}
	return args
}
