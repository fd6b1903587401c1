// Package install orchestrates provisioning: resolve, download, verify,
// extract, first-run setup, and state bookkeeping. Operations on the same
// target are serialized; operations on different targets may run
// concurrently.
package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meridian-launcher/meridian/internal/catalog"
	"github.com/meridian-launcher/meridian/internal/release"
	"github.com/meridian-launcher/meridian/internal/setup"
	"github.com/meridian-launcher/meridian/internal/store"
)

// ErrInstallInProgress is returned when another operation already holds the
// target's lock.
var ErrInstallInProgress = errors.New("operation already in progress for target")

// ErrNotInstalled is returned by operations requiring an existing install.
var ErrNotInstalled = errors.New("target is not installed")

// Resolver finds the latest release asset for a target.
type Resolver interface {
	Resolve(ctx context.Context, entry catalog.Entry) (*release.Asset, error)
	ResolveComponent(entry catalog.Entry, comp catalog.Component) (*release.Asset, error)
}

// Fetcher downloads assets and their verification sidecars into the cache.
type Fetcher interface {
	FetchAsset(ctx context.Context, asset *release.Asset) (string, error)
	FetchSidecar(ctx context.Context, asset *release.Asset, url string) (string, error)
}

// Verifier checks downloaded payloads.
type Verifier interface {
	VerifyChecksum(payloadPath, checksumPath string) error
	VerifySignature(payloadPath, signaturePath, target string) error
	HasKeyring(target string) bool
}

// Extractor unpacks an archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// SetupRunner executes first-run setup for a target.
type SetupRunner interface {
	Run(ctx context.Context, targetID, installRoot string, sources setup.Sources) error
}

// Config wires a Manager.
type Config struct {
	// EmulatorsRoot is the directory holding one install tree per target.
	EmulatorsRoot string
	// LockDir holds per-target lock files.
	LockDir string

	Catalog   *catalog.Catalog
	Resolver  Resolver
	Fetcher   Fetcher
	Verifier  Verifier
	Extractor Extractor
	Setup     SetupRunner
	Store     store.Store
	// Sources are the user-supplied setup inputs (keys, firmware, BIOS).
	Sources setup.Sources
	Log     *zap.Logger
}

// Manager performs install, upgrade, and uninstall operations.
type Manager struct {
	cfg Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.EmulatorsRoot == "" {
		return nil, errors.New("EmulatorsRoot is required")
	}
	if cfg.Catalog == nil || cfg.Resolver == nil || cfg.Fetcher == nil ||
		cfg.Extractor == nil || cfg.Setup == nil || cfg.Store == nil {
		return nil, errors.New("incomplete manager configuration")
	}
	if cfg.LockDir == "" {
		cfg.LockDir = filepath.Join(cfg.EmulatorsRoot, ".locks")
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return &Manager{cfg: cfg, locks: map[string]*sync.Mutex{}}, nil
}

// lockTarget serializes operations per target, both in-process and across
// processes. The returned release function is safe to call once.
func (m *Manager) lockTarget(targetID string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[targetID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[targetID] = l
	}
	m.mu.Unlock()

	if !l.TryLock() {
		return nil, fmt.Errorf("%s: %w", targetID, ErrInstallInProgress)
	}

	fileLock, err := store.AcquireLock(m.cfg.LockDir, targetID)
	if err != nil {
		l.Unlock()
		if errors.Is(err, store.ErrLockHeld) {
			return nil, fmt.Errorf("%s: %w", targetID, ErrInstallInProgress)
		}
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			fileLock.Release()
			l.Unlock()
		})
	}, nil
}

// InstallRoot returns the install directory for a target id.
func (m *Manager) InstallRoot(targetID string) string {
	return filepath.Join(m.cfg.EmulatorsRoot, filepath.FromSlash(targetID))
}

// Install ensures targetID is installed and set up. An intact existing
// install is a no-op that touches neither network nor disk beyond a few
// stats. Incomplete setup is retried.
func (m *Manager) Install(ctx context.Context, targetID string) (*store.Record, error) {
	entry, ok := m.cfg.Catalog.Get(targetID)
	if !ok {
		return nil, fmt.Errorf("unknown target %q", targetID)
	}

	unlock, err := m.lockTarget(targetID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if rec, intact, err := m.intactRecord(targetID); err != nil {
		return nil, err
	} else if intact {
		if rec.SetupComplete {
			m.cfg.Log.Info("already installed", zap.String("target", targetID),
				zap.String("version", rec.Version))
			return rec, nil
		}
		// Binaries are fine; only setup needs finishing.
		return m.finishSetup(ctx, rec)
	}

	asset, err := m.cfg.Resolver.Resolve(ctx, entry)
	if err != nil {
		return nil, err
	}
	return m.provision(ctx, entry, asset)
}

// Upgrade moves targetID to the latest release. Already being current is a
// no-op. The previous install stays untouched until the new version is
// fully extracted, and is restored if the swap fails.
func (m *Manager) Upgrade(ctx context.Context, targetID string) (*store.Record, error) {
	entry, ok := m.cfg.Catalog.Get(targetID)
	if !ok {
		return nil, fmt.Errorf("unknown target %q", targetID)
	}

	unlock, err := m.lockTarget(targetID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, ok, err := m.cfg.Store.Get(targetID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", targetID, ErrNotInstalled)
	}

	asset, err := m.cfg.Resolver.Resolve(ctx, entry)
	if err != nil {
		return nil, err
	}
	if asset.Version == rec.Version && rec.SetupComplete {
		m.cfg.Log.Info("already current", zap.String("target", targetID),
			zap.String("version", rec.Version))
		return rec, nil
	}
	return m.provision(ctx, entry, asset)
}

// Uninstall removes the target's install tree and record. A component
// key ("base/component") removes only the component's payload from the
// base target's tree.
func (m *Manager) Uninstall(targetID string) error {
	unlock, err := m.lockTarget(targetID)
	if err != nil {
		return err
	}
	defer unlock()

	rec, ok, err := m.cfg.Store.Get(targetID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", targetID, ErrNotInstalled)
	}

	if strings.Contains(targetID, "/") {
		if rec.ExecutablePath != "" {
			payload := filepath.Join(rec.InstallRoot, rec.ExecutablePath)
			if err := os.Remove(payload); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove component payload: %w", err)
			}
		}
		if err := m.cfg.Store.Delete(targetID); err != nil {
			return err
		}
		m.cfg.Log.Info("component uninstalled", zap.String("target", targetID))
		return nil
	}

	if err := os.RemoveAll(m.InstallRoot(targetID)); err != nil {
		return fmt.Errorf("remove install tree: %w", err)
	}
	if err := m.cfg.Store.Delete(targetID); err != nil {
		return err
	}

	// Components living under the removed tree are gone with it.
	recs, err := m.cfg.Store.List()
	if err != nil {
		return err
	}
	for _, r := range recs {
		if strings.HasPrefix(r.TargetID, targetID+"/") {
			if err := m.cfg.Store.Delete(r.TargetID); err != nil {
				return err
			}
		}
	}

	m.cfg.Log.Info("uninstalled", zap.String("target", targetID))
	return nil
}

// InstallComponent installs one component of a composite target into the
// base target's install tree. The base must already be installed.
func (m *Manager) InstallComponent(ctx context.Context, baseID, componentID string) (*store.Record, error) {
	entry, comp, ok := m.cfg.Catalog.Component(baseID, componentID)
	if !ok {
		return nil, fmt.Errorf("unknown component %s/%s", baseID, componentID)
	}

	key := baseID + "/" + componentID
	unlock, err := m.lockTarget(key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	baseRec, ok, err := m.cfg.Store.Get(baseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("base %s: %w", baseID, ErrNotInstalled)
	}

	asset, err := m.cfg.Resolver.ResolveComponent(entry, comp)
	if err != nil {
		return nil, err
	}

	coresDir := filepath.Join(baseRec.InstallRoot, "cores")
	if rec, ok, _ := m.cfg.Store.Get(key); ok {
		if _, err := os.Stat(filepath.Join(coresDir, comp.File)); err == nil {
			return rec, nil
		}
	}

	archivePath, err := m.cfg.Fetcher.FetchAsset(ctx, asset)
	if err != nil {
		return nil, err
	}

	staging := filepath.Join(m.cfg.EmulatorsRoot, ".staging", uuid.New().String())
	defer os.RemoveAll(staging)
	if err := m.cfg.Extractor.Extract(ctx, archivePath, staging); err != nil {
		return nil, err
	}

	payload, err := findFile(staging, comp.File)
	if err != nil {
		return nil, fmt.Errorf("component payload: %w", err)
	}
	if err := os.MkdirAll(coresDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cores dir: %w", err)
	}
	if err := os.Rename(payload, filepath.Join(coresDir, comp.File)); err != nil {
		return nil, fmt.Errorf("place component payload: %w", err)
	}

	rec := &store.Record{
		TargetID:       key,
		Version:        asset.Version,
		InstallRoot:    baseRec.InstallRoot,
		ExecutablePath: filepath.Join("cores", comp.File),
		InstalledAt:    time.Now().UTC(),
		SetupComplete:  true,
	}
	if err := m.cfg.Store.Put(rec); err != nil {
		return nil, err
	}
	m.cfg.Log.Info("component installed", zap.String("target", key),
		zap.String("version", asset.Version))
	return rec, nil
}

// provision runs the download-verify-extract-swap-setup pipeline for one
// resolved asset. The target's previous install, if any, survives every
// failure before the swap and is restored if the swap itself fails.
func (m *Manager) provision(ctx context.Context, entry catalog.Entry, asset *release.Asset) (*store.Record, error) {
	archivePath, err := m.cfg.Fetcher.FetchAsset(ctx, asset)
	if err != nil {
		return nil, err
	}
	if err := m.verify(ctx, entry.ID, asset, archivePath); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	staging := filepath.Join(m.cfg.EmulatorsRoot, ".staging", uuid.New().String())
	defer os.RemoveAll(staging)
	if err := m.cfg.Extractor.Extract(ctx, archivePath, staging); err != nil {
		return nil, err
	}

	exeRel, err := findExecutable(staging, entry.ExeCandidates)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", entry.ID, asset.Version, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root := m.InstallRoot(entry.ID)
	if err := m.swap(staging, root); err != nil {
		return nil, err
	}

	rec := &store.Record{
		TargetID:       entry.ID,
		Version:        asset.Version,
		InstallRoot:    root,
		ExecutablePath: exeRel,
		InstalledAt:    time.Now().UTC(),
	}
	if err := m.cfg.Store.Put(rec); err != nil {
		return nil, err
	}

	m.cfg.Log.Info("installed", zap.String("target", entry.ID),
		zap.String("version", asset.Version))
	return m.finishSetup(ctx, rec)
}

// verify checks the downloaded payload against whatever verification the
// release publishes. No sidecars means the payload installs unverified.
func (m *Manager) verify(ctx context.Context, targetID string, asset *release.Asset, archivePath string) error {
	if m.cfg.Verifier == nil {
		return nil
	}
	if asset.ChecksumURL != "" {
		checksumPath, err := m.cfg.Fetcher.FetchSidecar(ctx, asset, asset.ChecksumURL)
		if err != nil {
			return fmt.Errorf("fetch checksums: %w", err)
		}
		if err := m.cfg.Verifier.VerifyChecksum(archivePath, checksumPath); err != nil {
			return err
		}
	}
	if asset.SignatureURL != "" && m.cfg.Verifier.HasKeyring(targetID) {
		sigPath, err := m.cfg.Fetcher.FetchSidecar(ctx, asset, asset.SignatureURL)
		if err != nil {
			return fmt.Errorf("fetch signature: %w", err)
		}
		if err := m.cfg.Verifier.VerifySignature(archivePath, sigPath, targetID); err != nil {
			return err
		}
	}
	return nil
}

// swap atomically replaces root with the staged tree, keeping the previous
// tree aside until the new one is in place.
func (m *Manager) swap(staging, root string) error {
	if err := os.MkdirAll(filepath.Dir(root), 0o755); err != nil {
		return fmt.Errorf("create emulators root: %w", err)
	}

	backup := root + ".old"
	os.RemoveAll(backup)

	hadPrevious := false
	if _, err := os.Stat(root); err == nil {
		hadPrevious = true
		if err := os.Rename(root, backup); err != nil {
			return fmt.Errorf("set aside previous install: %w", err)
		}
	}

	if err := os.Rename(staging, root); err != nil {
		if hadPrevious {
			os.Rename(backup, root)
		}
		return fmt.Errorf("activate new install: %w", err)
	}

	os.RemoveAll(backup)
	return nil
}

// finishSetup runs first-run setup and records the outcome. A setup
// failure leaves the target installed with SetupComplete false, so a later
// Install retries setup without reinstalling.
func (m *Manager) finishSetup(ctx context.Context, rec *store.Record) (*store.Record, error) {
	if err := m.cfg.Setup.Run(ctx, rec.TargetID, rec.InstallRoot, m.cfg.Sources); err != nil {
		rec.SetupComplete = false
		if putErr := m.cfg.Store.Put(rec); putErr != nil {
			return nil, putErr
		}
		return rec, err
	}
	rec.SetupComplete = true
	if err := m.cfg.Store.Put(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// intactRecord reports whether the stored record still matches reality:
// the install root and, when recorded, the executable must exist. The
// executable path is stored relative to the install root.
func (m *Manager) intactRecord(targetID string) (*store.Record, bool, error) {
	rec, ok, err := m.cfg.Store.Get(targetID)
	if err != nil || !ok {
		return nil, false, err
	}
	if _, err := os.Stat(rec.InstallRoot); err != nil {
		return rec, false, nil
	}
	if rec.ExecutablePath != "" {
		if _, err := os.Stat(filepath.Join(rec.InstallRoot, rec.ExecutablePath)); err != nil {
			return rec, false, nil
		}
	}
	return rec, true, nil
}

// findExecutable locates the emulator executable in an extracted tree,
// trying candidates in order at the top level and then anywhere in the
// tree. The returned path is relative to root.
func findExecutable(root string, candidates []string) (string, error) {
	for _, name := range candidates {
		if fi, err := os.Stat(filepath.Join(root, name)); err == nil && fi.Mode().IsRegular() {
			return name, nil
		}
	}
	for _, name := range candidates {
		if found, err := findFile(root, name); err == nil {
			rel, err := filepath.Rel(root, found)
			if err == nil {
				return rel, nil
			}
		}
	}
	return "", errors.New("no executable found in extracted payload")
}

// findFile walks root for a file with the given basename.
func findFile(root, name string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("%s not found", name)
	}
	return found, nil
}
