package binding

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Extension translates neutral profiles into one emulator's native
// controller configuration. Sync returns the paths it wrote.
type Extension interface {
	TargetID() string
	Sync(ctx context.Context, profiles []Profile, installRoot, game string) ([]string, error)
}

// SyncTimeout bounds one extension's sync so a wedged filesystem cannot
// stall a launch.
const SyncTimeout = 10 * time.Second

// Registry dispatches profile synchronization to the extension registered
// for a target. Targets without an extension are skipped silently: most
// emulators simply have no profile translation.
type Registry struct {
	extensions map[string]Extension
	log        *zap.Logger
}

// NewRegistry creates a registry over the given extensions.
func NewRegistry(exts []Extension, log *zap.Logger) *Registry {
	m := make(map[string]Extension, len(exts))
	for _, e := range exts {
		m[e.TargetID()] = e
	}
	return &Registry{extensions: m, log: log}
}

// Has reports whether a target has a registered extension.
func (r *Registry) Has(targetID string) bool {
	_, ok := r.extensions[targetID]
	return ok
}

// Sync pushes profiles into targetID's native configuration. game is the
// rom or title the sync precedes; extensions may use it for per-game
// overrides and may ignore it. Unknown targets return no paths and no
// error.
func (r *Registry) Sync(ctx context.Context, targetID string, profiles []Profile, installRoot, game string) ([]string, error) {
	ext, ok := r.extensions[targetID]
	if !ok {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, SyncTimeout)
	defer cancel()

	written, err := ext.Sync(ctx, profiles, installRoot, game)
	if err != nil {
		return written, err
	}
	r.log.Debug("bindings synchronized",
		zap.String("target", targetID),
		zap.Int("files", len(written)))
	return written, nil
}
