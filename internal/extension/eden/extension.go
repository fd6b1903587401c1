package eden

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/meridian-launcher/meridian/internal/binding"
)

// Extension synchronizes neutral controller profiles into an Eden
// install by patching the [Controls] section of its Qt settings.
type Extension struct {
	log *zap.Logger
}

// New creates the Eden binding extension.
func New(log *zap.Logger) *Extension {
	return &Extension{log: log}
}

// TargetID implements binding.Extension.
func (e *Extension) TargetID() string { return "eden" }

// Sync patches qt-config.ini with keys for every profile, marking
// disconnected players as such. The game argument is unused: Eden has no
// per-game controller configuration.
func (e *Extension) Sync(ctx context.Context, profiles []binding.Profile, installRoot, game string) ([]string, error) {
	var updates []kv
	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.Player < 0 || p.Player > 9 {
			e.log.Warn("skipping profile with out-of-range player",
				zap.Int("player", p.Player))
			continue
		}
		updates = append(updates, playerKeys(p)...)
	}
	if len(updates) == 0 {
		return nil, nil
	}

	path := ConfigPath(installRoot)
	if err := PatchControls(path, updates); err != nil {
		return nil, fmt.Errorf("patch eden controls: %w", err)
	}
	return []string{path}, nil
}
