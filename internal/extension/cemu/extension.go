package cemu

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/meridian-launcher/meridian/internal/binding"
)

// Extension synchronizes neutral controller profiles into a Cemu install
// before launch.
type Extension struct {
	log *zap.Logger
}

// New creates the Cemu binding extension.
func New(log *zap.Logger) *Extension {
	return &Extension{log: log}
}

// TargetID implements binding.Extension.
func (e *Extension) TargetID() string { return "cemu" }

// Sync writes one named profile and one active slot file per connected
// player, deactivates slots for disconnected players, and assigns the
// written profiles to the launched game when its title id is known.
func (e *Extension) Sync(ctx context.Context, profiles []binding.Profile, installRoot, game string) ([]string, error) {
	repo := NewRepository(installRoot)

	var written []string
	gameAssignments := map[int]string{}

	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if p.Player < 0 || p.Player > 7 {
			continue
		}

		native := ToNative(p, ProfileName(p.Player))
		if native == nil {
			// Disconnected or untranslatable: clear the slot.
			if _, err := repo.DeactivateSlot(p.Player); err != nil {
				return written, err
			}
			if _, err := repo.DeleteProfile(ProfileName(p.Player)); err != nil {
				return written, err
			}
			continue
		}

		merged, err := e.mergeWithSlot(repo, p.Player, native)
		if err != nil {
			merged = native
		}

		path, err := repo.SaveProfile(merged, "")
		if err != nil {
			return written, fmt.Errorf("save profile for player %d: %w", p.Player+1, err)
		}
		written = append(written, path)

		slotPath, err := repo.ActivateSlot(merged, p.Player)
		if err != nil {
			return written, fmt.Errorf("activate slot %d: %w", p.Player, err)
		}
		written = append(written, slotPath)

		gameAssignments[p.Player+1] = merged.ProfileName
	}

	if len(gameAssignments) > 0 && game != "" {
		if titleID := extractTitleID(game, installRoot); titleID != "" {
			path, err := repo.AssignToGame(titleID, gameAssignments)
			if err != nil {
				return written, fmt.Errorf("assign game profile: %w", err)
			}
			written = append(written, path)
		}
	}

	return written, nil
}

// mergeWithSlot preserves an existing slot file's device pairing (API,
// UUID, calibration) and replaces only the mappings, type, and name, so a
// pairing established through Cemu's own UI survives a sync.
func (e *Extension) mergeWithSlot(repo *Repository, slot int, fresh *Profile) (*Profile, error) {
	existing, err := repo.LoadSlot(slot)
	if err != nil || existing == nil {
		return fresh, err
	}
	if len(existing.Controllers) == 0 || len(fresh.Controllers) == 0 {
		return fresh, nil
	}

	old := existing.Controllers[0]
	if old.UUID == "" || old.UUID == "0" {
		return fresh, nil
	}
	neu := fresh.Controllers[0]

	merged := ControllerEntry{
		API:         old.API,
		UUID:        old.UUID,
		DisplayName: firstNonEmpty(old.DisplayName, neu.DisplayName),
		ProductGUID: firstNonEmpty(old.ProductGUID, neu.ProductGUID),
		Rumble:      old.Rumble,
		Motion:      neu.Motion,
		Axis:        old.Axis,
		Rotation:    old.Rotation,
		Trigger:     old.Trigger,
		Mappings:    neu.Mappings,
	}
	return &Profile{
		EmulatedType: fresh.EmulatedType,
		ProfileName:  fresh.ProfileName,
		Controllers:  []ControllerEntry{merged},
	}, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

var titleIDRe = regexp.MustCompile(`^[0-9a-fA-F]{16}`)

// titleListCache mirrors the entries of Cemu's title_list_cache.xml.
type titleListCache struct {
	Entries []struct {
		Path    string `xml:"path"`
		TitleID string `xml:"title_id"`
	} `xml:"Entry"`
}

// extractTitleID finds a 16-hex-digit Wii U title id for the game path,
// first from the filename and then from Cemu's title list cache.
func extractTitleID(gamePath, installRoot string) string {
	stem := strings.TrimSuffix(filepath.Base(gamePath), filepath.Ext(gamePath))
	if m := titleIDRe.FindString(stem); m != "" {
		return m
	}

	for _, cache := range []string{
		filepath.Join(installRoot, "portable", "title_list_cache.xml"),
		filepath.Join(installRoot, "title_list_cache.xml"),
	} {
		data, err := os.ReadFile(cache)
		if err != nil {
			continue
		}
		var parsed titleListCache
		if err := xml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		for _, entry := range parsed.Entries {
			if strings.TrimSpace(entry.Path) == gamePath {
				return strings.TrimSpace(entry.TitleID)
			}
		}
	}
	return ""
}
