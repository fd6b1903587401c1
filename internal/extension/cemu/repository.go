package cemu

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Repository manages the controllerProfiles and gameProfiles directories
// of one Cemu installation. Profile resolution follows Cemu's own logic:
// portable/controllerProfiles when the install runs in portable mode,
// controllerProfiles at the install root otherwise.
type Repository struct {
	root string
}

// NewRepository creates a repository over a Cemu install root (the
// directory holding the executable).
func NewRepository(root string) *Repository {
	return &Repository{root: root}
}

var (
	validNameRe  = regexp.MustCompile(`^[A-Za-z0-9_ .()-]+$`)
	unsafeRuneRe = regexp.MustCompile(`[^\w .()-]`)
)

func isReservedName(name string) bool {
	lower := strings.ToLower(name)
	if !strings.HasPrefix(lower, "controller") {
		return false
	}
	rest := strings.TrimPrefix(lower, "controller")
	return len(rest) == 1 && rest[0] >= '0' && rest[0] <= '9'
}

// sanitizeName returns a safe filename stem, guarding both against
// filesystem-hostile characters and the reserved controllerN slot names.
func sanitizeName(name string) (string, error) {
	cleaned := strings.TrimSpace(unsafeRuneRe.ReplaceAllString(name, "_"))
	if cleaned == "" {
		return "", fmt.Errorf("profile name %q is empty after sanitization", name)
	}
	if isReservedName(cleaned) {
		cleaned = "profile_" + cleaned
	}
	return cleaned, nil
}

// ProfileDir returns the active controllerProfiles directory, creating it
// if needed.
func (r *Repository) ProfileDir() (string, error) {
	portableRoot := filepath.Join(r.root, "portable")
	dir := filepath.Join(r.root, "controllerProfiles")
	if fi, err := os.Stat(portableRoot); err == nil && fi.IsDir() {
		dir = filepath.Join(portableRoot, "controllerProfiles")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create profile directory: %w", err)
	}
	return dir, nil
}

// GameProfileDir returns the gameProfiles directory, creating it if
// needed.
func (r *Repository) GameProfileDir() (string, error) {
	dir := filepath.Join(r.root, "gameProfiles")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create game profile directory: %w", err)
	}
	return dir, nil
}

// ListProfiles returns the sorted named profiles, excluding the
// controllerN slot files.
func (r *Repository) ListProfiles() ([]string, error) {
	dir, err := r.ProfileDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xml") {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), ".xml")
		if validNameRe.MatchString(stem) && !isReservedName(stem) {
			names = append(names, stem)
		}
	}
	sort.Strings(names)
	return names, nil
}

// SaveProfile writes a named profile. The name is sanitized; the write is
// atomic. Returns the path written.
func (r *Repository) SaveProfile(p *Profile, name string) (string, error) {
	if name == "" {
		name = p.ProfileName
	}
	resolved, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	if p.ProfileName == "" {
		p.ProfileName = resolved
	}

	dir, err := r.ProfileDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, resolved+".xml")
	if err := WriteProfileFile(p, path); err != nil {
		return "", err
	}
	return path, nil
}

// LoadProfile loads a named profile.
func (r *Repository) LoadProfile(name string) (*Profile, error) {
	dir, err := r.ProfileDir()
	if err != nil {
		return nil, err
	}
	return ReadProfileFile(filepath.Join(dir, name+".xml"))
}

// DeleteProfile removes a named profile, reporting whether it existed.
func (r *Repository) DeleteProfile(name string) (bool, error) {
	dir, err := r.ProfileDir()
	if err != nil {
		return false, err
	}
	path := filepath.Join(dir, name+".xml")
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ActivateSlot writes the profile as controller<slot>.xml, the file Cemu
// loads for that player at startup. Returns the path written.
func (r *Repository) ActivateSlot(p *Profile, slot int) (string, error) {
	if slot < 0 || slot > 7 {
		return "", fmt.Errorf("slot must be 0-7, got %d", slot)
	}
	dir, err := r.ProfileDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("controller%d.xml", slot))
	if err := WriteProfileFile(p, path); err != nil {
		return "", err
	}
	return path, nil
}

// DeactivateSlot removes a slot file, reporting whether it existed.
func (r *Repository) DeactivateSlot(slot int) (bool, error) {
	if slot < 0 || slot > 7 {
		return false, fmt.Errorf("slot must be 0-7, got %d", slot)
	}
	dir, err := r.ProfileDir()
	if err != nil {
		return false, err
	}
	path := filepath.Join(dir, fmt.Sprintf("controller%d.xml", slot))
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// LoadSlot reads the profile currently active in a slot, or nil when the
// slot file does not exist.
func (r *Repository) LoadSlot(slot int) (*Profile, error) {
	if slot < 0 || slot > 7 {
		return nil, fmt.Errorf("slot must be 0-7, got %d", slot)
	}
	dir, err := r.ProfileDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fmt.Sprintf("controller%d.xml", slot))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return UnmarshalProfile(data)
}

var gameControllerKeyRe = regexp.MustCompile(`^controller[1-9]\d*$`)

// AssignToGame writes or patches the game profile for titleID so each
// listed player uses its named controller profile. Existing controller
// assignments are cleared first; all other lines are preserved. Returns
// the path written.
func (r *Repository) AssignToGame(titleID string, playerProfiles map[int]string) (string, error) {
	clean := strings.TrimSpace(strings.ReplaceAll(titleID, "-", ""))
	dir, err := r.GameProfileDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, clean+".ini")

	var kept []string
	if data, err := os.ReadFile(path); err == nil {
		for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
			stripped := strings.TrimSpace(line)
			if stripped != "" {
				key := strings.ToLower(strings.TrimSpace(strings.SplitN(stripped, "=", 2)[0]))
				if gameControllerKeyRe.MatchString(key) {
					continue
				}
			}
			kept = append(kept, line)
		}
	}

	players := make([]int, 0, len(playerProfiles))
	for p := range playerProfiles {
		players = append(players, p)
	}
	sort.Ints(players)

	lines := make([]string, 0, len(players)+len(kept))
	for _, p := range players {
		lines = append(lines, fmt.Sprintf("controller%d = %s", p, playerProfiles[p]))
	}
	lines = append(lines, kept...)

	content := strings.Join(lines, "\n") + "\n"
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write game profile: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename game profile: %w", err)
	}
	return path, nil
}
