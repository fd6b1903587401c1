package eden

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const controlsSection = "[Controls]"

// ConfigPath returns the Qt settings file of an Eden install.
func ConfigPath(installRoot string) string {
	return filepath.Join(installRoot, "user", "config", "qt-config.ini")
}

// ReadControls parses the [Controls] section into a key/value map,
// stripping the quoting Qt applies to values with separators. A missing
// file or missing section yields an empty map.
func ReadControls(path string) (map[string]string, error) {
	out := map[string]string{}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read eden config: %w", err)
	}

	inControls := false
	for _, line := range strings.Split(string(data), "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "[") {
			inControls = stripped == controlsSection
			continue
		}
		if !inControls || stripped == "" || strings.HasPrefix(stripped, ";") {
			continue
		}
		key, value, found := strings.Cut(stripped, "=")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
			value = value[1 : len(value)-1]
		}
		out[strings.TrimSpace(key)] = value
	}
	return out, nil
}

// PatchControls rewrites only the [Controls] keys named in updates,
// preserving every other line of the settings file byte for byte. Keys
// already present in the section are replaced in place; the rest are
// inserted at the end of the section. A missing section is created. The
// file is replaced atomically.
func PatchControls(path string, updates []kv) error {
	if len(updates) == 0 {
		return nil
	}

	var lines []string
	trailingNewline := true
	if data, err := os.ReadFile(path); err == nil {
		text := string(data)
		trailingNewline = text == "" || strings.HasSuffix(text, "\n")
		lines = strings.Split(strings.TrimSuffix(text, "\n"), "\n")
		if len(lines) == 1 && lines[0] == "" {
			lines = nil
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read eden config: %w", err)
	}

	byKey := make(map[string]int, len(updates))
	for i, u := range updates {
		byKey[u.Key] = i
	}
	consumed := make([]bool, len(updates))

	pending := func() []string {
		var add []string
		for i, u := range updates {
			if !consumed[i] {
				add = append(add, u.Key+"="+u.Value)
				consumed[i] = true
			}
		}
		return add
	}

	var out []string
	inControls := false
	sectionSeen := false

	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "[") {
			if inControls {
				out = append(out, pending()...)
			}
			inControls = stripped == controlsSection
			if inControls {
				sectionSeen = true
			}
			out = append(out, line)
			continue
		}
		if inControls {
			if key, _, found := strings.Cut(stripped, "="); found {
				if i, ok := byKey[strings.TrimSpace(key)]; ok && !consumed[i] {
					out = append(out, updates[i].Key+"="+updates[i].Value)
					consumed[i] = true
					continue
				}
			}
		}
		out = append(out, line)
	}

	if inControls {
		out = append(out, pending()...)
	}
	if !sectionSeen {
		if len(out) > 0 {
			out = append(out, "")
		}
		out = append(out, controlsSection)
		out = append(out, pending()...)
	}

	content := strings.Join(out, "\n")
	if trailingNewline {
		content += "\n"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create eden config directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write eden config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename eden config: %w", err)
	}
	return nil
}
