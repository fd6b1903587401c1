// Package setup runs first-run setup procedures after a target is
// installed: portable-mode bootstrapping, firmware and BIOS placement, and
// key imports. Procedures are declarative and idempotent; every action
// only creates directories, drops marker files, or copies user-supplied
// files. Nothing is ever synthesized.
package setup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ActionKind identifies what a setup action does.
type ActionKind string

const (
	// ActionPortableBootstrap creates the directories and marker file
	// that switch an emulator into portable (self-contained) mode.
	ActionPortableBootstrap ActionKind = "portable-bootstrap"
	// ActionFileCopy copies one user-supplied file into the install tree.
	ActionFileCopy ActionKind = "file-copy"
	// ActionDirCopy copies a user-supplied directory tree into the
	// install tree.
	ActionDirCopy ActionKind = "dir-copy"
)

// Action is a single declarative setup step.
type Action struct {
	Kind ActionKind

	// Dirs are created relative to the install root.
	Dirs []string
	// MarkerFile is an empty file created relative to the install root
	// (portable bootstrap only).
	MarkerFile string

	// SourceKey names the user-supplied source path in Sources.
	SourceKey string
	// Dest is the destination, relative to the install root. For file
	// copies it is the destination file; for directory copies the
	// destination directory.
	Dest string
	// Required marks actions whose missing source fails the procedure.
	// Optional actions are skipped with a log line instead.
	Required bool
}

// Procedure is the ordered list of setup actions for one target.
type Procedure struct {
	TargetID string
	Actions  []Action
}

// Sources maps source keys to user-supplied paths on disk, typically
// loaded from settings.
type Sources map[string]string

// SetupError reports a failed or unsatisfiable setup action.
type SetupError struct {
	Target string
	Reason string
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup for %s: %s", e.Target, e.Reason)
}

// Registry holds the setup procedures keyed by target id. Targets without
// a procedure need no first-run setup.
type Registry struct {
	procedures map[string]Procedure
	log        *zap.Logger
}

// NewRegistry creates a registry over the given procedures.
func NewRegistry(procs []Procedure, log *zap.Logger) *Registry {
	m := make(map[string]Procedure, len(procs))
	for _, p := range procs {
		m[p.TargetID] = p
	}
	return &Registry{procedures: m, log: log}
}

// Lookup returns the procedure for targetID.
func (r *Registry) Lookup(targetID string) (Procedure, bool) {
	p, ok := r.procedures[targetID]
	return p, ok
}

// Run executes the procedure for targetID against installRoot. Targets
// without a registered procedure succeed immediately. Rerunning a completed
// procedure is a cheap no-op: existing files of the right size are kept.
func (r *Registry) Run(ctx context.Context, targetID, installRoot string, sources Sources) error {
	proc, ok := r.procedures[targetID]
	if !ok {
		return nil
	}

	for _, action := range proc.Actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runAction(proc.TargetID, action, installRoot, sources); err != nil {
			return err
		}
	}
	r.log.Info("setup complete", zap.String("target", targetID))
	return nil
}

func (r *Registry) runAction(target string, action Action, installRoot string, sources Sources) error {
	switch action.Kind {
	case ActionPortableBootstrap:
		for _, dir := range action.Dirs {
			if err := os.MkdirAll(filepath.Join(installRoot, filepath.FromSlash(dir)), 0o755); err != nil {
				return &SetupError{Target: target, Reason: fmt.Sprintf("create %s: %v", dir, err)}
			}
		}
		if action.MarkerFile != "" {
			marker := filepath.Join(installRoot, filepath.FromSlash(action.MarkerFile))
			if _, err := os.Stat(marker); os.IsNotExist(err) {
				if err := os.WriteFile(marker, nil, 0o644); err != nil {
					return &SetupError{Target: target, Reason: fmt.Sprintf("create marker %s: %v", action.MarkerFile, err)}
				}
			}
		}
		return nil

	case ActionFileCopy:
		src, ok := sources[action.SourceKey]
		if !ok || src == "" {
			return r.missingSource(target, action)
		}
		fi, err := os.Stat(src)
		if err != nil || fi.IsDir() || fi.Size() == 0 {
			return &SetupError{Target: target,
				Reason: fmt.Sprintf("source %s (%s) is not a usable file", action.SourceKey, src)}
		}
		dest := filepath.Join(installRoot, filepath.FromSlash(action.Dest))
		if same, _ := sameSize(src, dest); same {
			return nil
		}
		if err := copyFile(src, dest); err != nil {
			return &SetupError{Target: target, Reason: fmt.Sprintf("copy %s: %v", action.SourceKey, err)}
		}
		return nil

	case ActionDirCopy:
		src, ok := sources[action.SourceKey]
		if !ok || src == "" {
			return r.missingSource(target, action)
		}
		fi, err := os.Stat(src)
		if err != nil || !fi.IsDir() {
			return &SetupError{Target: target,
				Reason: fmt.Sprintf("source %s (%s) is not a directory", action.SourceKey, src)}
		}
		dest := filepath.Join(installRoot, filepath.FromSlash(action.Dest))
		if err := copyTree(src, dest); err != nil {
			return &SetupError{Target: target, Reason: fmt.Sprintf("copy %s: %v", action.SourceKey, err)}
		}
		return nil

	default:
		return &SetupError{Target: target, Reason: fmt.Sprintf("unknown action kind %q", action.Kind)}
	}
}

// missingSource fails required actions and skips optional ones.
func (r *Registry) missingSource(target string, action Action) error {
	if action.Required {
		return &SetupError{Target: target,
			Reason: fmt.Sprintf("required source %s is not configured", action.SourceKey)}
	}
	r.log.Info("skipping optional setup action",
		zap.String("target", target),
		zap.String("source", action.SourceKey))
	return nil
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dest + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}

func copyTree(srcDir, destDir string) error {
	return filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if same, _ := sameSize(path, target); same {
			return nil
		}
		return copyFile(path, target)
	})
}

func sameSize(a, b string) (bool, error) {
	fa, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return fa.Size() == fb.Size() && fa.Size() > 0, nil
}
