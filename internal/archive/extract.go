// Package archive extracts release archives into install directories. All
// formats share the same guarantees: entries may not escape the destination,
// and a failed extraction removes everything it wrote without touching
// content the destination already held.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/ulikunitz/xz"
	"go.uber.org/zap"

	"github.com/meridian-launcher/meridian/internal/catalog"
)

var (
	// ErrUnsupportedArchive is returned for formats the extractor does not
	// handle.
	ErrUnsupportedArchive = errors.New("unsupported archive format")
	// ErrCorruptArchive is returned when an archive cannot be read.
	ErrCorruptArchive = errors.New("corrupt archive")
	// ErrUnsafeArchiveEntry is returned when an entry path would escape
	// the destination directory.
	ErrUnsafeArchiveEntry = errors.New("unsafe archive entry path")
)

// Extractor unpacks release archives.
type Extractor struct {
	log *zap.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(log *zap.Logger) *Extractor {
	return &Extractor{log: log}
}

// DetectKind infers the archive family from a filename.
func DetectKind(name string) (catalog.ArchiveKind, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return catalog.ArchiveZip, nil
	case strings.HasSuffix(lower, ".7z"):
		return catalog.Archive7z, nil
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return catalog.ArchiveTarGz, nil
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return catalog.ArchiveTarXz, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedArchive, name)
	}
}

// Extract unpacks archivePath into destDir. The destination is created if
// missing; on any failure every path the extraction created is removed, so
// callers never see a half-extracted tree and pre-existing destination
// content survives untouched.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) error {
	kind, err := DetectKind(archivePath)
	if err != nil {
		return err
	}

	ex, err := newExtraction(destDir)
	if err != nil {
		return err
	}

	switch kind {
	case catalog.ArchiveZip:
		err = e.extractZip(ctx, archivePath, ex)
	case catalog.Archive7z:
		err = e.extract7z(ctx, archivePath, ex)
	case catalog.ArchiveTarGz, catalog.ArchiveTarXz:
		err = e.extractTar(ctx, archivePath, ex, kind)
	}
	if err != nil {
		ex.cleanup()
		return err
	}
	return nil
}

// extraction tracks the paths one Extract call creates so a failure can
// remove exactly those and nothing else.
type extraction struct {
	destDir     string
	createdDest bool
	created     []string
}

func newExtraction(destDir string) (*extraction, error) {
	ex := &extraction{destDir: destDir}
	if _, err := os.Stat(destDir); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat dest dir: %w", err)
		}
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return nil, fmt.Errorf("create dest dir: %w", err)
		}
		ex.createdDest = true
	}
	return ex, nil
}

// ensureDir creates target and any missing parents under destDir,
// recording each directory it makes.
func (ex *extraction) ensureDir(target string) error {
	if target == ex.destDir {
		return nil
	}
	if _, err := os.Stat(target); err == nil {
		return nil
	}
	if err := ex.ensureDir(filepath.Dir(target)); err != nil {
		return err
	}
	if err := os.Mkdir(target, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", target, err)
	}
	ex.created = append(ex.created, target)
	return nil
}

// track records target for cleanup unless it already existed before this
// extraction.
func (ex *extraction) track(target string) {
	if _, err := os.Lstat(target); err != nil {
		ex.created = append(ex.created, target)
	}
}

// cleanup removes what this extraction created, newest first. A
// destination that existed beforehand keeps its prior content.
func (ex *extraction) cleanup() {
	if ex.createdDest {
		os.RemoveAll(ex.destDir)
		return
	}
	for i := len(ex.created) - 1; i >= 0; i-- {
		os.RemoveAll(ex.created[i])
	}
}

// securePath resolves an entry name under destDir, rejecting absolute paths
// and any traversal outside the destination.
func securePath(destDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchiveEntry, name)
	}
	target := filepath.Join(destDir, cleaned)
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchiveEntry, name)
	}
	return target, nil
}

func (ex *extraction) writeEntry(target string, mode os.FileMode, r io.Reader) error {
	if err := ex.ensureDir(filepath.Dir(target)); err != nil {
		return err
	}
	perm := mode.Perm()
	if perm == 0 {
		perm = 0o644
	}
	ex.track(target)
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}
	return out.Close()
}

func (e *Extractor) extractZip(ctx context.Context, archivePath string, ex *extraction) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := securePath(ex.destDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := ex.ensureDir(target); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("%w: open entry %s: %v", ErrCorruptArchive, f.Name, err)
		}
		err = ex.writeEntry(target, f.Mode(), rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Extractor) extract7z(ctx context.Context, archivePath string, ex *extraction) error {
	sz, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	defer sz.Close()

	for _, f := range sz.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := securePath(ex.destDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := ex.ensureDir(target); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("%w: open entry %s: %v", ErrCorruptArchive, f.Name, err)
		}
		err = ex.writeEntry(target, f.Mode(), rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Extractor) extractTar(ctx context.Context, archivePath string, ex *extraction, kind catalog.ArchiveKind) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var decompressed io.Reader
	switch kind {
	case catalog.ArchiveTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptArchive, err)
		}
		defer gz.Close()
		decompressed = gz
	case catalog.ArchiveTarXz:
		xr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptArchive, err)
		}
		decompressed = xr
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedArchive, kind)
	}

	tr := tar.NewReader(decompressed)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: read tar header: %v", ErrCorruptArchive, err)
		}

		target, err := securePath(ex.destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := ex.ensureDir(target); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := ex.writeEntry(target, os.FileMode(hdr.Mode), tr); err != nil {
				return err
			}
		case tar.TypeSymlink:
			// Links must stay inside the tree too.
			link := hdr.Linkname
			if !filepath.IsAbs(link) {
				link = filepath.Join(filepath.Dir(target), link)
			}
			rel, relErr := filepath.Rel(ex.destDir, filepath.Clean(link))
			if relErr != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
				return fmt.Errorf("%w: symlink %s -> %s", ErrUnsafeArchiveEntry, hdr.Name, hdr.Linkname)
			}
			if err := ex.ensureDir(filepath.Dir(target)); err != nil {
				return err
			}
			ex.track(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", target, err)
			}
		default:
			// Devices and the like are never part of emulator payloads.
			continue
		}
	}
}
