package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/meridian-launcher/meridian/internal/catalog"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeTarGz(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name string
		want catalog.ArchiveKind
		ok   bool
	}{
		{"Cemu-2.6.zip", catalog.ArchiveZip, true},
		{"RetroArch.7z", catalog.Archive7z, true},
		{"melonds-linux.tar.gz", catalog.ArchiveTarGz, true},
		{"duckstation.tar.xz", catalog.ArchiveTarXz, true},
		{"ppsspp.tgz", catalog.ArchiveTarGz, true},
		{"installer.exe", "", false},
		{"payload.rar", "", false},
	}
	for _, tt := range tests {
		got, err := DetectKind(tt.name)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("DetectKind(%q) = %v, %v; want %v", tt.name, got, err, tt.want)
		}
		if !tt.ok && !errors.Is(err, ErrUnsupportedArchive) {
			t.Errorf("DetectKind(%q) err = %v, want ErrUnsupportedArchive", tt.name, err)
		}
	}
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "emu.zip")
	writeZip(t, archive, map[string]string{
		"Cemu.exe":               "binary",
		"resources/ca-certs.pem": "certs",
	})

	dest := filepath.Join(dir, "out")
	e := NewExtractor(zap.NewNop())
	if err := e.Extract(context.Background(), archive, dest); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	for path, want := range map[string]string{
		"Cemu.exe":               "binary",
		"resources/ca-certs.pem": "certs",
	} {
		data, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(path)))
		if err != nil {
			t.Errorf("missing extracted file %s: %v", path, err)
			continue
		}
		if string(data) != want {
			t.Errorf("%s content = %q, want %q", path, data, want)
		}
	}
}

func TestExtractTarGz(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "emu.tar.gz")
	writeTarGz(t, archive, map[string]string{
		"melonDS":           "elf",
		"shaders/post.glsl": "shader",
	})

	dest := filepath.Join(dir, "out")
	e := NewExtractor(zap.NewNop())
	if err := e.Extract(context.Background(), archive, dest); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "shaders", "post.glsl")); err != nil {
		t.Errorf("nested file not extracted: %v", err)
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, map[string]string{
		"ok.txt":         "fine",
		"../../evil.txt": "escape",
	})

	dest := filepath.Join(dir, "out")
	e := NewExtractor(zap.NewNop())
	err := e.Extract(context.Background(), archive, dest)
	if !errors.Is(err, ErrUnsafeArchiveEntry) {
		t.Fatalf("err = %v, want ErrUnsafeArchiveEntry", err)
	}

	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("destination should be removed after failed extraction")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "evil.txt")); !os.IsNotExist(statErr) {
		t.Error("traversal entry escaped the destination")
	}
}

func TestExtractFailurePreservesExistingDest(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, map[string]string{
		"payload/ok.txt": "fine",
		"../../evil.txt": "escape",
	})

	dest := filepath.Join(dir, "out")
	if err := os.MkdirAll(filepath.Join(dest, "saves"), 0o755); err != nil {
		t.Fatal(err)
	}
	keep := filepath.Join(dest, "keep.txt")
	if err := os.WriteFile(keep, []byte("precious"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor(zap.NewNop())
	err := e.Extract(context.Background(), archive, dest)
	if !errors.Is(err, ErrUnsafeArchiveEntry) {
		t.Fatalf("err = %v, want ErrUnsafeArchiveEntry", err)
	}

	data, readErr := os.ReadFile(keep)
	if readErr != nil || string(data) != "precious" {
		t.Errorf("pre-existing file damaged: %q, %v", data, readErr)
	}
	if _, err := os.Stat(filepath.Join(dest, "saves")); err != nil {
		t.Errorf("pre-existing directory lost: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "payload")); !os.IsNotExist(err) {
		t.Error("partially extracted entries not cleaned up")
	}
	if _, err := os.Stat(filepath.Join(dir, "evil.txt")); !os.IsNotExist(err) {
		t.Error("traversal entry escaped the destination")
	}
}

func TestExtractCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "broken.zip")
	if err := os.WriteFile(archive, []byte("this is not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "out")
	e := NewExtractor(zap.NewNop())
	if err := e.Extract(context.Background(), archive, dest); !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("err = %v, want ErrCorruptArchive", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("destination should be removed after failed extraction")
	}
}

func TestExtractUnsupported(t *testing.T) {
	e := NewExtractor(zap.NewNop())
	err := e.Extract(context.Background(), "payload.rar", t.TempDir())
	if !errors.Is(err, ErrUnsupportedArchive) {
		t.Fatalf("err = %v, want ErrUnsupportedArchive", err)
	}
}

func TestSecurePath(t *testing.T) {
	dest := t.TempDir()
	tests := []struct {
		entry string
		ok    bool
	}{
		{"file.txt", true},
		{"sub/dir/file.txt", true},
		{"./file.txt", true},
		{"..", false},
		{"../outside.txt", false},
		{"sub/../../outside.txt", false},
		{"/etc/passwd", false},
	}
	for _, tt := range tests {
		_, err := securePath(dest, tt.entry)
		if tt.ok != (err == nil) {
			t.Errorf("securePath(%q) err = %v, want ok=%v", tt.entry, err, tt.ok)
		}
	}
}
