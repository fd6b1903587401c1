// Package download fetches release assets to the local cache with retry,
// resume, and integrity verification.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/meridian-launcher/meridian/internal/release"
)

var (
	// ErrDownloadIncomplete is returned when the received byte count does
	// not match the declared asset size.
	ErrDownloadIncomplete = errors.New("download incomplete")
	// ErrChecksumMismatch is returned when the downloaded payload fails
	// checksum verification.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrDestinationUnwritable is returned when the cache destination
	// cannot be created or written.
	ErrDestinationUnwritable = errors.New("destination unwritable")
)

const (
	defaultTimeout = 10 * time.Minute
	maxAttempts    = 4
	userAgent      = "Meridian-Installer/1.0"
	copyBufSize    = 128 * 1024
)

// Downloader fetches assets over HTTP into a cache directory. Partial
// downloads are kept as .partial files and resumed when the server supports
// byte ranges.
type Downloader struct {
	client   *http.Client
	cacheDir string
	log      *zap.Logger
}

// NewDownloader creates a downloader writing into cacheDir.
func NewDownloader(cacheDir string, log *zap.Logger) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: defaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		cacheDir: cacheDir,
		log:      log,
	}
}

// WithHTTPClient replaces the HTTP client (tests).
func (d *Downloader) WithHTTPClient(c *http.Client) *Downloader {
	d.client = c
	return d
}

// FetchAsset downloads asset into the cache and returns the cached path.
// A complete cached copy is reused without touching the network.
func (d *Downloader) FetchAsset(ctx context.Context, asset *release.Asset) (string, error) {
	dest := d.cachePath(asset, asset.Name)

	if complete(dest, asset.Size) {
		d.log.Debug("using cached asset", zap.String("path", dest))
		return dest, nil
	}

	if err := d.fetch(ctx, asset.URL, dest, asset.Size); err != nil {
		return "", err
	}
	return dest, nil
}

// FetchSidecar downloads a verification sidecar (checksum or signature
// file) for asset and returns its cached path. Sidecars are small and
// never resumed.
func (d *Downloader) FetchSidecar(ctx context.Context, asset *release.Asset, url string) (string, error) {
	if url == "" {
		return "", errors.New("no sidecar URL")
	}
	dest := d.cachePath(asset, filepath.Base(url))
	if complete(dest, 0) {
		return dest, nil
	}
	if err := d.fetch(ctx, url, dest, 0); err != nil {
		return "", err
	}
	return dest, nil
}

// cachePath is cache/<target>/<version>/<filename>. Target ids may contain
// a component separator; it maps onto a subdirectory.
func (d *Downloader) cachePath(asset *release.Asset, filename string) string {
	target := filepath.FromSlash(asset.TargetID)
	version := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' {
			return '-'
		}
		return r
	}, asset.Version)
	return filepath.Join(d.cacheDir, target, version, filename)
}

// fetch downloads url to dest with bounded retries. wantSize of 0 means
// the source did not declare a size.
func (d *Downloader) fetch(ctx context.Context, url, dest string, wantSize int64) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrDestinationUnwritable, err)
	}

	partial := dest + ".partial"
	op := func() (struct{}, error) {
		err := d.fetchOnce(ctx, url, dest, partial, wantSize)
		switch {
		case err == nil:
			return struct{}{}, nil
		case ctx.Err() != nil:
			return struct{}{}, backoff.Permanent(ctx.Err())
		case errors.Is(err, ErrDestinationUnwritable), errors.Is(err, ErrChecksumMismatch):
			return struct{}{}, backoff.Permanent(err)
		default:
			d.log.Warn("download attempt failed, retrying",
				zap.String("url", url), zap.Error(err))
			return struct{}{}, err
		}
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxAttempts))
	return err
}

// fetchOnce performs a single attempt, resuming from an existing partial
// file when the server honours byte ranges. On success the partial file is
// atomically renamed to dest.
func (d *Downloader) fetchOnce(ctx context.Context, url, dest, partial string, wantSize int64) error {
	var offset int64
	if fi, err := os.Stat(partial); err == nil && fi.Size() > 0 {
		offset = fi.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	resume := false
	switch resp.StatusCode {
	case http.StatusOK:
		// Full body; any partial state is stale.
	case http.StatusPartialContent:
		if offset > 0 {
			// Appending a range that does not start where the partial
			// file ends would silently corrupt the payload.
			start, ok := contentRangeStart(resp.Header.Get("Content-Range"))
			if !ok || start != offset {
				os.Remove(partial)
				return fmt.Errorf("%w: server resumed at wrong offset", ErrDownloadIncomplete)
			}
			resume = true
		}
	default:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if resume {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	out, err := os.OpenFile(partial, flags, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDestinationUnwritable, err)
	}
	keepPartial := true
	defer func() {
		out.Close()
		if !keepPartial {
			os.Remove(partial)
		}
	}()

	if _, err := copyWithContext(ctx, out, resp.Body); err != nil {
		if ctx.Err() != nil {
			// Keep the partial file so a later attempt can resume.
			return ctx.Err()
		}
		return fmt.Errorf("copy response body: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrDestinationUnwritable, err)
	}

	if fi, err := os.Stat(partial); err == nil && wantSize > 0 && fi.Size() != wantSize {
		// A wrong-size payload will never become right by resuming.
		keepPartial = false
		return fmt.Errorf("%w: got %d bytes, want %d", ErrDownloadIncomplete, fi.Size(), wantSize)
	}

	if err := os.Rename(partial, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrDestinationUnwritable, err)
	}
	keepPartial = false
	return nil
}

// contentRangeStart parses the first-byte position out of a Content-Range
// header ("bytes 100-999/1000").
func contentRangeStart(header string) (int64, bool) {
	rest, ok := strings.CutPrefix(header, "bytes ")
	if !ok {
		return 0, false
	}
	first, _, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, false
	}
	start, err := strconv.ParseInt(strings.TrimSpace(first), 10, 64)
	if err != nil || start < 0 {
		return 0, false
	}
	return start, true
}

// copyWithContext copies src to dst, checking for cancellation between
// buffer-sized reads so a stuck transfer stops promptly.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, copyBufSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, werr
			}
			if wn < n {
				return written, io.ErrShortWrite
			}
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}

// complete reports whether path already holds a finished download of the
// declared size (any non-empty file when the size is unknown).
func complete(path string, wantSize int64) bool {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}
	if wantSize > 0 {
		return fi.Size() == wantSize
	}
	return fi.Size() > 0
}
