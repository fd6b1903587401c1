// Package release resolves the latest installable release asset for a
// catalog target, across GitHub-style release registries, rolling buildbot
// indexes, and pinned direct URLs.
package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/meridian-launcher/meridian/internal/catalog"
	"github.com/meridian-launcher/meridian/internal/platform"
)

var (
	// ErrNoMatchingAsset is returned when a release exists but none of
	// its assets match the current platform.
	ErrNoMatchingAsset = errors.New("no release asset matches the current platform")
	// ErrNoStableRelease is returned when the registry lists only
	// pre-release (or no) versions.
	ErrNoStableRelease = errors.New("no stable release available")
	// ErrRegistryUnavailable is returned after bounded retries against
	// an unreachable or failing registry.
	ErrRegistryUnavailable = errors.New("release registry unavailable")
)

const (
	defaultAPIBase = "https://api.github.com"
	defaultTimeout = 30 * time.Second
	maxAttempts    = 3
	userAgent      = "Meridian-Installer/1.0"
)

// Resolver selects the single download asset for a catalog entry.
type Resolver struct {
	client   *http.Client
	apiBase  string
	platform *platform.Info
	log      *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAPIBase overrides the release registry base URL (tests).
func WithAPIBase(base string) Option {
	return func(r *Resolver) { r.apiBase = strings.TrimRight(base, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// NewResolver creates a resolver for the given host platform.
func NewResolver(info *platform.Info, log *zap.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		client:   &http.Client{Timeout: defaultTimeout},
		apiBase:  defaultAPIBase,
		platform: info,
		log:      log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the latest stable release asset for entry.
func (r *Resolver) Resolve(ctx context.Context, entry catalog.Entry) (*Asset, error) {
	switch entry.Source.Kind {
	case catalog.SourceGitHub:
		return r.resolveRegistry(ctx, entry)
	case catalog.SourceBuildbot:
		return r.resolveBuildbot(ctx, entry)
	case catalog.SourceDirect:
		return resolveDirect(entry)
	default:
		return nil, fmt.Errorf("unsupported release source %q for %s", entry.Source.Kind, entry.ID)
	}
}

// ResolveComponent returns the asset for one component of a composite
// target. Rolling sources publish each component as <file>.zip next to the
// base payload; the component tracks the rolling build, so its version is
// the listing label "nightly".
func (r *Resolver) ResolveComponent(entry catalog.Entry, comp catalog.Component) (*Asset, error) {
	if entry.Source.Kind != catalog.SourceBuildbot {
		return nil, fmt.Errorf("target %s does not provide components", entry.ID)
	}
	dir := path.Dir(entry.Source.IndexURL)
	name := comp.File + ".zip"
	return &Asset{
		TargetID: entry.ID + "/" + comp.ID,
		Version:  "nightly",
		Name:     name,
		URL:      dir + "/" + name,
	}, nil
}

// resolveRegistry queries the GitHub-style release registry and picks the
// newest stable release, then the best-scoring platform asset inside it.
func (r *Resolver) resolveRegistry(ctx context.Context, entry catalog.Entry) (*Asset, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/releases?per_page=30", r.apiBase, entry.Source.Repo)

	body, err := r.fetch(ctx, endpoint, "application/vnd.github+json")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRegistryUnavailable, entry.Source.Repo, err)
	}

	var releases []registryRelease
	if err := json.Unmarshal(body, &releases); err != nil {
		return nil, fmt.Errorf("%w: decode %s payload: %v", ErrRegistryUnavailable, entry.Source.Repo, err)
	}

	chosen, err := pickStable(releases)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entry.ID, err)
	}

	best := rankAssets(entry, r.platform, chosen.Assets)
	if best == nil {
		return nil, fmt.Errorf("%s %s: %w", entry.ID, chosen.TagName, ErrNoMatchingAsset)
	}

	asset := &Asset{
		TargetID: entry.ID,
		Version:  chosen.TagName,
		Name:     best.Name,
		URL:      best.BrowserDownloadURL,
		Size:     best.Size,
	}
	asset.ChecksumURL, asset.SignatureURL = verificationURLs(chosen.Assets, best.Name)

	r.log.Debug("resolved release",
		zap.String("target", entry.ID),
		zap.String("version", asset.Version),
		zap.String("asset", asset.Name))
	return asset, nil
}

// pickStable selects the non-pre-release with the highest semantic-version
// tag; ties (and untaggable versions) fall back to publish time.
func pickStable(releases []registryRelease) (*registryRelease, error) {
	var stable []registryRelease
	for _, rel := range releases {
		if rel.Draft || rel.Prerelease {
			continue
		}
		stable = append(stable, rel)
	}
	if len(stable) == 0 {
		return nil, ErrNoStableRelease
	}

	sort.SliceStable(stable, func(i, j int) bool {
		vi, oki := parseTag(stable[i].TagName)
		vj, okj := parseTag(stable[j].TagName)
		switch {
		case oki && okj && !vi.EQ(vj):
			return vi.GT(vj)
		case oki != okj:
			return oki
		default:
			return stable[i].PublishedAt.After(stable[j].PublishedAt)
		}
	})
	return &stable[0], nil
}

func parseTag(tag string) (semver.Version, bool) {
	v, err := semver.ParseTolerant(tag)
	if err != nil {
		return semver.Version{}, false
	}
	return v, true
}

// resolveBuildbot picks the most recent matching entry of a rolling
// directory-listing index. Each listing line is whitespace-separated with
// the filename last and a build label (date or revision) first; the label
// becomes the recorded version.
func (r *Resolver) resolveBuildbot(ctx context.Context, entry catalog.Entry) (*Asset, error) {
	body, err := r.fetch(ctx, entry.Source.IndexURL, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRegistryUnavailable, entry.Source.IndexURL, err)
	}

	dir := path.Dir(entry.Source.IndexURL)
	var chosen *Asset
	for _, line := range strings.Split(string(body), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := fields[len(fields)-1]
		if scoreAssetName(entry, r.platform, name) < 0 {
			continue
		}
		label := fields[0]
		if len(fields) == 1 {
			label = strings.TrimSuffix(name, path.Ext(name))
		}
		// Listing order is oldest-first; keep the last match.
		chosen = &Asset{
			TargetID: entry.ID,
			Version:  label,
			Name:     name,
			URL:      dir + "/" + name,
		}
	}
	if chosen == nil {
		return nil, fmt.Errorf("%s: %w", entry.ID, ErrNoMatchingAsset)
	}
	return chosen, nil
}

func resolveDirect(entry catalog.Entry) (*Asset, error) {
	raw := entry.Source.URL
	if raw == "" {
		return nil, fmt.Errorf("%s: direct source has no URL", entry.ID)
	}
	version := entry.Source.Version
	if version == "" {
		version = "pinned"
	}
	name := "download.bin"
	if u, err := url.Parse(raw); err == nil && path.Base(u.Path) != "." {
		name = path.Base(u.Path)
	}
	return &Asset{
		TargetID: entry.ID,
		Version:  version,
		Name:     name,
		URL:      raw,
	}, nil
}

// fetch GETs a registry URL with bounded exponential backoff. Client-side
// errors (4xx) are not retried; network failures and 5xx responses are.
func (r *Resolver) fetch(ctx context.Context, rawURL, accept string) ([]byte, error) {
	op := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}

		resp, err := r.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxAttempts))
}
