package release

import "time"

// Asset is a resolved download candidate for one target. It is produced by
// the resolver, consumed by the downloader, and never mutated.
type Asset struct {
	TargetID string
	Version  string
	Name     string
	URL      string
	// Size is the declared asset size in bytes, or 0 when the source
	// does not advertise one.
	Size int64
	// ChecksumURL and SignatureURL point at sibling verification assets
	// when the release publishes them. Either may be empty.
	ChecksumURL  string
	SignatureURL string
}

// registryRelease mirrors one entry of the release registry's JSON payload.
type registryRelease struct {
	TagName     string          `json:"tag_name"`
	Name        string          `json:"name"`
	Draft       bool            `json:"draft"`
	Prerelease  bool            `json:"prerelease"`
	PublishedAt time.Time       `json:"published_at"`
	Assets      []registryAsset `json:"assets"`
}

type registryAsset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}
