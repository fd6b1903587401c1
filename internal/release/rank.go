package release

import (
	"strings"

	"github.com/meridian-launcher/meridian/internal/catalog"
	"github.com/meridian-launcher/meridian/internal/platform"
)

// globalExclude lists substrings that disqualify an asset for any target:
// source drops, debug artifacts, and verification sidecars are never the
// payload.
var globalExclude = []string{
	"source", "src.", "-src", "debug", "symbols", "pdb",
	".txt", ".json", ".sha256", ".sig", ".asc", ".pem",
}

// extensionScore prefers formats in order of extraction reliability. An
// unrecognized extension disqualifies the asset.
func extensionScore(name string) int {
	switch {
	case strings.HasSuffix(name, ".zip"):
		return 30
	case strings.HasSuffix(name, ".7z"):
		return 25
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"),
		strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		return 20
	default:
		return -10000
	}
}

// scoreAssetName scores one asset name for entry on the given platform.
// Negative means disqualified.
func scoreAssetName(entry catalog.Entry, info *platform.Info, name string) int {
	lower := strings.ToLower(name)

	for _, tok := range globalExclude {
		if strings.Contains(lower, tok) {
			return -10000
		}
	}
	for _, tok := range entry.AssetExclude {
		if strings.Contains(lower, tok) {
			return -10000
		}
	}
	for _, tok := range info.ForeignTokens() {
		if strings.Contains(lower, tok) {
			return -10000
		}
	}

	score := extensionScore(lower)
	if score < 0 {
		return score
	}
	for _, tok := range entry.AssetInclude {
		if strings.Contains(lower, tok) {
			score += 100
		}
	}
	for _, tok := range info.AssetTokens() {
		if strings.Contains(lower, tok) {
			score += 10
		}
	}
	return score
}

// rankAssets returns the highest-scoring qualifying asset, or nil when every
// asset is disqualified. Earlier assets win ties, preserving registry order.
func rankAssets(entry catalog.Entry, info *platform.Info, assets []registryAsset) *registryAsset {
	best := -1
	bestScore := -1
	for i, a := range assets {
		if s := scoreAssetName(entry, info, a.Name); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 || bestScore < 0 {
		return nil
	}
	return &assets[best]
}

// verificationURLs finds the checksum and detached-signature sidecars
// published next to the chosen asset, when the release carries them.
func verificationURLs(assets []registryAsset, chosen string) (checksumURL, signatureURL string) {
	lowerChosen := strings.ToLower(chosen)
	for _, a := range assets {
		lower := strings.ToLower(a.Name)
		switch {
		case lower == "checksums.txt", lower == "sha256sums", lower == "sha256sums.txt",
			lower == lowerChosen+".sha256":
			if checksumURL == "" {
				checksumURL = a.BrowserDownloadURL
			}
		case lower == lowerChosen+".sig", lower == lowerChosen+".asc":
			if signatureURL == "" {
				signatureURL = a.BrowserDownloadURL
			}
		}
	}
	return checksumURL, signatureURL
}
