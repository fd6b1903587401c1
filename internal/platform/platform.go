// Package platform detects the host operating system and architecture and
// normalizes them into the token vocabulary used by release asset names.
package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// Info describes the host the installer is running on.
type Info struct {
	OS      string // "windows", "linux", "darwin"
	Arch    string // normalized: "amd64" or "arm64"
	ArchRaw string // raw GOARCH value
	// Platform and Version hold distribution details on Linux
	// ("ubuntu", "22.04"). Empty elsewhere or when detection fails.
	Platform string
	Version  string
}

// Detector returns platform information for the current host.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// RealDetector implements Detector using actual platform detection.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect returns OS and architecture from the Go runtime, plus Linux
// distribution details via gopsutil. Distribution lookup failures are not
// fatal: asset selection only needs OS and arch.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:      runtime.GOOS,
		ArchRaw: runtime.GOARCH,
	}

	arch, err := normalizeArch(runtime.GOARCH)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}
	info.Arch = arch

	if runtime.GOOS == "linux" {
		platform, _, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			return info, nil
		}
		info.Platform = platform
		info.Version = version
	}

	return info, nil
}

// normalizeArch maps GOARCH values onto the two architectures emulator
// projects actually ship binaries for.
func normalizeArch(goarch string) (string, error) {
	switch goarch {
	case "amd64":
		return "amd64", nil
	case "arm64":
		return "arm64", nil
	default:
		return "", fmt.Errorf("unsupported architecture: %s", goarch)
	}
}

// AssetTokens returns the lowercase substrings that identify an asset built
// for this platform, in decreasing order of specificity. Asset names are
// matched against these during release resolution.
func (i *Info) AssetTokens() []string {
	switch i.OS {
	case "windows":
		if i.Arch == "arm64" {
			return []string{"windows-arm64", "win-arm64", "arm64"}
		}
		return []string{"win64", "windows", "win", "x64", "x86_64", "x86-64"}
	case "darwin":
		return []string{"macos", "osx", "darwin", "universal"}
	default:
		if i.Arch == "arm64" {
			return []string{"linux-arm64", "linux_aarch64", "aarch64"}
		}
		return []string{"linux-x86_64", "linux_x86_64", "linux64", "linux", "appimage"}
	}
}

// ForeignTokens returns substrings that mark an asset as built for some
// other platform. Any asset containing one of these is rejected outright.
func (i *Info) ForeignTokens() []string {
	all := map[string][]string{
		"windows": {"windows", "win64", "win32", ".exe", "msvc"},
		"darwin":  {"macos", "osx", "darwin", ".dmg"},
		"linux":   {"linux", "appimage", ".deb", ".rpm", "ubuntu"},
	}
	archFor := map[string][]string{
		"amd64": {"arm64", "aarch64", "armv7", "armhf"},
		"arm64": {"x86_64", "x86-64", "win64", "amd64"},
	}

	var out []string
	for os, tokens := range all {
		if os != i.OS {
			out = append(out, tokens...)
		}
	}
	out = append(out, archFor[i.Arch]...)
	return out
}
