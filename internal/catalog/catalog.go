// Package catalog defines the static description of every emulator target
// Meridian can provision. The catalog is immutable: it is compiled in, loaded
// once at startup, and safe for concurrent reads.
package catalog

import (
	"fmt"
	"sort"
)

// SourceKind identifies where a target's releases come from.
type SourceKind string

const (
	// SourceGitHub resolves releases through a GitHub-style release registry.
	SourceGitHub SourceKind = "github"
	// SourceBuildbot resolves against a rolling directory-listing index.
	SourceBuildbot SourceKind = "buildbot"
	// SourceDirect downloads a pinned URL.
	SourceDirect SourceKind = "direct"
)

// ArchiveKind identifies the archive family a target ships as.
type ArchiveKind string

const (
	ArchiveZip   ArchiveKind = "zip"
	Archive7z    ArchiveKind = "7z"
	ArchiveTarGz ArchiveKind = "tar.gz"
	ArchiveTarXz ArchiveKind = "tar.xz"
)

// ReleaseSource describes how to find a target's latest release.
type ReleaseSource struct {
	Kind SourceKind
	// Repo is the "owner/name" registry repository for SourceGitHub.
	Repo string
	// IndexURL is the listing endpoint for SourceBuildbot.
	IndexURL string
	// URL and Version pin a SourceDirect download.
	URL     string
	Version string
}

// Component is an independently installable part of a composite target,
// such as a libretro core installed next to a RetroArch base runtime.
type Component struct {
	ID string
	// Name is the human-readable component name.
	Name string
	// File is the payload filename the buildbot listing advertises
	// (the core shared library inside its per-core archive).
	File string
	// Systems this component emulates.
	Systems []string
}

// Entry is the static description of one installable emulator target.
type Entry struct {
	ID      string
	Name    string
	Systems []string

	Source  ReleaseSource
	Archive ArchiveKind

	// AssetInclude and AssetExclude are lowercase substrings scoring
	// release asset names up or out during resolution.
	AssetInclude []string
	AssetExclude []string

	// ExeCandidates are executable names probed after extraction, in
	// preference order.
	ExeCandidates []string

	// ArgsTemplate is the launch argument template. {rom} and {core}
	// placeholders are substituted at launch time.
	ArgsTemplate string

	// Components lists the separately installed parts of a composite
	// target. Empty for standalone emulators.
	Components []Component
}

// Catalog is an immutable, id-keyed set of entries.
type Catalog struct {
	entries map[string]Entry
	order   []string
}

// New builds a catalog from entries. Duplicate ids are rejected.
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("catalog entry %q has no id", e.Name)
		}
		if _, dup := c.entries[e.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog id %q", e.ID)
		}
		c.entries[e.ID] = e
		c.order = append(c.order, e.ID)
	}
	return c, nil
}

// Get returns the entry for id.
func (c *Catalog) Get(id string) (Entry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// Component returns the named component of entry id.
func (c *Catalog) Component(id, componentID string) (Entry, Component, bool) {
	e, ok := c.entries[id]
	if !ok {
		return Entry{}, Component{}, false
	}
	for _, comp := range e.Components {
		if comp.ID == componentID {
			return e, comp, true
		}
	}
	return Entry{}, Component{}, false
}

// All returns every entry in declaration order.
func (c *Catalog) All() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}

// ForSystem returns entries supporting the given system id, sorted by name.
func (c *Catalog) ForSystem(systemID string) []Entry {
	var out []Entry
	for _, e := range c.entries {
		for _, s := range e.Systems {
			if s == systemID {
				out = append(out, e)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
