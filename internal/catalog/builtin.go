package catalog

const buildbotNightly = "https://buildbot.libretro.com/nightly/windows/x86_64/latest"

// Builtin returns the compiled-in emulator catalog.
func Builtin() *Catalog {
	c, err := New(builtinEntries)
	if err != nil {
		// The builtin table is validated by tests; a bad entry is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return c
}

var builtinEntries = []Entry{
	{
		ID:            "cemu",
		Name:          "Cemu",
		Systems:       []string{"wiiu"},
		Source:        ReleaseSource{Kind: SourceGitHub, Repo: "cemu-project/Cemu"},
		Archive:       ArchiveZip,
		AssetInclude:  []string{"cemu"},
		AssetExclude:  []string{"ubuntu", "appimage"},
		ExeCandidates: []string{"Cemu.exe", "Cemu"},
		ArgsTemplate:  `-g "{rom}"`,
	},
	{
		ID:            "eden",
		Name:          "Eden",
		Systems:       []string{"switch"},
		Source:        ReleaseSource{Kind: SourceGitHub, Repo: "eden-emulator/Releases"},
		Archive:       Archive7z,
		AssetInclude:  []string{"eden"},
		AssetExclude:  []string{"debug"},
		ExeCandidates: []string{"eden.exe", "eden"},
		ArgsTemplate:  `-g "{rom}"`,
	},
	{
		ID:            "duckstation",
		Name:          "DuckStation",
		Systems:       []string{"ps1"},
		Source:        ReleaseSource{Kind: SourceGitHub, Repo: "stenzek/duckstation"},
		Archive:       ArchiveZip,
		AssetInclude:  []string{"duckstation"},
		AssetExclude:  []string{"sse2", "setup"},
		ExeCandidates: []string{"duckstation-qt-x64-ReleaseLTCG.exe", "duckstation-qt"},
		ArgsTemplate:  `"{rom}"`,
	},
	{
		ID:            "ppsspp",
		Name:          "PPSSPP",
		Systems:       []string{"psp"},
		Source:        ReleaseSource{Kind: SourceGitHub, Repo: "hrydgard/ppsspp"},
		Archive:       ArchiveZip,
		AssetInclude:  []string{"ppsspp"},
		AssetExclude:  []string{"gold", "legacy"},
		ExeCandidates: []string{"PPSSPPWindows64.exe", "PPSSPPSDL"},
		ArgsTemplate:  `"{rom}"`,
	},
	{
		ID:            "melonds",
		Name:          "melonDS",
		Systems:       []string{"nds"},
		Source:        ReleaseSource{Kind: SourceGitHub, Repo: "melonDS-emu/melonDS"},
		Archive:       ArchiveZip,
		AssetInclude:  []string{"melonds"},
		ExeCandidates: []string{"melonDS.exe", "melonDS"},
		ArgsTemplate:  `"{rom}"`,
	},
	{
		ID:      "retroarch",
		Name:    "RetroArch",
		Systems: []string{"nes", "snes", "gba", "genesis", "ps1", "saturn"},
		Source: ReleaseSource{
			Kind:     SourceBuildbot,
			IndexURL: buildbotNightly + "/.index-extended",
		},
		Archive:       Archive7z,
		AssetInclude:  []string{"retroarch"},
		ExeCandidates: []string{"retroarch.exe", "retroarch"},
		ArgsTemplate:  `-L "{core}" "{rom}"`,
		Components: []Component{
			{ID: "mgba", Name: "mGBA", File: "mgba_libretro.dll", Systems: []string{"gba"}},
			{ID: "snes9x", Name: "Snes9x", File: "snes9x_libretro.dll", Systems: []string{"snes"}},
			{ID: "mesen", Name: "Mesen", File: "mesen_libretro.dll", Systems: []string{"nes"}},
			{ID: "genesis-plus-gx", Name: "Genesis Plus GX", File: "genesis_plus_gx_libretro.dll", Systems: []string{"genesis"}},
			{ID: "beetle-psx", Name: "Beetle PSX HW", File: "mednafen_psx_hw_libretro.dll", Systems: []string{"ps1"}},
		},
	},
}
