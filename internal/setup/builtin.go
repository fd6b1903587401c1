package setup

// Source keys looked up in Sources. Paths are user-configured; the tool
// never ships or generates firmware, BIOS images, or keys.
const (
	SourceEdenProdKeys  = "eden.prod_keys"
	SourceEdenTitleKeys = "eden.title_keys"
	SourceEdenFirmware  = "eden.firmware"
	SourceDuckBIOS      = "duckstation.bios"
)

// BuiltinProcedures returns the first-run setup for every target that
// needs one.
func BuiltinProcedures() []Procedure {
	return []Procedure{
		{
			// Cemu looks for a portable directory next to the
			// executable and keeps all state inside it.
			TargetID: "cemu",
			Actions: []Action{
				{
					Kind: ActionPortableBootstrap,
					Dirs: []string{"portable", "controllerProfiles", "gameProfiles", "graphicPacks"},
				},
			},
		},
		{
			TargetID: "eden",
			Actions: []Action{
				{
					Kind: ActionPortableBootstrap,
					Dirs: []string{"user/keys", "user/nand", "user/config/qt-config"},
				},
				{
					Kind:      ActionFileCopy,
					SourceKey: SourceEdenProdKeys,
					Dest:      "user/keys/prod.keys",
					Required:  true,
				},
				{
					Kind:      ActionFileCopy,
					SourceKey: SourceEdenTitleKeys,
					Dest:      "user/keys/title.keys",
				},
				{
					Kind:      ActionDirCopy,
					SourceKey: SourceEdenFirmware,
					Dest:      "user/nand/system/Contents/registered",
				},
			},
		},
		{
			TargetID: "duckstation",
			Actions: []Action{
				{
					Kind:       ActionPortableBootstrap,
					Dirs:       []string{"bios"},
					MarkerFile: "portable.txt",
				},
				{
					Kind:      ActionDirCopy,
					SourceKey: SourceDuckBIOS,
					Dest:      "bios",
					Required:  true,
				},
			},
		},
		{
			TargetID: "retroarch",
			Actions: []Action{
				{
					Kind: ActionPortableBootstrap,
					Dirs: []string{"cores", "system", "saves", "states"},
				},
			},
		},
	}
}
