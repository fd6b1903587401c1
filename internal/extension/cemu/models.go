// Package cemu translates neutral controller profiles into Cemu 2.6
// controller-profile XML, manages the controllerProfiles directory, and
// assigns profiles to games through gameProfiles INI files.
package cemu

import (
	"fmt"
	"sort"
)

// Emulated controller types recognised by Cemu.
var emulatedTypes = map[string]bool{
	"Wii U GamePad":                true,
	"Wii U Pro Controller":         true,
	"Wii U Classic Controller":     true,
	"Wii U Classic Controller Pro": true,
	"Wiimote":                      true,
}

// Input APIs supported by Cemu.
var controllerAPIs = map[string]bool{
	"SDLController": true,
	"XInput":        true,
	"DirectInput":   true,
	"DSUController": true,
	"Keyboard":      true,
}

// Emulated-button mapping IDs (VPAD / GamePad layout, 1-27). These mirror
// the IDs Cemu's input manager stores in the <mapping> tag.
const (
	mappingA           = 1
	mappingB           = 2
	mappingX           = 3
	mappingY           = 4
	mappingL           = 5
	mappingR           = 6
	mappingZL          = 7
	mappingZR          = 8
	mappingPlus        = 9
	mappingMinus       = 10
	mappingHome        = 11
	mappingDpadUp      = 12
	mappingDpadDown    = 13
	mappingDpadLeft    = 14
	mappingDpadRight   = 15
	mappingLStickDown  = 16 // Y-axis positive
	mappingLStickUp    = 17 // Y-axis negative
	mappingLStickLeft  = 18 // X-axis negative
	mappingLStickRight = 19 // X-axis positive
	mappingRStickDown  = 20
	mappingRStickUp    = 21
	mappingRStickLeft  = 22
	mappingRStickRight = 23
	mappingLStickPress = 24
	mappingRStickPress = 25
	mappingMax         = 27
)

// Physical-input codes Cemu stores in the <button> tag. Values 0-31 map
// directly to SDL button indices; the rest encode hats, axes, rotation
// (right stick), and triggers.
const (
	buttonHatUp    = 34
	buttonHatDown  = 35
	buttonHatLeft  = 36
	buttonHatRight = 37
	axisXPos       = 38
	axisYPos       = 39
	rotationXPos   = 40
	rotationYPos   = 41
	triggerXPos    = 42
	triggerYPos    = 43
	axisXNeg       = 44
	axisYNeg       = 45
	rotationXNeg   = 46
	rotationYNeg   = 47
	triggerXNeg    = 48
	triggerYNeg    = 49
)

// sdlAxisCodes maps an SDL axis index to its positive and negative
// physical-input codes.
var sdlAxisCodes = map[int][2]int{
	0: {axisXPos, axisXNeg},
	1: {axisYPos, axisYNeg},
	2: {rotationXPos, rotationXNeg},
	3: {rotationYPos, rotationYNeg},
	4: {triggerXPos, triggerXNeg},
	5: {triggerYPos, triggerYNeg},
}

// AxisSettings is the deadzone/range pair for the axis, rotation, and
// trigger groups.
type AxisSettings struct {
	Deadzone float64
	Range    float64
}

// DefaultAxisSettings matches Cemu's stick defaults.
func DefaultAxisSettings() AxisSettings { return AxisSettings{Deadzone: 0.15, Range: 1.0} }

// DefaultTriggerSettings matches Cemu's trigger defaults.
func DefaultTriggerSettings() AxisSettings { return AxisSettings{Deadzone: 0.25, Range: 1.0} }

func (a AxisSettings) validate() error {
	if a.Deadzone < 0 || a.Deadzone > 1 {
		return fmt.Errorf("deadzone must be 0.0-1.0, got %v", a.Deadzone)
	}
	if a.Range <= 0 || a.Range > 2 {
		return fmt.Errorf("range must be >0.0 and <=2.0, got %v", a.Range)
	}
	return nil
}

// MappingEntry binds one emulated button to one physical input code.
type MappingEntry struct {
	MappingID int
	Button    int
}

// ControllerEntry is one physical controller bound inside a profile.
type ControllerEntry struct {
	API         string
	UUID        string
	DisplayName string
	ProductGUID string
	Rumble      float64
	Motion      bool
	Axis        AxisSettings
	Rotation    AxisSettings
	Trigger     AxisSettings
	Mappings    []MappingEntry
}

// NewControllerEntry returns an entry with Cemu's defaults.
func NewControllerEntry() ControllerEntry {
	return ControllerEntry{
		API:      "SDLController",
		UUID:     "0",
		Axis:     DefaultAxisSettings(),
		Rotation: DefaultAxisSettings(),
		Trigger:  DefaultTriggerSettings(),
	}
}

func (c *ControllerEntry) validate() error {
	if c.API != "" && !controllerAPIs[c.API] {
		return fmt.Errorf("unknown controller API %q", c.API)
	}
	if err := c.Axis.validate(); err != nil {
		return err
	}
	if err := c.Rotation.validate(); err != nil {
		return err
	}
	if err := c.Trigger.validate(); err != nil {
		return err
	}
	seen := map[int]bool{}
	for _, m := range c.Mappings {
		if m.MappingID < 1 || m.MappingID > mappingMax {
			return fmt.Errorf("mapping id must be 1-%d, got %d", mappingMax, m.MappingID)
		}
		if seen[m.MappingID] {
			return fmt.Errorf("duplicate mapping id %d", m.MappingID)
		}
		seen[m.MappingID] = true
	}
	return nil
}

// Profile is a complete Cemu controller profile, one XML file under
// controllerProfiles/.
type Profile struct {
	EmulatedType string
	ProfileName  string
	Controllers  []ControllerEntry
}

// Validate checks structural invariants before serialization.
func (p *Profile) Validate() error {
	if !emulatedTypes[p.EmulatedType] {
		return fmt.Errorf("unknown emulated controller type %q", p.EmulatedType)
	}
	for i := range p.Controllers {
		if err := p.Controllers[i].validate(); err != nil {
			return fmt.Errorf("controller %d: %w", i, err)
		}
	}
	return nil
}

// sortedMappings returns the mappings ordered by mapping id, the order
// Cemu itself writes.
func sortedMappings(ms []MappingEntry) []MappingEntry {
	out := make([]MappingEntry, len(ms))
	copy(out, ms)
	sort.Slice(out, func(i, j int) bool { return out[i].MappingID < out[j].MappingID })
	return out
}
