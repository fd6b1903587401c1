package cemu

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// xmlProfile mirrors Cemu's <emulated_controller> document.
type xmlProfile struct {
	XMLName     xml.Name        `xml:"emulated_controller"`
	Type        string          `xml:"type"`
	Profile     string          `xml:"profile,omitempty"`
	Controllers []xmlController `xml:"controller"`
}

type xmlController struct {
	API         string       `xml:"api"`
	UUID        string       `xml:"uuid"`
	DisplayName string       `xml:"display_name"`
	Rumble      string       `xml:"rumble"`
	Motion      string       `xml:"motion"`
	ProductGUID string       `xml:"product_guid,omitempty"`
	Axis        xmlAxisGroup `xml:"axis"`
	Rotation    xmlAxisGroup `xml:"rotation"`
	Trigger     xmlAxisGroup `xml:"trigger"`
	Mappings    xmlMappings  `xml:"mappings"`
}

type xmlAxisGroup struct {
	Deadzone string `xml:"deadzone"`
	Range    string `xml:"range"`
}

type xmlMappings struct {
	Entries []xmlMappingEntry `xml:"entry"`
}

type xmlMappingEntry struct {
	Mapping int `xml:"mapping"`
	Button  int `xml:"button"`
}

// formatFloat renders floats the way Cemu writes them: minimal decimal
// form, never scientific.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return f
}

// MarshalProfile serializes a profile to Cemu's canonical XML.
func MarshalProfile(p *Profile) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	doc := xmlProfile{Type: p.EmulatedType, Profile: p.ProfileName}
	for _, c := range p.Controllers {
		xc := xmlController{
			API:         c.API,
			UUID:        c.UUID,
			DisplayName: c.DisplayName,
			Rumble:      formatFloat(c.Rumble),
			Motion:      strconv.FormatBool(c.Motion),
			ProductGUID: c.ProductGUID,
			Axis:        xmlAxisGroup{formatFloat(c.Axis.Deadzone), formatFloat(c.Axis.Range)},
			Rotation:    xmlAxisGroup{formatFloat(c.Rotation.Deadzone), formatFloat(c.Rotation.Range)},
			Trigger:     xmlAxisGroup{formatFloat(c.Trigger.Deadzone), formatFloat(c.Trigger.Range)},
		}
		for _, m := range sortedMappings(c.Mappings) {
			xc.Mappings.Entries = append(xc.Mappings.Entries, xmlMappingEntry{
				Mapping: m.MappingID,
				Button:  m.Button,
			})
		}
		doc.Controllers = append(doc.Controllers, xc)
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}
	return []byte(xml.Header + string(body) + "\n"), nil
}

// UnmarshalProfile parses Cemu controller-profile XML.
func UnmarshalProfile(data []byte) (*Profile, error) {
	var doc xmlProfile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	p := &Profile{
		EmulatedType: strings.TrimSpace(doc.Type),
		ProfileName:  strings.TrimSpace(doc.Profile),
	}
	if p.EmulatedType == "" {
		p.EmulatedType = "Wii U GamePad"
	}

	for _, xc := range doc.Controllers {
		c := ControllerEntry{
			API:         strings.TrimSpace(xc.API),
			UUID:        strings.TrimSpace(xc.UUID),
			DisplayName: strings.TrimSpace(xc.DisplayName),
			ProductGUID: strings.TrimSpace(xc.ProductGUID),
			Rumble:      parseFloat(xc.Rumble, 0),
			Motion:      strings.TrimSpace(xc.Motion) == "true" || strings.TrimSpace(xc.Motion) == "1",
			Axis: AxisSettings{
				Deadzone: parseFloat(xc.Axis.Deadzone, 0.15),
				Range:    parseFloat(xc.Axis.Range, 1.0),
			},
			Rotation: AxisSettings{
				Deadzone: parseFloat(xc.Rotation.Deadzone, 0.15),
				Range:    parseFloat(xc.Rotation.Range, 1.0),
			},
			Trigger: AxisSettings{
				Deadzone: parseFloat(xc.Trigger.Deadzone, 0.25),
				Range:    parseFloat(xc.Trigger.Range, 1.0),
			},
		}
		if c.UUID == "" {
			c.UUID = "0"
		}
		for _, e := range xc.Mappings.Entries {
			c.Mappings = append(c.Mappings, MappingEntry{MappingID: e.Mapping, Button: e.Button})
		}
		p.Controllers = append(p.Controllers, c)
	}

	return p, nil
}

// WriteProfileFile writes the profile atomically so Cemu never observes a
// partial file.
func WriteProfileFile(p *Profile, path string) error {
	data, err := MarshalProfile(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temporary profile: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename profile: %w", err)
	}
	return nil
}

// ReadProfileFile loads a profile XML from disk.
func ReadProfileFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return UnmarshalProfile(data)
}
