package goveeapi

import (
	"encoding/json"
)

/*
 *   Govee capability descriptors and their normalised summary form.
 *
 *   The vendor describes each device as a flat list of capability
 *   descriptors whose meaning is keyed on the (type, instance) pair.
 *   Summarize condenses that list into a fixed-shape Summary that the
 *   rest of the driver works from, so the string tags are compared
 *   exactly once per discovery cycle.
 */

// Vendor capability type identifiers
const (
	capTypeOnOff       = "devices.capabilities.on_off"
	capTypeRange       = "devices.capabilities.range"
	capTypeColor       = "devices.capabilities.color_setting"
	capTypeScene       = "devices.capabilities.dynamic_scene"
	capTypeMusic       = "devices.capabilities.music_setting"
	capTypeTemperature = "devices.capabilities.temperature_setting"
	capTypeWorkMode    = "devices.capabilities.work_mode"
	capTypeTimer       = "devices.capabilities.timer"
	capTypeToggle      = "devices.capabilities.toggle"
	capTypeSegment     = "devices.capabilities.segment_color_setting"
)

// Vendor capability instance identifiers
const (
	instBrightness  = "brightness"
	instTemperature = "temperature"
	instHumidity    = "humidity"
	instColorRGB    = "colorRgb"
	instColorTempK  = "colorTemperatureK"
	instFanMode     = "fanMode"
	instGradient    = "gradientToggle"
	instDreamview   = "dreamViewToggle"
	instMusicMode   = "musicMode"
	instSliderTemp  = "sliderTemperature"
	instPowerSwitch = "powerSwitch"
	instWorkMode    = "workMode"
)

// Capability is one raw vendor capability descriptor.  Parameters is
// kept opaque; the per-kind parsers below pull out what they need and
// tolerate anything else.
type Capability struct {
	Type       string          `json:"type"`
	Instance   string          `json:"instance"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// Range is an inclusive numeric control range
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Default ranges, used whenever a descriptor is absent or malformed
var (
	DefaultBrightnessRange  = Range{Min: 1, Max: 100}
	DefaultColorTempRange   = Range{Min: 2000, Max: 9000}
	DefaultTemperatureRange = Range{Min: 20, Max: 100}
)

// WorkMode is one selectable work mode of an appliance
type WorkMode struct {
	Instance string `json:"instance"`
	Name     string `json:"name"`
	Value    int    `json:"value"`
}

// MusicMode is one selectable music-reactive mode
type MusicMode struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// SceneOption is one selectable dynamic scene
type SceneOption struct {
	Instance string `json:"instance"`
	Name     string `json:"name"`
	Value    int    `json:"value"`
}

// RangeControl is a generic range capability that did not match a
// known instance; the raw instance name doubles as its label
type RangeControl struct {
	Instance string `json:"instance"`
	Range    Range  `json:"range"`
}

// Summary is the normalised capability set of one device
type Summary struct {
	Power       bool `json:"supports_power"`
	Brightness  bool `json:"supports_brightness"`
	Color       bool `json:"supports_color"`
	ColorTemp   bool `json:"supports_color_temp"`
	Scenes      bool `json:"supports_scenes"`
	Music       bool `json:"supports_music"`
	Temperature bool `json:"supports_temperature"`
	WorkMode    bool `json:"supports_work_mode"`
	Timer       bool `json:"supports_timer"`
	Humidity    bool `json:"supports_humidity"`
	FanMode     bool `json:"supports_fan_mode"`
	Gradient    bool `json:"supports_gradient"`
	Dreamview   bool `json:"supports_dreamview"`
	Segmented   bool `json:"supports_segmented"`

	BrightnessRange  *Range `json:"brightness_range,omitempty"`
	ColorTempRange   *Range `json:"color_temp_range,omitempty"`
	TemperatureRange *Range `json:"temperature_range,omitempty"`

	WorkModes    []WorkMode    `json:"work_modes,omitempty"`
	MusicModes   []MusicMode   `json:"music_modes,omitempty"`
	SceneOptions []SceneOption `json:"scenes,omitempty"`

	// Descriptors we have no mapping for, kept for diagnostics only
	Custom        []Capability   `json:"-"`
	GenericRanges []RangeControl `json:"-"`
}

/*
 * Parameter sub-structures.  All fields are optional; a descriptor
 * that fails to decode is treated as if the sub-structure were absent
 * rather than failing the whole pass.
 */

type rangeParams struct {
	Range *struct {
		Min *int `json:"min"`
		Max *int `json:"max"`
	} `json:"range"`
}

type paramOption struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type paramField struct {
	FieldName string        `json:"fieldName"`
	Options   []paramOption `json:"options"`
	Range     *struct {
		Min *int `json:"min"`
		Max *int `json:"max"`
	} `json:"range"`
}

type fieldParams struct {
	Fields []paramField `json:"fields"`
}

type optionParams struct {
	Options []paramOption `json:"options"`
}

func parseRange(params json.RawMessage, def Range) Range {
	r := def

	var p rangeParams
	if err := json.Unmarshal(params, &p); err != nil || p.Range == nil {
		return r
	}
	if p.Range.Min != nil {
		r.Min = *p.Range.Min
	}
	if p.Range.Max != nil {
		r.Max = *p.Range.Max
	}
	if r.Min > r.Max {
		return def
	}
	return r
}

func parseFields(params json.RawMessage) []paramField {
	var p fieldParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil
	}
	return p.Fields
}

func parseOptions(params json.RawMessage) []paramOption {
	var p optionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil
	}
	return p.Options
}

func optionValue(o paramOption) int {
	var v int
	if err := json.Unmarshal(o.Value, &v); err != nil {
		return 0
	}
	return v
}

// Summarize normalises a device's raw capability list.  The result is
// independent of descriptor order except for the list fields, which
// preserve encounter order.
func Summarize(caps []Capability) Summary {
	var s Summary

	for _, c := range caps {
		switch c.Type {
		case capTypeOnOff:
			s.Power = true

		case capTypeRange:
			switch c.Instance {
			case instBrightness:
				s.Brightness = true
				r := parseRange(c.Parameters, DefaultBrightnessRange)
				s.BrightnessRange = &r
			case instTemperature:
				s.Temperature = true
				if s.TemperatureRange == nil {
					r := parseRange(c.Parameters, DefaultTemperatureRange)
					s.TemperatureRange = &r
				}
			case instHumidity:
				s.Humidity = true
			default:
				s.GenericRanges = append(s.GenericRanges, RangeControl{
					Instance: c.Instance,
					Range:    parseRange(c.Parameters, Range{Min: 0, Max: 100}),
				})
			}

		case capTypeColor:
			switch c.Instance {
			case instColorRGB:
				s.Color = true
			case instColorTempK:
				s.ColorTemp = true
				r := parseRange(c.Parameters, DefaultColorTempRange)
				s.ColorTempRange = &r
			default:
				s.Custom = append(s.Custom, c)
			}

		case capTypeScene:
			s.Scenes = true
			for _, o := range parseOptions(c.Parameters) {
				if o.Name == "" {
					continue
				}
				s.SceneOptions = append(s.SceneOptions, SceneOption{
					Instance: c.Instance,
					Name:     o.Name,
					Value:    optionValue(o),
				})
			}

		case capTypeMusic:
			if c.Instance != instMusicMode {
				s.Custom = append(s.Custom, c)
				continue
			}
			s.Music = true
			for _, f := range parseFields(c.Parameters) {
				if f.FieldName != instMusicMode {
					continue
				}
				for _, o := range f.Options {
					if o.Name == "" {
						continue
					}
					s.MusicModes = append(s.MusicModes, MusicMode{
						Name:  o.Name,
						Value: optionValue(o),
					})
				}
			}

		case capTypeTemperature:
			s.Temperature = true
			if c.Instance == instSliderTemp {
				for _, f := range parseFields(c.Parameters) {
					if f.FieldName != instTemperature || f.Range == nil {
						continue
					}
					r := DefaultTemperatureRange
					if f.Range.Min != nil {
						r.Min = *f.Range.Min
					}
					if f.Range.Max != nil {
						r.Max = *f.Range.Max
					}
					if r.Min <= r.Max {
						s.TemperatureRange = &r
					}
				}
			}

		case capTypeWorkMode:
			s.WorkMode = true
			if c.Instance == instFanMode {
				s.FanMode = true
			}
			for _, f := range parseFields(c.Parameters) {
				if f.FieldName != instWorkMode {
					continue
				}
				for _, o := range f.Options {
					if o.Name == "" {
						continue
					}
					s.WorkModes = append(s.WorkModes, WorkMode{
						Instance: c.Instance,
						Name:     o.Name,
						Value:    optionValue(o),
					})
				}
			}

		case capTypeTimer:
			s.Timer = true

		case capTypeToggle:
			switch c.Instance {
			case instGradient:
				s.Gradient = true
			case instDreamview:
				s.Dreamview = true
			default:
				s.Custom = append(s.Custom, c)
			}

		case capTypeSegment:
			s.Segmented = true

		default:
			s.Custom = append(s.Custom, c)
		}
	}

	return s
}
