package goveeapi

import (
	"encoding/json"
	"testing"
)

func mkCap(typ, instance, params string) Capability {
	c := Capability{Type: typ, Instance: instance}
	if params != "" {
		c.Parameters = json.RawMessage(params)
	}
	return c
}

func TestSummarizeFlags(t *testing.T) {
	tests := []struct {
		name string
		caps []Capability
		want func(t *testing.T, s Summary)
	}{
		{
			name: "power only",
			caps: []Capability{mkCap(capTypeOnOff, instPowerSwitch, "")},
			want: func(t *testing.T, s Summary) {
				if !s.Power {
					t.Error("expected Power")
				}
				if s.Brightness || s.Color || s.Temperature {
					t.Error("unexpected extra flags")
				}
			},
		},
		{
			name: "brightness with explicit range",
			caps: []Capability{
				mkCap(capTypeRange, instBrightness, `{"range":{"min":5,"max":90}}`),
			},
			want: func(t *testing.T, s Summary) {
				if !s.Brightness {
					t.Error("expected Brightness")
				}
				if s.BrightnessRange == nil || s.BrightnessRange.Min != 5 || s.BrightnessRange.Max != 90 {
					t.Errorf("brightness range = %+v, want 5-90", s.BrightnessRange)
				}
			},
		},
		{
			name: "brightness with malformed parameters falls back to default",
			caps: []Capability{
				mkCap(capTypeRange, instBrightness, `{"range":"nope"}`),
			},
			want: func(t *testing.T, s Summary) {
				if s.BrightnessRange == nil || *s.BrightnessRange != DefaultBrightnessRange {
					t.Errorf("brightness range = %+v, want default", s.BrightnessRange)
				}
			},
		},
		{
			name: "inverted range falls back to default",
			caps: []Capability{
				mkCap(capTypeRange, instBrightness, `{"range":{"min":90,"max":5}}`),
			},
			want: func(t *testing.T, s Summary) {
				if s.BrightnessRange == nil || *s.BrightnessRange != DefaultBrightnessRange {
					t.Errorf("brightness range = %+v, want default", s.BrightnessRange)
				}
			},
		},
		{
			name: "color temperature default range",
			caps: []Capability{mkCap(capTypeColor, instColorTempK, "")},
			want: func(t *testing.T, s Summary) {
				if !s.ColorTemp {
					t.Error("expected ColorTemp")
				}
				if s.ColorTempRange == nil || *s.ColorTempRange != DefaultColorTempRange {
					t.Errorf("color temp range = %+v, want default", s.ColorTempRange)
				}
			},
		},
		{
			name: "slider temperature range",
			caps: []Capability{
				mkCap(capTypeTemperature, instSliderTemp,
					`{"fields":[{"fieldName":"temperature","range":{"min":40,"max":90}}]}`),
			},
			want: func(t *testing.T, s Summary) {
				if !s.Temperature {
					t.Error("expected Temperature")
				}
				if s.TemperatureRange == nil || s.TemperatureRange.Min != 40 || s.TemperatureRange.Max != 90 {
					t.Errorf("temperature range = %+v, want 40-90", s.TemperatureRange)
				}
			},
		},
		{
			name: "work modes",
			caps: []Capability{
				mkCap(capTypeWorkMode, instWorkMode,
					`{"fields":[{"fieldName":"workMode","options":[{"name":"Boiling","value":4},{"name":"Tea","value":2}]}]}`),
			},
			want: func(t *testing.T, s Summary) {
				if !s.WorkMode {
					t.Error("expected WorkMode")
				}
				if len(s.WorkModes) != 2 {
					t.Fatalf("got %d work modes, want 2", len(s.WorkModes))
				}
				if s.WorkModes[0].Name != "Boiling" || s.WorkModes[0].Value != 4 {
					t.Errorf("work mode 0 = %+v", s.WorkModes[0])
				}
			},
		},
		{
			name: "fan mode instance sets both flags",
			caps: []Capability{mkCap(capTypeWorkMode, instFanMode, "")},
			want: func(t *testing.T, s Summary) {
				if !s.WorkMode || !s.FanMode {
					t.Error("expected WorkMode and FanMode")
				}
			},
		},
		{
			name: "music modes",
			caps: []Capability{
				mkCap(capTypeMusic, instMusicMode,
					`{"fields":[{"fieldName":"musicMode","options":[{"name":"Energic","value":1},{"name":"Rhythm","value":5}]}]}`),
			},
			want: func(t *testing.T, s Summary) {
				if !s.Music {
					t.Error("expected Music")
				}
				if len(s.MusicModes) != 2 || s.MusicModes[1].Value != 5 {
					t.Errorf("music modes = %+v", s.MusicModes)
				}
			},
		},
		{
			name: "scenes skip unnamed options",
			caps: []Capability{
				mkCap(capTypeScene, "lightScene",
					`{"options":[{"name":"Sunrise","value":1},{"name":"","value":2}]}`),
			},
			want: func(t *testing.T, s Summary) {
				if !s.Scenes {
					t.Error("expected Scenes")
				}
				if len(s.SceneOptions) != 1 || s.SceneOptions[0].Name != "Sunrise" {
					t.Errorf("scenes = %+v", s.SceneOptions)
				}
			},
		},
		{
			name: "toggles",
			caps: []Capability{
				mkCap(capTypeToggle, instGradient, ""),
				mkCap(capTypeToggle, instDreamview, ""),
				mkCap(capTypeToggle, "oscillationToggle", ""),
			},
			want: func(t *testing.T, s Summary) {
				if !s.Gradient || !s.Dreamview {
					t.Error("expected Gradient and Dreamview")
				}
				if len(s.Custom) != 1 {
					t.Errorf("got %d custom descriptors, want 1", len(s.Custom))
				}
			},
		},
		{
			name: "generic range control",
			caps: []Capability{
				mkCap(capTypeRange, "fanSpeed", `{"range":{"min":1,"max":8}}`),
			},
			want: func(t *testing.T, s Summary) {
				if len(s.GenericRanges) != 1 {
					t.Fatalf("got %d generic ranges, want 1", len(s.GenericRanges))
				}
				g := s.GenericRanges[0]
				if g.Instance != "fanSpeed" || g.Range.Max != 8 {
					t.Errorf("generic range = %+v", g)
				}
			},
		},
		{
			name: "unknown descriptor kept as custom",
			caps: []Capability{mkCap("devices.capabilities.mode", "nightlightScene", "")},
			want: func(t *testing.T, s Summary) {
				if len(s.Custom) != 1 {
					t.Errorf("got %d custom descriptors, want 1", len(s.Custom))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(t, Summarize(tt.caps))
		})
	}
}

func TestSummarizeFlagOrderIndependence(t *testing.T) {
	caps := []Capability{
		mkCap(capTypeOnOff, instPowerSwitch, ""),
		mkCap(capTypeRange, instBrightness, ""),
		mkCap(capTypeColor, instColorRGB, ""),
		mkCap(capTypeTimer, "", ""),
	}

	reversed := make([]Capability, len(caps))
	for i, c := range caps {
		reversed[len(caps)-1-i] = c
	}

	a, b := Summarize(caps), Summarize(reversed)
	if a.Power != b.Power || a.Brightness != b.Brightness || a.Color != b.Color || a.Timer != b.Timer {
		t.Errorf("summary flags depend on descriptor order: %+v vs %+v", a, b)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Power || s.Brightness || s.BrightnessRange != nil {
		t.Errorf("empty capability list produced non-empty summary: %+v", s)
	}
}
