package goveeapi

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		sku     string
		apiType string
		summary Summary
		want    DeviceType
	}{
		{
			name: "sync box SKU wins over everything",
			sku:  "H6603", apiType: "devices.types.light",
			summary: Summary{Color: true},
			want:    TypeSyncBox,
		},
		{
			name: "api type mapping",
			sku:  "H7171", apiType: "devices.types.kettle",
			want: TypeKettle,
		},
		{
			name: "air quality monitor maps to sensor",
			sku:  "H5106", apiType: "devices.types.air_quality_monitor",
			want: TypeSensor,
		},
		{
			name: "color implies light",
			sku:  "HXXXX", apiType: "devices.types.unknown",
			summary: Summary{Color: true},
			want:    TypeLight,
		},
		{
			name: "brightness implies light",
			sku:  "HXXXX", apiType: "",
			summary: Summary{Brightness: true},
			want:    TypeLight,
		},
		{
			name: "work mode implies appliance",
			sku:  "HXXXX", apiType: "",
			summary: Summary{WorkMode: true},
			want:    TypeAppliance,
		},
		{
			name: "temperature implies appliance",
			sku:  "HXXXX", apiType: "",
			summary: Summary{Temperature: true},
			want:    TypeAppliance,
		},
		{
			name: "bare power implies switch",
			sku:  "HXXXX", apiType: "",
			summary: Summary{Power: true},
			want:    TypeSwitch,
		},
		{
			name: "nothing implies sensor",
			sku:  "HXXXX", apiType: "",
			want: TypeSensor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.sku, tt.apiType, tt.summary); got != tt.want {
				t.Errorf("Classify(%q, %q) = %q, want %q", tt.sku, tt.apiType, got, tt.want)
			}
		})
	}
}

func TestNewDeviceDefaultName(t *testing.T) {
	d := NewDevice(RawDevice{SKU: "H6008", Device: "AA:BB"})
	if d.Name != "Govee H6008" {
		t.Errorf("default name = %q, want %q", d.Name, "Govee H6008")
	}
}

func TestDeviceRangeDefaults(t *testing.T) {
	var d Device

	if got := d.BrightnessRange(); got != DefaultBrightnessRange {
		t.Errorf("BrightnessRange = %+v, want default", got)
	}
	if got := d.ColorTempRange(); got != DefaultColorTempRange {
		t.Errorf("ColorTempRange = %+v, want default", got)
	}
	if got := d.TemperatureRange(); got != DefaultTemperatureRange {
		t.Errorf("TemperatureRange = %+v, want default", got)
	}

	if d.WorkModes() == nil || d.MusicModes() == nil || d.SceneOptions() == nil {
		t.Error("mode accessors must never return nil")
	}
}
