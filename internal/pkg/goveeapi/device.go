package goveeapi

// DeviceType is the driver's classification of a device
type DeviceType string

const (
	TypeSyncBox       DeviceType = "sync_box"
	TypeLight         DeviceType = "light"
	TypeSwitch        DeviceType = "switch"
	TypeSocket        DeviceType = "socket"
	TypeKettle        DeviceType = "kettle"
	TypeHumidifier    DeviceType = "humidifier"
	TypeAirPurifier   DeviceType = "air_purifier"
	TypeHeater        DeviceType = "heater"
	TypeThermometer   DeviceType = "thermometer"
	TypeSensor        DeviceType = "sensor"
	TypeFan           DeviceType = "fan"
	TypeDehumidifier  DeviceType = "dehumidifier"
	TypeIceMaker      DeviceType = "ice_maker"
	TypeAromaDiffuser DeviceType = "aroma_diffuser"
	TypeAppliance     DeviceType = "appliance"
)

// HDMI sync box SKUs are not distinguishable from plain lights by
// their capability list, so they are pinned by SKU
var syncBoxSKUs = map[string]bool{
	"H6603": true,
	"H6604": true,
	"H8604": true,
}

var apiTypeMapping = map[string]DeviceType{
	"devices.types.light":               TypeLight,
	"devices.types.switch":              TypeSwitch,
	"devices.types.socket":              TypeSocket,
	"devices.types.kettle":              TypeKettle,
	"devices.types.humidifier":          TypeHumidifier,
	"devices.types.air_purifier":        TypeAirPurifier,
	"devices.types.heater":              TypeHeater,
	"devices.types.thermometer":         TypeThermometer,
	"devices.types.air_quality_monitor": TypeSensor,
	"devices.types.fan":                 TypeFan,
	"devices.types.dehumidifier":        TypeDehumidifier,
	"devices.types.ice_maker":           TypeIceMaker,
	"devices.types.aroma_diffuser":      TypeAromaDiffuser,
}

// RawDevice is a device descriptor as returned by the vendor API
type RawDevice struct {
	SKU          string       `json:"sku"`
	Device       string       `json:"device"`
	DeviceName   string       `json:"deviceName"`
	Type         string       `json:"type"`
	Capabilities []Capability `json:"capabilities"`
}

// Device wraps one device's identity, raw capabilities and derived
// summary.  Constructed once per discovery cycle and immutable after.
type Device struct {
	SKU          string
	ID           string
	Name         string
	APIType      string
	Capabilities []Capability
	Summary      Summary
	Type         DeviceType
}

func NewDevice(raw RawDevice) Device {
	name := raw.DeviceName
	if name == "" {
		name = "Govee " + raw.SKU
	}

	summary := Summarize(raw.Capabilities)

	return Device{
		SKU:          raw.SKU,
		ID:           raw.Device,
		Name:         name,
		APIType:      raw.Type,
		Capabilities: raw.Capabilities,
		Summary:      summary,
		Type:         Classify(raw.SKU, raw.Type, summary),
	}
}

// Classify derives a device-type tag from the SKU, the vendor API
// type tag and the capability summary.  Pure and total: every input
// yields exactly one tag, defaulting to sensor.
func Classify(sku, apiType string, s Summary) DeviceType {
	if syncBoxSKUs[sku] {
		return TypeSyncBox
	}

	if t, ok := apiTypeMapping[apiType]; ok {
		return t
	}

	switch {
	case s.Color || s.Brightness:
		return TypeLight
	case s.WorkMode || s.Temperature:
		return TypeAppliance
	case s.Power:
		return TypeSwitch
	default:
		return TypeSensor
	}
}

// BrightnessRange returns the device's brightness bounds, falling
// back to the defaults when the capability is absent
func (d Device) BrightnessRange() Range {
	if d.Summary.BrightnessRange != nil {
		return *d.Summary.BrightnessRange
	}
	return DefaultBrightnessRange
}

func (d Device) ColorTempRange() Range {
	if d.Summary.ColorTempRange != nil {
		return *d.Summary.ColorTempRange
	}
	return DefaultColorTempRange
}

func (d Device) TemperatureRange() Range {
	if d.Summary.TemperatureRange != nil {
		return *d.Summary.TemperatureRange
	}
	return DefaultTemperatureRange
}

// WorkModes returns the device's work modes, never nil
func (d Device) WorkModes() []WorkMode {
	if d.Summary.WorkModes == nil {
		return []WorkMode{}
	}
	return d.Summary.WorkModes
}

func (d Device) MusicModes() []MusicMode {
	if d.Summary.MusicModes == nil {
		return []MusicMode{}
	}
	return d.Summary.MusicModes
}

func (d Device) SceneOptions() []SceneOption {
	if d.Summary.SceneOptions == nil {
		return []SceneOption{}
	}
	return d.Summary.SceneOptions
}

func (d Device) String() string {
	return "GoveeDevice(sku=" + d.SKU + ", id=" + d.ID + ", name=" + d.Name +
		", type=" + string(d.Type) + ", api_type=" + d.APIType + ")"
}
