package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mmiyara/govee-remote/internal/pkg/goveeapi"
	"github.com/mmiyara/govee-remote/internal/pkg/logging"
)

/*
 *   Persisted driver state: the API key, the projected device
 *   registry from the last successful discovery, and the polling
 *   interval.  Written at the end of a setup cycle, read whenever
 *   the remote entity is (re)built, cleared wholesale on abort.
 */

const (
	defaultPollingInterval = 30
	minPollingInterval     = 10
	maxPollingInterval     = 300
)

// DeviceRecord is the serialisable projection of one discovered
// device and its capability summary
type DeviceRecord struct {
	Name         string                `json:"name"`
	Type         goveeapi.DeviceType   `json:"type"`
	APIType      string                `json:"api_type"`
	SKU          string                `json:"sku"`
	Capabilities []goveeapi.Capability `json:"capabilities"`

	SupportsPower       bool `json:"supports_power"`
	SupportsBrightness  bool `json:"supports_brightness"`
	SupportsColor       bool `json:"supports_color"`
	SupportsColorTemp   bool `json:"supports_color_temp"`
	SupportsScenes      bool `json:"supports_scenes"`
	SupportsMusic       bool `json:"supports_music"`
	SupportsTemperature bool `json:"supports_temperature"`
	SupportsWorkMode    bool `json:"supports_work_mode"`
	SupportsTimer       bool `json:"supports_timer"`
	SupportsHumidity    bool `json:"supports_humidity"`
	SupportsFanMode     bool `json:"supports_fan_mode"`
	SupportsGradient    bool `json:"supports_gradient"`
	SupportsDreamview   bool `json:"supports_dreamview"`
	SupportsSegmented   bool `json:"supports_segmented"`

	BrightnessRange  *[2]int `json:"brightness_range"`
	ColorTempRange   *[2]int `json:"color_temp_range"`
	TemperatureRange *[2]int `json:"temperature_range"`

	WorkModes  []goveeapi.WorkMode    `json:"work_modes"`
	MusicModes []goveeapi.MusicMode   `json:"music_modes"`
	Scenes     []goveeapi.SceneOption `json:"scenes"`
}

// RecordFromDevice projects a discovered device into its persisted form
func RecordFromDevice(d goveeapi.Device) DeviceRecord {
	s := d.Summary

	rec := DeviceRecord{
		Name:                d.Name,
		Type:                d.Type,
		APIType:             d.APIType,
		SKU:                 d.SKU,
		Capabilities:        d.Capabilities,
		SupportsPower:       s.Power,
		SupportsBrightness:  s.Brightness,
		SupportsColor:       s.Color,
		SupportsColorTemp:   s.ColorTemp,
		SupportsScenes:      s.Scenes,
		SupportsMusic:       s.Music,
		SupportsTemperature: s.Temperature,
		SupportsWorkMode:    s.WorkMode,
		SupportsTimer:       s.Timer,
		SupportsHumidity:    s.Humidity,
		SupportsFanMode:     s.FanMode,
		SupportsGradient:    s.Gradient,
		SupportsDreamview:   s.Dreamview,
		SupportsSegmented:   s.Segmented,
		WorkModes:           d.WorkModes(),
		MusicModes:          d.MusicModes(),
		Scenes:              d.SceneOptions(),
	}

	if s.Brightness {
		r := d.BrightnessRange()
		rec.BrightnessRange = &[2]int{r.Min, r.Max}
	}
	if s.ColorTemp {
		r := d.ColorTempRange()
		rec.ColorTempRange = &[2]int{r.Min, r.Max}
	}
	if s.Temperature {
		r := d.TemperatureRange()
		rec.TemperatureRange = &[2]int{r.Min, r.Max}
	}

	return rec
}

// Device reconstructs the full device model from the stored raw
// capability list
func (r DeviceRecord) Device(id string) goveeapi.Device {
	return goveeapi.NewDevice(goveeapi.RawDevice{
		SKU:          r.SKU,
		Device:       id,
		DeviceName:   r.Name,
		Type:         r.APIType,
		Capabilities: r.Capabilities,
	})
}

type configData struct {
	APIKey          string                  `json:"api_key,omitempty"`
	Devices         map[string]DeviceRecord `json:"devices,omitempty"`
	PollingInterval int                     `json:"polling_interval,omitempty"`
}

// Config owns the JSON state file
type Config struct {
	path string

	mu   sync.Mutex
	data configData
}

// New loads the state file at path.  A missing or unparseable file
// yields an empty configuration rather than an error.
func New(path string) *Config {
	c := &Config{path: path}

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Logger(nil).WithError(err).Error("reading configuration file")
		}
		return c
	}

	if err := json.Unmarshal(b, &c.data); err != nil {
		logging.Logger(nil).WithError(err).Error("parsing configuration file, starting empty")
		c.data = configData{}
	}

	return c
}

func (c *Config) save() error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	b, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, b, 0600)
}

func (c *Config) IsConfigured() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimSpace(c.data.APIKey) != ""
}

func (c *Config) APIKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.APIKey
}

func (c *Config) SetAPIKey(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.APIKey = strings.TrimSpace(key)
	return c.save()
}

// Devices returns a copy of the persisted registry, never nil
func (c *Config) Devices() map[string]DeviceRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]DeviceRecord, len(c.data.Devices))
	for id, rec := range c.data.Devices {
		out[id] = rec
	}
	return out
}

func (c *Config) SetDevices(devices map[string]DeviceRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if devices == nil {
		devices = map[string]DeviceRecord{}
	}
	c.data.Devices = devices
	return c.save()
}

func (c *Config) Device(id string) (DeviceRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.data.Devices[id]
	return rec, ok
}

// PollingInterval returns the reconciliation interval in seconds,
// clamped to [10,300]
func (c *Config) PollingInterval() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.data.PollingInterval == 0 {
		return defaultPollingInterval
	}
	return clampInterval(c.data.PollingInterval)
}

func (c *Config) SetPollingInterval(seconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.PollingInterval = clampInterval(seconds)
	return c.save()
}

// Clear wipes all persisted state - a full reset, not partial
func (c *Config) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = configData{}
	return c.save()
}

func clampInterval(v int) int {
	if v < minPollingInterval {
		return minPollingInterval
	}
	if v > maxPollingInterval {
		return maxPollingInterval
	}
	return v
}
