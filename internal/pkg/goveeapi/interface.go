package goveeapi

import (
	"context"
	"encoding/json"
	"time"
)

// CapabilityState is the reported state of one capability instance
type CapabilityState struct {
	Type     string `json:"type"`
	Instance string `json:"instance"`
	State    struct {
		Value json.RawMessage `json:"value"`
	} `json:"state"`
}

// StateReport is a device state snapshot from the vendor API
type StateReport struct {
	Capabilities []CapabilityState `json:"capabilities"`
}

// PowerOn reports the device's power state, if the report carries one
func (r *StateReport) PowerOn() (on bool, ok bool) {
	for _, c := range r.Capabilities {
		if c.Type != capTypeOnOff || c.Instance != instPowerSwitch {
			continue
		}
		var v int
		if err := json.Unmarshal(c.State.Value, &v); err != nil {
			return false, false
		}
		return v == 1, true
	}
	return false, false
}

// Cloud is the vendor API surface the driver depends on
type Cloud interface {
	WithAPIKey(key string) Cloud
	WithTimeout(d time.Duration) Cloud
	IsConfigured() bool
	TestConnection(ctx context.Context) error
	Devices(ctx context.Context) ([]Device, error)
	DeviceState(ctx context.Context, dev Device) (*StateReport, error)
	Control(ctx context.Context, dev Device, cmd Command) error
}
