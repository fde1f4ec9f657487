package setup

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmiyara/govee-remote/internal/pkg/config"
	"github.com/mmiyara/govee-remote/internal/pkg/goveeapi"
	"github.com/mmiyara/govee-remote/internal/pkg/hostapi"
)

type fakeCloud struct {
	key        string
	testErr    error
	devicesErr error
	devices    []goveeapi.Device
}

func (f *fakeCloud) WithAPIKey(key string) goveeapi.Cloud {
	nc := *f
	nc.key = key
	return &nc
}

func (f *fakeCloud) WithTimeout(time.Duration) goveeapi.Cloud { return f }
func (f *fakeCloud) IsConfigured() bool                       { return f.key != "" }

func (f *fakeCloud) TestConnection(context.Context) error { return f.testErr }

func (f *fakeCloud) Devices(context.Context) ([]goveeapi.Device, error) {
	return f.devices, f.devicesErr
}

func (f *fakeCloud) DeviceState(context.Context, goveeapi.Device) (*goveeapi.StateReport, error) {
	return &goveeapi.StateReport{}, nil
}

func (f *fakeCloud) Control(context.Context, goveeapi.Device, goveeapi.Command) error {
	return nil
}

func lightDevice(id, name string) goveeapi.Device {
	params := json.RawMessage(`{"range":{"min":1,"max":100}}`)
	return goveeapi.NewDevice(goveeapi.RawDevice{
		SKU:        "H6008",
		Device:     id,
		DeviceName: name,
		Type:       "devices.types.light",
		Capabilities: []goveeapi.Capability{
			{Type: "devices.capabilities.on_off", Instance: "powerSwitch"},
			{Type: "devices.capabilities.range", Instance: "brightness", Parameters: params},
		},
	})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return config.New(filepath.Join(t.TempDir(), "state.json"))
}

func setupRequest(key string) *hostapi.DriverSetupRequest {
	return &hostapi.DriverSetupRequest{SetupData: map[string]string{"api_key": key}}
}

func TestSetupHappyPath(t *testing.T) {
	cfg := testConfig(t)
	cloud := &fakeCloud{devices: []goveeapi.Device{
		lightDevice("AA", "Lamp"),
		lightDevice("BB", "Strip"),
	}}

	completed := false
	h := New(cfg, cloud, func() { completed = true })

	action := h.OnSetup(context.Background(), setupRequest("fresh-key"))
	if _, ok := action.(hostapi.SetupComplete); !ok {
		t.Fatalf("action = %T, want SetupComplete", action)
	}

	if !completed {
		t.Error("completion callback not invoked")
	}
	if cfg.APIKey() != "fresh-key" {
		t.Errorf("persisted key = %q", cfg.APIKey())
	}

	rec, ok := cfg.Device("AA")
	if !ok {
		t.Fatal("device AA not persisted")
	}
	if rec.Name != "Lamp" || !rec.SupportsPower || !rec.SupportsBrightness {
		t.Errorf("record = %+v", rec)
	}
}

func TestSetupZeroDevicesStillCompletes(t *testing.T) {
	cfg := testConfig(t)
	h := New(cfg, &fakeCloud{}, nil)

	action := h.OnSetup(context.Background(), setupRequest("fresh-key"))
	if _, ok := action.(hostapi.SetupComplete); !ok {
		t.Fatalf("action = %T, want SetupComplete", action)
	}
	if len(cfg.Devices()) != 0 {
		t.Errorf("registry = %+v, want empty", cfg.Devices())
	}
	if !cfg.IsConfigured() {
		t.Error("key not persisted for an empty account")
	}
}

func TestSetupErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want hostapi.SetupErrorKind
	}{
		{
			name: "unauthorized",
			err:  &goveeapi.Error{Kind: goveeapi.KindUnauthorized, Code: 401},
			want: hostapi.ErrAuthorization,
		},
		{
			name: "rate limited",
			err:  &goveeapi.Error{Kind: goveeapi.KindRateLimited, Code: 429},
			want: hostapi.ErrRateLimited,
		},
		{
			name: "connection",
			err:  &goveeapi.Error{Kind: goveeapi.KindConnection},
			want: hostapi.ErrConnectionRefused,
		},
		{
			name: "anything else",
			err:  &goveeapi.Error{Kind: goveeapi.KindBadResponse, Code: 400},
			want: hostapi.ErrOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			h := New(cfg, &fakeCloud{testErr: tt.err}, nil)

			action := h.OnSetup(context.Background(), setupRequest("bad-key"))
			se, ok := action.(hostapi.SetupError)
			if !ok {
				t.Fatalf("action = %T, want SetupError", action)
			}
			if se.Kind != tt.want {
				t.Errorf("kind = %q, want %q", se.Kind, tt.want)
			}
			if cfg.IsConfigured() {
				t.Error("failed setup must not persist the key")
			}
		})
	}
}

func TestSetupMissingKeyRequestsForm(t *testing.T) {
	h := New(testConfig(t), &fakeCloud{}, nil)

	action := h.OnSetup(context.Background(), setupRequest("   "))
	form, ok := action.(hostapi.RequestUserInput)
	if !ok {
		t.Fatalf("action = %T, want RequestUserInput", action)
	}
	if len(form.Inputs) != 1 || form.Inputs[0].ID != "api_key" {
		t.Errorf("form inputs = %+v", form.Inputs)
	}
}

func TestSetupPrefixCollisionFails(t *testing.T) {
	cfg := testConfig(t)
	cloud := &fakeCloud{devices: []goveeapi.Device{
		lightDevice("AA", "Office Lamp"),
		lightDevice("BB", "office-lamp"),
	}}
	h := New(cfg, cloud, nil)

	action := h.OnSetup(context.Background(), setupRequest("fresh-key"))
	if _, ok := action.(hostapi.SetupError); !ok {
		t.Fatalf("action = %T, want SetupError", action)
	}
	if cfg.IsConfigured() {
		t.Error("colliding registry must not be persisted")
	}
}

func TestSetupExistingConfigSkipsDiscovery(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.SetAPIKey("stored-key"); err != nil {
		t.Fatal(err)
	}

	h := New(cfg, &fakeCloud{}, nil)

	action := h.OnSetup(context.Background(), &hostapi.DriverSetupRequest{})
	if _, ok := action.(hostapi.SetupComplete); !ok {
		t.Fatalf("action = %T, want SetupComplete", action)
	}
	if cfg.APIKey() != "stored-key" {
		t.Errorf("key = %q, stored key must survive", cfg.APIKey())
	}
}

func TestSetupReconfigureReplacesKey(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.SetAPIKey("stored-key"); err != nil {
		t.Fatal(err)
	}

	h := New(cfg, &fakeCloud{}, nil)

	msg := &hostapi.DriverSetupRequest{
		Reconfigure: true,
		SetupData:   map[string]string{"api_key": "new-key"},
	}
	if _, ok := h.OnSetup(context.Background(), msg).(hostapi.SetupComplete); !ok {
		t.Fatal("reconfigure did not complete")
	}
	if cfg.APIKey() != "new-key" {
		t.Errorf("key = %q, want new-key", cfg.APIKey())
	}
}

func TestSetupUserDataMessage(t *testing.T) {
	cfg := testConfig(t)
	h := New(cfg, &fakeCloud{devices: []goveeapi.Device{lightDevice("AA", "Lamp")}}, nil)

	msg := &hostapi.UserDataResponse{InputValues: map[string]string{"api_key": "typed-key"}}
	if _, ok := h.OnSetup(context.Background(), msg).(hostapi.SetupComplete); !ok {
		t.Fatal("user data setup did not complete")
	}
	if cfg.APIKey() != "typed-key" {
		t.Errorf("key = %q", cfg.APIKey())
	}
}

func TestSetupAbortClearsConfig(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.SetAPIKey("stored-key"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetDevices(map[string]config.DeviceRecord{
		"AA": config.RecordFromDevice(lightDevice("AA", "Lamp")),
	}); err != nil {
		t.Fatal(err)
	}

	h := New(cfg, &fakeCloud{}, nil)

	action := h.OnSetup(context.Background(), &hostapi.AbortDriverSetup{Error: hostapi.ErrAuthorization})
	se, ok := action.(hostapi.SetupError)
	if !ok || se.Kind != hostapi.ErrAuthorization {
		t.Errorf("action = %+v", action)
	}

	if cfg.IsConfigured() || len(cfg.Devices()) != 0 {
		t.Error("abort must clear all persisted state")
	}
}
