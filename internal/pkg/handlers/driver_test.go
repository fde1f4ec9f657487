package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/mmiyara/govee-remote/internal/pkg/config"
	"github.com/mmiyara/govee-remote/internal/pkg/goveeapi"
	"github.com/mmiyara/govee-remote/internal/pkg/hostapi"
)

type fakeCloud struct {
	key     string
	devices []goveeapi.Device
	state   *goveeapi.StateReport
}

func (f *fakeCloud) WithAPIKey(key string) goveeapi.Cloud {
	nc := *f
	nc.key = key
	return &nc
}

func (f *fakeCloud) WithTimeout(time.Duration) goveeapi.Cloud { return f }
func (f *fakeCloud) IsConfigured() bool                       { return f.key != "" }
func (f *fakeCloud) TestConnection(context.Context) error     { return nil }

func (f *fakeCloud) Devices(context.Context) ([]goveeapi.Device, error) {
	return f.devices, nil
}

func (f *fakeCloud) DeviceState(context.Context, goveeapi.Device) (*goveeapi.StateReport, error) {
	if f.state != nil {
		return f.state, nil
	}
	return &goveeapi.StateReport{}, nil
}

func (f *fakeCloud) Control(context.Context, goveeapi.Device, goveeapi.Command) error {
	return nil
}

func lightDevice(id, name string) goveeapi.Device {
	return goveeapi.NewDevice(goveeapi.RawDevice{
		SKU:        "H6008",
		Device:     id,
		DeviceName: name,
		Type:       "devices.types.light",
		Capabilities: []goveeapi.Capability{
			{Type: "devices.capabilities.on_off", Instance: "powerSwitch"},
		},
	})
}

func testRouter(h *DriverHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/setup", h.HandleSetup).Methods(http.MethodPost)
	r.HandleFunc("/entities", h.HandleEntities).Methods(http.MethodGet)
	r.HandleFunc("/command", h.HandleCommand).Methods(http.MethodPost)
	r.HandleFunc("/device-state/{id}", h.HandleDeviceState).Methods(http.MethodGet)
	return r
}

func postJSON(t *testing.T, r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newTestHandler(t *testing.T, cloud goveeapi.Cloud) *DriverHandler {
	t.Helper()
	cfg := config.New(filepath.Join(t.TempDir(), "state.json"))
	return NewDriverHandler(cfg, cloud)
}

func TestEntitiesEmptyBeforeSetup(t *testing.T) {
	h := newTestHandler(t, &fakeCloud{})
	r := testRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/entities", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var entities []json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &entities); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(entities) != 0 {
		t.Errorf("got %d entities before setup, want 0", len(entities))
	}
}

func TestSetupFlowBuildsEntity(t *testing.T) {
	cloud := &fakeCloud{devices: []goveeapi.Device{lightDevice("AA", "Lamp")}}
	h := newTestHandler(t, cloud)
	r := testRouter(h)

	w := postJSON(t, r, "/setup", map[string]interface{}{
		"type":       "driver_setup_request",
		"setup_data": map[string]string{"api_key": "fresh-key"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("setup status = %d, body: %s", w.Code, w.Body.String())
	}

	var state setupStateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if state.State != "SETUP_COMPLETE" {
		t.Fatalf("setup state = %q, body: %s", state.State, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/entities", nil)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)

	var entities []hostapi.RemoteEntity
	if err := json.Unmarshal(w2.Body.Bytes(), &entities); err != nil {
		t.Fatal(err)
	}
	if len(entities) != 1 {
		t.Fatalf("got %d entities after setup, want 1", len(entities))
	}
	if entities[0].ID != "govee_remote_main" {
		t.Errorf("entity id = %q", entities[0].ID)
	}
}

func TestSetupRejectsBadJSON(t *testing.T) {
	h := newTestHandler(t, &fakeCloud{})
	r := testRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/setup", bytes.NewReader([]byte("{nope")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSetupRejectsUnknownMessageType(t *testing.T) {
	h := newTestHandler(t, &fakeCloud{})
	r := testRouter(h)

	w := postJSON(t, r, "/setup", map[string]interface{}{"type": "interpretive_dance"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCommandBeforeSetup(t *testing.T) {
	h := newTestHandler(t, &fakeCloud{})
	r := testRouter(h)

	w := postJSON(t, r, "/command", map[string]interface{}{
		"cmd_id": hostapi.CmdOn,
	})
	if w.Code != int(hostapi.StatusServiceUnavailable) {
		t.Errorf("status = %d, want %d", w.Code, hostapi.StatusServiceUnavailable)
	}
}

func TestCommandAfterSetup(t *testing.T) {
	cloud := &fakeCloud{devices: []goveeapi.Device{lightDevice("AA", "Lamp")}}
	h := newTestHandler(t, cloud)
	r := testRouter(h)

	postJSON(t, r, "/setup", map[string]interface{}{
		"type":       "driver_setup_request",
		"setup_data": map[string]string{"api_key": "fresh-key"},
	})

	w := postJSON(t, r, "/command", map[string]interface{}{
		"entity_id": "govee_remote_main",
		"cmd_id":    hostapi.CmdSendCmd,
		"params":    map[string]interface{}{"command": "LAMP_ON"},
	})
	if w.Code != int(hostapi.StatusOK) {
		t.Errorf("status = %d, body: %s", w.Code, w.Body.String())
	}
}

func TestCommandErrorResponseIsJSON(t *testing.T) {
	h := newTestHandler(t, &fakeCloud{})
	r := testRouter(h)

	// Non-200 responses still carry a JSON content type and body
	w := postJSON(t, r, "/command", map[string]interface{}{
		"cmd_id": hostapi.CmdOn,
	})
	if w.Code != int(hostapi.StatusServiceUnavailable) {
		t.Fatalf("status = %d, want %d", w.Code, hostapi.StatusServiceUnavailable)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}

	var resp commandResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Code != hostapi.StatusServiceUnavailable {
		t.Errorf("body code = %d, want %d", resp.Code, hostapi.StatusServiceUnavailable)
	}
}

func TestCommandWrongEntity(t *testing.T) {
	cloud := &fakeCloud{devices: []goveeapi.Device{lightDevice("AA", "Lamp")}}
	h := newTestHandler(t, cloud)
	r := testRouter(h)

	postJSON(t, r, "/setup", map[string]interface{}{
		"type":       "driver_setup_request",
		"setup_data": map[string]string{"api_key": "fresh-key"},
	})

	w := postJSON(t, r, "/command", map[string]interface{}{
		"entity_id": "someone_else",
		"cmd_id":    hostapi.CmdOn,
	})
	if w.Code != int(hostapi.StatusNotFound) {
		t.Errorf("status = %d, want %d", w.Code, hostapi.StatusNotFound)
	}
}

func TestDeviceStateUnknownDevice(t *testing.T) {
	h := newTestHandler(t, &fakeCloud{})
	r := testRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/device-state/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeviceStateKnownDevice(t *testing.T) {
	cloud := &fakeCloud{devices: []goveeapi.Device{lightDevice("AA", "Lamp")}}
	h := newTestHandler(t, cloud)
	r := testRouter(h)

	postJSON(t, r, "/setup", map[string]interface{}{
		"type":       "driver_setup_request",
		"setup_data": map[string]string{"api_key": "fresh-key"},
	})

	req := httptest.NewRequest(http.MethodGet, "/device-state/AA", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	var report goveeapi.StateReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Errorf("decoding state report: %v", err)
	}
}

func TestDecodeJSONBodyRejectsTrailingData(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/setup", bytes.NewReader([]byte(`{"a":1}{"b":2}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	var dst map[string]interface{}
	if err := decodeJSONBody(w, req, &dst); err == nil {
		t.Error("expected an error for trailing JSON data")
	}
}

func TestDecodeJSONBodyRejectsWrongContentType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/setup", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()

	var dst map[string]interface{}
	if err := decodeJSONBody(w, req, &dst); err == nil {
		t.Error("expected an error for a non-JSON content type")
	}
}
