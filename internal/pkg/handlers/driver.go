package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/mmiyara/govee-remote/internal/pkg/config"
	"github.com/mmiyara/govee-remote/internal/pkg/goveeapi"
	"github.com/mmiyara/govee-remote/internal/pkg/hostapi"
	"github.com/mmiyara/govee-remote/internal/pkg/logging"
	"github.com/mmiyara/govee-remote/internal/pkg/remote"
	"github.com/mmiyara/govee-remote/internal/pkg/setup"
)

// DriverHandler exposes the driver to the remote host over HTTP:
// setup flow, entity listing, command dispatch and device state.
type DriverHandler struct {
	cfg    *config.Config
	client goveeapi.Cloud
	setup  *setup.Handler

	mu     sync.RWMutex
	remote *remote.Remote
}

func NewDriverHandler(cfg *config.Config, client goveeapi.Cloud) *DriverHandler {
	h := &DriverHandler{
		cfg:    cfg,
		client: client,
	}
	h.setup = setup.New(cfg, client, h.rebuild)

	if cfg.IsConfigured() {
		h.rebuild()
	}

	return h
}

// rebuild regenerates the remote entity from the persisted registry.
// Runs at startup and after every completed setup cycle.
func (h *DriverHandler) rebuild() {
	r, err := remote.New(h.client.WithAPIKey(h.cfg.APIKey()), h.cfg)
	if err != nil {
		logging.Logger(nil).WithError(err).Error("rebuilding remote entity")
		return
	}

	h.mu.Lock()
	h.remote = r
	h.mu.Unlock()
}

// Remote returns the current remote entity, nil before first setup
func (h *DriverHandler) Remote() *remote.Remote {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.remote
}

// setupEnvelope is the wire form of one setup flow message
type setupEnvelope struct {
	Type        string                 `json:"type"`
	Reconfigure bool                   `json:"reconfigure"`
	SetupData   map[string]string      `json:"setup_data"`
	InputValues map[string]string      `json:"input_values"`
	Confirm     bool                   `json:"confirm"`
	Error       hostapi.SetupErrorKind `json:"error"`
}

func (e setupEnvelope) message() hostapi.SetupRequest {
	switch e.Type {
	case "driver_setup_request":
		return &hostapi.DriverSetupRequest{Reconfigure: e.Reconfigure, SetupData: e.SetupData}
	case "user_data":
		return &hostapi.UserDataResponse{InputValues: e.InputValues}
	case "user_confirmation":
		return &hostapi.UserConfirmationResponse{Confirm: e.Confirm}
	case "abort_driver_setup":
		return &hostapi.AbortDriverSetup{Error: e.Error}
	}
	return nil
}

type setupStateResponse struct {
	State string                    `json:"state"`
	Error hostapi.SetupErrorKind    `json:"error,omitempty"`
	Form  *hostapi.RequestUserInput `json:"require_user_action,omitempty"`
}

func setupState(action hostapi.SetupAction) setupStateResponse {
	switch a := action.(type) {
	case hostapi.SetupComplete:
		return setupStateResponse{State: "SETUP_COMPLETE"}
	case hostapi.SetupInProgress:
		return setupStateResponse{State: "SETUP_IN_PROGRESS"}
	case hostapi.RequestUserInput:
		return setupStateResponse{State: "WAIT_USER_ACTION", Form: &a}
	case hostapi.SetupError:
		return setupStateResponse{State: "SETUP_ERROR", Error: a.Kind}
	}
	return setupStateResponse{State: "SETUP_ERROR", Error: hostapi.ErrOther}
}

func (h *DriverHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	var env setupEnvelope

	if err := decodeJSONBody(w, r, &env); err != nil {
		logging.Logger(r.Context()).WithError(err).Error("decoding JSON")
		http.Error(w, "unable to parse JSON", http.StatusBadRequest)
		return
	}

	msg := env.message()
	if msg == nil {
		logging.Logger(r.Context()).Errorf("unsupported setup message type: %s", env.Type)
		http.Error(w, "unknown setup message type", http.StatusBadRequest)
		return
	}

	action := h.setup.OnSetup(r.Context(), msg)
	sendJSONResponse(w, r, setupState(action))
}

func (h *DriverHandler) HandleEntities(w http.ResponseWriter, r *http.Request) {
	entities := []*hostapi.RemoteEntity{}

	if rem := h.Remote(); rem != nil {
		entities = append(entities, rem.Snapshot())
	}

	sendJSONResponse(w, r, entities)
}

// commandRequest is the wire form of one entity command.  Both
// command_id and the short cmd_id spelling are accepted.
type commandRequest struct {
	EntityID  string                 `json:"entity_id"`
	CmdID     string                 `json:"cmd_id"`
	CommandID string                 `json:"command_id"`
	Params    map[string]interface{} `json:"params"`
}

func (r commandRequest) commandID() string {
	if r.CmdID != "" {
		return r.CmdID
	}
	return r.CommandID
}

type commandResponse struct {
	Code hostapi.StatusCode `json:"code"`
}

func (h *DriverHandler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest

	if err := decodeJSONBody(w, r, &req); err != nil {
		logging.Logger(r.Context()).WithError(err).Error("decoding JSON")
		http.Error(w, "unable to parse JSON", http.StatusBadRequest)
		return
	}

	rem := h.Remote()
	if rem == nil {
		sendJSONStatus(w, r, int(hostapi.StatusServiceUnavailable), commandResponse{Code: hostapi.StatusServiceUnavailable})
		return
	}
	if req.EntityID != "" && req.EntityID != rem.Entity.ID {
		sendJSONStatus(w, r, int(hostapi.StatusNotFound), commandResponse{Code: hostapi.StatusNotFound})
		return
	}

	code := rem.HandleCommand(rem.Entity, req.commandID(), req.Params)
	sendJSONStatus(w, r, int(code), commandResponse{Code: code})
}

func (h *DriverHandler) HandleDeviceState(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, ok := h.cfg.Device(id)
	if !ok {
		http.Error(w, "unknown device", http.StatusNotFound)
		return
	}

	c := h.client.WithAPIKey(h.cfg.APIKey())
	state, err := c.DeviceState(r.Context(), rec.Device(id))
	if err != nil {
		logging.Logger(r.Context()).WithError(err).Errorf("querying Govee API : %s", err)
		http.Error(w, "Down-stream API error", http.StatusBadGateway)
		return
	}

	sendJSONResponse(w, r, state)
}
