package remote

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/mmiyara/govee-remote/internal/pkg/config"
	"github.com/mmiyara/govee-remote/internal/pkg/goveeapi"
	"github.com/mmiyara/govee-remote/internal/pkg/hostapi"
	"github.com/mmiyara/govee-remote/internal/pkg/logging"
)

const entityID = "govee_remote_main"

// When picking the device bound to the physical power key, prefer the
// types a user most likely wants on the main button
var primaryTypePriority = []goveeapi.DeviceType{
	goveeapi.TypeLight,
	goveeapi.TypeKettle,
	goveeapi.TypeHumidifier,
	goveeapi.TypeHeater,
	goveeapi.TypeSwitch,
	goveeapi.TypeSocket,
	goveeapi.TypeSensor,
}

// Remote is the one remote entity exposed to the host, plus its
// dispatcher
type Remote struct {
	Entity     *hostapi.RemoteEntity
	dispatcher *Dispatcher
	client     goveeapi.Cloud

	// Guards the entity attribute map; commands mutate it while the
	// entities endpoint serialises it
	mu sync.Mutex
}

// New builds the remote entity from the persisted registry.  Fails if
// two device names collide to the same command prefix; that would
// make their commands ambiguous.
func New(client goveeapi.Cloud, cfg *config.Config) (*Remote, error) {
	entries := SortedEntries(cfg.Devices())

	if err := UniquePrefixes(entries); err != nil {
		return nil, errors.Wrap(err, "building command namespace")
	}

	commands := GenerateCommands(entries)
	pages := BuildPages(entries)

	r := &Remote{
		client:     client,
		dispatcher: NewDispatcher(client, entries),
	}

	r.Entity = &hostapi.RemoteEntity{
		ID:             entityID,
		Name:           map[string]string{"en": "Govee Remote"},
		Features:       []hostapi.Feature{hostapi.FeatureOnOff, hostapi.FeatureSendCmd},
		Attributes:     map[string]interface{}{"state": hostapi.StateOn},
		SimpleCommands: commands,
		ButtonMapping:  buildButtonMapping(entries),
		UIPages:        pages,
		Handler:        r.HandleCommand,
	}

	logging.Logger(nil).Infof("Remote entity created with %d commands and %d UI pages",
		len(commands), len(pages))

	return r, nil
}

func buildButtonMapping(entries []DeviceEntry) []hostapi.ButtonMapping {
	var mappings []hostapi.ButtonMapping
	if len(entries) == 0 {
		return mappings
	}

	if primary, ok := findPrimaryDevice(entries); ok {
		mappings = append(mappings, hostapi.ButtonMapping{
			Button:     hostapi.ButtonPower,
			ShortPress: CleanName(primary.Record.Name) + "_TOGGLE",
		})
	}

	// Volume keys drive brightness when any device has it, else the
	// first temperature ladder
	for _, e := range entries {
		if e.Record.SupportsBrightness {
			p := CleanName(e.Record.Name)
			mappings = append(mappings,
				hostapi.ButtonMapping{Button: hostapi.ButtonVolumeUp, ShortPress: p + "_BRIGHTNESS_UP"},
				hostapi.ButtonMapping{Button: hostapi.ButtonVolumeDown, ShortPress: p + "_BRIGHTNESS_DOWN"},
			)
			return mappings
		}
	}
	for _, e := range entries {
		if e.Record.SupportsTemperature {
			p := CleanName(e.Record.Name)
			mappings = append(mappings,
				hostapi.ButtonMapping{Button: hostapi.ButtonVolumeUp, ShortPress: p + "_TEMP_UP"},
				hostapi.ButtonMapping{Button: hostapi.ButtonVolumeDown, ShortPress: p + "_TEMP_DOWN"},
			)
			return mappings
		}
	}

	return mappings
}

func findPrimaryDevice(entries []DeviceEntry) (DeviceEntry, bool) {
	for _, t := range primaryTypePriority {
		for _, e := range entries {
			if e.Record.Type == t {
				return e, true
			}
		}
	}

	if len(entries) > 0 {
		return entries[0], true
	}
	return DeviceEntry{}, false
}

// HandleCommand is the host-facing command handler.  It always
// returns a status code; a panic during dispatch is contained and
// reported as a server error.
func (r *Remote) HandleCommand(entity *hostapi.RemoteEntity, cmdID string, params map[string]interface{}) (status hostapi.StatusCode) {
	logging.Logger(nil).Infof("Remote command: %s %v", cmdID, params)

	defer func() {
		if rec := recover(); rec != nil {
			logging.Logger(nil).Errorf("panic handling remote command %s: %v", cmdID, rec)
			status = hostapi.StatusServerError
		}
	}()

	if r.client == nil || !r.client.IsConfigured() {
		return hostapi.StatusServiceUnavailable
	}

	switch cmdID {
	case hostapi.CmdOn:
		r.setState(entity, hostapi.StateOn)
		return hostapi.StatusOK
	case hostapi.CmdOff:
		r.setState(entity, hostapi.StateOff)
		return hostapi.StatusOK
	case hostapi.CmdSendCmd:
		return r.handleSendCmd(params)
	default:
		return hostapi.StatusNotImplemented
	}
}

func (r *Remote) setState(entity *hostapi.RemoteEntity, s hostapi.EntityState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entity.Attributes["state"] = s
}

// Snapshot returns a copy of the entity with its own attribute map,
// safe to serialise while commands keep mutating the live one
func (r *Remote) Snapshot() *hostapi.RemoteEntity {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := *r.Entity
	attrs := make(map[string]interface{}, len(r.Entity.Attributes))
	for k, v := range r.Entity.Attributes {
		attrs[k] = v
	}
	e.Attributes = attrs

	return &e
}

func (r *Remote) handleSendCmd(params map[string]interface{}) hostapi.StatusCode {
	command, ok := params["command"].(string)
	if !ok || command == "" {
		return hostapi.StatusBadRequest
	}

	if r.dispatcher.Execute(context.Background(), command) {
		return hostapi.StatusOK
	}
	return hostapi.StatusServerError
}

// Reconcile refreshes the dispatcher's power cache from live state
func (r *Remote) Reconcile(ctx context.Context) {
	r.dispatcher.Reconcile(ctx)
}
