package remote

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/korovkin/limiter"

	"github.com/mmiyara/govee-remote/internal/pkg/config"
	"github.com/mmiyara/govee-remote/internal/pkg/goveeapi"
	"github.com/mmiyara/govee-remote/internal/pkg/logging"
)

/*
 *   Command dispatch.  An opaque command token is resolved back to a
 *   (device, capability action) pair, throttled, and executed through
 *   the cloud client.  The dispatcher owns the last-known power cache
 *   (for toggle direction) and the throttle timestamps; both are
 *   mutex-guarded since host command invocations may be concurrent.
 */

const (
	globalThrottleWindow = 100 * time.Millisecond
	deviceThrottleWindow = 300 * time.Millisecond

	// Concurrent sends during an ALL_* fan-out
	fanOutConcurrency = 4
)

// Fixed canonical colors for the COLOR_* tokens.  Deliberately not
// derived from vendor scene data.
var colorTable = map[string]int{
	"RED":   0xFF0000,
	"GREEN": 0x00FF00,
	"BLUE":  0x0000FF,
	"WHITE": 0xFFFFFF,
	"WARM":  0xFFA500,
	"COOL":  0xB0E8FF,
}

// Fallback work-mode values for kettles whose mode list is not
// advertised through the capability descriptor
var kettleModeTable = map[string]int{
	"DIY":     1,
	"TEA":     2,
	"COFFEE":  3,
	"BOILING": 4,
}

const (
	sensitivityHigh = 75
	sensitivityLow  = 25
)

type actionKind int

const (
	actionPowerOn actionKind = iota
	actionPowerOff
	actionPowerToggle
	actionDreamview
	actionGradient
	actionMusicMode
	actionBrightness
	actionColor
	actionTemperature
	actionWorkMode
	actionScene
)

// deviceAction is a resolved capability action, constructed once per
// command so no string comparison is left for execution time
type deviceAction struct {
	kind     actionKind
	enable   bool   // dreamview / gradient
	value    int    // brightness / rgb / temperature / mode value / music mode
	extra    int    // music sensitivity
	instance string // work mode / scene instance
}

// Dispatcher resolves and executes remote command tokens
type Dispatcher struct {
	client  goveeapi.Cloud
	entries []DeviceEntry

	mu         sync.Mutex
	powerState map[string]bool
	lastSend   map[string]time.Time
	lastGlobal time.Time

	now func() time.Time
}

func NewDispatcher(client goveeapi.Cloud, entries []DeviceEntry) *Dispatcher {
	return &Dispatcher{
		client:     client,
		entries:    entries,
		powerState: make(map[string]bool),
		lastSend:   make(map[string]time.Time),
		now:        time.Now,
	}
}

// Execute runs one command token.  Returns false for unresolvable
// commands, commands the device cannot honour, and failed sends;
// throttled sends are swallowed and report success.
func (d *Dispatcher) Execute(ctx context.Context, command string) bool {
	if len(d.entries) == 0 || command == CmdNoDevices {
		return false
	}

	if strings.HasPrefix(command, "ALL_") {
		return d.executeGlobal(ctx, command)
	}

	return d.executeDevice(ctx, command)
}

// allowSend implements the throttle policy: 0.1s minimum spacing
// between any two sends, 0.3s per device.  A send inside either
// window is a no-op; timestamps only advance for allowed sends.
func (d *Dispatcher) allowSend(deviceID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if now.Sub(d.lastGlobal) < globalThrottleWindow {
		return false
	}
	if last, ok := d.lastSend[deviceID]; ok && now.Sub(last) < deviceThrottleWindow {
		return false
	}

	d.lastGlobal = now
	d.lastSend[deviceID] = now
	return true
}

func (d *Dispatcher) cachedPower(deviceID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.powerState[deviceID] // absent means off
}

func (d *Dispatcher) setCachedPower(deviceID string, on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.powerState[deviceID] = on
}

/*
 * Global fan-out
 */

func (d *Dispatcher) executeGlobal(ctx context.Context, command string) bool {
	if command != CmdAllOn && command != CmdAllOff && command != CmdAllToggle {
		return false
	}

	// Matches the vendor app: a global toggle drives everything on
	on := command != CmdAllOff

	var targets []DeviceEntry
	for _, e := range d.entries {
		if e.Record.SupportsPower {
			targets = append(targets, e)
		}
	}
	if len(targets) == 0 {
		return false
	}

	var mu sync.Mutex
	successes := 0

	limit := limiter.NewConcurrencyLimiter(fanOutConcurrency)
	for _, e := range targets {
		e := e
		limit.ExecuteWithTicket(func(ticket int) {
			if d.sendPower(ctx, e, on) {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		})
	}
	limit.Wait()

	return successes > 0
}

// sendPower performs one throttled power send.  Per-device failures
// during fan-out are isolated here: logged, reported as false, never
// propagated.
func (d *Dispatcher) sendPower(ctx context.Context, e DeviceEntry, on bool) bool {
	if !d.allowSend(e.ID) {
		return true
	}

	dev := e.Record.Device(e.ID)
	var err error
	if on {
		err = goveeapi.TurnOn(ctx, d.client, dev)
	} else {
		err = goveeapi.TurnOff(ctx, d.client, dev)
	}

	if err != nil {
		logging.Logger(ctx).WithError(err).Errorf("power command for device %s", e.Record.Name)
		return false
	}

	d.setCachedPower(e.ID, on)
	return true
}

/*
 * Device-prefixed commands
 */

// matchDevice finds the registry entry whose cleaned prefix matches
// the command, longest prefix winning so a device named "Lamp" can
// never swallow commands for "Lamp 2"
func (d *Dispatcher) matchDevice(command string) (DeviceEntry, string, bool) {
	var (
		best       DeviceEntry
		bestSuffix string
		bestLen    = -1
	)

	for _, e := range d.entries {
		prefix := CleanName(e.Record.Name)
		if prefix == "" || !strings.HasPrefix(command, prefix+"_") {
			continue
		}
		if len(prefix) > bestLen {
			best = e
			bestSuffix = command[len(prefix)+1:]
			bestLen = len(prefix)
		}
	}

	return best, bestSuffix, bestLen >= 0
}

func (d *Dispatcher) executeDevice(ctx context.Context, command string) bool {
	e, suffix, ok := d.matchDevice(command)
	if !ok {
		logging.Logger(ctx).Debugf("no device matches command %s", command)
		return false
	}

	action, ok := d.resolveAction(suffix, e)
	if !ok {
		logging.Logger(ctx).Debugf("device %s does not support action %s", e.Record.Name, suffix)
		return false
	}

	if !d.allowSend(e.ID) {
		// Throttled: swallow the button mash, report success
		return true
	}

	return d.executeAction(ctx, e, action)
}

// resolveAction maps a command suffix to a capability action, gated
// on the device's support flags.  No client call is made here.
func (d *Dispatcher) resolveAction(suffix string, e DeviceEntry) (deviceAction, bool) {
	rec := e.Record
	none := deviceAction{}

	switch suffix {
	case "ON":
		return deviceAction{kind: actionPowerOn}, rec.SupportsPower
	case "OFF":
		return deviceAction{kind: actionPowerOff}, rec.SupportsPower
	case "TOGGLE":
		return deviceAction{kind: actionPowerToggle}, rec.SupportsPower
	case "DREAMVIEW_ON":
		return deviceAction{kind: actionDreamview, enable: true}, rec.SupportsDreamview
	case "DREAMVIEW_OFF":
		return deviceAction{kind: actionDreamview}, rec.SupportsDreamview
	case "GRADIENT_ON":
		return deviceAction{kind: actionGradient, enable: true}, rec.SupportsGradient
	case "GRADIENT_OFF":
		return deviceAction{kind: actionGradient}, rec.SupportsGradient
	case "SENSITIVITY_UP":
		return deviceAction{kind: actionMusicMode, value: 1, extra: sensitivityHigh}, rec.SupportsMusic
	case "SENSITIVITY_DOWN":
		return deviceAction{kind: actionMusicMode, value: 1, extra: sensitivityLow}, rec.SupportsMusic
	case "BRIGHTNESS_UP":
		return deviceAction{kind: actionBrightness, value: 100}, rec.SupportsBrightness
	case "BRIGHTNESS_DOWN":
		return deviceAction{kind: actionBrightness, value: 20}, rec.SupportsBrightness
	case "TEMP_UP":
		r := d.temperatureRange(rec)
		return deviceAction{kind: actionTemperature, value: minInt(r.Max, 90)}, rec.SupportsTemperature
	case "TEMP_DOWN":
		r := d.temperatureRange(rec)
		return deviceAction{kind: actionTemperature, value: maxInt(r.Min, 40)}, rec.SupportsTemperature
	}

	switch {
	case strings.HasPrefix(suffix, "BRIGHTNESS_"):
		if !rec.SupportsBrightness {
			return none, false
		}
		v, err := strconv.Atoi(strings.TrimPrefix(suffix, "BRIGHTNESS_"))
		if err != nil {
			return none, false
		}
		return deviceAction{kind: actionBrightness, value: v}, true

	case strings.HasPrefix(suffix, "COLOR_"):
		if !rec.SupportsColor {
			return none, false
		}
		rgb, ok := colorTable[strings.TrimPrefix(suffix, "COLOR_")]
		if !ok {
			return none, false
		}
		return deviceAction{kind: actionColor, value: rgb}, true

	case strings.HasPrefix(suffix, "TEMP_"):
		if !rec.SupportsTemperature {
			return none, false
		}
		v, err := strconv.Atoi(strings.TrimPrefix(suffix, "TEMP_"))
		if err != nil {
			return none, false
		}
		return deviceAction{kind: actionTemperature, value: v}, true

	case strings.HasPrefix(suffix, "MUSIC_"):
		if !rec.SupportsMusic {
			return none, false
		}
		want := strings.TrimPrefix(suffix, "MUSIC_")
		for _, mode := range rec.MusicModes {
			if strings.EqualFold(modeToken(mode.Name), want) {
				return deviceAction{kind: actionMusicMode, value: mode.Value, extra: sensitivityHigh}, true
			}
		}
		return none, false

	case strings.HasPrefix(suffix, "MODE_"):
		if !rec.SupportsWorkMode {
			return none, false
		}
		want := strings.TrimPrefix(suffix, "MODE_")
		for _, mode := range rec.WorkModes {
			if strings.EqualFold(modeToken(mode.Name), want) {
				return deviceAction{kind: actionWorkMode, instance: mode.Instance, value: mode.Value}, true
			}
		}
		if v, ok := kettleModeTable[strings.ToUpper(want)]; ok {
			return deviceAction{kind: actionWorkMode, instance: "workMode", value: v}, true
		}
		return none, false

	case strings.HasPrefix(suffix, "SCENE_"):
		if !rec.SupportsScenes {
			return none, false
		}
		want := strings.TrimPrefix(suffix, "SCENE_")
		for _, scene := range rec.Scenes {
			if strings.EqualFold(modeToken(scene.Name), want) {
				return deviceAction{kind: actionScene, instance: scene.Instance, value: scene.Value}, true
			}
		}
		return none, false
	}

	return none, false
}

func (d *Dispatcher) temperatureRange(rec config.DeviceRecord) goveeapi.Range {
	if rec.TemperatureRange != nil {
		return goveeapi.Range{Min: rec.TemperatureRange[0], Max: rec.TemperatureRange[1]}
	}
	return goveeapi.DefaultTemperatureRange
}

func (d *Dispatcher) executeAction(ctx context.Context, e DeviceEntry, action deviceAction) bool {
	dev := e.Record.Device(e.ID)

	var err error
	switch action.kind {
	case actionPowerOn:
		err = goveeapi.TurnOn(ctx, d.client, dev)
		if err == nil {
			d.setCachedPower(e.ID, true)
		}
	case actionPowerOff:
		err = goveeapi.TurnOff(ctx, d.client, dev)
		if err == nil {
			d.setCachedPower(e.ID, false)
		}
	case actionPowerToggle:
		// Toggle direction comes from the cache, never from a live
		// state read; a failed send leaves the cache unchanged
		target := !d.cachedPower(e.ID)
		if target {
			err = goveeapi.TurnOn(ctx, d.client, dev)
		} else {
			err = goveeapi.TurnOff(ctx, d.client, dev)
		}
		if err == nil {
			d.setCachedPower(e.ID, target)
		}
	case actionDreamview:
		err = goveeapi.SetDreamview(ctx, d.client, dev, action.enable)
	case actionGradient:
		err = goveeapi.SetGradient(ctx, d.client, dev, action.enable)
	case actionMusicMode:
		err = goveeapi.SetMusicMode(ctx, d.client, dev, action.value, action.extra)
	case actionBrightness:
		err = goveeapi.SetBrightness(ctx, d.client, dev, action.value)
	case actionColor:
		err = goveeapi.SetColorRGB(ctx, d.client, dev, action.value)
	case actionTemperature:
		err = goveeapi.SetTemperature(ctx, d.client, dev, action.value)
	case actionWorkMode:
		err = goveeapi.SetWorkMode(ctx, d.client, dev, action.instance, action.value)
	case actionScene:
		err = goveeapi.SetScene(ctx, d.client, dev, action.instance, action.value)
	default:
		return false
	}

	if err != nil {
		logging.Logger(ctx).WithError(err).Errorf("executing command for device %s", e.Record.Name)
		return false
	}

	return true
}

// Reconcile refreshes the power cache from live device state.  Best
// effort: per-device read failures are logged and skipped.
func (d *Dispatcher) Reconcile(ctx context.Context) {
	for _, e := range d.entries {
		if !e.Record.SupportsPower {
			continue
		}

		report, err := d.client.DeviceState(ctx, e.Record.Device(e.ID))
		if err != nil {
			logging.Logger(ctx).WithError(err).Debugf("reconciling device %s", e.Record.Name)
			continue
		}

		if on, ok := report.PowerOn(); ok {
			d.setCachedPower(e.ID, on)
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
