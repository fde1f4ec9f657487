package remote

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/mmiyara/govee-remote/internal/pkg/config"
	"github.com/mmiyara/govee-remote/internal/pkg/goveeapi"
)

// Reserved global command tokens
const (
	CmdAllOn     = "ALL_ON"
	CmdAllOff    = "ALL_OFF"
	CmdAllToggle = "ALL_TOGGLE"
	CmdNoDevices = "NO_DEVICES"
)

const (
	maxWorkModeCommands = 5
	maxSceneCommands    = 10
)

// DeviceEntry pairs a device ID with its persisted record
type DeviceEntry struct {
	ID     string
	Record config.DeviceRecord
}

// SortedEntries flattens the registry into a deterministic order.
// The persisted form is a JSON object, so device ID is the only
// stable ordering available.
func SortedEntries(devices map[string]config.DeviceRecord) []DeviceEntry {
	ids := make([]string, 0, len(devices))
	for id := range devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]DeviceEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, DeviceEntry{ID: id, Record: devices[id]})
	}
	return entries
}

// CleanName derives a device's command prefix from its display name:
// upper-cased, every non-alphanumeric run replaced by a single
// underscore, leading/trailing underscores trimmed.  Idempotent.
func CleanName(name string) string {
	var b strings.Builder
	pendingSep := false

	for _, r := range strings.ToUpper(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		} else {
			pendingSep = true
		}
	}

	return b.String()
}

// modeToken normalises a vendor-supplied mode/scene display name into
// a command token fragment
func modeToken(name string) string {
	t := strings.ToUpper(name)
	t = strings.ReplaceAll(t, "'", "")
	t = strings.ReplaceAll(t, " ", "_")
	return t
}

// UniquePrefixes rejects registries where two devices clean to the
// same command prefix, which would make their commands ambiguous
func UniquePrefixes(entries []DeviceEntry) error {
	seen := map[string]string{}

	for _, e := range entries {
		prefix := CleanName(e.Record.Name)
		if other, ok := seen[prefix]; ok {
			return fmt.Errorf("device names %q and %q both map to command prefix %q",
				other, e.Record.Name, prefix)
		}
		seen[prefix] = e.Record.Name
	}

	return nil
}

// GenerateCommands produces the deduplicated, sorted command
// namespace for a device set.  Deterministic: the same registry
// always yields the same list.
func GenerateCommands(entries []DeviceEntry) []string {
	if len(entries) == 0 {
		return []string{CmdNoDevices}
	}

	set := map[string]bool{}
	add := func(cmd string) { set[cmd] = true }

	for _, e := range entries {
		rec := e.Record
		p := CleanName(rec.Name)

		if rec.SupportsPower {
			add(p + "_ON")
			add(p + "_OFF")
			add(p + "_TOGGLE")
		}

		if rec.Type == goveeapi.TypeSyncBox {
			if rec.SupportsDreamview {
				add(p + "_DREAMVIEW_ON")
				add(p + "_DREAMVIEW_OFF")
			}
			if rec.SupportsGradient {
				add(p + "_GRADIENT_ON")
				add(p + "_GRADIENT_OFF")
			}
			if rec.SupportsMusic {
				for _, mode := range rec.MusicModes {
					if t := modeToken(mode.Name); t != "" {
						add(p + "_MUSIC_" + t)
					}
				}
				add(p + "_SENSITIVITY_UP")
				add(p + "_SENSITIVITY_DOWN")
			}
		}

		if rec.SupportsBrightness {
			add(p + "_BRIGHTNESS_UP")
			add(p + "_BRIGHTNESS_DOWN")
			add(p + "_BRIGHTNESS_25")
			add(p + "_BRIGHTNESS_50")
			add(p + "_BRIGHTNESS_75")
			add(p + "_BRIGHTNESS_100")
		}

		if rec.SupportsColor {
			add(p + "_COLOR_RED")
			add(p + "_COLOR_GREEN")
			add(p + "_COLOR_BLUE")
			add(p + "_COLOR_WHITE")
			add(p + "_COLOR_WARM")
			add(p + "_COLOR_COOL")
		}

		if rec.SupportsTemperature {
			add(p + "_TEMP_UP")
			add(p + "_TEMP_DOWN")
			add(p + "_TEMP_60")
			add(p + "_TEMP_70")
			add(p + "_TEMP_80")
			add(p + "_TEMP_90")
			add(p + "_TEMP_100")
		}

		if rec.SupportsWorkMode {
			modes := rec.WorkModes
			if len(modes) > maxWorkModeCommands {
				modes = modes[:maxWorkModeCommands]
			}
			for _, mode := range modes {
				if t := modeToken(mode.Name); t != "" {
					add(p + "_MODE_" + t)
				}
			}
		}

		if rec.SupportsScenes {
			scenes := rec.Scenes
			if len(scenes) > maxSceneCommands {
				scenes = scenes[:maxSceneCommands]
			}
			for _, scene := range scenes {
				if t := modeToken(scene.Name); t != "" {
					add(p + "_SCENE_" + t)
				}
			}
		}
	}

	if len(entries) > 1 {
		add(CmdAllOn)
		add(CmdAllOff)
		add(CmdAllToggle)
	}

	commands := make([]string, 0, len(set))
	for cmd := range set {
		commands = append(commands, cmd)
	}
	sort.Strings(commands)

	return commands
}
