package remote

import (
	"fmt"
	"strings"

	"github.com/mmiyara/govee-remote/internal/pkg/goveeapi"
	"github.com/mmiyara/govee-remote/internal/pkg/hostapi"
)

/*
 *   UI page synthesis.  Pages are fixed 4x6 grids: one directory page
 *   listing the SKU groups, then one control page per SKU.  Layout
 *   helpers take the first free row and return the next one so blocks
 *   can be chained; a block that does not fit is skipped whole.
 */

const (
	gridWidth  = 4
	gridHeight = 6
)

var pageGrid = hostapi.Size{Width: gridWidth, Height: gridHeight}

func cell(w, h int) hostapi.Size {
	return hostapi.Size{Width: w, Height: h}
}

// skuGroup collects the devices sharing one SKU, in registry order
type skuGroup struct {
	SKU     string
	Devices []DeviceEntry
}

func groupBySKU(entries []DeviceEntry) []skuGroup {
	var groups []skuGroup
	index := map[string]int{}

	for _, e := range entries {
		sku := e.Record.SKU
		if sku == "" {
			sku = "Unknown"
		}
		i, ok := index[sku]
		if !ok {
			i = len(groups)
			index[sku] = i
			groups = append(groups, skuGroup{SKU: sku})
		}
		groups[i].Devices = append(groups[i].Devices, e)
	}

	return groups
}

var typeDisplayNames = map[goveeapi.DeviceType]string{
	goveeapi.TypeKettle:      "Kettles",
	goveeapi.TypeLight:       "Lights",
	goveeapi.TypeHumidifier:  "Humidifiers",
	goveeapi.TypeHeater:      "Heaters",
	goveeapi.TypeSwitch:      "Switches",
	goveeapi.TypeSocket:      "Smart Plugs",
	goveeapi.TypeSensor:      "Sensors",
	goveeapi.TypeThermometer: "Thermometers",
	goveeapi.TypeSyncBox:     "Sync Boxes",
}

func skuDisplayName(g skuGroup) string {
	friendly := "Devices"
	if len(g.Devices) > 0 {
		if name, ok := typeDisplayNames[g.Devices[0].Record.Type]; ok {
			friendly = name
		}
	}

	if len(g.Devices) > 1 {
		return fmt.Sprintf("%s (%s) - %d devices", friendly, g.SKU, len(g.Devices))
	}
	return fmt.Sprintf("%s (%s)", friendly, g.SKU)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// BuildPages synthesises the full UI page set for a device registry
func BuildPages(entries []DeviceEntry) []*hostapi.UIPage {
	if len(entries) == 0 {
		page := hostapi.NewUIPage("main", "No Devices", pageGrid)
		page.Add(hostapi.TextItem("No devices found", 0, 0, cell(4, 1)))
		return []*hostapi.UIPage{page}
	}

	groups := groupBySKU(entries)

	pages := []*hostapi.UIPage{buildDirectoryPage(groups, len(entries))}
	for _, g := range groups {
		pages = append(pages, buildSKUPage(g))
	}

	return pages
}

// The directory page lists each SKU group and its member devices,
// top to bottom, dropping whatever does not fit the row budget
func buildDirectoryPage(groups []skuGroup, totalDevices int) *hostapi.UIPage {
	page := hostapi.NewUIPage("main", "Govee Devices", pageGrid)
	page.Add(hostapi.TextItem("Govee Devices", 0, 0, cell(4, 1)))

	y := 1
	for _, g := range groups {
		if y >= gridHeight {
			break
		}

		page.Add(hostapi.TextItem(skuDisplayName(g)+":", 0, y, cell(4, 1)))
		y++

		for _, e := range g.Devices {
			if y >= gridHeight {
				break
			}
			page.Add(hostapi.TextItem("• "+truncate(e.Record.Name, 18), 0, y, cell(4, 1)))
			y++
		}

		if y < gridHeight {
			y++ // spacer between groups
		}
	}

	if totalDevices > 1 && y < gridHeight-1 {
		page.Add(hostapi.CommandItem("All On", 0, gridHeight-1, cell(2, 1), CmdAllOn))
		page.Add(hostapi.CommandItem("All Off", 2, gridHeight-1, cell(2, 1), CmdAllOff))
	}

	return page
}

func buildSKUPage(g skuGroup) *hostapi.UIPage {
	name := skuDisplayName(g)
	id := "sku_" + strings.ToLower(strings.ReplaceAll(g.SKU, "-", "_"))

	page := hostapi.NewUIPage(id, name, pageGrid)
	page.Add(hostapi.TextItem(name, 0, 0, cell(4, 1)))

	switch {
	case len(g.Devices) == 1 && g.Devices[0].Record.Type == goveeapi.TypeSyncBox:
		addSyncBoxControls(page, g.Devices[0], 1)
	case len(g.Devices) == 1:
		addSingleDeviceControls(page, g.Devices[0], 1)
	default:
		addMultiDeviceControls(page, g.Devices, 1)
	}

	return page
}

func addPowerRow(page *hostapi.UIPage, prefix string, y int) int {
	if y >= gridHeight {
		return y
	}
	page.Add(hostapi.CommandItem("On", 0, y, cell(1, 1), prefix+"_ON"))
	page.Add(hostapi.CommandItem("Off", 1, y, cell(1, 1), prefix+"_OFF"))
	page.Add(hostapi.CommandItem("Toggle", 2, y, cell(2, 1), prefix+"_TOGGLE"))
	return y + 1
}

func addBrightnessPresetRow(page *hostapi.UIPage, prefix string, y int) int {
	if y >= gridHeight {
		return y
	}
	for i, pct := range []int{25, 50, 75, 100} {
		label := fmt.Sprintf("%d%%", pct)
		page.Add(hostapi.CommandItem(label, i, y, cell(1, 1), fmt.Sprintf("%s_BRIGHTNESS_%d", prefix, pct)))
	}
	return y + 1
}

func addBrightnessLadderRow(page *hostapi.UIPage, prefix string, y int) int {
	if y >= gridHeight {
		return y
	}
	page.Add(hostapi.CommandItem("Bright -", 0, y, cell(2, 1), prefix+"_BRIGHTNESS_DOWN"))
	page.Add(hostapi.CommandItem("Bright +", 2, y, cell(2, 1), prefix+"_BRIGHTNESS_UP"))
	return y + 1
}

func addColorRows(page *hostapi.UIPage, prefix string, y int) int {
	if y >= gridHeight {
		return y
	}
	page.Add(hostapi.CommandItem("Red", 0, y, cell(1, 1), prefix+"_COLOR_RED"))
	page.Add(hostapi.CommandItem("Green", 1, y, cell(1, 1), prefix+"_COLOR_GREEN"))
	page.Add(hostapi.CommandItem("Blue", 2, y, cell(1, 1), prefix+"_COLOR_BLUE"))
	page.Add(hostapi.CommandItem("White", 3, y, cell(1, 1), prefix+"_COLOR_WHITE"))
	y++

	if y < gridHeight {
		page.Add(hostapi.CommandItem("Warm", 0, y, cell(2, 1), prefix+"_COLOR_WARM"))
		page.Add(hostapi.CommandItem("Cool", 2, y, cell(2, 1), prefix+"_COLOR_COOL"))
		y++
	}

	return y
}

// Sync boxes get the specialised layout: power, dreamview/gradient
// toggles, music modes with sensitivity, then the light controls
func addSyncBoxControls(page *hostapi.UIPage, e DeviceEntry, y int) int {
	rec := e.Record
	prefix := CleanName(rec.Name)

	if rec.SupportsPower {
		y = addPowerRow(page, prefix, y)
	}

	if (rec.SupportsDreamview || rec.SupportsGradient) && y < gridHeight {
		if rec.SupportsDreamview {
			page.Add(hostapi.CommandItem("DV On", 0, y, cell(1, 1), prefix+"_DREAMVIEW_ON"))
			page.Add(hostapi.CommandItem("DV Off", 1, y, cell(1, 1), prefix+"_DREAMVIEW_OFF"))
		}
		if rec.SupportsGradient {
			page.Add(hostapi.CommandItem("Grad On", 2, y, cell(1, 1), prefix+"_GRADIENT_ON"))
			page.Add(hostapi.CommandItem("Grad Off", 3, y, cell(1, 1), prefix+"_GRADIENT_OFF"))
		}
		y++
	}

	if rec.SupportsMusic && y < gridHeight {
		modes := rec.MusicModes
		if len(modes) > 4 {
			modes = modes[:4]
		}
		for i, mode := range modes {
			token := modeToken(mode.Name)
			if token == "" {
				continue
			}
			page.Add(hostapi.CommandItem(truncate(mode.Name, 6), i, y, cell(1, 1), prefix+"_MUSIC_"+token))
		}
		if len(modes) > 0 {
			y++
		}

		if y < gridHeight {
			page.Add(hostapi.CommandItem("Sens -", 0, y, cell(2, 1), prefix+"_SENSITIVITY_DOWN"))
			page.Add(hostapi.CommandItem("Sens +", 2, y, cell(2, 1), prefix+"_SENSITIVITY_UP"))
			y++
		}
	}

	if rec.SupportsBrightness && y < gridHeight {
		y = addBrightnessPresetRow(page, prefix, y)
	}

	if rec.SupportsColor && y < gridHeight-1 {
		y = addColorRows(page, prefix, y)
	}

	return y
}

// Single non-sync devices get the general layout.  Temperature
// presets adapt to the advertised range; work modes take precedence
// over brightness presets for the middle rows.
func addSingleDeviceControls(page *hostapi.UIPage, e DeviceEntry, y int) int {
	rec := e.Record
	prefix := CleanName(rec.Name)

	if rec.SupportsPower {
		y = addPowerRow(page, prefix, y)
	}

	if rec.SupportsTemperature {
		maxTemp := goveeapi.DefaultTemperatureRange.Max
		if rec.TemperatureRange != nil {
			maxTemp = rec.TemperatureRange[1]
		}

		switch {
		case maxTemp >= 100:
			if y < gridHeight {
				for i, temp := range []int{60, 70, 80, 90} {
					page.Add(hostapi.CommandItem(fmt.Sprintf("%d°", temp), i, y, cell(1, 1),
						fmt.Sprintf("%s_TEMP_%d", prefix, temp)))
				}
				y++
			}
			if y < gridHeight {
				page.Add(hostapi.CommandItem("Temp -", 0, y, cell(2, 1), prefix+"_TEMP_DOWN"))
				page.Add(hostapi.CommandItem("Temp +", 2, y, cell(2, 1), prefix+"_TEMP_UP"))
				y++
			}
		case maxTemp >= 40:
			if y < gridHeight {
				for i, temp := range []int{20, 25, 30, 35} {
					page.Add(hostapi.CommandItem(fmt.Sprintf("%d°", temp), i, y, cell(1, 1),
						fmt.Sprintf("%s_TEMP_%d", prefix, temp)))
				}
				y++
			}
		}
	}

	if rec.SupportsWorkMode {
		modes := rec.WorkModes
		if len(modes) > 4 {
			modes = modes[:4]
		}

		placed := 0
		for _, mode := range modes {
			if y >= gridHeight {
				break
			}
			token := modeToken(mode.Name)
			if token == "" {
				continue
			}
			page.Add(hostapi.CommandItem(truncate(mode.Name, 6), placed%gridWidth, y, cell(1, 1),
				prefix+"_MODE_"+token))
			placed++
			if placed%gridWidth == 0 {
				y++
			}
		}
		if placed%gridWidth != 0 {
			y++
		}
	} else if rec.SupportsBrightness && y < gridHeight-1 {
		y = addBrightnessPresetRow(page, prefix, y)
		if y < gridHeight {
			y = addBrightnessLadderRow(page, prefix, y)
		}
	}

	if rec.SupportsColor && y < gridHeight-1 {
		y = addColorRows(page, prefix, y)
	}

	return y
}

// Multi-device SKU groups get a compact name + toggle list
func addMultiDeviceControls(page *hostapi.UIPage, devices []DeviceEntry, y int) int {
	for _, e := range devices {
		if y >= gridHeight-1 {
			break
		}

		prefix := CleanName(e.Record.Name)
		page.Add(hostapi.TextItem(truncate(e.Record.Name, 12), 0, y, cell(2, 1)))
		page.Add(hostapi.CommandItem("Toggle", 2, y, cell(2, 1), prefix+"_TOGGLE"))
		y++
	}

	if y < gridHeight && len(devices) > 0 && devices[0].Record.SupportsPower {
		page.Add(hostapi.CommandItem("All On", 0, gridHeight-1, cell(2, 1), CmdAllOn))
		page.Add(hostapi.CommandItem("All Off", 2, gridHeight-1, cell(2, 1), CmdAllOff))
	}

	return y
}
