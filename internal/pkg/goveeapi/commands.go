package goveeapi

import "context"

/*
 *   Control command constructors.  Each command carries the vendor
 *   capability type, the instance to address and an opaque value; the
 *   client serialises them into the control endpoint payload.
 */

type command struct {
	capType  string
	instance string
	val      interface{}
}

func (c command) capabilityType() string     { return c.capType }
func (c command) capabilityInstance() string { return c.instance }
func (c command) value() interface{}         { return c.val }

// Command is one control action addressed at a single capability
// instance of a device
type Command interface {
	capabilityType() string
	capabilityInstance() string
	value() interface{}
}

func NewPowerCommand(on bool) Command {
	v := 0
	if on {
		v = 1
	}
	return command{capType: capTypeOnOff, instance: instPowerSwitch, val: v}
}

func NewBrightnessCommand(brightness int) Command {
	return command{capType: capTypeRange, instance: instBrightness, val: brightness}
}

func NewColorRGBCommand(rgb int) Command {
	return command{capType: capTypeColor, instance: instColorRGB, val: rgb}
}

func NewColorTemperatureCommand(kelvin int) Command {
	return command{capType: capTypeColor, instance: instColorTempK, val: kelvin}
}

func NewTemperatureCommand(celsius int) Command {
	return command{
		capType:  capTypeTemperature,
		instance: instSliderTemp,
		val: map[string]interface{}{
			"temperature": celsius,
			"unit":        "Celsius",
		},
	}
}

func NewWorkModeCommand(instance string, mode int) Command {
	return command{
		capType:  capTypeWorkMode,
		instance: instance,
		val:      map[string]interface{}{"workMode": mode},
	}
}

func NewSceneCommand(instance string, scene int) Command {
	return command{capType: capTypeScene, instance: instance, val: scene}
}

func NewGradientCommand(enabled bool) Command {
	v := 0
	if enabled {
		v = 1
	}
	return command{capType: capTypeToggle, instance: instGradient, val: v}
}

func NewDreamviewCommand(enabled bool) Command {
	v := 0
	if enabled {
		v = 1
	}
	return command{capType: capTypeToggle, instance: instDreamview, val: v}
}

func NewMusicModeCommand(mode, sensitivity int) Command {
	return command{
		capType:  capTypeMusic,
		instance: instMusicMode,
		val: map[string]interface{}{
			"musicMode":   mode,
			"sensitivity": sensitivity,
			"autoColor":   1,
		},
	}
}

/*
 * Typed control helpers.  Out-of-range values are clamped to the
 * device's advertised bounds before sending, the same way the vendor
 * app behaves.
 */

func TurnOn(ctx context.Context, c Cloud, dev Device) error {
	return c.Control(ctx, dev, NewPowerCommand(true))
}

func TurnOff(ctx context.Context, c Cloud, dev Device) error {
	return c.Control(ctx, dev, NewPowerCommand(false))
}

func SetBrightness(ctx context.Context, c Cloud, dev Device, brightness int) error {
	r := dev.BrightnessRange()
	return c.Control(ctx, dev, NewBrightnessCommand(clamp(brightness, r.Min, r.Max)))
}

func SetColorRGB(ctx context.Context, c Cloud, dev Device, rgb int) error {
	return c.Control(ctx, dev, NewColorRGBCommand(clamp(rgb, 0, 0xFFFFFF)))
}

func SetColorTemperature(ctx context.Context, c Cloud, dev Device, kelvin int) error {
	r := dev.ColorTempRange()
	return c.Control(ctx, dev, NewColorTemperatureCommand(clamp(kelvin, r.Min, r.Max)))
}

func SetTemperature(ctx context.Context, c Cloud, dev Device, celsius int) error {
	r := dev.TemperatureRange()
	return c.Control(ctx, dev, NewTemperatureCommand(clamp(celsius, r.Min, r.Max)))
}

func SetWorkMode(ctx context.Context, c Cloud, dev Device, instance string, mode int) error {
	return c.Control(ctx, dev, NewWorkModeCommand(instance, mode))
}

func SetScene(ctx context.Context, c Cloud, dev Device, instance string, scene int) error {
	return c.Control(ctx, dev, NewSceneCommand(instance, scene))
}

func SetGradient(ctx context.Context, c Cloud, dev Device, enabled bool) error {
	return c.Control(ctx, dev, NewGradientCommand(enabled))
}

func SetDreamview(ctx context.Context, c Cloud, dev Device, enabled bool) error {
	return c.Control(ctx, dev, NewDreamviewCommand(enabled))
}

func SetMusicMode(ctx context.Context, c Cloud, dev Device, mode, sensitivity int) error {
	return c.Control(ctx, dev, NewMusicModeCommand(mode, sensitivity))
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
