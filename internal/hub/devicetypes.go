package hub

import (
	"fmt"
	"strconv"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/infrastructure/config"
)

// noFunction marks a function the device does not have.
const noFunction = -1

// deviceLayout is how one device type is controlled.
type deviceLayout struct {
	Capability Capability
	Functions  Functions
}

// deviceTypes maps ICS-2000 device type numbers to their layout.
// Unlisted types are unsupported unless overridden.
var deviceTypes = map[int]deviceLayout{
	// 433MHz KAKU switch and dimmer.
	1: {CapabilitySwitch, Functions{OnOff: 0, Dim: noFunction, ColorTemperature: noFunction}},
	2: {CapabilityDimmable, Functions{OnOff: 0, Dim: 1, ColorTemperature: noFunction}},
	// 433MHz actuator.
	3: {CapabilitySwitch, Functions{OnOff: 0, Dim: noFunction, ColorTemperature: noFunction}},
	// Zigbee dimmable bulb.
	24: {CapabilityDimmable, Functions{OnOff: 3, Dim: 4, ColorTemperature: noFunction}},
	// Zigbee tunable white bulb.
	31: {CapabilityColorTemperature, Functions{OnOff: 3, Dim: 4, ColorTemperature: 9}},
	// Zigbee smart plug and in-wall switch.
	35: {CapabilitySwitch, Functions{OnOff: 3, Dim: noFunction, ColorTemperature: noFunction}},
	48: {CapabilitySwitch, Functions{OnOff: 3, Dim: noFunction, ColorTemperature: noFunction}},
}

// Override replaces parts of a device type's layout. Nil fields keep the
// built-in value.
type Override struct {
	Capability               Capability
	OnOffFunction            *int
	DimFunction              *int
	ColorTemperatureFunction *int
}

// OverridesFromConfig converts hub.device_configs_overrides, which is keyed
// by device type as a string.
func OverridesFromConfig(in map[string]config.DeviceConfigOverride) (map[int]Override, error) {
	out := make(map[int]Override, len(in))
	for key, o := range in {
		deviceType, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("device type %q is not a number: %w", key, err)
		}
		out[deviceType] = Override{
			Capability:               Capability(o.Capability),
			OnOffFunction:            o.OnOffFunction,
			DimFunction:              o.DimFunction,
			ColorTemperatureFunction: o.ColorTemperatureFunction,
		}
	}
	return out, nil
}

// layoutFor resolves the layout of a device type, applying any override.
func layoutFor(deviceType int, overrides map[int]Override) deviceLayout {
	layout, known := deviceTypes[deviceType]
	if !known {
		layout = deviceLayout{
			Capability: CapabilityUnsupported,
			Functions:  Functions{OnOff: noFunction, Dim: noFunction, ColorTemperature: noFunction},
		}
	}

	o, ok := overrides[deviceType]
	if !ok {
		return layout
	}

	if o.Capability != "" {
		layout.Capability = o.Capability
		// Capability-only overrides on unknown types get the common defaults.
		if !known {
			layout.Functions = defaultFunctions(o.Capability)
		}
	}
	if o.OnOffFunction != nil {
		layout.Functions.OnOff = *o.OnOffFunction
	}
	if o.DimFunction != nil {
		layout.Functions.Dim = *o.DimFunction
	}
	if o.ColorTemperatureFunction != nil {
		layout.Functions.ColorTemperature = *o.ColorTemperatureFunction
	}
	return layout
}

// defaultFunctions follows the Zigbee layout, which most newer devices use.
func defaultFunctions(c Capability) Functions {
	switch c {
	case CapabilitySwitch:
		return Functions{OnOff: 3, Dim: noFunction, ColorTemperature: noFunction}
	case CapabilityDimmable:
		return Functions{OnOff: 3, Dim: 4, ColorTemperature: noFunction}
	case CapabilityColorTemperature:
		return Functions{OnOff: 3, Dim: 4, ColorTemperature: 9}
	default:
		return Functions{OnOff: noFunction, Dim: noFunction, ColorTemperature: noFunction}
	}
}
