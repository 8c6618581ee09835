package hub

import (
	"testing"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/infrastructure/config"
)

func intPtr(v int) *int { return &v }

func TestLayoutFor(t *testing.T) {
	tests := []struct {
		name       string
		deviceType int
		overrides  map[int]Override
		want       deviceLayout
	}{
		{
			name:       "zigbee dimmer",
			deviceType: 24,
			want:       deviceLayout{CapabilityDimmable, Functions{OnOff: 3, Dim: 4, ColorTemperature: -1}},
		},
		{
			name:       "tunable white",
			deviceType: 31,
			want:       deviceLayout{CapabilityColorTemperature, Functions{OnOff: 3, Dim: 4, ColorTemperature: 9}},
		},
		{
			name:       "unknown type",
			deviceType: 999,
			want:       deviceLayout{CapabilityUnsupported, Functions{OnOff: -1, Dim: -1, ColorTemperature: -1}},
		},
		{
			name:       "function override keeps capability",
			deviceType: 24,
			overrides:  map[int]Override{24: {DimFunction: intPtr(5)}},
			want:       deviceLayout{CapabilityDimmable, Functions{OnOff: 3, Dim: 5, ColorTemperature: -1}},
		},
		{
			name:       "capability override on unknown type",
			deviceType: 999,
			overrides:  map[int]Override{999: {Capability: CapabilitySwitch}},
			want:       deviceLayout{CapabilitySwitch, Functions{OnOff: 3, Dim: -1, ColorTemperature: -1}},
		},
		{
			name:       "capability override on known type keeps functions",
			deviceType: 2,
			overrides:  map[int]Override{2: {Capability: CapabilitySwitch}},
			want:       deviceLayout{CapabilitySwitch, Functions{OnOff: 0, Dim: 1, ColorTemperature: -1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := layoutFor(tt.deviceType, tt.overrides); got != tt.want {
				t.Errorf("layoutFor(%d) = %+v, want %+v", tt.deviceType, got, tt.want)
			}
		})
	}
}

func TestOverridesFromConfig(t *testing.T) {
	got, err := OverridesFromConfig(map[string]config.DeviceConfigOverride{
		"24": {Capability: "dimmable", DimFunction: intPtr(5)},
	})
	if err != nil {
		t.Fatalf("OverridesFromConfig() error = %v", err)
	}
	o, ok := got[24]
	if !ok || o.Capability != CapabilityDimmable || *o.DimFunction != 5 {
		t.Errorf("override = %+v", o)
	}

	if _, err := OverridesFromConfig(map[string]config.DeviceConfigOverride{"dimmer": {}}); err == nil {
		t.Error("OverridesFromConfig() expected error for non-numeric key")
	}
}
