package controller

import (
	"context"
	"fmt"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/hub"
)

// ReloadName is the display name of the reload switch.
const ReloadName = "Reload Switch"

// ReloadFunc runs a full sync cycle.
type ReloadFunc func(ctx context.Context) error

// ReloadSwitch is a bridge-owned switch. Turning it on runs a sync cycle,
// after which it switches itself off again.
type ReloadSwitch struct {
	base
	reload ReloadFunc
	logger Logger
}

// NewReloadSwitch creates the reload switch with accessory identifier uuid.
func NewReloadSwitch(uuid string, publisher Publisher, qos byte, reload ReloadFunc, logger Logger) *ReloadSwitch {
	if logger == nil {
		logger = noopLogger{}
	}
	return &ReloadSwitch{
		base: base{
			uuid: uuid,
			entity: hub.Entity{
				ID:         -1,
				Name:       ReloadName,
				Capability: hub.CapabilitySwitch,
				Functions:  hub.Functions{OnOff: -1, Dim: -1, ColorTemperature: -1},
			},
			publisher: publisher,
			qos:       qos,
		},
		reload: reload,
		logger: logger,
	}
}

// Handle runs a cycle on "on". The cycle's outcome is logged and returned.
func (c *ReloadSwitch) Handle(ctx context.Context, cmd CommandMessage) error {
	switch cmd.Command {
	case CommandOff:
		return c.Refresh()
	case CommandOn:
	default:
		return fmt.Errorf("%w: %q for reload switch", ErrInvalidCommand, cmd.Command)
	}

	if err := c.publish(map[string]any{"on": true}); err != nil {
		c.logger.Warn("publishing reload switch state", "error", err)
	}

	err := c.reload(ctx)
	if err != nil {
		c.logger.Error("error running setup after reload switch toggled", "error", err)
	} else {
		c.logger.Info("platform setup successfully after reload switch was toggled")
	}

	if perr := c.Refresh(); perr != nil {
		c.logger.Warn("publishing reload switch state", "error", perr)
	}
	return err
}

// Refresh publishes the off state.
func (c *ReloadSwitch) Refresh() error {
	return c.publish(map[string]any{"on": false})
}
