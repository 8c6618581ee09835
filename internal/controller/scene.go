package controller

import (
	"context"
	"fmt"
)

// Scene triggers a hub scene. It behaves as a momentary switch: the state
// is always reported off.
type Scene struct {
	base
}

// Handle accepts "run" and "on". "off" is acknowledged without effect.
func (c *Scene) Handle(ctx context.Context, cmd CommandMessage) error {
	switch cmd.Command {
	case CommandRun, CommandOn:
		if err := c.commander.RunScene(ctx, c.entity.ID); err != nil {
			return err
		}
		return c.Refresh()
	case CommandOff:
		return c.Refresh()
	default:
		return fmt.Errorf("%w: %q for scene %d", ErrInvalidCommand, cmd.Command, c.entity.ID)
	}
}

// Refresh publishes the off state.
func (c *Scene) Refresh() error {
	return c.publish(map[string]any{"on": false})
}
