package controller

import (
	"context"
	"fmt"
)

// OnOff controls a switch: one on/off function.
type OnOff struct {
	base
}

// Handle accepts "on" and "off".
func (c *OnOff) Handle(ctx context.Context, cmd CommandMessage) error {
	if err := c.apply(ctx, cmd); err != nil {
		return err
	}
	return c.publish(c.state())
}

// Refresh publishes the cached on/off state. Nothing is published while
// the status is unknown.
func (c *OnOff) Refresh() error {
	return c.publishKnown(c.state())
}

func (c *OnOff) apply(ctx context.Context, cmd CommandMessage) error {
	switch cmd.Command {
	case CommandOn:
		return c.run(ctx, c.entity.Functions.OnOff, 1)
	case CommandOff:
		return c.run(ctx, c.entity.Functions.OnOff, 0)
	default:
		return fmt.Errorf("%w: %q for entity %d", ErrInvalidCommand, cmd.Command, c.entity.ID)
	}
}

func (c *OnOff) state() map[string]any {
	state := make(map[string]any)
	if v, ok := c.status(c.entity.Functions.OnOff); ok {
		state["on"] = v != 0
	}
	return state
}
