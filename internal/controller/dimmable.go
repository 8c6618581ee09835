package controller

import "context"

// Dimmable controls a light with on/off and a dim level.
type Dimmable struct {
	OnOff
}

// Handle accepts "on", "off" and "dim".
func (c *Dimmable) Handle(ctx context.Context, cmd CommandMessage) error {
	if err := c.apply(ctx, cmd); err != nil {
		return err
	}
	return c.publish(c.state())
}

// Refresh publishes the cached on/off state and dim level.
func (c *Dimmable) Refresh() error {
	return c.publishKnown(c.state())
}

func (c *Dimmable) apply(ctx context.Context, cmd CommandMessage) error {
	if cmd.Command != CommandDim {
		return c.OnOff.apply(ctx, cmd)
	}
	level, err := levelParam(cmd.Parameters)
	if err != nil {
		return err
	}
	return c.run(ctx, c.entity.Functions.Dim, toHub(level, dimMax))
}

func (c *Dimmable) state() map[string]any {
	state := c.OnOff.state()
	if v, ok := c.status(c.entity.Functions.Dim); ok {
		state["level"] = fromHub(v, dimMax)
	}
	return state
}

// ColorTemperature controls a tunable white light.
type ColorTemperature struct {
	Dimmable
}

// Handle accepts "on", "off", "dim" and "color_temperature".
func (c *ColorTemperature) Handle(ctx context.Context, cmd CommandMessage) error {
	if err := c.apply(ctx, cmd); err != nil {
		return err
	}
	return c.publish(c.state())
}

// Refresh publishes the cached on/off state, dim level and colour temperature.
func (c *ColorTemperature) Refresh() error {
	return c.publishKnown(c.state())
}

func (c *ColorTemperature) apply(ctx context.Context, cmd CommandMessage) error {
	if cmd.Command != CommandColorTemperature {
		return c.Dimmable.apply(ctx, cmd)
	}
	level, err := levelParam(cmd.Parameters)
	if err != nil {
		return err
	}
	return c.run(ctx, c.entity.Functions.ColorTemperature, toHub(level, colorTemperatureMax))
}

func (c *ColorTemperature) state() map[string]any {
	state := c.Dimmable.state()
	if v, ok := c.status(c.entity.Functions.ColorTemperature); ok {
		state["color_temperature"] = fromHub(v, colorTemperatureMax)
	}
	return state
}
