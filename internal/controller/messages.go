package controller

import (
	"fmt"
	"time"
)

// Command names accepted on the set topic.
const (
	CommandOn               = "on"
	CommandOff              = "off"
	CommandDim              = "dim"
	CommandColorTemperature = "color_temperature"
	CommandRun              = "run"
)

// CommandMessage is received on kaku/accessory/{uuid}/set.
type CommandMessage struct {
	// ID correlates log lines of one command. Optional.
	ID string `json:"id,omitempty"`

	// Command is one of "on", "off", "dim", "color_temperature", "run".
	Command string `json:"command"`

	// Parameters contains command-specific values.
	//   {"level": 50} for dim and color_temperature (0-100)
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated ("host", "api").
	Source string `json:"source,omitempty"`
}

// StateMessage is published retained on kaku/accessory/{uuid}/state.
type StateMessage struct {
	UUID      string    `json:"uuid"`
	EntityID  int       `json:"entity_id"`
	Timestamp time.Time `json:"timestamp"`

	// State depends on the controller:
	//   switch:            {"on": true}
	//   dimmable:          {"on": true, "level": 50}
	//   color-temperature: {"on": true, "level": 50, "color_temperature": 40}
	//   scene:             {"on": false}
	State map[string]any `json:"state"`
}

// levelParam reads a 0-100 "level" parameter.
func levelParam(params map[string]any) (float64, error) {
	v, ok := params["level"]
	if !ok {
		return 0, fmt.Errorf("%w: missing 'level' parameter", ErrInvalidParameters)
	}
	level, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: 'level' must be a number", ErrInvalidParameters)
	}
	if level < 0 || level > 100 {
		return 0, fmt.Errorf("%w: 'level' must be 0-100, got %.2f", ErrInvalidParameters, level)
	}
	return level, nil
}
