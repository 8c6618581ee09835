package controller

import (
	"errors"
	"fmt"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/hub"
)

var (
	// ErrUnsupportedCapability is returned when no controller handles an entity.
	ErrUnsupportedCapability = errors.New("controller: unsupported capability")

	// ErrInvalidCommand is returned for commands a controller does not accept.
	ErrInvalidCommand = errors.New("controller: invalid command")

	// ErrInvalidParameters is returned when a command's parameters are missing or out of range.
	ErrInvalidParameters = errors.New("controller: invalid parameters")
)

// UnsupportedCapabilityError names the entity that could not be dispatched.
type UnsupportedCapabilityError struct {
	ID         int
	Name       string
	DeviceType int
	Capability hub.Capability
}

func (e *UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("controller: unsupported capability %q (entity %d, name %q, device type %d)",
		e.Capability, e.ID, e.Name, e.DeviceType)
}

// Unwrap lets errors.Is match ErrUnsupportedCapability.
func (e *UnsupportedCapabilityError) Unwrap() error {
	return ErrUnsupportedCapability
}
