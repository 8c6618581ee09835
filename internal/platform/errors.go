package platform

import "errors"

var (
	// ErrRegistration is returned when an accessory could not be stored or
	// announced to the host.
	ErrRegistration = errors.New("platform: accessory registration failed")

	// ErrEntityNotFound is returned for commands to entities without a controller.
	ErrEntityNotFound = errors.New("platform: entity not found")

	// ErrMissingDependency is returned by New when a required dependency is nil.
	ErrMissingDependency = errors.New("platform: missing dependency")
)
