package accessory

import "errors"

var (
	// ErrAccessoryNotFound is returned when no record has the requested UUID.
	ErrAccessoryNotFound = errors.New("accessory: not found")

	// ErrInvalidRecord is returned for records without a UUID or display name.
	ErrInvalidRecord = errors.New("accessory: invalid record")

	// ErrCorruptRecord is returned with the readable records when some
	// stored rows could not be decoded.
	ErrCorruptRecord = errors.New("accessory: corrupt stored record")
)
