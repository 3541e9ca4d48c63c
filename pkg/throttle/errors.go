package throttle

import "errors"

var (
	// ErrTableUnavailable is returned when the record table cannot be
	// allocated with the requested capacity.
	ErrTableUnavailable = errors.New("rate limit table unavailable")

	// ErrSlotOutOfRange is returned when a slot index falls outside the
	// table capacity.
	ErrSlotOutOfRange = errors.New("slot index out of range")
)
