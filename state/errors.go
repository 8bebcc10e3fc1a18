package state

import "errors"

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEventFull is returned when a sheep would exceed an event's
	// maxParticipants.
	ErrEventFull = errors.New("event is full")
	// ErrInvalidAction is returned for actions whose fields fail validation.
	ErrInvalidAction = errors.New("invalid action")
	// ErrLastShepherd is returned when removing a shepherd would leave an
	// event with none.
	ErrLastShepherd = errors.New("event must keep a shepherd")
)
