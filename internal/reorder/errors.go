package reorder

import "errors"

// ErrNoActiveGesture and related errors describe rejected drag events.
var (
	ErrNoActiveGesture = errors.New("no active gesture")
	ErrGestureMismatch = errors.New("event does not match active gesture")
	ErrInvalidEvent    = errors.New("invalid drag event")
)
