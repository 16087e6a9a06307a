package app

import "errors"

// ErrInvalidSnapshot reports a snapshot that cannot be imported.
var ErrInvalidSnapshot = errors.New("invalid snapshot")
