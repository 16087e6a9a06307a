package domain

import "errors"

var (
	ErrInvalidID        = errors.New("invalid id")
	ErrInvalidTitle     = errors.New("invalid title")
	ErrInvalidKind      = errors.New("invalid kind")
	ErrInvalidColumnID  = errors.New("invalid column id")
	ErrNotFound         = errors.New("not found")
	ErrDuplicateID      = errors.New("duplicate id")
	ErrInvalidReference = errors.New("invalid reference")
)
