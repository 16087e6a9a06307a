package domain

import (
	"fmt"
	"strings"
)

// Kind identifies which entity a drag source or drop target refers to.
type Kind string

// KindColumn and KindTask are the only draggable and droppable entity kinds.
const (
	KindColumn Kind = "column"
	KindTask   Kind = "task"
)

// ParseKind normalizes a kind name. "card" is accepted as an alias of task.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "column", "col":
		return KindColumn, nil
	case "task", "card":
		return KindTask, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindColumn || k == KindTask
}

func (k Kind) String() string {
	return string(k)
}
