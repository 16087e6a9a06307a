package reorder

import (
	"fmt"
	"strings"

	"github.com/hylla/kanboard/internal/domain"
)

// Phase is the gesture phase an event belongs to.
type Phase int

// PhaseStart and related constants enumerate gesture phases.
const (
	PhaseStart Phase = iota + 1
	PhaseOver
	PhaseEnd
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseOver:
		return "over"
	case PhaseEnd:
		return "end"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase parses a phase name such as "start".
func ParsePhase(raw string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "start":
		return PhaseStart, nil
	case "over":
		return PhaseOver, nil
	case "end":
		return PhaseEnd, nil
	}
	return 0, fmt.Errorf("%w: unknown phase %q", ErrInvalidEvent, raw)
}

// Event is one message from a gesture adapter. OverID is empty when the pointer
// is not above any droppable target.
type Event struct {
	Phase      Phase
	ActiveID   string
	ActiveKind domain.Kind
	OverID     string
	OverKind   domain.Kind
}

// Start builds a drag-start event.
func Start(id string, kind domain.Kind) Event {
	return Event{Phase: PhaseStart, ActiveID: id, ActiveKind: kind}
}

// Over builds a drag-over event.
func Over(activeID string, activeKind domain.Kind, overID string, overKind domain.Kind) Event {
	return Event{Phase: PhaseOver, ActiveID: activeID, ActiveKind: activeKind, OverID: overID, OverKind: overKind}
}

// End builds a drag-end event. Pass an empty overID for a release outside any target.
func End(activeID, overID string) Event {
	return Event{Phase: PhaseEnd, ActiveID: activeID, OverID: overID}
}

func (e Event) String() string {
	switch e.Phase {
	case PhaseStart:
		return fmt.Sprintf("start %s:%s", e.ActiveKind, e.ActiveID)
	case PhaseOver:
		return fmt.Sprintf("over %s:%s -> %s:%s", e.ActiveKind, e.ActiveID, e.OverKind, e.OverID)
	case PhaseEnd:
		return fmt.Sprintf("end %s -> %q", e.ActiveID, e.OverID)
	default:
		return e.Phase.String()
	}
}

// Outcome classifies what Apply did with an event.
type Outcome int

// OutcomeApplied and related constants enumerate event outcomes.
const (
	// OutcomeApplied means the event was accepted; the state may or may not differ.
	OutcomeApplied Outcome = iota
	// OutcomeNoOpHover means the pointer is still over the same logical slot.
	OutcomeNoOpHover
	// OutcomeIgnored means the event carried nothing to act on or was rejected.
	OutcomeIgnored
	// OutcomeSuperseded means a Start replaced a gesture that never ended.
	OutcomeSuperseded
	// OutcomeCancelled means the gesture was dropped because its source disappeared.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeNoOpHover:
		return "noop_hover"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeSuperseded:
		return "superseded"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}
