// Package reorder implements the drag-reorder state machine for a board.
//
// An Engine is a pure transition function: Apply takes the current board.State
// and one gesture Event and returns the next State. It never mutates its input
// and never starts events on its own.
package reorder

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hylla/kanboard/internal/board"
	"github.com/hylla/kanboard/internal/domain"
)

// DropPlacement decides where a card lands when it is dragged over a column body.
type DropPlacement string

// DropBottom and DropTop are the supported placements.
const (
	DropBottom DropPlacement = "bottom"
	DropTop    DropPlacement = "top"
)

// ParseDropPlacement normalizes a placement name; empty means bottom.
func ParseDropPlacement(raw string) (DropPlacement, error) {
	switch DropPlacement(strings.ToLower(strings.TrimSpace(raw))) {
	case "", DropBottom:
		return DropBottom, nil
	case DropTop:
		return DropTop, nil
	default:
		return "", fmt.Errorf("invalid drop placement %q", raw)
	}
}

// Engine represents the reorder state machine.
type Engine struct {
	placement DropPlacement
}

// Option configures an Engine.
type Option func(*Engine)

// WithDropPlacement sets where cards dropped on a column body are placed.
func WithDropPlacement(p DropPlacement) Option {
	return func(e *Engine) {
		switch p {
		case DropBottom, DropTop:
			e.placement = p
		}
	}
}

// New constructs an Engine.
func New(opts ...Option) Engine {
	e := Engine{placement: DropBottom}
	for _, opt := range opts {
		if opt != nil {
			opt(&e)
		}
	}
	return e
}

// Placement returns the configured drop placement.
func (e Engine) Placement() DropPlacement {
	return e.placement
}

// Apply computes the state that follows ev. On error the returned state equals s,
// except for End events, which always clear the active selection.
func (e Engine) Apply(s board.State, ev Event) (board.State, Outcome, error) {
	switch ev.Phase {
	case PhaseStart:
		return e.start(s, ev)
	case PhaseOver:
		return e.over(s, ev)
	case PhaseEnd:
		return e.end(s, ev)
	default:
		return s, OutcomeIgnored, fmt.Errorf("%w: unknown phase %s", ErrInvalidEvent, ev.Phase)
	}
}

func (e Engine) start(s board.State, ev Event) (board.State, Outcome, error) {
	var sel board.Selection
	switch ev.ActiveKind {
	case domain.KindColumn:
		col, ok := s.Column(ev.ActiveID)
		if !ok {
			return s, OutcomeIgnored, fmt.Errorf("start: %w: column %q", domain.ErrNotFound, ev.ActiveID)
		}
		sel = board.ColumnSelection(col)
	case domain.KindTask:
		card, ok := s.Card(ev.ActiveID)
		if !ok {
			return s, OutcomeIgnored, fmt.Errorf("start: %w: card %q", domain.ErrNotFound, ev.ActiveID)
		}
		sel = board.CardSelection(card)
	default:
		return s, OutcomeIgnored, fmt.Errorf("%w: start with kind %q", ErrInvalidEvent, ev.ActiveKind)
	}
	outcome := OutcomeApplied
	if s.Dragging() {
		outcome = OutcomeSuperseded
	}
	return s.WithSelection(sel), outcome, nil
}

func (e Engine) over(s board.State, ev Event) (board.State, Outcome, error) {
	sel, err := activeSelection(s, ev)
	if err != nil {
		return s, OutcomeIgnored, err
	}
	activeID := sel.ID()
	if ev.OverID == "" {
		return s, OutcomeIgnored, nil
	}
	if ev.OverID == activeID {
		return s, OutcomeNoOpHover, nil
	}
	overKind := ev.OverKind
	if overKind == "" {
		overKind = resolveKind(s, ev.OverID)
	}

	switch sel.Kind {
	case domain.KindTask:
		switch overKind {
		case domain.KindTask:
			return taskOverTask(s, activeID, ev.OverID)
		case domain.KindColumn:
			return e.taskOverColumn(s, activeID, ev.OverID)
		}
	case domain.KindColumn:
		var (
			next    board.State
			outcome Outcome
		)
		switch overKind {
		case domain.KindColumn:
			next, outcome, err = columnOverColumn(s, activeID, ev.OverID)
		case domain.KindTask:
			next, outcome, err = columnOverTask(s, activeID, ev.OverID)
		default:
			return s, OutcomeIgnored, fmt.Errorf("%w: %s over unknown target %q", ErrInvalidEvent, sel.Kind, ev.OverID)
		}
		if err != nil || outcome != OutcomeApplied {
			return next, outcome, err
		}
		sel.LastOver = targetColumn(s, ev.OverID, overKind)
		return next.WithSelection(sel), outcome, nil
	}
	return s, OutcomeIgnored, fmt.Errorf("%w: %s over unknown target %q", ErrInvalidEvent, sel.Kind, ev.OverID)
}

func (e Engine) end(s board.State, ev Event) (board.State, Outcome, error) {
	sel, err := activeSelection(s, ev)
	next := s.WithoutSelection()
	if err != nil {
		return next, OutcomeIgnored, err
	}
	if ev.OverID == "" || ev.OverID == sel.ID() {
		return next, OutcomeApplied, nil
	}
	if sel.Kind != domain.KindColumn {
		return next, OutcomeApplied, nil
	}

	overKind := ev.OverKind
	if overKind == "" {
		overKind = resolveKind(s, ev.OverID)
	}
	// A column already placed by the same target column stays put.
	if col := targetColumn(s, ev.OverID, overKind); col != "" && col == sel.LastOver {
		return next, OutcomeApplied, nil
	}
	var (
		committed board.State
		outcome   Outcome
	)
	switch overKind {
	case domain.KindColumn:
		committed, outcome, err = columnOverColumn(next, sel.ID(), ev.OverID)
	case domain.KindTask:
		committed, outcome, err = columnOverTask(next, sel.ID(), ev.OverID)
	default:
		return next, OutcomeIgnored, fmt.Errorf("end: %w: target %q", domain.ErrNotFound, ev.OverID)
	}
	if err != nil {
		return next, OutcomeIgnored, fmt.Errorf("end: %w", err)
	}
	if outcome == OutcomeNoOpHover {
		outcome = OutcomeApplied
	}
	return committed, outcome, nil
}

// activeSelection returns the selection ev belongs to.
func activeSelection(s board.State, ev Event) (board.Selection, error) {
	sel, ok := s.Active()
	if !ok {
		return board.Selection{}, fmt.Errorf("%s: %w", ev.Phase, ErrNoActiveGesture)
	}
	if ev.ActiveID != "" && ev.ActiveID != sel.ID() {
		return board.Selection{}, fmt.Errorf("%s: %w: got %q, dragging %q", ev.Phase, ErrGestureMismatch, ev.ActiveID, sel.ID())
	}
	if ev.ActiveKind != "" && ev.ActiveKind != sel.Kind {
		return board.Selection{}, fmt.Errorf("%s: %w: got kind %s, dragging %s", ev.Phase, ErrGestureMismatch, ev.ActiveKind, sel.Kind)
	}
	return sel, nil
}

// resolveKind infers the kind of a target id. Columns win when ids collide.
func resolveKind(s board.State, id string) domain.Kind {
	if s.ColumnIndex(id) >= 0 {
		return domain.KindColumn
	}
	if s.CardIndex(id) >= 0 {
		return domain.KindTask
	}
	return ""
}

// targetColumn returns the column a target id stands for: the column itself or
// the column owning the card.
func targetColumn(s board.State, id string, kind domain.Kind) string {
	switch kind {
	case domain.KindColumn:
		return id
	case domain.KindTask:
		if card, ok := s.Card(id); ok {
			return card.ColumnID
		}
	}
	return ""
}

// taskOverTask moves the active card into the target card's column and slot.
func taskOverTask(s board.State, activeID, overID string) (board.State, Outcome, error) {
	activeIdx := s.CardIndex(activeID)
	if activeIdx < 0 {
		return s, OutcomeIgnored, fmt.Errorf("over: %w: card %q", domain.ErrNotFound, activeID)
	}
	overIdx := s.CardIndex(overID)
	if overIdx < 0 {
		return s, OutcomeIgnored, fmt.Errorf("over: %w: card %q", domain.ErrNotFound, overID)
	}
	cards := s.Cards()
	if err := cards[activeIdx].MoveTo(cards[overIdx].ColumnID); err != nil {
		return s, OutcomeIgnored, fmt.Errorf("over: %w", err)
	}
	return s.WithCards(Move(cards, activeIdx, overIdx)), OutcomeApplied, nil
}

// taskOverColumn reassigns the active card to the column and places it at the
// configured end of that column.
func (e Engine) taskOverColumn(s board.State, activeID, columnID string) (board.State, Outcome, error) {
	activeIdx := s.CardIndex(activeID)
	if activeIdx < 0 {
		return s, OutcomeIgnored, fmt.Errorf("over: %w: card %q", domain.ErrNotFound, activeID)
	}
	if s.ColumnIndex(columnID) < 0 {
		return s, OutcomeIgnored, fmt.Errorf("over: %w: column %q", domain.ErrNotFound, columnID)
	}
	cards := s.Cards()
	if cards[activeIdx].ColumnID == columnID {
		return s, OutcomeNoOpHover, nil
	}
	if err := cards[activeIdx].MoveTo(columnID); err != nil {
		return s, OutcomeIgnored, fmt.Errorf("over: %w", err)
	}

	isTarget := func(c domain.Card) bool { return c.ColumnID == columnID && c.ID != activeID }
	var to int
	switch e.placement {
	case DropTop:
		first := slices.IndexFunc(cards, isTarget)
		if first < 0 {
			return s.WithCards(cards), OutcomeApplied, nil
		}
		to = first
		if activeIdx < first {
			to = first - 1
		}
	default:
		last := lastIndexFunc(cards, isTarget)
		if last < 0 {
			return s.WithCards(cards), OutcomeApplied, nil
		}
		to = last + 1
		if activeIdx < last {
			to = last
		}
	}
	return s.WithCards(Move(cards, activeIdx, to)), OutcomeApplied, nil
}

// columnOverColumn relocates the active column to the target column's slot.
func columnOverColumn(s board.State, activeID, overID string) (board.State, Outcome, error) {
	activeIdx := s.ColumnIndex(activeID)
	if activeIdx < 0 {
		return s, OutcomeIgnored, fmt.Errorf("%w: column %q", domain.ErrNotFound, activeID)
	}
	overIdx := s.ColumnIndex(overID)
	if overIdx < 0 {
		return s, OutcomeIgnored, fmt.Errorf("%w: column %q", domain.ErrNotFound, overID)
	}
	if activeIdx == overIdx {
		return s, OutcomeNoOpHover, nil
	}
	return s.WithColumns(Move(s.Columns(), activeIdx, overIdx)), OutcomeApplied, nil
}

// columnOverTask treats hovering a card as hovering the column that owns it.
func columnOverTask(s board.State, activeID, cardID string) (board.State, Outcome, error) {
	card, ok := s.Card(cardID)
	if !ok {
		return s, OutcomeIgnored, fmt.Errorf("%w: card %q", domain.ErrNotFound, cardID)
	}
	if card.ColumnID == activeID {
		return s, OutcomeNoOpHover, nil
	}
	return columnOverColumn(s, activeID, card.ColumnID)
}

func lastIndexFunc[T any](s []T, f func(T) bool) int {
	for i := len(s) - 1; i >= 0; i-- {
		if f(s[i]) {
			return i
		}
	}
	return -1
}
