package board

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/hylla/kanboard/internal/domain"
)

// Selection is the entity currently being dragged. Exactly one of Column or Card is set.
type Selection struct {
	Kind   domain.Kind
	Column *domain.Column
	Card   *domain.Card
	// LastOver is the column targeted by the most recent Over that relocated a dragged column.
	LastOver string
}

// ID returns the dragged entity id.
func (s Selection) ID() string {
	switch s.Kind {
	case domain.KindColumn:
		if s.Column != nil {
			return s.Column.ID
		}
	case domain.KindTask:
		if s.Card != nil {
			return s.Card.ID
		}
	}
	return ""
}

// ColumnSelection snapshots a column as the active selection.
func ColumnSelection(c domain.Column) Selection {
	return Selection{Kind: domain.KindColumn, Column: &c}
}

// CardSelection snapshots a card as the active selection.
func CardSelection(c domain.Card) Selection {
	return Selection{Kind: domain.KindTask, Card: &c}
}

// State represents board data used by this package.
type State struct {
	columns []domain.Column
	cards   []domain.Card
	active  *Selection
}

// New builds a State from the given sequences and validates it.
func New(columns []domain.Column, cards []domain.Card) (State, error) {
	s := State{
		columns: slices.Clone(columns),
		cards:   slices.Clone(cards),
	}
	if err := s.Validate(); err != nil {
		return State{}, err
	}
	return s, nil
}

// Columns returns a copy of the column sequence.
func (s State) Columns() []domain.Column {
	return slices.Clone(s.columns)
}

// Cards returns a copy of the global card sequence.
func (s State) Cards() []domain.Card {
	return slices.Clone(s.cards)
}

// ColumnCount returns the number of columns.
func (s State) ColumnCount() int {
	return len(s.columns)
}

// CardCount returns the number of cards across all columns.
func (s State) CardCount() int {
	return len(s.cards)
}

// Active returns the drag selection, if a gesture is in progress.
func (s State) Active() (Selection, bool) {
	if s.active == nil {
		return Selection{}, false
	}
	return *s.active, true
}

// Dragging reports whether a gesture is in progress.
func (s State) Dragging() bool {
	return s.active != nil
}

// ColumnIndex returns the index of the column with id, or -1.
func (s State) ColumnIndex(id string) int {
	return slices.IndexFunc(s.columns, func(c domain.Column) bool { return c.ID == id })
}

// CardIndex returns the index of the card with id in the global sequence, or -1.
func (s State) CardIndex(id string) int {
	return slices.IndexFunc(s.cards, func(c domain.Card) bool { return c.ID == id })
}

// Column looks up a column by id.
func (s State) Column(id string) (domain.Column, bool) {
	idx := s.ColumnIndex(id)
	if idx < 0 {
		return domain.Column{}, false
	}
	return s.columns[idx], true
}

// Card looks up a card by id.
func (s State) Card(id string) (domain.Card, bool) {
	idx := s.CardIndex(id)
	if idx < 0 {
		return domain.Card{}, false
	}
	return s.cards[idx], true
}

// CardsForColumn yields the cards owned by columnID in sequence order. The
// sequence reads the State it was created from and can be ranged over repeatedly.
func (s State) CardsForColumn(columnID string) iter.Seq[domain.Card] {
	cards := s.cards
	return func(yield func(domain.Card) bool) {
		for _, c := range cards {
			if c.ColumnID != columnID {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// CountForColumn returns how many cards columnID owns.
func (s State) CountForColumn(columnID string) int {
	n := 0
	for range s.CardsForColumn(columnID) {
		n++
	}
	return n
}

// AddColumn appends a column.
func (s State) AddColumn(c domain.Column) (State, error) {
	if strings.TrimSpace(c.ID) == "" {
		return s, domain.ErrInvalidID
	}
	if s.ColumnIndex(c.ID) >= 0 {
		return s, fmt.Errorf("%w: column %q", domain.ErrDuplicateID, c.ID)
	}
	next := s
	next.columns = append(slices.Clone(s.columns), c)
	return next, nil
}

// RemoveColumn removes a column and every card that references it.
func (s State) RemoveColumn(id string) (State, error) {
	idx := s.ColumnIndex(id)
	if idx < 0 {
		return s, fmt.Errorf("%w: column %q", domain.ErrNotFound, id)
	}
	next := s
	next.columns = slices.Delete(slices.Clone(s.columns), idx, idx+1)
	next.cards = slices.DeleteFunc(slices.Clone(s.cards), func(c domain.Card) bool { return c.ColumnID == id })
	return next, nil
}

// RenameColumn replaces the title of a column.
func (s State) RenameColumn(id, title string) (State, error) {
	idx := s.ColumnIndex(id)
	if idx < 0 {
		return s, fmt.Errorf("%w: column %q", domain.ErrNotFound, id)
	}
	columns := slices.Clone(s.columns)
	if err := columns[idx].Rename(title); err != nil {
		return s, err
	}
	next := s
	next.columns = columns
	return next, nil
}

// AddCard appends a card. The card must reference an existing column.
func (s State) AddCard(c domain.Card) (State, error) {
	if strings.TrimSpace(c.ID) == "" {
		return s, domain.ErrInvalidID
	}
	if s.ColumnIndex(c.ColumnID) < 0 {
		return s, fmt.Errorf("%w: card %q references column %q", domain.ErrInvalidReference, c.ID, c.ColumnID)
	}
	if s.CardIndex(c.ID) >= 0 {
		return s, fmt.Errorf("%w: card %q", domain.ErrDuplicateID, c.ID)
	}
	next := s
	next.cards = append(slices.Clone(s.cards), c)
	return next, nil
}

// RemoveCard removes a card.
func (s State) RemoveCard(id string) (State, error) {
	idx := s.CardIndex(id)
	if idx < 0 {
		return s, fmt.Errorf("%w: card %q", domain.ErrNotFound, id)
	}
	next := s
	next.cards = slices.Delete(slices.Clone(s.cards), idx, idx+1)
	return next, nil
}

// EditCard replaces the content of a card.
func (s State) EditCard(id, content string) (State, error) {
	idx := s.CardIndex(id)
	if idx < 0 {
		return s, fmt.Errorf("%w: card %q", domain.ErrNotFound, id)
	}
	cards := slices.Clone(s.cards)
	cards[idx].Edit(content)
	next := s
	next.cards = cards
	return next, nil
}

// WithColumns returns a State that uses columns as its column sequence.
// The caller must not modify columns afterwards.
func (s State) WithColumns(columns []domain.Column) State {
	s.columns = columns
	return s
}

// WithCards returns a State that uses cards as its card sequence.
// The caller must not modify cards afterwards.
func (s State) WithCards(cards []domain.Card) State {
	s.cards = cards
	return s
}

// WithSelection returns a State whose active selection is sel.
func (s State) WithSelection(sel Selection) State {
	s.active = &sel
	return s
}

// WithoutSelection returns a State with no gesture in progress.
func (s State) WithoutSelection() State {
	s.active = nil
	return s
}

// Validate checks the board invariants: unique ids per kind and no orphan cards.
func (s State) Validate() error {
	columnIDs := make(map[string]struct{}, len(s.columns))
	for idx, c := range s.columns {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("columns[%d]: %w", idx, domain.ErrInvalidID)
		}
		if _, ok := columnIDs[c.ID]; ok {
			return fmt.Errorf("columns[%d]: %w: %q", idx, domain.ErrDuplicateID, c.ID)
		}
		columnIDs[c.ID] = struct{}{}
	}
	cardIDs := make(map[string]struct{}, len(s.cards))
	for idx, c := range s.cards {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("cards[%d]: %w", idx, domain.ErrInvalidID)
		}
		if _, ok := cardIDs[c.ID]; ok {
			return fmt.Errorf("cards[%d]: %w: %q", idx, domain.ErrDuplicateID, c.ID)
		}
		cardIDs[c.ID] = struct{}{}
		if _, ok := columnIDs[c.ColumnID]; !ok {
			return fmt.Errorf("cards[%d]: %w: column %q", idx, domain.ErrInvalidReference, c.ColumnID)
		}
	}
	return nil
}
