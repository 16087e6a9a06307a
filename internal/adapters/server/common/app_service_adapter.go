package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/domain"
	"github.com/hylla/kanboard/internal/reorder"
)

// AppServiceAdapter maps transport contracts onto one app.Service session.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// Board exports the current board.
func (a *AppServiceAdapter) Board(ctx context.Context) (app.Snapshot, error) {
	if err := a.ready(ctx); err != nil {
		return app.Snapshot{}, err
	}
	return a.service.ExportSnapshot(), nil
}

// Dispatch validates one remote gesture event and feeds it to the session.
func (a *AppServiceAdapter) Dispatch(ctx context.Context, in DragEventRequest) (DragEventResult, error) {
	if err := a.ready(ctx); err != nil {
		return DragEventResult{}, err
	}
	ev, err := toEvent(in)
	if err != nil {
		return DragEventResult{}, err
	}
	outcome, err := a.service.Dispatch(ev)
	if err != nil {
		return DragEventResult{}, mapAppError(ev.Phase.String(), err)
	}
	return DragEventResult{Outcome: outcome.String(), Board: a.service.ExportSnapshot()}, nil
}

// CreateColumn appends one column.
func (a *AppServiceAdapter) CreateColumn(ctx context.Context, in CreateColumnRequest) (domain.Column, error) {
	if err := a.ready(ctx); err != nil {
		return domain.Column{}, err
	}
	column, err := a.service.CreateColumn(app.CreateColumnInput{ID: in.ID, Title: in.Title})
	if err != nil {
		return domain.Column{}, mapAppError("create column", err)
	}
	return column, nil
}

// RenameColumn renames one column.
func (a *AppServiceAdapter) RenameColumn(ctx context.Context, in RenameColumnRequest) (domain.Column, error) {
	if err := a.ready(ctx); err != nil {
		return domain.Column{}, err
	}
	id, err := requireID("id", in.ID)
	if err != nil {
		return domain.Column{}, err
	}
	column, err := a.service.RenameColumn(id, in.Title)
	if err != nil {
		return domain.Column{}, mapAppError("rename column", err)
	}
	return column, nil
}

// RemoveColumn deletes one column and its cards.
func (a *AppServiceAdapter) RemoveColumn(ctx context.Context, id string) error {
	if err := a.ready(ctx); err != nil {
		return err
	}
	id, err := requireID("id", id)
	if err != nil {
		return err
	}
	return mapAppError("remove column", a.service.RemoveColumn(id))
}

// ColumnCards returns one column and its cards in board order.
func (a *AppServiceAdapter) ColumnCards(ctx context.Context, columnID string) (ColumnCards, error) {
	if err := a.ready(ctx); err != nil {
		return ColumnCards{}, err
	}
	columnID, err := requireID("column_id", columnID)
	if err != nil {
		return ColumnCards{}, err
	}
	state := a.service.Snapshot()
	column, ok := state.Column(columnID)
	if !ok {
		return ColumnCards{}, fmt.Errorf("column cards: column %q: %w", columnID, ErrNotFound)
	}
	out := ColumnCards{Column: column, Cards: make([]domain.Card, 0, state.CountForColumn(columnID))}
	for card := range state.CardsForColumn(columnID) {
		out.Cards = append(out.Cards, card)
	}
	return out, nil
}

// CreateCard appends one card to a column.
func (a *AppServiceAdapter) CreateCard(ctx context.Context, in CreateCardRequest) (domain.Card, error) {
	if err := a.ready(ctx); err != nil {
		return domain.Card{}, err
	}
	columnID, err := requireID("column_id", in.ColumnID)
	if err != nil {
		return domain.Card{}, err
	}
	card, err := a.service.CreateCard(app.CreateCardInput{ID: in.ID, ColumnID: columnID, Content: in.Content})
	if err != nil {
		return domain.Card{}, mapAppError("create card", err)
	}
	return card, nil
}

// EditCard replaces one card's content.
func (a *AppServiceAdapter) EditCard(ctx context.Context, in EditCardRequest) (domain.Card, error) {
	if err := a.ready(ctx); err != nil {
		return domain.Card{}, err
	}
	id, err := requireID("id", in.ID)
	if err != nil {
		return domain.Card{}, err
	}
	card, err := a.service.EditCard(id, in.Content)
	if err != nil {
		return domain.Card{}, mapAppError("edit card", err)
	}
	return card, nil
}

// RemoveCard deletes one card.
func (a *AppServiceAdapter) RemoveCard(ctx context.Context, id string) error {
	if err := a.ready(ctx); err != nil {
		return err
	}
	id, err := requireID("id", id)
	if err != nil {
		return err
	}
	return mapAppError("remove card", a.service.RemoveCard(id))
}

// Activity returns the newest activity rows first, at most limit of them.
func (a *AppServiceAdapter) Activity(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if err := a.ready(ctx); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("activity: limit must be >= 0: %w", ErrInvalidRequest)
	}
	if limit == 0 {
		limit = DefaultActivityLimit
	}
	events := a.service.Activity()
	out := make([]domain.ChangeEvent, 0, min(limit, len(events)))
	for idx := len(events) - 1; idx >= 0 && len(out) < limit; idx-- {
		out = append(out, events[idx])
	}
	return out, nil
}

// ready reports whether the adapter can serve a request.
func (a *AppServiceAdapter) ready(ctx context.Context) error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("request canceled: %w", err)
		}
	}
	return nil
}

// toEvent converts a transport event into an engine event.
func toEvent(in DragEventRequest) (reorder.Event, error) {
	phase, err := reorder.ParsePhase(in.Phase)
	if err != nil {
		return reorder.Event{}, fmt.Errorf("phase: %w", errors.Join(ErrInvalidRequest, err))
	}
	activeKind, err := optionalKind("active_kind", in.ActiveKind)
	if err != nil {
		return reorder.Event{}, err
	}
	overKind, err := optionalKind("over_kind", in.OverKind)
	if err != nil {
		return reorder.Event{}, err
	}
	ev := reorder.Event{
		Phase:      phase,
		ActiveID:   strings.TrimSpace(in.ActiveID),
		ActiveKind: activeKind,
		OverID:     strings.TrimSpace(in.OverID),
		OverKind:   overKind,
	}
	if phase == reorder.PhaseStart && (ev.ActiveID == "" || ev.ActiveKind == "") {
		return reorder.Event{}, fmt.Errorf("start requires active_id and active_kind: %w", ErrInvalidRequest)
	}
	return ev, nil
}

func optionalKind(field, raw string) (domain.Kind, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	kind, err := domain.ParseKind(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, errors.Join(ErrInvalidRequest, err))
	}
	return kind, nil
}

func requireID(field, raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("%s is required: %w", field, ErrInvalidRequest)
	}
	return id, nil
}

// mapAppError maps app, domain and engine errors onto transport sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, reorder.ErrNoActiveGesture),
		errors.Is(err, reorder.ErrGestureMismatch):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrGestureConflict, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidKind),
		errors.Is(err, domain.ErrInvalidColumnID),
		errors.Is(err, domain.ErrDuplicateID),
		errors.Is(err, domain.ErrInvalidReference),
		errors.Is(err, reorder.ErrInvalidEvent),
		errors.Is(err, app.ErrInvalidSnapshot):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
