// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"

	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/domain"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrGestureConflict reports a drag event that does not belong to the active gesture.
var ErrGestureConflict = errors.New("gesture conflict")

// DefaultActivityLimit bounds activity rows returned when no limit is requested.
const DefaultActivityLimit = 50

// DragEventRequest carries one gesture event from a remote adapter.
type DragEventRequest struct {
	Phase      string `json:"phase"`
	ActiveID   string `json:"active_id,omitempty"`
	ActiveKind string `json:"active_kind,omitempty"`
	OverID     string `json:"over_id,omitempty"`
	OverKind   string `json:"over_kind,omitempty"`
}

// DragEventResult reports what the engine did with an event and the board afterwards.
type DragEventResult struct {
	Outcome string       `json:"outcome"`
	Board   app.Snapshot `json:"board"`
}

// CreateColumnRequest creates one column; empty fields take generated defaults.
type CreateColumnRequest struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
}

// RenameColumnRequest renames one column.
type RenameColumnRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CreateCardRequest creates one card in a column.
type CreateCardRequest struct {
	ID       string `json:"id,omitempty"`
	ColumnID string `json:"column_id"`
	Content  string `json:"content,omitempty"`
}

// EditCardRequest replaces one card's content.
type EditCardRequest struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// ColumnCards is the ordered card projection of one column.
type ColumnCards struct {
	Column domain.Column `json:"column"`
	Cards  []domain.Card `json:"cards"`
}

// BoardService is the board surface exposed over every transport.
type BoardService interface {
	Board(context.Context) (app.Snapshot, error)
	Dispatch(context.Context, DragEventRequest) (DragEventResult, error)
	CreateColumn(context.Context, CreateColumnRequest) (domain.Column, error)
	RenameColumn(context.Context, RenameColumnRequest) (domain.Column, error)
	RemoveColumn(ctx context.Context, id string) error
	ColumnCards(ctx context.Context, columnID string) (ColumnCards, error)
	CreateCard(context.Context, CreateCardRequest) (domain.Card, error)
	EditCard(context.Context, EditCardRequest) (domain.Card, error)
	RemoveCard(ctx context.Context, id string) error
	Activity(ctx context.Context, limit int) ([]domain.ChangeEvent, error)
}
