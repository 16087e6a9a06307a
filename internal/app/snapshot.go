package app

import (
	"fmt"
	"time"

	"github.com/hylla/kanboard/internal/board"
	"github.com/hylla/kanboard/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "kanboard.snapshot.v1"

// Snapshot is a serialisable copy of the board.
type Snapshot struct {
	Version    string             `json:"version"`
	ExportedAt time.Time          `json:"exported_at"`
	Columns    []domain.Column    `json:"columns"`
	Cards      []domain.Card      `json:"cards"`
	Active     *SnapshotSelection `json:"active,omitempty"`
}

// SnapshotSelection names the entity being dragged when the snapshot was taken.
type SnapshotSelection struct {
	Kind domain.Kind `json:"kind"`
	ID   string      `json:"id"`
}

// ExportSnapshot exports the current board.
func (s *Service) ExportSnapshot() Snapshot {
	state := s.Snapshot()
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Columns:    state.Columns(),
		Cards:      state.Cards(),
	}
	if snap.Columns == nil {
		snap.Columns = []domain.Column{}
	}
	if snap.Cards == nil {
		snap.Cards = []domain.Card{}
	}
	if sel, ok := state.Active(); ok {
		snap.Active = &SnapshotSelection{Kind: sel.Kind, ID: sel.ID()}
	}
	return snap
}

// ImportSnapshot replaces the board with the snapshot contents. Any gesture in
// progress is dropped; the active selection of the snapshot is not restored.
func (s *Service) ImportSnapshot(snap Snapshot) error {
	state, err := snap.Board()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sel, ok := s.Snapshot().Active(); ok {
		state = s.cancelGesture(state, sel, "snapshot imported")
	}
	s.publish(state)
	s.logger.Info("snapshot imported", "columns", state.ColumnCount(), "cards", state.CardCount())
	return nil
}

// Board validates the snapshot and converts it to an idle board state.
func (snap Snapshot) Board() (board.State, error) {
	if snap.Version != SnapshotVersion {
		return board.State{}, fmt.Errorf("%w: unsupported version %q", ErrInvalidSnapshot, snap.Version)
	}
	state, err := board.New(snap.Columns, snap.Cards)
	if err != nil {
		return board.State{}, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return state, nil
}
