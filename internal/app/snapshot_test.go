package app

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/hylla/kanboard/internal/domain"
	"github.com/hylla/kanboard/internal/reorder"
)

func TestExportSnapshotIncludesExpectedData(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	seedScenario(t, svc)
	if _, err := svc.Dispatch(reorder.Start("t2", domain.KindTask)); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	snap := svc.ExportSnapshot()
	if snap.Version != SnapshotVersion {
		t.Fatalf("unexpected version %q", snap.Version)
	}
	if len(snap.Columns) != 2 || len(snap.Cards) != 3 {
		t.Fatalf("unexpected sizes c=%d t=%d", len(snap.Columns), len(snap.Cards))
	}
	if snap.Active == nil || snap.Active.ID != "t2" || snap.Active.Kind != domain.KindTask {
		t.Fatalf("unexpected active selection %#v", snap.Active)
	}

	encoded, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	cards, ok := decoded["cards"].([]any)
	if !ok || len(cards) != 3 {
		t.Fatalf("unexpected cards json %v", decoded["cards"])
	}
	first := cards[0].(map[string]any)
	if first["column_id"] != "X" {
		t.Fatalf("expected snake_case column_id, got %v", first)
	}
}

func TestExportEmptyBoardUsesEmptyArrays(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	snap := svc.ExportSnapshot()
	if snap.Columns == nil || snap.Cards == nil || snap.Active != nil {
		t.Fatalf("unexpected empty snapshot %#v", snap)
	}
}

func TestImportSnapshotReplacesBoard(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	seedScenario(t, svc)
	if _, err := svc.Dispatch(reorder.Start("t1", domain.KindTask)); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	snap := Snapshot{
		Version: SnapshotVersion,
		Columns: []domain.Column{{ID: "A", Title: "A"}},
		Cards:   []domain.Card{{ID: "a1", ColumnID: "A", Content: "one"}},
	}
	if err := svc.ImportSnapshot(snap); err != nil {
		t.Fatalf("ImportSnapshot() error = %v", err)
	}
	state := svc.Snapshot()
	if state.Dragging() {
		t.Fatal("import must leave the board idle")
	}
	var ids []string
	for c := range state.CardsForColumn("A") {
		ids = append(ids, c.ID)
	}
	if !slices.Equal(ids, []string{"a1"}) {
		t.Fatalf("unexpected cards %v", ids)
	}
}

func TestImportSnapshotValidateErrors(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})

	if err := svc.ImportSnapshot(Snapshot{Version: "kanboard.snapshot.v999"}); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected version validation error, got %v", err)
	}
	badRefs := Snapshot{
		Version: SnapshotVersion,
		Columns: []domain.Column{{ID: "A", Title: "A"}},
		Cards:   []domain.Card{{ID: "a1", ColumnID: "missing"}},
	}
	err := svc.ImportSnapshot(badRefs)
	if !errors.Is(err, ErrInvalidSnapshot) || !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("expected reference validation error, got %v", err)
	}
	if svc.Snapshot().ColumnCount() != 0 {
		t.Fatal("failed import must not change the board")
	}
}
