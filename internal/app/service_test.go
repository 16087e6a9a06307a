package app

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/hylla/kanboard/internal/domain"
	"github.com/hylla/kanboard/internal/reorder"
)

type logEntry struct {
	level string
	msg   string
}

type fakeLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (f *fakeLogger) add(level string, msg any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, logEntry{level: level, msg: fmt.Sprint(msg)})
}

func (f *fakeLogger) Debug(msg any, _ ...any) { f.add("debug", msg) }
func (f *fakeLogger) Info(msg any, _ ...any)  { f.add("info", msg) }
func (f *fakeLogger) Warn(msg any, _ ...any)  { f.add("warn", msg) }
func (f *fakeLogger) Error(msg any, _ ...any) { f.add("error", msg) }

func (f *fakeLogger) count(level string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

func sequentialIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestService(t *testing.T, cfg ServiceConfig) (*Service, *fakeLogger) {
	t.Helper()
	logger := &fakeLogger{}
	now := time.Date(2026, 2, 22, 10, 0, 0, 0, time.UTC)
	return NewService(sequentialIDs(), func() time.Time { return now }, cfg, logger), logger
}

// seedScenario builds columns X, Y and cards t1@X, t2@X, t3@Y.
func seedScenario(t *testing.T, svc *Service) {
	t.Helper()
	for _, id := range []string{"X", "Y"} {
		if _, err := svc.CreateColumn(CreateColumnInput{ID: id, Title: id}); err != nil {
			t.Fatalf("CreateColumn() error = %v", err)
		}
	}
	for _, in := range []CreateCardInput{{ID: "t1", ColumnID: "X"}, {ID: "t2", ColumnID: "X"}, {ID: "t3", ColumnID: "Y"}} {
		if _, err := svc.CreateCard(in); err != nil {
			t.Fatalf("CreateCard() error = %v", err)
		}
	}
}

func layout(svc *Service) []string {
	out := []string{}
	for _, c := range svc.Snapshot().Cards() {
		out = append(out, c.ID+"@"+c.ColumnID)
	}
	return out
}

func TestAddColumnAndCardUseDefaultTitles(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	c1, err := svc.AddColumn()
	if err != nil {
		t.Fatalf("AddColumn() error = %v", err)
	}
	c2, _ := svc.AddColumn()
	if c1.Title != "Column 1" || c2.Title != "Column 2" {
		t.Fatalf("unexpected titles %q %q", c1.Title, c2.Title)
	}
	if c1.ID != "id-1" || c2.ID != "id-2" {
		t.Fatalf("expected generated ids, got %q %q", c1.ID, c2.ID)
	}
	card, err := svc.AddCard(c2.ID)
	if err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}
	if card.Content != "Task 1" || card.ColumnID != c2.ID {
		t.Fatalf("unexpected card %#v", card)
	}
	if _, err := svc.AddCard("missing"); !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	if got := svc.Snapshot().CardCount(); got != 1 {
		t.Fatalf("rejected card was stored, count %d", got)
	}
}

func TestCustomTitleTemplates(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{ColumnTitleTemplate: "Lane %d", CardTitleTemplate: "no placeholder"})
	col, _ := svc.AddColumn()
	card, _ := svc.AddCard(col.ID)
	if col.Title != "Lane 1" {
		t.Fatalf("unexpected column title %q", col.Title)
	}
	if card.Content != "Task 1" {
		t.Fatalf("template without %%d should fall back to default, got %q", card.Content)
	}
}

func TestEnsureDefaultColumns(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{SeedColumns: []string{"To Do", " ", "Done"}})
	cols, err := svc.EnsureDefaultColumns()
	if err != nil {
		t.Fatalf("EnsureDefaultColumns() error = %v", err)
	}
	if len(cols) != 2 || cols[0].Title != "To Do" || cols[1].Title != "Done" {
		t.Fatalf("unexpected seed columns %#v", cols)
	}
	again, _ := svc.EnsureDefaultColumns()
	if len(again) != 2 {
		t.Fatalf("seeding must run once, got %d columns", len(again))
	}
}

func TestRenameEditRemove(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	seedScenario(t, svc)

	col, err := svc.RenameColumn("X", "Backlog")
	if err != nil || col.Title != "Backlog" {
		t.Fatalf("RenameColumn() = %#v, %v", col, err)
	}
	card, err := svc.EditCard("t2", "ship it")
	if err != nil || card.Content != "ship it" {
		t.Fatalf("EditCard() = %#v, %v", card, err)
	}
	if err := svc.RemoveCard("t2"); err != nil {
		t.Fatalf("RemoveCard() error = %v", err)
	}
	if err := svc.RemoveCard("t2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.RenameColumn("nope", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.RemoveColumn("X"); err != nil {
		t.Fatalf("RemoveColumn() error = %v", err)
	}
	if got := layout(svc); !slices.Equal(got, []string{"t3@Y"}) {
		t.Fatalf("cascade left %v", got)
	}
	if err := svc.RemoveColumn("X"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDispatchScenario(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	seedScenario(t, svc)

	events := []reorder.Event{
		reorder.Start("t1", domain.KindTask),
		reorder.Over("t1", domain.KindTask, "t3", domain.KindTask),
		reorder.Over("t1", domain.KindTask, "t1", domain.KindTask),
		reorder.End("t1", "t3"),
	}
	want := []reorder.Outcome{reorder.OutcomeApplied, reorder.OutcomeApplied, reorder.OutcomeNoOpHover, reorder.OutcomeApplied}
	for i, ev := range events {
		outcome, err := svc.Dispatch(ev)
		if err != nil {
			t.Fatalf("Dispatch(%s) error = %v", ev, err)
		}
		if outcome != want[i] {
			t.Fatalf("Dispatch(%s) outcome = %s, want %s", ev, outcome, want[i])
		}
	}
	if got := layout(svc); !slices.Equal(got, []string{"t2@X", "t3@Y", "t1@Y"}) {
		t.Fatalf("unexpected layout %v", got)
	}
	if svc.Snapshot().Dragging() {
		t.Fatal("expected idle board after end")
	}

	var moves []domain.ChangeEvent
	for _, e := range svc.Activity() {
		if e.Operation == domain.ChangeOperationMove {
			moves = append(moves, e)
		}
	}
	if len(moves) != 1 || moves[0].EntityID != "t1" || moves[0].Metadata["to_column"] != "Y" {
		t.Fatalf("expected one move entry for t1, got %#v", moves)
	}
}

func TestDispatchColumnReorderRecordsMove(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	for _, id := range []string{"A", "B", "C"} {
		if _, err := svc.CreateColumn(CreateColumnInput{ID: id}); err != nil {
			t.Fatalf("CreateColumn() error = %v", err)
		}
	}
	for _, ev := range []reorder.Event{
		reorder.Start("A", domain.KindColumn),
		reorder.Over("A", domain.KindColumn, "C", domain.KindColumn),
		reorder.End("A", "C"),
	} {
		if _, err := svc.Dispatch(ev); err != nil {
			t.Fatalf("Dispatch(%s) error = %v", ev, err)
		}
	}
	var ids []string
	for _, c := range svc.Snapshot().Columns() {
		ids = append(ids, c.ID)
	}
	if !slices.Equal(ids, []string{"B", "C", "A"}) {
		t.Fatalf("unexpected column order %v", ids)
	}
	activity := svc.Activity()
	last := activity[len(activity)-1]
	if last.Operation != domain.ChangeOperationMove || last.Kind != domain.KindColumn || last.Metadata["to_index"] != "2" {
		t.Fatalf("unexpected last activity %#v", last)
	}
}

func TestDispatchMalformedEventIsLoggedAndIgnored(t *testing.T) {
	svc, logger := newTestService(t, ServiceConfig{})
	seedScenario(t, svc)
	before := layout(svc)

	if _, err := svc.Dispatch(reorder.Over("t1", domain.KindTask, "t3", domain.KindTask)); !errors.Is(err, reorder.ErrNoActiveGesture) {
		t.Fatalf("expected ErrNoActiveGesture, got %v", err)
	}
	if got := layout(svc); !slices.Equal(got, before) {
		t.Fatalf("malformed event changed board: %v", got)
	}
	if logger.count("warn") != 1 {
		t.Fatalf("expected one warning, got %d", logger.count("warn"))
	}

	if _, err := svc.Dispatch(reorder.Start("t1", domain.KindTask)); err != nil {
		t.Fatalf("Dispatch(start) error = %v", err)
	}
	if _, err := svc.Dispatch(reorder.End("t2", "t3")); !errors.Is(err, reorder.ErrGestureMismatch) {
		t.Fatalf("expected ErrGestureMismatch, got %v", err)
	}
	if svc.Snapshot().Dragging() {
		t.Fatal("a rejected end must still leave the board idle")
	}
}

func TestRemovingDragSourceCancelsGesture(t *testing.T) {
	cases := []struct {
		name   string
		start  reorder.Event
		remove func(*Service) error
	}{
		{name: "card removed", start: reorder.Start("t1", domain.KindTask), remove: func(s *Service) error { return s.RemoveCard("t1") }},
		{name: "owning column removed", start: reorder.Start("t1", domain.KindTask), remove: func(s *Service) error { return s.RemoveColumn("X") }},
		{name: "dragged column removed", start: reorder.Start("Y", domain.KindColumn), remove: func(s *Service) error { return s.RemoveColumn("Y") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(t, ServiceConfig{})
			seedScenario(t, svc)
			if _, err := svc.Dispatch(tc.start); err != nil {
				t.Fatalf("Dispatch(start) error = %v", err)
			}
			if err := tc.remove(svc); err != nil {
				t.Fatalf("remove error = %v", err)
			}
			if svc.Snapshot().Dragging() {
				t.Fatal("expected gesture cancelled")
			}
			if err := svc.Snapshot().Validate(); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			found := false
			for _, e := range svc.Activity() {
				if e.Operation == domain.ChangeOperationCancel && e.EntityID == tc.start.ActiveID {
					found = true
				}
			}
			if !found {
				t.Fatal("expected cancel activity entry")
			}
			before := svc.Snapshot()
			outcome, err := svc.Dispatch(reorder.Over(tc.start.ActiveID, tc.start.ActiveKind, "t3", domain.KindTask))
			if err != nil || outcome != reorder.OutcomeCancelled {
				t.Fatalf("later over = (%s, %v), want cancelled", outcome, err)
			}
			if outcome, err := svc.Dispatch(reorder.End("", "t3")); err != nil || outcome != reorder.OutcomeCancelled {
				t.Fatalf("later end = (%s, %v), want cancelled", outcome, err)
			}
			if !reflect.DeepEqual(svc.Snapshot(), before) {
				t.Fatal("events for a cancelled gesture must not change the board")
			}
			if _, err := svc.Dispatch(reorder.Over(tc.start.ActiveID, tc.start.ActiveKind, "t3", domain.KindTask)); !errors.Is(err, reorder.ErrNoActiveGesture) {
				t.Fatalf("expected over after the cancelled end to be rejected, got %v", err)
			}
		})
	}
}

func TestStartClearsCancelledGesture(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	seedScenario(t, svc)
	if _, err := svc.Dispatch(reorder.Start("t1", domain.KindTask)); err != nil {
		t.Fatalf("Dispatch(start) error = %v", err)
	}
	if err := svc.RemoveCard("t1"); err != nil {
		t.Fatalf("RemoveCard() error = %v", err)
	}
	if _, err := svc.Dispatch(reorder.Over("t2", domain.KindTask, "t3", domain.KindTask)); !errors.Is(err, reorder.ErrNoActiveGesture) {
		t.Fatalf("over naming another source = %v, want ErrNoActiveGesture", err)
	}
	if outcome, err := svc.Dispatch(reorder.Start("t2", domain.KindTask)); err != nil || outcome != reorder.OutcomeApplied {
		t.Fatalf("Dispatch(start) = (%s, %v), want applied", outcome, err)
	}
	if outcome, err := svc.Dispatch(reorder.Over("t2", domain.KindTask, "t3", domain.KindTask)); err != nil || outcome != reorder.OutcomeApplied {
		t.Fatalf("Dispatch(over) = (%s, %v), want applied", outcome, err)
	}
	if outcome, err := svc.Dispatch(reorder.End("t2", "t3")); err != nil || outcome != reorder.OutcomeApplied {
		t.Fatalf("Dispatch(end) = (%s, %v), want applied", outcome, err)
	}
	if _, err := svc.Dispatch(reorder.End("", "t3")); !errors.Is(err, reorder.ErrNoActiveGesture) {
		t.Fatalf("end after a finished gesture = %v, want ErrNoActiveGesture", err)
	}
}

func TestRemovingOtherEntityKeepsGesture(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	seedScenario(t, svc)
	if _, err := svc.Dispatch(reorder.Start("t1", domain.KindTask)); err != nil {
		t.Fatalf("Dispatch(start) error = %v", err)
	}
	if err := svc.RemoveCard("t2"); err != nil {
		t.Fatalf("RemoveCard() error = %v", err)
	}
	if !svc.Snapshot().Dragging() {
		t.Fatal("removing a bystander must not cancel the gesture")
	}
}

func TestDropPlacementConfig(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{DropPlacement: reorder.DropTop})
	if svc.DropPlacement() != reorder.DropTop {
		t.Fatalf("unexpected placement %q", svc.DropPlacement())
	}
	seedScenario(t, svc)
	for _, ev := range []reorder.Event{
		reorder.Start("t2", domain.KindTask),
		reorder.Over("t2", domain.KindTask, "Y", domain.KindColumn),
		reorder.End("t2", "Y"),
	} {
		if _, err := svc.Dispatch(ev); err != nil {
			t.Fatalf("Dispatch(%s) error = %v", ev, err)
		}
	}
	if got := layout(svc); !slices.Equal(got, []string{"t1@X", "t2@Y", "t3@Y"}) {
		t.Fatalf("unexpected layout %v", got)
	}
}

func TestActivityLimit(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{ActivityLimit: 3})
	for range 5 {
		if _, err := svc.AddColumn(); err != nil {
			t.Fatalf("AddColumn() error = %v", err)
		}
	}
	activity := svc.Activity()
	if len(activity) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(activity))
	}
	if activity[0].ID != 3 || activity[2].ID != 5 {
		t.Fatalf("expected newest entries kept, got ids %d..%d", activity[0].ID, activity[2].ID)
	}
}

func TestSnapshotReadersSeeImmutableStates(t *testing.T) {
	svc, _ := newTestService(t, ServiceConfig{})
	seedScenario(t, svc)
	held := svc.Snapshot()
	if _, err := svc.Dispatch(reorder.Start("t1", domain.KindTask)); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if _, err := svc.Dispatch(reorder.Over("t1", domain.KindTask, "t3", domain.KindTask)); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	var ids []string
	for _, c := range held.Cards() {
		ids = append(ids, c.ID)
	}
	if !slices.Equal(ids, []string{"t1", "t2", "t3"}) || held.Dragging() {
		t.Fatalf("held snapshot changed: %v", ids)
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if err := svc.Snapshot().Validate(); err != nil {
					t.Errorf("Validate() error = %v", err)
					return
				}
			}
		}()
	}
	for range 50 {
		if _, err := svc.AddCard("X"); err != nil {
			t.Fatalf("AddCard() error = %v", err)
		}
	}
	wg.Wait()
}
