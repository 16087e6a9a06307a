package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hylla/kanboard/internal/adapters/server/common"
	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/domain"
)

// stubBoardService returns one configured error from every call.
type stubBoardService struct {
	common.BoardService
	err       error
	lastLimit int
}

// Board returns the configured error.
func (s *stubBoardService) Board(context.Context) (app.Snapshot, error) {
	return app.Snapshot{}, s.err
}

// Activity records the limit and returns the configured error.
func (s *stubBoardService) Activity(_ context.Context, limit int) ([]domain.ChangeEvent, error) {
	s.lastLimit = limit
	return []domain.ChangeEvent{}, s.err
}

// newBoardHandler builds a handler over a real session seeded with X, Y and t1, t2 in X, t3 in Y.
func newBoardHandler(t *testing.T) *Handler {
	t.Helper()
	n := 0
	now := time.Date(2026, 2, 22, 10, 0, 0, 0, time.UTC)
	svc := app.NewService(func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}, func() time.Time { return now }, app.ServiceConfig{}, nil)
	for _, id := range []string{"X", "Y"} {
		if _, err := svc.CreateColumn(app.CreateColumnInput{ID: id, Title: id}); err != nil {
			t.Fatalf("CreateColumn() error = %v", err)
		}
	}
	for _, in := range []app.CreateCardInput{
		{ID: "t1", ColumnID: "X", Content: "first"},
		{ID: "t2", ColumnID: "X", Content: "second"},
		{ID: "t3", ColumnID: "Y", Content: "third"},
	} {
		if _, err := svc.CreateCard(in); err != nil {
			t.Fatalf("CreateCard() error = %v", err)
		}
	}
	return NewHandler(common.NewAppServiceAdapter(svc))
}

// serve runs one request through the handler.
func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeBody decodes one JSON response body into the requested type.
func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return out
}

func layout(snap app.Snapshot) string {
	parts := make([]string, 0, len(snap.Cards))
	for _, card := range snap.Cards {
		parts = append(parts, card.ID+"@"+card.ColumnID)
	}
	return strings.Join(parts, ",")
}

// TestHandlerDragGesture verifies a full start/over/end gesture over HTTP.
func TestHandlerDragGesture(t *testing.T) {
	handler := newBoardHandler(t)

	events := []string{
		`{"phase":"start","active_id":"t1","active_kind":"task"}`,
		`{"phase":"over","active_id":"t1","over_id":"Y","over_kind":"column"}`,
		`{"phase":"end","active_id":"t1","over_id":"Y"}`,
	}
	var last common.DragEventResult
	for _, body := range events {
		rec := serve(handler, http.MethodPost, "/events", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("POST /events %s status = %d, body = %s", body, rec.Code, rec.Body.String())
		}
		last = decodeBody[common.DragEventResult](t, rec)
		if last.Outcome != "applied" {
			t.Fatalf("outcome = %q, want applied", last.Outcome)
		}
	}
	if got := layout(last.Board); got != "t2@X,t3@Y,t1@Y" {
		t.Fatalf("layout = %q", got)
	}

	rec := serve(handler, http.MethodGet, "/board", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /board status = %d", rec.Code)
	}
	board := decodeBody[app.Snapshot](t, rec)
	if board.Active != nil || layout(board) != "t2@X,t3@Y,t1@Y" {
		t.Fatalf("unexpected board %#v", board)
	}

	rec = serve(handler, http.MethodGet, "/activity?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /activity status = %d", rec.Code)
	}
	activity := decodeBody[struct {
		Events []domain.ChangeEvent `json:"events"`
	}](t, rec)
	if len(activity.Events) != 1 || activity.Events[0].EntityID != "t1" || activity.Events[0].Operation != domain.ChangeOperationMove {
		t.Fatalf("unexpected activity %#v", activity.Events)
	}
}

// TestHandlerDragEventsWithoutActiveID verifies over and end events may omit active_id.
func TestHandlerDragEventsWithoutActiveID(t *testing.T) {
	handler := newBoardHandler(t)

	steps := []struct {
		body    string
		outcome string
	}{
		{`{"phase":"start","active_id":"t1","active_kind":"task"}`, "applied"},
		{`{"phase":"over","over_id":"t3"}`, "applied"},
		{`{"phase":"over","over_id":"t1"}`, "noop_hover"},
		{`{"phase":"end","over_id":"t3"}`, "applied"},
	}
	var last common.DragEventResult
	for _, step := range steps {
		rec := serve(handler, http.MethodPost, "/events", step.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("POST /events %s status = %d, body = %s", step.body, rec.Code, rec.Body.String())
		}
		last = decodeBody[common.DragEventResult](t, rec)
		if last.Outcome != step.outcome {
			t.Fatalf("POST /events %s outcome = %q, want %q", step.body, last.Outcome, step.outcome)
		}
	}
	if last.Board.Active != nil || layout(last.Board) != "t2@X,t3@Y,t1@Y" {
		t.Fatalf("unexpected board %#v", last.Board)
	}
}

// TestHandlerDragAfterSourceRemoved verifies events for a removed drag source report cancelled.
func TestHandlerDragAfterSourceRemoved(t *testing.T) {
	handler := newBoardHandler(t)
	if rec := serve(handler, http.MethodPost, "/events", `{"phase":"start","active_id":"t1","active_kind":"task"}`); rec.Code != http.StatusOK {
		t.Fatalf("POST /events start status = %d", rec.Code)
	}
	if rec := serve(handler, http.MethodDelete, "/cards/t1", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE /cards/t1 status = %d", rec.Code)
	}
	for _, body := range []string{`{"phase":"over","over_id":"t3"}`, `{"phase":"end","active_id":"t1","over_id":"t3"}`} {
		rec := serve(handler, http.MethodPost, "/events", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("POST /events %s status = %d, body = %s", body, rec.Code, rec.Body.String())
		}
		if got := decodeBody[common.DragEventResult](t, rec); got.Outcome != "cancelled" || got.Board.Active != nil {
			t.Fatalf("POST /events %s = %#v, want cancelled", body, got)
		}
	}
	if rec := serve(handler, http.MethodPost, "/events", `{"phase":"over","over_id":"t3"}`); rec.Code != http.StatusConflict {
		t.Fatalf("over after cancelled end status = %d, want 409", rec.Code)
	}
}

// TestHandlerDragErrors verifies rejected gesture events map onto structured statuses.
func TestHandlerDragErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
		code string
	}{
		{"no gesture", `{"phase":"over","active_id":"t1","over_id":"t3"}`, http.StatusConflict, "gesture_conflict"},
		{"unknown phase", `{"phase":"hover","active_id":"t1"}`, http.StatusBadRequest, "invalid_request"},
		{"unknown field", `{"phase":"start","active":"t1"}`, http.StatusBadRequest, "invalid_request"},
		{"trailing content", `{"phase":"start","active_id":"t1","active_kind":"task"} {}`, http.StatusBadRequest, "invalid_request"},
		{"missing card", `{"phase":"start","active_id":"nope","active_kind":"task"}`, http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(newBoardHandler(t), http.MethodPost, "/events", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body.String())
			}
			env := decodeBody[ErrorEnvelope](t, rec)
			if env.Error.Code != tc.code {
				t.Fatalf("code = %q, want %q", env.Error.Code, tc.code)
			}
		})
	}
}

// TestHandlerColumnAndCardRoutes verifies CRUD routes and the column projection.
func TestHandlerColumnAndCardRoutes(t *testing.T) {
	handler := newBoardHandler(t)

	rec := serve(handler, http.MethodPost, "/columns", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /columns status = %d", rec.Code)
	}
	created := decodeBody[domain.Column](t, rec)
	if created.ID != "gen-1" || created.Title != "Column 3" {
		t.Fatalf("unexpected column %#v", created)
	}

	rec = serve(handler, http.MethodPatch, "/columns/gen-1", `{"title":"Done"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH /columns status = %d", rec.Code)
	}
	if got := decodeBody[domain.Column](t, rec); got.Title != "Done" {
		t.Fatalf("title = %q, want Done", got.Title)
	}

	rec = serve(handler, http.MethodPost, "/cards", `{"id":"t4","column_id":"gen-1","content":"ship it"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /cards status = %d body = %s", rec.Code, rec.Body.String())
	}
	rec = serve(handler, http.MethodPatch, "/cards/t4", `{"content":"shipped"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH /cards status = %d", rec.Code)
	}
	if got := decodeBody[domain.Card](t, rec); got.Content != "shipped" || got.ColumnID != "gen-1" {
		t.Fatalf("unexpected card %#v", got)
	}

	rec = serve(handler, http.MethodGet, "/columns/X/cards", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /columns/X/cards status = %d", rec.Code)
	}
	projection := decodeBody[common.ColumnCards](t, rec)
	if len(projection.Cards) != 2 || projection.Cards[0].ID != "t1" || projection.Cards[1].ID != "t2" {
		t.Fatalf("unexpected projection %#v", projection)
	}

	if rec = serve(handler, http.MethodDelete, "/cards/t1", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE /cards/t1 status = %d", rec.Code)
	}
	if rec = serve(handler, http.MethodDelete, "/columns/Y", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE /columns/Y status = %d", rec.Code)
	}
	rec = serve(handler, http.MethodGet, "/board", "")
	if got := layout(decodeBody[app.Snapshot](t, rec)); got != "t2@X,t4@gen-1" {
		t.Fatalf("layout after deletes = %q", got)
	}
	if rec = serve(handler, http.MethodGet, "/columns/Y/cards", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("GET removed column status = %d", rec.Code)
	}
	if rec = serve(handler, http.MethodPatch, "/columns/X", `{"title":" "}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("PATCH blank title status = %d", rec.Code)
	}
	if rec = serve(handler, http.MethodPost, "/cards", `{"column_id":"nope"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("POST card into missing column status = %d", rec.Code)
	}
}

// TestHandlerRouting verifies unknown routes and method guards.
func TestHandlerRouting(t *testing.T) {
	handler := newBoardHandler(t)

	cases := []struct {
		method string
		target string
		want   int
		allow  string
	}{
		{http.MethodGet, "/nope", http.StatusNotFound, ""},
		{http.MethodGet, "/columns/a/b", http.StatusNotFound, ""},
		{http.MethodPost, "/board", http.StatusMethodNotAllowed, "GET"},
		{http.MethodGet, "/events", http.StatusMethodNotAllowed, "POST"},
		{http.MethodGet, "/columns", http.StatusMethodNotAllowed, "POST"},
		{http.MethodPut, "/columns/X", http.StatusMethodNotAllowed, "PATCH, DELETE"},
		{http.MethodPost, "/columns/X/cards", http.StatusMethodNotAllowed, "GET"},
		{http.MethodGet, "/cards/t1", http.StatusMethodNotAllowed, "PATCH, DELETE"},
	}
	for _, tc := range cases {
		rec := serve(handler, tc.method, tc.target, "")
		if rec.Code != tc.want {
			t.Fatalf("%s %s status = %d, want %d", tc.method, tc.target, rec.Code, tc.want)
		}
		if got := rec.Header().Get("Allow"); got != tc.allow {
			t.Fatalf("%s %s Allow = %q, want %q", tc.method, tc.target, got, tc.allow)
		}
	}

	if rec := serve(handler, http.MethodGet, "/activity?limit=many", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", rec.Code)
	}
	if rec := serve(NewHandler(nil), http.MethodGet, "/board", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil service status = %d", rec.Code)
	}
}

// TestHandlerErrorMapping verifies service errors map to structured statuses.
func TestHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
		code string
	}{
		{common.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
		{common.ErrNotFound, http.StatusNotFound, "not_found"},
		{common.ErrGestureConflict, http.StatusConflict, "gesture_conflict"},
		{context.Canceled, http.StatusServiceUnavailable, "request_canceled"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		stub := &stubBoardService{err: fmt.Errorf("wrapped: %w", tc.err)}
		rec := serve(NewHandler(stub), http.MethodGet, "/board", "")
		if rec.Code != tc.want {
			t.Fatalf("%v status = %d, want %d", tc.err, rec.Code, tc.want)
		}
		if env := decodeBody[ErrorEnvelope](t, rec); env.Error.Code != tc.code {
			t.Fatalf("%v code = %q, want %q", tc.err, env.Error.Code, tc.code)
		}
	}

	stub := &stubBoardService{}
	if rec := serve(NewHandler(stub), http.MethodGet, "/activity?limit=7", ""); rec.Code != http.StatusOK {
		t.Fatalf("activity status = %d", rec.Code)
	}
	if stub.lastLimit != 7 {
		t.Fatalf("limit = %d, want 7", stub.lastLimit)
	}
}
