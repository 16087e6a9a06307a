package app

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hylla/kanboard/internal/board"
	"github.com/hylla/kanboard/internal/domain"
	"github.com/hylla/kanboard/internal/reorder"
)

// Default title templates; %d is the 1-based count after the insert.
const (
	DefaultColumnTitleTemplate = "Column %d"
	DefaultCardTitleTemplate   = "Task %d"
	DefaultActivityLimit       = 200
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	ColumnTitleTemplate string
	CardTitleTemplate   string
	DropPlacement       reorder.DropPlacement
	SeedColumns         []string
	ActivityLimit       int
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service owns the board for one session. Writers are serialised; readers get
// the last published immutable State through Snapshot.
type Service struct {
	mu      sync.Mutex
	current atomic.Pointer[board.State]

	engine        reorder.Engine
	idGen         IDGenerator
	clock         Clock
	logger        Logger
	columnTitle   string
	cardTitle     string
	seedColumns   []string
	activityLimit int
	activity      []domain.ChangeEvent
	nextEventID   int64
	// cancelled is the source id of a gesture dropped by a removal, kept until
	// its End arrives or a new gesture starts.
	cancelled string
}

// NewService constructs a new value for this package.
func NewService(idGen IDGenerator, clock Clock, cfg ServiceConfig, logger Logger) *Service {
	if idGen == nil {
		idGen = uuid.NewString
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}
	if !strings.Contains(cfg.ColumnTitleTemplate, "%d") {
		cfg.ColumnTitleTemplate = DefaultColumnTitleTemplate
	}
	if !strings.Contains(cfg.CardTitleTemplate, "%d") {
		cfg.CardTitleTemplate = DefaultCardTitleTemplate
	}
	if cfg.ActivityLimit <= 0 {
		cfg.ActivityLimit = DefaultActivityLimit
	}

	s := &Service{
		engine:        reorder.New(reorder.WithDropPlacement(cfg.DropPlacement)),
		idGen:         idGen,
		clock:         clock,
		logger:        logger,
		columnTitle:   cfg.ColumnTitleTemplate,
		cardTitle:     cfg.CardTitleTemplate,
		seedColumns:   sanitizeSeedColumns(cfg.SeedColumns),
		activityLimit: cfg.ActivityLimit,
	}
	s.current.Store(&board.State{})
	return s
}

// Snapshot returns the most recently published board state.
func (s *Service) Snapshot() board.State {
	return *s.current.Load()
}

// DropPlacement reports where cards dropped on a column body are placed.
func (s *Service) DropPlacement() reorder.DropPlacement {
	return s.engine.Placement()
}

// publish must be called with mu held.
func (s *Service) publish(next board.State) {
	s.current.Store(&next)
}

// EnsureDefaultColumns creates the configured seed columns when the board has none.
func (s *Service) EnsureDefaultColumns() ([]domain.Column, error) {
	if s.Snapshot().ColumnCount() > 0 || len(s.seedColumns) == 0 {
		return s.Snapshot().Columns(), nil
	}
	for _, title := range s.seedColumns {
		if _, err := s.CreateColumn(CreateColumnInput{Title: title}); err != nil {
			return nil, err
		}
	}
	return s.Snapshot().Columns(), nil
}

// CreateColumnInput holds input values for create column operations.
type CreateColumnInput struct {
	ID    string
	Title string
}

// AddColumn appends a column with a generated id and the default title.
func (s *Service) AddColumn() (domain.Column, error) {
	return s.CreateColumn(CreateColumnInput{})
}

// CreateColumn creates column.
func (s *Service) CreateColumn(in CreateColumnInput) (domain.Column, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = s.idGen()
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = fmt.Sprintf(s.columnTitle, cur.ColumnCount()+1)
	}
	column, err := domain.NewColumn(id, title)
	if err != nil {
		return domain.Column{}, err
	}
	next, err := cur.AddColumn(column)
	if err != nil {
		return domain.Column{}, err
	}
	s.publish(next)
	s.record(column.ID, domain.KindColumn, domain.ChangeOperationCreate, map[string]string{"title": column.Title})
	s.logger.Debug("column created", "column_id", column.ID, "title", column.Title)
	return column, nil
}

// RenameColumn renames column.
func (s *Service) RenameColumn(id, title string) (domain.Column, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.Snapshot().RenameColumn(id, title)
	if err != nil {
		return domain.Column{}, err
	}
	s.publish(next)
	column, _ := next.Column(id)
	s.record(id, domain.KindColumn, domain.ChangeOperationUpdate, map[string]string{"title": column.Title})
	return column, nil
}

// RemoveColumn deletes a column and its cards. A gesture dragging the column,
// or a card inside it, is cancelled in the same step.
func (s *Service) RemoveColumn(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	next, err := cur.RemoveColumn(id)
	if err != nil {
		return err
	}
	removedCards := cur.CountForColumn(id)
	if sel, ok := cur.Active(); ok && s.selectionInColumn(cur, sel, id) {
		next = s.cancelGesture(next, sel, "column removed")
	}
	s.publish(next)
	s.record(id, domain.KindColumn, domain.ChangeOperationDelete, map[string]string{"cards_removed": strconv.Itoa(removedCards)})
	s.logger.Debug("column removed", "column_id", id, "cards_removed", removedCards)
	return nil
}

// CreateCardInput holds input values for create card operations.
type CreateCardInput struct {
	ID       string
	ColumnID string
	Content  string
}

// AddCard appends a card with a generated id and default content to columnID.
func (s *Service) AddCard(columnID string) (domain.Card, error) {
	return s.CreateCard(CreateCardInput{ColumnID: columnID})
}

// CreateCard creates card.
func (s *Service) CreateCard(in CreateCardInput) (domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = s.idGen()
	}
	content := in.Content
	if strings.TrimSpace(content) == "" {
		content = fmt.Sprintf(s.cardTitle, cur.CardCount()+1)
	}
	card, err := domain.NewCard(id, in.ColumnID, content)
	if err != nil {
		return domain.Card{}, err
	}
	next, err := cur.AddCard(card)
	if err != nil {
		return domain.Card{}, err
	}
	s.publish(next)
	s.record(card.ID, domain.KindTask, domain.ChangeOperationCreate, map[string]string{"column_id": card.ColumnID})
	s.logger.Debug("card created", "card_id", card.ID, "column_id", card.ColumnID)
	return card, nil
}

// EditCard replaces card content.
func (s *Service) EditCard(id, content string) (domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.Snapshot().EditCard(id, content)
	if err != nil {
		return domain.Card{}, err
	}
	s.publish(next)
	card, _ := next.Card(id)
	s.record(id, domain.KindTask, domain.ChangeOperationUpdate, nil)
	return card, nil
}

// RemoveCard deletes a card. A gesture dragging that card is cancelled.
func (s *Service) RemoveCard(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	next, err := cur.RemoveCard(id)
	if err != nil {
		return err
	}
	if sel, ok := cur.Active(); ok && sel.Kind == domain.KindTask && sel.ID() == id {
		next = s.cancelGesture(next, sel, "card removed")
	}
	s.publish(next)
	s.record(id, domain.KindTask, domain.ChangeOperationDelete, nil)
	s.logger.Debug("card removed", "card_id", id)
	return nil
}

// Dispatch feeds one gesture event through the reorder engine and publishes the
// result. Rejected events leave the board untouched, except that an End always
// returns the board to idle.
func (s *Service) Dispatch(ev reorder.Event) (reorder.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	if s.staleForCancelled(cur, ev) {
		if ev.Phase == reorder.PhaseEnd {
			s.cancelled = ""
		}
		s.logger.Debug("drag event for cancelled gesture", "event", ev.String())
		return reorder.OutcomeCancelled, nil
	}
	next, outcome, err := s.engine.Apply(cur, ev)
	if err != nil {
		s.logger.Warn("drag event ignored", "event", ev.String(), "err", err)
		if ev.Phase == reorder.PhaseEnd {
			s.publish(next)
		}
		return outcome, err
	}
	s.publish(next)

	switch outcome {
	case reorder.OutcomeSuperseded:
		s.logger.Warn("drag start superseded an unfinished gesture", "event", ev.String())
	case reorder.OutcomeNoOpHover, reorder.OutcomeIgnored:
		return outcome, nil
	}
	if ev.Phase == reorder.PhaseStart {
		s.cancelled = ""
		s.logger.Debug("drag started", "id", ev.ActiveID, "kind", ev.ActiveKind)
		return outcome, nil
	}
	sel, _ := cur.Active()
	if meta, moved := movement(cur, next, sel); moved {
		s.record(sel.ID(), sel.Kind, domain.ChangeOperationMove, meta)
		s.logger.Debug("drag moved entity", "event", ev.String(), "kind", sel.Kind)
	}
	if ev.Phase == reorder.PhaseEnd {
		s.logger.Debug("drag ended", "id", ev.ActiveID, "over", ev.OverID)
	}
	return outcome, nil
}

// Activity returns the recorded change events, oldest first.
func (s *Service) Activity() []domain.ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChangeEvent, len(s.activity))
	copy(out, s.activity)
	return out
}

// cancelGesture clears the selection after its source disappeared. mu must be held.
func (s *Service) cancelGesture(next board.State, sel board.Selection, reason string) board.State {
	s.cancelled = sel.ID()
	s.record(sel.ID(), sel.Kind, domain.ChangeOperationCancel, map[string]string{"reason": reason})
	s.logger.Info("drag gesture cancelled", "id", sel.ID(), "kind", sel.Kind, "reason", reason)
	return next.WithoutSelection()
}

// staleForCancelled reports whether ev continues a gesture that a removal
// already cancelled. mu must be held.
func (s *Service) staleForCancelled(cur board.State, ev reorder.Event) bool {
	if s.cancelled == "" || cur.Dragging() {
		return false
	}
	if ev.Phase != reorder.PhaseOver && ev.Phase != reorder.PhaseEnd {
		return false
	}
	return ev.ActiveID == "" || ev.ActiveID == s.cancelled
}

// selectionInColumn reports whether sel is the column id or a card currently inside it.
func (s *Service) selectionInColumn(cur board.State, sel board.Selection, columnID string) bool {
	switch sel.Kind {
	case domain.KindColumn:
		return sel.ID() == columnID
	case domain.KindTask:
		card, ok := cur.Card(sel.ID())
		return ok && card.ColumnID == columnID
	}
	return false
}

// record appends an activity entry, trimming to the configured limit. mu must be held.
func (s *Service) record(entityID string, kind domain.Kind, op domain.ChangeOperation, meta map[string]string) {
	s.nextEventID++
	s.activity = append(s.activity, domain.ChangeEvent{
		ID:         s.nextEventID,
		EntityID:   entityID,
		Kind:       kind,
		Operation:  op,
		Metadata:   meta,
		OccurredAt: s.clock().UTC(),
	})
	if over := len(s.activity) - s.activityLimit; over > 0 {
		s.activity = append(s.activity[:0:0], s.activity[over:]...)
	}
}

// movement describes how the dragged entity moved between two states, if it moved at all.
func movement(before, after board.State, sel board.Selection) (map[string]string, bool) {
	id := sel.ID()
	switch sel.Kind {
	case domain.KindTask:
		from, to := before.CardIndex(id), after.CardIndex(id)
		prev, _ := before.Card(id)
		cur, _ := after.Card(id)
		if from < 0 || (from == to && prev.ColumnID == cur.ColumnID) {
			return nil, false
		}
		return map[string]string{
			"from_index":  strconv.Itoa(from),
			"to_index":    strconv.Itoa(to),
			"from_column": prev.ColumnID,
			"to_column":   cur.ColumnID,
		}, true
	case domain.KindColumn:
		from, to := before.ColumnIndex(id), after.ColumnIndex(id)
		if from < 0 || from == to {
			return nil, false
		}
		return map[string]string{
			"from_index": strconv.Itoa(from),
			"to_index":   strconv.Itoa(to),
		}, true
	}
	return nil, false
}

func sanitizeSeedColumns(in []string) []string {
	out := make([]string, 0, len(in))
	for _, title := range in {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		out = append(out, title)
	}
	return out
}
