package tui

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hylla/kanboard/internal/board"
	"github.com/hylla/kanboard/internal/domain"
	"github.com/hylla/kanboard/internal/reorder"
)

// Service is the board session the model drives.
type Service interface {
	Snapshot() board.State
	Dispatch(reorder.Event) (reorder.Outcome, error)
	AddColumn() (domain.Column, error)
	RenameColumn(id, title string) (domain.Column, error)
	RemoveColumn(id string) error
	AddCard(columnID string) (domain.Card, error)
	EditCard(id, content string) (domain.Card, error)
	RemoveCard(id string) error
	Activity() []domain.ChangeEvent
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define the modal states.
const (
	modeNone inputMode = iota
	modeRenameColumn
	modeEditCard
	modeCardInfo
	modeActivityLog
)

const (
	boardTop              = 2
	columnChrome          = 5 // border (2) + padding (2) + margin (1)
	activityLogViewWindow = 14
)

// gestureSource records which input device owns the active gesture.
type gestureSource int

const (
	gestureNone gestureSource = iota
	gestureKeyboard
	gestureMouse
)

// target is a hit-tested drag source or drop target.
type target struct {
	id   string
	kind domain.Kind
}

func (t target) valid() bool {
	return t.id != ""
}

// hit is the result of mapping a terminal cell to the board.
type hit struct {
	target target
	column int
	card   int
	header bool
}

// pointerPress is a mouse press that has not travelled far enough to become a drag.
type pointerPress struct {
	x, y   int
	source target
}

// actionMsg carries the result of an asynchronous board edit.
type actionMsg struct {
	status string
	err    error
	focus  target
}

// copiedMsg reports a clipboard write.
type copiedMsg struct {
	err error
}

// Model is the bubbletea model for the board.
type Model struct {
	svc Service

	ready  bool
	width  int
	height int
	title  string
	status string

	help  help.Model
	keys  keyMap
	input textinput.Model
	md    *markdownRenderer

	mode      inputMode
	editingID string

	selectedColumn int
	selectedCard   int

	gesture gestureSource
	hover   target
	press   *pointerPress

	activationDistance int
	copyText           func(string) error
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:                svc,
		title:              "kanboard",
		status:             "ready",
		help:               h,
		keys:               newKeyMap(),
		input:              newModalInput("", "", "", 200),
		md:                 &markdownRenderer{},
		activationDistance: DefaultActivationDistance,
		copyText:           defaultClipboard,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.status = "error: " + msg.err.Error()
			m.clampSelections()
			return m, nil
		}
		if msg.status != "" {
			m.status = msg.status
		}
		if msg.focus.valid() {
			m.focusEntity(msg.focus)
		}
		m.clampSelections()
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "copied card"
		return m, nil

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	default:
		if m.mode == modeRenameColumn || m.mode == modeEditCard {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

// handleNormalModeKey handles board keys outside modal modes.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.syncGesture() {
		return m.handleDragKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.moveLeft):
		m.selectedColumn--
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		m.selectedColumn++
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.selectedCard--
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.selectedCard++
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.pickCard):
		card, ok := m.currentCard()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		m.startGesture(target{id: card.ID, kind: domain.KindTask}, gestureKeyboard)
		return m, nil
	case key.Matches(msg, m.keys.pickColumn):
		column, ok := m.currentColumn()
		if !ok {
			m.status = "no column selected"
			return m, nil
		}
		m.startGesture(target{id: column.ID, kind: domain.KindColumn}, gestureKeyboard)
		return m, nil
	case key.Matches(msg, m.keys.newColumn):
		return m, m.addColumnCmd()
	case key.Matches(msg, m.keys.newCard):
		column, ok := m.currentColumn()
		if !ok {
			m.status = "create a column first"
			return m, nil
		}
		return m, m.addCardCmd(column.ID)
	case key.Matches(msg, m.keys.renameColumn):
		column, ok := m.currentColumn()
		if !ok {
			m.status = "no column selected"
			return m, nil
		}
		return m, m.startEdit(modeRenameColumn, column.ID, "title: ", column.Title)
	case key.Matches(msg, m.keys.editCard):
		card, ok := m.currentCard()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		return m, m.startEdit(modeEditCard, card.ID, "content: ", card.Content)
	case key.Matches(msg, m.keys.deleteCard):
		card, ok := m.currentCard()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		return m, m.removeCardCmd(card.ID)
	case key.Matches(msg, m.keys.deleteColumn):
		column, ok := m.currentColumn()
		if !ok {
			m.status = "no column selected"
			return m, nil
		}
		return m, m.removeColumnCmd(column.ID)
	case key.Matches(msg, m.keys.cardInfo):
		card, ok := m.currentCard()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		m.mode = modeCardInfo
		m.editingID = card.ID
		m.status = "card info"
		return m, nil
	case key.Matches(msg, m.keys.activityLog):
		m.mode = modeActivityLog
		m.status = "activity log"
		return m, nil
	case key.Matches(msg, m.keys.yankCard):
		card, ok := m.currentCard()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		return m, m.copyCmd(card.Content)
	}
	return m, nil
}

// handleDragKey handles keys while a gesture is active.
func (m Model) handleDragKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.release):
		m.endGesture(target{})
		return m, nil
	case key.Matches(msg, m.keys.quit):
		m.endGesture(target{})
		return m, tea.Quit
	}
	if m.gesture != gestureKeyboard {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.drop):
		m.endGesture(m.hover)
	case key.Matches(msg, m.keys.moveLeft):
		m.keyboardOver(-1, 0)
	case key.Matches(msg, m.keys.moveRight):
		m.keyboardOver(1, 0)
	case key.Matches(msg, m.keys.moveUp):
		m.keyboardOver(0, -1)
	case key.Matches(msg, m.keys.moveDown):
		m.keyboardOver(0, 1)
	}
	return m, nil
}

// handleInputModeKey handles keys for modal modes.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeCardInfo, modeActivityLog:
		switch {
		case msg.String() == "esc", msg.String() == "enter",
			key.Matches(msg, m.keys.quit),
			key.Matches(msg, m.keys.cardInfo),
			key.Matches(msg, m.keys.activityLog):
			m.mode = modeNone
			m.editingID = ""
			m.status = "ready"
		case m.mode == modeCardInfo && key.Matches(msg, m.keys.yankCard):
			if card, ok := m.svc.Snapshot().Card(m.editingID); ok {
				return m, m.copyCmd(card.Content)
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.editingID = ""
		m.input.Blur()
		m.status = "cancelled"
		return m, nil
	case "enter":
		value := m.input.Value()
		id := m.editingID
		mode := m.mode
		m.mode = modeNone
		m.editingID = ""
		m.input.Blur()
		if mode == modeRenameColumn {
			return m, m.renameColumnCmd(id, value)
		}
		return m, m.editCardCmd(id, value)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleMouseClick records a press that may turn into a drag.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if msg.Button != tea.MouseLeft || m.mode != modeNone || m.help.ShowAll {
		return m, nil
	}
	if m.syncGesture() {
		return m, nil
	}
	h, ok := m.hitTest(msg.X, msg.Y)
	if !ok {
		m.press = nil
		return m, nil
	}
	m.selectedColumn = h.column
	if h.card >= 0 {
		m.selectedCard = h.card
	}
	m.clampSelections()

	if !h.header && h.target.kind != domain.KindTask {
		m.press = nil
		return m, nil
	}
	m.press = &pointerPress{x: msg.X, y: msg.Y, source: h.target}
	if m.activationDistance == 0 {
		m.press = nil
		m.startGesture(h.target, gestureMouse)
	}
	return m, nil
}

// handleMouseMotion activates a pending press and emits Over events on target changes.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if m.gesture != gestureMouse || !m.syncGesture() {
		if m.press == nil {
			return m, nil
		}
		if distance(m.press.x, m.press.y, msg.X, msg.Y) < m.activationDistance {
			return m, nil
		}
		source := m.press.source
		m.press = nil
		if !m.startGesture(source, gestureMouse) {
			return m, nil
		}
	}
	h, ok := m.hitTest(msg.X, msg.Y)
	if !ok || h.target == m.hover {
		return m, nil
	}
	m.overTarget(h.target)
	return m, nil
}

// handleMouseRelease ends a mouse gesture on whatever is under the pointer.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	m.press = nil
	if m.gesture != gestureMouse || !m.syncGesture() {
		return m, nil
	}
	h, ok := m.hitTest(msg.X, msg.Y)
	if !ok {
		m.endGesture(target{})
		return m, nil
	}
	m.endGesture(h.target)
	return m, nil
}

// syncGesture reports whether a gesture is active, dropping local gesture state
// when the session no longer has one.
func (m *Model) syncGesture() bool {
	if m.svc.Snapshot().Dragging() {
		return true
	}
	if m.gesture != gestureNone {
		m.gesture = gestureNone
		m.hover = target{}
	}
	return false
}

// startGesture dispatches a Start event.
func (m *Model) startGesture(src target, source gestureSource) bool {
	if _, err := m.svc.Dispatch(reorder.Start(src.id, src.kind)); err != nil {
		m.status = "drag: " + err.Error()
		return false
	}
	m.gesture = source
	m.hover = target{}
	m.status = "dragging " + m.describe(src)
	return true
}

// overTarget dispatches an Over event for the active gesture.
func (m *Model) overTarget(t target) {
	sel, ok := m.svc.Snapshot().Active()
	if !ok {
		m.gesture = gestureNone
		return
	}
	if _, err := m.svc.Dispatch(reorder.Over(sel.ID(), sel.Kind, t.id, t.kind)); err != nil {
		m.status = "drag: " + err.Error()
		return
	}
	m.hover = t
	m.focusEntity(target{id: sel.ID(), kind: sel.Kind})
	m.status = fmt.Sprintf("dragging %s over %s", m.describe(target{id: sel.ID(), kind: sel.Kind}), m.describe(t))
}

// endGesture dispatches End; an invalid target means released outside the board.
func (m *Model) endGesture(t target) {
	sel, ok := m.svc.Snapshot().Active()
	m.gesture = gestureNone
	m.hover = target{}
	m.press = nil
	if !ok {
		return
	}
	active := target{id: sel.ID(), kind: sel.Kind}
	if _, err := m.svc.Dispatch(reorder.End(sel.ID(), t.id)); err != nil {
		m.status = "drag: " + err.Error()
		return
	}
	m.focusEntity(active)
	if t.valid() {
		m.status = "dropped " + m.describe(active)
		return
	}
	m.status = "released " + m.describe(active)
}

// keyboardOver picks the neighbouring target in direction (dx, dy) and hovers it.
func (m *Model) keyboardOver(dx, dy int) {
	snap := m.svc.Snapshot()
	sel, ok := snap.Active()
	if !ok {
		return
	}
	columns := snap.Columns()
	switch sel.Kind {
	case domain.KindTask:
		card, ok := snap.Card(sel.ID())
		if !ok {
			return
		}
		if dy != 0 {
			cards := cardsIn(snap, card.ColumnID)
			pos := indexOfCard(cards, card.ID)
			next := pos + dy
			if pos < 0 || next < 0 || next >= len(cards) {
				return
			}
			m.overTarget(target{id: cards[next].ID, kind: domain.KindTask})
			return
		}
		next := snap.ColumnIndex(card.ColumnID) + dx
		if next < 0 || next >= len(columns) {
			return
		}
		m.overTarget(target{id: columns[next].ID, kind: domain.KindColumn})
	case domain.KindColumn:
		if dx == 0 {
			return
		}
		next := snap.ColumnIndex(sel.ID()) + dx
		if next < 0 || next >= len(columns) {
			return
		}
		m.overTarget(target{id: columns[next].ID, kind: domain.KindColumn})
	}
}

// focusEntity moves the cursor onto a column or card.
func (m *Model) focusEntity(t target) {
	snap := m.svc.Snapshot()
	switch t.kind {
	case domain.KindColumn:
		if idx := snap.ColumnIndex(t.id); idx >= 0 {
			m.selectedColumn = idx
			m.selectedCard = 0
		}
	case domain.KindTask:
		card, ok := snap.Card(t.id)
		if !ok {
			return
		}
		m.selectedColumn = snap.ColumnIndex(card.ColumnID)
		m.selectedCard = indexOfCard(cardsIn(snap, card.ColumnID), card.ID)
	}
	m.clampSelections()
}

// clampSelections clamps selections.
func (m *Model) clampSelections() {
	snap := m.svc.Snapshot()
	m.selectedColumn = clamp(m.selectedColumn, 0, snap.ColumnCount()-1)
	column, ok := m.currentColumn()
	if !ok {
		m.selectedCard = 0
		return
	}
	m.selectedCard = clamp(m.selectedCard, 0, snap.CountForColumn(column.ID)-1)
}

// currentColumn returns the column under the cursor.
func (m Model) currentColumn() (domain.Column, bool) {
	columns := m.svc.Snapshot().Columns()
	if m.selectedColumn < 0 || m.selectedColumn >= len(columns) {
		return domain.Column{}, false
	}
	return columns[m.selectedColumn], true
}

// currentCard returns the card under the cursor.
func (m Model) currentCard() (domain.Card, bool) {
	column, ok := m.currentColumn()
	if !ok {
		return domain.Card{}, false
	}
	cards := cardsIn(m.svc.Snapshot(), column.ID)
	if m.selectedCard < 0 || m.selectedCard >= len(cards) {
		return domain.Card{}, false
	}
	return cards[m.selectedCard], true
}

// describe names a target for status text.
func (m Model) describe(t target) string {
	snap := m.svc.Snapshot()
	switch t.kind {
	case domain.KindColumn:
		if column, ok := snap.Column(t.id); ok {
			return fmt.Sprintf("column %q", column.Title)
		}
	case domain.KindTask:
		if card, ok := snap.Card(t.id); ok {
			return fmt.Sprintf("card %q", truncate(firstLine(card.Content), 32))
		}
	}
	return t.id
}

// startEdit opens the modal text input.
func (m *Model) startEdit(mode inputMode, id, prompt, value string) tea.Cmd {
	m.mode = mode
	m.editingID = id
	m.input = newModalInput(prompt, "", value, 200)
	m.input.CursorEnd()
	m.status = "editing"
	return m.input.Focus()
}

// newModalInput constructs modal input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

func (m Model) addColumnCmd() tea.Cmd {
	return func() tea.Msg {
		column, err := m.svc.AddColumn()
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "added " + column.Title, focus: target{id: column.ID, kind: domain.KindColumn}}
	}
}

func (m Model) addCardCmd(columnID string) tea.Cmd {
	return func() tea.Msg {
		card, err := m.svc.AddCard(columnID)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "added " + card.Content, focus: target{id: card.ID, kind: domain.KindTask}}
	}
}

func (m Model) renameColumnCmd(id, title string) tea.Cmd {
	return func() tea.Msg {
		column, err := m.svc.RenameColumn(id, title)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "renamed to " + column.Title, focus: target{id: column.ID, kind: domain.KindColumn}}
	}
}

func (m Model) editCardCmd(id, content string) tea.Cmd {
	return func() tea.Msg {
		card, err := m.svc.EditCard(id, content)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "card updated", focus: target{id: card.ID, kind: domain.KindTask}}
	}
}

func (m Model) removeCardCmd(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.RemoveCard(id); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "card deleted"}
	}
}

func (m Model) removeColumnCmd(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.RemoveColumn(id); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "column deleted"}
	}
}

func (m Model) copyCmd(text string) tea.Cmd {
	write := m.copyText
	return func() tea.Msg {
		return copiedMsg{err: write(text)}
	}
}

// View handles view.
func (m Model) View() tea.View {
	if !m.ready {
		v := tea.NewView("loading...")
		v.MouseMode = tea.MouseModeCellMotion
		v.AltScreen = true
		return v
	}

	snap := m.svc.Snapshot()
	accent := lipgloss.Color("62")
	dragAccent := lipgloss.Color("212")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render(m.title)
	header += statusStyle.Render(fmt.Sprintf("  %d columns • %d cards", snap.ColumnCount(), snap.CardCount()))
	if sel, ok := snap.Active(); ok {
		header += lipgloss.NewStyle().Foreground(dragAccent).Render("  [dragging " + string(sel.Kind) + "]")
	}

	body := m.renderBoard(snap, accent, dragAccent, muted, dim)

	sections := []string{header, "", body}
	if line := m.renderDragLine(snap, dragAccent); line != "" {
		sections = append(sections, line)
	}
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpText := helpBubble.View(m.keys)
	if snap.Dragging() {
		helpText = helpBubble.ShortHelpView(m.keys.dragHelp())
	}
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Render(helpText)

	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	fullContent := content + "\n" + helpLine
	if overlay := m.renderModeOverlay(snap, accent, muted); overlay != "" {
		overlayHeight := lipgloss.Height(fullContent)
		if m.height > 0 {
			overlayHeight = m.height
		}
		fullContent = overlayOnContent(fullContent, overlay, max(1, m.width), max(1, overlayHeight))
	}

	view := tea.NewView(fullContent)
	view.MouseMode = tea.MouseModeCellMotion
	view.AltScreen = true
	return view
}

// renderBoard renders the columns side by side.
func (m Model) renderBoard(snap board.State, accent, dragAccent, muted, dim color.Color) string {
	columns := snap.Columns()
	if len(columns) == 0 {
		return lipgloss.NewStyle().Foreground(muted).Render(fmt.Sprintf("no columns • %s to add one", m.keys.newColumn.Help().Key))
	}
	sel, dragging := snap.Active()
	colWidth := m.columnWidth(len(columns))
	rows := m.cardRows(snap)

	colTitle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	emptyStyle := lipgloss.NewStyle().Foreground(muted)
	cursorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	draggedStyle := lipgloss.NewStyle().Foreground(dragAccent).Bold(true)
	hoverStyle := lipgloss.NewStyle().Underline(true)

	views := make([]string, 0, len(columns))
	for colIdx, column := range columns {
		cards := cardsIn(snap, column.ID)
		lines := make([]string, 0, rows+1)
		headerText := fit(fmt.Sprintf("%s (%d)", column.Title, len(cards)), colWidth)
		lines = append(lines, colTitle.Render(headerText))
		if len(cards) == 0 {
			lines = append(lines, emptyStyle.Render(fit("(empty)", colWidth)))
		}
		for cardIdx, card := range cards {
			prefix := "  "
			cursor := colIdx == m.selectedColumn && cardIdx == m.selectedCard
			isDragged := dragging && sel.Kind == domain.KindTask && sel.ID() == card.ID
			switch {
			case isDragged:
				prefix = "≡ "
			case cursor:
				prefix = "› "
			}
			line := fit(prefix+firstLine(card.Content), colWidth)
			switch {
			case isDragged:
				line = draggedStyle.Render(line)
			case cursor:
				line = cursorStyle.Render(line)
			case m.hover.kind == domain.KindTask && m.hover.id == card.ID:
				line = hoverStyle.Render(line)
			}
			lines = append(lines, line)
		}
		for len(lines) < rows+1 {
			lines = append(lines, strings.Repeat(" ", colWidth))
		}

		border := dim
		switch {
		case dragging && sel.Kind == domain.KindColumn && sel.ID() == column.ID:
			border = dragAccent
		case dragging && m.hover.kind == domain.KindColumn && m.hover.id == column.ID:
			border = dragAccent
		case colIdx == m.selectedColumn:
			border = accent
		}
		style := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1).
			MarginRight(1)
		views = append(views, style.Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// renderDragLine shows the dragged entity as it was when the gesture started.
func (m Model) renderDragLine(snap board.State, dragAccent color.Color) string {
	sel, ok := snap.Active()
	if !ok {
		return ""
	}
	style := lipgloss.NewStyle().Foreground(dragAccent)
	switch {
	case sel.Card != nil:
		return style.Render(fmt.Sprintf("≡ %s", truncate(firstLine(sel.Card.Content), max(8, m.width-4))))
	case sel.Column != nil:
		return style.Render(fmt.Sprintf("≡ column %s", sel.Column.Title))
	}
	return ""
}

// renderModeOverlay renders the modal box for the current mode.
func (m Model) renderModeOverlay(snap board.State, accent, muted color.Color) string {
	maxWidth := m.width - 8
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle := lipgloss.NewStyle().Foreground(muted)

	switch {
	case m.help.ShowAll:
		helpBubble := m.help
		helpBubble.SetWidth(max(0, maxWidth-4))
		return boxStyle.Render(titleStyle.Render("Keys") + "\n" + helpBubble.FullHelpView(m.keys.FullHelp()))

	case m.mode == modeRenameColumn || m.mode == modeEditCard:
		title := "Rename column"
		if m.mode == modeEditCard {
			title = "Edit card"
		}
		return boxStyle.Render(strings.Join([]string{
			titleStyle.Render(title),
			m.input.View(),
			hintStyle.Render("enter save • esc cancel"),
		}, "\n"))

	case m.mode == modeCardInfo:
		card, ok := snap.Card(m.editingID)
		if !ok {
			return ""
		}
		column, _ := snap.Column(card.ColumnID)
		cards := cardsIn(snap, card.ColumnID)
		width := clamp(maxWidth, 24, 76)
		rendered := m.md.render(cardMarkdown(card, column, indexOfCard(cards, card.ID), len(cards)), width-4)
		return boxStyle.Render(rendered + "\n" + hintStyle.Render("esc close • y copy"))

	case m.mode == modeActivityLog:
		lines := []string{titleStyle.Render("Activity Log")}
		events := m.svc.Activity()
		if len(events) == 0 {
			lines = append(lines, hintStyle.Render("(no activity yet)"))
		}
		rendered := 0
		for idx := len(events) - 1; idx >= 0 && rendered < activityLogViewWindow; idx-- {
			lines = append(lines, activityLine(events[idx], snap))
			rendered++
		}
		lines = append(lines, hintStyle.Render("esc close"))
		return boxStyle.Render(strings.Join(lines, "\n"))
	}
	return ""
}

// activityLine derives a compact activity row from one change event.
func activityLine(event domain.ChangeEvent, snap board.State) string {
	summary := fmt.Sprintf("%s %s", event.Operation, event.Kind)
	label := event.EntityID
	switch event.Kind {
	case domain.KindColumn:
		if column, ok := snap.Column(event.EntityID); ok {
			label = column.Title
		}
	case domain.KindTask:
		if card, ok := snap.Card(event.EntityID); ok {
			label = firstLine(card.Content)
		}
	}
	detail := ""
	switch event.Operation {
	case domain.ChangeOperationMove:
		detail = fmt.Sprintf(" %s→%s", event.Metadata["from_index"], event.Metadata["to_index"])
		if to := event.Metadata["to_column"]; to != "" && to != event.Metadata["from_column"] {
			if column, ok := snap.Column(to); ok {
				to = column.Title
			}
			detail += " into " + to
		}
	case domain.ChangeOperationCancel:
		detail = " (" + event.Metadata["reason"] + ")"
	}
	return fmt.Sprintf("%s  %s • %s%s", formatActivityTimestamp(event.OccurredAt), summary, truncate(label, 32), detail)
}

// hitTest maps a terminal cell to a board target.
func (m Model) hitTest(x, y int) (hit, bool) {
	snap := m.svc.Snapshot()
	columns := snap.Columns()
	if len(columns) == 0 || x < 0 {
		return hit{}, false
	}
	span := m.columnWidth(len(columns)) + columnChrome
	colIdx := x / span
	if colIdx >= len(columns) || x%span >= span-1 {
		return hit{}, false
	}
	rel := y - boardTop
	rows := m.cardRows(snap)
	if rel < 0 || rel > rows+2 {
		return hit{}, false
	}
	column := columns[colIdx]
	h := hit{target: target{id: column.ID, kind: domain.KindColumn}, column: colIdx, card: -1}
	switch {
	case rel == 1:
		h.header = true
	case rel >= 2:
		cards := cardsIn(snap, column.ID)
		if idx := rel - 2; idx < len(cards) {
			h.card = idx
			h.target = target{id: cards[idx].ID, kind: domain.KindTask}
		}
	}
	return h, true
}

// cardRows is the number of card rows every column reserves.
func (m Model) cardRows(snap board.State) int {
	rows := 1
	for _, column := range snap.Columns() {
		rows = max(rows, snap.CountForColumn(column.ID))
	}
	return rows
}

// columnWidth returns the content width of one column.
func (m Model) columnWidth(count int) int {
	if count == 0 || m.width <= 0 {
		return 24
	}
	w := (m.width - count*columnChrome) / count
	return clamp(w, 16, 36)
}

// distance is the Chebyshev distance between two cells.
func distance(x1, y1, x2, y2 int) int {
	return max(abs(x2-x1), abs(y2-y1))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// cardsIn collects the ordered cards of one column.
func cardsIn(snap board.State, columnID string) []domain.Card {
	var out []domain.Card
	for card := range snap.CardsForColumn(columnID) {
		out = append(out, card)
	}
	return out
}

func indexOfCard(cards []domain.Card, id string) int {
	for idx, card := range cards {
		if card.ID == id {
			return idx
		}
	}
	return -1
}

// formatActivityTimestamp formats activity timestamps for the log overlay.
func formatActivityTimestamp(at time.Time) string {
	if at.IsZero() {
		return "--:--:--"
	}
	local := at.Local()
	now := time.Now().In(local.Location())
	if local.Year() != now.Year() || local.YearDay() != now.YearDay() {
		return local.Format("01-02 15:04")
	}
	return local.Format("15:04:05")
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate truncates the requested operation.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}

// fit truncates or pads s to exactly width cells.
func fit(s string, width int) string {
	s = truncate(s, width)
	if pad := width - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// firstLine returns the first non-empty line of s.
func firstLine(s string) string {
	for line := range strings.Lines(s) {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
