package tui

import "charm.land/bubbles/v2/key"

// keyMap holds the board bindings.
type keyMap struct {
	quit         key.Binding
	toggleHelp   key.Binding
	moveLeft     key.Binding
	moveRight    key.Binding
	moveUp       key.Binding
	moveDown     key.Binding
	pickCard     key.Binding
	pickColumn   key.Binding
	drop         key.Binding
	release      key.Binding
	newColumn    key.Binding
	newCard      key.Binding
	renameColumn key.Binding
	editCard     key.Binding
	deleteCard   key.Binding
	deleteColumn key.Binding
	cardInfo     key.Binding
	activityLog  key.Binding
	yankCard     key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:     key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:    key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "card up")),
		moveDown:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "card down")),
		pickCard:     key.NewBinding(key.WithKeys("space", " "), key.WithHelp("space", "pick up card")),
		pickColumn:   key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "pick up column")),
		drop:         key.NewBinding(key.WithKeys("enter", "space", " "), key.WithHelp("space/enter", "drop")),
		release:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "release")),
		newColumn:    key.NewBinding(key.WithKeys("N", "shift+n"), key.WithHelp("N", "new column")),
		newCard:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new card")),
		renameColumn: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename column")),
		editCard:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit card")),
		deleteCard:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete card")),
		deleteColumn: key.NewBinding(key.WithKeys("D", "shift+d"), key.WithHelp("D", "delete column")),
		cardInfo:     key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "card info")),
		activityLog:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "activity log")),
		yankCard:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy card")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.pickCard, k.pickColumn, k.newCard, k.newColumn, k.cardInfo, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown},
		{k.pickCard, k.pickColumn, k.drop, k.release},
		{k.newCard, k.newColumn, k.renameColumn, k.editCard, k.deleteCard, k.deleteColumn},
		{k.cardInfo, k.activityLog, k.yankCard, k.toggleHelp, k.quit},
	}
}

// dragHelp lists the bindings that matter while a gesture is active.
func (k keyMap) dragHelp() []key.Binding {
	return []key.Binding{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.drop, k.release}
}
