package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit        key.Binding
	reload      key.Binding
	toggleHelp  key.Binding
	moveLeft    key.Binding
	moveRight   key.Binding
	moveUp      key.Binding
	moveDown    key.Binding
	grabCard    key.Binding
	grabColumn  key.Binding
	drop        key.Binding
	cancel      key.Binding
	cardInfo    key.Binding
	copyPath    key.Binding
	hideColumn  key.Binding
	showColumns key.Binding
	grouping    key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		toggleHelp:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:    key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:   key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "card up")),
		moveDown:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "card down")),
		grabCard:    key.NewBinding(key.WithKeys("space", " "), key.WithHelp("space", "grab card")),
		grabColumn:  key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "grab column")),
		drop:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop")),
		cancel:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		cardInfo:    key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "card info")),
		copyPath:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy path")),
		hideColumn:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "hide column")),
		showColumns: key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "show hidden")),
		grouping:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "group by")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.grabCard, k.grabColumn, k.cardInfo, k.grouping, k.hideColumn, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown},
		{k.grabCard, k.grabColumn, k.drop, k.cancel},
		{k.cardInfo, k.copyPath, k.hideColumn, k.showColumns, k.grouping},
		{k.reload, k.toggleHelp, k.quit},
	}
}

// dragKeyMap is the help surface shown while a drag is in flight.
type dragKeyMap struct {
	keys keyMap
}

// ShortHelp handles short help.
func (d dragKeyMap) ShortHelp() []key.Binding {
	left := d.keys.moveLeft
	left.SetHelp("h/←", "hover left")
	right := d.keys.moveRight
	right.SetHelp("l/→", "hover right")
	return []key.Binding{left, right, d.keys.drop, d.keys.cancel}
}

// FullHelp handles full help.
func (d dragKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{d.ShortHelp()}
}
