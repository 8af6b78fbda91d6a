package tui

import (
	"fmt"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"github.com/evanschultz/kanbases/internal/app"
	"github.com/evanschultz/kanbases/internal/domain"
)

// startCardDrag arms a record drag on the selected card and hovers its own column.
func (m *Model) startCardDrag() {
	record, column, ok := m.selectedRecord()
	if !ok {
		m.status = "no card selected"
		return
	}
	if err := m.drag.Start(domain.DragSession{Kind: domain.DragRecord, SourceID: record.ID(), SourceColumnKey: column.Key}); err != nil {
		m.status = describeError(err)
		return
	}
	m.drag.Hover(column.Key, domain.SideNone)
	m.status = fmt.Sprintf("moving %s • h/l choose column • enter drop • esc cancel", record.ID())
}

// startColumnDrag arms a column drag on the selected column.
func (m *Model) startColumnDrag() {
	column, ok := m.currentColumn()
	if !ok {
		return
	}
	if err := m.drag.Start(domain.DragSession{Kind: domain.DragColumn, SourceID: string(column.Key), SourceColumnKey: column.Key}); err != nil {
		m.status = describeError(err)
		return
	}
	m.drag.Hover(column.Key, domain.SideAfter)
	m.status = fmt.Sprintf("moving column %s • h/l choose slot • enter drop • esc cancel", column.Label)
}

// handleDragKey handles keys while a drag is in flight.
func (m Model) handleDragKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancel):
		m.drag.Cancel()
		m.press = nil
		m.status = "drag cancelled"
	case key.Matches(msg, m.keys.drop):
		return m.dropDrag()
	case key.Matches(msg, m.keys.moveLeft):
		m.hoverStep(-1)
	case key.Matches(msg, m.keys.moveRight):
		m.hoverStep(1)
	case key.Matches(msg, m.keys.quit):
		m.drag.Cancel()
		m.unsubscribe()
		return m, tea.Quit
	}
	return m, nil
}

// hoverStep moves the hover target one column; the side follows the direction of travel.
func (m *Model) hoverStep(delta int) {
	if len(m.state.Columns) == 0 {
		return
	}
	current := m.selectedColumn
	if target := m.drag.State().Target; target != "" {
		if idx := m.columnIndex(target); idx >= 0 {
			current = idx
		}
	}
	next := clamp(current+delta, 0, len(m.state.Columns)-1)
	side := domain.SideAfter
	if delta < 0 {
		side = domain.SideBefore
	}
	m.drag.Hover(m.state.Columns[next].Key, side)
	m.selectedColumn = next
	m.clampSelections()
}

// columnIndex returns the visible index of key, or -1.
func (m Model) columnIndex(key domain.GroupKey) int {
	for idx, column := range m.state.Columns {
		if column.Key == key {
			return idx
		}
	}
	return -1
}

// dropDrag commits the drag at its current hover target.
func (m Model) dropDrag() (tea.Model, tea.Cmd) {
	state := m.drag.State()
	outcome, err := m.drag.Drop(m.ctx, state.Target, state.Side)
	m.press = nil
	switch outcome {
	case app.OutcomeFailed:
		m.status = describeError(err)
		m.logger.Warn("drop failed", "source", state.Session.SourceID, "target", string(state.Target), "err", err)
		return m, nil
	case app.OutcomeNoop:
		m.status = "no change"
		return m, nil
	case app.OutcomeCancelled:
		m.status = "drag cancelled"
		return m, nil
	}
	if state.Session.Kind == domain.DragColumn {
		m.applyState(m.board.Snapshot())
		if idx := m.columnIndex(domain.GroupKey(state.Session.SourceID)); idx >= 0 {
			m.selectedColumn = idx
			m.clampSelections()
		}
		m.status = fmt.Sprintf("moved column %s %s %s", state.Session.SourceID, state.Side, state.Target)
		return m, nil
	}
	m.pendingFocus = state.Session.SourceID
	m.status = fmt.Sprintf("moved %s to %s", state.Session.SourceID, state.Target)
	return m, m.refreshCmd()
}

// handleMousePress arms a drag on the card or column header under the pointer.
func (m Model) handleMousePress(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if msg.Button != tea.MouseLeft || m.mode != modeNone || m.err != nil || m.state.Status != app.StatusReady {
		return m, nil
	}
	colIdx := m.columnAt(msg.X)
	if colIdx < 0 {
		return m, nil
	}
	column := m.state.Columns[colIdx]
	m.selectedColumn = colIdx
	m.clampSelections()
	press := &pressPoint{x: msg.X, y: msg.Y, column: colIdx}
	switch {
	case m.onColumnHeader(msg.Y):
		if err := m.drag.Start(domain.DragSession{Kind: domain.DragColumn, SourceID: string(column.Key), SourceColumnKey: column.Key}); err != nil {
			m.status = describeError(err)
			return m, nil
		}
	default:
		cardIdx := m.cardAt(column, msg.Y)
		if cardIdx < 0 {
			return m, nil
		}
		m.selectedCard = cardIdx
		press.recordID = column.Records[cardIdx].ID()
		if err := m.drag.Start(domain.DragSession{Kind: domain.DragRecord, SourceID: press.recordID, SourceColumnKey: column.Key}); err != nil {
			m.status = describeError(err)
			return m, nil
		}
	}
	m.press = press
	return m, nil
}

// handleMouseMotion hovers the column under the pointer; column drags take the side from the pointer's half.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if m.press == nil || !m.drag.Active() {
		return m, nil
	}
	if msg.X != m.press.x || msg.Y != m.press.y {
		m.press.moved = true
	}
	colIdx := m.columnAt(msg.X)
	if colIdx < 0 {
		m.drag.Leave()
		return m, nil
	}
	left, width := m.columnExtent(colIdx)
	m.drag.HoverAt(m.state.Columns[colIdx].Key, float64(msg.X), float64(left), float64(width))
	return m, nil
}

// handleMouseRelease drops a moved drag; a release without motion activates the card instead.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	press := m.press
	if press == nil || !m.drag.Active() {
		m.press = nil
		return m, nil
	}
	if !press.moved {
		m.drag.Cancel()
		m.press = nil
		if press.recordID == "" {
			return m, nil
		}
		return m, m.openRecordCmd(press.recordID)
	}
	colIdx := m.columnAt(msg.X)
	if colIdx < 0 {
		m.drag.Leave()
	} else {
		left, width := m.columnExtent(colIdx)
		m.drag.HoverAt(m.state.Columns[colIdx].Key, float64(msg.X), float64(left), float64(width))
	}
	return m.dropDrag()
}

// handleMouseWheel scrolls the column under the pointer and remembers the offset.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeNone || m.state.Status != app.StatusReady {
		return m, nil
	}
	colIdx := m.columnAt(msg.X)
	if colIdx < 0 {
		return m, nil
	}
	column := m.state.Columns[colIdx]
	policy := m.board.WindowPolicy()
	step := max(1, policy.ItemSize)
	scroll := m.scroll[column.Key]
	switch msg.Button {
	case tea.MouseWheelUp:
		scroll -= step
	case tea.MouseWheelDown:
		scroll += step
	default:
		return m, nil
	}
	m.scroll[column.Key] = policy.ClampScroll(len(column.Records), scroll, m.viewportSize())
	return m, nil
}
