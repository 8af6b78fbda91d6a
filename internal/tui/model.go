package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/evanschultz/kanbases/internal/app"
	"github.com/evanschultz/kanbases/internal/domain"
)

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeGrouping
	modeDetail
)

// recordDetail is the loaded card detail view.
type recordDetail struct {
	id     string
	column domain.GroupKey
	card   app.Card
	body   string
}

// pressPoint tracks a mouse press until release.
type pressPoint struct {
	x, y     int
	column   int
	recordID string
	moved    bool
}

type Model struct {
	board    *app.BoardView
	drag     *app.DragController
	ctx      context.Context
	logger   app.Logger
	opener   *Opener
	copyText func(string) error

	updates     chan app.BoardState
	unsubscribe func()

	ready  bool
	width  int
	height int
	err    error
	status string

	help help.Model
	keys keyMap

	state          app.BoardState
	selectedColumn int
	selectedCard   int
	scroll         map[domain.GroupKey]int
	pendingFocus   string

	mode          inputMode
	groupingInput textinput.Model
	detail        recordDetail
	markdown      *markdownRenderer
	press         *pressPoint
}

// boardStateMsg carries one published board snapshot.
type boardStateMsg struct {
	state app.BoardState
}

// actionMsg reports a finished board command.
type actionMsg struct {
	status  string
	err     error
	refresh bool
}

// recordOpenedMsg asks the model to show one record's detail.
type recordOpenedMsg struct {
	id string
}

// NewModel constructs a board model subscribed to board.
func NewModel(board *app.BoardView, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	groupingInput := textinput.New()
	groupingInput.Prompt = "group by: "
	groupingInput.Placeholder = "note.status or {{note.team|kebab-case}}"
	groupingInput.CharLimit = 240
	m := Model{
		board:    board,
		ctx:      context.Background(),
		logger:   nopLogger{},
		copyText: systemClipboard,
		status:   "loading...",
		help:     h,
		keys:     newKeyMap(),
		scroll:   map[domain.GroupKey]int{},

		groupingInput: groupingInput,
		markdown:      &markdownRenderer{},
		unsubscribe:   func() {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	if board == nil {
		m.err = errors.New("board view is required")
		return m
	}
	m.drag = board.NewDragController()
	m.updates = make(chan app.BoardState, 1)
	updates := m.updates
	m.unsubscribe = board.Subscribe(func(state app.BoardState) {
		publishLatest(updates, state)
	})
	m.applyState(board.Snapshot())
	return m
}

// publishLatest replaces any unread snapshot in ch with state.
func publishLatest(ch chan app.BoardState, state app.BoardState) {
	for {
		select {
		case ch <- state:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	if m.board == nil {
		return nil
	}
	return tea.Batch(m.waitForState(), m.waitForOpened(), m.refreshCmd())
}

// waitForState blocks until the board publishes a new snapshot.
func (m Model) waitForState() tea.Cmd {
	updates, ctx := m.updates, m.ctx
	return func() tea.Msg {
		select {
		case state := <-updates:
			return boardStateMsg{state: state}
		case <-ctx.Done():
			return nil
		}
	}
}

// waitForOpened blocks until the opener receives a record.
func (m Model) waitForOpened() tea.Cmd {
	if m.opener == nil {
		return nil
	}
	opened, ctx := m.opener.opened, m.ctx
	return func() tea.Msg {
		select {
		case id := <-opened:
			return recordOpenedMsg{id: id}
		case <-ctx.Done():
			return nil
		}
	}
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.groupingInput.SetWidth(max(20, min(72, m.width-20)))
		return m, nil

	case boardStateMsg:
		m.applyState(msg.state)
		return m, m.waitForState()

	case actionMsg:
		if msg.err != nil {
			m.status = describeError(msg.err)
			m.logger.Warn("board command failed", "err", msg.err)
			if m.state.Revision == 0 {
				m.err = msg.err
			}
		} else if msg.status != "" {
			m.status = msg.status
		}
		if m.board != nil {
			m.applyState(m.board.Snapshot())
		}
		if msg.refresh {
			return m, m.refreshCmd()
		}
		return m, nil

	case recordOpenedMsg:
		m.showDetail(msg.id)
		return m, m.waitForOpened()

	case tea.KeyPressMsg:
		if m.err != nil {
			return m.handleErrorKey(msg)
		}
		switch m.mode {
		case modeGrouping:
			return m.handleGroupingKey(msg)
		case modeDetail:
			return m.handleDetailKey(msg)
		}
		if m.drag.Active() {
			return m.handleDragKey(msg)
		}
		return m.handleNormalModeKey(msg)

	case tea.MouseClickMsg:
		return m.handleMousePress(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	default:
		return m, nil
	}
}

// applyState installs state, keeping the selected column and any pending focus.
func (m *Model) applyState(state app.BoardState) {
	if state.Revision < m.state.Revision {
		return
	}
	previous, hadSelection := m.selectedColumnKey()
	m.state = state
	if hadSelection {
		for idx, column := range state.Columns {
			if column.Key == previous {
				m.selectedColumn = idx
				break
			}
		}
	}
	if m.pendingFocus != "" {
		if m.focusRecord(m.pendingFocus) {
			m.pendingFocus = ""
		}
	}
	m.clampSelections()
	if m.status == "" || m.status == "loading..." {
		m.status = "ready"
	}
}

// focusRecord selects recordID when it is on the board.
func (m *Model) focusRecord(recordID string) bool {
	for colIdx, column := range m.state.Columns {
		for cardIdx, record := range column.Records {
			if record.ID() == recordID {
				m.selectedColumn = colIdx
				m.selectedCard = cardIdx
				m.revealSelection()
				return true
			}
		}
	}
	return false
}

// clampSelections clamps selections.
func (m *Model) clampSelections() {
	m.selectedColumn = clamp(m.selectedColumn, 0, len(m.state.Columns)-1)
	cards := 0
	if column, ok := m.currentColumn(); ok {
		cards = len(column.Records)
	}
	m.selectedCard = clamp(m.selectedCard, 0, cards-1)
}

// currentColumn returns the selected visible column.
func (m Model) currentColumn() (app.Column, bool) {
	if m.selectedColumn < 0 || m.selectedColumn >= len(m.state.Columns) {
		return app.Column{}, false
	}
	return m.state.Columns[m.selectedColumn], true
}

// selectedColumnKey returns the selected column key.
func (m Model) selectedColumnKey() (domain.GroupKey, bool) {
	column, ok := m.currentColumn()
	return column.Key, ok
}

// selectedRecord returns the selected card's record.
func (m Model) selectedRecord() (domain.Record, app.Column, bool) {
	column, ok := m.currentColumn()
	if !ok || m.selectedCard < 0 || m.selectedCard >= len(column.Records) {
		return nil, column, false
	}
	return column.Records[m.selectedCard], column, true
}

// handleErrorKey handles keys on the error screen.
func (m Model) handleErrorKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.unsubscribe()
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload) && m.board != nil:
		m.err = nil
		m.status = "refreshing..."
		return m, m.refreshCmd()
	}
	return m, nil
}

// handleNormalModeKey handles board navigation and commands.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.unsubscribe()
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "refreshing..."
		return m, m.refreshCmd()
	case key.Matches(msg, m.keys.grouping):
		return m, m.startGroupingMode()
	}

	if m.state.Status != app.StatusReady {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.moveLeft):
		m.selectColumn(m.selectedColumn - 1)
	case key.Matches(msg, m.keys.moveRight):
		m.selectColumn(m.selectedColumn + 1)
	case key.Matches(msg, m.keys.moveUp):
		m.selectCard(m.selectedCard - 1)
	case key.Matches(msg, m.keys.moveDown):
		m.selectCard(m.selectedCard + 1)
	case key.Matches(msg, m.keys.grabCard):
		m.startCardDrag()
	case key.Matches(msg, m.keys.grabColumn):
		m.startColumnDrag()
	case key.Matches(msg, m.keys.cardInfo):
		return m, m.openSelectedCmd()
	case key.Matches(msg, m.keys.copyPath):
		m.copySelectedPath()
	case key.Matches(msg, m.keys.hideColumn):
		return m, m.hideColumnCmd()
	case key.Matches(msg, m.keys.showColumns):
		return m, m.showHiddenCmd()
	}
	return m, nil
}

// selectColumn moves the column cursor to idx, landing on the first card its remembered scroll shows.
func (m *Model) selectColumn(idx int) {
	m.selectedColumn = clamp(idx, 0, len(m.state.Columns)-1)
	if column, ok := m.currentColumn(); ok {
		m.selectedCard = m.scroll[column.Key] / max(1, m.board.WindowPolicy().ItemSize)
	}
	m.clampSelections()
	m.revealSelection()
}

// selectCard moves the card cursor to idx within the current column.
func (m *Model) selectCard(idx int) {
	m.selectedCard = idx
	m.clampSelections()
	m.revealSelection()
}

// revealSelection scrolls the selected column so its selected card is visible.
func (m *Model) revealSelection() {
	column, ok := m.currentColumn()
	if !ok || len(column.Records) == 0 {
		return
	}
	policy := m.board.WindowPolicy()
	viewport := m.viewportSize()
	scroll := policy.Reveal(m.selectedCard, m.scroll[column.Key], viewport)
	m.scroll[column.Key] = policy.ClampScroll(len(column.Records), scroll, viewport)
}

// startGroupingMode opens the grouping editor.
func (m *Model) startGroupingMode() tea.Cmd {
	grouping := m.state.Grouping
	value := string(grouping.Field)
	if grouping.Mode == domain.GroupingTemplate {
		value = grouping.Template
	}
	m.mode = modeGrouping
	m.groupingInput.SetValue(value)
	m.groupingInput.CursorEnd()
	m.status = "enter a field id or template"
	return m.groupingInput.Focus()
}

// handleGroupingKey handles keys while editing the grouping.
func (m Model) handleGroupingKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.groupingInput.Blur()
		m.status = "grouping unchanged"
		return m, nil
	case "enter":
		m.mode = modeNone
		m.groupingInput.Blur()
		grouping, ok := parseGroupingInput(m.groupingInput.Value(), m.state.Grouping.Normalize)
		if !ok {
			m.status = "grouping unchanged"
			return m, nil
		}
		return m, m.setGroupingCmd(grouping)
	}
	var cmd tea.Cmd
	m.groupingInput, cmd = m.groupingInput.Update(msg)
	return m, cmd
}

// parseGroupingInput reads a field id, or a template when the input holds a placeholder.
func parseGroupingInput(raw string, normalize bool) (domain.GroupingConfig, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.GroupingConfig{}, false
	}
	if strings.Contains(raw, "{{") {
		return domain.GroupingConfig{Mode: domain.GroupingTemplate, Template: raw, Normalize: normalize}, true
	}
	return domain.GroupingConfig{Mode: domain.GroupingProperty, Field: domain.FieldID(raw), Normalize: normalize}, true
}

// handleDetailKey handles keys in the card detail view.
func (m Model) handleDetailKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.copyPath):
		m.copyPath(m.detail.id)
	case key.Matches(msg, m.keys.cancel), key.Matches(msg, m.keys.cardInfo), key.Matches(msg, m.keys.quit):
		m.mode = modeNone
		m.detail = recordDetail{}
		m.status = "ready"
	}
	return m, nil
}

// showDetail loads recordID into the detail view.
func (m *Model) showDetail(recordID string) {
	if m.board == nil {
		return
	}
	record, err := m.board.Record(m.ctx, recordID)
	if err != nil {
		m.status = describeError(err)
		return
	}
	column, _ := m.state.ColumnOf(recordID)
	detail := recordDetail{
		id:     record.ID(),
		column: column,
		card:   app.BuildCard(record, m.state.Cards, m.state.Fields, groupingSkip(m.state.Grouping)...),
	}
	if note, ok := record.(domain.Note); ok {
		detail.body = note.Body
	}
	m.detail = detail
	m.mode = modeDetail
	m.status = "viewing " + detail.id
}

// groupingSkip returns the field a card omits because its column already shows it.
func groupingSkip(grouping domain.GroupingConfig) []domain.FieldID {
	if grouping.Mode != domain.GroupingProperty || grouping.Field == "" {
		return nil
	}
	return []domain.FieldID{grouping.Field}
}

// copySelectedPath copies the selected card's record path.
func (m *Model) copySelectedPath() {
	record, _, ok := m.selectedRecord()
	if !ok {
		m.status = "no card selected"
		return
	}
	m.copyPath(record.ID())
}

// copyPath writes recordID to the clipboard.
func (m *Model) copyPath(recordID string) {
	if recordID == "" {
		return
	}
	if err := m.copyText(recordID); err != nil {
		m.status = "copy failed: " + err.Error()
		m.logger.Warn("clipboard write failed", "record", recordID, "err", err)
		return
	}
	m.status = "copied " + recordID
}

// refreshCmd pulls a fresh batch from the host.
func (m Model) refreshCmd() tea.Cmd {
	board, ctx := m.board, m.ctx
	return func() tea.Msg {
		if err := board.Refresh(ctx); err != nil {
			return actionMsg{err: fmt.Errorf("refresh: %w", err)}
		}
		return actionMsg{status: "ready"}
	}
}

// setGroupingCmd switches the board grouping.
func (m Model) setGroupingCmd(grouping domain.GroupingConfig) tea.Cmd {
	board, ctx := m.board, m.ctx
	return func() tea.Msg {
		if err := board.SetGrouping(ctx, grouping); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "grouped by " + grouping.Identity()}
	}
}

// hideColumnCmd hides the selected column.
func (m Model) hideColumnCmd() tea.Cmd {
	key, ok := m.selectedColumnKey()
	if !ok {
		return nil
	}
	board, ctx := m.board, m.ctx
	return func() tea.Msg {
		if err := board.HideColumn(ctx, key); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: fmt.Sprintf("hid %s • u to show", key)}
	}
}

// showHiddenCmd un-hides every hidden column.
func (m Model) showHiddenCmd() tea.Cmd {
	hidden := make([]domain.GroupKey, 0, len(m.state.Hidden))
	for _, column := range m.state.Hidden {
		hidden = append(hidden, column.Key)
	}
	if len(hidden) == 0 {
		return func() tea.Msg { return actionMsg{status: "no hidden columns"} }
	}
	board, ctx := m.board, m.ctx
	return func() tea.Msg {
		for _, key := range hidden {
			if err := board.ShowColumn(ctx, key); err != nil {
				return actionMsg{err: err}
			}
		}
		return actionMsg{status: fmt.Sprintf("showing %d hidden columns", len(hidden))}
	}
}

// openSelectedCmd activates the selected card.
func (m Model) openSelectedCmd() tea.Cmd {
	record, _, ok := m.selectedRecord()
	if !ok {
		return nil
	}
	return m.openRecordCmd(record.ID())
}

// openRecordCmd forwards an activation to the host. Without an opener the detail view opens directly.
func (m Model) openRecordCmd(recordID string) tea.Cmd {
	board, ctx, direct := m.board, m.ctx, m.opener == nil
	return func() tea.Msg {
		if err := board.OpenRecord(ctx, recordID); err != nil {
			return actionMsg{err: err}
		}
		if direct {
			return recordOpenedMsg{id: recordID}
		}
		return nil
	}
}

// describeError renders err as a status line.
func describeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrGroupingNotWritable):
		return "this grouping cannot be written to: " + err.Error()
	case app.IsNotReady(err):
		return "board not ready: " + err.Error()
	case errors.Is(err, domain.ErrHostWriteFailed):
		return "write failed: " + err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return "not found: " + err.Error()
	default:
		return "error: " + err.Error()
	}
}

// nopLogger discards UI-side log events.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

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
