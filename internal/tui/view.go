package tui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/kanbases/internal/app"
	"github.com/evanschultz/kanbases/internal/domain"
)

// Board layout in terminal cells.
const (
	boardTop          = 2
	chromeLines       = 5
	columnHeaderLines = 2
	cardLines         = 3
	minColumnHeight   = 9
	minColumnWidth    = 20
	maxColumnWidth    = 44
	columnFrame       = 4
)

var (
	accentColor = lipgloss.Color("62")
	dropColor   = lipgloss.Color("212")
	mutedColor  = lipgloss.Color("241")
	dimColor    = lipgloss.Color("239")
)

// View handles view.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// render renders the current screen.
func (m Model) render() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\npress r to retry • q quit\n"
	}
	if !m.ready {
		return "loading..."
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dimColor)

	header := titleStyle.Render("kanbases")
	if identity := m.state.Identity; identity != "" {
		header += statusStyle.Render("  group: " + identity)
	}
	header += statusStyle.Render("  [" + m.modeLabel() + "]")
	if hidden := len(m.state.Hidden); hidden > 0 {
		header += statusStyle.Render(fmt.Sprintf("  hidden: %d", hidden))
	}

	var body string
	switch {
	case m.mode == modeDetail:
		body = m.renderDetail()
	case m.state.Status != app.StatusReady:
		body = m.renderEmptyState()
	default:
		body = m.renderBoard()
	}

	sections := []string{header, "", body}
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")
	helpLine := m.renderHelpLine()
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	fullContent := content + "\n" + helpLine
	if m.mode == modeGrouping {
		fullContent = overlayOnContent(fullContent, m.renderGroupingOverlay(), max(1, m.width), max(1, lipgloss.Height(fullContent)))
	}
	return fullContent
}

// modeLabel names the current interaction mode.
func (m Model) modeLabel() string {
	switch {
	case m.mode == modeGrouping:
		return "grouping"
	case m.mode == modeDetail:
		return "detail"
	case m.drag != nil && m.drag.Active():
		if m.drag.State().Session.Kind == domain.DragColumn {
			return "moving column"
		}
		return "moving card"
	default:
		return "board"
	}
}

// renderHelpLine renders the key help footer.
func (m Model) renderHelpLine() string {
	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	var text string
	switch {
	case m.drag != nil && m.drag.Active():
		text = helpBubble.View(dragKeyMap{keys: m.keys})
	default:
		text = helpBubble.View(m.keys)
	}
	return lipgloss.NewStyle().
		Foreground(mutedColor).
		BorderTop(true).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(text)
}

// renderEmptyState renders the board message in place of columns.
func (m Model) renderEmptyState() string {
	message := m.state.Message
	if message == "" {
		message = app.MessageNoEntries
	}
	lines := []string{message}
	if m.state.Status == app.StatusConfigurationMissing {
		lines = append(lines, "", "Press "+m.keys.grouping.Help().Key+" to choose a grouping property.")
	}
	return lipgloss.NewStyle().Foreground(mutedColor).Padding(1, 2).Render(strings.Join(lines, "\n"))
}

// renderBoard renders the visible columns side by side.
func (m Model) renderBoard() string {
	start, end := m.visibleColumnRange()
	views := make([]string, 0, end-start)
	for idx := start; idx < end; idx++ {
		views = append(views, m.renderColumn(idx))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// renderColumn renders one column with its windowed cards.
func (m Model) renderColumn(colIdx int) string {
	column := m.state.Columns[colIdx]
	dragState := m.drag.State()
	isTarget := m.drag.Active() && dragState.Target == column.Key
	isSource := m.drag.Active() && dragState.Session.Kind == domain.DragColumn && dragState.Session.SourceColumnKey == column.Key

	border := dimColor
	switch {
	case isTarget:
		border = dropColor
	case colIdx == m.selectedColumn:
		border = accentColor
	}
	width := m.columnWidth()
	inner := max(1, width-columnFrame)

	title := fmt.Sprintf("%s (%d)", column.Label, len(column.Records))
	if isTarget && dragState.Session.Kind == domain.DragColumn {
		switch dragState.Side {
		case domain.SideBefore:
			title = "◀ " + title
		case domain.SideAfter:
			title += " ▶"
		}
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	if isSource {
		titleStyle = titleStyle.Faint(true).Italic(true)
	}

	policy := m.board.WindowPolicy()
	count := len(column.Records)
	slots := m.cardSlots()
	unit := max(1, policy.ItemSize)
	scroll := policy.ClampScroll(count, m.scroll[column.Key], m.viewportSize())
	rng := policy.Plan(count, scroll, m.viewportSize())
	first := scroll / unit

	info := ""
	if count > slots {
		info = fmt.Sprintf("%d-%d of %d", first+1, min(count, first+slots), count)
	}
	lines := []string{
		titleStyle.Render(truncate(title, inner)),
		lipgloss.NewStyle().Foreground(mutedColor).Render(info),
	}

	cardRows := make([]string, 0, slots*cardLines)
	if count == 0 {
		cardRows = append(cardRows, lipgloss.NewStyle().Foreground(mutedColor).Render("(empty)"))
	}
	for idx := max(first, rng.StartIndex); idx < rng.EndIndex && idx < first+slots; idx++ {
		cardRows = append(cardRows, m.renderCard(column.Records[idx], colIdx, idx, inner)...)
	}
	lines = append(lines, cardRows...)

	content := fitLines(strings.Join(lines, "\n"), m.columnHeight()-2)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		MarginRight(1).
		Width(width).
		Render(content)
}

// renderCard renders one card as cardLines rows.
func (m Model) renderCard(record domain.Record, colIdx, cardIdx, width int) []string {
	card := app.BuildCard(record, m.state.Cards, m.state.Fields, groupingSkip(m.state.Grouping)...)
	selected := colIdx == m.selectedColumn && cardIdx == m.selectedCard
	dragState := m.drag.State()
	dragged := m.drag.Active() && dragState.Session.Kind == domain.DragRecord && dragState.Session.SourceID == card.ID

	prefix := "  "
	if selected {
		prefix = "│ "
	}
	titleStyle := lipgloss.NewStyle()
	switch {
	case dragged:
		titleStyle = titleStyle.Foreground(dropColor).Italic(true)
	case selected:
		titleStyle = titleStyle.Foreground(lipgloss.Color("212")).Bold(true)
	}
	title := titleStyle.Render(prefix + truncate(card.Title, max(1, width-2)))
	meta := lipgloss.NewStyle().Foreground(mutedColor).Render("  " + truncate(cardSummary(card), max(1, width-2)))
	return []string{title, meta, ""}
}

// cardSummary joins the mapped slots, falling back to the first rendered field.
func cardSummary(card app.Card) string {
	parts := make([]string, 0, 4)
	if card.Type != "" {
		parts = append(parts, card.Type)
	}
	if card.Priority != "" {
		parts = append(parts, card.Priority)
	}
	if card.Points != "" {
		parts = append(parts, card.Points+" pts")
	}
	if len(card.Tags) > 0 {
		parts = append(parts, "#"+strings.Join(card.Tags, " #"))
	}
	if len(parts) == 0 && len(card.Fields) > 0 {
		field := card.Fields[0]
		parts = append(parts, field.Label+": "+field.Display)
	}
	return strings.Join(parts, " · ")
}

// renderDetail renders the selected record with its fields and markdown body.
func (m Model) renderDetail() string {
	detail := m.detail
	width := max(minMarkdownWidth, m.width-4)
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render(detail.card.Title),
		lipgloss.NewStyle().Foreground(mutedColor).Render(detail.id),
	}
	if detail.column != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(mutedColor).Render("column: "+string(detail.column)))
	}
	if summary := cardSummary(app.Card{Type: detail.card.Type, Priority: detail.card.Priority, Points: detail.card.Points, Tags: detail.card.Tags}); summary != "" {
		lines = append(lines, summary)
	}
	if len(detail.card.Fields) > 0 {
		lines = append(lines, "")
		for _, field := range detail.card.Fields {
			lines = append(lines, fmt.Sprintf("%s: %s", field.Label, truncate(field.Display, width)))
		}
	}
	if body := m.markdown.render(detail.body, width-4); body != "" {
		lines = append(lines, "", body)
	} else {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(mutedColor).Render("(no body)"))
	}
	lines = append(lines, "", lipgloss.NewStyle().Foreground(mutedColor).Render("esc close • y copy path"))
	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Padding(0, 1)
	if m.width > 0 {
		style = style.Width(max(minMarkdownWidth, m.width-2))
	}
	return style.Render(strings.Join(lines, "\n"))
}

// renderGroupingOverlay renders the grouping editor.
func (m Model) renderGroupingOverlay() string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1).
		Render(strings.Join([]string{
			lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Group by"),
			m.groupingInput.View(),
			lipgloss.NewStyle().Foreground(mutedColor).Render("enter apply • esc cancel"),
		}, "\n"))
}

// columnWidth returns the outer width of every column.
func (m Model) columnWidth() int {
	n := len(m.state.Columns)
	if n == 0 || m.width <= 0 {
		return 28
	}
	return clamp(m.width/n-1, minColumnWidth, maxColumnWidth)
}

// columnSlotWidth returns the horizontal cells one column occupies, margin included.
func (m Model) columnSlotWidth() int {
	probe := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		MarginRight(1).
		Width(m.columnWidth()).
		Render("")
	return max(1, lipgloss.Width(probe))
}

// columnHeight returns the outer height of every column.
func (m Model) columnHeight() int {
	return max(minColumnHeight, m.height-chromeLines)
}

// cardSlots returns how many cards fit in one column.
func (m Model) cardSlots() int {
	rows := m.columnHeight() - 2 - columnHeaderLines
	return max(1, rows/cardLines)
}

// viewportSize returns the column viewport in window-policy units.
func (m Model) viewportSize() int {
	if m.board == nil {
		return m.cardSlots()
	}
	return m.cardSlots() * max(1, m.board.WindowPolicy().ItemSize)
}

// visibleColumnRange returns the columns that fit on screen, keeping the selected one in view.
func (m Model) visibleColumnRange() (int, int) {
	total := len(m.state.Columns)
	if total == 0 {
		return 0, 0
	}
	perScreen := total
	if m.width > 0 {
		perScreen = clamp(m.width/m.columnSlotWidth(), 1, total)
	}
	start := 0
	if m.selectedColumn >= perScreen {
		start = m.selectedColumn - perScreen + 1
	}
	return start, min(total, start+perScreen)
}

// columnAt returns the visible column index under x, or -1.
func (m Model) columnAt(x int) int {
	if x < 0 {
		return -1
	}
	start, end := m.visibleColumnRange()
	idx := start + x/m.columnSlotWidth()
	if idx >= end {
		return -1
	}
	return idx
}

// columnExtent returns the left edge and width of column idx.
func (m Model) columnExtent(idx int) (int, int) {
	start, _ := m.visibleColumnRange()
	slot := m.columnSlotWidth()
	return (idx - start) * slot, slot
}

// onColumnHeader reports whether y falls on a column header row.
func (m Model) onColumnHeader(y int) bool {
	return y > boardTop && y <= boardTop+columnHeaderLines
}

// cardAt returns the card index under y within column, or -1.
func (m Model) cardAt(column app.Column, y int) int {
	row := y - (boardTop + 1 + columnHeaderLines)
	if row < 0 || row >= m.cardSlots()*cardLines {
		return -1
	}
	policy := m.board.WindowPolicy()
	scroll := policy.ClampScroll(len(column.Records), m.scroll[column.Key], m.viewportSize())
	idx := scroll/max(1, policy.ItemSize) + row/cardLines
	if idx >= len(column.Records) {
		return -1
	}
	return idx
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

// overlayOnContent centers overlay over base.
func overlayOnContent(base, overlay string, width, height int) string {
	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	centered := lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay)
	canvas.Compose(lipgloss.NewLayer(base).X(0).Y(0).Z(0))
	canvas.Compose(lipgloss.NewLayer(centered).X(0).Y(0).Z(10))
	return canvas.Render()
}

// truncate truncates the requested operation.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	if limit == 1 {
		return string(rs[:1])
	}
	return string(rs[:limit-1]) + "…"
}
