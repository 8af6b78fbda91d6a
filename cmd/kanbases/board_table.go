package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/evanschultz/kanbases/internal/app"
)

// renderBoardTable lays the visible columns side by side, one card title per row.
func renderBoardTable(state app.BoardState) string {
	if state.Status != app.StatusReady {
		return state.Message
	}
	headers := make([]string, 0, len(state.Columns))
	depth := 0
	for _, column := range state.Columns {
		headers = append(headers, fmt.Sprintf("%s (%d)", column.Label, len(column.Records)))
		depth = max(depth, len(column.Records))
	}
	rows := make([][]string, depth)
	for i := range rows {
		rows[i] = make([]string, len(state.Columns))
		for col, column := range state.Columns {
			if i < len(column.Records) {
				rows[i][col] = app.BuildCard(column.Records[i], state.Cards, state.Fields).Title
			}
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	var b strings.Builder
	fmt.Fprintf(&b, "group: %s\n", state.Identity)
	b.WriteString(t.Render())
	if len(state.Hidden) > 0 {
		labels := make([]string, 0, len(state.Hidden))
		for _, hidden := range state.Hidden {
			labels = append(labels, hidden.Label)
		}
		fmt.Fprintf(&b, "\nhidden: %s", strings.Join(labels, ", "))
	}
	return b.String()
}
