package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/wayplat/internal/screens"
)

var screenColumns = []string{"", "ID", "NAME", "POSITION", "SIZE", "SCALE", "LOGICAL", "DESCRIPTION"}

func screenRow(s screens.Screen) []string {
	mark := " "
	if s.Primary {
		mark = PrimaryMarkStyle.Render("*")
	}
	logical := s.LogicalSize()
	return []string{
		mark,
		fmt.Sprintf("%d", s.Output),
		s.Name,
		fmt.Sprintf("%d,%d", s.Bounds.Min.X, s.Bounds.Min.Y),
		s.Bounds.Size.String(),
		fmt.Sprintf("%g", s.PixelDensity()),
		logical.String(),
		s.Description,
	}
}

// RenderScreens lays the committed screens out as a table. The primary
// screen is marked with a star.
func RenderScreens(list []screens.Screen) string {
	if len(list) == 0 {
		return SubtleStyle.Render("No screens committed")
	}

	rows := [][]string{screenColumns}
	for _, s := range list {
		rows = append(rows, screenRow(s))
	}

	widths := make([]int, len(screenColumns))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			style := TableCellStyle.Width(widths[i] + TableCellStyle.GetPaddingRight())
			if r == 0 {
				style = style.Inherit(TableHeaderStyle)
			}
			cells[i] = style.Render(cell)
		}
		b.WriteString(strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, cells...), " "))
		if r < len(rows)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
