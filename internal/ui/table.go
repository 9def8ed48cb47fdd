package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table renders rows under headers with a rounded border. Header cells are
// styled unless color is off.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			cell := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow && !noColor {
				return cell.Inherit(headerStyle)
			}
			return cell
		})
	return t.String()
}
