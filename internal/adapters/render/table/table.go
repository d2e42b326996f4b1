package table

import (
	"fmt"

	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
)

type Column[T any] struct {
	Header string
	Value  func(T) string
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	emptyStyle  = lipgloss.NewStyle().Faint(true)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// Render lays items out as a bordered table. pagination may be nil.
func Render[T any](title string, items []T, columns []Column[T], pagination *domain.Pagination) string {
	parts := []string{titleStyle.Render(title)}

	if len(items) == 0 {
		parts = append(parts, emptyStyle.Render("No results."))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Header
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = col.Value(item)
		}
		rows = append(rows, row)
	}

	t := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	parts = append(parts, t.String())

	if pagination != nil {
		parts = append(parts, footerStyle.Render(footer(*pagination, len(items))))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func footer(p domain.Pagination, shown int) string {
	if p.TotalPages <= 1 {
		return fmt.Sprintf("%d of %d", shown, p.Total)
	}
	return fmt.Sprintf("page %d/%d, %d of %d", p.Page, p.TotalPages, shown, p.Total)
}
