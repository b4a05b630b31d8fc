package report

import (
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Veraticus/taxtab/internal/aggregate"
	"github.com/Veraticus/taxtab/internal/cli"
)

// StyledFormatter renders a bordered, colored table for interactive terminals.
type StyledFormatter struct {
	printer *message.Printer
}

// NewStyledFormatter creates a styled formatter using English digit grouping.
func NewStyledFormatter() *StyledFormatter {
	return &StyledFormatter{printer: message.NewPrinter(language.English)}
}

func (f *StyledFormatter) value(v float64, precision int) string {
	if math.IsNaN(v) {
		return NaNText
	}
	return f.printer.Sprintf(fmt.Sprintf("%%.%df", precision), v)
}

// Render returns the styled table as a string.
func (f *StyledFormatter) Render(t *aggregate.Table) string {
	lines := t.Lines()
	rows := make([][]string, 0, len(lines))
	for _, row := range lines {
		cells := []string{row.Label}
		for i, v := range row.Values(t.HasRatio) {
			cells = append(cells, f.value(v, t.Columns[i].Precision))
		}
		rows = append(rows, cells)
	}
	totalRow := len(rows) - 1

	headerStyle := cli.BoldStyle.Padding(0, 1).Align(lipgloss.Center)
	labelStyle := cli.TableCellStyle.Padding(0, 1)
	numberStyle := labelStyle.Align(lipgloss.Right)

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(cli.SubtleColor)).
		Headers(t.Header()...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				style = labelStyle
			default:
				style = numberStyle
			}
			if row == totalRow {
				style = style.Bold(true).Foreground(cli.PrimaryColor)
			} else if col > 0 && rows[row][col] == NaNText {
				style = style.Foreground(cli.SubtleColor)
			}
			return style
		})

	out := tbl.Render()
	if t.Title != "" {
		header := cli.StyleTitle(cli.ChartIcon + " " + t.Title)
		if t.Subtitle != "" {
			header = lipgloss.JoinVertical(lipgloss.Left, header, cli.SubtitleStyle.Render(t.Subtitle))
		}
		out = lipgloss.JoinVertical(lipgloss.Left, header, out)
	}
	return out
}

// Format implements Formatter.
func (f *StyledFormatter) Format(w io.Writer, t *aggregate.Table) error {
	if t == nil {
		return fmt.Errorf("no table to format")
	}
	_, err := fmt.Fprintln(w, f.Render(t))
	return err
}
