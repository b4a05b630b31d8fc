// Package report renders aggregate tables for the console and for export.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Veraticus/taxtab/internal/aggregate"
)

// NaNText is printed in place of an undefined ratio.
const NaNText = "nan"

// Formatter writes a table in some output format.
type Formatter interface {
	Format(w io.Writer, t *aggregate.Table) error
}

// FormatValue renders v with the given number of decimals, or NaNText.
func FormatValue(v float64, precision int) string {
	if math.IsNaN(v) {
		return NaNText
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}

// Cells returns the table's rendered cells: a header row, one row per bin,
// and the total row.
func Cells(t *aggregate.Table) [][]string {
	lines := t.Lines()
	out := make([][]string, 0, len(lines)+1)
	out = append(out, t.Header())
	for _, row := range lines {
		cells := make([]string, 0, len(t.Columns)+1)
		cells = append(cells, row.Label)
		for i, v := range row.Values(t.HasRatio) {
			cells = append(cells, FormatValue(v, t.Columns[i].Precision))
		}
		out = append(out, cells)
	}
	return out
}

// TextFormatter renders a plain fixed-width table: a left-justified label
// column followed by right-justified numeric columns.
type TextFormatter struct {
	Separator string
	ShowTitle bool
}

// NewTextFormatter creates a text formatter with two-space column gaps.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{Separator: "  ", ShowTitle: true}
}

// Lines renders the table without a title, one string per row.
func (f *TextFormatter) Lines(t *aggregate.Table) []string {
	cells := Cells(t)
	widths := make([]int, len(cells[0]))
	for _, row := range cells {
		for i, c := range row {
			if len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}

	lines := make([]string, len(cells))
	for r, row := range cells {
		var b strings.Builder
		for i, c := range row {
			if i == 0 {
				fmt.Fprintf(&b, "%-*s", widths[i], c)
				continue
			}
			b.WriteString(f.Separator)
			fmt.Fprintf(&b, "%*s", widths[i], c)
		}
		lines[r] = b.String()
	}
	return lines
}

// Format implements Formatter.
func (f *TextFormatter) Format(w io.Writer, t *aggregate.Table) error {
	if t == nil {
		return fmt.Errorf("no table to format")
	}
	if f.ShowTitle && t.Title != "" {
		if _, err := fmt.Fprintln(w, t.Title); err != nil {
			return err
		}
		if t.Subtitle != "" {
			if _, err := fmt.Fprintln(w, t.Subtitle); err != nil {
				return err
			}
		}
	}
	for _, line := range f.Lines(t) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Render formats t to a string with a text formatter.
func Render(t *aggregate.Table) string {
	var b strings.Builder
	_ = NewTextFormatter().Format(&b, t)
	return b.String()
}
