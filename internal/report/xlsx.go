package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize/v2"

	"github.com/Veraticus/taxtab/internal/aggregate"
)

const maxSheetName = 31

// XLSXFormatter writes the table into a single-sheet workbook.
type XLSXFormatter struct {
	SheetName string
}

// SheetTitle turns an arbitrary title into a valid worksheet name.
func SheetTitle(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "Report"
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}

// Workbook builds the workbook for t.
func (f XLSXFormatter) Workbook(t *aggregate.Table) (*excelize.File, error) {
	wb := excelize.NewFile()
	sheet := SheetTitle(f.SheetName)
	if f.SheetName == "" {
		sheet = SheetTitle(t.Scheme)
	}
	wb.SetSheetName("Sheet1", sheet)

	row := 1
	setRow := func(values []interface{}) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
		row++
		return nil
	}

	if t.Title != "" {
		if err := setRow([]interface{}{t.Title}); err != nil {
			return nil, err
		}
		if t.Subtitle != "" {
			if err := setRow([]interface{}{t.Subtitle}); err != nil {
				return nil, err
			}
		}
		row++
	}

	header := t.Header()
	headerRow := row
	values := make([]interface{}, len(header))
	for i, h := range header {
		values[i] = h
	}
	if err := setRow(values); err != nil {
		return nil, err
	}

	for _, line := range t.Lines() {
		values := []interface{}{line.Label}
		for _, v := range line.Values(t.HasRatio) {
			if math.IsNaN(v) {
				values = append(values, NaNText)
				continue
			}
			values = append(values, v)
		}
		if err := setRow(values); err != nil {
			return nil, err
		}
	}

	if err := f.style(wb, sheet, t, headerRow, row-1); err != nil {
		return nil, err
	}
	return wb, nil
}

func (f XLSXFormatter) style(wb *excelize.File, sheet string, t *aggregate.Table, headerRow, lastRow int) error {
	lastCol, err := excelize.ColumnNumberToName(len(t.Columns) + 1)
	if err != nil {
		return err
	}

	bold, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := wb.SetCellStyle(sheet, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("%s%d", lastCol, headerRow), bold); err != nil {
		return err
	}
	if err := wb.SetCellStyle(sheet, fmt.Sprintf("A%d", lastRow), fmt.Sprintf("%s%d", lastCol, lastRow), bold); err != nil {
		return err
	}

	for i, col := range t.Columns {
		name, err := excelize.ColumnNumberToName(i + 2)
		if err != nil {
			return err
		}
		format := "0." + strings.Repeat("0", col.Precision)
		style, err := wb.NewStyle(&excelize.Style{CustomNumFmt: &format})
		if err != nil {
			return fmt.Errorf("failed to create number style: %w", err)
		}
		cells := fmt.Sprintf("%s%d", name, headerRow+1)
		if err := wb.SetCellStyle(sheet, cells, fmt.Sprintf("%s%d", name, lastRow-1), style); err != nil {
			return err
		}
	}

	return wb.SetColWidth(sheet, "A", "A", 18)
}

// Format implements Formatter.
func (f XLSXFormatter) Format(w io.Writer, t *aggregate.Table) error {
	if t == nil {
		return fmt.Errorf("no table to format")
	}
	wb, err := f.Workbook(t)
	if err != nil {
		return err
	}
	if _, err := wb.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
