package ingest

import (
	"context"
	"fmt"
	"io"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/anrid/xls"

	"github.com/Veraticus/taxtab/internal/model"
)

// ReadXLSX reads the first worksheet of an Office Open XML workbook.
func ReadXLSX(ctx context.Context, r io.Reader, opts Options) ([]model.Record, error) {
	opts = opts.withDefaults()
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMissingColumn)
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return buildRows(ctx, rows, opts)
}

// ReadXLS reads the first worksheet of a legacy BIFF workbook.
func ReadXLS(ctx context.Context, r io.ReadSeeker, opts Options) ([]model.Record, error) {
	opts = opts.withDefaults()
	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMissingColumn)
	}

	rows := collectRows(int(sheet.MaxRow), func(i int) ([]string, bool) {
		row := sheet.Row(i)
		if row == nil {
			return nil, false
		}
		cols := make([]string, 0, row.LastCol()+1)
		for j := 0; j <= row.LastCol(); j++ {
			cols = append(cols, row.Col(j))
		}
		return cols, true
	})

	return buildRows(ctx, rows, opts)
}

// collectRows gathers rows 0..maxRow. Rows the workbook does not store come
// back as empty rows so row numbers stay aligned with the sheet.
func collectRows(maxRow int, rowAt func(i int) ([]string, bool)) [][]string {
	rows := make([][]string, 0, maxRow+1)
	for i := 0; i <= maxRow; i++ {
		cols, ok := rowAt(i)
		if !ok {
			cols = []string{}
		}
		rows = append(rows, cols)
	}
	return rows
}

func buildRows(ctx context.Context, rows [][]string, opts Options) ([]model.Record, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty sheet", ErrMissingColumn)
	}
	b, err := newTableBuilder(rows[0], opts)
	if err != nil {
		return nil, err
	}
	for _, cells := range rows[1:] {
		if err := checkContext(ctx, b.row); err != nil {
			return nil, err
		}
		if err := b.add(cells); err != nil {
			return nil, err
		}
		for _, c := range cells {
			opts.progress(int64(len(c) + 1))
		}
	}
	return b.records, nil
}
