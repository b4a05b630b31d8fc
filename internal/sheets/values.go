package sheets

import (
	"fmt"
	"math"
	"strings"

	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/taxtab/internal/aggregate"
	"github.com/Veraticus/taxtab/internal/report"
)

// layout records where the table landed on its tab.
type layout struct {
	values    [][]any
	headerRow int
	totalRow  int
}

// prepareValues lays a table out as title, subtitle, a blank line, the
// header, one row per bin, and the total.
func prepareValues(t *aggregate.Table) layout {
	values := make([][]any, 0, len(t.Rows)+5)
	if t.Title != "" {
		values = append(values, []any{t.Title})
		if t.Subtitle != "" {
			values = append(values, []any{t.Subtitle})
		}
		values = append(values, []any{})
	}

	header := t.Header()
	headerRow := len(values)
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	values = append(values, row)

	for _, line := range t.Lines() {
		row := []any{line.Label}
		for _, v := range line.Values(t.HasRatio) {
			// The API's JSON encoding rejects NaN.
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row = append(row, report.NaNText)
				continue
			}
			row = append(row, v)
		}
		values = append(values, row)
	}

	return layout{values: values, headerRow: headerRow, totalRow: len(values) - 1}
}

func numberPattern(precision int) string {
	if precision <= 0 {
		return "#,##0"
	}
	return "#,##0." + strings.Repeat("0", precision)
}

// formatRequests builds the batch update that styles one table tab.
func formatRequests(sheetID int64, t *aggregate.Table, l layout) []*sheets.Request {
	width := int64(len(t.Columns) + 1)
	bold := func(row int) *sheets.Request {
		return &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    int64(row),
					EndRowIndex:      int64(row + 1),
					StartColumnIndex: 0,
					EndColumnIndex:   width,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		}
	}

	requests := []*sheets.Request{bold(l.headerRow), bold(l.totalRow)}
	if t.Title != "" {
		requests = append(requests, &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   1,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true, FontSize: 14},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		})
	}

	for i, col := range t.Columns {
		requests = append(requests, &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    int64(l.headerRow + 1),
					EndRowIndex:      int64(l.totalRow + 1),
					StartColumnIndex: int64(i + 1),
					EndColumnIndex:   int64(i + 2),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{
							Type:    "NUMBER",
							Pattern: numberPattern(col.Precision),
						},
						HorizontalAlignment: "RIGHT",
					},
				},
				Fields: "userEnteredFormat(numberFormat,horizontalAlignment)",
			},
		})
	}

	requests = append(requests,
		&sheets.Request{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   width,
				},
			},
		},
		&sheets.Request{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: sheetID,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: int64(l.headerRow + 1),
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	)
	return requests
}

// tabTitles assigns each table a distinct, valid tab title.
func tabTitles(tables []*aggregate.Table) []string {
	titles := make([]string, len(tables))
	used := make(map[string]int)
	for i, t := range tables {
		base := t.Scheme
		if t.Title != "" {
			base = t.Title
		}
		title := report.SheetTitle(base)
		if n := used[title]; n > 0 {
			suffix := fmt.Sprintf(" (%d)", n+1)
			if len(title)+len(suffix) > 31 {
				title = title[:31-len(suffix)]
			}
			title += suffix
		}
		used[report.SheetTitle(base)]++
		titles[i] = title
	}
	return titles
}
