package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/Veraticus/taxtab/internal/aggregate"
)

type jsonRow struct {
	Label  string     `json:"label"`
	Values []*float64 `json:"values"`
}

type jsonTable struct {
	Title    string    `json:"title,omitempty"`
	Subtitle string    `json:"subtitle,omitempty"`
	Scheme   string    `json:"scheme"`
	Key      string    `json:"key"`
	Columns  []string  `json:"columns"`
	Rows     []jsonRow `json:"rows"`
	Total    jsonRow   `json:"total"`
	Records  int       `json:"records"`
}

// JSONFormatter writes the table as an indented JSON document. Undefined
// ratios are encoded as null.
type JSONFormatter struct{}

func toJSONRow(t *aggregate.Table, row aggregate.Row) jsonRow {
	vals := row.Values(t.HasRatio)
	out := jsonRow{Label: row.Label, Values: make([]*float64, len(vals))}
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		v := v
		out.Values[i] = &v
	}
	return out
}

// Format implements Formatter.
func (JSONFormatter) Format(w io.Writer, t *aggregate.Table) error {
	if t == nil {
		return fmt.Errorf("no table to format")
	}
	doc := jsonTable{
		Title:    t.Title,
		Subtitle: t.Subtitle,
		Scheme:   t.Scheme,
		Key:      t.Key,
		Columns:  t.Header(),
		Rows:     make([]jsonRow, len(t.Rows)),
		Total:    toJSONRow(t, t.Total),
		Records:  t.Records,
	}
	for i, row := range t.Rows {
		doc.Rows[i] = toJSONRow(t, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode table: %w", err)
	}
	return nil
}
