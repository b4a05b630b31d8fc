package aggregate

// TotalLabel labels the grand-total row.
const TotalLabel = "ALL"

// Precisions used when rendering numeric columns.
const (
	AmountPrecision  = 3
	PercentPrecision = 2
)

// Column describes one numeric column of a table.
type Column struct {
	Name      string
	Precision int
}

// Row holds one bin's scaled results. Ratio is NaN when its denominator
// was zero or the table has no ratio column.
type Row struct {
	Label   string
	Amounts []float64
	Count   float64
	Ratio   float64
}

// Values returns the row's numeric cells in column order.
func (r Row) Values(hasRatio bool) []float64 {
	vals := make([]float64, 0, len(r.Amounts)+2)
	vals = append(vals, r.Count)
	vals = append(vals, r.Amounts...)
	if hasRatio {
		vals = append(vals, r.Ratio)
	}
	return vals
}

// Table is the result of one tabulation: a row per bin in declared order
// followed by the grand total.
type Table struct {
	Title       string
	Subtitle    string
	Scheme      string
	Key         string
	LabelHeader string
	Columns     []Column
	Rows        []Row
	Total       Row
	HasRatio    bool
	// Records is the number of input records that contributed.
	Records int
}

// Lines returns the bin rows followed by the total row.
func (t *Table) Lines() []Row {
	lines := make([]Row, 0, len(t.Rows)+1)
	lines = append(lines, t.Rows...)
	return append(lines, t.Total)
}

// Header returns the label header followed by the numeric column names.
func (t *Table) Header() []string {
	header := make([]string, 0, len(t.Columns)+1)
	header = append(header, t.LabelHeader)
	for _, c := range t.Columns {
		header = append(header, c.Name)
	}
	return header
}
