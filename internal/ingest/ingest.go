// Package ingest reads simulation output files into weighted records.
//
// Every supported format is a table whose first row names the columns. One
// column carries the record id, one the sampling weight, and every other
// numeric column becomes a named value on the record.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/taxtab/internal/model"
)

// Default column names used by the simulation's output files.
const (
	DefaultIDColumn     = "RECID"
	DefaultWeightColumn = "s006"
)

var (
	// ErrUnsupportedFormat reports a file extension no reader handles.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrMissingColumn reports a required column absent from the header.
	ErrMissingColumn = errors.New("missing column")
	// ErrBadCell reports a cell that does not parse as a number.
	ErrBadCell = errors.New("bad cell")
)

// Options controls how columns map onto records.
type Options struct {
	// Progress, when set, receives the number of bytes consumed as reading advances.
	Progress     func(n int64)
	IDColumn     string
	WeightColumn string
	// Columns limits the imported values to these names. Empty keeps all.
	Columns []string
}

func (o Options) withDefaults() Options {
	if o.IDColumn == "" {
		o.IDColumn = DefaultIDColumn
	}
	if o.WeightColumn == "" {
		o.WeightColumn = DefaultWeightColumn
	}
	return o
}

func (o Options) progress(n int64) {
	if o.Progress != nil && n > 0 {
		o.Progress(n)
	}
}

// ReadFile reads records from path, choosing the reader by file extension.
func ReadFile(ctx context.Context, path string, opts Options) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("Failed to close input file", "file", path, "error", closeErr)
		}
	}()

	var records []model.Record
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		records, err = ReadCSV(ctx, f, opts)
	case ".xlsx":
		records, err = ReadXLSX(ctx, f, opts)
	case ".xls":
		records, err = ReadXLS(ctx, f, opts)
	default:
		return nil, fmt.Errorf("%w: %q (%s)", ErrUnsupportedFormat, ext, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// LoadAll reads several files concurrently. The result keeps the order of paths.
func LoadAll(ctx context.Context, paths []string, opts Options) ([][]model.Record, error) {
	results := make([][]model.Record, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, path := range paths {
		g.Go(func() error {
			records, err := ReadFile(ctx, path, opts)
			if err != nil {
				return err
			}
			results[i] = records
			slog.Debug("Loaded records", "file", filepath.Base(path), "records", len(records))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// tableBuilder turns header + string rows into records.
type tableBuilder struct {
	names     []string
	keep      []bool
	records   []model.Record
	opts      Options
	idCol     int
	weightCol int
	row       int
}

func newTableBuilder(header []string, opts Options) (*tableBuilder, error) {
	b := &tableBuilder{opts: opts, idCol: -1, weightCol: -1}
	wanted := make(map[string]bool, len(opts.Columns))
	for _, c := range opts.Columns {
		wanted[c] = true
	}

	b.names = make([]string, len(header))
	b.keep = make([]bool, len(header))
	for i, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		b.names[i] = name
		switch {
		case name == "":
		case name == opts.IDColumn:
			b.idCol = i
		case name == opts.WeightColumn:
			b.weightCol = i
		default:
			b.keep[i] = len(wanted) == 0 || wanted[name]
		}
	}

	if b.weightCol < 0 {
		return nil, fmt.Errorf("%w: weight column %q", ErrMissingColumn, opts.WeightColumn)
	}
	if b.idCol < 0 {
		slog.Warn("No id column, numbering records by row", "column", opts.IDColumn)
	}
	for c := range wanted {
		found := false
		for i, name := range b.names {
			if name == c && b.keep[i] {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: requested column %q", ErrMissingColumn, c)
		}
	}
	return b, nil
}

func (b *tableBuilder) add(cells []string) error {
	b.row++
	if isBlank(cells) {
		return nil
	}

	rec := model.Record{ID: int64(b.row), Values: make(map[string]float64)}
	for i, name := range b.names {
		cell := ""
		if i < len(cells) {
			cell = strings.TrimSpace(cells[i])
		}

		switch {
		case i == b.idCol:
			id, err := strconv.ParseInt(cell, 10, 64)
			if err != nil {
				// Some writers emit integral ids as floats.
				f, ferr := strconv.ParseFloat(cell, 64)
				if ferr != nil || f != math.Trunc(f) {
					return fmt.Errorf("%w: row %d column %q: %q is not an id", ErrBadCell, b.row, name, cell)
				}
				id = int64(f)
			}
			rec.ID = id
		case i == b.weightCol:
			w, err := parseNumber(cell)
			if err != nil || cell == "" {
				return fmt.Errorf("%w: row %d column %q: %q is not a weight", ErrBadCell, b.row, name, cell)
			}
			rec.Weight = w
		case b.keep[i]:
			v, err := parseNumber(cell)
			if err != nil {
				return fmt.Errorf("%w: row %d column %q: %v", ErrBadCell, b.row, name, err)
			}
			rec.Values[name] = v
		}
	}

	b.records = append(b.records, rec)
	return nil
}

// parseNumber parses a numeric cell. Empty cells read as zero, matching how
// the simulation writes unset variables.
func parseNumber(cell string) (float64, error) {
	if cell == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", cell)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", cell)
	}
	return v, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func checkContext(ctx context.Context, row int) error {
	if row%1000 == 0 {
		return ctx.Err()
	}
	return nil
}
