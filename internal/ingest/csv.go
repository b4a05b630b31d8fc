package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/Veraticus/taxtab/internal/model"
)

type countingReader struct {
	r        io.Reader
	progress func(int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.progress(int64(n))
	return n, err
}

// ReadCSV reads comma-separated records.
func ReadCSV(ctx context.Context, r io.Reader, opts Options) ([]model.Record, error) {
	opts = opts.withDefaults()
	reader := csv.NewReader(&countingReader{r: r, progress: opts.progress})
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	// ReuseRecord means the next Read overwrites header.
	header = append([]string(nil), header...)

	b, err := newTableBuilder(header, opts)
	if err != nil {
		return nil, err
	}

	for {
		if err := checkContext(ctx, b.row); err != nil {
			return nil, err
		}
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", b.row+1, err)
		}
		if err := b.add(cells); err != nil {
			return nil, err
		}
	}
	return b.records, nil
}
