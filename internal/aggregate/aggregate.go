// Package aggregate groups weighted filing-unit records into bins and
// computes weighted counts, sums, and derived ratios for each bin and for
// the whole population.
package aggregate

import (
	"fmt"
	"math"

	"github.com/Veraticus/taxtab/internal/binning"
	"github.com/Veraticus/taxtab/internal/model"
)

type accumulator struct {
	amounts []float64
	weight  float64
	records int
}

func newAccumulator(n int) accumulator {
	return accumulator{amounts: make([]float64, n)}
}

func (a *accumulator) add(rec model.Record, amounts []Amount) {
	a.weight += rec.Weight
	a.records++
	for i, amt := range amounts {
		a.amounts[i] += rec.Weight * rec.Values[amt.Variable]
	}
}

func (a *accumulator) row(label string, req *Request) Row {
	row := Row{
		Label:   label,
		Count:   a.weight * req.CountScale,
		Amounts: make([]float64, len(a.amounts)),
		Ratio:   math.NaN(),
	}
	for i, v := range a.amounts {
		row.Amounts[i] = v * req.AmountScale
	}
	if req.Ratio.Kind != RatioNone {
		row.Ratio = ComputeRatio(req.Ratio, row.Count, row.Amounts)
	}
	return row
}

// SafeDivide returns n/d, or NaN when d is exactly zero.
func SafeDivide(n, d float64) float64 {
	if d == 0 {
		return math.NaN()
	}
	return n / d
}

// ComputeRatio evaluates the ratio for already-scaled count and amounts.
func ComputeRatio(r Ratio, count float64, amounts []float64) float64 {
	switch r.Kind {
	case RatioPercent:
		return SafeDivide(100*amounts[r.Numerator], amounts[r.Denominator])
	case RatioAverage:
		return SafeDivide(amounts[r.Numerator], count)
	case RatioPercentChange:
		return SafeDivide(100*(amounts[r.Numerator]-amounts[r.Denominator]), amounts[r.Denominator])
	default:
		return math.NaN()
	}
}

// Tabulate assigns every record to a bin of scheme and aggregates it.
// All records are validated before any aggregation happens; a record with a
// bad weight, a missing variable, or a bin key outside the scheme fails the
// whole call.
func Tabulate(records []model.Record, scheme *binning.Scheme, request Request) (*Table, error) {
	if scheme == nil || scheme.Len() == 0 {
		return nil, fmt.Errorf("%w: no bin scheme", ErrInvalidRequest)
	}
	req := request.withDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	assignment, err := assign(records, scheme, &req)
	if err != nil {
		return nil, err
	}

	bins := make([]accumulator, scheme.Len())
	for i := range bins {
		bins[i] = newAccumulator(len(req.Amounts))
	}
	total := newAccumulator(len(req.Amounts))

	for i, rec := range records {
		if req.Recipients != "" && rec.Values[req.Recipients] <= 0 {
			continue
		}
		bins[assignment[i]].add(rec, req.Amounts)
		total.add(rec, req.Amounts)
	}

	table := &Table{
		Title:       req.Title,
		Scheme:      scheme.Name,
		Key:         scheme.Key,
		LabelHeader: req.LabelHeader,
		Columns:     columns(&req),
		Rows:        make([]Row, len(bins)),
		HasRatio:    req.Ratio.Kind != RatioNone,
		Records:     total.records,
	}
	if table.LabelHeader == "" {
		table.LabelHeader = scheme.Name
	}
	for i := range bins {
		table.Rows[i] = bins[i].row(scheme.Bins[i].Label, &req)
	}
	table.Total = total.row(TotalLabel, &req)

	return table, nil
}

func assign(records []model.Record, scheme *binning.Scheme, req *Request) ([]int, error) {
	vars := req.Variables()
	assignment := make([]int, len(records))

	for i, rec := range records {
		if math.IsNaN(rec.Weight) || math.IsInf(rec.Weight, 0) || rec.Weight < 0 {
			return nil, fmt.Errorf("%w: record %d (id %d) has weight %v", ErrInvalidRecord, i, rec.ID, rec.Weight)
		}

		key, ok := rec.Value(scheme.Key)
		if !ok {
			return nil, fmt.Errorf("%w: record %d (id %d) has no bin key %q", ErrInvalidRecord, i, rec.ID, scheme.Key)
		}
		bin, err := scheme.Assign(key)
		if err != nil {
			return nil, fmt.Errorf("record %d (id %d): %w", i, rec.ID, err)
		}

		for _, v := range vars {
			val, ok := rec.Value(v)
			if !ok {
				return nil, fmt.Errorf("%w: record %d (id %d) has no variable %q", ErrInvalidRecord, i, rec.ID, v)
			}
			if math.IsNaN(val) || math.IsInf(val, 0) {
				return nil, fmt.Errorf("%w: record %d (id %d) has non-finite %s=%v", ErrInvalidRecord, i, rec.ID, v, val)
			}
		}
		assignment[i] = bin
	}

	return assignment, nil
}

func columns(req *Request) []Column {
	cols := make([]Column, 0, len(req.Amounts)+2)
	cols = append(cols, Column{Name: req.CountLabel, Precision: AmountPrecision})
	for _, a := range req.Amounts {
		name := a.Label
		if name == "" {
			name = a.Variable
		}
		cols = append(cols, Column{Name: name, Precision: AmountPrecision})
	}
	switch req.Ratio.Kind {
	case RatioNone:
	case RatioAverage:
		cols = append(cols, Column{Name: req.Ratio.Label, Precision: AmountPrecision})
	default:
		cols = append(cols, Column{Name: req.Ratio.Label, Precision: PercentPrecision})
	}
	return cols
}
