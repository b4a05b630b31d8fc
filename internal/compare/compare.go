// Package compare lines up baseline and reform simulation records so that
// reform effects can be tabulated per filing unit.
package compare

import (
	"errors"
	"fmt"
	"math"

	"github.com/Veraticus/taxtab/internal/model"
)

// Suffixes appended to joined variable names.
const (
	BaseSuffix   = "_base"
	ReformSuffix = "_reform"
	DiffSuffix   = "_diff"
)

var (
	// ErrUnmatchedRecord reports an id present in only one of the inputs.
	ErrUnmatchedRecord = errors.New("record has no counterpart")
	// ErrDuplicateRecord reports an id that appears twice in one input.
	ErrDuplicateRecord = errors.New("duplicate record id")
	// ErrMissingVariable reports a joined variable absent from a record.
	ErrMissingVariable = errors.New("missing variable")
)

// WeightTolerance is the relative weight difference tolerated between the
// two runs of the same filing unit.
const WeightTolerance = 1e-9

// Base names the joined baseline value of v.
func Base(v string) string { return v + BaseSuffix }

// Reform names the joined reform value of v.
func Reform(v string) string { return v + ReformSuffix }

// Diff names reform minus baseline for v.
func Diff(v string) string { return v + DiffSuffix }

// Join pairs records by id. Each output record carries the baseline id,
// weight, and values, plus v_base, v_reform, and v_diff for every v in
// variables. Output order follows baseline.
func Join(baseline, reform []model.Record, variables []string) ([]model.Record, error) {
	byID := make(map[int64]int, len(reform))
	for i, r := range reform {
		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("%w: %d in reform", ErrDuplicateRecord, r.ID)
		}
		byID[r.ID] = i
	}

	seen := make(map[int64]bool, len(baseline))
	out := make([]model.Record, len(baseline))
	for i, b := range baseline {
		if seen[b.ID] {
			return nil, fmt.Errorf("%w: %d in baseline", ErrDuplicateRecord, b.ID)
		}
		seen[b.ID] = true

		j, ok := byID[b.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %d missing from reform", ErrUnmatchedRecord, b.ID)
		}
		r := reform[j]
		if !closeEnough(b.Weight, r.Weight) {
			return nil, fmt.Errorf("%w: %d weighs %v in baseline but %v in reform",
				ErrUnmatchedRecord, b.ID, b.Weight, r.Weight)
		}

		joined := model.Record{
			ID:     b.ID,
			Weight: b.Weight,
			Values: make(map[string]float64, len(b.Values)+3*len(variables)),
		}
		for k, v := range b.Values {
			joined.Values[k] = v
		}
		for _, v := range variables {
			bv, ok := b.Value(v)
			if !ok {
				return nil, fmt.Errorf("%w: %q on baseline record %d", ErrMissingVariable, v, b.ID)
			}
			rv, ok := r.Value(v)
			if !ok {
				return nil, fmt.Errorf("%w: %q on reform record %d", ErrMissingVariable, v, r.ID)
			}
			joined.Values[Base(v)] = bv
			joined.Values[Reform(v)] = rv
			joined.Values[Diff(v)] = rv - bv
		}
		out[i] = joined
	}

	if len(seen) != len(byID) {
		for id := range byID {
			if !seen[id] {
				return nil, fmt.Errorf("%w: %d missing from baseline", ErrUnmatchedRecord, id)
			}
		}
	}

	return out, nil
}

func closeEnough(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= WeightTolerance*math.Max(math.Abs(a), math.Abs(b))
}
