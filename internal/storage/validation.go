package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/taxtab/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidDataset = errors.New("invalid dataset")
	ErrInvalidRecord  = errors.New("invalid record")
	ErrInvalidReform  = errors.New("invalid reform")
	ErrInvalidRun     = errors.New("invalid report run")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateDataset validates dataset metadata.
func validateDataset(dataset *model.Dataset) error {
	if dataset == nil {
		return fmt.Errorf("%w: dataset", ErrNilParameter)
	}
	if strings.TrimSpace(dataset.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidDataset)
	}
	if dataset.Year < 1900 || dataset.Year > 2200 {
		return fmt.Errorf("%w: implausible year %d", ErrInvalidDataset, dataset.Year)
	}
	if !dataset.Scenario.Valid() {
		return fmt.Errorf("%w: unknown scenario %q", ErrInvalidDataset, dataset.Scenario)
	}
	return nil
}

// validateRecords checks weights and ids before anything is written.
func validateRecords(records []model.Record) error {
	seen := make(map[int64]struct{}, len(records))
	for i, r := range records {
		if math.IsNaN(r.Weight) || math.IsInf(r.Weight, 0) || r.Weight < 0 {
			return fmt.Errorf("%w: record at index %d has weight %v", ErrInvalidRecord, i, r.Weight)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: duplicate id %d at index %d", ErrInvalidRecord, r.ID, i)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

// validateReform validates a reform before it is stored.
func validateReform(reform *model.Reform) error {
	if reform == nil {
		return fmt.Errorf("%w: reform", ErrNilParameter)
	}
	if strings.TrimSpace(reform.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidReform)
	}
	if len(reform.Parameters) == 0 {
		return fmt.Errorf("%w: no parameters", ErrInvalidReform)
	}
	return nil
}

// validateRun validates a report run before it is stored.
func validateRun(run *model.ReportRun) error {
	if run == nil {
		return fmt.Errorf("%w: report run", ErrNilParameter)
	}
	if run.Recipe == "" || run.Scheme == "" {
		return fmt.Errorf("%w: recipe and scheme are required", ErrInvalidRun)
	}
	if run.BaselineDatasetID <= 0 {
		return fmt.Errorf("%w: missing baseline dataset", ErrInvalidRun)
	}
	return nil
}
