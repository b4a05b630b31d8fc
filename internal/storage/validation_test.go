package storage

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/Veraticus/taxtab/internal/model"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name    string
		str     string
		wantErr bool
	}{
		{name: "valid string", str: "test"},
		{name: "empty string", str: "", wantErr: true},
		{name: "whitespace only", str: "  \t", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, "param")
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrEmptyString) {
				t.Errorf("expected ErrEmptyString, got %v", err)
			}
		})
	}
}

func TestValidateDataset(t *testing.T) {
	tests := []struct {
		dataset *model.Dataset
		wantErr error
		name    string
	}{
		{
			name:    "valid",
			dataset: &model.Dataset{Name: "base-2023", Year: 2023, Scenario: model.ScenarioBaseline},
		},
		{
			name:    "nil",
			wantErr: ErrNilParameter,
		},
		{
			name:    "missing name",
			dataset: &model.Dataset{Year: 2023, Scenario: model.ScenarioBaseline},
			wantErr: ErrInvalidDataset,
		},
		{
			name:    "implausible year",
			dataset: &model.Dataset{Name: "x", Year: 23, Scenario: model.ScenarioBaseline},
			wantErr: ErrInvalidDataset,
		},
		{
			name:    "unknown scenario",
			dataset: &model.Dataset{Name: "x", Year: 2023, Scenario: "projected"},
			wantErr: ErrInvalidDataset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDataset(tt.dataset)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("validateDataset() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateDataset() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRecords(t *testing.T) {
	tests := []struct {
		name    string
		records []model.Record
		wantErr bool
	}{
		{
			name:    "valid",
			records: []model.Record{{ID: 1, Weight: 1}, {ID: 2, Weight: 0}},
		},
		{
			name:    "negative weight",
			records: []model.Record{{ID: 1, Weight: -1}},
			wantErr: true,
		},
		{
			name:    "nan weight",
			records: []model.Record{{ID: 1, Weight: math.NaN()}},
			wantErr: true,
		},
		{
			name:    "duplicate id",
			records: []model.Record{{ID: 7, Weight: 1}, {ID: 7, Weight: 1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRecords(tt.records)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRecords() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRun(t *testing.T) {
	if err := validateRun(&model.ReportRun{Recipe: "eitc", Scheme: "agi", BaselineDatasetID: 1}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := validateRun(&model.ReportRun{Recipe: "eitc", Scheme: "agi"}); !errors.Is(err, ErrInvalidRun) {
		t.Errorf("expected ErrInvalidRun, got %v", err)
	}
	if err := validateRun(nil); !errors.Is(err, ErrNilParameter) {
		t.Errorf("expected ErrNilParameter, got %v", err)
	}
}
