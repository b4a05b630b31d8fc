// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/taxtab/internal/model"
)

// DatasetFilter narrows dataset listings.
type DatasetFilter struct {
	Scenario model.Scenario
	Year     int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Dataset operations
	SaveDataset(ctx context.Context, dataset *model.Dataset, records []model.Record) error
	GetDataset(ctx context.Context, id int64) (*model.Dataset, error)
	GetDatasetByName(ctx context.Context, name string) (*model.Dataset, error)
	ListDatasets(ctx context.Context, filter DatasetFilter) ([]model.Dataset, error)
	DeleteDataset(ctx context.Context, id int64) error
	GetRecords(ctx context.Context, datasetID int64) ([]model.Record, error)

	// Reform operations
	SaveReform(ctx context.Context, reform *model.Reform) error
	GetReform(ctx context.Context, name string) (*model.Reform, error)
	ListReforms(ctx context.Context) ([]model.Reform, error)

	// Report history
	SaveReportRun(ctx context.Context, run *model.ReportRun) error
	ListReportRuns(ctx context.Context, limit int) ([]model.ReportRun, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
