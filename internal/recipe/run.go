package recipe

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/taxtab/internal/aggregate"
	"github.com/Veraticus/taxtab/internal/binning"
	"github.com/Veraticus/taxtab/internal/common"
	"github.com/Veraticus/taxtab/internal/compare"
	"github.com/Veraticus/taxtab/internal/model"
)

// Store is the slice of storage a run needs.
type Store interface {
	GetDatasetByName(ctx context.Context, name string) (*model.Dataset, error)
	GetRecords(ctx context.Context, datasetID int64) ([]model.Record, error)
}

// RunOptions selects the inputs for one tabulation.
type RunOptions struct {
	Catalog     *binning.Catalog
	Recipe      string
	Baseline    string
	Reform      string
	Scheme      string
	CountScale  float64
	AmountScale float64
}

// Result is a tabulated recipe together with the datasets it read.
type Result struct {
	Table    *aggregate.Table
	Baseline *model.Dataset
	Reform   *model.Dataset
	Recipe   Recipe
}

// Run loads the datasets a recipe needs, joins them when a reform is
// involved, and tabulates the result.
func (r *Registry) Run(ctx context.Context, store Store, opts RunOptions) (*Result, error) {
	rec, err := r.Get(opts.Recipe)
	if err != nil {
		return nil, err
	}
	if opts.Baseline == "" {
		return nil, common.NewUserError("a baseline dataset is required (--baseline)", common.ErrMissingConfig)
	}
	if rec.NeedsReform && opts.Reform == "" {
		return nil, fmt.Errorf("recipe %q: %w", rec.Name, common.ErrMissingReform)
	}

	scheme, err := rec.Resolve(opts.Catalog, opts.Scheme)
	if err != nil {
		return nil, err
	}

	var (
		base, ref             *model.Dataset
		baseRecs, reformRecs []model.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var loadErr error
		base, baseRecs, loadErr = load(gctx, store, opts.Baseline)
		return loadErr
	})
	if rec.NeedsReform {
		g.Go(func() error {
			var loadErr error
			ref, reformRecs, loadErr = load(gctx, store, opts.Reform)
			return loadErr
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := baseRecs
	subtitle := fmt.Sprintf("%s (%d records)", base.Name, len(baseRecs))
	if rec.NeedsReform {
		if base.Year != ref.Year {
			return nil, fmt.Errorf("%w: baseline %q is %d, reform %q is %d",
				common.ErrYearMismatch, base.Name, base.Year, ref.Name, ref.Year)
		}
		if ref.Scenario != model.ScenarioReform {
			slog.Warn("Reform dataset was not imported as a reform scenario",
				"dataset", ref.Name, "scenario", ref.Scenario)
		}
		records, err = compare.Join(baseRecs, reformRecs, rec.Variables)
		if err != nil {
			return nil, fmt.Errorf("failed to join %q with %q: %w", base.Name, ref.Name, err)
		}
		subtitle = fmt.Sprintf("%s vs %s (%d records)", base.Name, ref.Name, len(records))
		if ref.ReformName != "" {
			subtitle += ", reform " + ref.ReformName
		}
	}

	req := rec.Build(base.Year)
	req.CountScale = opts.CountScale
	req.AmountScale = opts.AmountScale

	table, err := aggregate.Tabulate(records, scheme, req)
	if err != nil {
		return nil, fmt.Errorf("recipe %q: %w", rec.Name, err)
	}
	table.Subtitle = subtitle

	slog.Debug("Recipe tabulated",
		"recipe", rec.Name,
		"scheme", scheme.Name,
		"records", len(records),
		"rows", len(table.Rows))

	return &Result{Recipe: rec, Table: table, Baseline: base, Reform: ref}, nil
}

func load(ctx context.Context, store Store, name string) (*model.Dataset, []model.Record, error) {
	dataset, err := store.GetDatasetByName(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	records, err := store.GetRecords(ctx, dataset.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("dataset %q: %w", name, common.ErrNoRecords)
	}
	return dataset, records, nil
}
