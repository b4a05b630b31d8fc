package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/taxtab/internal/cli"
	"github.com/Veraticus/taxtab/internal/common"
	"github.com/Veraticus/taxtab/internal/ingest"
	"github.com/Veraticus/taxtab/internal/model"
)

func importCmd() *cobra.Command {
	var (
		name         string
		year         int
		scenario     string
		reformName   string
		idColumn     string
		weightColumn string
		columns      []string
		dryRun       bool
		noProgress   bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import simulation output files as datasets",
		Long: `Import per-record simulation output into the local database.

CSV, XLSX, and XLS files are supported. The header row names the columns; the
id and weight columns are configurable and every other column becomes a
variable. Each file becomes one dataset, named after the file unless --name is
given.`,
		Example: `  # Import a baseline and a reform run for 2023
  taxtab import base-2023.csv --year 2023
  taxtab import ref-2023.csv --year 2023 --scenario reform --reform-name ctc

  # Keep only the variables the recipes need
  taxtab import puf.xlsx --year 2024 --columns c00100,e00200,eitc,combined`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if name != "" && len(args) > 1 {
				return common.NewUserError("--name can only be used when importing a single file", common.ErrInvalidConfig)
			}
			if year == 0 {
				return common.NewUserError("--year is required", common.ErrMissingConfig)
			}
			sc, err := model.ParseScenario(scenario)
			if err != nil {
				return common.NewUserError(err.Error(), common.ErrInvalidConfig)
			}
			if reformName != "" && sc != model.ScenarioReform {
				slog.Warn("--reform-name given for a baseline dataset", "reform", reformName)
			}

			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if idColumn == "" {
				idColumn = settings.IDColumn
			}
			if weightColumn == "" {
				weightColumn = settings.WeightColumn
			}

			var total int64
			for _, path := range args {
				info, statErr := os.Stat(path)
				if statErr != nil {
					return fmt.Errorf("failed to stat %s: %w", path, statErr)
				}
				total += info.Size()
			}

			opts := ingest.Options{
				IDColumn:     idColumn,
				WeightColumn: weightColumn,
				Columns:      columns,
			}
			var progress *cli.Progress
			if !noProgress {
				progress = cli.NewProgress(cmd.ErrOrStderr(), total, "reading")
				opts.Progress = progress.Add
			}

			results, err := ingest.LoadAll(ctx, args, opts)
			if progress != nil {
				progress.Finish()
			}
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintln(out, cli.FormatWarning("Dry run mode - not saving to database"))
				for i, records := range results {
					fmt.Fprintf(out, "%s: %d records, %d variables, weight %.1f\n",
						args[i], len(records), len(model.VariableNames(records)), model.TotalWeight(records))
				}
				return nil
			}

			store, err := initStorage(ctx, settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			for i, records := range results {
				datasetName := name
				if datasetName == "" {
					datasetName = strings.TrimSuffix(filepath.Base(args[i]), filepath.Ext(args[i]))
				}
				source, absErr := filepath.Abs(args[i])
				if absErr != nil {
					source = args[i]
				}
				dataset := &model.Dataset{
					Name:         datasetName,
					Year:         year,
					Scenario:     sc,
					Source:       source,
					ReformName:   reformName,
					WeightColumn: weightColumn,
				}
				if err := store.SaveDataset(ctx, dataset, records); err != nil {
					return fmt.Errorf("failed to save %s: %w", datasetName, err)
				}
				common.LogInfo("Dataset imported", common.Fields{
					"dataset":   datasetName,
					"id":        dataset.ID,
					"year":      year,
					"scenario":  string(sc),
					"records":   dataset.RecordCount,
					"variables": len(dataset.Variables),
				})
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %s: %d records, %d variables",
					datasetName, dataset.RecordCount, len(dataset.Variables))))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "dataset name (default: file name without extension)")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "analysis year the file was simulated for")
	cmd.Flags().StringVarP(&scenario, "scenario", "s", string(model.ScenarioBaseline), "baseline or reform")
	cmd.Flags().StringVar(&reformName, "reform-name", "", "name of the reform a reform dataset was simulated under")
	cmd.Flags().StringVar(&idColumn, "id-column", "", "record id column (default from import.id_column)")
	cmd.Flags().StringVar(&weightColumn, "weight-column", "", "weight column (default from import.weight_column)")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "only import these variables")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "read and summarize without saving")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")

	return cmd
}
