package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/taxtab/internal/aggregate"
	"github.com/Veraticus/taxtab/internal/cli"
	"github.com/Veraticus/taxtab/internal/config"
	"github.com/Veraticus/taxtab/internal/model"
	"github.com/Veraticus/taxtab/internal/recipe"
	"github.com/Veraticus/taxtab/internal/report"
	"github.com/Veraticus/taxtab/internal/sheets"
	"github.com/Veraticus/taxtab/internal/tui"
)

// Output formats accepted by --format.
const (
	formatText   = "text"
	formatStyled = "styled"
	formatJSON   = "json"
	formatXLSX   = "xlsx"
	formatSheets = "sheets"
)

// newTableWriter builds the Google Sheets publisher. Tests replace it.
var newTableWriter = func(ctx context.Context) (sheets.TableWriter, error) {
	cfg, err := config.LoadSheetsConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return sheets.NewWriter(ctx, *cfg, slog.Default())
}

type tabulateOptions struct {
	baseline    string
	reform      string
	scheme      string
	binsFile    string
	format      string
	output      string
	interactive bool
	save        bool
}

func tabulateCmd() *cobra.Command {
	var opts tabulateOptions

	cmd := &cobra.Command{
		Use:   "tabulate <recipe>...",
		Short: "Build distribution tables from stored datasets",
		Long: `Tabulate runs one or more recipes against a baseline dataset and, for
recipes that compare scenarios, a reform dataset of the same year.

Tables can be printed as plain text, as a styled terminal table, as JSON,
written to an Excel workbook, published to Google Sheets, or browsed
interactively.`,
		Example: `  taxtab tabulate eitc --baseline base-2024
  taxtab tabulate revenue response --baseline base-2024 --reform ctc-2024
  taxtab tabulate charity --baseline base-2024 --reform ctc-2024 --format xlsx --output charity.xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTabulate(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.baseline, "baseline", "b", "", "baseline dataset name")
	cmd.Flags().StringVarP(&opts.reform, "reform", "r", "", "reform dataset name")
	cmd.Flags().StringVarP(&opts.scheme, "scheme", "s", "", "bin scheme overriding the recipe's default")
	cmd.Flags().StringVar(&opts.binsFile, "bins-file", "", "YAML file with extra bin schemes")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "output format (text, styled, json, xlsx, sheets)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (required for xlsx)")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "browse the tables in an interactive viewer")
	cmd.Flags().BoolVar(&opts.save, "save", false, "keep the rendered tables in report history")

	_ = cmd.MarkFlagRequired("baseline")

	return cmd
}

func runTabulate(cmd *cobra.Command, recipes []string, opts tabulateOptions) error {
	ctx := cmd.Context()

	switch opts.format {
	case formatText, formatStyled, formatJSON, formatSheets:
	case formatXLSX:
		if opts.output == "" && !opts.interactive {
			return fmt.Errorf("--output is required for xlsx")
		}
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}

	store, settings, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	catalog, err := loadCatalog(settings, opts.binsFile)
	if err != nil {
		return err
	}

	registry := recipe.NewRegistry()
	results := make([]*recipe.Result, 0, len(recipes))
	for _, name := range recipes {
		result, err := registry.Run(ctx, store, recipe.RunOptions{
			Catalog:     catalog,
			Recipe:      name,
			Baseline:    opts.baseline,
			Reform:      opts.reform,
			Scheme:      opts.scheme,
			CountScale:  settings.CountScale,
			AmountScale: settings.AmountScale,
		})
		if err != nil {
			return err
		}
		slog.Debug("Tabulated recipe", "recipe", name, "scheme", result.Table.Scheme, "records", result.Table.Records)
		results = append(results, result)
	}

	tables := make([]*aggregate.Table, len(results))
	for i, r := range results {
		tables[i] = r.Table
	}

	if opts.save {
		for _, r := range results {
			run := &model.ReportRun{
				Recipe:            r.Recipe.Name,
				Scheme:            r.Table.Scheme,
				Title:             r.Table.Title,
				Rendered:          report.Render(r.Table),
				BaselineDatasetID: r.Baseline.ID,
			}
			if r.Reform != nil {
				run.ReformDatasetID = r.Reform.ID
			}
			if err := store.SaveReportRun(ctx, run); err != nil {
				return err
			}
		}
	}

	if opts.interactive {
		return tui.Run(ctx, tables...)
	}

	out := cmd.OutOrStdout()
	switch opts.format {
	case formatSheets:
		writer, err := newTableWriter(ctx)
		if err != nil {
			return err
		}
		url, err := writer.Write(ctx, tables...)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatSuccess("Published to "+url))
		return nil
	case formatXLSX:
		return writeWorkbooks(out, opts.output, results)
	}

	if opts.output == "" {
		return writeTables(out, formatterFor(opts.format), tables)
	}
	return writeTablesToFile(opts.output, formatterFor(opts.format), tables)
}

func writeTablesToFile(path string, f report.Formatter, tables []*aggregate.Table) error {
	file, err := os.Create(path) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeTables(file, f, tables); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func formatterFor(format string) report.Formatter {
	switch format {
	case formatStyled:
		return report.NewStyledFormatter()
	case formatJSON:
		return report.JSONFormatter{}
	default:
		return report.NewTextFormatter()
	}
}

func writeTables(w io.Writer, f report.Formatter, tables []*aggregate.Table) error {
	for i, t := range tables {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := f.Format(w, t); err != nil {
			return err
		}
	}
	return nil
}

// writeWorkbooks writes one workbook per table. With several tables the
// recipe name is added to the file name.
func writeWorkbooks(out io.Writer, path string, results []*recipe.Result) error {
	for _, r := range results {
		target := path
		if len(results) > 1 {
			ext := filepath.Ext(path)
			target = strings.TrimSuffix(path, ext) + "-" + r.Recipe.Name + ext
		}

		f, err := os.Create(target) // #nosec G304
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		formatter := report.XLSXFormatter{SheetName: r.Recipe.Name}
		if err := formatter.Format(f, r.Table); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", target, err)
		}
		fmt.Fprintln(out, cli.FormatSuccess("Wrote "+target))
	}
	return nil
}
