package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/taxtab/internal/cli"
	"github.com/Veraticus/taxtab/internal/common"
	"github.com/Veraticus/taxtab/internal/model"
	"github.com/Veraticus/taxtab/internal/service"
)

func datasetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"ds"},
		Short:   "Manage imported datasets",
	}

	cmd.AddCommand(listDatasetsCmd())
	cmd.AddCommand(showDatasetCmd())
	cmd.AddCommand(deleteDatasetCmd())

	return cmd
}

func listDatasetsCmd() *cobra.Command {
	var (
		year     int
		scenario string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List imported datasets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			filter := service.DatasetFilter{Year: year}
			if scenario != "" {
				sc, err := model.ParseScenario(scenario)
				if err != nil {
					return common.NewUserError(err.Error(), common.ErrInvalidConfig)
				}
				filter.Scenario = sc
			}

			store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			datasets, err := store.ListDatasets(ctx, filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(datasets) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No datasets found. Import one with 'taxtab import'."))
				return nil
			}

			rows := make([][]string, 0, len(datasets))
			for _, d := range datasets {
				rows = append(rows, datasetRow(d))
			}
			fmt.Fprintln(out, listTable([]string{"ID", "Name", "Year", "Scenario", "Reform", "Records", "Imported"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "only datasets for this year")
	cmd.Flags().StringVar(&scenario, "scenario", "", "only baseline or reform datasets")

	return cmd
}

func showDatasetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a dataset's metadata and variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			dataset, err := store.GetDatasetByName(ctx, args[0])
			if err != nil {
				return err
			}
			records, err := store.GetRecords(ctx, dataset.ID)
			if err != nil {
				return err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Year:       %d\n", dataset.Year)
			fmt.Fprintf(&b, "Scenario:   %s\n", dataset.Scenario)
			if dataset.ReformName != "" {
				fmt.Fprintf(&b, "Reform:     %s\n", dataset.ReformName)
			}
			fmt.Fprintf(&b, "Source:     %s\n", dataset.Source)
			fmt.Fprintf(&b, "Weight:     %s (total %.1f)\n", dataset.WeightColumn, model.TotalWeight(records))
			fmt.Fprintf(&b, "Records:    %d\n", dataset.RecordCount)
			fmt.Fprintf(&b, "Variables:  %s", strings.Join(dataset.Variables, ", "))

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(dataset.Name, b.String()))
			return nil
		},
	}
}

func deleteDatasetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a dataset and its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !yes {
				return common.NewUserError("refusing to delete without --yes", common.ErrInvalidConfig)
			}

			store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			dataset, err := store.GetDatasetByName(ctx, args[0])
			if err != nil {
				return err
			}
			if err := store.DeleteDataset(ctx, dataset.ID); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted %s (%d records)", dataset.Name, dataset.RecordCount)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")

	return cmd
}
