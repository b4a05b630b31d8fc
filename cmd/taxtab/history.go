package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/taxtab/internal/cli"
	"github.com/Veraticus/taxtab/internal/storage"
)

func historyCmd() *cobra.Command {
	var (
		limit int
		full  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show tables saved with 'tabulate --save'",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListReportRuns(ctx, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No saved tables yet."))
				return nil
			}

			if full {
				for _, run := range runs {
					title := fmt.Sprintf("#%d %s (%s)", run.ID, run.Recipe, run.CreatedAt.Local().Format("2006-01-02 15:04"))
					fmt.Fprintln(out, cli.RenderBox(title, run.Rendered))
				}
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					strconv.FormatInt(run.ID, 10),
					run.Recipe,
					run.Scheme,
					run.Title,
					run.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, listTable([]string{"ID", "Recipe", "Scheme", "Title", "Created"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", storage.DefaultHistoryLimit, "number of runs to show")
	cmd.Flags().BoolVar(&full, "full", false, "print each saved table")

	return cmd
}
