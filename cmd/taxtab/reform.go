package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/taxtab/internal/cli"
	"github.com/Veraticus/taxtab/internal/reform"
)

func reformCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reform",
		Short: "Record the policy reforms reform datasets were simulated under",
		Long: `Reforms are JSON documents mapping policy parameters to per-year values.
taxtab does not apply them; it keeps them so tables can say which reform a
reform dataset came from.`,
	}

	cmd.AddCommand(fetchReformCmd())
	cmd.AddCommand(listReformsCmd())
	cmd.AddCommand(showReformCmd())

	return cmd
}

func fetchReformCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "fetch <file-or-url>",
		Short: "Load a reform from a file or URL and store it",
		Example: `  taxtab reform fetch ./reforms/ctc.json
  taxtab reform fetch https://example.org/reforms/2017_law.json --name tcja`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, settings, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			loader := reform.NewLoader(settings.ReformTimeout, settings.ReformRetryAttempts)
			r, err := loader.Load(ctx, args[0])
			if err != nil {
				return err
			}
			if name != "" {
				r.Name = name
			}

			if err := store.SaveReform(ctx, r); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Stored reform %s: %d parameters, years %s",
				r.Name, len(r.Parameters), strings.Join(r.Years(), ", "))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "reform name (default: file name without extension)")

	return cmd
}

func listReformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored reforms",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			reforms, err := store.ListReforms(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(reforms) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No reforms stored. Add one with 'taxtab reform fetch'."))
				return nil
			}

			rows := make([][]string, 0, len(reforms))
			for _, r := range reforms {
				rows = append(rows, []string{
					r.Name,
					strconv.Itoa(len(r.Parameters)),
					strings.Join(r.Years(), ", "),
					r.Source,
				})
			}
			fmt.Fprintln(out, listTable([]string{"Name", "Parameters", "Years", "Source"}, rows))
			return nil
		},
	}
}

func showReformCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a stored reform's parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			r, err := store.GetReform(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if raw {
				fmt.Fprintln(out, r.Raw)
				return nil
			}
			fmt.Fprintln(out, cli.RenderBox(r.Name, strings.Join(reform.Summary(r), "\n")))
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the reform document as fetched")

	return cmd
}
