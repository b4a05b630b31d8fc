package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/taxtab/internal/recipe"
)

func recipesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recipes",
		Short: "List the tables taxtab knows how to build",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list := recipe.NewRegistry().List()
			rows := make([][]string, 0, len(list))
			for _, rec := range list {
				needs := "baseline"
				if rec.NeedsReform {
					needs = "baseline + reform"
				}
				rows = append(rows, []string{rec.Name, rec.Scheme, needs, strings.Join(rec.Variables, ", "), rec.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), listTable([]string{"Recipe", "Scheme", "Needs", "Reads", "Description"}, rows))
			return nil
		},
	}
}
