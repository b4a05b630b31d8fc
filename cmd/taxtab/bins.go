package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/taxtab/internal/binning"
	"github.com/Veraticus/taxtab/internal/cli"
	"github.com/Veraticus/taxtab/internal/config"
)

// loadCatalog builds the scheme catalog from config plus an optional bins file.
func loadCatalog(settings *config.Settings, binsFile string) (*binning.Catalog, error) {
	var extra map[string]binning.Definition
	if binsFile != "" {
		defs, err := config.LoadSchemeFile(binsFile)
		if err != nil {
			return nil, err
		}
		extra = defs
	}
	return settings.Catalog(extra)
}

func binsCmd() *cobra.Command {
	var binsFile string

	cmd := &cobra.Command{
		Use:   "bins [scheme]",
		Short: "List bin schemes or show one scheme's bins",
		Long: `Bin schemes partition records by one variable into half-open intervals.
Built-in schemes are wage, agi, and total; more can be defined under 'bins' in
the config file or in a separate YAML file passed with --file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(settings, binsFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				rows := make([][]string, 0)
				for _, name := range catalog.Names() {
					scheme, err := catalog.Get(name)
					if err != nil {
						return err
					}
					rows = append(rows, []string{name, scheme.Key, strconv.Itoa(scheme.Len())})
				}
				fmt.Fprintln(out, listTable([]string{"Scheme", "Key", "Bins"}, rows))
				return nil
			}

			scheme, err := catalog.Get(args[0])
			if err != nil {
				return err
			}
			rows := make([][]string, 0, scheme.Len())
			for i, bin := range scheme.Bins {
				rows = append(rows, []string{strconv.Itoa(i), bin.Label, bin.String()})
			}
			fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s %s (key %s)", cli.ChartIcon, scheme.Name, scheme.Key)))
			fmt.Fprintln(out, listTable([]string{"#", "Label", "Interval"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&binsFile, "file", "", "YAML file with extra bin schemes")

	return cmd
}
