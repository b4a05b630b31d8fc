package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/taxtab/internal/cli"
)

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <file>",
		Short: "Copy the database to a new file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			info, err := store.Backup(ctx, args[0])
			if err != nil {
				return err
			}

			tables := make([]string, 0, len(info.RowCounts))
			for name := range info.RowCounts {
				tables = append(tables, name)
			}
			sort.Strings(tables)

			var b strings.Builder
			fmt.Fprintf(&b, "Path: %s\nSize: %d bytes\n", info.Path, info.Size)
			for _, name := range tables {
				fmt.Fprintf(&b, "%s: %d rows\n", name, info.RowCounts[name])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess("Backup written"))
			fmt.Fprintln(out, cli.RenderBox(cli.FolderIcon+" Backup", strings.TrimRight(b.String(), "\n")))
			return nil
		},
	}
}
