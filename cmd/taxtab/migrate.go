package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/taxtab/internal/cli"
	"github.com/Veraticus/taxtab/internal/storage"
)

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			settings, err := loadSettings()
			if err != nil {
				return err
			}
			store, err := storage.NewSQLiteStorage(settings.DatabasePath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			if status {
				version, err := store.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: schema version %d of %d\n", store.Path(), version, storage.ExpectedSchemaVersion)
				return nil
			}

			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database %s is at schema version %d", store.Path(), storage.ExpectedSchemaVersion)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "report the schema version without migrating")

	return cmd
}
