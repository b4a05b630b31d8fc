package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/viper"

	"github.com/Veraticus/taxtab/internal/cli"
	"github.com/Veraticus/taxtab/internal/config"
	"github.com/Veraticus/taxtab/internal/model"
	"github.com/Veraticus/taxtab/internal/storage"
)

// loadSettings resolves the typed configuration from viper.
func loadSettings() (*config.Settings, error) {
	return config.Load(viper.GetViper())
}

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context, settings *config.Settings) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// openStore is loadSettings followed by initStorage.
func openStore(ctx context.Context) (*storage.SQLiteStorage, *config.Settings, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}
	store, err := initStorage(ctx, settings)
	if err != nil {
		return nil, nil, err
	}
	return store, settings, nil
}

// listTable renders rows in the same rounded style as report tables.
func listTable(headers []string, rows [][]string) string {
	headerStyle := cli.BoldStyle.Padding(0, 1).Foreground(cli.PrimaryColor)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(cli.SubtleColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}

func datasetRow(d model.Dataset) []string {
	reform := d.ReformName
	if reform == "" {
		reform = "-"
	}
	return []string{
		strconv.FormatInt(d.ID, 10),
		d.Name,
		strconv.Itoa(d.Year),
		string(d.Scenario),
		reform,
		strconv.Itoa(d.RecordCount),
		d.CreatedAt.Local().Format("2006-01-02 15:04"),
	}
}
