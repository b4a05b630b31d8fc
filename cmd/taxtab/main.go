package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/taxtab/internal/cli"
	"github.com/Veraticus/taxtab/internal/common"
	"github.com/Veraticus/taxtab/internal/config"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "taxtab",
		Short: cli.LedgerIcon + " Distributional tables from tax microsimulation output",
		Long: `taxtab imports the per-record output of a tax microsimulation, keeps it in a
local database, and turns it into weighted distribution tables: counts, dollar
totals, and ratios grouped by income bins, for a baseline and a reform.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd, cfgFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/taxtab/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("db", "", "database path (default: ~/.local/share/taxtab/taxtab.db)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(datasetsCmd())
	rootCmd.AddCommand(reformCmd())
	rootCmd.AddCommand(binsCmd())
	rootCmd.AddCommand(recipesCmd())
	rootCmd.AddCommand(tabulateCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(sheetsCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	interrupts := cli.NewInterruptHandler(os.Stderr)
	ctx = interrupts.HandleInterrupts(ctx)

	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil && interrupts.WasInterrupted() {
		os.Exit(130)
	}

	if err != nil {
		var userErr *common.UserError
		if errors.As(err, &userErr) {
			fmt.Fprintln(os.Stderr, cli.FormatError(userErr.Error()))
		} else {
			fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		}
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TAXTAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if db, _ := cmd.Flags().GetString("db"); db != "" {
		viper.Set("database.path", db)
	}

	if err := setupLogging(); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	slog.Debug("Configuration loaded", "file", viper.ConfigFileUsed())
	return nil
}

func setupLogging() error {
	level, err := common.ParseLevel(viper.GetString("logging.level"))
	if err != nil {
		return err
	}
	return common.SetupLogger(level, viper.GetString("logging.format"))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taxtab %s\n", version)
		},
	}
}
