package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/taxtab/internal/cli"
	"github.com/Veraticus/taxtab/internal/config"
	"github.com/Veraticus/taxtab/internal/sheets"
)

func sheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Google Sheets publishing",
	}
	cmd.AddCommand(sheetsAuthCmd())
	return cmd
}

func sheetsAuthCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize taxtab to write spreadsheets with your Google account",
		Long: `Runs the OAuth2 browser flow using sheets.client_id and sheets.client_secret
and stores the resulting token. Later 'tabulate --format sheets' runs use the
stored refresh token. Service-account setups do not need this.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := viper.GetViper()
			clientID := v.GetString("sheets.client_id")
			clientSecret := v.GetString("sheets.client_secret")
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("sheets.client_id and sheets.client_secret must be configured")
			}

			tokenFile := config.SheetsTokenFile(v)
			token, err := sheets.GetOrCreateToken(cmd.Context(), sheets.OAuth2Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				TokenFile:    tokenFile,
				Port:         port,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess("Google Sheets authorized; token stored in "+tokenFile))
			if token.RefreshToken == "" {
				fmt.Fprintln(out, cli.FormatWarning("No refresh token was issued; revoke access and run 'taxtab sheets auth' again."))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", sheets.DefaultCallbackPort, "local port for the OAuth callback")

	return cmd
}
