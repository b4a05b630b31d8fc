package config

import (
	"github.com/spf13/viper"

	"github.com/Veraticus/taxtab/internal/sheets"
)

// LoadSheetsConfig loads Google Sheets configuration from Viper and environment variables.
// It follows this precedence:
// 1. Viper configuration (from config file or TAXTAB_SHEETS_* env vars)
// 2. Direct environment variables (GOOGLE_SHEETS_*)
// 3. Default values
func LoadSheetsConfig(v *viper.Viper) (*sheets.Config, error) {
	config := sheets.DefaultConfig()

	config.ServiceAccountPath = ExpandPath(v.GetString("sheets.service_account_path"))
	config.ClientID = v.GetString("sheets.client_id")
	config.ClientSecret = v.GetString("sheets.client_secret")
	config.RefreshToken = v.GetString("sheets.refresh_token")
	config.SpreadsheetID = v.GetString("sheets.spreadsheet_id")
	if name := v.GetString("sheets.spreadsheet_name"); name != "" {
		config.SpreadsheetName = name
	}
	if v.IsSet("sheets.retry_attempts") {
		config.RetryAttempts = v.GetInt("sheets.retry_attempts")
	}
	if v.IsSet("sheets.formatting") {
		config.EnableFormatting = v.GetBool("sheets.formatting")
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, err
	}
	config.ServiceAccountPath = ExpandPath(config.ServiceAccountPath)

	// Fall back to the token saved by 'taxtab sheets auth'.
	if config.RefreshToken == "" && config.ClientID != "" {
		if token, err := sheets.LoadToken(SheetsTokenFile(v)); err == nil {
			config.RefreshToken = token.RefreshToken
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SheetsTokenFile is where the interactive OAuth flow stores its token.
func SheetsTokenFile(v *viper.Viper) string {
	if path := v.GetString("sheets.token_file"); path != "" {
		return ExpandPath(path)
	}
	return ExpandPath(ConfigDir() + "/sheets-token.json")
}
