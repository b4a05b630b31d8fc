// Package sheets publishes tabulated reports to Google Sheets.
package sheets

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// DefaultSpreadsheetName is used when a new spreadsheet has to be created.
const DefaultSpreadsheetName = "Tax Tables"

// ErrNoAuth is returned when neither OAuth2 nor a service account is configured.
var ErrNoAuth = errors.New("no authentication method configured: provide either a service account path or OAuth2 credentials")

// Config holds the configuration for the Google Sheets writer.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	TimeZone           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SpreadsheetName:  DefaultSpreadsheetName,
		EnableFormatting: true,
		TimeZone:         "America/New_York",
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// LoadFromEnv fills unset fields from GOOGLE_SHEETS_* environment variables.
func (c *Config) LoadFromEnv() error {
	setIfEmpty := func(field *string, key string) {
		if *field == "" {
			*field = os.Getenv(key)
		}
	}
	setIfEmpty(&c.ClientID, "GOOGLE_SHEETS_CLIENT_ID")
	setIfEmpty(&c.ClientSecret, "GOOGLE_SHEETS_CLIENT_SECRET")
	setIfEmpty(&c.RefreshToken, "GOOGLE_SHEETS_REFRESH_TOKEN")
	setIfEmpty(&c.ServiceAccountPath, "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")
	setIfEmpty(&c.SpreadsheetID, "GOOGLE_SHEETS_SPREADSHEET_ID")
	if v := os.Getenv("GOOGLE_SHEETS_SPREADSHEET_NAME"); v != "" &&
		(c.SpreadsheetName == "" || c.SpreadsheetName == DefaultSpreadsheetName) {
		c.SpreadsheetName = v
	}

	if c.SpreadsheetName == "" {
		c.SpreadsheetName = DefaultSpreadsheetName
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return ErrNoAuth
	}

	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("multiple authentication methods configured; use either OAuth2 or service account")
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	return nil
}
