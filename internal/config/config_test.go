package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/taxtab/internal/common"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("TAXTAB_TEST_DIR", "/data")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "~", want: home},
		{in: "~/taxtab.db", want: filepath.Join(home, "taxtab.db")},
		{in: "$TAXTAB_TEST_DIR/puf.csv", want: "/data/puf.csv"},
		{in: "/abs/path", want: "/abs/path"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandPath(tt.in), "ExpandPath(%q)", tt.in)
	}
}

func TestDefaultDatabasePath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg")
	assert.Equal(t, "/xdg/taxtab/taxtab.db", DefaultDatabasePath())

	t.Setenv("XDG_DATA_HOME", "")
	assert.True(t, strings.HasSuffix(DefaultDatabasePath(), ".local/share/taxtab/taxtab.db"))
}

func newViper(t *testing.T, yamlConfig string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	if yamlConfig != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(yamlConfig)))
	}
	return v
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "s006", s.WeightColumn)
	assert.Equal(t, "RECID", s.IDColumn)
	assert.Equal(t, 1e-6, s.CountScale)
	assert.Equal(t, 1e-9, s.AmountScale)
	assert.Equal(t, 30*time.Second, s.ReformTimeout)
	assert.Equal(t, 3, s.ReformRetryAttempts)
	assert.Empty(t, s.Schemes)
}

func TestLoad_Bins(t *testing.T) {
	v := newViper(t, `
database:
  path: /tmp/taxtab-test.db
bins:
  deciles:
    key: c00100
    boundaries: [-.inf, 0, 50000, .inf]
    labels: [negative, low, high]
`)
	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/taxtab-test.db", s.DatabasePath)
	require.Contains(t, s.Schemes, "deciles")
	assert.True(t, math.IsInf(s.Schemes["deciles"].Boundaries[0], -1))

	catalog, err := s.Catalog(nil)
	require.NoError(t, err)
	scheme, err := catalog.Get("deciles")
	require.NoError(t, err)
	assert.Equal(t, 3, scheme.Len())

	preset, err := catalog.Get("agi")
	require.NoError(t, err)
	assert.Equal(t, "agi", preset.Name)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		yaml    string
	}{
		{
			name:    "negative count scale",
			yaml:    "report:\n  count_scale: -1\n",
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "zero amount scale",
			yaml:    "report:\n  amount_scale: 0\n",
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "zero retries",
			yaml:    "reform:\n  retry_attempts: 0\n",
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "empty weight column",
			yaml:    "import:\n  weight_column: \"\"\n",
			wantErr: common.ErrMissingConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(t, tt.yaml))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSettings_CatalogRejectsBadBins(t *testing.T) {
	s, err := Load(newViper(t, `
bins:
  broken:
    key: c00100
    boundaries: [10, 5]
    labels: [x]
`))
	require.NoError(t, err)
	_, err = s.Catalog(nil)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestLoadSchemeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bins.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bins:
  wage2:
    key: e00200
    boundaries: [-9e99, 100000, 9e99]
    labels: ["<100K", ">=100K"]
`), 0600))

	defs, err := LoadSchemeFile(path)
	require.NoError(t, err)
	require.Contains(t, defs, "wage2")
	assert.Equal(t, "e00200", defs["wage2"].Key)
	assert.Equal(t, []string{"<100K", ">=100K"}, defs["wage2"].Labels)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("bins: {}\n"), 0600))
	_, err = LoadSchemeFile(empty)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = LoadSchemeFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadSheetsConfig(t *testing.T) {
	for _, key := range []string{
		"GOOGLE_SHEETS_CLIENT_ID", "GOOGLE_SHEETS_CLIENT_SECRET", "GOOGLE_SHEETS_REFRESH_TOKEN",
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "GOOGLE_SHEETS_SPREADSHEET_ID", "GOOGLE_SHEETS_SPREADSHEET_NAME",
	} {
		t.Setenv(key, "")
	}

	v := newViper(t, `
sheets:
  service_account_path: /keys/sa.json
  spreadsheet_name: Distribution
  formatting: false
`)
	cfg, err := LoadSheetsConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "/keys/sa.json", cfg.ServiceAccountPath)
	assert.Equal(t, "Distribution", cfg.SpreadsheetName)
	assert.False(t, cfg.EnableFormatting)

	_, err = LoadSheetsConfig(newViper(t, ""))
	assert.Error(t, err)
}

func TestLoadSheetsConfig_StoredToken(t *testing.T) {
	for _, key := range []string{
		"GOOGLE_SHEETS_CLIENT_ID", "GOOGLE_SHEETS_CLIENT_SECRET", "GOOGLE_SHEETS_REFRESH_TOKEN",
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH",
	} {
		t.Setenv(key, "")
	}
	tokenFile := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(tokenFile, []byte(`{"refresh_token": "stored"}`), 0o600))

	v := newViper(t, `
sheets:
  client_id: id
  client_secret: secret
  token_file: `+tokenFile+`
`)
	cfg, err := LoadSheetsConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "stored", cfg.RefreshToken)
	assert.Equal(t, tokenFile, SheetsTokenFile(v))
}
