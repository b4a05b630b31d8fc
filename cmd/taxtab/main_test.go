package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/taxtab/internal/common"
	"github.com/Veraticus/taxtab/internal/sheets"
)

const baseCSV = `RECID,s006,c00100,eitc,combined
1,2000000,3000,2000,1000
2,1000000,3000,0,1000
3,1000000,60000,500,2000
`

const reformCSV = `RECID,s006,c00100,eitc,combined
1,2000000,3000,2000,1100
2,1000000,3000,0,1000
3,1000000,60000,500,2200
`

// setupCLI points the CLI at an empty config dir and a fresh database.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("TAXTAB_DATABASE_PATH", filepath.Join(dir, "taxtab.db"))
	t.Setenv("TAXTAB_LOGGING_LEVEL", "error")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// importFixtures imports a baseline "base" and a reform "ref" for 2024.
func importFixtures(t *testing.T, dir string) {
	t.Helper()
	base := writeFile(t, dir, "base.csv", baseCSV)
	ref := writeFile(t, dir, "ref.csv", reformCSV)

	out, err := execute(t, "import", base, "--year", "2024", "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported base: 3 records")

	_, err = execute(t, "import", ref, "--year", "2024", "--scenario", "reform", "--reform-name", "ctc", "--no-progress")
	require.NoError(t, err)
}

func TestVersion(t *testing.T) {
	setupCLI(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "taxtab dev\n", out)
}

func TestImportAndDatasets(t *testing.T) {
	dir := setupCLI(t)
	importFixtures(t, dir)

	out, err := execute(t, "datasets", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "base")
	assert.Contains(t, out, "ref")
	assert.Contains(t, out, "ctc")

	out, err = execute(t, "datasets", "list", "--scenario", "reform")
	require.NoError(t, err)
	assert.NotContains(t, out, "base")

	out, err = execute(t, "datasets", "show", "base")
	require.NoError(t, err)
	assert.Contains(t, out, "c00100")

	_, err = execute(t, "datasets", "delete", "ref")
	require.Error(t, err)

	out, err = execute(t, "datasets", "delete", "ref", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted ref (3 records)")

	_, err = execute(t, "datasets", "show", "ref")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestImport_Errors(t *testing.T) {
	dir := setupCLI(t)
	base := writeFile(t, dir, "base.csv", baseCSV)

	_, err := execute(t, "import", base, "--no-progress")
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = execute(t, "import", base, "--year", "2024", "--scenario", "other", "--no-progress")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = execute(t, "import", base, "--year", "2024", "--no-progress")
	require.NoError(t, err)
	_, err = execute(t, "import", base, "--year", "2024", "--no-progress")
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestImport_DryRun(t *testing.T) {
	dir := setupCLI(t)
	base := writeFile(t, dir, "base.csv", baseCSV)

	out, err := execute(t, "import", base, "--year", "2024", "--dry-run", "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, out, "3 records, 3 variables")

	out, err = execute(t, "datasets", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No datasets found")
}

func TestTabulate_Text(t *testing.T) {
	dir := setupCLI(t)
	importFixtures(t, dir)

	out, err := execute(t, "tabulate", "eitc", "--baseline", "base")
	require.NoError(t, err)
	assert.Contains(t, out, "EITC recipients by AGI category, 2024")
	assert.Contains(t, out, "ALL")
	assert.Contains(t, out, "avg($K)")
}

func TestTabulate_JSON(t *testing.T) {
	dir := setupCLI(t)
	importFixtures(t, dir)

	out, err := execute(t, "tabulate", "revenue", "--baseline", "base", "--reform", "ref", "--format", "json")
	require.NoError(t, err)

	var doc struct {
		Scheme string `json:"scheme"`
		Total  struct {
			Label  string     `json:"label"`
			Values []*float64 `json:"values"`
		} `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "total", doc.Scheme)
	assert.Equal(t, "ALL", doc.Total.Label)

	want := []float64{4, 5, 5.4, 0.4, 8}
	require.Len(t, doc.Total.Values, len(want))
	for i, v := range want {
		require.NotNil(t, doc.Total.Values[i])
		assert.InDelta(t, v, *doc.Total.Values[i], 1e-9)
	}
}

func TestTabulate_TextToFile(t *testing.T) {
	dir := setupCLI(t)
	importFixtures(t, dir)

	target := filepath.Join(dir, "eitc.txt")
	out, err := execute(t, "tabulate", "eitc", "--baseline", "base", "--output", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ALL")

	_, err = execute(t, "tabulate", "eitc", "--baseline", "base", "--output", filepath.Join(dir, "missing", "eitc.txt"))
	require.Error(t, err)
}

func TestTabulate_Errors(t *testing.T) {
	dir := setupCLI(t)
	importFixtures(t, dir)

	_, err := execute(t, "tabulate", "revenue", "--baseline", "base")
	assert.ErrorIs(t, err, common.ErrMissingReform)

	_, err = execute(t, "tabulate", "nope", "--baseline", "base")
	require.Error(t, err)

	_, err = execute(t, "tabulate", "eitc", "--baseline", "base", "--format", "pdf")
	require.Error(t, err)

	_, err = execute(t, "tabulate", "eitc", "--baseline", "base", "--format", "xlsx")
	require.Error(t, err)

	_, err = execute(t, "tabulate", "eitc", "--baseline", "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTabulate_XLSX(t *testing.T) {
	dir := setupCLI(t)
	importFixtures(t, dir)

	target := filepath.Join(dir, "tables.xlsx")
	out, err := execute(t, "tabulate", "eitc", "charity", "--baseline", "base", "--reform", "ref",
		"--format", "xlsx", "--output", target)
	require.NoError(t, err)
	assert.Contains(t, out, "tables-eitc.xlsx")

	for _, name := range []string{"tables-eitc.xlsx", "tables-charity.xlsx"} {
		info, statErr := os.Stat(filepath.Join(dir, name))
		require.NoError(t, statErr)
		assert.Positive(t, info.Size())
	}
}

func TestTabulate_Sheets(t *testing.T) {
	dir := setupCLI(t)
	importFixtures(t, dir)

	mock := sheets.NewMockWriter("https://docs.google.com/spreadsheets/d/abc")
	original := newTableWriter
	newTableWriter = func(context.Context) (sheets.TableWriter, error) { return mock, nil }
	t.Cleanup(func() { newTableWriter = original })

	out, err := execute(t, "tabulate", "eitc", "revenue", "--baseline", "base", "--reform", "ref", "--format", "sheets")
	require.NoError(t, err)
	assert.Contains(t, out, "https://docs.google.com/spreadsheets/d/abc")

	calls := mock.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 2)
	assert.Equal(t, "agi", calls[0][0].Scheme)
	assert.Equal(t, "total", calls[0][1].Scheme)

	writeErr := errors.New("quota exceeded")
	mock.SetWriteError(writeErr)
	_, err = execute(t, "tabulate", "eitc", "--baseline", "base", "--format", "sheets")
	assert.ErrorIs(t, err, writeErr)
}

func TestTabulate_SaveAndHistory(t *testing.T) {
	dir := setupCLI(t)
	importFixtures(t, dir)

	out, err := execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved tables")

	_, err = execute(t, "tabulate", "eitc", "--baseline", "base", "--save")
	require.NoError(t, err)
	_, err = execute(t, "tabulate", "charity", "--baseline", "base", "--reform", "ref", "--save")
	require.NoError(t, err)

	out, err = execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "eitc")
	assert.Contains(t, out, "charity")

	out, err = execute(t, "history", "--limit", "1", "--full")
	require.NoError(t, err)
	assert.Contains(t, out, "Charitable giving by AGI category, 2024")
	assert.NotContains(t, out, "EITC recipients")
}

func TestBinsFile(t *testing.T) {
	dir := setupCLI(t)
	binsFile := writeFile(t, dir, "bins.yaml", `bins:
  eitc_range:
    key: c00100
    boundaries: [-9e99, 10000, 9e99]
    labels: ["low", "high"]
`)

	out, err := execute(t, "bins")
	require.NoError(t, err)
	assert.Contains(t, out, "agi")
	assert.Contains(t, out, "wage")

	out, err = execute(t, "bins", "eitc_range", "--file", binsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "low")
	assert.Contains(t, out, "high")

	importFixtures(t, dir)
	out, err = execute(t, "tabulate", "eitc", "--baseline", "base", "--scheme", "eitc_range", "--bins-file", binsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "low")
}

func TestRecipes(t *testing.T) {
	setupCLI(t)
	out, err := execute(t, "recipes")
	require.NoError(t, err)
	for _, name := range []string{"revenue", "response", "eitc", "charity"} {
		assert.Contains(t, out, name)
	}
}

func TestReformCommands(t *testing.T) {
	dir := setupCLI(t)
	path := writeFile(t, dir, "ctc.json", `{"CTC_c": {"2024": 3000}, "II_em": {"2024": 0, "2025": 0}}`)

	out, err := execute(t, "reform", "fetch", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Stored reform ctc: 2 parameters")

	out, err = execute(t, "reform", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ctc")
	assert.Contains(t, out, "2024, 2025")

	out, err = execute(t, "reform", "show", "ctc")
	require.NoError(t, err)
	assert.Contains(t, out, "CTC_c")

	out, err = execute(t, "reform", "show", "ctc", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, `"CTC_c"`)

	_, err = execute(t, "reform", "show", "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMigrateAndBackup(t *testing.T) {
	dir := setupCLI(t)

	out, err := execute(t, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 0 of 3")

	_, err = execute(t, "migrate")
	require.NoError(t, err)

	out, err = execute(t, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 3 of 3")

	importFixtures(t, dir)
	target := filepath.Join(dir, "backup.db")
	out, err = execute(t, "backup", target)
	require.NoError(t, err)
	assert.Contains(t, out, "records: 6 rows")

	_, err = os.Stat(target)
	require.NoError(t, err)

	_, err = execute(t, "backup", target)
	require.Error(t, err)
}

func TestSheetsAuth_RequiresCredentials(t *testing.T) {
	setupCLI(t)
	_, err := execute(t, "sheets", "auth")
	require.Error(t, err)
}
