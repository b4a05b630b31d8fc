package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/taxtab/internal/aggregate"
	"github.com/Veraticus/taxtab/internal/common"
)

func sampleTable() *aggregate.Table {
	return &aggregate.Table{
		Title:       "EITC recipients by AGI category, 2023",
		Subtitle:    "base-2023 (3 records)",
		Scheme:      "agi",
		LabelHeader: "AGI category",
		Columns: []aggregate.Column{
			{Name: "num(#m)", Precision: 3},
			{Name: "amt($B)", Precision: 3},
			{Name: "avg($K)", Precision: 3},
		},
		Rows: []aggregate.Row{
			{Label: "[-inf, 1)", Count: 0, Amounts: []float64{0}, Ratio: math.NaN()},
			{Label: "[1, 5000)", Count: 3.391, Amounts: []float64{1.624}, Ratio: 0.479},
		},
		Total:    aggregate.Row{Label: aggregate.TotalLabel, Count: 3.391, Amounts: []float64{1.624}, Ratio: 0.479},
		HasRatio: true,
	}
}

func TestPrepareValues(t *testing.T) {
	l := prepareValues(sampleTable())

	require.Len(t, l.values, 7)
	assert.Equal(t, []any{"EITC recipients by AGI category, 2023"}, l.values[0])
	assert.Equal(t, []any{"base-2023 (3 records)"}, l.values[1])
	assert.Empty(t, l.values[2])
	assert.Equal(t, 3, l.headerRow)
	assert.Equal(t, []any{"AGI category", "num(#m)", "amt($B)", "avg($K)"}, l.values[3])
	assert.Equal(t, []any{"[-inf, 1)", 0.0, 0.0, "nan"}, l.values[4])
	assert.Equal(t, 6, l.totalRow)
	assert.Equal(t, "ALL", l.values[6][0])
}

func TestFormatRequests(t *testing.T) {
	table := sampleTable()
	l := prepareValues(table)
	requests := formatRequests(42, table, l)

	// header, total, title, three number columns, resize, freeze
	require.Len(t, requests, 8)
	for _, r := range requests[3:6] {
		require.NotNil(t, r.RepeatCell)
		assert.Equal(t, int64(42), r.RepeatCell.Range.SheetId)
		assert.Equal(t, "#,##0.000", r.RepeatCell.Cell.UserEnteredFormat.NumberFormat.Pattern)
	}
	freeze := requests[7].UpdateSheetProperties
	require.NotNil(t, freeze)
	assert.Equal(t, int64(4), freeze.Properties.GridProperties.FrozenRowCount)
}

func TestNumberPattern(t *testing.T) {
	assert.Equal(t, "#,##0", numberPattern(0))
	assert.Equal(t, "#,##0.00", numberPattern(2))
}

func TestTabTitles(t *testing.T) {
	a := sampleTable()
	b := sampleTable()
	c := &aggregate.Table{Scheme: "wage"}

	titles := tabTitles([]*aggregate.Table{a, b, c})
	assert.Len(t, titles[0], 31)
	assert.True(t, strings.HasSuffix(titles[1], " (2)"))
	assert.LessOrEqual(t, len(titles[1]), 31)
	assert.Equal(t, "wage", titles[2])
}

// fakeSheetsAPI records the calls the writer makes.
type fakeSheetsAPI struct {
	updates     map[string][][]any
	created     []string
	mu          sync.Mutex
	clears      int
	batchUpdate int
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/v4/spreadsheets"):
		var req sheets.Spreadsheet
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := sheets.Spreadsheet{SpreadsheetId: "sheet-123", SpreadsheetUrl: "https://example.test/sheet-123"}
		for i, sh := range req.Sheets {
			f.created = append(f.created, sh.Properties.Title)
			resp.Sheets = append(resp.Sheets, &sheets.Sheet{
				Properties: &sheets.SheetProperties{Title: sh.Properties.Title, SheetId: int64(i + 1)},
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	case strings.HasSuffix(path, ":clear"):
		f.clears++
		_, _ = w.Write([]byte(`{}`))
	case strings.HasSuffix(path, ":batchUpdate"):
		f.batchUpdate++
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-123"}`))
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		rng := path[strings.Index(path, "/values/")+len("/values/"):]
		f.updates[rng] = vr.Values
		_, _ = w.Write([]byte(`{}`))
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func TestWriter_WriteCreatesSpreadsheet(t *testing.T) {
	api := &fakeSheetsAPI{updates: make(map[string][][]any)}
	server := httptest.NewServer(api)
	defer server.Close()

	ctx := context.Background()
	srv, err := sheets.NewService(ctx,
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	config := DefaultConfig()
	config.ServiceAccountPath = "unused"
	config.RetryDelay = time.Millisecond
	w := &Writer{service: srv, config: config, logger: slog.New(slog.NewTextHandler(os.Stderr, nil))}

	wage := &aggregate.Table{
		Scheme:      "wage",
		LabelHeader: "earnings group",
		Columns:     []aggregate.Column{{Name: "count", Precision: 3}},
		Rows:        []aggregate.Row{{Label: "<50K", Count: 1, Ratio: math.NaN()}},
		Total:       aggregate.Row{Label: aggregate.TotalLabel, Count: 1, Ratio: math.NaN()},
	}
	url, err := w.Write(ctx, sampleTable(), wage)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/sheet-123", url)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Len(t, api.created, 2)
	assert.Equal(t, 2, api.clears)
	assert.Equal(t, 2, api.batchUpdate)
	assert.Equal(t, "sheet-123", w.config.SpreadsheetID)

	values, ok := api.updates["'wage'!A1"]
	require.True(t, ok, "updates: %v", api.updates)
	require.Len(t, values, 3)
	assert.Equal(t, []any{"earnings group", "count"}, values[0])
	assert.Equal(t, []any{"ALL", 1.0}, values[2])
}

func TestWriter_ClientErrorNotRetried(t *testing.T) {
	var calls int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "The caller does not have permission"}}`))
	}))
	defer server.Close()

	ctx := context.Background()
	srv, err := sheets.NewService(ctx,
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	config := DefaultConfig()
	config.RetryDelay = time.Millisecond
	w := &Writer{service: srv, config: config, logger: slog.Default()}

	_, err = w.Write(ctx, sampleTable())
	require.Error(t, err)

	var apiErr *googleapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Code)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.Equal(t, assert.AnError, classify(assert.AnError))

	throttled := classify(&googleapi.Error{Code: http.StatusTooManyRequests})
	assert.ErrorIs(t, throttled, common.ErrRateLimit)

	var retryable *common.RetryableError
	require.ErrorAs(t, classify(&googleapi.Error{Code: http.StatusNotFound}), &retryable)
	assert.False(t, retryable.Retryable)

	server := classify(&googleapi.Error{Code: http.StatusServiceUnavailable})
	assert.False(t, errors.As(server, &retryable))
}

func TestWriter_NoTables(t *testing.T) {
	w := &Writer{config: DefaultConfig(), logger: slog.Default()}
	_, err := w.Write(context.Background())
	assert.ErrorIs(t, err, ErrNoTables)
}

func TestMockWriter(t *testing.T) {
	m := NewMockWriter("https://example.test")
	url, err := m.Write(context.Background(), sampleTable())
	require.NoError(t, err)
	assert.Equal(t, "https://example.test", url)
	assert.Len(t, m.Calls(), 1)

	m.SetWriteError(assert.AnError)
	_, err = m.Write(context.Background(), sampleTable())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Len(t, m.Calls(), 1)
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}

	require.NoError(t, saveToken(path, token))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "r", loaded.RefreshToken)

	same, err := RefreshTokenIfNeeded(context.Background(), OAuth2Config{}, loaded)
	require.NoError(t, err)
	assert.Equal(t, "a", same.AccessToken)
}
