package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/taxtab/internal/aggregate"
	"github.com/Veraticus/taxtab/internal/common"
	"github.com/Veraticus/taxtab/internal/service"
)

// ErrNoTables is returned when Write is called without any tables.
var ErrNoTables = errors.New("no tables to write")

// TableWriter publishes tables somewhere and returns where they went.
type TableWriter interface {
	Write(ctx context.Context, tables ...*aggregate.Table) (string, error)
}

// Writer writes each table to its own tab of a Google spreadsheet.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

var _ TableWriter = (*Writer)(nil)

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{config: config, service: srv, logger: logger}, nil
}

// Write publishes tables and returns the spreadsheet URL.
func (w *Writer) Write(ctx context.Context, tables ...*aggregate.Table) (string, error) {
	if len(tables) == 0 {
		return "", ErrNoTables
	}
	titles := tabTitles(tables)

	w.logger.Info("starting sheets export", "tables", len(tables))

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 1
	}

	var (
		spreadsheetID string
		url           string
		sheetIDs      map[string]int64
	)
	err := common.WithRetry(ctx, func() error {
		var getErr error
		spreadsheetID, url, sheetIDs, getErr = w.ensureTabs(ctx, titles)
		return classify(getErr)
	}, retryOpts)
	if err != nil {
		return "", fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	for i, t := range tables {
		title := titles[i]
		l := prepareValues(t)

		err := common.WithRetry(ctx, func() error {
			if clearErr := w.clearTab(ctx, spreadsheetID, title); clearErr != nil {
				return classify(clearErr)
			}
			return classify(w.writeData(ctx, spreadsheetID, title, l.values))
		}, retryOpts)
		if err != nil {
			return "", fmt.Errorf("failed to write %q: %w", title, err)
		}

		if w.config.EnableFormatting {
			err = common.WithRetry(ctx, func() error {
				_, batchErr := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
					Requests: formatRequests(sheetIDs[title], t, l),
				}).Context(ctx).Do()
				return classify(batchErr)
			}, retryOpts)
			if err != nil {
				// Unformatted numbers are still correct numbers.
				w.logger.Warn("failed to apply formatting", "tab", title, "error", err)
			}
		}
	}

	w.logger.Info("sheets export completed",
		"spreadsheet_id", spreadsheetID,
		"tabs", len(titles))

	return url, nil
}

// createSheetsService creates a Google Sheets API service.
// classify marks API errors for WithRetry: throttling waits the longest
// delay and other client errors are not retried.
func classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return common.Permanent(err)
	}
	return err
}

func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := oauthConfig(config.ClientID, config.ClientSecret, "")
		tokenSource = client.TokenSource(ctx, &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// ensureTabs returns the spreadsheet id, its URL, and the sheet id of every
// requested tab, creating the spreadsheet or missing tabs as needed.
func (w *Writer) ensureTabs(ctx context.Context, titles []string) (string, string, map[string]int64, error) {
	if w.config.SpreadsheetID == "" {
		spreadsheet := &sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{
				Title:    w.config.SpreadsheetName,
				TimeZone: w.config.TimeZone,
			},
		}
		for _, title := range titles {
			spreadsheet.Sheets = append(spreadsheet.Sheets, &sheets.Sheet{
				Properties: &sheets.SheetProperties{Title: title},
			})
		}

		created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
		if err != nil {
			return "", "", nil, fmt.Errorf("unable to create spreadsheet: %w", err)
		}
		w.logger.Info("created new spreadsheet",
			"id", created.SpreadsheetId,
			"url", created.SpreadsheetUrl)

		// Later writes in this process go to the same spreadsheet.
		w.config.SpreadsheetID = created.SpreadsheetId
		return created.SpreadsheetId, created.SpreadsheetUrl, sheetIDsByTitle(created), nil
	}

	existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", "", nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}
	ids := sheetIDsByTitle(existing)

	var add []*sheets.Request
	for _, title := range titles {
		if _, ok := ids[title]; !ok {
			add = append(add, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: title},
				},
			})
		}
	}
	if len(add) > 0 {
		resp, err := w.service.Spreadsheets.BatchUpdate(existing.SpreadsheetId,
			&sheets.BatchUpdateSpreadsheetRequest{Requests: add}).Context(ctx).Do()
		if err != nil {
			return "", "", nil, fmt.Errorf("unable to add tabs: %w", err)
		}
		for _, reply := range resp.Replies {
			if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
				ids[reply.AddSheet.Properties.Title] = reply.AddSheet.Properties.SheetId
			}
		}
	}

	return existing.SpreadsheetId, existing.SpreadsheetUrl, ids, nil
}

func sheetIDsByTitle(s *sheets.Spreadsheet) map[string]int64 {
	ids := make(map[string]int64, len(s.Sheets))
	for _, sh := range s.Sheets {
		if sh.Properties != nil {
			ids[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	return ids
}

func quoteTab(title string) string {
	return "'" + title + "'"
}

// clearTab clears all data from one tab.
func (w *Writer) clearTab(ctx context.Context, spreadsheetID, title string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, quoteTab(title)+"!A:Z",
		&sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// writeData writes the values in batches to avoid API limits.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, title string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))
		batch := values[i:end]

		rangeStr := fmt.Sprintf("%s!A%d", quoteTab(title), i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, &sheets.ValueRange{Values: batch}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "tab", title, "start_row", i+1, "rows", len(batch))
	}

	return nil
}
