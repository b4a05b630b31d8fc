// Package reform reads policy reform descriptions.
//
// A reform is a JSON object mapping parameter names to year-keyed values.
// taxtab never evaluates the parameters; it records which reform produced a
// dataset and shows it alongside reports.
package reform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/taxtab/internal/common"
	"github.com/Veraticus/taxtab/internal/model"
	"github.com/Veraticus/taxtab/internal/service"
)

// ErrInvalidReform reports a document that is not a valid reform.
var ErrInvalidReform = errors.New("invalid reform")

const maxReformBytes = 4 << 20

// Loader fetches reforms from files or http(s) URLs.
type Loader struct {
	Client *http.Client
	Retry  service.RetryOptions
}

// NewLoader creates a loader with a per-request timeout.
func NewLoader(timeout time.Duration, attempts int) *Loader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Loader{
		Client: &http.Client{Timeout: timeout},
		Retry: service.RetryOptions{
			MaxAttempts:  attempts,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// IsRemote reports whether source is an http(s) URL.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// NameFromSource derives a reform name from its file name.
func NameFromSource(source string) string {
	base := filepath.Base(source)
	if IsRemote(source) {
		base = path.Base(strings.SplitN(source, "?", 2)[0])
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load reads and parses the reform at source.
func (l *Loader) Load(ctx context.Context, source string) (*model.Reform, error) {
	var (
		data []byte
		err  error
	)
	if IsRemote(source) {
		data, err = l.fetch(ctx, source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read reform %s: %w", source, err)
	}
	return Parse(NameFromSource(source), source, data)
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := common.WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return common.Permanent(err)
		}
		resp, err := l.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", common.ErrRateLimit, url)
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: %s returned %s", common.ErrFetchFailed, url, resp.Status)
		case resp.StatusCode != http.StatusOK:
			return common.Permanent(fmt.Errorf("%w: %s returned %s", common.ErrFetchFailed, url, resp.Status))
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxReformBytes))
		return err
	}, l.Retry)
	return body, err
}

// Parse decodes a reform document. Line comments starting with // are
// allowed, as are documents wrapped in a top-level "policy" object and
// parameters given as lists of {"year": ..., "value": ...} entries.
func Parse(name, source string, data []byte) (*model.Reform, error) {
	clean := StripComments(data)

	var doc map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(clean))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReform, err)
	}
	if policy, ok := doc["policy"]; ok {
		doc = nil
		if err := decodeNumbers(policy, &doc); err != nil {
			return nil, fmt.Errorf("%w: policy: %v", ErrInvalidReform, err)
		}
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: no parameters", ErrInvalidReform)
	}

	params := make(map[string]map[string]any, len(doc))
	for rawName, raw := range doc {
		param := strings.TrimPrefix(rawName, "_")
		byYear, err := parseParameter(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %s: %v", ErrInvalidReform, rawName, err)
		}
		params[param] = byYear
	}

	return &model.Reform{
		Name:       name,
		Source:     source,
		Parameters: params,
		Raw:        string(data),
	}, nil
}

func parseParameter(raw json.RawMessage) (map[string]any, error) {
	var byYear map[string]any
	if err := decodeNumbers(raw, &byYear); err == nil {
		if len(byYear) == 0 {
			return nil, errors.New("no years")
		}
		for year := range byYear {
			if !isYear(year) {
				return nil, fmt.Errorf("%q is not a year", year)
			}
		}
		return byYear, nil
	}

	var entries []map[string]any
	if err := decodeNumbers(raw, &entries); err != nil {
		return nil, errors.New("want an object of years or a list of year entries")
	}
	if len(entries) == 0 {
		return nil, errors.New("no years")
	}

	byYear = make(map[string]any, len(entries))
	for i, entry := range entries {
		year, ok := entry["year"]
		if !ok {
			return nil, fmt.Errorf("entry %d has no year", i)
		}
		key := fmt.Sprint(year)
		if !isYear(key) {
			return nil, fmt.Errorf("entry %d: %q is not a year", i, key)
		}
		delete(entry, "year")
		if v, ok := entry["value"]; ok && len(entry) == 1 {
			byYear[key] = v
			continue
		}
		byYear[key] = entry
	}
	return byYear, nil
}

func decodeNumbers(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

// StripComments removes // line comments that are not inside JSON strings.
func StripComments(data []byte) []byte {
	out := make([]byte, 0, len(data))
	inString, escaped := false, false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '/' && i+1 < len(data) && data[i+1] == '/' {
			for i < len(data) && data[i] != '\n' {
				i++
			}
			if i < len(data) {
				out = append(out, '\n')
			}
			continue
		}
		if c == '"' {
			inString = true
		}
		out = append(out, c)
	}
	return out
}

// Summary describes a reform in one line per parameter, sorted by name.
func Summary(r *model.Reform) []string {
	lines := make([]string, 0, len(r.Parameters))
	for _, name := range r.ParameterNames() {
		byYear := r.Parameters[name]
		years := make([]string, 0, len(byYear))
		for y := range byYear {
			years = append(years, y)
		}
		sort.Strings(years)
		parts := make([]string, len(years))
		for i, y := range years {
			parts[i] = fmt.Sprintf("%s=%v", y, byYear[y])
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, strings.Join(parts, ", ")))
	}
	return lines
}
