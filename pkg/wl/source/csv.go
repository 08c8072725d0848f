package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/komsit37/thematic-wl/pkg/wl/types"
)

// CSVSource loads rows from a CSV file, a directory of CSV files, or an
// http(s) URL. A header row is required.
type CSVSource struct {
	Client *http.Client
}

// Load expects spec to be a filepath or URL string.
func (s CSVSource) Load(ctx context.Context, spec any) ([]types.WatchItem, error) {
	loc, ok := spec.(string)
	if !ok {
		return nil, fmt.Errorf("csv source expects filepath or url string spec")
	}
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		return s.loadURL(ctx, loc)
	}

	info, err := os.Stat(loc)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return loadFile(loc)
	}

	var files []string
	err = filepath.WalkDir(loc, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".csv") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var all []types.WatchItem
	seen := map[string]struct{}{}
	for _, f := range files {
		items, err := loadFile(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		for _, it := range items {
			if _, dup := seen[it.Ticker]; dup {
				continue
			}
			seen[it.Ticker] = struct{}{}
			all = append(all, it)
		}
	}
	return all, nil
}

func (s CSVSource) loadURL(ctx context.Context, u string) ([]types.WatchItem, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", u, resp.Status)
	}
	return ParseCSV(resp.Body)
}

func loadFile(path string) ([]types.WatchItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCSV(f)
}

// ParseCSV reads a header row and data rows, then normalizes them.
func ParseCSV(r io.Reader) ([]types.WatchItem, error) {
	headers, rows, err := ReadRecords(r)
	if err != nil {
		return nil, err
	}
	return NormalizeRows(headers, rows)
}

// ReadRecords reads CSV text into trimmed headers and header-keyed rows.
// Blank lines are skipped; short rows get empty values.
func ReadRecords(r io.Reader) ([]string, []map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	headers, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("csv: missing header row")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("csv header: %w", err)
	}
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		headers[i] = strings.TrimSpace(h)
	}

	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("csv: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
