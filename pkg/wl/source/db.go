package source

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/komsit37/thematic-wl/pkg/wl/types"
)

// DefaultTable is read when DBSource gets an empty spec.
const DefaultTable = "watchlist"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DBSource loads rows from a SQL table or query. Column names play the role
// of CSV headers.
type DBSource struct {
	DSN    string
	Driver string // defaults to "sqlite"
}

// Load accepts a table name or a SELECT statement as spec.
func (s DBSource) Load(ctx context.Context, spec any) ([]types.WatchItem, error) {
	q, ok := spec.(string)
	if !ok {
		return nil, fmt.Errorf("db source expects table or query string spec")
	}
	q = strings.TrimSpace(q)
	if q == "" {
		q = DefaultTable
	}
	if !strings.HasPrefix(strings.ToLower(q), "select") {
		if !identRe.MatchString(q) {
			return nil, fmt.Errorf("invalid table name %q", q)
		}
		q = "SELECT * FROM " + q
	}

	driver := s.Driver
	if driver == "" {
		driver = "sqlite"
	}
	db, err := sql.Open(driver, s.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.DSN, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	headers, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var records []map[string]string
	for rows.Next() {
		vals := make([]sql.NullString, len(headers))
		ptrs := make([]any, len(headers))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rec := make(map[string]string, len(headers))
		for i, h := range headers {
			rec[h] = vals[i].String
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return NormalizeRows(headers, records)
}
