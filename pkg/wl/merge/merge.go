// Package merge folds a new watchlist snapshot into an existing one without
// losing the themes already recorded for a ticker.
package merge

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"

	"github.com/komsit37/thematic-wl/pkg/wl/source"
	"github.com/komsit37/thematic-wl/pkg/wl/types"
)

// DefaultSentinel is the analyzed date written for every base ticker.
const DefaultSentinel = "10/29"

// Encoding names how the new snapshot is encoded.
type Encoding string

const (
	UTF8        Encoding = "utf-8"
	Windows1252 Encoding = "windows-1252"
)

// OutputHeaders is the column order of a merged file.
var OutputHeaders = []string{
	types.HeaderTicker,
	types.HeaderCompany,
	types.HeaderThemes,
	types.HeaderThesis,
	types.HeaderCatalysts,
	types.HeaderTriggers,
	types.HeaderNotes,
	types.HeaderCatalystPath,
	types.HeaderDateAnalyzed,
}

type Options struct {
	// Sentinel replaces the analyzed date of every base ticker.
	Sentinel string
	// NewEncoding is the encoding of the new snapshot; default UTF8.
	NewEncoding Encoding
}

// incoming is the part of a new-snapshot row that survives a merge.
type incoming struct {
	themes       string
	catalystPath string
	date         string
}

var (
	newTicker = []string{types.HeaderTicker, "symbol", "^tkr$"}
	newThemes = []string{types.HeaderThemes, "Theme", "Theme Alignment"}
	newPath   = []string{types.HeaderCatalystPath, "catalyst.*path", "milestone", "event.*path"}
	newDate   = []string{types.HeaderDateAnalyzed, "Date Analyzed", `Date\s*Analy(z|s)ed`}
)

// Merge unions the tickers of base and next. Themes are unioned without
// repeats; catalyst path keeps the base value unless it is empty; base
// tickers get the sentinel date and new tickers keep their own date as
// MM/DD. Rows are ordered by themes, then ticker.
func Merge(base, next io.Reader, opts Options) ([]map[string]string, error) {
	if opts.Sentinel == "" {
		opts.Sentinel = DefaultSentinel
	}

	headers, raw, err := source.ReadRecords(base)
	if err != nil {
		return nil, fmt.Errorf("read base: %w", err)
	}
	baseItems, err := source.NormalizeRows(headers, raw)
	if err != nil {
		return nil, fmt.Errorf("base: %w", err)
	}

	r, err := decode(next, opts.NewEncoding)
	if err != nil {
		return nil, err
	}
	nh, nrows, err := source.ReadRecords(r)
	if err != nil {
		return nil, fmt.Errorf("read new: %w", err)
	}
	tcol, thcol, pcol, dcol := pick(nh, newTicker), pick(nh, newThemes), pick(nh, newPath), pick(nh, newDate)
	if tcol == "" {
		return nil, fmt.Errorf("new: %w", source.ErrNoTickerColumn)
	}

	byTicker := map[string]incoming{}
	var order []string
	for _, row := range nrows {
		t := source.CleanTicker(row[tcol])
		if t == "" {
			continue
		}
		if _, ok := byTicker[t]; !ok {
			order = append(order, t)
		}
		byTicker[t] = incoming{
			themes:       row[thcol],
			catalystPath: strings.TrimSpace(row[pcol]),
			date:         ToMMDD(row[dcol]),
		}
	}

	out := make([]map[string]string, 0, len(baseItems)+len(order))
	seen := map[string]struct{}{}
	for _, it := range baseItems {
		seen[it.Ticker] = struct{}{}
		n := byTicker[it.Ticker]
		row := it.Row()
		row[types.HeaderThemes] = mergeThemes(it.ThemesText(), n.themes)
		if row[types.HeaderCatalystPath] == "" {
			row[types.HeaderCatalystPath] = n.catalystPath
		}
		row[types.HeaderDateAnalyzed] = opts.Sentinel
		out = append(out, row)
	}
	for _, t := range order {
		if _, ok := seen[t]; ok {
			continue
		}
		n := byTicker[t]
		row := types.WatchItem{Ticker: t, CatalystPath: n.catalystPath, DateAnalyzed: n.date}.Row()
		row[types.HeaderThemes] = mergeThemes("", n.themes)
		out = append(out, row)
	}

	col := collate.New(language.English)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c := col.CompareString(a[types.HeaderThemes], b[types.HeaderThemes]); c != 0 {
			return c < 0
		}
		return col.CompareString(a[types.HeaderTicker], b[types.HeaderTicker]) < 0
	})
	return out, nil
}

// Write emits rows as CSV with OutputHeaders.
func Write(w io.Writer, rows []map[string]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OutputHeaders); err != nil {
		return err
	}
	rec := make([]string, len(OutputHeaders))
	for _, row := range rows {
		for i, h := range OutputHeaders {
			rec[i] = row[h]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Files merges basePath and newPath into outPath and returns the row count.
func Files(basePath, newPath, outPath string, opts Options) (int, error) {
	bf, err := os.Open(basePath)
	if err != nil {
		return 0, err
	}
	defer bf.Close()
	nf, err := os.Open(newPath)
	if err != nil {
		return 0, err
	}
	defer nf.Close()

	rows, err := Merge(bf, nf, opts)
	if err != nil {
		return 0, err
	}
	of, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	if err := Write(of, rows); err != nil {
		of.Close()
		return 0, fmt.Errorf("write %s: %w", outPath, err)
	}
	return len(rows), of.Close()
}

func decode(r io.Reader, enc Encoding) (io.Reader, error) {
	switch Encoding(strings.ToLower(string(enc))) {
	case "", UTF8, "utf8":
		return r, nil
	case Windows1252, "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(r), nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", enc)
}

// pick returns the first header equal to a candidate, else the first
// header matching a candidate as a case-insensitive pattern.
func pick(headers []string, cands []string) string {
	for _, want := range cands {
		for _, h := range headers {
			if h == want {
				return h
			}
		}
	}
	for _, h := range headers {
		for _, c := range cands {
			re, err := regexp.Compile("(?i)" + c)
			if err == nil && re.MatchString(h) {
				return h
			}
		}
	}
	return ""
}

func mergeThemes(a, b string) string {
	return strings.Join(source.SplitThemes(a+types.ThemeJoiner+b), types.ThemeJoiner)
}

var mdRe = regexp.MustCompile(`^\d{1,2}/\d{1,2}$`)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2-Jan-2006",
	"2-Jan-06",
	time.RFC3339,
}

// ToMMDD renders a date as MM/DD. An M/D token is returned unchanged; an
// unrecognised one yields "".
func ToMMDD(s string) string {
	v := strings.TrimSpace(s)
	if v == "" {
		return ""
	}
	if mdRe.MatchString(v) {
		return v
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, v); err == nil {
			return t.Format("01/02")
		}
	}
	return ""
}
