package source

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/komsit37/thematic-wl/pkg/wl/types"
)

// ErrNoTickerColumn is returned when no header maps to the ticker field.
var ErrNoTickerColumn = errors.New("no ticker column")

// field identifies a logical WatchItem field.
type field int

const (
	fieldTicker field = iota
	fieldCompany
	fieldThesis
	fieldCatalysts
	fieldTriggers
	fieldCatalystPath
	fieldNotes
	fieldDate
	numFields
)

// candidates lists, per field, the exact header names tried first and the
// case-insensitive patterns tried when no exact name is present.
type candidates struct {
	exact    []string
	patterns []*regexp.Regexp
}

var fieldCandidates = [numFields]candidates{
	fieldTicker: {
		exact:    []string{types.HeaderTicker, "Symbol"},
		patterns: []*regexp.Regexp{regexp.MustCompile(`(?i)^\s*(ticker|symbol|tkr)\s*$`)},
	},
	fieldCompany: {
		exact:    []string{types.HeaderCompany, "Name"},
		patterns: []*regexp.Regexp{regexp.MustCompile(`(?i)^\s*(company|name)\s*$`)},
	},
	fieldThesis: {
		exact:    []string{types.HeaderThesis, "Thesis"},
		patterns: []*regexp.Regexp{regexp.MustCompile(`(?i)^\s*thesis`)},
	},
	fieldCatalysts: {
		exact:    []string{types.HeaderCatalysts, "Catalysts"},
		patterns: []*regexp.Regexp{regexp.MustCompile(`(?i)^\s*key .*catalysts\s*$`)},
	},
	fieldTriggers: {
		exact:    []string{types.HeaderTriggers, "What Moves It"},
		patterns: []*regexp.Regexp{regexp.MustCompile(`(?i)triggers`)},
	},
	fieldCatalystPath: {
		exact:    []string{types.HeaderCatalystPath},
		patterns: []*regexp.Regexp{regexp.MustCompile(`(?i)catalyst.*path`)},
	},
	fieldNotes: {
		exact:    []string{types.HeaderNotes, "Note"},
		patterns: []*regexp.Regexp{regexp.MustCompile(`(?i)^\s*notes?\s*$`)},
	},
	fieldDate: {
		exact:    []string{types.HeaderDateAnalyzed, "Date Analyzed", "Date_Analyzed", "Analyzed Date"},
		patterns: []*regexp.Regexp{regexp.MustCompile(`(?i)date[\s_]*analy[sz]ed|analy[sz]ed[\s_]*date`)},
	},
}

var themeHeader = regexp.MustCompile(`(?i)^\s*theme`)

// Mapper is a header set resolved once into a fixed field mapping.
type Mapper struct {
	cols   [numFields]string
	themes []string
}

// NewMapper resolves headers into a Mapper. Headers are used in the given
// order; theme columns keep that order when concatenated.
func NewMapper(headers []string) (*Mapper, error) {
	m := &Mapper{}
	for f := field(0); f < numFields; f++ {
		m.cols[f] = pick(headers, fieldCandidates[f])
	}
	for _, h := range headers {
		if themeHeader.MatchString(h) {
			m.themes = append(m.themes, h)
		}
	}
	if m.cols[fieldTicker] == "" {
		return nil, ErrNoTickerColumn
	}
	return m, nil
}

// Headers reports the resolved column for each logical field, keyed by the
// canonical header. Unresolved fields are omitted.
func (m *Mapper) Headers() map[string]string {
	out := map[string]string{}
	names := [numFields]string{
		fieldTicker:       types.HeaderTicker,
		fieldCompany:      types.HeaderCompany,
		fieldThesis:       types.HeaderThesis,
		fieldCatalysts:    types.HeaderCatalysts,
		fieldTriggers:     types.HeaderTriggers,
		fieldCatalystPath: types.HeaderCatalystPath,
		fieldNotes:        types.HeaderNotes,
		fieldDate:         types.HeaderDateAnalyzed,
	}
	for f, col := range m.cols {
		if col != "" {
			out[names[f]] = col
		}
	}
	if len(m.themes) > 0 {
		out[types.HeaderThemes] = strings.Join(m.themes, ",")
	}
	return out
}

// Normalize converts one raw row into a WatchItem. ok is false when the row
// has no usable ticker.
func (m *Mapper) Normalize(row map[string]string) (types.WatchItem, bool) {
	get := func(f field) string {
		col := m.cols[f]
		if col == "" {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	ticker := CleanTicker(get(fieldTicker))
	if ticker == "" {
		return types.WatchItem{}, false
	}

	vals := make([]string, 0, len(m.themes))
	for _, col := range m.themes {
		if v := strings.TrimSpace(row[col]); v != "" {
			vals = append(vals, v)
		}
	}

	return types.WatchItem{
		Ticker:         ticker,
		Company:        get(fieldCompany),
		Themes:         SplitThemes(strings.Join(vals, types.ThemeJoiner)),
		ThesisSnapshot: get(fieldThesis),
		KeyCatalysts:   get(fieldCatalysts),
		Triggers:       get(fieldTriggers),
		CatalystPath:   get(fieldCatalystPath),
		Notes:          get(fieldNotes),
		DateAnalyzed:   get(fieldDate),
	}, true
}

// NormalizeRows resolves a mapper from headers and normalizes every row,
// dropping rows without a ticker and repeated tickers (first one wins).
func NormalizeRows(headers []string, rows []map[string]string) ([]types.WatchItem, error) {
	m, err := NewMapper(headers)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(rows))
	out := make([]types.WatchItem, 0, len(rows))
	for _, r := range rows {
		it, ok := m.Normalize(r)
		if !ok {
			continue
		}
		if _, dup := seen[it.Ticker]; dup {
			continue
		}
		seen[it.Ticker] = struct{}{}
		out = append(out, it)
	}
	return out, nil
}

// Normalize normalizes a single row whose headers are its own keys.
func Normalize(row map[string]string) (types.WatchItem, bool) {
	headers := make([]string, 0, len(row))
	for _, h := range types.Headers {
		if _, ok := row[h]; ok {
			headers = append(headers, h)
		}
	}
	var extra []string
	for h := range row {
		if !containsString(headers, h) {
			extra = append(extra, h)
		}
	}
	sort.Strings(extra)
	headers = append(headers, extra...)
	m, err := NewMapper(headers)
	if err != nil {
		return types.WatchItem{}, false
	}
	return m.Normalize(row)
}

var tickerStrip = regexp.MustCompile(`[^A-Z0-9.\-]`)

// CleanTicker uppercases, trims and strips characters outside [A-Z0-9.-].
func CleanTicker(s string) string {
	return tickerStrip.ReplaceAllString(strings.ToUpper(strings.TrimSpace(s)), "")
}

// SplitThemes splits a theme cell on , | ; / and returns trimmed, non-empty,
// de-duplicated tokens in first-seen order.
func SplitThemes(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', '|', ';', '/':
			return true
		}
		return false
	})
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func pick(headers []string, c candidates) string {
	for _, want := range c.exact {
		for _, h := range headers {
			if h == want {
				return h
			}
		}
	}
	for _, re := range c.patterns {
		for _, h := range headers {
			if re.MatchString(h) {
				return h
			}
		}
	}
	return ""
}

func containsString(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}
