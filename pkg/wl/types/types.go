package types

import "strings"

// Canonical CSV headers. Row() emits these so a normalized item can be
// fed back through the normalizer unchanged.
const (
	HeaderTicker       = "Ticker"
	HeaderCompany      = "Company"
	HeaderThemes       = "Theme(s)"
	HeaderThesis       = "Thesis Snapshot"
	HeaderCatalysts    = "Key 2026 Catalysts"
	HeaderTriggers     = "What Moves It (Triggers)"
	HeaderCatalystPath = "Catalyst Path"
	HeaderNotes        = "Notes"
	HeaderDateAnalyzed = "Date analyzed"
)

// ThemeJoiner is the canonical delimiter used when themes are written back
// into a single cell.
const ThemeJoiner = " | "

// Headers lists the canonical headers in table order.
var Headers = []string{
	HeaderTicker,
	HeaderCompany,
	HeaderThemes,
	HeaderThesis,
	HeaderCatalysts,
	HeaderTriggers,
	HeaderCatalystPath,
	HeaderNotes,
	HeaderDateAnalyzed,
}

// WatchItem is one normalized watchlist row. Items are immutable once loaded;
// a fresh load replaces the whole set.
type WatchItem struct {
	Ticker         string   `json:"ticker" yaml:"ticker"`
	Company        string   `json:"company" yaml:"company"`
	Themes         []string `json:"themes" yaml:"themes"`
	ThesisSnapshot string   `json:"thesisSnapshot" yaml:"thesisSnapshot"`
	KeyCatalysts   string   `json:"keyCatalysts" yaml:"keyCatalysts"`
	Triggers       string   `json:"triggers" yaml:"triggers"`
	CatalystPath   string   `json:"catalystPath" yaml:"catalystPath"`
	Notes          string   `json:"notes" yaml:"notes"`
	DateAnalyzed   string   `json:"dateAnalyzed" yaml:"dateAnalyzed"`
}

// ThemesText returns the themes joined with the canonical delimiter.
func (it WatchItem) ThemesText() string {
	return strings.Join(it.Themes, ThemeJoiner)
}

// HasAnyTheme reports whether the item carries at least one theme in set.
func (it WatchItem) HasAnyTheme(set map[string]struct{}) bool {
	for _, t := range it.Themes {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// SearchText is the lowercase haystack used by free-text search.
func (it WatchItem) SearchText() string {
	return strings.ToLower(strings.Join([]string{
		it.Ticker,
		it.Company,
		it.ThemesText(),
		it.ThesisSnapshot,
		it.KeyCatalysts,
		it.Triggers,
		it.CatalystPath,
		it.Notes,
		it.DateAnalyzed,
	}, " "))
}

// Row renders the item as a source row keyed by canonical headers.
func (it WatchItem) Row() map[string]string {
	return map[string]string{
		HeaderTicker:       it.Ticker,
		HeaderCompany:      it.Company,
		HeaderThemes:       it.ThemesText(),
		HeaderThesis:       it.ThesisSnapshot,
		HeaderCatalysts:    it.KeyCatalysts,
		HeaderTriggers:     it.Triggers,
		HeaderCatalystPath: it.CatalystPath,
		HeaderNotes:        it.Notes,
		HeaderDateAnalyzed: it.DateAnalyzed,
	}
}

// SortDir is the direction of an active sort.
type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

// SortState is the active sort; a nil *SortState means unsorted.
type SortState struct {
	Key string  `json:"key"`
	Dir SortDir `json:"dir"`
}
