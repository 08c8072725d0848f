package columns

import (
	"fmt"
	"sort"
	"strings"

	"github.com/komsit37/thematic-wl/pkg/wl/types"
)

// Kind tells the sort engine how to compare a column.
type Kind int

const (
	Text Kind = iota
	Numeric
)

// Def describes one column: how to read it from a row and which prices it
// needs before it can be shown.
type Def struct {
	Key     string
	Header  string
	Kind    Kind
	Aliases []string
	// Text reads a text column.
	Text func(it types.WatchItem) string
	// Num reads a numeric column from derived metrics; nil means unknown.
	Num func(m Metrics) *float64
	// Needs lists the prices the column is computed from.
	Needs []Ref
}

// Registry maps canonical column keys to definitions.
var Registry = map[string]Def{}

// Order is the canonical table order of all columns.
var Order []string

var aliases = map[string]string{}

func register(d Def) {
	Registry[d.Key] = d
	Order = append(Order, d.Key)
	aliases[strings.ToLower(d.Key)] = d.Key
	aliases[strings.ToLower(d.Header)] = d.Key
	for _, a := range d.Aliases {
		aliases[strings.ToLower(a)] = d.Key
	}
}

func init() {
	text := func(key, header string, get func(types.WatchItem) string, alias ...string) {
		register(Def{Key: key, Header: header, Kind: Text, Text: get, Aliases: alias})
	}
	text("ticker", "TICKER", func(it types.WatchItem) string { return it.Ticker }, types.HeaderTicker, "sym", "symbol")
	text("company", "COMPANY", func(it types.WatchItem) string { return it.Company }, types.HeaderCompany, "name")
	text("themes", "THEMES", types.WatchItem.ThemesText, types.HeaderThemes, "theme")
	text("date", "DATE", func(it types.WatchItem) string { return it.DateAnalyzed }, types.HeaderDateAnalyzed, "date_analyzed")
	text("thesis", "THESIS", func(it types.WatchItem) string { return it.ThesisSnapshot }, types.HeaderThesis)
	text("catalysts", "2026 CATALYSTS", func(it types.WatchItem) string { return it.KeyCatalysts }, types.HeaderCatalysts)
	text("triggers", "WHAT MOVES IT", func(it types.WatchItem) string { return it.Triggers }, types.HeaderTriggers)
	text("catalyst_path", "CATALYST PATH", func(it types.WatchItem) string { return it.CatalystPath }, types.HeaderCatalystPath)
	text("notes", "NOTES", func(it types.WatchItem) string { return it.Notes }, types.HeaderNotes)

	num := func(key, header string, get func(Metrics) *float64, needs []Ref, alias ...string) {
		register(Def{Key: key, Header: header, Kind: Numeric, Num: get, Needs: needs, Aliases: alias})
	}
	num("initial", "INITIAL", func(m Metrics) *float64 { return m.Initial }, []Ref{RefInitial}, "Initial Price", "price_initial")
	num("current", "CURRENT", func(m Metrics) *float64 { return m.Current }, []Ref{RefCurrent}, "Current Price", "price")
	num("total%", "TOTAL %", func(m Metrics) *float64 { return m.TotalPct }, []Ref{RefInitial, RefCurrent}, "Total PnL", "total")
	num("1d%", "1D %", func(m Metrics) *float64 { return m.DayPct }, []Ref{RefOneDay, RefCurrent}, "1Day Change (%)", "chg%")
	num("1w%", "1W %", func(m Metrics) *float64 { return m.WeekPct }, []Ref{RefOneWeek, RefCurrent}, "1Week Change (%)")
	num("ytd%", "YTD %", func(m Metrics) *float64 { return m.YTDPct }, []Ref{RefYTD, RefCurrent}, "YTD Change (%)", "ytd")
}

// Canonical resolves a column name or alias, case-insensitively.
func Canonical(name string) (string, bool) {
	k, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

// Get returns the definition for a column name or alias.
func Get(name string) (Def, error) {
	k, ok := Canonical(name)
	if !ok {
		return Def{}, &UnknownColumnError{Name: name, Available: Order}
	}
	return Registry[k], nil
}

// Resolve maps names to definitions, preserving order and dropping
// repeats. An empty list resolves to the core set.
func Resolve(names []string) ([]Def, error) {
	if len(names) == 0 {
		names = Sets["core"]
	}
	seen := map[string]struct{}{}
	out := make([]Def, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		d, err := Get(n)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[d.Key]; ok {
			continue
		}
		seen[d.Key] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}

// NeedsPrices reports whether any column is computed from prices.
func NeedsPrices(defs []Def) bool {
	for _, d := range defs {
		if len(d.Needs) > 0 {
			return true
		}
	}
	return false
}

// UnknownColumnError reports a column name that is neither a key nor an alias.
type UnknownColumnError struct {
	Name      string
	Available []string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column: %s; available: %s", e.Name, strings.Join(e.Available, ", "))
}

// Value formats the column for display. Unknown numbers render as "—".
func Value(d Def, it types.WatchItem, m Metrics) string {
	if d.Kind == Text {
		return d.Text(it)
	}
	v := d.Num(m)
	if v == nil {
		return Placeholder
	}
	switch d.Key {
	case "initial", "current":
		return formatFloatComma(*v, 2)
	default:
		return FormatPct(*v)
	}
}

// Placeholder stands in for unknown values.
const Placeholder = "—"

// FormatPct formats a percentage with an explicit sign.
func FormatPct(v float64) string {
	if v > 0 {
		return "+" + formatFloatComma(v, 2) + "%"
	}
	return formatFloatComma(v, 2) + "%"
}

// formatFloatComma formats a float with a fixed number of decimals and comma separators.
func formatFloatComma(v float64, decimals int) string {
	s := fmt.Sprintf("%.*f", decimals, v)
	intPart, fracPart := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, fracPart = s[:dot], s[dot:]
	}
	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign, intPart = "-", intPart[1:]
	}
	n := len(intPart)
	if n <= 3 {
		return sign + intPart + fracPart
	}
	out := make([]byte, 0, n+n/3)
	rem := n % 3
	if rem == 0 {
		rem = 3
	}
	out = append(out, intPart[:rem]...)
	for i := rem; i < n; i += 3 {
		out = append(out, ',')
		out = append(out, intPart[i:i+3]...)
	}
	return sign + string(out) + fracPart
}

func keysSorted(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
