package filter

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/komsit37/thematic-wl/pkg/wl/types"
)

// Index is derived from a row set once per load.
type Index struct {
	// AllThemes is every theme on any row, in collation order.
	AllThemes []string
	// Dates is every distinct non-empty dateAnalyzed token, newest
	// month/day first. Tokens without a leading M/D come before all others.
	Dates []string
	// ThemesByDate maps a date token to the themes of its rows.
	ThemesByDate map[string][]string
}

// BuildIndex derives the Index of rows.
func BuildIndex(rows []types.WatchItem) Index {
	themes := map[string]struct{}{}
	byDate := map[string]map[string]struct{}{}
	for _, r := range rows {
		for _, t := range r.Themes {
			themes[t] = struct{}{}
		}
		d := strings.TrimSpace(r.DateAnalyzed)
		if d == "" {
			continue
		}
		set, ok := byDate[d]
		if !ok {
			set = map[string]struct{}{}
			byDate[d] = set
		}
		for _, t := range r.Themes {
			set[t] = struct{}{}
		}
	}

	idx := Index{
		AllThemes:    collated(themes),
		ThemesByDate: make(map[string][]string, len(byDate)),
	}
	for d, set := range byDate {
		idx.Dates = append(idx.Dates, d)
		idx.ThemesByDate[d] = collated(set)
	}
	sort.Slice(idx.Dates, func(i, j int) bool {
		a, b := monthDay(idx.Dates[i]), monthDay(idx.Dates[j])
		if a != b {
			return a > b
		}
		return idx.Dates[i] < idx.Dates[j]
	})
	return idx
}

// ThemesForDates returns the collated union of themes over dates.
func (idx Index) ThemesForDates(dates []string) []string {
	set := map[string]struct{}{}
	for _, d := range dates {
		for _, t := range idx.ThemesByDate[d] {
			set[t] = struct{}{}
		}
	}
	return collated(set)
}

func collated(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	collate.New(language.English).SortStrings(out)
	return out
}

var monthDayRe = regexp.MustCompile(`^(\d{1,2})[/\-](\d{1,2})`)

func monthDay(d string) int {
	m := monthDayRe.FindStringSubmatch(d)
	if m == nil {
		return math.MaxInt
	}
	mo, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	return mo*100 + day
}
