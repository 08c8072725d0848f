package filter

import (
	"strings"

	"github.com/komsit37/thematic-wl/pkg/wl/columns"
	"github.com/komsit37/thematic-wl/pkg/wl/types"
)

// State is the filter state machine over one loaded row set: free-text
// search, selected themes, selected dates, a highlighted theme and the
// active sort. While any date is selected the theme selection is derived
// from the dates; direct theme toggles last until the next date toggle.
//
// State is not safe for concurrent use.
type State struct {
	rows  []types.WatchItem
	index Index

	search  string
	themes  []string // insertion order
	dates   []string // insertion order
	current string
	sort    *types.SortState

	unsortedCycle bool
}

// Option configures a State.
type Option func(*State)

// WithUnsortedCycle makes SetSort cycle asc → desc → unsorted instead of
// flipping between asc and desc.
func WithUnsortedCycle() Option {
	return func(s *State) { s.unsortedCycle = true }
}

// NewState returns a state over rows sorted by ticker ascending, with no
// theme selected.
func NewState(rows []types.WatchItem, opts ...Option) *State {
	s := &State{sort: &types.SortState{Key: "ticker", Dir: types.Asc}}
	for _, o := range opts {
		o(s)
	}
	s.SetRows(rows)
	return s
}

// SetRows replaces the row set and rebuilds the index. Selected themes the
// new rows no longer carry are dropped; the rest of the selection is kept.
func (s *State) SetRows(rows []types.WatchItem) {
	s.rows = rows
	s.index = BuildIndex(rows)
	if len(s.themes) == 0 {
		return
	}
	avail := make(map[string]struct{}, len(s.index.AllThemes))
	for _, t := range s.index.AllThemes {
		avail[t] = struct{}{}
	}
	kept := s.themes[:0]
	for _, t := range s.themes {
		if _, ok := avail[t]; ok {
			kept = append(kept, t)
		}
	}
	s.themes = kept
	if _, ok := avail[s.current]; !ok {
		s.current = ""
	}
}

// Rows returns the loaded rows in load order.
func (s *State) Rows() []types.WatchItem { return s.rows }

// Index returns the memoized theme and date index of the loaded rows.
func (s *State) Index() Index { return s.index }

func (s *State) SearchText() string { return s.search }

// SetSearchText replaces the search text. Selections are untouched.
func (s *State) SetSearchText(q string) { s.search = q }

// SelectedThemes returns the selected themes in selection order.
func (s *State) SelectedThemes() []string { return append([]string(nil), s.themes...) }

// SelectedDates returns the selected date tokens in selection order.
func (s *State) SelectedDates() []string { return append([]string(nil), s.dates...) }

// CurrentTheme is the highlighted theme; ok is false when none is.
func (s *State) CurrentTheme() (theme string, ok bool) { return s.current, s.current != "" }

// AllSelected reports whether every available theme is selected.
func (s *State) AllSelected() bool {
	if len(s.index.AllThemes) == 0 {
		return false
	}
	for _, t := range s.index.AllThemes {
		if indexOf(s.themes, t) < 0 {
			return false
		}
	}
	return true
}

// ToggleTheme adds or removes t. An added theme becomes the highlight;
// removing the highlighted theme moves the highlight to the most recently
// selected remaining theme.
func (s *State) ToggleTheme(t string) {
	if i := indexOf(s.themes, t); i >= 0 {
		s.themes = append(s.themes[:i:i], s.themes[i+1:]...)
		if s.current == t {
			s.current = ""
			if n := len(s.themes); n > 0 {
				s.current = s.themes[n-1]
			}
		}
		return
	}
	s.themes = append(s.themes, t)
	s.current = t
}

// ToggleAllThemes clears the selection when every theme is selected and
// selects every theme otherwise. Either way nothing is highlighted.
func (s *State) ToggleAllThemes() {
	if s.AllSelected() {
		s.themes = nil
	} else {
		s.themes = append([]string(nil), s.index.AllThemes...)
	}
	s.current = ""
}

// ClearThemes empties the theme selection. Dates stay selected.
func (s *State) ClearThemes() {
	s.themes = nil
	s.current = ""
}

// ToggleDate adds or removes d, then replaces the theme selection with the
// themes of all rows on the selected dates.
func (s *State) ToggleDate(d string) {
	if i := indexOf(s.dates, d); i >= 0 {
		s.dates = append(s.dates[:i:i], s.dates[i+1:]...)
	} else {
		s.dates = append(s.dates, d)
	}
	s.themes = s.index.ThemesForDates(s.dates)
	s.current = ""
}

// ClearDates empties the date selection and the theme selection.
func (s *State) ClearDates() {
	s.dates = nil
	s.themes = nil
	s.current = ""
}

// SelectThemes toggles on every available theme f matches and returns how
// many were newly selected.
func (s *State) SelectThemes(f Filter) int {
	n := 0
	for _, t := range s.index.AllThemes {
		if f.Match(t) && indexOf(s.themes, t) < 0 {
			s.ToggleTheme(t)
			n++
		}
	}
	return n
}

// Sort returns the active sort, or nil when unsorted.
func (s *State) Sort() *types.SortState {
	if s.sort == nil {
		return nil
	}
	st := *s.sort
	return &st
}

// SetSort advances the sort on column key: a different column starts
// ascending, ascending flips to descending, descending flips back to
// ascending (or to unsorted with WithUnsortedCycle). Unknown columns are
// rejected and leave the sort unchanged.
func (s *State) SetSort(key string) error {
	d, err := columns.Get(key)
	if err != nil {
		return err
	}
	switch {
	case s.sort == nil || s.sort.Key != d.Key:
		s.sort = &types.SortState{Key: d.Key, Dir: types.Asc}
	case s.sort.Dir == types.Asc:
		s.sort = &types.SortState{Key: d.Key, Dir: types.Desc}
	case s.unsortedCycle:
		s.sort = nil
	default:
		s.sort = &types.SortState{Key: d.Key, Dir: types.Asc}
	}
	return nil
}

// SortBy sets the sort directly, bypassing the click cycle.
func (s *State) SortBy(key string, dir types.SortDir) error {
	d, err := columns.Get(key)
	if err != nil {
		return err
	}
	s.sort = &types.SortState{Key: d.Key, Dir: dir}
	return nil
}

// Filtered returns the rows matching the theme selection and search text,
// in load order. No selected theme means no rows.
func (s *State) Filtered() []types.WatchItem {
	if len(s.themes) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(s.themes))
	for _, t := range s.themes {
		set[t] = struct{}{}
	}
	needle := strings.ToLower(strings.TrimSpace(s.search))
	var out []types.WatchItem
	for _, r := range s.rows {
		if !r.HasAnyTheme(set) {
			continue
		}
		if needle != "" && !strings.Contains(r.SearchText(), needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// VisibleRows returns Filtered ordered by the active sort. ev supplies
// derived metrics for numeric columns and may be nil.
func (s *State) VisibleRows(ev *columns.Evaluator) ([]types.WatchItem, error) {
	return columns.Sort(s.Filtered(), s.sort, ev)
}

func indexOf(s []string, v string) int {
	for i, e := range s {
		if e == v {
			return i
		}
	}
	return -1
}
