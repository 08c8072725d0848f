package filter

import (
	"reflect"
	"testing"

	"github.com/komsit37/thematic-wl/pkg/wl/types"
)

func rowsFixture() []types.WatchItem {
	return []types.WatchItem{
		{Ticker: "NVDA", Company: "NVIDIA", Themes: []string{"AI", "Data Center"}, DateAnalyzed: "10/29", Notes: "Blackwell ramp"},
		{Ticker: "AMD", Company: "Advanced Micro Devices", Themes: []string{"AI"}, DateAnalyzed: "10/30"},
		{Ticker: "CCJ", Company: "Cameco", Themes: []string{"Nuclear", "Uranium"}, DateAnalyzed: "9/2"},
		{Ticker: "VST", Company: "Vistra", Themes: []string{"Nuclear", "Power"}, DateAnalyzed: "10/29"},
	}
}

func visibleTickers(t *testing.T, s *State) []string {
	t.Helper()
	rows, err := s.VisibleRows(nil)
	if err != nil {
		t.Fatal(err)
	}
	out := []string{}
	for _, r := range rows {
		out = append(out, r.Ticker)
	}
	return out
}

func TestIndex(t *testing.T) {
	idx := BuildIndex(rowsFixture())
	if want := []string{"AI", "Data Center", "Nuclear", "Power", "Uranium"}; !reflect.DeepEqual(idx.AllThemes, want) {
		t.Errorf("AllThemes = %v, want %v", idx.AllThemes, want)
	}
	if want := []string{"10/30", "10/29", "9/2"}; !reflect.DeepEqual(idx.Dates, want) {
		t.Errorf("Dates = %v, want %v", idx.Dates, want)
	}
	if want := []string{"AI", "Data Center", "Nuclear", "Power"}; !reflect.DeepEqual(idx.ThemesByDate["10/29"], want) {
		t.Errorf("ThemesByDate[10/29] = %v, want %v", idx.ThemesByDate["10/29"], want)
	}
}

func TestEndToEndThemeThenDate(t *testing.T) {
	s := NewState([]types.WatchItem{
		{Ticker: "NVDA", Themes: []string{"AI", "Data Center"}, DateAnalyzed: "10/29"},
		{Ticker: "AMD", Themes: []string{"AI"}, DateAnalyzed: "10/30"},
	})
	s.ToggleTheme("AI")
	if got := visibleTickers(t, s); !reflect.DeepEqual(got, []string{"AMD", "NVDA"}) {
		t.Fatalf("after AI: %v", got)
	}
	s.ToggleDate("10/30")
	if got := s.SelectedThemes(); !reflect.DeepEqual(got, []string{"AI"}) {
		t.Fatalf("themes after date = %v", got)
	}
	if got := visibleTickers(t, s); !reflect.DeepEqual(got, []string{"AMD", "NVDA"}) {
		t.Fatalf("after date: %v", got)
	}

	s = NewState([]types.WatchItem{
		{Ticker: "NVDA", Themes: []string{"AI", "Data Center"}, DateAnalyzed: "10/29"},
		{Ticker: "AMD", Themes: []string{"GPU"}, DateAnalyzed: "10/30"},
	})
	s.ToggleDate("10/30")
	if got := s.SelectedThemes(); !reflect.DeepEqual(got, []string{"GPU"}) {
		t.Fatalf("themes = %v, want [GPU]", got)
	}
	if got := visibleTickers(t, s); !reflect.DeepEqual(got, []string{"AMD"}) {
		t.Fatalf("visible = %v, want [AMD]", got)
	}
}

func TestDateDrivesThemes(t *testing.T) {
	s := NewState(rowsFixture())
	idx := s.Index()
	for _, d := range []string{"10/29", "9/2", "10/30", "10/29"} {
		s.ToggleTheme("Uranium") // manual edit, overwritten below
		s.ToggleDate(d)
		want := idx.ThemesForDates(s.SelectedDates())
		if got := s.SelectedThemes(); !reflect.DeepEqual(got, want) {
			t.Fatalf("after date %s: themes = %v, want %v", d, got, want)
		}
		if _, ok := s.CurrentTheme(); ok {
			t.Fatalf("highlight survived date toggle")
		}
	}
	if got := s.SelectedDates(); !reflect.DeepEqual(got, []string{"9/2", "10/30"}) {
		t.Fatalf("dates = %v", got)
	}
}

func TestEmptyThemesEmptyTable(t *testing.T) {
	s := NewState(rowsFixture())
	for _, q := range []string{"", "nvda", "zzz"} {
		s.SetSearchText(q)
		if got := visibleTickers(t, s); len(got) != 0 {
			t.Fatalf("search %q with no themes: %v", q, got)
		}
	}
	s.ToggleDate("10/29")
	s.ClearThemes()
	if got := visibleTickers(t, s); len(got) != 0 {
		t.Fatalf("cleared themes with date selected: %v", got)
	}
	if got := s.SelectedDates(); len(got) != 1 {
		t.Fatalf("ClearThemes touched dates: %v", got)
	}
}

func TestToggleThemeHighlight(t *testing.T) {
	s := NewState(rowsFixture())
	s.ToggleTheme("AI")
	s.ToggleTheme("Nuclear")
	s.ToggleTheme("Power")
	if cur, _ := s.CurrentTheme(); cur != "Power" {
		t.Fatalf("current = %q, want Power", cur)
	}
	s.ToggleTheme("AI") // not highlighted: highlight stays
	if cur, _ := s.CurrentTheme(); cur != "Power" {
		t.Fatalf("current = %q, want Power", cur)
	}
	s.ToggleTheme("Power")
	if cur, _ := s.CurrentTheme(); cur != "Nuclear" {
		t.Fatalf("current = %q, want Nuclear", cur)
	}
	s.ToggleTheme("Nuclear")
	if _, ok := s.CurrentTheme(); ok {
		t.Fatal("highlight should be cleared")
	}
}

func TestToggleAllThemes(t *testing.T) {
	s := NewState(rowsFixture())
	s.ToggleTheme("AI")
	s.ToggleAllThemes()
	if !s.AllSelected() {
		t.Fatal("expected all selected")
	}
	if _, ok := s.CurrentTheme(); ok {
		t.Fatal("select-all must not highlight")
	}
	if got := visibleTickers(t, s); len(got) != 4 {
		t.Fatalf("visible = %v", got)
	}
	s.ToggleAllThemes()
	if got := s.SelectedThemes(); len(got) != 0 {
		t.Fatalf("themes = %v, want none", got)
	}
}

func TestSetRowsDropsStaleThemes(t *testing.T) {
	s := NewState(rowsFixture())
	s.ToggleAllThemes()
	s.ToggleTheme("Nuclear")
	s.ToggleTheme("Nuclear") // highlighted again
	s.SetRows([]types.WatchItem{
		{Ticker: "NVDA", Themes: []string{"AI", "Solar"}, DateAnalyzed: "11/5"},
		{Ticker: "FSLR", Themes: []string{"Solar", "Wind"}, DateAnalyzed: "11/5"},
		{Ticker: "ENPH", Themes: []string{"Grid", "Storage"}, DateAnalyzed: "11/6"},
	})
	if got := s.SelectedThemes(); !reflect.DeepEqual(got, []string{"AI"}) {
		t.Fatalf("themes = %v, want [AI]", got)
	}
	if _, ok := s.CurrentTheme(); ok {
		t.Fatal("highlight on a theme the rows no longer carry")
	}
	if s.AllSelected() {
		t.Fatal("AllSelected with four of five themes unselected")
	}
	s.ToggleAllThemes()
	if !s.AllSelected() || len(s.SelectedThemes()) != 5 {
		t.Fatalf("themes = %v, want all five", s.SelectedThemes())
	}
}

func TestAllSelectedComparesMembership(t *testing.T) {
	s := NewState(rowsFixture())
	for _, th := range []string{"AI", "Data Center", "Nuclear", "Uranium", "Biotech"} {
		s.ToggleTheme(th)
	}
	if s.AllSelected() {
		t.Fatal("AllSelected with Power unselected")
	}
	s.ToggleAllThemes()
	if !s.AllSelected() {
		t.Fatal("ToggleAllThemes should select every theme")
	}
}

func TestClearDatesResetsThemes(t *testing.T) {
	s := NewState(rowsFixture())
	s.ToggleDate("9/2")
	s.ClearDates()
	if len(s.SelectedDates()) != 0 || len(s.SelectedThemes()) != 0 {
		t.Fatalf("dates %v themes %v", s.SelectedDates(), s.SelectedThemes())
	}
}

func TestSearch(t *testing.T) {
	s := NewState(rowsFixture())
	s.ToggleAllThemes()
	s.SetSearchText("  BLACKWELL ")
	if got := visibleTickers(t, s); !reflect.DeepEqual(got, []string{"NVDA"}) {
		t.Fatalf("notes search = %v", got)
	}
	s.SetSearchText("nuclear")
	if got := visibleTickers(t, s); !reflect.DeepEqual(got, []string{"CCJ", "VST"}) {
		t.Fatalf("theme search = %v", got)
	}
	s.SetSearchText("10/30")
	if got := visibleTickers(t, s); !reflect.DeepEqual(got, []string{"AMD"}) {
		t.Fatalf("date search = %v", got)
	}
}

func TestSetSortCycle(t *testing.T) {
	s := NewState(rowsFixture())
	if st := s.Sort(); st == nil || st.Key != "ticker" || st.Dir != types.Asc {
		t.Fatalf("initial sort = %+v", st)
	}
	steps := []types.SortDir{types.Desc, types.Asc, types.Desc}
	for _, want := range steps {
		if err := s.SetSort("Ticker"); err != nil {
			t.Fatal(err)
		}
		if st := s.Sort(); st == nil || st.Dir != want {
			t.Fatalf("sort = %+v, want %s", st, want)
		}
	}
	if err := s.SetSort("Company"); err != nil {
		t.Fatal(err)
	}
	if st := s.Sort(); st.Key != "company" || st.Dir != types.Asc {
		t.Fatalf("new column sort = %+v", st)
	}
	if err := s.SetSort("nope"); err == nil {
		t.Fatal("expected error for unknown column")
	}
	if st := s.Sort(); st.Key != "company" {
		t.Fatalf("sort changed on error: %+v", st)
	}

	u := NewState(rowsFixture(), WithUnsortedCycle())
	_ = u.SetSort("ticker") // desc
	_ = u.SetSort("ticker") // unsorted
	if st := u.Sort(); st != nil {
		t.Fatalf("sort = %+v, want unsorted", st)
	}
	u.ToggleAllThemes()
	if got := visibleTickers(t, u); !reflect.DeepEqual(got, []string{"NVDA", "AMD", "CCJ", "VST"}) {
		t.Fatalf("unsorted rows = %v, want load order", got)
	}
	_ = u.SetSort("ticker")
	if st := u.Sort(); st == nil || st.Dir != types.Asc {
		t.Fatalf("sort = %+v, want asc", st)
	}
}

func TestSelectThemes(t *testing.T) {
	s := NewState(rowsFixture())
	f, err := Parse("/^(AI|Power)$/")
	if err != nil {
		t.Fatal(err)
	}
	if n := s.SelectThemes(f); n != 2 {
		t.Fatalf("selected %d, want 2", n)
	}
	if n := s.SelectThemes(f); n != 0 {
		t.Fatalf("reselected %d, want 0", n)
	}
	if got := visibleTickers(t, s); !reflect.DeepEqual(got, []string{"AMD", "NVDA", "VST"}) {
		t.Fatalf("visible = %v", got)
	}
}
