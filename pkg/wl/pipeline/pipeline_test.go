package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/komsit37/thematic-wl/pkg/wl/enrich"
	"github.com/komsit37/thematic-wl/pkg/wl/filter"
	"github.com/komsit37/thematic-wl/pkg/wl/render"
	"github.com/komsit37/thematic-wl/pkg/wl/source"
)

const watchlistCSV = `Ticker,Company,Theme(s),Date analyzed
NVDA,NVIDIA,"AI, Data Center",10/29
AMD,Advanced Micro Devices,AI,10/30
CCJ,Cameco,Nuclear,9/2
`

type mapSource struct {
	mu     sync.Mutex
	prices map[enrich.Key]float64
	calls  int
}

func (m *mapSource) get(k enrich.Key) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	p, ok := m.prices[k]
	if !ok {
		return 0, enrich.ErrNoPrice
	}
	return p, nil
}

func (m *mapSource) Latest(_ context.Context, t string) (float64, error) {
	return m.get(enrich.LatestKey(t))
}

func (m *mapSource) CloseOn(_ context.Context, t string, d time.Time) (float64, error) {
	return m.get(enrich.CloseKey(t, d.Format("2006-01-02")))
}

type jsonOut struct {
	Rows []struct {
		Ticker string            `json:"ticker"`
		Values map[string]string `json:"values"`
	} `json:"rows"`
}

func writeCSV(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "watchlist.csv")
	if err := os.WriteFile(p, []byte(watchlistCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestExecuteEnrichesAndSorts(t *testing.T) {
	src := &mapSource{prices: map[enrich.Key]float64{
		enrich.CloseKey("NVDA", "2025-10-29"): 200,
		enrich.LatestKey("NVDA"):              180,
		enrich.CloseKey("AMD", "2025-10-30"):  250,
		enrich.LatestKey("AMD"):               275,
	}}
	var buf bytes.Buffer
	r := &Runner{
		Source:   source.CSVSource{},
		Renderer: render.NewJSONRenderer(),
		Writer:   &buf,
		Prices:   enrich.NewCache(src, enrich.WithBatchSize(2)),
		Now:      func() time.Time { return time.Date(2025, 11, 15, 9, 0, 0, 0, time.UTC) },
	}
	err := r.Execute(context.Background(), writeCSV(t), ExecuteOptions{
		Columns:  []string{"ticker", "total%"},
		SortKey:  "Total PnL",
		SortDesc: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	var out jsonOut
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, row := range out.Rows {
		got = append(got, row.Ticker+" "+row.Values["total%"])
	}
	// CCJ has no prices: unknown sorts first when descending.
	want := []string{"CCJ —", "AMD +10.00%", "NVDA -10.00%"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
	if src.calls != 6 {
		t.Fatalf("price calls = %d, want 6", src.calls)
	}

	// A second run hits the cache only.
	buf.Reset()
	if err := r.Execute(context.Background(), writeCSV(t), ExecuteOptions{Columns: []string{"ticker", "total%"}}); err != nil {
		t.Fatal(err)
	}
	if src.calls != 6 {
		t.Fatalf("cached run made calls: %d", src.calls)
	}
}

func TestExecuteDateAndThemeFilters(t *testing.T) {
	var buf bytes.Buffer
	r := &Runner{Source: source.CSVSource{}, Renderer: render.NewSymsRenderer(), Writer: &buf}
	path := writeCSV(t)

	if err := r.Execute(context.Background(), path, ExecuteOptions{Dates: []string{"10/30"}}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "AMD,NVDA\n" {
		t.Fatalf("date filter = %q", got)
	}

	buf.Reset()
	f, _ := filter.Parse("nuc")
	if err := r.Execute(context.Background(), path, ExecuteOptions{Themes: f}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "CCJ\n" {
		t.Fatalf("theme filter = %q", got)
	}

	buf.Reset()
	if err := r.Execute(context.Background(), path, ExecuteOptions{Search: "micro"}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "AMD\n" {
		t.Fatalf("search = %q", got)
	}
}

func TestExecuteLoadError(t *testing.T) {
	r := &Runner{Source: source.CSVSource{}, Renderer: render.NewSymsRenderer(), Writer: &bytes.Buffer{}}
	err := r.Execute(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), ExecuteOptions{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

func TestExecuteUnknownColumn(t *testing.T) {
	r := &Runner{Source: source.CSVSource{}, Renderer: render.NewSymsRenderer(), Writer: &bytes.Buffer{}}
	if err := r.Execute(context.Background(), writeCSV(t), ExecuteOptions{Columns: []string{"pe"}}); err == nil {
		t.Fatal("expected unknown column error")
	}
}
