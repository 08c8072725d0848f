package columns

import (
	"math"
	"sync"
	"time"

	"github.com/komsit37/thematic-wl/pkg/wl/bizdate"
	"github.com/komsit37/thematic-wl/pkg/wl/enrich"
	"github.com/komsit37/thematic-wl/pkg/wl/types"
)

// Ref names one price a metric is computed from.
type Ref int

const (
	RefInitial Ref = iota // close on the row's analyzed date
	RefCurrent            // latest price
	RefOneDay
	RefOneWeek
	RefYTD
)

// Metrics are the derived values of one row. Nil means unknown.
type Metrics struct {
	Initial  *float64 `json:"initial"`
	Current  *float64 `json:"current"`
	TotalPct *float64 `json:"totalPct"`
	DayPct   *float64 `json:"dayPct"`
	WeekPct  *float64 `json:"weekPct"`
	YTDPct   *float64 `json:"ytdPct"`
}

// PercentChange is (cur-base)/base*100, or nil when either side is unknown
// or base is zero.
func PercentChange(base, cur *float64) *float64 {
	if base == nil || cur == nil || *base == 0 {
		return nil
	}
	v := (*cur - *base) / *base * 100
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Prices is the read side of the price cache.
type Prices interface {
	Lookup(k enrich.Key) (*float64, enrich.Status)
	Version() uint64
}

// Evaluator computes Metrics for rows from cached prices. Results are
// memoized per ticker and analysis date until the cache version changes.
type Evaluator struct {
	prices  Prices
	today   time.Time
	anchors bizdate.Anchors

	mu      sync.Mutex
	version uint64
	memo    map[memoKey]Metrics
}

type memoKey struct{ ticker, analyzed string }

// NewEvaluator anchors all dates to today. A nil prices yields unknown
// metrics for every row.
func NewEvaluator(prices Prices, today time.Time) *Evaluator {
	return &Evaluator{
		prices:  prices,
		today:   bizdate.Day(today),
		anchors: bizdate.AnchorsFor(today),
		memo:    map[memoKey]Metrics{},
	}
}

// Key returns the cache key a price reference resolves to for it.
func (e *Evaluator) Key(it types.WatchItem, r Ref) enrich.Key {
	switch r {
	case RefInitial:
		return enrich.CloseKey(it.Ticker, bizdate.Normalize(it.DateAnalyzed, e.today))
	case RefOneDay:
		return enrich.CloseKey(it.Ticker, e.anchors.Key(bizdate.OneDay))
	case RefOneWeek:
		return enrich.CloseKey(it.Ticker, e.anchors.Key(bizdate.OneWeek))
	case RefYTD:
		return enrich.CloseKey(it.Ticker, e.anchors.Key(bizdate.YTD))
	default:
		return enrich.LatestKey(it.Ticker)
	}
}

// Keys lists, without repeats, every cache key the columns need for items.
func (e *Evaluator) Keys(items []types.WatchItem, defs []Def) []enrich.Key {
	var refs []Ref
	seenRef := map[Ref]bool{}
	for _, d := range defs {
		for _, r := range d.Needs {
			if !seenRef[r] {
				seenRef[r] = true
				refs = append(refs, r)
			}
		}
	}
	seen := map[enrich.Key]struct{}{}
	var out []enrich.Key
	for _, it := range items {
		for _, r := range refs {
			k := e.Key(it, r)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// Metrics returns the derived metrics of it.
func (e *Evaluator) Metrics(it types.WatchItem) Metrics {
	if e.prices == nil {
		return Metrics{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if v := e.prices.Version(); v != e.version {
		e.version = v
		e.memo = map[memoKey]Metrics{}
	}
	mk := memoKey{it.Ticker, it.DateAnalyzed}
	if m, ok := e.memo[mk]; ok {
		return m
	}
	price := func(r Ref) *float64 {
		p, st := e.prices.Lookup(e.Key(it, r))
		if st != enrich.Resolved {
			return nil
		}
		return p
	}
	cur := price(RefCurrent)
	m := Metrics{
		Initial: price(RefInitial),
		Current: cur,
		DayPct:  PercentChange(price(RefOneDay), cur),
		WeekPct: PercentChange(price(RefOneWeek), cur),
		YTDPct:  PercentChange(price(RefYTD), cur),
	}
	m.TotalPct = PercentChange(m.Initial, cur)
	e.memo[mk] = m
	return m
}
