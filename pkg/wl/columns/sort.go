package columns

import (
	"sort"
	"strings"

	"github.com/komsit37/thematic-wl/pkg/wl/types"
)

// Sort returns items ordered by st. Text compares case-insensitively,
// numbers numerically; unknown numbers order after every number ascending
// and before every number descending. Ties keep their input order. A nil
// st returns a copy in input order.
func Sort(items []types.WatchItem, st *types.SortState, ev *Evaluator) ([]types.WatchItem, error) {
	out := make([]types.WatchItem, len(items))
	copy(out, items)
	if st == nil {
		return out, nil
	}
	d, err := Get(st.Key)
	if err != nil {
		return nil, err
	}
	sign := 1
	if st.Dir == types.Desc {
		sign = -1
	}

	if d.Kind == Text {
		keys := make([]string, len(out))
		for i, it := range out {
			keys[i] = strings.ToLower(d.Text(it))
		}
		sort.Stable(byKey{items: out, less: func(i, j int) bool {
			return sign*strings.Compare(keys[i], keys[j]) < 0
		}, swap: func(i, j int) { keys[i], keys[j] = keys[j], keys[i] }})
		return out, nil
	}

	vals := make([]*float64, len(out))
	for i, it := range out {
		if ev != nil {
			vals[i] = d.Num(ev.Metrics(it))
		}
	}
	sort.Stable(byKey{items: out, less: func(i, j int) bool {
		return sign*compareNullable(vals[i], vals[j]) < 0
	}, swap: func(i, j int) { vals[i], vals[j] = vals[j], vals[i] }})
	return out, nil
}

// compareNullable orders nil after every number.
func compareNullable(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

// byKey sorts items alongside a precomputed key slice.
type byKey struct {
	items []types.WatchItem
	less  func(i, j int) bool
	swap  func(i, j int)
}

func (b byKey) Len() int           { return len(b.items) }
func (b byKey) Less(i, j int) bool { return b.less(i, j) }
func (b byKey) Swap(i, j int) {
	b.items[i], b.items[j] = b.items[j], b.items[i]
	b.swap(i, j)
}
