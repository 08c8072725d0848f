package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/phuslu/log"

	"github.com/komsit37/thematic-wl/pkg/wl/columns"
	"github.com/komsit37/thematic-wl/pkg/wl/enrich"
	"github.com/komsit37/thematic-wl/pkg/wl/filter"
	"github.com/komsit37/thematic-wl/pkg/wl/logging"
	"github.com/komsit37/thematic-wl/pkg/wl/render"
	"github.com/komsit37/thematic-wl/pkg/wl/source"
	"github.com/komsit37/thematic-wl/pkg/wl/types"
)

type Runner struct {
	Source   source.Source
	Renderer render.Renderer
	Writer   io.Writer
	// Prices enriches numeric columns; nil renders them as unknown.
	Prices *enrich.Cache
	// Now defaults to time.Now.
	Now func() time.Time
	Log *log.Logger
}

type ExecuteOptions struct {
	Columns []string
	// Themes selects themes by name; nil selects all when no date is given.
	Themes filter.Filter
	Dates  []string
	Search string
	// SortKey orders rows; empty keeps the default ticker ascending.
	SortKey  string
	SortDesc bool

	Color       bool
	PrettyJSON  bool
	MaxColWidth int
	Title       string
}

// Load reads the watchlist at spec into a fresh filter state.
func (r *Runner) Load(ctx context.Context, spec any) (*filter.State, error) {
	items, err := r.Source.Load(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	r.logger().Debug().Int("rows", len(items)).Msg("watchlist loaded")
	return filter.NewState(items), nil
}

func (r *Runner) Execute(ctx context.Context, spec any, opts ExecuteOptions) error {
	st, err := r.Load(ctx, spec)
	if err != nil {
		return err
	}
	if err := apply(st, opts); err != nil {
		return err
	}

	defs, err := columns.Resolve(opts.Columns)
	if err != nil {
		return err
	}
	ev, err := r.enrich(ctx, st, defs)
	if err != nil {
		return err
	}

	rows, err := st.VisibleRows(ev)
	if err != nil {
		return err
	}
	view := render.View{Columns: defs, Rows: make([]render.Row, 0, len(rows))}
	for _, it := range rows {
		view.Rows = append(view.Rows, render.Row{Item: it, Metrics: ev.Metrics(it)})
	}
	return r.Renderer.Render(r.Writer, view, render.RenderOptions{
		Color:       opts.Color,
		PrettyJSON:  opts.PrettyJSON,
		MaxColWidth: opts.MaxColWidth,
		Title:       opts.Title,
	})
}

func apply(st *filter.State, opts ExecuteOptions) error {
	for _, d := range opts.Dates {
		st.ToggleDate(d)
	}
	switch {
	case opts.Themes != nil:
		st.SelectThemes(opts.Themes)
	case len(opts.Dates) == 0:
		st.ToggleAllThemes()
	}
	st.SetSearchText(opts.Search)
	if opts.SortKey != "" {
		dir := types.Asc
		if opts.SortDesc {
			dir = types.Desc
		}
		return st.SortBy(opts.SortKey, dir)
	}
	return nil
}

// enrich fetches every price the visible rows need for the chosen columns
// and the active sort, and returns an evaluator over the cache.
func (r *Runner) enrich(ctx context.Context, st *filter.State, defs []columns.Def) (*columns.Evaluator, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	if r.Prices == nil {
		return columns.NewEvaluator(nil, now()), nil
	}
	ev := columns.NewEvaluator(r.Prices, now())

	need := defs
	if s := st.Sort(); s != nil {
		if d, err := columns.Get(s.Key); err == nil {
			need = append(append([]columns.Def(nil), defs...), d)
		}
	}
	if !columns.NeedsPrices(need) {
		return ev, nil
	}
	keys := ev.Keys(st.Filtered(), need)
	if len(keys) == 0 {
		return ev, nil
	}

	lg := r.logger()
	ticks, stop := r.Prices.Subscribe()
	defer stop()
	cy := r.Prices.Refresh(ctx, keys)
	started := time.Now()
	for {
		select {
		case v := <-ticks:
			lg.Debug().Uint64("version", v).Msg("prices updated")
		case <-cy.Done():
			lg.Info().Int("keys", len(keys)).Dur("took", time.Since(started)).Msg("prices fetched")
			return ev, cy.Wait()
		}
	}
}

func (r *Runner) logger() *log.Logger { return logging.OrDiscard(r.Log) }
