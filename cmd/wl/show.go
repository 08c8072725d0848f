package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/komsit37/thematic-wl/pkg/wl/columns"
	"github.com/komsit37/thematic-wl/pkg/wl/filter"
	"github.com/komsit37/thematic-wl/pkg/wl/pipeline"
	"github.com/komsit37/thematic-wl/pkg/wl/render"
	"github.com/komsit37/thematic-wl/pkg/wl/source"
)

// loadFlags select and load a watchlist; shared by show, themes and dates.
type loadFlags struct {
	format string
	table  string
}

func (lf *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&lf.format, "format", "auto", "input format: auto, csv, yaml, sqlite")
	cmd.Flags().StringVar(&lf.table, "table", source.DefaultTable, "table or SELECT statement for sqlite input")
}

// source picks a Source for loc and returns the spec to load it with.
func (a *app) source(loc string, lf loadFlags) (source.Source, any, error) {
	format := strings.ToLower(lf.format)
	if format == "" || format == "auto" {
		format = detectFormat(loc)
	}
	switch format {
	case "csv":
		return source.CSVSource{Client: &http.Client{Timeout: a.cfg.Prices.Timeout}}, loc, nil
	case "yaml", "yml":
		return source.YAMLSource{}, loc, nil
	case "sqlite", "db":
		return source.DBSource{DSN: loc}, lf.table, nil
	}
	return nil, nil, fmt.Errorf("unknown input format %q (auto, csv, yaml, sqlite)", lf.format)
}

func detectFormat(loc string) string {
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		return "csv"
	}
	switch strings.ToLower(filepath.Ext(loc)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite"
	}
	return "csv"
}

func (a *app) showCmd() *cobra.Command {
	var (
		lf      loadFlags
		cols    []string
		sets    []string
		themes  string
		dates   []string
		search  string
		sortKey string
		desc    bool
		output  string
		noColor bool
		pretty  bool
		title   string
	)
	cmd := &cobra.Command{
		Use:   "show <csv|dir|url|yaml|sqlite>",
		Short: "Render a watchlist with price-derived returns",
		Long: `Render a watchlist as a table, JSON or a ticker list.

Rows are narrowed by theme (--themes accepts a comma list, a glob, /regex/
or a substring), by analyzed date (--date, repeatable; selecting dates
selects their themes) and by free-text --search. Numeric columns fetch
closes and latest prices from the configured price source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := cols
			if len(sets) > 0 {
				expanded, err := columns.ExpandSets(sets)
				if err != nil {
					return err
				}
				names = append(expanded, cols...)
			}
			defs, err := columns.Resolve(names)
			if err != nil {
				return err
			}

			var tf filter.Filter
			if themes != "" {
				if tf, err = filter.Parse(themes); err != nil {
					return err
				}
			}
			rend, err := render.ByName(output)
			if err != nil {
				return err
			}
			src, spec, err := a.source(args[0], lf)
			if err != nil {
				return err
			}

			width := a.cfg.Render.MaxColWidth
			if width == 0 {
				width = autoColWidth(terminalWidth(os.Stdout), len(defs))
			}

			r := &pipeline.Runner{
				Source:   src,
				Renderer: rend,
				Writer:   cmd.OutOrStdout(),
				Prices:   a.priceCache(columns.NeedsPrices(defs) || sortNeedsPrices(sortKey)),
				Log:      a.log,
			}
			return r.Execute(cmd.Context(), spec, pipeline.ExecuteOptions{
				Columns:     names,
				Themes:      tf,
				Dates:       dates,
				Search:      search,
				SortKey:     sortKey,
				SortDesc:    desc,
				Color:       !noColor,
				PrettyJSON:  pretty,
				MaxColWidth: width,
				Title:       title,
			})
		},
	}
	lf.register(cmd)
	f := cmd.Flags()
	f.StringSliceVarP(&cols, "columns", "c", nil, "columns to show (default core set)")
	f.StringSliceVar(&sets, "sets", nil, "column sets: core, prices, perf, notes, all")
	f.StringVarP(&themes, "themes", "t", "", "theme filter: a,b | glob* | /regex/ | substring")
	f.StringArrayVarP(&dates, "date", "d", nil, "analyzed date to select (repeatable)")
	f.StringVarP(&search, "search", "s", "", "case-insensitive text search")
	f.StringVar(&sortKey, "sort", "", "sort column (default ticker)")
	f.BoolVar(&desc, "desc", false, "sort descending")
	f.StringVarP(&output, "output", "o", "table", "output format: table, json, syms")
	f.BoolVar(&noColor, "no-color", false, "disable colours")
	f.BoolVar(&pretty, "pretty", false, "indent JSON output")
	f.StringVar(&title, "title", "", "title printed above the table")
	return cmd
}

func sortNeedsPrices(key string) bool {
	if key == "" {
		return false
	}
	d, err := columns.Get(key)
	return err == nil && columns.NeedsPrices([]columns.Def{d})
}

// autoColWidth splits the terminal across ncols columns. 0 leaves the
// renderer default in place.
func autoColWidth(termWidth, ncols int) int {
	if termWidth <= 0 || ncols <= 0 {
		return 0
	}
	w := termWidth/ncols - 2
	if w < 10 {
		w = 10
	}
	return w
}

func envColumns() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return 0
}
