package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/komsit37/thematic-wl/pkg/wl/columns"
)

type TableRenderer struct{}

func NewTableRenderer() *TableRenderer { return &TableRenderer{} }

var bandColors = map[Band]text.Colors{
	BandStrongUp:   {text.FgHiGreen, text.Bold},
	BandUp:         {text.FgGreen},
	BandDown:       {text.FgRed},
	BandStrongDown: {text.FgHiRed, text.Bold},
}

func (r *TableRenderer) Render(w io.Writer, v View, opts RenderOptions) error {
	if strings.TrimSpace(opts.Title) != "" {
		fmt.Fprintln(w, text.Bold.Sprint(opts.Title))
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleColoredDark)
	if !opts.Color {
		tw.SetStyle(table.StyleLight)
	}
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateColumns = false

	hdr := make(table.Row, len(v.Columns))
	for i, c := range v.Columns {
		hdr[i] = c.Header
	}
	tw.AppendHeader(hdr)

	// Wrap text to MaxColWidth (default 40), no truncation
	maxWidth := opts.MaxColWidth
	if maxWidth <= 0 {
		maxWidth = 40
	}
	cfgs := make([]table.ColumnConfig, 0, len(v.Columns))
	for i, c := range v.Columns {
		cfg := table.ColumnConfig{Number: i + 1, WidthMax: maxWidth}
		if c.Kind == columns.Numeric {
			cfg.Align = text.AlignRight
			cfg.AlignHeader = text.AlignRight
		}
		cfgs = append(cfgs, cfg)
	}
	if len(cfgs) > 0 {
		tw.SetColumnConfigs(cfgs)
	}

	for _, rw := range v.Rows {
		row := make(table.Row, len(v.Columns))
		colors, paint := bandColors[BandFor(rw.Metrics.TotalPct)]
		for i, c := range v.Columns {
			val := columns.Value(c, rw.Item, rw.Metrics)
			if opts.Color && paint {
				val = colors.Sprint(val)
			}
			row[i] = val
		}
		tw.AppendRow(row)
	}

	tw.SetCaption("%d rows", len(v.Rows))
	tw.Render()
	return nil
}
