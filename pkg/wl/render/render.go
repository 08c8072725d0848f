package render

import (
	"io"

	"github.com/komsit37/thematic-wl/pkg/wl/columns"
	"github.com/komsit37/thematic-wl/pkg/wl/types"
)

// Renderer renders a filtered, sorted watchlist to an output writer.
type Renderer interface {
	Render(w io.Writer, v View, opts RenderOptions) error
}

// View is what a renderer draws: the chosen columns and the visible rows
// with their derived metrics.
type View struct {
	Columns []columns.Def
	Rows    []Row
}

// Row pairs an item with its metrics at render time.
type Row struct {
	Item    types.WatchItem
	Metrics columns.Metrics
}

type RenderOptions struct {
	Color      bool
	PrettyJSON bool
	// MaxColWidth wraps text columns; 0 means 40.
	MaxColWidth int
	// Title is printed above the table when non-empty.
	Title string
}

// Band classifies a total return for row colouring.
type Band int

const (
	BandNone Band = iota
	BandStrongUp
	BandUp
	BandDown
	BandStrongDown
)

// BandFor returns the colour band of a total return percentage.
func BandFor(pct *float64) Band {
	if pct == nil {
		return BandNone
	}
	switch v := *pct; {
	case v >= 10:
		return BandStrongUp
	case v > 0:
		return BandUp
	case v <= -10:
		return BandStrongDown
	case v < 0:
		return BandDown
	}
	return BandNone
}
