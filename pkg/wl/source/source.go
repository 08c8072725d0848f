package source

import (
	"context"

	"github.com/komsit37/thematic-wl/pkg/wl/types"
)

// Source loads watchlist rows from a specification (e.g., filepath, URL, table).
type Source interface {
	Load(ctx context.Context, spec any) ([]types.WatchItem, error)
}
