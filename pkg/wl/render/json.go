package render

import (
	"encoding/json"
	"io"

	"github.com/komsit37/thematic-wl/pkg/wl/columns"
	"github.com/komsit37/thematic-wl/pkg/wl/types"
)

// jsonModel is the output shape for JSONRenderer.
type jsonModel struct {
	Columns []string   `json:"columns"`
	Rows    []jsonItem `json:"rows"`
}

type jsonItem struct {
	types.WatchItem
	Metrics columns.Metrics   `json:"metrics"`
	Values  map[string]string `json:"values"`
}

type JSONRenderer struct{}

func NewJSONRenderer() *JSONRenderer { return &JSONRenderer{} }

func (r *JSONRenderer) Render(w io.Writer, v View, opts RenderOptions) error {
	out := jsonModel{
		Columns: make([]string, 0, len(v.Columns)),
		Rows:    make([]jsonItem, 0, len(v.Rows)),
	}
	for _, c := range v.Columns {
		out.Columns = append(out.Columns, c.Key)
	}
	for _, rw := range v.Rows {
		vals := make(map[string]string, len(v.Columns))
		for _, c := range v.Columns {
			vals[c.Key] = columns.Value(c, rw.Item, rw.Metrics)
		}
		out.Rows = append(out.Rows, jsonItem{WatchItem: rw.Item, Metrics: rw.Metrics, Values: vals})
	}
	enc := json.NewEncoder(w)
	if opts.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}
