package render

import (
	"fmt"
	"io"
	"strings"
)

// symsRenderer prints all tickers in a single comma-separated line.
type symsRenderer struct{}

func NewSymsRenderer() Renderer {
	return symsRenderer{}
}

func (symsRenderer) Render(w io.Writer, v View, _ RenderOptions) error {
	symbols := make([]string, 0, len(v.Rows))
	for _, rw := range v.Rows {
		if sym := strings.TrimSpace(rw.Item.Ticker); sym != "" {
			symbols = append(symbols, sym)
		}
	}
	_, err := fmt.Fprintln(w, strings.Join(symbols, ","))
	return err
}

// ByName returns the renderer for an output format name.
func ByName(name string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "table":
		return NewTableRenderer(), nil
	case "json":
		return NewJSONRenderer(), nil
	case "syms", "symbols":
		return NewSymsRenderer(), nil
	}
	return nil, fmt.Errorf("unknown output format %q (table, json, syms)", name)
}
